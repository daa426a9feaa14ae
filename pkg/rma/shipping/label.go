package shipping

import (
	"context"
	"fmt"
	"strings"

	"rma-engine-be/internal/entity"

	"github.com/google/uuid"
)

const (
	MethodLabel  = "label"
	MethodPickup = "pickup"
)

// Label is what a carrier returns for a return shipment.
type Label struct {
	Carrier        string
	TrackingNumber string
	TrackingURL    string
	LabelURL       string
	Method         string
	Prepaid        bool
	ReturnAddress  *entity.Address
}

// LabelProvider issues return shipping labels.
type LabelProvider interface {
	GenerateLabel(ctx context.Context, rma *entity.RMA, policy *entity.RMAPolicy) (*Label, error)
}

// SelectCarrier returns the default carrier, else the first configured one.
func SelectCarrier(cfg entity.ShippingConfig) (entity.Carrier, bool) {
	for _, c := range cfg.Carriers {
		if c.Default {
			return c, true
		}
	}
	if len(cfg.Carriers) > 0 {
		return cfg.Carriers[0], true
	}
	return entity.Carrier{}, false
}

// Prepaid reports whether the merchant pays for the return shipment.
func Prepaid(rma *entity.RMA, p *entity.RMAPolicy) bool {
	if rule, ok := p.ReasonRule(rma.Reason); ok && rule.ReturnShippingPaidBy == "merchant" {
		return true
	}
	if !p.ShippingConfig.PrepaidLabel.Enabled {
		return false
	}
	for _, r := range p.ShippingConfig.PrepaidLabel.Reasons {
		if r == rma.Reason {
			return true
		}
	}
	return false
}

// Method is pickup once the RMA value reaches the configured threshold.
func Method(rma *entity.RMA, p *entity.RMAPolicy) string {
	threshold := p.ShippingConfig.PickupThreshold
	if threshold > 0 && rma.TotalValue() >= threshold {
		return MethodPickup
	}
	return MethodLabel
}

// TrackingURL expands the carrier template's {tracking} placeholder.
func TrackingURL(c entity.Carrier, trackingNumber string) string {
	if c.TrackingURLTemplate == "" {
		return ""
	}
	return strings.ReplaceAll(c.TrackingURLTemplate, "{tracking}", trackingNumber)
}

// LocalLabelProvider fabricates labels without calling a carrier.
type LocalLabelProvider struct {
	baseURL string
}

func NewLocalLabelProvider(baseURL string) *LocalLabelProvider {
	return &LocalLabelProvider{baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *LocalLabelProvider) GenerateLabel(ctx context.Context, rma *entity.RMA, policy *entity.RMAPolicy) (*Label, error) {
	carrier, ok := SelectCarrier(policy.ShippingConfig)
	if !ok {
		return nil, fmt.Errorf("no carrier configured for company %s", rma.CompanyID)
	}

	tracking := strings.ToUpper(carrier.Name) + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:14])
	label := &Label{
		Carrier:        carrier.Name,
		TrackingNumber: tracking,
		TrackingURL:    TrackingURL(carrier, tracking),
		LabelURL:       fmt.Sprintf("%s/labels/%s.pdf", p.baseURL, rma.RMANumber),
		Method:         Method(rma, policy),
		Prepaid:        Prepaid(rma, policy),
	}
	if addr := policy.ShippingConfig.ReturnAddress; addr.Line1 != "" {
		label.ReturnAddress = &addr
	}
	return label, nil
}
