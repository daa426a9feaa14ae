package policy

import (
	"rma-engine-be/internal/entity"
	rmaEvents "rma-engine-be/pkg/rma/events"

	"github.com/google/uuid"
)

const (
	RefundMethodOriginalPayment = "original_payment"
	RefundMethodStoreCredit     = "store_credit"
	RefundMethodBankTransfer    = "bank_transfer"

	ChannelEmail = "email"
	ChannelWeb   = "web"

	PaidByMerchant = "merchant"
	PaidByCustomer = "customer"
)

// DefaultRefundPercentages maps an inspected condition to the share of the item
// price that is refundable.
var DefaultRefundPercentages = map[entity.ItemCondition]float64{
	entity.ConditionNewUnopened: 100,
	entity.ConditionNewOpened:   100,
	entity.ConditionDefective:   100,
	entity.ConditionLikeNew:     95,
	entity.ConditionGood:        85,
	entity.ConditionFair:        70,
	entity.ConditionPoor:        50,
	entity.ConditionDamaged:     0,
}

// DefaultDispositions maps an inspected condition to what happens to the item.
var DefaultDispositions = map[entity.ItemCondition]entity.DispositionAction{
	entity.ConditionNewUnopened: entity.DispositionRestock,
	entity.ConditionNewOpened:   entity.DispositionRestock,
	entity.ConditionLikeNew:     entity.DispositionRefurbish,
	entity.ConditionGood:        entity.DispositionRefurbish,
	entity.ConditionFair:        entity.DispositionLiquidate,
	entity.ConditionPoor:        entity.DispositionDonate,
	entity.ConditionDamaged:     entity.DispositionDestroy,
	entity.ConditionDefective:   entity.DispositionReturnToVendor,
}

var merchantPaidReasons = map[entity.ReturnReason]bool{
	entity.ReasonDefective:         true,
	entity.ReasonWrongItem:         true,
	entity.ReasonDamagedInShipping: true,
	entity.ReasonNotAsDescribed:    true,
}

var autoApproveReasons = map[entity.ReturnReason]bool{
	entity.ReasonDefective: true,
	entity.ReasonWrongItem: true,
}

// DefaultPolicy is served for companies that have not stored a policy.
func DefaultPolicy(companyID uuid.UUID) *entity.RMAPolicy {
	reasonRules := make(map[entity.ReturnReason]entity.ReasonRule, len(entity.AllReturnReasons))
	var prepaid []entity.ReturnReason
	var autoApprove []string

	for _, reason := range entity.AllReturnReasons {
		rule := entity.ReasonRule{
			Enabled:              true,
			ReturnShippingPaidBy: PaidByCustomer,
			RestockingFeePercent: 15,
		}
		if merchantPaidReasons[reason] {
			rule.ReturnShippingPaidBy = PaidByMerchant
			rule.RestockingFeePercent = 0
			prepaid = append(prepaid, reason)
		}
		if autoApproveReasons[reason] {
			rule.AutoApprove = true
			autoApprove = append(autoApprove, string(reason))
		}
		reasonRules[reason] = rule
	}

	dispositions := make(map[entity.ItemCondition]entity.DispositionAction, len(DefaultDispositions))
	for k, v := range DefaultDispositions {
		dispositions[k] = v
	}

	return &entity.RMAPolicy{
		CompanyID: companyID,
		Enabled:   true,
		IsDefault: true,
		GeneralRules: entity.GeneralRules{
			ReturnWindowDays:   30,
			WarrantyWindowDays: 365,
			MaxItemsPerRMA:     10,
			RMAExpirationDays:  30,
			RequirePhotos:      false,
			RequireReason:      true,
		},
		ReasonRules: reasonRules,
		ShippingConfig: entity.ShippingConfig{
			Carriers: []entity.Carrier{
				{Name: "UPS", Default: true, TrackingURLTemplate: "https://www.ups.com/track?tracknum={tracking}"},
				{Name: "FedEx", TrackingURLTemplate: "https://www.fedex.com/fedextrack/?trknbr={tracking}"},
				{Name: "USPS", TrackingURLTemplate: "https://tools.usps.com/go/TrackConfirmAction?tLabels={tracking}"},
			},
			PrepaidLabel: entity.PrepaidLabelConfig{Enabled: true, Reasons: prepaid},
		},
		InspectionConfig: entity.InspectionConfig{
			Required:         true,
			Checklist:        []string{"packaging", "accessories", "functional_test", "cosmetic"},
			DispositionRules: dispositions,
		},
		ResolutionConfig: entity.ResolutionConfig{
			RefundRules: entity.RefundRules{
				Enabled:       true,
				Methods:       []string{RefundMethodOriginalPayment, RefundMethodStoreCredit, RefundMethodBankTransfer},
				DefaultMethod: RefundMethodOriginalPayment,
			},
			ExchangeRules:    entity.ExchangeRules{Enabled: true, AllowDifferentItem: true},
			StoreCreditRules: entity.StoreCreditRules{Enabled: true, BonusPercent: 10, ExpirationDays: 365},
		},
		Notifications: entity.NotificationConfig{
			Customer: entity.CustomerNotifications{
				Channels: []string{ChannelEmail, ChannelWeb},
				Events:   rmaEvents.AllEventTypes(),
			},
			Internal: entity.InternalNotifications{
				Channels:           []string{ChannelEmail, ChannelWeb},
				HighValueThreshold: 500,
			},
		},
		Automation: entity.AutomationConfig{
			AutoApprove: entity.AutoApproveConfig{
				Enabled:    true,
				Conditions: []entity.PolicyCondition{NewCondition(FieldReason, OpIn, autoApprove)},
			},
			AutoCreateLabel:    true,
			AutoProcessRefund:  false,
			AutoCloseAfterDays: 0,
		},
	}
}
