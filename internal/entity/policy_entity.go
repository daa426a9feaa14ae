package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RMAPolicy is the per-company configuration consulted at every lifecycle step.
// It is persisted as a single JSON document.
type RMAPolicy struct {
	CompanyID uuid.UUID `json:"company_id"`
	Enabled   bool      `json:"enabled"`
	// IsDefault marks a policy synthesized because the company has none stored.
	IsDefault bool `json:"is_default"`

	GeneralRules     GeneralRules                `json:"general_rules"`
	ReasonRules      map[ReturnReason]ReasonRule `json:"reason_rules"`
	ShippingConfig   ShippingConfig              `json:"shipping_config"`
	InspectionConfig InspectionConfig            `json:"inspection_config"`
	ResolutionConfig ResolutionConfig            `json:"resolution_config"`
	Notifications    NotificationConfig          `json:"notifications"`
	Automation       AutomationConfig            `json:"automation"`

	UpdatedAt time.Time `json:"updated_at"`
}

type GeneralRules struct {
	ReturnWindowDays    int      `json:"return_window_days"`
	WarrantyWindowDays  int      `json:"warranty_window_days"`
	MaxItemsPerRMA      int      `json:"max_items_per_rma"`
	RMAExpirationDays   int      `json:"rma_expiration_days"`
	RequirePhotos       bool     `json:"require_photos"`
	RequireReason       bool     `json:"require_reason"`
	ExcludedCategories  []string `json:"excluded_categories"`
	ExcludedProducts    []string `json:"excluded_products"`
	FinalSaleCategories []string `json:"final_sale_categories"`
}

type ReasonRule struct {
	Enabled              bool    `json:"enabled"`
	RequiresProof        bool    `json:"requires_proof"`
	AutoApprove          bool    `json:"auto_approve"`
	RestockingFeePercent float64 `json:"restocking_fee_percent"`
	// ReturnShippingPaidBy is "merchant" or "customer".
	ReturnShippingPaidBy string `json:"return_shipping_paid_by"`
}

type Carrier struct {
	Name                string `json:"name"`
	Default             bool   `json:"default"`
	TrackingURLTemplate string `json:"tracking_url_template"`
}

type PrepaidLabelConfig struct {
	Enabled bool           `json:"enabled"`
	Reasons []ReturnReason `json:"reasons"`
}

type ShippingConfig struct {
	Carriers        []Carrier          `json:"carriers"`
	PrepaidLabel    PrepaidLabelConfig `json:"prepaid_label"`
	ReturnAddress   Address            `json:"return_address"`
	PickupThreshold float64            `json:"pickup_threshold"`
}

type InspectionConfig struct {
	Required         bool                                `json:"required"`
	Checklist        []string                            `json:"checklist"`
	AutoPass         []PolicyCondition                   `json:"auto_pass"`
	AutoFail         []PolicyCondition                   `json:"auto_fail"`
	DispositionRules map[ItemCondition]DispositionAction `json:"disposition_rules"`
}

type RefundRules struct {
	Enabled       bool     `json:"enabled"`
	Methods       []string `json:"methods"`
	DefaultMethod string   `json:"default_method"`
}

type ExchangeRules struct {
	Enabled            bool `json:"enabled"`
	AllowDifferentItem bool `json:"allow_different_item"`
}

type StoreCreditRules struct {
	Enabled        bool    `json:"enabled"`
	BonusPercent   float64 `json:"bonus_percent"`
	ExpirationDays int     `json:"expiration_days"`
}

type ResolutionConfig struct {
	RefundRules      RefundRules      `json:"refund_rules"`
	ExchangeRules    ExchangeRules    `json:"exchange_rules"`
	StoreCreditRules StoreCreditRules `json:"store_credit_rules"`
}

type CustomerNotifications struct {
	Channels []string `json:"channels"`
	Events   []string `json:"events"`
}

type InternalNotifications struct {
	Channels           []string `json:"channels"`
	Recipients         []string `json:"recipients"`
	HighValueThreshold float64  `json:"high_value_threshold"`
}

type NotificationConfig struct {
	Customer CustomerNotifications `json:"customer"`
	Internal InternalNotifications `json:"internal"`
}

type AutoApproveConfig struct {
	Enabled    bool              `json:"enabled"`
	Conditions []PolicyCondition `json:"conditions"`
}

type AutomationConfig struct {
	AutoApprove        AutoApproveConfig `json:"auto_approve"`
	AutoCreateLabel    bool              `json:"auto_create_label"`
	AutoProcessRefund  bool              `json:"auto_process_refund"`
	AutoCloseAfterDays int               `json:"auto_close_after_days"`
}

// PolicyCondition is the stored form of a rule. Value holds a JSON scalar or array.
type PolicyCondition struct {
	Field    string          `json:"field"`
	Operator string          `json:"operator"`
	Value    json.RawMessage `json:"value"`
}

func (p *RMAPolicy) ReasonRule(reason ReturnReason) (ReasonRule, bool) {
	rule, ok := p.ReasonRules[reason]
	return rule, ok
}
