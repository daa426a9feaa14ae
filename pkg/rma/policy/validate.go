package policy

import (
	"rma-engine-be/internal/entity"
	"rma-engine-be/pkg/apperror"
)

// Validate checks a policy before it is stored or served. Every condition list
// is compiled so malformed rules surface here instead of at match time.
func Validate(p *entity.RMAPolicy) error {
	g := p.GeneralRules
	switch {
	case g.ReturnWindowDays < 0:
		return apperror.ErrInvalidPolicy.With("general_rules.return_window_days must not be negative")
	case g.WarrantyWindowDays < 0:
		return apperror.ErrInvalidPolicy.With("general_rules.warranty_window_days must not be negative")
	case g.MaxItemsPerRMA < 1:
		return apperror.ErrInvalidPolicy.With("general_rules.max_items_per_rma must be at least 1")
	case g.RMAExpirationDays < 1:
		return apperror.ErrInvalidPolicy.With("general_rules.rma_expiration_days must be at least 1")
	}

	known := make(map[entity.ReturnReason]bool, len(entity.AllReturnReasons))
	for _, r := range entity.AllReturnReasons {
		known[r] = true
	}
	for reason, rule := range p.ReasonRules {
		if !known[reason] {
			return apperror.ErrInvalidPolicy.With("reason_rules: unknown reason %q", reason)
		}
		if rule.RestockingFeePercent < 0 || rule.RestockingFeePercent > 100 {
			return apperror.ErrInvalidPolicy.With("reason_rules.%s.restocking_fee_percent must be within 0..100", reason)
		}
		if rule.ReturnShippingPaidBy != "" && rule.ReturnShippingPaidBy != PaidByMerchant && rule.ReturnShippingPaidBy != PaidByCustomer {
			return apperror.ErrInvalidPolicy.With("reason_rules.%s.return_shipping_paid_by must be merchant or customer", reason)
		}
	}
	for _, reason := range p.ShippingConfig.PrepaidLabel.Reasons {
		if !known[reason] {
			return apperror.ErrInvalidPolicy.With("shipping_config.prepaid_label: unknown reason %q", reason)
		}
	}
	if p.ShippingConfig.PickupThreshold < 0 {
		return apperror.ErrInvalidPolicy.With("shipping_config.pickup_threshold must not be negative")
	}

	conditions := make(map[entity.ItemCondition]bool, len(entity.AllItemConditions))
	for _, c := range entity.AllItemConditions {
		conditions[c] = true
	}
	actions := map[entity.DispositionAction]bool{
		entity.DispositionRestock:        true,
		entity.DispositionRefurbish:      true,
		entity.DispositionLiquidate:      true,
		entity.DispositionDonate:         true,
		entity.DispositionDestroy:        true,
		entity.DispositionReturnToVendor: true,
	}
	for cond, action := range p.InspectionConfig.DispositionRules {
		if !conditions[cond] {
			return apperror.ErrInvalidPolicy.With("inspection_config.disposition_rules: unknown condition %q", cond)
		}
		if !actions[action] {
			return apperror.ErrInvalidPolicy.With("inspection_config.disposition_rules.%s: unknown action %q", cond, action)
		}
	}

	refund := p.ResolutionConfig.RefundRules
	if refund.Enabled && refund.DefaultMethod != "" {
		found := false
		for _, m := range refund.Methods {
			if m == refund.DefaultMethod {
				found = true
				break
			}
		}
		if !found {
			return apperror.ErrInvalidPolicy.With("resolution_config.refund_rules.default_method %q is not an allowed method", refund.DefaultMethod)
		}
	}
	credit := p.ResolutionConfig.StoreCreditRules
	if credit.BonusPercent < 0 {
		return apperror.ErrInvalidPolicy.With("resolution_config.store_credit_rules.bonus_percent must not be negative")
	}
	if credit.ExpirationDays < 0 {
		return apperror.ErrInvalidPolicy.With("resolution_config.store_credit_rules.expiration_days must not be negative")
	}

	if p.Notifications.Internal.HighValueThreshold < 0 {
		return apperror.ErrInvalidPolicy.With("notifications.internal.high_value_threshold must not be negative")
	}
	if p.Automation.AutoCloseAfterDays < 0 {
		return apperror.ErrInvalidPolicy.With("automation.auto_close_after_days must not be negative")
	}

	for _, list := range [][]entity.PolicyCondition{
		p.Automation.AutoApprove.Conditions,
		p.InspectionConfig.AutoPass,
		p.InspectionConfig.AutoFail,
	} {
		if _, err := CompileAll(list); err != nil {
			return err
		}
	}
	return nil
}
