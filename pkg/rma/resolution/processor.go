package resolution

import (
	"context"
	"math"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/pkg/apperror"
	"rma-engine-be/pkg/rma/policy"
)

// Processor validates and settles the resolution of an inspected RMA.
type Processor struct {
	gateway Gateway
}

func NewProcessor(gateway Gateway) *Processor {
	return &Processor{gateway: gateway}
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func snapshot(rma *entity.RMA) *entity.RMAPolicy {
	if rma.PolicySnapshot != nil {
		return rma.PolicySnapshot
	}
	return policy.DefaultPolicy(rma.CompanyID)
}

// SuggestRefund is the refundable value of the inspected, eligible items net of
// the reason's restocking fee. Merchant-fault reasons carry no fee.
func SuggestRefund(rma *entity.RMA) (amount, restockingFee float64) {
	var gross float64
	for _, item := range rma.Items {
		if item.Inspection == nil || !item.Inspection.RefundEligible {
			continue
		}
		gross += item.Price * float64(item.Quantity) * item.Inspection.RefundPercentage / 100
	}

	if !rma.Reason.IsMerchantFault() {
		if rule, ok := snapshot(rma).ReasonRule(rma.Reason); ok {
			restockingFee = gross * rule.RestockingFeePercent / 100
		}
	}
	return round(gross - restockingFee), round(restockingFee)
}

// Prepare checks the request against the RMA's policy and builds the
// resolution to settle. It has no side effects.
func (p *Processor) Prepare(rma *entity.RMA, req dto.ResolutionRequest, now time.Time) (*entity.Resolution, error) {
	cfg := snapshot(rma).ResolutionConfig
	res := &entity.Resolution{Type: entity.ResolutionType(req.Type), Status: entity.ResolutionProcessing}

	switch res.Type {
	case entity.ResolutionRefund:
		if !cfg.RefundRules.Enabled {
			return nil, apperror.ErrResolutionNotAllowed.With("refunds are not enabled")
		}
		method := req.Method
		if method == "" {
			method = cfg.RefundRules.DefaultMethod
		}
		if !allowed(cfg.RefundRules.Methods, method) {
			return nil, apperror.ErrResolutionNotAllowed.With("refund method %q is not allowed", method)
		}
		amount, fee := SuggestRefund(rma)
		if req.Amount != nil {
			amount = round(*req.Amount)
		}
		res.Refund = &entity.RefundDetails{Amount: amount, Method: method, RestockingFee: fee}

	case entity.ResolutionExchange:
		if !cfg.ExchangeRules.Enabled {
			return nil, apperror.ErrResolutionNotAllowed.With("exchanges are not enabled")
		}
		if len(req.Items) == 0 {
			return nil, apperror.InvalidInput("items", "an exchange needs at least one replacement item")
		}
		returned := make(map[string]bool, len(rma.Items))
		for _, item := range rma.Items {
			returned[item.ProductID] = true
		}

		details := &entity.ExchangeDetails{}
		var replacementTotal float64
		for _, it := range req.Items {
			if !cfg.ExchangeRules.AllowDifferentItem && !returned[it.ProductID] {
				return nil, apperror.ErrResolutionNotAllowed.With("product %s differs from the returned items", it.ProductID)
			}
			details.Items = append(details.Items, entity.ExchangeItem{
				ProductID: it.ProductID,
				SKU:       it.SKU,
				Name:      it.Name,
				Quantity:  it.Quantity,
				Price:     it.Price,
			})
			replacementTotal += it.Price * float64(it.Quantity)
		}
		if req.AdditionalPayment != nil {
			details.AdditionalPayment = round(*req.AdditionalPayment)
		} else {
			details.AdditionalPayment = round(math.Max(0, replacementTotal-rma.TotalValue()))
		}
		res.Exchange = details

	case entity.ResolutionStoreCredit:
		rules := cfg.StoreCreditRules
		if !rules.Enabled {
			return nil, apperror.ErrResolutionNotAllowed.With("store credit is not enabled")
		}
		var amount float64
		if req.Amount != nil {
			amount = round(*req.Amount)
		} else {
			refund, _ := SuggestRefund(rma)
			amount = round(refund * (1 + rules.BonusPercent/100))
		}
		credit := &entity.StoreCreditDetails{Amount: amount}
		if rules.ExpirationDays > 0 {
			expires := now.AddDate(0, 0, rules.ExpirationDays)
			credit.ExpiresAt = &expires
		}
		res.StoreCredit = credit

	default:
		return nil, apperror.InvalidInput("type", "unknown resolution type "+req.Type)
	}
	return res, nil
}

// Settle executes res through the gateway and records the returned reference.
func (p *Processor) Settle(ctx context.Context, rma *entity.RMA, res *entity.Resolution) error {
	var err error
	switch res.Type {
	case entity.ResolutionRefund:
		res.Refund.TransactionRef, err = p.gateway.Refund(ctx, rma, *res.Refund)
	case entity.ResolutionExchange:
		res.Exchange.OrderRef, err = p.gateway.Exchange(ctx, rma, *res.Exchange)
	case entity.ResolutionStoreCredit:
		res.StoreCredit.Code, err = p.gateway.IssueCredit(ctx, rma, *res.StoreCredit)
	default:
		return apperror.InvalidInput("type", "unknown resolution type "+string(res.Type))
	}
	if err != nil {
		return apperror.DependencyFailure("settlement gateway", err)
	}
	return nil
}

func allowed(methods []string, method string) bool {
	if len(methods) == 0 {
		return method != ""
	}
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}
