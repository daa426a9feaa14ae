package eligibility

import (
	"context"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/pkg/apperror"
	"rma-engine-be/pkg/rma/policy"

	"github.com/google/uuid"
)

// OrderLookup resolves the order a request refers to. contract.OrderRepository
// satisfies it.
type OrderLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
}

// Validator checks a return request against the company policy before any
// state is created.
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Validate runs the policy checks in a fixed order: policy enabled, item count,
// reason rules, photos, required reason, excluded items. When orders is not
// nil the referenced order must exist, own every item and be inside the
// return or warranty window.
func (v *Validator) Validate(ctx context.Context, req dto.CreateRMARequest, p *entity.RMAPolicy, orders OrderLookup) error {
	if !p.Enabled {
		return apperror.ErrPolicyDisabled
	}
	if len(req.Items) == 0 {
		return apperror.ErrEmptyItemList
	}
	if len(req.Items) > p.GeneralRules.MaxItemsPerRMA {
		return apperror.ErrTooManyItems.With("%d items requested, policy allows %d", len(req.Items), p.GeneralRules.MaxItemsPerRMA)
	}

	reasons := requestReasons(req)
	for _, reason := range reasons {
		if rule, ok := p.ReasonRule(reason); ok && !rule.Enabled {
			return apperror.ErrReasonNotAllowed.With("reason %s is not accepted", reason)
		}
	}

	photosNeeded := p.GeneralRules.RequirePhotos
	for _, reason := range reasons {
		if rule, ok := p.ReasonRule(reason); ok && rule.RequiresProof {
			photosNeeded = true
		}
	}
	if photosNeeded {
		for _, item := range req.Items {
			if len(item.Photos) == 0 {
				return apperror.ErrPhotosRequired.With("item %s has no photos", item.ProductID)
			}
		}
	}

	if p.GeneralRules.RequireReason && req.Reason == "" {
		return apperror.ErrReasonRequired
	}

	excludedCategories := toSet(p.GeneralRules.ExcludedCategories, p.GeneralRules.FinalSaleCategories)
	excludedProducts := toSet(p.GeneralRules.ExcludedProducts)
	for _, item := range req.Items {
		if _, ok := excludedProducts[item.ProductID]; ok {
			return apperror.ErrItemNotReturnable.With("product %s cannot be returned", item.ProductID)
		}
		if _, ok := excludedCategories[item.Category]; ok && item.Category != "" {
			return apperror.ErrItemNotReturnable.With("category %s cannot be returned", item.Category)
		}
	}

	if orders == nil {
		return nil
	}
	return v.checkOrder(ctx, req, p, orders)
}

func (v *Validator) checkOrder(ctx context.Context, req dto.CreateRMARequest, p *entity.RMAPolicy, orders OrderLookup) error {
	order, err := orders.FindByID(ctx, req.OrderID)
	if err != nil {
		return apperror.DependencyFailure("order lookup", err)
	}
	if order == nil || order.CompanyID != req.CompanyID {
		return apperror.NotFound("order", req.OrderID.String())
	}
	if order.CustomerID != uuid.Nil && order.CustomerID != req.CustomerID {
		return apperror.InvalidInput("order_id", "order belongs to another customer")
	}
	if len(order.ItemIDs) > 0 {
		for _, item := range req.Items {
			if !order.HasItem(item.OrderItemID) {
				return apperror.InvalidInput("items", "order item "+item.OrderItemID+" is not part of the order")
			}
		}
	}

	days := p.GeneralRules.ReturnWindowDays
	switch entity.RMAType(req.Type) {
	case entity.RMATypeRecall:
		return nil
	case entity.RMATypeWarranty, entity.RMATypeRepair:
		days = p.GeneralRules.WarrantyWindowDays
	}
	if days == 0 {
		return nil
	}

	deadline := order.WindowStart().AddDate(0, 0, days)
	if v.now().After(deadline) {
		return apperror.ErrOutsideReturnWindow.With("window of %d days closed on %s", days, deadline.Format("2006-01-02"))
	}
	return nil
}

// requestReasons lists the RMA reason followed by distinct item reasons.
func requestReasons(req dto.CreateRMARequest) []entity.ReturnReason {
	seen := make(map[entity.ReturnReason]bool)
	var out []entity.ReturnReason
	add := func(r string) {
		reason := entity.ReturnReason(r)
		if r == "" || seen[reason] {
			return
		}
		seen[reason] = true
		out = append(out, reason)
	}
	add(req.Reason)
	for _, item := range req.Items {
		add(item.Reason)
	}
	return out
}

func toSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, v := range list {
			set[v] = struct{}{}
		}
	}
	return set
}

// Subject describes a creation request for rule matching.
func Subject(req dto.CreateRMARequest) policy.Subject {
	s := policy.Subject{
		Reason:    entity.ReturnReason(req.Reason),
		Type:      entity.RMAType(req.Type),
		ItemCount: len(req.Items),
	}
	for _, item := range req.Items {
		if item.Category != "" {
			s.Categories = append(s.Categories, item.Category)
		}
		s.TotalValue += item.Price * float64(item.Quantity)
	}
	return s
}
