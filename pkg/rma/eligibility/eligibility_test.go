package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/pkg/apperror"
	"rma-engine-be/pkg/rma/policy"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	order *entity.Order
	err   error
}

func (f fakeOrders) FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, f.err
	}
	return f.order, f.err
}

func request(reason string, n int) dto.CreateRMARequest {
	req := dto.CreateRMARequest{
		CompanyID:  uuid.New(),
		CustomerID: uuid.New(),
		OrderID:    uuid.New(),
		Type:       string(entity.RMATypeReturn),
		Reason:     reason,
	}
	for i := 0; i < n; i++ {
		req.Items = append(req.Items, dto.CreateRMAItemRequest{
			OrderItemID: uuid.NewString(),
			ProductID:   "prod-1",
			ProductName: "Trail Shoe",
			Category:    "shoes",
			Price:       50,
			Quantity:    1,
		})
	}
	return req
}

func TestValidate_CheckOrder(t *testing.T) {
	v := NewValidator()
	ctx := context.Background()

	tests := []struct {
		name   string
		req    dto.CreateRMARequest
		mutate func(p *entity.RMAPolicy)
		want   error
	}{
		{"valid", request("NO_LONGER_NEEDED", 1), nil, nil},
		{"max items allowed", request("NO_LONGER_NEEDED", 10), nil, nil},
		{"disabled policy wins over empty list", request("OTHER", 0), func(p *entity.RMAPolicy) { p.Enabled = false }, apperror.ErrPolicyDisabled},
		{"empty items", request("OTHER", 0), nil, apperror.ErrEmptyItemList},
		{"too many items", request("OTHER", 11), nil, apperror.ErrTooManyItems},
		{"disabled reason", request("BETTER_PRICE_FOUND", 1), func(p *entity.RMAPolicy) {
			rule := p.ReasonRules[entity.ReasonBetterPrice]
			rule.Enabled = false
			p.ReasonRules[entity.ReasonBetterPrice] = rule
		}, apperror.ErrReasonNotAllowed},
		{"proof required", request("DEFECTIVE", 1), func(p *entity.RMAPolicy) {
			rule := p.ReasonRules[entity.ReasonDefective]
			rule.RequiresProof = true
			p.ReasonRules[entity.ReasonDefective] = rule
		}, apperror.ErrPhotosRequired},
		{"photos required globally", request("OTHER", 1), func(p *entity.RMAPolicy) { p.GeneralRules.RequirePhotos = true }, apperror.ErrPhotosRequired},
		{"reason required", request("", 1), nil, apperror.ErrReasonRequired},
		{"reason optional", request("", 1), func(p *entity.RMAPolicy) { p.GeneralRules.RequireReason = false }, nil},
		{"excluded category", request("OTHER", 1), func(p *entity.RMAPolicy) { p.GeneralRules.ExcludedCategories = []string{"shoes"} }, apperror.ErrItemNotReturnable},
		{"final sale category", request("OTHER", 1), func(p *entity.RMAPolicy) { p.GeneralRules.FinalSaleCategories = []string{"shoes"} }, apperror.ErrItemNotReturnable},
		{"excluded product", request("OTHER", 1), func(p *entity.RMAPolicy) { p.GeneralRules.ExcludedProducts = []string{"prod-1"} }, apperror.ErrItemNotReturnable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := policy.DefaultPolicy(tt.req.CompanyID)
			if tt.mutate != nil {
				tt.mutate(p)
			}
			err := v.Validate(ctx, tt.req, p, nil)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, apperror.KindPolicyViolation, apperror.KindOf(err))
		})
	}
}

func TestValidate_OrderChecks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := &Validator{now: func() time.Time { return now }}
	ctx := context.Background()

	req := request("NO_LONGER_NEEDED", 1)
	p := policy.DefaultPolicy(req.CompanyID)
	delivered := now.AddDate(0, 0, -10)
	order := &entity.Order{
		ID:          req.OrderID,
		CompanyID:   req.CompanyID,
		CustomerID:  req.CustomerID,
		PlacedAt:    now.AddDate(0, 0, -14),
		DeliveredAt: &delivered,
		ItemIDs:     []string{req.Items[0].OrderItemID},
	}

	t.Run("inside window", func(t *testing.T) {
		assert.NoError(t, v.Validate(ctx, req, p, fakeOrders{order: order}))
	})

	t.Run("missing order", func(t *testing.T) {
		err := v.Validate(ctx, req, p, fakeOrders{})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("lookup failure", func(t *testing.T) {
		err := v.Validate(ctx, req, p, fakeOrders{err: errors.New("db down")})
		assert.ErrorIs(t, err, apperror.ErrDependencyFailure)
	})

	t.Run("foreign item", func(t *testing.T) {
		other := request("NO_LONGER_NEEDED", 1)
		other.CompanyID, other.CustomerID, other.OrderID = req.CompanyID, req.CustomerID, req.OrderID
		err := v.Validate(ctx, other, p, fakeOrders{order: order})
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	})

	t.Run("outside return window", func(t *testing.T) {
		old := *order
		longAgo := now.AddDate(0, 0, -45)
		old.DeliveredAt = &longAgo
		err := v.Validate(ctx, req, p, fakeOrders{order: &old})
		assert.ErrorIs(t, err, apperror.ErrOutsideReturnWindow)
	})

	t.Run("warranty uses warranty window", func(t *testing.T) {
		old := *order
		longAgo := now.AddDate(0, 0, -45)
		old.DeliveredAt = &longAgo
		warranty := req
		warranty.Type = string(entity.RMATypeWarranty)
		assert.NoError(t, v.Validate(ctx, warranty, p, fakeOrders{order: &old}))
	})
}

func TestAutoApprover_Check(t *testing.T) {
	a := NewAutoApprover()

	tests := []struct {
		name   string
		reason string
		mutate func(p *entity.RMAPolicy)
		want   bool
	}{
		{"defective is auto approved", "DEFECTIVE", nil, true},
		{"wrong item is auto approved", "WRONG_ITEM", nil, true},
		{"no longer needed needs review", "NO_LONGER_NEEDED", nil, false},
		{"automation disabled", "DEFECTIVE", func(p *entity.RMAPolicy) { p.Automation.AutoApprove.Enabled = false }, false},
		{"empty conditions approve everything", "NO_LONGER_NEEDED", func(p *entity.RMAPolicy) { p.Automation.AutoApprove.Conditions = nil }, true},
		{"all conditions must match", "DEFECTIVE", func(p *entity.RMAPolicy) {
			p.Automation.AutoApprove.Conditions = append(p.Automation.AutoApprove.Conditions,
				policy.NewCondition(policy.FieldTotalValue, policy.OpLT, 20))
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(tt.reason, 1)
			p := policy.DefaultPolicy(req.CompanyID)
			if tt.mutate != nil {
				tt.mutate(p)
			}
			got, err := a.Check(req, p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAutoApprover_RejectsUnknownField(t *testing.T) {
	req := request("DEFECTIVE", 1)
	p := policy.DefaultPolicy(req.CompanyID)
	p.Automation.AutoApprove.Conditions = []entity.PolicyCondition{policy.NewCondition("vip", policy.OpEquals, true)}

	_, err := NewAutoApprover().Check(req, p)
	assert.ErrorIs(t, err, apperror.ErrInvalidPolicy)
}
