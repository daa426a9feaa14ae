package resolution

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

type failingGateway struct{ LocalGateway }

func (failingGateway) Refund(ctx context.Context, rma *entity.RMA, refund entity.RefundDetails) (string, error) {
	return "", errors.New("card network timeout")
}

func inspectedRMA(reason entity.ReturnReason, pcts ...float64) *entity.RMA {
	companyID := uuid.New()
	rma := &entity.RMA{
		ID:             uuid.New(),
		CompanyID:      companyID,
		Reason:         reason,
		Status:         entity.RMAStatusInspectionComplete,
		PolicySnapshot: policy.DefaultPolicy(companyID),
	}
	for _, p := range pcts {
		rma.Items = append(rma.Items, entity.RMAItem{
			ID:        uuid.New(),
			ProductID: "sku-1",
			Price:     100,
			Quantity:  1,
			Inspection: &entity.ItemInspection{
				Result:           entity.InspectionPassed,
				RefundEligible:   true,
				RefundPercentage: p,
			},
		})
	}
	return rma
}

func amount(v float64) *float64 { return &v }

func TestSuggestRefund(t *testing.T) {
	t.Run("restocking fee for customer reasons", func(t *testing.T) {
		got, fee := SuggestRefund(inspectedRMA(entity.ReasonNoLongerNeeded, 85))
		assert.Equal(t, 72.25, got)
		assert.Equal(t, 12.75, fee)
	})

	t.Run("no fee for merchant fault", func(t *testing.T) {
		got, fee := SuggestRefund(inspectedRMA(entity.ReasonDefective, 100, 50))
		assert.Equal(t, 150.0, got)
		assert.Zero(t, fee)
	})

	t.Run("ineligible items excluded", func(t *testing.T) {
		rma := inspectedRMA(entity.ReasonDefective, 100, 100)
		rma.Items[1].Inspection.RefundEligible = false
		got, _ := SuggestRefund(rma)
		assert.Equal(t, 100.0, got)
	})
}

func TestPrepare_Refund(t *testing.T) {
	p := NewProcessor(NewLocalGateway())
	rma := inspectedRMA(entity.ReasonDefective, 100)

	res, err := p.Prepare(rma, dto.ResolutionRequest{Type: "refund", Amount: amount(42)}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, entity.ResolutionProcessing, res.Status)
	assert.Equal(t, 42.0, res.Refund.Amount)
	assert.Equal(t, policy.RefundMethodOriginalPayment, res.Refund.Method)

	_, err = p.Prepare(rma, dto.ResolutionRequest{Type: "refund", Method: "cash"}, time.Now())
	assert.ErrorIs(t, err, apperror.ErrResolutionNotAllowed)
}

func TestPrepare_Gating(t *testing.T) {
	p := NewProcessor(NewLocalGateway())

	tests := []struct {
		name   string
		req    dto.ResolutionRequest
		mutate func(cfg *entity.ResolutionConfig)
	}{
		{"refund disabled", dto.ResolutionRequest{Type: "refund"}, func(c *entity.ResolutionConfig) { c.RefundRules.Enabled = false }},
		{"exchange disabled", dto.ResolutionRequest{Type: "exchange", Items: []dto.ExchangeItemRequest{{ProductID: "sku-1", Quantity: 1}}}, func(c *entity.ResolutionConfig) { c.ExchangeRules.Enabled = false }},
		{"store credit disabled", dto.ResolutionRequest{Type: "store_credit"}, func(c *entity.ResolutionConfig) { c.StoreCreditRules.Enabled = false }},
		{"different item not allowed", dto.ResolutionRequest{Type: "exchange", Items: []dto.ExchangeItemRequest{{ProductID: "sku-9", Quantity: 1}}}, func(c *entity.ResolutionConfig) { c.ExchangeRules.AllowDifferentItem = false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rma := inspectedRMA(entity.ReasonDefective, 100)
			tt.mutate(&rma.PolicySnapshot.ResolutionConfig)
			_, err := p.Prepare(rma, tt.req, time.Now())
			assert.ErrorIs(t, err, apperror.ErrResolutionNotAllowed)
		})
	}
}

func TestPrepare_Exchange(t *testing.T) {
	p := NewProcessor(NewLocalGateway())
	rma := inspectedRMA(entity.ReasonSizeFit, 100)

	res, err := p.Prepare(rma, dto.ResolutionRequest{
		Type:  "exchange",
		Items: []dto.ExchangeItemRequest{{ProductID: "sku-2", Name: "Larger size", Quantity: 1, Price: 130}},
	}, time.Now())

	require.NoError(t, err)
	require.Len(t, res.Exchange.Items, 1)
	assert.Equal(t, 30.0, res.Exchange.AdditionalPayment)

	waived := 0.0
	res, err = p.Prepare(rma, dto.ResolutionRequest{
		Type:              "exchange",
		Items:             []dto.ExchangeItemRequest{{ProductID: "sku-2", Name: "Larger size", Quantity: 1, Price: 130}},
		AdditionalPayment: &waived,
	}, time.Now())
	require.NoError(t, err)
	assert.Zero(t, res.Exchange.AdditionalPayment, "explicit zero is kept")

	_, err = p.Prepare(rma, dto.ResolutionRequest{Type: "exchange"}, time.Now())
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestPrepare_StoreCredit(t *testing.T) {
	p := NewProcessor(NewLocalGateway())
	rma := inspectedRMA(entity.ReasonDefective, 100)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	res, err := p.Prepare(rma, dto.ResolutionRequest{Type: "store_credit"}, now)

	require.NoError(t, err)
	assert.Equal(t, 110.0, res.StoreCredit.Amount)
	require.NotNil(t, res.StoreCredit.ExpiresAt)
	assert.Equal(t, now.AddDate(0, 0, 365), *res.StoreCredit.ExpiresAt)
}

func TestSettle(t *testing.T) {
	rma := inspectedRMA(entity.ReasonDefective, 100)

	ok := NewProcessor(NewLocalGateway())
	res, err := ok.Prepare(rma, dto.ResolutionRequest{Type: "refund"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, ok.Settle(context.Background(), rma, res))
	assert.NotEmpty(t, res.Refund.TransactionRef)

	bad := NewProcessor(failingGateway{})
	res, err = bad.Prepare(rma, dto.ResolutionRequest{Type: "refund"}, time.Now())
	require.NoError(t, err)
	err = bad.Settle(context.Background(), rma, res)
	assert.ErrorIs(t, err, apperror.ErrDependencyFailure)
}
