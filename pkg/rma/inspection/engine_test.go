package inspection

import (
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

func newRMA(n int) *entity.RMA {
	companyID := uuid.New()
	rma := &entity.RMA{
		ID:             uuid.New(),
		CompanyID:      companyID,
		Type:           entity.RMATypeReturn,
		Reason:         entity.ReasonNoLongerNeeded,
		Status:         entity.RMAStatusReceived,
		PolicySnapshot: policy.DefaultPolicy(companyID),
	}
	for i := 0; i < n; i++ {
		rma.Items = append(rma.Items, entity.RMAItem{
			ID:          uuid.New(),
			ProductID:   "prod",
			ProductName: "Lamp",
			Category:    "home",
			Price:       40,
			Quantity:    1,
		})
	}
	return rma
}

func pct(v float64) *float64 { return &v }

func TestApply_ConditionTables(t *testing.T) {
	tests := []struct {
		condition entity.ItemCondition
		pct       float64
		action    entity.DispositionAction
	}{
		{entity.ConditionNewUnopened, 100, entity.DispositionRestock},
		{entity.ConditionNewOpened, 100, entity.DispositionRestock},
		{entity.ConditionLikeNew, 95, entity.DispositionRefurbish},
		{entity.ConditionGood, 85, entity.DispositionRefurbish},
		{entity.ConditionFair, 70, entity.DispositionLiquidate},
		{entity.ConditionPoor, 50, entity.DispositionDonate},
		{entity.ConditionDamaged, 0, entity.DispositionDestroy},
		{entity.ConditionDefective, 100, entity.DispositionReturnToVendor},
	}

	for _, tt := range tests {
		t.Run(string(tt.condition), func(t *testing.T) {
			rma := newRMA(1)
			req := dto.RecordInspectionRequest{Items: []dto.ItemInspectionRequest{
				{ItemID: rma.Items[0].ID, Condition: string(tt.condition), Result: "PASSED"},
			}}

			_, err := NewEngine().Apply(rma, req, time.Now())

			require.NoError(t, err)
			item := rma.Items[0]
			require.NotNil(t, item.Inspection)
			require.NotNil(t, item.Disposition)
			assert.Equal(t, tt.pct, item.Inspection.RefundPercentage)
			assert.Equal(t, tt.action, item.Disposition.Action)
		})
	}
}

func TestApply_DamagedIgnoresResultAndOverride(t *testing.T) {
	for _, result := range []string{"PASSED", "FAILED", "PARTIAL", ""} {
		rma := newRMA(1)
		req := dto.RecordInspectionRequest{Items: []dto.ItemInspectionRequest{
			{ItemID: rma.Items[0].ID, Condition: "DAMAGED", Result: result, RefundPercentage: pct(60)},
		}}

		_, err := NewEngine().Apply(rma, req, time.Now())

		require.NoError(t, err)
		assert.Zero(t, rma.Items[0].Inspection.RefundPercentage, result)
		assert.Equal(t, entity.DispositionDestroy, rma.Items[0].Disposition.Action, result)
	}
}

func TestApply_ExplicitPercentageOverridesTable(t *testing.T) {
	rma := newRMA(1)
	req := dto.RecordInspectionRequest{Items: []dto.ItemInspectionRequest{
		{ItemID: rma.Items[0].ID, Condition: "GOOD", Result: "PASSED", RefundPercentage: pct(90)},
	}}

	_, err := NewEngine().Apply(rma, req, time.Now())

	require.NoError(t, err)
	assert.Equal(t, 90.0, rma.Items[0].Inspection.RefundPercentage)
}

func TestApply_OverallResult(t *testing.T) {
	tests := []struct {
		name    string
		results []string
		want    entity.InspectionResult
	}{
		{"all passed", []string{"PASSED", "PASSED"}, entity.InspectionPassed},
		{"all failed", []string{"FAILED", "FAILED"}, entity.InspectionFailed},
		{"mixed", []string{"PASSED", "FAILED"}, entity.InspectionPartial},
		{"partial items are not failures", []string{"PARTIAL", "PASSED"}, entity.InspectionPassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rma := newRMA(len(tt.results))
			var req dto.RecordInspectionRequest
			for i, r := range tt.results {
				req.Items = append(req.Items, dto.ItemInspectionRequest{ItemID: rma.Items[i].ID, Condition: "GOOD", Result: r})
			}

			summary, err := NewEngine().Apply(rma, req, time.Now())

			require.NoError(t, err)
			assert.Equal(t, tt.want, summary.Result)
			for i, r := range tt.results {
				assert.Equal(t, r != "FAILED", rma.Items[i].Inspection.RefundEligible)
			}
		})
	}
}

func TestApply_AutoRulesOnlyFillMissingResults(t *testing.T) {
	rma := newRMA(2)
	rma.PolicySnapshot.InspectionConfig.AutoFail = []entity.PolicyCondition{
		policy.NewCondition(policy.FieldCategory, policy.OpIn, []string{"home"}),
	}
	req := dto.RecordInspectionRequest{Items: []dto.ItemInspectionRequest{
		{ItemID: rma.Items[0].ID, Condition: "GOOD"},
		{ItemID: rma.Items[1].ID, Condition: "GOOD", Result: "PASSED"},
	}}

	summary, err := NewEngine().Apply(rma, req, time.Now())

	require.NoError(t, err)
	assert.Equal(t, entity.InspectionFailed, rma.Items[0].Inspection.Result)
	assert.Equal(t, entity.InspectionPassed, rma.Items[1].Inspection.Result)
	assert.Equal(t, entity.InspectionPartial, summary.Result)
}

func TestApply_RejectsBadInputWithoutMutation(t *testing.T) {
	rma := newRMA(2)
	req := dto.RecordInspectionRequest{Items: []dto.ItemInspectionRequest{
		{ItemID: rma.Items[0].ID, Condition: "GOOD", Result: "PASSED"},
		{ItemID: uuid.New(), Condition: "GOOD", Result: "PASSED"},
	}}

	_, err := NewEngine().Apply(rma, req, time.Now())

	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Nil(t, rma.Items[0].Inspection)

	req.Items[1] = dto.ItemInspectionRequest{ItemID: rma.Items[1].ID, Condition: "SCRATCHED"}
	_, err = NewEngine().Apply(rma, req, time.Now())
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Nil(t, rma.Items[0].Inspection)
}

func TestApply_KeepsStartTime(t *testing.T) {
	rma := newRMA(1)
	started := time.Now().Add(-time.Hour)
	rma.Inspection = &entity.InspectionSummary{StartedAt: started}
	req := dto.RecordInspectionRequest{Items: []dto.ItemInspectionRequest{
		{ItemID: rma.Items[0].ID, Condition: "LIKE_NEW", Result: "PASSED"},
	}}

	summary, err := NewEngine().Apply(rma, req, time.Now())

	require.NoError(t, err)
	assert.Equal(t, started, summary.StartedAt)
	require.NotNil(t, summary.CompletedAt)
}
