package inspection

import (
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/pkg/apperror"
	"rma-engine-be/pkg/rma/policy"

	"github.com/google/uuid"
)

// Engine turns per-item inspection input into stored outcomes and dispositions.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

type itemInput struct {
	item      *entity.RMAItem
	condition entity.ItemCondition
	result    entity.InspectionResult
	req       dto.ItemInspectionRequest
}

// Apply records the submitted results on rma's items and returns the overall
// summary. All input is checked before any item is touched.
func (e *Engine) Apply(rma *entity.RMA, req dto.RecordInspectionRequest, now time.Time) (*entity.InspectionSummary, error) {
	if len(req.Items) == 0 {
		return nil, apperror.InvalidInput("items", "at least one item result is required")
	}

	p := rma.PolicySnapshot
	if p == nil {
		p = policy.DefaultPolicy(rma.CompanyID)
	}
	autoPass, err := policy.CompileAll(p.InspectionConfig.AutoPass)
	if err != nil {
		return nil, err
	}
	autoFail, err := policy.CompileAll(p.InspectionConfig.AutoFail)
	if err != nil {
		return nil, err
	}

	inputs := make([]itemInput, 0, len(req.Items))
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, r := range req.Items {
		item := rma.FindItem(r.ItemID)
		if item == nil {
			return nil, apperror.InvalidInput("items", "item "+r.ItemID.String()+" is not part of this RMA")
		}
		if seen[r.ItemID] {
			return nil, apperror.InvalidInput("items", "item "+r.ItemID.String()+" submitted twice")
		}
		seen[r.ItemID] = true

		cond := entity.ItemCondition(r.Condition)
		if _, known := policy.DefaultRefundPercentages[cond]; !known {
			return nil, apperror.InvalidInput("condition", "unknown condition "+r.Condition)
		}

		result := entity.InspectionResult(r.Result)
		switch result {
		case entity.InspectionPassed, entity.InspectionFailed, entity.InspectionPartial:
		case "":
			result = decideResult(cond, policy.ItemSubject(rma, item), autoPass, autoFail)
		default:
			return nil, apperror.InvalidInput("result", "unknown result "+r.Result)
		}
		inputs = append(inputs, itemInput{item: item, condition: cond, result: result, req: r})
	}

	failed := 0
	for _, in := range inputs {
		pct := policy.DefaultRefundPercentages[in.condition]
		if in.req.RefundPercentage != nil {
			pct = *in.req.RefundPercentage
		}
		action, ok := p.InspectionConfig.DispositionRules[in.condition]
		if !ok {
			action = policy.DefaultDispositions[in.condition]
		}
		if in.condition == entity.ConditionDamaged {
			pct = 0
			action = entity.DispositionDestroy
		}

		in.item.Inspection = &entity.ItemInspection{
			Condition:        in.condition,
			Result:           in.result,
			RefundEligible:   in.result != entity.InspectionFailed,
			RefundPercentage: pct,
			Photos:           in.req.Photos,
			Notes:            in.req.Notes,
			InspectedBy:      req.InspectedBy,
			InspectedAt:      now,
		}
		in.item.Disposition = &entity.Disposition{Action: action, DecidedAt: now}

		if in.result == entity.InspectionFailed {
			failed++
		}
	}

	summary := &entity.InspectionSummary{
		Result:      Overall(failed, len(inputs)),
		InspectedBy: req.InspectedBy,
		Notes:       req.Notes,
		StartedAt:   now,
		CompletedAt: &now,
	}
	if rma.Inspection != nil && !rma.Inspection.StartedAt.IsZero() {
		summary.StartedAt = rma.Inspection.StartedAt
	}
	return summary, nil
}

// decideResult fills in a missing result. Auto-fail rules win over auto-pass;
// without a matching rule a damaged item fails and anything else passes.
func decideResult(cond entity.ItemCondition, s policy.Subject, autoPass, autoFail []policy.Condition) entity.InspectionResult {
	if len(autoFail) > 0 && policy.MatchAll(autoFail, s) {
		return entity.InspectionFailed
	}
	if len(autoPass) > 0 && policy.MatchAll(autoPass, s) {
		return entity.InspectionPassed
	}
	if cond == entity.ConditionDamaged {
		return entity.InspectionFailed
	}
	return entity.InspectionPassed
}

// Overall is FAILED when every result failed, PASSED when none did, PARTIAL otherwise.
func Overall(failed, total int) entity.InspectionResult {
	switch {
	case total > 0 && failed == total:
		return entity.InspectionFailed
	case failed == 0:
		return entity.InspectionPassed
	default:
		return entity.InspectionPartial
	}
}
