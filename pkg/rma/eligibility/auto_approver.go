package eligibility

import (
	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/pkg/rma/policy"
)

// AutoApprover decides whether a new request skips manual review.
type AutoApprover struct{}

func NewAutoApprover() *AutoApprover {
	return &AutoApprover{}
}

// Check reports whether every auto-approve condition of the policy matches.
// With automation enabled and no conditions the request is always approved.
// It never mutates anything.
func (a *AutoApprover) Check(req dto.CreateRMARequest, p *entity.RMAPolicy) (bool, error) {
	cfg := p.Automation.AutoApprove
	if !cfg.Enabled {
		return false, nil
	}
	conds, err := policy.CompileAll(cfg.Conditions)
	if err != nil {
		return false, err
	}
	return policy.MatchAll(conds, Subject(req)), nil
}
