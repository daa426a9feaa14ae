package lifecycle

import (
	"context"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/repository/contract"
	"rma-engine-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const sweepBatchSize = 200

// activeStatuses are the states an RMA can expire from.
func activeStatuses() []entity.RMAStatus {
	var out []entity.RMAStatus
	for _, s := range entity.AllRMAStatuses {
		if !s.IsTerminal() {
			out = append(out, s)
		}
	}
	return out
}

type sweepTarget struct {
	id        uuid.UUID
	companyID uuid.UUID
}

func (m *Manager) collect(ctx context.Context, uow unitofwork.UnitOfWork, filter contract.RMAFilter, keep func(rma *entity.RMA) bool) ([]sweepTarget, error) {
	var targets []sweepTarget
	skipped, err := uow.RMARepository().Stream(ctx, filter, sweepBatchSize, func(batch []*entity.RMA) error {
		for _, rma := range batch {
			if keep(rma) {
				targets = append(targets, sweepTarget{id: rma.ID, companyID: rma.CompanyID})
			}
		}
		return nil
	})
	if skipped > 0 {
		m.logger.Warn("SWEEPER", "Skipped unreadable RMA records", map[string]interface{}{
			"skipped": skipped,
		})
	}
	return targets, err
}

// ExpireOverdue moves every active RMA past its expiry to EXPIRED. A failure
// on one RMA is logged and the sweep continues.
func (m *Manager) ExpireOverdue(ctx context.Context, uow unitofwork.UnitOfWork) (int, error) {
	now := m.now()
	filter := contract.RMAFilter{Statuses: activeStatuses(), ExpiresBefore: &now}
	targets, err := m.collect(ctx, uow, filter, func(*entity.RMA) bool { return true })
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		var from entity.RMAStatus
		rma, err := m.apply(ctx, uow, t.companyID, t.id, func(rma *entity.RMA, now time.Time) error {
			var err error
			from, err = step(rma, EventExpire, now, SystemActor, "expired without activity", nil)
			return err
		})
		if err != nil {
			m.logger.Warn("SWEEPER", "Failed to expire RMA", map[string]interface{}{
				"rma_id": t.id.String(),
				"error":  err.Error(),
			})
			continue
		}
		expired++
		m.publisher.PublishStatusChanged(ctx, rma, from, entity.RMAStatusExpired)
	}

	m.logger.Info("SWEEPER", "Expiry sweep finished", map[string]interface{}{
		"candidates": len(targets),
		"expired":    expired,
	})
	return expired, nil
}

// AutoCloseIdle refunds RMAs that have waited in INSPECTION_COMPLETE longer
// than their policy's auto-close period.
func (m *Manager) AutoCloseIdle(ctx context.Context, uow unitofwork.UnitOfWork) (int, error) {
	now := m.now()
	filter := contract.RMAFilter{Statuses: []entity.RMAStatus{entity.RMAStatusInspectionComplete}}
	targets, err := m.collect(ctx, uow, filter, func(rma *entity.RMA) bool {
		days := snapshot(rma).Automation.AutoCloseAfterDays
		return days > 0 && rma.UpdatedAt.AddDate(0, 0, days).Before(now)
	})
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return closed, err
		}
		req := dto.ResolutionRequest{Type: string(entity.ResolutionRefund)}
		if _, err := m.processResolution(ctx, uow, t.companyID, t.id, req, SystemActor); err != nil {
			m.logger.Warn("SWEEPER", "Failed to auto-close RMA", map[string]interface{}{
				"rma_id": t.id.String(),
				"error":  err.Error(),
			})
			continue
		}
		closed++
	}

	m.logger.Info("SWEEPER", "Auto-close sweep finished", map[string]interface{}{
		"candidates": len(targets),
		"closed":     closed,
	})
	return closed, nil
}
