package lifecycle

import (
	"context"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/repository/unitofwork"
	"rma-engine-be/pkg/apperror"

	"github.com/google/uuid"
)

// ProcessResolution settles an inspected RMA with a refund, exchange or store
// credit. The RMA is PROCESSING_REFUND while the settlement runs; a failed
// settlement rolls it back to INSPECTION_COMPLETE so it can be retried.
func (m *Manager) ProcessResolution(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, req dto.ResolutionRequest) (_ *entity.RMA, err error) {
	ctx, span := m.startSpan(ctx, "rma.process_resolution", id)
	defer func() { endSpan(span, err) }()

	return m.processResolution(ctx, uow, companyID, id, req, Actor{Type: entity.ActorAgent, ID: req.ActorID})
}

func (m *Manager) processResolution(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, req dto.ResolutionRequest, actor Actor) (*entity.RMA, error) {
	var prepared *entity.Resolution
	rma, err := m.apply(ctx, uow, companyID, id, func(rma *entity.RMA, now time.Time) error {
		if rma.Status != entity.RMAStatusInspectionComplete {
			return apperror.InvalidState("a resolution can only be processed for an INSPECTION_COMPLETE RMA, status is %s", rma.Status)
		}
		res, err := m.resolver.Prepare(rma, req, now)
		if err != nil {
			return err
		}
		if _, err := step(rma, EventProcess, now, actor, "processing "+string(res.Type), nil); err != nil {
			return err
		}
		rma.Resolution = *res
		prepared = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.publisher.PublishStatusChanged(ctx, rma, entity.RMAStatusInspectionComplete, entity.RMAStatusProcessingRefund)

	settleErr := m.resolver.Settle(ctx, rma, prepared)
	if settleErr != nil {
		rolledBack, err := m.apply(ctx, uow, companyID, id, func(rma *entity.RMA, now time.Time) error {
			if _, err := step(rma, EventRollback, now, SystemActor, "settlement failed",
				map[string]interface{}{"error": settleErr.Error()}); err != nil {
				return err
			}
			rma.Resolution.Status = entity.ResolutionFailed
			rma.Resolution.FailureReason = settleErr.Error()
			return nil
		})
		if err != nil {
			return nil, err
		}

		m.logger.Error("RMA", "Resolution settlement failed", map[string]interface{}{
			"rma_id": id.String(),
			"type":   string(prepared.Type),
			"error":  settleErr.Error(),
		})
		m.publisher.PublishStatusChanged(ctx, rolledBack, entity.RMAStatusProcessingRefund, entity.RMAStatusInspectionComplete)
		return rolledBack, settleErr
	}

	completed, err := m.apply(ctx, uow, companyID, id, func(rma *entity.RMA, now time.Time) error {
		if _, err := step(rma, EventComplete, now, actor, string(prepared.Type)+" completed", nil); err != nil {
			return err
		}
		processed := now
		prepared.Status = entity.ResolutionCompleted
		prepared.ProcessedAt = &processed
		rma.Resolution = *prepared
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("RMA", "Resolution completed", map[string]interface{}{
		"rma_id": completed.ID.String(),
		"type":   string(completed.Resolution.Type),
	})
	m.publisher.PublishStatusChanged(ctx, completed, entity.RMAStatusProcessingRefund, entity.RMAStatusCompleted)
	m.publisher.PublishResolutionComplete(ctx, completed)
	return completed, nil
}
