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

// StartInspection moves a RECEIVED RMA to INSPECTING.
func (m *Manager) StartInspection(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, actorID string) (_ *entity.RMA, err error) {
	ctx, span := m.startSpan(ctx, "rma.start_inspection", id)
	defer func() { endSpan(span, err) }()

	actor := Actor{Type: entity.ActorAgent, ID: actorID}
	rma, err := m.apply(ctx, uow, companyID, id, func(rma *entity.RMA, now time.Time) error {
		if _, err := step(rma, EventStartInspection, now, actor, "inspection started", nil); err != nil {
			return err
		}
		rma.Inspection = &entity.InspectionSummary{StartedAt: now, InspectedBy: actorID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.publisher.PublishStatusChanged(ctx, rma, entity.RMAStatusReceived, entity.RMAStatusInspecting)
	return rma, nil
}

// RecordInspection grades the returned items and completes the inspection.
// A RECEIVED RMA passes through INSPECTING in the same write. When the policy
// processes refunds automatically and the inspection did not fail, a refund is
// issued right away.
func (m *Manager) RecordInspection(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, req dto.RecordInspectionRequest) (_ *entity.RMA, err error) {
	ctx, span := m.startSpan(ctx, "rma.record_inspection", id)
	defer func() { endSpan(span, err) }()

	actor := Actor{Type: entity.ActorAgent, ID: req.InspectedBy}
	var from entity.RMAStatus
	rma, err := m.apply(ctx, uow, companyID, id, func(rma *entity.RMA, now time.Time) error {
		from = rma.Status
		switch rma.Status {
		case entity.RMAStatusReceived:
			if _, err := step(rma, EventStartInspection, now, actor, "inspection started", nil); err != nil {
				return err
			}
		case entity.RMAStatusInspecting:
		default:
			return apperror.InvalidState("inspection can only be recorded for a RECEIVED or INSPECTING RMA, status is %s", rma.Status)
		}

		summary, err := m.inspector.Apply(rma, req, now)
		if err != nil {
			return err
		}
		rma.Inspection = summary

		meta := map[string]interface{}{"result": string(summary.Result)}
		_, err = step(rma, EventCompleteInspection, now, actor, req.Notes, meta)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("RMA", "Inspection recorded", map[string]interface{}{
		"rma_id": rma.ID.String(),
		"result": string(rma.Inspection.Result),
		"items":  len(req.Items),
	})
	m.publisher.PublishStatusChanged(ctx, rma, from, entity.RMAStatusInspectionComplete)
	m.publisher.PublishInspectionComplete(ctx, rma)

	if !snapshot(rma).Automation.AutoProcessRefund || rma.Inspection.Result == entity.InspectionFailed {
		return rma, nil
	}

	resolved, resolveErr := m.processResolution(ctx, uow, companyID, id, dto.ResolutionRequest{Type: string(entity.ResolutionRefund)}, SystemActor)
	if resolveErr != nil {
		m.logger.Warn("RMA", "Automatic refund not processed", map[string]interface{}{
			"rma_id": id.String(),
			"error":  resolveErr.Error(),
		})
		return m.load(ctx, uow, companyID, id)
	}
	return resolved, nil
}
