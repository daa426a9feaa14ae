package lifecycle

import (
	"context"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/repository/unitofwork"
	"rma-engine-be/pkg/apperror"
	"rma-engine-be/pkg/rma/shipping"

	"github.com/google/uuid"
)

// Approve moves a REQUESTED RMA to APPROVED and, when the policy creates
// labels automatically, issues the return label as a second step. A label
// failure leaves the RMA APPROVED and is returned as DEPENDENCY_FAILURE
// together with the updated RMA.
func (m *Manager) Approve(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, req dto.ApproveRMARequest) (_ *entity.RMA, err error) {
	ctx, span := m.startSpan(ctx, "rma.approve", id)
	defer func() { endSpan(span, err) }()

	actor := Actor{Type: entity.ActorAgent, ID: req.ActorID}
	rma, err := m.apply(ctx, uow, companyID, id, func(rma *entity.RMA, now time.Time) error {
		_, err := step(rma, EventApprove, now, actor, req.Notes, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("RMA", "RMA approved", map[string]interface{}{
		"rma_id":   rma.ID.String(),
		"actor_id": actor.ID,
	})
	m.publisher.PublishApproved(ctx, rma)
	m.publisher.PublishStatusChanged(ctx, rma, entity.RMAStatusRequested, entity.RMAStatusApproved)

	if !snapshot(rma).Automation.AutoCreateLabel {
		return rma, nil
	}
	return m.issueLabel(ctx, uow, companyID, id, actor)
}

// RetryLabel re-runs label generation for an APPROVED RMA.
func (m *Manager) RetryLabel(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, actorID string) (_ *entity.RMA, err error) {
	ctx, span := m.startSpan(ctx, "rma.label", id)
	defer func() { endSpan(span, err) }()

	return m.issueLabel(ctx, uow, companyID, id, Actor{Type: entity.ActorAgent, ID: actorID})
}

func (m *Manager) issueLabel(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, actor Actor) (*entity.RMA, error) {
	current, err := m.load(ctx, uow, companyID, id)
	if err != nil {
		return nil, err
	}
	if current.Status != entity.RMAStatusApproved {
		return nil, apperror.InvalidState("a label can only be issued for an APPROVED RMA, status is %s", current.Status)
	}

	label, labelErr := m.labels.GenerateLabel(ctx, current, snapshot(current))
	if labelErr != nil {
		rma, err := m.apply(ctx, uow, companyID, id, func(rma *entity.RMA, now time.Time) error {
			if rma.Status != entity.RMAStatusApproved {
				return apperror.InvalidState("RMA left APPROVED while its label was requested")
			}
			rma.Shipping.LabelStatus = entity.LabelFailed
			rma.Shipping.LabelError = labelErr.Error()
			rma.UpdatedAt = now
			appendTimeline(rma, rma.Status, now, actor, "shipping label generation failed",
				map[string]interface{}{"error": labelErr.Error()})
			return nil
		})
		if err != nil {
			return nil, err
		}

		m.logger.Error("RMA", "Shipping label generation failed", map[string]interface{}{
			"rma_id": id.String(),
			"error":  labelErr.Error(),
		})
		m.publisher.PublishLabelFailed(ctx, rma, labelErr.Error())
		return rma, apperror.DependencyFailure("shipping label", labelErr)
	}

	rma, err := m.apply(ctx, uow, companyID, id, func(rma *entity.RMA, now time.Time) error {
		meta := map[string]interface{}{
			"carrier":         label.Carrier,
			"tracking_number": label.TrackingNumber,
		}
		if _, err := step(rma, EventLabel, now, actor, "return label sent", meta); err != nil {
			return err
		}
		sentAt := now
		rma.Shipping.Method = label.Method
		rma.Shipping.Carrier = label.Carrier
		rma.Shipping.TrackingNumber = label.TrackingNumber
		rma.Shipping.TrackingURL = label.TrackingURL
		rma.Shipping.LabelURL = label.LabelURL
		rma.Shipping.Prepaid = label.Prepaid
		rma.Shipping.ReturnAddress = label.ReturnAddress
		rma.Shipping.LabelStatus = entity.LabelCreated
		rma.Shipping.LabelError = ""
		rma.Shipping.LabelSentAt = &sentAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("RMA", "Return label issued", map[string]interface{}{
		"rma_id":          rma.ID.String(),
		"carrier":         rma.Shipping.Carrier,
		"tracking_number": rma.Shipping.TrackingNumber,
	})
	m.publisher.PublishStatusChanged(ctx, rma, entity.RMAStatusApproved, entity.RMAStatusLabelSent)
	return rma, nil
}

// Reject closes a REQUESTED RMA.
func (m *Manager) Reject(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, req dto.RejectRMARequest) (_ *entity.RMA, err error) {
	ctx, span := m.startSpan(ctx, "rma.reject", id)
	defer func() { endSpan(span, err) }()

	actor := Actor{Type: entity.ActorAgent, ID: req.ActorID}
	rma, err := m.apply(ctx, uow, companyID, id, func(rma *entity.RMA, now time.Time) error {
		_, err := step(rma, EventReject, now, actor, req.Reason, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("RMA", "RMA rejected", map[string]interface{}{
		"rma_id": rma.ID.String(),
		"reason": req.Reason,
	})
	m.publisher.PublishRejected(ctx, rma, req.Reason)
	m.publisher.PublishStatusChanged(ctx, rma, entity.RMAStatusRequested, entity.RMAStatusRejected)
	return rma, nil
}

// UpdateStatus applies a carrier or warehouse driven change. Only pairs in the
// transition table whose event has no dedicated operation are accepted.
func (m *Manager) UpdateStatus(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, req dto.UpdateRMAStatusRequest) (_ *entity.RMA, err error) {
	ctx, span := m.startSpan(ctx, "rma.update_status", id)
	defer func() { endSpan(span, err) }()

	to := entity.RMAStatus(req.Status)
	if !to.Valid() {
		return nil, apperror.InvalidInput("status", "unknown status "+req.Status)
	}
	actor := ActorFrom(req.ActorType, req.ActorID)

	var from entity.RMAStatus
	rma, err := m.apply(ctx, uow, companyID, id, func(rma *entity.RMA, now time.Time) error {
		event, err := EventFor(rma.Status, to)
		if err != nil {
			return err
		}
		if !manualEvents[event] {
			return apperror.InvalidState("moving from %s to %s requires the %s operation", rma.Status, to, event)
		}

		if req.TrackingNumber != "" {
			rma.Shipping.TrackingNumber = req.TrackingNumber
			for _, c := range snapshot(rma).ShippingConfig.Carriers {
				if c.Name == rma.Shipping.Carrier {
					rma.Shipping.TrackingURL = shipping.TrackingURL(c, req.TrackingNumber)
				}
			}
		}
		switch event {
		case EventStartInspection:
			if rma.Inspection == nil {
				rma.Inspection = &entity.InspectionSummary{StartedAt: now, InspectedBy: actor.ID}
			}
		case EventComplete:
			processed := now
			rma.Resolution.Status = entity.ResolutionCompleted
			rma.Resolution.ProcessedAt = &processed
		}

		from, err = step(rma, event, now, actor, req.Notes, req.Metadata)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("RMA", "RMA status updated", map[string]interface{}{
		"rma_id": rma.ID.String(),
		"from":   string(from),
		"to":     string(to),
	})
	m.publisher.PublishStatusChanged(ctx, rma, from, to)
	if to == entity.RMAStatusCompleted {
		m.publisher.PublishResolutionComplete(ctx, rma)
	}
	return rma, nil
}

// Cancel closes any active RMA.
func (m *Manager) Cancel(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, req dto.CancelRMARequest) (_ *entity.RMA, err error) {
	ctx, span := m.startSpan(ctx, "rma.cancel", id)
	defer func() { endSpan(span, err) }()

	actor := ActorFrom(req.ActorType, req.ActorID)
	var from entity.RMAStatus
	rma, err := m.apply(ctx, uow, companyID, id, func(rma *entity.RMA, now time.Time) error {
		var err error
		from, err = step(rma, EventCancel, now, actor, req.Reason, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("RMA", "RMA cancelled", map[string]interface{}{
		"rma_id": rma.ID.String(),
		"from":   string(from),
	})
	m.publisher.PublishStatusChanged(ctx, rma, from, entity.RMAStatusCancelled)
	return rma, nil
}
