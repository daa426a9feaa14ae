package events

import (
	"context"
	"time"

	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/pkg/logger"
	pkgEvents "rma-engine-be/pkg/events"
)

const (
	EventCreated            = "rma.created"
	EventApproved           = "rma.approved"
	EventRejected           = "rma.rejected"
	EventStatusChanged      = "rma.status.changed"
	EventInspectionComplete = "rma.inspection.complete"
	EventResolutionComplete = "rma.resolution.complete"
	EventLabelFailed        = "rma.label.failed"

	// AllSubjects matches every RMA event on the bus.
	AllSubjects = pkgEvents.SubjectPrefix + "rma.>"
)

func AllEventTypes() []string {
	return []string{
		EventCreated, EventApproved, EventRejected, EventStatusChanged,
		EventInspectionComplete, EventResolutionComplete, EventLabelFailed,
	}
}

// Publisher emits RMA domain events after a mutation has committed.
// Implementations never fail the caller.
type Publisher interface {
	PublishCreated(ctx context.Context, rma *entity.RMA, autoApproved bool)
	PublishApproved(ctx context.Context, rma *entity.RMA)
	PublishRejected(ctx context.Context, rma *entity.RMA, reason string)
	PublishStatusChanged(ctx context.Context, rma *entity.RMA, from, to entity.RMAStatus)
	PublishInspectionComplete(ctx context.Context, rma *entity.RMA)
	PublishResolutionComplete(ctx context.Context, rma *entity.RMA)
	PublishLabelFailed(ctx context.Context, rma *entity.RMA, cause string)
}

// BusPublisher publishes to any pkg/events.Publisher, logging and dropping errors.
type BusPublisher struct {
	bus    pkgEvents.Publisher
	logger logger.ILogger
	now    func() time.Time
}

func NewBusPublisher(bus pkgEvents.Publisher, logger logger.ILogger) *BusPublisher {
	return &BusPublisher{bus: bus, logger: logger, now: time.Now}
}

func basePayload(rma *entity.RMA) map[string]interface{} {
	return map[string]interface{}{
		"rma_id":         rma.ID.String(),
		"rma_number":     rma.RMANumber,
		"company_id":     rma.CompanyID.String(),
		"customer_id":    rma.CustomerID.String(),
		"customer_email": rma.CustomerEmail,
		"order_id":       rma.OrderID.String(),
		"status":         string(rma.Status),
		"type":           string(rma.Type),
		"reason":         string(rma.Reason),
		"total_value":    rma.TotalValue(),
		"version":        rma.Version,
		"entity_type":    "rma",
		"entity_id":      rma.ID.String(),
	}
}

func (p *BusPublisher) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p.bus == nil {
		return
	}

	evt := pkgEvents.BaseEvent{Type: eventType, Data: data, OccurredAt: p.now()}
	if err := p.bus.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish event", map[string]interface{}{
			"type":   eventType,
			"rma_id": data["rma_id"],
			"error":  err.Error(),
		})
	}
}

func (p *BusPublisher) PublishCreated(ctx context.Context, rma *entity.RMA, autoApproved bool) {
	data := basePayload(rma)
	data["auto_approved"] = autoApproved
	data["item_count"] = len(rma.Items)
	p.publish(ctx, EventCreated, data)
}

func (p *BusPublisher) PublishApproved(ctx context.Context, rma *entity.RMA) {
	p.publish(ctx, EventApproved, basePayload(rma))
}

func (p *BusPublisher) PublishRejected(ctx context.Context, rma *entity.RMA, reason string) {
	data := basePayload(rma)
	data["rejection_reason"] = reason
	p.publish(ctx, EventRejected, data)
}

func (p *BusPublisher) PublishStatusChanged(ctx context.Context, rma *entity.RMA, from, to entity.RMAStatus) {
	data := basePayload(rma)
	data["from_status"] = string(from)
	data["to_status"] = string(to)
	if rma.Shipping.TrackingNumber != "" {
		data["tracking_number"] = rma.Shipping.TrackingNumber
		data["tracking_url"] = rma.Shipping.TrackingURL
	}
	p.publish(ctx, EventStatusChanged, data)
}

func (p *BusPublisher) PublishInspectionComplete(ctx context.Context, rma *entity.RMA) {
	data := basePayload(rma)
	if rma.Inspection != nil {
		data["inspection_result"] = string(rma.Inspection.Result)
	}
	p.publish(ctx, EventInspectionComplete, data)
}

func (p *BusPublisher) PublishResolutionComplete(ctx context.Context, rma *entity.RMA) {
	data := basePayload(rma)
	data["resolution_type"] = string(rma.Resolution.Type)
	switch {
	case rma.Resolution.Refund != nil:
		data["amount"] = rma.Resolution.Refund.Amount
	case rma.Resolution.StoreCredit != nil:
		data["amount"] = rma.Resolution.StoreCredit.Amount
	}
	p.publish(ctx, EventResolutionComplete, data)
}

func (p *BusPublisher) PublishLabelFailed(ctx context.Context, rma *entity.RMA, cause string) {
	data := basePayload(rma)
	data["label_error"] = cause
	p.publish(ctx, EventLabelFailed, data)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishCreated(context.Context, *entity.RMA, bool)                                     {}
func (NopPublisher) PublishApproved(context.Context, *entity.RMA)                                          {}
func (NopPublisher) PublishRejected(context.Context, *entity.RMA, string)                                  {}
func (NopPublisher) PublishStatusChanged(context.Context, *entity.RMA, entity.RMAStatus, entity.RMAStatus) {}
func (NopPublisher) PublishInspectionComplete(context.Context, *entity.RMA)                                {}
func (NopPublisher) PublishResolutionComplete(context.Context, *entity.RMA)                                {}
func (NopPublisher) PublishLabelFailed(context.Context, *entity.RMA, string)                               {}
