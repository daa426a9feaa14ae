package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/pkg/logger"
	"rma-engine-be/internal/pkg/mailer"
	"rma-engine-be/internal/repository/unitofwork"
	pkgEvents "rma-engine-be/pkg/events"
	rmaEvents "rma-engine-be/pkg/rma/events"
	"rma-engine-be/pkg/rma/policy"

	"github.com/google/uuid"
)

const durableName = "rma-notifications"

// LiveSink receives events for the per-company live feed. websocket.Hub implements it.
type LiveSink interface {
	PublishCompany(ctx context.Context, companyID uuid.UUID, event dto.RMALiveEvent)
}

// Dispatcher turns RMA domain events into e-mails and live feed pushes,
// following the notification settings of the company policy.
type Dispatcher struct {
	uowFactory unitofwork.RepositoryFactory
	policies   *policy.Store
	mailer     mailer.IEmailService
	live       LiveSink
	logger     logger.ILogger
}

// NewDispatcher creates a dispatcher. mailer and live may be nil to disable
// that channel.
func NewDispatcher(uowFactory unitofwork.RepositoryFactory, policies *policy.Store, mailer mailer.IEmailService, live LiveSink, logger logger.ILogger) *Dispatcher {
	return &Dispatcher{
		uowFactory: uowFactory,
		policies:   policies,
		mailer:     mailer,
		live:       live,
		logger:     logger,
	}
}

// Start subscribes the dispatcher to every RMA event.
func (d *Dispatcher) Start(sub pkgEvents.Subscriber) error {
	return sub.Subscribe(rmaEvents.AllSubjects, durableName, d.Handle)
}

func str(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func num(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Handle delivers one event. Delivery failures are logged and never
// returned, so the bus does not redeliver notifications.
func (d *Dispatcher) Handle(ctx context.Context, event pkgEvents.Event) error {
	data := event.Payload()
	companyID, err := uuid.Parse(str(data, "company_id"))
	if err != nil {
		d.logger.Warn("NOTIFY", "Event without company, ignored", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	uow := d.uowFactory.NewUnitOfWork(ctx)
	p, err := d.policies.GetPolicy(ctx, uow, companyID)
	if err != nil {
		d.logger.Error("NOTIFY", "Policy unavailable, notification skipped", map[string]interface{}{
			"company_id": companyID.String(),
			"type":       event.EventType(),
			"error":      err.Error(),
		})
		return nil
	}
	prefs := p.Notifications

	if contains(prefs.Customer.Events, event.EventType()) && contains(prefs.Customer.Channels, policy.ChannelEmail) {
		d.sendCustomerEmail(event, data)
	}
	if d.internalAlert(event, data, prefs.Internal) && contains(prefs.Internal.Channels, policy.ChannelEmail) {
		d.sendInternalEmail(event, data, prefs.Internal.Recipients)
	}
	if contains(prefs.Customer.Channels, policy.ChannelWeb) || contains(prefs.Internal.Channels, policy.ChannelWeb) {
		d.pushLive(ctx, companyID, event, data)
	}
	return nil
}

// internalAlert reports whether staff should hear about the event: new
// high-value returns and label failures.
func (d *Dispatcher) internalAlert(event pkgEvents.Event, data map[string]interface{}, cfg entity.InternalNotifications) bool {
	switch event.EventType() {
	case rmaEvents.EventLabelFailed:
		return true
	case rmaEvents.EventCreated:
		return cfg.HighValueThreshold > 0 && num(data, "total_value") >= cfg.HighValueThreshold
	}
	return false
}

func subjectLine(eventType, number string) string {
	switch eventType {
	case rmaEvents.EventCreated:
		return fmt.Sprintf("Return %s received", number)
	case rmaEvents.EventApproved:
		return fmt.Sprintf("Return %s approved", number)
	case rmaEvents.EventRejected:
		return fmt.Sprintf("Return %s was not approved", number)
	case rmaEvents.EventInspectionComplete:
		return fmt.Sprintf("Return %s inspected", number)
	case rmaEvents.EventResolutionComplete:
		return fmt.Sprintf("Return %s resolved", number)
	case rmaEvents.EventLabelFailed:
		return fmt.Sprintf("Shipping label failed for %s", number)
	}
	return fmt.Sprintf("Update on return %s", number)
}

func (d *Dispatcher) sendCustomerEmail(event pkgEvents.Event, data map[string]interface{}) {
	to := str(data, "customer_email")
	if d.mailer == nil || to == "" {
		return
	}
	number := str(data, "rma_number")

	msg := mailer.Message{
		To:      []string{to},
		Subject: subjectLine(event.EventType(), number),
		Heading: subjectLine(event.EventType(), number),
		Lines:   []string{fmt.Sprintf("Status: %s", strings.ReplaceAll(str(data, "status"), "_", " "))},
	}
	if reason := str(data, "rejection_reason"); reason != "" {
		msg.Lines = append(msg.Lines, "Reason: "+reason)
	}
	if amount := num(data, "amount"); amount > 0 {
		msg.Lines = append(msg.Lines, fmt.Sprintf("Amount: %.2f", amount))
	}
	if url := str(data, "tracking_url"); url != "" {
		msg.LinkURL = url
		msg.LinkTxt = "Track your return"
	}
	_ = d.mailer.Send(msg)
}

func (d *Dispatcher) sendInternalEmail(event pkgEvents.Event, data map[string]interface{}, recipients []string) {
	if d.mailer == nil || len(recipients) == 0 {
		return
	}
	number := str(data, "rma_number")
	lines := []string{
		fmt.Sprintf("RMA: %s", number),
		fmt.Sprintf("Value: %.2f", num(data, "total_value")),
		fmt.Sprintf("Reason: %s", str(data, "reason")),
	}
	if cause := str(data, "label_error"); cause != "" {
		lines = append(lines, "Label error: "+cause)
	}
	_ = d.mailer.Send(mailer.Message{
		To:      recipients,
		Subject: "[RMA] " + subjectLine(event.EventType(), number),
		Heading: subjectLine(event.EventType(), number),
		Lines:   lines,
	})
}

func (d *Dispatcher) pushLive(ctx context.Context, companyID uuid.UUID, event pkgEvents.Event, data map[string]interface{}) {
	if d.live == nil {
		return
	}
	status := str(data, "to_status")
	if status == "" {
		status = str(data, "status")
	}
	ts := event.Timestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	d.live.PublishCompany(ctx, companyID, dto.RMALiveEvent{
		Type:      event.EventType(),
		CompanyID: companyID.String(),
		RMAID:     str(data, "rma_id"),
		RMANumber: str(data, "rma_number"),
		Status:    status,
		Payload:   data,
		Timestamp: ts,
	})
}
