package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/pkg/logger"
	"rma-engine-be/internal/repository/contract"
	"rma-engine-be/internal/repository/unitofwork"
	"rma-engine-be/pkg/apperror"
	"rma-engine-be/pkg/rma/eligibility"
	rmaEvents "rma-engine-be/pkg/rma/events"
	"rma-engine-be/pkg/rma/inspection"
	"rma-engine-be/pkg/rma/numbering"
	"rma-engine-be/pkg/rma/policy"
	"rma-engine-be/pkg/rma/resolution"
	"rma-engine-be/pkg/rma/shipping"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Actor is who caused a transition.
type Actor struct {
	Type entity.ActorType
	ID   string
}

var SystemActor = Actor{Type: entity.ActorSystem, ID: "system"}

// ActorFrom builds an actor from transport values, defaulting to an agent.
func ActorFrom(actorType, actorID string) Actor {
	switch entity.ActorType(actorType) {
	case entity.ActorCustomer, entity.ActorSystem:
		return Actor{Type: entity.ActorType(actorType), ID: actorID}
	}
	return Actor{Type: entity.ActorAgent, ID: actorID}
}

// Dependencies wires a Manager. Zero values get local defaults.
type Dependencies struct {
	Policies    *policy.Store
	Labels      shipping.LabelProvider
	Sequencer   numbering.Sequencer
	Settlement  resolution.Gateway
	Publisher   rmaEvents.Publisher
	Logger      logger.ILogger
	MaxRetries  int
	CheckOrders bool
	Now         func() time.Time
}

// Manager owns every state change of an RMA.
type Manager struct {
	policies    *policy.Store
	validator   *eligibility.Validator
	approver    *eligibility.AutoApprover
	inspector   *inspection.Engine
	resolver    *resolution.Processor
	labels      shipping.LabelProvider
	sequencer   numbering.Sequencer
	publisher   rmaEvents.Publisher
	logger      logger.ILogger
	tracer      trace.Tracer
	maxRetries  int
	checkOrders bool
	now         func() time.Time
}

func NewManager(deps Dependencies) *Manager {
	m := &Manager{
		policies:    deps.Policies,
		validator:   eligibility.NewValidator(),
		approver:    eligibility.NewAutoApprover(),
		inspector:   inspection.NewEngine(),
		labels:      deps.Labels,
		sequencer:   deps.Sequencer,
		publisher:   deps.Publisher,
		logger:      deps.Logger,
		tracer:      otel.Tracer("rma-engine"),
		maxRetries:  deps.MaxRetries,
		checkOrders: deps.CheckOrders,
		now:         deps.Now,
	}
	if m.logger == nil {
		m.logger = logger.NewNopLogger()
	}
	if m.policies == nil {
		m.policies = policy.NewStore(nil, m.logger)
	}
	if m.labels == nil {
		m.labels = shipping.NewLocalLabelProvider("")
	}
	if m.sequencer == nil {
		m.sequencer = numbering.NewLocalSequencer()
	}
	if m.publisher == nil {
		m.publisher = rmaEvents.NopPublisher{}
	}
	if m.maxRetries < 1 {
		m.maxRetries = 3
	}
	if m.now == nil {
		m.now = time.Now
	}
	gateway := deps.Settlement
	if gateway == nil {
		gateway = resolution.NewLocalGateway()
	}
	m.resolver = resolution.NewProcessor(gateway)
	return m
}

func (m *Manager) startSpan(ctx context.Context, name string, id uuid.UUID) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("rma.id", id.String())))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// snapshot is the policy an RMA was created under.
func snapshot(rma *entity.RMA) *entity.RMAPolicy {
	if rma.PolicySnapshot != nil {
		return rma.PolicySnapshot
	}
	return policy.DefaultPolicy(rma.CompanyID)
}

func clonePolicy(p *entity.RMAPolicy) (*entity.RMAPolicy, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out entity.RMAPolicy
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func appendTimeline(rma *entity.RMA, status entity.RMAStatus, now time.Time, actor Actor, notes string, metadata map[string]interface{}) {
	rma.Timeline = append(rma.Timeline, entity.TimelineEntry{
		Status:    status,
		Timestamp: now,
		ActorType: actor.Type,
		ActorID:   actor.ID,
		Notes:     notes,
		Metadata:  metadata,
	})
}

// enter moves rma into to, stamping the shipping and completion times the
// target state implies.
func enter(rma *entity.RMA, to entity.RMAStatus, now time.Time, actor Actor, notes string, metadata map[string]interface{}) {
	t := now
	switch to {
	case entity.RMAStatusInTransit:
		rma.Shipping.ShippedAt = &t
	case entity.RMAStatusReceived:
		rma.Shipping.DeliveredAt = &t
	case entity.RMAStatusCompleted:
		rma.CompletedAt = &t
	}
	rma.Status = to
	rma.UpdatedAt = now
	appendTimeline(rma, to, now, actor, notes, metadata)
}

// step applies event to rma and returns the state it left.
func step(rma *entity.RMA, event Event, now time.Time, actor Actor, notes string, metadata map[string]interface{}) (entity.RMAStatus, error) {
	to, err := Next(rma.Status, event)
	if err != nil {
		return "", err
	}
	from := rma.Status
	enter(rma, to, now, actor, notes, metadata)
	return from, nil
}

func (m *Manager) load(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID) (*entity.RMA, error) {
	rma, err := uow.RMARepository().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rma == nil || (companyID != uuid.Nil && rma.CompanyID != companyID) {
		return nil, apperror.NotFound("rma", id.String())
	}
	return rma, nil
}

// apply runs fn against a fresh copy of the RMA and stores the result only if
// nobody else wrote it in between. Stale writes are retried from a new read.
func (m *Manager) apply(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, fn func(rma *entity.RMA, now time.Time) error) (*entity.RMA, error) {
	for attempt := 1; ; attempt++ {
		rma, err := m.applyOnce(ctx, uow, companyID, id, fn)
		if err == nil {
			return rma, nil
		}
		if !errors.Is(err, apperror.ErrConflict) || attempt >= m.maxRetries {
			return nil, err
		}
		m.logger.Warn("RMA", "Concurrent update detected, retrying", map[string]interface{}{
			"rma_id":  id.String(),
			"attempt": attempt,
		})
	}
}

func (m *Manager) applyOnce(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID, fn func(rma *entity.RMA, now time.Time) error) (*entity.RMA, error) {
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	rma, err := m.load(ctx, uow, companyID, id)
	if err != nil {
		return nil, err
	}
	expected := rma.Version
	if err := fn(rma, m.now()); err != nil {
		return nil, err
	}
	if err := uow.RMARepository().Update(ctx, rma, expected); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return rma, nil
}

func checkReason(field, reason string) error {
	if reason == "" {
		return nil
	}
	for _, r := range entity.AllReturnReasons {
		if string(r) == reason {
			return nil
		}
	}
	return apperror.InvalidInput(field, "unknown return reason "+reason)
}

// Create validates a request against the company policy and opens an RMA.
// Auto-approved requests continue straight into label generation; a failed
// label is recorded on the RMA and does not fail the creation.
func (m *Manager) Create(ctx context.Context, uow unitofwork.UnitOfWork, req dto.CreateRMARequest) (_ *entity.RMA, err error) {
	ctx, span := m.tracer.Start(ctx, "rma.create", trace.WithAttributes(attribute.String("company.id", req.CompanyID.String())))
	defer func() { endSpan(span, err) }()

	rmaType := entity.RMAType(req.Type)
	validType := false
	for _, t := range entity.AllRMATypes {
		if t == rmaType {
			validType = true
		}
	}
	if !validType {
		return nil, apperror.InvalidInput("type", "unknown RMA type "+req.Type)
	}
	if err := checkReason("reason", req.Reason); err != nil {
		return nil, err
	}
	for _, item := range req.Items {
		if err := checkReason("items.reason", item.Reason); err != nil {
			return nil, err
		}
	}

	p, err := m.policies.GetPolicy(ctx, uow, req.CompanyID)
	if err != nil {
		return nil, err
	}
	var orders eligibility.OrderLookup
	if m.checkOrders {
		orders = uow.OrderRepository()
	}
	if err := m.validator.Validate(ctx, req, p, orders); err != nil {
		return nil, err
	}
	autoApproved, err := m.approver.Check(req, p)
	if err != nil {
		return nil, err
	}

	now := m.now()
	rma, err := m.build(req, p, now)
	if err != nil {
		return nil, err
	}
	if autoApproved {
		enter(rma, entity.RMAStatusApproved, now, SystemActor, "auto-approved by policy", nil)
	}

	for attempt := 1; ; attempt++ {
		number, err := m.sequencer.Next(ctx, req.CompanyID, now)
		if err != nil {
			return nil, apperror.DependencyFailure("rma numbering", err)
		}
		rma.RMANumber = number

		err = m.insert(ctx, uow, rma)
		if err == nil {
			break
		}
		if !errors.Is(err, apperror.ErrConflict) || attempt >= m.maxRetries {
			return nil, err
		}
	}

	m.logger.Info("RMA", "RMA created", map[string]interface{}{
		"rma_id":        rma.ID.String(),
		"rma_number":    rma.RMANumber,
		"company_id":    rma.CompanyID.String(),
		"status":        string(rma.Status),
		"auto_approved": autoApproved,
	})
	m.publisher.PublishCreated(ctx, rma, autoApproved)

	if !autoApproved {
		return rma, nil
	}
	m.publisher.PublishApproved(ctx, rma)
	if !p.Automation.AutoCreateLabel {
		return rma, nil
	}

	labeled, labelErr := m.issueLabel(ctx, uow, rma.CompanyID, rma.ID, SystemActor)
	if labelErr != nil {
		m.logger.Warn("RMA", "Label not issued for auto-approved RMA", map[string]interface{}{
			"rma_id": rma.ID.String(),
			"error":  labelErr.Error(),
		})
	}
	if labeled != nil {
		return labeled, nil
	}
	return rma, nil
}

func (m *Manager) build(req dto.CreateRMARequest, p *entity.RMAPolicy, now time.Time) (*entity.RMA, error) {
	snap, err := clonePolicy(p)
	if err != nil {
		return nil, err
	}
	reason := entity.ReturnReason(req.Reason)

	items := make([]entity.RMAItem, 0, len(req.Items))
	for _, it := range req.Items {
		itemReason := entity.ReturnReason(it.Reason)
		if itemReason == "" {
			itemReason = reason
		}
		items = append(items, entity.RMAItem{
			ID:            uuid.New(),
			OrderItemID:   it.OrderItemID,
			ProductID:     it.ProductID,
			ProductName:   it.ProductName,
			SKU:           it.SKU,
			Category:      it.Category,
			Price:         it.Price,
			Quantity:      it.Quantity,
			Reason:        itemReason,
			ReasonDetails: it.ReasonDetails,
			Photos:        it.Photos,
		})
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	rma := &entity.RMA{
		ID:               uuid.New(),
		CompanyID:        req.CompanyID,
		CustomerID:       req.CustomerID,
		CustomerEmail:    req.CustomerEmail,
		OrderID:          req.OrderID,
		SupportSessionID: req.SupportSessionID,
		Type:             entity.RMAType(req.Type),
		Reason:           reason,
		ReasonDetails:    req.ReasonDetails,
		Items:            items,
		Status:           entity.RMAStatusRequested,
		Shipping:         entity.Shipping{LabelStatus: entity.LabelNone},
		Resolution:       entity.Resolution{Status: entity.ResolutionPending},
		Metadata:         metadata,
		PolicySnapshot:   snap,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        now.AddDate(0, 0, p.GeneralRules.RMAExpirationDays),
	}
	requester := Actor{Type: entity.ActorCustomer, ID: req.CustomerID.String()}
	if req.ActorType != "" {
		requester = ActorFrom(req.ActorType, req.ActorID)
	}
	appendTimeline(rma, entity.RMAStatusRequested, now, requester, "return requested", nil)
	return rma, nil
}

func (m *Manager) insert(ctx context.Context, uow unitofwork.UnitOfWork, rma *entity.RMA) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.RMARepository().Create(ctx, rma); err != nil {
		return err
	}
	return uow.Commit()
}

// Get returns an RMA of the company. A zero companyID skips the tenant check.
func (m *Manager) Get(ctx context.Context, uow unitofwork.UnitOfWork, companyID, id uuid.UUID) (*entity.RMA, error) {
	return m.load(ctx, uow, companyID, id)
}

func (m *Manager) GetByNumber(ctx context.Context, uow unitofwork.UnitOfWork, companyID uuid.UUID, number string) (*entity.RMA, error) {
	rma, err := uow.RMARepository().FindByNumber(ctx, companyID, number)
	if err != nil {
		return nil, err
	}
	if rma == nil {
		return nil, apperror.NotFound("rma", number)
	}
	return rma, nil
}

// List returns one page of RMAs and the total matching the filter.
func (m *Manager) List(ctx context.Context, uow unitofwork.UnitOfWork, filter contract.RMAFilter) ([]*entity.RMA, int64, error) {
	items, err := uow.RMARepository().FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := uow.RMARepository().Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
