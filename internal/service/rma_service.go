package service

import (
	"context"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/mapper"
	"rma-engine-be/internal/repository/contract"
	"rma-engine-be/internal/repository/unitofwork"
	"rma-engine-be/pkg/apperror"
	"rma-engine-be/pkg/rma/analytics"
	"rma-engine-be/pkg/rma/lifecycle"
	"rma-engine-be/pkg/rma/policy"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type IRMAService interface {
	Create(ctx context.Context, req *dto.CreateRMARequest) (*dto.RMAResponse, error)
	List(ctx context.Context, companyID uuid.UUID, req *dto.ListRMAsRequest) (*dto.ListRMAsResponse, error)
	Show(ctx context.Context, companyID, id uuid.UUID) (*dto.RMAResponse, error)
	ShowByNumber(ctx context.Context, companyID uuid.UUID, number string) (*dto.RMAResponse, error)

	Approve(ctx context.Context, companyID, id uuid.UUID, req *dto.ApproveRMARequest) (*dto.RMAResponse, error)
	Reject(ctx context.Context, companyID, id uuid.UUID, req *dto.RejectRMARequest) (*dto.RMAResponse, error)
	UpdateStatus(ctx context.Context, companyID, id uuid.UUID, req *dto.UpdateRMAStatusRequest) (*dto.RMAResponse, error)
	Cancel(ctx context.Context, companyID, id uuid.UUID, req *dto.CancelRMARequest) (*dto.RMAResponse, error)
	RetryLabel(ctx context.Context, companyID, id uuid.UUID, actorID string) (*dto.RMAResponse, error)

	StartInspection(ctx context.Context, companyID, id uuid.UUID, actorID string) (*dto.RMAResponse, error)
	RecordInspection(ctx context.Context, companyID, id uuid.UUID, req *dto.RecordInspectionRequest) (*dto.RMAResponse, error)
	ProcessResolution(ctx context.Context, companyID, id uuid.UUID, req *dto.ResolutionRequest) (*dto.RMAResponse, error)

	GetAnalytics(ctx context.Context, companyID uuid.UUID, req *dto.AnalyticsRequest) (*dto.RMAAnalytics, error)
	GetPolicy(ctx context.Context, companyID uuid.UUID) (*dto.PolicyResponse, error)
	UpdatePolicy(ctx context.Context, companyID uuid.UUID, req *dto.PolicyRequest) (*dto.PolicyResponse, error)
}

type rmaService struct {
	uowFactory unitofwork.RepositoryFactory
	manager    *lifecycle.Manager
	aggregator *analytics.Aggregator
	policies   *policy.Store
	mapper     *mapper.RMAMapper
}

func NewRMAService(
	uowFactory unitofwork.RepositoryFactory,
	manager *lifecycle.Manager,
	aggregator *analytics.Aggregator,
	policies *policy.Store,
) IRMAService {
	return &rmaService{
		uowFactory: uowFactory,
		manager:    manager,
		aggregator: aggregator,
		policies:   policies,
		mapper:     mapper.NewRMAMapper(),
	}
}

func (s *rmaService) respond(rma *entity.RMA, err error) (*dto.RMAResponse, error) {
	if err != nil {
		return nil, err
	}
	return s.mapper.ToRMAResponse(rma), nil
}

func (s *rmaService) Create(ctx context.Context, req *dto.CreateRMARequest) (*dto.RMAResponse, error) {
	return s.respond(s.manager.Create(ctx, s.uowFactory.NewUnitOfWork(ctx), *req))
}

// parseTime accepts RFC 3339 timestamps and plain dates. A plain end date
// covers the whole day.
func parseTime(field, value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, apperror.InvalidInput(field, "expected RFC 3339 time or YYYY-MM-DD date")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return &t, nil
}

func parseOptionalID(field, value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, apperror.InvalidInput(field, "must be a UUID")
	}
	return &id, nil
}

func (s *rmaService) List(ctx context.Context, companyID uuid.UUID, req *dto.ListRMAsRequest) (*dto.ListRMAsResponse, error) {
	filter := contract.RMAFilter{CompanyID: companyID}

	if req.Status != "" {
		status := entity.RMAStatus(req.Status)
		if !status.Valid() {
			return nil, apperror.InvalidInput("status", "unknown status "+req.Status)
		}
		filter.Statuses = []entity.RMAStatus{status}
	}

	var err error
	if filter.CustomerID, err = parseOptionalID("customer_id", req.CustomerID); err != nil {
		return nil, err
	}
	if filter.OrderID, err = parseOptionalID("order_id", req.OrderID); err != nil {
		return nil, err
	}
	if filter.CreatedFrom, err = parseTime("from", req.From, false); err != nil {
		return nil, err
	}
	if filter.CreatedTo, err = parseTime("to", req.To, true); err != nil {
		return nil, err
	}

	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	items, total, err := s.manager.List(ctx, s.uowFactory.NewUnitOfWork(ctx), filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListRMAsResponse{
		Items: s.mapper.ToRMAResponses(items),
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func (s *rmaService) Show(ctx context.Context, companyID, id uuid.UUID) (*dto.RMAResponse, error) {
	return s.respond(s.manager.Get(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID, id))
}

func (s *rmaService) ShowByNumber(ctx context.Context, companyID uuid.UUID, number string) (*dto.RMAResponse, error) {
	return s.respond(s.manager.GetByNumber(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID, number))
}

func (s *rmaService) Approve(ctx context.Context, companyID, id uuid.UUID, req *dto.ApproveRMARequest) (*dto.RMAResponse, error) {
	return s.respond(s.manager.Approve(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID, id, *req))
}

func (s *rmaService) Reject(ctx context.Context, companyID, id uuid.UUID, req *dto.RejectRMARequest) (*dto.RMAResponse, error) {
	return s.respond(s.manager.Reject(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID, id, *req))
}

func (s *rmaService) UpdateStatus(ctx context.Context, companyID, id uuid.UUID, req *dto.UpdateRMAStatusRequest) (*dto.RMAResponse, error) {
	return s.respond(s.manager.UpdateStatus(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID, id, *req))
}

func (s *rmaService) Cancel(ctx context.Context, companyID, id uuid.UUID, req *dto.CancelRMARequest) (*dto.RMAResponse, error) {
	return s.respond(s.manager.Cancel(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID, id, *req))
}

func (s *rmaService) RetryLabel(ctx context.Context, companyID, id uuid.UUID, actorID string) (*dto.RMAResponse, error) {
	return s.respond(s.manager.RetryLabel(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID, id, actorID))
}

func (s *rmaService) StartInspection(ctx context.Context, companyID, id uuid.UUID, actorID string) (*dto.RMAResponse, error) {
	return s.respond(s.manager.StartInspection(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID, id, actorID))
}

func (s *rmaService) RecordInspection(ctx context.Context, companyID, id uuid.UUID, req *dto.RecordInspectionRequest) (*dto.RMAResponse, error) {
	return s.respond(s.manager.RecordInspection(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID, id, *req))
}

func (s *rmaService) ProcessResolution(ctx context.Context, companyID, id uuid.UUID, req *dto.ResolutionRequest) (*dto.RMAResponse, error) {
	return s.respond(s.manager.ProcessResolution(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID, id, *req))
}

func (s *rmaService) GetAnalytics(ctx context.Context, companyID uuid.UUID, req *dto.AnalyticsRequest) (*dto.RMAAnalytics, error) {
	var r analytics.DateRange
	from, err := parseTime("from", req.From, false)
	if err != nil {
		return nil, err
	}
	to, err := parseTime("to", req.To, true)
	if err != nil {
		return nil, err
	}
	if from != nil {
		r.From = *from
	}
	if to != nil {
		r.To = *to
	}
	return s.aggregator.GetAnalytics(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID, r)
}

func policyResponse(p *entity.RMAPolicy) *dto.PolicyResponse {
	source := "stored"
	if p.IsDefault {
		source = "default"
	}
	return &dto.PolicyResponse{RMAPolicy: p, Source: source, FetchedAt: time.Now()}
}

func (s *rmaService) GetPolicy(ctx context.Context, companyID uuid.UUID) (*dto.PolicyResponse, error) {
	p, err := s.policies.GetPolicy(ctx, s.uowFactory.NewUnitOfWork(ctx), companyID)
	if err != nil {
		return nil, err
	}
	return policyResponse(p), nil
}

func (s *rmaService) UpdatePolicy(ctx context.Context, companyID uuid.UUID, req *dto.PolicyRequest) (*dto.PolicyResponse, error) {
	p := &entity.RMAPolicy{
		CompanyID:        companyID,
		Enabled:          req.Enabled,
		GeneralRules:     req.GeneralRules,
		ReasonRules:      req.ReasonRules,
		ShippingConfig:   req.ShippingConfig,
		InspectionConfig: req.InspectionConfig,
		ResolutionConfig: req.ResolutionConfig,
		Notifications:    req.Notifications,
		Automation:       req.Automation,
	}
	if err := s.policies.SavePolicy(ctx, s.uowFactory.NewUnitOfWork(ctx), p); err != nil {
		return nil, err
	}
	return policyResponse(p), nil
}
