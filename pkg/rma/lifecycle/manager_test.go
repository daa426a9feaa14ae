package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/pkg/logger"
	"rma-engine-be/internal/repository/contract"
	"rma-engine-be/internal/repository/memory"
	"rma-engine-be/internal/repository/unitofwork"
	"rma-engine-be/pkg/apperror"
	"rma-engine-be/pkg/rma/policy"
	"rma-engine-be/pkg/rma/shipping"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyLabels struct {
	fail  bool
	inner shipping.LabelProvider
}

func (f *flakyLabels) GenerateLabel(ctx context.Context, rma *entity.RMA, p *entity.RMAPolicy) (*shipping.Label, error) {
	if f.fail {
		return nil, errors.New("carrier api unavailable")
	}
	return f.inner.GenerateLabel(ctx, rma, p)
}

type failingGateway struct{}

func (failingGateway) Refund(context.Context, *entity.RMA, entity.RefundDetails) (string, error) {
	return "", errors.New("card declined")
}

func (failingGateway) Exchange(context.Context, *entity.RMA, entity.ExchangeDetails) (string, error) {
	return "", errors.New("out of stock")
}

func (failingGateway) IssueCredit(context.Context, *entity.RMA, entity.StoreCreditDetails) (string, error) {
	return "", errors.New("ledger unavailable")
}

type fixture struct {
	m        *Manager
	uow      unitofwork.UnitOfWork
	policies *policy.Store
	labels   *flakyLabels
	company  uuid.UUID
	clock    time.Time
}

func newFixture(t *testing.T, deps Dependencies) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		uow:      memory.NewRepositoryFactory(store).NewUnitOfWork(context.Background()),
		policies: policy.NewStore(nil, logger.NewNopLogger()),
		labels:   &flakyLabels{inner: shipping.NewLocalLabelProvider("https://labels.test")},
		company:  uuid.New(),
		clock:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	deps.Policies = f.policies
	deps.Labels = f.labels
	deps.Logger = logger.NewNopLogger()
	deps.Now = func() time.Time { return f.clock }
	f.m = NewManager(deps)
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) savePolicy(t *testing.T, mutate func(p *entity.RMAPolicy)) {
	t.Helper()
	p := policy.DefaultPolicy(f.company)
	mutate(p)
	require.NoError(t, f.policies.SavePolicy(context.Background(), f.uow, p))
}

func (f *fixture) request(reason entity.ReturnReason) dto.CreateRMARequest {
	return dto.CreateRMARequest{
		CompanyID:  f.company,
		CustomerID: uuid.New(),
		OrderID:    uuid.New(),
		Type:       string(entity.RMATypeReturn),
		Reason:     string(reason),
		Items: []dto.CreateRMAItemRequest{{
			OrderItemID: "line-1",
			ProductID:   "sku-boot-42",
			ProductName: "Trail boot",
			Category:    "footwear",
			Price:       100,
			Quantity:    1,
		}},
	}
}

func statuses(rma *entity.RMA) []entity.RMAStatus {
	out := make([]entity.RMAStatus, 0, len(rma.Timeline))
	for _, e := range rma.Timeline {
		out = append(out, e.Status)
	}
	return out
}

func (f *fixture) toInspectionComplete(t *testing.T) *entity.RMA {
	t.Helper()
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonNoLongerNeeded))
	require.NoError(t, err)
	_, err = f.m.Approve(ctx, f.uow, f.company, rma.ID, dto.ApproveRMARequest{ActorID: "agent-1"})
	require.NoError(t, err)
	_, err = f.m.UpdateStatus(ctx, f.uow, f.company, rma.ID, dto.UpdateRMAStatusRequest{Status: string(entity.RMAStatusReceived)})
	require.NoError(t, err)
	rma, err = f.m.RecordInspection(ctx, f.uow, f.company, rma.ID, dto.RecordInspectionRequest{
		InspectedBy: "warehouse-7",
		Items:       []dto.ItemInspectionRequest{{ItemID: rma.Items[0].ID, Condition: "GOOD", Result: "PASSED"}},
	})
	require.NoError(t, err)
	return rma
}

func TestManager_FullLifecycle(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonNoLongerNeeded))
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusRequested, rma.Status)
	assert.Equal(t, entity.LabelNone, rma.Shipping.LabelStatus)
	assert.Empty(t, rma.Shipping.TrackingNumber)
	assert.Equal(t, "RMA-20260302-00001", rma.RMANumber)
	assert.True(t, rma.ExpiresAt.Equal(rma.CreatedAt.AddDate(0, 0, 30)))
	assert.Equal(t, entity.ActorCustomer, rma.Timeline[0].ActorType)

	f.advance(time.Hour)
	rma, err = f.m.Approve(ctx, f.uow, f.company, rma.ID, dto.ApproveRMARequest{ActorID: "agent-1", Notes: "ok"})
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusLabelSent, rma.Status)
	assert.NotEmpty(t, rma.Shipping.TrackingNumber)
	assert.Equal(t, "UPS", rma.Shipping.Carrier)
	assert.Equal(t, entity.LabelCreated, rma.Shipping.LabelStatus)
	require.NotNil(t, rma.Shipping.LabelSentAt)

	f.advance(24 * time.Hour)
	rma, err = f.m.UpdateStatus(ctx, f.uow, f.company, rma.ID, dto.UpdateRMAStatusRequest{Status: string(entity.RMAStatusReceived)})
	require.NoError(t, err)
	require.NotNil(t, rma.Shipping.DeliveredAt)

	f.advance(time.Hour)
	rma, err = f.m.RecordInspection(ctx, f.uow, f.company, rma.ID, dto.RecordInspectionRequest{
		InspectedBy: "warehouse-7",
		Items:       []dto.ItemInspectionRequest{{ItemID: rma.Items[0].ID, Condition: "GOOD", Result: "PASSED"}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusInspectionComplete, rma.Status)
	require.NotNil(t, rma.Inspection)
	assert.Equal(t, entity.InspectionPassed, rma.Inspection.Result)
	require.NotNil(t, rma.Items[0].Inspection)
	assert.Equal(t, 85.0, rma.Items[0].Inspection.RefundPercentage)
	require.NotNil(t, rma.Items[0].Disposition)
	assert.Equal(t, entity.DispositionRefurbish, rma.Items[0].Disposition.Action)

	f.advance(time.Hour)
	amount := 70.0
	rma, err = f.m.ProcessResolution(ctx, f.uow, f.company, rma.ID, dto.ResolutionRequest{Type: "refund", Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusCompleted, rma.Status)
	require.NotNil(t, rma.CompletedAt)
	assert.False(t, rma.CompletedAt.Before(rma.CreatedAt))
	assert.Equal(t, entity.ResolutionCompleted, rma.Resolution.Status)
	require.NotNil(t, rma.Resolution.Refund)
	assert.Equal(t, 70.0, rma.Resolution.Refund.Amount)
	assert.NotEmpty(t, rma.Resolution.Refund.TransactionRef)

	assert.Equal(t, []entity.RMAStatus{
		entity.RMAStatusRequested,
		entity.RMAStatusApproved,
		entity.RMAStatusLabelSent,
		entity.RMAStatusReceived,
		entity.RMAStatusInspecting,
		entity.RMAStatusInspectionComplete,
		entity.RMAStatusProcessingRefund,
		entity.RMAStatusCompleted,
	}, statuses(rma))
}

func TestManager_Create_AutoApprovesDefective(t *testing.T) {
	f := newFixture(t, Dependencies{})

	rma, err := f.m.Create(context.Background(), f.uow, f.request(entity.ReasonDefective))
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusLabelSent, rma.Status)
	assert.NotEmpty(t, rma.Shipping.TrackingNumber)
	assert.True(t, rma.Shipping.Prepaid)
	assert.Equal(t, []entity.RMAStatus{
		entity.RMAStatusRequested,
		entity.RMAStatusApproved,
		entity.RMAStatusLabelSent,
	}, statuses(rma))
	assert.Equal(t, entity.ActorSystem, rma.Timeline[1].ActorType)
}

func TestManager_Create_AutoApprovedLabelFailureIsRecorded(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.labels.fail = true

	rma, err := f.m.Create(context.Background(), f.uow, f.request(entity.ReasonWrongItem))
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusApproved, rma.Status)
	assert.Equal(t, entity.LabelFailed, rma.Shipping.LabelStatus)
	assert.Contains(t, rma.Shipping.LabelError, "carrier api unavailable")
}

func TestManager_Create_ValidationHappensBeforeWrites(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	req := f.request(entity.ReasonNoLongerNeeded)
	req.Items = nil
	_, err := f.m.Create(ctx, f.uow, req)
	assert.True(t, errors.Is(err, apperror.ErrEmptyItemList))

	req = f.request("LOST_INTEREST")
	_, err = f.m.Create(ctx, f.uow, req)
	assert.True(t, errors.Is(err, apperror.ErrInvalidInput))

	req = f.request(entity.ReasonOther)
	req.Type = "swap"
	_, err = f.m.Create(ctx, f.uow, req)
	assert.True(t, errors.Is(err, apperror.ErrInvalidInput))

	_, total, err := f.m.List(ctx, f.uow, contract.RMAFilter{CompanyID: f.company})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestManager_ApproveAndRejectOnlyFromRequested(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonDefective))
	require.NoError(t, err)
	require.Equal(t, entity.RMAStatusLabelSent, rma.Status)

	_, err = f.m.Approve(ctx, f.uow, f.company, rma.ID, dto.ApproveRMARequest{})
	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
	_, err = f.m.Reject(ctx, f.uow, f.company, rma.ID, dto.RejectRMARequest{Reason: "late"})
	assert.True(t, errors.Is(err, apperror.ErrInvalidState))

	current, err := f.m.Get(ctx, f.uow, f.company, rma.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusLabelSent, current.Status)
	assert.Equal(t, rma.Version, current.Version)
}

func TestManager_Reject(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonBetterPrice))
	require.NoError(t, err)

	rma, err = f.m.Reject(ctx, f.uow, f.company, rma.ID, dto.RejectRMARequest{Reason: "price match offered", ActorID: "agent-2"})
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusRejected, rma.Status)
	assert.Equal(t, "price match offered", rma.LastTimelineEntry().Notes)
}

func TestManager_Approve_LabelFailureThenRetry(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonSizeFit))
	require.NoError(t, err)

	f.labels.fail = true
	failed, err := f.m.Approve(ctx, f.uow, f.company, rma.ID, dto.ApproveRMARequest{ActorID: "agent-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrDependencyFailure))
	require.NotNil(t, failed)
	assert.Equal(t, entity.RMAStatusApproved, failed.Status)
	assert.Equal(t, entity.LabelFailed, failed.Shipping.LabelStatus)

	f.labels.fail = false
	labeled, err := f.m.RetryLabel(ctx, f.uow, f.company, rma.ID, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusLabelSent, labeled.Status)
	assert.Equal(t, entity.LabelCreated, labeled.Shipping.LabelStatus)
	assert.Empty(t, labeled.Shipping.LabelError)

	_, err = f.m.RetryLabel(ctx, f.uow, f.company, rma.ID, "agent-1")
	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
}

func TestManager_UpdateStatus_Guards(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonSizeFit))
	require.NoError(t, err)

	tests := []struct {
		name   string
		status string
		want   error
	}{
		{"unknown status", "LOST", apperror.ErrInvalidInput},
		{"dedicated operation", string(entity.RMAStatusApproved), apperror.ErrInvalidState},
		{"not in the table", string(entity.RMAStatusCompleted), apperror.ErrInvalidState},
		{"skip ahead", string(entity.RMAStatusReceived), apperror.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.m.UpdateStatus(ctx, f.uow, f.company, rma.ID, dto.UpdateRMAStatusRequest{Status: tt.status})
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	current, err := f.m.Get(ctx, f.uow, f.company, rma.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusRequested, current.Status)
	assert.Len(t, current.Timeline, 1)
}

func TestManager_UpdateStatus_InTransitTracking(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonDefective))
	require.NoError(t, err)

	rma, err = f.m.UpdateStatus(ctx, f.uow, f.company, rma.ID, dto.UpdateRMAStatusRequest{
		Status:         string(entity.RMAStatusInTransit),
		TrackingNumber: "1Z999",
		ActorType:      string(entity.ActorSystem),
		ActorID:        "carrier-webhook",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusInTransit, rma.Status)
	assert.Equal(t, "https://www.ups.com/track?tracknum=1Z999", rma.Shipping.TrackingURL)
	require.NotNil(t, rma.Shipping.ShippedAt)
	assert.Equal(t, entity.ActorSystem, rma.LastTimelineEntry().ActorType)
}

func TestManager_RecordInspection_Guards(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonDefective))
	require.NoError(t, err)

	_, err = f.m.RecordInspection(ctx, f.uow, f.company, rma.ID, dto.RecordInspectionRequest{
		Items: []dto.ItemInspectionRequest{{ItemID: rma.Items[0].ID, Condition: "GOOD"}},
	})
	assert.True(t, errors.Is(err, apperror.ErrInvalidState))

	_, err = f.m.UpdateStatus(ctx, f.uow, f.company, rma.ID, dto.UpdateRMAStatusRequest{Status: string(entity.RMAStatusReceived)})
	require.NoError(t, err)
	_, err = f.m.RecordInspection(ctx, f.uow, f.company, rma.ID, dto.RecordInspectionRequest{
		Items: []dto.ItemInspectionRequest{{ItemID: uuid.New(), Condition: "GOOD"}},
	})
	assert.True(t, errors.Is(err, apperror.ErrInvalidInput))

	current, err := f.m.Get(ctx, f.uow, f.company, rma.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusReceived, current.Status)
	assert.Nil(t, current.Items[0].Inspection)
}

func TestManager_RecordInspection_DamagedIsDestroyed(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonDefective))
	require.NoError(t, err)
	_, err = f.m.UpdateStatus(ctx, f.uow, f.company, rma.ID, dto.UpdateRMAStatusRequest{Status: string(entity.RMAStatusReceived)})
	require.NoError(t, err)
	_, err = f.m.StartInspection(ctx, f.uow, f.company, rma.ID, "warehouse-7")
	require.NoError(t, err)

	rma, err = f.m.RecordInspection(ctx, f.uow, f.company, rma.ID, dto.RecordInspectionRequest{
		Items: []dto.ItemInspectionRequest{{ItemID: rma.Items[0].ID, Condition: "DAMAGED", Result: "PASSED"}},
	})
	require.NoError(t, err)
	assert.Zero(t, rma.Items[0].Inspection.RefundPercentage)
	assert.Equal(t, entity.DispositionDestroy, rma.Items[0].Disposition.Action)
}

func TestManager_RecordInspection_AutoProcessRefund(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.savePolicy(t, func(p *entity.RMAPolicy) { p.Automation.AutoProcessRefund = true })

	rma := f.toInspectionComplete(t)
	assert.Equal(t, entity.RMAStatusCompleted, rma.Status)
	require.NotNil(t, rma.Resolution.Refund)
	assert.InDelta(t, 72.25, rma.Resolution.Refund.Amount, 0.001)
	assert.InDelta(t, 12.75, rma.Resolution.Refund.RestockingFee, 0.001)
	assert.Equal(t, entity.ActorSystem, rma.LastTimelineEntry().ActorType)
}

func TestManager_ProcessResolution_OnlyFromInspectionComplete(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonSizeFit))
	require.NoError(t, err)

	_, err = f.m.ProcessResolution(ctx, f.uow, f.company, rma.ID, dto.ResolutionRequest{Type: "refund"})
	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
}

func TestManager_ProcessResolution_SettlementFailureRollsBack(t *testing.T) {
	f := newFixture(t, Dependencies{Settlement: failingGateway{}})
	ctx := context.Background()

	rma := f.toInspectionComplete(t)
	rma, err := f.m.ProcessResolution(ctx, f.uow, f.company, rma.ID, dto.ResolutionRequest{Type: "store_credit"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrDependencyFailure))
	require.NotNil(t, rma)
	assert.Equal(t, entity.RMAStatusInspectionComplete, rma.Status)
	assert.Equal(t, entity.ResolutionFailed, rma.Resolution.Status)
	assert.Contains(t, rma.Resolution.FailureReason, "ledger unavailable")
	assert.Nil(t, rma.CompletedAt)
}

func TestManager_ProcessResolution_StoreCredit(t *testing.T) {
	f := newFixture(t, Dependencies{})

	rma := f.toInspectionComplete(t)
	rma, err := f.m.ProcessResolution(context.Background(), f.uow, f.company, rma.ID, dto.ResolutionRequest{Type: "store_credit"})
	require.NoError(t, err)
	require.NotNil(t, rma.Resolution.StoreCredit)
	assert.NotEmpty(t, rma.Resolution.StoreCredit.Code)
	require.NotNil(t, rma.Resolution.StoreCredit.ExpiresAt)
	assert.True(t, rma.Resolution.StoreCredit.ExpiresAt.Equal(f.clock.AddDate(0, 0, 365)))
}

func TestManager_Cancel(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonDefective))
	require.NoError(t, err)

	rma, err = f.m.Cancel(ctx, f.uow, f.company, rma.ID, dto.CancelRMARequest{Reason: "kept the item", ActorType: "customer"})
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusCancelled, rma.Status)

	_, err = f.m.Cancel(ctx, f.uow, f.company, rma.ID, dto.CancelRMARequest{})
	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
}

func TestManager_TenantIsolation(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonSizeFit))
	require.NoError(t, err)

	_, err = f.m.Get(ctx, f.uow, uuid.New(), rma.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	_, err = f.m.Approve(ctx, f.uow, uuid.New(), rma.ID, dto.ApproveRMARequest{})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	found, err := f.m.GetByNumber(ctx, f.uow, f.company, rma.RMANumber)
	require.NoError(t, err)
	assert.Equal(t, rma.ID, found.ID)
}

// racingRepository lets another writer land between the read and the write.
type racingRepository struct {
	contract.RMARepository
	races int
}

func (r *racingRepository) Update(ctx context.Context, rma *entity.RMA, expectedVersion int) error {
	if r.races > 0 {
		r.races--
		other, err := r.RMARepository.FindByID(ctx, rma.ID)
		if err != nil {
			return err
		}
		other.CustomerEmail = "changed@elsewhere.test"
		if err := r.RMARepository.Update(ctx, other, other.Version); err != nil {
			return err
		}
	}
	return r.RMARepository.Update(ctx, rma, expectedVersion)
}

type racingUnitOfWork struct {
	unitofwork.UnitOfWork
	repo *racingRepository
}

func (u *racingUnitOfWork) RMARepository() contract.RMARepository { return u.repo }

func TestManager_RetriesStaleWrites(t *testing.T) {
	f := newFixture(t, Dependencies{MaxRetries: 3})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonSizeFit))
	require.NoError(t, err)

	racing := &racingUnitOfWork{UnitOfWork: f.uow, repo: &racingRepository{RMARepository: f.uow.RMARepository(), races: 1}}
	rejected, err := f.m.Reject(ctx, racing, f.company, rma.ID, dto.RejectRMARequest{Reason: "no"})
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusRejected, rejected.Status)
	assert.Equal(t, "changed@elsewhere.test", rejected.CustomerEmail)
	assert.Equal(t, 3, rejected.Version)
	assert.Len(t, rejected.Timeline, 2)
}

func TestManager_GivesUpAfterMaxRetries(t *testing.T) {
	f := newFixture(t, Dependencies{MaxRetries: 2})
	ctx := context.Background()

	rma, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonSizeFit))
	require.NoError(t, err)

	racing := &racingUnitOfWork{UnitOfWork: f.uow, repo: &racingRepository{RMARepository: f.uow.RMARepository(), races: 5}}
	_, err = f.m.Reject(ctx, racing, f.company, rma.ID, dto.RejectRMARequest{Reason: "no"})
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestManager_ExpireOverdue(t *testing.T) {
	f := newFixture(t, Dependencies{})
	ctx := context.Background()

	stale, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonSizeFit))
	require.NoError(t, err)
	rejected, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonSizeFit))
	require.NoError(t, err)
	_, err = f.m.Reject(ctx, f.uow, f.company, rejected.ID, dto.RejectRMARequest{Reason: "no"})
	require.NoError(t, err)

	f.advance(29 * 24 * time.Hour)
	fresh, err := f.m.Create(ctx, f.uow, f.request(entity.ReasonSizeFit))
	require.NoError(t, err)

	f.advance(2 * 24 * time.Hour)
	n, err := f.m.ExpireOverdue(ctx, f.uow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.m.Get(ctx, f.uow, f.company, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusExpired, got.Status)
	assert.Equal(t, entity.ActorSystem, got.LastTimelineEntry().ActorType)

	got, err = f.m.Get(ctx, f.uow, f.company, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusRejected, got.Status)

	got, err = f.m.Get(ctx, f.uow, f.company, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusRequested, got.Status)
}

func TestManager_AutoCloseIdle(t *testing.T) {
	f := newFixture(t, Dependencies{})
	f.savePolicy(t, func(p *entity.RMAPolicy) { p.Automation.AutoCloseAfterDays = 7 })

	rma := f.toInspectionComplete(t)
	require.Equal(t, entity.RMAStatusInspectionComplete, rma.Status)

	f.advance(6 * 24 * time.Hour)
	n, err := f.m.AutoCloseIdle(context.Background(), f.uow)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.advance(2 * 24 * time.Hour)
	n, err = f.m.AutoCloseIdle(context.Background(), f.uow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.m.Get(context.Background(), f.uow, f.company, rma.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusCompleted, got.Status)
	assert.InDelta(t, 72.25, got.Resolution.Refund.Amount, 0.001)
}

func TestTransitions_TerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range entity.AllRMAStatuses {
		if !s.IsTerminal() {
			continue
		}
		for _, e := range []Event{EventApprove, EventReject, EventLabel, EventShip, EventReceive, EventStartInspection,
			EventCompleteInspection, EventProcess, EventComplete, EventRollback, EventCancel, EventExpire} {
			_, err := Next(s, e)
			assert.Error(t, err, "%s --%s-->", s, e)
		}
	}
}
