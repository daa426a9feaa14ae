package integration

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/model"
	"rma-engine-be/internal/pkg/logger"
	"rma-engine-be/internal/repository/contract"
	"rma-engine-be/internal/repository/unitofwork"
	"rma-engine-be/pkg/apperror"
	"rma-engine-be/pkg/database"
	"rma-engine-be/pkg/rma/analytics"
	"rma-engine-be/pkg/rma/lifecycle"
	"rma-engine-be/pkg/rma/policy"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err, "connect to DB")
	require.NoError(t, db.AutoMigrate(&model.RMA{}, &model.RMAPolicy{}, &model.Order{}))
	require.NoError(t, db.Exec(`DROP INDEX IF EXISTS idx_rmas_rma_number`).Error)
	return db
}

func TestGormLifecycle(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	factory := unitofwork.NewRepositoryFactory(db)
	nop := logger.NewNopLogger()
	policies := policy.NewStore(nil, nop)
	manager := lifecycle.NewManager(lifecycle.Dependencies{Policies: policies, Logger: nop})
	company := uuid.New()

	t.Cleanup(func() {
		db.Where("company_id = ?", company).Delete(&model.RMA{})
		db.Where("company_id = ?", company).Delete(&model.RMAPolicy{})
	})

	custom := policy.DefaultPolicy(company)
	custom.GeneralRules.MaxItemsPerRMA = 4
	require.NoError(t, policies.SavePolicy(ctx, factory.NewUnitOfWork(ctx), custom))

	rma, err := manager.Create(ctx, factory.NewUnitOfWork(ctx), dto.CreateRMARequest{
		CompanyID:  company,
		CustomerID: uuid.New(),
		OrderID:    uuid.New(),
		Type:       string(entity.RMATypeReturn),
		Reason:     string(entity.ReasonNoLongerNeeded),
		Items: []dto.CreateRMAItemRequest{{
			OrderItemID: "line-1", ProductID: "sku-1", ProductName: "Desk lamp", Price: 45, Quantity: 1,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RMAStatusRequested, rma.Status)

	t.Run("approve persists timeline and version", func(t *testing.T) {
		approved, err := manager.Approve(ctx, factory.NewUnitOfWork(ctx), company, rma.ID, dto.ApproveRMARequest{ActorID: "agent-1"})
		require.NoError(t, err)

		stored, err := manager.GetByNumber(ctx, factory.NewUnitOfWork(ctx), company, rma.RMANumber)
		require.NoError(t, err)
		assert.Equal(t, approved.Status, stored.Status)
		assert.Equal(t, approved.Version, stored.Version)
		assert.Len(t, stored.Timeline, len(approved.Timeline))
		require.NotNil(t, stored.PolicySnapshot)
		assert.Equal(t, 4, stored.PolicySnapshot.GeneralRules.MaxItemsPerRMA)
	})

	t.Run("stale writes conflict", func(t *testing.T) {
		repo := factory.NewUnitOfWork(ctx).RMARepository()
		current, err := repo.FindByID(ctx, rma.ID)
		require.NoError(t, err)

		err = repo.Update(ctx, current, current.Version-1)
		assert.True(t, errors.Is(err, apperror.ErrConflict))
	})

	t.Run("analytics and grouping read the table", func(t *testing.T) {
		rows, err := factory.NewUnitOfWork(ctx).RMARepository().GroupBy(ctx, contract.RMAFilter{CompanyID: company}, contract.GroupByReason)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, string(entity.ReasonNoLongerNeeded), rows[0].Key)

		report, err := analytics.NewAggregator(10, nop).GetAnalytics(ctx, factory.NewUnitOfWork(ctx), company, analytics.DateRange{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, report.Overview.TotalRMAs)
	})
}

func TestGormRMANumbersArePerCompany(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx).RMARepository()
	first, second := uuid.New(), uuid.New()

	t.Cleanup(func() {
		db.Where("company_id IN ?", []uuid.UUID{first, second}).Delete(&model.RMA{})
	})

	newRMA := func(company uuid.UUID) *entity.RMA {
		now := time.Now().UTC()
		return &entity.RMA{
			ID:         uuid.New(),
			RMANumber:  "RMA-" + now.Format("20060102") + "-00001",
			CompanyID:  company,
			CustomerID: uuid.New(),
			OrderID:    uuid.New(),
			Type:       entity.RMATypeReturn,
			Reason:     entity.ReasonNoLongerNeeded,
			Status:     entity.RMAStatusRequested,
			Items: []entity.RMAItem{{
				ID: uuid.New(), OrderItemID: "line-1", ProductID: "sku-1", ProductName: "Desk lamp", Price: 45, Quantity: 1,
			}},
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: now.AddDate(0, 0, 30),
		}
	}

	require.NoError(t, repo.Create(ctx, newRMA(first)))
	require.NoError(t, repo.Create(ctx, newRMA(second)), "same number in another company")

	err := repo.Create(ctx, newRMA(first))
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}
