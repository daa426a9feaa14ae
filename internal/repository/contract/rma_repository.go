package contract

import (
	"context"
	"time"

	"rma-engine-be/internal/entity"

	"github.com/google/uuid"
)

// RMAFilter narrows list, count, stream and group queries. Zero values mean
// "no constraint"; CompanyID is required by every caller except the sweeper.
type RMAFilter struct {
	CompanyID     uuid.UUID
	Statuses      []entity.RMAStatus
	CustomerID    *uuid.UUID
	OrderID       *uuid.UUID
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	UpdatedBefore *time.Time
	ExpiresBefore *time.Time
	Limit         int
	Offset        int
}

// GroupDimension is a column the store can aggregate on.
type GroupDimension string

const (
	GroupByStatus         GroupDimension = "status"
	GroupByType           GroupDimension = "type"
	GroupByReason         GroupDimension = "reason"
	GroupByResolutionType GroupDimension = "resolution_type"
	GroupByDay            GroupDimension = "day"
)

type GroupRow struct {
	Key   string
	Count int
	Value float64
}

// BatchFunc receives one batch of a stream. Returning an error stops the stream.
type BatchFunc func(batch []*entity.RMA) error

type RMARepository interface {
	// Create fails with a CONFLICT error when the RMA number is taken.
	Create(ctx context.Context, rma *entity.RMA) error
	// FindByID and FindByNumber return (nil, nil) when nothing matches.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.RMA, error)
	FindByNumber(ctx context.Context, companyID uuid.UUID, number string) (*entity.RMA, error)
	FindAll(ctx context.Context, filter RMAFilter) ([]*entity.RMA, error)
	Count(ctx context.Context, filter RMAFilter) (int64, error)
	// Update persists rma only if the stored version still equals
	// expectedVersion, then sets rma.Version to expectedVersion+1. A stale
	// version yields a CONFLICT error.
	Update(ctx context.Context, rma *entity.RMA, expectedVersion int) error
	// Stream walks every matching RMA batchSize at a time, in no particular order.
	// Rows that cannot be decoded are skipped and counted.
	Stream(ctx context.Context, filter RMAFilter, batchSize int, fn BatchFunc) (skipped int, err error)
	GroupBy(ctx context.Context, filter RMAFilter, dim GroupDimension) ([]GroupRow, error)
}

type PolicyRepository interface {
	// FindByCompany returns (nil, nil) when the company has no stored policy.
	FindByCompany(ctx context.Context, companyID uuid.UUID) (*entity.RMAPolicy, error)
	Upsert(ctx context.Context, policy *entity.RMAPolicy) error
}

type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	CountByCompany(ctx context.Context, companyID uuid.UUID, from, to time.Time) (int64, error)
	Upsert(ctx context.Context, order *entity.Order) error
}
