package implementation

import (
	"context"
	"errors"
	"fmt"

	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/mapper"
	"rma-engine-be/internal/model"
	"rma-engine-be/internal/repository/contract"
	"rma-engine-be/internal/repository/specification"
	"rma-engine-be/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation = "23505"
	defaultBatchSize  = 500
)

type rmaRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RMAMapper
}

func NewRMARepository(db *gorm.DB) contract.RMARepository {
	return &rmaRepositoryImpl{db: db, mapper: mapper.NewRMAMapper()}
}

func (r *rmaRepositoryImpl) Create(ctx context.Context, rma *entity.RMA) error {
	m, err := r.mapper.ToModel(rma)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.Conflict("rma number %s already exists", rma.RMANumber)
		}
		return err
	}
	return nil
}

func (r *rmaRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.RMA, error) {
	var m model.RMA
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *rmaRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.RMA, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *rmaRepositoryImpl) FindByNumber(ctx context.Context, companyID uuid.UUID, number string) (*entity.RMA, error) {
	return r.findOne(ctx, specification.ByCompany{CompanyID: companyID}, specification.ByRMANumber{Number: number})
}

func (r *rmaRepositoryImpl) scoped(ctx context.Context, filter contract.RMAFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.RMA{})
	for _, spec := range specification.FromRMAFilter(filter) {
		query = spec.Apply(query)
	}
	return query
}

func (r *rmaRepositoryImpl) FindAll(ctx context.Context, filter contract.RMAFilter) ([]*entity.RMA, error) {
	query := specification.OrderBy{Field: "created_at", Desc: true}.Apply(r.scoped(ctx, filter))
	if filter.Limit > 0 {
		query = specification.Pagination{Limit: filter.Limit, Offset: filter.Offset}.Apply(query)
	}

	var rows []*model.RMA
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*entity.RMA, 0, len(rows))
	for _, row := range rows {
		e, err := r.mapper.ToEntity(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *rmaRepositoryImpl) Count(ctx context.Context, filter contract.RMAFilter) (int64, error) {
	var count int64
	err := r.scoped(ctx, filter).Count(&count).Error
	return count, err
}

func (r *rmaRepositoryImpl) Update(ctx context.Context, rma *entity.RMA, expectedVersion int) error {
	m, err := r.mapper.ToModel(rma)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&model.RMA{}).
		Where("id = ? AND version = ?", rma.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":          m.Status,
			"resolution_type": m.ResolutionType,
			"customer_email":  m.CustomerEmail,
			"items":           m.Items,
			"shipping":        m.Shipping,
			"inspection":      m.Inspection,
			"resolution":      m.Resolution,
			"timeline":        m.Timeline,
			"metadata":        m.Metadata,
			"expires_at":      m.ExpiresAt,
			"completed_at":    m.CompletedAt,
			"updated_at":      m.UpdatedAt,
			"version":         expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperror.Conflict("rma %s was modified concurrently (expected version %d)", rma.ID, expectedVersion)
	}

	rma.Version = expectedVersion + 1
	return nil
}

func (r *rmaRepositoryImpl) Stream(ctx context.Context, filter contract.RMAFilter, batchSize int, fn contract.BatchFunc) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	skipped := 0
	var rows []*model.RMA
	// FindInBatches pages by primary key, so no other ordering is applied.
	result := r.scoped(ctx, filter).FindInBatches(&rows, batchSize, func(tx *gorm.DB, batch int) error {
		entities := make([]*entity.RMA, 0, len(rows))
		for _, row := range rows {
			e, err := r.mapper.ToEntity(row)
			if err != nil {
				skipped++
				continue
			}
			entities = append(entities, e)
		}
		return fn(entities)
	})
	return skipped, result.Error
}

// groupColumns maps a dimension to its SQL key expression.
var groupColumns = map[contract.GroupDimension]string{
	contract.GroupByStatus:         "status",
	contract.GroupByType:           "type",
	contract.GroupByReason:         "reason",
	contract.GroupByResolutionType: "resolution_type",
	contract.GroupByDay:            "to_char(created_at, 'YYYY-MM-DD')",
}

func (r *rmaRepositoryImpl) GroupBy(ctx context.Context, filter contract.RMAFilter, dim contract.GroupDimension) ([]contract.GroupRow, error) {
	expr, ok := groupColumns[dim]
	if !ok {
		return nil, fmt.Errorf("unsupported group dimension %q", dim)
	}

	var rows []struct {
		Key   string
		Count int
		Value float64
	}
	err := r.scoped(ctx, filter).
		Select(fmt.Sprintf("%s AS key, COUNT(*) AS count, COALESCE(SUM(total_value), 0) AS value", expr)).
		Group(expr).
		Order("key").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]contract.GroupRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, contract.GroupRow{Key: row.Key, Count: row.Count, Value: row.Value})
	}
	return out, nil
}
