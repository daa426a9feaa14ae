package implementation

import (
	"context"
	"errors"
	"time"

	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/mapper"
	"rma-engine-be/internal/model"
	"rma-engine-be/internal/repository/contract"
	"rma-engine-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RMAMapper
}

func NewOrderRepository(db *gorm.DB) contract.OrderRepository {
	return &orderRepositoryImpl{db: db, mapper: mapper.NewRMAMapper()}
}

func (r *orderRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var m model.Order
	query := specification.ByID{ID: id}.Apply(r.db.WithContext(ctx))
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.OrderToEntity(&m)
}

func (r *orderRepositoryImpl) CountByCompany(ctx context.Context, companyID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("company_id = ? AND placed_at >= ? AND placed_at <= ?", companyID, from, to).
		Count(&count).Error
	return count, err
}

func (r *orderRepositoryImpl) Upsert(ctx context.Context, order *entity.Order) error {
	m, err := r.mapper.OrderToModel(order)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(m).Error
}
