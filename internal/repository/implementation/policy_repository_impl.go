package implementation

import (
	"context"
	"errors"

	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/mapper"
	"rma-engine-be/internal/model"
	"rma-engine-be/internal/repository/contract"
	"rma-engine-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type policyRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RMAMapper
}

func NewPolicyRepository(db *gorm.DB) contract.PolicyRepository {
	return &policyRepositoryImpl{db: db, mapper: mapper.NewRMAMapper()}
}

func (r *policyRepositoryImpl) FindByCompany(ctx context.Context, companyID uuid.UUID) (*entity.RMAPolicy, error) {
	var m model.RMAPolicy
	query := specification.Filter("company_id", companyID).Apply(r.db.WithContext(ctx))
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.PolicyToEntity(&m)
}

func (r *policyRepositoryImpl) Upsert(ctx context.Context, policy *entity.RMAPolicy) error {
	m, err := r.mapper.PolicyToModel(policy)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "document", "updated_at"}),
	}).Create(m).Error
}
