package policy

import (
	"context"
	"errors"
	"time"

	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/pkg/logger"
	"rma-engine-be/internal/repository/unitofwork"
	"rma-engine-be/pkg/apperror"

	"github.com/google/uuid"
)

// Cache is the per-company policy cache. memory.PolicyCache implements it.
type Cache interface {
	Get(companyID uuid.UUID) (*entity.RMAPolicy, bool)
	Set(policy *entity.RMAPolicy)
	Delete(companyID uuid.UUID)
}

// Store resolves the policy in force for a company.
type Store struct {
	cache  Cache
	logger logger.ILogger
	now    func() time.Time
}

// NewStore creates a policy store. cache may be nil.
func NewStore(cache Cache, logger logger.ILogger) *Store {
	return &Store{cache: cache, logger: logger, now: time.Now}
}

// GetPolicy never reports not-found: a company without a stored policy gets
// DefaultPolicy. A stored policy that no longer validates is an INVALID_POLICY error.
func (s *Store) GetPolicy(ctx context.Context, uow unitofwork.UnitOfWork, companyID uuid.UUID) (*entity.RMAPolicy, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(companyID); ok {
			return p, nil
		}
	}

	stored, err := uow.PolicyRepository().FindByCompany(ctx, companyID)
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidPolicy) {
			return nil, err
		}
		return nil, apperror.DependencyFailure("policy store", err)
	}

	policy := stored
	if policy == nil {
		policy = DefaultPolicy(companyID)
	} else if err := Validate(policy); err != nil {
		s.logger.Error("POLICY", "Stored policy is invalid", map[string]interface{}{
			"company_id": companyID.String(),
			"error":      err.Error(),
		})
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(policy)
	}
	return policy, nil
}

// SavePolicy validates and stores a company policy, then drops the cached copy.
func (s *Store) SavePolicy(ctx context.Context, uow unitofwork.UnitOfWork, policy *entity.RMAPolicy) error {
	policy.IsDefault = false
	if err := Validate(policy); err != nil {
		return err
	}
	policy.UpdatedAt = s.now()

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.PolicyRepository().Upsert(ctx, policy); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Delete(policy.CompanyID)
	}
	s.logger.Info("POLICY", "Policy saved", map[string]interface{}{
		"company_id": policy.CompanyID.String(),
		"enabled":    policy.Enabled,
	})
	return nil
}
