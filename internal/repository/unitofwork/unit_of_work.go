package unitofwork

import (
	"context"

	"rma-engine-be/internal/repository/contract"
)

// UnitOfWork scopes repositories to one optional transaction. Repositories
// obtained after Begin run inside it until Commit or Rollback.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	RMARepository() contract.RMARepository
	PolicyRepository() contract.PolicyRepository
	OrderRepository() contract.OrderRepository
}
