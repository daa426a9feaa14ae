package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/repository/contract"
	"rma-engine-be/internal/repository/unitofwork"
	"rma-engine-be/pkg/apperror"

	"github.com/google/uuid"
)

// Store is an in-process record store with the same contract as the gorm
// repositories. Records are kept encoded so callers never share memory with it.
// Transactions are accepted but provide no isolation.
type Store struct {
	mu       sync.RWMutex
	rmas     map[uuid.UUID][]byte
	numbers  map[string]uuid.UUID
	policies map[uuid.UUID][]byte
	orders   map[uuid.UUID][]byte
}

func NewStore() *Store {
	return &Store{
		rmas:     make(map[uuid.UUID][]byte),
		numbers:  make(map[string]uuid.UUID),
		policies: make(map[uuid.UUID][]byte),
		orders:   make(map[uuid.UUID][]byte),
	}
}

func numberKey(companyID uuid.UUID, number string) string {
	return companyID.String() + "|" + number
}

// --- unit of work ---

type repositoryFactory struct {
	store *Store
}

// NewRepositoryFactory exposes the store through the unit-of-work contract.
func NewRepositoryFactory(store *Store) unitofwork.RepositoryFactory {
	return &repositoryFactory{store: store}
}

func (f *repositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: f.store}
}

type unitOfWork struct {
	store  *Store
	active bool
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return fmt.Errorf("transaction already started")
	}
	u.active = true
	return nil
}

func (u *unitOfWork) Commit() error {
	if !u.active {
		return fmt.Errorf("no transaction to commit")
	}
	u.active = false
	return nil
}

func (u *unitOfWork) Rollback() error {
	u.active = false
	return nil
}

func (u *unitOfWork) RMARepository() contract.RMARepository {
	return &rmaRepository{store: u.store}
}

func (u *unitOfWork) PolicyRepository() contract.PolicyRepository {
	return &policyRepository{store: u.store}
}

func (u *unitOfWork) OrderRepository() contract.OrderRepository {
	return &orderRepository{store: u.store}
}

// --- RMAs ---

type rmaRepository struct {
	store *Store
}

func decodeRMA(raw []byte) (*entity.RMA, error) {
	var out entity.RMA
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *rmaRepository) Create(ctx context.Context, rma *entity.RMA) error {
	raw, err := json.Marshal(rma)
	if err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := numberKey(rma.CompanyID, rma.RMANumber)
	if _, taken := s.numbers[key]; taken {
		return apperror.Conflict("rma number %s already exists", rma.RMANumber)
	}
	if _, exists := s.rmas[rma.ID]; exists {
		return apperror.Conflict("rma %s already exists", rma.ID)
	}
	s.rmas[rma.ID] = raw
	s.numbers[key] = rma.ID
	return nil
}

func (r *rmaRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.RMA, error) {
	r.store.mu.RLock()
	raw, ok := r.store.rmas[id]
	r.store.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeRMA(raw)
}

func (r *rmaRepository) FindByNumber(ctx context.Context, companyID uuid.UUID, number string) (*entity.RMA, error) {
	r.store.mu.RLock()
	id, ok := r.store.numbers[numberKey(companyID, number)]
	r.store.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func matches(f contract.RMAFilter, rma *entity.RMA) bool {
	if f.CompanyID != uuid.Nil && rma.CompanyID != f.CompanyID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if rma.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CustomerID != nil && rma.CustomerID != *f.CustomerID {
		return false
	}
	if f.OrderID != nil && rma.OrderID != *f.OrderID {
		return false
	}
	if f.CreatedFrom != nil && rma.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && rma.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if f.UpdatedBefore != nil && !rma.UpdatedAt.Before(*f.UpdatedBefore) {
		return false
	}
	if f.ExpiresBefore != nil && !rma.ExpiresAt.Before(*f.ExpiresBefore) {
		return false
	}
	return true
}

// selectAll decodes every record matching f. Undecodable records are counted.
func (r *rmaRepository) selectAll(f contract.RMAFilter) ([]*entity.RMA, int) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	skipped := 0
	out := make([]*entity.RMA, 0)
	for _, raw := range r.store.rmas {
		rma, err := decodeRMA(raw)
		if err != nil {
			skipped++
			continue
		}
		if matches(f, rma) {
			out = append(out, rma)
		}
	}
	return out, skipped
}

func (r *rmaRepository) FindAll(ctx context.Context, filter contract.RMAFilter) ([]*entity.RMA, error) {
	all, _ := r.selectAll(filter)
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(all) {
			return []*entity.RMA{}, nil
		}
		all = all[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, nil
}

func (r *rmaRepository) Count(ctx context.Context, filter contract.RMAFilter) (int64, error) {
	all, _ := r.selectAll(filter)
	return int64(len(all)), nil
}

func (r *rmaRepository) Update(ctx context.Context, rma *entity.RMA, expectedVersion int) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.rmas[rma.ID]
	if !ok {
		return apperror.Conflict("rma %s was modified concurrently (expected version %d)", rma.ID, expectedVersion)
	}
	current, err := decodeRMA(raw)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return apperror.Conflict("rma %s was modified concurrently (expected version %d)", rma.ID, expectedVersion)
	}

	next := *rma
	next.Version = expectedVersion + 1
	encoded, err := json.Marshal(&next)
	if err != nil {
		return err
	}
	s.rmas[rma.ID] = encoded
	rma.Version = next.Version
	return nil
}

func (r *rmaRepository) Stream(ctx context.Context, filter contract.RMAFilter, batchSize int, fn contract.BatchFunc) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	all, skipped := r.selectAll(filter)
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })

	for start := 0; start < len(all); start += batchSize {
		if err := ctx.Err(); err != nil {
			return skipped, err
		}
		end := start + batchSize
		if end > len(all) {
			end = len(all)
		}
		if err := fn(all[start:end]); err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

func groupKey(dim contract.GroupDimension, rma *entity.RMA) (string, error) {
	switch dim {
	case contract.GroupByStatus:
		return string(rma.Status), nil
	case contract.GroupByType:
		return string(rma.Type), nil
	case contract.GroupByReason:
		return string(rma.Reason), nil
	case contract.GroupByResolutionType:
		return string(rma.Resolution.Type), nil
	case contract.GroupByDay:
		return rma.CreatedAt.UTC().Format("2006-01-02"), nil
	}
	return "", fmt.Errorf("unsupported group dimension %q", dim)
}

func (r *rmaRepository) GroupBy(ctx context.Context, filter contract.RMAFilter, dim contract.GroupDimension) ([]contract.GroupRow, error) {
	all, _ := r.selectAll(filter)
	groups := make(map[string]*contract.GroupRow)
	for _, rma := range all {
		key, err := groupKey(dim, rma)
		if err != nil {
			return nil, err
		}
		g, ok := groups[key]
		if !ok {
			g = &contract.GroupRow{Key: key}
			groups[key] = g
		}
		g.Count++
		g.Value += rma.TotalValue()
	}

	out := make([]contract.GroupRow, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// --- policies ---

type policyRepository struct {
	store *Store
}

func (r *policyRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) (*entity.RMAPolicy, error) {
	r.store.mu.RLock()
	raw, ok := r.store.policies[companyID]
	r.store.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var out entity.RMAPolicy
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperror.ErrInvalidPolicy.With("policy of company %s could not be decoded", companyID).Wrap(err)
	}
	return &out, nil
}

func (r *policyRepository) Upsert(ctx context.Context, policy *entity.RMAPolicy) error {
	raw, err := json.Marshal(policy)
	if err != nil {
		return err
	}
	r.store.mu.Lock()
	r.store.policies[policy.CompanyID] = raw
	r.store.mu.Unlock()
	return nil
}

// PutRawPolicy stores an arbitrary document, for exercising decode failures.
func (s *Store) PutRawPolicy(companyID uuid.UUID, raw []byte) {
	s.mu.Lock()
	s.policies[companyID] = raw
	s.mu.Unlock()
}

// PutRawRMA stores an arbitrary document, for exercising decode failures.
func (s *Store) PutRawRMA(id uuid.UUID, raw []byte) {
	s.mu.Lock()
	s.rmas[id] = raw
	s.mu.Unlock()
}

// --- orders ---

type orderRepository struct {
	store *Store
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	r.store.mu.RLock()
	raw, ok := r.store.orders[id]
	r.store.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var out entity.Order
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *orderRepository) CountByCompany(ctx context.Context, companyID uuid.UUID, from, to time.Time) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var n int64
	for _, raw := range r.store.orders {
		var o entity.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			continue
		}
		if o.CompanyID == companyID && !o.PlacedAt.Before(from) && !o.PlacedAt.After(to) {
			n++
		}
	}
	return n, nil
}

func (r *orderRepository) Upsert(ctx context.Context, order *entity.Order) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	r.store.mu.Lock()
	r.store.orders[order.ID] = raw
	r.store.mu.Unlock()
	return nil
}
