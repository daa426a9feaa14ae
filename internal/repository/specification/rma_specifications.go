package specification

import (
	"time"

	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByCompany struct {
	CompanyID uuid.UUID
}

func (s ByCompany) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("company_id = ?", s.CompanyID)
}

type ByRMANumber struct {
	Number string
}

func (s ByRMANumber) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("rma_number = ?", s.Number)
}

type ByStatuses struct {
	Statuses []entity.RMAStatus
}

func (s ByStatuses) Apply(db *gorm.DB) *gorm.DB {
	values := make([]string, len(s.Statuses))
	for i, st := range s.Statuses {
		values[i] = string(st)
	}
	return db.Where("status IN ?", values)
}

// CreatedBetween bounds created_at; a nil bound is open.
type CreatedBetween struct {
	From *time.Time
	To   *time.Time
}

func (s CreatedBetween) Apply(db *gorm.DB) *gorm.DB {
	if s.From != nil {
		db = db.Where("created_at >= ?", *s.From)
	}
	if s.To != nil {
		db = db.Where("created_at <= ?", *s.To)
	}
	return db
}

type UpdatedBefore struct {
	At time.Time
}

func (s UpdatedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("updated_at < ?", s.At)
}

type ExpiresBefore struct {
	At time.Time
}

func (s ExpiresBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("expires_at < ?", s.At)
}

// FromRMAFilter translates a store-neutral filter into specifications. Paging
// is left to the caller so counts can share the same filter.
func FromRMAFilter(f contract.RMAFilter) []Specification {
	var specs []Specification
	if f.CompanyID != uuid.Nil {
		specs = append(specs, ByCompany{CompanyID: f.CompanyID})
	}
	if len(f.Statuses) > 0 {
		specs = append(specs, ByStatuses{Statuses: f.Statuses})
	}
	if f.CustomerID != nil {
		specs = append(specs, Filter("customer_id", *f.CustomerID))
	}
	if f.OrderID != nil {
		specs = append(specs, Filter("order_id", *f.OrderID))
	}
	if f.CreatedFrom != nil || f.CreatedTo != nil {
		specs = append(specs, CreatedBetween{From: f.CreatedFrom, To: f.CreatedTo})
	}
	if f.UpdatedBefore != nil {
		specs = append(specs, UpdatedBefore{At: *f.UpdatedBefore})
	}
	if f.ExpiresBefore != nil {
		specs = append(specs, ExpiresBefore{At: *f.ExpiresBefore})
	}
	return specs
}
