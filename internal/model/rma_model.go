package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RMA stores the aggregate with its filterable columns broken out and the
// nested parts kept as jsonb documents.
type RMA struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RMANumber        string     `gorm:"column:rma_number;type:varchar(32);not null;uniqueIndex:idx_rmas_company_number,priority:2"`
	CompanyID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_rmas_company_number,priority:1;index:idx_rmas_company_created,priority:1;index:idx_rmas_company_status,priority:1"`
	CustomerID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	CustomerEmail    string     `gorm:"type:varchar(255)"`
	OrderID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	SupportSessionID *uuid.UUID `gorm:"type:uuid"`
	Type             string     `gorm:"type:varchar(32);not null"`
	Reason           string     `gorm:"type:varchar(32)"`
	ReasonDetails    string     `gorm:"type:text"`
	Status           string     `gorm:"type:varchar(32);not null;index:idx_rmas_company_status,priority:2"`
	ResolutionType   string     `gorm:"type:varchar(32)"`
	TotalValue       float64    `gorm:"type:decimal(12,2);not null;default:0"`
	ItemCount        int        `gorm:"not null;default:0"`

	Items          datatypes.JSON `gorm:"type:jsonb;not null"`
	Shipping       datatypes.JSON `gorm:"type:jsonb"`
	Inspection     datatypes.JSON `gorm:"type:jsonb"`
	Resolution     datatypes.JSON `gorm:"type:jsonb"`
	Timeline       datatypes.JSON `gorm:"type:jsonb;not null"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"`
	PolicySnapshot datatypes.JSON `gorm:"type:jsonb"`

	Version     int       `gorm:"not null;default:1"`
	CreatedAt   time.Time `gorm:"not null;index:idx_rmas_company_created,priority:2"`
	UpdatedAt   time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
	CompletedAt *time.Time
}

func (RMA) TableName() string {
	return "rmas"
}

// RMAPolicy keeps one policy document per company.
type RMAPolicy struct {
	CompanyID uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Enabled   bool           `gorm:"not null;default:true"`
	Document  datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (RMAPolicy) TableName() string {
	return "rma_policies"
}

// Order is the read model of sales orders used for return windows and rates.
type Order struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_orders_company_placed,priority:1"`
	CustomerID  uuid.UUID      `gorm:"type:uuid;not null"`
	PlacedAt    time.Time      `gorm:"not null;index:idx_orders_company_placed,priority:2"`
	DeliveredAt *time.Time
	ItemIDs     datatypes.JSON `gorm:"type:jsonb"`
}

func (Order) TableName() string {
	return "orders"
}
