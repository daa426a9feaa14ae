package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Creation ---

type CreateRMAItemRequest struct {
	OrderItemID   string   `json:"order_item_id" validate:"required"`
	ProductID     string   `json:"product_id" validate:"required"`
	ProductName   string   `json:"product_name" validate:"required"`
	SKU           string   `json:"sku"`
	Category      string   `json:"category"`
	Price         float64  `json:"price" validate:"gte=0"`
	Quantity      int      `json:"quantity" validate:"required,gte=1"`
	Reason        string   `json:"reason"`
	ReasonDetails string   `json:"reason_details"`
	Photos        []string `json:"photos" validate:"omitempty,dive,url"`
}

type CreateRMARequest struct {
	// CompanyID is taken from the caller's token, never the body.
	CompanyID        uuid.UUID              `json:"-"`
	CustomerID       uuid.UUID              `json:"customer_id" validate:"required"`
	CustomerEmail    string                 `json:"customer_email" validate:"omitempty,email"`
	OrderID          uuid.UUID              `json:"order_id" validate:"required"`
	SupportSessionID *uuid.UUID             `json:"support_session_id"`
	Type             string                 `json:"type" validate:"required,oneof=return exchange warranty repair recall"`
	Reason           string                 `json:"reason"`
	ReasonDetails    string                 `json:"reason_details"`
	Items            []CreateRMAItemRequest `json:"items" validate:"dive"`
	Metadata         map[string]interface{} `json:"metadata"`

	ActorType string `json:"-"`
	ActorID   string `json:"-"`
}

// --- Transitions ---

type ApproveRMARequest struct {
	Notes   string `json:"notes"`
	ActorID string `json:"-"`
}

type RejectRMARequest struct {
	Reason  string `json:"reason" validate:"required"`
	ActorID string `json:"-"`
}

type UpdateRMAStatusRequest struct {
	Status         string                 `json:"status" validate:"required"`
	Notes          string                 `json:"notes"`
	TrackingNumber string                 `json:"tracking_number"`
	Metadata       map[string]interface{} `json:"metadata"`
	ActorType      string                 `json:"-"`
	ActorID        string                 `json:"-"`
}

type CancelRMARequest struct {
	Reason    string `json:"reason"`
	ActorType string `json:"-"`
	ActorID   string `json:"-"`
}

// --- Inspection ---

type ItemInspectionRequest struct {
	ItemID    uuid.UUID `json:"item_id" validate:"required"`
	Condition string    `json:"condition"`
	Result    string    `json:"result" validate:"omitempty,oneof=PASSED FAILED PARTIAL"`
	// RefundPercentage overrides the condition table when set, except for DAMAGED items.
	RefundPercentage *float64 `json:"refund_percentage" validate:"omitempty,gte=0,lte=100"`
	Photos           []string `json:"photos"`
	Notes            string   `json:"notes"`
}

type RecordInspectionRequest struct {
	Items       []ItemInspectionRequest `json:"items" validate:"required,min=1,dive"`
	InspectedBy string                  `json:"inspected_by"`
	Notes       string                  `json:"notes"`
}

// --- Resolution ---

type ExchangeItemRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
	Price     float64 `json:"price" validate:"gte=0"`
}

type ResolutionRequest struct {
	Type string `json:"type" validate:"required,oneof=refund exchange store_credit"`
	// Amount is suggested from the inspection outcome when omitted.
	Amount            *float64              `json:"amount" validate:"omitempty,gte=0"`
	Method            string                `json:"method"`
	Items             []ExchangeItemRequest `json:"items" validate:"dive"`
	// AdditionalPayment defaults to the replacement total above the returned value.
	AdditionalPayment *float64 `json:"additional_payment" validate:"omitempty,gte=0"`
	ActorID           string   `json:"-"`
}

// --- Listing ---

type ListRMAsRequest struct {
	Status     string `query:"status"`
	CustomerID string `query:"customer_id"`
	OrderID    string `query:"order_id"`
	From       string `query:"from"`
	To         string `query:"to"`
	Page       int    `query:"page"`
	Limit      int    `query:"limit"`
}

type ListRMAsResponse struct {
	Items []RMAResponse `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// --- Responses ---

type RMAItemInspectionResponse struct {
	Condition        string    `json:"condition"`
	Result           string    `json:"result"`
	RefundEligible   bool      `json:"refund_eligible"`
	RefundPercentage float64   `json:"refund_percentage"`
	Photos           []string  `json:"photos,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	InspectedBy      string    `json:"inspected_by,omitempty"`
	InspectedAt      time.Time `json:"inspected_at"`
}

type RMAItemDispositionResponse struct {
	Action    string    `json:"action"`
	Notes     string    `json:"notes,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

type RMAItemResponse struct {
	ID            uuid.UUID                   `json:"id"`
	OrderItemID   string                      `json:"order_item_id"`
	ProductID     string                      `json:"product_id"`
	ProductName   string                      `json:"product_name"`
	SKU           string                      `json:"sku,omitempty"`
	Category      string                      `json:"category,omitempty"`
	Price         float64                     `json:"price"`
	Quantity      int                         `json:"quantity"`
	Reason        string                      `json:"reason,omitempty"`
	ReasonDetails string                      `json:"reason_details,omitempty"`
	Photos        []string                    `json:"photos,omitempty"`
	Inspection    *RMAItemInspectionResponse  `json:"inspection,omitempty"`
	Disposition   *RMAItemDispositionResponse `json:"disposition,omitempty"`
}

type RMAShippingResponse struct {
	Method         string     `json:"method,omitempty"`
	Carrier        string     `json:"carrier,omitempty"`
	TrackingNumber string     `json:"tracking_number,omitempty"`
	TrackingURL    string     `json:"tracking_url,omitempty"`
	LabelURL       string     `json:"label_url,omitempty"`
	Prepaid        bool       `json:"prepaid"`
	LabelStatus    string     `json:"label_status,omitempty"`
	LabelError     string     `json:"label_error,omitempty"`
	LabelSentAt    *time.Time `json:"label_sent_at,omitempty"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

type RMAInspectionResponse struct {
	Result      string     `json:"result"`
	InspectedBy string     `json:"inspected_by,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type RMAResolutionResponse struct {
	Type              string                `json:"type,omitempty"`
	Status            string                `json:"status,omitempty"`
	RefundAmount      float64               `json:"refund_amount,omitempty"`
	RefundMethod      string                `json:"refund_method,omitempty"`
	RestockingFee     float64               `json:"restocking_fee,omitempty"`
	TransactionRef    string                `json:"transaction_ref,omitempty"`
	ExchangeItems     []ExchangeItemRequest `json:"exchange_items,omitempty"`
	AdditionalPayment float64               `json:"additional_payment,omitempty"`
	StoreCreditAmount float64               `json:"store_credit_amount,omitempty"`
	StoreCreditCode   string                `json:"store_credit_code,omitempty"`
	StoreCreditExpiry *time.Time            `json:"store_credit_expires_at,omitempty"`
	FailureReason     string                `json:"failure_reason,omitempty"`
	ProcessedAt       *time.Time            `json:"processed_at,omitempty"`
}

type RMATimelineResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	ActorType string                 `json:"actor_type"`
	ActorID   string                 `json:"actor_id,omitempty"`
	Notes     string                 `json:"notes,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type RMAResponse struct {
	ID               uuid.UUID              `json:"id"`
	RMANumber        string                 `json:"rma_number"`
	CompanyID        uuid.UUID              `json:"company_id"`
	CustomerID       uuid.UUID              `json:"customer_id"`
	OrderID          uuid.UUID              `json:"order_id"`
	SupportSessionID *uuid.UUID             `json:"support_session_id,omitempty"`
	Type             string                 `json:"type"`
	Reason           string                 `json:"reason"`
	ReasonDetails    string                 `json:"reason_details,omitempty"`
	Status           string                 `json:"status"`
	Items            []RMAItemResponse      `json:"items"`
	Shipping         RMAShippingResponse    `json:"shipping"`
	Inspection       *RMAInspectionResponse `json:"inspection,omitempty"`
	Resolution       *RMAResolutionResponse `json:"resolution,omitempty"`
	Timeline         []RMATimelineResponse  `json:"timeline"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	TotalValue       float64                `json:"total_value"`
	Version          int                    `json:"version"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	ExpiresAt        time.Time              `json:"expires_at"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
}

// --- Live feed ---

type RMALiveEvent struct {
	Type      string                 `json:"type"`
	CompanyID string                 `json:"company_id"`
	RMAID     string                 `json:"rma_id,omitempty"`
	RMANumber string                 `json:"rma_number,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
