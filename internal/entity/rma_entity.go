package entity

import (
	"time"

	"github.com/google/uuid"
)

// RMAStatus is a node in the lifecycle graph.
type RMAStatus string

const (
	RMAStatusRequested          RMAStatus = "REQUESTED"
	RMAStatusApproved           RMAStatus = "APPROVED"
	RMAStatusRejected           RMAStatus = "REJECTED"
	RMAStatusLabelSent          RMAStatus = "LABEL_SENT"
	RMAStatusInTransit          RMAStatus = "IN_TRANSIT"
	RMAStatusReceived           RMAStatus = "RECEIVED"
	RMAStatusInspecting         RMAStatus = "INSPECTING"
	RMAStatusInspectionComplete RMAStatus = "INSPECTION_COMPLETE"
	RMAStatusProcessingRefund   RMAStatus = "PROCESSING_REFUND"
	RMAStatusCompleted          RMAStatus = "COMPLETED"
	RMAStatusCancelled          RMAStatus = "CANCELLED"
	RMAStatusExpired            RMAStatus = "EXPIRED"
)

// AllRMAStatuses lists every status in lifecycle order.
var AllRMAStatuses = []RMAStatus{
	RMAStatusRequested, RMAStatusApproved, RMAStatusLabelSent, RMAStatusInTransit,
	RMAStatusReceived, RMAStatusInspecting, RMAStatusInspectionComplete,
	RMAStatusProcessingRefund, RMAStatusCompleted, RMAStatusRejected,
	RMAStatusCancelled, RMAStatusExpired,
}

// IsTerminal reports whether no further transition can leave s.
func (s RMAStatus) IsTerminal() bool {
	switch s {
	case RMAStatusCompleted, RMAStatusRejected, RMAStatusCancelled, RMAStatusExpired:
		return true
	}
	return false
}

func (s RMAStatus) Valid() bool {
	for _, st := range AllRMAStatuses {
		if st == s {
			return true
		}
	}
	return false
}

type RMAType string

const (
	RMATypeReturn   RMAType = "return"
	RMATypeExchange RMAType = "exchange"
	RMATypeWarranty RMAType = "warranty"
	RMATypeRepair   RMAType = "repair"
	RMATypeRecall   RMAType = "recall"
)

var AllRMATypes = []RMAType{RMATypeReturn, RMATypeExchange, RMATypeWarranty, RMATypeRepair, RMATypeRecall}

type ReturnReason string

const (
	ReasonDefective         ReturnReason = "DEFECTIVE"
	ReasonWrongItem         ReturnReason = "WRONG_ITEM"
	ReasonNotAsDescribed    ReturnReason = "NOT_AS_DESCRIBED"
	ReasonDamagedInShipping ReturnReason = "DAMAGED_IN_SHIPPING"
	ReasonSizeFit           ReturnReason = "SIZE_FIT_ISSUE"
	ReasonQualityIssue      ReturnReason = "QUALITY_ISSUE"
	ReasonArrivedLate       ReturnReason = "ARRIVED_LATE"
	ReasonNoLongerNeeded    ReturnReason = "NO_LONGER_NEEDED"
	ReasonBetterPrice       ReturnReason = "BETTER_PRICE_FOUND"
	ReasonWarrantyClaim     ReturnReason = "WARRANTY_CLAIM"
	ReasonRecall            ReturnReason = "RECALL"
	ReasonOther             ReturnReason = "OTHER"
)

var AllReturnReasons = []ReturnReason{
	ReasonDefective, ReasonWrongItem, ReasonNotAsDescribed, ReasonDamagedInShipping,
	ReasonSizeFit, ReasonQualityIssue, ReasonArrivedLate, ReasonNoLongerNeeded,
	ReasonBetterPrice, ReasonWarrantyClaim, ReasonRecall, ReasonOther,
}

// IsMerchantFault reports reasons for which no restocking fee is charged.
func (r ReturnReason) IsMerchantFault() bool {
	switch r {
	case ReasonDefective, ReasonWrongItem, ReasonNotAsDescribed, ReasonDamagedInShipping, ReasonQualityIssue, ReasonRecall, ReasonWarrantyClaim:
		return true
	}
	return false
}

type ItemCondition string

const (
	ConditionNewUnopened ItemCondition = "NEW_UNOPENED"
	ConditionNewOpened   ItemCondition = "NEW_OPENED"
	ConditionLikeNew     ItemCondition = "LIKE_NEW"
	ConditionGood        ItemCondition = "GOOD"
	ConditionFair        ItemCondition = "FAIR"
	ConditionPoor        ItemCondition = "POOR"
	ConditionDamaged     ItemCondition = "DAMAGED"
	ConditionDefective   ItemCondition = "DEFECTIVE"
)

var AllItemConditions = []ItemCondition{
	ConditionNewUnopened, ConditionNewOpened, ConditionLikeNew, ConditionGood,
	ConditionFair, ConditionPoor, ConditionDamaged, ConditionDefective,
}

type InspectionResult string

const (
	InspectionPassed  InspectionResult = "PASSED"
	InspectionFailed  InspectionResult = "FAILED"
	InspectionPartial InspectionResult = "PARTIAL"
)

type DispositionAction string

const (
	DispositionRestock        DispositionAction = "RESTOCK"
	DispositionRefurbish      DispositionAction = "REFURBISH"
	DispositionLiquidate      DispositionAction = "LIQUIDATE"
	DispositionDonate         DispositionAction = "DONATE"
	DispositionDestroy        DispositionAction = "DESTROY"
	DispositionReturnToVendor DispositionAction = "RETURN_TO_VENDOR"
)

type ActorType string

const (
	ActorCustomer ActorType = "customer"
	ActorSystem   ActorType = "system"
	ActorAgent    ActorType = "agent"
)

type ResolutionType string

const (
	ResolutionRefund      ResolutionType = "refund"
	ResolutionExchange    ResolutionType = "exchange"
	ResolutionStoreCredit ResolutionType = "store_credit"
)

type ResolutionStatus string

const (
	ResolutionPending    ResolutionStatus = "pending"
	ResolutionProcessing ResolutionStatus = "processing"
	ResolutionCompleted  ResolutionStatus = "completed"
	ResolutionFailed     ResolutionStatus = "failed"
)

type LabelStatus string

const (
	LabelNone    LabelStatus = "none"
	LabelCreated LabelStatus = "created"
	LabelFailed  LabelStatus = "failed"
)

// RMA is the aggregate root of a return case.
type RMA struct {
	ID               uuid.UUID
	RMANumber        string
	CompanyID        uuid.UUID
	CustomerID       uuid.UUID
	CustomerEmail    string
	OrderID          uuid.UUID
	SupportSessionID *uuid.UUID

	Type          RMAType
	Reason        ReturnReason
	ReasonDetails string

	Items      []RMAItem
	Status     RMAStatus
	Shipping   Shipping
	Inspection *InspectionSummary
	Resolution Resolution
	Timeline   []TimelineEntry
	Metadata   map[string]interface{}

	// PolicySnapshot is the policy in force when the RMA was created.
	PolicySnapshot *RMAPolicy

	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
	CompletedAt *time.Time
}

// TotalValue is the snapshot value of all requested items.
func (r *RMA) TotalValue() float64 {
	var total float64
	for _, it := range r.Items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// TotalQuantity sums requested quantities across items.
func (r *RMA) TotalQuantity() int {
	n := 0
	for _, it := range r.Items {
		n += it.Quantity
	}
	return n
}

func (r *RMA) FindItem(id uuid.UUID) *RMAItem {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return &r.Items[i]
		}
	}
	return nil
}

// LastTimelineEntry returns the most recent entry, or nil for an empty timeline.
func (r *RMA) LastTimelineEntry() *TimelineEntry {
	if len(r.Timeline) == 0 {
		return nil
	}
	return &r.Timeline[len(r.Timeline)-1]
}

type RMAItem struct {
	ID            uuid.UUID       `json:"id"`
	OrderItemID   string          `json:"order_item_id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	SKU           string          `json:"sku"`
	Category      string          `json:"category"`
	Price         float64         `json:"price"`
	Quantity      int             `json:"quantity"`
	Reason        ReturnReason    `json:"reason"`
	ReasonDetails string          `json:"reason_details,omitempty"`
	Photos        []string        `json:"photos,omitempty"`
	Inspection    *ItemInspection `json:"inspection,omitempty"`
	Disposition   *Disposition    `json:"disposition,omitempty"`
}

type ItemInspection struct {
	Condition        ItemCondition    `json:"condition"`
	Result           InspectionResult `json:"result"`
	RefundEligible   bool             `json:"refund_eligible"`
	RefundPercentage float64          `json:"refund_percentage"`
	Photos           []string         `json:"photos,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	InspectedBy      string           `json:"inspected_by"`
	InspectedAt      time.Time        `json:"inspected_at"`
}

type Disposition struct {
	Action    DispositionAction `json:"action"`
	Notes     string            `json:"notes,omitempty"`
	DecidedAt time.Time         `json:"decided_at"`
}

type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Shipping struct {
	Method         string      `json:"method"`
	Carrier        string      `json:"carrier"`
	TrackingNumber string      `json:"tracking_number"`
	TrackingURL    string      `json:"tracking_url"`
	LabelURL       string      `json:"label_url"`
	Prepaid        bool        `json:"prepaid"`
	LabelStatus    LabelStatus `json:"label_status"`
	LabelError     string      `json:"label_error,omitempty"`
	ReturnAddress  *Address    `json:"return_address,omitempty"`
	LabelSentAt    *time.Time  `json:"label_sent_at,omitempty"`
	ShippedAt      *time.Time  `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time  `json:"delivered_at,omitempty"`
}

type InspectionSummary struct {
	Result      InspectionResult `json:"result"`
	InspectedBy string           `json:"inspected_by"`
	Notes       string           `json:"notes,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

type Resolution struct {
	Type          ResolutionType      `json:"type"`
	Status        ResolutionStatus    `json:"status"`
	Refund        *RefundDetails      `json:"refund,omitempty"`
	Exchange      *ExchangeDetails    `json:"exchange,omitempty"`
	StoreCredit   *StoreCreditDetails `json:"store_credit,omitempty"`
	FailureReason string              `json:"failure_reason,omitempty"`
	ProcessedAt   *time.Time          `json:"processed_at,omitempty"`
}

type RefundDetails struct {
	Amount         float64 `json:"amount"`
	Method         string  `json:"method"`
	RestockingFee  float64 `json:"restocking_fee"`
	TransactionRef string  `json:"transaction_ref,omitempty"`
}

type ExchangeItem struct {
	ProductID string  `json:"product_id"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type ExchangeDetails struct {
	Items             []ExchangeItem `json:"items,omitempty"`
	AdditionalPayment float64        `json:"additional_payment"`
	OrderRef          string         `json:"order_ref,omitempty"`
}

type StoreCreditDetails struct {
	Amount    float64    `json:"amount"`
	Code      string     `json:"code,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// TimelineEntry is an append-only audit record of a transition.
type TimelineEntry struct {
	Status    RMAStatus              `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	ActorType ActorType              `json:"actor_type"`
	ActorID   string                 `json:"actor_id,omitempty"`
	Notes     string                 `json:"notes,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
