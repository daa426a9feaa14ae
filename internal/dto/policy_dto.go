package dto

import (
	"time"

	"rma-engine-be/internal/entity"
)

// PolicyRequest carries a full policy document; the company comes from the token.
type PolicyRequest struct {
	Enabled          bool                                      `json:"enabled"`
	GeneralRules     entity.GeneralRules                       `json:"general_rules"`
	ReasonRules      map[entity.ReturnReason]entity.ReasonRule `json:"reason_rules"`
	ShippingConfig   entity.ShippingConfig                     `json:"shipping_config"`
	InspectionConfig entity.InspectionConfig                   `json:"inspection_config"`
	ResolutionConfig entity.ResolutionConfig                   `json:"resolution_config"`
	Notifications    entity.NotificationConfig                 `json:"notifications"`
	Automation       entity.AutomationConfig                   `json:"automation"`
}

type PolicyResponse struct {
	*entity.RMAPolicy
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}
