package mapper

import (
	"encoding/json"
	"fmt"

	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/model"
	"rma-engine-be/pkg/apperror"

	"gorm.io/datatypes"
)

type RMAMapper struct{}

func NewRMAMapper() *RMAMapper {
	return &RMAMapper{}
}

func marshalJSON(v interface{}) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func unmarshalJSON(raw datatypes.JSON, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (m *RMAMapper) ToModel(r *entity.RMA) (*model.RMA, error) {
	if r == nil {
		return nil, nil
	}

	out := &model.RMA{
		ID:               r.ID,
		RMANumber:        r.RMANumber,
		CompanyID:        r.CompanyID,
		CustomerID:       r.CustomerID,
		CustomerEmail:    r.CustomerEmail,
		OrderID:          r.OrderID,
		SupportSessionID: r.SupportSessionID,
		Type:             string(r.Type),
		Reason:           string(r.Reason),
		ReasonDetails:    r.ReasonDetails,
		Status:           string(r.Status),
		ResolutionType:   string(r.Resolution.Type),
		TotalValue:       r.TotalValue(),
		ItemCount:        len(r.Items),
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		ExpiresAt:        r.ExpiresAt,
		CompletedAt:      r.CompletedAt,
	}
	var err error
	if out.Items, err = marshalJSON(r.Items); err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	if out.Shipping, err = marshalJSON(r.Shipping); err != nil {
		return nil, fmt.Errorf("encode shipping: %w", err)
	}
	if out.Inspection, err = marshalJSON(r.Inspection); err != nil {
		return nil, fmt.Errorf("encode inspection: %w", err)
	}
	if out.Resolution, err = marshalJSON(r.Resolution); err != nil {
		return nil, fmt.Errorf("encode resolution: %w", err)
	}
	if out.Timeline, err = marshalJSON(r.Timeline); err != nil {
		return nil, fmt.Errorf("encode timeline: %w", err)
	}
	if out.Metadata, err = marshalJSON(r.Metadata); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if out.PolicySnapshot, err = marshalJSON(r.PolicySnapshot); err != nil {
		return nil, fmt.Errorf("encode policy snapshot: %w", err)
	}
	return out, nil
}

func (m *RMAMapper) ToEntity(r *model.RMA) (*entity.RMA, error) {
	if r == nil {
		return nil, nil
	}

	out := &entity.RMA{
		ID:               r.ID,
		RMANumber:        r.RMANumber,
		CompanyID:        r.CompanyID,
		CustomerID:       r.CustomerID,
		CustomerEmail:    r.CustomerEmail,
		OrderID:          r.OrderID,
		SupportSessionID: r.SupportSessionID,
		Type:             entity.RMAType(r.Type),
		Reason:           entity.ReturnReason(r.Reason),
		ReasonDetails:    r.ReasonDetails,
		Status:           entity.RMAStatus(r.Status),
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		ExpiresAt:        r.ExpiresAt,
		CompletedAt:      r.CompletedAt,
	}

	if err := unmarshalJSON(r.Items, &out.Items); err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", r.ID, err)
	}
	if err := unmarshalJSON(r.Shipping, &out.Shipping); err != nil {
		return nil, fmt.Errorf("decode shipping of %s: %w", r.ID, err)
	}
	if err := unmarshalJSON(r.Inspection, &out.Inspection); err != nil {
		return nil, fmt.Errorf("decode inspection of %s: %w", r.ID, err)
	}
	if err := unmarshalJSON(r.Resolution, &out.Resolution); err != nil {
		return nil, fmt.Errorf("decode resolution of %s: %w", r.ID, err)
	}
	if err := unmarshalJSON(r.Timeline, &out.Timeline); err != nil {
		return nil, fmt.Errorf("decode timeline of %s: %w", r.ID, err)
	}
	if err := unmarshalJSON(r.Metadata, &out.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata of %s: %w", r.ID, err)
	}
	if err := unmarshalJSON(r.PolicySnapshot, &out.PolicySnapshot); err != nil {
		return nil, fmt.Errorf("decode policy snapshot of %s: %w", r.ID, err)
	}
	return out, nil
}

func (m *RMAMapper) PolicyToModel(p *entity.RMAPolicy) (*model.RMAPolicy, error) {
	doc, err := marshalJSON(p)
	if err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	return &model.RMAPolicy{
		CompanyID: p.CompanyID,
		Enabled:   p.Enabled,
		Document:  doc,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

func (m *RMAMapper) PolicyToEntity(p *model.RMAPolicy) (*entity.RMAPolicy, error) {
	var out entity.RMAPolicy
	if err := json.Unmarshal(p.Document, &out); err != nil {
		return nil, apperror.ErrInvalidPolicy.With("policy of company %s could not be decoded", p.CompanyID).Wrap(err)
	}
	// Columns win over the document so an operator toggle on the row is honoured.
	out.CompanyID = p.CompanyID
	out.Enabled = p.Enabled
	out.IsDefault = false
	out.UpdatedAt = p.UpdatedAt
	return &out, nil
}

func (m *RMAMapper) OrderToModel(o *entity.Order) (*model.Order, error) {
	items, err := marshalJSON(o.ItemIDs)
	if err != nil {
		return nil, err
	}
	return &model.Order{
		ID:          o.ID,
		CompanyID:   o.CompanyID,
		CustomerID:  o.CustomerID,
		PlacedAt:    o.PlacedAt,
		DeliveredAt: o.DeliveredAt,
		ItemIDs:     items,
	}, nil
}

func (m *RMAMapper) OrderToEntity(o *model.Order) (*entity.Order, error) {
	out := &entity.Order{
		ID:          o.ID,
		CompanyID:   o.CompanyID,
		CustomerID:  o.CustomerID,
		PlacedAt:    o.PlacedAt,
		DeliveredAt: o.DeliveredAt,
	}
	if err := unmarshalJSON(o.ItemIDs, &out.ItemIDs); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	return out, nil
}
