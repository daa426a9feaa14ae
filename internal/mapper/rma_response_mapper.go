package mapper

import (
	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
)

// ToRMAResponse renders an RMA for the HTTP API. The policy snapshot stays internal.
func (m *RMAMapper) ToRMAResponse(r *entity.RMA) *dto.RMAResponse {
	if r == nil {
		return nil
	}

	res := &dto.RMAResponse{
		ID:               r.ID,
		RMANumber:        r.RMANumber,
		CompanyID:        r.CompanyID,
		CustomerID:       r.CustomerID,
		OrderID:          r.OrderID,
		SupportSessionID: r.SupportSessionID,
		Type:             string(r.Type),
		Reason:           string(r.Reason),
		ReasonDetails:    r.ReasonDetails,
		Status:           string(r.Status),
		Items:            make([]dto.RMAItemResponse, 0, len(r.Items)),
		Shipping: dto.RMAShippingResponse{
			Method:         r.Shipping.Method,
			Carrier:        r.Shipping.Carrier,
			TrackingNumber: r.Shipping.TrackingNumber,
			TrackingURL:    r.Shipping.TrackingURL,
			LabelURL:       r.Shipping.LabelURL,
			Prepaid:        r.Shipping.Prepaid,
			LabelStatus:    string(r.Shipping.LabelStatus),
			LabelError:     r.Shipping.LabelError,
			LabelSentAt:    r.Shipping.LabelSentAt,
			ShippedAt:      r.Shipping.ShippedAt,
			DeliveredAt:    r.Shipping.DeliveredAt,
		},
		Timeline:    make([]dto.RMATimelineResponse, 0, len(r.Timeline)),
		Metadata:    r.Metadata,
		TotalValue:  r.TotalValue(),
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		ExpiresAt:   r.ExpiresAt,
		CompletedAt: r.CompletedAt,
	}

	for _, it := range r.Items {
		item := dto.RMAItemResponse{
			ID:            it.ID,
			OrderItemID:   it.OrderItemID,
			ProductID:     it.ProductID,
			ProductName:   it.ProductName,
			SKU:           it.SKU,
			Category:      it.Category,
			Price:         it.Price,
			Quantity:      it.Quantity,
			Reason:        string(it.Reason),
			ReasonDetails: it.ReasonDetails,
			Photos:        it.Photos,
		}
		if it.Inspection != nil {
			item.Inspection = &dto.RMAItemInspectionResponse{
				Condition:        string(it.Inspection.Condition),
				Result:           string(it.Inspection.Result),
				RefundEligible:   it.Inspection.RefundEligible,
				RefundPercentage: it.Inspection.RefundPercentage,
				Photos:           it.Inspection.Photos,
				Notes:            it.Inspection.Notes,
				InspectedBy:      it.Inspection.InspectedBy,
				InspectedAt:      it.Inspection.InspectedAt,
			}
		}
		if it.Disposition != nil {
			item.Disposition = &dto.RMAItemDispositionResponse{
				Action:    string(it.Disposition.Action),
				Notes:     it.Disposition.Notes,
				DecidedAt: it.Disposition.DecidedAt,
			}
		}
		res.Items = append(res.Items, item)
	}

	if r.Inspection != nil {
		res.Inspection = &dto.RMAInspectionResponse{
			Result:      string(r.Inspection.Result),
			InspectedBy: r.Inspection.InspectedBy,
			Notes:       r.Inspection.Notes,
			StartedAt:   r.Inspection.StartedAt,
			CompletedAt: r.Inspection.CompletedAt,
		}
	}

	if r.Resolution.Type != "" {
		res.Resolution = toResolutionResponse(r.Resolution)
	}

	for _, e := range r.Timeline {
		res.Timeline = append(res.Timeline, dto.RMATimelineResponse{
			Status:    string(e.Status),
			Timestamp: e.Timestamp,
			ActorType: string(e.ActorType),
			ActorID:   e.ActorID,
			Notes:     e.Notes,
			Metadata:  e.Metadata,
		})
	}
	return res
}

func toResolutionResponse(r entity.Resolution) *dto.RMAResolutionResponse {
	res := &dto.RMAResolutionResponse{
		Type:          string(r.Type),
		Status:        string(r.Status),
		FailureReason: r.FailureReason,
		ProcessedAt:   r.ProcessedAt,
	}
	if r.Refund != nil {
		res.RefundAmount = r.Refund.Amount
		res.RefundMethod = r.Refund.Method
		res.RestockingFee = r.Refund.RestockingFee
		res.TransactionRef = r.Refund.TransactionRef
	}
	if r.Exchange != nil {
		for _, it := range r.Exchange.Items {
			res.ExchangeItems = append(res.ExchangeItems, dto.ExchangeItemRequest{
				ProductID: it.ProductID,
				SKU:       it.SKU,
				Name:      it.Name,
				Quantity:  it.Quantity,
				Price:     it.Price,
			})
		}
		res.AdditionalPayment = r.Exchange.AdditionalPayment
		if res.TransactionRef == "" {
			res.TransactionRef = r.Exchange.OrderRef
		}
	}
	if r.StoreCredit != nil {
		res.StoreCreditAmount = r.StoreCredit.Amount
		res.StoreCreditCode = r.StoreCredit.Code
		res.StoreCreditExpiry = r.StoreCredit.ExpiresAt
	}
	return res
}

// ToRMAResponses renders a page of RMAs.
func (m *RMAMapper) ToRMAResponses(items []*entity.RMA) []dto.RMAResponse {
	out := make([]dto.RMAResponse, 0, len(items))
	for _, r := range items {
		out = append(out, *m.ToRMAResponse(r))
	}
	return out
}
