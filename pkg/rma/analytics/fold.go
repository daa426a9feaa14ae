package analytics

import (
	"sort"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/repository/contract"
)

type productAcc struct {
	name    string
	count   int
	value   float64
	reasons map[string]int
}

// fold accumulates the per-item figures of one streamed period.
type fold struct {
	items          int
	completed      int
	processingDays float64

	inspected     int
	passed        int
	byCondition   map[string]int
	byDisposition map[string]int

	refunded      float64
	storeCredit   float64
	failedResolve int

	transitDays  float64
	transits     int
	delivered    int
	prepaid      int
	customerPaid int
	byCarrier    map[string]int

	products     map[string]*productAcc
	defectRMAs   int
	defectGroups map[string]int

	anomalies int
}

func newFold() *fold {
	return &fold{
		byCondition:   make(map[string]int),
		byDisposition: make(map[string]int),
		byCarrier:     make(map[string]int),
		products:      make(map[string]*productAcc),
		defectGroups:  make(map[string]int),
	}
}

func (f *fold) add(rma *entity.RMA) {
	if rma.CompletedAt != nil {
		f.completed++
		f.processingDays += rma.CompletedAt.Sub(rma.CreatedAt).Hours() / 24
	}

	defect := isDefect(rma.Reason)
	for _, item := range rma.Items {
		f.items += item.Quantity
		f.addProduct(item)

		if item.Inspection != nil {
			f.inspected++
			if item.Inspection.Result == entity.InspectionPassed {
				f.passed++
			}
			f.byCondition[string(item.Inspection.Condition)]++
		}
		if item.Disposition != nil {
			f.byDisposition[string(item.Disposition.Action)]++
		}
		if isDefect(item.Reason) {
			defect = true
			f.defectGroups[defectKey(item)]++
		}
	}
	if defect {
		f.defectRMAs++
	}

	res := rma.Resolution
	switch res.Status {
	case entity.ResolutionCompleted:
		if res.Refund != nil {
			f.refunded += res.Refund.Amount
		}
		if res.StoreCredit != nil {
			f.storeCredit += res.StoreCredit.Amount
		}
	case entity.ResolutionFailed:
		f.failedResolve++
	}

	s := rma.Shipping
	if s.DeliveredAt != nil {
		f.delivered++
		start := s.ShippedAt
		if start == nil {
			start = s.LabelSentAt
		}
		if start != nil {
			f.transits++
			f.transitDays += s.DeliveredAt.Sub(*start).Hours() / 24
		}
	}
	if s.LabelStatus == entity.LabelCreated {
		if s.Prepaid {
			f.prepaid++
		} else {
			f.customerPaid++
		}
		if s.Carrier != "" {
			f.byCarrier[s.Carrier]++
		}
	}
}

func (f *fold) addProduct(item entity.RMAItem) {
	p, ok := f.products[item.ProductID]
	if !ok {
		p = &productAcc{name: item.ProductName, reasons: make(map[string]int)}
		f.products[item.ProductID] = p
	}
	p.count += item.Quantity
	p.value += item.Price * float64(item.Quantity)
	if item.Reason != "" {
		p.reasons[string(item.Reason)]++
	}
}

func (f *fold) inspection() dto.InspectionStats {
	return dto.InspectionStats{
		Inspected:     f.inspected,
		Passed:        f.passed,
		PassRate:      pct(float64(f.passed), float64(f.inspected)),
		ByCondition:   f.byCondition,
		ByDisposition: f.byDisposition,
	}
}

func (f *fold) resolution(byType []contract.GroupRow) dto.ResolutionStats {
	return dto.ResolutionStats{
		ByType:           countValues(byType),
		TotalRefunded:    round(f.refunded),
		TotalStoreCredit: round(f.storeCredit),
		Failed:           f.failedResolve,
	}
}

func (f *fold) shipping() dto.ShippingStats {
	s := dto.ShippingStats{
		Delivered:          f.delivered,
		PrepaidLabels:      f.prepaid,
		CustomerPaidLabels: f.customerPaid,
		ByCarrier:          f.byCarrier,
	}
	if f.transits > 0 {
		s.AvgTransitDays = round(f.transitDays / float64(f.transits))
	}
	return s
}

func (f *fold) topProducts() []dto.ProductStat {
	out := make([]dto.ProductStat, 0, len(f.products))
	for id, p := range f.products {
		out = append(out, dto.ProductStat{
			ProductID:   id,
			ProductName: p.name,
			Count:       p.count,
			Value:       round(p.value),
			TopReasons:  topKeys(p.reasons, topReasonsPerItem),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > topProductLimit {
		out = out[:topProductLimit]
	}
	return out
}

func (f *fold) quality(totalRMAs int) dto.QualityInsights {
	q := dto.QualityInsights{
		DefectRate:          pct(float64(f.defectRMAs), float64(totalRMAs)),
		TopDefectCategories: make([]dto.DefectCategory, 0),
	}
	for _, key := range topKeys(f.defectGroups, topDefectLimit) {
		q.TopDefectCategories = append(q.TopDefectCategories, dto.DefectCategory{Category: key, Count: f.defectGroups[key]})
	}
	return q
}
