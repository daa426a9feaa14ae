package dto

import "time"

type AnalyticsRequest struct {
	From string `query:"from"`
	To   string `query:"to"`
}

type AnalyticsPeriod struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type RMAOverview struct {
	TotalRMAs  int     `json:"total_rmas"`
	TotalItems int     `json:"total_items"`
	TotalValue float64 `json:"total_value"`
	// Rates are percentages in [0, 100], not ratios.
	ApprovalRate          float64 `json:"approval_rate_pct"`
	AvgProcessingTimeDays float64 `json:"avg_processing_time_days"`
	ReturnRate            float64 `json:"return_rate_pct"`
	TotalOrders           int64   `json:"total_orders"`
}

type CountValue struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type ReasonStat struct {
	Reason   string  `json:"reason"`
	Count    int     `json:"count"`
	Value    float64 `json:"value"`
	AvgValue float64 `json:"avg_value"`
	// Trend is the percent change in count against the prior period.
	Trend float64 `json:"trend"`
}

type InspectionStats struct {
	Inspected     int            `json:"inspected"`
	Passed        int            `json:"passed"`
	PassRate      float64        `json:"pass_rate_pct"`
	ByCondition   map[string]int `json:"by_condition"`
	ByDisposition map[string]int `json:"by_disposition"`
}

type ResolutionStats struct {
	ByType           map[string]CountValue `json:"by_type"`
	TotalRefunded    float64               `json:"total_refunded"`
	TotalStoreCredit float64               `json:"total_store_credit"`
	Failed           int                   `json:"failed"`
}

type ShippingStats struct {
	AvgTransitDays     float64        `json:"avg_transit_days"`
	Delivered          int            `json:"delivered"`
	PrepaidLabels      int            `json:"prepaid_labels"`
	CustomerPaidLabels int            `json:"customer_paid_labels"`
	ByCarrier          map[string]int `json:"by_carrier"`
}

type DailyPoint struct {
	Date  string  `json:"date"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type ProductStat struct {
	ProductID   string   `json:"product_id"`
	ProductName string   `json:"product_name"`
	Count       int      `json:"count"`
	Value       float64  `json:"value"`
	TopReasons  []string `json:"top_reasons"`
}

type DefectCategory struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type QualityInsights struct {
	DefectRate          float64          `json:"defect_rate_pct"`
	TopDefectCategories []DefectCategory `json:"top_defect_categories"`
}

type RMAAnalytics struct {
	Period      AnalyticsPeriod       `json:"period"`
	Overview    RMAOverview           `json:"overview"`
	ByStatus    map[string]CountValue `json:"by_status"`
	ByType      map[string]CountValue `json:"by_type"`
	ByReason    []ReasonStat          `json:"by_reason"`
	Inspection  InspectionStats       `json:"inspection"`
	Resolution  ResolutionStats       `json:"resolution"`
	Shipping    ShippingStats         `json:"shipping"`
	Daily       []DailyPoint          `json:"daily"`
	TopProducts []ProductStat         `json:"top_products"`
	Quality     QualityInsights       `json:"quality"`
	// Anomalies counts records skipped because they could not be read.
	Anomalies int `json:"anomalies"`
}
