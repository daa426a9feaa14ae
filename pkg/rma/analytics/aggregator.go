package analytics

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/pkg/logger"
	"rma-engine-be/internal/repository/contract"
	"rma-engine-be/internal/repository/unitofwork"
	"rma-engine-be/pkg/apperror"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWindow     = 30 * 24 * time.Hour
	topProductLimit   = 10
	topReasonsPerItem = 3
	topDefectLimit    = 5
)

// DateRange bounds the creation time of the RMAs being reported on. Both ends
// are inclusive.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Aggregator builds the analytics report. Grouped counts come from the store;
// item-level figures are folded over a batched stream.
type Aggregator struct {
	batchSize int
	logger    logger.ILogger
	now       func() time.Time
}

func NewAggregator(batchSize int, logger logger.ILogger) *Aggregator {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Aggregator{batchSize: batchSize, logger: logger, now: time.Now}
}

func (a *Aggregator) normalize(r DateRange) (DateRange, error) {
	if r.To.IsZero() {
		r.To = a.now()
	}
	if r.From.IsZero() {
		r.From = r.To.Add(-defaultWindow)
	}
	if r.From.After(r.To) {
		return r, apperror.InvalidInput("from", "must not be after to")
	}
	return r, nil
}

// prior is the period of equal length that ends just before r starts.
func prior(r DateRange) DateRange {
	span := r.To.Sub(r.From)
	to := r.From.Add(-time.Microsecond)
	return DateRange{From: to.Add(-span), To: to}
}

func filterFor(companyID uuid.UUID, r DateRange) contract.RMAFilter {
	from, to := r.From, r.To
	return contract.RMAFilter{CompanyID: companyID, CreatedFrom: &from, CreatedTo: &to}
}

// GetAnalytics reports on the company's RMAs created within r, compared with
// the preceding period of the same length.
func (a *Aggregator) GetAnalytics(ctx context.Context, uow unitofwork.UnitOfWork, companyID uuid.UUID, r DateRange) (*dto.RMAAnalytics, error) {
	r, err := a.normalize(r)
	if err != nil {
		return nil, err
	}
	current := filterFor(companyID, r)
	previous := filterFor(companyID, prior(r))
	repo := uow.RMARepository()

	var byStatus, byType, byReason, byResolution, daily, priorReasons []contract.GroupRow
	var orders int64
	var folded *fold

	g, gctx := errgroup.WithContext(ctx)
	group := func(filter contract.RMAFilter, dim contract.GroupDimension, dst *[]contract.GroupRow) {
		g.Go(func() error {
			rows, err := repo.GroupBy(gctx, filter, dim)
			if err != nil {
				return err
			}
			*dst = rows
			return nil
		})
	}
	group(current, contract.GroupByStatus, &byStatus)
	group(current, contract.GroupByType, &byType)
	group(current, contract.GroupByReason, &byReason)
	group(current, contract.GroupByResolutionType, &byResolution)
	group(current, contract.GroupByDay, &daily)
	group(previous, contract.GroupByReason, &priorReasons)

	g.Go(func() error {
		n, err := uow.OrderRepository().CountByCompany(gctx, companyID, r.From, r.To)
		if err != nil {
			return err
		}
		orders = n
		return nil
	})
	g.Go(func() error {
		f := newFold()
		skipped, err := repo.Stream(gctx, current, a.batchSize, func(batch []*entity.RMA) error {
			for _, rma := range batch {
				f.add(rma)
			}
			return nil
		})
		if err != nil {
			return err
		}
		f.anomalies = skipped
		folded = f
		return nil
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("ANALYTICS", "Failed to build analytics", map[string]interface{}{
			"company_id": companyID.String(),
			"error":      err.Error(),
		})
		return nil, apperror.DependencyFailure("analytics store", err)
	}
	if folded.anomalies > 0 {
		a.logger.Warn("ANALYTICS", "Skipped unreadable RMA records", map[string]interface{}{
			"company_id": companyID.String(),
			"skipped":    folded.anomalies,
		})
	}

	out := &dto.RMAAnalytics{
		Period:      dto.AnalyticsPeriod{From: r.From, To: r.To},
		ByStatus:    countValues(byStatus),
		ByType:      countValues(byType),
		ByReason:    reasonStats(byReason, priorReasons),
		Daily:       dailyPoints(daily),
		Inspection:  folded.inspection(),
		Shipping:    folded.shipping(),
		TopProducts: folded.topProducts(),
		Anomalies:   folded.anomalies,
	}
	out.Overview = overview(byStatus, orders, folded)
	out.Resolution = folded.resolution(byResolution)
	out.Quality = folded.quality(out.Overview.TotalRMAs)
	return out, nil
}

// pct returns part/whole as a percentage, or 0 when whole is 0.
func pct(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return round(part / whole * 100)
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func countValues(rows []contract.GroupRow) map[string]dto.CountValue {
	out := make(map[string]dto.CountValue, len(rows))
	for _, row := range rows {
		if row.Key == "" {
			continue
		}
		out[row.Key] = dto.CountValue{Count: row.Count, Value: round(row.Value)}
	}
	return out
}

func overview(byStatus []contract.GroupRow, orders int64, f *fold) dto.RMAOverview {
	var total, declined int
	var value float64
	for _, row := range byStatus {
		total += row.Count
		value += row.Value
		switch entity.RMAStatus(row.Key) {
		case entity.RMAStatusRejected, entity.RMAStatusCancelled:
			declined += row.Count
		}
	}

	o := dto.RMAOverview{
		TotalRMAs:    total,
		TotalItems:   f.items,
		TotalValue:   round(value),
		ApprovalRate: pct(float64(total-declined), float64(total)),
		ReturnRate:   pct(float64(total), float64(orders)),
		TotalOrders:  orders,
	}
	if f.completed > 0 {
		o.AvgProcessingTimeDays = round(f.processingDays / float64(f.completed))
	}
	return o
}

func reasonStats(current, previous []contract.GroupRow) []dto.ReasonStat {
	before := make(map[string]int, len(previous))
	for _, row := range previous {
		before[row.Key] = row.Count
	}

	out := make([]dto.ReasonStat, 0, len(current))
	for _, row := range current {
		if row.Key == "" {
			continue
		}
		stat := dto.ReasonStat{Reason: row.Key, Count: row.Count, Value: round(row.Value)}
		if row.Count > 0 {
			stat.AvgValue = round(row.Value / float64(row.Count))
		}
		if prev := before[row.Key]; prev > 0 {
			stat.Trend = round(float64(row.Count-prev) / float64(prev) * 100)
		} else if row.Count > 0 {
			stat.Trend = 100
		}
		out = append(out, stat)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

func dailyPoints(rows []contract.GroupRow) []dto.DailyPoint {
	out := make([]dto.DailyPoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.DailyPoint{Date: row.Key, Count: row.Count, Value: round(row.Value)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func defectKey(item entity.RMAItem) string {
	details := strings.ToLower(strings.TrimSpace(item.ReasonDetails))
	if details != "" {
		return strings.Join(strings.Fields(details), " ")
	}
	if item.Category != "" {
		return strings.ToLower(item.Category)
	}
	return "unspecified"
}

func isDefect(reason entity.ReturnReason) bool {
	return reason == entity.ReasonDefective || reason == entity.ReasonQualityIssue
}

// topKeys returns up to n keys of counts ordered by count, then key.
func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
