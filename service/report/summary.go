package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	billingEntity "backoffice.GO/model/entity/billing"
	inventoryEntity "backoffice.GO/model/entity/inventory"
)

type salesSummary struct {
	Count int64
	Total decimal.Decimal
}

func (s *Service) salesBetween(ctx context.Context, from, to time.Time) (salesSummary, error) {
	var out salesSummary
	err := s.db.WithContext(ctx).Model(&billingEntity.Invoice{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Where("created_at >= ? AND created_at < ? AND status <> ?", from, to, billingEntity.InvoiceCancelled).
		Scan(&out).Error
	out.Total = out.Total.RoundBank(2)
	return out, err
}

func (s *Service) reservationsBetween(ctx context.Context, from, to time.Time) (map[billingEntity.ReservationStatus]int64, error) {
	rows, err := s.db.WithContext(ctx).Model(&billingEntity.Reservation{}).
		Select("status, COUNT(*)").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("status").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[billingEntity.ReservationStatus]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[billingEntity.ReservationStatus(status)] = n
	}
	return out, rows.Err()
}

type periodFigures struct {
	sales        salesSummary
	reservations map[billingEntity.ReservationStatus]int64
	units        map[inventoryEntity.MovementType]int64
	best         []productSales
}

// period runs the independent aggregate queries for [from, to) in parallel.
func (s *Service) period(ctx context.Context, from, to time.Time, bestSellers int) (*periodFigures, error) {
	var f periodFigures
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		f.sales, err = s.salesBetween(egCtx, from, to)
		return err
	})
	eg.Go(func() error {
		var err error
		f.reservations, err = s.reservationsBetween(egCtx, from, to)
		return err
	})
	eg.Go(func() error {
		var err error
		f.units, err = s.movements.TotalsByType(egCtx, from, to)
		return err
	})
	if bestSellers > 0 {
		eg.Go(func() error {
			var err error
			f.best, err = s.productSales(egCtx, Params{DateFrom: from, DateTo: to, Limit: bestSellers}, false)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &f, nil
}

func sumCounts(m map[billingEntity.ReservationStatus]int64) int64 {
	var n int64
	for _, v := range m {
		n += v
	}
	return n
}

func (s *Service) daily(ctx context.Context, p Params) (*Result, error) {
	day := p.Date
	if day.IsZero() {
		day = s.now()
	}
	from := truncateDay(day)
	to := from.AddDate(0, 0, 1)
	f, err := s.period(ctx, from, to, 0)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind: KindDaily,
		Columns: []string{"date", "sales_count", "total_sales", "reservations_count",
			"units_in", "units_out", "units_adjusted", "units_reserved"},
		Rows: []Row{{
			"date":               from.Format(dateLayout),
			"sales_count":        f.sales.Count,
			"total_sales":        f.sales.Total,
			"reservations_count": sumCounts(f.reservations),
			"units_in":           f.units[inventoryEntity.MovementIn],
			"units_out":          f.units[inventoryEntity.MovementOut],
			"units_adjusted":     f.units[inventoryEntity.MovementAdjust],
			"units_reserved":     f.units[inventoryEntity.MovementReserve],
		}},
	}, nil
}

func (s *Service) monthly(ctx context.Context, p Params) (*Result, error) {
	month := p.Month
	if month == "" {
		month = s.now().Format("2006-01")
	}
	start, err := time.ParseInLocation("2006-01", month, time.UTC)
	if err != nil {
		return nil, err
	}
	end := start.AddDate(0, 1, 0)
	f, err := s.period(ctx, start, end, 1)
	if err != nil {
		return nil, err
	}
	avg := decimal.Zero
	if f.sales.Count > 0 {
		avg = f.sales.Total.Div(decimal.NewFromInt(f.sales.Count)).RoundBank(2)
	}
	best := ""
	if len(f.best) > 0 {
		best = f.best[0].Name
	}
	return &Result{
		Kind: KindMonthly,
		Columns: []string{"month", "sales_count", "total_sales", "average_ticket", "reservations_count",
			"reservations_completed", "reservations_expired", "units_out", "best_seller"},
		Rows: []Row{{
			"month":                  month,
			"sales_count":            f.sales.Count,
			"total_sales":            f.sales.Total,
			"average_ticket":         avg,
			"reservations_count":     sumCounts(f.reservations),
			"reservations_completed": f.reservations[billingEntity.ReservationCompleted],
			"reservations_expired":   f.reservations[billingEntity.ReservationExpired],
			"units_out":              f.units[inventoryEntity.MovementOut],
			"best_seller":            best,
		}},
	}, nil
}
