package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"scanpos/internal/domain"
	"scanpos/internal/store"
)

// SalesReport aggregates the bill history over the calendar bucket that
// contains the reference date: that day, the Sunday-start week, the month, or
// the year. Buckets come from the local calendar because bills are stamped
// with wall-clock time at checkout.
func (s *Service) SalesReport(ctx context.Context, period domain.ReportPeriod, at time.Time) (domain.SalesReport, error) {
	switch period {
	case domain.PeriodDaily, domain.PeriodWeekly, domain.PeriodMonthly, domain.PeriodYearly:
	default:
		return domain.SalesReport{}, fmt.Errorf("%w: unknown report period %q", store.ErrValidation, period)
	}
	if at.IsZero() {
		at = time.Now()
	}

	// The key is derived from the bucket start so every reference date inside
	// the same week, month or year hits the same cache entry.
	bucketStart, _ := periodBounds(period, at)
	cacheKey := fmt.Sprintf("report:%s:%s", period, bucketStart.Format("2006-01-02"))
	if cached, found, err := s.reportCache.Get(ctx, cacheKey); err != nil {
		log.Printf("[service] WARN: report cache read failed: %v", err)
	} else if found {
		return *cached, nil
	}

	bills, err := s.records.Bills(ctx)
	if err != nil {
		return domain.SalesReport{}, err
	}

	from, to := periodBounds(period, at)

	itemsByID := make(map[string]*domain.ReportItem)
	order := make([]string, 0)
	report := domain.SalesReport{Period: periodLabel(period, at)}
	for _, bill := range bills {
		billedAt := bill.Time()
		if billedAt.Before(from) || !billedAt.Before(to) {
			continue
		}
		report.TotalSales = round2(report.TotalSales + bill.Total)
		for _, line := range bill.Items {
			report.TotalItems += line.Quantity
			agg, exists := itemsByID[line.ID]
			if !exists {
				agg = &domain.ReportItem{ID: line.ID, Name: line.Name}
				itemsByID[line.ID] = agg
				order = append(order, line.ID)
			}
			agg.Quantity += line.Quantity
			agg.TotalSales = round2(agg.TotalSales + line.Total)
		}
	}

	report.Items = make([]domain.ReportItem, 0, len(order))
	for _, id := range order {
		report.Items = append(report.Items, *itemsByID[id])
	}
	sort.SliceStable(report.Items, func(i, j int) bool {
		return report.Items[i].TotalSales > report.Items[j].TotalSales
	})

	if err := s.reportCache.Set(ctx, cacheKey, &report, s.reportTTL); err != nil {
		log.Printf("[service] WARN: report cache write failed: %v", err)
	}

	return report, nil
}

// periodBounds returns the half-open [from, to) window for the bucket
// containing at. Weeks start on Sunday.
func periodBounds(period domain.ReportPeriod, at time.Time) (time.Time, time.Time) {
	loc := at.Location()
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, loc)

	switch period {
	case domain.PeriodWeekly:
		from := day.AddDate(0, 0, -int(day.Weekday()))
		return from, from.AddDate(0, 0, 7)
	case domain.PeriodMonthly:
		from := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(0, 1, 0)
	case domain.PeriodYearly:
		from := time.Date(at.Year(), 1, 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(1, 0, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}

func periodLabel(period domain.ReportPeriod, at time.Time) string {
	switch period {
	case domain.PeriodWeekly:
		from, to := periodBounds(domain.PeriodWeekly, at)
		last := to.AddDate(0, 0, -1)
		return from.Format("Jan 2") + " - " + last.Format("Jan 2, 2006")
	case domain.PeriodMonthly:
		return at.Format("January 2006")
	case domain.PeriodYearly:
		return at.Format("2006")
	default:
		return at.Format("January 2, 2006")
	}
}
