package cache

import (
	"context"
	"time"

	"scanpos/internal/domain"
)

// ReportCache keeps generated sales reports for a short TTL so repeated views
// of the same period do not re-scan the full bill history. It is advisory:
// a miss or error always falls through to a fresh aggregation.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.SalesReport, bool, error)
	Set(ctx context.Context, key string, report *domain.SalesReport, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.SalesReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.SalesReport, _ time.Duration) error {
	return nil
}
