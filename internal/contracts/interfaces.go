package contracts

import (
	"context"
	"time"
)

// TradingCalendar is the trading-day oracle. Implementations must return an
// error (wrapping ErrDataUnavailable) when the answer is unknown; callers
// never treat a failed lookup as a trading day.
type TradingCalendar interface {
	IsTradingDay(ctx context.Context, d time.Time) (bool, error)
	HolidayName(ctx context.Context, d time.Time) (string, error)
	NextTradingDayAfter(ctx context.Context, d time.Time) (time.Time, error)
}

// SnapshotProvider fetches the realtime market aggregate the guard needs.
// The guard treats any error, including a context deadline, as a block.
type SnapshotProvider interface {
	FetchAggregateStats(ctx context.Context) (*MarketSnapshot, error)
}

// MetricsSource is the per-listing financial data feed used by the scanner.
type MetricsSource interface {
	// FetchLatestMetrics returns the most recent annual report. Fields the
	// upstream has no data for are nil.
	FetchLatestMetrics(ctx context.Context, code string) (*FinancialMetrics, error)

	// FetchProfitHistory returns up to years annual net-profit rows,
	// latest first.
	FetchProfitHistory(ctx context.Context, code string, years int) ([]ProfitPeriod, error)
}
