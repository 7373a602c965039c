// Package store holds the engine's Postgres repositories: the trading-day
// oracle and the scan universe.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/pkg/redis"
)

const dateLayout = "2006-01-02"

// nextOpenSearchWindow bounds the forward scan for the next trading day.
const nextOpenSearchWindow = 30

// CalendarRepository implements contracts.TradingCalendar on the
// trading_calendar table. The sync job writes a row for every day of each
// synced year, so a missing row means the year is not synced: the lookup
// fails closed with ErrDataUnavailable instead of guessing from the weekday.
type CalendarRepository struct {
	pool  *pgxpool.Pool
	cache *redis.Cache
}

// NewCalendarRepository creates the oracle. cache may be nil; lookups then
// hit Postgres directly.
func NewCalendarRepository(pool *pgxpool.Pool, cache *redis.Cache) *CalendarRepository {
	return &CalendarRepository{pool: pool, cache: cache}
}

// day loads one calendar row, redis-cached by date key.
func (r *CalendarRepository) day(ctx context.Context, d time.Time) (*contracts.TradingDay, error) {
	date := d.Format(dateLayout)
	cacheKey := "calendar:" + date

	var td contracts.TradingDay
	if r.cache != nil {
		if hit, err := r.cache.Get(ctx, cacheKey, &td); err == nil && hit {
			return &td, nil
		}
	}

	err := r.pool.QueryRow(ctx,
		`SELECT is_trading_day, holiday_name FROM trading_calendar WHERE day = $1`,
		date,
	).Scan(&td.IsTradingDay, &td.HolidayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("trading calendar has no entry for %s: %w",
			date, contracts.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("trading calendar lookup %s: %w: %v",
			date, contracts.ErrDataUnavailable, err)
	}
	td.Date = date

	if r.cache != nil {
		_ = r.cache.Set(ctx, cacheKey, &td, redis.TTLDay)
	}
	return &td, nil
}

// IsTradingDay reports whether d is a trading day.
func (r *CalendarRepository) IsTradingDay(ctx context.Context, d time.Time) (bool, error) {
	td, err := r.day(ctx, d)
	if err != nil {
		return false, err
	}
	return td.IsTradingDay, nil
}

// HolidayName returns the gazetted holiday name for d, empty for ordinary
// weekends and trading days.
func (r *CalendarRepository) HolidayName(ctx context.Context, d time.Time) (string, error) {
	td, err := r.day(ctx, d)
	if err != nil {
		return "", err
	}
	return td.HolidayName, nil
}

// NextTradingDayAfter returns the earliest trading day strictly after d.
func (r *CalendarRepository) NextTradingDayAfter(ctx context.Context, d time.Time) (time.Time, error) {
	cur := d
	for i := 0; i < nextOpenSearchWindow; i++ {
		cur = cur.AddDate(0, 0, 1)
		trading, err := r.IsTradingDay(ctx, cur)
		if err != nil {
			return time.Time{}, err
		}
		if trading {
			return cur, nil
		}
	}
	return time.Time{}, fmt.Errorf("no trading day within %d days after %s: %w",
		nextOpenSearchWindow, d.Format(dateLayout), contracts.ErrDataUnavailable)
}

// UpsertDays writes calendar rows in one batch; used by the sync job.
func (r *CalendarRepository) UpsertDays(ctx context.Context, days []contracts.TradingDay) error {
	batch := &pgx.Batch{}
	for _, td := range days {
		batch.Queue(`
			INSERT INTO trading_calendar (day, is_trading_day, holiday_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (day) DO UPDATE SET
				is_trading_day = EXCLUDED.is_trading_day,
				holiday_name = EXCLUDED.holiday_name`,
			td.Date, td.IsTradingDay, td.HolidayName,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range days {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert calendar days: %w", err)
		}
	}
	return nil
}

// SyncedYears returns the years that have full calendar coverage.
func (r *CalendarRepository) SyncedYears(ctx context.Context) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT EXTRACT(YEAR FROM day)::int AS y
		FROM trading_calendar
		GROUP BY y
		HAVING COUNT(*) >= 365
		ORDER BY y`)
	if err != nil {
		return nil, fmt.Errorf("synced years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}
