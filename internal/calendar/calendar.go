// Package calendar computes the recurring monthly settlement dates and rolls
// them back to valid trading days.
//
// 股指期货交割日 = 每月第三个周五；ETF 期权结算日 = 每月第四个周三。
// 遇非交易日回退到前一个交易日。
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/junzhu/tidegate/backend/internal/contracts"
)

// rollbackWindow bounds the backward search for a trading day. A rollback
// that walks further than this indicates missing calendar data and fails
// with ErrCalendarDataGap instead of returning an arbitrary date.
const rollbackWindow = 10

// Calendar computes settlement cycles on top of the trading-day oracle.
// Pure apart from oracle lookups; safe for concurrent use.
type Calendar struct {
	oracle contracts.TradingCalendar
}

// New creates a Calendar.
func New(oracle contracts.TradingCalendar) *Calendar {
	return &Calendar{oracle: oracle}
}

// NthWeekday returns the n-th occurrence of weekday in the given month.
// It errors when that occurrence falls outside the month.
func NthWeekday(year int, month time.Month, weekday time.Weekday, n int, loc *time.Location) (time.Time, error) {
	if n < 1 {
		return time.Time{}, fmt.Errorf("ordinal must be >= 1, got %d", n)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	result := first.AddDate(0, 0, offset+(n-1)*7)

	if result.Month() != month {
		return time.Time{}, fmt.Errorf("%d-%02d has no %d%s %s",
			year, month, n, ordinalSuffix(n), weekday)
	}
	return result, nil
}

func ordinalSuffix(n int) string {
	switch n {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// RollbackToTradingDay steps backward one day at a time until the oracle
// reports a trading day. Returns the date and whether it moved.
func (c *Calendar) RollbackToTradingDay(ctx context.Context, d time.Time) (time.Time, bool, error) {
	cur := d
	for i := 0; i <= rollbackWindow; i++ {
		trading, err := c.oracle.IsTradingDay(ctx, cur)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("rollback lookup at %s: %w",
				cur.Format("2006-01-02"), err)
		}
		if trading {
			return cur, i > 0, nil
		}
		cur = cur.AddDate(0, 0, -1)
	}
	return time.Time{}, false, fmt.Errorf("no trading day within %d days before %s: %w",
		rollbackWindow, d.Format("2006-01-02"), contracts.ErrCalendarDataGap)
}

// SettlementDay returns the rolled-back settlement date for the cycle in the
// given month. The result is always a trading day.
func (c *Calendar) SettlementDay(ctx context.Context, ct contracts.CycleType, year int, month time.Month, loc *time.Location) (time.Time, bool, error) {
	var raw time.Time
	var err error
	switch ct {
	case contracts.CycleFutures:
		raw, err = NthWeekday(year, month, time.Friday, 3, loc)
	case contracts.CycleOptions:
		raw, err = NthWeekday(year, month, time.Wednesday, 4, loc)
	default:
		return time.Time{}, false, fmt.Errorf("unknown cycle type %q", ct)
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return c.RollbackToTradingDay(ctx, raw)
}

// Cycle returns the settlement occurrence for the cycle in the given month.
func (c *Calendar) Cycle(ctx context.Context, ct contracts.CycleType, year int, month time.Month, loc *time.Location) (*contracts.SettlementCycle, error) {
	day, rolled, err := c.SettlementDay(ctx, ct, year, month, loc)
	if err != nil {
		return nil, err
	}
	return &contracts.SettlementCycle{
		CycleType:      ct,
		OccurrenceDate: day.Format("2006-01-02"),
		RolledBack:     rolled,
	}, nil
}

// CycleView is one cycle's position relative to today.
type CycleView struct {
	Day        time.Time // this month's occurrence
	NextDay    time.Time // next occurrence, rolled to next month when passed
	DaysTo     int       // calendar days to NextDay, 0 = today
	IsWeek     bool      // today shares the ISO week of this month's occurrence
	RolledBack bool
}

// CycleToday computes a cycle's view for today. Day distance is measured in
// calendar days (today = 0).
func (c *Calendar) CycleToday(ctx context.Context, ct contracts.CycleType, today time.Time) (*CycleView, error) {
	loc := today.Location()
	today = midnight(today)

	day, rolled, err := c.SettlementDay(ctx, ct, today.Year(), today.Month(), loc)
	if err != nil {
		return nil, err
	}

	next := day
	if next.Before(today) {
		nm := today.AddDate(0, 1, 0)
		next, _, err = c.SettlementDay(ctx, ct, nm.Year(), nm.Month(), loc)
		if err != nil {
			return nil, err
		}
	}

	return &CycleView{
		Day:        day,
		NextDay:    next,
		DaysTo:     int(next.Sub(today).Hours() / 24),
		IsWeek:     SameISOWeek(today, day),
		RolledBack: rolled,
	}, nil
}

// Today builds the full calendarToday view.
func (c *Calendar) Today(ctx context.Context, today time.Time) (*contracts.CalendarView, error) {
	fut, err := c.CycleToday(ctx, contracts.CycleFutures, today)
	if err != nil {
		return nil, err
	}
	opt, err := c.CycleToday(ctx, contracts.CycleOptions, today)
	if err != nil {
		return nil, err
	}

	const layout = "2006-01-02"
	return &contracts.CalendarView{
		Today:          midnight(today).Format(layout),
		FuturesDay:     fut.Day.Format(layout),
		OptionsDay:     opt.Day.Format(layout),
		NextFuturesDay: fut.NextDay.Format(layout),
		NextOptionsDay: opt.NextDay.Format(layout),
		DaysToFutures:  fut.DaysTo,
		DaysToOptions:  opt.DaysTo,
		IsFuturesWeek:  fut.IsWeek,
		IsOptionsWeek:  opt.IsWeek,
	}, nil
}

// SameISOWeek reports whether a and b fall in the same ISO week.
func SameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
