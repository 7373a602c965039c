package calendar

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junzhu/tidegate/backend/internal/contracts"
)

// fakeOracle treats weekdays as trading days unless listed in closed.
// allClosed simulates a calendar with no trading days at all.
type fakeOracle struct {
	closed    map[string]string
	allClosed bool
	err       error
}

func (f *fakeOracle) IsTradingDay(_ context.Context, d time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.allClosed {
		return false, nil
	}
	if _, ok := f.closed[d.Format("2006-01-02")]; ok {
		return false, nil
	}
	return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday, nil
}

func (f *fakeOracle) HolidayName(_ context.Context, d time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.closed[d.Format("2006-01-02")], nil
}

func (f *fakeOracle) NextTradingDayAfter(ctx context.Context, d time.Time) (time.Time, error) {
	cur := d
	for i := 0; i < 30; i++ {
		cur = cur.AddDate(0, 0, 1)
		trading, err := f.IsTradingDay(ctx, cur)
		if err != nil {
			return time.Time{}, err
		}
		if trading {
			return cur, nil
		}
	}
	return time.Time{}, fmt.Errorf("no trading day found: %w", contracts.ErrDataUnavailable)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNthWeekday(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		month   time.Month
		weekday time.Weekday
		n       int
		want    string
		wantErr bool
	}{
		{"3rd Friday Jan 2026", 2026, time.January, time.Friday, 3, "2026-01-16", false},
		{"4th Wednesday Jan 2026", 2026, time.January, time.Wednesday, 4, "2026-01-28", false},
		{"3rd Friday Sep 2026", 2026, time.September, time.Friday, 3, "2026-09-18", false},
		{"4th Wednesday Sep 2026", 2026, time.September, time.Wednesday, 4, "2026-09-23", false},
		{"5th Friday Feb 2026 out of month", 2026, time.February, time.Friday, 5, "", true},
		{"zero ordinal", 2026, time.January, time.Friday, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NthWeekday(tt.year, tt.month, tt.weekday, tt.n, time.UTC)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
			assert.Equal(t, tt.weekday, got.Weekday())
		})
	}
}

func TestSettlementDayRollsBackOverClosure(t *testing.T) {
	// 2026-09-18 is the raw third Friday; a closure pushes the
	// settlement back to Thursday.
	oracle := &fakeOracle{closed: map[string]string{"2026-09-18": "测试休市"}}
	cal := New(oracle)

	day, rolled, err := cal.SettlementDay(context.Background(), contracts.CycleFutures, 2026, time.September, time.UTC)
	require.NoError(t, err)
	assert.True(t, rolled)
	assert.Equal(t, "2026-09-17", day.Format("2006-01-02"))
}

func TestSettlementDayNoRollbackNeeded(t *testing.T) {
	cal := New(&fakeOracle{})

	day, rolled, err := cal.SettlementDay(context.Background(), contracts.CycleOptions, 2026, time.September, time.UTC)
	require.NoError(t, err)
	assert.False(t, rolled)
	assert.Equal(t, "2026-09-23", day.Format("2006-01-02"))
}

func TestRollbackBoundFailsWithDataGap(t *testing.T) {
	cal := New(&fakeOracle{allClosed: true})

	_, _, err := cal.RollbackToTradingDay(context.Background(), date(2026, time.September, 18))
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrCalendarDataGap)
}

func TestRollbackPropagatesOracleFailure(t *testing.T) {
	oracle := &fakeOracle{err: fmt.Errorf("lookup: %w", contracts.ErrDataUnavailable)}
	cal := New(oracle)

	_, _, err := cal.RollbackToTradingDay(context.Background(), date(2026, time.September, 18))
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestCycleTodayWithinMonth(t *testing.T) {
	cal := New(&fakeOracle{})

	// Monday of the futures settlement week.
	view, err := cal.CycleToday(context.Background(), contracts.CycleFutures, date(2026, time.September, 14))
	require.NoError(t, err)
	assert.Equal(t, "2026-09-18", view.Day.Format("2006-01-02"))
	assert.Equal(t, 4, view.DaysTo)
	assert.True(t, view.IsWeek)
}

func TestCycleTodayRollsToNextMonthWhenPassed(t *testing.T) {
	cal := New(&fakeOracle{})

	// Sep 25 is past both September occurrences.
	view, err := cal.CycleToday(context.Background(), contracts.CycleFutures, date(2026, time.September, 25))
	require.NoError(t, err)
	assert.Equal(t, "2026-09-18", view.Day.Format("2006-01-02"))
	assert.Equal(t, "2026-10-16", view.NextDay.Format("2006-01-02"))
	assert.Equal(t, 21, view.DaysTo)
	assert.False(t, view.IsWeek)
}

func TestTodayView(t *testing.T) {
	cal := New(&fakeOracle{})

	view, err := cal.Today(context.Background(), date(2026, time.September, 14))
	require.NoError(t, err)
	assert.Equal(t, "2026-09-14", view.Today)
	assert.Equal(t, "2026-09-18", view.FuturesDay)
	assert.Equal(t, "2026-09-23", view.OptionsDay)
	assert.Equal(t, 4, view.DaysToFutures)
	assert.Equal(t, 9, view.DaysToOptions)
	assert.True(t, view.IsFuturesWeek)
	assert.False(t, view.IsOptionsWeek)
}

func TestSameISOWeek(t *testing.T) {
	assert.True(t, SameISOWeek(date(2026, time.September, 14), date(2026, time.September, 18)))
	assert.False(t, SameISOWeek(date(2026, time.September, 14), date(2026, time.September, 21)))
	// ISO weeks cross month boundaries.
	assert.True(t, SameISOWeek(date(2026, time.August, 31), date(2026, time.September, 4)))
}

func TestSettlementDaysMonotonicAcrossMonths(t *testing.T) {
	// A two-day rollback in April (third Friday plus the Thursday before
	// it closed) must still land after March's settlement day.
	oracle := &fakeOracle{closed: map[string]string{
		"2026-04-17": "假日",
		"2026-04-16": "假日",
	}}
	cal := New(oracle)

	for _, ct := range []contracts.CycleType{contracts.CycleFutures, contracts.CycleOptions} {
		var prev time.Time
		for month := time.January; month <= time.December; month++ {
			day, _, err := cal.SettlementDay(context.Background(), ct, 2026, month, time.UTC)
			require.NoError(t, err)
			if !prev.IsZero() {
				assert.True(t, day.After(prev),
					"%s settlement %s must follow the previous month's %s",
					ct, day.Format("2006-01-02"), prev.Format("2006-01-02"))
			}
			prev = day
		}
	}
}

func TestSettlementDayIsAlwaysTradingDay(t *testing.T) {
	oracle := &fakeOracle{closed: map[string]string{
		"2026-01-16": "假日",
		"2026-01-15": "假日",
	}}
	cal := New(oracle)

	for _, ct := range []contracts.CycleType{contracts.CycleFutures, contracts.CycleOptions} {
		for month := time.January; month <= time.December; month++ {
			day, _, err := cal.SettlementDay(context.Background(), ct, 2026, month, time.UTC)
			require.NoError(t, err)
			trading, err := oracle.IsTradingDay(context.Background(), day)
			require.NoError(t, err)
			assert.True(t, trading, "%s settlement %s must be a trading day", ct, day.Format("2006-01-02"))
		}
	}
}
