// Package timing implements the three-level priority funnel that classifies
// a date into an action state.
//
// 信号优先级 L1 > L2 > L3：高级别触发后屏蔽低级别。
//   - L1 绝对禁区: 3/15 ~ 4/30 财报暴雷季 → 强制红灯
//   - L2 风险预警: 3/5 ~ 3/14 跑路期 + 12 月资金枯竭期
//   - L3 结算周博弈: 战术信号，试探建仓需盘面守卫确认
package timing

import (
	"context"
	"fmt"
	"time"

	"github.com/junzhu/tidegate/backend/internal/calendar"
	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

const dateLayout = "2006-01-02"

// Session gates for L3 rules, minutes from midnight local time.
const (
	beforeCloseMinute = 14*60 + 30 // 14:30
	postCloseMinute   = 15 * 60    // 15:00
)

// GuardGate is the second-stage confirmation consulted on provisional
// entries. It is fail-closed and never errors.
type GuardGate interface {
	Confirm(ctx context.Context) *contracts.GuardVerdict
}

// Engine evaluates the funnel. Pure apart from oracle lookups and the guard
// call on provisional entries; safe for concurrent use.
type Engine struct {
	oracle contracts.TradingCalendar
	cal    *calendar.Calendar
	guard  GuardGate
	logger *logger.Logger
	loc    *time.Location
}

// New creates an Engine. The guard is required: a provisional entry without
// second-stage confirmation must not exist.
func New(oracle contracts.TradingCalendar, cal *calendar.Calendar, guard GuardGate, log *logger.Logger, loc *time.Location) *Engine {
	return &Engine{
		oracle: oracle,
		cal:    cal,
		guard:  guard,
		logger: log.WithModule("timing"),
		loc:    loc,
	}
}

// Evaluate classifies the given local timestamp. Any oracle failure
// propagates as ErrDataUnavailable, never as a normal signal.
func (e *Engine) Evaluate(ctx context.Context, at time.Time) (*contracts.TimingSignal, error) {
	at = at.In(e.loc)
	d := midnight(at)

	// 1. Non-trading day is terminal.
	trading, err := e.oracle.IsTradingDay(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("trading-day lookup for %s: %w", d.Format(dateLayout), err)
	}
	if !trading {
		return e.inactiveSignal(ctx, d)
	}

	// 2. L1 absolute lockout.
	if sig := checkLevel1(d); sig != nil {
		return sig, nil
	}

	// 3. L2 risk warning windows.
	if sig := checkLevel2(d); sig != nil {
		return sig, nil
	}

	// 4. L3 settlement-week tactics.
	sig, err := e.checkLevel3(ctx, d, at)
	if err != nil {
		return nil, err
	}
	if sig != nil {
		return sig, nil
	}

	return &contracts.TimingSignal{
		Date:         d.Format(dateLayout),
		Level:        contracts.LevelNone,
		Light:        contracts.LightGreen,
		Action:       contracts.ActionNormalTrading,
		Reason:       "normal trading session",
		Details:      []string{},
		IsTradingDay: true,
	}, nil
}

// EvaluateDate classifies a date at 15:10 market time, so historical
// answers are stable and post-close rules have fired.
func (e *Engine) EvaluateDate(ctx context.Context, d time.Time) (*contracts.TimingSignal, error) {
	d = d.In(e.loc)
	at := time.Date(d.Year(), d.Month(), d.Day(), 15, 10, 0, 0, e.loc)
	return e.Evaluate(ctx, at)
}

// EvaluateRange classifies every trading day in [start, end].
func (e *Engine) EvaluateRange(ctx context.Context, start, end time.Time) ([]*contracts.TimingSignal, error) {
	var out []*contracts.TimingSignal
	for d := midnight(start.In(e.loc)); !d.After(end.In(e.loc)); d = d.AddDate(0, 0, 1) {
		trading, err := e.oracle.IsTradingDay(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("trading-day lookup for %s: %w", d.Format(dateLayout), err)
		}
		if !trading {
			continue
		}
		sig, err := e.EvaluateDate(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, nil
}

// inactiveSignal builds the terminal non-trading-day answer.
func (e *Engine) inactiveSignal(ctx context.Context, d time.Time) (*contracts.TimingSignal, error) {
	holiday, err := e.oracle.HolidayName(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("holiday lookup for %s: %w", d.Format(dateLayout), err)
	}
	nextOpen, err := e.oracle.NextTradingDayAfter(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("next-open lookup after %s: %w", d.Format(dateLayout), err)
	}

	reason := "market closed"
	if holiday != "" {
		reason = fmt.Sprintf("market closed: %s", holiday)
	}
	return &contracts.TimingSignal{
		Date:         d.Format(dateLayout),
		Level:        contracts.LevelNone,
		Light:        contracts.LightGrey,
		Action:       contracts.ActionInactive,
		Reason:       reason,
		Details:      []string{fmt.Sprintf("next open: %s", nextOpen.Format(dateLayout))},
		IsTradingDay: false,
		IsHoliday:    holiday != "",
		HolidayName:  holiday,
		NextOpenDate: nextOpen.Format(dateLayout),
	}, nil
}

// checkLevel1: 绝对禁区, Mar 15 through Apr 30, mandatory empty position.
func checkLevel1(d time.Time) *contracts.TimingSignal {
	md := monthDay(d)
	if md < mdOf(3, 15) || md > mdOf(4, 30) {
		return nil
	}
	return &contracts.TimingSignal{
		Date:   d.Format(dateLayout),
		Level:  contracts.LevelL1,
		Light:  contracts.LightRed,
		Action: contracts.ActionForceEmpty,
		Reason: "earnings blow-up season (Mar 15 - Apr 30), mandatory empty position",
		Details: []string{
			"annual and Q1 report disclosure peak",
			"no entries of any kind",
		},
		IsTradingDay: true,
	}
}

// checkLevel2: risk warning windows, the pre-lockout retreat and December.
func checkLevel2(d time.Time) *contracts.TimingSignal {
	md := monthDay(d)

	if md >= mdOf(3, 5) && md <= mdOf(3, 14) {
		daysToLockout := int(time.Date(d.Year(), 3, 15, 0, 0, 0, 0, d.Location()).Sub(d).Hours() / 24)
		return &contracts.TimingSignal{
			Date:   d.Format(dateLayout),
			Level:  contracts.LevelL2,
			Light:  contracts.LightYellow,
			Action: contracts.ActionExitAll,
			Reason: fmt.Sprintf("pre-lockout retreat (Mar 5 - Mar 14), %d days to lockout", daysToLockout),
			Details: []string{
				"earnings lockout ahead",
				"exits only, no entries",
			},
			IsTradingDay: true,
		}
	}

	if d.Month() == time.December {
		return &contracts.TimingSignal{
			Date:   d.Format(dateLayout),
			Level:  contracts.LevelL2,
			Light:  contracts.LightRed,
			Action: contracts.ActionExitAll,
			Reason: "year-end liquidity drain (December)",
			Details: []string{
				"year-end funding pressure",
				"institutional rebalancing in full swing",
				"exits only, no entries",
			},
			IsTradingDay: true,
		}
	}

	return nil
}

// checkLevel3 evaluates settlement-week tactics against both cycles,
// futures before options on same-day conflicts.
func (e *Engine) checkLevel3(ctx context.Context, d, at time.Time) (*contracts.TimingSignal, error) {
	minute := at.Hour()*60 + at.Minute()
	cycles := []contracts.CycleType{contracts.CycleFutures, contracts.CycleOptions}

	days := make(map[contracts.CycleType]time.Time, 2)
	for _, ct := range cycles {
		day, _, err := e.cal.SettlementDay(ctx, ct, d.Year(), d.Month(), e.loc)
		if err != nil {
			return nil, err
		}
		days[ct] = day
	}

	// Friday before a settlement week: retreat by the close.
	if d.Weekday() == time.Friday && minute >= beforeCloseMinute {
		nextWeek := d.AddDate(0, 0, 3) // the coming Monday
		for _, ct := range cycles {
			sd, _, err := e.cal.SettlementDay(ctx, ct, nextWeek.Year(), nextWeek.Month(), e.loc)
			if err != nil {
				return nil, err
			}
			if calendar.SameISOWeek(nextWeek, sd) {
				return &contracts.TimingSignal{
					Date:   d.Format(dateLayout),
					Level:  contracts.LevelL3,
					Light:  contracts.LightYellow,
					Action: contracts.ActionReduceExit,
					Reason: fmt.Sprintf("pre-retreat ahead of %s settlement week (settles %s)",
						ct, sd.Format(dateLayout)),
					Details: []string{
						fmt.Sprintf("next week is the %s settlement week", ct),
						"reduce or exit before the 15:00 close",
					},
					IsTradingDay: true,
				}, nil
			}
		}
	}

	// Tuesday of a settlement week: provisional probe entry, guard-gated.
	if d.Weekday() == time.Tuesday && minute >= beforeCloseMinute {
		for _, ct := range cycles {
			if calendar.SameISOWeek(d, days[ct]) {
				return e.confirmProbeEntry(ctx, d, ct, days[ct]), nil
			}
		}
	}

	// The settlement day itself: post-settlement sentiment watch.
	if minute >= postCloseMinute {
		for _, ct := range cycles {
			if sameDate(d, days[ct]) {
				return &contracts.TimingSignal{
					Date:   d.Format(dateLayout),
					Level:  contracts.LevelL3,
					Light:  contracts.LightYellow,
					Action: contracts.ActionObserve,
					Reason: fmt.Sprintf("%s settlement day, post-settlement sentiment watch", ct),
					Details: []string{
						"monthly contract settled",
						"watch post-close flows and sentiment rotation",
					},
					IsTradingDay: true,
				}, nil
			}
		}
	}

	return nil, nil
}

// confirmProbeEntry runs the guard and folds its verdict into the final
// signal. The provisional entry never surfaces unconfirmed.
func (e *Engine) confirmProbeEntry(ctx context.Context, d time.Time, ct contracts.CycleType, settleDay time.Time) *contracts.TimingSignal {
	verdict := e.guard.Confirm(ctx)

	sig := &contracts.TimingSignal{
		Date:         d.Format(dateLayout),
		Level:        contracts.LevelL3,
		IsTradingDay: true,
		Guard:        verdict,
	}

	base := fmt.Sprintf("settlement-week probe window (%s settles %s)", ct, settleDay.Format(dateLayout))

	switch verdict.Verdict {
	case contracts.VerdictPass:
		sig.Light = contracts.LightGreen
		sig.Action = contracts.ActionProbeEntry
		sig.Reason = fmt.Sprintf("%s: probe entry permitted", base)
		sig.Details = []string{
			"market guard passed",
			"tactical position only, keep size small",
		}
	case contracts.VerdictDowngrade:
		sig.Light = contracts.LightYellow
		sig.Action = contracts.ActionProbeEntry
		sig.Reason = fmt.Sprintf("%s: downgraded by market guard (%s), cap position at 10%%", base, verdict.Reason)
		sig.Details = []string{
			fmt.Sprintf("guard verdict: %s", verdict.Reason),
			"probe at no more than 10% position",
		}
	default: // block
		sig.Light = contracts.LightYellow
		sig.Action = contracts.ActionObserve
		sig.Reason = fmt.Sprintf("%s: blocked by market guard (%s), observe only", base, verdict.Reason)
		sig.Details = []string{
			fmt.Sprintf("guard verdict: %s", verdict.Reason),
			"no entries until the market stabilizes",
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"date":    sig.Date,
		"verdict": verdict.Verdict,
		"reason":  verdict.Reason,
	}).Info("Probe entry confirmed by guard")

	return sig
}

func monthDay(d time.Time) int { return mdOf(int(d.Month()), d.Day()) }

func mdOf(month, day int) int { return month*100 + day }

func sameDate(a, b time.Time) bool { return a.Year() == b.Year() && a.YearDay() == b.YearDay() }

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
