// Package status composes the engine outputs into the single global view
// the operator dashboard polls.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// TimingEvaluator produces the current timing signal.
type TimingEvaluator interface {
	Evaluate(ctx context.Context, at time.Time) (*contracts.TimingSignal, error)
}

// CalendarViewer produces the settlement calendar view.
type CalendarViewer interface {
	Today(ctx context.Context, today time.Time) (*contracts.CalendarView, error)
}

// RiskSummarizer reduces the current risk flag set.
type RiskSummarizer interface {
	Summary(ctx context.Context) (total int, extreme int, codes []string, err error)
}

// Aggregator builds the global status. Each section either resolves fully
// or fails the whole call: a partial status would silently hide an exposure.
type Aggregator struct {
	timing   TimingEvaluator
	calendar CalendarViewer
	risk     RiskSummarizer
	logger   *logger.Logger
	loc      *time.Location
}

// New creates an Aggregator.
func New(timing TimingEvaluator, calendar CalendarViewer, risk RiskSummarizer, log *logger.Logger, loc *time.Location) *Aggregator {
	return &Aggregator{
		timing:   timing,
		calendar: calendar,
		risk:     risk,
		logger:   log.WithModule("status"),
		loc:      loc,
	}
}

// Global assembles the full status as of now.
func (a *Aggregator) Global(ctx context.Context) (*contracts.GlobalStatus, error) {
	now := time.Now().In(a.loc)

	signal, err := a.timing.Evaluate(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("timing section: %w", err)
	}

	view, err := a.calendar.Today(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("calendar section: %w", err)
	}

	total, extreme, codes, err := a.risk.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("risk section: %w", err)
	}

	return &contracts.GlobalStatus{
		Timing:           signal,
		Calendar:         view,
		RiskStockTotal:   total,
		RiskStockExtreme: extreme,
		RiskCodes:        codes,
	}, nil
}
