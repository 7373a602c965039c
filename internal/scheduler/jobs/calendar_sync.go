package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/internal/external/exchange"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// CalendarWriter persists synced trading days. Implemented by the calendar
// repository.
type CalendarWriter interface {
	UpsertDays(ctx context.Context, days []contracts.TradingDay) error
}

// CalendarSyncJob refreshes the trading calendar from the exchange schedule.
type CalendarSyncJob struct {
	source *exchange.CalendarSource
	writer CalendarWriter
	logger *logger.Logger
	loc    *time.Location
}

// NewCalendarSyncJob creates a CalendarSyncJob.
func NewCalendarSyncJob(source *exchange.CalendarSource, writer CalendarWriter, log *logger.Logger, loc *time.Location) *CalendarSyncJob {
	return &CalendarSyncJob{
		source: source,
		writer: writer,
		logger: log,
		loc:    loc,
	}
}

func (j *CalendarSyncJob) Name() string { return "calendar_sync" }

func (j *CalendarSyncJob) Description() string {
	return "Sync the trading calendar from the exchange closure schedule"
}

// Schedule fires daily at 07:00, before the session.
func (j *CalendarSyncJob) Schedule() string { return "0 0 7 * * *" }

// Run syncs the current and the next year. The next year's schedule is
// usually unpublished until December, so its failure only warns.
func (j *CalendarSyncJob) Run(ctx context.Context) error {
	year := time.Now().In(j.loc).Year()

	if err := j.syncYear(ctx, year); err != nil {
		return fmt.Errorf("sync calendar year %d: %w", year, err)
	}
	if err := j.syncYear(ctx, year+1); err != nil {
		j.logger.WithError(err).WithField("year", year+1).
			Warn("Next-year calendar not available yet")
	}
	return nil
}

func (j *CalendarSyncJob) syncYear(ctx context.Context, year int) error {
	days, err := j.source.FetchYear(ctx, year)
	if err != nil {
		return err
	}
	if err := j.writer.UpsertDays(ctx, days); err != nil {
		return err
	}
	j.logger.WithFields(map[string]interface{}{
		"year": year,
		"days": len(days),
	}).Info("Trading calendar synced")
	return nil
}
