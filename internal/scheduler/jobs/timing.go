// Package jobs holds the scheduled strategies: daily timing evaluation,
// calendar sync, universe sync and the monthly risk scan.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/internal/timing"
	"github.com/junzhu/tidegate/backend/pkg/logger"
	"github.com/junzhu/tidegate/backend/pkg/redis"
)

// TimingJob evaluates the timing funnel at the decision window and caches
// the signal for the day.
type TimingJob struct {
	engine *timing.Engine
	cache  *redis.Cache
	logger *logger.Logger
	loc    *time.Location
}

// NewTimingJob creates a TimingJob.
func NewTimingJob(engine *timing.Engine, cache *redis.Cache, log *logger.Logger, loc *time.Location) *TimingJob {
	return &TimingJob{
		engine: engine,
		cache:  cache,
		logger: log,
		loc:    loc,
	}
}

func (j *TimingJob) Name() string { return "timing_evaluation" }

func (j *TimingJob) Description() string {
	return "Evaluate the timing funnel at the 14:30 decision window"
}

// Schedule fires at 14:30 on weekdays, market time.
func (j *TimingJob) Schedule() string { return "0 30 14 * * MON-FRI" }

// Run evaluates the funnel as of now and caches the result by date.
func (j *TimingJob) Run(ctx context.Context) error {
	now := time.Now().In(j.loc)

	signal, err := j.engine.Evaluate(ctx, now)
	if err != nil {
		return fmt.Errorf("evaluate timing: %w", err)
	}

	key := "timing:" + signal.Date
	if err := j.cache.Set(ctx, key, signal, redis.TTLDay); err != nil {
		j.logger.WithError(err).Warn("Failed to cache timing signal")
	}

	j.logger.WithFields(map[string]interface{}{
		"date":   signal.Date,
		"level":  signal.Level,
		"light":  signal.Light,
		"action": signal.Action,
	}).Info("Timing signal evaluated")

	if signal.Light == contracts.LightRed {
		j.logger.WithField("reason", signal.Reason).Warn("Red light active")
	}
	return nil
}
