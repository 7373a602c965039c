// Package scheduler runs registered strategies on their cron schedules
// with retry and a bounded execution history.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/junzhu/tidegate/backend/internal/strategy"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// Scheduler drives the cron loop.
// SSOT: 定时任务只经过这个调度器。
type Scheduler struct {
	cron     *cron.Cron
	logger   *logger.Logger
	registry *strategy.Registry
	history  map[string]*History
	mu       sync.RWMutex

	maxRetries int
	retryDelay time.Duration
	runTimeout time.Duration
}

// New creates a Scheduler over the registry. Cron expressions include a
// seconds field.
func New(registry *strategy.Registry, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		logger:     log.WithModule("scheduler"),
		registry:   registry,
		history:    make(map[string]*History),
		maxRetries: 3,
		retryDelay: 1 * time.Minute,
		runTimeout: 30 * time.Minute,
	}
}

// Bind schedules every registry strategy that carries a cron expression.
// Manual-only strategies get a history slot but no cron entry.
func (s *Scheduler) Bind() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.registry.All() {
		s.history[st.Name()] = &History{}

		expr := st.Schedule()
		if expr == "" {
			continue
		}
		st := st
		if _, err := s.cron.AddFunc(expr, func() { s.execute(st) }); err != nil {
			return fmt.Errorf("schedule strategy %s: %w", st.Name(), err)
		}
		s.logger.WithFields(map[string]interface{}{
			"strategy": st.Name(),
			"schedule": expr,
		}).Info("Strategy scheduled")
	}
	return nil
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop stops the cron loop and waits for running strategies.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Trigger runs a strategy immediately, off-schedule.
func (s *Scheduler) Trigger(name string) error {
	st, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("strategy %s not found", name)
	}
	go s.execute(st)
	return nil
}

// execute runs one strategy with retry and records the outcome.
func (s *Scheduler) execute(st strategy.Strategy) {
	name := st.Name()
	start := time.Now()
	s.logger.WithField("strategy", name).Info("Strategy run started")

	var lastErr error
	success := false
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		err := st.Run(ctx)
		cancel()
		if err == nil {
			success = true
			break
		}
		lastErr = err
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"strategy": name,
			"attempt":  attempt + 1,
		}).Warn("Strategy run failed")
		if attempt < s.maxRetries {
			time.Sleep(s.retryDelay)
		}
	}

	result := RunResult{
		Strategy:  name,
		StartTime: start,
		EndTime:   time.Now(),
		Duration:  time.Since(start),
		Success:   success,
	}
	if !success && lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if h, ok := s.history[name]; ok {
		h.Add(result)
	}
	s.mu.Unlock()

	if success {
		s.logger.WithFields(map[string]interface{}{
			"strategy": name,
			"duration": result.Duration,
		}).Info("Strategy run completed")
	} else {
		s.logger.WithFields(map[string]interface{}{
			"strategy": name,
			"duration": result.Duration,
			"error":    result.Error,
		}).Error("Strategy run failed after all retries")
	}
}

// Stats returns per-strategy run statistics.
func (s *Scheduler) Stats() map[string]RunStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]RunStats, len(s.history))
	for name, h := range s.history {
		rs := RunStats{Strategy: name}
		if st, ok := s.registry.Get(name); ok {
			rs.Schedule = st.Schedule()
		}
		rs.TotalRuns = len(h.Results)
		for _, r := range h.Results {
			if r.Success {
				rs.SuccessCount++
			} else {
				rs.FailureCount++
			}
		}
		if n := len(h.Results); n > 0 {
			last := h.Results[n-1]
			rs.LastRun = &last.StartTime
			rs.LastError = last.Error
		}
		stats[name] = rs
	}
	return stats
}
