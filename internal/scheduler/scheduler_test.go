package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/junzhu/tidegate/backend/internal/strategy"
	"github.com/junzhu/tidegate/backend/pkg/config"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

type countingStrategy struct {
	name     string
	schedule string
	runs     atomic.Int32
	failures int32 // fail the first N runs
}

func (s *countingStrategy) Name() string        { return s.name }
func (s *countingStrategy) Description() string { return "counting" }
func (s *countingStrategy) Schedule() string    { return s.schedule }

func (s *countingStrategy) Run(context.Context) error {
	n := s.runs.Add(1)
	if n <= s.failures {
		return errors.New("transient failure")
	}
	return nil
}

func newTestScheduler(t *testing.T, strategies ...strategy.Strategy) *Scheduler {
	t.Helper()
	log := logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "test"})
	reg := strategy.NewRegistry(log)
	for _, st := range strategies {
		if err := reg.Register(st); err != nil {
			t.Fatalf("Register(%s): %v", st.Name(), err)
		}
	}
	s := New(reg, log)
	s.retryDelay = time.Millisecond
	if err := s.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return s
}

func waitForRuns(t *testing.T, s *Scheduler, name string, want int) RunStats {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if rs := s.Stats()[name]; rs.TotalRuns >= want {
			return rs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("strategy %s never reached %d runs", name, want)
	return RunStats{}
}

func TestBindRejectsInvalidCron(t *testing.T) {
	log := logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "test"})
	reg := strategy.NewRegistry(log)
	_ = reg.Register(&countingStrategy{name: "broken", schedule: "not a cron"})

	if err := New(reg, log).Bind(); err == nil {
		t.Error("Bind accepted an invalid cron expression")
	}
}

func TestTriggerRunsStrategy(t *testing.T) {
	st := &countingStrategy{name: "timing_evaluation"}
	s := newTestScheduler(t, st)

	if err := s.Trigger("timing_evaluation"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	rs := waitForRuns(t, s, "timing_evaluation", 1)
	if rs.SuccessCount != 1 || rs.FailureCount != 0 {
		t.Errorf("stats = %+v, want one success", rs)
	}
	if rs.LastRun == nil {
		t.Error("LastRun not recorded")
	}
}

func TestTriggerUnknownStrategy(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Trigger("ghost"); err == nil {
		t.Error("Trigger accepted an unknown strategy")
	}
}

func TestExecuteRetriesTransientFailure(t *testing.T) {
	st := &countingStrategy{name: "universe_sync", failures: 2}
	s := newTestScheduler(t, st)

	if err := s.Trigger("universe_sync"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	rs := waitForRuns(t, s, "universe_sync", 1)
	if rs.SuccessCount != 1 {
		t.Errorf("stats = %+v, want the run to succeed after retries", rs)
	}
	if got := st.runs.Load(); got != 3 {
		t.Errorf("strategy ran %d times, want 3 (two failures then success)", got)
	}
}

func TestExecuteRecordsExhaustedRetries(t *testing.T) {
	st := &countingStrategy{name: "financial_risk_scan", failures: 100}
	s := newTestScheduler(t, st)

	if err := s.Trigger("financial_risk_scan"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	rs := waitForRuns(t, s, "financial_risk_scan", 1)
	if rs.FailureCount != 1 || rs.SuccessCount != 0 {
		t.Errorf("stats = %+v, want one recorded failure", rs)
	}
	if rs.LastError == "" {
		t.Error("LastError not recorded")
	}
	if got := st.runs.Load(); got != 4 {
		t.Errorf("strategy ran %d times, want 4 (initial + 3 retries)", got)
	}
}

func TestStatsIncludesManualStrategies(t *testing.T) {
	s := newTestScheduler(t, &countingStrategy{name: "manual_only"})

	rs, ok := s.Stats()["manual_only"]
	if !ok {
		t.Fatal("manual strategy missing from Stats")
	}
	if rs.TotalRuns != 0 || rs.Schedule != "" {
		t.Errorf("stats = %+v, want zero runs and no schedule", rs)
	}
}
