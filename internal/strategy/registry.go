// Package strategy is the registry of runnable engine routines. Each
// routine is addressable by name for manual triggering and optionally
// carries a cron schedule for the scheduler.
package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// Strategy is one runnable routine.
type Strategy interface {
	// Name is the stable identifier used for lookup and logging.
	Name() string

	// Description is a one-line operator-facing summary.
	Description() string

	// Schedule is a cron expression with seconds. Empty means the
	// routine runs on manual trigger only.
	Schedule() string

	// Run executes the routine once.
	Run(ctx context.Context) error
}

// Registry holds strategies in registration order.
// SSOT: 策略注册只经过这里。
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Strategy
	logger *logger.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		byName: make(map[string]Strategy),
		logger: log.WithModule("strategy"),
	}
}

// Register adds a strategy. Duplicate names are rejected so a misconfigured
// wiring fails at startup instead of silently shadowing a routine.
func (r *Registry) Register(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("strategy %q already registered", name)
	}
	r.byName[name] = s
	r.order = append(r.order, name)

	schedule := s.Schedule()
	if schedule == "" {
		schedule = "manual"
	}
	r.logger.WithFields(map[string]interface{}{
		"strategy": name,
		"schedule": schedule,
	}).Info("Strategy registered")
	return nil
}

// Get returns a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// All returns every strategy in registration order.
func (r *Registry) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Strategy, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Scheduled returns the strategies that carry a cron schedule.
func (r *Registry) Scheduled() []Strategy {
	var out []Strategy
	for _, s := range r.All() {
		if s.Schedule() != "" {
			out = append(out, s)
		}
	}
	return out
}
