package handlers

import (
	"net/http"
	"time"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/internal/timing"
	"github.com/junzhu/tidegate/backend/pkg/logger"
	"github.com/junzhu/tidegate/backend/pkg/redis"
)

const dateLayout = "2006-01-02"

// TimingHandler serves the timing funnel endpoints.
type TimingHandler struct {
	engine *timing.Engine
	cache  *redis.Cache
	logger *logger.Logger
	loc    *time.Location
}

// NewTimingHandler creates a TimingHandler.
func NewTimingHandler(engine *timing.Engine, cache *redis.Cache, log *logger.Logger, loc *time.Location) *TimingHandler {
	return &TimingHandler{
		engine: engine,
		cache:  cache,
		logger: log,
		loc:    loc,
	}
}

// GetSignal returns the timing signal for now, or for ?date=YYYY-MM-DD
// evaluated at the decision window of that day.
// GET /api/timing[?date=2026-03-20]
func (h *TimingHandler) GetSignal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		signal, err := h.engine.Evaluate(ctx, time.Now().In(h.loc))
		if err != nil {
			h.logger.WithError(err).Error("Failed to evaluate timing signal")
			respondDomainError(w, err, "failed to evaluate timing signal")
			return
		}
		respondJSON(w, http.StatusOK, signal)
		return
	}

	d, err := time.ParseInLocation(dateLayout, dateStr, h.loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid 'date' format (expected YYYY-MM-DD)")
		return
	}

	// The scheduled evaluation caches its signal by date.
	var cached contracts.TimingSignal
	if hit, err := h.cache.Get(ctx, "timing:"+dateStr, &cached); err == nil && hit {
		respondJSON(w, http.StatusOK, &cached)
		return
	}

	signal, err := h.engine.EvaluateDate(ctx, d)
	if err != nil {
		h.logger.WithError(err).WithField("date", dateStr).Error("Failed to evaluate timing signal")
		respondDomainError(w, err, "failed to evaluate timing signal")
		return
	}
	respondJSON(w, http.StatusOK, signal)
}

// GetRange returns one signal per day over an inclusive date range.
// GET /api/timing/range?from=2026-03-01&to=2026-03-31
func (h *TimingHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, err := time.ParseInLocation(dateLayout, r.URL.Query().Get("from"), h.loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid 'from' format (expected YYYY-MM-DD)")
		return
	}
	to, err := time.ParseInLocation(dateLayout, r.URL.Query().Get("to"), h.loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid 'to' format (expected YYYY-MM-DD)")
		return
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "'to' must not precede 'from'")
		return
	}
	if to.Sub(from) > 366*24*time.Hour {
		respondError(w, http.StatusBadRequest, "range must not exceed one year")
		return
	}

	signals, err := h.engine.EvaluateRange(ctx, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to evaluate timing range")
		respondDomainError(w, err, "failed to evaluate timing range")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":    from.Format(dateLayout),
		"to":      to.Format(dateLayout),
		"signals": signals,
	})
}
