package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/junzhu/tidegate/backend/internal/scheduler"
	"github.com/junzhu/tidegate/backend/internal/strategy"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// StrategyHandler serves the strategy registry endpoints.
type StrategyHandler struct {
	registry  *strategy.Registry
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

// NewStrategyHandler creates a StrategyHandler.
func NewStrategyHandler(registry *strategy.Registry, sched *scheduler.Scheduler, log *logger.Logger) *StrategyHandler {
	return &StrategyHandler{registry: registry, scheduler: sched, logger: log}
}

// strategyInfo is the listing row for one strategy.
type strategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schedule    string `json:"schedule,omitempty"`
}

// List returns the registered strategies in registration order.
// GET /api/strategies
func (h *StrategyHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.registry.All()
	infos := make([]strategyInfo, 0, len(all))
	for _, s := range all {
		infos = append(infos, strategyInfo{
			Name:        s.Name(),
			Description: s.Description(),
			Schedule:    s.Schedule(),
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(infos),
		"strategies": infos,
	})
}

// Trigger runs one strategy immediately.
// POST /api/strategies/{name}/run
func (h *StrategyHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.scheduler.Trigger(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.WithField("strategy", name).Info("Strategy triggered manually")
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"started": name,
	})
}

// Stats returns per-strategy run statistics.
// GET /api/strategies/stats
func (h *StrategyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.Stats())
}
