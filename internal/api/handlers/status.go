package handlers

import (
	"net/http"

	"github.com/junzhu/tidegate/backend/internal/status"
	"github.com/junzhu/tidegate/backend/pkg/database"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// StatusHandler serves the aggregated status and the health probe.
type StatusHandler struct {
	aggregator *status.Aggregator
	db         *database.DB
	logger     *logger.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(aggregator *status.Aggregator, db *database.DB, log *logger.Logger) *StatusHandler {
	return &StatusHandler{aggregator: aggregator, db: db, logger: log}
}

// GetGlobal returns the full dashboard view.
// GET /api/status
func (h *StatusHandler) GetGlobal(w http.ResponseWriter, r *http.Request) {
	global, err := h.aggregator.Global(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build global status")
		respondDomainError(w, err, "failed to build global status")
		return
	}
	respondJSON(w, http.StatusOK, global)
}

// Health reports service and database health.
// GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbHealth, err := h.db.HealthCheck(r.Context())
	if err != nil || !dbHealth.Healthy {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "degraded",
			"service":  "tidegate-api",
			"database": dbHealth,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"service":  "tidegate-api",
		"database": dbHealth,
	})
}
