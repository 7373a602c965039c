package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/internal/riskscan"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// scanTimeout bounds a manually triggered scan cycle.
const scanTimeout = 30 * time.Minute

// RiskHandler serves the financial risk endpoints.
type RiskHandler struct {
	repo    *riskscan.Repository
	scanner *riskscan.Scanner
	logger  *logger.Logger
}

// NewRiskHandler creates a RiskHandler.
func NewRiskHandler(repo *riskscan.Repository, scanner *riskscan.Scanner, log *logger.Logger) *RiskHandler {
	return &RiskHandler{repo: repo, scanner: scanner, logger: log}
}

// CheckCode answers the risk query for one code.
// GET /api/risk/{code}
func (h *RiskHandler) CheckCode(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if code == "" {
		respondError(w, http.StatusBadRequest, "stock code is required")
		return
	}

	check, err := h.repo.Check(r.Context(), code)
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Risk lookup failed")
		respondDomainError(w, err, "risk lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, check)
}

// List returns every current-cycle risk record.
// GET /api/risk
func (h *RiskHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Risk list failed")
		respondDomainError(w, err, "risk list failed")
		return
	}
	if records == nil {
		records = []*contracts.RiskRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

// TriggerScan starts a scan cycle in the background.
// POST /api/scan
func (h *RiskHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner.InProgress() {
		respondError(w, http.StatusConflict, "a risk scan is already in progress")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()

		stats, err := h.scanner.Run(ctx)
		if errors.Is(err, contracts.ErrScanInProgress) {
			return
		}
		if err != nil {
			h.logger.WithError(err).Error("Triggered risk scan failed")
			return
		}
		h.logger.WithFields(map[string]interface{}{
			"flagged": stats.Flagged,
			"extreme": stats.Extreme,
		}).Info("Triggered risk scan finished")
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"started": true,
	})
}
