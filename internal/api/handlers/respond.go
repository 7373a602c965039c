// Package handlers holds the HTTP handlers for the engine API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/junzhu/tidegate/backend/internal/contracts"
)

// respondJSON writes payload as JSON.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes a JSON error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// respondDomainError maps engine errors onto HTTP statuses. Data gaps are
// unavailability, not server bugs: the caller can retry after a sync.
func respondDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, contracts.ErrCalendarDataGap):
		respondError(w, http.StatusServiceUnavailable, "trading calendar has a data gap, sync the calendar and retry")
	case errors.Is(err, contracts.ErrDataUnavailable):
		respondError(w, http.StatusServiceUnavailable, "required market data is unavailable")
	case errors.Is(err, contracts.ErrScanInProgress):
		respondError(w, http.StatusConflict, "a risk scan is already in progress")
	default:
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
