package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/junzhu/tidegate/backend/internal/calendar"
	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// CalendarHandler serves the settlement calendar endpoints.
type CalendarHandler struct {
	cal    *calendar.Calendar
	logger *logger.Logger
	loc    *time.Location
}

// NewCalendarHandler creates a CalendarHandler.
func NewCalendarHandler(cal *calendar.Calendar, log *logger.Logger, loc *time.Location) *CalendarHandler {
	return &CalendarHandler{cal: cal, logger: log, loc: loc}
}

// GetToday returns the settlement view as of today.
// GET /api/calendar/today
func (h *CalendarHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	view, err := h.cal.Today(r.Context(), time.Now().In(h.loc))
	if err != nil {
		h.logger.WithError(err).Error("Failed to build calendar view")
		respondDomainError(w, err, "failed to build calendar view")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// GetCycle returns one settlement cycle for an explicit month.
// GET /api/calendar/cycle?type=futures&year=2026&month=9
func (h *CalendarHandler) GetCycle(w http.ResponseWriter, r *http.Request) {
	ct, err := contracts.ParseCycleType(r.URL.Query().Get("type"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid 'type' (expected futures or options)")
		return
	}
	year, month, ok := parseYearMonth(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid 'year' or 'month'")
		return
	}

	cycle, err := h.cal.Cycle(r.Context(), ct, year, month, h.loc)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve settlement cycle")
		respondDomainError(w, err, "failed to resolve settlement cycle")
		return
	}
	respondJSON(w, http.StatusOK, cycle)
}

// parseYearMonth reads year and month query params, defaulting to the
// current month.
func parseYearMonth(r *http.Request) (int, time.Month, bool) {
	now := time.Now()
	year, month := now.Year(), now.Month()

	if ys := r.URL.Query().Get("year"); ys != "" {
		y, err := strconv.Atoi(ys)
		if err != nil || y < 2000 || y > 2200 {
			return 0, 0, false
		}
		year = y
	}
	if ms := r.URL.Query().Get("month"); ms != "" {
		m, err := strconv.Atoi(ms)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, false
		}
		month = time.Month(m)
	}
	return year, month, true
}
