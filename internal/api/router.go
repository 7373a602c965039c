// Package api wires the HTTP surface of the engine.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/junzhu/tidegate/backend/internal/api/handlers"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

// Handlers bundles the route handlers the router needs.
type Handlers struct {
	Timing   *handlers.TimingHandler
	Calendar *handlers.CalendarHandler
	Risk     *handlers.RiskHandler
	Status   *handlers.StatusHandler
	Strategy *handlers.StrategyHandler
}

// NewRouter configures all routes.
// SSOT: 路由只在这里配置。
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Status.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/timing", h.Timing.GetSignal).Methods("GET")
	api.HandleFunc("/timing/range", h.Timing.GetRange).Methods("GET")

	api.HandleFunc("/calendar/today", h.Calendar.GetToday).Methods("GET")
	api.HandleFunc("/calendar/cycle", h.Calendar.GetCycle).Methods("GET")

	api.HandleFunc("/risk", h.Risk.List).Methods("GET")
	api.HandleFunc("/risk/{code}", h.Risk.CheckCode).Methods("GET")
	api.HandleFunc("/scan", h.Risk.TriggerScan).Methods("POST")

	api.HandleFunc("/status", h.Status.GetGlobal).Methods("GET")

	api.HandleFunc("/strategies", h.Strategy.List).Methods("GET")
	api.HandleFunc("/strategies/stats", h.Strategy.Stats).Methods("GET")
	api.HandleFunc("/strategies/{name}/run", h.Strategy.Trigger).Methods("POST")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from handler panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "internal server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
