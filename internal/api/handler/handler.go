// Package handler provides HTTP handlers for the outreach service: health
// checks plus the authenticated trigger surface for scheduler and ops
// callers.
package handler

import (
	"net/http"
	"time"

	"github.com/ess007/beathealth-outreach/internal/api/respond"
	"github.com/ess007/beathealth-outreach/internal/config"
	"github.com/ess007/beathealth-outreach/internal/db"
	"github.com/ess007/beathealth-outreach/internal/delivery"
	"github.com/ess007/beathealth-outreach/internal/outreach"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool      *db.Pool
	runner    *outreach.Runner
	publisher *delivery.Publisher
	cfg       *config.Config
}

// New creates a Handler with shared dependencies.
func New(pool *db.Pool, runner *outreach.Runner, publisher *delivery.Publisher, cfg *config.Config) *Handler {
	return &Handler{
		pool:      pool,
		runner:    runner,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "BeatHealth Outreach Engine",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDelivery verifies the delivery stream connection.
// @Summary Delivery channel health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/delivery [get]
func (h *Handler) HealthCheckDelivery(w http.ResponseWriter, r *http.Request) {
	if err := h.publisher.Ping(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"delivery":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"delivery":  "connected",
		"enabled":   h.cfg.RedisURL != "",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
