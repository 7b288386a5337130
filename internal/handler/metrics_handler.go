package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/service"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	checks  map[string]ReadinessCheck
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, checks map[string]ReadinessCheck) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks}
}

// Prometheus godoc
// @Summary Prometheus metrics
// @Tags Operations
// @Produce plain
// @Success 200 {string} string
// @Router /metrics [get]
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness probe
// @Tags Operations
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// APIHealth keeps the public health route used by the web client.
// @Summary Web client health check
// @Tags Operations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/health [get]
func (h *MetricsHandler) APIHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Server is running"})
}

// Ready godoc
// @Summary Readiness probe
// @Description Runs every dependency check with a short deadline
// @Tags Operations
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} response.Envelope
// @Router /ready [get]
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]interface{}{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		response.Error(c, appErrors.WithDetails(appErrors.New("NOT_READY", http.StatusServiceUnavailable, "dependencies unavailable"), failed))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
