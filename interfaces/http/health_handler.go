package http

import (
	"context"
	"net/http"
	"time"

	"github.com/mido200912/Ai-Thor/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type IHealthHandler interface {
	Healthz(c *gin.Context)
}

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) IHealthHandler {
	return &HealthHandler{checks: checks}
}

// Healthz returns OK for health checks, or 503 naming the failing backends.
func (h *HealthHandler) Healthz(ctx *gin.Context) {
	c, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	failing := make([]string, 0)
	for name, check := range h.checks {
		if err := check(c); err != nil {
			logger.GetLogger().WithField("check", name).WithField("error", err).Warn("Health check failed")
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failing": failing})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
