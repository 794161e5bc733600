package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Check reports ok when every dependency answers, degraded otherwise
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	services := make(map[string]bool, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		ok := check(ctx) == nil
		services[name] = ok
		healthy = healthy && ok
	}

	payload := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"services":  services,
	}
	if !healthy {
		payload["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, payload)
		return
	}
	c.JSON(http.StatusOK, payload)
}
