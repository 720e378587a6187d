package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sonna/internal/model"
	"sonna/internal/pkg/mongodb"
)

// pingTimeout bounds the store probe so health checks stay fast.
const pingTimeout = 2 * time.Second

// HealthHandler liveness and readiness probes
type HealthHandler struct {
	mongo *mongodb.Client
}

// NewHealthHandler creates a health handler
func NewHealthHandler(mongo *mongodb.Client) *HealthHandler {
	return &HealthHandler{mongo: mongo}
}

// Root service welcome document
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to Sonna API",
		"version": "0.1.0",
		"status":  "running",
	})
}

// Health reports liveness plus session-store connectivity. Always 200;
// a broken store shows up as "disconnected", not as a failed probe.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{
		Status:   "healthy",
		Database: h.databaseStatus(c.Request.Context()),
	})
}

// Ready returns 200 only when the session store is reachable
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.databaseStatus(c.Request.Context()) != "connected" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

func (h *HealthHandler) databaseStatus(ctx context.Context) string {
	if h.mongo == nil {
		return "disconnected"
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := h.mongo.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}
