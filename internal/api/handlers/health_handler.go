package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/onboarding"
	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by the redis connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness of the bot and its dependencies
type HealthHandler struct {
	gateway func() bool
	cache   Pinger
	clients func() int
	stats   func() onboarding.RegistryStats
}

// NewHealthHandler creates a health handler. cache may be nil.
func NewHealthHandler(gateway func() bool, cache Pinger, clients func() int, stats func() onboarding.RegistryStats) *HealthHandler {
	return &HealthHandler{gateway: gateway, cache: cache, clients: clients, stats: stats}
}

func (h *HealthHandler) Health(c *gin.Context) {
	connected := h.gateway()

	status, code := "healthy", http.StatusOK
	if !connected {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"timestamp":  time.Now(),
		"gateway":    gatewayStatus(connected),
		"cache":      h.cacheStatus(c.Request.Context()),
		"ws_clients": h.clients(),
		"registry":   toRegistryStatsResponse(h.stats()),
	})
}

func gatewayStatus(connected bool) string {
	if connected {
		return "connected"
	}
	return "disconnected"
}

func (h *HealthHandler) cacheStatus(ctx context.Context) string {
	if h.cache == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.cache.Ping(ctx); err != nil {
		return "unreachable"
	}
	return "connected"
}
