// Package api assembles the HTTP surface of the bot: health, metrics, the live
// event feed and the operator admin API.
package api

import (
	"net/http"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/api/handlers"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/api/middleware"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Handlers  *handlers.Handlers
	Tokens    *auth.TokenService
	Limiter   *middleware.RateLimiter
	WebSocket gin.HandlerFunc
	Metrics   http.Handler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h := deps.Handlers
	r.GET("/health", h.Health.Health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	api := r.Group("/api")
	{
		if deps.WebSocket != nil {
			api.GET("/ws", deps.WebSocket)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(deps.Tokens))
		if deps.Limiter != nil {
			admin.Use(middleware.RateLimit(deps.Limiter))
		}
		{
			admin.GET("/helper-role", h.Admin.GetHelperRole)
			admin.PUT("/helper-role", h.Admin.SetHelperRole)
			admin.POST("/jobs/:job", h.Admin.RunJob)

			community := admin.Group("/communities/:communityId")
			{
				community.GET("/status", h.Admin.Status)
				community.GET("/diagnostics", h.Admin.Diagnostics)
				community.GET("/follow-ups", h.Admin.FollowUps)
				community.GET("/events", h.Admin.Events)
				community.DELETE("/channels/:channelId", h.Admin.DeleteChannel)
				community.POST("/cleanup-duplicates", h.Admin.CleanupDuplicates)
				community.POST("/members/:memberId/onboard", h.Admin.Onboard)
				community.POST("/members/:memberId/follow-up", h.Admin.FollowUp)
			}
		}
	}

	return r
}
