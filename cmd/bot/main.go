package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/api"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/api/handlers"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/api/middleware"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/auth"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/commands"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/config"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/cron"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/db"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/discord"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/metrics"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/notification"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/onboarding"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/socket"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// ============================================
	// Configuration
	// ============================================
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if cfg.DiscordToken == "" {
		log.Fatal("❌ DISCORD_TOKEN is required")
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		if cfg.JWTSecret == "change-me" {
			log.Fatal("❌ JWT_SECRET must be set in production")
		}
	}
	loc, _ := cfg.Location()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ============================================
	// Redis (optional event fan-out and history)
	// ============================================
	var redisDB *db.RedisDB
	var publisher *db.EventPublisher
	if cfg.RedisURL != "" {
		var err error
		redisDB, err = db.NewRedisDB(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (continuing without event fan-out)", err)
		} else {
			defer redisDB.Close()
			publisher = db.NewEventPublisher(redisDB, cfg.RedisEventsChannel)
			log.Println("⚡ Redis event fan-out enabled")
		}
	}

	// ============================================
	// WebSocket hub and metrics
	// ============================================
	hub := socket.NewHub()
	go hub.Run(ctx)
	broadcaster := socket.NewBroadcaster(hub)
	log.Println("🔌 WebSocket hub initialized")

	registry := onboarding.NewRegistry(cfg.SuppressionWindow)
	recorder := metrics.NewRecorder(registry.Stats)
	recorder.Gauge("ws_clients", "Connected live feed clients.", func() float64 {
		return float64(hub.GetConnectedClientsCount())
	})

	// With Redis every replica's events reach every replica's websocket clients.
	sinks := onboarding.Sinks{recorder}
	if publisher != nil {
		sinks = append(sinks, publisher)
		go func() {
			if err := publisher.Subscribe(ctx, broadcaster, nil); err != nil {
				log.Printf("❌ [Redis] Event relay stopped: %v", err)
			}
		}()
	} else {
		sinks = append(sinks, broadcaster)
	}

	// ============================================
	// Discord session and onboarding service
	// ============================================
	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		log.Fatalf("❌ Failed to create Discord session: %v", err)
	}
	client := discord.NewClient(session)
	composer := notification.NewComposer()

	svc := onboarding.NewService(client, registry, onboarding.NewNamer(cfg.ChannelPrefix, loc), composer,
		onboarding.SettingsFromConfig(cfg),
		onboarding.WithEventSink(sinks),
	)
	cmdRouter := commands.NewRouter(svc, client, composer, cfg.CommandPrefix)
	gateway := discord.NewGateway(session, svc, cmdRouter)

	if err := gateway.Open(); err != nil {
		log.Fatalf("❌ Failed to connect to Discord: %v", err)
	}
	log.Println("✨ Onboarding service initialized")

	// ============================================
	// Cron jobs
	// ============================================
	scheduler := cron.NewScheduler(svc, cfg.SweepSchedule)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}

	// ============================================
	// HTTP server
	// ============================================
	tokens := auth.NewTokenService(cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(cfg.AdminRateRPS, cfg.AdminRateBurst)
	defer limiter.Shutdown()

	var history handlers.EventHistory
	var cache handlers.Pinger
	if publisher != nil {
		history = publisher
		cache = redisDB
	}

	router := api.NewRouter(api.RouterDeps{
		Handlers: &handlers.Handlers{
			Admin:  handlers.NewAdminHandler(svc, history, scheduler),
			Health: handlers.NewHealthHandler(gateway.Connected, cache, hub.GetConnectedClientsCount, registry.Stats),
		},
		Tokens:    tokens,
		Limiter:   limiter,
		WebSocket: socket.NewHandler(hub, tokens).HandleWebSocket,
		Metrics:   recorder.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Admin server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// ============================================
	// Graceful shutdown
	// ============================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Server forced to shutdown: %v", err)
	}

	if err := gateway.Close(); err != nil {
		log.Printf("⚠️ Failed to close Discord session: %v", err)
	}
	cancel()

	log.Println("Bot exited")
}
