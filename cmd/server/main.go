package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"namibialove.app/messaging/common/id"
	"namibialove.app/messaging/common/logger"
	"namibialove.app/messaging/common/otel"
	"namibialove.app/messaging/core/config"
	"namibialove.app/messaging/core/db"
	"namibialove.app/messaging/internal/cache"
	"namibialove.app/messaging/internal/http/handler"
	"namibialove.app/messaging/internal/http/middleware"
	httprouter "namibialove.app/messaging/internal/http/router"
	"namibialove.app/messaging/internal/realtime"
	"namibialove.app/messaging/internal/service"
	"namibialove.app/messaging/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize otel: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "messaging starting", "env", cfg.Env, "node_id", cfg.NodeID)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	var conversationCache cache.ConversationCache
	if cfg.Redis.Enabled() {
		redisClient, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close() //nolint:errcheck

		conversationCache = cache.NewConversationCache(redisClient, cfg.Redis.ConversationCacheTTL)
		slog.InfoContext(ctx, "conversation cache enabled", "ttl", cfg.Redis.ConversationCacheTTL)
	} else {
		slog.InfoContext(ctx, "conversation cache disabled (no redis url configured)")
	}

	registry := realtime.NewRegistry()

	services := service.NewServices(service.ServicesConfig{
		Stores:        store.NewStores(database.Queries()),
		TxRunner:      service.NewTxRunner(database),
		Notifier:      registry,
		Conversations: conversationCache,
		Messages:      cfg.Messages,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, registry, database)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...", "online", registry.Len())

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Stop accepting upgrades first. Hijacked websockets are not tracked by
	// the server, so the registry closes them afterwards and refuses any
	// authenticate that was still in flight.
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}
	registry.Close()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, registry *realtime.Registry, database *db.DB) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.Realtime.AllowedOrigins, cfg.IdentityHeader))

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		IdentityHeader: cfg.IdentityHeader,
		Registry:       registry,
		Health:         database,
		Socket:         handler.NewSocketHandler(registry, services.Messages(), cfg.Realtime),
	})

	return router
}
