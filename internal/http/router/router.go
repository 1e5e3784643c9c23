package router

import (
	"github.com/gin-gonic/gin"

	"namibialove.app/messaging/internal/http/handler"
	"namibialove.app/messaging/internal/http/middleware"
	"namibialove.app/messaging/internal/realtime"
	"namibialove.app/messaging/internal/service"
)

type RouterConfig struct {
	IdentityHeader string
	Registry       *realtime.Registry
	Health         handler.Pinger
	Socket         *handler.SocketHandler
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	healthHandler := handler.NewHealthHandler(cfg.Health, cfg.Registry)
	router.GET("/health", healthHandler.Health)

	router.GET("/ws", cfg.Socket.Serve)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireIdentity(cfg.IdentityHeader))
	{
		messageHandler := handler.NewMessageHandler(services.Messages(), services.Conversations())
		MessageRouter(v1.Group("/messages"), messageHandler)
	}
}
