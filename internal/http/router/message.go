package router

import (
	"github.com/gin-gonic/gin"

	"namibialove.app/messaging/internal/http/handler"
)

func MessageRouter(rg *gin.RouterGroup, h *handler.MessageHandler) {
	rg.POST("", h.Send)
	rg.GET("/conversations", h.Conversations)
	rg.GET("/unread-count", h.UnreadCount)
	rg.GET("/:userId", h.List)
	rg.POST("/:userId/read", h.MarkRead)
}
