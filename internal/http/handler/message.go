package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"namibialove.app/messaging/common/logger"
	"namibialove.app/messaging/internal/http/dto"
	"namibialove.app/messaging/internal/http/middleware"
	"namibialove.app/messaging/internal/realtime/event"
	"namibialove.app/messaging/internal/service"
)

type MessageHandler struct {
	messageService      service.MessageService
	conversationService service.ConversationService
}

func NewMessageHandler(messageService service.MessageService, conversationService service.ConversationService) *MessageHandler {
	return &MessageHandler{
		messageService:      messageService,
		conversationService: conversationService,
	}
}

// Send is the REST fallback for the message event.
func (h *MessageHandler) Send(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": event.Reason(err)})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": event.Reason(err)})
		return
	}

	msg, err := h.messageService.Send(ctx, userID, int64(*req.ReceiverID), *req.Content)
	if err != nil {
		writeServiceError(c, err, "failed to send message")
		return
	}

	c.JSON(http.StatusCreated, dto.ToMessageResponse(*msg))
}

// List returns the exchange with the user in the path and marks their
// messages to the caller as read.
func (h *MessageHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	counterpartID, ok := counterpartParam(c)
	if !ok {
		return
	}

	var query dto.ListMessagesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{CounterpartID: logger.Ptr(counterpartID)})
	msgs, err := h.messageService.ListWith(ctx, userID, counterpartID, service.Page{
		Limit:    query.Limit,
		BeforeID: query.Before,
	})
	if err != nil {
		writeServiceError(c, err, "failed to list messages")
		return
	}

	c.JSON(http.StatusOK, dto.ToListMessagesResponse(msgs))
}

// MarkRead is the REST equivalent of the read_messages event.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	senderID, ok := counterpartParam(c)
	if !ok {
		return
	}

	updated, err := h.messageService.MarkRead(ctx, senderID, userID)
	if err != nil {
		writeServiceError(c, err, "failed to mark messages as read")
		return
	}

	c.JSON(http.StatusOK, dto.MarkReadResponse{Updated: updated})
}

func (h *MessageHandler) UnreadCount(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	count, err := h.messageService.UnreadCount(ctx, userID)
	if err != nil {
		writeServiceError(c, err, "failed to count unread messages")
		return
	}

	c.JSON(http.StatusOK, dto.UnreadCountResponse{Count: count})
}

func (h *MessageHandler) Conversations(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	conversations, err := h.conversationService.List(ctx, userID)
	if err != nil {
		writeServiceError(c, err, "failed to list conversations")
		return
	}

	c.JSON(http.StatusOK, dto.ToListConversationsResponse(conversations))
}

func counterpartParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}
