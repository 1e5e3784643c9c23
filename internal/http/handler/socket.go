package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"namibialove.app/messaging/common/logger"
	"namibialove.app/messaging/core/config"
	"namibialove.app/messaging/internal/realtime"
)

type SocketHandler struct {
	registry  *realtime.Registry
	messenger realtime.Messenger
	cfg       config.RealtimeConfig
	upgrader  websocket.Upgrader
}

func NewSocketHandler(registry *realtime.Registry, messenger realtime.Messenger, cfg config.RealtimeConfig) *SocketHandler {
	h := &SocketHandler{
		registry:  registry,
		messenger: messenger,
		cfg:       cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Serve upgrades the request and runs the session until the client goes
// away. Identity is established by the authenticate event, not by headers.
func (h *SocketHandler) Serve(c *gin.Context) {
	ctx := c.Request.Context()

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}

	conn := realtime.NewConnection(ws, h.cfg)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ConnectionID: logger.Ptr(conn.ID()),
		Component:    "messaging.realtime.session",
	})

	session := realtime.NewSession(conn, h.registry, h.messenger)
	conn.Start()
	slog.DebugContext(ctx, "channel opened")

	err = conn.ReadLoop(ctx, session.Handle)
	session.Close()
	conn.Close()

	if err != nil {
		slog.WarnContext(ctx, "channel closed unexpectedly", "error", err)
		return
	}
	slog.DebugContext(ctx, "channel closed")
}

func (h *SocketHandler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	return lo.Contains(h.cfg.AllowedOrigins, r.Header.Get("Origin"))
}
