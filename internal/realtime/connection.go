package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"namibialove.app/messaging/core/config"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("connection send buffer full")
)

// Connection wraps a websocket and serialises outbound writes through a
// buffered queue drained by a single writer goroutine. It satisfies Channel.
type Connection struct {
	id  string
	ws  *websocket.Conn
	cfg config.RealtimeConfig

	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func NewConnection(ws *websocket.Conn, cfg config.RealtimeConfig) *Connection {
	size := cfg.SendBuffer
	if size <= 0 {
		size = 128
	}
	return &Connection{
		id:     uuid.NewString(),
		ws:     ws,
		cfg:    cfg,
		send:   make(chan []byte, size),
		closed: make(chan struct{}),
	}
}

func (c *Connection) ID() string {
	return c.id
}

// Start launches the write loop. It must be called exactly once.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send queues frame for the write loop. A client that lets the queue fill
// up is disconnected rather than slowing down its senders.
func (c *Connection) Send(frame []byte) error {
	select {
	case <-c.closed:
		return ErrConnectionClosed
	default:
	}

	select {
	case <-c.closed:
		return ErrConnectionClosed
	case c.send <- frame:
		return nil
	default:
		c.CloseWith(websocket.CloseTryAgainLater, "send buffer full")
		return ErrSendBufferFull
	}
}

func (c *Connection) Close() {
	c.CloseWith(websocket.CloseGoingAway, "server closing")
}

// CloseWith sends a close frame with code and reason and tears the socket
// down. Only the first call has an effect.
func (c *Connection) CloseWith(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		deadline := time.Now().Add(c.writeWait())
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.closed
}

// ReadLoop hands every inbound data frame to handle, in order, until the
// peer disconnects or the connection is closed. A normal close returns nil.
func (c *Connection) ReadLoop(ctx context.Context, handle func(ctx context.Context, frame []byte)) error {
	if c.cfg.ReadLimit > 0 {
		c.ws.SetReadLimit(c.cfg.ReadLimit)
	}
	if c.cfg.PongWait > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		})
	}

	for {
		kind, frame, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				return nil
			default:
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return err
			}
			return nil
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		handle(ctx, frame)
	}
}

func (c *Connection) writeLoop() {
	var tick <-chan time.Time
	if c.cfg.PingPeriod > 0 {
		ticker := time.NewTicker(c.cfg.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.CloseWith(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-tick:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.CloseWith(websocket.CloseInternalServerErr, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(kind int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait())); err != nil {
		return err
	}
	return c.ws.WriteMessage(kind, payload)
}

func (c *Connection) writeWait() time.Duration {
	if c.cfg.WriteWait > 0 {
		return c.cfg.WriteWait
	}
	return 10 * time.Second
}
