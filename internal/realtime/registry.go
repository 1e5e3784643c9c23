package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"namibialove.app/messaging/internal/realtime/event"
)

// Channel is the registry's handle on one open duplex connection.
type Channel interface {
	// ID identifies the connection. It must be unique for the life of the
	// process so a closing channel can be told apart from its replacement.
	ID() string
	// Send hands a frame to the transport without waiting for the client.
	Send(frame []byte) error
	Close()
}

// ErrRegistryClosed is returned by Bind once the registry has been closed.
var ErrRegistryClosed = errors.New("realtime: registry closed")

// Registry maps authenticated users to their live channel. A user has at
// most one binding; the latest authenticate wins.
type Registry struct {
	mu       sync.RWMutex
	channels map[int64]Channel
	closed   bool
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[int64]Channel)}
}

// Bind points userID at ch and returns the channel it replaced, if any. The
// replaced channel stays open but is no longer addressable. After Close, ch
// is closed instead of bound and ErrRegistryClosed is returned.
func (r *Registry) Bind(userID int64, ch Channel) (Channel, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		ch.Close()
		return nil, ErrRegistryClosed
	}
	defer r.mu.Unlock()

	previous := r.channels[userID]
	r.channels[userID] = ch
	if previous != nil && previous.ID() == ch.ID() {
		return nil, nil
	}
	return previous, nil
}

// Unbind removes the binding for userID only if it still belongs to ch.
// A channel that lost its binding to a newer one cannot evict it.
func (r *Registry) Unbind(userID int64, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.channels[userID]
	if !ok || current.ID() != ch.ID() {
		return false
	}
	delete(r.channels, userID)
	return true
}

// Send delivers e to userID's channel if one is bound. It reports whether
// the frame was handed to the transport and never retries.
func (r *Registry) Send(ctx context.Context, userID int64, e event.Event) bool {
	r.mu.RLock()
	ch, ok := r.channels[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	frame, err := event.Encode(e)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode event",
			"error", err,
			"event_type", e.EventType(),
		)
		return false
	}

	if err := ch.Send(frame); err != nil {
		slog.WarnContext(ctx, "live delivery failed",
			"error", err,
			"recipient_id", userID,
			"event_type", e.EventType(),
			"connection_id", ch.ID(),
		)
		return false
	}
	return true
}

func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[userID]
	return ok
}

// Len returns the number of bound users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Close drops every binding and closes the bound channels. Later binds are
// refused, so no channel outlives it. It is called once at shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	channels := r.channels
	r.channels = make(map[int64]Channel)
	r.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
}
