package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"namibialove.app/messaging/common/logger"
	"namibialove.app/messaging/internal/model"
	"namibialove.app/messaging/internal/realtime/event"
	"namibialove.app/messaging/internal/service"
)

// Messenger is the part of the message service a session drives.
type Messenger interface {
	Send(ctx context.Context, senderID, receiverID int64, content string) (*model.Message, error)
	MarkRead(ctx context.Context, senderID, readerID int64) (int64, error)
}

type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session runs the event protocol for one channel. Frames must be handed to
// Handle in the order the client sent them; Handle and Close may be called
// from different goroutines.
type Session struct {
	ch        Channel
	registry  *Registry
	messenger Messenger

	mu     sync.Mutex
	state  State
	userID int64
}

func NewSession(ch Channel, registry *Registry, messenger Messenger) *Session {
	return &Session{
		ch:        ch,
		registry:  registry,
		messenger: messenger,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID returns the bound identity, if the session has authenticated.
func (s *Session) UserID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.state == StateAuthenticated
}

// Handle processes one inbound frame. Protocol and service errors are
// reported to the client as error events and never end the session.
func (s *Session) Handle(ctx context.Context, frame []byte) {
	if s.State() == StateClosed {
		return
	}

	in, err := event.Decode(frame)
	if err != nil {
		slog.WarnContext(ctx, "rejected inbound frame",
			"error", err,
			"frame", logger.Truncate(string(frame), 256),
		)
		s.reply(ctx, event.Error(event.Reason(err)))
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{EventType: logger.Ptr(string(in.Type))})

	switch in.Type {
	case event.TypeAuthenticate:
		s.authenticate(ctx, int64(*in.UserID))
	case event.TypeMessage:
		s.sendMessage(ctx, int64(*in.ReceiverID), *in.Content)
	case event.TypeTyping:
		s.typing(ctx, int64(*in.ReceiverID), in.Typing())
	case event.TypeReadMessages:
		s.readMessages(ctx, int64(*in.SenderID))
	}
}

// Close releases the session's binding if it still owns it. It is safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAuthenticated {
		s.registry.Unbind(s.userID, s.ch)
	}
	s.state = StateClosed
}

func (s *Session) authenticate(ctx context.Context, userID int64) {
	if userID <= 0 {
		s.reply(ctx, event.Error("userId must be a positive integer"))
		return
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	if s.state == StateAuthenticated && s.userID != userID {
		s.registry.Unbind(s.userID, s.ch)
	}
	previous, err := s.registry.Bind(userID, s.ch)
	if err != nil {
		s.state = StateClosed
		s.mu.Unlock()
		slog.InfoContext(ctx, "channel refused during shutdown", "error", err)
		return
	}
	s.state = StateAuthenticated
	s.userID = userID
	s.mu.Unlock()

	ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(userID)})
	if previous != nil {
		slog.InfoContext(ctx, "binding replaced by newer channel", "previous_connection_id", previous.ID())
	}
	slog.DebugContext(ctx, "channel authenticated")

	s.reply(ctx, event.Authenticated(userID))
}

func (s *Session) sendMessage(ctx context.Context, receiverID int64, content string) {
	userID, ok := s.requireUser(ctx)
	if !ok {
		return
	}

	msg, err := s.messenger.Send(ctx, userID, receiverID, content)
	if err != nil {
		s.reply(ctx, event.Error(serviceErrorMessage(err, "failed to send message")))
		return
	}
	s.reply(ctx, event.MessageSent(*msg))
}

// typing is relayed only; nothing is stored and an offline receiver simply
// misses it.
func (s *Session) typing(ctx context.Context, receiverID int64, isTyping bool) {
	userID, ok := s.requireUser(ctx)
	if !ok {
		return
	}
	if receiverID <= 0 {
		s.reply(ctx, event.Error("receiverId must be a positive integer"))
		return
	}
	s.registry.Send(ctx, receiverID, event.Typing(userID, isTyping))
}

func (s *Session) readMessages(ctx context.Context, senderID int64) {
	userID, ok := s.requireUser(ctx)
	if !ok {
		return
	}

	if _, err := s.messenger.MarkRead(ctx, senderID, userID); err != nil {
		s.reply(ctx, event.Error(serviceErrorMessage(err, "failed to mark messages as read")))
	}
}

func (s *Session) requireUser(ctx context.Context) (int64, bool) {
	userID, ok := s.UserID()
	if !ok {
		s.reply(ctx, event.Error("not authenticated"))
	}
	return userID, ok
}

func (s *Session) reply(ctx context.Context, e event.Event) {
	frame, err := event.Encode(e)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode reply", "error", err, "event_type", e.EventType())
		return
	}
	if err := s.ch.Send(frame); err != nil {
		slog.DebugContext(ctx, "reply dropped", "error", err, "event_type", e.EventType())
	}
}

// serviceErrorMessage exposes validation details and hides storage errors.
func serviceErrorMessage(err error, fallback string) string {
	if errors.Is(err, service.ErrValidation) {
		return err.Error()
	}
	return fallback
}
