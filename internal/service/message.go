package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"namibialove.app/messaging/common/id"
	"namibialove.app/messaging/common/logger"
	"namibialove.app/messaging/core/config"
	"namibialove.app/messaging/internal/cache"
	"namibialove.app/messaging/internal/model"
	"namibialove.app/messaging/internal/realtime/event"
	"namibialove.app/messaging/internal/store"
)

// Notifier pushes an event to a user's live channel, if they have one.
type Notifier interface {
	Send(ctx context.Context, userID int64, e event.Event) bool
}

// Page selects a window of a message listing. Zero values use the defaults.
type Page struct {
	Limit    int
	BeforeID int64
}

// MessageService is the single entry point for sending and reading direct
// messages. The realtime channel and the REST API both go through it.
type MessageService interface {
	// Send stores a message and then attempts live delivery to the receiver.
	// An error means nothing was stored and nothing was delivered.
	Send(ctx context.Context, senderID, receiverID int64, content string) (*model.Message, error)
	// MarkRead marks every unread message from senderID to readerID as read
	// and notifies senderID with messages_read.
	MarkRead(ctx context.Context, senderID, readerID int64) (int64, error)
	// ListWith returns the exchange between userID and counterpartID, oldest
	// first, and marks the counterpart's messages to userID as read.
	ListWith(ctx context.Context, userID, counterpartID int64, page Page) ([]model.Message, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

type messageService struct {
	messages      store.MessageStore
	txRunner      TxRunner
	notifier      Notifier
	conversations cache.ConversationCache
	cfg           config.MessagesConfig
}

// NewMessageService wires the delivery path. conversations may be nil when
// no cache is configured.
func NewMessageService(
	messages store.MessageStore,
	txRunner TxRunner,
	notifier Notifier,
	conversations cache.ConversationCache,
	cfg config.MessagesConfig,
) MessageService {
	return &messageService{
		messages:      messages,
		txRunner:      txRunner,
		notifier:      notifier,
		conversations: conversations,
		cfg:           cfg,
	}
}

func (s *messageService) Send(ctx context.Context, senderID, receiverID int64, content string) (*model.Message, error) {
	sc := logger.StartSpan(ctx, "messages.send", trace.WithAttributes(
		attribute.Int64("sender_id", senderID),
		attribute.Int64("receiver_id", receiverID),
	))
	defer sc.End()
	ctx = logger.WithLogFields(sc.Context(), logger.LogFields{
		UserID:        logger.Ptr(senderID),
		CounterpartID: logger.Ptr(receiverID),
	})

	content, err := s.validate(senderID, receiverID, content)
	if err != nil {
		sc.RecordError(err)
		return nil, err
	}

	// created_at comes from the id so that time order and id order agree.
	msgID := id.New()
	msg := &model.Message{
		ID:         msgID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  id.Time(msgID),
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to store message", "error", err)
		sc.RecordError(err)
		return nil, persistenceError("creating message", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr(msg.ID)})
	s.invalidate(ctx, senderID, receiverID)

	delivered := s.notifier.Send(ctx, receiverID, event.Message(*msg))
	sc.SetAttributes(
		attribute.Int64("message_id", msg.ID),
		attribute.Bool("delivered", delivered),
	)
	slog.DebugContext(ctx, "message sent", "delivered", delivered)

	return msg, nil
}

// MarkRead always forwards messages_read to the sender, even when no row
// changed, so clients see a receipt for every explicit read.
func (s *messageService) MarkRead(ctx context.Context, senderID, readerID int64) (int64, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:        logger.Ptr(readerID),
		CounterpartID: logger.Ptr(senderID),
	})

	if senderID <= 0 || readerID <= 0 {
		return 0, validationError("senderId and readerId must be positive")
	}

	changed, err := s.messages.MarkRead(ctx, senderID, readerID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to mark messages read", "error", err)
		return 0, persistenceError("marking messages read", err)
	}

	if changed > 0 {
		s.invalidate(ctx, senderID, readerID)
	}
	s.notifier.Send(ctx, senderID, event.MessagesRead(readerID))

	return changed, nil
}

// ListWith notifies the counterpart only when opening the exchange actually
// flipped unread messages.
func (s *messageService) ListWith(ctx context.Context, userID, counterpartID int64, page Page) ([]model.Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:        logger.Ptr(userID),
		CounterpartID: logger.Ptr(counterpartID),
	})

	if userID <= 0 || counterpartID <= 0 {
		return nil, validationError("user ids must be positive")
	}
	if page.Limit < 0 || page.BeforeID < 0 {
		return nil, validationError("limit and before must not be negative")
	}

	params := store.ListBetweenParams{
		UserID:        userID,
		CounterpartID: counterpartID,
		Limit:         s.pageSize(page.Limit),
		BeforeID:      page.BeforeID,
	}

	var (
		msgs    []model.Message
		changed int64
	)
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		var err error
		msgs, err = stores.Messages().ListBetween(ctx, params)
		if err != nil {
			return persistenceError("listing messages", err)
		}
		changed, err = stores.Messages().MarkRead(ctx, counterpartID, userID)
		if err != nil {
			return persistenceError("marking messages read", err)
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to list messages", "error", err)
		return nil, err
	}

	if changed > 0 {
		// The listing was read inside the same transaction, so rows returned
		// to the reader still carry read=false for what was just marked.
		for i := range msgs {
			if msgs[i].SenderID == counterpartID {
				msgs[i].Read = true
			}
		}
		s.invalidate(ctx, userID, counterpartID)
		s.notifier.Send(ctx, counterpartID, event.MessagesRead(userID))
	}

	return msgs, nil
}

func (s *messageService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, validationError("user id must be positive")
	}

	count, err := s.messages.UnreadCount(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count unread messages", "error", err, "user_id", userID)
		return 0, persistenceError("counting unread messages", err)
	}
	return count, nil
}

// validate returns the content as it will be stored.
func (s *messageService) validate(senderID, receiverID int64, content string) (string, error) {
	if senderID <= 0 {
		return "", validationError("senderId must be positive")
	}
	if receiverID <= 0 {
		return "", validationError("receiverId must be positive")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", validationError("content must not be empty")
	}
	if limit := s.cfg.MaxContentLength; limit > 0 && utf8.RuneCountInString(content) > limit {
		return "", validationError("content exceeds %d characters", limit)
	}
	return content, nil
}

func (s *messageService) pageSize(limit int) int {
	if limit == 0 {
		limit = s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	if limit <= 0 {
		limit = 50
	}
	return limit
}

func (s *messageService) invalidate(ctx context.Context, userIDs ...int64) {
	if s.conversations == nil {
		return
	}
	if err := s.conversations.Invalidate(ctx, userIDs...); err != nil {
		slog.WarnContext(ctx, "failed to invalidate conversation cache", "error", err)
	}
}
