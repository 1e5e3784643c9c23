package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"namibialove.app/messaging/common/logger"
	"namibialove.app/messaging/internal/cache"
	"namibialove.app/messaging/internal/model"
	"namibialove.app/messaging/internal/store"
)

type ConversationService interface {
	// List returns one entry per counterpart the user has exchanged messages
	// with, newest first.
	List(ctx context.Context, userID int64) ([]model.Conversation, error)
}

type conversationService struct {
	messages store.MessageStore
	cache    cache.ConversationCache
}

// NewConversationService builds the inbox view. A nil cache recomputes the
// view on every call.
func NewConversationService(messages store.MessageStore, conversations cache.ConversationCache) ConversationService {
	return &conversationService{
		messages: messages,
		cache:    conversations,
	}
}

func (s *conversationService) List(ctx context.Context, userID int64) ([]model.Conversation, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(userID)})

	if userID <= 0 {
		return nil, validationError("user id must be positive")
	}

	// The generation is read before the store so that a send or read landing
	// in between makes the computed view uncacheable.
	var (
		gen       cache.Generation
		cacheable bool
	)
	if s.cache != nil {
		cached, g, err := s.cache.Get(ctx, userID)
		switch {
		case err == nil:
			return cached, nil
		case errors.Is(err, cache.ErrMiss):
			gen, cacheable = g, true
		default:
			slog.WarnContext(ctx, "conversation cache read failed", "error", err)
		}
	}

	latest, err := s.messages.LatestPerCounterpart(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load latest messages", "error", err)
		return nil, persistenceError("loading latest messages", err)
	}

	unread, err := s.messages.UnreadBySender(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load unread counts", "error", err)
		return nil, persistenceError("loading unread counts", err)
	}

	conversations := buildConversations(userID, latest, unread)

	if cacheable {
		err := s.cache.Set(ctx, userID, gen, conversations)
		switch {
		case errors.Is(err, cache.ErrStale):
			slog.DebugContext(ctx, "conversation view changed while loading, not cached")
		case err != nil:
			slog.WarnContext(ctx, "conversation cache write failed", "error", err)
		}
	}

	return conversations, nil
}

// buildConversations keeps the newest message per counterpart and orders the
// result newest first, higher message id first on equal timestamps.
func buildConversations(userID int64, messages []model.Message, unread map[int64]int64) []model.Conversation {
	latest := make(map[int64]model.Message, len(messages))
	for _, m := range messages {
		counterpart := m.CounterpartOf(userID)
		if current, ok := latest[counterpart]; !ok || m.After(current) {
			latest[counterpart] = m
		}
	}

	conversations := lo.MapToSlice(latest, func(counterpart int64, m model.Message) model.Conversation {
		return model.Conversation{
			CounterpartID: counterpart,
			LastMessage:   m,
			UnreadCount:   unread[counterpart],
		}
	})

	slices.SortFunc(conversations, func(a, b model.Conversation) int {
		switch {
		case a.LastMessage.After(b.LastMessage):
			return -1
		case b.LastMessage.After(a.LastMessage):
			return 1
		default:
			return 0
		}
	})

	return conversations
}
