package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"namibialove.app/messaging/internal/model"
)

const conversationKeyPrefix = "messaging:conversations:"

// Generation counts the invalidations of one user's inbox. A view computed
// from the store may only be cached under the generation read before the
// store was queried.
type Generation int64

// ConversationCache stores the computed inbox of a user. Entries must be
// invalidated whenever a message involving the user is created or marked read.
type ConversationCache interface {
	// Get returns the cached inbox. On ErrMiss the returned generation is the
	// one a following Set must pass.
	Get(ctx context.Context, userID int64) ([]model.Conversation, Generation, error)
	// Set stores conversations unless the inbox was invalidated since gen was
	// read, in which case it returns ErrStale and writes nothing.
	Set(ctx context.Context, userID int64, gen Generation, conversations []model.Conversation) error
	Invalidate(ctx context.Context, userIDs ...int64) error
}

type redisConversationCache struct {
	client redis.UniversalClient
	ttl    time.Duration

	// pending holds users whose invalidation failed. Their entries are not
	// served or written by this process until a retry succeeds.
	mu      sync.Mutex
	pending map[int64]struct{}
}

// NewConversationCache returns a Redis backed cache. A ttl of zero keeps
// entries until they are invalidated.
func NewConversationCache(client redis.UniversalClient, ttl time.Duration) ConversationCache {
	return &redisConversationCache{
		client:  client,
		ttl:     ttl,
		pending: make(map[int64]struct{}),
	}
}

func (c *redisConversationCache) Get(ctx context.Context, userID int64) ([]model.Conversation, Generation, error) {
	if c.isPending(userID) {
		if err := c.Invalidate(ctx); err != nil {
			return nil, 0, fmt.Errorf("retrying invalidation: %w", err)
		}
	}

	// One MGET reads the generation and the entry atomically.
	values, err := c.client.MGet(ctx, GenerationKey(userID), ConversationKey(userID)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("reading conversations: %w", err)
	}

	gen, err := parseGeneration(values[0])
	if err != nil {
		return nil, 0, err
	}
	raw, ok := values[1].(string)
	if !ok {
		return nil, gen, ErrMiss
	}

	var conversations []model.Conversation
	if err := json.Unmarshal([]byte(raw), &conversations); err != nil {
		return nil, 0, fmt.Errorf("decoding conversations: %w", err)
	}
	return conversations, gen, nil
}

func (c *redisConversationCache) Set(ctx context.Context, userID int64, gen Generation, conversations []model.Conversation) error {
	if c.isPending(userID) {
		return ErrStale
	}
	if conversations == nil {
		conversations = []model.Conversation{}
	}
	raw, err := json.Marshal(conversations)
	if err != nil {
		return fmt.Errorf("encoding conversations: %w", err)
	}

	genKey := GenerationKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		currentGen, err := readGeneration(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if currentGen != gen {
			return ErrStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ConversationKey(userID), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	default:
		return fmt.Errorf("writing conversations: %w", err)
	}
}

// Invalidate bumps the generation of every user and drops their entries.
// Users from earlier failed calls are retried along with userIDs.
func (c *redisConversationCache) Invalidate(ctx context.Context, userIDs ...int64) error {
	c.mu.Lock()
	ids := lo.Uniq(append(lo.Keys(c.pending), userIDs...))
	c.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Incr(ctx, GenerationKey(id))
			pipe.Del(ctx, ConversationKey(id))
		}
		return nil
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if err != nil {
			c.pending[id] = struct{}{}
		} else {
			delete(c.pending, id)
		}
	}
	if err != nil {
		return fmt.Errorf("invalidating conversations: %w", err)
	}
	return nil
}

func (c *redisConversationCache) isPending(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[userID]
	return ok
}

func readGeneration(ctx context.Context, tx *redis.Tx, key string) (Generation, error) {
	value, err := tx.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseGeneration(value)
}

func parseGeneration(value any) (Generation, error) {
	if value == nil {
		return 0, nil
	}
	s, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected generation value %T", value)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing generation: %w", err)
	}
	return Generation(n), nil
}

func ConversationKey(userID int64) string {
	return fmt.Sprintf("%s%d", conversationKeyPrefix, userID)
}

// GenerationKey holds the invalidation counter of userID. It has no expiry,
// so a generation never resets while a view computed under it is in flight.
func GenerationKey(userID int64) string {
	return fmt.Sprintf("%s%d:gen", conversationKeyPrefix, userID)
}
