package store

import (
	"context"
	"errors"

	"namibialove.app/messaging/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ListBetweenParams selects one page of the exchange between two users.
// BeforeID of zero starts from the newest message.
type ListBetweenParams struct {
	UserID        int64
	CounterpartID int64
	Limit         int
	BeforeID      int64
}

// MessageStore defines the contract for message data access
type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	ListBetween(ctx context.Context, params ListBetweenParams) ([]model.Message, error) // oldest first
	MarkRead(ctx context.Context, senderID, receiverID int64) (int64, error)
	UnreadCount(ctx context.Context, receiverID int64) (int64, error)
	LatestPerCounterpart(ctx context.Context, userID int64) ([]model.Message, error)
	UnreadBySender(ctx context.Context, receiverID int64) (map[int64]int64, error)
}
