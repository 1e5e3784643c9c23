package store

import (
	"context"
	"errors"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"

	"namibialove.app/messaging/core/db/sqlc"
	"namibialove.app/messaging/internal/model"
)

type messageStore struct {
	queries *sqlc.Queries
}

func newMessageStore(queries *sqlc.Queries) MessageStore {
	return &messageStore{queries: queries}
}

func (s *messageStore) Create(ctx context.Context, msg *model.Message) error {
	row, err := s.queries.CreateMessage(ctx, sqlc.CreateMessageParams{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		CreatedAt:  pgtype.Timestamptz{Time: msg.CreatedAt, Valid: true},
	})
	if err != nil {
		return err
	}
	*msg = toMessageModel(row)
	return nil
}

func (s *messageStore) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	row, err := s.queries.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	msg := toMessageModel(row)
	return &msg, nil
}

func (s *messageStore) ListBetween(ctx context.Context, params ListBetweenParams) ([]model.Message, error) {
	rows, err := s.queries.ListMessagesBetween(ctx, sqlc.ListMessagesBetweenParams{
		UserID:        params.UserID,
		CounterpartID: params.CounterpartID,
		BeforeID:      params.BeforeID,
		PageSize:      int32(params.Limit),
	})
	if err != nil {
		return nil, err
	}

	msgs := toMessageModels(rows)
	slices.Reverse(msgs)
	return msgs, nil
}

func (s *messageStore) MarkRead(ctx context.Context, senderID, receiverID int64) (int64, error) {
	return s.queries.MarkMessagesRead(ctx, sqlc.MarkMessagesReadParams{
		SenderID:   senderID,
		ReceiverID: receiverID,
	})
}

func (s *messageStore) UnreadCount(ctx context.Context, receiverID int64) (int64, error) {
	return s.queries.CountUnreadMessages(ctx, receiverID)
}

func (s *messageStore) LatestPerCounterpart(ctx context.Context, userID int64) ([]model.Message, error) {
	rows, err := s.queries.LatestMessagePerCounterpart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toMessageModels(rows), nil
}

func (s *messageStore) UnreadBySender(ctx context.Context, receiverID int64) (map[int64]int64, error) {
	rows, err := s.queries.CountUnreadBySender(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(rows, func(row sqlc.CountUnreadBySenderRow) (int64, int64) {
		return row.SenderID, row.Unread
	}), nil
}

func toMessageModel(row sqlc.Message) model.Message {
	return model.Message{
		ID:         row.ID,
		SenderID:   row.SenderID,
		ReceiverID: row.ReceiverID,
		Content:    row.Content,
		Read:       row.Read,
		CreatedAt:  row.CreatedAt.Time,
	}
}

func toMessageModels(rows []sqlc.Message) []model.Message {
	msgs := make([]model.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, toMessageModel(row))
	}
	return msgs
}
