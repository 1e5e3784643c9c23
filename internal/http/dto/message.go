package dto

import (
	"time"

	"github.com/samber/lo"

	"namibialove.app/messaging/internal/model"
	"namibialove.app/messaging/internal/realtime/event"
)

// SendMessageRequest mirrors the message event of the realtime channel and
// is checked by the same rules. Id and content values are validated by the
// message service for both transports.
type SendMessageRequest struct {
	ReceiverID *event.ID `json:"receiverId"`
	Content    *string   `json:"content"`
}

func (r SendMessageRequest) Validate() error {
	return event.Inbound{
		Type:       event.TypeMessage,
		ReceiverID: r.ReceiverID,
		Content:    r.Content,
	}.Validate()
}

type ListMessagesQuery struct {
	Limit  int   `form:"limit" binding:"omitempty,min=1"`
	Before int64 `form:"before" binding:"omitempty,min=1"`
}

type MessageResponse struct {
	ID         int64     `json:"id,string"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type ConversationResponse struct {
	CounterpartID int64           `json:"counterpartId"`
	LastMessage   MessageResponse `json:"lastMessage"`
	UnreadCount   int64           `json:"unreadCount"`
}

type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

func ToMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
	}
}

func ToListMessagesResponse(msgs []model.Message) ListMessagesResponse {
	return ListMessagesResponse{
		Messages: lo.Map(msgs, func(m model.Message, _ int) MessageResponse {
			return ToMessageResponse(m)
		}),
	}
}

func ToListConversationsResponse(conversations []model.Conversation) ListConversationsResponse {
	return ListConversationsResponse{
		Conversations: lo.Map(conversations, func(c model.Conversation, _ int) ConversationResponse {
			return ConversationResponse{
				CounterpartID: c.CounterpartID,
				LastMessage:   ToMessageResponse(c.LastMessage),
				UnreadCount:   c.UnreadCount,
			}
		}),
	}
}
