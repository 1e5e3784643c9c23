// Package event defines the frames exchanged over a realtime channel. Every
// frame is a JSON object with a "type" discriminant.
package event

import (
	"encoding/json"

	"namibialove.app/messaging/internal/model"
)

type Type string

// Inbound types, sent by clients.
const (
	TypeAuthenticate Type = "authenticate"
	TypeMessage      Type = "message"
	TypeTyping       Type = "typing"
	TypeReadMessages Type = "read_messages"
)

// Outbound types, sent by the server. TypeMessage and TypeTyping are shared
// with the inbound set.
const (
	TypeAuthenticated Type = "authenticated"
	TypeMessageSent   Type = "message_sent"
	TypeMessagesRead  Type = "messages_read"
	TypeError         Type = "error"
)

// Event is an outbound frame.
type Event interface {
	EventType() Type
}

type AuthenticatedEvent struct {
	Type   Type  `json:"type"`
	UserID int64 `json:"userId"`
}

// MessageEvent carries a persisted message. It is used both for live
// delivery to the receiver and for the sender's acknowledgement.
type MessageEvent struct {
	Type    Type          `json:"type"`
	Message model.Message `json:"message"`
}

type TypingEvent struct {
	Type     Type  `json:"type"`
	SenderID int64 `json:"senderId"`
	IsTyping bool  `json:"isTyping"`
}

type MessagesReadEvent struct {
	Type   Type  `json:"type"`
	ReadBy int64 `json:"readBy"`
}

type ErrorEvent struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

func (e AuthenticatedEvent) EventType() Type { return e.Type }
func (e MessageEvent) EventType() Type       { return e.Type }
func (e TypingEvent) EventType() Type        { return e.Type }
func (e MessagesReadEvent) EventType() Type  { return e.Type }
func (e ErrorEvent) EventType() Type         { return e.Type }

func Authenticated(userID int64) AuthenticatedEvent {
	return AuthenticatedEvent{Type: TypeAuthenticated, UserID: userID}
}

// Message is the live delivery of msg to its receiver.
func Message(msg model.Message) MessageEvent {
	return MessageEvent{Type: TypeMessage, Message: msg}
}

// MessageSent acknowledges to the sender that msg is stored.
func MessageSent(msg model.Message) MessageEvent {
	return MessageEvent{Type: TypeMessageSent, Message: msg}
}

func Typing(senderID int64, isTyping bool) TypingEvent {
	return TypingEvent{Type: TypeTyping, SenderID: senderID, IsTyping: isTyping}
}

func MessagesRead(readBy int64) MessagesReadEvent {
	return MessagesReadEvent{Type: TypeMessagesRead, ReadBy: readBy}
}

func Error(message string) ErrorEvent {
	return ErrorEvent{Type: TypeError, Message: message}
}

// Encode renders e as a single text frame.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}
