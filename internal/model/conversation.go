package model

// Conversation summarises the exchange between a user and one counterpart.
// It is derived from messages and never stored.
type Conversation struct {
	CounterpartID int64   `json:"counterpartId"`
	LastMessage   Message `json:"lastMessage"`
	UnreadCount   int64   `json:"unreadCount"`
}
