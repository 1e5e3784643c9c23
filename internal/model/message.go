package model

import "time"

// Message is a direct message between two users. ID is a snowflake, so it
// orders messages created on the same node.
type Message struct {
	ID         int64     `json:"id,string"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CounterpartOf returns the participant of m that is not userID.
func (m Message) CounterpartOf(userID int64) int64 {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// After reports whether m sorts after other by creation time, falling back
// to the higher id when the timestamps are equal.
func (m Message) After(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.After(other.CreatedAt)
	}
	return m.ID > other.ID
}
