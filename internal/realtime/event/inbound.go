package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrMalformed   = errors.New("malformed event")
	ErrUnknownType = errors.New("unknown event type")
	ErrMissingData = errors.New("missing required field")
)

// ID is a user identifier as sent by clients. Both JSON numbers and numeric
// strings are accepted, since browsers cannot hold snowflakes as numbers.
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", data)
	}
	*id = ID(v)
	return nil
}

// Inbound is a decoded client frame. Only the fields required by Type are
// guaranteed to be set.
type Inbound struct {
	Type       Type    `json:"type"`
	UserID     *ID     `json:"userId,omitempty"`
	ReceiverID *ID     `json:"receiverId,omitempty"`
	SenderID   *ID     `json:"senderId,omitempty"`
	Content    *string `json:"content,omitempty"`
	IsTyping   *bool   `json:"isTyping,omitempty"`
}

// Decode parses a client frame and checks that the fields its type requires
// are present. Field values are not validated here.
func Decode(frame []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return in, in.Validate()
}

// Validate checks that the fields in.Type requires are present. The REST
// API runs its send requests through it as well, so both transports reject
// the same input with the same reason.
func (in Inbound) Validate() error {
	switch in.Type {
	case TypeAuthenticate:
		if in.UserID == nil {
			return fmt.Errorf("%w: userId", ErrMissingData)
		}
	case TypeMessage:
		if in.ReceiverID == nil {
			return fmt.Errorf("%w: receiverId", ErrMissingData)
		}
		if in.Content == nil {
			return fmt.Errorf("%w: content", ErrMissingData)
		}
	case TypeTyping:
		if in.ReceiverID == nil {
			return fmt.Errorf("%w: receiverId", ErrMissingData)
		}
	case TypeReadMessages:
		if in.SenderID == nil {
			return fmt.Errorf("%w: senderId", ErrMissingData)
		}
	case "":
		return fmt.Errorf("%w: type", ErrMissingData)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}
	return nil
}

// Typing reports the typing flag, which defaults to true when omitted.
func (in Inbound) Typing() bool {
	if in.IsTyping == nil {
		return true
	}
	return *in.IsTyping
}

// Reason is the client-facing text for a Decode or Validate error. Parser
// details of malformed input are not echoed back.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownType), errors.Is(err, ErrMissingData):
		return err.Error()
	default:
		return ErrMalformed.Error()
	}
}
