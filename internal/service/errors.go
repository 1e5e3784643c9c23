package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before anything is stored. Its
	// message is safe to show to clients.
	ErrValidation = errors.New("invalid request")
	// ErrPersistence marks a failed read or write against the message store.
	ErrPersistence = errors.New("message store unavailable")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
