package common

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrUnauthenticated is returned by mutations called without a user identity.
	ErrUnauthenticated = errors.New("unauthenticated: user id is required")
	// ErrMalformedPayload marks an extraction result that violates the oracle contract.
	ErrMalformedPayload = errors.New("malformed extraction payload")
	// ErrInvalidInput marks a creation or mutation request with missing or invalid fields.
	ErrInvalidInput = errors.New("invalid input")
)

// MalformedPayloadError describes why an extraction payload was rejected.
type MalformedPayloadError struct {
	Field  string
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedPayload, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformedPayload, e.Field, e.Reason)
}

func (e *MalformedPayloadError) Unwrap() error {
	return ErrMalformedPayload
}

// InvalidInput wraps ErrInvalidInput with a message.
func InvalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// RequireUser returns ErrUnauthenticated for an empty user id.
func RequireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUnauthenticated
	}
	return nil
}

// BestEffort runs an operation whose failure must not fail the caller.
// The error is logged at warn and discarded.
func BestEffort(op string, fn func() error) {
	if err := fn(); err != nil {
		LogWarn("best-effort operation failed", zap.String("op", op), zap.Error(err))
	}
}
