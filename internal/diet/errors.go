package diet

import (
	"errors"
	"fmt"
)

// ErrUserCancelled is returned when the user dismisses the identity provider's consent screen.
var ErrUserCancelled = errors.New("sign-in cancelled by user")

// ValidationError reports input that was rejected before any outbound call was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// MalformedResponseError reports an AI backend response that does not match the declared schema.
type MalformedResponseError struct {
	Flow string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Flow, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ProviderError reports a failed exchange with the identity provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StorageError reports a failed read or write of persisted user state.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
