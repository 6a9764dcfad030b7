package core

import (
	"errors"
	"fmt"
)

// Data-shaped failures are explicit results, never panics from inside a
// scoring loop.
var (
	ErrEmptyPool           = errors.New("no documents in chunk pool")
	ErrNoChunksForDocument = errors.New("no chunks for document")
)

// InputError marks a request rejected before any external call.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Msg
}

func NewInputError(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// IsInputError reports whether err is (or wraps) an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// ProviderError wraps a failed embedding or generation call. Within the
// batch harness it converts the affected run to a failed record instead of
// halting the batch.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
