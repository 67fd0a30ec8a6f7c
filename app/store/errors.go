package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrBackendUnavailable   = errors.New("storage backend unavailable")
	ErrUnsupportedOperation = errors.New("operation not supported by storage backend")
	ErrConsistency          = errors.New("storage consistency violation")
)

// Unavailable marks err as a retryable connectivity failure.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
