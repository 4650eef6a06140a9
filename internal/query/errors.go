package query

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAborted marks an attempt that stopped because it was cancelled.
	ErrAborted = errors.New("request aborted")

	ErrUnknownQuery = errors.New("unknown query")
	ErrClosed       = errors.New("query cache closed")
)

// AbortedError is recorded when an attempt ends because it was cancelled.
// It is user-initiated and non-fatal.
type AbortedError struct {
	Key string
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("query %s: %s", e.Key, ErrAborted)
}

func (e *AbortedError) Is(target error) bool { return target == ErrAborted }

// TransportError is recorded when the fetch collaborator fails for any reason
// other than cancellation.
type TransportError struct {
	Key string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Key, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsAborted reports whether err is a cancellation rather than a failure.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}
