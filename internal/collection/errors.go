package collection

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned by Load when a newer Load started before this one finished.
var ErrSuperseded = errors.New("load superseded by a newer request")

// ValidationError is a local pre-check failure. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// RemoteError wraps an API rejection of a mutating call.
type RemoteError struct {
	Op   string
	Kind string
	ID   string
	Err  error
}

func (e RemoteError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e RemoteError) Unwrap() error { return e.Err }

// FetchError wraps a failed Load. The previous collection is kept.
type FetchError struct {
	Kind string
	Err  error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Kind, e.Err)
}

func (e FetchError) Unwrap() error { return e.Err }
