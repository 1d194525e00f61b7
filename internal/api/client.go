// Package api is the REST boundary consumed by the collection stores.
package api

import (
	"context"
	"errors"
	"fmt"

	"posadmin/internal/model"
)

// Client is everything a collection store needs from the backend.
// Credentials are attached by the implementation; callers never see them.
type Client interface {
	ListAll(ctx context.Context, kind model.Kind) ([]model.Entity, error)
	Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error)
	Create(ctx context.Context, kind model.Kind, draft model.Draft) (model.Entity, error)
	Update(ctx context.Context, kind model.Kind, id string, patch model.Patch) (model.Entity, error)
	Delete(ctx context.Context, kind model.Kind, id string) (bool, error)
}

// ErrNotFound is returned (possibly wrapped) for 404-equivalent responses,
// distinct from transport failures.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx response other than 404.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Code)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
