// Package actor carries the authenticated caller's id through a request
// context.
package actor

import (
	"context"
	"errors"
	"strings"
)

// ErrMissing is returned by operations that need an actor when the context
// carries none.
var ErrMissing = errors.New("actor id is required")

type ctxKey struct{}

// WithID returns a copy of ctx carrying id. Surrounding space is trimmed.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, strings.TrimSpace(id))
}

// FromContext returns the actor id stored by WithID, or "" if none.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
