// Package runid attaches a random per-run correlation ID to a context. The
// engine creates one at the start of every run; subscribers use it to relate
// round and batch events to their run.
package runid

import (
	"context"
	"math/rand/v2"
)

// key is the context key for the run ID.
type key struct{}

// NewContext returns a copy of parent with a fresh random run ID stored, and
// the generated ID.
func NewContext(parent context.Context) (context.Context, uint64) {
	id := rand.Uint64()
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the run ID from ctx. It returns the ID and whether it
// was present.
func FromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(key{}).(uint64)
	return id, ok
}
