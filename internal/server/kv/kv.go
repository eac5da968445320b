// Package kv defines the opaque key-value store behind the versioned
// document store, together with its backends: in-memory (dev/tests), Redis,
// PostgreSQL and S3. The document store layers versioning on top; backends
// only provide get/put-with-optional-TTL/delete/list-by-prefix.
package kv

import (
	"context"
	"time"
)

// Store is the minimal contract the document store needs.
//
// Get returns common.ErrNotFound for absent or expired keys. Put with a
// zero ttl stores the value without expiry. List returns the keys (not
// values) having the given prefix, excluding expired ones, in no particular
// order.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
