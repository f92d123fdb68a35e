// Package store provides durable string-keyed persistence for bot entities.
//
// Two backends implement the same contract: a JSON-file store that rewrites
// the whole collection file on every mutation, and a gorm-backed store that
// keeps one row per entity. Entity counts are small (tens to low thousands),
// so full-collection reads and whole-state writes are acceptable; callers
// never observe a Set as complete before the state is on stable storage.
package store

import (
	"context"
	"time"
)

// Entity is the record shape a store can hold. Touch stamps the diagnostic
// updatedAt timestamp on every write.
type Entity interface {
	Touch(t time.Time)
}

// Store maps string keys to records of type T durably across restarts.
type Store[T Entity] interface {
	// Init loads existing state. It is idempotent; a missing backing
	// collection initializes empty, unreadable state is an error.
	Init(ctx context.Context) error
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, value T) error
	// Delete reports whether a record was removed.
	Delete(ctx context.Context, key string) (bool, error)
	Values(ctx context.Context) ([]T, error)
	Entries(ctx context.Context) (map[string]T, error)
	Keys(ctx context.Context) ([]string, error)
	Size(ctx context.Context) (int, error)
	// Find returns the first record matching the predicate.
	Find(ctx context.Context, predicate func(T) bool) (T, bool, error)
	// Filter returns all records matching the predicate.
	Filter(ctx context.Context, predicate func(T) bool) ([]T, error)
}
