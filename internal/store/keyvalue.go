package store

import (
	"context"
)

// KeyValue is the client's local persistence. Writes that touch several keys
// are applied all-or-nothing.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	// GetMany returns only the keys that exist.
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	SetMany(ctx context.Context, entries map[string]string) error
	// Delete ignores keys that do not exist.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
