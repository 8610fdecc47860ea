// Package storage is the key-value persistence behind each browser client.
//
// Backends move raw bytes; Store layers JSON on top and never lets a storage
// fault reach the caller.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("key not found")
	ErrUnavailable = errors.New("store unavailable")
)

// Backend is a flat byte store. Implementations return ErrNotFound for missing
// keys and wrap every other failure in ErrUnavailable.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix. An empty prefix clears
	// the backend.
	DeletePrefix(ctx context.Context, prefix string) error
}
