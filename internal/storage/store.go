package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tahcohcat/starpath-web/internal/logger"
	"github.com/tahcohcat/starpath-web/internal/metrics"
)

// Store is the JSON adapter over a Backend. Reads that fail look like missing
// keys and writes that fail are dropped; both are logged, neither is returned,
// so a broken store never interrupts a learning session.
type Store struct {
	backend   Backend
	namespace string
	logger    *logger.Log
}

// New returns a Store over b. namespace is only used for logging and locking;
// scope b with Namespace first when it is shared.
func New(b Backend, namespace string) *Store {
	return &Store{
		backend:   b,
		namespace: namespace,
		logger:    logger.New().With("namespace", namespace),
	}
}

// ForClient returns the store owning one browser client's keys in b.
func ForClient(b Backend, clientID string) *Store {
	ns := ClientNamespace(clientID)
	return New(Namespace(b, ns), ns)
}

func (s *Store) Namespace() string {
	return s.namespace
}

// Get decodes the value under key into dst, reporting whether it was found.
func (s *Store) Get(ctx context.Context, key string, dst interface{}) bool {
	raw, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		metrics.RecordStoreFailure("get")
		s.logger.With("key", key).WithError(err).Warn("store read failed")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.RecordStoreFailure("get")
		s.logger.With("key", key).WithError(err).Warn("store value is not valid JSON")
		return false
	}
	return true
}

func (s *Store) Set(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		metrics.RecordStoreFailure("set")
		s.logger.With("key", key).WithError(err).Warn("store value could not be encoded")
		return
	}
	if err := s.backend.Set(ctx, key, raw); err != nil {
		metrics.RecordStoreFailure("set")
		s.logger.With("key", key).WithError(err).Warn("store write failed")
	}
}

func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		metrics.RecordStoreFailure("remove")
		s.logger.With("key", key).WithError(err).Warn("store remove failed")
	}
}

// Clear removes every key of this store.
func (s *Store) Clear(ctx context.Context) {
	if err := s.backend.DeletePrefix(ctx, ""); err != nil {
		metrics.RecordStoreFailure("clear")
		s.logger.WithError(err).Warn("store clear failed")
	}
}
