package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/metrics"
)

// MemoryStore keeps checkpoints in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get retrieves the checkpoint for key.
func (s *MemoryStore) Get(_ context.Context, key Key) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key.String()]
	s.mu.RUnlock()

	if !ok {
		metrics.CheckpointOpsTotal.WithLabelValues("memory", "get", "miss").Inc()
		return nil, ErrNotFound
	}
	metrics.CheckpointOpsTotal.WithLabelValues("memory", "get", "hit").Inc()
	return &entry, nil
}

// Set stores a copy of entry under key.
func (s *MemoryStore) Set(_ context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("checkpoint entry cannot be nil")
	}

	stored := *entry
	if stored.SavedAt.IsZero() {
		stored.SavedAt = time.Now()
	}

	s.mu.Lock()
	s.entries[key.String()] = stored
	s.mu.Unlock()

	metrics.CheckpointOpsTotal.WithLabelValues("memory", "set", "ok").Inc()
	return nil
}

// Delete removes the checkpoint for key.
func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	delete(s.entries, key.String())
	s.mu.Unlock()

	metrics.CheckpointOpsTotal.WithLabelValues("memory", "delete", "ok").Inc()
	return nil
}

// Len returns the number of stored checkpoints.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
