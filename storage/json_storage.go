package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"civic-vote/log"
)

const snapshotFile = "civic_store.json"

// JSONStore is a MemoryStore whose full state is rewritten to a single JSON
// file after every mutation and reloaded on start.
type JSONStore struct {
	*MemoryStore
	path string
}

func NewJSONStore(basePath string) (*JSONStore, error) {
	// Create storage directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	store := &JSONStore{
		MemoryStore: NewMemoryStore(),
		path:        filepath.Join(basePath, snapshotFile),
	}

	snap, err := store.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load store %s: %w", store.path, err)
	}
	if snap != nil {
		store.restore(snap)
		log.Info("loaded store snapshot",
			zap.String("path", store.path),
			zap.Int("citizens", len(snap.Citizens)),
			zap.Int("voters", len(snap.Voters)),
			zap.Int("votes", len(snap.Votes)))
	}
	store.setPersist(store.save)

	return store, nil
}

func (s *JSONStore) load() (*snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *JSONStore) save(snap *snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Write to temporary file first
	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		log.Error("failed to write snapshot", zap.String("path", tempPath), zap.Error(err))
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	// Atomic rename to ensure consistency
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		log.Error("failed to replace snapshot", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("failed to save snapshot file: %w", err)
	}

	return nil
}

func (s *JSONStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(s.snapshot())
}
