package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"streambot/pkg/fileutil"
)

// JSONPointsStore keeps the points ledger as one JSON object of username to balance.
type JSONPointsStore struct {
	mu   sync.Mutex
	path string
}

func NewJSONPointsStore(path string) *JSONPointsStore {
	return &JSONPointsStore{path: path}
}

func (s *JSONPointsStore) Load(context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}

	balances := make(map[string]int)
	if err := json.Unmarshal(raw, &balances); err != nil {
		return nil, fmt.Errorf("parse points: %w", err)
	}
	return balances, nil
}

// Save rewrites the whole document; changed is ignored.
func (s *JSONPointsStore) Save(_ context.Context, snapshot map[string]int, _ []string) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal points: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fileutil.WriteAtomic(s.path, data, 0o600)
}
