package counters

import (
	"maps"
	"strings"
	"sync"
)

// PersistFunc writes a full snapshot of the counters. It is called with the store lock held,
// so snapshots reach storage in mutation order.
type PersistFunc func(snapshot map[string]int) error

// Store holds named integer counters. Values are unbounded in both directions.
type Store struct {
	mu      sync.Mutex
	values  map[string]int
	persist PersistFunc
	onError func(err error)
}

func New(initial map[string]int, persist PersistFunc, onError func(err error)) *Store {
	s := &Store{
		values:  make(map[string]int, len(initial)),
		persist: persist,
		onError: onError,
	}
	for k, v := range initial {
		s.values[normalize(k)] = v
	}
	return s
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *Store) Get(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.values[normalize(name)]
}

// Add applies delta and persists immediately, returning the new value.
func (s *Store) Add(name string, delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(name)
	s.values[key] += delta
	s.saveLocked()
	return s.values[key]
}

func (s *Store) Set(name string, value int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[normalize(name)] = value
	s.saveLocked()
	return value
}

// Ensure creates every missing counter with value 0 and reports which ones were created.
func (s *Store) Ensure(names ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created []string
	for _, name := range names {
		key := normalize(name)
		if key == "" {
			continue
		}
		if _, ok := s.values[key]; ok {
			continue
		}
		s.values[key] = 0
		created = append(created, key)
	}

	if len(created) > 0 {
		s.saveLocked()
	}
	return created
}

func (s *Store) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Clone(s.values)
}

func (s *Store) saveLocked() {
	if s.persist == nil {
		return
	}

	if err := s.persist(maps.Clone(s.values)); err != nil && s.onError != nil {
		s.onError(err)
	}
}
