package activity

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultCapacity = 500

type Entry struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	User    string    `json:"user"`
	Details string    `json:"details,omitempty"`
}

// Feed is a bounded ring of recent channel activity. The oldest entry is overwritten once
// the ring is full.
type Feed struct {
	mu      sync.RWMutex
	now     func() time.Time
	entries []Entry
	next    int
	full    bool
}

type Option func(*Feed)

func WithClock(now func() time.Time) Option {
	return func(f *Feed) {
		f.now = now
	}
}

func New(capacity int, opts ...Option) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	f := &Feed{
		now:     time.Now,
		entries: make([]Entry, capacity),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) Add(kind, user, details string) {
	e := Entry{
		ID:      uuid.NewString(),
		Time:    f.now(),
		Kind:    kind,
		User:    user,
		Details: details,
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[f.next] = e
	f.next = (f.next + 1) % len(f.entries)
	if f.next == 0 {
		f.full = true
	}
}

// List returns up to limit entries, newest first. A non-positive limit returns everything.
func (f *Feed) List(limit int) []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := f.next
	if f.full {
		n = len(f.entries)
	}
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (f.next - i + len(f.entries)) % len(f.entries)
		out = append(out, f.entries[idx])
	}
	return out
}
