package points_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambot/internal/app/domain/points"
	"streambot/pkg/logger"
)

type memStore struct {
	mu      sync.Mutex
	saves   int
	last    map[string]int
	changed [][]string
	err     error
}

func (m *memStore) Load(context.Context) (map[string]int, error) {
	return nil, nil
}

func (m *memStore) Save(_ context.Context, snapshot map[string]int, changed []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	m.last = snapshot
	m.changed = append(m.changed, changed)
	return m.err
}

func TestLedger_AddSetGet(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	l := points.NewLedger(logger.Nop(), store, map[string]int{"Alice": 10})

	assert.Equal(t, 10, l.Get("alice"))
	assert.Equal(t, 15, l.Add("ALICE", 5))
	assert.Equal(t, 15, l.Get("@alice"))
	assert.Equal(t, 100, l.Set("bob", 100))
	assert.Equal(t, 100, l.Get("Bob"))
	assert.Equal(t, 0, l.Get("nobody"))
	assert.Equal(t, -5, l.Add("carol", -5), "add is not gated against negative balances")

	assert.Equal(t, 3, store.saves)
	assert.Equal(t, map[string]int{"alice": 15, "bob": 100, "carol": -5}, store.last)
}

func TestLedger_Transfer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		amount    int
		wantOK    bool
		wantAlice int
		wantBob   int
	}{
		{"sufficient", 30, true, 10, 35},
		{"exact balance", 40, true, 0, 45},
		{"insufficient", 50, false, 40, 5},
		{"zero", 0, false, 40, 5},
		{"negative", -10, false, 40, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &memStore{}
			l := points.NewLedger(logger.Nop(), store, map[string]int{"alice": 40, "bob": 5})
			before := l.Get("alice") + l.Get("bob")

			ok := l.Transfer("Alice", "@bob", tt.amount)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantAlice, l.Get("alice"))
			assert.Equal(t, tt.wantBob, l.Get("bob"))
			assert.Equal(t, before, l.Get("alice")+l.Get("bob"))

			if tt.wantOK {
				assert.Equal(t, 1, store.saves)
				assert.Equal(t, []string{"alice", "bob"}, store.changed[0])
			} else {
				assert.Zero(t, store.saves, "failed transfer must not persist")
			}
		})
	}
}

func TestLedger_SaveFailureKeepsMutation(t *testing.T) {
	t.Parallel()

	l := points.NewLedger(logger.Nop(), &memStore{err: errors.New("read-only fs")}, nil)

	assert.Equal(t, 7, l.Add("bob", 7))
	assert.Equal(t, 7, l.Get("bob"))
}

func TestLedger_ConcurrentTransfersConserveTotal(t *testing.T) {
	t.Parallel()

	l := points.NewLedger(logger.Nop(), nil, map[string]int{"a": 1000, "b": 1000})

	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				l.Transfer("a", "b", 7)
			} else {
				l.Transfer("b", "a", 3)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2000, l.Get("a")+l.Get("b"))
	assert.GreaterOrEqual(t, l.Get("a"), 0)
	assert.GreaterOrEqual(t, l.Get("b"), 0)
}
