package points

import (
	"context"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"streambot/internal/app/ports"
	"streambot/pkg/logger"
)

const saveTimeout = 5 * time.Second

// Ledger is the integer balance store keyed by lowercase username.
// Every mutation is persisted before the call returns. A failed save is logged and the
// in-memory change stays applied.
type Ledger struct {
	log   logger.Logger
	store ports.PointsStorePort

	mu       sync.Mutex
	balances map[string]int
}

func NewLedger(log logger.Logger, store ports.PointsStorePort, initial map[string]int) *Ledger {
	l := &Ledger{
		log:      log,
		store:    store,
		balances: make(map[string]int, len(initial)),
	}
	for user, v := range initial {
		l.balances[key(user)] = v
	}
	return l
}

func key(user string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(user), "@"))
}

func (l *Ledger) Get(user string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[key(user)]
}

// Add changes user's balance by amount and returns the new balance.
func (l *Ledger) Add(user string, amount int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key(user)
	l.balances[k] += amount
	l.saveLocked(k)
	return l.balances[k]
}

func (l *Ledger) Set(user string, amount int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key(user)
	l.balances[k] = amount
	l.saveLocked(k)
	return amount
}

// Transfer moves amount from one user to another. It fails without changing anything when
// amount is not positive or the sender cannot cover it.
func (l *Ledger) Transfer(from, to string, amount int) bool {
	if amount <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	src, dst := key(from), key(to)
	if l.balances[src] < amount {
		return false
	}

	l.balances[src] -= amount
	l.balances[dst] += amount
	l.saveLocked(src, dst)
	return true
}

func (l *Ledger) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return maps.Clone(l.balances)
}

func (l *Ledger) saveLocked(changed ...string) {
	if l.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := l.store.Save(ctx, maps.Clone(l.balances), changed); err != nil {
		l.log.Warn("Failed to persist points", slog.Any("users", changed), slog.String("error", err.Error()))
	}
}
