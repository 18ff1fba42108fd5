package cooldown

import (
	"math"
	"strings"
	"sync"
	"time"

	"streambot/internal/app/domain/message"
)

const (
	// FallbackGlobalSeconds and FallbackUserSeconds apply when a command has no cooldown fields at all.
	FallbackGlobalSeconds = 2
	FallbackUserSeconds   = 2

	// AddFlowGlobalSeconds and AddFlowUserSeconds apply to commands created from chat.
	AddFlowGlobalSeconds = 3
	AddFlowUserSeconds   = 10
)

type Config struct {
	GlobalSeconds int
	UserSeconds   int
	BypassStaff   bool
}

// Table keeps per-command "armed until" clocks, one global and one per user.
// State is memory only and resets on restart.
type Table struct {
	mu      sync.Mutex
	now     func() time.Time
	global  map[string]time.Time
	perUser map[string]map[string]time.Time
}

type Option func(*Table)

func WithClock(now func() time.Time) Option {
	return func(t *Table) {
		t.now = now
	}
}

func New(opts ...Option) *Table {
	t := &Table{
		now:     time.Now,
		global:  make(map[string]time.Time),
		perUser: make(map[string]map[string]time.Time),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Check reports whether user may run command now and, if not, how many seconds remain.
// Staff with bypass enabled pass without consulting the clocks.
func (t *Table) Check(command, user string, cfg Config, perms message.Permissions) (bool, int) {
	if cfg.BypassStaff && perms.IsStaff() {
		return true, 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if until, ok := t.global[command]; ok && now.Before(until) {
		return false, remaining(until.Sub(now))
	}

	if users, ok := t.perUser[command]; ok {
		if until, ok := users[strings.ToLower(user)]; ok && now.Before(until) {
			return false, remaining(until.Sub(now))
		}
	}

	return true, 0
}

// Arm starts both clocks after a command ran. It runs whether or not the caller bypassed Check.
func (t *Table) Arm(command, user string, cfg Config) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if cfg.GlobalSeconds > 0 {
		t.global[command] = now.Add(time.Duration(cfg.GlobalSeconds) * time.Second)
	}

	if cfg.UserSeconds > 0 {
		users, ok := t.perUser[command]
		if !ok {
			users = make(map[string]time.Time)
			t.perUser[command] = users
		}
		users[strings.ToLower(user)] = now.Add(time.Duration(cfg.UserSeconds) * time.Second)
	}
}

// Forget drops every clock of command, used when the command is removed.
func (t *Table) Forget(command string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.global, command)
	delete(t.perUser, command)
}

func remaining(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
