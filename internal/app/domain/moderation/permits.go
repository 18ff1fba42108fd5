package moderation

import (
	"strings"
	"sync"
	"time"
)

const (
	DefaultPermitSeconds = 60
	DefaultPermitUses    = 1
)

type permit struct {
	expires   time.Time
	remaining int
}

// Permits tracks temporary link exemptions per lowercase username.
type Permits struct {
	mu     sync.Mutex
	now    func() time.Time
	grants map[string]permit
}

type PermitsOption func(*Permits)

func WithPermitClock(now func() time.Time) PermitsOption {
	return func(p *Permits) {
		p.now = now
	}
}

func NewPermits(opts ...PermitsOption) *Permits {
	p := &Permits{
		now:    time.Now,
		grants: make(map[string]permit),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Grant creates or overwrites the permit of user. Non-positive values fall back to the defaults.
func (p *Permits) Grant(user string, seconds, uses int) {
	if seconds <= 0 {
		seconds = DefaultPermitSeconds
	}
	if uses <= 0 {
		uses = DefaultPermitUses
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.grants[strings.ToLower(user)] = permit{
		expires:   p.now().Add(time.Duration(seconds) * time.Second),
		remaining: uses,
	}
}

// Active reports whether user holds a non-expired permit with uses left.
func (p *Permits) Active(user string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.liveLocked(strings.ToLower(user))
	return ok
}

// Consume spends one use of user's permit. The entry is evicted once it runs out.
func (p *Permits) Consume(user string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := strings.ToLower(user)
	g, ok := p.liveLocked(key)
	if !ok {
		return false
	}

	g.remaining--
	if g.remaining <= 0 {
		delete(p.grants, key)
	} else {
		p.grants[key] = g
	}
	return true
}

func (p *Permits) liveLocked(key string) (permit, bool) {
	g, ok := p.grants[key]
	if !ok {
		return permit{}, false
	}
	if p.now().After(g.expires) || g.remaining <= 0 {
		delete(p.grants, key)
		return permit{}, false
	}
	return g, true
}
