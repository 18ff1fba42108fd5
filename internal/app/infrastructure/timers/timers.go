package timers

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"streambot/internal/app/ports"
	"streambot/pkg/logger"
)

const DefaultTick = time.Minute

// LineCounter counts chat lines between two scheduler ticks.
type LineCounter struct {
	n atomic.Int64
}

func (c *LineCounter) AddLine() {
	c.n.Add(1)
}

// Take returns the lines counted since the previous Take and resets the counter.
func (c *LineCounter) Take() int {
	return int(c.n.Swap(0))
}

type Timer struct {
	Name        string
	Message     string
	IntervalMin int
	MinLines    int
	Enabled     bool
}

// Scheduler posts timer messages. A timer fires on ticks that are a multiple of its interval,
// provided at least MinLines chat lines arrived since it last fired.
type Scheduler struct {
	log    logger.Logger
	chat   ports.ChatSenderPort
	lines  *LineCounter
	timers func() []Timer
	every  time.Duration
	onFire func(name string)

	mu    sync.Mutex
	tick  int
	since map[string]int
}

type Option func(*Scheduler)

func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		s.every = d
	}
}

func WithFireHook(fn func(name string)) Option {
	return func(s *Scheduler) {
		s.onFire = fn
	}
}

func NewScheduler(log logger.Logger, chat ports.ChatSenderPort, lines *LineCounter, timers func() []Timer, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:    log,
		chat:   chat,
		lines:  lines,
		timers: timers,
		every:  DefaultTick,
		since:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances the scheduler by one step and returns the names of the timers that fired.
func (s *Scheduler) Tick() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	lines := s.lines.Take()

	current := s.timers()
	seen := make(map[string]struct{}, len(current))
	var fired []string

	for _, t := range current {
		seen[t.Name] = struct{}{}
		if !t.Enabled || t.Message == "" {
			continue
		}

		interval := t.IntervalMin
		if interval <= 0 {
			interval = 1
		}

		s.since[t.Name] += lines
		if s.tick%interval != 0 || s.since[t.Name] < t.MinLines {
			continue
		}

		s.log.Debug("Timer fired", slog.String("timer", t.Name), slog.Int("lines", s.since[t.Name]))
		s.since[t.Name] = 0
		s.chat.Send(t.Message)
		fired = append(fired, t.Name)
		if s.onFire != nil {
			s.onFire(t.Name)
		}
	}

	for name := range s.since {
		if _, ok := seen[name]; !ok {
			delete(s.since, name)
		}
	}

	return fired
}
