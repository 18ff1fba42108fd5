package speech

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"streambot/pkg/logger"
)

const runTimeout = 2 * time.Minute

// Runner executes one external command to completion.
type Runner func(ctx context.Context, argv []string) error

// ExecRunner runs argv as a child process.
func ExecRunner(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	return exec.CommandContext(ctx, argv[0], argv[1:]...).Run() // #nosec G204
}

// expand substitutes placeholder in every argument. Arguments are never split, so the text
// reaches the program as a single argument whatever it contains.
func expand(argv []string, placeholder, value string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = strings.ReplaceAll(a, placeholder, value)
	}
	return out
}

// Speaker speaks queued texts one at a time.
type Speaker struct {
	log     logger.Logger
	run     Runner
	command func() []string
	queue   chan string

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

// NewSpeaker reads command on every utterance so configuration changes apply without a restart.
func NewSpeaker(log logger.Logger, run Runner, command func() []string, queueSize int) *Speaker {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Speaker{
		log:     log,
		run:     run,
		command: command,
		queue:   make(chan string, queueSize),
		done:    make(chan struct{}),
	}
}

// Speak enqueues text and returns immediately. Text is dropped when the queue is full.
func (s *Speaker) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		s.log.Debug("Speech stopped, skipping text")
		return
	}

	select {
	case s.queue <- text:
	default:
		s.log.Warn("Speech queue is full, skipping text", slog.Int("queue_size", cap(s.queue)))
	}
}

// Run speaks queued texts until ctx is done or Stop is called.
func (s *Speaker) Run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-s.queue:
			if !ok {
				return
			}
			s.speak(ctx, text)
		}
	}
}

func (s *Speaker) speak(ctx context.Context, text string) {
	argv := expand(s.command(), "{text}", text)
	if len(argv) == 0 {
		s.log.Warn("No speech command configured")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	if err := s.run(ctx, argv); err != nil {
		s.log.Error("Failed to speak text", err, slog.String("program", argv[0]))
	}
}

// Stop rejects new texts and lets Run drain what is already queued. It is safe to call more
// than once.
func (s *Speaker) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.queue)
	}
	s.mu.Unlock()
}

// Done is closed once Run returns.
func (s *Speaker) Done() <-chan struct{} {
	return s.done
}

// Player plays sound files in the background.
type Player struct {
	log     logger.Logger
	run     Runner
	command func() []string
	wg      sync.WaitGroup
}

func NewPlayer(log logger.Logger, run Runner, command func() []string) *Player {
	return &Player{log: log, run: run, command: command}
}

func (p *Player) Play(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}

	argv := expand(p.command(), "{path}", path)
	if len(argv) == 0 {
		p.log.Warn("No sound command configured")
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if err := p.run(ctx, argv); err != nil {
			p.log.Error("Failed to play sound", err, slog.String("path", path))
		}
	}()
}

// Wait blocks until every started playback has finished.
func (p *Player) Wait() {
	p.wg.Wait()
}
