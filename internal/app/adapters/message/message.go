package message

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"streambot/internal/app/adapters/metrics"
	"streambot/internal/app/domain/message"
	"streambot/internal/app/domain/moderation"
	"streambot/internal/app/domain/points"
	"streambot/internal/app/domain/stream"
	"streambot/internal/app/infrastructure/config"
	"streambot/internal/app/ports"
	"streambot/pkg/logger"
)

// Message is the per-line chat pipeline: line counting, points accrual, cheer alerts,
// moderation and finally command routing.
type Message struct {
	log      logger.Logger
	manager  *config.Manager
	stream   *stream.Stream
	lines    ports.LineCounterPort
	ledger   *points.Ledger
	guard    *moderation.Guard
	router   *Router
	chat     ports.ChatSenderPort
	speech   ports.SpeechPort
	activity ports.ActivityPort

	ctx context.Context
	now func() time.Time

	mu      sync.Mutex
	accrual map[string]*rate.Limiter
}

type Option func(*Message)

func WithClock(now func() time.Time) Option {
	return func(m *Message) {
		m.now = now
	}
}

// WithContext sets the context handed to template lookups. It should be the application context.
func WithContext(ctx context.Context) Option {
	return func(m *Message) {
		m.ctx = ctx
	}
}

func WithSpeech(speech ports.SpeechPort) Option {
	return func(m *Message) {
		m.speech = speech
	}
}

func WithActivity(activity ports.ActivityPort) Option {
	return func(m *Message) {
		m.activity = activity
	}
}

func New(log logger.Logger, manager *config.Manager, st *stream.Stream, lines ports.LineCounterPort, ledger *points.Ledger,
	guard *moderation.Guard, router *Router, chat ports.ChatSenderPort, opts ...Option,
) *Message {
	m := &Message{
		log:     log,
		manager: manager,
		stream:  st,
		lines:   lines,
		ledger:  ledger,
		guard:   guard,
		router:  router,
		chat:    chat,
		ctx:     context.Background(),
		now:     time.Now,
		accrual: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle runs one chat message through the pipeline. It never panics.
func (m *Message) Handle(msg *message.ChatMessage) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("Recovered from panic while handling message", slog.Any("panic", r), slog.String("user", msg.Sender))
		}
		metrics.MessageProcessingTime.Observe(time.Since(start).Seconds())
	}()

	metrics.MessagesTotal.Inc()
	m.log.Trace("Processing message", slog.String("user", msg.Sender), slog.String("text", msg.Body))

	cfg := m.manager.Get()
	if !m.stream.IsBot(msg.Sender) {
		m.lines.AddLine()
		m.accrue(cfg, msg)
	}

	if msg.IsCheer && msg.Bits > 0 {
		m.cheer(cfg, msg)
	}

	if !m.guard.Check(msg) {
		return
	}
	m.router.Route(m.ctx, msg)
}

func (m *Message) accrue(cfg *config.Config, msg *message.ChatMessage) {
	p := cfg.Points
	if !p.Enabled || !p.AccrualEnabled || p.AccrualPerMsg <= 0 || m.ledger == nil {
		return
	}

	if !(p.BypassMods && msg.Permissions.IsStaff()) && !m.allowAccrual(msg.SenderLogin(), p.AccrualCooldownS) {
		return
	}

	m.ledger.Add(msg.Sender, p.AccrualPerMsg)
	metrics.PointsMutations.WithLabelValues("accrual").Inc()
}

// allowAccrual keeps one token bucket per user refilled once per cooldown.
func (m *Message) allowAccrual(user string, cooldownSecs int) bool {
	if cooldownSecs <= 0 {
		return true
	}
	limit := rate.Every(time.Duration(cooldownSecs) * time.Second)

	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.accrual[user]
	if !ok {
		l = rate.NewLimiter(limit, 1)
		m.accrual[user] = l
	} else if l.Limit() != limit {
		l.SetLimitAt(m.now(), limit)
	}
	return l.AllowN(m.now(), 1)
}

func (m *Message) cheer(cfg *config.Config, msg *message.ChatMessage) {
	c := cfg.Cheer
	bits := strconv.Itoa(msg.Bits)
	r := strings.NewReplacer(
		"{user}", msg.Sender,
		"{bits}", bits,
		"{message}", msg.Body,
		"{channel}", cfg.App.Channel,
	)

	if c.AlertEnabled && c.Alert != "" {
		m.chat.Send(r.Replace(c.Alert))
	}
	if c.TTSEnabled && m.speech != nil && msg.Bits >= c.TTSMinBits {
		m.speech.Speak(r.Replace(c.TTSFormat))
	}

	if m.activity != nil {
		details := bits + " bits"
		if body := []rune(msg.Body); len(body) > 0 {
			details += ": " + string(body[:min(len(body), 20)])
		}
		m.activity.Add("cheer", msg.Sender, details)
	}
	m.log.Info("Cheer received", slog.String("user", msg.Sender), slog.Int("bits", msg.Bits))
}
