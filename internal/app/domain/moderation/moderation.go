package moderation

import (
	"log/slog"
	"regexp"
	"strings"

	"streambot/internal/app/domain/message"
	"streambot/internal/app/ports"
	"streambot/pkg/logger"
)

type Action string

const (
	ActionDelete  Action = "delete"
	ActionTimeout Action = "timeout"
	ActionBoth    Action = "both"
)

func (a Action) Valid() bool {
	switch a {
	case ActionDelete, ActionTimeout, ActionBoth:
		return true
	}
	return false
}

func (a Action) deletes() bool {
	return a == ActionDelete || a == ActionBoth
}

func (a Action) timesOut() bool {
	return a == ActionTimeout || a == ActionBoth
}

const (
	ReasonLink = "link não permitido"
	ReasonWord = "uso de palavra proibida!"

	MaxTimeoutSeconds = 1209600
)

var linkRe = regexp.MustCompile(`(?i)(https?://|www\.)\S+|([a-z0-9-]+\.)+(com|net|org|gg|io|tv)(/\S*)?`)

// ContainsLink reports whether text matches the link heuristic.
func ContainsLink(text string) bool {
	return linkRe.MatchString(text)
}

// ClampTimeout bounds a timeout duration to what the platform accepts.
func ClampTimeout(secs int) int {
	return min(max(secs, 1), MaxTimeoutSeconds)
}

type Config struct {
	Enabled        bool
	BlockLinks     bool
	BlockWords     bool
	Blacklist      []string
	Action         Action
	TimeoutSeconds int
	NoticeEnabled  bool
	// Notice accepts {user} and {reason}.
	Notice string
}

type Guard struct {
	log      logger.Logger
	api      ports.ModerationAPIPort
	exec     ports.ExecutorPort
	chat     ports.ChatSenderPort
	activity ports.ActivityPort
	permits  *Permits
	settings func() Config
	onPunish func(reason string)
}

type Option func(*Guard)

func WithActivity(a ports.ActivityPort) Option {
	return func(g *Guard) {
		g.activity = a
	}
}

// WithPunishHook registers fn to be called once per punished message.
func WithPunishHook(fn func(reason string)) Option {
	return func(g *Guard) {
		g.onPunish = fn
	}
}

func NewGuard(log logger.Logger, api ports.ModerationAPIPort, exec ports.ExecutorPort, chat ports.ChatSenderPort,
	permits *Permits, settings func() Config, opts ...Option) *Guard {
	g := &Guard{
		log:      log,
		api:      api,
		exec:     exec,
		chat:     chat,
		permits:  permits,
		settings: settings,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Permits() *Permits {
	return g.permits
}

// Check decides whether msg may proceed to command dispatch. A denied message has its
// punishment scheduled before Check returns; enforcement failures do not change the verdict.
func (g *Guard) Check(msg *message.ChatMessage) bool {
	cfg := g.settings()
	if !cfg.Enabled || msg.Permissions.IsStaff() {
		return true
	}

	text := message.StripInvisible(msg.Body)

	if cfg.BlockLinks && ContainsLink(text) {
		if g.permits.Consume(msg.Sender) {
			g.log.Debug("Link allowed by permit", slog.String("user", msg.SenderLogin()))
			return true
		}
		g.punish(cfg, msg, ReasonLink)
		return false
	}

	if cfg.BlockWords && matchesBlacklist(text, cfg.Blacklist) {
		g.punish(cfg, msg, ReasonWord)
		return false
	}

	return true
}

func matchesBlacklist(text string, words []string) bool {
	low := strings.ToLower(text)
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(low, w) {
			return true
		}
	}
	return false
}
