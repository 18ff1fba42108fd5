package message

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"streambot/internal/app/adapters/metrics"
	"streambot/internal/app/domain/cooldown"
	"streambot/internal/app/domain/counters"
	"streambot/internal/app/domain/message"
	"streambot/internal/app/domain/moderation"
	"streambot/internal/app/domain/points"
	"streambot/internal/app/domain/template"
	"streambot/internal/app/infrastructure/config"
	"streambot/internal/app/ports"
	"streambot/pkg/logger"
)

const (
	SetCountCommand = "!setcount"
	AddCountCommand = "!addcount"
)

var (
	commandRoot = regexp.MustCompile(`^![a-z0-9_]+`)
	wordRe      = regexp.MustCompile(`\S+`)
)

type kind int

const (
	kindBalance kind = iota
	kindGive
	kindAddPoints
	kindSetPoints
	kindPermit
	kindCounterAdmin
	kindCommandAdmin
	kindCustom
)

// Router matches chat messages against the command families and dispatches the first hit.
type Router struct {
	log       logger.Logger
	manager   *config.Manager
	engine    *template.Engine
	cooldowns *cooldown.Table
	counters  *counters.Store
	ledger    *points.Ledger
	permits   *moderation.Permits
	chat      ports.ChatSenderPort
	sound     ports.SoundPort
	activity  ports.ActivityPort
}

type RouterOption func(*Router)

func WithSound(sound ports.SoundPort) RouterOption {
	return func(r *Router) {
		r.sound = sound
	}
}

func WithRouterActivity(activity ports.ActivityPort) RouterOption {
	return func(r *Router) {
		r.activity = activity
	}
}

func NewRouter(log logger.Logger, manager *config.Manager, engine *template.Engine, cooldowns *cooldown.Table,
	counters *counters.Store, ledger *points.Ledger, permits *moderation.Permits, chat ports.ChatSenderPort, opts ...RouterOption,
) *Router {
	r := &Router{
		log:       log,
		manager:   manager,
		engine:    engine,
		cooldowns: cooldowns,
		counters:  counters,
		ledger:    ledger,
		permits:   permits,
		chat:      chat,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// candidates builds the name to family table. Families are inserted in precedence order
// and an earlier family keeps a name a later one also claims.
func candidates(cfg *config.Config) map[string]kind {
	out := make(map[string]kind, len(cfg.Commands)+8)
	claim := func(name string, k kind) {
		if name == "" {
			return
		}
		if _, taken := out[name]; !taken {
			out[name] = k
		}
	}

	if p := cfg.Points; p.Enabled {
		for _, t := range []struct {
			toggle config.CommandToggle
			kind   kind
		}{
			{p.Commands.Balance, kindBalance},
			{p.Commands.Give, kindGive},
			{p.Commands.Add, kindAddPoints},
			{p.Commands.Set, kindSetPoints},
		} {
			if t.toggle.Enabled {
				claim(t.toggle.Name, t.kind)
			}
		}
	}

	claim(cfg.Permit.Command, kindPermit)
	claim(SetCountCommand, kindCounterAdmin)
	claim(AddCountCommand, kindCounterAdmin)
	claim(config.ManageCommand, kindCommandAdmin)

	for name := range cfg.Commands {
		claim(name, kindCustom)
	}
	return out
}

// findCommand returns the first token that names a candidate and the message from that
// token to the end.
func findCommand(body string, cands map[string]kind) (string, kind, string, bool) {
	for _, loc := range wordRe.FindAllStringIndex(body, -1) {
		word := body[loc[0]:loc[1]]
		if !strings.HasPrefix(word, "!") {
			continue
		}

		root := commandRoot.FindString(strings.ToLower(word))
		if root == "" {
			continue
		}
		if k, ok := cands[root]; ok {
			return root, k, strings.TrimSpace(body[loc[0]:]), true
		}
	}
	return "", 0, "", false
}

// Route dispatches msg to at most one command and emits at most one reply.
func (r *Router) Route(ctx context.Context, msg *message.ChatMessage) {
	cfg := r.manager.Get()

	name, k, effective, ok := findCommand(msg.Body, candidates(cfg))
	if !ok {
		return
	}

	r.log.Debug("Dispatching command", slog.String("command", name), slog.String("user", msg.Sender))
	metrics.CommandsTotal.WithLabelValues(name).Inc()

	args := strings.Fields(effective)
	switch k {
	case kindBalance:
		r.balance(cfg, msg, args)
	case kindGive:
		r.give(cfg, msg, name, args)
	case kindAddPoints, kindSetPoints:
		r.adminPoints(cfg, msg, name, k == kindAddPoints, args)
	case kindPermit:
		r.permit(cfg, msg, name, args)
	case kindCounterAdmin:
		r.counterAdmin(msg, name, args)
	case kindCommandAdmin:
		r.commandAdmin(msg, name, effective)
	case kindCustom:
		r.custom(ctx, cfg, msg, name, effective)
	}
}

func (r *Router) custom(ctx context.Context, cfg *config.Config, msg *message.ChatMessage, name, effective string) {
	cmd := cfg.Commands[name]
	if cmd == nil || cmd.Disabled {
		return
	}

	level, _ := message.ParseLevel(cmd.Permission)
	if !msg.Permissions.Allows(level) {
		r.deny(msg, name)
		return
	}

	cd := cooldown.Config{
		GlobalSeconds: cmd.CooldownGlobal,
		UserSeconds:   cmd.CooldownUser,
		BypassStaff:   cmd.BypassMods,
	}
	if allowed, left := r.cooldowns.Check(name, msg.SenderLogin(), cd, msg.Permissions); !allowed {
		r.log.Debug("Command on cooldown", slog.String("command", name), slog.String("user", msg.Sender), slog.Int("seconds_left", left))
		return
	}

	extra := map[string]string{}
	if r.ledger != nil {
		bal := strconv.Itoa(r.ledger.Get(msg.Sender))
		extra["points"] = bal
		extra["balance"] = bal
	}

	res := r.engine.Resolve(ctx, template.Request{
		Template: cmd.Response,
		User:     msg.Sender,
		Channel:  cfg.App.Channel,
		Message:  effective,
		Command: template.Command{
			Type:      template.Kind(cmd.Type),
			Min:       cmd.Min,
			Max:       cmd.Max,
			Options:   cmd.Options,
			Reactions: cmd.Reactions,
		},
		Extra: extra,
	})
	if res.Output != "" {
		r.chat.Send(res.Output)
	}
	if cmd.Sound != "" && r.sound != nil {
		r.sound.Play(cmd.Sound)
	}

	r.cooldowns.Arm(name, msg.SenderLogin(), cd)
	r.record("command", msg.Sender, name)
}

func (r *Router) deny(msg *message.ChatMessage, cmd string) {
	r.log.Info("Command denied", slog.String("command", cmd), slog.String("user", msg.Sender))
	r.chat.Send("🚨 " + msg.Sender + ", você não tem permissão para usar " + cmd + ".")
}

func (r *Router) record(kind, user, details string) {
	if r.activity != nil {
		r.activity.Add(kind, user, details)
	}
}

// targetName normalizes a user argument such as "@Alice" to a login.
func targetName(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "@"))
}
