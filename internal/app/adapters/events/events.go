package events

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"streambot/internal/app/domain/template"
	"streambot/internal/app/infrastructure/config"
	"streambot/internal/app/ports"
	"streambot/pkg/logger"
)

// Notifier turns platform notifications into chat messages, speech, sounds and activity entries.
type Notifier struct {
	log      logger.Logger
	manager  *config.Manager
	chat     ports.ChatSenderPort
	speech   ports.SpeechPort
	sound    ports.SoundPort
	activity ports.ActivityPort
}

type Option func(*Notifier)

func WithSpeech(s ports.SpeechPort) Option {
	return func(n *Notifier) {
		n.speech = s
	}
}

func WithSound(s ports.SoundPort) Option {
	return func(n *Notifier) {
		n.sound = s
	}
}

func WithActivity(a ports.ActivityPort) Option {
	return func(n *Notifier) {
		n.activity = a
	}
}

func New(log logger.Logger, manager *config.Manager, chat ports.ChatSenderPort, opts ...Option) *Notifier {
	n := &Notifier{
		log:     log,
		manager: manager,
		chat:    chat,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var _ ports.EventHandlerPort = (*Notifier)(nil)

func (n *Notifier) OnFollow(_ context.Context, user string) {
	n.record("follow", user, "")

	cfg := n.manager.Get()
	if !cfg.Events.Enabled {
		return
	}
	n.announce(cfg.Events.Follow, map[string]string{"user": user, "channel": cfg.App.Channel})
}

func (n *Notifier) OnSubscribe(_ context.Context, user, tier string, isGift bool) {
	tier = strings.ReplaceAll(tier, "000", "")

	details := "T" + tier
	if isGift {
		details += " (Gift)"
	}
	n.record("sub", user, details)

	cfg := n.manager.Get()
	if !cfg.Events.Enabled {
		return
	}

	msg := cfg.Events.Sub
	if isGift {
		msg = cfg.Events.GiftSub
	}
	n.announce(msg, map[string]string{"user": user, "tier": tier, "channel": cfg.App.Channel})
}

func (n *Notifier) OnRaid(_ context.Context, raider string, viewers int) {
	n.record("raid", raider, strconv.Itoa(viewers)+" viewers")

	cfg := n.manager.Get()
	if !cfg.Events.Enabled {
		return
	}
	n.announce(cfg.Events.Raid, map[string]string{
		"raider":  raider,
		"user":    raider,
		"viewers": strconv.Itoa(viewers),
		"channel": cfg.App.Channel,
	})
}

// OnRedemption speaks the input of the configured speech reward, then runs the reward's
// configured action, if there is one.
func (n *Notifier) OnRedemption(_ context.Context, user, title, input string) {
	cfg := n.manager.Get()

	spoken := false
	if tts := cfg.TTS; tts.Enabled && tts.RewardName != "" && strings.EqualFold(title, tts.RewardName) {
		if text := strings.TrimSpace(input); text != "" {
			spoken = true
			n.record("tts.redemption", user, text)
			if n.speech != nil {
				n.speech.Speak(text)
			}
		}
	}
	if !spoken {
		n.record("redemption", user, title)
	}

	action, ok := cfg.Events.RewardActions[title]
	if !ok || action == nil {
		n.log.Debug("No action for reward", slog.String("reward", title))
		return
	}
	if action.Sound != "" && n.sound != nil {
		n.sound.Play(action.Sound)
	}
	if action.Message != "" {
		n.chat.Send(template.Fill(action.Message, map[string]string{"user": user, "input": input, "channel": cfg.App.Channel}))
	}
}

func (n *Notifier) announce(msg config.EventMessage, vars map[string]string) {
	if !msg.Enabled || strings.TrimSpace(msg.Message) == "" {
		return
	}
	n.chat.Send(template.Fill(msg.Message, vars))
}

func (n *Notifier) record(kind, user, details string) {
	n.log.Info("Channel event", slog.String("kind", kind), slog.String("user", user), slog.String("details", details))
	if n.activity != nil {
		n.activity.Add(kind, user, details)
	}
}
