package config

import (
	"strings"

	"streambot/internal/app/domain/cooldown"
	"streambot/internal/app/domain/moderation"
)

const (
	DefaultTimerIntervalMin = 10
	DefaultRangeMin         = 1
	DefaultRangeMax         = 100

	ListCommand   = "!comandos"
	ManageCommand = "!cmdd"
)

// ProtectedCommands cannot be removed through the in-chat command admin.
var ProtectedCommands = map[string]struct{}{
	ListCommand:   {},
	ManageCommand: {},
}

func (m *Manager) GetDefault() *Config {
	return &Config{
		App: App{
			LogLevel: "info",
			LogFile:  "logs/bot.log",
			GinMode:  "release",
			HTTPAddr: "127.0.0.1:8085",
		},
		Commands: map[string]*Command{
			ListCommand: {
				Response:       "📋 Comandos disponíveis: !comandos. Use !cmdd add/remove para gerenciar!",
				Type:           "static",
				Permission:     "everyone",
				CooldownGlobal: cooldown.FallbackGlobalSeconds,
				CooldownUser:   cooldown.FallbackUserSeconds,
				BypassMods:     true,
				Min:            DefaultRangeMin,
				Max:            DefaultRangeMax,
			},
		},
		Counters: make(map[string]int),
		Points: Points{
			Enabled:          false,
			AccrualEnabled:   true,
			AccrualPerMsg:    1,
			AccrualCooldownS: 60,
			BypassMods:       true,
			MinTransfer:      1,
			Commands: PointsCommands{
				Balance: CommandToggle{Name: "!pontos", Enabled: true},
				Give:    CommandToggle{Name: "!give", Enabled: true},
				Add:     CommandToggle{Name: "!addpoints", Enabled: true},
				Set:     CommandToggle{Name: "!setpoints", Enabled: true},
			},
			Messages: PointsMessages{
				Balance:         "💰 {user} tem {balance} pontos.",
				TransferOK:      "✅ @{from} transferiu {amount} pontos para @{to}.",
				TransferFail:    "❌ Saldo insuficiente para @{from}.",
				TransferInvalid: "Quantidade inválida.",
				UsageGive:       "Uso: {cmd_give} @alvo <quantidade>",
				AddOK:           "➕ {target} agora tem {balance} pontos.",
				SetOK:           "📝 {target} teve o saldo definido para {balance}.",
				UsageAdmin:      "Uso: {cmd} @user <quantidade>",
			},
			Store:     "json",
			StoreFile: "points.json",
		},
		Permit: Permit{
			Command:        "!permit",
			Seconds:        60,
			Uses:           1,
			MessageEnabled: true,
			Message:        "@{target} pode postar 1 link por {seconds}s.",
		},
		Moderation: Moderation{
			Enabled:              true,
			BlockLinks:           false,
			BlockWords:           false,
			Blacklist:            []string{},
			PunishAction:         "both",
			TimeoutSeconds:       10,
			PunishMessageEnabled: true,
			PunishMessage:        "@{user} mensagem bloqueada: {reason}",
		},
		Events: Events{
			Enabled:       true,
			Follow:        EventMessage{Enabled: true, Message: "Obrigado pelo follow, @{user}! Seja bem-vindo(a)! <3"},
			Sub:           EventMessage{Enabled: true, Message: "WOAH! Muito obrigado pelo Sub (Tier {tier}), @{user}! Você é incrível! <3"},
			GiftSub:       EventMessage{Enabled: true, Message: "WOAH! @{user} ganhou um Sub de presente! Muito obrigado! <3"},
			Raid:          EventMessage{Enabled: true, Message: "RAID! Sejam todos muito bem-vindos, time do @{raider}! Mandem seus emotes!"},
			RewardActions: make(map[string]*RewardAction),
		},
		Cheer: Cheer{
			AlertEnabled: true,
			Alert:        "{user} enviou {bits}x bits!",
			TTSEnabled:   false,
			TTSMinBits:   100,
			TTSFormat:    "{user} enviou {bits}x e disse: {message}",
		},
		TTS: TTS{
			Enabled:   false,
			Command:   []string{"espeak-ng", "-v", "pt-br", "{text}"},
			QueueSize: 32,
		},
		Sound: Sound{
			Command: []string{"paplay", "{path}"},
		},
		Timers: make(map[string]*Timer),
	}
}

// applyDefaults normalizes names and fills values a hand-edited document may have zeroed.
func applyDefaults(cfg *Config) {
	cfg.App.OAuth = strings.TrimPrefix(strings.TrimSpace(cfg.App.OAuth), "oauth:")
	cfg.App.Username = strings.ToLower(strings.TrimSpace(cfg.App.Username))
	cfg.App.Channel = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.App.Channel), "#"))
	cfg.App.LogLevel = strings.ToLower(cfg.App.LogLevel)

	if cfg.Commands == nil {
		cfg.Commands = make(map[string]*Command)
	}
	for name, cmd := range cfg.Commands {
		if norm := strings.ToLower(strings.TrimSpace(name)); norm != name {
			delete(cfg.Commands, name)
			cfg.Commands[norm] = cmd
		}
	}
	for _, cmd := range cfg.Commands {
		if cmd == nil {
			continue
		}
		if cmd.Type == "" {
			cmd.Type = "static"
		}
		cmd.Permission = strings.ToLower(strings.TrimSpace(cmd.Permission))
	}

	if cfg.Counters == nil {
		cfg.Counters = make(map[string]int)
	}
	if cfg.Timers == nil {
		cfg.Timers = make(map[string]*Timer)
	}
	for _, t := range cfg.Timers {
		if t != nil && t.IntervalMin <= 0 {
			t.IntervalMin = DefaultTimerIntervalMin
		}
	}
	if cfg.Events.RewardActions == nil {
		cfg.Events.RewardActions = make(map[string]*RewardAction)
	}

	p := &cfg.Points
	for _, t := range []*CommandToggle{&p.Commands.Balance, &p.Commands.Give, &p.Commands.Add, &p.Commands.Set} {
		t.Name = strings.ToLower(strings.TrimSpace(t.Name))
	}
	if p.MinTransfer <= 0 {
		p.MinTransfer = 1
	}
	if p.Store == "" {
		p.Store = "json"
	}
	if p.StoreFile == "" {
		p.StoreFile = "points.json"
	}

	cfg.Permit.Command = strings.ToLower(strings.TrimSpace(cfg.Permit.Command))
	if cfg.Permit.Seconds <= 0 {
		cfg.Permit.Seconds = moderation.DefaultPermitSeconds
	}
	if cfg.Permit.Uses <= 0 {
		cfg.Permit.Uses = 1
	}

	cfg.Moderation.PunishAction = strings.ToLower(strings.TrimSpace(cfg.Moderation.PunishAction))
	if cfg.Moderation.PunishAction == "" {
		cfg.Moderation.PunishAction = "both"
	}

	if cfg.TTS.QueueSize <= 0 {
		cfg.TTS.QueueSize = 32
	}
}
