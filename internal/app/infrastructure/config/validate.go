package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"streambot/internal/app/domain/message"
	"streambot/internal/app/domain/moderation"
	"streambot/internal/app/domain/template"
)

var validLevels = []string{"trace", "debug", "info", "warn", "error", "fatal"}

// validate returns an error for settings the bot cannot run with, and warnings for settings
// that work but are probably not what the streamer meant.
func (m *Manager) validate(cfg *Config) ([]string, error) {
	// app
	if cfg.App.LogLevel != "" && !slices.Contains(validLevels, cfg.App.LogLevel) {
		return nil, fmt.Errorf("app.log_level must be one of %s; got %s", strings.Join(validLevels, ", "), cfg.App.LogLevel)
	}
	if cfg.App.OAuth == "" {
		return nil, errors.New("app.oauth is required")
	}
	if cfg.App.Username == "" {
		return nil, errors.New("app.username is required")
	}
	if cfg.App.Channel == "" {
		return nil, errors.New("app.channel is required")
	}
	if cfg.Proxy != nil && (cfg.Proxy.Address == "" || cfg.Proxy.Port <= 0 || cfg.Proxy.Port > 65535) {
		return nil, errors.New("proxy.address and proxy.port must both be set")
	}

	// commands
	for name, cmd := range cfg.Commands {
		if cmd == nil {
			return nil, fmt.Errorf("commands.%s is empty", name)
		}
		if !strings.HasPrefix(name, "!") || len(name) < 2 {
			return nil, fmt.Errorf("commands.%s must start with '!'", name)
		}
		if _, ok := message.ParseLevel(cmd.Permission); !ok {
			return nil, fmt.Errorf("commands.%s.permission must be one of everyone, vip, mod, broadcaster; got %s", name, cmd.Permission)
		}
		if !template.Kind(cmd.Type).Valid() {
			return nil, fmt.Errorf("commands.%s.type must be one of static, random_range, random_list, dynamic_time; got %s", name, cmd.Type)
		}
		if cmd.CooldownGlobal < 0 || cmd.CooldownUser < 0 {
			return nil, fmt.Errorf("commands.%s cooldowns must not be negative", name)
		}
	}

	// points
	if cfg.Points.AccrualCooldownS < 0 {
		return nil, errors.New("points.accrual_cooldown_s must not be negative")
	}
	switch cfg.Points.Store {
	case "json":
	case "postgres":
		if cfg.App.DatabaseURL == "" {
			return nil, errors.New("points.store=postgres requires app.database_url")
		}
	default:
		return nil, fmt.Errorf("points.store must be json or postgres; got %s", cfg.Points.Store)
	}

	// moderation
	if !moderation.Action(cfg.Moderation.PunishAction).Valid() {
		return nil, fmt.Errorf("moderation.punish_action must be one of delete, timeout, both; got %s", cfg.Moderation.PunishAction)
	}
	if cfg.Moderation.TimeoutSeconds < 0 || cfg.Moderation.TimeoutSeconds > moderation.MaxTimeoutSeconds {
		return nil, fmt.Errorf("moderation.timeout_seconds must be [0,%d]", moderation.MaxTimeoutSeconds)
	}

	// timers
	for name, t := range cfg.Timers {
		if t == nil {
			return nil, fmt.Errorf("timers.%s is empty", name)
		}
		if t.MinLines < 0 {
			return nil, fmt.Errorf("timers.%s.min_lines must not be negative", name)
		}
	}

	return collisions(cfg), nil
}

// collisions reports configured commands shadowed by a built-in command. Built-ins win at dispatch.
func collisions(cfg *Config) []string {
	builtins := map[string]string{
		cfg.Permit.Command: "permit",
		"!setcount":        "counter admin",
		"!addcount":        "counter admin",
		ManageCommand:      "command admin",
	}
	if cfg.Points.Enabled {
		for _, t := range cfg.Points.toggles() {
			if t.Enabled {
				builtins[t.Name] = "points"
			}
		}
	}

	var warnings []string
	for name := range cfg.Commands {
		if owner, ok := builtins[name]; ok {
			warnings = append(warnings, fmt.Sprintf("command %s is shadowed by the %s command of the same name", name, owner))
		}
	}
	slices.Sort(warnings)
	return warnings
}

func (p Points) toggles() []CommandToggle {
	return []CommandToggle{p.Commands.Balance, p.Commands.Give, p.Commands.Add, p.Commands.Set}
}
