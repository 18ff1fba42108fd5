package message

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"streambot/internal/app/domain/cooldown"
	"streambot/internal/app/domain/message"
	"streambot/internal/app/domain/template"
	"streambot/internal/app/infrastructure/config"
)

var commandName = regexp.MustCompile(`^![a-z0-9_]+$`)

const cmddUsage = "❌ Uso: !cmdd add <comando> <resposta> OU !cmdd remove <comando>"

func (r *Router) permit(cfg *config.Config, msg *message.ChatMessage, name string, args []string) {
	if !msg.Permissions.IsStaff() {
		r.deny(msg, name)
		return
	}
	if len(args) < 2 {
		r.chat.Send("❌ " + msg.Sender + ", uso incorreto. Tente: " + name + " @usuario [segundos]")
		return
	}

	target := targetName(args[1])
	seconds := cfg.Permit.Seconds
	if len(args) >= 3 {
		if s, err := strconv.Atoi(args[2]); err == nil && s > 0 {
			seconds = s
		}
	}

	r.permits.Grant(target, seconds, cfg.Permit.Uses)
	r.log.Info("Permit granted", slog.String("target", target), slog.Int("seconds", seconds), slog.String("by", msg.Sender))
	r.record("permit", target, strconv.Itoa(seconds)+"s")

	if cfg.Permit.MessageEnabled {
		r.chat.Send(template.Fill(cfg.Permit.Message, map[string]string{
			"target":  target,
			"user":    msg.Sender,
			"seconds": strconv.Itoa(seconds),
		}))
	}
}

func (r *Router) counterAdmin(msg *message.ChatMessage, name string, args []string) {
	if !msg.Permissions.IsStaff() {
		r.deny(msg, name)
		return
	}
	if len(args) < 3 {
		r.chat.Send("❌ " + msg.Sender + ", uso incorreto. Tente: " + name + " <contador> <valor>")
		return
	}

	counter := strings.ToLower(strings.TrimSpace(args[1]))
	value, err := strconv.Atoi(args[2])
	if err != nil {
		r.chat.Send("❌ " + msg.Sender + ", o valor '" + args[2] + "' não é um número válido.")
		return
	}

	if name == SetCountCommand {
		v := r.counters.Set(counter, value)
		r.chat.Send("💀 Contador '" + counter + "' definido para " + strconv.Itoa(v) + ".")
		return
	}

	v := r.counters.Add(counter, value)
	r.chat.Send("➕ " + capitalize(counter) + " aumentou para " + strconv.Itoa(v) + ".")
}

func (r *Router) commandAdmin(msg *message.ChatMessage, name, effective string) {
	if !msg.Permissions.IsStaff() {
		r.deny(msg, name)
		return
	}

	parts := splitArgs(effective, 4)
	if len(parts) < 2 {
		r.chat.Send("❌ Use: !cmdd add <comando> <resposta> OU !cmdd remove <comando>")
		return
	}

	switch action := strings.ToLower(parts[1]); {
	case action == "add" && len(parts) == 4:
		r.addCommand(msg, parts[2], parts[3])
	case action == "add":
		r.chat.Send("❌ Formato: !cmdd add <comando> <resposta>")
	case action == "remove" && len(parts) >= 3:
		r.removeCommand(msg, parts[2])
	default:
		r.chat.Send(cmddUsage)
	}
}

// splitArgs splits s on runs of whitespace into at most n parts. The last part keeps the rest
// of the text with its inner spacing.
func splitArgs(s string, n int) []string {
	var parts []string
	s = strings.TrimSpace(s)
	for s != "" && len(parts) < n-1 {
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i == -1 {
			break
		}
		parts = append(parts, s[:i])
		s = strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

func normalizeCommand(cmd string) string {
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	if !strings.HasPrefix(cmd, "!") {
		cmd = "!" + cmd
	}
	return cmd
}

func (r *Router) addCommand(msg *message.ChatMessage, rawName, response string) {
	cmd := normalizeCommand(rawName)
	response = strings.TrimSpace(response)
	if !commandName.MatchString(cmd) || response == "" {
		r.chat.Send("❌ Formato: !cmdd add <comando> <resposta>")
		return
	}

	for _, created := range r.counters.Ensure(template.ReferencedCounters(response)...) {
		r.log.Info("Counter initialized", slog.String("counter", created))
	}

	err := r.manager.Update(func(cfg *config.Config) {
		cfg.Commands[cmd] = &config.Command{
			Response:       response,
			Type:           string(template.KindStatic),
			Permission:     message.LevelEveryone.String(),
			CooldownGlobal: cooldown.AddFlowGlobalSeconds,
			CooldownUser:   cooldown.AddFlowUserSeconds,
			BypassMods:     true,
			Min:            config.DefaultRangeMin,
			Max:            config.DefaultRangeMax,
		}
	})
	if err != nil {
		r.log.Error("Failed to add command", err, slog.String("command", cmd))
		r.chat.Send("❌ Formato: !cmdd add <comando> <resposta>")
		return
	}

	r.cooldowns.Forget(cmd)
	r.record("command.add", msg.Sender, cmd)
	r.chat.Send("✅ " + msg.Sender + " adicionou: " + cmd + ". Contadores verificados.")
}

func (r *Router) removeCommand(msg *message.ChatMessage, rawName string) {
	cmd := normalizeCommand(rawName)

	_, exists := r.manager.Get().Commands[cmd]
	if _, protected := config.ProtectedCommands[cmd]; !exists || protected {
		r.chat.Send("❌ Comando " + cmd + " não encontrado ou é essencial!")
		return
	}

	if err := r.manager.Update(func(cfg *config.Config) {
		delete(cfg.Commands, cmd)
	}); err != nil {
		r.log.Error("Failed to remove command", err, slog.String("command", cmd))
		r.chat.Send("❌ Comando " + cmd + " não encontrado ou é essencial!")
		return
	}

	r.cooldowns.Forget(cmd)
	r.record("command.remove", msg.Sender, cmd)
	r.chat.Send("✅ " + msg.Sender + " removeu: " + cmd)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
