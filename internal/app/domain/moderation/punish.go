package moderation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"streambot/internal/app/domain/message"
)

const enforceTimeout = 10 * time.Second

func (g *Guard) punish(cfg Config, msg *message.ChatMessage, reason string) {
	user, messageID := msg.Sender, msg.ID
	id := uuid.NewString()

	g.log.Info("Message blocked",
		slog.String("action_id", id),
		slog.String("user", user),
		slog.String("reason", reason),
		slog.String("action", string(cfg.Action)),
	)

	if g.onPunish != nil {
		g.onPunish(reason)
	}
	if g.activity != nil {
		g.activity.Add("punishment", user, reason)
	}

	task := func() {
		g.enforce(id, cfg, user, messageID, reason)
	}

	if g.exec == nil {
		task()
		return
	}
	if err := g.exec.Submit(task); err != nil {
		g.log.Warn("Enforcement queue rejected task, running inline",
			slog.String("action_id", id), slog.String("error", err.Error()))
		task()
	}
}

func (g *Guard) enforce(id string, cfg Config, user, messageID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), enforceTimeout)
	defer cancel()

	action := cfg.Action
	if !action.Valid() {
		action = ActionBoth
	}

	if action.deletes() {
		deleted := messageID != "" && g.api.DeleteMessage(ctx, messageID)
		if !deleted && !g.api.TimeoutUser(ctx, user, 1, reason) {
			g.log.Warn("Failed to remove message", slog.String("action_id", id), slog.String("user", user))
		}
	}

	if action.timesOut() && cfg.TimeoutSeconds > 1 {
		if !g.api.TimeoutUser(ctx, user, ClampTimeout(cfg.TimeoutSeconds), reason) {
			g.log.Warn("Failed to time out user", slog.String("action_id", id), slog.String("user", user))
		}
	}

	if !cfg.NoticeEnabled || g.chat == nil {
		return
	}
	if notice := strings.TrimSpace(cfg.Notice); notice != "" {
		g.chat.Send(strings.NewReplacer("{user}", user, "{reason}", reason).Replace(notice))
	}
}
