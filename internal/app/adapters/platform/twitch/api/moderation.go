package api

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"streambot/internal/app/domain/moderation"
)

func (t *Twitch) moderatorQuery() (url.Values, bool) {
	if t.stream == nil || t.stream.BroadcasterID() == "" || t.stream.BotID() == "" {
		t.log.Warn("Moderation call skipped, channel or bot id not resolved")
		return nil, false
	}
	return url.Values{
		"broadcaster_id": {t.stream.BroadcasterID()},
		"moderator_id":   {t.stream.BotID()},
	}, true
}

// UserIDPrefix marks a moderation target that is already a numeric user id. Anything else is
// a login, including all-digit logins.
const UserIDPrefix = "id:"

func (t *Twitch) userID(ctx context.Context, user string) (string, bool) {
	user = strings.TrimPrefix(strings.TrimSpace(user), "@")
	if id, ok := strings.CutPrefix(user, UserIDPrefix); ok {
		if id == "" || strings.Trim(id, "0123456789") != "" {
			t.log.Warn("Invalid user id", slog.String("user", user))
			return "", false
		}
		return id, true
	}
	return t.ResolveUserID(ctx, user)
}

func (t *Twitch) DeleteMessage(ctx context.Context, messageID string) bool {
	if messageID == "" {
		return false
	}
	query, ok := t.moderatorQuery()
	if !ok {
		return false
	}
	query.Set("message_id", messageID)

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	if _, err := t.doTwitchRequest(ctx, twitchRequest{Method: "DELETE", Path: "/moderation/chat", Query: query}, nil); err != nil {
		t.logFailure("Message delete", err, slog.String("message_id", messageID))
		return false
	}
	return true
}

// TimeoutUser clamps seconds to the platform's accepted range before sending.
func (t *Twitch) TimeoutUser(ctx context.Context, user string, seconds int, reason string) bool {
	return t.ban(ctx, user, moderation.ClampTimeout(seconds), reason)
}

func (t *Twitch) BanUser(ctx context.Context, user, reason string) bool {
	return t.ban(ctx, user, 0, reason)
}

func (t *Twitch) ban(ctx context.Context, user string, seconds int, reason string) bool {
	query, ok := t.moderatorQuery()
	if !ok {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	id, ok := t.userID(ctx, user)
	if !ok {
		return false
	}

	body := banRequest{Data: banData{UserID: id, Duration: seconds, Reason: reason}}
	if _, err := t.doTwitchRequest(ctx, twitchRequest{Method: "POST", Path: "/moderation/bans", Query: query, Body: body}, nil); err != nil {
		t.logFailure("Ban", err, slog.String("user", user), slog.Int("duration", seconds))
		return false
	}

	t.log.Info("Ban applied", slog.String("user", user), slog.Int("duration", seconds), slog.String("reason", reason))
	return true
}

func (t *Twitch) UnbanUser(ctx context.Context, user string) bool {
	query, ok := t.moderatorQuery()
	if !ok {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	id, ok := t.userID(ctx, user)
	if !ok {
		return false
	}
	query.Set("user_id", id)

	if _, err := t.doTwitchRequest(ctx, twitchRequest{Method: "DELETE", Path: "/moderation/bans", Query: query}, nil); err != nil {
		t.logFailure("Unban", err, slog.String("user", user))
		return false
	}
	return true
}
