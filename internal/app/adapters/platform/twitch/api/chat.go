package api

import (
	"context"
	"net/url"
	"strings"
)

// Chatters lists the logins currently in chat, including the bot and the broadcaster.
// It returns nil on any failure.
func (t *Twitch) Chatters(ctx context.Context) []string {
	if t.stream == nil || t.stream.BroadcasterID() == "" || t.stream.BotID() == "" {
		t.log.Warn("Cannot list chatters before the channel and bot ids are resolved")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	var resp chattersResponse
	if _, err := t.doTwitchRequest(ctx, twitchRequest{
		Method: "GET",
		Path:   "/chat/chatters",
		Query: url.Values{
			"broadcaster_id": {t.stream.BroadcasterID()},
			"moderator_id":   {t.stream.BotID()},
			"first":          {"1000"},
		},
	}, &resp); err != nil {
		t.logFailure("Chatter list", err)
		return nil
	}

	seen := make(map[string]struct{}, len(resp.Data)+2)
	out := make([]string, 0, len(resp.Data)+2)
	add := func(login string) {
		login = strings.ToLower(login)
		if login == "" {
			return
		}
		if _, ok := seen[login]; ok {
			return
		}
		seen[login] = struct{}{}
		out = append(out, login)
	}

	for _, c := range resp.Data {
		add(c.UserLogin)
	}
	add(t.stream.BotLogin())
	add(t.stream.ChannelName())
	return out
}
