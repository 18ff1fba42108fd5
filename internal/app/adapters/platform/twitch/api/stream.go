package api

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// UptimeSeconds reports how long channel has been live, 0 when offline or on any failure.
// Lookups for the joined channel also refresh the shared live state.
func (t *Twitch) UptimeSeconds(ctx context.Context, channel string) int {
	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	channel = strings.ToLower(strings.TrimPrefix(channel, "#"))
	own := t.stream != nil && channel == t.stream.ChannelName()

	var id string
	if own {
		id = t.stream.BroadcasterID()
	}
	if id == "" {
		var ok bool
		if id, ok = t.ResolveUserID(ctx, channel); !ok {
			return 0
		}
	}

	var resp streamResponse
	if _, err := t.doTwitchRequest(ctx, twitchRequest{
		Method: "GET",
		Path:   "/streams",
		Query:  url.Values{"user_id": {id}},
	}, &resp); err != nil {
		t.logFailure("Uptime lookup", err, slog.String("channel", channel))
		return 0
	}

	if len(resp.Data) == 0 || resp.Data[0].Type != "live" {
		if own {
			t.stream.SetLive(false, time.Time{})
		}
		return 0
	}

	startedAt, err := time.Parse(time.RFC3339, resp.Data[0].StartedAt)
	if err != nil {
		t.log.Warn("Unparsable stream start time", slog.String("started_at", resp.Data[0].StartedAt))
		return 0
	}

	if own {
		t.stream.SetLive(true, startedAt)
	}
	return max(0, int(t.now().Sub(startedAt).Seconds()))
}
