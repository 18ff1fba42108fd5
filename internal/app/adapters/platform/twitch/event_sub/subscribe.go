package event_sub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	maxRetries     = 5
	initialBackoff = 3 * time.Second
)

type subscription struct {
	name, version string
	condition     map[string]string
}

func (es *EventSub) subscriptions() []subscription {
	broadcasterID, botID := es.stream.BroadcasterID(), es.stream.BotID()

	return []subscription{
		{
			name:    "channel.follow",
			version: "2",
			condition: map[string]string{
				"broadcaster_user_id": broadcasterID,
				"moderator_user_id":   botID,
			},
		},
		{
			name:      "channel.subscribe",
			version:   "1",
			condition: map[string]string{"broadcaster_user_id": broadcasterID},
		},
		{
			name:      "channel.raid",
			version:   "1",
			condition: map[string]string{"to_broadcaster_user_id": broadcasterID},
		},
		{
			name:      "channel.channel_points_custom_reward_redemption.add",
			version:   "1",
			condition: map[string]string{"broadcaster_user_id": broadcasterID},
		},
	}
}

// subscribeEvents registers every subscription for sessionID, retrying each with exponential backoff.
// It returns the number of subscriptions that were accepted.
func (es *EventSub) subscribeEvents(ctx context.Context, sessionID string) int {
	ok := 0
	for _, e := range es.subscriptions() {
		backoff := es.backoff

		for attempt := 1; ; attempt++ {
			err := es.subscribeEvent(ctx, e, sessionID)
			if err == nil {
				ok++
				break
			}

			es.log.Error("Failed to subscribe to event", err, slog.String("event", e.name), slog.Int("attempt", attempt))
			if attempt >= maxRetries {
				es.log.Error("Giving up on event after max retries", err, slog.String("event", e.name))
				break
			}

			select {
			case <-ctx.Done():
				return ok
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	es.log.Info("Subscribed to events", slog.Int("accepted", ok))
	return ok
}

func (es *EventSub) subscribeEvent(ctx context.Context, e subscription, sessionID string) error {
	body := map[string]any{
		"type":      e.name,
		"version":   e.version,
		"condition": e.condition,
		"transport": map[string]string{
			"method":     "websocket",
			"session_id": sessionID,
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal subscription body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, es.helixURL+"/eventsub/subscriptions", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create subscription request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+es.token)
	req.Header.Set("Client-Id", es.clientID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := es.client.Do(req)
	if err != nil {
		return fmt.Errorf("send subscription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitch returned %s: %s", resp.Status, string(raw))
	}
	return nil
}
