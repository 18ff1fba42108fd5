package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// RequiredScopes are the scopes the moderation and chatter features depend on.
var RequiredScopes = []string{
	"moderator:read:chatters",
	"moderator:manage:chat_messages",
	"moderator:manage:banned_users",
}

// ResolveUserID maps a login to its user id. Results are cached.
func (t *Twitch) ResolveUserID(ctx context.Context, login string) (string, bool) {
	login = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(login), "@"))
	if login == "" {
		return "", false
	}
	if id, ok := t.users.Get(login); ok {
		return id, true
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	var resp userResponse
	if _, err := t.doTwitchRequest(ctx, twitchRequest{
		Method: "GET",
		Path:   "/users",
		Query:  url.Values{"login": {login}},
	}, &resp); err != nil {
		t.logFailure("User lookup", err, slog.String("login", login))
		return "", false
	}
	if len(resp.Data) == 0 {
		t.log.Warn("User not found", slog.String("login", login))
		return "", false
	}

	id := resp.Data[0].ID
	t.users.Set(login, id)
	return id, true
}

// ValidateToken checks the OAuth token, records the bot identity and warns about missing scopes.
func (t *Twitch) ValidateToken(ctx context.Context) (*TokenInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.authURL+"/validate", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validate token: %w", statusError(resp.StatusCode))
	}

	var info TokenInfo
	if err := jsonDecode(resp, &info); err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}

	for _, scope := range RequiredScopes {
		if !slices.Contains(info.Scopes, scope) {
			t.log.Warn("Token is missing a scope, related features will fail", slog.String("scope", scope))
		}
	}

	if t.stream != nil {
		t.stream.SetBot(info.UserID, info.Login)
	}
	if t.clientID == "" {
		t.clientID = info.ClientID
	}

	t.log.Info("Token validated", slog.String("login", info.Login), slog.Int("expires_in", info.ExpiresIn))
	return &info, nil
}

// ResolveBroadcaster looks up the joined channel's user id and stores it in the shared state.
func (t *Twitch) ResolveBroadcaster(ctx context.Context) error {
	if t.stream == nil {
		return ErrNoIdentity
	}

	id, ok := t.ResolveUserID(ctx, t.stream.ChannelName())
	if !ok {
		return fmt.Errorf("resolve channel %q: %w", t.stream.ChannelName(), ErrNotFound)
	}
	t.stream.SetBroadcasterID(id)
	return nil
}

// IsModerator reports whether the bot moderates the joined channel.
func (t *Twitch) IsModerator(ctx context.Context) (bool, error) {
	if t.stream == nil {
		return false, ErrNoIdentity
	}

	botID, broadcasterID := t.stream.BotID(), t.stream.BroadcasterID()
	if botID == "" || broadcasterID == "" {
		return false, ErrNoIdentity
	}
	if botID == broadcasterID {
		return true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	query := url.Values{"user_id": {botID}, "first": {"100"}}
	for {
		var resp moderatedChannelsResponse
		if _, err := t.doTwitchRequest(ctx, twitchRequest{Method: "GET", Path: "/moderation/channels", Query: query}, &resp); err != nil {
			if errors.Is(err, ErrMissingScope) {
				return false, fmt.Errorf("token lacks user:read:moderated_channels: %w", err)
			}
			return false, err
		}

		for _, ch := range resp.Data {
			if ch.BroadcasterID == broadcasterID {
				return true, nil
			}
		}

		if resp.Pagination.Cursor == "" {
			return false, nil
		}
		query.Set("after", resp.Pagination.Cursor)
	}
}

func jsonDecode(resp *http.Response, target any) error {
	return json.NewDecoder(resp.Body).Decode(target)
}
