package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"streambot/internal/app/domain/stream"
	"streambot/internal/app/infrastructure/storage"
	"streambot/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.twitch.tv/helix"
	DefaultAuthURL = "https://id.twitch.tv/oauth2"

	// CallTimeout bounds every collaborator call made on behalf of the chat pipeline.
	CallTimeout = 6 * time.Second

	maxRetries  = 5
	baseBackoff = time.Second
	maxBackoff  = 30 * time.Second

	userCacheSize = 1024
	userCacheTTL  = time.Hour
)

// Twitch is the Helix REST collaborator. Every exported port method converts failures into
// safe defaults and logs them.
type Twitch struct {
	log      logger.Logger
	client   *http.Client
	stream   *stream.Stream
	baseURL  string
	authURL  string
	token    string
	clientID string
	backoff  time.Duration
	now      func() time.Time

	users *storage.Cache[string]
}

type Option func(*Twitch)

func WithBaseURL(u string) Option {
	return func(t *Twitch) {
		t.baseURL = u
	}
}

func WithAuthURL(u string) Option {
	return func(t *Twitch) {
		t.authURL = u
	}
}

// WithBackoff sets the first retry delay used when the rate limit reset time is unknown.
func WithBackoff(d time.Duration) Option {
	return func(t *Twitch) {
		t.backoff = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Twitch) {
		t.now = now
	}
}

func NewTwitch(log logger.Logger, client *http.Client, st *stream.Stream, oauth, clientID string, opts ...Option) *Twitch {
	t := &Twitch{
		log:      log,
		client:   client,
		stream:   st,
		baseURL:  DefaultBaseURL,
		authURL:  DefaultAuthURL,
		token:    oauth,
		clientID: clientID,
		backoff:  baseBackoff,
		now:      time.Now,
		users:    storage.NewCache[string](userCacheSize, userCacheTTL),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type twitchRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

type TwitchAPIError struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (t *Twitch) doTwitchRequest(ctx context.Context, reqData twitchRequest, target any) (int, error) {
	u := t.baseURL + reqData.Path
	if len(reqData.Query) > 0 {
		u += "?" + reqData.Query.Encode()
	}

	var payload []byte
	if reqData.Body != nil {
		b, err := json.Marshal(reqData.Body)
		if err != nil {
			return 0, fmt.Errorf("marshal body: %w", err)
		}
		payload = b
	}

	t.log.Trace("Preparing Twitch request", slog.String("method", reqData.Method), slog.String("url", u))

	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, reqData.Method, u, bytes.NewReader(payload))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+t.token)
		req.Header.Set("Client-Id", t.clientID)
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			return 0, err
		}

		raw, err := io.ReadAll(resp.Body)
		if cerr := resp.Body.Close(); cerr != nil {
			t.log.Debug("Failed to close response body", slog.String("error", cerr.Error()))
		}
		if err != nil {
			return resp.StatusCode, err
		}

		t.log.Trace("Response received", slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))
		switch resp.StatusCode {
		case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
			if target == nil || len(raw) == 0 {
				return resp.StatusCode, nil
			}
			if err := json.Unmarshal(raw, target); err != nil {
				return resp.StatusCode, fmt.Errorf("decode response: %w", err)
			}
			return resp.StatusCode, nil

		case http.StatusTooManyRequests:
			wait := t.calcWaitDuration(resp.Header.Get("Ratelimit-Reset"))
			if wait <= 0 {
				wait = time.Duration(attempt) * t.backoff
			}
			wait = min(wait, maxBackoff)

			t.log.Warn("Rate limit hit, backing off", slog.Int("attempt", attempt), slog.String("wait", wait.String()))
			select {
			case <-ctx.Done():
				return resp.StatusCode, errors.Join(ErrRateLimited, ctx.Err())
			case <-time.After(wait):
			}
			continue

		default:
			var apiErr TwitchAPIError
			msg := string(raw)
			if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
				msg = apiErr.Message
			}
			return resp.StatusCode, fmt.Errorf("%w: %s", statusError(resp.StatusCode), msg)
		}
	}

	return http.StatusTooManyRequests, fmt.Errorf("%w: gave up after %d retries", ErrRateLimited, maxRetries)
}

func statusError(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrMissingScope
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("twitch API status %d", code)
	}
}

func (t *Twitch) calcWaitDuration(resetHeader string) time.Duration {
	if resetHeader == "" {
		return 0
	}

	ts, err := strconv.ParseInt(resetHeader, 10, 64)
	if err != nil {
		return 0
	}

	resetTime := time.Unix(ts, 0)
	now := t.now()
	if resetTime.Before(now) {
		return 0
	}
	return resetTime.Sub(now)
}

// logFailure logs a collaborator failure, calling out scope problems explicitly.
func (t *Twitch) logFailure(op string, err error, args ...any) {
	if errors.Is(err, ErrMissingScope) {
		t.log.Error(op+" failed: token is missing the required scope or the bot is not a moderator", err, args...)
		return
	}
	t.log.Error(op+" failed", err, args...)
}
