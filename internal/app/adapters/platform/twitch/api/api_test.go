package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambot/internal/app/domain/stream"
	"streambot/pkg/logger"
)

type recorded struct {
	method string
	path   string
	query  string
	body   string
}

type fakeHelix struct {
	mu    sync.Mutex
	calls []recorded
	mux   *http.ServeMux
}

func newFakeHelix(t *testing.T) (*fakeHelix, *httptest.Server) {
	t.Helper()

	f := &fakeHelix{mux: http.NewServeMux()}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeHelix) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c.path == path {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(srv *httptest.Server, st *stream.Stream, opts ...Option) *Twitch {
	opts = append([]Option{WithBaseURL(srv.URL), WithAuthURL(srv.URL + "/oauth2"), WithBackoff(time.Millisecond)}, opts...)
	return NewTwitch(logger.Nop(), srv.Client(), st, "token", "client", opts...)
}

func identity() *stream.Stream {
	st := stream.NewStream("streamer")
	st.SetBroadcasterID("100")
	st.SetBot("200", "mybot")
	return st
}

func TestTwitch_UptimeSeconds(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f, srv := newFakeHelix(t)
	f.mux.HandleFunc("/streams", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user_id") != "100" {
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{
			"type":       "live",
			"started_at": now.Add(-3725 * time.Second).Format(time.RFC3339),
		}}})
	})
	f.mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "999", "login": r.URL.Query().Get("login")}}})
	})

	st := identity()
	c := newClient(srv, st, WithClock(func() time.Time { return now }))

	assert.Equal(t, 3725, c.UptimeSeconds(context.Background(), "#Streamer"))
	assert.True(t, st.IsLive())
	assert.Equal(t, 3725, st.UptimeSeconds(now))

	assert.Equal(t, 0, c.UptimeSeconds(context.Background(), "someoneelse"), "offline channel")
	assert.Equal(t, 1, f.count("/users"))
}

func TestTwitch_UptimeErrorsAreZero(t *testing.T) {
	t.Parallel()

	f, srv := newFakeHelix(t)
	f.mux.HandleFunc("/streams", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid token"})
	})

	c := newClient(srv, identity())
	assert.Equal(t, 0, c.UptimeSeconds(context.Background(), "streamer"))
}

func TestTwitch_Chatters(t *testing.T) {
	t.Parallel()

	f, srv := newFakeHelix(t)
	f.mux.HandleFunc("/chat/chatters", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("broadcaster_id"))
		assert.Equal(t, "200", r.URL.Query().Get("moderator_id"))
		assert.Equal(t, "1000", r.URL.Query().Get("first"))
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{
			{"user_login": "alice"}, {"user_login": "Bob"}, {"user_login": "mybot"},
		}})
	})

	c := newClient(srv, identity())
	assert.Equal(t, []string{"alice", "bob", "mybot", "streamer"}, c.Chatters(context.Background()))
}

func TestTwitch_ChattersMissingScope(t *testing.T) {
	t.Parallel()

	f, srv := newFakeHelix(t)
	f.mux.HandleFunc("/chat/chatters", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "Missing scope"})
	})

	c := newClient(srv, identity())
	assert.Empty(t, c.Chatters(context.Background()))

	noIdentity := newClient(srv, stream.NewStream("streamer"))
	assert.Empty(t, noIdentity.Chatters(context.Background()))
}

func TestTwitch_ModerationCalls(t *testing.T) {
	t.Parallel()

	f, srv := newFakeHelix(t)
	f.mux.HandleFunc("/moderation/chat", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f.mux.HandleFunc("/moderation/bans", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	})
	f.mux.HandleFunc("/users", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "555"}}})
	})

	c := newClient(srv, identity())
	ctx := context.Background()

	assert.True(t, c.DeleteMessage(ctx, "msg-1"))
	assert.False(t, c.DeleteMessage(ctx, ""))
	assert.True(t, c.TimeoutUser(ctx, "@Eve", 5_000_000, "spam"))
	assert.True(t, c.BanUser(ctx, "777", "bot"))
	assert.True(t, c.BanUser(ctx, UserIDPrefix+"888", "by id"))
	assert.False(t, c.BanUser(ctx, UserIDPrefix+"abc", "bad id"))
	assert.True(t, c.UnbanUser(ctx, "eve"))

	f.mu.Lock()
	defer f.mu.Unlock()

	var bans []banRequest
	for _, call := range f.calls {
		if call.path == "/moderation/bans" && call.method == http.MethodPost {
			var b banRequest
			require.NoError(t, json.Unmarshal([]byte(call.body), &b))
			bans = append(bans, b)
		}
	}
	require.Len(t, bans, 3)
	assert.Equal(t, banData{UserID: "555", Duration: 1209600, Reason: "spam"}, bans[0].Data)
	assert.Equal(t, banData{UserID: "555", Reason: "bot"}, bans[1].Data, "an all-digit login is still looked up")
	assert.Equal(t, banData{UserID: "888", Reason: "by id"}, bans[2].Data, "prefixed ids skip the lookup")

	var lookups []string
	for _, call := range f.calls {
		if call.path == "/users" {
			lookups = append(lookups, call.query)
		}
	}
	assert.Contains(t, lookups, "login=777")
}

func TestTwitch_ModerationFailuresAreFalse(t *testing.T) {
	t.Parallel()

	f, srv := newFakeHelix(t)
	f.mux.HandleFunc("/moderation/chat", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "not a moderator"})
	})

	c := newClient(srv, identity())
	assert.False(t, c.DeleteMessage(context.Background(), "msg-1"))

	unresolved := newClient(srv, stream.NewStream("streamer"))
	assert.False(t, unresolved.TimeoutUser(context.Background(), "eve", 10, "x"))
}

func TestTwitch_RetriesOnRateLimit(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	f, srv := newFakeHelix(t)
	f.mux.HandleFunc("/users", func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "42"}}})
	})

	c := newClient(srv, nil)
	id, ok := c.ResolveUserID(context.Background(), "@Someone")
	require.True(t, ok)
	assert.Equal(t, "42", id)
	assert.Equal(t, int32(3), hits.Load())

	_, ok = c.ResolveUserID(context.Background(), "someone")
	assert.True(t, ok)
	assert.Equal(t, int32(3), hits.Load(), "second lookup is cached")
}

func TestTwitch_DoRequestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrMissingScope},
		{http.StatusForbidden, ErrMissingScope},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusBadRequest, ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()

			f, srv := newFakeHelix(t)
			f.mux.HandleFunc("/x", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, map[string]any{"message": "nope"})
			})

			c := newClient(srv, nil)
			code, err := c.doTwitchRequest(context.Background(), twitchRequest{Method: "GET", Path: "/x"}, nil)
			assert.Equal(t, tt.status, code)
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestTwitch_ValidateTokenAndIdentity(t *testing.T) {
	t.Parallel()

	f, srv := newFakeHelix(t)
	f.mux.HandleFunc("/oauth2/validate", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OAuth token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, TokenInfo{ClientID: "cid", Login: "mybot", UserID: "200", Scopes: []string{"moderator:read:chatters"}, ExpiresIn: 3600})
	})
	f.mux.HandleFunc("/users", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "100"}}})
	})
	f.mux.HandleFunc("/moderation/channels", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") == "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"data":       []map[string]any{{"broadcaster_id": "1"}},
				"pagination": map[string]any{"cursor": "next"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"broadcaster_id": "100"}}})
	})

	st := stream.NewStream("streamer")
	c := newClient(srv, st)
	ctx := context.Background()

	info, err := c.ValidateToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mybot", info.Login)
	assert.Equal(t, "200", st.BotID())
	assert.Equal(t, "mybot", st.BotLogin())

	require.NoError(t, c.ResolveBroadcaster(ctx))
	assert.Equal(t, "100", st.BroadcasterID())

	isMod, err := c.IsModerator(ctx)
	require.NoError(t, err)
	assert.True(t, isMod)
}

func TestTwitch_ValidateTokenRejected(t *testing.T) {
	t.Parallel()

	f, srv := newFakeHelix(t)
	f.mux.HandleFunc("/oauth2/validate", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := newClient(srv, stream.NewStream("c")).ValidateToken(context.Background())
	require.ErrorIs(t, err, ErrMissingScope)
}

func TestPool(t *testing.T) {
	t.Parallel()

	p := NewPool(2, 4)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(4), ran.Load())

	p.Stop()
	p.Stop()
	assert.Error(t, p.Submit(func() {}))
}

func TestPool_QueueFull(t *testing.T) {
	t.Parallel()

	p := NewPool(1, 1)
	block := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, p.Submit(func() {
		close(started)
		<-block
	}))
	<-started
	require.NoError(t, p.Submit(func() {}))
	assert.EqualError(t, p.Submit(func() {}), "worker pool queue is full")

	close(block)
	p.Stop()
}
