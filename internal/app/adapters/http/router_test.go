package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambot/internal/app/adapters/activity"
	"streambot/internal/app/adapters/http/handlers"
	"streambot/internal/app/infrastructure/config"
	"streambot/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(token string) (*Router, *activity.Feed) {
	feed := activity.New(10)
	h := handlers.New(logger.Nop(), feed, func() handlers.Status {
		return handlers.Status{Channel: "streamer", Chat: "connected", StreamLive: true}
	})
	return NewRouter(logger.Nop(), config.App{AuthToken: token}, h), feed
}

func serve(r *Router, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter("")
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string          `json:"status"`
		Bot    handlers.Status `json:"bot"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, handlers.Status{Channel: "streamer", Chat: "connected", StreamLive: true}, body.Bot)

	assert.Equal(t, http.StatusNotFound, serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code,
		"protected routes are not mounted without a token")
}

func TestProtectedRoutes(t *testing.T) {
	t.Parallel()

	r, feed := newTestRouter("s3cret")
	feed.Add("follow", "alice", "")
	feed.Add("raid", "bob", "10 viewers")

	tests := []struct {
		name string
		path string
		auth func(req *http.Request)
		want int
	}{
		{"metrics without auth", "/metrics", func(*http.Request) {}, http.StatusUnauthorized},
		{"metrics with basic auth", "/metrics", func(req *http.Request) { req.SetBasicAuth("admin", "s3cret") }, http.StatusOK},
		{"pprof with wrong password", "/debug/pprof/", func(req *http.Request) { req.SetBasicAuth("admin", "nope") }, http.StatusUnauthorized},
		{"activity without bearer", "/activity", func(*http.Request) {}, http.StatusUnauthorized},
		{"activity with wrong bearer", "/activity", func(req *http.Request) { req.Header.Set("Authorization", "Bearer x") }, http.StatusUnauthorized},
		{"activity with bearer", "/activity?limit=1", func(req *http.Request) { req.Header.Set("Authorization", "Bearer s3cret") }, http.StatusOK},
		{"activity bad limit", "/activity?limit=-2", func(req *http.Request) { req.Header.Set("Authorization", "Bearer s3cret") }, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.auth(req)
			assert.Equal(t, tt.want, serve(r, req).Code)
		})
	}
}

func TestActivityListing(t *testing.T) {
	t.Parallel()

	r, feed := newTestRouter("s3cret")
	feed.Add("follow", "alice", "")
	feed.Add("raid", "bob", "10 viewers")

	req := httptest.NewRequest(http.MethodGet, "/activity?limit=1", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entries []activity.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "raid", body.Entries[0].Kind)
	assert.Equal(t, "bob", body.Entries[0].User)
}
