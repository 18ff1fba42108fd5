package template_test

import (
	"context"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambot/internal/app/domain/counters"
	"streambot/internal/app/domain/template"
	"streambot/pkg/logger"
)

type fakeUptime struct {
	secs    int
	channel string
}

func (f *fakeUptime) UptimeSeconds(_ context.Context, channel string) int {
	f.channel = channel
	return f.secs
}

type fakeChatters []string

func (f fakeChatters) Chatters(context.Context) []string {
	return f
}

func newEngine(t *testing.T, opts ...template.Option) (*template.Engine, *counters.Store) {
	t.Helper()

	store := counters.New(nil, nil, nil)
	return template.NewEngine(logger.Nop(), store, &fakeUptime{}, fakeChatters{}, opts...), store
}

func resolve(e *template.Engine, tmpl string) template.Result {
	return e.Resolve(context.Background(), template.Request{
		Template: tmpl,
		User:     "alice",
		Channel:  "#streamer",
		Message:  "!cmd",
		Command:  template.Command{Type: template.KindStatic},
	})
}

func TestEngine_StaticPlaceholders(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)

	tests := []struct {
		name    string
		tmpl    string
		message string
		want    string
	}{
		{"user and channel", "Oi {user}, bem-vindo ao {channel}!", "!oi", "Oi alice, bem-vindo ao streamer!"},
		{"touser with target", "{user} abraçou {touser}", "!hug @Bob", "alice abraçou @Bob"},
		{"touser without at", "{user} abraçou {touser}", "!hug bob extra words", "alice abraçou @bob"},
		{"touser fallback", "{user} abraçou {touser}", "!hug", "alice abraçou @alice"},
		{"touser is not reinterpreted", "-> {touser}", "!hug {x}$count{y+1}", "-> @{x}$count{y+1}"},
		{"escaped braces", "{{literal}} {user}", "!x", "{literal} alice"},
		{"no placeholders", "plain text", "!x", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := e.Resolve(context.Background(), template.Request{
				Template: tt.tmpl,
				User:     "alice",
				Channel:  "#streamer",
				Message:  tt.message,
			})
			require.NoError(t, res.Err)
			assert.Equal(t, tt.want, res.Output)
			assert.False(t, res.CountersMutated)
		})
	}
}

func TestEngine_UserIsIdempotent(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	assert.Equal(t, resolve(e, "{user}").Output, resolve(e, "{user}").Output)
}

func TestEngine_CountMutatesEveryCall(t *testing.T) {
	t.Parallel()

	e, store := newEngine(t)

	first := resolve(e, "mortes: $count{deaths+1}")
	second := resolve(e, "mortes: $count{deaths+1}")

	assert.Equal(t, "mortes: 1", first.Output)
	assert.Equal(t, "mortes: 2", second.Output)
	assert.True(t, first.CountersMutated)
	assert.True(t, second.CountersMutated)
	assert.Equal(t, 2, store.Get("deaths"))
}

func TestEngine_CountForms(t *testing.T) {
	t.Parallel()

	e, store := newEngine(t)
	store.Set("wins", 10)

	res := resolve(e, "$count{wins} $count{ WINS - 3 } $count{wins}")
	assert.Equal(t, "10 7 7", res.Output, "left to right, each tag once")
	assert.True(t, res.CountersMutated)

	res = resolve(e, "$count{wins}")
	assert.Equal(t, "7", res.Output)
	assert.False(t, res.CountersMutated, "a bare read is not a mutation")

	res = resolve(e, "$count{falls-5}")
	assert.Equal(t, "-5", res.Output, "counters go below zero")
}

func TestEngine_RandSwapsBounds(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)

	for range 1000 {
		res := resolve(e, "$rand{5,1}")
		require.NoError(t, res.Err)

		n, err := strconv.Atoi(res.Output)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 5)
	}

	wide := []string{
		"$rand{0,9223372036854775807}",
		"$rand{-9223372036854775808,9223372036854775807}",
		"$rand{9223372036854775807,-9223372036854775808}",
		"$rand{-9223372036854775808,0}",
	}
	for _, tmpl := range wide {
		var res template.Result
		require.NotPanics(t, func() { res = resolve(e, tmpl) }, tmpl)
		require.NoError(t, res.Err, tmpl)

		_, err := strconv.ParseInt(res.Output, 10, 64)
		assert.NoError(t, err, tmpl)
	}

	res := resolve(e, "$rand{9223372036854775807,9223372036854775807}")
	assert.Equal(t, "9223372036854775807", res.Output)
}

func TestEngine_RandMalformed(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)

	tests := []struct {
		tmpl string
		want string
	}{
		{"rolou $rand{a,b}!", "rolou 0!"},
		{"rolou $rand{7}!", "rolou 0!"},
		{"rolou $rand{}!", "rolou 0!"},
		{"$rand{3, 3}", "3"},
	}

	for _, tt := range tests {
		res := resolve(e, tt.tmpl)
		assert.NoError(t, res.Err, tt.tmpl)
		assert.Equal(t, tt.want, res.Output, tt.tmpl)
	}
}

func TestEngine_DiceScenario(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	numRe := regexp.MustCompile(`rolou (\d+)!`)

	cmd := template.Command{
		Type: template.KindRandomRange,
		Min:  1,
		Max:  20,
		Reactions: map[string][]string{
			"tiny": {"ops"},
			"huge": {"CRITICO!"},
		},
	}

	for range 1000 {
		res := e.Resolve(context.Background(), template.Request{
			Template: "{user} rolou {value}! {reaction}",
			User:     "alice",
			Channel:  "#streamer",
			Message:  "!dado",
			Command:  cmd,
		})
		require.NoError(t, res.Err)

		m := numRe.FindStringSubmatch(res.Output)
		require.NotNil(t, m, res.Output)
		n, _ := strconv.Atoi(m[1])
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 20)
		assert.NotContains(t, res.Output, "CRITICO!", "huge starts at 22")
		if n < 5 {
			assert.Contains(t, res.Output, "ops")
		}
	}
}

func TestEngine_TypeVars(t *testing.T) {
	t.Parallel()

	clock := func() time.Time { return time.Date(2024, 5, 1, 13, 14, 15, 0, time.Local) }
	e, _ := newEngine(t, template.WithClock(clock), template.WithRand(func(uint64) uint64 { return 0 }))

	tests := []struct {
		name string
		tmpl string
		cmd  template.Command
		want string
	}{
		{"time", "agora: {time} ({value})", template.Command{Type: template.KindDynamicTime}, "agora: 13:14:15 (13:14:15)"},
		{"list", "{joke}", template.Command{Type: template.KindRandomList, Options: []string{"piada"}}, "piada"},
		{"empty list", "[{value}]", template.Command{Type: template.KindRandomList}, "[]"},
		{"range low bound", "{value}/{size}", template.Command{Type: template.KindRandomRange, Min: 1, Max: 6}, "1/1"},
		{"explicit zero range", "{value}", template.Command{Type: template.KindRandomRange}, "0"},
		{"negative range", "{value}", template.Command{Type: template.KindRandomRange, Min: -3, Max: -1}, "-3"},
		{"range without reactions", "[{reaction}]", template.Command{Type: template.KindRandomRange, Min: 30, Max: 40}, "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := e.Resolve(context.Background(), template.Request{Template: tt.tmpl, User: "alice", Command: tt.cmd})
			require.NoError(t, res.Err)
			assert.Equal(t, tt.want, res.Output)
		})
	}
}

func TestEngine_UnknownPlaceholder(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)

	res := resolve(e, "Oi {user}, {joke}")
	require.ErrorIs(t, res.Err, template.ErrUnknownPlaceholder)
	assert.Equal(t, "❌ Erro no comando! Variável 'joke' não reconhecida ou preenchida.", res.Output)

	res = resolve(e, "aberto { sem fim")
	require.ErrorIs(t, res.Err, template.ErrMalformedTemplate)
	assert.Contains(t, res.Output, "❌ Erro grave no comando!")
}

func TestEngine_UptimeAndRandUser(t *testing.T) {
	t.Parallel()

	up := &fakeUptime{secs: 3725}
	e := template.NewEngine(logger.Nop(), counters.New(nil, nil, nil), up, fakeChatters{"carol"})

	res := resolve(e, "no ar há {uptime}, oi {rand_user}")
	require.NoError(t, res.Err)
	assert.Equal(t, "no ar há 1h 2m 5s, oi @carol", res.Output)
	assert.Equal(t, "streamer", up.channel)

	empty := template.NewEngine(logger.Nop(), nil, &fakeUptime{}, fakeChatters{})
	res = resolve(empty, "{uptime} {rand_user}")
	assert.Equal(t, "offline @visitante", res.Output)
}

func TestFormatUptime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		secs int
		want string
	}{
		{-1, "offline"},
		{0, "offline"},
		{59, "59s"},
		{60, "1m 0s"},
		{3599, "59m 59s"},
		{3600, "1h 0m 0s"},
		{90061, "25h 1m 1s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, template.FormatUptime(tt.secs), tt.secs)
	}
}

func TestReactionBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value int
		want  string
	}{
		{1, "tiny"}, {4, "tiny"},
		{5, "small"}, {6, "small"},
		{7, "medium_small"}, {9, "medium_small"},
		{10, "medium_large"}, {11, "medium_large"},
		{12, "medium"}, {13, "medium"},
		{14, "large_medium"}, {17, "large_medium"},
		{18, "large"}, {21, "large"},
		{22, "huge"}, {100, "huge"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, template.ReactionBucket(tt.value), tt.value)
	}
}

func TestReferencedCounters(t *testing.T) {
	t.Parallel()

	got := template.ReferencedCounters("Oi $count{greets+1} $count{ Hugs } $count{greets} $count{x - 2}")
	assert.Equal(t, []string{"greets", "hugs", "x"}, got)
	assert.Empty(t, template.ReferencedCounters("sem contadores"))
}

func TestFill(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a 1 {c}", template.Fill("{a} {b} {c}", map[string]string{"a": "a", "b": "1"}))
	assert.Equal(t, "{ x }}", template.Fill("{ {v} }}", map[string]string{"v": "x"}))
}
