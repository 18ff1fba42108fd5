package events

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambot/internal/app/infrastructure/config"
	"streambot/pkg/logger"
)

type chatSpy struct{ sent []string }

func (c *chatSpy) Send(text string) { c.sent = append(c.sent, text) }

type speechSpy struct{ said []string }

func (s *speechSpy) Speak(text string) { s.said = append(s.said, text) }

type soundSpy struct{ played []string }

func (s *soundSpy) Play(path string) { s.played = append(s.played, path) }

type entry struct{ kind, user, details string }

type activitySpy struct{ entries []entry }

func (a *activitySpy) Add(kind, user, details string) {
	a.entries = append(a.entries, entry{kind, user, details})
}

type fixture struct {
	notifier *Notifier
	chat     *chatSpy
	speech   *speechSpy
	sound    *soundSpy
	activity *activitySpy
}

func newFixture(t *testing.T, doc string) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	manager, err := config.New(path, config.WithEnv(func(string) (string, bool) { return "", false }))
	require.NoError(t, err)

	f := &fixture{chat: &chatSpy{}, speech: &speechSpy{}, sound: &soundSpy{}, activity: &activitySpy{}}
	f.notifier = New(logger.Nop(), manager, f.chat, WithSpeech(f.speech), WithSound(f.sound), WithActivity(f.activity))
	return f
}

const doc = `{
	"app": {"oauth": "x", "username": "bot", "channel": "streamer"},
	"events": {
		"follow": {"enabled": true, "message": "valeu {user}"},
		"sub": {"enabled": true, "message": "sub T{tier} de {user}"},
		"gift_sub": {"enabled": false, "message": "gift"},
		"raid": {"enabled": true, "message": "raid de {raider} com {viewers}"},
		"reward_actions": {
			"Hidratar": {"sound": "sounds/agua.wav", "message": "{user} pediu: {input}"},
			"Falar": {"sound": "sounds/falar.wav", "message": "🔊 {user} mandou um recado"}
		}
	},
	"tts": {"enabled": true, "reward_name": "Falar"}
}`

func TestNotifier_Events(t *testing.T) {
	t.Parallel()

	f := newFixture(t, doc)
	ctx := context.Background()

	f.notifier.OnFollow(ctx, "alice")
	f.notifier.OnSubscribe(ctx, "bob", "2000", false)
	f.notifier.OnSubscribe(ctx, "carol", "1000", true)
	f.notifier.OnRaid(ctx, "dave", 42)

	assert.Equal(t, []string{"valeu alice", "sub T2 de bob", "raid de dave com 42"}, f.chat.sent)
	assert.Equal(t, []entry{
		{"follow", "alice", ""},
		{"sub", "bob", "T2"},
		{"sub", "carol", "T1 (Gift)"},
		{"raid", "dave", "42 viewers"},
	}, f.activity.entries)
}

func TestNotifier_Disabled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `{"app": {"oauth": "x", "username": "bot", "channel": "streamer"}, "events": {"enabled": false}}`)
	f.notifier.OnFollow(context.Background(), "alice")

	assert.Empty(t, f.chat.sent)
	assert.Len(t, f.activity.entries, 1, "activity is recorded even when announcements are off")
}

func TestNotifier_Redemptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		title      string
		input      string
		wantSpeech []string
		wantChat   []string
		wantSound  []string
		wantKind   string
	}{
		{name: "speech reward", title: "falar", input: " olá chat ", wantSpeech: []string{"olá chat"}, wantKind: "tts.redemption"},
		{
			name: "speech reward runs its action too", title: "Falar", input: "oi chat",
			wantSpeech: []string{"oi chat"}, wantChat: []string{"🔊 alice mandou um recado"}, wantSound: []string{"sounds/falar.wav"},
			wantKind: "tts.redemption",
		},
		{
			name: "speech reward without input", title: "Falar", input: "  ",
			wantChat: []string{"🔊 alice mandou um recado"}, wantSound: []string{"sounds/falar.wav"},
			wantKind: "redemption",
		},
		{name: "configured action", title: "Hidratar", input: "água", wantChat: []string{"alice pediu: água"}, wantSound: []string{"sounds/agua.wav"}, wantKind: "redemption"},
		{name: "unknown reward", title: "Outro", wantKind: "redemption"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, doc)
			f.notifier.OnRedemption(context.Background(), "alice", tt.title, tt.input)

			assert.Equal(t, tt.wantSpeech, f.speech.said)
			assert.Equal(t, tt.wantChat, f.chat.sent)
			assert.Equal(t, tt.wantSound, f.sound.played)
			require.Len(t, f.activity.entries, 1)
			assert.Equal(t, tt.wantKind, f.activity.entries[0].kind)
		})
	}
}
