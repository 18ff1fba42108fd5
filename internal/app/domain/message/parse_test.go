package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambot/internal/app/domain/message"
)

func TestParseLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		line       string
		wantOK     bool
		wantSender string
		wantBody   string
		wantTags   map[string]string
	}{
		{
			name:       "tagged privmsg",
			line:       "@badge-info=;badges=moderator/1;mod=1;id=abc-123 :alice!alice@alice.tmi.twitch.tv PRIVMSG #streamer :hello there",
			wantOK:     true,
			wantSender: "alice",
			wantBody:   "hello there",
			wantTags:   map[string]string{"badge-info": "", "badges": "moderator/1", "mod": "1", "id": "abc-123"},
		},
		{
			name:       "untagged privmsg",
			line:       ":bob!bob@bob.tmi.twitch.tv PRIVMSG #streamer :!pontos",
			wantOK:     true,
			wantSender: "bob",
			wantBody:   "!pontos",
			wantTags:   map[string]string{},
		},
		{
			name:       "body keeps colons",
			line:       ":bob!bob@bob.tmi.twitch.tv PRIVMSG #streamer :see: https://x.tv",
			wantOK:     true,
			wantSender: "bob",
			wantBody:   "see: https://x.tv",
			wantTags:   map[string]string{},
		},
		{
			name:       "tags without equals are ignored",
			line:       "@flag;mod=0 :bob!bob@bob.tmi.twitch.tv PRIVMSG #streamer :hi",
			wantOK:     true,
			wantSender: "bob",
			wantBody:   "hi",
			wantTags:   map[string]string{"mod": "0"},
		},
		{name: "ping", line: "PING :tmi.twitch.tv"},
		{name: "join", line: ":bob!bob@bob.tmi.twitch.tv JOIN #streamer"},
		{name: "missing sender", line: "@mod=1 PRIVMSG #streamer :hi"},
		{name: "missing body", line: ":bob!bob@bob.tmi.twitch.tv PRIVMSG #streamer"},
		{name: "blank body", line: ":bob!bob@bob.tmi.twitch.tv PRIVMSG #streamer :   "},
		{name: "tag block only", line: "@mod=1;PRIVMSG"},
		{name: "empty", line: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, ok := message.ParseLine(tt.line)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Nil(t, msg)
				return
			}

			assert.Equal(t, tt.wantSender, msg.Sender)
			assert.Equal(t, tt.wantBody, msg.Body)
			assert.Equal(t, tt.wantTags, msg.Tags)
		})
	}
}

func TestParseLine_NeverPanics(t *testing.T) {
	t.Parallel()

	lines := []string{
		"PRIVMSG",
		"@ PRIVMSG",
		"@;;;= :! PRIVMSG # :",
		":! PRIVMSG #a :b",
		":a!PRIVMSG",
		"@a=b :x!x PRIVMSG #c",
		":x!x PRIVMSG c :no hash",
	}

	for _, line := range lines {
		assert.NotPanics(t, func() {
			msg, ok := message.ParseLine(line)
			if ok {
				assert.NotEmpty(t, msg.Sender)
				assert.NotEmpty(t, msg.Body)
			}
		}, line)
	}
}

func TestStripInvisible(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "spamword", message.StripInvisible("spa\u200bm\u2060word"))
	assert.Equal(t, "plain text", message.StripInvisible("plain text"))
}
