package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStream_Identity(t *testing.T) {
	t.Parallel()

	s := NewStream(" #Streamer ")
	assert.Equal(t, "streamer", s.ChannelName())

	assert.False(t, s.IsBot("mybot"), "unknown bot identity matches nobody")
	s.SetBot("42", "MyBot")
	s.SetBroadcasterID("7")

	assert.Equal(t, "42", s.BotID())
	assert.Equal(t, "mybot", s.BotLogin())
	assert.Equal(t, "7", s.BroadcasterID())
	assert.True(t, s.IsBot("MYBOT"))
	assert.False(t, s.IsBot("alice"))
}

func TestStream_Uptime(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		live bool
		now  time.Time
		want int
	}{
		{"offline", false, start.Add(time.Hour), 0},
		{"live", true, start.Add(time.Hour + 2*time.Minute + 5*time.Second), 3725},
		{"clock behind start", true, start.Add(-time.Second), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewStream("streamer")
			s.SetLive(tt.live, start)
			assert.Equal(t, tt.live, s.IsLive())
			assert.Equal(t, tt.want, s.UptimeSeconds(tt.now))
		})
	}
}

func BenchmarkStream_IsLive(b *testing.B) {
	s := NewStream("test")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.IsLive()
	}
}

func BenchmarkStream_IsBot(b *testing.B) {
	s := NewStream("test")
	s.SetBot("1", "bot")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.IsBot("somebody")
	}
}
