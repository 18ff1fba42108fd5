package stream

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Stream holds the identity of the joined channel and the bot, plus the last observed live state.
// Identity is filled in once the token and the channel login are resolved at startup.
type Stream struct {
	mu sync.RWMutex

	channelName   string
	broadcasterID string
	botID         string
	botLogin      string
	startedAt     time.Time

	isLive atomic.Bool
}

func NewStream(channelName string) *Stream {
	s := &Stream{}
	s.SetChannelName(channelName)
	return s
}

func (s *Stream) IsLive() bool {
	return s.isLive.Load()
}

// SetLive records the live state. startedAt is ignored when live is false.
func (s *Stream) SetLive(live bool, startedAt time.Time) {
	s.mu.Lock()
	if live {
		s.startedAt = startedAt
	} else {
		s.startedAt = time.Time{}
	}
	s.mu.Unlock()

	s.isLive.Store(live)
}

// UptimeSeconds is the live duration at now, or 0 when offline.
func (s *Stream) UptimeSeconds(now time.Time) int {
	if !s.IsLive() {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.startedAt.IsZero() || now.Before(s.startedAt) {
		return 0
	}
	return int(now.Sub(s.startedAt).Seconds())
}

// ChannelName is the lowercase channel login without the leading '#'.
func (s *Stream) ChannelName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channelName
}

func (s *Stream) SetChannelName(name string) {
	s.mu.Lock()
	s.channelName = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
	s.mu.Unlock()
}

func (s *Stream) BroadcasterID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.broadcasterID
}

func (s *Stream) SetBroadcasterID(id string) {
	s.mu.Lock()
	s.broadcasterID = id
	s.mu.Unlock()
}

// BotID doubles as the moderator id for moderation calls.
func (s *Stream) BotID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.botID
}

func (s *Stream) BotLogin() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.botLogin
}

func (s *Stream) SetBot(id, login string) {
	s.mu.Lock()
	s.botID = id
	s.botLogin = strings.ToLower(login)
	s.mu.Unlock()
}

// IsBot reports whether login is the bot's own identity.
func (s *Stream) IsBot(login string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.botLogin != "" && strings.EqualFold(login, s.botLogin)
}
