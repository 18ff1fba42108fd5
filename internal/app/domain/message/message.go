package message

import "strings"

// Level is the ordinal permission of a chatter. Higher levels dominate lower ones.
type Level int

const (
	LevelEveryone Level = iota
	LevelVIP
	LevelMod
	LevelBroadcaster
)

var levelNames = map[string]Level{
	"everyone":    LevelEveryone,
	"vip":         LevelVIP,
	"mod":         LevelMod,
	"broadcaster": LevelBroadcaster,
}

// ParseLevel maps a configured permission name to its level.
// Unknown names report false and fall back to LevelEveryone.
func ParseLevel(name string) (Level, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return LevelEveryone, true
	}

	l, ok := levelNames[name]
	return l, ok
}

func (l Level) String() string {
	switch l {
	case LevelVIP:
		return "vip"
	case LevelMod:
		return "mod"
	case LevelBroadcaster:
		return "broadcaster"
	default:
		return "everyone"
	}
}

type Permissions struct {
	IsMod         bool
	IsBroadcaster bool
	IsVip         bool
}

func (p Permissions) Level() Level {
	switch {
	case p.IsBroadcaster:
		return LevelBroadcaster
	case p.IsMod:
		return LevelMod
	case p.IsVip:
		return LevelVIP
	default:
		return LevelEveryone
	}
}

// IsStaff reports whether the chatter is a moderator or the broadcaster.
func (p Permissions) IsStaff() bool {
	return p.IsMod || p.IsBroadcaster
}

func (p Permissions) Allows(required Level) bool {
	return p.Level() >= required
}

// ChatMessage is one parsed chat line. It lives for the duration of a single dispatch.
type ChatMessage struct {
	ID          string
	Sender      string
	Body        string
	Tags        map[string]string
	IsCheer     bool
	Bits        int
	Permissions Permissions
}

// SenderLogin is the lowercase sender name used as a key for per-user state.
func (m *ChatMessage) SenderLogin() string {
	return strings.ToLower(m.Sender)
}
