package message

import (
	"strconv"
	"strings"
)

// ResolvePermissions derives the chatter's permissions and cheer data from the tags.
// Malformed tags leave the corresponding flags false.
func ResolvePermissions(msg *ChatMessage, channelOwner string) {
	if msg == nil {
		return
	}

	badges := msg.Tags["badges"]

	var p Permissions
	if strings.EqualFold(msg.Sender, strings.TrimPrefix(channelOwner, "#")) || strings.Contains(badges, "broadcaster/1") {
		p.IsBroadcaster = true
		p.IsMod = true
	}
	if msg.Tags["mod"] == "1" {
		p.IsMod = true
	}
	if strings.Contains(badges, "vip/1") {
		p.IsVip = true
	}
	msg.Permissions = p

	msg.IsCheer, msg.Bits = false, 0
	if raw, ok := msg.Tags["bits"]; ok {
		if bits, err := strconv.Atoi(raw); err == nil && bits > 0 {
			msg.IsCheer = true
			msg.Bits = bits
		}
	}
}
