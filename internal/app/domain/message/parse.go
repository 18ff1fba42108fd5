package message

import "strings"

const privmsg = "PRIVMSG"

// ParseLine decodes one raw IRC line without its terminator.
// It returns false for anything that is not a deliverable chat message.
func ParseLine(line string) (*ChatMessage, bool) {
	if !strings.Contains(line, privmsg) {
		return nil, false
	}

	rest := line
	tags := make(map[string]string)
	if strings.HasPrefix(rest, "@") {
		spaceIdx := strings.IndexByte(rest, ' ')
		if spaceIdx == -1 {
			return nil, false
		}
		parseTags(rest[1:spaceIdx], tags)
		rest = strings.TrimLeft(rest[spaceIdx+1:], " ")
	}

	sender := parseSender(rest)
	if sender == "" {
		return nil, false
	}

	body, ok := parseBody(rest)
	if !ok {
		return nil, false
	}

	return &ChatMessage{
		ID:     tags["id"],
		Sender: sender,
		Body:   body,
		Tags:   tags,
	}, true
}

func parseTags(raw string, dst map[string]string) {
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i < len(raw) && raw[i] != ';' {
			continue
		}

		tag := raw[start:i]
		start = i + 1
		if tag == "" {
			continue
		}

		eq := strings.IndexByte(tag, '=')
		if eq == -1 {
			continue
		}
		dst[tag[:eq]] = tag[eq+1:]
	}
}

// parseSender extracts "name" from a ":name!name@name.tmi.twitch.tv" prefix.
func parseSender(rest string) string {
	if !strings.HasPrefix(rest, ":") {
		return ""
	}

	end := strings.IndexByte(rest, '!')
	space := strings.IndexByte(rest, ' ')
	if end <= 1 || (space != -1 && end > space) {
		return ""
	}
	return rest[1:end]
}

// parseBody returns the trailing parameter after "PRIVMSG #channel :".
func parseBody(rest string) (string, bool) {
	idx := strings.Index(rest, " "+privmsg+" ")
	if idx == -1 {
		return "", false
	}

	params := rest[idx+len(privmsg)+2:]
	if !strings.HasPrefix(params, "#") {
		return "", false
	}

	colon := strings.Index(params, " :")
	if colon == -1 {
		return "", false
	}

	body := strings.TrimSpace(params[colon+2:])
	if body == "" {
		return "", false
	}
	return body, true
}
