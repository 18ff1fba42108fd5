package event_sub

import "encoding/json"

type EventSubMessage struct {
	Metadata struct {
		MessageID   string `json:"message_id"`
		MessageType string `json:"message_type"`
	} `json:"metadata"`
	Payload json.RawMessage `json:"payload"`
}

type SessionPayload struct {
	Session struct {
		ID           string `json:"id"`
		Status       string `json:"status"`
		ReconnectURL string `json:"reconnect_url"`
	} `json:"session"`
}

type EventSubEnvelope struct {
	Subscription struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Version string `json:"version"`
		Status  string `json:"status"`
	} `json:"subscription"`
	Event json.RawMessage `json:"event"`
}

type FollowEvent struct {
	UserLogin string `json:"user_login"`
	UserName  string `json:"user_name"`
}

type SubscribeEvent struct {
	UserLogin string `json:"user_login"`
	UserName  string `json:"user_name"`
	Tier      string `json:"tier"`
	IsGift    bool   `json:"is_gift"`
}

type RaidEvent struct {
	FromBroadcasterUserLogin string `json:"from_broadcaster_user_login"`
	FromBroadcasterUserName  string `json:"from_broadcaster_user_name"`
	Viewers                  int    `json:"viewers"`
}

type RedemptionEvent struct {
	UserLogin string `json:"user_login"`
	UserName  string `json:"user_name"`
	UserInput string `json:"user_input"`
	Reward    struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Cost  int    `json:"cost"`
	} `json:"reward"`
}
