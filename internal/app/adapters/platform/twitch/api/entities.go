package api

type userResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Login       string `json:"login"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

type streamResponse struct {
	Data []struct {
		ID          string `json:"id"`
		UserID      string `json:"user_id"`
		UserLogin   string `json:"user_login"`
		Type        string `json:"type"`
		Title       string `json:"title"`
		ViewerCount int    `json:"viewer_count"`
		StartedAt   string `json:"started_at"`
	} `json:"data"`
}

type chattersResponse struct {
	Data []struct {
		UserID    string `json:"user_id"`
		UserLogin string `json:"user_login"`
	} `json:"data"`
	Total int `json:"total"`
}

type banRequest struct {
	Data banData `json:"data"`
}

type banData struct {
	UserID   string `json:"user_id"`
	Duration int    `json:"duration,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type moderatedChannelsResponse struct {
	Data []struct {
		BroadcasterID    string `json:"broadcaster_id"`
		BroadcasterLogin string `json:"broadcaster_login"`
	} `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

// TokenInfo is the result of validating the bot's OAuth token.
type TokenInfo struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}
