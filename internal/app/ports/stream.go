package ports

import "context"

type UptimePort interface {
	// UptimeSeconds returns 0 when the channel is offline or the lookup fails.
	UptimeSeconds(ctx context.Context, channel string) int
}

type ChattersPort interface {
	// Chatters returns an empty list on error or missing scope.
	Chatters(ctx context.Context) []string
}
