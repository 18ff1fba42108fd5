package ports

import "context"

// ModerationAPIPort enforces moderation on the platform. Every method reports success as a bool
// and never returns an error: failures are logged by the adapter.
type ModerationAPIPort interface {
	DeleteMessage(ctx context.Context, messageID string) bool
	TimeoutUser(ctx context.Context, user string, seconds int, reason string) bool
	BanUser(ctx context.Context, user, reason string) bool
	UnbanUser(ctx context.Context, user string) bool
}

// ExecutorPort runs fire-and-forget tasks off the caller's goroutine.
type ExecutorPort interface {
	Submit(task func()) error
}
