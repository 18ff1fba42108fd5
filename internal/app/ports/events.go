package ports

import "context"

// EventHandlerPort receives push notifications from the platform.
type EventHandlerPort interface {
	OnFollow(ctx context.Context, user string)
	OnSubscribe(ctx context.Context, user, tier string, isGift bool)
	OnRaid(ctx context.Context, raider string, viewers int)
	OnRedemption(ctx context.Context, user, title, input string)
}
