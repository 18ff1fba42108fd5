package storage

import (
	"context"
	"time"

	"streambot/internal/app/ports"
)

const (
	chattersKey = "chatters"
	ChattersTTL = 60 * time.Second
)

// CachedChatters keeps the chatter list of the channel for ChattersTTL so {rand_user}
// does not hit the API on every command.
type CachedChatters struct {
	source ports.ChattersPort
	cache  *Cache[[]string]
}

func NewCachedChatters(source ports.ChattersPort, ttl time.Duration) *CachedChatters {
	return &CachedChatters{
		source: source,
		cache:  NewCache[[]string](1, ttl),
	}
}

func (c *CachedChatters) Chatters(ctx context.Context) []string {
	if list, ok := c.cache.Get(chattersKey); ok {
		return list
	}

	list := c.source.Chatters(ctx)
	// An empty list usually means a failed lookup; retry on the next call instead of pinning it.
	if len(list) > 0 {
		c.cache.Set(chattersKey, list)
	}
	return list
}
