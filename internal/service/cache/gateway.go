package cache

import (
	"context"
	"log"
	"time"
)

// Gateway wraps a Store for the chat flow: backend faults are logged and
// degrade to a miss or a skipped write, never to a request failure.
type Gateway struct {
	store Store
	ttl   time.Duration
}

// NewGateway returns a gateway over store. A nil store disables caching.
func NewGateway(store Store, ttl time.Duration) *Gateway {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gateway{store: store, ttl: ttl}
}

// Lookup returns the cached reply for key.
func (g *Gateway) Lookup(ctx context.Context, key string) (string, bool) {
	if g == nil || g.store == nil {
		return "", false
	}
	value, found, err := g.store.Get(ctx, key)
	if err != nil {
		log.Printf("[cache] lookup %s failed, treating as miss: %v", key, err)
		return "", false
	}
	return value, found
}

// Save stores reply under key for the gateway TTL.
func (g *Gateway) Save(ctx context.Context, key, reply string) {
	if g == nil || g.store == nil {
		return
	}
	if err := g.store.SetWithExpiry(ctx, key, reply, g.ttl); err != nil {
		log.Printf("[cache] store %s failed, skipped: %v", key, err)
	}
}

// Status reports the backend name and whether it answers a ping.
func (g *Gateway) Status(ctx context.Context) string {
	if g == nil || g.store == nil {
		return "disabled"
	}
	if err := g.store.Ping(ctx); err != nil {
		return g.store.Name() + ": unavailable"
	}
	return g.store.Name() + ": ok"
}
