// Package cache 提供回复缓存网关：远端 Redis 或进程内 LRU。
package cache

import (
	"context"
	"strings"
	"time"
)

// DefaultTTL 是缓存条目的默认有效期。
const DefaultTTL = time.Hour

// Store is a TTL-keyed string cache.
type Store interface {
	// Get returns the cached value; found is false on a miss.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// SetWithExpiry stores value under key for ttl.
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Name identifies the backend in health output.
	Name() string
	Close() error
}

// Key derives the cache key for one request. The user input is lowercased,
// joined with the user id and personality by ':', and every character
// outside [A-Za-z0-9:_-] is replaced by '_'. Applying Key's sanitizer to an
// already sanitized key changes nothing.
func Key(userID, personality, input string) string {
	return Sanitize(userID + ":" + personality + ":" + strings.ToLower(input))
}

// Sanitize replaces every character outside [A-Za-z0-9:_-] with '_'.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if allowed(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ':' || r == '_' || r == '-':
		return true
	}
	return false
}
