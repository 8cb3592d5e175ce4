package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sirupsen/logrus"
)

// ResponseCache persists completion responses keyed by prompt hash.
type ResponseCache interface {
	GetResponse(ctx context.Context, key string, maxAge time.Duration) (string, bool, error)
	PutResponse(ctx context.Context, key, content string) error
}

// responseCache holds replies that parsed cleanly, scoped to one provider and model.
type responseCache struct {
	store ResponseCache
	ttl   time.Duration
	scope string
}

// CacheKey hashes a provider scope with a system and user prompt pair.
func CacheKey(scope, system, user string) string {
	sum := sha256.Sum256([]byte(scope + "\x00" + system + "\x00" + user))
	return hex.EncodeToString(sum[:])
}

func (c *responseCache) get(ctx context.Context, key string) (string, bool) {
	cached, ok, err := c.store.GetResponse(ctx, key, c.ttl)
	if err != nil {
		logrus.WithError(err).Warn("response cache lookup failed")
		return "", false
	}
	return cached, ok
}

func (c *responseCache) put(ctx context.Context, key, content string) {
	if err := c.store.PutResponse(ctx, key, content); err != nil {
		logrus.WithError(err).Warn("response cache write failed")
	}
}
