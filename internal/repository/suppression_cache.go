package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
)

const suppressionKeyPrefix = "nurture:suppressed:"

// SuppressionCache is a fast-path check the delivery worker consults before
// claiming a row. It is an optimization only: the authoritative suppression
// state lives in Postgres and the claim statement re-checks it, so a cache
// miss or an unreachable Redis never causes a wrong send.
type SuppressionCache interface {
	MarkSuppressed(ctx context.Context, leadID string, reason domain.SuppressionReason) error
	IsSuppressed(ctx context.Context, leadID string) (bool, error)
}

type suppressionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSuppressionCache wraps the redis client; a nil client degrades to
// cache-miss on every lookup.
func NewSuppressionCache(client *redis.Client) SuppressionCache {
	return &suppressionCache{client: client, ttl: 30 * 24 * time.Hour}
}

func (c *suppressionCache) MarkSuppressed(ctx context.Context, leadID string, reason domain.SuppressionReason) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, suppressionKeyPrefix+leadID, string(reason), c.ttl).Err()
}

func (c *suppressionCache) IsSuppressed(ctx context.Context, leadID string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	_, err := c.client.Get(ctx, suppressionKeyPrefix+leadID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
