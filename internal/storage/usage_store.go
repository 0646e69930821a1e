package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"learning_assist/internal/models"
)

// quotaCounterTTL keeps stale per-day counters from accumulating. Usage
// record hashes carry no TTL; their retention is an external concern.
const quotaCounterTTL = 48 * time.Hour

// RedisUsageStore persists write-once usage records and maintains a
// per-user-per-day request counter used for quota checks.
type RedisUsageStore struct {
	client *redis.Client
}

// NewRedisUsageStore creates a usage store on top of an existing client.
func NewRedisUsageStore(client *redis.Client) *RedisUsageStore {
	return &RedisUsageStore{client: client}
}

// Record stores the usage record and bumps the day counter atomically.
func (s *RedisUsageStore) Record(ctx context.Context, rec *models.UsageRecord) error {
	recordKey := "usage:" + rec.UsageID
	counterKey := quotaKey(rec.UserID, rec.Date)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, recordKey,
		"usage_id", rec.UsageID,
		"user_id", rec.UserID,
		"endpoint", rec.Endpoint,
		"tokens_used", rec.TokensUsed,
		"timestamp", rec.Timestamp,
		"date", rec.Date,
	)
	pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, quotaCounterTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// CountForDay returns how many usage records the user accumulated on the
// given UTC calendar day (YYYY-MM-DD). A missing counter means zero.
func (s *RedisUsageStore) CountForDay(ctx context.Context, userID, date string) (int, error) {
	n, err := s.client.Get(ctx, quotaKey(userID, date)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota counter: %w", err)
	}
	return n, nil
}

func quotaKey(userID, date string) string {
	return fmt.Sprintf("quota:%s:%s", userID, date)
}
