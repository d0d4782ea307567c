package verifications

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/uptcauth/internal/common"
)

const (
	redisKeyPrefix = "verification:"
	maxTxRetries   = 4
)

var errRedisContention = errors.New("verification entry under contention")

type redisEntry struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisLedger keeps one key per email with a TTL matching the code expiry.
// Consume uses WATCH/MULTI so a code is deleted by exactly one caller.
type RedisLedger struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisLedger(client redis.UniversalClient) *RedisLedger {
	return &RedisLedger{client: client, now: time.Now}
}

func (l *RedisLedger) key(email string) string {
	return redisKeyPrefix + email
}

func (l *RedisLedger) Upsert(ctx context.Context, email, code string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		return fmt.Errorf("verification expiry %s is in the past", expiresAt)
	}

	b, err := json.Marshal(redisEntry{Code: code, ExpiresAt: expiresAt})
	if err != nil {
		return err
	}

	if err := l.client.Set(ctx, l.key(email), b, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (l *RedisLedger) Consume(ctx context.Context, email, code string) error {
	key := l.key(email)

	for i := 0; i < maxTxRetries; i++ {
		err := l.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return common.ErrCodeInvalidOrExpired
				}
				return err
			}

			var entry redisEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				return fmt.Errorf("decoding verification entry: %w", err)
			}

			if l.now().After(entry.ExpiresAt) ||
				subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
				return common.ErrCodeInvalidOrExpired
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, common.ErrCodeInvalidOrExpired):
			return err
		default:
			return fmt.Errorf("redis error: %w", err)
		}
	}

	// the key kept changing under us; someone else owns the current code
	return fmt.Errorf("%w: %w", common.ErrCodeInvalidOrExpired, errRedisContention)
}

// DeleteExpired is a no-op: Redis evicts entries through their TTL.
func (l *RedisLedger) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}
