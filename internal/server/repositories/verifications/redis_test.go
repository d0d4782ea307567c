package verifications

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/uptcauth/internal/common"
)

func newRedisLedger(t *testing.T) (*RedisLedger, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewRedisLedger(client)
	l.now = func() time.Time { return now }
	return l, mr, &now
}

func TestRedisLedger_UpsertSetsTTL(t *testing.T) {
	l, mr, now := newRedisLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Upsert(ctx, "a@uptc.edu.co", "123456", now.Add(10*time.Minute)))

	assert.True(t, mr.Exists("verification:a@uptc.edu.co"))
	assert.Equal(t, 10*time.Minute, mr.TTL("verification:a@uptc.edu.co"))
}

func TestRedisLedger_UpsertRejectsPastExpiry(t *testing.T) {
	l, _, now := newRedisLedger(t)
	err := l.Upsert(context.Background(), "a@uptc.edu.co", "1", now.Add(-time.Second))
	require.Error(t, err)
}

func TestRedisLedger_ConsumeOnce(t *testing.T) {
	l, mr, now := newRedisLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Upsert(ctx, "a@uptc.edu.co", "123456", now.Add(10*time.Minute)))

	assert.ErrorIs(t, l.Consume(ctx, "a@uptc.edu.co", "654321"), common.ErrCodeInvalidOrExpired)
	assert.ErrorIs(t, l.Consume(ctx, "b@uptc.edu.co", "123456"), common.ErrCodeInvalidOrExpired)

	require.NoError(t, l.Consume(ctx, "a@uptc.edu.co", "123456"))
	assert.False(t, mr.Exists("verification:a@uptc.edu.co"))

	assert.ErrorIs(t, l.Consume(ctx, "a@uptc.edu.co", "123456"), common.ErrCodeInvalidOrExpired)
}

func TestRedisLedger_UpsertReplacesCode(t *testing.T) {
	l, _, now := newRedisLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Upsert(ctx, "a@uptc.edu.co", "111111", now.Add(10*time.Minute)))
	require.NoError(t, l.Upsert(ctx, "a@uptc.edu.co", "222222", now.Add(10*time.Minute)))

	assert.ErrorIs(t, l.Consume(ctx, "a@uptc.edu.co", "111111"), common.ErrCodeInvalidOrExpired)
	assert.NoError(t, l.Consume(ctx, "a@uptc.edu.co", "222222"))
}

func TestRedisLedger_ConsumeExpired(t *testing.T) {
	l, _, now := newRedisLedger(t)
	ctx := context.Background()
	exp := now.Add(10 * time.Minute)
	require.NoError(t, l.Upsert(ctx, "a@uptc.edu.co", "123456", exp))

	later := exp.Add(time.Second)
	l.now = func() time.Time { return later }

	assert.ErrorIs(t, l.Consume(ctx, "a@uptc.edu.co", "123456"), common.ErrCodeInvalidOrExpired)
}

func TestRedisLedger_ConsumeAtExactExpiry(t *testing.T) {
	l, _, now := newRedisLedger(t)
	ctx := context.Background()
	exp := now.Add(10 * time.Minute)
	require.NoError(t, l.Upsert(ctx, "a@uptc.edu.co", "123456", exp))

	l.now = func() time.Time { return exp }
	assert.NoError(t, l.Consume(ctx, "a@uptc.edu.co", "123456"))
}

func TestRedisLedger_ConcurrentConsumeSucceedsOnce(t *testing.T) {
	l, _, now := newRedisLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Upsert(ctx, "a@uptc.edu.co", "123456", now.Add(10*time.Minute)))

	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Consume(ctx, "a@uptc.edu.co", "123456")
			if err == nil {
				won.Add(1)
				return
			}
			assert.ErrorIs(t, err, common.ErrCodeInvalidOrExpired)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, won.Load())
}

func TestRedisLedger_DeleteExpiredIsNoop(t *testing.T) {
	l, _, _ := newRedisLedger(t)
	n, err := l.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
