package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrPeriodBusy indicates another operation holds the period lock.
var ErrPeriodBusy = errors.New("prorata: another operation is running on this period")

// PeriodLockKey builds redis keys for pro-rata critical sections.
func PeriodLockKey(periodID int64) string {
	return fmt.Sprintf("prorata:period:%d:lock", periodID)
}

// releaseScript deletes the lock only when still owned by the caller.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// PeriodLocker serialises mutating operations per period. Concurrent runs on
// distinct periods proceed in parallel; a second run on the same period is
// rejected rather than queued, since every operation is operator-triggered.
type PeriodLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPeriodLocker constructs a locker with the given lease TTL.
func NewPeriodLocker(client *redis.Client, ttl time.Duration) *PeriodLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &PeriodLocker{client: client, ttl: ttl}
}

// WithLock runs fn while holding the period lock.
func (l *PeriodLocker) WithLock(ctx context.Context, periodID int64, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}
	key := PeriodLockKey(periodID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("prorata: acquire period lock: %w", err)
	}
	if !ok {
		return ErrPeriodBusy
	}
	defer func() {
		_, _ = releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Result()
	}()
	return fn(ctx)
}
