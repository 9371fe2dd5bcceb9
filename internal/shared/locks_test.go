package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) *PeriodLocker {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPeriodLocker(client, time.Minute)
}

func TestWithLockRunsAndReleases(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	ran := false
	err := locker.WithLock(ctx, 7, func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)

	// Lock must be free again after the first run.
	err = locker.WithLock(ctx, 7, func(context.Context) error { return nil })
	require.NoError(t, err)
}

func TestWithLockRejectsConcurrentRun(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	err := locker.WithLock(ctx, 7, func(ctx context.Context) error {
		return locker.WithLock(ctx, 7, func(context.Context) error {
			t.Fatal("nested run must not execute")
			return nil
		})
	})
	require.ErrorIs(t, err, ErrPeriodBusy)
}

func TestWithLockIsPerPeriod(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	err := locker.WithLock(ctx, 7, func(ctx context.Context) error {
		return locker.WithLock(ctx, 8, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
}

func TestWithLockReleasesOnError(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := locker.WithLock(ctx, 9, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	err = locker.WithLock(ctx, 9, func(context.Context) error { return nil })
	require.NoError(t, err)
}
