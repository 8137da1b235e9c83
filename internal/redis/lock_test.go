package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (BookingLocker, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisBookingLocker(rdb, 5*time.Second), rdb
}

func TestWithBookingLockRunsAndReleases(t *testing.T) {
	locker, rdb := newTestLocker(t)
	doctorID := uuid.New()
	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	ran := false
	err := locker.WithBookingLock(context.Background(), doctorID, date, func(ctx context.Context) error {
		ran = true
		n, err := rdb.Exists(ctx, "lock:booking:"+doctorID.String()+":2026-09-15").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "lock key must exist inside the critical section")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	n, err := rdb.Exists(context.Background(), "lock:booking:"+doctorID.String()+":2026-09-15").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "lock must be released afterwards")
}

func TestWithBookingLockMutualExclusion(t *testing.T) {
	locker, _ := newTestLocker(t)
	doctorID := uuid.New()
	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	err := locker.WithBookingLock(context.Background(), doctorID, date, func(ctx context.Context) error {
		// Second acquisition for the same doctor-day must be refused.
		inner := locker.WithBookingLock(ctx, doctorID, date, func(context.Context) error {
			t.Fatal("nested critical section must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)

		// A different doctor is unaffected.
		other := locker.WithBookingLock(ctx, uuid.New(), date, func(context.Context) error { return nil })
		assert.NoError(t, other)
		return nil
	})
	require.NoError(t, err)
}

func TestWithBookingLockPropagatesCallbackError(t *testing.T) {
	locker, _ := newTestLocker(t)

	sentinel := assert.AnError
	err := locker.WithBookingLock(context.Background(), uuid.New(), time.Now(), func(context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
