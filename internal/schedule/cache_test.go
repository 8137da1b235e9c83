package schedule

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

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(rdb, time.Minute)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	tenantID := uuid.New()
	doctorID := uuid.New()

	_, ok := cache.GetWeekly(ctx, tenantID, doctorID)
	assert.False(t, ok, "cold cache must miss")

	slots := []WeeklySlot{{
		ID: uuid.New(), TenantID: tenantID, DoctorID: doctorID,
		DayOfWeek: 2, Start: 480, End: 720, Active: true,
	}}
	cache.SetWeekly(ctx, tenantID, doctorID, slots)

	got, ok := cache.GetWeekly(ctx, tenantID, doctorID)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, slots[0].ID, got[0].ID)
	assert.Equal(t, slots[0].Start, got[0].Start)
}

func TestCacheInvalidate(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	tenantID := uuid.New()
	doctorID := uuid.New()

	cache.SetWeekly(ctx, tenantID, doctorID, []WeeklySlot{{ID: uuid.New()}})
	cache.InvalidateWeekly(ctx, tenantID, doctorID)

	_, ok := cache.GetWeekly(ctx, tenantID, doctorID)
	assert.False(t, ok)
}

func TestNilCacheIsSafe(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	_, ok := cache.GetWeekly(ctx, uuid.New(), uuid.New())
	assert.False(t, ok)
	cache.SetWeekly(ctx, uuid.New(), uuid.New(), nil)
	cache.InvalidateWeekly(ctx, uuid.New(), uuid.New())
}
