package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Cache holds the weekly-schedule projection in Redis. It is strictly
// best-effort: every miss or Redis failure falls through to the repository.
// A nil *Cache is valid and disables caching.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		rdb:    rdb,
		ttl:    ttl,
		logger: log.With().Str("component", "schedule_cache").Logger(),
	}
}

func weeklyKey(tenantID, doctorID uuid.UUID) string {
	return fmt.Sprintf("schedule:weekly:%s:%s", tenantID, doctorID)
}

func (c *Cache) GetWeekly(ctx context.Context, tenantID, doctorID uuid.UUID) ([]WeeklySlot, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, weeklyKey(tenantID, doctorID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Msg("weekly cache read failed")
		}
		return nil, false
	}
	var slots []WeeklySlot
	if err := json.Unmarshal(data, &slots); err != nil {
		c.logger.Debug().Err(err).Msg("weekly cache entry corrupt, dropping")
		c.InvalidateWeekly(ctx, tenantID, doctorID)
		return nil, false
	}
	return slots, true
}

func (c *Cache) SetWeekly(ctx context.Context, tenantID, doctorID uuid.UUID, slots []WeeklySlot) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(slots)
	if err != nil {
		c.logger.Debug().Err(err).Msg("weekly cache marshal failed")
		return
	}
	if err := c.rdb.Set(ctx, weeklyKey(tenantID, doctorID), data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("weekly cache write failed")
	}
}

func (c *Cache) InvalidateWeekly(ctx context.Context, tenantID, doctorID uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, weeklyKey(tenantID, doctorID)).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("weekly cache invalidation failed")
	}
}
