// Package dedup suppresses repeat alerts for the same opportunity within a
// cooldown window.
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Gate struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewGate(rdb *redis.Client, ttl time.Duration) *Gate {
	return &Gate{rdb: rdb, ttl: ttl}
}

func Key(id string) string {
	return "arbscan:alerted:" + id
}

// Allow reports whether an alert for id may go out now and starts its cooldown.
// Redis errors allow the alert.
func (g *Gate) Allow(ctx context.Context, id string) bool {
	if g == nil || g.rdb == nil || g.ttl <= 0 {
		return true
	}
	ok, err := g.rdb.SetNX(ctx, Key(id), 1, g.ttl).Result()
	if err != nil {
		log.Warn().Str("component", "dedup").Str("id", id).Err(err).Msg("redis setnx failed, allowing alert")
		return true
	}
	return ok
}
