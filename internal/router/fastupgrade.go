package router

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/chidi150c/coretrader/internal/domain"
)

const fastKeyPrefix = "fast_sig:"

// FastTracker records and looks up recent FAST signals so a later complete
// signal on the same (channel, symbol, direction) within
// fast_update_window_seconds is recognised as an upgrade rather than a new
// trade.
type FastTracker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewFastTracker(rdb *redis.Client, windowSeconds int) *FastTracker {
	return &FastTracker{rdb: rdb, ttl: time.Duration(windowSeconds) * time.Second}
}

func fastKey(channel int64, symbol string, dir domain.Direction) string {
	return fmt.Sprintf("%s%d:%s:%s", fastKeyPrefix, channel, symbol, dir)
}

// Record marks that a FAST signal was just published for (channel, symbol,
// direction), valid for fast_update_window_seconds.
func (f *FastTracker) Record(ctx context.Context, channel int64, symbol string, dir domain.Direction) error {
	return f.rdb.Set(ctx, fastKey(channel, symbol, dir), 1, f.ttl).Err()
}

// Pending reports whether an unexpired FAST record exists for (channel,
// symbol, direction). A positive result on a complete signal means that
// signal should retarget the existing FAST position instead of opening a
// new trade.
func (f *FastTracker) Pending(ctx context.Context, channel int64, symbol string, dir domain.Direction) (bool, error) {
	n, err := f.rdb.Exists(ctx, fastKey(channel, symbol, dir)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes the FAST record once it has been consumed by an upgrade, so
// a third message doesn't also try to upgrade the same trade.
func (f *FastTracker) Clear(ctx context.Context, channel int64, symbol string, dir domain.Direction) error {
	return f.rdb.Del(ctx, fastKey(channel, symbol, dir)).Err()
}
