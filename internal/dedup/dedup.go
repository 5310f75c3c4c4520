// Package dedup implements the short-TTL set-if-absent signal dedup store
//, keyed by a stable signature hash over a signal's canonical
// fields.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/chidi150c/coretrader/internal/domain"
)

const keyPrefix = "signal_dedup:"

// Store is a SETNX-with-TTL dedup store over the same redis.Client the bus
// uses. Cleanup is lazy via Redis TTL expiry; no background sweep needed.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New builds a Store with the configured TTL (DEDUP_TTL_SECONDS).
func New(rdb *redis.Client, ttlSeconds int) *Store {
	return &Store{rdb: rdb, ttl: time.Duration(ttlSeconds) * time.Second}
}

// Signature computes the stable dedup hash over (source_channel,
// provider_tag, symbol, direction, sorted(tps), sl, entry_range, hint_price).
func Signature(channel int64, s *domain.ParseResult) string {
	tps := append([]float64(nil), s.TPs...)
	sort.Float64s(tps)

	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|", channel, s.ProviderTag, s.Symbol, s.Direction)
	for _, tp := range tps {
		fmt.Fprintf(h, "%.5f,", tp)
	}
	fmt.Fprintf(h, "|%.5f|", s.SL)
	if s.EntryRange != nil {
		fmt.Fprintf(h, "%.5f-%.5f|", s.EntryRange.Lo, s.EntryRange.Hi)
	} else {
		h.Write([]byte("-|"))
	}
	fmt.Fprintf(h, "%.5f", s.HintPrice)
	return hex.EncodeToString(h.Sum(nil))
}

// IsDuplicate sets key=signal_dedup:<sig> with the configured TTL only if
// absent, and returns true iff the key already existed.
func (s *Store) IsDuplicate(ctx context.Context, channel int64, pr *domain.ParseResult) (bool, error) {
	sig := Signature(channel, pr)
	ok, err := s.rdb.SetNX(ctx, keyPrefix+sig, 1, s.ttl).Result()
	if err != nil {
		return false, err
	}
	// SetNX returns true if the key was newly set (i.e. NOT a duplicate).
	return !ok, nil
}
