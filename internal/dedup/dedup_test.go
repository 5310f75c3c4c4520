package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/chidi150c/coretrader/internal/domain"
)

func newTestStore(t *testing.T, ttlSeconds int) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, ttlSeconds), mr
}

func sample() *domain.ParseResult {
	return &domain.ParseResult{
		ProviderTag: "hannah", Symbol: "XAUUSD", Direction: domain.Buy,
		EntryRange: &domain.PriceRange{Lo: 4457, Hi: 4460},
		SL:         4454, TPs: []float64{4466, 4463},
	}
}

// S1: the second identical message within the TTL is suppressed.
func TestIsDuplicate_SecondWithinTTLSuppressed(t *testing.T) {
	store, _ := newTestStore(t, 120)
	ctx := context.Background()

	dup1, err := store.IsDuplicate(ctx, -5250557024, sample())
	if err != nil {
		t.Fatalf("IsDuplicate: %v", err)
	}
	if dup1 {
		t.Fatal("first occurrence must not be a duplicate")
	}

	dup2, err := store.IsDuplicate(ctx, -5250557024, sample())
	if err != nil {
		t.Fatalf("IsDuplicate: %v", err)
	}
	if !dup2 {
		t.Fatal("second identical signal within TTL must be a duplicate")
	}
}

func TestIsDuplicate_SignatureIgnoresTPOrder(t *testing.T) {
	a := sample()
	b := sample()
	b.TPs = []float64{4463, 4466} // reversed order must hash identically
	if Signature(1, a) != Signature(1, b) {
		t.Fatal("signature must be stable regardless of TP slice order")
	}
}

func TestIsDuplicate_DifferentChannelNotDuplicate(t *testing.T) {
	store, _ := newTestStore(t, 120)
	ctx := context.Background()

	if _, err := store.IsDuplicate(ctx, 1, sample()); err != nil {
		t.Fatalf("IsDuplicate: %v", err)
	}
	dup, err := store.IsDuplicate(ctx, 2, sample())
	if err != nil {
		t.Fatalf("IsDuplicate: %v", err)
	}
	if dup {
		t.Fatal("same signal from a different channel must not be a duplicate")
	}
}

func TestIsDuplicate_ExpiresAfterTTL(t *testing.T) {
	store, mr := newTestStore(t, 1)
	ctx := context.Background()

	if _, err := store.IsDuplicate(ctx, 1, sample()); err != nil {
		t.Fatalf("IsDuplicate: %v", err)
	}
	mr.FastForward(2 * time.Second)

	dup, err := store.IsDuplicate(ctx, 1, sample())
	if err != nil {
		t.Fatalf("IsDuplicate: %v", err)
	}
	if dup {
		t.Fatal("entry past its TTL must not be reported as a duplicate")
	}
}
