package router

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/chidi150c/coretrader/internal/bus"
	"github.com/chidi150c/coretrader/internal/config"
	"github.com/chidi150c/coretrader/internal/dedup"
)

func newTestRouter(t *testing.T) (*Router, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := bus.NewFromClient(rdb)
	d := dedup.New(rdb, 120)
	fast := NewFastTracker(rdb, 30)
	n := 0
	idGen := func() string { n++; return "trace-" + string(rune('a'+n)) }
	r := New(b, d, fast, map[int64]config.ChannelConfig{}, nil, idGen)
	return r, mr
}

// S1: a management-unrelated Hannah signal publishes once, and
// the identical message sent again within the dedup TTL is suppressed.
func TestProcess_S1_PublishThenSuppressDuplicate(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()
	msg := RawMessage{ChatID: -5250557024, Text: "GOLD BUY NOW\n@4460-4457\nSL 4454\nTP1 4463\nTP2 4466"}

	out1, err := r.Process(ctx, msg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out1 != OutcomeSignal {
		t.Fatalf("expected signal outcome, got %s", out1)
	}

	out2, err := r.Process(ctx, msg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out2 != OutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %s", out2)
	}
}

// S4: a FAST signal followed by a complete signal on the same
// (channel, symbol, direction) within the FAST window is an upgrade, not a
// new trade, and bypasses dedup.
func TestProcess_S4_FastThenUpgrade(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()

	fastMsg := RawMessage{ChatID: 1, Text: "Compra ORO ahora @2500"}
	out, err := r.Process(ctx, fastMsg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out != OutcomeSignal {
		t.Fatalf("expected signal outcome for FAST publish, got %s", out)
	}

	completeMsg := RawMessage{ChatID: 1, Text: "ORO BUY Entry: 2500-2505, SL: 2490, TP1: 2515, TP2: 2530"}
	out2, err := r.Process(ctx, completeMsg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out2 != OutcomeUpgrade {
		t.Fatalf("expected upgrade outcome, got %s", out2)
	}

	// A third, identical complete message now goes through normal dedup
	// (the FAST record was cleared by the upgrade, which recorded the
	// signal's dedup signature).
	out3, err := r.Process(ctx, completeMsg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out3 != OutcomeDuplicate {
		t.Fatalf("expected duplicate outcome after upgrade consumed, got %s", out3)
	}
}

// Boundary: a complete follow-up arriving after the FAST window
// has expired is treated as a new trade, not an upgrade.
func TestProcess_FastWindowExpired_NotAnUpgrade(t *testing.T) {
	r, mr := newTestRouter(t)
	r.Fast = NewFastTracker(r.Bus.Raw(), 1)
	ctx := context.Background()

	fastMsg := RawMessage{ChatID: 1, Text: "Compra ORO ahora @2500"}
	if _, err := r.Process(ctx, fastMsg); err != nil {
		t.Fatalf("Process: %v", err)
	}

	mr.FastForward(2 * 1_000_000_000) // 2s, past the 1s FAST window

	completeMsg := RawMessage{ChatID: 1, Text: "ORO BUY Entry: 2500-2505, SL: 2490, TP1: 2515, TP2: 2530"}
	out, err := r.Process(ctx, completeMsg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out != OutcomeSignal {
		t.Fatalf("expected a new signal (not upgrade) once FAST window expired, got %s", out)
	}
}

// Management phrases are republished without running the parser registry.
func TestProcess_ManagementClassified(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()
	msg := RawMessage{ChatID: 1, Text: "Asegurando profits, quitando riesgo"}
	out, err := r.Process(ctx, msg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out != OutcomeManagement {
		t.Fatalf("expected management outcome, got %s", out)
	}
}

// Outside any configured trading window, a signal is skipped with an event
// rather than published.
func TestProcess_OutsideWindowSkipped(t *testing.T) {
	r, _ := newTestRouter(t)
	r.Windows = []config.Window{{StartMin: 9 * 60, EndMin: 17 * 60}}
	r.Now = func() time.Time { return ny(20, 0) } // 20:00 NY, outside 09:00-17:00
	ctx := context.Background()
	msg := RawMessage{ChatID: 1, Text: "GOLD BUY NOW\n@4460-4457\nSL 4454\nTP1 4463\nTP2 4466"}
	out, err := r.Process(ctx, msg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out != OutcomeOutsideWindow {
		t.Fatalf("expected outside_window outcome, got %s", out)
	}
}

func ny(h, m int) time.Time {
	loc, _ := time.LoadLocation("America/New_York")
	return time.Date(2026, 7, 31, h, m, 0, 0, loc)
}
