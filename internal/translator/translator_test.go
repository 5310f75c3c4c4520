package translator

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/chidi150c/coretrader/internal/bus"
	"github.com/chidi150c/coretrader/internal/domain"
)

func newTestBus(t *testing.T) *bus.Bus {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return bus.NewFromClient(rdb)
}

// A parsed_signals entry round-trips through Translate into a trade_commands
// entry carrying the same symbol/direction/SL/TPs plus the CmdOpen marker.
func TestTranslate_RepublishesSignalAsOpenCommand(t *testing.T) {
	b := newTestBus(t)
	tr := New(b)
	ctx := context.Background()

	_, err := b.Add(ctx, bus.StreamParsedSignals, map[string]interface{}{
		"symbol":    "XAUUSD",
		"direction": "BUY",
		"sl":        "4454",
		"tps":       `[4463,4466]`,
		"trace":     "trace-1",
	})
	if err != nil {
		t.Fatalf("seed Add: %v", err)
	}
	if err := b.EnsureGroup(ctx, bus.StreamParsedSignals, GroupName); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}
	msgs, err := b.ReadGroupBlocking(ctx, bus.StreamParsedSignals, GroupName, "c1", time.Second)
	if err != nil {
		t.Fatalf("ReadGroupBlocking: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}

	if err := tr.Translate(ctx, msgs[0]); err != nil {
		t.Fatalf("Translate: %v", err)
	}

	if err := b.EnsureGroup(ctx, bus.StreamTradeCommands, "test-consumer"); err != nil {
		t.Fatalf("EnsureGroup trade_commands: %v", err)
	}
	out, err := b.ReadGroupBlocking(ctx, bus.StreamTradeCommands, "test-consumer", "c1", time.Second)
	if err != nil {
		t.Fatalf("ReadGroupBlocking trade_commands: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 trade_command, got %d", len(out))
	}

	typ, sig, _ := DecodeCommand(out[0])
	if typ != domain.CmdOpen {
		t.Fatalf("expected CmdOpen, got %s", typ)
	}
	if sig.Symbol != "XAUUSD" || sig.Direction != domain.Buy {
		t.Fatalf("expected decoded signal to match source, got %+v", sig)
	}
	if sig.SL != 4454 {
		t.Fatalf("expected SL=4454, got %.2f", sig.SL)
	}
}
