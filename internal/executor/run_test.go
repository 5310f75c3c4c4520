package executor

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/chidi150c/coretrader/internal/bus"
	"github.com/chidi150c/coretrader/internal/config"
	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/mt5"
)

// A CmdOpen trade_command read off the bus opens a position and publishes
// an "opened" TradeEvent to trade_events.
func TestDispatch_CmdOpenPublishesOpenedEvent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := bus.NewFromClient(rdb)

	acct := domain.Account{Name: "acc1", Active: true, FixedLot: 0.03, TradingMode: domain.ModeGeneral}
	clients := MapClients{"acc1": mt5.NewFakeClient()}
	clients["acc1"].(*mt5.FakeClient).SetTick("XAUUSD", 4459, 4459.5)
	cfg := config.Config{Accounts: []domain.Account{acct}, EntryWaitSeconds: 1, EntryPollMs: 10}
	exec := New(clients, cfg)

	ctx := context.Background()
	_, err = b.Add(ctx, bus.StreamTradeCommands, map[string]interface{}{
		"cmd_type":  "open",
		"symbol":    "XAUUSD",
		"direction": "buy",
		"sl":        "4454",
		"tps":       "[4463]",
		"chat_id":   "0",
		"trace":     "t1",
	})
	if err != nil {
		t.Fatalf("seed Add: %v", err)
	}
	if err := b.EnsureGroup(ctx, bus.StreamTradeCommands, GroupName); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}
	msgs, err := b.ReadGroupBlocking(ctx, bus.StreamTradeCommands, GroupName, "c1", time.Second)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("ReadGroupBlocking: %v msgs=%d", err, len(msgs))
	}

	exec.dispatch(ctx, b, msgs[0])

	if err := b.EnsureGroup(ctx, bus.StreamTradeEvents, "test-consumer"); err != nil {
		t.Fatalf("EnsureGroup trade_events: %v", err)
	}
	events, err := b.ReadGroupBlocking(ctx, bus.StreamTradeEvents, "test-consumer", "c1", time.Second)
	if err != nil || len(events) != 1 {
		t.Fatalf("expected 1 trade event, got %d err=%v", len(events), err)
	}
}
