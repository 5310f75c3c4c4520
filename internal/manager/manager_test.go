package manager

import (
	"context"
	"testing"
	"time"

	"github.com/chidi150c/coretrader/internal/config"
	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/executor"
	"github.com/chidi150c/coretrader/internal/mt5"
	"github.com/chidi150c/coretrader/internal/router"
)

type noopEvents struct{}

func (noopEvents) Emit(ctx context.Context, ev domain.TradeEvent) {}

func newTestManager(t *testing.T, acct domain.Account) (*Manager, executor.MapClients) {
	t.Helper()
	clients := executor.MapClients{acct.Name: mt5.NewFakeClient()}
	cfg := config.Config{
		Accounts:               []domain.Account{acct},
		ScalingTramoPips:       40,
		ScalingPercentPerTramo: 25,
	}
	exec := executor.New(clients, cfg)
	mgr := New(clients, exec, cfg, noopEvents{})
	mgr.Sleep = func(time.Duration) {}
	return mgr, clients
}

func openFixture(t *testing.T, clients executor.MapClients, account, symbol string, dir domain.Direction, volume, sl float64, bid, ask float64) int64 {
	t.Helper()
	fc := clients[account].(*mt5.FakeClient)
	fc.SetTick(symbol, bid, ask)
	res, err := fc.OrderSend(context.Background(), mt5.OrderRequest{
		Action: mt5.ActionDeal, Symbol: symbol, Volume: volume,
		Type: orderTypeOf(dir), SL: sl,
	})
	if err != nil || !res.Success() {
		t.Fatalf("fixture open failed: %v %+v", err, res)
	}
	return res.Order
}

func orderTypeOf(dir domain.Direction) mt5.OrderType {
	if dir == domain.Sell {
		return mt5.OrderSell
	}
	return mt5.OrderBuy
}

// S2: fixed_lot=0.03 BUY at 4459 SL=4454 TP1=4463 reached:
// partial-close 50% leaves 0.02 (rounded to step 0.01), SL moves to entry.
func TestGeneral_S2_TP1PartialAndBE(t *testing.T) {
	acct := domain.Account{Name: "acc1", Active: true, FixedLot: 0.03, TradingMode: domain.ModeGeneral}
	mgr, clients := newTestManager(t, acct)
	fc := clients["acc1"].(*mt5.FakeClient)

	ticket := openFixture(t, clients, "acc1", "XAUUSD", domain.Buy, 0.03, 4454, 4458.5, 4459.5)
	bucket := mgr.Registry.Bucket("acc1")
	mt := domain.NewManagedTrade("acc1", "XAUUSD", ticket, ticket, domain.Buy)
	mt.EntryPrice = 4459
	mt.InitialVolume = 0.03
	mt.PlannedSL = 4454
	mt.TPs = []float64{4463, 4466}
	bucket[ticket] = mt

	fc.SetTick("XAUUSD", 4463.5, 4464.5)
	if err := mgr.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	positions, _ := fc.PositionsGet(context.Background(), ticket)
	if len(positions) != 1 {
		t.Fatalf("expected position still open, got %d", len(positions))
	}
	if positions[0].Volume < 0.019 || positions[0].Volume > 0.021 {
		t.Fatalf("expected ~0.02 remaining, got %.4f", positions[0].Volume)
	}
	if positions[0].SL != mt.EntryPrice {
		t.Fatalf("expected SL at entry %.2f, got %.2f", mt.EntryPrice, positions[0].SL)
	}
	if !mt.HasHitTP(1) {
		t.Fatal("expected TP1 marked hit")
	}
}

// S3: ToroFX BE phrase moves SL to break-even exactly once; a
// repeat of the identical phrase is a no-op (TOROFX_BE action key).
func TestToroFX_S3_BEAppliedOnce(t *testing.T) {
	acct := domain.Account{Name: "acc1", Active: true, FixedLot: 0.05, TradingMode: domain.ModeGeneral}
	mgr, clients := newTestManager(t, acct)
	fc := clients["acc1"].(*mt5.FakeClient)

	ticket := openFixture(t, clients, "acc1", "XAUUSD", domain.Buy, 0.05, 4320, 4329.5, 4330.5)
	mt := domain.NewManagedTrade("acc1", "XAUUSD", ticket, ticket, domain.Buy)
	mt.EntryPrice = 4330
	mt.InitialVolume = 0.05
	mt.ProviderTag = "torofx"
	mgr.Registry.Bucket("acc1")[ticket] = mt

	msg := MgmtMessage{Text: "Asegurando profits, quitando riesgo", ProviderHint: router.ProviderToroFX}
	mgr.HandleManagement(context.Background(), msg)

	positions, _ := fc.PositionsGet(context.Background(), ticket)
	if positions[0].SL != 4330 {
		t.Fatalf("expected SL moved to entry 4330, got %.2f", positions[0].SL)
	}

	// Second identical message is a no-op: manually move SL away and
	// confirm the handler doesn't touch it again.
	fc.SetSymbolInfo("XAUUSD", mt5.SymbolInfo{Point: 0.01, VolumeStep: 0.01, VolumeMin: 0.01, VolumeMax: 100, TickValue: 1, TickSize: 0.01})
	_, _ = fc.OrderSend(context.Background(), mt5.OrderRequest{Action: mt5.ActionSLTP, Symbol: "XAUUSD", Position: ticket, SL: 4300})
	mgr.HandleManagement(context.Background(), msg)
	positions, _ = fc.PositionsGet(context.Background(), ticket)
	if positions[0].SL != 4300 {
		t.Fatalf("expected second BE phrase to be a no-op, SL changed to %.2f", positions[0].SL)
	}
}

// S5: reentry mode, TP1 reached closes 100% of the original and
// opens a 0.01-lot runner with SL at the original entry, TP at TP2.
func TestReentry_S5_RunnerOpenedOnTP1(t *testing.T) {
	acct := domain.Account{Name: "acc1", Active: true, FixedLot: 0.03, TradingMode: domain.ModeReentry}
	mgr, clients := newTestManager(t, acct)
	fc := clients["acc1"].(*mt5.FakeClient)

	ticket := openFixture(t, clients, "acc1", "XAUUSD", domain.Buy, 0.03, 4454, 4458.5, 4459.5)
	mt := domain.NewManagedTrade("acc1", "XAUUSD", ticket, ticket, domain.Buy)
	mt.EntryPrice = 4459
	mt.InitialVolume = 0.03
	mt.TPs = []float64{4463, 4466}
	mgr.Registry.Bucket("acc1")[ticket] = mt

	fc.SetTick("XAUUSD", 4462.5, 4463.5)
	if err := mgr.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	// Original ticket should be fully closed.
	if positions, _ := fc.PositionsGet(context.Background(), ticket); len(positions) != 0 {
		t.Fatalf("expected original ticket closed, found %d positions", len(positions))
	}
	// A runner should now exist for a volume ~0.01 (30% of 0.03, step 0.01).
	all, _ := fc.PositionsGet(context.Background(), 0)
	if len(all) != 1 {
		t.Fatalf("expected exactly 1 runner position, got %d", len(all))
	}
	if all[0].Volume < 0.009 || all[0].Volume > 0.011 {
		t.Fatalf("expected ~0.01 runner volume, got %.4f", all[0].Volume)
	}
	if all[0].SL != 4459 {
		t.Fatalf("expected runner SL at original entry 4459, got %.2f", all[0].SL)
	}
}

// S6: ToroFX scaling-out with no TPs closes 25% at each 40-pip
// tramo, moves SL to BE after tramo 1, and to the tramo-1 price after
// tramo 3; a 40-pip retrace from the new peak closes the remainder.
func TestScalingOut_S6_TramosAndTrailingClose(t *testing.T) {
	acct := domain.Account{Name: "acc1", Active: true, FixedLot: 0.40, TradingMode: domain.ModeGeneral}
	mgr, clients := newTestManager(t, acct)
	fc := clients["acc1"].(*mt5.FakeClient)

	ticket := openFixture(t, clients, "acc1", "XAUUSD", domain.Buy, 0.40, 4320, 4329.5, 4330.5)
	mt := domain.NewManagedTrade("acc1", "XAUUSD", ticket, ticket, domain.Buy)
	mt.EntryPrice = 4330
	mt.InitialVolume = 0.40
	mt.ProviderTag = "torofx"
	mgr.Registry.Bucket("acc1")[ticket] = mt

	// +40 pips (XAU pip=0.10) => price 4330 + 4.0 = 4334; current = bid.
	fc.SetTick("XAUUSD", 4334.5, 4335.5)
	mustTick(t, mgr)
	if mt.ScalingTramoClosed != 1 {
		t.Fatalf("expected tramo 1 closed, got %d", mt.ScalingTramoClosed)
	}
	pos, _ := fc.PositionsGet(context.Background(), ticket)
	if pos[0].SL != 4330 {
		t.Fatalf("expected BE after tramo 1, got SL=%.2f", pos[0].SL)
	}

	// +80 pips => 4338.
	fc.SetTick("XAUUSD", 4338.5, 4339.5)
	mustTick(t, mgr)
	if mt.ScalingTramoClosed != 2 {
		t.Fatalf("expected tramo 2 closed, got %d", mt.ScalingTramoClosed)
	}

	// +120 pips => 4342; SL should move to the tramo-1 close price.
	fc.SetTick("XAUUSD", 4342.5, 4343.5)
	mustTick(t, mgr)
	if mt.ScalingTramoClosed != 3 {
		t.Fatalf("expected tramo 3 closed, got %d", mt.ScalingTramoClosed)
	}
	pos, _ = fc.PositionsGet(context.Background(), ticket)
	if pos[0].SL != mt.ScalingTramo1Price {
		t.Fatalf("expected SL at tramo-1 price %.2f, got %.2f", mt.ScalingTramo1Price, pos[0].SL)
	}

	// Retrace 40 pips from the peak (4342) to 4302 closes the remainder.
	fc.SetTick("XAUUSD", 4301.5, 4302.5)
	mustTick(t, mgr)
	if positions, _ := fc.PositionsGet(context.Background(), ticket); len(positions) != 0 {
		t.Fatalf("expected remainder closed after trailing retrace, found %d positions", len(positions))
	}
}

func mustTick(t *testing.T, mgr *Manager) {
	t.Helper()
	if err := mgr.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
}
