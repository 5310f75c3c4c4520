package backtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/chidi150c/coretrader/internal/config"
	"github.com/chidi150c/coretrader/internal/domain"
)

func testConfig(acct domain.Account) config.Config {
	return config.Config{
		Accounts:           []domain.Account{acct},
		EntryWaitSeconds:   5,
		EntryPollMs:        50,
		ScalpTP1Percent:    50,
		LongTP1Percent:     30,
		LongTP2Percent:     30,
	}
}

// A scripted run from entry through TP1 should realise a partial close and
// leave the position open, exercising the same executor/manager path the
// live process uses.
func TestRun_ReplaysSignalThroughTP1(t *testing.T) {
	acct := domain.Account{Name: "acc1", Active: true, FixedLot: 0.03, TradingMode: domain.ModeGeneral}
	cfg := testConfig(acct)

	sig := domain.Signal{
		Symbol:        "XAUUSD",
		Direction:     domain.Buy,
		EntryRange:    &domain.PriceRange{Lo: 4458, Hi: 4460},
		SL:            4454,
		TPs:           []float64{4463, 4466},
		SourceChannel: 1,
		TraceID:       "replay-1",
	}

	sc := Scenario{
		Signal: sig,
		Symbol: "XAUUSD",
		Ticks: []Tick{
			{Time: time.Unix(1, 0), Bid: 4459, Ask: 4459.5},
			{Time: time.Unix(2, 0), Bid: 4463.5, Ask: 4464},
		},
	}

	res, err := Run(context.Background(), cfg, sc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Opened {
		t.Fatalf("expected signal to open, err=%v", res.OpenErr)
	}
	if res.FinalPositions != 1 {
		t.Fatalf("expected position still open after TP1 partial, got %d", res.FinalPositions)
	}

	var sawPartial bool
	for _, ev := range res.Events {
		if ev.Type == domain.EventPartialClose {
			sawPartial = true
		}
	}
	if !sawPartial {
		t.Fatal("expected a partial_close event in the replay")
	}
}

func TestLoadTicksCSV_ParsesRowsAndSorts(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/ticks.csv"
	content := "time,bid,ask\n2,4460,4460.5\n1,4459,4459.5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ticks, err := LoadTicksCSV(path)
	if err != nil {
		t.Fatalf("LoadTicksCSV: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(ticks))
	}
	if !ticks[0].Time.Before(ticks[1].Time) {
		t.Fatal("expected ticks sorted ascending by time")
	}
}
