// Package backtest replays a recorded tick/signal fixture through the same
// executor/manager decision code used live, against mt5.FakeClient instead
// of a real terminal. It walks a price-tick CSV through
// Executor.OpenCompleteTrade and Manager.Tick so the
// partial-close/BE/trailing/scaling logic can be exercised against a
// scripted price path without a live broker.
package backtest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chidi150c/coretrader/internal/config"
	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/executor"
	"github.com/chidi150c/coretrader/internal/manager"
	"github.com/chidi150c/coretrader/internal/mt5"
)

// Tick is one recorded price point for a symbol.
type Tick struct {
	Time time.Time
	Bid  float64
	Ask  float64
}

// LoadTicksCSV reads a generic tick CSV with headers time|timestamp, bid,
// ask. Unknown columns are ignored; headers are case-insensitive.
func LoadTicksCSV(path string) ([]Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []Tick
	var headers []string
	rowIdx := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		row := map[string]string{}
		for j, h := range headers {
			k := strings.ToLower(strings.TrimSpace(h))
			if j < len(rec) {
				row[k] = strings.TrimSpace(rec[j])
			}
		}
		ts := first(row, "time", "timestamp")
		bp := first(row, "bid")
		ap := first(row, "ask")
		if ts == "" || bp == "" || ap == "" {
			continue
		}
		tt, err := parseTimeFlexible(ts)
		if err != nil {
			continue
		}
		bid, _ := strconv.ParseFloat(bp, 64)
		ask, _ := strconv.ParseFloat(ap, 64)
		out = append(out, Tick{Time: tt, Bid: bid, Ask: ask})
		rowIdx++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func parseTimeFlexible(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time: %s", s)
}

func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}

// Scenario is a single fixture replay: one signal opened, then a scripted
// price path driven through the manager's tick loop so partial closes,
// break-even, trailing, addons, and scaling-out all run against the same
// decision code the live process uses.
type Scenario struct {
	Signal domain.Signal
	Symbol string
	Ticks  []Tick
}

// Result summarizes the outcome of replaying one Scenario.
type Result struct {
	Account         string
	Opened          bool
	OpenErr         error
	FinalPositions  int
	Events          []domain.TradeEvent
}

// recordingSink collects every emitted TradeEvent instead of delivering it
// over HTTP, an in-memory accumulator for use during backtest rather than
// a live metrics push.
type recordingSink struct {
	events []domain.TradeEvent
}

func (r *recordingSink) Emit(_ context.Context, ev domain.TradeEvent) {
	r.events = append(r.events, ev)
}

// Run replays sc against a single-account FakeClient setup built from cfg,
// driving the manager's Tick once per recorded price point. It never talks
// to a real broker or the network.
func Run(ctx context.Context, cfg config.Config, sc Scenario) (Result, error) {
	if len(cfg.Accounts) != 1 {
		return Result{}, fmt.Errorf("backtest: Run expects exactly one account, got %d", len(cfg.Accounts))
	}
	acct := cfg.Accounts[0]

	fc := mt5.NewFakeClient()
	clients := executor.MapClients{acct.Name: fc}
	exec := executor.New(clients, cfg)
	sink := &recordingSink{}
	mgr := manager.New(clients, exec, cfg, sink)

	if len(sc.Ticks) > 0 {
		fc.SetTick(sc.Symbol, sc.Ticks[0].Bid, sc.Ticks[0].Ask)
	}

	results := exec.OpenCompleteTrade(ctx, sc.Signal)
	var res Result
	res.Account = acct.Name
	for _, r := range results {
		if r.Account != acct.Name {
			continue
		}
		res.Opened = r.Err == nil
		res.OpenErr = r.Err
		if r.Err == nil {
			// Register the opened trade with the signal's TPs and SL so the
			// manager's TP handling applies to it.
			mt := domain.NewManagedTrade(acct.Name, sc.Signal.Symbol, r.Ticket, r.Ticket, sc.Signal.Direction)
			mt.ProviderTag = sc.Signal.ProviderTag
			mt.TPs = append([]float64(nil), sc.Signal.TPs...)
			mt.PlannedSL = sc.Signal.SL
			mgr.Registry.Bucket(acct.Name)[r.Ticket] = mt
		}
	}
	if !res.Opened {
		res.Events = sink.events
		return res, nil
	}

	for _, tick := range sc.Ticks {
		fc.SetTick(sc.Symbol, tick.Bid, tick.Ask)
		if err := mgr.Tick(ctx); err != nil {
			log.Printf("backtest: tick error: %v", err)
		}
	}

	positions, _ := fc.PositionsGet(ctx, 0)
	res.FinalPositions = len(positions)
	res.Events = sink.events
	return res, nil
}
