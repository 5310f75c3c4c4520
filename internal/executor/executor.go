// Package executor is the only part of the core that submits MT5 trade
// requests. It owns entry gating, pip-aware SL fallback, lot
// sizing, and filling-mode fallback; the trade manager calls through it
// rather than touching an mt5.Client directly, keeping strategy decisions
// separate from the broker boundary.
package executor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/chidi150c/coretrader/internal/config"
	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/logx"
	"github.com/chidi150c/coretrader/internal/metrics"
	"github.com/chidi150c/coretrader/internal/mt5"
)

// accountTimeout bounds a single account's entry-gating/order-open attempt
// so one stuck terminal never blocks the others.
const accountTimeout = 30 * time.Second

// entryBufferPips is added past the far edge of an entry range before an
// account is rejected as having missed the window.
const entryBufferPips = 15.0

// Clients resolves an account name to its MT5 connection. The executor
// never constructs clients itself; cmd/coretrader wires one per configured
// account at startup.
type Clients interface {
	Get(account string) (mt5.Client, bool)
}

// Executor submits MT5 trade requests on behalf of the router/manager. All
// methods are safe for concurrent use across accounts.
type Executor struct {
	Clients  Clients
	Accounts []domain.Account
	Cfg      config.Config

	// Overridable for tests; defaults to time.Now/time.Sleep.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// New builds an Executor wired from config and a client resolver.
func New(clients Clients, cfg config.Config) *Executor {
	return &Executor{
		Clients:  clients,
		Accounts: cfg.Accounts,
		Cfg:      cfg,
		Now:      time.Now,
		Sleep:    time.Sleep,
	}
}

// OpenResult is one account's outcome from OpenCompleteTrade.
type OpenResult struct {
	Account string
	Ticket  int64
	Err     error
}

// OpenCompleteTrade opens one position per eligible account for a parsed
// signal, gating each account's entry independently and in parallel
//.
func (e *Executor) OpenCompleteTrade(ctx context.Context, sig domain.Signal) []OpenResult {
	var wg sync.WaitGroup
	results := make([]OpenResult, 0, len(e.Accounts))
	var mu sync.Mutex

	for _, acct := range e.Accounts {
		if !acct.AllowsChannel(sig.SourceChannel) {
			continue
		}
		acct := acct
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := e.openOneAccount(ctx, acct, sig)
			mu.Lock()
			results = append(results, OpenResult{Account: acct.Name, Ticket: ticket, Err: err})
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func (e *Executor) openOneAccount(ctx context.Context, acct domain.Account, sig domain.Signal) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, accountTimeout)
	defer cancel()

	cli, ok := e.Clients.Get(acct.Name)
	if !ok {
		return 0, fmt.Errorf("executor: no client for account %s", acct.Name)
	}

	if _, err := cli.SymbolSelect(ctx, sig.Symbol, true); err != nil {
		return 0, fmt.Errorf("executor: symbol_select %s: %w", sig.Symbol, err)
	}
	si, err := cli.SymbolInfo(ctx, sig.Symbol)
	if err != nil {
		return 0, fmt.Errorf("executor: symbol_info %s: %w", sig.Symbol, err)
	}

	price, err := e.waitForEntry(ctx, cli, sig, si)
	if err != nil {
		return 0, err
	}

	sl := sig.SL
	if sl <= 0 {
		sl = fallbackSL(sig.Symbol, si.Point, sig.Direction, price, e.Cfg.DefaultSLXAUUSDPips, e.Cfg.DefaultSLPips)
	}
	sl = clampStopDistance(sig.Direction, price, sl, si)

	volume, err := e.lotSize(ctx, cli, acct, si, price, sl)
	if err != nil {
		return 0, err
	}
	if volume <= 0 {
		return 0, fmt.Errorf("executor: computed zero volume for account %s", acct.Name)
	}

	var tp float64
	if len(sig.TPs) > 0 {
		tp = sig.TPs[0]
	}

	req := mt5.OrderRequest{
		Action: mt5.ActionDeal,
		Symbol: sig.Symbol,
		Volume: volume,
		Type:   orderType(sig.Direction),
		SL:     sl,
		TP:     tp,
		Magic:  0,
		Comment: sig.ProviderTag,
	}
	res, err := e.sendWithFillingFallback(ctx, cli, req, si.TradeFillMode)
	if err != nil {
		return 0, err
	}
	if !res.Success() {
		return 0, fmt.Errorf("executor: order_send failed retcode=%d comment=%q", res.Retcode, res.Comment)
	}
	logx.Info("executor.opened", "account=%s symbol=%s ticket=%d volume=%.2f sl=%.5f", acct.Name, sig.Symbol, res.Order, volume, sl)
	metrics.IncTradeOpened(acct.Name, sideOf(sig.Direction))
	return res.Order, nil
}

// waitForEntry snapshots the reference price and either fires immediately
// or polls until the price enters the admissible band or the deadline
// expires.
func (e *Executor) waitForEntry(ctx context.Context, cli mt5.Client, sig domain.Signal, si mt5.SymbolInfo) (float64, error) {
	pip := domain.PipSize(sig.Symbol, si.Point)
	deadline := e.Now().Add(time.Duration(e.Cfg.EntryWaitSeconds) * time.Second)
	pollEvery := time.Duration(e.Cfg.EntryPollMs) * time.Millisecond
	if pollEvery <= 0 {
		pollEvery = 500 * time.Millisecond
	}

	for {
		tick, err := cli.SymbolInfoTick(ctx, sig.Symbol)
		if err != nil {
			return 0, fmt.Errorf("executor: symbol_info_tick %s: %w", sig.Symbol, err)
		}
		ref := referencePrice(sig.Direction, tick)

		if sig.EntryRange == nil {
			return ref, nil
		}
		lo, hi := sig.EntryRange.Lo, sig.EntryRange.Hi
		band := entryBufferPips * pip
		if sig.Direction == domain.Buy {
			if ref <= hi+band {
				return ref, nil
			}
			if ref > hi+band && e.Now().After(deadline) {
				return 0, errEntryNotReached
			}
		} else {
			if ref >= lo-band {
				return ref, nil
			}
			if ref < lo-band && e.Now().After(deadline) {
				return 0, errEntryNotReached
			}
		}

		if e.Now().After(deadline) {
			return 0, errEntryNotReached
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		e.Sleep(pollEvery)
	}
}

var errEntryNotReached = fmt.Errorf("executor: entry window expired without reaching price")

func referencePrice(dir domain.Direction, t mt5.Tick) float64 {
	if dir == domain.Buy {
		return t.Ask
	}
	return t.Bid
}

func orderType(dir domain.Direction) mt5.OrderType {
	if dir == domain.Sell {
		return mt5.OrderSell
	}
	return mt5.OrderBuy
}

func sideOf(dir domain.Direction) string {
	if dir == domain.Sell {
		return "sell"
	}
	return "buy"
}

// fallbackSL computes a default SL distance in the direction opposing the
// trade when the signal carried none.
func fallbackSL(symbol string, point float64, dir domain.Direction, price, xauPips, defaultPips float64) float64 {
	pips := defaultPips
	if domain.IsXAU(symbol) {
		pips = xauPips
	}
	dist := domain.PipsToPrice(symbol, point, pips)
	if dir == domain.Buy {
		return price - dist
	}
	return price + dist
}

// clampStopDistance pushes sl to the nearest admissible value if it is
// closer to price than the broker's minimum stop distance.
func clampStopDistance(dir domain.Direction, price, sl float64, si mt5.SymbolInfo) float64 {
	minDist := si.StopsLevel * si.Point
	if minDist <= 0 {
		return sl
	}
	if dir == domain.Buy {
		if price-sl < minDist {
			return price - minDist
		}
	} else {
		if sl-price < minDist {
			return price + minDist
		}
	}
	return sl
}

// lotSize picks a fixed lot or computes a risk-proportional one from the
// account balance and the SL distance, rounded to the broker's volume step
// and clamped to [volume_min, volume_max].
func (e *Executor) lotSize(ctx context.Context, cli mt5.Client, acct domain.Account, si mt5.SymbolInfo, price, sl float64) (float64, error) {
	if acct.FixedLot > 0 {
		return acct.FixedLot, nil
	}
	if acct.RiskPercent <= 0 || sl == 0 || si.TickSize == 0 {
		return 0, fmt.Errorf("executor: account %s has neither fixed_lot nor usable risk_percent", acct.Name)
	}
	slDistance := math.Abs(price - sl)
	if slDistance == 0 {
		return 0, fmt.Errorf("executor: zero SL distance for account %s", acct.Name)
	}
	info, err := cli.AccountInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("executor: account_info: %w", err)
	}
	riskAmount := info.Balance * acct.RiskPercent / 100
	lot := riskAmount / (slDistance * si.TickValue / si.TickSize)
	lot = snapToStep(lot, si.VolumeStep)
	if lot < si.VolumeMin {
		lot = si.VolumeMin
	}
	if si.VolumeMax > 0 && lot > si.VolumeMax {
		lot = si.VolumeMax
	}
	return lot, nil
}

// stepEpsilon absorbs float64 division noise so a value that is
// mathematically an exact multiple of step (but lands a hair under it,
// e.g. 0.03*1/3 round-tripped through a percent) doesn't lose a whole
// step to flooring.
const stepEpsilon = 1e-8

// snapToStep floors x to the nearest multiple of step.
func snapToStep(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	n := math.Floor(x/step + stepEpsilon)
	if n <= 0 {
		return 0
	}
	return n * step
}

// sendWithFillingFallback submits req, retrying with the next candidate
// filling mode on a fill-mode-mismatch retcode. It tries
// the symbol-advertised mode first, then walks mt5.FillingModeOrder.
func (e *Executor) sendWithFillingFallback(ctx context.Context, cli mt5.Client, req mt5.OrderRequest, advertised mt5.FillingMode) (mt5.OrderResult, error) {
	tried := map[mt5.FillingMode]bool{}
	modes := append([]mt5.FillingMode{advertised}, mt5.FillingModeOrder...)

	var lastErr error
	var lastRes mt5.OrderResult
	for _, mode := range modes {
		if tried[mode] {
			continue
		}
		tried[mode] = true
		req.TypeFilling = mode
		res, err := cli.OrderSend(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		lastRes = res
		if res.Success() || !res.IsFillingModeMismatch() {
			return res, nil
		}
	}
	if lastErr != nil {
		return mt5.OrderResult{}, lastErr
	}
	return lastRes, nil
}
