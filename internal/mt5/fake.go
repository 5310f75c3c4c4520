package mt5

import (
	"context"
	"errors"
	"sync"
	"time"
)

// FakeClient is an in-memory stand-in for a real MT5 terminal connection.
// It simulates order_send/positions_get against a mutable price and an
// open-position table for dry runs and backtests: "simulate one MT5
// account's positions and fills".
type FakeClient struct {
	mu sync.Mutex

	price   map[string]Tick
	symbols map[string]SymbolInfo
	account AccountInfo
	nextTkt int64
	pos     map[int64]*Position
	alive   bool
}

// NewFakeClient returns a FakeClient with a single bootstrap symbol/price so
// tests don't need to pre-seed trivial fixtures.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		price:   make(map[string]Tick),
		symbols: make(map[string]SymbolInfo),
		pos:     make(map[int64]*Position),
		nextTkt: 1000,
		alive:   true,
		account: AccountInfo{Balance: 10000, Equity: 10000, FreeMargin: 10000},
	}
}

// SetTick sets the simulated bid/ask for a symbol; tests drive price
// movement through this to trigger TP/SL/trailing behavior.
func (f *FakeClient) SetTick(symbol string, bid, ask float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price[symbol] = Tick{Bid: bid, Ask: ask, Time: time.Now()}
	for _, p := range f.pos {
		if p.Symbol != symbol {
			continue
		}
		if p.Type == OrderBuy {
			p.PriceCurrent = bid
			p.Profit = (bid - p.PriceOpen) * p.Volume
		} else {
			p.PriceCurrent = ask
			p.Profit = (p.PriceOpen - ask) * p.Volume
		}
	}
}

// SetSymbolInfo overrides the default symbol metadata, used by tests that
// exercise broker-minimum-stop clamping or volume-step rounding.
func (f *FakeClient) SetSymbolInfo(symbol string, info SymbolInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols[symbol] = info
}

func defaultSymbolInfo() SymbolInfo {
	return SymbolInfo{
		Point: 0.01, Digits: 2,
		VolumeStep: 0.01, VolumeMin: 0.01, VolumeMax: 100,
		TickValue: 1, TickSize: 0.01, StopsLevel: 0,
		TradeFillMode: FillIOC,
	}
}

func (f *FakeClient) SymbolSelect(ctx context.Context, symbol string, enable bool) (bool, error) {
	return true, nil
}

func (f *FakeClient) SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if si, ok := f.symbols[symbol]; ok {
		return si, nil
	}
	return defaultSymbolInfo(), nil
}

func (f *FakeClient) SymbolInfoTick(ctx context.Context, symbol string) (Tick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.price[symbol]; ok {
		return t, nil
	}
	return Tick{}, errors.New("mt5: no tick for symbol " + symbol)
}

func (f *FakeClient) PositionsGet(ctx context.Context, ticket int64) ([]Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Position
	for _, p := range f.pos {
		if ticket != 0 && p.Ticket != ticket {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *FakeClient) OrderSend(ctx context.Context, req OrderRequest) (OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch req.Action {
	case ActionSLTP:
		p, ok := f.pos[req.Position]
		if !ok {
			return OrderResult{Retcode: 10013, Comment: "no such position"}, nil
		}
		p.SL = req.SL
		if req.TP != 0 {
			p.TP = req.TP
		}
		p.TimeUpdate = time.Now()
		return OrderResult{Retcode: RetDone, Order: req.Position}, nil

	case ActionDeal:
		if req.Position != 0 {
			// closing / partial-closing an existing position
			p, ok := f.pos[req.Position]
			if !ok {
				return OrderResult{Retcode: 10013, Comment: "no such position"}, nil
			}
			if req.Volume >= p.Volume-1e-9 {
				delete(f.pos, req.Position)
			} else {
				p.Volume -= req.Volume
				p.TimeUpdate = time.Now()
			}
			return OrderResult{Retcode: RetDone, Order: req.Position}, nil
		}
		// opening a new position
		t, ok := f.price[req.Symbol]
		if !ok {
			return OrderResult{Retcode: 10013, Comment: "no tick"}, nil
		}
		price := req.Price
		if price == 0 {
			if req.Type == OrderBuy {
				price = t.Ask
			} else {
				price = t.Bid
			}
		}
		f.nextTkt++
		ticket := f.nextTkt
		f.pos[ticket] = &Position{
			Ticket: ticket, Symbol: req.Symbol, Type: req.Type,
			Volume: req.Volume, PriceOpen: price, PriceCurrent: price,
			SL: req.SL, TP: req.TP, Magic: req.Magic, TimeUpdate: time.Now(),
		}
		return OrderResult{Retcode: RetDone, Order: ticket, Deal: ticket}, nil
	}
	return OrderResult{Retcode: 10013, Comment: "unsupported action"}, nil
}

func (f *FakeClient) AccountInfo(ctx context.Context) (AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, nil
}

func (f *FakeClient) IsTerminalAlive(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive, nil
}

func (f *FakeClient) Close() error { return nil }
