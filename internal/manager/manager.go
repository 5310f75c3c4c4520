// Package manager is the trade manager: one cooperative tick
// per account per loop iteration, all accounts ticked concurrently against
// a shared registry partitioned by account name. It decides
// partial closes, break-even moves, trailing, add-ons, and scaling-out, and
// issues them through internal/executor rather than an mt5.Client directly.
package manager

import (
	"context"
	"time"

	"github.com/chidi150c/coretrader/internal/config"
	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/executor"
	"github.com/chidi150c/coretrader/internal/logx"
	"github.com/chidi150c/coretrader/internal/metrics"
	"github.com/chidi150c/coretrader/internal/mt5"
	"golang.org/x/sync/errgroup"
)

// bufferPips is the symbol-scaled tolerance used when checking whether
// price has reached a TP or addon level.
const bufferPips = 2.0

// magicNumber is the one non-zero magic the position filter in tickAccount
// accepts. The executor sends its orders with magic 0, and the filter also
// accepts 0, so positions placed by hand with magic 0 are managed too;
// positions carrying any other magic are skipped.
const magicNumber = 150100

// Executor is the narrow surface the manager needs from internal/executor.
type Executor interface {
	PartialClose(ctx context.Context, account string, ticket int64, percent float64) (bool, error)
	ModifySL(ctx context.Context, account string, ticket int64, newSL float64, reason, providerTag string) (bool, error)
	OpenRunnerTrade(ctx context.Context, account, symbol string, dir domain.Direction, volume, sl, tp float64, providerTag string) (int64, error)
}

// EventSink receives trade_events as the manager produces them.
type EventSink interface {
	Emit(ctx context.Context, ev domain.TradeEvent)
}

// Manager ticks every configured account concurrently and mutates a
// registry partitioned by account name.
type Manager struct {
	Clients  executor.Clients
	Exec     Executor
	Registry *domain.Registry
	Accounts []domain.Account
	Cfg      config.Config
	Events   EventSink

	// MomentumFilter vetoes a reentry runner outside the 3s grace window
	// when non-nil.
	MomentumFilter func(account, symbol string, dir domain.Direction) bool

	Now   func() time.Time
	Sleep func(time.Duration)
}

// New builds a Manager wired from config and shared infra.
func New(clients executor.Clients, exec Executor, cfg config.Config, events EventSink) *Manager {
	return &Manager{
		Clients:  clients,
		Exec:     exec,
		Registry: domain.NewRegistry(),
		Accounts: cfg.Accounts,
		Cfg:      cfg,
		Events:   events,
		Now:      time.Now,
		Sleep:    time.Sleep,
	}
}

// Run loops Tick every loop_sleep_sec until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, loopSleep time.Duration) error {
	if loopSleep <= 0 {
		loopSleep = time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := m.Tick(ctx); err != nil {
			logx.Error("manager.tick", "%v", err)
		}
		m.Sleep(loopSleep)
	}
}

// Tick runs one pass of every active account concurrently using an
// errgroup. tickAccount logs its per-account errors and returns nil, so one
// account's failure never cancels the others mid-sweep.
func (m *Manager) Tick(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, acct := range m.Accounts {
		if !acct.Active {
			continue
		}
		acct := acct
		g.Go(func() error {
			return m.tickAccount(gctx, acct)
		})
	}
	return g.Wait()
}

func (m *Manager) tickAccount(ctx context.Context, acct domain.Account) error {
	cli, ok := m.Clients.Get(acct.Name)
	if !ok {
		return nil
	}
	positions, err := cli.PositionsGet(ctx, 0)
	if err != nil {
		logx.Error("manager.positions_get", "account=%s: %v", acct.Name, err)
		return nil
	}

	byTicket := make(map[int64]mt5.Position, len(positions))
	for _, p := range positions {
		if p.Magic != 0 && p.Magic != magicNumber {
			continue
		}
		byTicket[p.Ticket] = p
	}

	bucket := m.Registry.Bucket(acct.Name)
	for ticket, mt := range bucket {
		if _, stillOpen := byTicket[ticket]; !stillOpen {
			delete(bucket, ticket)
			m.emit(ctx, domain.TradeEvent{Type: domain.EventClosed, Account: acct.Name, Ticket: ticket, Symbol: mt.Symbol, Timestamp: m.Now()})
		}
	}
	for ticket, pos := range byTicket {
		if _, tracked := bucket[ticket]; !tracked {
			// Unknown-to-us position: the executor does not register the
			// trades it opens, so both a trade just opened by this process
			// and a restart-time discovery arrive here. It is registered
			// with no TPs, grouped under its own ticket, and handled by the
			// account's trading mode below like any other position.
			mtrade := domain.NewManagedTrade(acct.Name, pos.Symbol, ticket, ticket, dirOf(pos.Type))
			mtrade.EntryPrice = pos.PriceOpen
			mtrade.InitialVolume = pos.Volume
			mtrade.PlannedSL = pos.SL
			bucket[ticket] = mtrade
		}
	}

	si := make(map[string]mt5.SymbolInfo)
	for ticket, pos := range byTicket {
		mtrade := bucket[ticket]
		if mtrade.EntryPrice == 0 {
			mtrade.EntryPrice = pos.PriceOpen
		}
		if mtrade.InitialVolume == 0 {
			mtrade.InitialVolume = pos.Volume
		}
		info, ok := si[pos.Symbol]
		if !ok {
			var err error
			info, err = cli.SymbolInfo(ctx, pos.Symbol)
			if err != nil {
				logx.Error("manager.symbol_info", "account=%s symbol=%s: %v", acct.Name, pos.Symbol, err)
				continue
			}
			si[pos.Symbol] = info
		}

		switch acct.TradingMode {
		case domain.ModeBEPips:
			m.tickBEPips(ctx, acct, pos, mtrade, info)
		case domain.ModeBEPnL:
			m.tickBEPnL(ctx, acct, pos, mtrade, info)
		case domain.ModeReentry:
			m.tickReentry(ctx, acct, pos, mtrade, info)
		default:
			m.tickGeneral(ctx, acct, pos, mtrade, info)
		}

		if acct.EnableAddon {
			m.tickAddon(ctx, acct, pos, mtrade, info)
		}
		if mtrade.TPs == nil && isToroFX(mtrade.ProviderTag) {
			m.tickScalingOut(ctx, acct, pos, mtrade, info)
		}
	}
	return nil
}

func dirOf(t mt5.OrderType) domain.Direction {
	if t == mt5.OrderSell {
		return domain.Sell
	}
	return domain.Buy
}

func isToroFX(providerTag string) bool {
	return providerTag == "torofx" || len(providerTag) >= 7 && providerTag[:7] == "torofx-"
}

func (m *Manager) emit(ctx context.Context, ev domain.TradeEvent) {
	metrics.IncTradeEvent(string(ev.Type))
	switch ev.Type {
	case domain.EventPartialClose:
		metrics.IncPartialClose(ev.Account, ev.Reason)
	case domain.EventBEApplied:
		metrics.IncBEApplied(ev.Account)
	case domain.EventTrailingUpdate:
		metrics.IncTrailingUpdate(ev.Account)
	}
	if m.Events == nil {
		return
	}
	m.Events.Emit(ctx, ev)
}
