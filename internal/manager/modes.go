package manager

import (
	"context"
	"math"
	"time"

	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/mt5"
)

// reentryGraceWindow bounds how long after TP1 closes the full original
// trade a momentum-filter-checked runner may still be opened
//.
const reentryGraceWindow = 3 * time.Second

// tickBEPips implements be_pips mode: once favourable pip progress reaches
// account.BEPips, close 30% and move SL to break-even exactly once, then
// fall through to general-mode TP/trailing handling.
func (m *Manager) tickBEPips(ctx context.Context, acct domain.Account, pos mt5.Position, mt *domain.ManagedTrade, si mt5.SymbolInfo) {
	if len(mt.TPs) == 0 {
		m.tickGeneral(ctx, acct, pos, mt, si)
		return
	}
	progress := domain.SignedProgressPips(pos.Symbol, si.Point, mt.Direction, mt.EntryPrice, pos.PriceCurrent)
	threshold := acct.BEPips
	if threshold <= 0 {
		threshold = 50
	}
	if progress >= threshold && !mt.ActionsDone["be_pips_fired"] {
		mt.ActionsDone["be_pips_fired"] = true
		if ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, 30); err == nil && ok {
			m.emit(ctx, domain.TradeEvent{Type: domain.EventPartialClose, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "be_pips", Timestamp: m.Now()})
		}
		m.applyBE(ctx, acct, pos, mt, si, "pips")
	}
	m.tickGeneral(ctx, acct, pos, mt, si)
}

// tickBEPnL implements be_pnl mode: same trigger as be_pips, but on fire
// the SL is placed so that, if hit, the residual loss exactly offsets the
// profit already realised by the 30% partial close (decided gross of
// spread/commission).
func (m *Manager) tickBEPnL(ctx context.Context, acct domain.Account, pos mt5.Position, mt *domain.ManagedTrade, si mt5.SymbolInfo) {
	if len(mt.TPs) == 0 {
		m.tickGeneral(ctx, acct, pos, mt, si)
		return
	}
	progress := domain.SignedProgressPips(pos.Symbol, si.Point, mt.Direction, mt.EntryPrice, pos.PriceCurrent)
	threshold := acct.BEPips
	if threshold <= 0 {
		threshold = 50
	}
	if progress >= threshold && !mt.ActionsDone["be_pnl_fired"] {
		mt.ActionsDone["be_pnl_fired"] = true
		partialVolume := realisedVolume(pos.Volume, 30, si)
		profitOfPartial := (pos.PriceCurrent - mt.EntryPrice) * partialVolume
		if mt.Direction == domain.Sell {
			profitOfPartial = (mt.EntryPrice - pos.PriceCurrent) * partialVolume
		}

		if ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, 30); err == nil && ok {
			m.emit(ctx, domain.TradeEvent{Type: domain.EventPartialClose, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "be_pnl", Timestamp: m.Now()})
		}

		residualLot := pos.Volume - partialVolume
		sl := breakevenPnLPrice(mt.Direction, mt.EntryPrice, profitOfPartial, residualLot)
		sl = clampAgainstStopsLevel(mt.Direction, pos.PriceCurrent, sl, si)
		if ok, err := m.Exec.ModifySL(ctx, acct.Name, pos.Ticket, sl, "be_pnl", mt.ProviderTag); err == nil && ok {
			m.emit(ctx, domain.TradeEvent{Type: domain.EventBEApplied, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "be_pnl", Timestamp: m.Now()})
		}
	}
	m.tickGeneral(ctx, acct, pos, mt, si)
}

// breakevenPnLPrice solves (sl - entry) * residualLot = -profitOfPartial
// for a BUY (loss on the residual exactly offsets the already-realised
// profit), and its mirror for a SELL.
func breakevenPnLPrice(dir domain.Direction, entry, profitOfPartial, residualLot float64) float64 {
	if residualLot <= 0 {
		return entry
	}
	delta := profitOfPartial / residualLot
	if dir == domain.Buy {
		return entry - delta
	}
	return entry + delta
}

func realisedVolume(current, percent float64, si mt5.SymbolInfo) float64 {
	step := si.VolumeStep
	raw := current * percent / 100
	if step <= 0 {
		return raw
	}
	n := math.Floor(raw/step + stepEpsilon)
	return n * step
}

// tickReentry implements reentry mode: on TP1 reached, close the original
// trade fully and, within the grace window (and not vetoed by an optional
// momentum filter), open a runner at 30% of the original volume with SL at
// the original entry and TP at TP2.
func (m *Manager) tickReentry(ctx context.Context, acct domain.Account, pos mt5.Position, mt *domain.ManagedTrade, si mt5.SymbolInfo) {
	if len(mt.TPs) == 0 || mt.DoneOnce("reentry") {
		return
	}
	pip := domain.PipSize(pos.Symbol, si.Point)
	buffer := bufferPips * pip
	tp1 := mt.TPs[0]
	reached := (mt.Direction == domain.Buy && pos.PriceCurrent >= tp1-buffer) ||
		(mt.Direction == domain.Sell && pos.PriceCurrent <= tp1+buffer)
	if !reached {
		return
	}

	mt.ReentryTP1Time = m.Now()
	if ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, 100); err != nil || !ok {
		return
	}
	m.emit(ctx, domain.TradeEvent{Type: domain.EventPartialClose, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "reentry_tp1", Timestamp: m.Now()})

	if m.Now().Sub(mt.ReentryTP1Time) > reentryGraceWindow {
		return
	}
	if m.MomentumFilter != nil && !m.MomentumFilter(acct.Name, pos.Symbol, mt.Direction) {
		return
	}

	volume := realisedVolume(mt.InitialVolume, 30, si)
	if volume < si.VolumeMin {
		volume = si.VolumeMin
	}
	var tp float64
	if len(mt.TPs) >= 2 {
		tp = mt.TPs[1]
	}
	ticket, err := m.Exec.OpenRunnerTrade(ctx, acct.Name, pos.Symbol, mt.Direction, volume, mt.EntryPrice, tp, mt.ProviderTag+"_REENTRY")
	if err != nil {
		return
	}
	runner := domain.NewManagedTrade(acct.Name, pos.Symbol, ticket, mt.GroupID, mt.Direction)
	runner.ProviderTag = mt.ProviderTag + "_REENTRY"
	runner.EntryPrice = mt.EntryPrice
	runner.InitialVolume = volume
	runner.PlannedSL = mt.EntryPrice
	m.Registry.Bucket(acct.Name)[ticket] = runner
	m.emit(ctx, domain.TradeEvent{Type: domain.EventAddonOpened, Account: acct.Name, Ticket: ticket, Symbol: pos.Symbol, Reason: "reentry", Timestamp: m.Now()})
}
