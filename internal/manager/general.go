package manager

import (
	"context"
	"fmt"
	"math"

	"github.com/chidi150c/coretrader/internal/config"
	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/mt5"
)

// tickGeneral implements general mode: TP-driven partial
// closes with BE-on-TP1 and runner-enable-on-TP2, runner retrace close, and
// independent trailing.
func (m *Manager) tickGeneral(ctx context.Context, acct domain.Account, pos mt5.Position, mt *domain.ManagedTrade, si mt5.SymbolInfo) {
	progressPips := domain.SignedProgressPips(pos.Symbol, si.Point, mt.Direction, mt.EntryPrice, pos.PriceCurrent)
	if progressPips > domain.SignedProgressPips(pos.Symbol, si.Point, mt.Direction, mt.EntryPrice, mt.MFEPeakPrice) || mt.MFEPeakPrice == 0 {
		mt.MFEPeakPrice = pos.PriceCurrent
	}

	m.checkTPs(ctx, acct, pos, mt, si)

	if mt.RunnerEnabled {
		retraceFromPeak := domain.SignedProgressPips(pos.Symbol, si.Point, mt.Direction, pos.PriceCurrent, mt.MFEPeakPrice)
		retraceLimit := acct.RunnerRetracePips
		if retraceLimit <= 0 {
			retraceLimit = 50
		}
		if retraceFromPeak >= retraceLimit {
			if ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, 100); err == nil && ok {
				m.emit(ctx, domain.TradeEvent{Type: domain.EventPartialClose, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "runner_retrace", Timestamp: m.Now()})
			}
			return
		}
	}

	m.checkTrailing(ctx, acct, pos, mt, si)
}

// checkTPs evaluates every not-yet-hit TP index against the current price,
// issues the corresponding partial close, and applies the BE/runner-enable
// side effects of TP1/TP2.
func (m *Manager) checkTPs(ctx context.Context, acct domain.Account, pos mt5.Position, mt *domain.ManagedTrade, si mt5.SymbolInfo) {
	pip := domain.PipSize(pos.Symbol, si.Point)
	buffer := bufferPips * pip

	for i, tp := range mt.TPs {
		idx := i + 1
		if mt.HasHitTP(idx) {
			continue
		}
		reached := false
		if mt.Direction == domain.Buy {
			reached = pos.PriceCurrent >= tp-buffer
		} else {
			reached = pos.PriceCurrent <= tp+buffer
		}
		if !reached {
			continue
		}

		percent := tpPercent(m.Cfg, mt, idx)
		realisedPercent := realisedClosePercent(pos.Volume, percent, si)

		ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, realisedPercent)
		if err != nil || !ok {
			continue
		}
		mt.MarkTPHit(idx)
		m.emit(ctx, domain.TradeEvent{Type: domain.EventPartialClose, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: fmt.Sprintf("tp%d", idx), Timestamp: m.Now()})

		if idx == 1 {
			m.applyBE(ctx, acct, pos, mt, si, "tp1")
		}
		if idx == 2 && mt.IsLongMode() {
			mt.RunnerEnabled = true
		}
	}
}

// tpPercent picks the configured close percentage for TP index idx: the
// first two TPs use the long/scalp schedule from config (30/30 long and
// 50/100 scalp when a setting is unset), anything beyond closes the
// remainder.
func tpPercent(cfg config.Config, mt *domain.ManagedTrade, idx int) float64 {
	pick := func(v, def float64) float64 {
		if v > 0 {
			return v
		}
		return def
	}
	switch {
	case idx >= 3:
		return 100
	case idx == 1:
		if mt.IsLongMode() {
			return pick(cfg.LongTP1Percent, 30)
		}
		return pick(cfg.ScalpTP1Percent, 50)
	case idx == 2:
		if mt.IsLongMode() {
			return pick(cfg.LongTP2Percent, 30)
		}
		return pick(cfg.ScalpTP2Percent, 100)
	}
	return 100
}

// realisedClosePercent floors percent of the current position volume to
// volume_step and promotes to 100% if the residual would fall below
// volume_min, mirroring the executor's own partial-close flooring: the
// realised percentage, not the requested one, is recorded.
// stepEpsilon absorbs float64 division noise around the volume_step floor
// (percentages round-trip through a second division in the executor, so a
// value that should land exactly on a step boundary must not lose a whole
// step to floating-point noise).
const stepEpsilon = 1e-8

func realisedClosePercent(currentVolume, percent float64, si mt5.SymbolInfo) float64 {
	step := si.VolumeStep
	if step <= 0 {
		return percent
	}
	raw := currentVolume * percent / 100
	n := math.Floor(raw/step + stepEpsilon)
	floored := n * step
	if floored <= 0 {
		return 100
	}
	residual := currentVolume - floored
	if residual > 0 && residual < si.VolumeMin {
		return 100
	}
	return floored / currentVolume * 100
}

// checkTrailing applies the independent trailing-stop rule once trailing
// is enabled and either the profit threshold is met or the runner has been
// enabled.
func (m *Manager) checkTrailing(ctx context.Context, acct domain.Account, pos mt5.Position, mt *domain.ManagedTrade, si mt5.SymbolInfo) {
	if !acct.EnableTrailing {
		return
	}
	pip := domain.PipSize(pos.Symbol, si.Point)
	progress := domain.SignedProgressPips(pos.Symbol, si.Point, mt.Direction, mt.EntryPrice, pos.PriceCurrent)
	activation := acct.TrailingActivation
	if activation <= 0 {
		activation = 100
	}
	if progress < activation && !mt.RunnerEnabled {
		return
	}

	stopPips := acct.TrailingStopPips
	if stopPips <= 0 {
		stopPips = 50
	}
	minChangePips := acct.TrailingMinChange
	if minChangePips <= 0 {
		minChangePips = 10
	}
	cooldown := acct.TrailingCooldownSec
	if cooldown <= 0 {
		cooldown = 20
	}
	if !mt.LastTrailingTS.IsZero() && m.Now().Sub(mt.LastTrailingTS).Seconds() < cooldown {
		return
	}

	var newSL float64
	if mt.Direction == domain.Buy {
		newSL = pos.PriceCurrent - stopPips*pip
	} else {
		newSL = pos.PriceCurrent + stopPips*pip
	}

	changePips := domain.PriceToPips(pos.Symbol, si.Point, absf(newSL-mt.LastTrailingSL))
	if mt.LastTrailingSL != 0 && changePips < minChangePips {
		return
	}
	if mt.LastTrailingSL != 0 {
		if mt.Direction == domain.Buy && newSL <= mt.LastTrailingSL {
			return
		}
		if mt.Direction == domain.Sell && newSL >= mt.LastTrailingSL {
			return
		}
	}

	if ok, err := m.Exec.ModifySL(ctx, acct.Name, pos.Ticket, newSL, "trailing", mt.ProviderTag); err == nil && ok {
		mt.LastTrailingSL = newSL
		mt.LastTrailingTS = m.Now()
		m.emit(ctx, domain.TradeEvent{Type: domain.EventTrailingUpdate, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Timestamp: m.Now()})
	}
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
