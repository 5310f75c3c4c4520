package manager

import (
	"context"

	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/mt5"
)

// defaultTrailingLastTramoPips is the retrace distance from the post-tramo-3
// peak that closes the remainder.
const defaultTrailingLastTramoPips = 40.0

// tickScalingOut implements fixed-pip scaling-out for TP-less providers
// (ToroFX): close scaling_percent_per_tramo at every scaling_tramo_pips of
// favourable progress, moving SL to BE after tramo 1 and arming a
// dedicated trailing stop after tramo 3.
func (m *Manager) tickScalingOut(ctx context.Context, acct domain.Account, pos mt5.Position, mt *domain.ManagedTrade, si mt5.SymbolInfo) {
	spacingPips := m.Cfg.ScalingTramoPips
	if spacingPips <= 0 {
		spacingPips = 40
	}
	percentPerTramo := m.Cfg.ScalingPercentPerTramo
	if percentPerTramo <= 0 {
		percentPerTramo = 25
	}

	progress := domain.SignedProgressPips(pos.Symbol, si.Point, mt.Direction, mt.EntryPrice, pos.PriceCurrent)
	if progress > domain.SignedProgressPips(pos.Symbol, si.Point, mt.Direction, mt.EntryPrice, mt.ScalingPeakPrice) || mt.ScalingPeakPrice == 0 {
		mt.ScalingPeakPrice = pos.PriceCurrent
	}

	tramoNow := int(progress / spacingPips)
	if tramoNow > 3 {
		tramoNow = 3
	}

	for mt.ScalingTramoClosed < tramoNow {
		next := mt.ScalingTramoClosed + 1
		key := tramoKey(next)
		if mt.DoneOnce(key) {
			mt.ScalingTramoClosed = next
			continue
		}
		ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, percentPerTramo)
		if err != nil || !ok {
			break
		}
		mt.ScalingTramoClosed = next
		m.emit(ctx, domain.TradeEvent{Type: domain.EventPartialClose, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: key, Timestamp: m.Now()})

		switch next {
		case 1:
			mt.ScalingTramo1Price = pos.PriceCurrent
			m.applyBE(ctx, acct, pos, mt, si, "scaling_tramo1")
		case 3:
			if ok, err := m.Exec.ModifySL(ctx, acct.Name, pos.Ticket, mt.ScalingTramo1Price, "scaling_tramo3", mt.ProviderTag); err == nil && ok {
				m.emit(ctx, domain.TradeEvent{Type: domain.EventBEApplied, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "scaling_tramo3", Timestamp: m.Now()})
			}
		}
	}

	if mt.ScalingTramoClosed >= 3 {
		retrace := domain.SignedProgressPips(pos.Symbol, si.Point, mt.Direction, pos.PriceCurrent, mt.ScalingPeakPrice)
		if retrace >= defaultTrailingLastTramoPips {
			if ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, 100); err == nil && ok {
				m.emit(ctx, domain.TradeEvent{Type: domain.EventPartialClose, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "scaling_trailing_close", Timestamp: m.Now()})
			}
		}
	}
}

func tramoKey(n int) string {
	switch n {
	case 1:
		return "scaling_tramo1"
	case 2:
		return "scaling_tramo2"
	default:
		return "scaling_tramo3"
	}
}
