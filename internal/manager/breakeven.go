package manager

import (
	"context"
	"time"

	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/mt5"
)

// beRetryAttempts/beRetryInterval bound the wait for the broker to reflect
// a preceding partial close before BE is computed and submitted
//.
const (
	beRetryAttempts = 8
	beRetryInterval = 200 * time.Millisecond
)

// applyBE runs the shared break-even algorithm: wait for the broker to
// settle the preceding partial close, compute the BE price, clamp against
// the broker's minimum stop distance, and submit it. It is idempotent per
// reason key via mt.DoneOnce.
func (m *Manager) applyBE(ctx context.Context, acct domain.Account, pos mt5.Position, mt *domain.ManagedTrade, si mt5.SymbolInfo, reason string) {
	if mt.DoneOnce("be_" + reason) {
		return
	}
	m.waitForBrokerSettle(ctx, acct, pos.Ticket, pos)

	offsetPips := acct.BEOffsetPips
	pip := domain.PipSize(pos.Symbol, si.Point)
	spread := 0.0 // spread is not separately modeled on the position snapshot; offset-only BE.
	var price float64
	if mt.Direction == domain.Buy {
		price = mt.EntryPrice + spread + offsetPips*pip
	} else {
		price = mt.EntryPrice - spread - offsetPips*pip
	}
	price = clampAgainstStopsLevel(mt.Direction, pos.PriceCurrent, price, si)

	if ok, err := m.Exec.ModifySL(ctx, acct.Name, pos.Ticket, price, "be_"+reason, mt.ProviderTag); err == nil && ok {
		m.emit(ctx, domain.TradeEvent{Type: domain.EventBEApplied, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: reason, Timestamp: m.Now()})
	}
}

// waitForBrokerSettle polls positions_get until volume or time_update
// differs from the snapshot already in hand, bounded by beRetryAttempts.
func (m *Manager) waitForBrokerSettle(ctx context.Context, acct domain.Account, ticket int64, before mt5.Position) {
	cli, ok := m.Clients.Get(acct.Name)
	if !ok {
		return
	}
	for i := 0; i < beRetryAttempts; i++ {
		positions, err := cli.PositionsGet(ctx, ticket)
		if err == nil && len(positions) > 0 {
			p := positions[0]
			if p.Volume != before.Volume || !p.TimeUpdate.Equal(before.TimeUpdate) {
				return
			}
		}
		m.Sleep(beRetryInterval)
	}
}

// clampAgainstStopsLevel iteratively shrinks price toward the nearest
// admissible value if it sits closer to the current market price than the
// broker's minimum stop distance allows (max 10 iterations; current and si
// are fixed for the whole loop and the clamp is linear, so the first
// adjustment normally settles it).
func clampAgainstStopsLevel(dir domain.Direction, current, price float64, si mt5.SymbolInfo) float64 {
	minDist := si.StopsLevel * si.Point
	if minDist <= 0 {
		return price
	}
	for i := 0; i < 10; i++ {
		if dir == domain.Buy {
			if current-price >= minDist {
				return price
			}
			price = current - minDist
		} else {
			if price-current >= minDist {
				return price
			}
			price = current + minDist
		}
	}
	return price
}
