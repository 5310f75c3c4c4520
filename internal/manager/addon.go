package manager

import (
	"context"

	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/mt5"
)

// addonTag suffixes the provider tag of every add-on position opened by
// tickAddon, so restart discovery and reporting can tell them apart from
// the original trade.
const addonTag = "-ADDON"

// tickAddon opens a single additional entry at the midpoint between entry
// and SL once price has retraced there, bounded by account.AddonMax and
// excluding trades that are themselves add-ons.
func (m *Manager) tickAddon(ctx context.Context, acct domain.Account, pos mt5.Position, mt *domain.ManagedTrade, si mt5.SymbolInfo) {
	if !acct.EnableAddon || acct.AddonMax <= 0 {
		return
	}
	if len(mt.ProviderTag) >= len(addonTag) && mt.ProviderTag[len(mt.ProviderTag)-len(addonTag):] == addonTag {
		return
	}
	if mt.AddonCount >= acct.AddonMax || mt.AddonDone {
		return
	}
	minSeconds := acct.AddonMinSecFromOpen
	if m.Now().Sub(mt.OpenedTS).Seconds() < minSeconds {
		return
	}
	if mt.PlannedSL == 0 {
		return
	}

	ratio := acct.AddonEntrySLRatio
	if ratio <= 0 {
		ratio = 0.5
	}
	addonLevel := (1-ratio)*mt.EntryPrice + ratio*mt.PlannedSL

	pip := domain.PipSize(pos.Symbol, si.Point)
	buffer := bufferPips * pip
	nearSL := bufferPips * 2 * pip

	distToLevel := absf(pos.PriceCurrent - addonLevel)
	distToSL := absf(pos.PriceCurrent - mt.PlannedSL)
	if distToLevel > buffer || distToSL <= nearSL {
		return
	}

	factor := acct.AddonLotFactor
	if factor <= 0 {
		factor = 1.0
	}
	addVolume := realisedVolume(mt.InitialVolume, factor*100, si)
	if addVolume < si.VolumeMin {
		addVolume = si.VolumeMin
	}
	if si.VolumeMax > 0 && addVolume > si.VolumeMax {
		addVolume = si.VolumeMax
	}

	ticket, err := m.Exec.OpenRunnerTrade(ctx, acct.Name, pos.Symbol, mt.Direction, addVolume, mt.PlannedSL, 0, mt.ProviderTag+addonTag)
	if err != nil {
		return
	}
	addon := domain.NewManagedTrade(acct.Name, pos.Symbol, ticket, mt.GroupID, mt.Direction)
	addon.ProviderTag = mt.ProviderTag + addonTag
	addon.EntryPrice = pos.PriceCurrent
	addon.InitialVolume = addVolume
	addon.PlannedSL = mt.PlannedSL
	m.Registry.Bucket(acct.Name)[ticket] = addon

	mt.AddonCount++
	mt.AddonDone = true
	m.emit(ctx, domain.TradeEvent{Type: domain.EventAddonOpened, Account: acct.Name, Ticket: ticket, Symbol: pos.Symbol, Reason: "addon", Timestamp: m.Now()})
}
