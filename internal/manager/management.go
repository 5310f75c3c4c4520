package manager

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/router"
)

// torofxCloseEntryTolerancePips bounds how close a ticket's price_open must
// be to a named price for a ToroFX close-specific-entry instruction to
// match it.
const torofxCloseEntryTolerancePips = 5.0

// torofxPartialMinPips is the profit threshold, in pips, that every ToroFX
// partial instruction requires before it closes 50% of a trade. Numbers in
// the message text are not read: neither the threshold nor the percentage
// can be set by the message.
const torofxPartialMinPips = 20.0

var priceRe = regexp.MustCompile(`\d+(\.\d+)?`)

// MgmtMessage is the decoded payload of one mgmt_messages entry.
type MgmtMessage struct {
	ChatID       int64
	Text         string
	ProviderHint router.ProviderHint
}

// HandleManagement dispatches a mgmt_messages entry to the matching
// provider-specific handler, acting across every active account's matching
// trades.
func (m *Manager) HandleManagement(ctx context.Context, msg MgmtMessage) {
	switch msg.ProviderHint {
	case router.ProviderToroFX:
		m.handleToroFX(ctx, msg.Text)
	case router.ProviderHannah:
		m.handleHannah(ctx, msg.Text)
	case router.ProviderGoldBrothers:
		// pass-through: future hooks exposed but no automated action.
	}
}

// forEachProviderTrade iterates every active account's live positions and
// invokes fn for each tracked ManagedTrade whose provider tag matches
// prefix, passing the live position snapshot alongside it.
func (m *Manager) forEachProviderTrade(ctx context.Context, prefix string, fn func(acct domain.Account, pos positionView, mt *domain.ManagedTrade)) {
	for _, acct := range m.Accounts {
		if !acct.Active {
			continue
		}
		cli, ok := m.Clients.Get(acct.Name)
		if !ok {
			continue
		}
		positions, err := cli.PositionsGet(ctx, 0)
		if err != nil {
			continue
		}
		bucket := m.Registry.Bucket(acct.Name)
		for _, pos := range positions {
			mt, tracked := bucket[pos.Ticket]
			if !tracked || !strings.HasPrefix(mt.ProviderTag, prefix) {
				continue
			}
			fn(acct, positionView{Ticket: pos.Ticket, Symbol: pos.Symbol, PriceOpen: pos.PriceOpen, PriceCurrent: pos.PriceCurrent, Profit: pos.Profit}, mt)
		}
	}
}

// positionView is the subset of mt5.Position the management handlers need,
// kept separate from mt5.Position so this file doesn't need to import mt5
// just to read four fields.
type positionView struct {
	Ticket       int64
	Symbol       string
	PriceOpen    float64
	PriceCurrent float64
	Profit       float64
}

func (m *Manager) handleToroFX(ctx context.Context, text string) {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "asegurando profits") || strings.Contains(lower, "quitando riesgo") || strings.Contains(lower, "be ya"):
		m.forEachProviderTrade(ctx, "torofx", func(acct domain.Account, pos positionView, mt *domain.ManagedTrade) {
			if mt.DoneOnce("TOROFX_BE") {
				return
			}
			if ok, err := m.Exec.ModifySL(ctx, acct.Name, pos.Ticket, mt.EntryPrice, "torofx_be", mt.ProviderTag); err == nil && ok {
				m.emit(ctx, domain.TradeEvent{Type: domain.EventBEApplied, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "torofx_be", Timestamp: m.Now()})
			}
		})

	case strings.Contains(lower, "cierra parcial"):
		m.forEachProviderTrade(ctx, "torofx", func(acct domain.Account, pos positionView, mt *domain.ManagedTrade) {
			if mt.DoneOnce("TOROFX_PARTIAL") {
				return
			}
			profitPips := domain.SignedProgressPips(pos.Symbol, 1, mt.Direction, mt.EntryPrice, pos.PriceCurrent)
			if profitPips < torofxPartialMinPips {
				return
			}
			if ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, 50); err == nil && ok {
				m.emit(ctx, domain.TradeEvent{Type: domain.EventPartialClose, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "torofx_partial", Timestamp: m.Now()})
			}
		})

	case strings.Contains(lower, "cerrar entrada"):
		targets := priceRe.FindAllString(lower, -1)
		if len(targets) == 0 {
			return
		}
		closePrice, _ := strconv.ParseFloat(targets[0], 64)
		var keepPrice float64
		if idx := strings.Index(lower, "mantener entrada"); idx >= 0 {
			if m2 := priceRe.FindString(lower[idx:]); m2 != "" {
				keepPrice, _ = strconv.ParseFloat(m2, 64)
			}
		}
		m.forEachProviderTrade(ctx, "torofx", func(acct domain.Account, pos positionView, mt *domain.ManagedTrade) {
			key := "TOROFX_CLOSE_ENTRY_" + targets[0]
			if mt.DoneOnce(key) {
				return
			}
			if keepPrice != 0 && domain.PriceToPips(pos.Symbol, 1, absf(pos.PriceOpen-keepPrice)) < torofxCloseEntryTolerancePips {
				return
			}
			if domain.PriceToPips(pos.Symbol, 1, absf(pos.PriceOpen-closePrice)) > torofxCloseEntryTolerancePips {
				return
			}
			if ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, 100); err == nil && ok {
				m.emit(ctx, domain.TradeEvent{Type: domain.EventClosed, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "torofx_close_entry", Timestamp: m.Now()})
			}
		})
	}
}

func (m *Manager) handleHannah(ctx context.Context, text string) {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "close all"):
		m.forEachProviderTrade(ctx, "hannah", func(acct domain.Account, pos positionView, mt *domain.ManagedTrade) {
			if mt.DoneOnce("HANNAH_CLOSE_ALL") {
				return
			}
			if ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, 100); err == nil && ok {
				m.emit(ctx, domain.TradeEvent{Type: domain.EventClosed, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "hannah_close_all", Timestamp: m.Now()})
			}
		})

	case strings.Contains(lower, "close half"):
		m.forEachProviderTrade(ctx, "hannah", func(acct domain.Account, pos positionView, mt *domain.ManagedTrade) {
			if mt.DoneOnce("HANNAH_CLOSE_HALF") {
				return
			}
			if ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, 50); err == nil && ok {
				m.emit(ctx, domain.TradeEvent{Type: domain.EventPartialClose, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "hannah_close_half", Timestamp: m.Now()})
			}
		})

	case strings.Contains(lower, "secure half"):
		m.forEachProviderTrade(ctx, "hannah", func(acct domain.Account, pos positionView, mt *domain.ManagedTrade) {
			if mt.DoneOnce("HANNAH_SECURE_HALF") {
				return
			}
			if mt.HasHitTP(1) {
				return
			}
			adverse := (mt.Direction == domain.Buy && pos.PriceCurrent < mt.EntryPrice) ||
				(mt.Direction == domain.Sell && pos.PriceCurrent > mt.EntryPrice)
			if adverse {
				if ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, 100); err == nil && ok {
					m.emit(ctx, domain.TradeEvent{Type: domain.EventClosed, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "hannah_secure_half_adverse_close", Timestamp: m.Now()})
				}
				return
			}
			if ok, err := m.Exec.PartialClose(ctx, acct.Name, pos.Ticket, 50); err == nil && ok {
				_, _ = m.Exec.ModifySL(ctx, acct.Name, pos.Ticket, mt.EntryPrice, "hannah_secure_half", mt.ProviderTag)
				m.emit(ctx, domain.TradeEvent{Type: domain.EventPartialClose, Account: acct.Name, Ticket: pos.Ticket, Symbol: pos.Symbol, Reason: "hannah_secure_half", Timestamp: m.Now()})
			}
		})
	}
}
