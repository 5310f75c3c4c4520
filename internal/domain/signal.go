// Package domain holds the shared wire/record types that flow between the
// router, executor, and trade manager, plus the small methods and helpers
// that go with them (direction, validation, pip and symbol arithmetic, the
// trade registry).
package domain

import "time"

// Direction is the side of a signal or position.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == Buy {
		return Sell
	}
	return Buy
}

// PriceRange is an ordered (lo, hi) pair. Invariant: Lo <= Hi.
type PriceRange struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Signal is the canonical, post-parse representation of a trading intent.
type Signal struct {
	FormatTag     string     `json:"format_tag"`
	ProviderTag   string     `json:"provider_tag"`
	Symbol        string     `json:"symbol"`
	Direction     Direction  `json:"direction"`
	EntryRange    *PriceRange `json:"entry_range,omitempty"`
	SL            float64    `json:"sl,omitempty"`
	TPs           []float64  `json:"tps,omitempty"`
	IsFast        bool       `json:"fast"`
	HintPrice     float64    `json:"hint_price,omitempty"`
	TraceID       string     `json:"trace_id"`
	SourceChannel int64      `json:"source_channel"`
	RawText       string     `json:"raw_text,omitempty"`
}

// Valid checks the invariants every signal must satisfy: symbol/direction
// are present, either EntryRange or HintPrice is present, and Lo <= Hi
// when EntryRange is present.
func (s *Signal) Valid() bool {
	if s.Symbol == "" || (s.Direction != Buy && s.Direction != Sell) {
		return false
	}
	if s.EntryRange == nil && s.HintPrice <= 0 {
		return false
	}
	if s.EntryRange != nil && s.EntryRange.Lo > s.EntryRange.Hi {
		return false
	}
	return true
}

// ParseResult is what an individual parser returns before the router stamps
// TraceID/SourceChannel; it is promoted to a Signal once those are known.
type ParseResult struct {
	FormatTag   string
	ProviderTag string
	Symbol      string
	Direction   Direction
	EntryRange  *PriceRange
	SL          float64
	TPs         []float64
	IsFast      bool
	HintPrice   float64
}

// ToSignal stamps routing metadata onto a ParseResult.
func (p *ParseResult) ToSignal(traceID string, channel int64, raw string) Signal {
	return Signal{
		FormatTag:     p.FormatTag,
		ProviderTag:   p.ProviderTag,
		Symbol:        p.Symbol,
		Direction:     p.Direction,
		EntryRange:    p.EntryRange,
		SL:            p.SL,
		TPs:           append([]float64(nil), p.TPs...),
		IsFast:        p.IsFast,
		HintPrice:     p.HintPrice,
		TraceID:       traceID,
		SourceChannel: channel,
		RawText:       raw,
	}
}

// CommandType discriminates TradeCommand variants (sum-typed): callers
// should switch exhaustively on this field.
type CommandType string

const (
	CmdOpen         CommandType = "open"
	CmdClose        CommandType = "close"
	CmdPartialClose CommandType = "partial_close"
	CmdModifySL     CommandType = "modify_sl"
	CmdBE           CommandType = "be"
	CmdTrailing     CommandType = "trailing"
	CmdAddon        CommandType = "addon"
)

// TradeCommand is routed from the command translator to the executor.
type TradeCommand struct {
	SignalID   string      `json:"signal_id"`
	Type       CommandType `json:"type"`
	Symbol     string      `json:"symbol"`
	Direction  Direction   `json:"direction"`
	EntryRange *PriceRange `json:"entry_range,omitempty"`
	SL         float64     `json:"sl,omitempty"`
	TP         []float64   `json:"tp,omitempty"`
	Accounts   []string    `json:"accounts,omitempty"`
	Volume     float64     `json:"volume,omitempty"`
	Ticket     int64       `json:"ticket,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// EventType discriminates TradeEvent variants published on trade_events.
type EventType string

const (
	EventOpened         EventType = "opened"
	EventOpenError      EventType = "open_error"
	EventEntryNotReached EventType = "entry_not_reached"
	EventOutsideWindow  EventType = "outside_window"
	EventPartialClose   EventType = "partial_close"
	EventBEApplied      EventType = "be_applied"
	EventTrailingUpdate EventType = "trailing_update"
	EventAddonOpened    EventType = "addon_opened"
	EventClosed         EventType = "closed"
)

// TradeEvent is the observer-facing payload published on trade_events.
type TradeEvent struct {
	Type      EventType `json:"type"`
	Account   string    `json:"account,omitempty"`
	Ticket    int64     `json:"ticket,omitempty"`
	Symbol    string    `json:"symbol,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
