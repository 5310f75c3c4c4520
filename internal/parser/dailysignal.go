package parser

import "github.com/chidi150c/coretrader/internal/domain"

// DailySignal parses the generic "<SYMBOL> <SIDE>\nEntry: lo-hi\nSL: x\n
// TP1: y\nTP2: z" layout and is the first parser tried in the fixed
// fallback order. Scenario S4's complete follow-up
// signal ("ORO BUY Entry: 2500-2505, SL: 2490, TP1: 2515, TP2: 2530")
// matches this shape.
type DailySignal struct{}

func (DailySignal) FormatTag() string { return "daily_signal" }

func (DailySignal) canAttempt(text string) bool {
	return containsFold(text, "entry")
}

func (d DailySignal) Parse(text string) (*domain.ParseResult, bool) {
	if !d.canAttempt(text) {
		return nil, false
	}
	sym, ok := symbol(text)
	if !ok {
		return nil, false
	}
	dir, ok := direction(text)
	if !ok {
		return nil, false
	}
	rng, hasRange := entryRange(text)
	hint, hasHint := hintPrice(text)
	if !hasRange && !hasHint {
		// Precondition matched ("entry") but the required price field is
		// missing: must return null, not a partial result.
		return nil, false
	}
	sl, _ := stopLoss(text)
	tps := takeProfits(text)

	return &domain.ParseResult{
		FormatTag:   d.FormatTag(),
		ProviderTag: "generic",
		Symbol:      sym,
		Direction:   dir,
		EntryRange:  rng,
		HintPrice:   hint,
		SL:          sl,
		TPs:         tps,
	}, true
}
