package parser

import "github.com/chidi150c/coretrader/internal/domain"

// Long parses longer-horizon signals explicitly tagged "SWING" or
// "LONG TERM" and carrying three or more take-profits, which the trade
// manager treats as long_mode.
type Long struct{}

func (Long) FormatTag() string { return "long" }

func (Long) canAttempt(text string) bool {
	return containsFold(text, "swing") || containsFold(text, "long term")
}

func (lg Long) Parse(text string) (*domain.ParseResult, bool) {
	if !lg.canAttempt(text) {
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
		return nil, false
	}
	sl, _ := stopLoss(text)
	tps := takeProfits(text)

	return &domain.ParseResult{
		FormatTag:   lg.FormatTag(),
		ProviderTag: "generic",
		Symbol:      sym,
		Direction:   dir,
		EntryRange:  rng,
		HintPrice:   hint,
		SL:          sl,
		TPs:         tps,
	}, true
}
