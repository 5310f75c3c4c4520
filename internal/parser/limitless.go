package parser

import "github.com/chidi150c/coretrader/internal/domain"

// Limitless parses the "risk price" layout. This parser runs exclusively
// whenever the text contains "risk price", case-insensitive, ahead of
// every other rule.
type Limitless struct{}

func (Limitless) FormatTag() string { return "limitless" }

func (Limitless) canAttempt(text string) bool {
	return containsFold(text, "risk price")
}

func (l Limitless) Parse(text string) (*domain.ParseResult, bool) {
	if !l.canAttempt(text) {
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
	sl, hasSL := stopLoss(text)
	if !hasSL {
		return nil, false
	}
	rng, hasRange := entryRange(text)
	hint, hasHint := hintPrice(text)
	if !hasRange && !hasHint {
		return nil, false
	}
	tps := takeProfits(text)

	return &domain.ParseResult{
		FormatTag:   l.FormatTag(),
		ProviderTag: "limitless",
		Symbol:      sym,
		Direction:   dir,
		EntryRange:  rng,
		HintPrice:   hint,
		SL:          sl,
		TPs:         tps,
	}, true
}
