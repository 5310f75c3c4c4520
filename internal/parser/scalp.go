package parser

import "github.com/chidi150c/coretrader/internal/domain"

// Scalp parses short-horizon signals explicitly tagged "SCALP".
type Scalp struct{}

func (Scalp) FormatTag() string { return "scalp" }

func (Scalp) canAttempt(text string) bool {
	return containsFold(text, "scalp")
}

func (s Scalp) Parse(text string) (*domain.ParseResult, bool) {
	if !s.canAttempt(text) {
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
		FormatTag:   s.FormatTag(),
		ProviderTag: "scalp",
		Symbol:      sym,
		Direction:   dir,
		EntryRange:  rng,
		HintPrice:   hint,
		SL:          sl,
		TPs:         tps,
	}, true
}
