package parser

import "github.com/chidi150c/coretrader/internal/domain"

// ToroFX parses the "target: open" layout. This parser is tried
// exclusively (no other parser is attempted) whenever the text contains
// "target: open"; it is also reachable through the fixed fallback order
// for channels with no parser configured. ToroFX signals frequently carry
// no take-profits at all (managed instead by scaling-out), so TPs are
// optional here.
type ToroFX struct{}

func (ToroFX) FormatTag() string { return "torofx" }

func (ToroFX) canAttempt(text string) bool {
	return containsFold(text, "target: open")
}

func (t ToroFX) Parse(text string) (*domain.ParseResult, bool) {
	if !t.canAttempt(text) {
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
		FormatTag:   t.FormatTag(),
		ProviderTag: "torofx",
		Symbol:      sym,
		Direction:   dir,
		EntryRange:  rng,
		HintPrice:   hint,
		SL:          sl,
		TPs:         tps,
	}, true
}
