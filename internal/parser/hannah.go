package parser

import "github.com/chidi150c/coretrader/internal/domain"

// Hannah parses the "<SYMBOL> <SIDE> NOW\n@lo-hi\nSL x\nTP1 y\nTP2 z" layout
// used by the Hannah provider.
type Hannah struct{}

func (Hannah) FormatTag() string { return "hannah" }

// Precondition mirrors the "NOW" urgency marker this provider always uses
// alongside an explicit range/SL/TP block; Hannah is dispatched ahead of
// the channel-scoped list regardless of this precondition, so it's only
// used to fast-reject obviously unrelated text before the full extraction
// below.
func (Hannah) canAttempt(text string) bool {
	return containsFold(text, "now") || reRange.MatchString(text)
}

func (h Hannah) Parse(text string) (*domain.ParseResult, bool) {
	if !h.canAttempt(text) {
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
	sl, hasSL := stopLoss(text)
	tps := takeProfits(text)
	if !hasSL || len(tps) == 0 {
		// Hannah's layout always carries an SL/TP block; missing either
		// means this isn't actually a Hannah-formatted message.
		return nil, false
	}

	return &domain.ParseResult{
		FormatTag:   h.FormatTag(),
		ProviderTag: "hannah",
		Symbol:      sym,
		Direction:   dir,
		EntryRange:  rng,
		SL:          sl,
		TPs:         tps,
		HintPrice:   hint,
	}, true
}
