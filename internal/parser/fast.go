package parser

import "github.com/chidi150c/coretrader/internal/domain"

// Fast parses urgent, directional-only signals with no SL/TP, e.g.
// "Compra ORO ahora @2500".
type Fast struct{}

func (Fast) FormatTag() string { return "fast" }

var fastMarkers = []string{"ahora", "now", "market", "ya"}

func (Fast) canAttempt(text string) bool {
	for _, m := range fastMarkers {
		if containsFold(text, m) {
			return true
		}
	}
	return false
}

func (f Fast) Parse(text string) (*domain.ParseResult, bool) {
	if !f.canAttempt(text) {
		return nil, false
	}
	// A FAST signal is directional and urgent with no SL/TP: if either is
	// present this is a complete signal, not FAST, so defer to other
	// parsers rather than return a partial FAST match.
	if _, hasSL := stopLoss(text); hasSL {
		return nil, false
	}
	if len(takeProfits(text)) > 0 {
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
	hint, hasHint := hintPrice(text)
	if !hasHint {
		return nil, false
	}
	return &domain.ParseResult{
		FormatTag:   f.FormatTag(),
		ProviderTag: "generic",
		Symbol:      sym,
		Direction:   dir,
		HintPrice:   hint,
		IsFast:      true,
	}, true
}
