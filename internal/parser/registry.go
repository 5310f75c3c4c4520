package parser

import (
	"strings"

	"github.com/chidi150c/coretrader/internal/domain"
)

// Registry holds every parser keyed by format tag and encodes the
// deterministic dispatch pipeline.
type Registry struct {
	byTag map[string]Parser
	order []Parser // fixed fallback order: DailySignal, ToroFX, Scalp, Long, Fast, Hannah, Limitless
}

// NewRegistry builds the standard registry with every parser wired in.
func NewRegistry() *Registry {
	order := []Parser{DailySignal{}, ToroFX{}, Scalp{}, Long{}, Fast{}, Hannah{}, Limitless{}}
	byTag := make(map[string]Parser, len(order))
	for _, p := range order {
		byTag[p.FormatTag()] = p
	}
	return &Registry{byTag: byTag, order: order}
}

// Dispatch runs the priority rules:
//  1. "risk price" (case-insensitive) -> Limitless exclusively.
//  2. "target: open" -> ToroFX exclusively.
//  3. Hannah.
//  4. The channel's configured parser list; if none configured, the fixed
//     fallback order.
//
// The first parser to return a non-null result wins.
func (r *Registry) Dispatch(text string, channelParsers []string) (*domain.ParseResult, bool) {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "risk price") {
		return Limitless{}.Parse(text)
	}
	if strings.Contains(lower, "target: open") {
		return ToroFX{}.Parse(text)
	}
	if pr, ok := (Hannah{}).Parse(text); ok {
		return pr, true
	}

	candidates := r.order
	if len(channelParsers) > 0 {
		candidates = make([]Parser, 0, len(channelParsers))
		for _, tag := range channelParsers {
			if p, ok := r.byTag[tag]; ok {
				candidates = append(candidates, p)
			}
		}
	}
	for _, p := range candidates {
		if pr, ok := p.Parse(text); ok {
			return pr, true
		}
	}
	return nil, false
}
