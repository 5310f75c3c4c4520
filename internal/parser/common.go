// Package parser implements the ordered, format-specific signal parsers.
// Each parser exposes a fast substring precondition before attempting a
// full regex-based extraction, in the small, single-purpose
// numeric-helper style used throughout this codebase.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/chidi150c/coretrader/internal/domain"
)

// Parser is implemented by every format-specific signal extractor.
type Parser interface {
	FormatTag() string
	Parse(text string) (*domain.ParseResult, bool)
}

var (
	reBuy  = regexp.MustCompile(`(?i)\b(buy|compra|long)\b`)
	reSell = regexp.MustCompile(`(?i)\b(sell|venta|short)\b`)

	// "4457-4460", "4457 - 4460", "4457/4460"
	reRange = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[-/]\s*(\d+(?:\.\d+)?)`)

	reSL  = regexp.MustCompile(`(?i)\bSL[:\s]+(\d+(?:\.\d+)?)`)
	reTP  = regexp.MustCompile(`(?i)\bTP\s*\d*[:\s]+(\d+(?:\.\d+)?)`)
	reAt  = regexp.MustCompile(`@\s*(\d+(?:\.\d+)?)`)

	// Known aliases, matched case-insensitively.
	reSymbolAlias = regexp.MustCompile(`(?i)\b(XAUUSD|XAGUSD|GOLD|ORO|XAU)\b`)
	// A generic 6-letter forex pair token. Case-sensitive (all-caps) so
	// ordinary 6-letter English words in the message body don't false-match.
	reSymbolPair = regexp.MustCompile(`\b[A-Z]{6}\b`)
)

// direction returns the first BUY/SELL keyword found in text.
func direction(text string) (domain.Direction, bool) {
	if loc := reBuy.FindStringIndex(text); loc != nil {
		if sloc := reSell.FindStringIndex(text); sloc != nil && sloc[0] < loc[0] {
			return domain.Sell, true
		}
		return domain.Buy, true
	}
	if reSell.MatchString(text) {
		return domain.Sell, true
	}
	return "", false
}

func symbol(text string) (string, bool) {
	aliasLoc := reSymbolAlias.FindStringIndex(text)
	pairLoc := reSymbolPair.FindStringIndex(text)
	switch {
	case aliasLoc == nil && pairLoc == nil:
		return "", false
	case aliasLoc == nil:
		return domain.NormalizeSymbol(text[pairLoc[0]:pairLoc[1]]), true
	case pairLoc == nil:
		return domain.NormalizeSymbol(text[aliasLoc[0]:aliasLoc[1]]), true
	case aliasLoc[0] <= pairLoc[0]:
		return domain.NormalizeSymbol(text[aliasLoc[0]:aliasLoc[1]]), true
	default:
		return domain.NormalizeSymbol(text[pairLoc[0]:pairLoc[1]]), true
	}
}

// entryRange looks for the first "lo-hi" pair anywhere in text and returns
// it ordered ascending as a two-element pair.
func entryRange(text string) (*domain.PriceRange, bool) {
	m := reRange.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	a, err1 := strconv.ParseFloat(m[1], 64)
	b, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return nil, false
	}
	if a > b {
		a, b = b, a
	}
	return &domain.PriceRange{Lo: a, Hi: b}, true
}

func hintPrice(text string) (float64, bool) {
	m := reAt.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func stopLoss(text string) (float64, bool) {
	m := reSL.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func takeProfits(text string) []float64 {
	matches := reTP.FindAllStringSubmatch(text, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func containsFold(text, substr string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(substr))
}
