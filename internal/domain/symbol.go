// Symbol/pip helpers. Kept small and allocation-light: tight,
// single-purpose numeric functions operating on plain floats rather than
// broker handles.
package domain

import "strings"

// aliases maps known alternate tickers to the canonical broker symbol.
var aliases = map[string]string{
	"ORO":  "XAUUSD",
	"GOLD": "XAUUSD",
	"XAU":  "XAUUSD",
}

// NormalizeSymbol upper-cases and resolves known aliases to the canonical
// broker symbol (ORO/GOLD/XAU -> XAUUSD).
func NormalizeSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if canon, ok := aliases[s]; ok {
		return canon
	}
	return s
}

// IsXAU reports whether symbol is a gold pair (pip semantics differ: 1 pip
// = 0.10 price units for XAU* instead of the broker-reported point size).
func IsXAU(symbol string) bool {
	return strings.HasPrefix(strings.ToUpper(symbol), "XAU")
}

// PipSize returns the price distance of one pip for symbol, given the
// broker-reported point size for non-XAU symbols.
func PipSize(symbol string, brokerPoint float64) float64 {
	if IsXAU(symbol) {
		return 0.10
	}
	return brokerPoint
}

// PipsToPrice converts a pip count to a price distance for symbol.
func PipsToPrice(symbol string, brokerPoint, pips float64) float64 {
	return pips * PipSize(symbol, brokerPoint)
}

// PriceToPips converts a price distance to a pip count for symbol.
func PriceToPips(symbol string, brokerPoint, priceDelta float64) float64 {
	pip := PipSize(symbol, brokerPoint)
	if pip == 0 {
		return 0
	}
	return priceDelta / pip
}

// SignedProgressPips returns favourable progress in pips from entry to
// current, signed by direction (positive = favourable).
func SignedProgressPips(symbol string, brokerPoint float64, dir Direction, entry, current float64) float64 {
	delta := current - entry
	if dir == Sell {
		delta = -delta
	}
	return PriceToPips(symbol, brokerPoint, delta)
}
