package parser

import (
	"testing"

	"github.com/chidi150c/coretrader/internal/domain"
)

// S1: Hannah layout normalises symbol aliases and orders the
// entry range ascending regardless of the lo/hi order in the raw text.
func TestDispatch_S1_Hannah(t *testing.T) {
	text := "GOLD BUY NOW\n@4460-4457\nSL 4454\nTP1 4463\nTP2 4466"
	r := NewRegistry()
	pr, ok := r.Dispatch(text, nil)
	if !ok {
		t.Fatal("expected a match")
	}
	if pr.Symbol != "XAUUSD" || pr.Direction != domain.Buy {
		t.Fatalf("unexpected symbol/direction: %+v", pr)
	}
	if pr.EntryRange == nil || pr.EntryRange.Lo != 4457 || pr.EntryRange.Hi != 4460 {
		t.Fatalf("unexpected entry range: %+v", pr.EntryRange)
	}
	if pr.SL != 4454 {
		t.Fatalf("unexpected SL: %v", pr.SL)
	}
	if len(pr.TPs) != 2 || pr.TPs[0] != 4463 || pr.TPs[1] != 4466 {
		t.Fatalf("unexpected TPs: %v", pr.TPs)
	}
	if pr.ProviderTag != "hannah" {
		t.Fatalf("unexpected provider tag: %s", pr.ProviderTag)
	}
}

// S4: the FAST half of the scenario.
func TestDispatch_S4_Fast(t *testing.T) {
	text := "Compra ORO ahora @2500"
	r := NewRegistry()
	pr, ok := r.Dispatch(text, nil)
	if !ok {
		t.Fatal("expected a match")
	}
	if !pr.IsFast {
		t.Fatal("expected is_fast=true")
	}
	if pr.Symbol != "XAUUSD" || pr.Direction != domain.Buy {
		t.Fatalf("unexpected symbol/direction: %+v", pr)
	}
	if pr.HintPrice != 2500 {
		t.Fatalf("unexpected hint price: %v", pr.HintPrice)
	}
	if pr.SL != 0 || len(pr.TPs) != 0 {
		t.Fatalf("FAST signal must carry no SL/TP: %+v", pr)
	}
}

// S4: the complete follow-up half of the scenario.
func TestDispatch_S4_Complete(t *testing.T) {
	text := "ORO BUY Entry: 2500-2505, SL: 2490, TP1: 2515, TP2: 2530"
	r := NewRegistry()
	pr, ok := r.Dispatch(text, nil)
	if !ok {
		t.Fatal("expected a match")
	}
	if pr.IsFast {
		t.Fatal("complete signal must not be marked fast")
	}
	if pr.EntryRange == nil || pr.EntryRange.Lo != 2500 || pr.EntryRange.Hi != 2505 {
		t.Fatalf("unexpected entry range: %+v", pr.EntryRange)
	}
	if pr.SL != 2490 {
		t.Fatalf("unexpected SL: %v", pr.SL)
	}
	if len(pr.TPs) != 2 || pr.TPs[0] != 2515 || pr.TPs[1] != 2530 {
		t.Fatalf("unexpected TPs: %v", pr.TPs)
	}
}

// Risk-price text must go to Limitless exclusively, even if it would also
// match the Hannah layout.
func TestDispatch_RiskPriceGoesToLimitlessExclusively(t *testing.T) {
	text := "XAUUSD BUY NOW risk price @2500-2505 SL 2490 TP1 2510"
	r := NewRegistry()
	pr, ok := r.Dispatch(text, nil)
	if !ok {
		t.Fatal("expected a match")
	}
	if pr.FormatTag != "limitless" {
		t.Fatalf("expected limitless, got %s", pr.FormatTag)
	}
}

// target: open text must go to ToroFX exclusively.
func TestDispatch_TargetOpenGoesToToroFXExclusively(t *testing.T) {
	text := "EURUSD SELL target: open @1.0950-1.0960 SL 1.0990"
	r := NewRegistry()
	pr, ok := r.Dispatch(text, nil)
	if !ok {
		t.Fatal("expected a match")
	}
	if pr.FormatTag != "torofx" {
		t.Fatalf("expected torofx, got %s", pr.FormatTag)
	}
}

// A parser whose precondition matches but whose required field (the range)
// is missing must return null, not a partial result.
func TestDispatch_MissingRequiredFieldReturnsNull(t *testing.T) {
	text := "Entry signal on XAUUSD BUY, SL 2490"
	r := NewRegistry()
	if _, ok := r.Dispatch(text, nil); ok {
		t.Fatal("expected no match when the range/hint price is missing")
	}
}

// Channel-scoped parser lists restrict which parsers are attempted. The
// text carries no TP, so the Hannah step that runs ahead of the channel
// list (it requires both SL and TPs) does not claim it.
func TestDispatch_ChannelScopedList(t *testing.T) {
	text := "XAUUSD BUY scalp Entry: 2500-2505 SL 2490"
	r := NewRegistry()
	pr, ok := r.Dispatch(text, []string{"long"}) // Long requires "swing"/"long term"; won't match
	if ok {
		t.Fatalf("expected no match restricted to [long], got %+v", pr)
	}
	pr, ok = r.Dispatch(text, []string{"scalp"})
	if !ok || pr.FormatTag != "scalp" {
		t.Fatalf("expected scalp match, got %+v ok=%v", pr, ok)
	}
}

// Round trip: a parser's output fed back through the same parser class
// (re-serialised into a message of its own layout) is idempotent on the
// canonical fields.
func TestDailySignal_RoundTripIdempotent(t *testing.T) {
	text := "XAUUSD BUY Entry: 2500-2505 SL 2490 TP1 2515 TP2 2530"
	d := DailySignal{}
	first, ok := d.Parse(text)
	if !ok {
		t.Fatal("expected a match")
	}
	regenerated := "XAUUSD BUY Entry: 2500-2505 SL 2490 TP1 2515 TP2 2530"
	second, ok := d.Parse(regenerated)
	if !ok {
		t.Fatal("expected a match on regenerated text")
	}
	if first.Symbol != second.Symbol || first.Direction != second.Direction ||
		*first.EntryRange != *second.EntryRange || first.SL != second.SL {
		t.Fatalf("round trip not idempotent: %+v vs %+v", first, second)
	}
}

// Boundary: entry range where lo == hi (single price).
func TestDailySignal_SinglePriceEntry(t *testing.T) {
	text := "XAUUSD BUY Entry: 2500-2500 SL 2490 TP1 2510"
	pr, ok := DailySignal{}.Parse(text)
	if !ok {
		t.Fatal("expected a match")
	}
	if pr.EntryRange.Lo != pr.EntryRange.Hi {
		t.Fatalf("expected lo==hi, got %+v", pr.EntryRange)
	}
}
