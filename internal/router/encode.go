package router

import (
	"encoding/json"
	"strconv"

	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/logx"
)

// signalToValues builds the parsed_signals payload: flat string
// key/values, with entry_range/tps JSON-encoded arrays. Redis
// stream field values are always read back as strings, so every field here
// round-trips through ValuesToSignal using the same encoding.
func signalToValues(s domain.Signal, upgrade bool) map[string]interface{} {
	v := map[string]interface{}{
		"symbol":       s.Symbol,
		"direction":    string(s.Direction),
		"sl":           strconv.FormatFloat(s.SL, 'f', -1, 64),
		"provider_tag": s.ProviderTag,
		"format_tag":   s.FormatTag,
		"fast":         strconv.FormatBool(s.IsFast),
		"hint_price":   strconv.FormatFloat(s.HintPrice, 'f', -1, 64),
		"chat_id":      strconv.FormatInt(s.SourceChannel, 10),
		"raw_text":     s.RawText,
		"trace":        s.TraceID,
		"upgrade":      strconv.FormatBool(upgrade),
		"tps":          mustJSON(s.TPs),
	}
	if s.EntryRange != nil {
		v["entry_range"] = mustJSON([2]float64{s.EntryRange.Lo, s.EntryRange.Hi})
	}
	return v
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		logx.Error("router.encode", "marshal failed: %v", err)
		return "null"
	}
	return string(b)
}

// ValuesToSignal decodes a parsed_signals entry back into a Signal plus the
// upgrade flag, used by the translator and by tests.
func ValuesToSignal(values map[string]interface{}) (domain.Signal, bool) {
	get := func(k string) string {
		if v, ok := values[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	var s domain.Signal
	s.Symbol = get("symbol")
	s.Direction = domain.Direction(get("direction"))
	s.ProviderTag = get("provider_tag")
	s.FormatTag = get("format_tag")
	s.RawText = get("raw_text")
	s.TraceID = get("trace")
	s.SL, _ = strconv.ParseFloat(get("sl"), 64)
	s.HintPrice, _ = strconv.ParseFloat(get("hint_price"), 64)
	s.IsFast, _ = strconv.ParseBool(get("fast"))
	s.SourceChannel, _ = strconv.ParseInt(get("chat_id"), 10, 64)

	var rng [2]float64
	if raw := get("entry_range"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &rng); err == nil {
			s.EntryRange = &domain.PriceRange{Lo: rng[0], Hi: rng[1]}
		}
	}
	if raw := get("tps"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &s.TPs)
	}
	upgrade, _ := strconv.ParseBool(get("upgrade"))
	return s, upgrade
}
