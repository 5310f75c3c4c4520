package router

import "strings"

// ProviderHint discriminates which management vocabulary a mgmt_messages
// entry belongs to.
type ProviderHint string

const (
	ProviderGoldBrothers ProviderHint = "GOLD_BROTHERS"
	ProviderToroFX       ProviderHint = "TOROFX"
	ProviderHannah       ProviderHint = "HANNAH"
)

// goldBrothersPhrases, toroFXPhrases and hannahPhrases are the recognised
// follow-up vocabularies. A management message is any text containing one
// of these phrases; it is republished to mgmt_messages without running the
// parser registry.
var (
	toroFXPhrases = []string{
		"asegurando profits", "quitando riesgo", "cierra parcial", "be ya",
		"cerrar entrada", "mantener entrada",
	}
	hannahPhrases = []string{
		"close all", "close half", "secure half",
	}
	goldBrothersPhrases = []string{
		"gb update", "gb close", "gb secure",
	}
)

// ClassifyManagement reports whether text matches a recognised management
// vocabulary and, if so, which provider it belongs to.
func ClassifyManagement(text string) (ProviderHint, bool) {
	lower := strings.ToLower(text)
	for _, p := range toroFXPhrases {
		if strings.Contains(lower, p) {
			return ProviderToroFX, true
		}
	}
	for _, p := range hannahPhrases {
		if strings.Contains(lower, p) {
			return ProviderHannah, true
		}
	}
	for _, p := range goldBrothersPhrases {
		if strings.Contains(lower, p) {
			return ProviderGoldBrothers, true
		}
	}
	return "", false
}
