// Command migrate is an offline validator for the ACCOUNTS_JSON and
// CHANNELS_CONFIG_JSON environment payloads: read each payload from a file,
// decode against the real domain/config types, report every structural
// problem found, and exit non-zero so it's usable as a pre-deploy gate
// rather than only discovering a bad payload at process startup.
//
// Usage:
//
//	go run ./cmd/migrate -accounts accounts.json
//	go run ./cmd/migrate -channels channels.json
//	go run ./cmd/migrate -accounts accounts.json -channels channels.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/chidi150c/coretrader/internal/domain"
)

func main() {
	accountsPath := flag.String("accounts", "", "path to an ACCOUNTS_JSON payload to validate")
	channelsPath := flag.String("channels", "", "path to a CHANNELS_CONFIG_JSON payload to validate")
	flag.Parse()

	if *accountsPath == "" && *channelsPath == "" {
		exitf("specify -accounts and/or -channels")
	}

	failed := false
	if *accountsPath != "" {
		if !validateAccounts(*accountsPath) {
			failed = true
		}
	}
	if *channelsPath != "" {
		if !validateChannels(*channelsPath) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func validateAccounts(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: read %s: %v\n", path, err)
		return false
	}
	var accounts []domain.Account
	if err := json.Unmarshal(raw, &accounts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: parse %s: %v\n", path, err)
		return false
	}

	ok := true
	seen := make(map[string]bool, len(accounts))
	for i, a := range accounts {
		if a.Name == "" {
			fmt.Fprintf(os.Stderr, "migrate: account[%d]: missing name\n", i)
			ok = false
			continue
		}
		if seen[a.Name] {
			fmt.Fprintf(os.Stderr, "migrate: account %q: duplicate name\n", a.Name)
			ok = false
		}
		seen[a.Name] = true
		if a.Host == "" || a.Port <= 0 {
			fmt.Fprintf(os.Stderr, "migrate: account %q: host/port not set\n", a.Name)
			ok = false
		}
		if !validMode(a.TradingMode) {
			fmt.Fprintf(os.Stderr, "migrate: account %q: unknown trading_mode %q\n", a.Name, a.TradingMode)
			ok = false
		}
		if a.FixedLot <= 0 && a.RiskPercent <= 0 {
			fmt.Fprintf(os.Stderr, "migrate: account %q: neither fixed_lot nor risk_percent set\n", a.Name)
			ok = false
		}
	}
	if ok {
		fmt.Printf("OK   %s: %d account(s) valid\n", path, len(accounts))
	}
	return ok
}

func validateChannels(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: read %s: %v\n", path, err)
		return false
	}
	var channels map[int64]struct {
		Parsers []string `json:"parsers,omitempty"`
	}
	if err := json.Unmarshal(raw, &channels); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: parse %s: %v\n", path, err)
		return false
	}
	ok := true
	for chatID, cc := range channels {
		for _, p := range cc.Parsers {
			if !validParserName(p) {
				fmt.Fprintf(os.Stderr, "migrate: channel %d: unknown parser %q\n", chatID, p)
				ok = false
			}
		}
	}
	if ok {
		fmt.Printf("OK   %s: %d channel(s) valid\n", path, len(channels))
	}
	return ok
}

func validMode(m domain.TradingMode) bool {
	switch m {
	case domain.ModeGeneral, domain.ModeBEPips, domain.ModeBEPnL, domain.ModeReentry, "":
		return true
	default:
		return false
	}
}

// validParserName mirrors the parser registry's known keys;
// kept as a local allow-list here so this tool never imports internal/parser
// just to validate a channel config file.
func validParserName(name string) bool {
	switch name {
	case "daily_signal", "torofx", "scalp", "long", "fast", "hannah", "limitless":
		return true
	default:
		return false
	}
}

func exitf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "migrate: "+format+"\n", a...)
	os.Exit(1)
}
