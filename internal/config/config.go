package config

import (
	"encoding/json"
	"fmt"

	"github.com/chidi150c/coretrader/internal/domain"
)

// Config holds every runtime knob the core pipeline uses.
type Config struct {
	RedisURL string

	DedupTTLSeconds          int
	FastUpdateWindowSeconds  int
	TradingWindows           []Window

	EntryWaitSeconds   int
	EntryPollMs        int
	EntryBufferPoints  float64

	DefaultSLXAUUSDPips float64
	DefaultSLPips       float64

	ScalpTP1Percent float64
	ScalpTP2Percent float64
	LongTP1Percent  float64
	LongTP2Percent  float64

	EnableBreakeven    bool
	BreakevenOffsetPips float64

	EnableTrailing         bool
	TrailingActivationPips float64
	TrailingStopPips       float64
	TrailingMinChangePips  float64
	TrailingCooldownSec    float64

	EnableAddon    bool
	AddonMaxCount  int
	AddonLotFactor float64

	ScalingTramoPips        float64
	ScalingPercentPerTramo  float64

	Accounts []domain.Account
	Channels map[int64]ChannelConfig

	MetricsPort    int
	NotifierSinkURL string
}

// ChannelConfig is the per-channel router configuration: which parsers to
// try (in order) for messages from this channel, decoded from
// CHANNELS_CONFIG_JSON.
type ChannelConfig struct {
	Parsers []string `json:"parsers,omitempty"`
}

// Window is one HH:MM-HH:MM New York trading window. Overnight wraps
// (End < Start) are supported by InAnyWindow in windows.go.
type Window struct {
	StartMin int // minutes since midnight
	EndMin   int
}

// Load reads the process environment (already hydrated by LoadDotEnv) and
// returns a fully populated Config with the spec's documented defaults.
func Load() (Config, error) {
	c := Config{
		RedisURL: GetEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),

		DedupTTLSeconds:         GetEnvInt("DEDUP_TTL_SECONDS", 120),
		FastUpdateWindowSeconds: GetEnvInt("FAST_UPDATE_WINDOW_SECONDS", 30),

		EntryWaitSeconds:  GetEnvInt("ENTRY_WAIT_SECONDS", 60),
		EntryPollMs:       GetEnvInt("ENTRY_POLL_MS", 500),
		EntryBufferPoints: GetEnvFloat("ENTRY_BUFFER_POINTS", 0),

		DefaultSLXAUUSDPips: GetEnvFloat("DEFAULT_SL_XAUUSD_PIPS", 300),
		DefaultSLPips:       GetEnvFloat("DEFAULT_SL_PIPS", 100),

		ScalpTP1Percent: GetEnvFloat("SCALP_TP1_PERCENT", 50),
		ScalpTP2Percent: GetEnvFloat("SCALP_TP2_PERCENT", 100),
		LongTP1Percent:  GetEnvFloat("LONG_TP1_PERCENT", 30),
		LongTP2Percent:  GetEnvFloat("LONG_TP2_PERCENT", 30),

		EnableBreakeven:     GetEnvBool("ENABLE_BREAKEVEN", true),
		BreakevenOffsetPips: GetEnvFloat("BREAKEVEN_OFFSET_PIPS", 0),

		EnableTrailing:         GetEnvBool("ENABLE_TRAILING", true),
		TrailingActivationPips: GetEnvFloat("TRAILING_ACTIVATION_PIPS", 100),
		TrailingStopPips:       GetEnvFloat("TRAILING_STOP_PIPS", 50),
		TrailingMinChangePips:  GetEnvFloat("TRAILING_MIN_CHANGE_PIPS", 10),
		TrailingCooldownSec:    GetEnvFloat("TRAILING_COOLDOWN_SEC", 20),

		EnableAddon:    GetEnvBool("ENABLE_ADDON", false),
		AddonMaxCount:  GetEnvInt("ADDON_MAX_COUNT", 1),
		AddonLotFactor: GetEnvFloat("ADDON_LOT_FACTOR", 1.0),

		ScalingTramoPips:       GetEnvFloat("SCALING_TRAMO_PIPS", 40),
		ScalingPercentPerTramo: GetEnvFloat("SCALING_PERCENT_PER_TRAMO", 25),

		MetricsPort:     GetEnvInt("PORT", 8080),
		NotifierSinkURL: GetEnv("NOTIFIER_SINK_URL", ""),
	}

	windows, err := ParseWindows(GetEnv("TRADING_WINDOWS", ""))
	if err != nil {
		return c, fmt.Errorf("TRADING_WINDOWS: %w", err)
	}
	c.TradingWindows = windows

	if raw := GetEnv("ACCOUNTS_JSON", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.Accounts); err != nil {
			return c, fmt.Errorf("ACCOUNTS_JSON: %w", err)
		}
	}

	c.Channels = make(map[int64]ChannelConfig)
	if raw := GetEnv("CHANNELS_CONFIG_JSON", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.Channels); err != nil {
			return c, fmt.Errorf("CHANNELS_CONFIG_JSON: %w", err)
		}
	}

	return c, nil
}

// Needed is the set of env keys this process reads from .env, used as the
// allow-list passed to LoadDotEnv.
func Needed() map[string]struct{} {
	keys := []string{
		"REDIS_URL", "DEDUP_TTL_SECONDS", "FAST_UPDATE_WINDOW_SECONDS", "TRADING_WINDOWS",
		"ENTRY_WAIT_SECONDS", "ENTRY_POLL_MS", "ENTRY_BUFFER_POINTS",
		"DEFAULT_SL_XAUUSD_PIPS", "DEFAULT_SL_PIPS",
		"SCALP_TP1_PERCENT", "SCALP_TP2_PERCENT", "LONG_TP1_PERCENT", "LONG_TP2_PERCENT",
		"ENABLE_BREAKEVEN", "BREAKEVEN_OFFSET_PIPS",
		"ENABLE_TRAILING", "TRAILING_ACTIVATION_PIPS", "TRAILING_STOP_PIPS",
		"TRAILING_MIN_CHANGE_PIPS", "TRAILING_COOLDOWN_SEC",
		"ENABLE_ADDON", "ADDON_MAX_COUNT", "ADDON_LOT_FACTOR",
		"SCALING_TRAMO_PIPS", "SCALING_PERCENT_PER_TRAMO",
		"ACCOUNTS_JSON", "CHANNELS_CONFIG_JSON", "PORT", "NOTIFIER_SINK_URL",
	}
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}
