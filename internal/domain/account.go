package domain

// TradingMode selects which per-account management strategy the trade
// manager applies to open positions.
type TradingMode string

const (
	ModeGeneral TradingMode = "general"
	ModeBEPips  TradingMode = "be_pips"
	ModeBEPnL   TradingMode = "be_pnl"
	ModeReentry TradingMode = "reentry"
)

// Account is an immutable-within-generation configuration snapshot for one
// MT5 terminal the executor/manager can act on. Reloaded only on restart.
type Account struct {
	Name            string      `json:"name"`
	Host            string      `json:"host"`
	Port            int         `json:"port"`
	Active          bool        `json:"active"`
	FixedLot        float64     `json:"fixed_lot"`
	ChatID          int64       `json:"chat_id"`
	AllowedChannels []int64     `json:"allowed_channels,omitempty"`
	TradingMode     TradingMode `json:"trading_mode"`
	RiskPercent     float64     `json:"risk_percent,omitempty"`

	// Per-mode overrides. A zero BEPips, trailing distance/cooldown,
	// RunnerRetracePips, AddonLotFactor or AddonEntrySLRatio means "use the
	// package default"; BEOffsetPips and AddonMinSecFromOpen are used as
	// given, a zero AddonMax allows no add-ons, and EnableTrailing and
	// EnableAddon are off unless set.
	BEPips              float64 `json:"be_pips,omitempty"`
	BEOffsetPips        float64 `json:"be_offset_pips,omitempty"`
	EnableTrailing      bool    `json:"enable_trailing,omitempty"`
	TrailingActivation  float64 `json:"trailing_activation_pips,omitempty"`
	TrailingStopPips    float64 `json:"trailing_stop_pips,omitempty"`
	TrailingMinChange   float64 `json:"trailing_min_change_pips,omitempty"`
	TrailingCooldownSec float64 `json:"trailing_cooldown_sec,omitempty"`
	RunnerRetracePips   float64 `json:"runner_retrace_pips,omitempty"`
	EnableAddon         bool    `json:"enable_addon,omitempty"`
	AddonMax            int     `json:"addon_max,omitempty"`
	AddonLotFactor      float64 `json:"addon_lot_factor,omitempty"`
	AddonEntrySLRatio   float64 `json:"addon_entry_sl_ratio,omitempty"`
	AddonMinSecFromOpen float64 `json:"addon_min_seconds_from_open,omitempty"`
}

// AllowsChannel reports whether a signal from the given channel may be
// traded on this account. nil/empty AllowedChannels means "all channels".
func (a *Account) AllowsChannel(channel int64) bool {
	if !a.Active {
		return false
	}
	if len(a.AllowedChannels) == 0 {
		return true
	}
	for _, c := range a.AllowedChannels {
		if c == channel {
			return true
		}
	}
	return false
}
