// Package metrics exposes Prometheus counters/gauges for the trading
// pipeline. Every series is registered against the default registry in
// this package's init and served through promhttp.Handler at /metrics,
// alongside a /healthz liveness endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesOpened counts successful account-level order_send completions,
	// split by account and side (buy|sell).
	TradesOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "core_trades_opened_total",
			Help: "Trades opened, by account and side.",
		},
		[]string{"account", "side"},
	)

	// TradeEvents counts every TradeEvent emitted on trade_events, by type.
	TradeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "core_trade_events_total",
			Help: "Trade events emitted, by event type.",
		},
		[]string{"type"},
	)

	// PartialCloses counts partial-close actions, by account and reason
	// (tp1, tp2, be_pips, be_pnl, reentry_tp1, scaling_tramo...).
	PartialCloses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "core_partial_closes_total",
			Help: "Partial closes executed, by account and reason.",
		},
		[]string{"account", "reason"},
	)

	// BEApplications counts break-even SL moves, by account.
	BEApplications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "core_be_applications_total",
			Help: "Break-even stop-loss applications, by account.",
		},
		[]string{"account"},
	)

	// TrailingUpdates counts trailing-stop SL moves, by account.
	TrailingUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "core_trailing_updates_total",
			Help: "Trailing stop-loss updates applied, by account.",
		},
		[]string{"account"},
	)

	// RouterDedupHits counts signals discarded by the router as duplicates
	// of an already-seen message.
	RouterDedupHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "core_router_dedup_hits_total",
			Help: "Messages discarded by the router as duplicates.",
		},
	)

	// RouterFastUpgrades counts FAST placeholder signals resolved by a
	// later message carrying the real entry range.
	RouterFastUpgrades = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "core_router_fast_upgrades_total",
			Help: "FAST signals upgraded by a subsequent entry-range message.",
		},
	)

	// BusAckLag gauges the age, in seconds, of the oldest unacknowledged
	// message in a consumer group's pending entries list, as reported
	// through SetAckLag. No stage in this module calls SetAckLag, so the
	// gauge has no series until a caller reports one.
	BusAckLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "core_bus_ack_lag_seconds",
			Help: "Age in seconds of the oldest unacknowledged stream message.",
		},
		[]string{"group"},
	)
)

func init() {
	prometheus.MustRegister(TradesOpened, TradeEvents, PartialCloses)
	prometheus.MustRegister(BEApplications, TrailingUpdates)
	prometheus.MustRegister(RouterDedupHits, RouterFastUpgrades, BusAckLag)
}

// Handler returns an http.Handler serving /metrics and /healthz, meant to
// be mounted on the process's HTTP mux alongside its other routes.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// IncTradeOpened records a successful order_send for account/side.
func IncTradeOpened(account, side string) { TradesOpened.WithLabelValues(account, side).Inc() }

// IncTradeEvent records one emitted TradeEvent of the given type.
func IncTradeEvent(eventType string) { TradeEvents.WithLabelValues(eventType).Inc() }

// IncPartialClose records one partial-close action for account/reason.
func IncPartialClose(account, reason string) { PartialCloses.WithLabelValues(account, reason).Inc() }

// IncBEApplied records one break-even SL move for account.
func IncBEApplied(account string) { BEApplications.WithLabelValues(account).Inc() }

// IncTrailingUpdate records one trailing SL move for account.
func IncTrailingUpdate(account string) { TrailingUpdates.WithLabelValues(account).Inc() }

// IncDedupHit records one router-level duplicate-message discard.
func IncDedupHit() { RouterDedupHits.Inc() }

// IncFastUpgrade records one FAST-signal resolution.
func IncFastUpgrade() { RouterFastUpgrades.Inc() }

// SetAckLag reports the oldest-pending-entry age for a consumer group.
func SetAckLag(group string, seconds float64) { BusAckLag.WithLabelValues(group).Set(seconds) }
