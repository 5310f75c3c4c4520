// Package router implements the signal pipeline stage: it
// consumes raw_messages, classifies each message as signal/management/drop,
// applies dedup and FAST-upgrade logic, and republishes to parsed_signals
// or mgmt_messages.
package router

import (
	"context"
	"time"

	"github.com/chidi150c/coretrader/internal/bus"
	"github.com/chidi150c/coretrader/internal/config"
	"github.com/chidi150c/coretrader/internal/dedup"
	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/logx"
	"github.com/chidi150c/coretrader/internal/metrics"
	"github.com/chidi150c/coretrader/internal/parser"
)

const GroupName = "router"

// RawMessage is the decoded payload of one raw_messages entry.
type RawMessage struct {
	ChatID    int64
	MessageID string
	Date      time.Time
	Text      string
}

// Router owns the parser registry, dedup store, and FAST tracker, and turns
// raw_messages entries into parsed_signals/mgmt_messages publications.
type Router struct {
	Bus       *bus.Bus
	Parsers   *parser.Registry
	Dedup     *dedup.Store
	Fast      *FastTracker
	Channels  map[int64]config.ChannelConfig
	Windows   []config.Window
	IDGen     func() string
	Now       func() time.Time
}

// New builds a Router wired from config and shared infra.
func New(b *bus.Bus, dedupStore *dedup.Store, fastTracker *FastTracker, channels map[int64]config.ChannelConfig, windows []config.Window, idGen func() string) *Router {
	return &Router{
		Bus: b, Parsers: parser.NewRegistry(), Dedup: dedupStore, Fast: fastTracker,
		Channels: channels, Windows: windows, IDGen: idGen, Now: time.Now,
	}
}

// Outcome records what Process did with one raw message, for tests/logging.
type Outcome string

const (
	OutcomeManagement   Outcome = "management"
	OutcomeSignal       Outcome = "signal"
	OutcomeUpgrade      Outcome = "upgrade"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeOutsideWindow Outcome = "outside_window"
	OutcomeDropped      Outcome = "dropped"
)

// Process runs one raw message through the classifier/parser/dedup/FAST
// pipeline and publishes the result. It always returns the Outcome so the
// caller can ack regardless of what, if anything, was published: every
// consumed message is acknowledged after publication, whether or not a
// signal was produced.
func (r *Router) Process(ctx context.Context, msg RawMessage) (Outcome, error) {
	if hint, ok := ClassifyManagement(msg.Text); ok {
		_, err := r.Bus.Add(ctx, bus.StreamMgmtMessages, map[string]interface{}{
			"chat_id":       msg.ChatID,
			"text":          msg.Text,
			"provider_hint": string(hint),
		})
		if err != nil {
			return OutcomeDropped, err
		}
		return OutcomeManagement, nil
	}

	if !config.InAnyWindow(r.Windows, r.Now()) {
		r.emitEvent(ctx, domain.EventOutsideWindow, "outside_windows")
		return OutcomeOutsideWindow, nil
	}

	var channelParsers []string
	if cc, ok := r.Channels[msg.ChatID]; ok {
		channelParsers = cc.Parsers
	}

	pr, ok := r.Parsers.Dispatch(msg.Text, channelParsers)
	if !ok {
		return OutcomeDropped, nil
	}

	if pr.IsFast {
		if err := r.Fast.Record(ctx, msg.ChatID, pr.Symbol, pr.Direction); err != nil {
			return OutcomeDropped, err
		}
		return r.publishSignal(ctx, msg, pr)
	}

	pending, err := r.Fast.Pending(ctx, msg.ChatID, pr.Symbol, pr.Direction)
	if err != nil {
		return OutcomeDropped, err
	}
	if pending {
		// Upgrade path: dedup does not gate the upgrade, but the signature
		// is recorded so a repeat of the same complete message within the
		// dedup TTL is suppressed.
		if err := r.Fast.Clear(ctx, msg.ChatID, pr.Symbol, pr.Direction); err != nil {
			return OutcomeDropped, err
		}
		if _, err := r.Dedup.IsDuplicate(ctx, msg.ChatID, pr); err != nil {
			return OutcomeDropped, err
		}
		metrics.IncFastUpgrade()
		return r.publishUpgrade(ctx, msg, pr)
	}

	dup, err := r.Dedup.IsDuplicate(ctx, msg.ChatID, pr)
	if err != nil {
		return OutcomeDropped, err
	}
	if dup {
		metrics.IncDedupHit()
		return OutcomeDuplicate, nil
	}
	return r.publishSignal(ctx, msg, pr)
}

func (r *Router) publishSignal(ctx context.Context, msg RawMessage, pr *domain.ParseResult) (Outcome, error) {
	sig := pr.ToSignal(r.IDGen(), msg.ChatID, msg.Text)
	if _, err := r.Bus.Add(ctx, bus.StreamParsedSignals, signalToValues(sig, false)); err != nil {
		return OutcomeDropped, err
	}
	return OutcomeSignal, nil
}

func (r *Router) publishUpgrade(ctx context.Context, msg RawMessage, pr *domain.ParseResult) (Outcome, error) {
	sig := pr.ToSignal(r.IDGen(), msg.ChatID, msg.Text)
	if _, err := r.Bus.Add(ctx, bus.StreamParsedSignals, signalToValues(sig, true)); err != nil {
		return OutcomeDropped, err
	}
	return OutcomeUpgrade, nil
}

func (r *Router) emitEvent(ctx context.Context, typ domain.EventType, reason string) {
	ev := domain.TradeEvent{Type: typ, Reason: reason, Timestamp: time.Now()}
	logx.Info("router.event", "%s: %s", typ, reason)
	_, _ = r.Bus.Add(ctx, bus.StreamTradeEvents, map[string]interface{}{"data": mustJSON(ev)})
}
