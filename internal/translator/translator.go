// Package translator is the command translator named in the external
// interfaces table: parsed_signals -> command translator ->
// trade_commands. It is the narrow seam between the router's output and
// the executor's input, so the executor never has to know whether a
// command originated from a freshly parsed signal or (eventually) from a
// manual override injected directly onto trade_commands.
package translator

import (
	"context"
	"time"

	"github.com/chidi150c/coretrader/internal/bus"
	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/logx"
	"github.com/chidi150c/coretrader/internal/router"
)

// GroupName is the consumer group used to read parsed_signals.
const GroupName = "translator"

// Translator consumes parsed_signals and republishes each one as a
// CmdOpen TradeCommand on trade_commands.
type Translator struct {
	Bus *bus.Bus
	Now func() time.Time
}

// New builds a Translator wired to b.
func New(b *bus.Bus) *Translator {
	return &Translator{Bus: b, Now: time.Now}
}

// Run consumes parsed_signals in the translator consumer group until ctx
// is cancelled, translating and acknowledging each entry in turn.
func (tr *Translator) Run(ctx context.Context, consumerName string) error {
	if err := tr.Bus.EnsureGroup(ctx, bus.StreamParsedSignals, GroupName); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msgs, err := tr.Bus.ReadGroupBlocking(ctx, bus.StreamParsedSignals, GroupName, consumerName, 2*time.Second)
		if err != nil {
			logx.Error("translator.read", "%v", err)
			continue
		}
		for _, m := range msgs {
			if err := tr.Translate(ctx, m); err != nil {
				logx.Error("translator.translate", "%v", err)
			}
			if err := tr.Bus.Ack(ctx, bus.StreamParsedSignals, GroupName, m.ID); err != nil {
				logx.Error("translator.ack", "%v", err)
			}
		}
	}
}

// Translate decodes one parsed_signals entry and republishes it as a
// CmdOpen TradeCommand. The full signal is carried through verbatim (entry
// range, SL/TPs, provider tag, raw text) so the executor can reconstruct it
// without a second round trip through the parser; only the discriminator
// field and a translation timestamp are added. Per-account fan-out and
// entry gating remain the executor's job.
func (tr *Translator) Translate(ctx context.Context, m bus.Message) error {
	values := make(map[string]interface{}, len(m.Values)+2)
	for k, v := range m.Values {
		values[k] = v
	}
	values["cmd_type"] = string(domain.CmdOpen)
	values["translated_at"] = tr.Now().Format(time.RFC3339)
	_, err := tr.Bus.Add(ctx, bus.StreamTradeCommands, values)
	return err
}

// DecodeCommand extracts the CommandType and underlying Signal from a
// trade_commands entry produced by Translate.
func DecodeCommand(m bus.Message) (domain.CommandType, domain.Signal, bool) {
	typ := domain.CommandType("open")
	if v, ok := m.Values["cmd_type"]; ok {
		if s, ok := v.(string); ok && s != "" {
			typ = domain.CommandType(s)
		}
	}
	sig, upgrade := router.ValuesToSignal(m.Values)
	return typ, sig, upgrade
}
