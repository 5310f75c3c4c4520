package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chidi150c/coretrader/internal/bus"
	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/logx"
	"github.com/chidi150c/coretrader/internal/metrics"
	"github.com/chidi150c/coretrader/internal/router"
)

// GroupName is the consumer group the executor uses to read trade_commands.
const GroupName = "executor"

// Run consumes trade_commands in the executor consumer group until ctx is
// cancelled, dispatching each entry by its CommandType and publishing the
// resulting TradeEvents to trade_events. Only CmdOpen is produced by the
// translator and only CmdOpen has a handler here; an entry of any other
// CommandType is logged and acknowledged without action.
func (e *Executor) Run(ctx context.Context, b *bus.Bus, consumerName string) error {
	if err := b.EnsureGroup(ctx, bus.StreamTradeCommands, GroupName); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msgs, err := b.ReadGroupBlocking(ctx, bus.StreamTradeCommands, GroupName, consumerName, 2*time.Second)
		if err != nil {
			logx.Error("executor.read", "%v", err)
			continue
		}
		for _, m := range msgs {
			e.dispatch(ctx, b, m)
			if err := b.Ack(ctx, bus.StreamTradeCommands, GroupName, m.ID); err != nil {
				logx.Error("executor.ack", "%v", err)
			}
		}
	}
}

func (e *Executor) dispatch(ctx context.Context, b *bus.Bus, m bus.Message) {
	typ, sig, _ := decodeCommand(m)
	switch typ {
	case domain.CmdOpen:
		for _, res := range e.OpenCompleteTrade(ctx, sig) {
			e.publishOpenResult(ctx, b, sig.Symbol, res)
		}
	default:
		logx.Trace("executor.dispatch", "no bus-level handler for command type %s; manager calls executor methods in-process", typ)
	}
}

func (e *Executor) publishOpenResult(ctx context.Context, b *bus.Bus, symbol string, res OpenResult) {
	ev := domain.TradeEvent{Account: res.Account, Symbol: symbol, Ticket: res.Ticket, Timestamp: e.Now()}
	if res.Err != nil {
		ev.Type = domain.EventOpenError
		ev.Detail = res.Err.Error()
	} else {
		ev.Type = domain.EventOpened
	}
	metrics.IncTradeEvent(string(ev.Type))
	data, err := json.Marshal(ev)
	if err != nil {
		logx.Error("executor.marshal_event", "%v", err)
		return
	}
	if _, err := b.Add(ctx, bus.StreamTradeEvents, map[string]interface{}{"data": string(data)}); err != nil {
		logx.Error("executor.publish_event", "%v", err)
	}
}

func decodeCommand(m bus.Message) (domain.CommandType, domain.Signal, bool) {
	typ := domain.CommandType("open")
	if v, ok := m.Values["cmd_type"]; ok {
		if s, ok := v.(string); ok && s != "" {
			typ = domain.CommandType(s)
		}
	}
	sig, upgrade := router.ValuesToSignal(m.Values)
	return typ, sig, upgrade
}
