package router

import (
	"context"
	"strconv"
	"time"

	"github.com/chidi150c/coretrader/internal/bus"
	"github.com/chidi150c/coretrader/internal/logx"
)

// Run consumes raw_messages in the router consumer group until ctx is
// cancelled. Every delivered message is acknowledged after Process
// publishes its result, whether or not a signal was produced.
func (r *Router) Run(ctx context.Context, consumerName string) error {
	if err := r.Bus.EnsureGroup(ctx, bus.StreamRawMessages, GroupName); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msgs, err := r.Bus.ReadGroupBlocking(ctx, bus.StreamRawMessages, GroupName, consumerName, 2*time.Second)
		if err != nil {
			logx.Error("router.read", "%v", err)
			continue
		}
		for _, m := range msgs {
			raw := decodeRaw(m)
			outcome, err := r.Process(ctx, raw)
			if err != nil {
				logx.Error("router.process", "%v", err)
			} else {
				logx.Trace("router.outcome", "%s chat=%d", outcome, raw.ChatID)
			}
			if err := r.Bus.Ack(ctx, bus.StreamRawMessages, GroupName, m.ID); err != nil {
				logx.Error("router.ack", "%v", err)
			}
		}
	}
}

func decodeRaw(m bus.Message) RawMessage {
	get := func(k string) string {
		if v, ok := m.Values[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	chatID, _ := strconv.ParseInt(get("chat_id"), 10, 64)
	var date time.Time
	if ds := get("date"); ds != "" {
		date, _ = time.Parse(time.RFC3339, ds)
	}
	return RawMessage{
		ChatID:    chatID,
		MessageID: get("message_id"),
		Date:      date,
		Text:      get("text"),
	}
}
