package manager

import (
	"context"
	"strconv"
	"time"

	"github.com/chidi150c/coretrader/internal/bus"
	"github.com/chidi150c/coretrader/internal/logx"
	"github.com/chidi150c/coretrader/internal/router"
)

// MgmtGroupName is the consumer group the manager uses to read
// mgmt_messages.
const MgmtGroupName = "manager"

// RunMgmtConsumer consumes mgmt_messages in the manager consumer group
// until ctx is cancelled, dispatching each entry to HandleManagement and
// acknowledging it regardless of outcome: notifier/management failures are
// logged, never propagated.
func (m *Manager) RunMgmtConsumer(ctx context.Context, b *bus.Bus, consumerName string) error {
	if err := b.EnsureGroup(ctx, bus.StreamMgmtMessages, MgmtGroupName); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msgs, err := b.ReadGroupBlocking(ctx, bus.StreamMgmtMessages, MgmtGroupName, consumerName, 2*time.Second)
		if err != nil {
			logx.Error("manager.mgmt_read", "%v", err)
			continue
		}
		for _, msg := range msgs {
			decoded := decodeMgmt(msg)
			m.HandleManagement(ctx, decoded)
			if err := b.Ack(ctx, bus.StreamMgmtMessages, MgmtGroupName, msg.ID); err != nil {
				logx.Error("manager.mgmt_ack", "%v", err)
			}
		}
	}
}

func decodeMgmt(msg bus.Message) MgmtMessage {
	get := func(k string) string {
		if v, ok := msg.Values[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	chatID, _ := strconv.ParseInt(get("chat_id"), 10, 64)
	return MgmtMessage{
		ChatID:       chatID,
		Text:         get("text"),
		ProviderHint: router.ProviderHint(get("provider_hint")),
	}
}
