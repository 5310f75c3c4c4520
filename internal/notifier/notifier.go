// Package notifier is the non-blocking outbound event queue:
// a slow or offline HTTP sink must never stall the trading loop. The
// drop-oldest-on-full buffered channel generalizes a single-result
// notification channel into a TradeEvent fan-out queue with one worker.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/logx"
)

// queueCapacity bounds the outbound buffer; once full, safeSend drops the
// oldest queued event rather than blocking the caller.
const queueCapacity = 256

// httpTimeout bounds a single delivery attempt so one unresponsive sink
// can't stall the worker goroutine indefinitely.
const httpTimeout = 5 * time.Second

// Notifier fans TradeEvents out to an HTTP sink through a single worker
// goroutine reading from a buffered, drop-oldest channel.
type Notifier struct {
	sinkURL string
	client  *http.Client
	queue   chan domain.TradeEvent
}

// New builds a Notifier that POSTs JSON-encoded events to sinkURL. If
// sinkURL is empty, Emit still drains the queue but delivery is skipped
// (useful for accounts/deployments that run with no configured webhook).
func New(sinkURL string) *Notifier {
	return &Notifier{
		sinkURL: sinkURL,
		client:  &http.Client{Timeout: httpTimeout},
		queue:   make(chan domain.TradeEvent, queueCapacity),
	}
}

// Emit enqueues ev for delivery without blocking: if the queue is full,
// the oldest queued event is dropped to make room for the new one.
func (n *Notifier) Emit(ctx context.Context, ev domain.TradeEvent) {
	select {
	case n.queue <- ev:
		return
	default:
	}
	select {
	case <-n.queue:
		logx.Warn("notifier.queue_full", "dropping oldest queued event")
	default:
	}
	select {
	case n.queue <- ev:
	default:
		logx.Warn("notifier.queue_full", "dropping event after second attempt: %s", ev.Type)
	}
}

// Run drains the queue and delivers events until ctx is cancelled.
// Delivery failures are logged and never propagated.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-n.queue:
			n.deliver(ctx, ev)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, ev domain.TradeEvent) {
	if n.sinkURL == "" {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		logx.Error("notifier.marshal", "%v", err)
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, n.sinkURL, bytes.NewReader(body))
	if err != nil {
		logx.Error("notifier.request", "%v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		logx.Warn("notifier.deliver", "post failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		logx.Warn("notifier.deliver", "non-2xx status %d for event %s", resp.StatusCode, ev.Type)
	}
}
