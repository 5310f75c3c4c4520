package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chidi150c/coretrader/internal/domain"
)

// Events emitted while Run drains the queue reach a live sink with their
// original type.
func TestNotifier_DeliversToSink(t *testing.T) {
	var received int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev domain.TradeEvent
		_ = json.NewDecoder(r.Body).Decode(&ev)
		if ev.Type == domain.EventOpened {
			atomic.AddInt32(&received, 1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	n.Emit(ctx, domain.TradeEvent{Type: domain.EventOpened, Account: "acc1"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&received) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected sink to receive the emitted event")
}

// Emit must not block the caller even when the queue is saturated and
// nothing is draining it.
func TestNotifier_EmitNeverBlocksWhenQueueFull(t *testing.T) {
	n := New("") // no sink: Run would drain but we don't start it
	done := make(chan struct{})
	go func() {
		for i := 0; i < queueCapacity+10; i++ {
			n.Emit(context.Background(), domain.TradeEvent{Type: domain.EventClosed})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked past queue capacity")
	}
}
