package domain

import (
	"sync"
	"time"
)

// ManagedTrade is the in-memory record the trade manager maintains for one
// broker ticket. Created when the manager first sees the ticket in
// positions_get (the backtest harness registers it right after
// order_send); destroyed when the broker no longer reports the ticket.
type ManagedTrade struct {
	AccountName string
	Ticket      int64
	Symbol      string
	Direction   Direction
	ProviderTag string
	GroupID     int64 // opening ticket; shared by a trade and its add-ons

	TPs       []float64
	PlannedSL float64
	TPHit     map[int]bool // 1-based TP index -> triggered

	MFEPeakPrice  float64
	RunnerEnabled bool

	InitialVolume float64
	EntryPrice    float64
	OpenedTS      time.Time

	AddonDone  bool
	AddonCount int

	LastTrailingSL float64
	LastTrailingTS time.Time

	ActionsDone map[string]bool // idempotent at-most-once management actions

	ReentryTP1Time time.Time

	// Local bookkeeping for scaling-out / trailing-last-tramo (ToroFX style).
	ScalingTramoClosed int
	ScalingTramo1Price float64
	ScalingPeakPrice   float64
}

// NewManagedTrade builds a trade record with its sets initialized.
func NewManagedTrade(account, symbol string, ticket, group int64, dir Direction) *ManagedTrade {
	return &ManagedTrade{
		AccountName: account,
		Ticket:      ticket,
		Symbol:      symbol,
		Direction:   dir,
		GroupID:     group,
		TPHit:       make(map[int]bool),
		ActionsDone: make(map[string]bool),
		OpenedTS:    time.Now(),
	}
}

// HasHitTP reports whether TP index i (1-based) has already fired.
func (m *ManagedTrade) HasHitTP(i int) bool { return m.TPHit[i] }

// MarkTPHit records that TP index i has fired. tp_hit is monotonically
// growing: once set, an index is never cleared.
func (m *ManagedTrade) MarkTPHit(i int) { m.TPHit[i] = true }

// DoneOnce reports whether action key has already been performed and, if
// not, marks it performed. Callers use this to make management actions
// idempotent and at-most-once.
func (m *ManagedTrade) DoneOnce(key string) bool {
	if m.ActionsDone[key] {
		return true
	}
	m.ActionsDone[key] = true
	return false
}

// IsLongMode reports whether this trade has >=3 TPs, which changes the
// TP-percent schedule and unlocks the runner after TP2.
func (m *ManagedTrade) IsLongMode() bool { return len(m.TPs) >= 3 }

// Registry stores ManagedTrades partitioned by account name so that only the
// owning per-account tick goroutine ever mutates a given bucket. mu guards
// the account map itself; the ticket maps returned by Bucket are not locked.
type Registry struct {
	mu        sync.Mutex
	byAccount map[string]map[int64]*ManagedTrade
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byAccount: make(map[string]map[int64]*ManagedTrade)}
}

// Bucket returns (creating if needed) the ticket map for one account. Only
// the tick loop owning `account` should call mutating methods on the result.
func (r *Registry) Bucket(account string) map[int64]*ManagedTrade {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byAccount[account]
	if !ok {
		b = make(map[int64]*ManagedTrade)
		r.byAccount[account] = b
	}
	return b
}

// Snapshot returns a shallow copy of one account's bucket for read-only use
// by non-owning goroutines (e.g. notifier, metrics).
func (r *Registry) Snapshot(account string) []*ManagedTrade {
	r.mu.Lock()
	b := r.byAccount[account]
	r.mu.Unlock()
	out := make([]*ManagedTrade, 0, len(b))
	for _, t := range b {
		out = append(out, t)
	}
	return out
}

// LatestGroup returns the GroupID of the most recently opened trade matching
// (account, symbol, direction). Restart discovery in the manager does not
// call it: a discovered position is grouped under its own ticket.
func (r *Registry) LatestGroup(account, symbol string, dir Direction) (int64, bool) {
	r.mu.Lock()
	b := r.byAccount[account]
	r.mu.Unlock()
	var best *ManagedTrade
	for _, t := range b {
		if t.Symbol != symbol || t.Direction != dir {
			continue
		}
		if best == nil || t.OpenedTS.After(best.OpenedTS) {
			best = t
		}
	}
	if best == nil {
		return 0, false
	}
	return best.GroupID, true
}
