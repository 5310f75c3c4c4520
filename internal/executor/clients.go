package executor

import "github.com/chidi150c/coretrader/internal/mt5"

// MapClients is the simplest Clients implementation: one mt5.Client per
// account name, built once at startup from config.Config.Accounts. Tests
// use it directly with mt5.FakeClient; cmd/coretrader populates it with
// real gRPC connections.
type MapClients map[string]mt5.Client

func (m MapClients) Get(account string) (mt5.Client, bool) {
	c, ok := m[account]
	return c, ok
}
