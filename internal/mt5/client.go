// Package mt5 models the remote MT5 terminal RPC surface. The
// interface and retcode naming are grounded directly on MetaRPC/GoMT5's
// mt5.MT5Account client (SymbolInfoTick, PositionsGet, OrderSend,
// AccountInfo, IsTerminalAlive), which wraps a protobuf/gRPC service.
package mt5

import (
	"context"
	"time"
)

// Retcodes mirror the MT5 trade server return codes the spec calls out.
const (
	RetDone          = 10009
	RetDonePartial   = 10008
	RetInvalidFillA  = 10030
	RetInvalidFillB  = 10013
)

// ActionType mirrors the MT5 trade request action field.
type ActionType int

const (
	ActionDeal ActionType = 1
	ActionSLTP ActionType = 6
)

// FillingMode is a candidate order-filling mode, tried in this fixed order
// on a fill-mode-mismatch retcode.
type FillingMode int

const (
	FillIOC FillingMode = iota
	FillFOK
	FillReturn
)

// FillingModeOrder is the fixed fallback candidate list.
var FillingModeOrder = []FillingMode{FillIOC, FillFOK, FillReturn}

// OrderType mirrors MT5's position type (0=BUY, 1=SELL).
type OrderType int

const (
	OrderBuy  OrderType = 0
	OrderSell OrderType = 1
)

// SymbolInfo is the subset of symbol_info the core needs.
type SymbolInfo struct {
	Point        float64
	Digits       int
	VolumeStep   float64
	VolumeMin    float64
	VolumeMax    float64
	TickValue    float64
	TickSize     float64
	StopsLevel   float64
	TradeFillMode FillingMode
}

// Tick is a bid/ask snapshot from symbol_info_tick.
type Tick struct {
	Bid  float64
	Ask  float64
	Time time.Time
}

// Position mirrors one row from positions_get.
type Position struct {
	Ticket       int64
	Symbol       string
	Type         OrderType
	Volume       float64
	PriceOpen    float64
	PriceCurrent float64
	SL           float64
	TP           float64
	Magic        int64
	TimeUpdate   time.Time
	Profit       float64
}

// OrderRequest mirrors the MT5 trade request fields the core submits.
type OrderRequest struct {
	Action     ActionType
	Symbol     string
	Volume     float64
	Type       OrderType
	Price      float64
	SL         float64
	TP         float64
	Deviation  int
	Magic      int64
	Comment    string
	TypeFilling FillingMode
	Position   int64 // ticket, for SLTP/close actions
}

// OrderResult mirrors order_send's response.
type OrderResult struct {
	Retcode int
	Order   int64
	Deal    int64
	Comment string
}

func (r OrderResult) Success() bool {
	return r.Retcode == RetDone || r.Retcode == RetDonePartial
}

func (r OrderResult) IsFillingModeMismatch() bool {
	return r.Retcode == RetInvalidFillA || r.Retcode == RetInvalidFillB
}

// AccountInfo mirrors account_info.
type AccountInfo struct {
	Balance    float64
	Equity     float64
	FreeMargin float64
}

// Client is the per-account MT5 RPC surface the executor and trade manager
// depend on. One implementation dials a real terminal over gRPC
// (grpcClient, grpc.go), with every call except IsTerminalAlive and Close
// returning a not-wired error; another is an in-memory stand-in for tests
// (FakeClient, fake.go).
type Client interface {
	SymbolSelect(ctx context.Context, symbol string, enable bool) (bool, error)
	SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
	SymbolInfoTick(ctx context.Context, symbol string) (Tick, error)
	PositionsGet(ctx context.Context, ticket int64) ([]Position, error)
	OrderSend(ctx context.Context, req OrderRequest) (OrderResult, error)
	AccountInfo(ctx context.Context) (AccountInfo, error)
	IsTerminalAlive(ctx context.Context) (bool, error)
	Close() error
}
