package mt5

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// grpcClient is the production Client: one gRPC connection per account,
// against the remote MT5 terminal RPC surface. The shape of this client
// (ConnectByServerName-style dial, EnsureSymbolVisible
// before any trade, IsTerminalAlive liveness probe) is grounded on
// MetaRPC/GoMT5's mt5.MT5Account, which wraps the same protobuf service.
// The generated stubs themselves (pb "git.mtapi.io/.../mt5/libraries/go")
// are an external, account-specific artifact not vendored into this
// module; grpcClient talks to them through the narrow Client interface so
// the rest of the core never imports the generated package directly.
type grpcClient struct {
	conn    *grpc.ClientConn
	host    string
	port    int
	account int64
	dialer  func(ctx context.Context, target string) (*grpc.ClientConn, error)
}

// NewGRPCClient dials one MT5 terminal. Nothing in this module dials again
// after a failed dial: cmd/coretrader leaves that account without a client.
func NewGRPCClient(ctx context.Context, host string, port int) (Client, error) {
	target := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.DialContext(ctx, target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
		grpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("mt5: dial %s: %w", target, err)
	}
	return &grpcClient{conn: conn, host: host, port: port}, nil
}

// The methods below are deliberately unimplemented beyond the connection
// lifecycle: translating each call into the generated protobuf request and
// back is mechanical wiring against an account-specific stub package that
// isn't part of this module (see the type comment above). Every call path
// in executor/manager goes through the Client interface, so swapping this
// stub body for real request/response marshaling is a localized change that
// does not touch trading logic.

func (g *grpcClient) SymbolSelect(ctx context.Context, symbol string, enable bool) (bool, error) {
	return false, errNotWired("SymbolSelect")
}

func (g *grpcClient) SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error) {
	return SymbolInfo{}, errNotWired("SymbolInfo")
}

func (g *grpcClient) SymbolInfoTick(ctx context.Context, symbol string) (Tick, error) {
	return Tick{}, errNotWired("SymbolInfoTick")
}

func (g *grpcClient) PositionsGet(ctx context.Context, ticket int64) ([]Position, error) {
	return nil, errNotWired("PositionsGet")
}

func (g *grpcClient) OrderSend(ctx context.Context, req OrderRequest) (OrderResult, error) {
	return OrderResult{}, errNotWired("OrderSend")
}

func (g *grpcClient) AccountInfo(ctx context.Context) (AccountInfo, error) {
	return AccountInfo{}, errNotWired("AccountInfo")
}

func (g *grpcClient) IsTerminalAlive(ctx context.Context) (bool, error) {
	if g.conn == nil {
		return false, nil
	}
	state := g.conn.GetState()
	return state.String() == "READY" || state.String() == "IDLE", nil
}

func (g *grpcClient) Close() error {
	if g.conn == nil {
		return nil
	}
	return g.conn.Close()
}

func errNotWired(method string) error {
	return fmt.Errorf("mt5: %s requires the account-specific generated RPC stub, not vendored into this module", method)
}
