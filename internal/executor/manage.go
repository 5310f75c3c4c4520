package executor

import (
	"context"
	"fmt"
	"math"

	"github.com/chidi150c/coretrader/internal/domain"
	"github.com/chidi150c/coretrader/internal/logx"
	"github.com/chidi150c/coretrader/internal/mt5"
)

// slTolerance is how close a re-read SL must be to the requested value to
// count as verified, absorbing broker rounding to the symbol's digits.
const slTolerance = 1e-5

// OpenRunnerTrade opens a single-account follow-up position (add-on or
// reentry), grounded on the same open path as OpenCompleteTrade but for one
// account and an explicit volume rather than the per-account fan-out
//.
func (e *Executor) OpenRunnerTrade(ctx context.Context, account, symbol string, dir domain.Direction, volume, sl, tp float64, providerTag string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, accountTimeout)
	defer cancel()

	cli, ok := e.Clients.Get(account)
	if !ok {
		return 0, fmt.Errorf("executor: no client for account %s", account)
	}
	si, err := cli.SymbolInfo(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("executor: symbol_info %s: %w", symbol, err)
	}
	tick, err := cli.SymbolInfoTick(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("executor: symbol_info_tick %s: %w", symbol, err)
	}
	price := referencePrice(dir, tick)
	sl = clampStopDistance(dir, price, sl, si)

	req := mt5.OrderRequest{
		Action:  mt5.ActionDeal,
		Symbol:  symbol,
		Volume:  volume,
		Type:    orderType(dir),
		SL:      sl,
		TP:      tp,
		Comment: providerTag,
	}
	res, err := e.sendWithFillingFallback(ctx, cli, req, si.TradeFillMode)
	if err != nil {
		return 0, err
	}
	if !res.Success() {
		return 0, fmt.Errorf("executor: runner order_send failed retcode=%d comment=%q", res.Retcode, res.Comment)
	}
	logx.Info("executor.runner_opened", "account=%s symbol=%s ticket=%d volume=%.2f", account, symbol, res.Order, volume)
	return res.Order, nil
}

// ModifySL submits an SLTP action for ticket and verifies the post-condition
// by re-reading the position.
func (e *Executor) ModifySL(ctx context.Context, account string, ticket int64, newSL float64, reason, providerTag string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, accountTimeout)
	defer cancel()

	cli, ok := e.Clients.Get(account)
	if !ok {
		return false, fmt.Errorf("executor: no client for account %s", account)
	}
	positions, err := cli.PositionsGet(ctx, ticket)
	if err != nil || len(positions) == 0 {
		return false, fmt.Errorf("executor: positions_get %d: %w", ticket, err)
	}
	pos := positions[0]

	si, err := cli.SymbolInfo(ctx, pos.Symbol)
	if err != nil {
		return false, fmt.Errorf("executor: symbol_info %s: %w", pos.Symbol, err)
	}
	dir := domain.Buy
	if pos.Type == mt5.OrderSell {
		dir = domain.Sell
	}
	newSL = clampStopDistance(dir, pos.PriceCurrent, newSL, si)

	req := mt5.OrderRequest{
		Action:   mt5.ActionSLTP,
		Symbol:   pos.Symbol,
		Position: ticket,
		SL:       newSL,
		TP:       pos.TP,
		Comment:  providerTag,
	}
	res, err := cli.OrderSend(ctx, req)
	if err != nil {
		return false, fmt.Errorf("executor: sltp order_send: %w", err)
	}
	if !res.Success() {
		return false, fmt.Errorf("executor: sltp failed retcode=%d comment=%q", res.Retcode, res.Comment)
	}

	verify, err := cli.PositionsGet(ctx, ticket)
	if err != nil || len(verify) == 0 {
		return false, fmt.Errorf("executor: sltp verify positions_get %d: %w", ticket, err)
	}
	ok2 := math.Abs(verify[0].SL-newSL) <= slTolerance
	if !ok2 {
		return false, fmt.Errorf("executor: sltp verify mismatch want=%.5f got=%.5f", newSL, verify[0].SL)
	}
	logx.Info("executor.sl_modified", "account=%s ticket=%d sl=%.5f reason=%s", account, ticket, newSL, reason)
	return true, nil
}

// EarlyPartialClose closes fraction of ticket's volume and moves SL to
// break-even, used by the break-even/TP1 management path.
func (e *Executor) EarlyPartialClose(ctx context.Context, account string, ticket int64, fraction float64, providerTag, reason string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, accountTimeout)
	defer cancel()

	cli, ok := e.Clients.Get(account)
	if !ok {
		return false, fmt.Errorf("executor: no client for account %s", account)
	}
	positions, err := cli.PositionsGet(ctx, ticket)
	if err != nil || len(positions) == 0 {
		return false, fmt.Errorf("executor: positions_get %d: %w", ticket, err)
	}
	pos := positions[0]
	si, err := cli.SymbolInfo(ctx, pos.Symbol)
	if err != nil {
		return false, fmt.Errorf("executor: symbol_info %s: %w", pos.Symbol, err)
	}

	volume := closeVolume(pos.Volume, fraction*100, si)
	if volume <= 0 {
		return false, nil
	}
	if err := e.submitClose(ctx, cli, pos, volume, si, providerTag); err != nil {
		return false, err
	}

	be, err := e.ModifySL(ctx, account, ticket, pos.PriceOpen, reason, providerTag)
	if err != nil {
		return false, fmt.Errorf("executor: early_partial_close BE move: %w", err)
	}
	return be, nil
}

// PartialClose closes percent of ticket's current volume, flooring to the
// broker's volume step and promoting to a full close if the residual would
// fall below volume_min.
func (e *Executor) PartialClose(ctx context.Context, account string, ticket int64, percent float64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, accountTimeout)
	defer cancel()

	cli, ok := e.Clients.Get(account)
	if !ok {
		return false, fmt.Errorf("executor: no client for account %s", account)
	}
	positions, err := cli.PositionsGet(ctx, ticket)
	if err != nil || len(positions) == 0 {
		return false, fmt.Errorf("executor: positions_get %d: %w", ticket, err)
	}
	pos := positions[0]
	si, err := cli.SymbolInfo(ctx, pos.Symbol)
	if err != nil {
		return false, fmt.Errorf("executor: symbol_info %s: %w", pos.Symbol, err)
	}

	volume := closeVolume(pos.Volume, percent, si)
	if volume <= 0 {
		return false, nil
	}
	if err := e.submitClose(ctx, cli, pos, volume, si, ""); err != nil {
		return false, err
	}
	logx.Info("executor.partial_close", "account=%s ticket=%d percent=%.1f volume=%.2f", account, ticket, percent, volume)
	return true, nil
}

// closeVolume computes the volume to close for a percent of current
// position volume, flooring to volume_step and promoting to the full
// position when the residual would be below volume_min.
// volumeEpsilon absorbs float64 rounding noise around step/residual
// comparisons (e.g. 0.10-0.09 landing a hair under 0.01 instead of at it).
const volumeEpsilon = 1e-9

func closeVolume(current, percent float64, si mt5.SymbolInfo) float64 {
	raw := current * percent / 100
	vol := snapToStep(raw, si.VolumeStep)
	if vol <= 0 {
		return 0
	}
	residual := current - vol
	if residual > volumeEpsilon && residual < si.VolumeMin-volumeEpsilon {
		return current
	}
	return vol
}

func (e *Executor) submitClose(ctx context.Context, cli mt5.Client, pos mt5.Position, volume float64, si mt5.SymbolInfo, providerTag string) error {
	closeDir := domain.Sell
	if pos.Type == mt5.OrderSell {
		closeDir = domain.Buy
	}
	req := mt5.OrderRequest{
		Action:   mt5.ActionDeal,
		Symbol:   pos.Symbol,
		Volume:   volume,
		Type:     orderType(closeDir),
		Position: pos.Ticket,
		Comment:  providerTag,
	}
	res, err := e.sendWithFillingFallback(ctx, cli, req, si.TradeFillMode)
	if err != nil {
		return fmt.Errorf("executor: close order_send: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("executor: close failed retcode=%d comment=%q", res.Retcode, res.Comment)
	}
	return nil
}
