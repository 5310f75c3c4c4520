// Command coretrader is the program entrypoint: load .env, build Config,
// wire the broker-facing layer, start the Prometheus/healthz server, then
// run the selected stage.
//
// Boot sequence:
//  1. config.LoadDotEnv(config.Needed())  -- read .env (no shell exports required)
//  2. cfg := config.Load()                -- build runtime Config
//  3. wire bus/dedup/parser/router/translator/executor/manager/notifier
//  4. start Prometheus /healthz + /metrics server on cfg.MetricsPort
//  5. run the stage(s) selected by -mode until SIGINT/SIGTERM
//
// Flags:
//
//	-mode {router,translator,executor,manager,all}   Which stage(s) to run (default "all")
//	-dry-run                                         Wire everything but skip the run loop, for a startup smoke check
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chidi150c/coretrader/internal/bus"
	"github.com/chidi150c/coretrader/internal/config"
	"github.com/chidi150c/coretrader/internal/dedup"
	"github.com/chidi150c/coretrader/internal/executor"
	"github.com/chidi150c/coretrader/internal/logx"
	"github.com/chidi150c/coretrader/internal/manager"
	"github.com/chidi150c/coretrader/internal/metrics"
	"github.com/chidi150c/coretrader/internal/mt5"
	"github.com/chidi150c/coretrader/internal/notifier"
	"github.com/chidi150c/coretrader/internal/router"
	"github.com/chidi150c/coretrader/internal/translator"
)

// managerTickInterval paces Manager.Run between sweeps of every account's
// open positions.
const managerTickInterval = 2 * time.Second

func main() {
	var mode string
	var dryRun bool
	flag.StringVar(&mode, "mode", "all", "which stage(s) to run: router, translator, executor, manager, all")
	flag.BoolVar(&dryRun, "dry-run", false, "wire everything but exit before running the stage loop")
	flag.Parse()

	config.LoadDotEnv(config.Needed())
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	b, err := bus.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("bus: %v", err)
	}
	defer b.Close()

	clients := wireClients(cfg)
	dedupStore := dedup.New(b.Raw(), cfg.DedupTTLSeconds)
	fastTracker := router.NewFastTracker(b.Raw(), cfg.FastUpdateWindowSeconds)
	idGen := func() string { return uuid.NewString() }

	r := router.New(b, dedupStore, fastTracker, cfg.Channels, cfg.TradingWindows, idGen)
	tr := translator.New(b)
	exec := executor.New(clients, cfg)
	notif := notifier.New(cfg.NotifierSinkURL)
	mgr := manager.New(clients, exec, cfg, notif)

	srv := &http.Server{Addr: ":" + strconv.Itoa(cfg.MetricsPort), Handler: metrics.Handler()}
	go func() {
		log.Printf("serving metrics on %s/metrics", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server: %v", err)
		}
	}()

	if dryRun {
		log.Printf("dry-run: wiring complete for mode=%s, %d accounts", mode, len(cfg.Accounts))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go notif.Run(ctx)

	g, gctx := errgroup.WithContext(ctx)
	runStage := func(name string) bool { return mode == name || mode == "all" }

	if runStage("router") {
		g.Go(func() error { return r.Run(gctx, "coretrader-router") })
	}
	if runStage("translator") {
		g.Go(func() error { return tr.Run(gctx, "coretrader-translator") })
	}
	if runStage("executor") {
		g.Go(func() error { return exec.Run(gctx, b, "coretrader-executor") })
	}
	if runStage("manager") {
		g.Go(func() error { return mgr.Run(gctx, managerTickInterval) })
		g.Go(func() error { return mgr.RunMgmtConsumer(gctx, b, "coretrader-manager") })
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logx.Error("coretrader.run", "%v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

// wireClients dials one gRPC connection per active account. A dial failure
// is logged, not fatal, and is not retried: that account has no client for
// the rest of the run, so executor/manager calls for it fail per-account
// without taking down the other accounts' positions.
func wireClients(cfg config.Config) executor.MapClients {
	clients := make(executor.MapClients, len(cfg.Accounts))
	for _, acct := range cfg.Accounts {
		if !acct.Active {
			continue
		}
		cli, err := mt5.NewGRPCClient(context.Background(), acct.Host, acct.Port)
		if err != nil {
			log.Printf("account %s: dial failed, no client for this run: %v", acct.Name, err)
			continue
		}
		clients[acct.Name] = cli
	}
	return clients
}
