// Command smoketest is a one-shot connectivity check against every
// configured MT5 account and the Redis bus: hard-fail early on missing
// config, dial each dependency, report pass/fail per target, and exit
// non-zero on any failure so it's usable as a deploy-time gate.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/chidi150c/coretrader/internal/bus"
	"github.com/chidi150c/coretrader/internal/config"
	"github.com/chidi150c/coretrader/internal/mt5"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Second, "per-target dial timeout")
	flag.Parse()

	config.LoadDotEnv(config.Needed())
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if len(cfg.Accounts) == 0 {
		log.Fatal("ACCOUNTS_JSON is empty; nothing to smoke test")
	}

	failed := false

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	b, err := bus.New(cfg.RedisURL)
	if err != nil {
		fmt.Printf("FAIL bus %s: %v\n", cfg.RedisURL, err)
		failed = true
	} else {
		if _, err := b.Raw().Ping(ctx).Result(); err != nil {
			fmt.Printf("FAIL bus ping: %v\n", err)
			failed = true
		} else {
			fmt.Printf("OK   bus %s\n", cfg.RedisURL)
		}
		_ = b.Close()
	}
	cancel()

	for _, acct := range cfg.Accounts {
		if !acct.Active {
			fmt.Printf("SKIP account %s (inactive)\n", acct.Name)
			continue
		}
		dctx, dcancel := context.WithTimeout(context.Background(), *timeout)
		cli, err := mt5.NewGRPCClient(dctx, acct.Host, acct.Port)
		dcancel()
		if err != nil {
			fmt.Printf("FAIL account %s (%s:%d): dial: %v\n", acct.Name, acct.Host, acct.Port, err)
			failed = true
			continue
		}
		alive, err := cli.IsTerminalAlive(context.Background())
		_ = cli.Close()
		if err != nil || !alive {
			fmt.Printf("FAIL account %s (%s:%d): terminal not alive: %v\n", acct.Name, acct.Host, acct.Port, err)
			failed = true
			continue
		}
		fmt.Printf("OK   account %s (%s:%d)\n", acct.Name, acct.Host, acct.Port)
	}

	if failed {
		os.Exit(1)
	}
}
