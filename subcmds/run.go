// Copyright (c) 2025 BVK Chaitanya

// Package subcmds implements the mmbot command-line interface.
package subcmds

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvk/mmbot/daemonize"
	"github.com/bvk/mmbot/envfile"
	"github.com/bvk/mmbot/mmbot"
	"github.com/bvk/mmbot/order"
	"github.com/bvk/mmbot/prices"
	"github.com/bvk/mmbot/quoter"
	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/bvk/mmbot/telegram"
	"github.com/nightlyone/lockfile"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
	"github.com/visvasity/sglog"
)

type Run struct {
	cmdutil.DataFlags
	cmdutil.EngineFlags

	background bool

	market string
	userID int64

	tickInterval time.Duration
	priceSymbol  string

	spread         float64
	inventoryRatio float64
	minAmount      float64

	baseAlertLimit  float64
	quoteAlertLimit float64

	baseLowLimit     float64
	quoteSpendAmount float64
	quoteLowLimit    float64
	baseSellAmount   float64
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	c.EngineFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the bot in background")
	fset.StringVar(&c.market, "market", "", "market to quote, e.g. ETH_USDT")
	fset.Int64Var(&c.userID, "user-id", 0, "engine user id for the bot")
	fset.DurationVar(&c.tickInterval, "tick-interval", 10*time.Second, "pause between strategy refreshes")
	fset.StringVar(&c.priceSymbol, "price-symbol", "", "external price symbol (default: base asset)")
	fset.Float64Var(&c.spread, "spread", 0.0005, "half-spread around the reference price")
	fset.Float64Var(&c.inventoryRatio, "inventory-ratio", 0.8, "fraction of holdings risked per quote")
	fset.Float64Var(&c.minAmount, "min-amount", 0.001, "suppress quote sides below this size")
	fset.Float64Var(&c.baseAlertLimit, "base-alert-limit", 0, "alert when base balance is below this")
	fset.Float64Var(&c.quoteAlertLimit, "quote-alert-limit", 0, "alert when quote balance is below this")
	fset.Float64Var(&c.baseLowLimit, "base-low-limit", 0, "rebalance-buy when base holding is below this")
	fset.Float64Var(&c.quoteSpendAmount, "quote-spend-amount", 0, "quote budget for a rebalance buy")
	fset.Float64Var(&c.quoteLowLimit, "quote-low-limit", 0, "rebalance-sell when quote holding is below this")
	fset.Float64Var(&c.baseSellAmount, "base-sell-amount", 0, "base amount for a rebalance sell")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs the market-maker bot in foreground or background"
}

func (c *Run) Description() string {
	return `

Command "run" starts a market-maker bot on one market for one engine user.
The bot quotes both sides around an external reference price and replaces
its orders only when prices move.

Engine and account keys are read from the secrets file in the data
directory; see "setup key". Additional environment variables are loaded
from the ".mmbot.env" file in the home directory.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := envfile.UpdateEnv(".mmbot.env"); err != nil {
		return err
	}

	if len(c.market) == 0 {
		return fmt.Errorf("--market flag is required")
	}
	if c.userID <= 0 {
		return fmt.Errorf("--user-id flag is required")
	}

	dataDir, err := c.DataDir()
	if err != nil {
		return err
	}
	secrets, err := c.Secrets()
	if err != nil {
		return err
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, nil /* check */); err != nil {
			return err
		}
	}

	backend := sglog.NewBackend(&sglog.Options{
		LogDirs: []string{filepath.Join(dataDir, "logs")},
	})
	defer backend.Close()
	slog.SetDefault(slog.New(backend.Handler()))
	log.SetFlags(log.Flags() | log.Lmicroseconds)
	log.Printf("using data directory %s", dataDir)

	lockPath := filepath.Join(dataDir, "mmbot.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
	}
	defer flock.Unlock()

	db, closeDB, err := c.GetDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	client, err := c.NewClient(ctx, secrets)
	if err != nil {
		return err
	}
	defer client.Close()

	markets, err := client.ListMarkets(ctx)
	if err != nil {
		return fmt.Errorf("could not list engine markets: %w", err)
	}
	assets, err := client.ListAssets(ctx)
	if err != nil {
		return fmt.Errorf("could not list engine assets: %w", err)
	}

	keyring, err := secrets.Keyring()
	if err != nil {
		return err
	}
	builder, err := order.New(markets, assets, keyring)
	if err != nil {
		return err
	}
	market, ok := builder.Market(c.market)
	if !ok {
		return fmt.Errorf("engine has no market %q: %w", c.market, os.ErrNotExist)
	}

	priceSource := prices.New(nil /* opts */)

	opts := &mmbot.Options{
		TickInterval: c.tickInterval,
		PriceSymbol:  c.priceSymbol,
		Params: quoter.Params{
			Spread:         decimal.NewFromFloat(c.spread),
			InventoryRatio: decimal.NewFromFloat(c.inventoryRatio),
			MinAmount:      decimal.NewFromFloat(c.minAmount),
		},
		BaseAlertLimit:   decimal.NewFromFloat(c.baseAlertLimit),
		QuoteAlertLimit:  decimal.NewFromFloat(c.quoteAlertLimit),
		BaseLowLimit:     decimal.NewFromFloat(c.baseLowLimit),
		QuoteSpendAmount: decimal.NewFromFloat(c.quoteSpendAmount),
		QuoteLowLimit:    decimal.NewFromFloat(c.quoteLowLimit),
		BaseSellAmount:   decimal.NewFromFloat(c.baseSellAmount),
	}

	uid := fmt.Sprintf("%s-%d", c.market, c.userID)
	bot, err := mmbot.New(ctx, db, uid, c.userID, market, client, builder, priceSource, opts)
	if err != nil {
		return err
	}

	if secrets.Telegram != nil {
		tg, err := telegram.New(ctx, db, secrets.Telegram)
		if err != nil {
			return fmt.Errorf("could not create telegram client: %w", err)
		}
		defer tg.Close()
		bot.SetNotifier(tg)
		if err := tg.AddCommand(ctx, "status", "Prints mmbot market and last quotes", bot.Status); err != nil {
			return fmt.Errorf("could not add telegram status command: %w", err)
		}
	}

	return bot.Run(ctx, db)
}
