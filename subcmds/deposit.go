// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

type Deposit struct {
	cmdutil.DataFlags
	cmdutil.EngineFlags

	userID int64
	asset  string
	amount string
}

func (c *Deposit) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("deposit", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	c.EngineFlags.SetFlags(fset)
	fset.Int64Var(&c.userID, "user-id", 0, "engine user id")
	fset.StringVar(&c.asset, "asset", "", "asset symbol, e.g. USDT")
	fset.StringVar(&c.amount, "amount", "", "amount to credit")
	return "deposit", fset, cli.CmdFunc(c.run)
}

func (c *Deposit) Purpose() string {
	return "Credits an asset balance on the engine"
}

func (c *Deposit) run(ctx context.Context, args []string) error {
	if c.userID <= 0 {
		return fmt.Errorf("--user-id flag is required")
	}
	if len(c.asset) == 0 {
		return fmt.Errorf("--asset flag is required")
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", c.amount, err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount %s must be positive", amount)
	}

	secrets, err := c.Secrets()
	if err != nil {
		return err
	}
	client, err := c.NewClient(ctx, secrets)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Deposit(ctx, c.userID, c.asset, amount.String()); err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "deposited %s %s for user %d\n", amount, c.asset, c.userID)
	return nil
}
