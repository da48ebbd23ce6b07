// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/mmbot/exchange"
	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Cancel struct {
	cmdutil.DataFlags
	cmdutil.EngineFlags

	userID int64
	market string

	all bool
}

func (c *Cancel) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("cancel", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	c.EngineFlags.SetFlags(fset)
	fset.Int64Var(&c.userID, "user-id", 0, "engine user id")
	fset.StringVar(&c.market, "market", "", "market name, e.g. ETH_USDT")
	fset.BoolVar(&c.all, "all", false, "cancel all open orders on the market")
	return "cancel", fset, cli.CmdFunc(c.run)
}

func (c *Cancel) Purpose() string {
	return "Cancels one or all open orders on a market"
}

func (c *Cancel) run(ctx context.Context, args []string) error {
	if c.userID <= 0 {
		return fmt.Errorf("--user-id flag is required")
	}
	if len(c.market) == 0 {
		return fmt.Errorf("--market flag is required")
	}
	if !c.all && len(args) == 0 {
		return fmt.Errorf("needs order id arguments or the --all flag")
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

	if c.all {
		return client.CancelAll(ctx, c.userID, c.market)
	}
	for _, arg := range args {
		if err := client.Cancel(ctx, c.userID, c.market, exchange.OrderID(arg)); err != nil {
			return fmt.Errorf("could not cancel order %s: %w", arg, err)
		}
	}
	return nil
}
