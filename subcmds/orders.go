// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Orders struct {
	cmdutil.DataFlags
	cmdutil.EngineFlags

	userID int64
	market string
}

func (c *Orders) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("orders", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	c.EngineFlags.SetFlags(fset)
	fset.Int64Var(&c.userID, "user-id", 0, "engine user id")
	fset.StringVar(&c.market, "market", "", "market name, e.g. ETH_USDT")
	return "orders", fset, cli.CmdFunc(c.run)
}

func (c *Orders) Purpose() string {
	return "Prints open orders for a user on a market"
}

func (c *Orders) run(ctx context.Context, args []string) error {
	if c.userID <= 0 {
		return fmt.Errorf("--user-id flag is required")
	}
	if len(c.market) == 0 {
		return fmt.Errorf("--market flag is required")
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

	orders, err := client.OpenOrders(ctx, c.userID, c.market)
	if err != nil {
		return err
	}
	stdout := cli.Stdout(ctx)
	for _, o := range orders {
		fmt.Fprintf(stdout, "%s %s %s %s %s@%s filled=%s/%s created=%s\n",
			o.ID, o.Market, o.Side, o.Type, o.Amount, o.Price, o.FilledBase, o.FilledQuote, o.CreateTime.Format("2006-01-02 15:04:05"))
	}
	return nil
}
