// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Markets struct {
	cmdutil.DataFlags
	cmdutil.EngineFlags
}

func (c *Markets) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("markets", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	c.EngineFlags.SetFlags(fset)
	return "markets", fset, cli.CmdFunc(c.run)
}

func (c *Markets) Purpose() string {
	return "Prints markets and assets available on the engine"
}

func (c *Markets) run(ctx context.Context, args []string) error {
	secrets, err := c.Secrets()
	if err != nil {
		return err
	}
	client, err := c.NewClient(ctx, secrets)
	if err != nil {
		return err
	}
	defer client.Close()

	markets, err := client.ListMarkets(ctx)
	if err != nil {
		return err
	}
	stdout := cli.Stdout(ctx)
	for _, m := range markets {
		fmt.Fprintf(stdout, "%s base=%s quote=%s amount-precision=%d price-precision=%d min-amount=%s\n",
			m.Name, m.Base, m.Quote, m.AmountPrecision, m.PricePrecision, m.MinAmount)
	}

	assets, err := client.ListAssets(ctx)
	if err != nil {
		return err
	}
	for _, a := range assets {
		fmt.Fprintf(stdout, "%s inner-id=%d\n", a.Symbol, a.InnerID)
	}
	return nil
}
