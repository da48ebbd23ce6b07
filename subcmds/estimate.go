// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/mmbot/depth"
	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

type Estimate struct {
	cmdutil.DataFlags
	cmdutil.EngineFlags

	market string

	sellBase string
	buyQuote string

	limit int
}

func (c *Estimate) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("estimate", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	c.EngineFlags.SetFlags(fset)
	fset.StringVar(&c.market, "market", "", "market name, e.g. ETH_USDT")
	fset.StringVar(&c.sellBase, "sell-base", "", "estimate selling this much base")
	fset.StringVar(&c.buyQuote, "buy-quote", "", "estimate spending this much quote")
	fset.IntVar(&c.limit, "limit", 0, "max book levels per side to fetch")
	return "estimate", fset, cli.CmdFunc(c.run)
}

func (c *Estimate) Purpose() string {
	return "Estimates a market-order fill against the current book"
}

func (c *Estimate) run(ctx context.Context, args []string) error {
	if len(c.market) == 0 {
		return fmt.Errorf("--market flag is required")
	}
	if len(c.sellBase) == 0 && len(c.buyQuote) == 0 {
		return fmt.Errorf("one of --sell-base or --buy-quote is required")
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

	book, err := client.QueryDepth(ctx, c.market, c.limit, "0")
	if err != nil {
		return err
	}

	var est *depth.FillEstimate
	if len(c.sellBase) != 0 {
		target, err := decimal.NewFromString(c.sellBase)
		if err != nil {
			return fmt.Errorf("invalid sell-base %q: %w", c.sellBase, err)
		}
		est = depth.EstimateSell(book, target)
	} else {
		target, err := decimal.NewFromString(c.buyQuote)
		if err != nil {
			return fmt.Errorf("invalid buy-quote %q: %w", c.buyQuote, err)
		}
		est = depth.EstimateBuy(book, target)
	}

	stdout := cli.Stdout(ctx)
	fmt.Fprintf(stdout, "filled-base=%s filled-quote=%s\n", est.FilledBase, est.FilledQuote)
	if avg, ok := est.AvgPrice(); ok {
		fmt.Fprintf(stdout, "avg-price=%s best-price=%s worst-price=%s\n", avg, est.BestPrice, est.WorstPrice)
	} else {
		fmt.Fprintf(stdout, "book has no depth for this estimate\n")
	}
	return nil
}
