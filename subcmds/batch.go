// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/bvk/mmbot/exchange"
	"github.com/bvk/mmbot/order"
	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

// Batch places a series of randomly priced limit orders around a center
// price. It exists to exercise an engine deployment with realistic load.
type Batch struct {
	cmdutil.DataFlags
	cmdutil.EngineFlags

	userID int64
	market string

	count int

	centerPrice float64
	priceRange  float64
	amount      float64
}

func (c *Batch) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("batch", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	c.EngineFlags.SetFlags(fset)
	fset.Int64Var(&c.userID, "user-id", 0, "engine user id")
	fset.StringVar(&c.market, "market", "", "market name, e.g. ETH_USDT")
	fset.IntVar(&c.count, "count", 10, "number of orders to place")
	fset.Float64Var(&c.centerPrice, "center-price", 0, "center price for the random orders")
	fset.Float64Var(&c.priceRange, "price-range", 0.01, "relative price range around the center")
	fset.Float64Var(&c.amount, "amount", 0.01, "base amount per order")
	return "batch", fset, cli.CmdFunc(c.run)
}

func (c *Batch) Purpose() string {
	return "Places a batch of randomly priced orders for engine testing"
}

func (c *Batch) run(ctx context.Context, args []string) error {
	if c.userID <= 0 {
		return fmt.Errorf("--user-id flag is required")
	}
	if len(c.market) == 0 {
		return fmt.Errorf("--market flag is required")
	}
	if c.centerPrice <= 0 {
		return fmt.Errorf("--center-price flag is required")
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

	markets, err := client.ListMarkets(ctx)
	if err != nil {
		return err
	}
	assets, err := client.ListAssets(ctx)
	if err != nil {
		return err
	}
	keyring, err := secrets.Keyring()
	if err != nil {
		return err
	}
	builder, err := order.New(markets, assets, keyring)
	if err != nil {
		return err
	}

	for i := 0; i < c.count; i++ {
		// Alternate sides with prices uniformly spread around the center.
		side := exchange.SideBid
		if i%2 == 1 {
			side = exchange.SideAsk
		}
		price := c.centerPrice * (1 + c.priceRange*(2*rand.Float64()-1))

		signed, err := builder.Build(&order.Request{
			UserID: c.userID,
			Market: c.market,
			Side:   side,
			Type:   exchange.TypeLimit,
			Amount: decimal.NewFromFloat(c.amount),
			Price:  decimal.NewFromFloat(price),
		})
		if err != nil {
			return err
		}
		placed, err := client.Submit(ctx, signed, uuid.NewString())
		if err != nil {
			log.Printf("could not place batch order %d (ignored): %v", i, err)
			continue
		}
		fmt.Fprintf(cli.Stdout(ctx), "placed order %s: %s %s@%s\n", placed.ID, placed.Side, placed.Amount, placed.Price)
	}
	return nil
}
