// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bvk/mmbot/exchange"
	"github.com/bvk/mmbot/order"
	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/visvasity/cli"
)

type Trade struct {
	cmdutil.DataFlags
	cmdutil.EngineFlags

	userID int64
	market string

	side      string
	orderType string

	amount string
	price  string

	unsigned bool
	strict   bool
}

func (c *Trade) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("trade", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	c.EngineFlags.SetFlags(fset)
	fset.Int64Var(&c.userID, "user-id", 0, "engine user id")
	fset.StringVar(&c.market, "market", "", "market name, e.g. ETH_USDT")
	fset.StringVar(&c.side, "side", "", `order side: "bid" or "ask"`)
	fset.StringVar(&c.orderType, "type", "limit", `order type: "limit" or "market"`)
	fset.StringVar(&c.amount, "amount", "", "base asset amount")
	fset.StringVar(&c.price, "price", "", "limit price (ignored for market orders)")
	fset.BoolVar(&c.unsigned, "unsigned", false, "submit without a settlement signature")
	fset.BoolVar(&c.strict, "strict", false, "reject values not already at the market precision")
	return "trade", fset, cli.CmdFunc(c.run)
}

func (c *Trade) Purpose() string {
	return "Places a single order on the engine"
}

func (c *Trade) request() (*order.Request, error) {
	if c.userID <= 0 {
		return nil, fmt.Errorf("--user-id flag is required")
	}
	if len(c.market) == 0 {
		return nil, fmt.Errorf("--market flag is required")
	}

	req := &order.Request{
		UserID: c.userID,
		Market: c.market,
		Strict: c.strict,
	}
	switch c.side {
	case "bid", "buy":
		req.Side = exchange.SideBid
	case "ask", "sell":
		req.Side = exchange.SideAsk
	default:
		return nil, fmt.Errorf("invalid side %q: %w", c.side, os.ErrInvalid)
	}
	switch c.orderType {
	case "limit":
		req.Type = exchange.TypeLimit
	case "market":
		req.Type = exchange.TypeMarket
	default:
		return nil, fmt.Errorf("invalid order type %q: %w", c.orderType, os.ErrInvalid)
	}

	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", c.amount, err)
	}
	req.Amount = amount
	if len(c.price) != 0 {
		price, err := decimal.NewFromString(c.price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q: %w", c.price, err)
		}
		req.Price = price
	}
	return req, nil
}

func (c *Trade) run(ctx context.Context, args []string) error {
	req, err := c.request()
	if err != nil {
		return err
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

	var placed *exchange.Order
	if c.unsigned {
		intent, err := builder.BuildUnsigned(req)
		if err != nil {
			return err
		}
		placed, err = client.SubmitUnsigned(ctx, intent, uuid.NewString())
		if err != nil {
			return err
		}
	} else {
		signed, err := builder.Build(req)
		if err != nil {
			return err
		}
		placed, err = client.Submit(ctx, signed, uuid.NewString())
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(cli.Stdout(ctx), "placed order %s: %s %s %s@%s\n", placed.ID, placed.Side, placed.Type, placed.Amount, placed.Price)
	return nil
}
