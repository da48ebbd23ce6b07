// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"sort"

	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Balance struct {
	cmdutil.DataFlags
	cmdutil.EngineFlags

	userID int64
}

func (c *Balance) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("balance", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	c.EngineFlags.SetFlags(fset)
	fset.Int64Var(&c.userID, "user-id", 0, "engine user id")
	return "balance", fset, cli.CmdFunc(c.run)
}

func (c *Balance) Purpose() string {
	return "Prints asset balances for a user"
}

func (c *Balance) run(ctx context.Context, args []string) error {
	if c.userID <= 0 {
		return fmt.Errorf("--user-id flag is required")
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

	balanceMap, err := client.QueryBalance(ctx, c.userID)
	if err != nil {
		return err
	}
	var symbols []string
	for symbol := range balanceMap {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	stdout := cli.Stdout(ctx)
	for _, symbol := range symbols {
		b := balanceMap[symbol]
		fmt.Fprintf(stdout, "%s available=%s frozen=%s total=%s\n", symbol, b.Available, b.Frozen, b.Total())
	}
	return nil
}
