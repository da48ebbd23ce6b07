// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Register struct {
	cmdutil.DataFlags
	cmdutil.EngineFlags

	l1Address string
	l2Pubkey  string
}

func (c *Register) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("register", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	c.EngineFlags.SetFlags(fset)
	fset.StringVar(&c.l1Address, "l1-address", "", "settlement layer address for the new user")
	fset.StringVar(&c.l2Pubkey, "l2-pubkey", "", "compressed public key hex (default: from the secrets file)")
	return "register", fset, cli.CmdFunc(c.run)
}

func (c *Register) Purpose() string {
	return "Registers a new user with the engine"
}

func (c *Register) run(ctx context.Context, args []string) error {
	secrets, err := c.Secrets()
	if err != nil {
		return err
	}
	client, err := c.NewClient(ctx, secrets)
	if err != nil {
		return err
	}
	defer client.Close()

	user, err := client.RegisterUser(ctx, c.l1Address, c.l2Pubkey)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "registered user %d\n", user.ID)
	return nil
}
