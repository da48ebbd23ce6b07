// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/bvk/mmbot/gobs"
	"github.com/bvk/mmbot/kvutil"
	"github.com/bvk/mmbot/mmbot"
	"github.com/visvasity/cli"
)

type Get struct {
	Flags
}

func (c *Get) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("get", flag.ContinueOnError)
	c.Flags.SetFlags(fset)
	return "get", fset, cli.CmdFunc(c.run)
}

func (c *Get) Purpose() string {
	return "Prints the decoded value of a key in the datastore"
}

func (c *Get) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (key) argument")
	}
	key := args[0]

	db, closeDB, err := c.GetDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	var value any
	switch {
	case strings.HasPrefix(key, mmbot.DefaultKeyspace):
		v, err := kvutil.GetDB[gobs.BotState](ctx, db, key)
		if err != nil {
			return err
		}
		value = v
	case strings.HasPrefix(key, "/telegram/"):
		v, err := kvutil.GetDB[gobs.TelegramState](ctx, db, key)
		if err != nil {
			return err
		}
		value = v
	default:
		return fmt.Errorf("don't know the value type for key %q", key)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Stdout(ctx), "%s\n", data)
	return nil
}
