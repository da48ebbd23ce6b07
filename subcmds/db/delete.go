// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/mmbot/kvutil"
	"github.com/visvasity/cli"
)

type Delete struct {
	Flags
}

func (c *Delete) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("delete", flag.ContinueOnError)
	c.Flags.SetFlags(fset)
	return "delete", fset, cli.CmdFunc(c.run)
}

func (c *Delete) Purpose() string {
	return "Deletes a key from the datastore"
}

func (c *Delete) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("needs one (key) argument")
	}

	db, closeDB, err := c.GetDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	return kvutil.DeleteDB(ctx, db, args[0])
}
