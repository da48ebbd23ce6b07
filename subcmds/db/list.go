// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"context"
	"flag"
	"fmt"
	"regexp"

	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"
)

type List struct {
	Flags

	keyRe string
}

func (c *List) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("list", flag.ContinueOnError)
	c.Flags.SetFlags(fset)
	fset.StringVar(&c.keyRe, "key-regexp", "", "when non-empty, only matching keys are printed")
	return "list", fset, cli.CmdFunc(c.run)
}

func (c *List) Purpose() string {
	return "Prints keys in the datastore"
}

func (c *List) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	var keyRe *regexp.Regexp
	if len(c.keyRe) != 0 {
		re, err := regexp.Compile(c.keyRe)
		if err != nil {
			return fmt.Errorf("could not compile key-regexp value: %w", err)
		}
		keyRe = re
	}

	db, closeDB, err := c.GetDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	stdout := cli.Stdout(ctx)
	list := func(ctx context.Context, r kv.Reader) error {
		it, err := r.Scan(ctx)
		if err != nil {
			return err
		}
		defer kv.Close(it)

		for k, _, err := it.Fetch(ctx, false); err == nil; k, _, err = it.Fetch(ctx, true) {
			if keyRe == nil || keyRe.MatchString(k) {
				fmt.Fprintln(stdout, k)
			}
		}
		return nil
	}
	return kv.WithReader(ctx, db, list)
}
