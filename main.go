// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/mmbot/subcmds"
	"github.com/bvk/mmbot/subcmds/db"
	"github.com/bvk/mmbot/subcmds/setup"
	"github.com/visvasity/cli"
)

func main() {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.List),
		new(db.Delete),
	}

	setupCmds := []cli.Command{
		new(setup.Key),
		new(setup.Telegram),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Register),
		new(subcmds.Deposit),
		new(subcmds.Balance),
		new(subcmds.Markets),
		new(subcmds.Orders),
		new(subcmds.Trade),
		new(subcmds.Batch),
		new(subcmds.Cancel),
		new(subcmds.Estimate),
		cli.NewGroup("setup", "Configure keys and notifications", setupCmds...),
		cli.NewGroup("db", "View/update the datastore directly", dbCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
