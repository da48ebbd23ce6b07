// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/bvk/mmbot/telegram"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Telegram struct {
	cmdutil.DataFlags

	skipTesting bool

	ownerID  string
	adminID  string
	botToken string
}

func (c *Telegram) Purpose() string {
	return "Setup configures Telegram service API parameters"
}

func (c *Telegram) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("telegram", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.StringVar(&c.ownerID, "owner-id", "", "Owner's telegram user id")
	fset.StringVar(&c.adminID, "admin-id", "", "Administrator's telegram user id")
	fset.StringVar(&c.botToken, "bot-token", "", "Telegram bot's authentication token")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "telegram", fset, cli.CmdFunc(c.run)
}

func (c *Telegram) Description() string {
	return `

Command "telegram" helps users configure notifications to their Telegram
account through a Telegram bot.

Telegram configuration is optional. This is only required to receive
low-balance and failure alerts on the mobile phone:

  $ mmbot setup telegram --owner-id=username --bot-token=USCJS2...TVP4KV

`
}

func (c *Telegram) run(ctx context.Context, args []string) error {
	fpath, err := c.SecretsPath()
	if err != nil {
		return err
	}
	secrets, err := c.Secrets()
	if err != nil {
		return err
	}

	secrets.Telegram = &telegram.Secrets{
		OwnerID:  c.ownerID,
		AdminID:  c.adminID,
		BotToken: c.botToken,
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		func() {
			fmt.Println("Start a chat with telegram bot and then press any key")
			// switch stdin into 'raw' mode
			oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
			if err != nil {
				log.Fatal(err)
			}
			defer term.Restore(int(os.Stdin.Fd()), oldState)

			b := make([]byte, 1)
			if _, err := os.Stdin.Read(b); err != nil {
				log.Fatal(err)
			}
		}()

		// Attempt to authenticate with telegram to validate the token.
		client, err := telegram.New(ctx, kvmemdb.New(), secrets.Telegram)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.SendMessage(ctx, time.Now(), "mmbot telegram setup is successful"); err != nil {
			return err
		}
	}

	return secrets.WriteFile(fpath)
}
