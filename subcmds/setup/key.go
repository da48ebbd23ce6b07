// Copyright (c) 2025 BVK Chaitanya

// Package setup implements the subcommands that write the secrets file.
package setup

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bvk/mmbot/account"
	"github.com/bvk/mmbot/subcmds/cmdutil"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Key struct {
	cmdutil.DataFlags

	userID int64

	generate bool
}

func (c *Key) Purpose() string {
	return "Configures the settlement key for an engine user"
}

func (c *Key) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("key", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.Int64Var(&c.userID, "user-id", 0, "engine user id the key belongs to")
	fset.BoolVar(&c.generate, "generate", false, "generate a fresh key instead of importing one")
	return "key", fset, cli.CmdFunc(c.run)
}

func (c *Key) Description() string {
	return `

Command "key" stores the EC private key used to sign order intents for one
engine user. The key is read from the terminal so it never appears in the
shell history:

  $ mmbot setup key --user-id=7

Use --generate to create a fresh key; the public key is printed so it can
be registered with the engine.

`
}

func (c *Key) run(ctx context.Context, args []string) error {
	if c.userID <= 0 {
		return fmt.Errorf("--user-id flag is required")
	}

	var a *account.Account
	if c.generate {
		fresh, err := account.Generate()
		if err != nil {
			return err
		}
		a = fresh
	} else {
		fmt.Fprintf(os.Stderr, "Paste the PEM private key and press Ctrl-D:\n")
		data, err := readSecret()
		if err != nil {
			return err
		}
		imported, err := account.FromPEM(data)
		if err != nil {
			return err
		}
		a = imported
	}

	pemText, err := a.PEM()
	if err != nil {
		return err
	}

	fpath, err := c.SecretsPath()
	if err != nil {
		return err
	}
	secrets, err := c.Secrets()
	if err != nil {
		return err
	}
	if secrets.Accounts == nil {
		secrets.Accounts = make(map[string]string)
	}
	secrets.Accounts[strconv.FormatInt(c.userID, 10)] = pemText
	if err := secrets.WriteFile(fpath); err != nil {
		return err
	}

	fmt.Fprintf(cli.Stdout(ctx), "stored key for user %d; public key %s\n", c.userID, a.PublicKey())
	return nil
}

// readSecret reads multi-line input with echo disabled when stdin is a
// terminal, or plain stdin otherwise (for scripted use).
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		var sb strings.Builder
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			sb.Write(buf[:n])
			if err != nil {
				break
			}
		}
		return sb.String(), nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return "", err
	}
	defer term.Restore(fd, state)

	t := term.NewTerminal(os.Stdin, "")
	var lines []string
	for {
		line, err := t.ReadLine()
		if err != nil {
			break
		}
		lines = append(lines, line)
		if strings.Contains(line, "END") && strings.Contains(line, "PRIVATE KEY") {
			break
		}
	}
	return strings.Join(lines, "\n") + "\n", nil
}
