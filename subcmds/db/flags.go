// Copyright (c) 2025 BVK Chaitanya

// Package db implements subcommands for direct datastore access.
package db

import (
	"flag"

	"github.com/bvk/mmbot/subcmds/cmdutil"
)

type Flags struct {
	cmdutil.DataFlags
}

func (f *Flags) SetFlags(fset *flag.FlagSet) {
	f.DataFlags.SetFlags(fset)
}
