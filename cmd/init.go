package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/config"
	"github.com/google/subcommands"
)

type initCmd struct {
	force   bool
	backend string
	data    string
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create a configuration file and an empty ledger" }
func (*initCmd) Usage() string {
	return `cgt init [-f] [-backend sqlite|json] [-data <path>]

  Writes a starter configuration file (see -config) with the default
  settings, and creates the ledger storage it points to.
`
}

func (c *initCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.force, "f", false, "Overwrite an existing configuration file")
	f.StringVar(&c.backend, "backend", "", "Storage backend, sqlite or json")
	f.StringVar(&c.data, "data", "", "Path of the ledger storage")
}

func (c *initCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if _, err := os.Stat(*configFile); err == nil && !c.force {
		return fail("%s already exists, use -f to overwrite it", *configFile)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fail("%v", err)
	}

	cfg := config.Default()
	if c.backend != "" {
		cfg.Backend = c.backend
		if c.backend == config.BackendJSON && c.data == "" {
			cfg.DataPath = "portfolio.json"
		}
	}
	if c.data != "" {
		cfg.DataPath = c.data
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if err := cfg.Write(*configFile); err != nil {
		return fail("%v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return fail("could not create %s store %q: %v", cfg.Backend, cfg.DataPath, err)
	}
	err = store.Atomic(func(taxlot.Repository) error { return nil })
	if cerr := store.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail("could not create %s store %q: %v", cfg.Backend, cfg.DataPath, err)
	}
	fmt.Printf("Configuration written to %s, ledger stored in %s (%s).\n", *configFile, cfg.DataPath, cfg.Backend)
	return subcommands.ExitSuccess
}
