// Command cgt keeps a tax-lot ledger: trades, lots, disposals and the
// capital gains they realise.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	_ "time/tzdata"

	"github.com/etnz/taxlot/cmd"
	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	// exits when invoked by the shell to complete a command line
	cmd.Completion(commander, flag.CommandLine).Complete("cgt")

	flag.Parse()
	if name := flag.Arg(0); name != "" && !cmd.IsCommand(commander, name) {
		if found, code := cmd.RunExtension(name, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}
