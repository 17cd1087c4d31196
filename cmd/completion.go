package cmd

import (
	"flag"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// flagPredictors complete flag values by flag name.
var flagPredictors = map[string]complete.Predictor{
	"config":  predict.Files("*.yaml"),
	"m":       predict.Set{"FIFO", "HIFO", "SPECIFIC_ID"},
	"t":       predict.Set{"BUY", "SELL", "DRP"},
	"backend": predict.Set{"sqlite", "json"},
	"o":       predict.Files("*.jsonl"),
}

// argPredictors complete positional arguments by command name.
var argPredictors = map[string]complete.Predictor{
	"import": predict.Files("*.jsonl"),
}

// groupCommand is a command with subcommands of its own.
type groupCommand interface {
	subcommands.Command
	commands() []subcommands.Command
}

// Completion returns the shell completion of the commands registered on c,
// top are the global flags.
func Completion(c *subcommands.Commander, top *flag.FlagSet) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flagsCompletion(top),
	}
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		root.Sub[cmd.Name()] = commandCompletion(cmd)
	})
	return root
}

func commandCompletion(cmd subcommands.Command) *complete.Command {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	cc := &complete.Command{
		Flags: flagsCompletion(fs),
		Args:  argPredictors[cmd.Name()],
	}
	if g, ok := cmd.(groupCommand); ok {
		cc.Sub = make(map[string]*complete.Command)
		for _, sub := range g.commands() {
			cc.Sub[sub.Name()] = commandCompletion(sub)
		}
	}
	return cc
}

func flagsCompletion(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[f.Name] = predict.Nothing
			return
		}
		if p, ok := flagPredictors[f.Name]; ok {
			flags[f.Name] = p
			return
		}
		flags[f.Name] = predict.Something
	})
	return flags
}

// IsCommand reports whether name is a command registered on c.
func IsCommand(c *subcommands.Commander, name string) bool {
	found := false
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		if cmd.Name() == name {
			found = true
		}
	})
	return found
}
