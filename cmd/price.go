package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/quotes"
	"github.com/etnz/taxlot/renderer"
	"github.com/google/subcommands"
)

// priceCmd is the top-level command for quotes.
type priceCmd struct{}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "manage the quotes used to value positions" }
func (*priceCmd) Usage() string {
	return `price <subcommand> <options>

Manual quotes: "set" records a price, "show" lists every known quote.
`
}
func (c *priceCmd) SetFlags(f *flag.FlagSet) {}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	commander := subcommands.NewCommander(f, "price")
	for _, sub := range c.commands() {
		commander.Register(sub, "")
	}
	return commander.Execute(ctx, args...)
}

func (*priceCmd) commands() []subcommands.Command {
	return []subcommands.Command{&priceSetCmd{}, &priceShowCmd{}}
}

type priceSetCmd struct {
	asOf string
}

func (*priceSetCmd) Name() string     { return "set" }
func (*priceSetCmd) Synopsis() string { return "record the price of a symbol" }
func (*priceSetCmd) Usage() string {
	return `cgt price set [-d <time>] <symbol> <price>

  Records a manual quote in the quotes file (quotes.manual).
`
}

func (c *priceSetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asOf, "d", "", "Time of the quote, now by default")
}

func (c *priceSetCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		return fail("%v", err)
	}
	asOf, err := parseTime(c.asOf, cfg.Location())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	price, err := taxlot.ParseMoney(f.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	manual, err := quotes.OpenManual(cfg.Quotes.Manual)
	if err != nil {
		return fail("%v", err)
	}
	q, err := manual.Set(f.Arg(0), price, asOf)
	if err != nil {
		return fail("could not set price: %v", err)
	}
	fmt.Printf("%s quoted %s on %s\n", q.Symbol, q.Price.Format(cfg.BaseCurrency), q.AsOf.In(cfg.Location()).Format("2006-01-02 15:04"))
	return subcommands.ExitSuccess
}

type priceShowCmd struct{}

func (*priceShowCmd) Name() string     { return "show" }
func (*priceShowCmd) Synopsis() string { return "list the known quotes" }
func (*priceShowCmd) Usage() string {
	return `cgt price show [<symbol>...]

  Lists the latest quote of each symbol from every configured source, stale
  quotes are flagged.
`
}

func (c *priceShowCmd) SetFlags(f *flag.FlagSet) {}

func (c *priceShowCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		return fail("%v", err)
	}
	s := &session{cfg: cfg}
	sources, err := s.quoteSources()
	if err != nil {
		return fail("%v", err)
	}
	all, err := quotes.Collect(ctx, time.Now(), cfg.Quotes.StaleAfter, sources...)
	if err != nil {
		return fail("%v", err)
	}
	if f.NArg() > 0 {
		selected := make(map[string]taxlot.Quote)
		for _, symbol := range f.Args() {
			symbol = strings.ToUpper(symbol)
			if q, ok := all[symbol]; ok {
				selected[symbol] = q
			}
		}
		all = selected
	}
	printMarkdown(renderer.QuotesMarkdown(all, s.render()))
	return subcommands.ExitSuccess
}
