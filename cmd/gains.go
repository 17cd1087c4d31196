package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/taxlot/date"
	"github.com/etnz/taxlot/renderer"
	"github.com/google/subcommands"
)

type gainsCmd struct {
	fy     int
	rng    string
	period string
	start  string
	date   string
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "realised capital gains over a period" }
func (*gainsCmd) Usage() string {
	return `cgt gains [-fy <year> | -r <range> | -p <period> | -start <date>] [-d <end_date>]

  Reports the capital gains realised by sales dated within the period, per
  symbol: gains eligible for the CGT discount, other gains, and losses.
  The current financial year (1 July to 30 June) is used by default.

Usage Examples:
$ cgt gains -fy 2024
$ cgt gains -r 2024-01-01_2024-03-31
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.fy, "fy", 0, "Financial year, by the year it ends (2024 is 1 July 2023 to 30 June 2024)")
	f.StringVar(&c.rng, "r", "", "Range identifier (FY2024, 2024, 2024-Q3, 2024-09 or <start>_<end>)")
	f.StringVar(&c.period, "p", "", "Predefined period (day, month, quarter, year, fy) ending on -d")
	f.StringVar(&c.start, "start", "", "The start date for a custom range.")
	f.StringVar(&c.date, "d", "", "The end date for the range.")
}

func (c *gainsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	var period date.Range
	switch {
	case c.fy != 0:
		period = date.FinancialYearEnding(c.fy)
	case c.rng != "":
		period, err = date.ParseRange(c.rng)
	case c.period != "" || c.start != "" || c.date != "":
		period, err = rangeOf(c.period, c.start, c.date, s.cfg.Location())
	default:
		period = date.NewRange(date.Today(s.cfg.Location()), date.FinancialYear)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	report, err := s.ledger.RealisedGains(period)
	if err != nil {
		return fail("%v", err)
	}
	printMarkdown(renderer.GainsMarkdown(report, s.render()))
	return subcommands.ExitSuccess
}
