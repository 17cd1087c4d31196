package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/quotes"
	"github.com/etnz/taxlot/renderer"
	"github.com/google/subcommands"
)

// --- Lots Command ---

type lotsCmd struct {
	symbol string
	open   bool
}

func (*lotsCmd) Name() string     { return "lots" }
func (*lotsCmd) Synopsis() string { return "list the lot ledger" }
func (*lotsCmd) Usage() string {
	return `cgt lots [-s <symbol>] [-open]

  Lists every lot with its original and remaining quantity and cost base,
  sorted by symbol and acquisition time.
`
}

func (c *lotsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Only list lots of this symbol")
	f.BoolVar(&c.open, "open", false, "Only list open lots")
}

func (c *lotsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	lines, err := s.ledger.LotReport(c.symbol)
	if err != nil {
		return fail("%v", err)
	}
	if c.open {
		open := lines[:0]
		for _, l := range lines {
			if l.IsOpen() {
				open = append(open, l)
			}
		}
		lines = open
	}
	printMarkdown(renderer.LotsMarkdown(lines, s.render()))
	return subcommands.ExitSuccess
}

// --- Disposals Command ---

type disposalsCmd struct {
	sell int64
	lot  int64
}

func (*disposalsCmd) Name() string     { return "disposals" }
func (*disposalsCmd) Synopsis() string { return "list the disposals of lots" }
func (*disposalsCmd) Usage() string {
	return `cgt disposals [-sell <transaction>] [-lot <lot>]

  Lists the disposals recorded by sales: the quantity taken from each lot,
  the proceeds, the cost base, the gain and its CGT discount eligibility.
`
}

func (c *disposalsCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.sell, "sell", 0, "Only list disposals of this sale")
	f.Int64Var(&c.lot, "lot", 0, "Only list disposals of this lot")
}

func (c *disposalsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	disposals, err := s.ledger.Disposals(taxlot.DisposalFilter{SellTxID: taxlot.TxID(c.sell), LotID: taxlot.LotID(c.lot)})
	if err != nil {
		return fail("%v", err)
	}
	printMarkdown(renderer.DisposalsMarkdown(disposals, s.render()))
	return subcommands.ExitSuccess
}

// --- Positions Command ---

type positionsCmd struct{}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "current holdings valued with the latest quotes" }
func (*positionsCmd) Usage() string {
	return `cgt positions

  Aggregates open lots per symbol. Positions with a quote are valued and
  weighted; quotes older than quotes.stale_after are flagged stale.
`
}

func (c *positionsCmd) SetFlags(f *flag.FlagSet) {}

func (c *positionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	sources, err := s.quoteSources()
	if err != nil {
		return fail("%v", err)
	}
	q, err := quotes.Collect(ctx, time.Now(), s.cfg.Quotes.StaleAfter, sources...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load quotes: %v\n", err)
		q = nil
	}
	positions, err := s.ledger.Positions(q)
	if err != nil {
		return fail("%v", err)
	}
	printMarkdown(renderer.PositionsMarkdown(positions, q, s.render()))
	return subcommands.ExitSuccess
}

// --- CGT Calendar Command ---

type calendarCmd struct {
	asOf   string
	window int
}

func (*calendarCmd) Name() string     { return "cgt-calendar" }
func (*calendarCmd) Synopsis() string { return "open lots reaching the CGT discount threshold soon" }
func (*calendarCmd) Usage() string {
	return `cgt cgt-calendar [-d <time>] [-w <days>]

  Lists open lots whose CGT discount threshold is already reached or will be
  within the window, with the number of days left.
`
}

func (c *calendarCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asOf, "d", "", "Report time, now by default")
	f.IntVar(&c.window, "w", 0, "Look ahead in days, cgt_window_days by default")
}

func (c *calendarCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	asOf, err := parseTime(c.asOf, s.cfg.Location())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	window := c.window
	if window <= 0 {
		window = s.cfg.CGTWindowDays
	}
	entries, err := s.ledger.CGTCalendar(asOf, window)
	if err != nil {
		return fail("%v", err)
	}
	printMarkdown(renderer.CalendarMarkdown(entries, asOf, window, s.render()))
	return subcommands.ExitSuccess
}
