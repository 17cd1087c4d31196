package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/date"
	"github.com/etnz/taxlot/renderer"
	"github.com/google/subcommands"
)

type txCmd struct {
	symbol string
	period string
	start  string
	date   string
	head   int
	tail   int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list the transactions with their realised gains" }
func (*txCmd) Usage() string {
	return `cgt tx [-s <symbol>] [-p <period> | -start <date>] [-d <end_date>] [-head <n>] [-tail <n>]

  Lists the trade log: every transaction in chronological order, with the
  cost base consumed and the gain realised by sales.
`
}

func (p *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.symbol, "s", "", "Only list transactions of this symbol.")
	f.StringVar(&p.period, "p", "", "Predefined period (day, month, quarter, year, fy).")
	f.StringVar(&p.start, "start", "", "The start date for a custom range. Overrides -p.")
	f.StringVar(&p.date, "d", "", "The end date for the range.")
	f.IntVar(&p.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&p.tail, "tail", 0, "Show only the last N transactions.")
}

func (p *txCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.head > 0 && p.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
		return subcommands.ExitUsageError
	}

	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	// If no date range flags are provided, use the full range of the ledger.
	useFullRange := p.start == "" && p.date == "" && p.period == ""
	var periodRange date.Range
	if !useFullRange {
		if periodRange, err = rangeOf(p.period, p.start, p.date, s.cfg.Location()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	lines, err := s.ledger.TradeLog()
	if err != nil {
		return fail("%v", err)
	}
	var selected []taxlot.TradeLine
	for _, l := range lines {
		if p.symbol != "" && !strings.EqualFold(l.Symbol, p.symbol) {
			continue
		}
		if useFullRange || periodRange.ContainsTime(l.Time, s.cfg.Location()) {
			selected = append(selected, l)
		}
	}

	if p.head > 0 && len(selected) > p.head {
		selected = selected[:p.head]
	}
	if p.tail > 0 && len(selected) > p.tail {
		selected = selected[len(selected)-p.tail:]
	}

	printMarkdown(renderer.TradeLogMarkdown(selected, s.render()))
	return subcommands.ExitSuccess
}

// rangeOf resolves the date range flags: an explicit start, or a predefined
// period, ending on end (today if empty). Without either it is the end day.
func rangeOf(period, start, end string, loc *time.Location) (date.Range, error) {
	endDate := date.Today(loc)
	if end != "" {
		d, err := date.Parse(end)
		if err != nil {
			return date.Range{}, fmt.Errorf("parsing end date: %w", err)
		}
		endDate = d
	}
	if start != "" {
		startDate, err := date.Parse(start)
		if err != nil {
			return date.Range{}, fmt.Errorf("parsing start date: %w", err)
		}
		return date.Range{From: startDate, To: endDate}, nil
	}
	if period == "" {
		return date.NewRange(endDate, date.Daily), nil
	}
	p, err := date.ParsePeriod(period)
	if err != nil {
		return date.Range{}, fmt.Errorf("parsing period: %w", err)
	}
	return date.NewRange(endDate, p), nil
}
