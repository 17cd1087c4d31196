package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/renderer"
	"github.com/google/subcommands"
)

// tradeFlags are the flags shared by the trade commands.
type tradeFlags struct {
	when      string
	symbol    string
	quantity  string
	price     string
	fees      string
	exchange  string
	brokerRef string
	notes     string
}

func (c *tradeFlags) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.when, "d", "", "Trade time (YYYY-MM-DD, \"YYYY-MM-DD HH:MM\" or RFC 3339), now by default")
	f.StringVar(&c.symbol, "s", "", "Security symbol")
	f.StringVar(&c.quantity, "q", "", "Number of units")
	f.StringVar(&c.price, "p", "", "Price per unit")
	f.StringVar(&c.fees, "fees", "0", "Total brokerage paid for the trade")
	f.StringVar(&c.exchange, "x", "", "Exchange the trade happened on")
	f.StringVar(&c.brokerRef, "ref", "", "Broker reference of the trade")
	f.StringVar(&c.notes, "n", "", "Free form notes")
}

// transaction builds the transaction described by the flags.
func (c *tradeFlags) transaction(typ taxlot.TxType, s *session) (taxlot.Transaction, error) {
	if c.symbol == "" || c.quantity == "" || c.price == "" {
		return taxlot.Transaction{}, fmt.Errorf("%w: -s, -q and -p are required", taxlot.ErrInvalid)
	}
	when, err := parseTime(c.when, s.cfg.Location())
	if err != nil {
		return taxlot.Transaction{}, err
	}
	qty, err := taxlot.ParseQuantity(c.quantity)
	if err != nil {
		return taxlot.Transaction{}, fmt.Errorf("%w: %w", taxlot.ErrInvalid, err)
	}
	price, err := taxlot.ParseMoney(c.price)
	if err != nil {
		return taxlot.Transaction{}, fmt.Errorf("%w: %w", taxlot.ErrInvalid, err)
	}
	fees, err := taxlot.ParseMoney(c.fees)
	if err != nil {
		return taxlot.Transaction{}, fmt.Errorf("%w: %w", taxlot.ErrInvalid, err)
	}
	tx := taxlot.NewTrade(typ, when, c.symbol, qty, price, fees)
	tx.Exchange = c.exchange
	tx.BrokerRef = c.brokerRef
	tx.Notes = c.notes
	return tx, nil
}

// recordTrade records tx and prints the outcome.
func recordTrade(typ taxlot.TxType, flags *tradeFlags, opts taxlot.TradeOptions) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	tx, err := flags.transaction(typ, s)
	if err != nil {
		return fail("%v", err)
	}
	tx, err = s.ledger.RecordTrade(tx, opts)
	if err != nil {
		return fail("could not record %s: %v", typ, err)
	}
	fmt.Println(renderer.Transaction(tx, s.render()))
	if tx.Type == taxlot.Sell {
		disposals, err := s.ledger.Disposals(taxlot.DisposalFilter{SellTxID: tx.ID})
		if err != nil {
			return fail("%v", err)
		}
		printMarkdown(renderer.DisposalsMarkdown(disposals, s.render()))
	}
	return subcommands.ExitSuccess
}

// --- Buy Command ---

type buyCmd struct {
	tradeFlags
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase, creating a new lot" }
func (*buyCmd) Usage() string {
	return `cgt buy -s <symbol> -q <quantity> -p <price> [-fees <fees>] [-d <time>] [-x <exchange>] [-ref <ref>] [-n <notes>]

  Records the purchase of units of a security. It creates a lot whose cost
  base is the purchase price plus the brokerage share allocated to the buy.

Usage Examples:
$ cgt buy -d "2024-01-10 10:00" -s CBA -q 100 -p 95 -fees 9.95
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *buyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return recordTrade(taxlot.Buy, &c.tradeFlags, taxlot.TradeOptions{})
}

// --- DRP Command ---

type drpCmd struct {
	tradeFlags
}

func (*drpCmd) Name() string     { return "drp" }
func (*drpCmd) Synopsis() string { return "record units acquired by dividend reinvestment" }
func (*drpCmd) Usage() string {
	return `cgt drp -s <symbol> -q <quantity> -p <price> [-d <time>] [-n <notes>]

  Records units issued under a dividend reinvestment plan. They form a new lot,
  exactly like a purchase.
`
}

func (c *drpCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *drpCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return recordTrade(taxlot.DRP, &c.tradeFlags, taxlot.TradeOptions{})
}

// --- Sell Command ---

type sellCmd struct {
	tradeFlags
	method string
	lots   string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a sale, consuming open lots" }
func (*sellCmd) Usage() string {
	return `cgt sell -s <symbol> -q <quantity> -p <price> [-fees <fees>] [-m FIFO|HIFO|SPECIFIC_ID] [-lots <lot>:<qty>,...] [-d <time>]

  Records the sale of units of a security. Open lots are consumed with the
  configured matching method unless -m overrides it. An explicit allocation
  with -lots implies SPECIFIC_ID matching. One disposal is recorded per
  consumed lot, with its capital gain and CGT discount eligibility.

Usage Examples:
$ cgt sell -s CBA -q 40 -p 110 -fees 9.95
$ cgt sell -s CBA -q 40 -p 110 -lots 1:25,3:15
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.method, "m", "", "Lot matching method (FIFO, HIFO or SPECIFIC_ID), the configured one by default")
	f.StringVar(&c.lots, "lots", "", "Explicit lot allocation <lot>:<quantity>,...")
}

func (c *sellCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var opts taxlot.TradeOptions
	if c.method != "" {
		method, err := taxlot.ParseMatchMethod(c.method)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		opts.Method = method
	}
	alloc, err := parseAllocation(c.lots)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	opts.Lots = alloc
	return recordTrade(taxlot.Sell, &c.tradeFlags, opts)
}
