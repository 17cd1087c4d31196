package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/renderer"
	"github.com/google/subcommands"
)

// --- Notes Command ---

type notesCmd struct {
	id int64
}

func (*notesCmd) Name() string     { return "notes" }
func (*notesCmd) Synopsis() string { return "change the notes of a transaction" }
func (*notesCmd) Usage() string {
	return `cgt notes -id <transaction> <notes>...

  Replaces the notes of a transaction. Notes are the only field that can
  change without rebuilding lots and disposals.
`
}

func (c *notesCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction identifier")
}

func (c *notesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	tx, err := s.ledger.UpdateNotes(taxlot.TxID(c.id), strings.Join(f.Args(), " "))
	if err != nil {
		return fail("could not update notes: %v", err)
	}
	fmt.Println(renderer.Transaction(tx, s.render()))
	return subcommands.ExitSuccess
}

// --- Edit Command ---

type editCmd struct {
	id int64
	tradeFlags
	typ    string
	method string
	lots   string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "correct a recorded transaction and rebuild" }
func (*editCmd) Usage() string {
	return `cgt edit -id <transaction> [-t BUY|SELL|DRP] [-s <symbol>] [-q <quantity>] [-p <price>] [-fees <fees>] [-d <time>] [-m <method>] [-lots <lot>:<qty>,...]

  Corrects a recorded transaction: only the flags given are changed. Lots and
  disposals are then rebuilt from the whole transaction log. The edit is
  rejected, and nothing changes, if the corrected log is not consistent.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction identifier")
	c.setFlags(f)
	f.StringVar(&c.typ, "t", "", "Transaction type (BUY, SELL or DRP)")
	f.StringVar(&c.method, "m", "", "Lot matching method of a sell")
	f.StringVar(&c.lots, "lots", "", "Explicit lot allocation of a sell <lot>:<quantity>,...")
}

func (c *editCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	tx, err := s.ledger.Transaction(taxlot.TxID(c.id))
	if err != nil {
		return fail("%v", err)
	}
	var opts taxlot.TradeOptions
	f.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		err = c.apply(fl.Name, &tx, &opts, s)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	tx, err = s.ledger.ReplaceTransaction(tx, opts)
	if err != nil {
		return fail("could not edit transaction %d: %v", c.id, err)
	}
	fmt.Println(renderer.Transaction(tx, s.render()))
	return subcommands.ExitSuccess
}

// apply changes tx according to the flag name.
func (c *editCmd) apply(name string, tx *taxlot.Transaction, opts *taxlot.TradeOptions, s *session) (err error) {
	switch name {
	case "t":
		tx.Type, err = taxlot.ParseTxType(c.typ)
		if tx.Type != taxlot.Sell {
			tx.Method = 0
		}
	case "d":
		tx.Time, err = parseTime(c.when, s.cfg.Location())
	case "s":
		tx.Symbol = c.symbol
	case "q":
		tx.Quantity, err = taxlot.ParseQuantity(c.quantity)
	case "p":
		tx.Price, err = taxlot.ParseMoney(c.price)
	case "fees":
		tx.Fees, err = taxlot.ParseMoney(c.fees)
	case "x":
		tx.Exchange = c.exchange
	case "ref":
		tx.BrokerRef = c.brokerRef
	case "n":
		tx.Notes = c.notes
	case "m":
		opts.Method, err = taxlot.ParseMatchMethod(c.method)
		tx.Method = opts.Method
	case "lots":
		opts.Lots, err = parseAllocation(c.lots)
	}
	return err
}

// --- Delete Command ---

type deleteCmd struct {
	id int64
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a transaction and rebuild" }
func (*deleteCmd) Usage() string {
	return `cgt delete -id <transaction>

  Deletes a transaction from the log and rebuilds lots and disposals. The
  deletion is rejected if a later sale could no longer be covered.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction identifier")
}

func (c *deleteCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	if err := s.ledger.DeleteTransaction(taxlot.TxID(c.id)); err != nil {
		return fail("could not delete transaction %d: %v", c.id, err)
	}
	fmt.Printf("Transaction %d deleted.\n", c.id)
	return subcommands.ExitSuccess
}

// --- Rebuild Command ---

type rebuildCmd struct{}

func (*rebuildCmd) Name() string     { return "rebuild" }
func (*rebuildCmd) Synopsis() string { return "recompute lots and disposals from the transaction log" }
func (*rebuildCmd) Usage() string {
	return `cgt rebuild

  Discards every lot and disposal and replays the transaction log in
  chronological order. SPECIFIC_ID sales keep the lots they were recorded
  with.
`
}

func (c *rebuildCmd) SetFlags(f *flag.FlagSet) {}

func (c *rebuildCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	stats, err := s.ledger.Rebuild()
	if err != nil {
		return fail("rebuild failed: %v", err)
	}
	fmt.Printf("Replayed %d transactions into %d lots and %d disposals.\n", stats.Transactions, stats.Lots, stats.Disposals)
	return subcommands.ExitSuccess
}
