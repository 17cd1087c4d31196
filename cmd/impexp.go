package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/etnz/taxlot"
	"github.com/google/subcommands"
)

// --- Import Command ---

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import transactions from a JSONL file" }
func (*importCmd) Usage() string {
	return `cgt import [<file.jsonl>]

  Records every transaction of a JSONL transaction log (standard input if no
  file is given). Transactions already in the ledger are skipped, so the same
  file can be imported twice. The import is all or nothing.

Usage Examples:
$ cgt export > backup.jsonl
$ cgt -config other.yaml import backup.jsonl
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	var r io.Reader = os.Stdin
	if f.NArg() == 1 {
		file, err := os.Open(f.Arg(0))
		if err != nil {
			return fail("%v", err)
		}
		defer file.Close()
		r = file
	}
	records, err := taxlot.DecodeRecords(r)
	if err != nil {
		return fail("could not read transactions: %v", err)
	}

	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	stats, err := s.ledger.Import(records)
	if err != nil {
		return fail("import failed, nothing was recorded: %v", err)
	}
	fmt.Printf("Imported %d transactions, skipped %d already recorded.\n", stats.Added, stats.Skipped)
	if stats.Rebuilt {
		fmt.Println("Lots and disposals were rebuilt.")
	}
	return subcommands.ExitSuccess
}

// --- Export Command ---

type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the transaction log as JSONL" }
func (*exportCmd) Usage() string {
	return `cgt export [-o <file.jsonl>]

  Writes the transaction log, in chronological order, as one JSON object per
  line. Sales matched with SPECIFIC_ID carry the lots they consumed.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file, standard output by default")
}

func (c *exportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	if c.output == "" {
		if err := s.ledger.ExportTo(os.Stdout); err != nil {
			return fail("%v", err)
		}
		return subcommands.ExitSuccess
	}

	// write to a temporary file first, the output is only replaced on success.
	tmp, err := os.CreateTemp(filepath.Dir(c.output), filepath.Base(c.output)+".*.tmp")
	if err != nil {
		return fail("%v", err)
	}
	defer os.Remove(tmp.Name())
	if err := s.ledger.ExportTo(tmp); err != nil {
		tmp.Close()
		return fail("%v", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("%v", err)
	}
	if err := os.Rename(tmp.Name(), c.output); err != nil {
		return fail("%v", err)
	}
	fmt.Fprintf(os.Stderr, "Transactions exported to %s\n", c.output)
	return subcommands.ExitSuccess
}
