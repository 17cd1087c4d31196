// Package cmd implements the CLI application to manage a tax-lot ledger.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/config"
	"github.com/etnz/taxlot/jsonstore"
	"github.com/etnz/taxlot/logger"
	"github.com/etnz/taxlot/quotes"
	"github.com/etnz/taxlot/renderer"
	"github.com/etnz/taxlot/sqlitestore"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&initCmd{}, "setup")

	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")
	c.Register(&drpCmd{}, "transactions")
	c.Register(&notesCmd{}, "transactions")
	c.Register(&editCmd{}, "transactions")
	c.Register(&deleteCmd{}, "transactions")
	c.Register(&rebuildCmd{}, "transactions")
	c.Register(&importCmd{}, "transactions")
	c.Register(&exportCmd{}, "transactions")

	c.Register(&txCmd{}, "reports")
	c.Register(&lotsCmd{}, "reports")
	c.Register(&disposalsCmd{}, "reports")
	c.Register(&positionsCmd{}, "reports")
	c.Register(&calendarCmd{}, "reports")
	c.Register(&gainsCmd{}, "reports")

	c.Register(&priceCmd{}, "quotes")

	c.Register(&serveCmd{}, "server")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", config.DefaultFile, "Path to the configuration file")
var rawMarkdown = flag.Bool("md", false, "Print reports as raw markdown")

// Verbose enables debug logs.
var Verbose = flag.Bool("v", false, "Log debug information")

// loadConfig loads the configuration file named by the -config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger creates the logger of cfg, -v forces the debug level.
func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.Log.Level
	if *Verbose {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, Pretty: cfg.Log.Pretty})
}

// openStore opens the storage backend selected by cfg.
func openStore(cfg *config.Config) (taxlot.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendJSON:
		s, err := jsonstore.Open(cfg.DataPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendSQLite:
		s, err := sqlitestore.Open(cfg.DataPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", taxlot.ErrInvalid, cfg.Backend)
	}
}

// session is everything a command needs to work on the ledger.
type session struct {
	cfg    *config.Config
	log    zerolog.Logger
	store  taxlot.Store
	ledger *taxlot.Ledger
}

// openSession loads the configuration and opens the ledger it describes.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)
	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not open %s store %q: %w", cfg.Backend, cfg.DataPath, err)
	}
	ledger, err := taxlot.NewLedger(store, cfg.LedgerOptions(&log))
	if err != nil {
		store.Close()
		return nil, err
	}
	return &session{cfg: cfg, log: log, store: store, ledger: ledger}, nil
}

// Close releases the store.
func (s *session) Close() error { return s.store.Close() }

// render returns the renderer options of the session.
func (s *session) render() renderer.Options {
	return renderer.Options{Currency: s.cfg.BaseCurrency, Location: s.cfg.Location()}
}

// manualQuotes opens the manual quotes file.
func (s *session) manualQuotes() (*quotes.Manual, error) {
	return quotes.OpenManual(s.cfg.Quotes.Manual)
}

// quoteSources returns every configured quote source, manual quotes first.
func (s *session) quoteSources() ([]quotes.Source, error) {
	manual, err := s.manualQuotes()
	if err != nil {
		return nil, err
	}
	sources := []quotes.Source{manual}
	if s.cfg.Quotes.File != "" {
		sources = append(sources, quotes.File{
			Location: s.cfg.Quotes.File,
			Path:     s.cfg.Quotes.Path,
		})
	}
	return sources, nil
}

// printMarkdown prints a markdown report, rendered for the terminal unless
// -md is set.
func printMarkdown(md string) {
	if *rawMarkdown {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(160))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// parseTime parses a trade time in loc: "2006-01-02", "2006-01-02 15:04" or
// RFC 3339. Empty means now.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid time %q, want YYYY-MM-DD, \"YYYY-MM-DD HH:MM\" or RFC 3339", taxlot.ErrInvalid, s)
}

// parseAllocation parses a lot allocation such as "3:10,7:2.5".
func parseAllocation(s string) (taxlot.Allocation, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	alloc := make(taxlot.Allocation)
	for _, part := range strings.Split(s, ",") {
		id, qty, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("%w: lot allocation %q, want <lot>:<quantity>", taxlot.ErrInvalid, part)
		}
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: lot id %q", taxlot.ErrInvalid, id)
		}
		lot := taxlot.LotID(n)
		q, err := taxlot.ParseQuantity(qty)
		if err != nil {
			return nil, err
		}
		alloc[lot] = alloc[lot].Add(q)
	}
	return alloc, nil
}

// fail prints an error message and returns the failure status.
func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}
