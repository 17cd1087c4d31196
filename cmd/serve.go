package cmd

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/taxlot/server"
	"github.com/google/subcommands"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the ledger over HTTP" }
func (*serveCmd) Usage() string {
	return `cgt serve [-addr <host:port>]

  Serves the ledger as a JSON API: transactions, lots, disposals, positions
  and the CGT calendar, trade recording, edits and rebuilds.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address, the configured one by default")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		return fail("%v", err)
	}
	defer s.Close()

	sources, err := s.quoteSources()
	if err != nil {
		return fail("%v", err)
	}
	addr := c.addr
	if addr == "" {
		addr = s.cfg.Listen
	}
	srv := server.New(server.Config{
		Addr:       addr,
		Log:        s.log,
		Ledger:     s.ledger,
		Quotes:     sources,
		StaleAfter: s.cfg.Quotes.StaleAfter,
		Window:     s.cfg.CGTWindowDays,
	})

	// Start server in goroutine
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("Failed to start server")
			return subcommands.ExitFailure
		}
	case <-quit:
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error().Err(err).Msg("Server forced to shutdown")
		return subcommands.ExitFailure
	}
	s.log.Info().Msg("Server stopped")
	return subcommands.ExitSuccess
}
