package renderer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/date"
)

// Transaction renders a one line summary of a recorded transaction.
func Transaction(tx taxlot.Transaction, opts Options) string {
	switch tx.Type {
	case taxlot.Buy:
		return fmt.Sprintf("#%d bought %s %s at %s (fees %s) on %s", tx.ID, tx.Quantity, tx.Symbol, opts.money(tx.Price), opts.money(tx.Fees), opts.minute(tx.Time))
	case taxlot.DRP:
		return fmt.Sprintf("#%d reinvested %s %s at %s on %s", tx.ID, tx.Quantity, tx.Symbol, opts.money(tx.Price), opts.minute(tx.Time))
	case taxlot.Sell:
		return fmt.Sprintf("#%d sold %s %s at %s (fees %s, %s) on %s", tx.ID, tx.Quantity, tx.Symbol, opts.money(tx.Price), opts.money(tx.Fees), tx.Method, opts.minute(tx.Time))
	default:
		return fmt.Sprintf("#%d %s %s %s", tx.ID, tx.Type, tx.Quantity, tx.Symbol)
	}
}

// TradeLogMarkdown renders the trade log.
func TradeLogMarkdown(lines []taxlot.TradeLine, opts Options) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Trade Log\n\n")
	if len(lines) == 0 {
		fmt.Fprint(&b, "No transaction.\n")
		return b.String()
	}
	fmt.Fprintln(&b, "| ID | Time | Type | Symbol | Quantity | Price | Fees | Net | Cost Basis | Gain | Method | Notes |")
	fmt.Fprintln(&b, "|---:|:---|:---|:---|---:|---:|---:|---:|---:|---:|:---|:---|")
	for _, l := range lines {
		cost, gain := "", ""
		if l.CostBasis != nil {
			cost = opts.money(*l.CostBasis)
		}
		if l.Gain != nil {
			gain = opts.signed(*l.Gain)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			l.ID,
			opts.minute(l.Time),
			l.Type,
			l.Symbol,
			l.Quantity,
			opts.money(l.Price),
			opts.money(l.Fees),
			opts.money(l.Net),
			cost,
			gain,
			l.Method,
			cell(l.Notes),
		)
	}
	return b.String()
}

// CalendarMarkdown renders the lots reaching their CGT discount threshold
// within window days of asOf.
func CalendarMarkdown(entries []taxlot.CalendarEntry, asOf time.Time, window int, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# CGT Calendar on %s\n\n", date.Of(asOf, opts.location()))
	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintln(w, "| Symbol | Lot | Acquired | Quantity | Cost Basis | Discount From | Days | Eligible |")
		fmt.Fprintln(w, "|:---|---:|:---|---:|---:|:---|---:|:---:|")
		for _, e := range entries {
			eligible := ""
			if e.Eligible {
				eligible = "yes"
			}
			fmt.Fprintf(w, "| %s | %d | %s | %s | %s | %s | %d | %s |\n",
				e.Symbol,
				e.ID,
				opts.day(e.AcquiredAt),
				e.Quantity,
				opts.money(e.CostBasis),
				opts.day(e.Threshold),
				e.DaysUntil,
				eligible,
			)
		}
		return len(entries) > 0
	})
	if len(entries) == 0 {
		fmt.Fprintf(&b, "No open lot reaches its discount threshold within %d days.\n", window)
	}
	return b.String()
}
