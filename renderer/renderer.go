// Package renderer renders the ledger reports as markdown.
package renderer

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/etnz/taxlot"
)

// PositionsMarkdown renders current holdings valued with quotes.
func PositionsMarkdown(positions []taxlot.Position, quotes map[string]taxlot.Quote, opts Options) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Positions\n\n")
	if len(positions) == 0 {
		fmt.Fprint(&b, "No open position.\n")
		return b.String()
	}
	fmt.Fprintln(&b, "| Symbol | Quantity | Average Cost | Cost Basis | Price | Market Value | Weight |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|---:|")

	var cost, value taxlot.Money
	valued := false
	for _, p := range positions {
		cost = cost.Add(p.CostBasis)
		price, mv, weight := "-", "-", "-"
		if q, ok := quotes[p.Symbol]; ok {
			price = opts.money(q.Price)
			if q.Stale {
				price += " (stale)"
			}
		}
		if p.MarketValue != nil {
			mv = opts.money(*p.MarketValue)
			value = value.Add(*p.MarketValue)
			valued = true
		}
		if p.Weight != nil {
			weight = percent(*p.Weight)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			p.Symbol,
			p.Quantity,
			opts.money(p.AverageCost),
			opts.money(p.CostBasis),
			price,
			mv,
			weight,
		)
	}
	total := "-"
	if valued {
		total = opts.money(value)
	}
	fmt.Fprintf(&b, "| **%s** | | | **%s** | | **%s** | |\n", "Total", opts.money(cost), total)
	return b.String()
}

// LotsMarkdown renders the lot ledger.
func LotsMarkdown(lines []taxlot.LotLine, opts Options) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Lots\n\n")
	if len(lines) == 0 {
		fmt.Fprint(&b, "No lot.\n")
		return b.String()
	}
	fmt.Fprintln(&b, "| Lot | Symbol | Acquired | Original | Disposed | Remaining | Initial Cost | Cost Basis | Discount From | Status |")
	fmt.Fprintln(&b, "|---:|:---|:---|---:|---:|---:|---:|---:|:---|:---|")
	for _, l := range lines {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			l.ID,
			l.Symbol,
			opts.minute(l.AcquiredAt),
			l.Original,
			l.Disposed,
			l.Quantity,
			opts.money(l.InitialCost),
			opts.money(l.CostBasis),
			opts.day(l.Threshold),
			l.Status(),
		)
	}
	return b.String()
}

// DisposalsMarkdown renders disposals.
func DisposalsMarkdown(disposals []taxlot.Disposal, opts Options) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Disposals\n\n")
	section := Header(func(w io.Writer) {
		fmt.Fprintln(w, "| Disposal | Sell | Lot | Quantity | Proceeds | Cost Basis | Gain | Discount |")
		fmt.Fprintln(w, "|---:|---:|---:|---:|---:|---:|---:|:---:|")
	})
	var gain taxlot.Money
	for _, d := range disposals {
		section.PrintHeader(&b)
		discount := ""
		if d.Discount {
			discount = "yes"
		}
		fmt.Fprintf(&b, "| %d | %d | %d | %s | %s | %s | %s | %s |\n",
			d.ID,
			d.SellTxID,
			d.LotID,
			d.Quantity,
			opts.money(d.Proceeds),
			opts.money(d.CostBasis),
			opts.signed(d.Gain),
			discount,
		)
		gain = gain.Add(d.Gain)
	}
	section.Footer(func(w io.Writer) {
		fmt.Fprintf(w, "| **%s** | | | | | | **%s** | |\n", "Total", opts.signed(gain))
	})
	section.PrintFooter(&b)
	if len(disposals) == 0 {
		fmt.Fprint(&b, "No disposal.\n")
	}
	return b.String()
}

// QuotesMarkdown renders the known quotes sorted by symbol.
func QuotesMarkdown(quotes map[string]taxlot.Quote, opts Options) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Quotes\n\n")
	if len(quotes) == 0 {
		fmt.Fprint(&b, "No quote.\n")
		return b.String()
	}
	fmt.Fprintln(&b, "| Symbol | Price | As Of | Source | Stale |")
	fmt.Fprintln(&b, "|:---|---:|:---|:---|:---|")
	for _, symbol := range slices.Sorted(maps.Keys(quotes)) {
		q := quotes[symbol]
		stale := ""
		if q.Stale {
			stale = "yes"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", symbol, opts.money(q.Price), opts.minute(q.AsOf), cell(q.Source), stale)
	}
	return b.String()
}
