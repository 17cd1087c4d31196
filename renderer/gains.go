package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/taxlot"
)

// GainsMarkdown renders the realised gains over a period.
func GainsMarkdown(report *taxlot.GainsReport, opts Options) string {
	var b strings.Builder
	r := report.Range
	fmt.Fprintf(&b, "# Realised Gains %s (%s to %s)\n\n", r.Identifier(), r.From, r.To)
	if len(report.Symbols) == 0 {
		fmt.Fprint(&b, "No disposal in this period.\n")
		return b.String()
	}

	fmt.Fprintln(&b, "| Symbol | Quantity | Proceeds | Cost Basis | Discountable | Other Gains | Losses | Net |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|---:|---:|")
	row := func(name string, g taxlot.SymbolGains) {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			name,
			g.Quantity,
			opts.money(g.Proceeds),
			opts.money(g.CostBasis),
			opts.signed(g.Discountable),
			opts.signed(g.Other),
			opts.signed(g.Losses),
			opts.signed(g.Net()),
		)
	}
	for _, g := range report.Symbols {
		row(g.Symbol, g)
	}
	row("**Total**", report.Total)
	return b.String()
}
