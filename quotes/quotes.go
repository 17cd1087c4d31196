// Package quotes supplies market prices to value positions.
//
// Quotes come either from a manual quotes file, maintained with "cgt price
// set", or from any JSON document (local file or http URL) whose quote
// records are selected with a JSONPath expression.
package quotes

import (
	"context"
	"strings"
	"time"

	"github.com/etnz/taxlot"
)

// Source provides the latest known quote per symbol.
type Source interface {
	Quotes(ctx context.Context) (map[string]taxlot.Quote, error)
}

// IsStale reports whether q is older than staleAfter at now. A zero
// staleAfter never makes a quote stale.
func IsStale(q taxlot.Quote, now time.Time, staleAfter time.Duration) bool {
	if staleAfter <= 0 {
		return false
	}
	return now.Sub(q.AsOf) > staleAfter
}

// Collect merges the quotes of all sources, keeping the most recent quote of
// each symbol, and flags the stale ones.
func Collect(ctx context.Context, now time.Time, staleAfter time.Duration, sources ...Source) (map[string]taxlot.Quote, error) {
	all := make(map[string]taxlot.Quote)
	for _, src := range sources {
		quotes, err := src.Quotes(ctx)
		if err != nil {
			return nil, err
		}
		for symbol, q := range quotes {
			symbol = strings.ToUpper(symbol)
			if prev, ok := all[symbol]; ok && prev.AsOf.After(q.AsOf) {
				continue
			}
			all[symbol] = q
		}
	}
	for symbol, q := range all {
		q.Stale = IsStale(q, now, staleAfter)
		all[symbol] = q
	}
	return all, nil
}
