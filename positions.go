package taxlot

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point in time price of a symbol supplied by a pricing source.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  Money     `json:"price"`
	AsOf   time.Time `json:"asof"`
	Source string    `json:"source"`
	Stale  bool      `json:"stale"`
}

// Position is the aggregate of the open lots of a symbol.
type Position struct {
	Symbol      string   `json:"symbol"`
	Quantity    Quantity `json:"quantity"`
	CostBasis   Money    `json:"costBasis"`
	AverageCost Money    `json:"averageCost"`
	// MarketValue and Weight are nil when no quote is available.
	MarketValue *Money           `json:"marketValue,omitempty"`
	Weight      *decimal.Decimal `json:"weight,omitempty"`
}

// Positions aggregates open lots per symbol, valued with quotes when
// available. Positions are sorted by symbol.
func Positions(lots []Lot, quotes map[string]Quote) []Position {
	bySymbol := make(map[string]*Position)
	for _, lot := range lots {
		if !lot.IsOpen() {
			continue
		}
		p, ok := bySymbol[lot.Symbol]
		if !ok {
			p = &Position{Symbol: lot.Symbol}
			bySymbol[lot.Symbol] = p
		}
		p.Quantity = p.Quantity.Add(lot.Quantity)
		p.CostBasis = p.CostBasis.Add(lot.CostBasis)
	}

	positions := make([]Position, 0, len(bySymbol))
	var total Money
	for _, p := range bySymbol {
		p.AverageCost = p.CostBasis.Div(p.Quantity)
		if q, ok := quotes[p.Symbol]; ok {
			mv := q.Price.Mul(p.Quantity)
			p.MarketValue = &mv
			total = total.Add(mv)
		}
		positions = append(positions, *p)
	}
	for i, p := range positions {
		if p.MarketValue == nil || total.IsZero() {
			continue
		}
		w := p.MarketValue.Ratio(total)
		positions[i].Weight = &w
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
	return positions
}

// Positions computes current positions from the open lots.
func (l *Ledger) Positions(quotes map[string]Quote) ([]Position, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	lots, err := l.store.Lots(LotFilter{OnlyOpen: true})
	if err != nil {
		return nil, err
	}
	return Positions(lots, quotes), nil
}
