package taxlot

import (
	"sort"
	"strings"
	"time"

	"github.com/etnz/taxlot/date"
)

// LotLine is one row of the lot ledger report.
type LotLine struct {
	Lot
	Original    Quantity // quantity acquired
	Disposed    Quantity
	InitialCost Money // cost base at acquisition
}

// Status returns "OPEN" or "CLOSED".
func (l LotLine) Status() string {
	if l.IsOpen() {
		return "OPEN"
	}
	return "CLOSED"
}

// LotReport returns every lot of symbol (all symbols if empty) with what was
// disposed of it, sorted by symbol then acquisition time.
func (l *Ledger) LotReport(symbol string) ([]LotLine, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	lots, err := l.store.Lots(LotFilter{Symbol: symbol})
	if err != nil {
		return nil, err
	}
	disposals, err := l.store.Disposals(DisposalFilter{})
	if err != nil {
		return nil, err
	}
	byLot := make(map[LotID][]Disposal)
	for _, d := range disposals {
		byLot[d.LotID] = append(byLot[d.LotID], d)
	}

	lines := make([]LotLine, 0, len(lots))
	for _, lot := range lots {
		line := LotLine{Lot: lot, InitialCost: lot.CostBasis}
		for _, d := range byLot[lot.ID] {
			line.Disposed = line.Disposed.Add(d.Quantity)
			line.InitialCost = line.InitialCost.Add(d.CostBasis)
		}
		line.Original = lot.Quantity.Add(line.Disposed)
		lines = append(lines, line)
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if c := strings.Compare(lines[i].Symbol, lines[j].Symbol); c != 0 {
			return c < 0
		}
		return fifoLess(lines[i].Lot, lines[j].Lot)
	})
	return lines, nil
}

// CalendarEntry is an open lot reaching its CGT discount threshold.
type CalendarEntry struct {
	Lot
	DaysUntil int  `json:"daysUntil"` // calendar days from the report date to the threshold
	Eligible  bool `json:"eligible"`  // threshold already reached
}

// CGTCalendar lists open lots whose CGT discount threshold is reached, or
// will be within window days of asOf, sorted by threshold then symbol.
func (l *Ledger) CGTCalendar(asOf time.Time, window int) ([]CalendarEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	lots, err := l.store.Lots(LotFilter{OnlyOpen: true})
	if err != nil {
		return nil, err
	}
	today := date.Of(asOf, l.loc)
	var entries []CalendarEntry
	for _, lot := range lots {
		days := today.DaysUntil(date.Of(lot.Threshold, l.loc))
		if days > window {
			continue
		}
		entries = append(entries, CalendarEntry{
			Lot:       lot,
			DaysUntil: days,
			Eligible:  DiscountEligible(asOf, lot.Threshold),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Threshold.Equal(entries[j].Threshold) {
			return entries[i].Threshold.Before(entries[j].Threshold)
		}
		return entries[i].Symbol < entries[j].Symbol
	})
	return entries, nil
}

// TradeLine is one row of the trade log.
type TradeLine struct {
	Transaction
	Net Money // notional net of the fee share charged to this side of the trade
	// CostBasis and Gain are only set for sells.
	CostBasis *Money
	Gain      *Money
}

// TradeLog lists every transaction in chronological order with the cost base
// and gain realised by sells.
func (l *Ledger) TradeLog() ([]TradeLine, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	txs, err := l.store.Transactions(TransactionFilter{})
	if err != nil {
		return nil, err
	}
	lines := make([]TradeLine, 0, len(txs))
	for _, tx := range txs {
		line := TradeLine{Transaction: tx}
		fee, err := tradeFee(tx, l.fees)
		if err != nil {
			return nil, err
		}
		if tx.Type == Sell {
			line.Net = tx.Notional().Sub(fee)
			disposals, err := l.store.Disposals(DisposalFilter{SellTxID: tx.ID})
			if err != nil {
				return nil, err
			}
			var cost, gain Money
			for _, d := range disposals {
				cost = cost.Add(d.CostBasis)
				gain = gain.Add(d.Gain)
			}
			line.CostBasis, line.Gain = &cost, &gain
		} else {
			line.Net = tx.Notional().Add(fee)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// SymbolGains is the realised gains of a symbol over a period.
type SymbolGains struct {
	Symbol    string
	Quantity  Quantity
	Proceeds  Money
	CostBasis Money
	// Discountable are the gains on disposals eligible for the CGT discount,
	// Other the gains on the other disposals. Losses are negative.
	Discountable Money
	Other        Money
	Losses       Money
}

// Net returns the net realised gain.
func (g SymbolGains) Net() Money { return g.Discountable.Add(g.Other).Add(g.Losses) }

// GainsReport is the realised gains over a period.
type GainsReport struct {
	Range   date.Range
	Symbols []SymbolGains
	Total   SymbolGains
}

// RealisedGains aggregates disposals of sells dated within period, per
// symbol.
func (l *Ledger) RealisedGains(period date.Range) (*GainsReport, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	txs, err := l.store.Transactions(TransactionFilter{})
	if err != nil {
		return nil, err
	}
	report := &GainsReport{Range: period}
	bySymbol := make(map[string]*SymbolGains)
	for _, tx := range txs {
		if tx.Type != Sell || !period.ContainsTime(tx.Time, l.loc) {
			continue
		}
		disposals, err := l.store.Disposals(DisposalFilter{SellTxID: tx.ID})
		if err != nil {
			return nil, err
		}
		g, ok := bySymbol[tx.Symbol]
		if !ok {
			g = &SymbolGains{Symbol: tx.Symbol}
			bySymbol[tx.Symbol] = g
		}
		for _, d := range disposals {
			g.add(d)
			report.Total.add(d)
		}
	}
	for _, g := range bySymbol {
		report.Symbols = append(report.Symbols, *g)
	}
	sort.Slice(report.Symbols, func(i, j int) bool { return report.Symbols[i].Symbol < report.Symbols[j].Symbol })
	return report, nil
}

func (g *SymbolGains) add(d Disposal) {
	g.Quantity = g.Quantity.Add(d.Quantity)
	g.Proceeds = g.Proceeds.Add(d.Proceeds)
	g.CostBasis = g.CostBasis.Add(d.CostBasis)
	switch {
	case d.Gain.IsNegative():
		g.Losses = g.Losses.Add(d.Gain)
	case d.Discount:
		g.Discountable = g.Discountable.Add(d.Gain)
	default:
		g.Other = g.Other.Add(d.Gain)
	}
}
