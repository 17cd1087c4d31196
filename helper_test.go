package taxlot

import (
	"testing"
	"time"
	_ "time/tzdata"
)

var brisbane = mustLocation("Australia/Brisbane")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// at parses "2006-01-02 15:04" in Brisbane time.
func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, brisbane)
	if err != nil {
		panic(err)
	}
	return t
}

// lot is a helper for test to create an open lot.
func lot(id LotID, acquired string, qty, cost int) Lot {
	t := at(acquired)
	return Lot{
		ID:         id,
		Symbol:     "CBA",
		AcquiredAt: t,
		Quantity:   Q(qty),
		CostBasis:  M(cost),
		Threshold:  Threshold(t, brisbane),
		SourceTxID: TxID(id),
	}
}

// newTestLedger creates a ledger over a new memory store.
func newTestLedger(t *testing.T, opts Options) *Ledger {
	t.Helper()
	if opts.Location == nil {
		opts.Location = brisbane
	}
	l, err := NewLedger(NewMemoryStore(), opts)
	if err != nil {
		t.Fatalf("NewLedger() = %v", err)
	}
	return l
}

// record is a helper for test to record a trade or fail.
func record(t *testing.T, l *Ledger, tx Transaction, opts TradeOptions) Transaction {
	t.Helper()
	got, err := l.RecordTrade(tx, opts)
	if err != nil {
		t.Fatalf("RecordTrade(%s %s %s) = %v", tx.Type, tx.Quantity, tx.Symbol, err)
	}
	return got
}
