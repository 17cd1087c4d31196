package taxlot

import (
	"errors"
	"testing"
	"time"
)

func TestThreshold(t *testing.T) {
	testCases := []struct {
		name     string
		acquired time.Time
		loc      *time.Location
		want     time.Time
	}{
		{"local time", at("2022-01-01 09:30"), brisbane, at("2023-01-01 09:30")},
		{"leap year", at("2024-01-01 09:30"), brisbane, at("2024-12-31 09:30")},
		// 2022-06-30 23:30 UTC is 1 July 09:30 in Brisbane
		{"converted", time.Date(2022, time.June, 30, 23, 30, 0, 0, time.UTC), brisbane, at("2023-07-01 09:30")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Threshold(tc.acquired, tc.loc); !got.Equal(tc.want) {
				t.Errorf("Threshold() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDiscountEligible(t *testing.T) {
	threshold := Threshold(at("2022-01-01 09:30"), brisbane)
	testCases := []struct {
		soldAt time.Time
		want   bool
	}{
		{at("2023-01-01 09:29"), false},
		{at("2023-01-01 09:30"), true},
		{at("2023-01-01 09:31"), true},
		{at("2022-12-31 09:30"), false},
	}
	for _, tc := range testCases {
		if got := DiscountEligible(tc.soldAt, threshold); got != tc.want {
			t.Errorf("DiscountEligible(%v) = %v, want %v", tc.soldAt, got, tc.want)
		}
	}
}

func TestSliceDisposal(t *testing.T) {
	sell := NewTrade(Sell, at("2023-02-01 10:00"), "CBA", Q(15), M(12), M(9))
	sell.ID = 7
	old := lot(1, "2022-01-01 10:00", 10, 110)
	recent := lot(2, "2022-06-01 10:00", 20, 300)
	matches := []LotMatch{{Lot: old, Quantity: Q(10)}, {Lot: recent, Quantity: Q(5)}}

	got, err := SliceDisposal(sell, matches, M(9), brisbane)
	if err != nil {
		t.Fatalf("SliceDisposal() = %v", err)
	}
	want := []Disposal{
		// fee share 9*10/15 = 6, proceeds 120-6, whole lot cost
		{SellTxID: 7, LotID: 1, Quantity: Q(10), Proceeds: M(114), CostBasis: M(110), Gain: M(4), Discount: true},
		// fee share 3, proceeds 60-3, cost 300*5/20
		{SellTxID: 7, LotID: 2, Quantity: Q(5), Proceeds: M(57), CostBasis: M(75), Gain: M(-18), Discount: false},
	}
	if len(got) != len(want) {
		t.Fatalf("SliceDisposal() = %d disposals, want %d", len(got), len(want))
	}
	for i, w := range want {
		g := got[i]
		if g.SellTxID != w.SellTxID || g.LotID != w.LotID || !g.Quantity.Equal(w.Quantity) ||
			!g.Proceeds.Equal(w.Proceeds) || !g.CostBasis.Equal(w.CostBasis) || !g.Gain.Equal(w.Gain) ||
			g.Discount != w.Discount {
			t.Errorf("SliceDisposal()[%d] = %+v, want %+v", i, g, w)
		}
	}
}

func TestSliceDisposal_Errors(t *testing.T) {
	sell := NewTrade(Sell, at("2023-02-01 10:00"), "CBA", Q(5), M(12), M(0))
	buy := NewTrade(Buy, at("2023-02-01 10:00"), "CBA", Q(5), M(12), M(0))
	open := lot(1, "2022-01-01 10:00", 10, 110)
	closed := lot(2, "2022-01-01 10:00", 0, 0)
	testCases := []struct {
		name    string
		tx      Transaction
		matches []LotMatch
		want    error
	}{
		{"not a sell", buy, []LotMatch{{Lot: open, Quantity: Q(5)}}, ErrInvalid},
		{"zero quantity", sell, []LotMatch{{Lot: open, Quantity: Q(0)}}, ErrInvalid},
		{"exhausted lot", sell, []LotMatch{{Lot: closed, Quantity: Q(5)}}, ErrUnknownLot},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := SliceDisposal(tc.tx, tc.matches, M(0), brisbane); !errors.Is(err, tc.want) {
				t.Errorf("SliceDisposal() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLot_Dispose(t *testing.T) {
	l := lot(1, "2022-01-01 10:00", 3, 10)
	third := l.costOf(Q(1))
	var err error
	for i := 0; i < 3; i++ {
		cost := l.costOf(Q(1))
		if l, err = l.dispose(Q(1), cost); err != nil {
			t.Fatalf("dispose() = %v", err)
		}
	}
	if !l.Quantity.IsZero() || !l.CostBasis.IsZero() {
		t.Errorf("dispose() left %s units and %s cost, want nothing", l.Quantity, l.CostBasis)
	}
	if third.Equal(M(0)) {
		t.Errorf("costOf() = 0")
	}

	// residues beyond epsilon are errors
	l = lot(1, "2022-01-01 10:00", 3, 10)
	if _, err := l.dispose(MustQuantity("3.001"), M(10)); !errors.Is(err, ErrInconsistent) {
		t.Errorf("dispose(too much) = %v, want ErrInconsistent", err)
	}
	// tiny residues are clamped
	got, err := l.dispose(MustQuantity("3.0000000000001"), M(10))
	if err != nil {
		t.Fatalf("dispose(residue) = %v", err)
	}
	if !got.Quantity.IsZero() {
		t.Errorf("dispose(residue) = %s units, want 0", got.Quantity)
	}
}
