package taxlot

import (
	"testing"

	"github.com/etnz/taxlot/date"
)

// reportLedger holds two CBA lots, one held for two years, and a BHP lot.
func reportLedger(t *testing.T) *Ledger {
	t.Helper()
	l := newTestLedger(t, Options{})
	record(t, l, NewTrade(Buy, at("2022-01-10 10:00"), "CBA", Q(10), M(10), M(0)), TradeOptions{})
	record(t, l, NewTrade(Buy, at("2024-01-11 10:00"), "CBA", Q(10), M(20), M(0)), TradeOptions{})
	record(t, l, NewTrade(Buy, at("2024-01-11 10:00"), "BHP", Q(10), M(50), M(10)), TradeOptions{})
	record(t, l, NewTrade(Sell, at("2024-01-12 10:00"), "CBA", Q(15), M(30), M(0)), TradeOptions{})
	record(t, l, NewTrade(Sell, at("2024-02-01 10:00"), "BHP", Q(4), M(40), M(0)), TradeOptions{})
	record(t, l, NewTrade(Sell, at("2024-08-01 10:00"), "CBA", Q(1), M(30), M(0)), TradeOptions{})
	return l
}

func TestLedger_LotReport(t *testing.T) {
	l := reportLedger(t)
	lines, err := l.LotReport("")
	if err != nil {
		t.Fatalf("LotReport() = %v", err)
	}
	want := []struct {
		symbol                string
		status                string
		original, disposed    int
		remaining             int
		initialCost, leftCost int
	}{
		{"BHP", "OPEN", 10, 4, 6, 510, 306},
		{"CBA", "CLOSED", 10, 10, 0, 100, 0},
		{"CBA", "OPEN", 10, 6, 4, 200, 80},
	}
	if len(lines) != len(want) {
		t.Fatalf("LotReport() = %d lines, want %d", len(lines), len(want))
	}
	for i, w := range want {
		got := lines[i]
		if got.Symbol != w.symbol || got.Status() != w.status ||
			!got.Original.Equal(Q(w.original)) || !got.Disposed.Equal(Q(w.disposed)) || !got.Quantity.Equal(Q(w.remaining)) ||
			!got.InitialCost.Equal(M(w.initialCost)) || !got.CostBasis.Equal(M(w.leftCost)) {
			t.Errorf("LotReport()[%d] = %s %s %s/%s/%s %s/%s, want %+v", i, got.Symbol, got.Status(),
				got.Original, got.Disposed, got.Quantity, got.InitialCost, got.CostBasis, w)
		}
	}

	cba, err := l.LotReport("CBA")
	if err != nil {
		t.Fatalf("LotReport(CBA) = %v", err)
	}
	if len(cba) != 2 {
		t.Errorf("LotReport(CBA) = %d lines, want 2", len(cba))
	}
}

func TestLedger_CGTCalendar(t *testing.T) {
	l := reportLedger(t)
	tests := []struct {
		name     string
		asOf     string
		window   int
		days     int
		count    int
		eligible bool
	}{
		{"within window", "2024-12-20 12:00", 30, 21, 2, false},
		{"outside window", "2024-12-20 12:00", 7, 0, 0, false},
		{"threshold day before the hour", "2025-01-10 09:00", 0, 0, 2, false},
		{"threshold day after the hour", "2025-01-10 11:00", 0, 0, 2, true},
		{"already eligible", "2025-02-01 12:00", 0, -22, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := l.CGTCalendar(at(tt.asOf), tt.window)
			if err != nil {
				t.Fatalf("CGTCalendar() = %v", err)
			}
			if len(entries) != tt.count {
				t.Fatalf("CGTCalendar() = %d entries, want %d", len(entries), tt.count)
			}
			if tt.count == 0 {
				return
			}
			// same threshold, ordered by symbol
			if entries[0].Symbol != "BHP" || entries[1].Symbol != "CBA" {
				t.Errorf("CGTCalendar() symbols = %s, %s, want BHP, CBA", entries[0].Symbol, entries[1].Symbol)
			}
			for _, e := range entries {
				if e.DaysUntil != tt.days || e.Eligible != tt.eligible {
					t.Errorf("CGTCalendar() %s = %d days, eligible %v, want %d, %v", e.Symbol, e.DaysUntil, e.Eligible, tt.days, tt.eligible)
				}
			}
		})
	}
}

func TestLedger_TradeLog(t *testing.T) {
	l := reportLedger(t)
	lines, err := l.TradeLog()
	if err != nil {
		t.Fatalf("TradeLog() = %v", err)
	}
	if len(lines) != 6 {
		t.Fatalf("TradeLog() = %d lines, want 6", len(lines))
	}
	bhp := lines[2]
	if bhp.Symbol != "BHP" || !bhp.Net.Equal(M(510)) || bhp.CostBasis != nil || bhp.Gain != nil {
		t.Errorf("TradeLog()[2] = %+v, want the BHP buy with net 510", bhp)
	}
	sell := lines[3]
	if sell.Type != Sell || !sell.Net.Equal(M(450)) {
		t.Fatalf("TradeLog()[3] = %+v, want the CBA sell with net 450", sell)
	}
	if sell.CostBasis == nil || !sell.CostBasis.Equal(M(200)) || sell.Gain == nil || !sell.Gain.Equal(M(250)) {
		t.Errorf("TradeLog()[3] cost %v gain %v, want 200 and 250", sell.CostBasis, sell.Gain)
	}
}

func TestLedger_TradeLogFeeAllocation(t *testing.T) {
	tests := []struct {
		fees            FeeAllocation
		buyNet, sellNet int
	}{
		{AllocateBuy, 110, 120},
		{AllocateSell, 100, 110},
		{AllocateSplit, 105, 115},
	}
	for _, tc := range tests {
		t.Run(tc.fees.String(), func(t *testing.T) {
			l := newTestLedger(t, Options{Fees: tc.fees})
			record(t, l, NewTrade(Buy, at("2024-01-10 10:00"), "CBA", Q(10), M(10), M(10)), TradeOptions{})
			record(t, l, NewTrade(Sell, at("2024-01-12 10:00"), "CBA", Q(10), M(12), M(10)), TradeOptions{})

			lines, err := l.TradeLog()
			if err != nil {
				t.Fatalf("TradeLog() = %v", err)
			}
			if len(lines) != 2 {
				t.Fatalf("TradeLog() = %d lines, want 2", len(lines))
			}
			if buy := lines[0]; !buy.Net.Equal(M(tc.buyNet)) {
				t.Errorf("buy net = %s, want %d", buy.Net, tc.buyNet)
			}
			sell := lines[1]
			if !sell.Net.Equal(M(tc.sellNet)) {
				t.Errorf("sell net = %s, want %d", sell.Net, tc.sellNet)
			}
			// the net of a sell is what its disposals realised
			if proceeds := sell.CostBasis.Add(*sell.Gain); !sell.Net.Equal(proceeds) {
				t.Errorf("sell net = %s, want disposal proceeds %s", sell.Net, proceeds)
			}
		})
	}
}

func TestLedger_RealisedGains(t *testing.T) {
	l := reportLedger(t)
	report, err := l.RealisedGains(date.FinancialYearEnding(2024))
	if err != nil {
		t.Fatalf("RealisedGains() = %v", err)
	}
	if len(report.Symbols) != 2 {
		t.Fatalf("RealisedGains() = %d symbols, want 2", len(report.Symbols))
	}
	bhp, cba := report.Symbols[0], report.Symbols[1]
	if bhp.Symbol != "BHP" || !bhp.Losses.Equal(M(-44)) || !bhp.Net().Equal(M(-44)) {
		t.Errorf("BHP gains = %+v, want a 44 loss", bhp)
	}
	if cba.Symbol != "CBA" || !cba.Quantity.Equal(Q(15)) || !cba.Proceeds.Equal(M(450)) || !cba.CostBasis.Equal(M(200)) {
		t.Errorf("CBA gains = %+v, want 15 units, proceeds 450, cost 200", cba)
	}
	if !cba.Discountable.Equal(M(200)) || !cba.Other.Equal(M(50)) || !cba.Losses.IsZero() {
		t.Errorf("CBA gains = %+v, want 200 discountable and 50 other", cba)
	}
	if !report.Total.Net().Equal(M(206)) {
		t.Errorf("total net = %s, want 206", report.Total.Net())
	}

	next, err := l.RealisedGains(date.FinancialYearEnding(2025))
	if err != nil {
		t.Fatalf("RealisedGains() = %v", err)
	}
	if len(next.Symbols) != 1 || !next.Total.Net().Equal(M(10)) {
		t.Errorf("RealisedGains(FY2025) = %+v, want a single gain of 10", next)
	}
}
