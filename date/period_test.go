package date

import (
	"testing"
	"time"
)

func TestNewRange(t *testing.T) {
	testCases := []struct {
		name   string
		in     Date
		period Period
		want   Range
	}{
		{"Daily", New(2025, time.September, 8), Daily, Range{From: New(2025, time.September, 8), To: New(2025, time.September, 8)}},
		{"Monthly", New(2025, time.September, 10), Monthly, Range{From: New(2025, time.September, 1), To: New(2025, time.September, 30)}},
		{"Leap February", New(2024, time.February, 10), Monthly, Range{From: New(2024, time.February, 1), To: New(2024, time.February, 29)}},
		{"Quarterly", New(2025, time.August, 10), Quarterly, Range{From: New(2025, time.July, 1), To: New(2025, time.September, 30)}},
		{"Yearly", New(2025, time.August, 10), Yearly, Range{From: New(2025, time.January, 1), To: New(2025, time.December, 31)}},
		{"Financial second half", New(2025, time.August, 10), FinancialYear, Range{From: New(2025, time.July, 1), To: New(2026, time.June, 30)}},
		{"Financial first half", New(2025, time.March, 10), FinancialYear, Range{From: New(2024, time.July, 1), To: New(2025, time.June, 30)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewRange(tc.in, tc.period); got != tc.want {
				t.Errorf("NewRange() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRange_Name(t *testing.T) {
	testCases := []struct {
		name string
		in   Range
		want string
	}{
		{"Single Day", NewRange(New(2025, time.September, 8), Daily), "daily"},
		{"Standard Month", NewRange(New(2025, time.September, 1), Monthly), "monthly"},
		{"Standard Quarter", NewRange(New(2025, time.July, 1), Quarterly), "quarterly"},
		{"Standard Year", NewRange(New(2025, time.January, 1), Yearly), "yearly"},
		{"Financial Year", FinancialYearEnding(2025), "financial"},
		{"Non-Standard Range", Range{From: New(2025, time.September, 2), To: New(2025, time.September, 10)}, "special"},
		{"Multi Year", Range{From: New(2025, time.January, 1), To: New(2026, time.December, 31)}, "special"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Name(); got != tc.want {
				t.Errorf("Name() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRange_Identifier(t *testing.T) {
	testCases := []struct {
		name string
		in   Range
		want string
	}{
		{"Daily Identifier", NewRange(New(2025, time.September, 8), Daily), "2025-09-08"},
		{"Monthly Identifier", NewRange(New(2025, time.September, 1), Monthly), "2025-09"},
		{"Quarterly Identifier", NewRange(New(2025, time.July, 1), Quarterly), "2025-Q3"},
		{"Yearly Identifier", NewRange(New(2025, time.January, 1), Yearly), "2025"},
		{"Financial Identifier", FinancialYearEnding(2024), "FY2024"},
		{"Custom Range Identifier", Range{From: New(2025, time.September, 2), To: New(2025, time.September, 10)}, "2025-09-02_2025-09-10"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Identifier(); got != tc.want {
				t.Errorf("Identifier() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	testCases := []struct {
		in      string
		want    Range
		wantErr bool
	}{
		{"FY2024", Range{From: New(2023, time.July, 1), To: New(2024, time.June, 30)}, false},
		{"fy2024", Range{From: New(2023, time.July, 1), To: New(2024, time.June, 30)}, false},
		{"2024", Range{From: New(2024, time.January, 1), To: New(2024, time.December, 31)}, false},
		{"2024-Q2", Range{From: New(2024, time.April, 1), To: New(2024, time.June, 30)}, false},
		{"2024-02", Range{From: New(2024, time.February, 1), To: New(2024, time.February, 29)}, false},
		{"2024-02-03", Range{From: New(2024, time.February, 3), To: New(2024, time.February, 3)}, false},
		{"2024-01-01_2024-03-31", Range{From: New(2024, time.January, 1), To: New(2024, time.March, 31)}, false},
		{"2024-03-31_2024-01-01", Range{}, true},
		{"2024-Q5", Range{}, true},
		{"last year", Range{}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRange(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseRange() error = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseRange() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		want    Period
		wantErr bool
	}{
		{"Daily", "daily", Daily, false},
		{"Monthly", "monthly", Monthly, false},
		{"Quarterly", "quarterly", Quarterly, false},
		{"Yearly", "yearly", Yearly, false},
		{"Financial", "financial", FinancialYear, false},
		{"Unknown", "unknown", Daily, true},
		{"Day", "day", Daily, false},
		{"Month", "month", Monthly, false},
		{"Quarter", "quarter", Quarterly, false},
		{"Year", "year", Yearly, false},
		{"FY", "FY", FinancialYear, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePeriod(tc.in)
			if (err != nil) != tc.wantErr {
				t.Errorf("ParsePeriod() error = %v, wantErr %v", err, tc.wantErr)
				return
			}
			if got != tc.want {
				t.Errorf("ParsePeriod() = %v, want %v", got, tc.want)
			}
		})
	}
}
