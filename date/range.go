package date

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// NewRange return a well known period
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// FinancialYearEnding returns the financial year ending on 30 June of year.
func FinancialYearEnding(year int) Range {
	return NewRange(New(year, time.June, 30), FinancialYear)
}

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return (!date.Before(r.From) && !date.After(r.To)) }

// ContainsTime reports whether the day of t in loc is in the range.
func (r Range) ContainsTime(t time.Time, loc *time.Location) bool { return r.Contains(Of(t, loc)) }

// return the period of this range if it's a standard one.
func (r Range) Period() (p Period, ok bool) {
	switch {
	case r.From == r.To:
		return Daily, true
	case r.From.Day() == 1 && r.From.EndOf(Monthly) == r.To:
		return Monthly, true
	case r.From.StartOf(Quarterly) == r.From && r.From.EndOf(Quarterly) == r.To:
		return Quarterly, true
	case r.From.StartOf(Yearly) == r.From && r.From.EndOf(Yearly) == r.To:
		return Yearly, true
	case r.From.StartOf(FinancialYear) == r.From && r.From.EndOf(FinancialYear) == r.To:
		return FinancialYear, true
	default:
		return Daily, false
	}
}

// Name the period range
func (r Range) Name() string {
	p, ok := r.Period()
	if ok {
		return p.String()
	}
	return "special"
}

// Identifier compute a unique identifier for the Range.
// If the period is defined, use a short insighful name
func (r Range) Identifier() string {

	p, ok := r.Period()
	if !ok {
		return fmt.Sprintf("%s_%s", r.From, r.To)
	}

	switch p {
	case Daily:
		return r.From.String()
	case Monthly:
		return r.From.Format("2006-01")
	case Quarterly:
		return fmt.Sprintf("%d-Q%d", r.From.Year(), (r.From.Month()-1)/3+1)
	case Yearly:
		return r.From.Format("2006")
	case FinancialYear:
		return fmt.Sprintf("FY%d", r.To.Year())
	default:
		panic("unknown period")
	}

}

// String returns the range Identifier.
func (r Range) String() string { return r.Identifier() }

// ParseRange parses a range written as an identifier: "FY2024", "2024",
// "2024-Q3", "2024-09", "2024-09-08" or "2024-01-01_2024-06-30".
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if from, to, ok := strings.Cut(s, "_"); ok {
		f, err := Parse(from)
		if err != nil {
			return Range{}, err
		}
		t, err := Parse(to)
		if err != nil {
			return Range{}, err
		}
		if t.Before(f) {
			return Range{}, fmt.Errorf("invalid range %q: ends before it starts", s)
		}
		return Range{From: f, To: t}, nil
	}
	if y, ok := strings.CutPrefix(strings.ToUpper(s), "FY"); ok {
		year, err := strconv.Atoi(y)
		if err != nil {
			return Range{}, fmt.Errorf("invalid financial year %q: %w", s, err)
		}
		return FinancialYearEnding(year), nil
	}
	if y, q, ok := strings.Cut(s, "-Q"); ok {
		year, err := strconv.Atoi(y)
		if err != nil {
			return Range{}, fmt.Errorf("invalid quarter %q: %w", s, err)
		}
		quarter, err := strconv.Atoi(q)
		if err != nil || quarter < 1 || quarter > 4 {
			return Range{}, fmt.Errorf("invalid quarter %q", s)
		}
		return NewRange(New(year, time.Month(3*quarter-2), 1), Quarterly), nil
	}
	if year, err := strconv.Atoi(s); err == nil {
		return NewRange(New(year, time.January, 1), Yearly), nil
	}
	if on, err := time.Parse("2006-1", s); err == nil {
		return NewRange(New(on.Year(), on.Month(), 1), Monthly), nil
	}
	d, err := Parse(s)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q", s)
	}
	return Range{From: d, To: d}, nil
}
