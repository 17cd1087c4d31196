package date

import (
	"fmt"
	"strings"
)

// Period is a standard reporting period.
type Period int

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	case FinancialYear:
		return "financial"
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

const (
	Daily Period = iota
	Monthly
	Quarterly
	Yearly
	// FinancialYear runs from 1 July to 30 June.
	FinancialYear
)

func ParsePeriod(p string) (Period, error) {
	p = strings.ToLower(p)
	switch p {
	case "daily", "day":
		return Daily, nil
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "yearly", "year":
		return Yearly, nil
	case "financial", "fy":
		return FinancialYear, nil
	default:
		return Daily, fmt.Errorf("unknown period %s", p)
	}
}
