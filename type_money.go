package taxlot

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money represents a monetary value in the ledger's base currency.
//
// The ledger is single currency, the currency code is only needed to format
// amounts for humans.
type Money struct {
	value decimal.Decimal // as major unit value
}

// M returns Money from a Go number or a decimal.
func M[T float64 | int | int64 | decimal.Decimal](value T) Money {
	return Money{value: newDecimal(value)}
}

// ParseMoney parses a decimal string such as "1234.56".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{value: d}, nil
}

// MustMoney is like ParseMoney but panics on error.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal           { return m.value }
func (m Money) Equal(n Money) bool                 { return m.value.Equal(n.value) }
func (m Money) IsZero() bool                       { return m.value.IsZero() }
func (m Money) IsPositive() bool                   { return m.value.IsPositive() }
func (m Money) IsNegative() bool                   { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool              { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool           { return m.value.GreaterThan(n.value) }
func (m Money) Neg() Money                         { return Money{value: m.value.Neg()} }
func (m Money) Add(n Money) Money                  { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money                  { return Money{value: m.value.Sub(n.value)} }
func (m Money) Mul(q Quantity) Money               { return Money{value: m.value.Mul(q.value)} }
func (m Money) Div(q Quantity) Money               { return Money{value: m.value.Div(q.value)} }
func (m Money) MulDecimal(d decimal.Decimal) Money { return Money{value: m.value.Mul(d)} }
func (m Money) Ratio(n Money) decimal.Decimal      { return m.value.Div(n.value) }

// Prorate returns m * part / whole. The product is computed first so that
// divisions that are exact stay exact.
func (m Money) Prorate(part, whole decimal.Decimal) Money {
	return Money{value: m.value.Mul(part).Div(whole)}
}

func (m Money) Cmp(n Money) int                 { return m.value.Cmp(n.value) }
func (m Money) String() string                  { return m.value.String() }
func (m Money) StringFixed(places int32) string { return m.value.StringFixed(places) }
func (m Money) IsNegligible() bool              { return m.value.Abs().LessThanOrEqual(Epsilon) }

// Format returns the amount formatted in the given ISO currency, rounded to
// the currency's minor unit (e.g. "A$1,234.56" for AUD, "$1,234.56" for USD).
func (m Money) Format(currency string) string {
	cur := currencyOf(currency)
	dec := m.value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(dec.IntPart())
}

// SignedString returns the formatted amount with an explicit sign, zero is
// represented as "-".
func (m Money) SignedString(currency string) string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.Format(currency)
	}
	return m.Format(currency)
}

// currencyOf returns the currency definition, never nil.
func currencyOf(code string) money.Currency {
	// to get a never nil currency I need to call the Money constructor
	return *money.New(0, code).Currency()
}

// ValidateCurrency checks that code is a known ISO 4217 currency.
func ValidateCurrency(code string) error {
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalid, code)
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface. Amounts are persisted
// with all their digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return m.value.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (m *Money) UnmarshalJSON(decimalBytes []byte) error {
	return m.value.UnmarshalJSON(decimalBytes)
}
