package taxlot

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float64 | int | int64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	default:
		panic("unsupported type")
	}
}

// Quantity is a number of units of a security. It is an exact decimal.
type Quantity struct {
	value decimal.Decimal
}

// Q returns a Quantity from a Go number or a decimal.
func Q[T float64 | int | int64 | decimal.Decimal](value T) Quantity {
	return Quantity{value: newDecimal(value)}
}

// ParseQuantity parses a decimal string such as "12.5".
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return Quantity{value: d}, nil
}

// MustQuantity is like ParseQuantity but panics on error.
func MustQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Decimal() decimal.Decimal              { return q.value }
func (q Quantity) Equal(p Quantity) bool                 { return q.value.Equal(p.value) }
func (q Quantity) LessThan(p Quantity) bool              { return q.value.LessThan(p.value) }
func (q Quantity) GreaterThan(p Quantity) bool           { return q.value.GreaterThan(p.value) }
func (q Quantity) GreaterThanOrEqual(p Quantity) bool    { return q.value.GreaterThanOrEqual(p.value) }
func (q Quantity) Add(p Quantity) Quantity               { return Quantity{value: q.value.Add(p.value)} }
func (q Quantity) Sub(p Quantity) Quantity               { return Quantity{value: q.value.Sub(p.value)} }
func (q Quantity) Neg() Quantity                         { return Quantity{value: q.value.Neg()} }
func (q Quantity) Abs() Quantity                         { return Quantity{value: q.value.Abs()} }
func (q Quantity) IsNegative() bool                      { return q.value.IsNegative() }
func (q Quantity) IsPositive() bool                      { return q.value.IsPositive() }
func (q Quantity) IsZero() bool                          { return q.value.IsZero() }
func (q Quantity) Ratio(p Quantity) decimal.Decimal      { return q.value.Div(p.value) }
func (q Quantity) String() string                        { return q.value.String() }
func (q Quantity) Cmp(p Quantity) int                    { return q.value.Cmp(p.value) }
func (q Quantity) Min(p Quantity) Quantity               { return Quantity{value: decimal.Min(q.value, p.value)} }
func (q Quantity) WithinEpsilon(p Quantity) bool         { return q.value.Sub(p.value).Abs().LessThanOrEqual(Epsilon) }
func (q Quantity) StringFixed(places int32) string       { return q.value.StringFixed(places) }
func (q Quantity) MulDecimal(d decimal.Decimal) Quantity { return Quantity{value: q.value.Mul(d)} }

// Epsilon is the largest rounding residue silently clamped to zero.
var Epsilon = decimal.New(1, -9)

// MarshalJSON implements the json.Marshaler interface.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return q.value.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (q *Quantity) UnmarshalJSON(decimalBytes []byte) error {
	return q.value.UnmarshalJSON(decimalBytes)
}
