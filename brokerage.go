package taxlot

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Leg is one side of a trade for fee allocation purposes. Notional is
// positive for a buy leg and negative for a sell leg.
type Leg struct {
	ID       string
	Notional decimal.Decimal
}

// Allocate splits fees between legs according to strategy.
//
// AllocateBuy charges positive legs only, AllocateSell negative legs only and
// AllocateSplit all legs. Each eligible leg gets a share proportional to its
// absolute notional. Every leg is present in the result, with zero when it is
// not charged.
func Allocate(fees Money, strategy FeeAllocation, legs []Leg) (map[string]Money, error) {
	var eligible func(decimal.Decimal) bool
	switch strategy {
	case AllocateBuy:
		eligible = decimal.Decimal.IsPositive
	case AllocateSell:
		eligible = decimal.Decimal.IsNegative
	case AllocateSplit:
		eligible = func(decimal.Decimal) bool { return true }
	default:
		return nil, fmt.Errorf("%w: brokerage allocation strategy %q", ErrUnsupported, strategy)
	}

	result := make(map[string]Money, len(legs))
	var total decimal.Decimal
	var charged []Leg
	for _, leg := range legs {
		result[leg.ID] = Money{}
		if eligible(leg.Notional) {
			charged = append(charged, leg)
			total = total.Add(leg.Notional.Abs())
		}
	}
	if len(charged) == 0 {
		return nil, fmt.Errorf("%w: no leg eligible for %s fee allocation", ErrInvalid, strategy)
	}
	if total.IsZero() {
		return nil, fmt.Errorf("%w: legs eligible for %s fee allocation have zero notional", ErrInvalid, strategy)
	}

	// the last charged leg takes the remainder so that shares sum to fees.
	allocated := Money{}
	for i, leg := range charged {
		share := fees.Prorate(leg.Notional.Abs(), total)
		if i == len(charged)-1 {
			share = fees.Sub(allocated)
		}
		result[leg.ID] = result[leg.ID].Add(share)
		allocated = allocated.Add(share)
	}
	return result, nil
}

// tradeFee returns the part of a single trade fees charged to its own side.
//
// A trade is seen as a buy leg and a sell leg of equal weight: the strategy
// charges the whole fee to one side, or half to each.
func tradeFee(t Transaction, strategy FeeAllocation) (Money, error) {
	if t.Fees.IsZero() {
		return Money{}, nil
	}
	const buyLeg, sellLeg = "buy", "sell"
	weight := t.Quantity.Decimal()
	shares, err := Allocate(t.Fees, strategy, []Leg{
		{ID: buyLeg, Notional: weight},
		{ID: sellLeg, Notional: weight.Neg()},
	})
	if err != nil {
		return Money{}, fmt.Errorf("could not allocate %s fees: %w", t.Type, err)
	}
	if t.Type.IsAcquisition() {
		return shares[buyLeg], nil
	}
	return shares[sellLeg], nil
}
