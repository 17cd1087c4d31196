package taxlot

import (
	"fmt"
	"time"
)

// DiscountDays is the holding period after which a disposal qualifies for
// the CGT discount.
const DiscountDays = 365

// Threshold returns the instant from which a disposal of units acquired at
// acquired is eligible for the CGT discount: the acquisition time in loc plus
// DiscountDays calendar days, at the same wall clock time.
func Threshold(acquired time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = acquired.Location()
	}
	return acquired.In(loc).AddDate(0, 0, DiscountDays)
}

// DiscountEligible reports whether a disposal at soldAt of a lot with the
// given threshold qualifies for the CGT discount.
func DiscountEligible(soldAt, threshold time.Time) bool {
	return !soldAt.Before(threshold)
}

// SliceDisposal computes one disposal per match of a sell transaction.
//
// The fee share charged to the sale is split between matches pro rata of
// their quantity; the cost base of each match is taken from the lot
// proportionally to the quantity it consumes. Disposals have no identifier.
func SliceDisposal(sell Transaction, matches []LotMatch, fee Money, loc *time.Location) ([]Disposal, error) {
	if sell.Type != Sell {
		return nil, fmt.Errorf("%w: disposals can only be computed for %s transactions, got %s", ErrInvalid, Sell, sell.Type)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	if loc == nil {
		loc = sell.Time.Location()
	}

	var total Quantity
	for _, m := range matches {
		if !m.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: matched quantity for lot %d must be positive, got %s", ErrInvalid, m.Lot.ID, m.Quantity)
		}
		if !m.Lot.IsOpen() {
			return nil, fmt.Errorf("%w: lot %d is exhausted", ErrUnknownLot, m.Lot.ID)
		}
		total = total.Add(m.Quantity)
	}

	soldAt := sell.Time.In(loc)
	disposals := make([]Disposal, 0, len(matches))
	charged := Money{}
	for i, m := range matches {
		share := fee.Prorate(m.Quantity.Decimal(), total.Decimal())
		if i == len(matches)-1 {
			share = fee.Sub(charged)
		}
		charged = charged.Add(share)

		cost := m.Lot.costOf(m.Quantity)
		proceeds := sell.Price.Mul(m.Quantity).Sub(share)
		disposals = append(disposals, Disposal{
			SellTxID:  sell.ID,
			LotID:     m.Lot.ID,
			Quantity:  m.Quantity,
			Proceeds:  proceeds,
			CostBasis: cost,
			Gain:      proceeds.Sub(cost),
			Discount:  DiscountEligible(soldAt, m.Lot.Threshold),
		})
	}
	return disposals, nil
}
