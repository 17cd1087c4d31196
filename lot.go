package taxlot

import (
	"fmt"
	"time"
)

// LotID identifies a lot in a repository.
type LotID int64

// Lot is a slice of acquired inventory of a security, with its own cost base
// and acquisition time. A lot quantity and cost base only ever decrease.
type Lot struct {
	ID         LotID     `json:"id"`
	Symbol     string    `json:"symbol"`
	AcquiredAt time.Time `json:"acquiredAt"`
	Quantity   Quantity  `json:"quantity"`  // remaining quantity
	CostBasis  Money     `json:"costBasis"` // remaining cost base, fees included
	Threshold  time.Time `json:"threshold"`
	SourceTxID TxID      `json:"sourceTxId"`
}

// IsOpen reports whether the lot still holds units.
func (l Lot) IsOpen() bool { return l.Quantity.IsPositive() }

// CostPerUnit returns the remaining cost base per remaining unit. It is zero
// for an exhausted lot.
func (l Lot) CostPerUnit() Money {
	if !l.Quantity.IsPositive() {
		return Money{}
	}
	return l.CostBasis.Div(l.Quantity)
}

// costOf returns the cost base allocated to qty units of this lot.
//
// Consuming the whole lot allocates its whole cost base, so that no residue
// is left behind.
func (l Lot) costOf(qty Quantity) Money {
	if qty.Equal(l.Quantity) {
		return l.CostBasis
	}
	return l.CostBasis.Prorate(qty.Decimal(), l.Quantity.Decimal())
}

// dispose returns a copy of the lot with qty units and cost removed.
// Negative residues below Epsilon are clamped to zero.
func (l Lot) dispose(qty Quantity, cost Money) (Lot, error) {
	remaining := l.Quantity.Sub(qty)
	if remaining.IsNegative() {
		if remaining.Abs().Decimal().GreaterThan(Epsilon) {
			return l, fmt.Errorf("%w: lot %d would go negative by %s units", ErrInconsistent, l.ID, remaining.Abs())
		}
		remaining = Quantity{}
	}
	left := l.CostBasis.Sub(cost)
	if left.IsNegative() {
		if !left.IsNegligible() {
			return l, fmt.Errorf("%w: lot %d cost base would go negative by %s", ErrInconsistent, l.ID, left.Neg())
		}
		left = Money{}
	}
	if remaining.IsZero() && !left.IsZero() {
		if !left.IsNegligible() {
			return l, fmt.Errorf("%w: lot %d exhausted with %s cost base left", ErrInconsistent, l.ID, left)
		}
		left = Money{}
	}
	l.Quantity, l.CostBasis = remaining, left
	return l, nil
}

// DisposalID identifies a disposal in a repository.
type DisposalID int64

// Disposal records one lot slice consumed by one sell transaction.
type Disposal struct {
	ID        DisposalID `json:"id"`
	SellTxID  TxID       `json:"sellTxId"`
	LotID     LotID      `json:"lotId"`
	Quantity  Quantity   `json:"quantity"`
	Proceeds  Money      `json:"proceeds"` // net of the fee share
	CostBasis Money      `json:"costBasis"`
	Gain      Money      `json:"gain"`     // Proceeds - CostBasis, negative for a loss
	Discount  bool       `json:"discount"` // eligible for the CGT discount
}
