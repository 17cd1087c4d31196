package taxlot

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// LotMatch is a quantity taken from one lot to satisfy a disposal.
type LotMatch struct {
	Lot      Lot
	Quantity Quantity
}

// Allocation is a caller supplied choice of lots for a disposal, by lot
// identifier.
type Allocation map[LotID]Quantity

// Total returns the sum of all allocated quantities.
func (a Allocation) Total() Quantity {
	var total Quantity
	for _, q := range a {
		total = total.Add(q)
	}
	return total
}

// String formats the allocation as "id:qty,id:qty" in identifier order.
func (a Allocation) String() string {
	ids := make([]LotID, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d:%s", id, a[id]))
	}
	return strings.Join(parts, ",")
}

// Match selects which open lots, and how much of each, satisfy the sale of
// quantity units under method.
//
// Match is pure: lots are not modified. For FIFO and HIFO the matched
// quantities always sum to quantity exactly, an insufficient inventory fails
// without any partial result. For SpecificID, allocation must reference open
// lots only and sum to quantity.
func Match(lots []Lot, quantity Quantity, method MatchMethod, allocation Allocation) ([]LotMatch, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: sell quantity must be positive, got %s", ErrInvalid, quantity)
	}

	open := make([]Lot, 0, len(lots))
	for _, l := range lots {
		if l.IsOpen() {
			open = append(open, l)
		}
	}
	if len(open) == 0 {
		return nil, fmt.Errorf("%w: no open lots available to sell %s", ErrInsufficientQuantity, quantity)
	}

	switch method {
	case FIFO:
		sort.SliceStable(open, func(i, j int) bool { return fifoLess(open[i], open[j]) })
		return greedy(open, quantity)
	case HIFO:
		sort.SliceStable(open, func(i, j int) bool { return hifoLess(open[i], open[j]) })
		return greedy(open, quantity)
	case SpecificID:
		return specific(open, quantity, allocation)
	default:
		return nil, fmt.Errorf("%w: lot matching method %q", ErrUnsupported, method)
	}
}

// fifoLess orders lots by acquisition time then identifier.
func fifoLess(a, b Lot) bool {
	if !a.AcquiredAt.Equal(b.AcquiredAt) {
		return a.AcquiredAt.Before(b.AcquiredAt)
	}
	return a.ID < b.ID
}

// hifoLess orders lots by cost per unit, highest first, then like fifoLess.
func hifoLess(a, b Lot) bool {
	if c := a.CostPerUnit().Cmp(b.CostPerUnit()); c != 0 {
		return c > 0
	}
	return fifoLess(a, b)
}

// greedy consumes ordered lots until quantity is reached.
func greedy(ordered []Lot, quantity Quantity) ([]LotMatch, error) {
	var matches []LotMatch
	remaining := quantity
	for _, l := range ordered {
		if !remaining.IsPositive() {
			break
		}
		take := l.Quantity.Min(remaining)
		matches = append(matches, LotMatch{Lot: l, Quantity: take})
		remaining = remaining.Sub(take)
	}
	if remaining.IsPositive() {
		return nil, fmt.Errorf("%w: cannot sell %s, only %s available", ErrInsufficientQuantity, quantity, quantity.Sub(remaining))
	}
	return matches, nil
}

// specific validates a caller allocation against the open lots.
func specific(open []Lot, quantity Quantity, allocation Allocation) ([]LotMatch, error) {
	if len(allocation) == 0 {
		return nil, fmt.Errorf("%w: SPECIFIC_ID matching requires a lot allocation", ErrInvalid)
	}
	byID := make(map[LotID]Lot, len(open))
	for _, l := range open {
		byID[l.ID] = l
	}

	ids := make([]LotID, 0, len(allocation))
	for id, q := range allocation {
		if !q.IsPositive() {
			return nil, fmt.Errorf("%w: quantity allocated to lot %d must be positive, got %s", ErrInvalid, id, q)
		}
		l, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: lot %d", ErrUnknownLot, id)
		}
		if q.GreaterThan(l.Quantity) && !q.WithinEpsilon(l.Quantity) {
			return nil, fmt.Errorf("%w: lot %d holds %s, cannot take %s", ErrInsufficientQuantity, id, l.Quantity, q)
		}
		ids = append(ids, id)
	}
	if total := allocation.Total(); !total.WithinEpsilon(quantity) {
		return nil, fmt.Errorf("%w: allocation totals %s, sell quantity is %s", ErrInvalid, total, quantity)
	}

	// matches follow the lots order so that results are reproducible.
	sort.Slice(ids, func(i, j int) bool { return fifoLess(byID[ids[i]], byID[ids[j]]) })
	matches := make([]LotMatch, 0, len(ids))
	for _, id := range ids {
		l := byID[id]
		matches = append(matches, LotMatch{Lot: l, Quantity: allocation[id].Min(l.Quantity)})
	}
	return matches, nil
}
