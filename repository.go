package taxlot

import (
	"fmt"
	"strings"
)

// Order is the chronological order of a listing.
type Order int

const (
	Ascending Order = iota
	Descending
)

// ParseOrder parses "asc" or "desc"; empty means ascending.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "", "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	default:
		return 0, fmt.Errorf("%w: unsupported order %q", ErrInvalid, s)
	}
}

// TransactionFilter selects transactions. The zero value selects all of them
// in ascending order.
type TransactionFilter struct {
	Symbol string
	Order  Order
}

// LotFilter selects lots. The zero value selects all lots.
type LotFilter struct {
	Symbol   string
	OnlyOpen bool
}

// DisposalFilter selects disposals. Zero identifiers do not filter.
type DisposalFilter struct {
	SellTxID TxID
	LotID    LotID
}

// Repository is the persistence contract of the ledger.
//
// Identifiers are assigned by the repository as one more than the largest
// identifier in use. Listings are deterministic: transactions and lots by
// time then identifier, disposals by identifier.
type Repository interface {
	AddTransaction(Transaction) (TxID, error)
	Transaction(TxID) (Transaction, error)
	Transactions(TransactionFilter) ([]Transaction, error)
	UpdateTransaction(Transaction) error
	DeleteTransaction(TxID) error

	AddLot(Lot) (LotID, error)
	UpdateLot(Lot) error
	Lots(LotFilter) ([]Lot, error)
	DeleteLot(LotID) error

	AddDisposal(Disposal) (DisposalID, error)
	Disposals(DisposalFilter) ([]Disposal, error)
	DeleteDisposalsForSell(TxID) error
}

// Store is a Repository able to run a unit of work atomically.
type Store interface {
	Repository
	// Atomic runs fn with a Repository whose changes are all kept if fn
	// returns nil, or all discarded otherwise.
	Atomic(fn func(Repository) error) error
	Close() error
}
