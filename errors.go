package taxlot

import "errors"

// Errors returned by the ledger. They are wrapped with context, use errors.Is
// to match them.
var (
	// ErrInvalid is returned for malformed input: non-positive quantities,
	// negative prices or fees, malformed lot references.
	ErrInvalid = errors.New("invalid")
	// ErrUnsupported is returned for an unknown transaction type, matching
	// method or allocation strategy. It is also an ErrInvalid.
	ErrUnsupported = &wrapped{msg: "unsupported", parent: ErrInvalid}
	// ErrInsufficientQuantity is returned when open lots cannot cover a sale.
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	// ErrUnknownLot is returned when a specific allocation references a lot
	// that does not exist or is no longer open. It is also an ErrInvalid.
	ErrUnknownLot = &wrapped{msg: "unknown or unavailable lot", parent: ErrInvalid}
	// ErrInconsistent is returned when the derived lot state cannot be
	// reproduced from the transaction log.
	ErrInconsistent = errors.New("inconsistent ledger state")
	// ErrNotFound is returned by repositories for missing records.
	ErrNotFound = errors.New("not found")
)

// wrapped is a sentinel error that also matches its parent.
type wrapped struct {
	msg    string
	parent error
}

func (e *wrapped) Error() string { return e.msg }
func (e *wrapped) Unwrap() error { return e.parent }
