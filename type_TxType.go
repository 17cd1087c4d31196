package taxlot

import (
	"fmt"
	"strings"
)

// TxType is a typed string for identifying transaction kinds.
type TxType string

// Transaction types recorded in the ledger.
const (
	Buy  TxType = "BUY"
	Sell TxType = "SELL"
	DRP  TxType = "DRP" // dividend reinvestment, acquires units like a buy
)

// IsAcquisition reports whether the transaction creates a lot.
func (t TxType) IsAcquisition() bool { return t == Buy || t == DRP }

// ParseTxType parses a string into a TxType. It is case insensitive.
func ParseTxType(s string) (TxType, error) {
	switch t := TxType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Buy, Sell, DRP:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction type %q", ErrUnsupported, s)
	}
}
