package taxlot

import (
	"fmt"
	"strings"
)

// FeeAllocation defines which side of a trade bears its brokerage fee.
type FeeAllocation int

const (
	// AllocateBuy folds fees into the cost base of acquisitions.
	AllocateBuy FeeAllocation = iota + 1
	// AllocateSell deducts fees from the proceeds of disposals.
	AllocateSell
	// AllocateSplit shares fees between both sides.
	AllocateSplit
)

func (a FeeAllocation) String() string {
	switch a {
	case AllocateBuy:
		return "BUY"
	case AllocateSell:
		return "SELL"
	case AllocateSplit:
		return "SPLIT"
	default:
		return "unknown"
	}
}

// ParseFeeAllocation parses a string into a FeeAllocation. It is case insensitive.
func ParseFeeAllocation(s string) (FeeAllocation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return AllocateBuy, nil
	case "SELL":
		return AllocateSell, nil
	case "SPLIT":
		return AllocateSplit, nil
	default:
		return 0, fmt.Errorf("%w: unknown brokerage allocation strategy %q", ErrUnsupported, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a FeeAllocation) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *FeeAllocation) UnmarshalText(text []byte) error {
	v, err := ParseFeeAllocation(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
