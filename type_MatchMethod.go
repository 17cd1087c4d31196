package taxlot

import (
	"fmt"
	"strings"
)

// MatchMethod defines how a disposal selects the lots it consumes.
type MatchMethod int

const (
	// FIFO (First-In, First-Out) consumes the oldest lots first.
	FIFO MatchMethod = iota + 1
	// HIFO (Highest-In, First-Out) consumes the lots with the highest cost per unit first.
	HIFO
	// SpecificID consumes exactly the lots and quantities chosen by the caller.
	SpecificID
)

func (m MatchMethod) String() string {
	switch m {
	case FIFO:
		return "FIFO"
	case HIFO:
		return "HIFO"
	case SpecificID:
		return "SPECIFIC_ID"
	case 0:
		return ""
	default:
		return "unknown"
	}
}

// ParseMatchMethod parses a string into a MatchMethod. It is case insensitive.
func ParseMatchMethod(s string) (MatchMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIFO":
		return FIFO, nil
	case "HIFO":
		return HIFO, nil
	case "SPECIFIC_ID", "SPECIFIC":
		return SpecificID, nil
	default:
		return 0, fmt.Errorf("%w: unknown lot matching method %q", ErrUnsupported, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m MatchMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. An empty text is the zero method.
func (m *MatchMethod) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = 0
		return nil
	}
	v, err := ParseMatchMethod(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
