package taxlot

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TxID identifies a transaction in a repository.
type TxID int64

// Transaction is a trade recorded in the ledger.
//
// Transactions are immutable once recorded, except for Notes. The transaction
// log is the single source of truth: lots and disposals are derived from it.
type Transaction struct {
	ID        TxID
	Time      time.Time // Time is when the trade happened, it must carry a location.
	Type      TxType
	Symbol    string
	Quantity  Quantity
	Price     Money // Price per unit.
	Fees      Money // Fees is the total brokerage paid for the trade.
	Exchange  string
	BrokerRef string
	Notes     string
	// Method is the lot matching method a SELL was recorded with. It is zero
	// for acquisitions.
	Method MatchMethod
}

// NewTrade creates a new transaction without identifier.
func NewTrade(typ TxType, on time.Time, symbol string, quantity Quantity, price, fees Money) Transaction {
	return Transaction{
		Time:     on,
		Type:     typ,
		Symbol:   symbol,
		Quantity: quantity,
		Price:    price,
		Fees:     fees,
	}
}

// Notional returns the gross value of the trade (quantity times price).
func (t Transaction) Notional() Money { return t.Price.Mul(t.Quantity) }

// Validate checks the transaction fields and returns a copy with quick fixes
// applied (upper case symbol and type) or an error describing the first failure.
func (t Transaction) Validate() (Transaction, error) {
	typ, err := ParseTxType(string(t.Type))
	if err != nil {
		return t, err
	}
	t.Type = typ
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	if t.Symbol == "" {
		return t, fmt.Errorf("%w: transaction symbol is missing", ErrInvalid)
	}
	if t.Time.IsZero() {
		return t, fmt.Errorf("%w: transaction time is missing", ErrInvalid)
	}
	if !t.Quantity.IsPositive() {
		return t, fmt.Errorf("%w: %s quantity must be positive, got %s", ErrInvalid, t.Type, t.Quantity)
	}
	if t.Price.IsNegative() {
		return t, fmt.Errorf("%w: %s price must not be negative, got %s", ErrInvalid, t.Type, t.Price)
	}
	if t.Fees.IsNegative() {
		return t, fmt.Errorf("%w: %s fees must not be negative, got %s", ErrInvalid, t.Type, t.Fees)
	}
	if t.Type.IsAcquisition() {
		t.Method = 0
	}
	return t, nil
}

// Equal reports whether both transactions hold the same values, ignoring the
// identifier.
func (t Transaction) Equal(o Transaction) bool {
	return t.Time.Equal(o.Time) &&
		t.Type == o.Type &&
		t.Symbol == o.Symbol &&
		t.Quantity.Equal(o.Quantity) &&
		t.Price.Equal(o.Price) &&
		t.Fees.Equal(o.Fees) &&
		t.Exchange == o.Exchange &&
		t.BrokerRef == o.BrokerRef &&
		t.Notes == o.Notes &&
		t.Method == o.Method
}

// fingerprintSpace is the UUID namespace of transaction fingerprints.
var fingerprintSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/etnz/taxlot/transaction"))

// Fingerprint returns a deterministic identifier of the economic content of
// the trade. Two imports of the same trade have the same fingerprint, notes
// and identifiers are ignored.
func (t Transaction) Fingerprint() uuid.UUID {
	key := strings.Join([]string{
		t.Time.UTC().Format(time.RFC3339Nano),
		string(t.Type),
		t.Symbol,
		t.Quantity.String(),
		t.Price.String(),
		t.Fees.String(),
		t.BrokerRef,
	}, "|")
	return uuid.NewSHA1(fingerprintSpace, []byte(key))
}

// MarshalJSON implements the json.Marshaler interface for Transaction.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var o jsonObject
	o.optional("id", t.ID)
	o.field("time", t.Time)
	o.field("type", t.Type)
	o.field("symbol", t.Symbol)
	o.field("quantity", t.Quantity)
	o.field("price", t.Price)
	o.field("fees", t.Fees)
	o.optional("exchange", t.Exchange)
	o.optional("brokerRef", t.BrokerRef)
	o.optional("notes", t.Notes)
	o.optional("method", t.Method.String())
	return o.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Transaction.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID        TxID        `json:"id"`
		Time      time.Time   `json:"time"`
		Type      TxType      `json:"type"`
		Symbol    string      `json:"symbol"`
		Quantity  Quantity    `json:"quantity"`
		Price     Money       `json:"price"`
		Fees      Money       `json:"fees"`
		Exchange  string      `json:"exchange"`
		BrokerRef string      `json:"brokerRef"`
		Notes     string      `json:"notes"`
		Method    MatchMethod `json:"method"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*t = Transaction(temp)
	return nil
}
