package taxlot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Record is one line of the transaction log exchange format: a transaction
// without identifier and, for a SpecificID sell, the lots it consumed.
//
// Lots references acquisitions by their Fingerprint, identifiers are not
// portable between ledgers.
type Record struct {
	Transaction
	Lots map[string]Quantity
}

// MarshalJSON implements the json.Marshaler interface for Record.
func (r Record) MarshalJSON() ([]byte, error) {
	var o jsonObject
	o.merge(r.Transaction)
	if len(r.Lots) > 0 {
		// keys are sorted by encoding/json, output is canonical.
		o.field("lots", r.Lots)
	}
	return o.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return err
	}
	var temp struct {
		Lots map[string]Quantity `json:"lots"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*r = Record{Transaction: tx, Lots: temp.Lots}
	return nil
}

// DecodeRecords decodes records from a stream of JSONL data. Empty lines are
// skipped. Records are returned in stream order.
func DecodeRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}
		var rec Record
		if err := json.Unmarshal(lineBytes, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalid, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return records, nil
}

// EncodeRecord marshals a single record to JSON and writes it to the writer,
// followed by a newline, in JSONL format.
func EncodeRecord(w io.Writer, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write transaction: %w", err)
	}
	return nil
}

// EncodeRecords writes records in JSONL format.
func EncodeRecords(w io.Writer, records []Record) error {
	for _, rec := range records {
		if err := EncodeRecord(w, rec); err != nil {
			return err
		}
	}
	return nil
}

// sortedFingerprints returns the keys of a record allocation in order.
func sortedFingerprints(lots map[string]Quantity) []string {
	return slices.Sorted(maps.Keys(lots))
}
