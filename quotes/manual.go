package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/etnz/taxlot"
)

// ManualSource is the Source name of manual quotes.
const ManualSource = "manual"

// document is the JSON layout of a quotes file.
type document struct {
	Quotes []taxlot.Quote `json:"quotes"`
}

// Manual is a set of quotes entered by hand, persisted in a JSON file.
type Manual struct {
	path   string
	mu     sync.RWMutex
	quotes map[string]taxlot.Quote
}

// OpenManual loads the manual quotes stored at path. A missing file is an
// empty set.
func OpenManual(path string) (*Manual, error) {
	m := &Manual{path: path, quotes: make(map[string]taxlot.Quote)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read quotes file: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: cannot decode quotes file %s: %w", taxlot.ErrInvalid, path, err)
	}
	for _, q := range doc.Quotes {
		q.Stale = false
		m.quotes[q.Symbol] = q
	}
	return m, nil
}

// Path returns the file backing the quotes.
func (m *Manual) Path() string { return m.path }

// Set records the price of symbol at asOf and saves the file.
func (m *Manual) Set(symbol string, price taxlot.Money, asOf time.Time) (taxlot.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return taxlot.Quote{}, fmt.Errorf("%w: quote symbol is missing", taxlot.ErrInvalid)
	}
	if !price.IsPositive() {
		return taxlot.Quote{}, fmt.Errorf("%w: %s price must be positive, got %s", taxlot.ErrInvalid, symbol, price)
	}
	q := taxlot.Quote{Symbol: symbol, Price: price, AsOf: asOf, Source: ManualSource}

	m.mu.Lock()
	defer m.mu.Unlock()
	prev, existed := m.quotes[symbol]
	m.quotes[symbol] = q
	if err := m.save(); err != nil {
		if existed {
			m.quotes[symbol] = prev
		} else {
			delete(m.quotes, symbol)
		}
		return taxlot.Quote{}, err
	}
	return q, nil
}

// Quote returns the manual quote of symbol.
func (m *Manual) Quote(symbol string) (taxlot.Quote, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotes[strings.ToUpper(symbol)]
	return q, ok
}

// Quotes implements Source.
func (m *Manual) Quotes(context.Context) (map[string]taxlot.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]taxlot.Quote, len(m.quotes))
	for k, v := range m.quotes {
		out[k] = v
	}
	return out, nil
}

// save rewrites the file through a temporary file.
func (m *Manual) save() error {
	doc := document{Quotes: make([]taxlot.Quote, 0, len(m.quotes))}
	for _, q := range m.quotes {
		doc.Quotes = append(doc.Quotes, q)
	}
	sort.Slice(doc.Quotes, func(i, j int) bool { return doc.Quotes[i].Symbol < doc.Quotes[j].Symbol })
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode quotes: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".quotes-*.json")
	if err != nil {
		return fmt.Errorf("cannot save quotes: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot save quotes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot save quotes: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("cannot save quotes: %w", err)
	}
	return nil
}
