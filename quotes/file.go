package quotes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/taxlot"
)

// DefaultPath selects the records of a quotes file as written by Manual.
const DefaultPath = "$.quotes[*]"

// File reads quotes from a JSON document.
//
// Path selects the quote records in the document. Each record is an object
// with a "symbol", a "price" (number or string) and an optional "asof"
// (RFC 3339 time or 2006-01-02 date).
type File struct {
	Location string       // local file path or http(s) URL
	Path     string       // JSONPath, DefaultPath if empty
	Client   *http.Client // used for URLs, http.DefaultClient if nil
	// Now is the time given to records without "asof", time.Now if nil.
	Now func() time.Time
}

// Quotes implements Source.
func (f File) Quotes(ctx context.Context) (map[string]taxlot.Quote, error) {
	doc, err := f.document(ctx)
	if err != nil {
		return nil, err
	}
	path := f.Path
	if path == "" {
		path = DefaultPath
	}
	jval, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: error evaluating %q on %s: %w", taxlot.ErrInvalid, path, f.Location, err)
	}
	// jsonpath returns a list for wildcards and a single value otherwise.
	records, ok := jval.([]any)
	if !ok {
		records = []any{jval}
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	quotes := make(map[string]taxlot.Quote, len(records))
	for i, rec := range records {
		q, err := parseRecord(rec, now())
		if err != nil {
			return nil, fmt.Errorf("%w: %s record %d: %w", taxlot.ErrInvalid, f.Location, i, err)
		}
		q.Source = f.Location
		if prev, ok := quotes[q.Symbol]; ok && prev.AsOf.After(q.AsOf) {
			continue
		}
		quotes[q.Symbol] = q
	}
	return quotes, nil
}

// document reads and decodes the JSON document, numbers are kept as
// json.Number so that prices keep all their digits.
func (f File) document(ctx context.Context) (any, error) {
	var data []byte
	var err error
	if strings.HasPrefix(f.Location, "http://") || strings.HasPrefix(f.Location, "https://") {
		data, err = f.get(ctx)
	} else {
		data, err = os.ReadFile(f.Location)
	}
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: cannot decode %s: %w", taxlot.ErrInvalid, f.Location, err)
	}
	return doc, nil
}

// get performs an HTTP GET request and returns the body.
func (f File) get(ctx context.Context) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func parseRecord(rec any, now time.Time) (taxlot.Quote, error) {
	obj, ok := rec.(map[string]any)
	if !ok {
		return taxlot.Quote{}, fmt.Errorf("not an object: %v", rec)
	}
	symbol, _ := obj["symbol"].(string)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return taxlot.Quote{}, fmt.Errorf("symbol is missing")
	}
	var price taxlot.Money
	var err error
	switch v := obj["price"].(type) {
	case json.Number:
		price, err = taxlot.ParseMoney(v.String())
	case string:
		price, err = taxlot.ParseMoney(v)
	default:
		err = fmt.Errorf("price is missing")
	}
	if err != nil {
		return taxlot.Quote{}, fmt.Errorf("%s: %w", symbol, err)
	}
	if price.IsNegative() {
		return taxlot.Quote{}, fmt.Errorf("%s: price must not be negative, got %s", symbol, price)
	}
	asOf := now
	if s, ok := obj["asof"].(string); ok && s != "" {
		if asOf, err = parseTime(s); err != nil {
			return taxlot.Quote{}, fmt.Errorf("%s: %w", symbol, err)
		}
	}
	return taxlot.Quote{Symbol: symbol, Price: price, AsOf: asOf}, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid asof %q", s)
	}
	return t, nil
}
