package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/taxlot"
)

// querier is implemented by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// repo implements taxlot.Repository over a connection or a transaction.
type repo struct {
	q querier
}

const txColumns = "id, time, type, symbol, quantity, price, fees, exchange, broker_ref, notes, method"

func (r repo) AddTransaction(t taxlot.Transaction) (taxlot.TxID, error) {
	res, err := r.q.Exec(`INSERT INTO transactions
		(time, time_ns, type, symbol, quantity, price, fees, exchange, broker_ref, notes, method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(t.Time), t.Time.UnixNano(), string(t.Type), t.Symbol,
		t.Quantity.String(), t.Price.String(), t.Fees.String(),
		t.Exchange, t.BrokerRef, t.Notes, t.Method.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction id: %w", err)
	}
	return taxlot.TxID(id), nil
}

func (r repo) Transaction(id taxlot.TxID) (taxlot.Transaction, error) {
	row := r.q.QueryRow("SELECT "+txColumns+" FROM transactions WHERE id = ?", int64(id))
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("transaction %d: %w", id, taxlot.ErrNotFound)
	}
	return t, err
}

func (r repo) Transactions(f taxlot.TransactionFilter) ([]taxlot.Transaction, error) {
	query := "SELECT " + txColumns + " FROM transactions"
	var args []any
	if f.Symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, f.Symbol)
	}
	if f.Order == taxlot.Descending {
		query += " ORDER BY time_ns DESC, id DESC"
	} else {
		query += " ORDER BY time_ns ASC, id ASC"
	}
	rows, err := r.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []taxlot.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r repo) UpdateTransaction(t taxlot.Transaction) error {
	res, err := r.q.Exec(`UPDATE transactions SET
		time = ?, time_ns = ?, type = ?, symbol = ?, quantity = ?, price = ?, fees = ?,
		exchange = ?, broker_ref = ?, notes = ?, method = ?
		WHERE id = ?`,
		formatTime(t.Time), t.Time.UnixNano(), string(t.Type), t.Symbol,
		t.Quantity.String(), t.Price.String(), t.Fees.String(),
		t.Exchange, t.BrokerRef, t.Notes, t.Method.String(), int64(t.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", t.ID, err)
	}
	return expectOne(res, "transaction", int64(t.ID))
}

func (r repo) DeleteTransaction(id taxlot.TxID) error {
	res, err := r.q.Exec("DELETE FROM transactions WHERE id = ?", int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	return expectOne(res, "transaction", int64(id))
}

const lotColumns = "id, symbol, acquired_at, quantity, cost_basis, threshold, source_tx_id"

func (r repo) AddLot(l taxlot.Lot) (taxlot.LotID, error) {
	res, err := r.q.Exec(`INSERT INTO lots
		(symbol, acquired_at, acquired_ns, quantity, cost_basis, threshold, source_tx_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.Symbol, formatTime(l.AcquiredAt), l.AcquiredAt.UnixNano(),
		l.Quantity.String(), l.CostBasis.String(), formatTime(l.Threshold), int64(l.SourceTxID),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert lot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get lot id: %w", err)
	}
	return taxlot.LotID(id), nil
}

func (r repo) UpdateLot(l taxlot.Lot) error {
	res, err := r.q.Exec(`UPDATE lots SET
		symbol = ?, acquired_at = ?, acquired_ns = ?, quantity = ?, cost_basis = ?, threshold = ?, source_tx_id = ?
		WHERE id = ?`,
		l.Symbol, formatTime(l.AcquiredAt), l.AcquiredAt.UnixNano(),
		l.Quantity.String(), l.CostBasis.String(), formatTime(l.Threshold), int64(l.SourceTxID), int64(l.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update lot %d: %w", l.ID, err)
	}
	return expectOne(res, "lot", int64(l.ID))
}

func (r repo) Lots(f taxlot.LotFilter) ([]taxlot.Lot, error) {
	query := "SELECT " + lotColumns + " FROM lots"
	var where []string
	var args []any
	if f.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, f.Symbol)
	}
	rows, err := r.q.Query(whereClause(query, where)+" ORDER BY acquired_ns ASC, id ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var out []taxlot.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		// quantities are text, openness is decided on the decimal value
		if f.OnlyOpen && !l.IsOpen() {
			continue
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r repo) DeleteLot(id taxlot.LotID) error {
	var disposal int64
	err := r.q.QueryRow("SELECT id FROM disposals WHERE lot_id = ? ORDER BY id LIMIT 1", int64(id)).Scan(&disposal)
	switch {
	case err == nil:
		return fmt.Errorf("%w: lot %d is referenced by disposal %d", taxlot.ErrInvalid, id, disposal)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to query disposals of lot %d: %w", id, err)
	}
	res, err := r.q.Exec("DELETE FROM lots WHERE id = ?", int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete lot %d: %w", id, err)
	}
	return expectOne(res, "lot", int64(id))
}

const disposalColumns = "id, sell_tx_id, lot_id, quantity, proceeds, cost_basis, gain, discount"

func (r repo) AddDisposal(d taxlot.Disposal) (taxlot.DisposalID, error) {
	var exists int
	err := r.q.QueryRow("SELECT 1 FROM lots WHERE id = ?", int64(d.LotID)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("disposal lot %d: %w", d.LotID, taxlot.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query lot %d: %w", d.LotID, err)
	}
	res, err := r.q.Exec(`INSERT INTO disposals
		(sell_tx_id, lot_id, quantity, proceeds, cost_basis, gain, discount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(d.SellTxID), int64(d.LotID),
		d.Quantity.String(), d.Proceeds.String(), d.CostBasis.String(), d.Gain.String(), d.Discount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert disposal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get disposal id: %w", err)
	}
	return taxlot.DisposalID(id), nil
}

func (r repo) Disposals(f taxlot.DisposalFilter) ([]taxlot.Disposal, error) {
	query := "SELECT " + disposalColumns + " FROM disposals"
	var where []string
	var args []any
	if f.SellTxID != 0 {
		where = append(where, "sell_tx_id = ?")
		args = append(args, int64(f.SellTxID))
	}
	if f.LotID != 0 {
		where = append(where, "lot_id = ?")
		args = append(args, int64(f.LotID))
	}
	rows, err := r.q.Query(whereClause(query, where)+" ORDER BY id ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query disposals: %w", err)
	}
	defer rows.Close()

	var out []taxlot.Disposal
	for rows.Next() {
		d, err := scanDisposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r repo) DeleteDisposalsForSell(id taxlot.TxID) error {
	if _, err := r.q.Exec("DELETE FROM disposals WHERE sell_tx_id = ?", int64(id)); err != nil {
		return fmt.Errorf("failed to delete disposals of transaction %d: %w", id, err)
	}
	return nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (taxlot.Transaction, error) {
	var (
		t                     taxlot.Transaction
		id                    int64
		when, typ, method     string
		quantity, price, fees string
	)
	if err := s.Scan(&id, &when, &typ, &t.Symbol, &quantity, &price, &fees, &t.Exchange, &t.BrokerRef, &t.Notes, &method); err != nil {
		return t, err
	}
	t.ID, t.Type = taxlot.TxID(id), taxlot.TxType(typ)
	var err error
	if t.Time, err = parseTime(when); err != nil {
		return t, err
	}
	if t.Quantity, err = taxlot.ParseQuantity(quantity); err != nil {
		return t, corrupt("transaction", id, err)
	}
	if t.Price, err = taxlot.ParseMoney(price); err != nil {
		return t, corrupt("transaction", id, err)
	}
	if t.Fees, err = taxlot.ParseMoney(fees); err != nil {
		return t, corrupt("transaction", id, err)
	}
	if method != "" {
		if t.Method, err = taxlot.ParseMatchMethod(method); err != nil {
			return t, corrupt("transaction", id, err)
		}
	}
	return t, nil
}

func scanLot(s scanner) (taxlot.Lot, error) {
	var (
		l                   taxlot.Lot
		id, source          int64
		acquired, threshold string
		quantity, cost      string
	)
	if err := s.Scan(&id, &l.Symbol, &acquired, &quantity, &cost, &threshold, &source); err != nil {
		return l, err
	}
	l.ID, l.SourceTxID = taxlot.LotID(id), taxlot.TxID(source)
	var err error
	if l.AcquiredAt, err = parseTime(acquired); err != nil {
		return l, corrupt("lot", id, err)
	}
	if l.Threshold, err = parseTime(threshold); err != nil {
		return l, corrupt("lot", id, err)
	}
	if l.Quantity, err = taxlot.ParseQuantity(quantity); err != nil {
		return l, corrupt("lot", id, err)
	}
	if l.CostBasis, err = taxlot.ParseMoney(cost); err != nil {
		return l, corrupt("lot", id, err)
	}
	return l, nil
}

func scanDisposal(s scanner) (taxlot.Disposal, error) {
	var (
		d                              taxlot.Disposal
		id, sell, lot                  int64
		quantity, proceeds, cost, gain string
	)
	if err := s.Scan(&id, &sell, &lot, &quantity, &proceeds, &cost, &gain, &d.Discount); err != nil {
		return d, err
	}
	d.ID, d.SellTxID, d.LotID = taxlot.DisposalID(id), taxlot.TxID(sell), taxlot.LotID(lot)
	var err error
	if d.Quantity, err = taxlot.ParseQuantity(quantity); err != nil {
		return d, corrupt("disposal", id, err)
	}
	if d.Proceeds, err = taxlot.ParseMoney(proceeds); err != nil {
		return d, corrupt("disposal", id, err)
	}
	if d.CostBasis, err = taxlot.ParseMoney(cost); err != nil {
		return d, corrupt("disposal", id, err)
	}
	if d.Gain, err = taxlot.ParseMoney(gain); err != nil {
		return d, corrupt("disposal", id, err)
	}
	return d, nil
}

func corrupt(what string, id int64, err error) error {
	return fmt.Errorf("%w: %s %d has an invalid column: %w", taxlot.ErrInconsistent, what, id, err)
}

func formatTime(t time.Time) string { return t.Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return t, fmt.Errorf("%w: invalid time %q", taxlot.ErrInconsistent, s)
	}
	return t, nil
}

func expectOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, taxlot.ErrNotFound)
	}
	return nil
}

func whereClause(query string, conditions []string) string {
	if len(conditions) == 0 {
		return query
	}
	return query + " WHERE " + strings.Join(conditions, " AND ")
}
