package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/quotes"
	"github.com/go-chi/chi/v5"
)

// maxBody limits the size of request bodies.
const maxBody = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTransactions lists transactions, optionally of ?symbol= and in
// reverse order with ?order=desc.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	order, err := taxlot.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	txs, err := s.cfg.Ledger.Transactions(taxlot.TransactionFilter{Symbol: r.URL.Query().Get("symbol"), Order: order})
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(txs))
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.txID(w, r)
	if !ok {
		return
	}
	tx, err := s.cfg.Ledger.Transaction(id)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tx)
}

// tradeRequest is a transaction with the explicit lot allocation of a
// SPECIFIC_ID sell, keyed by lot identifier.
type tradeRequest struct {
	taxlot.Transaction
	Lots taxlot.Allocation
}

func (t *tradeRequest) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &t.Transaction); err != nil {
		return err
	}
	var temp struct {
		Lots taxlot.Allocation `json:"lots"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.Lots = temp.Lots
	return nil
}

func (s *Server) handleRecordTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if !s.decode(w, r, &req) {
		return
	}
	tx, err := s.cfg.Ledger.RecordTrade(req.Transaction, taxlot.TradeOptions{Lots: req.Lots})
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := s.txID(w, r)
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	tx, err := s.cfg.Ledger.UpdateNotes(id, req.Notes)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.txID(w, r)
	if !ok {
		return
	}
	if err := s.cfg.Ledger.DeleteTransaction(id); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cfg.Ledger.Rebuild()
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleLots lists lots, optionally of ?symbol= and only the open ones with
// ?open=true.
func (s *Server) handleLots(w http.ResponseWriter, r *http.Request) {
	f := taxlot.LotFilter{Symbol: r.URL.Query().Get("symbol")}
	if v := r.URL.Query().Get("open"); v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid open %q", v))
			return
		}
		f.OnlyOpen = open
	}
	lots, err := s.cfg.Ledger.Lots(f)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(lots))
}

// handleDisposals lists disposals, optionally of a ?sell= transaction or a
// ?lot=.
func (s *Server) handleDisposals(w http.ResponseWriter, r *http.Request) {
	var f taxlot.DisposalFilter
	for key, dst := range map[string]*int64{"sell": (*int64)(&f.SellTxID), "lot": (*int64)(&f.LotID)} {
		v := r.URL.Query().Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", key, v))
			return
		}
		*dst = n
	}
	disposals, err := s.cfg.Ledger.Disposals(f)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(disposals))
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	q, err := quotes.Collect(r.Context(), s.now(), s.cfg.StaleAfter, s.cfg.Quotes...)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to collect quotes")
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	positions, err := s.cfg.Ledger.Positions(q)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(positions))
}

// handleCalendar lists the lots reaching their CGT discount threshold within
// ?window= days of ?asof= (RFC 3339 or a date, defaults to now).
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	asOf := s.now()
	if v := r.URL.Query().Get("asof"); v != "" {
		t, err := parseTime(v, s.cfg.Ledger.Location())
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid asof %q", v))
			return
		}
		asOf = t
	}
	window := s.cfg.Window
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid window %q", v))
			return
		}
		window = n
	}
	entries, err := s.cfg.Ledger.CGTCalendar(asOf, window)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(entries))
}

func parseTime(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, v, loc)
}

func (s *Server) txID(w http.ResponseWriter, r *http.Request) (taxlot.TxID, bool) {
	v := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid transaction id %q", v))
		return 0, false
	}
	return taxlot.TxID(id), true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusOf maps a ledger error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, taxlot.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, taxlot.ErrInsufficientQuantity), errors.Is(err, taxlot.ErrInconsistent):
		return http.StatusConflict
	case errors.Is(err, taxlot.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeLedgerError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Ledger failure")
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
