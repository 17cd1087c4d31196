package taxlot

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures a Ledger.
type Options struct {
	// Location is the timezone of CGT thresholds. Defaults to time.Local.
	Location *time.Location
	// Method is the default lot matching method of sells. Defaults to FIFO.
	Method MatchMethod
	// Fees is the brokerage allocation strategy. Defaults to AllocateBuy.
	Fees FeeAllocation
	// Logger receives the ledger activity. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// TradeOptions are the per trade choices of RecordTrade.
type TradeOptions struct {
	// Method overrides the ledger default matching method of a sell.
	Method MatchMethod
	// Lots is the explicit lot allocation of a SpecificID sell. A non empty
	// allocation implies SpecificID.
	Lots Allocation
}

// Ledger is the portfolio ledger service.
//
// The transaction log held by the store is the source of truth, lots and
// disposals are derived from it by RecordTrade and Rebuild. Mutations are
// serialised, queries may run concurrently with each other.
type Ledger struct {
	mu     sync.RWMutex
	store  Store
	loc    *time.Location
	method MatchMethod
	fees   FeeAllocation
	log    zerolog.Logger
}

// NewLedger creates a ledger service over store.
func NewLedger(store Store, opts Options) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: ledger requires a store", ErrInvalid)
	}
	l := &Ledger{
		store:  store,
		loc:    opts.Location,
		method: opts.Method,
		fees:   opts.Fees,
		log:    zerolog.Nop(),
	}
	if l.loc == nil {
		l.loc = time.Local
	}
	if l.method == 0 {
		l.method = FIFO
	}
	if l.fees == 0 {
		l.fees = AllocateBuy
	}
	if opts.Logger != nil {
		l.log = *opts.Logger
	}
	switch l.method {
	case FIFO, HIFO, SpecificID:
	default:
		return nil, fmt.Errorf("%w: lot matching method %q", ErrUnsupported, l.method)
	}
	switch l.fees {
	case AllocateBuy, AllocateSell, AllocateSplit:
	default:
		return nil, fmt.Errorf("%w: brokerage allocation strategy %q", ErrUnsupported, l.fees)
	}
	return l, nil
}

// Location returns the timezone of CGT thresholds.
func (l *Ledger) Location() *time.Location { return l.loc }

// Method returns the default lot matching method.
func (l *Ledger) Method() MatchMethod { return l.method }

// Fees returns the brokerage allocation strategy.
func (l *Ledger) Fees() FeeAllocation { return l.fees }

// RecordTrade records a new transaction and updates lots and disposals
// accordingly, in a single unit of work: on error nothing is kept.
//
// A BUY or DRP creates one lot. A SELL consumes open lots of its symbol,
// chosen by the resolved matching method, and records one disposal per
// consumed lot. It returns the recorded transaction with its identifier.
func (l *Ledger) RecordTrade(tx Transaction, opts TradeOptions) (Transaction, error) {
	tx, err := l.prepare(tx, opts, 0)
	if err != nil {
		return Transaction{}, err
	}
	tx.ID = 0

	l.mu.Lock()
	defer l.mu.Unlock()
	err = l.store.Atomic(func(r Repository) error {
		id, err := r.AddTransaction(tx)
		if err != nil {
			return fmt.Errorf("could not save transaction: %w", err)
		}
		tx.ID = id
		_, err = l.apply(r, tx, opts.Lots)
		return err
	})
	if err != nil {
		l.log.Error().Err(err).Str("type", string(tx.Type)).Str("symbol", tx.Symbol).Msg("trade rejected")
		return Transaction{}, err
	}
	l.log.Info().
		Int64("tx", int64(tx.ID)).
		Str("type", string(tx.Type)).
		Str("symbol", tx.Symbol).
		Stringer("quantity", tx.Quantity).
		Stringer("price", tx.Price).
		Str("method", tx.Method.String()).
		Msg("trade recorded")
	return tx, nil
}

// prepare validates tx and resolves the matching method of a sell. previous
// is the method the transaction was recorded with, if any.
func (l *Ledger) prepare(tx Transaction, opts TradeOptions, previous MatchMethod) (Transaction, error) {
	tx, err := tx.Validate()
	if err != nil {
		return tx, err
	}
	if tx.Type.IsAcquisition() {
		if len(opts.Lots) > 0 {
			return tx, fmt.Errorf("%w: a lot allocation is only valid for a %s", ErrInvalid, Sell)
		}
		return tx, nil
	}

	method := opts.Method
	if len(opts.Lots) > 0 {
		if method != 0 && method != SpecificID {
			return tx, fmt.Errorf("%w: a lot allocation requires %s matching, got %s", ErrInvalid, SpecificID, method)
		}
		method = SpecificID
	}
	for _, m := range []MatchMethod{tx.Method, previous, l.method} {
		if method != 0 {
			break
		}
		method = m
	}
	switch method {
	case FIFO, HIFO:
	case SpecificID:
		if len(opts.Lots) == 0 && previous != SpecificID {
			return tx, fmt.Errorf("%w: %s matching requires a lot allocation", ErrInvalid, SpecificID)
		}
	default:
		return tx, fmt.Errorf("%w: lot matching method %q", ErrUnsupported, method)
	}
	tx.Method = method
	return tx, nil
}

// apply derives lots and disposals of a recorded transaction. It returns the
// lot created by an acquisition.
func (l *Ledger) apply(r Repository, tx Transaction, alloc Allocation) (LotID, error) {
	switch tx.Type {
	case Buy, DRP:
		return l.acquire(r, tx)
	case Sell:
		return 0, l.dispose(r, tx, alloc)
	default:
		return 0, fmt.Errorf("%w: transaction type %q", ErrUnsupported, tx.Type)
	}
}

// acquire creates the lot of a BUY or DRP.
func (l *Ledger) acquire(r Repository, tx Transaction) (LotID, error) {
	fee, err := tradeFee(tx, l.fees)
	if err != nil {
		return 0, err
	}
	lot := Lot{
		Symbol:     tx.Symbol,
		AcquiredAt: tx.Time,
		Quantity:   tx.Quantity,
		CostBasis:  tx.Notional().Add(fee),
		Threshold:  Threshold(tx.Time, l.loc),
		SourceTxID: tx.ID,
	}
	id, err := r.AddLot(lot)
	if err != nil {
		return 0, fmt.Errorf("could not save lot of transaction %d: %w", tx.ID, err)
	}
	l.log.Debug().
		Int64("lot", int64(id)).
		Int64("tx", int64(tx.ID)).
		Str("symbol", lot.Symbol).
		Stringer("quantity", lot.Quantity).
		Stringer("cost", lot.CostBasis).
		Msg("lot created")
	return id, nil
}

// dispose matches a SELL against open lots, records its disposals and
// consumes the lots.
func (l *Ledger) dispose(r Repository, tx Transaction, alloc Allocation) error {
	method := tx.Method
	if method == 0 {
		method = l.method
	}
	lots, err := r.Lots(LotFilter{Symbol: tx.Symbol, OnlyOpen: true})
	if err != nil {
		return fmt.Errorf("could not list open lots of %s: %w", tx.Symbol, err)
	}
	matches, err := Match(lots, tx.Quantity, method, alloc)
	if err != nil {
		return fmt.Errorf("cannot sell %s %s on %s: %w", tx.Quantity, tx.Symbol, tx.Time.Format(time.DateOnly), err)
	}
	fee, err := tradeFee(tx, l.fees)
	if err != nil {
		return err
	}
	disposals, err := SliceDisposal(tx, matches, fee, l.loc)
	if err != nil {
		return err
	}
	for i, d := range disposals {
		lot, err := matches[i].Lot.dispose(d.Quantity, d.CostBasis)
		if err != nil {
			return err
		}
		if err := r.UpdateLot(lot); err != nil {
			return fmt.Errorf("could not update lot %d: %w", lot.ID, err)
		}
		id, err := r.AddDisposal(d)
		if err != nil {
			return fmt.Errorf("could not save disposal of lot %d: %w", lot.ID, err)
		}
		l.log.Debug().
			Int64("disposal", int64(id)).
			Int64("lot", int64(lot.ID)).
			Int64("tx", int64(tx.ID)).
			Stringer("quantity", d.Quantity).
			Stringer("gain", d.Gain).
			Bool("discount", d.Discount).
			Msg("lot consumed")
	}
	return nil
}

// UpdateNotes changes the notes of a transaction, the only mutable field. It
// does not affect lots or disposals.
func (l *Ledger) UpdateNotes(id TxID, notes string) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var tx Transaction
	err := l.store.Atomic(func(r Repository) error {
		var err error
		if tx, err = r.Transaction(id); err != nil {
			return err
		}
		tx.Notes = notes
		return r.UpdateTransaction(tx)
	})
	if err != nil {
		return Transaction{}, err
	}
	l.log.Info().Int64("tx", int64(id)).Msg("notes updated")
	return tx, nil
}

// ReplaceTransaction overwrites the transaction with the same identifier and
// rebuilds lots and disposals. opts may provide a new lot allocation, with
// lot identifiers as they are before the replacement.
func (l *Ledger) ReplaceTransaction(tx Transaction, opts TradeOptions) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var stats RebuildStats
	err := l.store.Atomic(func(r Repository) error {
		previous, err := r.Transaction(tx.ID)
		if err != nil {
			return err
		}
		prev := previous.Method
		if tx.Type != Sell || previous.Type != Sell {
			prev = 0
		}
		id := tx.ID
		if tx, err = l.prepare(tx, opts, prev); err != nil {
			return err
		}
		tx.ID = id
		if err := r.UpdateTransaction(tx); err != nil {
			return err
		}
		var overrides map[TxID]sourceAllocation
		if len(opts.Lots) > 0 {
			alloc, err := bySource(r, opts.Lots)
			if err != nil {
				return err
			}
			overrides = map[TxID]sourceAllocation{id: alloc}
		}
		stats, err = l.rebuild(r, overrides)
		return err
	})
	if err != nil {
		l.log.Error().Err(err).Int64("tx", int64(tx.ID)).Msg("transaction replacement aborted")
		return Transaction{}, err
	}
	l.log.Info().Int64("tx", int64(tx.ID)).Int("lots", stats.Lots).Int("disposals", stats.Disposals).Msg("transaction replaced")
	return tx, nil
}

// DeleteTransaction removes a transaction and rebuilds lots and disposals.
func (l *Ledger) DeleteTransaction(id TxID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var stats RebuildStats
	err := l.store.Atomic(func(r Repository) error {
		tx, err := r.Transaction(id)
		if err != nil {
			return err
		}
		if tx.Type == Sell {
			if err := r.DeleteDisposalsForSell(id); err != nil {
				return err
			}
		}
		if err := r.DeleteTransaction(id); err != nil {
			return err
		}
		stats, err = l.rebuild(r, nil)
		return err
	})
	if err != nil {
		l.log.Error().Err(err).Int64("tx", int64(id)).Msg("transaction deletion aborted")
		return err
	}
	l.log.Info().Int64("tx", int64(id)).Int("lots", stats.Lots).Int("disposals", stats.Disposals).Msg("transaction deleted")
	return nil
}

// RebuildStats summarises a rebuild.
type RebuildStats struct {
	Transactions int `json:"transactions"`
	Lots         int `json:"lots"`
	Disposals    int `json:"disposals"`
}

// Rebuild recomputes every lot and disposal by replaying the transaction log
// in chronological order.
//
// Sells recorded with SpecificID keep the lots they consumed, identified by
// the transactions that created them. If such a sell can no longer be
// satisfied the rebuild fails with ErrInconsistent and nothing changes.
func (l *Ledger) Rebuild() (RebuildStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var stats RebuildStats
	err := l.store.Atomic(func(r Repository) error {
		var err error
		stats, err = l.rebuild(r, nil)
		return err
	})
	if err != nil {
		l.log.Error().Err(err).Msg("rebuild aborted")
		return RebuildStats{}, err
	}
	l.log.Info().
		Int("transactions", stats.Transactions).
		Int("lots", stats.Lots).
		Int("disposals", stats.Disposals).
		Msg("ledger rebuilt")
	return stats, nil
}

// sourceAllocation is a lot allocation keyed by the transaction that created
// each lot. Unlike lot identifiers it survives a rebuild.
type sourceAllocation map[TxID]Quantity

// bySource converts an allocation by lot identifier into a sourceAllocation.
func bySource(r Repository, alloc Allocation) (sourceAllocation, error) {
	lots, err := r.Lots(LotFilter{})
	if err != nil {
		return nil, err
	}
	source := make(map[LotID]TxID, len(lots))
	for _, lot := range lots {
		source[lot.ID] = lot.SourceTxID
	}
	out := make(sourceAllocation, len(alloc))
	for id, q := range alloc {
		src, ok := source[id]
		if !ok {
			return nil, fmt.Errorf("%w: lot %d", ErrUnknownLot, id)
		}
		out[src] = out[src].Add(q)
	}
	return out, nil
}

// rebuild replays the log within r. overrides replace the captured
// allocations of some sells.
func (l *Ledger) rebuild(r Repository, overrides map[TxID]sourceAllocation) (RebuildStats, error) {
	txs, err := r.Transactions(TransactionFilter{})
	if err != nil {
		return RebuildStats{}, err
	}
	lots, err := r.Lots(LotFilter{})
	if err != nil {
		return RebuildStats{}, err
	}
	disposals, err := r.Disposals(DisposalFilter{})
	if err != nil {
		return RebuildStats{}, err
	}

	// capture specific allocations by source transaction, lot identifiers
	// do not survive a rebuild.
	source := make(map[LotID]TxID, len(lots))
	for _, lot := range lots {
		source[lot.ID] = lot.SourceTxID
	}
	captured := make(map[TxID]sourceAllocation)
	for _, d := range disposals {
		src, ok := source[d.LotID]
		if !ok {
			return RebuildStats{}, fmt.Errorf("%w: disposal %d references missing lot %d", ErrInconsistent, d.ID, d.LotID)
		}
		if captured[d.SellTxID] == nil {
			captured[d.SellTxID] = make(sourceAllocation)
		}
		captured[d.SellTxID][src] = captured[d.SellTxID][src].Add(d.Quantity)
	}
	for sell, alloc := range overrides {
		captured[sell] = alloc
	}

	cleared := make(map[TxID]bool)
	for _, d := range disposals {
		if cleared[d.SellTxID] {
			continue
		}
		if err := r.DeleteDisposalsForSell(d.SellTxID); err != nil {
			return RebuildStats{}, err
		}
		cleared[d.SellTxID] = true
	}
	for _, lot := range lots {
		if err := r.DeleteLot(lot.ID); err != nil {
			return RebuildStats{}, err
		}
	}

	lotOf := make(map[TxID]LotID)
	for _, tx := range txs {
		var alloc Allocation
		if tx.Type == Sell && tx.Method == SpecificID {
			if alloc, err = translate(tx, captured[tx.ID], lotOf); err != nil {
				return RebuildStats{}, err
			}
		}
		id, err := l.apply(r, tx, alloc)
		if err != nil {
			if errors.Is(err, ErrInconsistent) || tx.Type != Sell {
				return RebuildStats{}, fmt.Errorf("replaying transaction %d: %w", tx.ID, err)
			}
			return RebuildStats{}, fmt.Errorf("%w: replaying transaction %d: %w", ErrInconsistent, tx.ID, err)
		}
		if tx.Type.IsAcquisition() {
			lotOf[tx.ID] = id
		}
	}

	lots, err = r.Lots(LotFilter{})
	if err != nil {
		return RebuildStats{}, err
	}
	disposals, err = r.Disposals(DisposalFilter{})
	if err != nil {
		return RebuildStats{}, err
	}
	return RebuildStats{Transactions: len(txs), Lots: len(lots), Disposals: len(disposals)}, nil
}

// translate converts an allocation captured by source transaction into the
// lot identifiers of the ongoing replay.
func translate(sell Transaction, alloc sourceAllocation, lotOf map[TxID]LotID) (Allocation, error) {
	if len(alloc) == 0 {
		return nil, fmt.Errorf("%w: %s sell %d has no recorded allocation", ErrInconsistent, SpecificID, sell.ID)
	}
	out := make(Allocation, len(alloc))
	for src, q := range alloc {
		id, ok := lotOf[src]
		if !ok {
			return nil, fmt.Errorf("%w: sell %d consumed the lot of transaction %d which no longer exists", ErrInconsistent, sell.ID, src)
		}
		out[id] = q
	}
	return out, nil
}

// Transaction returns a recorded transaction.
func (l *Ledger) Transaction(id TxID) (Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.Transaction(id)
}

// Transactions lists recorded transactions.
func (l *Ledger) Transactions(f TransactionFilter) ([]Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.Transactions(f)
}

// Lots lists lots.
func (l *Ledger) Lots(f LotFilter) ([]Lot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.Lots(f)
}

// Disposals lists disposals.
func (l *Ledger) Disposals(f DisposalFilter) ([]Disposal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.Disposals(f)
}
