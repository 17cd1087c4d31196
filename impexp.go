package taxlot

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"time"
)

// this file contains functions to handle the import/export format of the
// transaction log. It should remain human readable, single file and easy to
// merge into another ledger.

// ImportStats summarises an import.
type ImportStats struct {
	Added   int
	Skipped int
	Rebuilt bool
}

// Import records transactions read from the exchange format, skipping the
// ones whose Fingerprint is already in the ledger. The whole import is a
// single unit of work.
//
// Records are applied in chronological order. If a record predates the
// latest recorded transaction the ledger is rebuilt once all records are in.
func (l *Ledger) Import(records []Record) (ImportStats, error) {
	records = slices.Clone(records)
	sort.SliceStable(records, func(i, j int) bool { return records[i].Time.Before(records[j].Time) })

	l.mu.Lock()
	defer l.mu.Unlock()
	var stats ImportStats
	err := l.store.Atomic(func(r Repository) error {
		existing, err := r.Transactions(TransactionFilter{})
		if err != nil {
			return err
		}
		seen := make(map[string]TxID, len(existing))
		var latest time.Time
		for _, tx := range existing {
			seen[tx.Fingerprint().String()] = tx.ID
			if tx.Time.After(latest) {
				latest = tx.Time
			}
		}

		overrides := make(map[TxID]sourceAllocation)
		for i, rec := range records {
			var previous MatchMethod
			if len(rec.Lots) > 0 {
				previous = SpecificID
			}
			tx, err := l.prepare(rec.Transaction, TradeOptions{}, previous)
			if err != nil {
				return fmt.Errorf("record %d: %w", i+1, err)
			}
			fp := tx.Fingerprint().String()
			if _, ok := seen[fp]; ok {
				stats.Skipped++
				continue
			}
			var alloc sourceAllocation
			if tx.Method == SpecificID {
				alloc = make(sourceAllocation, len(rec.Lots))
				for _, key := range sortedFingerprints(rec.Lots) {
					src, ok := seen[key]
					if !ok {
						return fmt.Errorf("record %d: %w: no acquisition with fingerprint %s", i+1, ErrUnknownLot, key)
					}
					alloc[src] = alloc[src].Add(rec.Lots[key])
				}
			}

			tx.ID = 0
			id, err := r.AddTransaction(tx)
			if err != nil {
				return fmt.Errorf("could not save transaction: %w", err)
			}
			tx.ID = id
			seen[fp] = id
			stats.Added++

			if tx.Time.Before(latest) {
				stats.Rebuilt = true
			}
			if tx.Time.After(latest) {
				latest = tx.Time
			}
			if stats.Rebuilt {
				if alloc != nil {
					overrides[id] = alloc
				}
				continue
			}
			var lots Allocation
			if alloc != nil {
				if lots, err = l.bySourceOpen(r, tx.Symbol, alloc); err != nil {
					return fmt.Errorf("record %d: %w", i+1, err)
				}
			}
			if _, err := l.apply(r, tx, lots); err != nil {
				return fmt.Errorf("record %d: %w", i+1, err)
			}
		}
		if stats.Rebuilt {
			_, err := l.rebuild(r, overrides)
			return err
		}
		return nil
	})
	if err != nil {
		l.log.Error().Err(err).Msg("import aborted")
		return ImportStats{}, err
	}
	l.log.Info().Int("added", stats.Added).Int("skipped", stats.Skipped).Bool("rebuilt", stats.Rebuilt).Msg("transactions imported")
	return stats, nil
}

// bySourceOpen converts a sourceAllocation into current lot identifiers.
func (l *Ledger) bySourceOpen(r Repository, symbol string, alloc sourceAllocation) (Allocation, error) {
	lots, err := r.Lots(LotFilter{Symbol: symbol})
	if err != nil {
		return nil, err
	}
	lotOf := make(map[TxID]LotID, len(lots))
	for _, lot := range lots {
		lotOf[lot.SourceTxID] = lot.ID
	}
	out := make(Allocation, len(alloc))
	for src, q := range alloc {
		id, ok := lotOf[src]
		if !ok {
			return nil, fmt.Errorf("%w: no %s lot from transaction %d", ErrUnknownLot, symbol, src)
		}
		out[id] = q
	}
	return out, nil
}

// Export returns the transaction log in the exchange format, in chronological
// order.
func (l *Ledger) Export() ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	txs, err := l.store.Transactions(TransactionFilter{})
	if err != nil {
		return nil, err
	}
	lots, err := l.store.Lots(LotFilter{})
	if err != nil {
		return nil, err
	}
	fingerprints := make(map[TxID]string, len(txs))
	for _, tx := range txs {
		fingerprints[tx.ID] = tx.Fingerprint().String()
	}
	sourceOf := make(map[LotID]TxID, len(lots))
	for _, lot := range lots {
		sourceOf[lot.ID] = lot.SourceTxID
	}

	records := make([]Record, 0, len(txs))
	for _, tx := range txs {
		rec := Record{Transaction: tx}
		rec.ID = 0
		if tx.Type == Sell && tx.Method == SpecificID {
			disposals, err := l.store.Disposals(DisposalFilter{SellTxID: tx.ID})
			if err != nil {
				return nil, err
			}
			rec.Lots = make(map[string]Quantity, len(disposals))
			for _, d := range disposals {
				key := fingerprints[sourceOf[d.LotID]]
				rec.Lots[key] = rec.Lots[key].Add(d.Quantity)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// ExportTo writes the transaction log to w in JSONL format.
func (l *Ledger) ExportTo(w io.Writer) error {
	records, err := l.Export()
	if err != nil {
		return err
	}
	return EncodeRecords(w, records)
}
