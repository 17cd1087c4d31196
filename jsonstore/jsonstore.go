// Package jsonstore persists a ledger as a single JSON document.
//
// The whole document is held in memory and rewritten, through a temporary
// file and a rename, each time a unit of work succeeds.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/taxlot"
)

// Version is the document format version.
const Version = 1

// file is the on disk layout.
type file struct {
	Version int `json:"version"`
	taxlot.Document
}

// Store is a taxlot.Store backed by a JSON file.
type Store struct {
	path string
	mem  *taxlot.MemoryStore
}

var _ taxlot.Store = (*Store)(nil)

// Open loads the document at path. A missing file is an empty ledger, the
// file is created by the first change.
func Open(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Store{path: path, mem: taxlot.NewMemoryStore()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read ledger: %w", err)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: cannot decode ledger %s: %w", taxlot.ErrInvalid, path, err)
	}
	if f.Version > Version {
		return nil, fmt.Errorf("%w: ledger %s has version %d, this version only reads up to %d", taxlot.ErrUnsupported, path, f.Version, Version)
	}
	return &Store{path: path, mem: taxlot.NewMemoryStoreFrom(f.Document)}, nil
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Atomic implements taxlot.Store. The document is saved before the unit of
// work commits, a failed save rolls it back.
func (s *Store) Atomic(fn func(taxlot.Repository) error) error {
	return s.mem.Atomic(func(r taxlot.Repository) error {
		if err := fn(r); err != nil {
			return err
		}
		return s.save(r)
	})
}

// Close implements taxlot.Store.
func (s *Store) Close() error { return nil }

func (s *Store) save(r taxlot.Repository) error {
	txs, err := r.Transactions(taxlot.TransactionFilter{})
	if err != nil {
		return err
	}
	lots, err := r.Lots(taxlot.LotFilter{})
	if err != nil {
		return err
	}
	disposals, err := r.Disposals(taxlot.DisposalFilter{})
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(file{
		Version:  Version,
		Document: taxlot.Document{Transactions: txs, Lots: lots, Disposals: disposals},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("cannot save ledger: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot save ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot save ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot save ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("cannot save ledger: %w", err)
	}
	return nil
}

// Reads are served from memory.

func (s *Store) Transaction(id taxlot.TxID) (taxlot.Transaction, error) { return s.mem.Transaction(id) }
func (s *Store) Transactions(f taxlot.TransactionFilter) ([]taxlot.Transaction, error) {
	return s.mem.Transactions(f)
}
func (s *Store) Lots(f taxlot.LotFilter) ([]taxlot.Lot, error) { return s.mem.Lots(f) }
func (s *Store) Disposals(f taxlot.DisposalFilter) ([]taxlot.Disposal, error) {
	return s.mem.Disposals(f)
}

// Writes are single change units of work.

func (s *Store) AddTransaction(t taxlot.Transaction) (id taxlot.TxID, err error) {
	err = s.Atomic(func(r taxlot.Repository) (err error) {
		id, err = r.AddTransaction(t)
		return err
	})
	return id, err
}

func (s *Store) UpdateTransaction(t taxlot.Transaction) error {
	return s.Atomic(func(r taxlot.Repository) error { return r.UpdateTransaction(t) })
}

func (s *Store) DeleteTransaction(id taxlot.TxID) error {
	return s.Atomic(func(r taxlot.Repository) error { return r.DeleteTransaction(id) })
}

func (s *Store) AddLot(l taxlot.Lot) (id taxlot.LotID, err error) {
	err = s.Atomic(func(r taxlot.Repository) (err error) {
		id, err = r.AddLot(l)
		return err
	})
	return id, err
}

func (s *Store) UpdateLot(l taxlot.Lot) error {
	return s.Atomic(func(r taxlot.Repository) error { return r.UpdateLot(l) })
}

func (s *Store) DeleteLot(id taxlot.LotID) error {
	return s.Atomic(func(r taxlot.Repository) error { return r.DeleteLot(id) })
}

func (s *Store) AddDisposal(d taxlot.Disposal) (id taxlot.DisposalID, err error) {
	err = s.Atomic(func(r taxlot.Repository) (err error) {
		id, err = r.AddDisposal(d)
		return err
	})
	return id, err
}

func (s *Store) DeleteDisposalsForSell(id taxlot.TxID) error {
	return s.Atomic(func(r taxlot.Repository) error { return r.DeleteDisposalsForSell(id) })
}
