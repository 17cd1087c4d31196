package taxlot

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Document is the full content of a repository.
type Document struct {
	Transactions []Transaction `json:"transactions"`
	Lots         []Lot         `json:"lots"`
	Disposals    []Disposal    `json:"disposals"`
}

// clone returns a copy that shares no slice with d. Values are immutable.
func (d Document) clone() Document {
	return Document{
		Transactions: slices.Clone(d.Transactions),
		Lots:         slices.Clone(d.Lots),
		Disposals:    slices.Clone(d.Disposals),
	}
}

// MemoryStore is a Store holding everything in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	state memoryState
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreFrom creates a store initialised with a copy of doc.
func NewMemoryStoreFrom(doc Document) *MemoryStore {
	return &MemoryStore{state: memoryState{doc: doc.clone()}}
}

// Document returns a copy of the store content, in listing order.
func (s *MemoryStore) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := s.state.doc.clone()
	sortTransactions(doc.Transactions)
	sortLots(doc.Lots)
	sortDisposals(doc.Disposals)
	return doc
}

// Atomic runs fn under the store lock and restores the previous content if
// fn fails or panics.
func (s *MemoryStore) Atomic(fn func(Repository) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state.doc.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state.doc = snapshot
			panic(p)
		}
	}()
	if err := fn(&s.state); err != nil {
		s.state.doc = snapshot
		return err
	}
	return nil
}

// Close does nothing.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) AddTransaction(t Transaction) (TxID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AddTransaction(t)
}

func (s *MemoryStore) Transaction(id TxID) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Transaction(id)
}

func (s *MemoryStore) Transactions(f TransactionFilter) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Transactions(f)
}

func (s *MemoryStore) UpdateTransaction(t Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateTransaction(t)
}

func (s *MemoryStore) DeleteTransaction(id TxID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteTransaction(id)
}

func (s *MemoryStore) AddLot(l Lot) (LotID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AddLot(l)
}

func (s *MemoryStore) UpdateLot(l Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateLot(l)
}

func (s *MemoryStore) Lots(f LotFilter) ([]Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Lots(f)
}

func (s *MemoryStore) DeleteLot(id LotID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteLot(id)
}

func (s *MemoryStore) AddDisposal(d Disposal) (DisposalID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AddDisposal(d)
}

func (s *MemoryStore) Disposals(f DisposalFilter) ([]Disposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Disposals(f)
}

func (s *MemoryStore) DeleteDisposalsForSell(id TxID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteDisposalsForSell(id)
}

// memoryState implements Repository without locking.
type memoryState struct {
	doc Document
}

func (m *memoryState) AddTransaction(t Transaction) (TxID, error) {
	var max TxID
	for _, x := range m.doc.Transactions {
		max = maxOf(max, x.ID)
	}
	t.ID = max + 1
	m.doc.Transactions = append(m.doc.Transactions, t)
	return t.ID, nil
}

func (m *memoryState) Transaction(id TxID) (Transaction, error) {
	for _, t := range m.doc.Transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
}

func (m *memoryState) Transactions(f TransactionFilter) ([]Transaction, error) {
	var out []Transaction
	for _, t := range m.doc.Transactions {
		if f.Symbol == "" || t.Symbol == f.Symbol {
			out = append(out, t)
		}
	}
	sortTransactions(out)
	if f.Order == Descending {
		slices.Reverse(out)
	}
	return out, nil
}

func (m *memoryState) UpdateTransaction(t Transaction) error {
	for i, x := range m.doc.Transactions {
		if x.ID == t.ID {
			m.doc.Transactions[i] = t
			return nil
		}
	}
	return fmt.Errorf("transaction %d: %w", t.ID, ErrNotFound)
}

func (m *memoryState) DeleteTransaction(id TxID) error {
	for i, x := range m.doc.Transactions {
		if x.ID == id {
			m.doc.Transactions = slices.Delete(m.doc.Transactions, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
}

func (m *memoryState) AddLot(l Lot) (LotID, error) {
	var max LotID
	for _, x := range m.doc.Lots {
		max = maxOf(max, x.ID)
	}
	l.ID = max + 1
	m.doc.Lots = append(m.doc.Lots, l)
	return l.ID, nil
}

func (m *memoryState) UpdateLot(l Lot) error {
	for i, x := range m.doc.Lots {
		if x.ID == l.ID {
			m.doc.Lots[i] = l
			return nil
		}
	}
	return fmt.Errorf("lot %d: %w", l.ID, ErrNotFound)
}

func (m *memoryState) Lots(f LotFilter) ([]Lot, error) {
	var out []Lot
	for _, l := range m.doc.Lots {
		if f.Symbol != "" && l.Symbol != f.Symbol {
			continue
		}
		if f.OnlyOpen && !l.IsOpen() {
			continue
		}
		out = append(out, l)
	}
	sortLots(out)
	return out, nil
}

func (m *memoryState) DeleteLot(id LotID) error {
	for _, d := range m.doc.Disposals {
		if d.LotID == id {
			return fmt.Errorf("%w: lot %d is referenced by disposal %d", ErrInvalid, id, d.ID)
		}
	}
	for i, x := range m.doc.Lots {
		if x.ID == id {
			m.doc.Lots = slices.Delete(m.doc.Lots, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("lot %d: %w", id, ErrNotFound)
}

func (m *memoryState) AddDisposal(d Disposal) (DisposalID, error) {
	found := false
	for _, l := range m.doc.Lots {
		if l.ID == d.LotID {
			found = true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("disposal lot %d: %w", d.LotID, ErrNotFound)
	}
	var max DisposalID
	for _, x := range m.doc.Disposals {
		max = maxOf(max, x.ID)
	}
	d.ID = max + 1
	m.doc.Disposals = append(m.doc.Disposals, d)
	return d.ID, nil
}

func (m *memoryState) Disposals(f DisposalFilter) ([]Disposal, error) {
	var out []Disposal
	for _, d := range m.doc.Disposals {
		if f.SellTxID != 0 && d.SellTxID != f.SellTxID {
			continue
		}
		if f.LotID != 0 && d.LotID != f.LotID {
			continue
		}
		out = append(out, d)
	}
	sortDisposals(out)
	return out, nil
}

func (m *memoryState) DeleteDisposalsForSell(id TxID) error {
	m.doc.Disposals = slices.DeleteFunc(m.doc.Disposals, func(d Disposal) bool { return d.SellTxID == id })
	return nil
}

func maxOf[T ~int64](a, b T) T {
	if b > a {
		return b
	}
	return a
}

func sortTransactions(ts []Transaction) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].Time.Equal(ts[j].Time) {
			return ts[i].Time.Before(ts[j].Time)
		}
		return ts[i].ID < ts[j].ID
	})
}

func sortLots(ls []Lot) {
	sort.SliceStable(ls, func(i, j int) bool { return fifoLess(ls[i], ls[j]) })
}

func sortDisposals(ds []Disposal) {
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].ID < ds[j].ID })
}
