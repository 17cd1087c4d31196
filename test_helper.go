package taxlot

import (
	"errors"
	"testing"
	"time"
)

// RunRepositoryConformance checks that the stores returned by newStore
// behave as a Repository and a Store should. Every subtest gets a fresh
// empty store.
func RunRepositoryConformance(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	on := func(day int) time.Time { return time.Date(2024, time.March, day, 10, 0, 0, 0, time.UTC) }
	trade := func(typ TxType, day int, symbol string, qty int) Transaction {
		return NewTrade(typ, on(day), symbol, Q(qty), M(10), M(1))
	}
	closeStore := func(t *testing.T, s Store) func() {
		return func() {
			if err := s.Close(); err != nil {
				t.Errorf("Close() = %v", err)
			}
		}
	}

	t.Run("transactions", func(t *testing.T) {
		s := newStore(t)
		defer closeStore(t, s)()

		ids := make([]TxID, 0, 3)
		for _, tx := range []Transaction{
			trade(Buy, 3, "CBA", 10),
			trade(Buy, 1, "BHP", 5),
			trade(Sell, 3, "CBA", 4),
		} {
			id, err := s.AddTransaction(tx)
			if err != nil {
				t.Fatalf("AddTransaction() = %v", err)
			}
			ids = append(ids, id)
		}
		if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
			t.Errorf("AddTransaction() ids = %v, want [1 2 3]", ids)
		}

		all, err := s.Transactions(TransactionFilter{})
		if err != nil {
			t.Fatalf("Transactions() = %v", err)
		}
		if got := txIDs(all); !equalIDs(got, []TxID{2, 1, 3}) {
			t.Errorf("Transactions() ids = %v, want [2 1 3]", got)
		}
		desc, err := s.Transactions(TransactionFilter{Order: Descending})
		if err != nil {
			t.Fatalf("Transactions(desc) = %v", err)
		}
		if got := txIDs(desc); !equalIDs(got, []TxID{3, 1, 2}) {
			t.Errorf("Transactions(desc) ids = %v, want [3 1 2]", got)
		}
		cba, err := s.Transactions(TransactionFilter{Symbol: "CBA"})
		if err != nil {
			t.Fatalf("Transactions(CBA) = %v", err)
		}
		if got := txIDs(cba); !equalIDs(got, []TxID{1, 3}) {
			t.Errorf("Transactions(CBA) ids = %v, want [1 3]", got)
		}

		got, err := s.Transaction(3)
		if err != nil {
			t.Fatalf("Transaction(3) = %v", err)
		}
		want := trade(Sell, 3, "CBA", 4)
		if !got.Equal(want) || got.ID != 3 {
			t.Errorf("Transaction(3) = %v, want %v", got, want)
		}

		got.Notes = "partial exit"
		if err := s.UpdateTransaction(got); err != nil {
			t.Fatalf("UpdateTransaction() = %v", err)
		}
		if updated, _ := s.Transaction(3); updated.Notes != "partial exit" {
			t.Errorf("UpdateTransaction() notes = %q, want %q", updated.Notes, "partial exit")
		}

		if err := s.DeleteTransaction(3); err != nil {
			t.Fatalf("DeleteTransaction() = %v", err)
		}
		if _, err := s.Transaction(3); !errors.Is(err, ErrNotFound) {
			t.Errorf("Transaction(deleted) = %v, want ErrNotFound", err)
		}
		if err := s.DeleteTransaction(3); !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteTransaction(deleted) = %v, want ErrNotFound", err)
		}
		if err := s.UpdateTransaction(Transaction{ID: 42}); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateTransaction(missing) = %v, want ErrNotFound", err)
		}
		// identifiers restart from the largest in use
		id, err := s.AddTransaction(trade(Buy, 5, "WES", 1))
		if err != nil {
			t.Fatalf("AddTransaction() = %v", err)
		}
		if id != 3 {
			t.Errorf("AddTransaction() after delete = %d, want 3", id)
		}
	})

	t.Run("lots and disposals", func(t *testing.T) {
		s := newStore(t)
		defer closeStore(t, s)()

		late := Lot{Symbol: "CBA", AcquiredAt: on(5), Quantity: Q(10), CostBasis: M(101), Threshold: on(5).AddDate(1, 0, 0), SourceTxID: 2}
		early := Lot{Symbol: "CBA", AcquiredAt: on(1), Quantity: Q(5), CostBasis: MustMoney("50.5"), Threshold: on(1).AddDate(1, 0, 0), SourceTxID: 1}
		other := Lot{Symbol: "BHP", AcquiredAt: on(2), Quantity: Q(0), CostBasis: M(0), Threshold: on(2).AddDate(1, 0, 0), SourceTxID: 3}
		for i, l := range []Lot{late, early, other} {
			id, err := s.AddLot(l)
			if err != nil {
				t.Fatalf("AddLot() = %v", err)
			}
			if want := LotID(i + 1); id != want {
				t.Errorf("AddLot() = %d, want %d", id, want)
			}
		}

		lots, err := s.Lots(LotFilter{})
		if err != nil {
			t.Fatalf("Lots() = %v", err)
		}
		if got := lotIDs(lots); !equalIDs(got, []LotID{2, 3, 1}) {
			t.Errorf("Lots() ids = %v, want [2 3 1]", got)
		}
		if !lots[0].CostBasis.Equal(MustMoney("50.5")) || !lots[0].Threshold.Equal(early.Threshold) || lots[0].SourceTxID != 1 {
			t.Errorf("Lots()[0] = %+v, want %+v", lots[0], early)
		}
		openCBA, err := s.Lots(LotFilter{Symbol: "CBA", OnlyOpen: true})
		if err != nil {
			t.Fatalf("Lots(CBA, open) = %v", err)
		}
		if got := lotIDs(openCBA); !equalIDs(got, []LotID{2, 1}) {
			t.Errorf("Lots(CBA, open) ids = %v, want [2 1]", got)
		}
		allOpen, err := s.Lots(LotFilter{OnlyOpen: true})
		if err != nil {
			t.Fatalf("Lots(open) = %v", err)
		}
		if len(allOpen) != 2 {
			t.Errorf("Lots(open) = %d lots, want 2", len(allOpen))
		}

		consumed := lots[0]
		consumed.Quantity, consumed.CostBasis = Q(0), M(0)
		if err := s.UpdateLot(consumed); err != nil {
			t.Fatalf("UpdateLot() = %v", err)
		}
		if err := s.UpdateLot(Lot{ID: 42}); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateLot(missing) = %v, want ErrNotFound", err)
		}

		for _, d := range []Disposal{
			{SellTxID: 7, LotID: 2, Quantity: Q(5), Proceeds: M(60), CostBasis: MustMoney("50.5"), Gain: MustMoney("9.5")},
			{SellTxID: 8, LotID: 1, Quantity: Q(1), Proceeds: M(9), CostBasis: MustMoney("10.1"), Gain: MustMoney("-1.1"), Discount: true},
			{SellTxID: 7, LotID: 1, Quantity: Q(2), Proceeds: M(24), CostBasis: MustMoney("20.2"), Gain: MustMoney("3.8")},
		} {
			if _, err := s.AddDisposal(d); err != nil {
				t.Fatalf("AddDisposal() = %v", err)
			}
		}
		if _, err := s.AddDisposal(Disposal{SellTxID: 7, LotID: 42, Quantity: Q(1)}); err == nil {
			t.Errorf("AddDisposal(missing lot) = nil, want error")
		}

		bySell, err := s.Disposals(DisposalFilter{SellTxID: 7})
		if err != nil {
			t.Fatalf("Disposals(sell) = %v", err)
		}
		if len(bySell) != 2 || bySell[0].ID != 1 || bySell[1].ID != 3 {
			t.Errorf("Disposals(sell 7) = %+v, want disposals 1 and 3", bySell)
		}
		byLot, err := s.Disposals(DisposalFilter{LotID: 1})
		if err != nil {
			t.Fatalf("Disposals(lot) = %v", err)
		}
		if len(byLot) != 2 || !byLot[0].Gain.Equal(MustMoney("-1.1")) || !byLot[0].Discount {
			t.Errorf("Disposals(lot 1) = %+v, want disposals 2 and 3", byLot)
		}

		if err := s.DeleteLot(1); err == nil {
			t.Errorf("DeleteLot(referenced) = nil, want error")
		}
		if err := s.DeleteDisposalsForSell(7); err != nil {
			t.Fatalf("DeleteDisposalsForSell() = %v", err)
		}
		if err := s.DeleteDisposalsForSell(8); err != nil {
			t.Fatalf("DeleteDisposalsForSell() = %v", err)
		}
		left, err := s.Disposals(DisposalFilter{})
		if err != nil {
			t.Fatalf("Disposals() = %v", err)
		}
		if len(left) != 0 {
			t.Errorf("Disposals() after delete = %d, want 0", len(left))
		}
		if err := s.DeleteLot(1); err != nil {
			t.Errorf("DeleteLot() = %v", err)
		}
		if err := s.DeleteLot(1); !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteLot(deleted) = %v, want ErrNotFound", err)
		}
	})

	t.Run("atomic", func(t *testing.T) {
		s := newStore(t)
		defer closeStore(t, s)()

		if _, err := s.AddTransaction(trade(Buy, 1, "CBA", 10)); err != nil {
			t.Fatalf("AddTransaction() = %v", err)
		}
		boom := errors.New("boom")
		err := s.Atomic(func(r Repository) error {
			if _, err := r.AddTransaction(trade(Buy, 2, "CBA", 10)); err != nil {
				return err
			}
			if _, err := r.AddLot(Lot{Symbol: "CBA", AcquiredAt: on(2), Quantity: Q(10), CostBasis: M(100), Threshold: on(2), SourceTxID: 2}); err != nil {
				return err
			}
			// changes are visible within the unit of work
			txs, err := r.Transactions(TransactionFilter{})
			if err != nil {
				return err
			}
			if len(txs) != 2 {
				t.Errorf("Transactions() within Atomic = %d, want 2", len(txs))
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("Atomic() = %v, want %v", err, boom)
		}
		txs, err := s.Transactions(TransactionFilter{})
		if err != nil {
			t.Fatalf("Transactions() = %v", err)
		}
		lots, err := s.Lots(LotFilter{})
		if err != nil {
			t.Fatalf("Lots() = %v", err)
		}
		if len(txs) != 1 || len(lots) != 0 {
			t.Errorf("after rollback got %d transactions and %d lots, want 1 and 0", len(txs), len(lots))
		}

		err = s.Atomic(func(r Repository) error {
			_, err := r.AddTransaction(trade(Buy, 2, "CBA", 10))
			return err
		})
		if err != nil {
			t.Fatalf("Atomic() = %v", err)
		}
		if txs, _ := s.Transactions(TransactionFilter{}); len(txs) != 2 {
			t.Errorf("after commit got %d transactions, want 2", len(txs))
		}
	})
}

func txIDs(txs []Transaction) []TxID {
	ids := make([]TxID, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	return ids
}

func lotIDs(lots []Lot) []LotID {
	ids := make([]LotID, len(lots))
	for i, l := range lots {
		ids[i] = l.ID
	}
	return ids
}

func equalIDs[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
