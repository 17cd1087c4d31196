package taxlot

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestLedger_Scenario(t *testing.T) {
	l := newTestLedger(t, Options{Fees: AllocateBuy})

	buy := record(t, l, NewTrade(Buy, at("2024-01-10 10:00"), "cba", Q(10), M(10), M(10)), TradeOptions{})
	if buy.ID != 1 || buy.Symbol != "CBA" {
		t.Errorf("RecordTrade() = %+v, want id 1 and symbol CBA", buy)
	}
	lots, err := l.Lots(LotFilter{})
	if err != nil {
		t.Fatalf("Lots() = %v", err)
	}
	if len(lots) != 1 || !lots[0].CostBasis.Equal(M(110)) || lots[0].SourceTxID != buy.ID {
		t.Fatalf("Lots() = %+v, want one lot of cost 110", lots)
	}
	if want := at("2025-01-09 10:00"); !lots[0].Threshold.Equal(want) {
		t.Errorf("lot threshold = %v, want %v", lots[0].Threshold, want)
	}

	sell := record(t, l, NewTrade(Sell, at("2024-01-12 10:00"), "CBA", Q(10), M(12), M(0)), TradeOptions{})
	if sell.Method != FIFO {
		t.Errorf("RecordTrade() method = %v, want %v", sell.Method, FIFO)
	}
	disposals, err := l.Disposals(DisposalFilter{SellTxID: sell.ID})
	if err != nil {
		t.Fatalf("Disposals() = %v", err)
	}
	if len(disposals) != 1 {
		t.Fatalf("Disposals() = %d, want 1", len(disposals))
	}
	d := disposals[0]
	if !d.Proceeds.Equal(M(120)) || !d.CostBasis.Equal(M(110)) || !d.Gain.Equal(M(10)) || d.Discount {
		t.Errorf("disposal = %+v, want proceeds 120, cost 110, gain 10, no discount", d)
	}
	lots, _ = l.Lots(LotFilter{})
	if !lots[0].Quantity.IsZero() || !lots[0].CostBasis.IsZero() {
		t.Errorf("lot after sell = %s units and %s cost, want 0 and 0", lots[0].Quantity, lots[0].CostBasis)
	}
}

func TestLedger_FeeAllocation(t *testing.T) {
	testCases := []struct {
		strategy FeeAllocation
		cost     Money
		proceeds Money
	}{
		{AllocateBuy, M(110), M(120)},
		{AllocateSell, M(100), M(110)},
		{AllocateSplit, M(105), M(115)},
	}
	for _, tc := range testCases {
		t.Run(tc.strategy.String(), func(t *testing.T) {
			l := newTestLedger(t, Options{Fees: tc.strategy})
			record(t, l, NewTrade(Buy, at("2024-01-10 10:00"), "CBA", Q(10), M(10), M(10)), TradeOptions{})
			record(t, l, NewTrade(Sell, at("2024-01-12 10:00"), "CBA", Q(10), M(12), M(10)), TradeOptions{})
			disposals, err := l.Disposals(DisposalFilter{})
			if err != nil {
				t.Fatalf("Disposals() = %v", err)
			}
			if len(disposals) != 1 {
				t.Fatalf("Disposals() = %d, want 1", len(disposals))
			}
			if d := disposals[0]; !d.CostBasis.Equal(tc.cost) || !d.Proceeds.Equal(tc.proceeds) {
				t.Errorf("disposal cost %s proceeds %s, want %s and %s", d.CostBasis, d.Proceeds, tc.cost, tc.proceeds)
			}
		})
	}
}

func TestLedger_DRP(t *testing.T) {
	l := newTestLedger(t, Options{})
	record(t, l, NewTrade(DRP, at("2024-03-01 10:00"), "CBA", MustQuantity("1.5"), M(100), M(0)), TradeOptions{})
	lots, err := l.Lots(LotFilter{OnlyOpen: true})
	if err != nil {
		t.Fatalf("Lots() = %v", err)
	}
	if len(lots) != 1 || !lots[0].CostBasis.Equal(M(150)) {
		t.Errorf("Lots() = %+v, want one lot of cost 150", lots)
	}
}

func TestLedger_RecordTradeErrors(t *testing.T) {
	l := newTestLedger(t, Options{})
	record(t, l, NewTrade(Buy, at("2024-01-10 10:00"), "CBA", Q(10), M(10), M(0)), TradeOptions{})

	testCases := []struct {
		name string
		tx   Transaction
		opts TradeOptions
		want error
	}{
		{"zero quantity", NewTrade(Buy, at("2024-01-11 10:00"), "CBA", Q(0), M(10), M(0)), TradeOptions{}, ErrInvalid},
		{"negative price", NewTrade(Buy, at("2024-01-11 10:00"), "CBA", Q(1), M(-1), M(0)), TradeOptions{}, ErrInvalid},
		{"negative fees", NewTrade(Buy, at("2024-01-11 10:00"), "CBA", Q(1), M(1), M(-1)), TradeOptions{}, ErrInvalid},
		{"missing symbol", NewTrade(Buy, at("2024-01-11 10:00"), " ", Q(1), M(1), M(0)), TradeOptions{}, ErrInvalid},
		{"unsupported type", NewTrade("SPLIT", at("2024-01-11 10:00"), "CBA", Q(1), M(1), M(0)), TradeOptions{}, ErrUnsupported},
		{"allocation on a buy", NewTrade(Buy, at("2024-01-11 10:00"), "CBA", Q(1), M(1), M(0)), TradeOptions{Lots: Allocation{1: Q(1)}}, ErrInvalid},
		{"allocation with FIFO", NewTrade(Sell, at("2024-01-11 10:00"), "CBA", Q(1), M(1), M(0)), TradeOptions{Method: FIFO, Lots: Allocation{1: Q(1)}}, ErrInvalid},
		{"specific without allocation", NewTrade(Sell, at("2024-01-11 10:00"), "CBA", Q(1), M(1), M(0)), TradeOptions{Method: SpecificID}, ErrInvalid},
		{"insufficient", NewTrade(Sell, at("2024-01-11 10:00"), "CBA", Q(11), M(1), M(0)), TradeOptions{}, ErrInsufficientQuantity},
		{"unknown symbol", NewTrade(Sell, at("2024-01-11 10:00"), "BHP", Q(1), M(1), M(0)), TradeOptions{}, ErrInsufficientQuantity},
		{"unknown lot", NewTrade(Sell, at("2024-01-11 10:00"), "CBA", Q(1), M(1), M(0)), TradeOptions{Lots: Allocation{9: Q(1)}}, ErrUnknownLot},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := l.RecordTrade(tc.tx, tc.opts); !errors.Is(err, tc.want) {
				t.Errorf("RecordTrade() error = %v, want %v", err, tc.want)
			}
		})
	}

	// rejected trades leave no transaction behind
	txs, err := l.Transactions(TransactionFilter{})
	if err != nil {
		t.Fatalf("Transactions() = %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("Transactions() = %d, want 1", len(txs))
	}
	lots, _ := l.Lots(LotFilter{})
	if len(lots) != 1 || !lots[0].Quantity.Equal(Q(10)) {
		t.Errorf("Lots() = %+v, want the untouched lot", lots)
	}
}

func TestLedger_MethodResolution(t *testing.T) {
	l := newTestLedger(t, Options{Method: HIFO})
	record(t, l, NewTrade(Buy, at("2024-01-10 10:00"), "CBA", Q(10), M(10), M(0)), TradeOptions{}) // lot 1, 10 per unit
	record(t, l, NewTrade(Buy, at("2024-01-11 10:00"), "CBA", Q(10), M(20), M(0)), TradeOptions{}) // lot 2, 20 per unit

	hifo := record(t, l, NewTrade(Sell, at("2024-01-12 10:00"), "CBA", Q(1), M(30), M(0)), TradeOptions{})
	fifo := record(t, l, NewTrade(Sell, at("2024-01-13 10:00"), "CBA", Q(1), M(30), M(0)), TradeOptions{Method: FIFO})
	specific := record(t, l, NewTrade(Sell, at("2024-01-14 10:00"), "CBA", Q(1), M(30), M(0)), TradeOptions{Lots: Allocation{2: Q(1)}})

	testCases := []struct {
		tx     Transaction
		method MatchMethod
		lot    LotID
	}{
		{hifo, HIFO, 2},
		{fifo, FIFO, 1},
		{specific, SpecificID, 2},
	}
	for _, tc := range testCases {
		if tc.tx.Method != tc.method {
			t.Errorf("sell %d method = %v, want %v", tc.tx.ID, tc.tx.Method, tc.method)
		}
		disposals, err := l.Disposals(DisposalFilter{SellTxID: tc.tx.ID})
		if err != nil {
			t.Fatalf("Disposals() = %v", err)
		}
		if len(disposals) != 1 || disposals[0].LotID != tc.lot {
			t.Errorf("sell %d disposals = %+v, want lot %d", tc.tx.ID, disposals, tc.lot)
		}
	}
}

// history records a mixed sequence of trades and returns the ledger and its store.
func history(t *testing.T) (*Ledger, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	l, err := NewLedger(store, Options{Location: brisbane, Fees: AllocateSplit})
	if err != nil {
		t.Fatalf("NewLedger() = %v", err)
	}
	record(t, l, NewTrade(Buy, at("2022-01-03 10:00"), "CBA", Q(100), M(95), MustMoney("19.95")), TradeOptions{})
	record(t, l, NewTrade(Buy, at("2022-03-03 10:00"), "CBA", Q(50), M(105), MustMoney("19.95")), TradeOptions{})
	record(t, l, NewTrade(Buy, at("2022-04-01 10:00"), "BHP", Q(200), MustMoney("48.12"), M(10)), TradeOptions{})
	record(t, l, NewTrade(DRP, at("2022-06-30 10:00"), "CBA", MustQuantity("3.25"), MustMoney("101.7"), M(0)), TradeOptions{})
	record(t, l, NewTrade(Sell, at("2022-09-01 10:00"), "CBA", Q(30), M(110), MustMoney("19.95")), TradeOptions{Lots: Allocation{2: Q(30)}})
	record(t, l, NewTrade(Sell, at("2023-01-05 10:00"), "CBA", Q(80), M(112), MustMoney("19.95")), TradeOptions{Method: HIFO})
	record(t, l, NewTrade(Sell, at("2023-05-01 10:00"), "BHP", Q(150), M(45), M(10)), TradeOptions{})
	record(t, l, NewTrade(Buy, at("2023-06-01 10:00"), "BHP", Q(10), M(44), M(10)), TradeOptions{})
	return l, store
}

func TestLedger_Conservation(t *testing.T) {
	l, _ := history(t)
	txs, _ := l.Transactions(TransactionFilter{})
	lots, _ := l.Lots(LotFilter{})
	disposals, _ := l.Disposals(DisposalFilter{})

	bought := make(map[string]Quantity)
	sold := make(map[TxID]Quantity)
	for _, tx := range txs {
		if tx.Type.IsAcquisition() {
			bought[tx.Symbol] = bought[tx.Symbol].Add(tx.Quantity)
		}
	}
	held := make(map[string]Quantity)
	symbolOf := make(map[LotID]string)
	for _, lot := range lots {
		held[lot.Symbol] = held[lot.Symbol].Add(lot.Quantity)
		symbolOf[lot.ID] = lot.Symbol
	}
	for _, d := range disposals {
		held[symbolOf[d.LotID]] = held[symbolOf[d.LotID]].Add(d.Quantity)
		sold[d.SellTxID] = sold[d.SellTxID].Add(d.Quantity)
	}
	for symbol, want := range bought {
		if got := held[symbol]; !got.Equal(want) {
			t.Errorf("%s: open plus disposed = %s, want %s bought", symbol, got, want)
		}
	}
	for _, tx := range txs {
		if tx.Type == Sell && !sold[tx.ID].Equal(tx.Quantity) {
			t.Errorf("sell %d: disposed %s, want %s", tx.ID, sold[tx.ID], tx.Quantity)
		}
	}
	for _, lot := range lots {
		if lot.Quantity.IsNegative() || lot.CostBasis.IsNegative() {
			t.Errorf("lot %d is negative: %s units %s cost", lot.ID, lot.Quantity, lot.CostBasis)
		}
		if lot.Quantity.IsZero() != lot.CostBasis.IsZero() {
			t.Errorf("lot %d: %s units with %s cost", lot.ID, lot.Quantity, lot.CostBasis)
		}
	}
}

func snapshot(t *testing.T, s *MemoryStore) []byte {
	t.Helper()
	data, err := json.Marshal(s.Document())
	if err != nil {
		t.Fatalf("json.Marshal() = %v", err)
	}
	return data
}

func TestLedger_RebuildIdempotence(t *testing.T) {
	l, store := history(t)
	recorded := snapshot(t, store)

	stats, err := l.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild() = %v", err)
	}
	if stats.Transactions != 8 || stats.Lots != 5 {
		t.Errorf("Rebuild() = %+v, want 8 transactions and 5 lots", stats)
	}
	first := snapshot(t, store)
	if _, err := l.Rebuild(); err != nil {
		t.Fatalf("Rebuild() = %v", err)
	}
	second := snapshot(t, store)

	if !bytes.Equal(first, second) {
		t.Errorf("Rebuild() is not idempotent:\n%s\n%s", first, second)
	}
	// trades were recorded in chronological order, replay reproduces them
	if !bytes.Equal(recorded, first) {
		t.Errorf("Rebuild() changed the ledger:\n%s\n%s", recorded, first)
	}
}

func TestLedger_RebuildEmpty(t *testing.T) {
	store := NewMemoryStoreFrom(Document{
		Lots: []Lot{lot(1, "2024-01-01 10:00", 10, 100)},
	})
	l, err := NewLedger(store, Options{Location: brisbane})
	if err != nil {
		t.Fatalf("NewLedger() = %v", err)
	}
	stats, err := l.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild() = %v", err)
	}
	if stats != (RebuildStats{}) {
		t.Errorf("Rebuild() = %+v, want nothing", stats)
	}
	if lots, _ := l.Lots(LotFilter{}); len(lots) != 0 {
		t.Errorf("Lots() = %d, want 0", len(lots))
	}
}

func TestLedger_RebuildKeepsSpecificAllocation(t *testing.T) {
	l := newTestLedger(t, Options{})
	record(t, l, NewTrade(Buy, at("2024-01-10 10:00"), "CBA", Q(10), M(10), M(0)), TradeOptions{})
	second := record(t, l, NewTrade(Buy, at("2024-01-11 10:00"), "CBA", Q(10), M(20), M(0)), TradeOptions{})
	sell := record(t, l, NewTrade(Sell, at("2024-01-12 10:00"), "CBA", Q(5), M(30), M(0)), TradeOptions{Lots: Allocation{2: Q(5)}})

	// deleting the first buy renumbers lots, the sell must still consume
	// the lot of the second buy.
	if err := l.DeleteTransaction(1); err != nil {
		t.Fatalf("DeleteTransaction() = %v", err)
	}
	if _, err := l.Transaction(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Transaction(1) = %v, want ErrNotFound", err)
	}
	lots, _ := l.Lots(LotFilter{})
	if len(lots) != 1 || lots[0].ID != 1 || lots[0].SourceTxID != second.ID {
		t.Fatalf("Lots() = %+v, want lot 1 from transaction %d", lots, second.ID)
	}
	disposals, err := l.Disposals(DisposalFilter{SellTxID: sell.ID})
	if err != nil {
		t.Fatalf("Disposals() = %v", err)
	}
	if len(disposals) != 1 || disposals[0].LotID != 1 || !disposals[0].Gain.Equal(M(50)) {
		t.Errorf("specific sell disposals = %+v, want 5 units of lot 1 with a gain of 50", disposals)
	}
}

func TestLedger_DeleteInconsistent(t *testing.T) {
	l, store := history(t)
	before := snapshot(t, store)

	// the SPECIFIC_ID sell consumed the lot of transaction 2
	err := l.DeleteTransaction(2)
	if !errors.Is(err, ErrInconsistent) {
		t.Errorf("DeleteTransaction() = %v, want ErrInconsistent", err)
	}
	// not enough BHP for the sell anymore
	err = l.DeleteTransaction(3)
	if err == nil {
		// transaction 3 is the only BHP buy before the BHP sell
		t.Errorf("DeleteTransaction(3) should fail, the BHP sell is no longer covered")
	}
	if after := snapshot(t, store); !bytes.Equal(before, after) {
		t.Errorf("failed deletions changed the ledger")
	}
}

func TestLedger_ReplaceTransaction(t *testing.T) {
	l := newTestLedger(t, Options{})
	buy := record(t, l, NewTrade(Buy, at("2024-01-10 10:00"), "CBA", Q(10), M(10), M(0)), TradeOptions{})
	sell := record(t, l, NewTrade(Sell, at("2024-01-12 10:00"), "CBA", Q(5), M(12), M(0)), TradeOptions{})

	buy.Price = M(11)
	if _, err := l.ReplaceTransaction(buy, TradeOptions{}); err != nil {
		t.Fatalf("ReplaceTransaction() = %v", err)
	}
	disposals, _ := l.Disposals(DisposalFilter{SellTxID: sell.ID})
	if len(disposals) != 1 || !disposals[0].Gain.Equal(M(5)) {
		t.Errorf("disposals after replace = %+v, want a gain of 5", disposals)
	}

	sell.Quantity = Q(11)
	if _, err := l.ReplaceTransaction(sell, TradeOptions{}); !errors.Is(err, ErrInconsistent) {
		t.Errorf("ReplaceTransaction(oversold) = %v, want ErrInconsistent", err)
	}
	if _, err := l.ReplaceTransaction(Transaction{ID: 42}, TradeOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReplaceTransaction(missing) = %v, want ErrNotFound", err)
	}
}

func TestLedger_ReplaceSpecificAllocation(t *testing.T) {
	l := newTestLedger(t, Options{})
	record(t, l, NewTrade(Buy, at("2024-01-10 10:00"), "CBA", Q(10), M(10), M(0)), TradeOptions{})
	record(t, l, NewTrade(Buy, at("2024-01-11 10:00"), "CBA", Q(10), M(20), M(0)), TradeOptions{})
	sell := record(t, l, NewTrade(Sell, at("2024-01-12 10:00"), "CBA", Q(5), M(30), M(0)), TradeOptions{Lots: Allocation{1: Q(5)}})

	if _, err := l.ReplaceTransaction(sell, TradeOptions{Lots: Allocation{2: Q(5)}}); err != nil {
		t.Fatalf("ReplaceTransaction() = %v", err)
	}
	disposals, _ := l.Disposals(DisposalFilter{SellTxID: sell.ID})
	if len(disposals) != 1 || disposals[0].LotID != 2 || !disposals[0].Gain.Equal(M(50)) {
		t.Errorf("disposals after replace = %+v, want 5 units of lot 2", disposals)
	}
}

func TestLedger_UpdateNotes(t *testing.T) {
	l, store := history(t)
	before := store.Document()
	tx, err := l.UpdateNotes(5, "tax loss harvesting")
	if err != nil {
		t.Fatalf("UpdateNotes() = %v", err)
	}
	if tx.Notes != "tax loss harvesting" {
		t.Errorf("UpdateNotes() = %q", tx.Notes)
	}
	after := store.Document()
	if len(after.Disposals) != len(before.Disposals) || len(after.Lots) != len(before.Lots) {
		t.Errorf("UpdateNotes() changed lots or disposals")
	}
	if _, err := l.UpdateNotes(42, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateNotes(missing) = %v, want ErrNotFound", err)
	}
}

func TestNewLedger_Errors(t *testing.T) {
	if _, err := NewLedger(nil, Options{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("NewLedger(nil) = %v, want ErrInvalid", err)
	}
	if _, err := NewLedger(NewMemoryStore(), Options{Method: MatchMethod(9)}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("NewLedger(method) = %v, want ErrUnsupported", err)
	}
	if _, err := NewLedger(NewMemoryStore(), Options{Fees: FeeAllocation(9)}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("NewLedger(fees) = %v, want ErrUnsupported", err)
	}
}
