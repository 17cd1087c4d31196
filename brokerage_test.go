package taxlot

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func legs(notionals ...int64) []Leg {
	ids := []string{"buy1", "sell1", "buy2", "sell2"}
	out := make([]Leg, len(notionals))
	for i, n := range notionals {
		out[i] = Leg{ID: ids[i], Notional: decimal.NewFromInt(n)}
	}
	return out
}

func TestAllocate(t *testing.T) {
	testCases := []struct {
		name     string
		fees     Money
		strategy FeeAllocation
		legs     []Leg
		want     map[string]Money
	}{
		{
			name:     "buy legs only",
			fees:     M(30),
			strategy: AllocateBuy,
			legs:     legs(5000, -3000, 2500),
			want:     map[string]Money{"buy1": M(20), "sell1": M(0), "buy2": M(10)},
		},
		{
			name:     "sell legs only",
			fees:     M(30),
			strategy: AllocateSell,
			legs:     legs(5000, -3000, 2500, -1000),
			want:     map[string]Money{"buy1": M(0), "sell1": MustMoney("22.5"), "buy2": M(0), "sell2": MustMoney("7.5")},
		},
		{
			name:     "split",
			fees:     M(21),
			strategy: AllocateSplit,
			legs:     legs(4000, -2000, 1000),
			want:     map[string]Money{"buy1": M(12), "sell1": M(6), "buy2": M(3)},
		},
		{
			name:     "remainder goes to the last leg",
			fees:     M(10),
			strategy: AllocateSplit,
			legs:     legs(1, -1, 1),
			want: map[string]Money{
				"buy1":  MustMoney("3.3333333333333333"),
				"sell1": MustMoney("3.3333333333333333"),
				"buy2":  MustMoney("3.3333333333333334"),
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Allocate(tc.fees, tc.strategy, tc.legs)
			if err != nil {
				t.Fatalf("Allocate() = %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("Allocate() = %v, want %v", got, tc.want)
			}
			var total Money
			for id, want := range tc.want {
				if !got[id].Equal(want) {
					t.Errorf("Allocate()[%s] = %s, want %s", id, got[id], want)
				}
				total = total.Add(got[id])
			}
			if !total.Equal(tc.fees) {
				t.Errorf("Allocate() total = %s, want %s", total, tc.fees)
			}
		})
	}
}

func TestAllocate_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		strategy FeeAllocation
		legs     []Leg
		want     error
	}{
		{"no buy leg", AllocateBuy, legs(-100), ErrInvalid},
		{"no sell leg", AllocateSell, legs(100), ErrInvalid},
		{"no legs", AllocateSplit, nil, ErrInvalid},
		{"zero notional", AllocateSplit, legs(0, 0), ErrInvalid},
		{"unknown strategy", FeeAllocation(9), legs(100), ErrUnsupported},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Allocate(M(10), tc.strategy, tc.legs); !errors.Is(err, tc.want) {
				t.Errorf("Allocate() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTradeFee(t *testing.T) {
	buy := NewTrade(Buy, at("2024-01-01 10:00"), "CBA", Q(10), M(10), M(10))
	sell := NewTrade(Sell, at("2024-01-02 10:00"), "CBA", Q(10), M(12), M(10))
	testCases := []struct {
		strategy  FeeAllocation
		buy, sell Money
	}{
		{AllocateBuy, M(10), M(0)},
		{AllocateSell, M(0), M(10)},
		{AllocateSplit, M(5), M(5)},
	}
	for _, tc := range testCases {
		t.Run(tc.strategy.String(), func(t *testing.T) {
			got, err := tradeFee(buy, tc.strategy)
			if err != nil {
				t.Fatalf("tradeFee(buy) = %v", err)
			}
			if !got.Equal(tc.buy) {
				t.Errorf("tradeFee(buy) = %s, want %s", got, tc.buy)
			}
			got, err = tradeFee(sell, tc.strategy)
			if err != nil {
				t.Fatalf("tradeFee(sell) = %v", err)
			}
			if !got.Equal(tc.sell) {
				t.Errorf("tradeFee(sell) = %s, want %s", got, tc.sell)
			}
		})
	}
}
