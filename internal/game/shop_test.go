package game

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuyOrb(t *testing.T) {
	// Offer from scriptedSource is [4 5 6 11 12 17]; balance = 30 - 10 = 20.
	shop := shopWith(func(r *RunState) { r.Points = 30 })
	if want := []int{4, 5, 6, 11, 12, 17}; !reflect.DeepEqual(shop.Run.SaleOrbsIndices, want) {
		t.Fatalf("SaleOrbsIndices = %v, want %v", shop.Run.SaleOrbsIndices, want)
	}

	next, err := PerformAction(shop, Buy(0), testStream())
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	bought := next.(Shop).Run
	orb := bought.AllOrbs[4]

	if bought.MoonrocksSpent != 15 {
		t.Errorf("MoonrocksSpent = %d, want 15", bought.MoonrocksSpent)
	}
	if orb.Count != 4 {
		t.Errorf("Count = %d, want 4", orb.Count)
	}
	if orb.Buyable.CurrentPrice != 7 || orb.Buyable.BasePrice != 5 {
		t.Errorf("Price = %d (base %d), want 7 (base 5)", orb.Buyable.CurrentPrice, orb.Buyable.BasePrice)
	}
	if !reflect.DeepEqual(bought.SaleOrbsIndices, shop.Run.SaleOrbsIndices) {
		t.Error("Offer changed after purchase")
	}
	if shop.Run.AllOrbs[4].Count != 3 || shop.Run.MoonrocksSpent != 10 {
		t.Error("Purchase mutated the previous shop state")
	}

	t.Run("insufficient funds", func(t *testing.T) {
		before := SnapshotOf(next)
		// Slot 5 is Health(3) at 21; balance is now 15.
		after, err := PerformAction(next, Buy(5), testStream())
		if !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
		}
		if !reflect.DeepEqual(SnapshotOf(after), before) {
			t.Error("Rejected purchase changed state")
		}
	})

	t.Run("exact balance", func(t *testing.T) {
		s := shopWith(func(r *RunState) { r.Points = 31 })
		// Slot 5 costs 21 and balance is exactly 21.
		after, err := PerformAction(s, Buy(5), testStream())
		if err != nil {
			t.Fatalf("Buy at exact balance failed: %v", err)
		}
		if got := after.(Shop).Run.Balance(); got != 0 {
			t.Errorf("Balance = %d, want 0", got)
		}
	})

	for _, slot := range []int{-1, 6, 40} {
		_, err := PerformAction(next, Buy(slot), testStream())
		if !errors.Is(err, ErrOrbNotForSale) {
			t.Errorf("slot %d: expected ErrOrbNotForSale, got %v", slot, err)
		}
	}
}

func TestNextPrice(t *testing.T) {
	tests := map[uint32]uint32{1: 2, 4: 5, 5: 7, 8: 10, 9: 12, 21: 27, 100: 125}
	for price, want := range tests {
		if got := NextPrice(price); got != want {
			t.Errorf("NextPrice(%d) = %d, want %d", price, got, want)
		}
	}
}

func TestBalance(t *testing.T) {
	r := newRunState()
	r.Points = 3
	r.MoonrocksEarned = 2
	if got := r.Balance(); got != -5 {
		t.Errorf("Balance = %d, want -5", got)
	}
}
