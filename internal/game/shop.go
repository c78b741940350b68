package game

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MJE43/moonrock-orbs/internal/orbs"
)

// shopQuota is how many offers each rarity gets, in offer order.
var shopQuota = []struct {
	Rarity orbs.Rarity
	Count  int
}{
	{orbs.Common, 3},
	{orbs.Rare, 2},
	{orbs.Cosmic, 1},
}

// ShopSize is the largest possible offer.
const ShopSize = 6

var priceMarkup = decimal.RequireFromString("1.25")

// stock fills SaleOrbsIndices with a fresh offer: per rarity, a uniform draw
// without replacement among buyable entries, concatenated Common, Rare, Cosmic.
// A group shorter than its quota contributes what it has.
func stock(r *RunState, src Source) {
	offer := make([]int, 0, ShopSize)
	for _, q := range shopQuota {
		group := buyableIndices(r.AllOrbs, q.Rarity)
		for _, pick := range src.Sample(q.Count, len(group)) {
			offer = append(offer, group[pick])
		}
	}
	r.SaleOrbsIndices = offer
}

func buyableIndices(all []orbs.Orb, rarity orbs.Rarity) []int {
	var out []int
	for i, orb := range all {
		if orb.Buyable.Yes && orb.Rarity == rarity {
			out = append(out, i)
		}
	}
	return out
}

// buy purchases the orb offered in slot. The spendable balance is the
// cash-out value, so a purchase can never push the run into debt.
func buy(r *RunState, slot int) error {
	if slot < 0 || slot >= len(r.SaleOrbsIndices) {
		return ErrOrbNotForSale
	}
	idx := r.SaleOrbsIndices[slot]
	orb := &r.AllOrbs[idx]
	if !orb.Buyable.Yes {
		panic(fmt.Sprintf("game: non-buyable orb %d offered for sale", idx))
	}

	price := orb.Buyable.CurrentPrice
	if r.Balance() < int64(price) {
		return ErrInsufficientFunds
	}

	r.MoonrocksSpent = saturatingAdd(r.MoonrocksSpent, price)
	orb.Count++
	orb.Buyable.CurrentPrice = NextPrice(price)
	return nil
}

// NextPrice applies the markup after a purchase: ceil(price * 1.25), and
// always at least one more than before.
func NextPrice(price uint32) uint32 {
	marked := decimal.NewFromInt(int64(price)).Mul(priceMarkup).Ceil().IntPart()
	if marked <= int64(price) {
		marked = int64(price) + 1
	}
	return uint32(marked)
}
