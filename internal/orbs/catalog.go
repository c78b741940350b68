// Package orbs holds the fixed orb catalog consulted by the game state machine.
package orbs

import (
	"fmt"
	"strconv"
)

// Rarity drives shop quotas only; it carries no ordering semantics otherwise.
type Rarity int

const (
	Common Rarity = iota
	Rare
	Cosmic
)

var rarityNames = [...]string{Common: "common", Rare: "rare", Cosmic: "cosmic"}

// Rarities lists every rarity in shop order.
var Rarities = []Rarity{Common, Rare, Cosmic}

func (r Rarity) String() string {
	if r >= 0 && int(r) < len(rarityNames) {
		return rarityNames[r]
	}
	return "unknown(" + strconv.Itoa(int(r)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (r Rarity) MarshalText() ([]byte, error) {
	if r < 0 || int(r) >= len(rarityNames) {
		return nil, fmt.Errorf("unknown rarity %d", int(r))
	}
	return []byte(rarityNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rarity) UnmarshalText(text []byte) error {
	for i, name := range rarityNames {
		if name == string(text) {
			*r = Rarity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown rarity %q", string(text))
}

// Buyable is either not for sale (Yes == false) or for sale with a base
// price and an escalating current price.
type Buyable struct {
	Yes          bool   `json:"yes"`
	BasePrice    uint32 `json:"base_price,omitempty"`
	CurrentPrice uint32 `json:"current_price,omitempty"`
}

// NotBuyable marks an orb that never appears in the shop.
func NotBuyable() Buyable { return Buyable{} }

// BuyableAt marks an orb for sale starting at price.
func BuyableAt(price uint32) Buyable {
	return Buyable{Yes: true, BasePrice: price, CurrentPrice: price}
}

// Orb is one catalog entry. Effect and Rarity are fixed; Count and the
// current price change as the player buys.
type Orb struct {
	Effect  Effect  `json:"effect"`
	Rarity  Rarity  `json:"rarity"`
	Count   uint32  `json:"count"`
	Buyable Buyable `json:"buyable"`
}

// Size is the number of orbs in the catalog.
const Size = 21

var catalog = [Size]Orb{
	// Hazards and the remaining-orb scorer: always in the pool, never sold.
	{Effect: Bomb(1), Rarity: Common, Count: 1, Buyable: NotBuyable()},
	{Effect: Bomb(2), Rarity: Common, Count: 1, Buyable: NotBuyable()},
	{Effect: Bomb(3), Rarity: Common, Count: 1, Buyable: NotBuyable()},
	{Effect: PointPerOrbRemaining(1), Rarity: Common, Count: 1, Buyable: NotBuyable()},

	{Effect: Point(5), Rarity: Common, Count: 3, Buyable: BuyableAt(5)},
	{Effect: Point(7), Rarity: Common, Count: 0, Buyable: BuyableAt(8)},
	{Effect: GlitchChips(15), Rarity: Common, Count: 1, Buyable: BuyableAt(5)},
	{Effect: Health(1), Rarity: Common, Count: 2, Buyable: BuyableAt(9)},
	{Effect: Multiplier(0.5), Rarity: Common, Count: 1, Buyable: BuyableAt(9)},
	{Effect: PointPerBombPulled(4), Rarity: Common, Count: 0, Buyable: BuyableAt(6)},
	{Effect: Moonrocks(1), Rarity: Common, Count: 0, Buyable: BuyableAt(8)},

	{Effect: Point(9), Rarity: Rare, Count: 0, Buyable: BuyableAt(11)},
	{Effect: GlitchChips(30), Rarity: Rare, Count: 0, Buyable: BuyableAt(11)},
	{Effect: Moonrocks(2), Rarity: Rare, Count: 0, Buyable: BuyableAt(11)},
	{Effect: Multiplier(1.0), Rarity: Rare, Count: 0, Buyable: BuyableAt(12)},
	{Effect: PointRewind(), Rarity: Rare, Count: 0, Buyable: BuyableAt(8)},
	{Effect: BombImmunity(), Rarity: Rare, Count: 0, Buyable: BuyableAt(10)},

	{Effect: Health(3), Rarity: Cosmic, Count: 0, Buyable: BuyableAt(21)},
	{Effect: Multiplier(1.5), Rarity: Cosmic, Count: 0, Buyable: BuyableAt(23)},
	{Effect: FiveOrDie(), Rarity: Cosmic, Count: 0, Buyable: BuyableAt(15)},
	{Effect: Moonrocks(5), Rarity: Cosmic, Count: 0, Buyable: BuyableAt(18)},
}

func init() {
	if err := Validate(catalog[:]); err != nil {
		panic(err)
	}
}

// All returns a fresh copy of the catalog in its canonical order.
func All() []Orb {
	out := make([]Orb, Size)
	copy(out, catalog[:])
	return out
}

// Validate checks the structural invariants the shop and pull pool rely on.
func Validate(list []Orb) error {
	if len(list) != Size {
		return fmt.Errorf("orbs: catalog has %d entries, want %d", len(list), Size)
	}
	buyable := make(map[Rarity]int, len(Rarities))
	for i, orb := range list {
		if orb.Buyable.Yes {
			if orb.Buyable.BasePrice == 0 {
				return fmt.Errorf("orbs: entry %d (%s) is buyable with zero price", i, orb.Effect)
			}
			buyable[orb.Rarity]++
		}
	}
	for _, r := range Rarities {
		if buyable[r] == 0 {
			return fmt.Errorf("orbs: no buyable %s orbs", r)
		}
	}
	return nil
}

// PoolSize is the number of effect copies list contributes to a level's pool.
func PoolSize(list []Orb) int {
	n := 0
	for _, orb := range list {
		n += int(orb.Count)
	}
	return n
}
