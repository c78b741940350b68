package game

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/MJE43/moonrock-orbs/internal/orbs"
)

const fiveOrDieFactor = 5

// pull draws one effect uniformly from the pool, records it as pulled and
// resolves it against r. r must already be a private clone.
func pull(r *RunState, src Source) (orbs.Effect, error) {
	if len(r.PullableOrbEffects) == 0 {
		return orbs.Effect{}, ErrEmptyPullPool
	}

	idx := src.Pick(len(r.PullableOrbEffects))
	drawn := r.PullableOrbEffects[idx]
	r.PullableOrbEffects = append(r.PullableOrbEffects[:idx], r.PullableOrbEffects[idx+1:]...)
	r.PulledOrbsEffects = append(r.PulledOrbsEffects, drawn)

	resolve(r, drawn, src)
	return drawn, nil
}

// resolve applies e to r. The drawn effect is already in PulledOrbsEffects
// and out of the pool, so "remaining" counts are post-draw.
func resolve(r *RunState, e orbs.Effect, src Source) {
	switch e.Kind {
	case orbs.KindPoint:
		r.addPoints(scaled(e.Amount, 1, r.Multiplier))
	case orbs.KindPointPerOrbRemaining:
		r.addPoints(scaled(e.Amount, len(r.PullableOrbEffects), r.Multiplier))
	case orbs.KindPointPerBombPulled:
		r.addPoints(scaled(e.Amount, r.BombsPulled(), r.Multiplier))
	case orbs.KindBomb:
		if !r.Immune() {
			r.HP = saturatingSub(r.HP, e.Amount)
		}
	case orbs.KindGlitchChips:
		r.GlitchChips = saturatingAdd(r.GlitchChips, e.Amount)
	case orbs.KindMoonrocks:
		r.MoonrocksEarned = saturatingAdd(r.MoonrocksEarned, e.Amount)
	case orbs.KindHealth:
		r.HP = min(saturatingAdd(r.HP, e.Amount), r.MaxHP)
	case orbs.KindMultiplier:
		r.Multiplier = decimal.NewFromFloat(r.Multiplier).Add(decimal.NewFromFloat(e.Delta)).InexactFloat64()
	case orbs.KindPointRewind:
		// Replays the latest earlier scoring pull; the rewind itself is the last entry.
		for i := len(r.PulledOrbsEffects) - 2; i >= 0; i-- {
			if prev := r.PulledOrbsEffects[i]; prev.ScoresPoints() {
				resolve(r, prev, src)
				break
			}
		}
	case orbs.KindFiveOrDie:
		if src.Pick(2) == 1 {
			r.addPoints(uint64(r.Points) * (fiveOrDieFactor - 1))
		} else {
			r.HP = 0
		}
	case orbs.KindBombImmunity:
		// Checked by later bombs through PulledOrbsEffects.
	default:
		panic(fmt.Sprintf("game: unhandled effect kind %s", e.Kind))
	}
}

// scaled returns floor(amount * times * multiplier), computed in decimal so
// products like 7 * 1.1 are not floored below their exact value.
func scaled(amount uint32, times int, multiplier float64) uint64 {
	if amount == 0 || times <= 0 || multiplier <= 0 {
		return 0
	}
	v := decimal.NewFromInt(int64(amount)).
		Mul(decimal.NewFromInt(int64(times))).
		Mul(decimal.NewFromFloat(multiplier)).
		Floor()
	return uint64(v.IntPart())
}

func (r *RunState) addPoints(delta uint64) {
	total := uint64(r.Points) + delta
	if total > math.MaxUint32 {
		total = math.MaxUint32
	}
	r.Points = uint32(total)
}

func saturatingSub(a, b uint32) uint32 {
	if b >= a {
		return 0
	}
	return a - b
}

func saturatingAdd(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}
