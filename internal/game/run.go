package game

import "github.com/MJE43/moonrock-orbs/internal/orbs"

// Run defaults.
const (
	StartingHP             uint32 = 5
	StartingMoonrocksSpent uint32 = 10
)

// milestones[i] is the point threshold of level i+1.
var milestones = [...]uint32{12, 18, 28, 44, 66, 94, 130}

// Milestones returns a copy of the milestone table.
func Milestones() []uint32 {
	out := make([]uint32, len(milestones))
	copy(out, milestones[:])
	return out
}

// MilestoneFor returns the threshold for level (1-based). Past the table the
// threshold keeps growing by the table's final step.
func MilestoneFor(level uint32) uint32 {
	if level == 0 {
		level = 1
	}
	n := uint32(len(milestones))
	if level <= n {
		return milestones[level-1]
	}
	step := milestones[n-1] - milestones[n-2]
	return milestones[n-1] + step*(level-n)
}

// RunState is one level's progress plus the fields that persist across
// levels (glitch chips, moonrock counters, the orb catalog).
type RunState struct {
	Level      uint32  `json:"level"`
	Points     uint32  `json:"points"`
	Milestone  uint32  `json:"milestone"`
	HP         uint32  `json:"hp"`
	MaxHP      uint32  `json:"max_hp"`
	Multiplier float64 `json:"multiplier"`

	GlitchChips     uint32 `json:"glitch_chips"`
	MoonrocksSpent  uint32 `json:"moonrocks_spent"`
	MoonrocksEarned uint32 `json:"moonrocks_earned"`

	AllOrbs            []orbs.Orb    `json:"all_orbs"`
	SaleOrbsIndices    []int         `json:"sale_orbs_indices"`
	PullableOrbEffects []orbs.Effect `json:"pullable_orb_effects"`
	PulledOrbsEffects  []orbs.Effect `json:"pulled_orbs_effects"`
}

func newRunState() RunState {
	r := RunState{
		MaxHP:          StartingHP,
		MoonrocksSpent: StartingMoonrocksSpent,
		AllOrbs:        orbs.All(),
	}
	r.enterLevel(1)
	return r
}

// advance derives the next level's state, carrying only the persistent
// fields forward.
func (r RunState) advance() RunState {
	next := RunState{
		MaxHP:           r.MaxHP,
		GlitchChips:     r.GlitchChips,
		MoonrocksSpent:  r.MoonrocksSpent,
		MoonrocksEarned: r.MoonrocksEarned,
		AllOrbs:         append([]orbs.Orb(nil), r.AllOrbs...),
	}
	next.enterLevel(r.Level + 1)
	return next
}

func (r *RunState) enterLevel(level uint32) {
	r.Level = level
	r.Points = 0
	r.Milestone = MilestoneFor(level)
	r.HP = r.MaxHP
	r.Multiplier = 1.0
	r.SaleOrbsIndices = []int{}
	r.PullableOrbEffects = buildPool(r.AllOrbs)
	r.PulledOrbsEffects = []orbs.Effect{}
}

// buildPool lays out Count copies of each orb's effect in catalog order.
func buildPool(all []orbs.Orb) []orbs.Effect {
	pool := make([]orbs.Effect, 0, orbs.PoolSize(all))
	for _, orb := range all {
		for i := uint32(0); i < orb.Count; i++ {
			pool = append(pool, orb.Effect)
		}
	}
	return pool
}

// clone returns a deep copy; transitions always work on a clone.
func (r RunState) clone() RunState {
	c := r
	c.AllOrbs = append([]orbs.Orb(nil), r.AllOrbs...)
	c.SaleOrbsIndices = append([]int{}, r.SaleOrbsIndices...)
	c.PullableOrbEffects = append([]orbs.Effect{}, r.PullableOrbEffects...)
	c.PulledOrbsEffects = append([]orbs.Effect{}, r.PulledOrbsEffects...)
	return c
}

// Balance is what the player would bank by cashing out now:
// points + moonrocksEarned - moonrocksSpent.
func (r RunState) Balance() int64 {
	return int64(r.Points) + int64(r.MoonrocksEarned) - int64(r.MoonrocksSpent)
}

// Remaining is the number of undrawn effects this level.
func (r RunState) Remaining() int { return len(r.PullableOrbEffects) }

// BombsPulled counts bomb effects drawn this level.
func (r RunState) BombsPulled() int {
	n := 0
	for _, e := range r.PulledOrbsEffects {
		if e.IsBomb() {
			n++
		}
	}
	return n
}

// Immune reports whether a BombImmunity effect was drawn this level.
func (r RunState) Immune() bool {
	for _, e := range r.PulledOrbsEffects {
		if e.Kind == orbs.KindBombImmunity {
			return true
		}
	}
	return false
}

// MilestoneMet reports whether the shop is unlocked.
func (r RunState) MilestoneMet() bool { return r.Points >= r.Milestone }

// Offers returns the orbs currently on sale, in slot order.
func (r RunState) Offers() []orbs.Orb {
	out := make([]orbs.Orb, 0, len(r.SaleOrbsIndices))
	for _, idx := range r.SaleOrbsIndices {
		out = append(out, r.AllOrbs[idx])
	}
	return out
}
