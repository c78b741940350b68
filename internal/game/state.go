package game

import (
	"fmt"
	"strconv"
)

// Phase names the active Game variant.
type Phase int

const (
	PhaseNew Phase = iota
	PhaseLevel
	PhaseShop
	PhaseComplete
)

var phaseNames = [...]string{
	PhaseNew:      "new",
	PhaseLevel:    "level",
	PhaseShop:     "shop",
	PhaseComplete: "complete",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown(" + strconv.Itoa(int(p)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(phaseNames) {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// Game is the run's state machine value. It is a closed sum: New, Level,
// Shop and Complete are the only implementations.
type Game interface {
	Phase() Phase
	sealed()
}

// New is the initial state; it holds no run data.
type New struct{}

// Level is the pulling phase of one level.
type Level struct {
	Run RunState
}

// Shop is entered once the level milestone is met. Run.SaleOrbsIndices holds
// the current offer.
type Shop struct {
	Run RunState
}

// EndReason tells how a run reached Complete.
type EndReason string

const (
	EndCashOut EndReason = "cash_out"
	EndDeath   EndReason = "death"
)

// Complete is terminal. MoonrockDelta is the run's net currency change and
// may be negative.
type Complete struct {
	MoonrockDelta int64     `json:"moonrock_delta"`
	Reason        EndReason `json:"reason"`
	Level         uint32    `json:"level"`
}

func (New) Phase() Phase      { return PhaseNew }
func (Level) Phase() Phase    { return PhaseLevel }
func (Shop) Phase() Phase     { return PhaseShop }
func (Complete) Phase() Phase { return PhaseComplete }

func (New) sealed()      {}
func (Level) sealed()    {}
func (Shop) sealed()     {}
func (Complete) sealed() {}

// Snapshot is the serializable view of a Game.
type Snapshot struct {
	Phase    Phase     `json:"phase"`
	Run      *RunState `json:"run,omitempty"`
	Complete *Complete `json:"complete,omitempty"`
}

func cloneGame(g Game) Game {
	switch s := g.(type) {
	case Level:
		return Level{Run: s.Run.clone()}
	case Shop:
		return Shop{Run: s.Run.clone()}
	default:
		return g
	}
}

// SnapshotOf copies g into a Snapshot. The copy shares nothing with g.
func SnapshotOf(g Game) Snapshot {
	switch s := g.(type) {
	case New:
		return Snapshot{Phase: PhaseNew}
	case Level:
		run := s.Run.clone()
		return Snapshot{Phase: PhaseLevel, Run: &run}
	case Shop:
		run := s.Run.clone()
		return Snapshot{Phase: PhaseShop, Run: &run}
	case Complete:
		c := s
		return Snapshot{Phase: PhaseComplete, Complete: &c}
	default:
		panic(fmt.Sprintf("game: unknown state %T", g))
	}
}
