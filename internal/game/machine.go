// Package game implements the orb run state machine: the Game variants, the
// action vocabulary and the single transition function that validates and
// applies actions.
package game

import (
	"fmt"

	"github.com/MJE43/moonrock-orbs/internal/orbs"
)

// Source is the injected randomness capability.
type Source interface {
	// Pick returns an index in [0, n) uniformly; n > 0.
	Pick(n int) int
	// Sample returns min(k, n) distinct indices from [0, n) uniformly.
	Sample(k, n int) []int
}

// PerformAction applies a to g. On success it returns a new Game that shares
// no memory with g; on failure it returns g itself and an *ActionError.
func PerformAction(g Game, a Action, src Source) (Game, error) {
	next, _, err := transition(g, a, src)
	return next, err
}

func transition(g Game, a Action, src Source) (Game, *orbs.Effect, error) {
	switch s := g.(type) {
	case New:
		if a.Kind != StartGame {
			return g, nil, reject(g, a, ErrInvalidActionInNewGame)
		}
		return Level{Run: newRunState()}, nil, nil

	case Level:
		return inLevel(s, a, src)

	case Shop:
		switch a.Kind {
		case BuyOrb:
			run := s.Run.clone()
			if err := buy(&run, a.Slot); err != nil {
				return g, nil, reject(g, a, err)
			}
			return Shop{Run: run}, nil, nil
		case GoToNextLevel:
			return Level{Run: s.Run.advance()}, nil, nil
		default:
			return g, nil, reject(g, a, ErrInvalidActionInShop)
		}

	case Complete:
		return g, nil, reject(g, a, ErrGameOver)

	default:
		panic(fmt.Sprintf("game: unknown state %T", g))
	}
}

func inLevel(s Level, a Action, src Source) (Game, *orbs.Effect, error) {
	switch a.Kind {
	case PullOrb:
		run := s.Run.clone()
		drawn, err := pull(&run, src)
		if err != nil {
			return s, nil, reject(s, a, err)
		}
		if run.HP == 0 {
			return Complete{
				MoonrockDelta: int64(run.MoonrocksEarned) - int64(run.MoonrocksSpent),
				Reason:        EndDeath,
				Level:         run.Level,
			}, &drawn, nil
		}
		return Level{Run: run}, &drawn, nil

	case EnterShop:
		if !s.Run.MilestoneMet() {
			return s, nil, reject(s, a, ErrMilestoneNotMetYet)
		}
		run := s.Run.clone()
		stock(&run, src)
		return Shop{Run: run}, nil, nil

	case CashOut:
		if s.Run.Points == 0 {
			return s, nil, reject(s, a, ErrNoPointsToCashOut)
		}
		return Complete{
			MoonrockDelta: s.Run.Balance(),
			Reason:        EndCashOut,
			Level:         s.Run.Level,
		}, nil, nil

	default:
		return s, nil, reject(s, a, ErrInvalidActionInLevel)
	}
}

// Machine is a mutable handle over one run: it owns the current Game and the
// random source, and replaces the Game wholesale on every accepted action.
// A Machine is not safe for concurrent use.
type Machine struct {
	state    Game
	src      Source
	lastPull *orbs.Effect
	actions  int
}

// NewMachine starts a machine in the New state.
func NewMachine(src Source) *Machine {
	return &Machine{state: New{}, src: src}
}

// Perform applies a. The state is unchanged when an error is returned.
func (m *Machine) Perform(a Action) error {
	next, drawn, err := transition(m.state, a, m.src)
	m.actions++
	if err != nil {
		return err
	}
	m.state = next
	m.lastPull = drawn
	return nil
}

// State returns a copy of the current Game value; changing it does not
// affect the machine.
func (m *Machine) State() Game { return cloneGame(m.state) }

// Snapshot returns a serializable copy of the current state.
func (m *Machine) Snapshot() Snapshot { return SnapshotOf(m.state) }

// LastPull returns the effect drawn by the most recent accepted action, if
// that action was a pull.
func (m *Machine) LastPull() (orbs.Effect, bool) {
	if m.lastPull == nil {
		return orbs.Effect{}, false
	}
	return *m.lastPull, true
}

// Actions counts every Perform call, accepted or rejected.
func (m *Machine) Actions() int { return m.actions }
