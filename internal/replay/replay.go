// Package replay re-derives a run from its seeds and action journal, which
// lets anyone holding the revealed server seed check a finished run.
package replay

import (
	"errors"
	"fmt"

	"github.com/MJE43/moonrock-orbs/internal/engine"
	"github.com/MJE43/moonrock-orbs/internal/game"
)

// Entry is one journaled action and how the machine answered it.
type Entry struct {
	Seq      int         `json:"seq"`
	Action   game.Action `json:"step"`
	Accepted bool        `json:"accepted"`
	Error    string      `json:"error,omitempty"`
}

// ErrMismatch is returned when a journal does not reproduce.
var ErrMismatch = errors.New("replay mismatch")

// Run applies actions to a fresh machine seeded with seeds and nonce
// and returns the machine plus the journal it produced. Rejected actions
// are kept in the journal; they consume no randomness.
func Run(seeds engine.Seeds, nonce uint64, actions []game.Action) (*game.Machine, []Entry) {
	m := game.NewMachine(engine.NewStream(seeds, nonce))
	journal := make([]Entry, 0, len(actions))
	for i, a := range actions {
		entry, _ := Apply(m, i+1, a)
		journal = append(journal, entry)
	}
	return m, journal
}

// Apply performs a on m and records the outcome as journal entry seq. The
// machine's error, if any, is returned unchanged alongside the entry.
func Apply(m *game.Machine, seq int, a game.Action) (Entry, error) {
	entry := Entry{Seq: seq, Action: a, Accepted: true}
	err := m.Perform(a)
	if err != nil {
		entry.Accepted = false
		entry.Error = reason(err)
	}
	return entry, err
}

// Verify replays journal and checks that every entry is accepted or
// rejected exactly as recorded.
func Verify(seeds engine.Seeds, nonce uint64, journal []Entry) (*game.Machine, error) {
	actions := make([]game.Action, len(journal))
	for i, e := range journal {
		actions[i] = e.Action
	}

	m, replayed := Run(seeds, nonce, actions)
	for i, got := range replayed {
		want := journal[i]
		if got.Accepted != want.Accepted || got.Error != want.Error {
			return m, fmt.Errorf("%w at step %d (%s): recorded accepted=%t %q, replayed accepted=%t %q",
				ErrMismatch, want.Seq, want.Action, want.Accepted, want.Error, got.Accepted, got.Error)
		}
	}
	return m, nil
}

// reason reduces an action error to its sentinel text so journals stay
// comparable across versions of the wrapping message.
func reason(err error) string {
	var actionErr *game.ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Err.Error()
	}
	return err.Error()
}
