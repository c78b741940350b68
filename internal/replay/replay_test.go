package replay

import (
	"errors"
	"reflect"
	"testing"

	"github.com/MJE43/moonrock-orbs/internal/engine"
	"github.com/MJE43/moonrock-orbs/internal/game"
)

var testSeeds = engine.Seeds{Server: "replay_server_seed", Client: "replay_client_seed"}

func playSome(t *testing.T) (*game.Machine, []Entry) {
	t.Helper()
	m := game.NewMachine(engine.NewStream(testSeeds, 3))
	var journal []Entry
	seq := 0
	step := func(a game.Action) {
		seq++
		entry, _ := Apply(m, seq, a)
		journal = append(journal, entry)
	}

	step(game.Action{Kind: game.PullOrb}) // rejected: not started
	step(game.Action{Kind: game.StartGame})
	for i := 0; i < 6 && m.State().Phase() == game.PhaseLevel; i++ {
		step(game.Action{Kind: game.PullOrb})
	}
	step(game.Action{Kind: game.EnterShop})
	return m, journal
}

func TestRunReproducesLiveRun(t *testing.T) {
	live, journal := playSome(t)

	actions := make([]game.Action, len(journal))
	for i, e := range journal {
		actions[i] = e.Action
	}

	rebuilt, replayed := Run(testSeeds, 3, actions)
	if !reflect.DeepEqual(rebuilt.Snapshot(), live.Snapshot()) {
		t.Error("Replayed snapshot differs from live snapshot")
	}
	if !reflect.DeepEqual(replayed, journal) {
		t.Errorf("Replayed journal differs:\n got %+v\nwant %+v", replayed, journal)
	}
	if journal[0].Accepted || journal[0].Error != game.ErrInvalidActionInNewGame.Error() {
		t.Errorf("Expected first entry rejected with sentinel text, got %+v", journal[0])
	}
}

func TestVerify(t *testing.T) {
	live, journal := playSome(t)

	m, err := Verify(testSeeds, 3, journal)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !reflect.DeepEqual(m.Snapshot(), live.Snapshot()) {
		t.Error("Verified snapshot differs from live snapshot")
	}

	tampered := append([]Entry(nil), journal...)
	tampered[1].Accepted = false
	tampered[1].Error = "forged"
	if _, err := Verify(testSeeds, 3, tampered); !errors.Is(err, ErrMismatch) {
		t.Errorf("Expected ErrMismatch for tampered journal, got %v", err)
	}
}

func TestVerifyEmptyJournal(t *testing.T) {
	m, err := Verify(testSeeds, 1, nil)
	if err != nil {
		t.Fatalf("Verify(nil) failed: %v", err)
	}
	if m.State().Phase() != game.PhaseNew {
		t.Errorf("Expected New, got %s", m.State().Phase())
	}
}
