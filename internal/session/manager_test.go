package session

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MJE43/moonrock-orbs/internal/engine"
	"github.com/MJE43/moonrock-orbs/internal/game"
	"github.com/MJE43/moonrock-orbs/internal/replay"
	"github.com/MJE43/moonrock-orbs/internal/store"
)

func newTestDB(t *testing.T) store.DB {
	t.Helper()
	db, err := store.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func TestCreate(t *testing.T) {
	m := NewManager(newTestDB(t))

	v, err := m.Create(CreateRequest{ServerSeed: "server", ClientSeed: "client"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if v.ID == "" {
		t.Fatal("Expected run ID")
	}
	if v.State.Phase != game.PhaseNew {
		t.Errorf("Expected new phase, got %s", v.State.Phase)
	}
	if v.ServerSeed != "" {
		t.Error("Server seed revealed before completion")
	}
	if v.ServerSeedHash != engine.HashSeed("server") {
		t.Errorf("Unexpected seed hash %s", v.ServerSeedHash)
	}
	if v.Nonce != DefaultNonce {
		t.Errorf("Expected default nonce, got %d", v.Nonce)
	}

	generated, err := m.Create(CreateRequest{})
	if err != nil {
		t.Fatalf("Create with defaults failed: %v", err)
	}
	if generated.ClientSeed == "" || generated.ServerSeedHash == "" {
		t.Errorf("Expected generated seeds, got %+v", generated)
	}
}

func TestApplyJournalsEveryAction(t *testing.T) {
	m := NewManager(newTestDB(t))
	v, err := m.Create(CreateRequest{ServerSeed: "server", ClientSeed: "client"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = m.Apply(v.ID, game.Action{Kind: game.PullOrb})
	var actionErr *game.ActionError
	if !errors.As(err, &actionErr) || !errors.Is(err, game.ErrInvalidActionInNewGame) {
		t.Fatalf("Expected ActionError wrapping ErrInvalidActionInNewGame, got %v", err)
	}

	if _, err := m.Apply(v.ID, game.Action{Kind: game.StartGame}); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	v, err = m.Apply(v.ID, game.Action{Kind: game.PullOrb})
	if err != nil {
		t.Fatalf("PullOrb failed: %v", err)
	}
	if v.LastPull == nil {
		t.Error("Expected last pull after PullOrb")
	}
	if v.Actions != 3 {
		t.Errorf("Expected 3 journaled actions, got %d", v.Actions)
	}

	journal, err := m.Journal(v.ID)
	if err != nil {
		t.Fatalf("Journal failed: %v", err)
	}
	if len(journal) != 3 {
		t.Fatalf("Expected 3 journal entries, got %d", len(journal))
	}
	if journal[0].Accepted || journal[0].Error != game.ErrInvalidActionInNewGame.Error() {
		t.Errorf("First entry should be rejected, got %+v", journal[0])
	}
	if !journal[1].Accepted || !journal[2].Accepted {
		t.Errorf("Expected later entries accepted, got %+v", journal[1:])
	}
}

func TestRestoreFromStore(t *testing.T) {
	db := newTestDB(t)
	first := NewManager(db)

	v, err := first.Create(CreateRequest{ServerSeed: "restore-server", ClientSeed: "restore-client", Nonce: 9})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	actions := []game.Action{
		{Kind: game.StartGame},
		{Kind: game.PullOrb},
		{Kind: game.EnterShop},
		{Kind: game.PullOrb},
	}
	for _, a := range actions {
		v, _ = first.Apply(v.ID, a)
	}

	second := NewManager(db)
	if second.Loaded() != 0 {
		t.Fatal("Expected empty manager")
	}
	restored, err := second.Get(v.ID)
	if err != nil {
		t.Fatalf("Get after restart failed: %v", err)
	}
	if !reflect.DeepEqual(restored.State, v.State) {
		t.Errorf("Restored state differs:\n got %+v\nwant %+v", restored.State, v.State)
	}
	if restored.Actions != len(actions) {
		t.Errorf("Expected %d actions, got %d", len(actions), restored.Actions)
	}

	// The restored run keeps playing on the same stream.
	next, _ := second.Apply(v.ID, game.Action{Kind: game.PullOrb})
	replayed, _ := replay.Run(
		engine.Seeds{Server: "restore-server", Client: "restore-client"}, 9,
		append(actions, game.Action{Kind: game.PullOrb}),
	)
	if next == nil || !reflect.DeepEqual(next.State, replayed.Snapshot()) {
		t.Error("Restored run diverged from a fresh replay")
	}
}

func TestGetUnknownRun(t *testing.T) {
	m := NewManager(newTestDB(t))
	if _, err := m.Get("missing"); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestServerSeedRevealedOnCompletion(t *testing.T) {
	m := NewManager(newTestDB(t))
	v, err := m.Create(CreateRequest{ServerSeed: "reveal-server", ClientSeed: "reveal-client"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := m.Apply(v.ID, game.Action{Kind: game.StartGame}); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	// Pull until the run has points, then cash out; a death also completes it.
	for i := 0; i < 40; i++ {
		v, err = m.Apply(v.ID, game.Action{Kind: game.PullOrb})
		if err != nil || v.State.Phase != game.PhaseLevel || v.State.Run.Points > 0 {
			break
		}
	}
	if v.State.Phase == game.PhaseLevel {
		if v, err = m.Apply(v.ID, game.Action{Kind: game.CashOut}); err != nil {
			t.Fatalf("CashOut failed: %v", err)
		}
	}
	if v.State.Phase != game.PhaseComplete {
		t.Fatalf("Expected complete run, got %s", v.State.Phase)
	}
	if v.ServerSeed != "reveal-server" {
		t.Errorf("Expected server seed revealed, got %q", v.ServerSeed)
	}

	list, err := m.List(store.RunsQuery{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list.Runs) != 1 || list.Runs[0].ServerSeed != "reveal-server" || list.Runs[0].MoonrockDelta == nil {
		t.Errorf("Unexpected listing: %+v", list.Runs)
	}
}

func TestListHidesUnfinishedSeeds(t *testing.T) {
	m := NewManager(newTestDB(t))
	if _, err := m.Create(CreateRequest{ServerSeed: "hidden"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	list, err := m.List(store.RunsQuery{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if list.Runs[0].ServerSeed != "" {
		t.Error("Server seed of unfinished run was listed")
	}
}

func TestConcurrentRunsAreIsolated(t *testing.T) {
	m := NewManager(newTestDB(t))

	const n = 8
	ids := make([]string, n)
	for i := range ids {
		v, err := m.Create(CreateRequest{ServerSeed: "shared", ClientSeed: fmt.Sprintf("client-%d", i)})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids[i] = v.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := m.Apply(id, game.Action{Kind: game.StartGame}); err != nil {
				errs <- err
				return
			}
			for j := 0; j < 5; j++ {
				if _, err := m.Apply(id, game.Action{Kind: game.PullOrb}); err != nil {
					var actionErr *game.ActionError
					if !errors.As(err, &actionErr) {
						errs <- err
					}
					return
				}
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent apply failed: %v", err)
	}

	for _, id := range ids {
		journal, err := m.Journal(id)
		if err != nil {
			t.Fatalf("Journal failed: %v", err)
		}
		for i, e := range journal {
			if e.Seq != i+1 {
				t.Errorf("Run %s has seq %d at position %d", id, e.Seq, i)
			}
		}
	}
}

// failingAppendDB fails the first append of failSeq after holding it until
// release is closed.
type failingAppendDB struct {
	store.DB
	failSeq int
	entered chan struct{}
	release chan struct{}
	failed  atomic.Bool
}

func (f *failingAppendDB) AppendAction(a *store.Action) error {
	if a.Seq == f.failSeq && f.failed.CompareAndSwap(false, true) {
		close(f.entered)
		<-f.release
		return errors.New("disk full")
	}
	return f.DB.AppendAction(a)
}

func TestFailedJournalAppendDoesNotLeakState(t *testing.T) {
	base := newTestDB(t)
	db := &failingAppendDB{
		DB:      base,
		failSeq: 2,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := NewManager(db)

	v, err := m.Create(CreateRequest{ServerSeed: "flaky-server", ClientSeed: "flaky-client"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := m.Apply(v.ID, game.Action{Kind: game.StartGame}); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Apply(v.ID, game.Action{Kind: game.PullOrb})
		firstErr <- err
	}()
	<-db.entered

	type result struct {
		view *View
		err  error
	}
	second := make(chan result, 1)
	go func() {
		view, err := m.Apply(v.ID, game.Action{Kind: game.PullOrb})
		second <- result{view, err}
	}()
	// Let the second call queue up on the run lock.
	time.Sleep(50 * time.Millisecond)
	close(db.release)

	if err := <-firstErr; err == nil {
		t.Fatal("Expected the failed append to surface")
	}
	got := <-second
	if got.err != nil {
		t.Fatalf("Second PullOrb failed: %v", got.err)
	}

	journal, err := m.Journal(v.ID)
	if err != nil {
		t.Fatalf("Journal failed: %v", err)
	}
	for i, e := range journal {
		if e.Seq != i+1 {
			t.Fatalf("Journal has seq %d at position %d", e.Seq, i)
		}
	}
	if len(journal) != 2 || got.view.Actions != 2 {
		t.Errorf("Expected 2 journaled actions, got %d (view says %d)", len(journal), got.view.Actions)
	}

	restored, err := NewManager(base).Get(v.ID)
	if err != nil {
		t.Fatalf("Get after restart failed: %v", err)
	}
	if !reflect.DeepEqual(restored.State, got.view.State) {
		t.Errorf("Reply state is not reproducible:\n got %+v\nwant %+v", got.view.State, restored.State)
	}
	if !reflect.DeepEqual(restored.LastPull, got.view.LastPull) {
		t.Errorf("Last pull differs after restart: %v vs %v", restored.LastPull, got.view.LastPull)
	}
}

func TestCreateRejectsOversizedNonce(t *testing.T) {
	m := NewManager(newTestDB(t))
	if _, err := m.Create(CreateRequest{Nonce: math.MaxInt64 + 5}); !errors.Is(err, ErrNonceOutOfRange) {
		t.Errorf("Expected ErrNonceOutOfRange, got %v", err)
	}
	v, err := m.Create(CreateRequest{Nonce: math.MaxInt64})
	if err != nil {
		t.Fatalf("Create at the bound failed: %v", err)
	}
	if v.Nonce != math.MaxInt64 {
		t.Errorf("Expected nonce %d, got %d", uint64(math.MaxInt64), v.Nonce)
	}
}
