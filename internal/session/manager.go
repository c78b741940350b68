// Package session hosts many concurrent orb runs. Each run owns its own
// Machine, random stream and lock; every action is journaled to the store so
// a run can be rebuilt after a restart.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MJE43/moonrock-orbs/internal/engine"
	"github.com/MJE43/moonrock-orbs/internal/game"
	"github.com/MJE43/moonrock-orbs/internal/orbs"
	"github.com/MJE43/moonrock-orbs/internal/replay"
	"github.com/MJE43/moonrock-orbs/internal/store"
)

// EngineVersion is stamped on every persisted run.
var EngineVersion = "dev"

// DefaultNonce is used when a run is created without one.
const DefaultNonce uint64 = 1

// ErrJournalDiverged is returned when a stored journal no longer replays.
var ErrJournalDiverged = errors.New("session: stored journal does not replay")

// ErrNonceOutOfRange is returned for nonces the store cannot hold.
var ErrNonceOutOfRange = fmt.Errorf("session: nonce must not exceed %d", uint64(math.MaxInt64))

// View is what callers see of a run. ServerSeed is only set once the run is
// complete.
type View struct {
	ID             string        `json:"id"`
	ServerSeedHash string        `json:"server_seed_hash"`
	ServerSeed     string        `json:"server_seed,omitempty"`
	ClientSeed     string        `json:"client_seed"`
	Nonce          uint64        `json:"nonce"`
	State          game.Snapshot `json:"state"`
	LastPull       *orbs.Effect  `json:"last_pull,omitempty"`
	Actions        int           `json:"actions"`
}

// CreateRequest configures a new run. Empty fields are generated.
type CreateRequest struct {
	ServerSeed string `json:"-"`
	ClientSeed string `json:"client_seed,omitempty"`
	Nonce      uint64 `json:"nonce,omitempty"`
}

type run struct {
	mu      sync.Mutex
	record  *store.Run
	seeds   engine.Seeds
	machine *game.Machine // nil once the run is ahead of its journal
}

// Manager owns the live runs of one process.
type Manager struct {
	db     store.DB
	logger *log.Logger

	mu   sync.Mutex
	runs map[string]*run
}

// NewManager creates a manager backed by db.
func NewManager(db store.DB) *Manager {
	return &Manager{
		db:     db,
		logger: log.New(os.Stdout, "[SESSION] ", log.LstdFlags),
		runs:   make(map[string]*run),
	}
}

// Create starts a new run in the New state and persists it.
func (m *Manager) Create(req CreateRequest) (*View, error) {
	if req.Nonce > math.MaxInt64 {
		return nil, ErrNonceOutOfRange
	}
	serverSeed := req.ServerSeed
	if serverSeed == "" {
		var err error
		if serverSeed, err = engine.NewServerSeed(); err != nil {
			return nil, err
		}
	}
	clientSeed := strings.TrimSpace(req.ClientSeed)
	if clientSeed == "" {
		clientSeed = uuid.NewString()
	}
	nonce := req.Nonce
	if nonce == 0 {
		nonce = DefaultNonce
	}

	seeds := engine.Seeds{Server: serverSeed, Client: clientSeed}
	r := &run{
		seeds:   seeds,
		machine: game.NewMachine(engine.NewStream(seeds, nonce)),
		record: &store.Run{
			ServerSeed:     serverSeed,
			ServerSeedHash: engine.HashSeed(serverSeed),
			ClientSeed:     clientSeed,
			Nonce:          nonce,
			EngineVersion:  EngineVersion,
		},
	}
	if err := r.sync(); err != nil {
		return nil, err
	}
	if err := m.db.SaveRun(r.record); err != nil {
		return nil, fmt.Errorf("session: create run: %w", err)
	}

	m.mu.Lock()
	m.runs[r.record.ID] = r
	m.mu.Unlock()

	m.logger.Printf("run_created id=%s server_seed_hash=%s nonce=%d", r.record.ID, shortHash(r.record.ServerSeedHash), nonce)
	return r.view(), nil
}

// Get returns the current view of a run, restoring it from the store if it
// is not loaded.
func (m *Manager) Get(id string) (*View, error) {
	r, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer r.mu.Unlock()
	return r.view(), nil
}

// Apply performs one action on a run. The action is journaled whether it is
// accepted or not. A rejected action returns the view together with the
// *game.ActionError; other errors return a nil view.
func (m *Manager) Apply(id string, a game.Action) (*View, error) {
	r, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer r.mu.Unlock()

	prev := r.machine.State().Phase()
	entry, actionErr := replay.Apply(r.machine, r.machine.Actions()+1, a)

	if err := m.db.AppendAction(&store.Action{
		RunID:    r.record.ID,
		Seq:      entry.Seq,
		Action:   a.Kind.String(),
		Slot:     a.Slot,
		Accepted: entry.Accepted,
		Error:    entry.Error,
	}); err != nil {
		// The machine is now ahead of the stored journal. Callers already
		// waiting on r.mu see the nil machine and rebuild from the store.
		r.machine = nil
		m.evict(id, r)
		m.logger.Printf("journal_failed id=%s seq=%d err=%q", r.record.ID, entry.Seq, err)
		return nil, fmt.Errorf("session: journal action: %w", err)
	}

	if !entry.Accepted {
		m.logger.Printf("action_rejected id=%s seq=%d action=%s phase=%s reason=%q", r.record.ID, entry.Seq, a, prev, entry.Error)
		return r.view(), actionErr
	}

	if err := r.sync(); err != nil {
		return nil, err
	}
	if err := m.db.UpdateRun(r.record); err != nil {
		return nil, fmt.Errorf("session: update run: %w", err)
	}

	if next := r.machine.State().Phase(); next != prev {
		m.logger.Printf("phase_changed id=%s seq=%d from=%s to=%s", r.record.ID, entry.Seq, prev, next)
	}
	if c, ok := r.machine.State().(game.Complete); ok {
		m.logger.Printf("run_complete id=%s reason=%s level=%d moonrock_delta=%d", r.record.ID, c.Reason, c.Level, c.MoonrockDelta)
	}
	return r.view(), nil
}

// Journal returns a run's action journal in order.
func (m *Manager) Journal(id string) ([]replay.Entry, error) {
	actions, err := m.db.ListActions(id)
	if err != nil {
		return nil, fmt.Errorf("session: journal: %w", err)
	}
	return toEntries(actions)
}

// List returns persisted runs. Server seeds of unfinished runs are blanked.
func (m *Manager) List(query store.RunsQuery) (*store.RunsList, error) {
	list, err := m.db.ListRuns(query)
	if err != nil {
		return nil, fmt.Errorf("session: list runs: %w", err)
	}
	for i := range list.Runs {
		if list.Runs[i].Phase != game.PhaseComplete.String() {
			list.Runs[i].ServerSeed = ""
		}
	}
	return list, nil
}

// Loaded reports how many runs are held in memory.
func (m *Manager) Loaded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

// evict forgets r unless a fresh copy has already replaced it.
func (m *Manager) evict(id string, r *run) {
	m.mu.Lock()
	if m.runs[id] == r {
		delete(m.runs, id)
	}
	m.mu.Unlock()
}

// acquire returns the live run for id with its lock held.
func (m *Manager) acquire(id string) (*run, error) {
	for {
		r, err := m.load(id)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		if r.machine != nil {
			return r, nil
		}
		// Dead runs are evicted before their lock is released, so the next
		// load rebuilds from the store.
		r.mu.Unlock()
	}
}

func (m *Manager) load(id string) (*run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.runs[id]; ok {
		return r, nil
	}

	record, err := m.db.GetRun(id)
	if err != nil {
		return nil, err
	}
	actions, err := m.db.ListActions(id)
	if err != nil {
		return nil, fmt.Errorf("session: restore %s: %w", id, err)
	}
	journal, err := toEntries(actions)
	if err != nil {
		return nil, fmt.Errorf("session: restore %s: %w", id, err)
	}

	seeds := engine.Seeds{Server: record.ServerSeed, Client: record.ClientSeed}
	machine, err := replay.Verify(seeds, record.Nonce, journal)
	if err != nil {
		m.logger.Printf("restore_failed id=%s err=%q", id, err)
		return nil, fmt.Errorf("%w: run %s: %v", ErrJournalDiverged, id, err)
	}

	r := &run{record: record, seeds: seeds, machine: machine}
	m.runs[id] = r
	m.logger.Printf("run_restored id=%s actions=%d phase=%s", id, len(journal), machine.State().Phase())
	return r, nil
}

// sync copies the machine state into the persisted record.
func (r *run) sync() error {
	snap := r.machine.Snapshot()
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}

	r.record.Phase = snap.Phase.String()
	r.record.SnapshotJSON = string(raw)
	if snap.Run != nil {
		r.record.Level = snap.Run.Level
		r.record.Points = snap.Run.Points
	}
	if snap.Complete != nil {
		delta := snap.Complete.MoonrockDelta
		r.record.MoonrockDelta = &delta
		r.record.EndReason = string(snap.Complete.Reason)
		r.record.Level = snap.Complete.Level
	}
	return nil
}

func (r *run) view() *View {
	v := &View{
		ID:             r.record.ID,
		ServerSeedHash: r.record.ServerSeedHash,
		ClientSeed:     r.seeds.Client,
		Nonce:          r.record.Nonce,
		State:          r.machine.Snapshot(),
		Actions:        r.machine.Actions(),
	}
	if v.State.Phase == game.PhaseComplete {
		v.ServerSeed = r.seeds.Server
	}
	if e, ok := r.machine.LastPull(); ok {
		v.LastPull = &e
	}
	return v
}

func toEntries(actions []store.Action) ([]replay.Entry, error) {
	journal := make([]replay.Entry, 0, len(actions))
	for _, a := range actions {
		kind, err := game.ParseActionKind(a.Action)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", a.Seq, err)
		}
		journal = append(journal, replay.Entry{
			Seq:      a.Seq,
			Action:   game.Action{Kind: kind, Slot: a.Slot},
			Accepted: a.Accepted,
			Error:    a.Error,
		})
	}
	return journal, nil
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}
