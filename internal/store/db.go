package store

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("store: run not found")

// DB represents the database interface
type DB interface {
	Close() error
	Migrate() error
	SaveRun(run *Run) error
	UpdateRun(run *Run) error
	GetRun(id string) (*Run, error)
	ListRuns(query RunsQuery) (*RunsList, error)
	AppendAction(action *Action) error
	ListActions(runID string) ([]Action, error)
}

// RunsQuery represents query parameters for listing runs
type RunsQuery struct {
	Phase   string `json:"phase,omitempty"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}

// RunsList represents paginated runs response
type RunsList struct {
	Runs       []Run `json:"runs"`
	TotalCount int   `json:"totalCount"`
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	TotalPages int   `json:"totalPages"`
}

// Run is one persisted orb run. ServerSeed stays in the row for replay; the
// API only reveals it once Phase is "complete".
type Run struct {
	ID             string    `json:"id" db:"id"`
	ServerSeed     string    `json:"server_seed,omitempty" db:"server_seed"`
	ServerSeedHash string    `json:"server_seed_hash" db:"server_seed_hash"`
	ClientSeed     string    `json:"client_seed" db:"client_seed"`
	Nonce          uint64    `json:"nonce" db:"nonce"`
	Phase          string    `json:"phase" db:"phase"`
	Level          uint32    `json:"level" db:"level"`
	Points         uint32    `json:"points" db:"points"`
	MoonrockDelta  *int64    `json:"moonrock_delta,omitempty" db:"moonrock_delta"`
	EndReason      string    `json:"end_reason,omitempty" db:"end_reason"`
	SnapshotJSON   string    `json:"snapshot_json" db:"snapshot_json"`
	EngineVersion  string    `json:"engine_version" db:"engine_version"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Action is one journaled action of a run, accepted or rejected.
type Action struct {
	ID        int64     `json:"id" db:"id"`
	RunID     string    `json:"run_id" db:"run_id"`
	Seq       int       `json:"seq" db:"seq"`
	Action    string    `json:"action" db:"action"`
	Slot      int       `json:"slot" db:"slot"`
	Accepted  bool      `json:"accepted" db:"accepted"`
	Error     string    `json:"error,omitempty" db:"error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
