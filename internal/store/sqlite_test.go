package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func TestSaveAndGetRun(t *testing.T) {
	db := newTestDB(t)

	run := &Run{
		ServerSeed:     "server",
		ServerSeedHash: "hash",
		ClientSeed:     "client",
		Nonce:          7,
		Phase:          "new",
		EngineVersion:  "1.0.0",
	}
	if err := db.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("Expected SaveRun to assign an ID")
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if got.ServerSeed != "server" || got.ClientSeed != "client" || got.Nonce != 7 {
		t.Errorf("Unexpected run: %+v", got)
	}
	if got.MoonrockDelta != nil {
		t.Errorf("Expected nil moonrock delta, got %d", *got.MoonrockDelta)
	}
	if got.SnapshotJSON != "{}" {
		t.Errorf("Expected empty snapshot, got %s", got.SnapshotJSON)
	}

	_, err = db.GetRun("missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestUpdateRun(t *testing.T) {
	db := newTestDB(t)

	run := &Run{ID: "run1", ServerSeedHash: "h", ClientSeed: "c", Phase: "level", EngineVersion: "1.0.0"}
	if err := db.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	delta := int64(-4)
	run.Phase = "complete"
	run.Level = 3
	run.Points = 40
	run.MoonrockDelta = &delta
	run.EndReason = "death"
	run.SnapshotJSON = `{"phase":"complete"}`
	if err := db.UpdateRun(run); err != nil {
		t.Fatalf("Failed to update run: %v", err)
	}

	got, err := db.GetRun("run1")
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if got.Phase != "complete" || got.Level != 3 || got.Points != 40 || got.EndReason != "death" {
		t.Errorf("Update not persisted: %+v", got)
	}
	if got.MoonrockDelta == nil || *got.MoonrockDelta != -4 {
		t.Errorf("Expected moonrock delta -4, got %v", got.MoonrockDelta)
	}

	missing := &Run{ID: "nope", Phase: "level"}
	if err := db.UpdateRun(missing); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	db := newTestDB(t)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	runs := []*Run{
		{ID: "run1", ServerSeedHash: "h1", ClientSeed: "c1", Phase: "complete", EngineVersion: "1.0.0", CreatedAt: base},
		{ID: "run2", ServerSeedHash: "h2", ClientSeed: "c2", Phase: "level", EngineVersion: "1.0.0", CreatedAt: base.Add(time.Minute)},
		{ID: "run3", ServerSeedHash: "h3", ClientSeed: "c3", Phase: "complete", EngineVersion: "1.0.0", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, run := range runs {
		if err := db.SaveRun(run); err != nil {
			t.Fatalf("Failed to save run %s: %v", run.ID, err)
		}
	}

	result, err := db.ListRuns(RunsQuery{Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if result.TotalCount != 3 || len(result.Runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d (%d)", len(result.Runs), result.TotalCount)
	}
	if result.Runs[0].ID != "run3" {
		t.Errorf("Expected newest run first, got %s", result.Runs[0].ID)
	}

	result, err = db.ListRuns(RunsQuery{Phase: "complete", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("Failed to list complete runs: %v", err)
	}
	if result.TotalCount != 2 {
		t.Errorf("Expected 2 complete runs, got %d", result.TotalCount)
	}

	result, err = db.ListRuns(RunsQuery{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("Failed to list runs with pagination: %v", err)
	}
	if len(result.Runs) != 1 || result.TotalPages != 2 {
		t.Errorf("Expected 1 run on page 2 of 2, got %d runs, %d pages", len(result.Runs), result.TotalPages)
	}
	if result.Runs[0].ID != "run1" {
		t.Errorf("Expected oldest run on last page, got %s", result.Runs[0].ID)
	}
}

func TestActionJournal(t *testing.T) {
	db := newTestDB(t)

	if err := db.SaveRun(&Run{ID: "run1", ServerSeedHash: "h", ClientSeed: "c", Phase: "new", EngineVersion: "1.0.0"}); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	actions := []*Action{
		{RunID: "run1", Seq: 2, Action: "pull_orb", Accepted: true},
		{RunID: "run1", Seq: 1, Action: "start_game", Accepted: true},
		{RunID: "run1", Seq: 3, Action: "buy_orb", Slot: 4, Error: "not in the shop"},
	}
	for _, a := range actions {
		if err := db.AppendAction(a); err != nil {
			t.Fatalf("Failed to append action %d: %v", a.Seq, err)
		}
		if a.ID == 0 {
			t.Errorf("Expected ID assigned for seq %d", a.Seq)
		}
	}

	if err := db.AppendAction(&Action{RunID: "run1", Seq: 2, Action: "pull_orb"}); err == nil {
		t.Error("Expected duplicate seq to be rejected")
	}

	got, err := db.ListActions("run1")
	if err != nil {
		t.Fatalf("Failed to list actions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 actions, got %d", len(got))
	}
	for i, a := range got {
		if a.Seq != i+1 {
			t.Errorf("Action %d has seq %d", i, a.Seq)
		}
	}
	if got[2].Accepted || got[2].Error != "not in the shop" || got[2].Slot != 4 {
		t.Errorf("Rejected action not round-tripped: %+v", got[2])
	}

	empty, err := db.ListActions("other")
	if err != nil {
		t.Fatalf("Failed to list actions: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no actions, got %d", len(empty))
	}
}

func TestMigrationIdempotency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orbs.db")

	db, err := NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	for i := 0; i < 3; i++ {
		if err := db.Migrate(); err != nil {
			t.Fatalf("Migration %d failed: %v", i+1, err)
		}
	}

	run := &Run{ID: "migration-test", ServerSeedHash: "h", ClientSeed: "c", Phase: "new", EngineVersion: "1.0.0"}
	if err := db.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run after multiple migrations: %v", err)
	}
	if _, err := db.GetRun("migration-test"); err != nil {
		t.Fatalf("Failed to get run after multiple migrations: %v", err)
	}
}
