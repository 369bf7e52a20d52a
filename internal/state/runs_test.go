package state

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func sampleRun(id string, started time.Time) *Run {
	finished := started.Add(3 * time.Second)
	return &Run{
		ID:           id,
		StartedAt:    started,
		FinishedAt:   &finished,
		Status:       RunValid,
		IssuesBefore: 4,
		IssuesAfter:  0,
		FixesApplied: 3,
		AIPatches:    1,
		TokensIn:     1200,
		TokensOut:    340,
		ReportJSON:   `{"isValid":true}`,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	db := testDB(t)
	started := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	want := sampleRun("run-1", started)

	if err := db.SaveRun(want); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := db.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetRun() returned nil for saved run")
	}
	if got.ID != want.ID || got.Status != want.Status ||
		got.IssuesBefore != want.IssuesBefore || got.IssuesAfter != want.IssuesAfter ||
		got.FixesApplied != want.FixesApplied || got.AIPatches != want.AIPatches ||
		got.TokensIn != want.TokensIn || got.TokensOut != want.TokensOut ||
		got.ReportJSON != want.ReportJSON {
		t.Errorf("GetRun() = %+v, want %+v", got, want)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, started)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(*want.FinishedAt) {
		t.Errorf("finished_at = %v, want %v", got.FinishedAt, want.FinishedAt)
	}
}

func TestGetRunMissing(t *testing.T) {
	db := testDB(t)
	got, err := db.GetRun("nope")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetRun() = %+v, want nil for unknown id", got)
	}
}

func TestSaveRunReplacesExisting(t *testing.T) {
	db := testDB(t)
	started := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	r := sampleRun("run-1", started)
	r.Status = RunRunning
	r.FinishedAt = nil
	if err := db.SaveRun(r); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != RunRunning || got.FinishedAt != nil {
		t.Errorf("in-flight run = %+v, want running with nil finished_at", got)
	}

	// Re-save with the terminal state.
	r = sampleRun("run-1", started)
	r.Status = RunManualRepair
	r.IssuesAfter = 2
	if err := db.SaveRun(r); err != nil {
		t.Fatal(err)
	}
	got, err = db.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != RunManualRepair || got.IssuesAfter != 2 || got.FinishedAt == nil {
		t.Errorf("updated run = %+v", got)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("ListRuns() = %d rows, want 1 after replace", len(runs))
	}
}

func TestListRunsOrderAndLimit(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := db.SaveRun(r); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.ListRuns(3)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRuns(3) = %d rows", len(runs))
	}
	for i, wantID := range []string{"run-4", "run-3", "run-2"} {
		if runs[i].ID != wantID {
			t.Errorf("runs[%d].ID = %s, want %s", i, runs[i].ID, wantID)
		}
	}

	latest, err := db.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if latest == nil || latest.ID != "run-4" {
		t.Errorf("LatestRun() = %+v, want run-4", latest)
	}
}

func TestLatestRunEmpty(t *testing.T) {
	db := testDB(t)
	latest, err := db.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if latest != nil {
		t.Errorf("LatestRun() = %+v, want nil on empty history", latest)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if err := db.SaveRun(sampleRun("run-1", time.Now())); err != nil {
		t.Fatalf("SaveRun() after re-migrate error = %v", err)
	}
}

func TestOpenProject(t *testing.T) {
	root := t.TempDir()
	db, err := OpenProject(root)
	if err != nil {
		t.Fatalf("OpenProject() error = %v", err)
	}
	defer db.Close()
	if db.Path() != filepath.Join(root, ".concord", "state.db") {
		t.Errorf("Path() = %s", db.Path())
	}
}
