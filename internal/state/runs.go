package state

import (
	"database/sql"
	"fmt"
	"time"
)

// RunStatus represents the terminal state of a verification run.
type RunStatus string

const (
	RunRunning      RunStatus = "running"
	RunValid        RunStatus = "valid"
	RunManualRepair RunStatus = "needs_manual_repair"
	RunFailed       RunStatus = "failed"
)

// Run records one verification run: issue counts before and after repair,
// fix and patch counts, token usage, and the final report as JSON.
type Run struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	Status       RunStatus  `json:"status"`
	IssuesBefore int        `json:"issues_before"`
	IssuesAfter  int        `json:"issues_after"`
	FixesApplied int        `json:"fixes_applied"`
	AIPatches    int        `json:"ai_patches"`
	TokensIn     int64      `json:"tokens_in"`
	TokensOut    int64      `json:"tokens_out"`
	ReportJSON   string     `json:"report_json"`
}

// SaveRun inserts or replaces a run record.
func (db *DB) SaveRun(r *Run) error {
	var finished any
	if r.FinishedAt != nil {
		finished = formatTime(*r.FinishedAt)
	}
	_, err := db.Exec(`
		INSERT OR REPLACE INTO runs
			(id, started_at, finished_at, status, issues_before, issues_after,
			 fixes_applied, ai_patches, tokens_in, tokens_out, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, formatTime(r.StartedAt), finished, string(r.Status),
		r.IssuesBefore, r.IssuesAfter, r.FixesApplied, r.AIPatches,
		r.TokensIn, r.TokensOut, r.ReportJSON)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil when no run matches.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, started_at, finished_at, status, issues_before, issues_after,
		       fixes_applied, ai_patches, tokens_in, tokens_out, report_json
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// LatestRun retrieves the most recently started run. Returns nil when the
// history is empty.
func (db *DB) LatestRun() (*Run, error) {
	row := db.QueryRow(`
		SELECT id, started_at, finished_at, status, issues_before, issues_after,
		       fixes_applied, ai_patches, tokens_in, tokens_out, report_json
		FROM runs ORDER BY started_at DESC LIMIT 1
	`)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// ListRuns retrieves up to limit runs, most recent first.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	rows, err := db.Query(`
		SELECT id, started_at, finished_at, status, issues_before, issues_after,
		       fixes_applied, ai_patches, tokens_in, tokens_out, report_json
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var started string
	var finished sql.NullString
	err := row.Scan(&r.ID, &started, &finished, &r.Status,
		&r.IssuesBefore, &r.IssuesAfter, &r.FixesApplied, &r.AIPatches,
		&r.TokensIn, &r.TokensOut, &r.ReportJSON)
	if err != nil {
		return nil, err
	}
	r.StartedAt, _ = parseTime(started)
	r.FinishedAt = parseNullableTime(finished)
	return &r, nil
}
