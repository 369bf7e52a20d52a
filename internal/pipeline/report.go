package pipeline

import (
	"encoding/json"
	"time"

	"github.com/concordlabs/concord/internal/autofix"
	"github.com/concordlabs/concord/internal/repair"
	"github.com/concordlabs/concord/internal/validate"
)

// Status is the terminal state of a run.
type Status string

const (
	// StatusValid means every contract checked out, possibly after repair.
	StatusValid Status = "valid"
	// StatusNeedsManualRepair means issues survived every repair stage.
	StatusNeedsManualRepair Status = "needs_manual_repair"
)

// StageReport records the issue count left after one stage.
type StageReport struct {
	Name        string        `json:"name"`
	IssuesAfter int           `json:"issuesAfter"`
	Elapsed     time.Duration `json:"elapsed"`
}

// RunReport is the full outcome of one verification run.
type RunReport struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Status     Status        `json:"status"`
	Stages     []StageReport `json:"stages"`

	// Initial is the validation report before any repair.
	Initial *validate.Report `json:"initial"`
	// Final is the validation report after the last stage that ran.
	Final *validate.Report `json:"final"`
	// Fixes is the mechanical patch report, when the fix stage ran.
	Fixes *autofix.Result `json:"fixes,omitempty"`
	// Repair is the model patch result, when the model stage ran.
	Repair *repair.Result `json:"repair,omitempty"`
}

func (rr *RunReport) addStage(name string, report *validate.Report) {
	elapsed := time.Since(rr.StartedAt)
	for _, s := range rr.Stages {
		elapsed -= s.Elapsed
	}
	rr.Stages = append(rr.Stages, StageReport{
		Name:        name,
		IssuesAfter: report.Summary.TotalIssues,
		Elapsed:     elapsed,
	})
}

func (rr *RunReport) finish(status Status, final *validate.Report) {
	rr.Status = status
	rr.Final = final
	rr.FinishedAt = time.Now()
}

// IssuesBefore returns the issue count of the initial validation.
func (rr *RunReport) IssuesBefore() int {
	if rr.Initial == nil {
		return 0
	}
	return rr.Initial.Summary.TotalIssues
}

// IssuesAfter returns the issue count after the last stage.
func (rr *RunReport) IssuesAfter() int {
	if rr.Final == nil {
		return 0
	}
	return rr.Final.Summary.TotalIssues
}

// FixCount returns the number of mechanical fixes applied.
func (rr *RunReport) FixCount() int {
	if rr.Fixes == nil {
		return 0
	}
	return rr.Fixes.SuccessCount
}

// PatchCount returns the number of model patches applied.
func (rr *RunReport) PatchCount() int {
	if rr.Repair == nil {
		return 0
	}
	return rr.Repair.Applied
}

// JSON renders the report in the stable form used for storage and --json
// output.
func (rr *RunReport) JSON() ([]byte, error) {
	return json.MarshalIndent(rr, "", "  ")
}
