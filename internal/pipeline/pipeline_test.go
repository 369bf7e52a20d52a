package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/concordlabs/concord/internal/contract"
	"github.com/concordlabs/concord/internal/fileset"
	"github.com/concordlabs/concord/internal/repair"
	"github.com/concordlabs/concord/internal/validate"
)

// countingRepairer records invocations and optionally applies a patch.
type countingRepairer struct {
	calls int
	apply func(set *fileset.Set)
	err   error
}

func (c *countingRepairer) Repair(ctx context.Context, set *fileset.Set, model *contract.Model, report *validate.Report) (*repair.Result, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if c.apply != nil {
		c.apply(set)
	}
	return &repair.Result{Applied: 1}, nil
}

func consistentSet() *fileset.Set {
	return fileset.FromFiles(
		contract.SourceFile{Path: "main.js", Role: contract.RolePrivileged,
			Text: "ipcMain.handle('task:add', async (event, data) => {\n  return add(data);\n});\n"},
		contract.SourceFile{Path: "preload.js", Role: contract.RoleBridge,
			Text: "addTask: (data) => ipcRenderer.invoke('task:add', data),\n"},
	)
}

func specModel() *contract.Model {
	return &contract.Model{Endpoints: []contract.ContractEndpoint{{
		Name:   "task:add",
		Origin: contract.OriginSpec,
	}}}
}

func TestRun_ValidProjectStopsAfterValidation(t *testing.T) {
	repairer := &countingRepairer{}
	p := New(nil, nil, repairer)

	rr, err := p.RunSet(context.Background(), consistentSet(), specModel(), false)
	if err != nil {
		t.Fatalf("RunSet() error = %v", err)
	}
	if rr.Status != StatusValid {
		t.Errorf("status = %q, want valid", rr.Status)
	}
	if len(rr.Stages) != 1 {
		t.Errorf("stages = %d, want 1 (no repair needed)", len(rr.Stages))
	}
	if repairer.calls != 0 {
		t.Errorf("repairer called %d times on a valid project", repairer.calls)
	}
}

func TestRun_AutoFixResolvesWithoutModel(t *testing.T) {
	set := fileset.FromFiles(
		contract.SourceFile{Path: "main.js", Role: contract.RolePrivileged,
			Text: "ipcMain.handle('task:add', async (event, data) => {\n  return add(data);\n});\n"},
		contract.SourceFile{Path: "preload.js", Role: contract.RoleBridge,
			Text: "addTask: (data) => ipcRenderer.invoke('add-task', data),\n"},
	)
	repairer := &countingRepairer{}
	p := New(nil, nil, repairer)

	rr, err := p.RunSet(context.Background(), set, specModel(), false)
	if err != nil {
		t.Fatalf("RunSet() error = %v", err)
	}
	if rr.Status != StatusValid {
		t.Fatalf("status = %q, want valid; final issues: %+v", rr.Status, rr.Final.All())
	}
	if repairer.calls != 0 {
		t.Errorf("model consulted although mechanical fixes sufficed")
	}
	if rr.FixCount() == 0 {
		t.Error("no mechanical fixes recorded")
	}
	if rr.IssuesBefore() == 0 {
		t.Error("initial report should carry the naming issues")
	}
}

func TestRun_ModelCalledAtMostOnce(t *testing.T) {
	// A missing element can't be fixed mechanically and the stub repairer
	// doesn't fix it either, so the run must end needs_manual_repair after
	// exactly one model attempt.
	set := fileset.FromFiles(
		contract.SourceFile{Path: "index.html", Role: contract.RoleMarkup, Text: "<div id=\"other\"></div>\n"},
		contract.SourceFile{Path: "renderer.js", Role: contract.RoleUIScript,
			Text: "document.getElementById('ghost');\n"},
	)
	repairer := &countingRepairer{}
	p := New(nil, nil, repairer)

	rr, err := p.RunSet(context.Background(), set, &contract.Model{}, false)
	if err != nil {
		t.Fatalf("RunSet() error = %v", err)
	}
	if repairer.calls != 1 {
		t.Errorf("model calls = %d, want exactly 1", repairer.calls)
	}
	if rr.Status != StatusNeedsManualRepair {
		t.Errorf("status = %q, want needs_manual_repair", rr.Status)
	}
	if rr.IssuesAfter() == 0 {
		t.Error("final report should still carry the unresolved issue")
	}
}

func TestRun_ModelRepairResolves(t *testing.T) {
	set := fileset.FromFiles(
		contract.SourceFile{Path: "index.html", Role: contract.RoleMarkup, Text: "<div id=\"other\"></div>\n"},
		contract.SourceFile{Path: "renderer.js", Role: contract.RoleUIScript,
			Text: "document.getElementById('ghost');\n"},
	)
	repairer := &countingRepairer{apply: func(s *fileset.Set) {
		s.Get("renderer.js").Replace("'ghost'", "'other'")
	}}
	p := New(nil, nil, repairer)

	rr, err := p.RunSet(context.Background(), set, &contract.Model{}, false)
	if err != nil {
		t.Fatalf("RunSet() error = %v", err)
	}
	if rr.Status != StatusValid {
		t.Errorf("status = %q, want valid after model repair; issues: %+v", rr.Status, rr.Final.All())
	}
	if rr.PatchCount() != 1 {
		t.Errorf("patch count = %d, want 1", rr.PatchCount())
	}
}

func TestRun_NoAISkipsModel(t *testing.T) {
	set := fileset.FromFiles(
		contract.SourceFile{Path: "renderer.js", Role: contract.RoleUIScript,
			Text: "document.getElementById('ghost');\n"},
	)
	repairer := &countingRepairer{}
	p := New(nil, nil, repairer)

	rr, err := p.RunSet(context.Background(), set, &contract.Model{}, true)
	if err != nil {
		t.Fatalf("RunSet() error = %v", err)
	}
	if repairer.calls != 0 {
		t.Errorf("model called despite no-AI mode")
	}
	if rr.Status != StatusNeedsManualRepair {
		t.Errorf("status = %q, want needs_manual_repair", rr.Status)
	}
}

func TestRun_RepairerErrorLeavesFilesIntact(t *testing.T) {
	set := fileset.FromFiles(
		contract.SourceFile{Path: "renderer.js", Role: contract.RoleUIScript,
			Text: "document.getElementById('ghost');\n"},
	)
	repairer := &countingRepairer{err: fmt.Errorf("model unavailable")}
	p := New(nil, nil, repairer)

	rr, err := p.RunSet(context.Background(), set, &contract.Model{}, false)
	if err != nil {
		t.Fatalf("RunSet() error = %v (repair failure must not fail the run)", err)
	}
	if rr.Status != StatusNeedsManualRepair {
		t.Errorf("status = %q, want needs_manual_repair", rr.Status)
	}
	if set.Get("renderer.js").Text() != "document.getElementById('ghost');\n" {
		t.Error("files mutated despite repair failure")
	}
}

func TestRunReport_Counts(t *testing.T) {
	rr := &RunReport{}
	if rr.IssuesBefore() != 0 || rr.IssuesAfter() != 0 || rr.FixCount() != 0 || rr.PatchCount() != 0 {
		t.Error("zero-value report should count zero everywhere")
	}
}
