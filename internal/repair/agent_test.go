package repair

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/concordlabs/concord/internal/contract"
	"github.com/concordlabs/concord/internal/extract"
	"github.com/concordlabs/concord/internal/fileset"
	"github.com/concordlabs/concord/internal/validate"
)

// stubRunner returns a canned response and records how often it was called.
type stubRunner struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (s *stubRunner) RunPrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, userPrompt)
	return s.response, s.err
}

func brokenProject(t *testing.T) (*fileset.Set, *contract.Model, *validate.Report) {
	t.Helper()
	set := fileset.FromFiles(
		contract.SourceFile{Path: "main.js", Role: contract.RolePrivileged,
			Text: "ipcMain.handle('task:add', async (event, data) => {\n  return add(data);\n});\n"},
		contract.SourceFile{Path: "preload.js", Role: contract.RoleBridge,
			Text: "loadTasks: () => ipcRenderer.invoke('task:list'),\n"},
	)
	model := &contract.Model{Endpoints: []contract.ContractEndpoint{{
		Name:   "task:add",
		Origin: contract.OriginSpec,
	}}}
	report := validate.New(nil).Validate(model, extract.Files(set.Snapshot()))
	if report.IsValid {
		t.Fatal("fixture project should have issues")
	}
	return set, model, report
}

func TestRepair_AppliesValidPatches(t *testing.T) {
	set, model, report := brokenProject(t)
	runner := &stubRunner{
		response: `{"patches": [{"file": "preload.js", "search": "'task:list'", "replace": "'task:add'"}]}`,
	}

	result, err := NewAgent(runner, nil, 0, 0).Repair(context.Background(), set, model, report)
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if runner.calls != 1 {
		t.Errorf("model calls = %d, want exactly 1", runner.calls)
	}
	if result.Applied != 1 || result.NotFound != 0 {
		t.Errorf("applied = %d, notFound = %d; want 1/0", result.Applied, result.NotFound)
	}
	if got := set.Get("preload.js").Text(); got != "loadTasks: () => ipcRenderer.invoke('task:add'),\n" {
		t.Errorf("patch not applied: %s", got)
	}
}

func TestRepair_GarbageResponseMutatesNothing(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "prose only", response: "Sorry, I can't produce patches."},
		{name: "truncated JSON", response: `{"patches": [{"file": "preload.js", "sea`},
		{name: "unknown file", response: `{"patches": [{"file": "../etc/passwd", "search": "x", "replace": "y"}]}`},
		{name: "empty search", response: `{"patches": [{"file": "preload.js", "search": "", "replace": "y"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, model, report := brokenProject(t)
			before := set.Get("preload.js").Text()

			_, err := NewAgent(&stubRunner{response: tt.response}, nil, 0, 0).Repair(context.Background(), set, model, report)
			if err == nil {
				t.Fatal("Repair() should fail for an unusable response")
			}
			if set.Get("preload.js").Text() != before {
				t.Error("file mutated despite rejected response")
			}
		})
	}
}

func TestRepair_RunnerErrorPropagates(t *testing.T) {
	set, model, report := brokenProject(t)
	runner := &stubRunner{err: fmt.Errorf("rate limited")}
	_, err := NewAgent(runner, nil, 0, 0).Repair(context.Background(), set, model, report)
	if err == nil {
		t.Fatal("Repair() should propagate runner errors")
	}
}

func TestRepair_DivergedSearchCountsNotFound(t *testing.T) {
	set, model, report := brokenProject(t)
	runner := &stubRunner{
		response: `{"patches": [{"file": "preload.js", "search": "text that is not there", "replace": "x"}]}`,
	}
	result, err := NewAgent(runner, nil, 0, 0).Repair(context.Background(), set, model, report)
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if result.Applied != 0 || result.NotFound != 1 {
		t.Errorf("applied = %d, notFound = %d; want 0/1", result.Applied, result.NotFound)
	}
}

func TestRepair_CleanReportSkipsModelCall(t *testing.T) {
	set := fileset.FromFiles(contract.SourceFile{Path: "main.js", Role: contract.RolePrivileged, Text: ""})
	runner := &stubRunner{response: "{}"}
	result, err := NewAgent(runner, nil, 0, 0).Repair(context.Background(), set, &contract.Model{}, &validate.Report{IsValid: true})
	if err != nil {
		t.Fatalf("Repair() error = %v", err)
	}
	if runner.calls != 0 {
		t.Errorf("model calls = %d, want 0 for a clean report", runner.calls)
	}
	if result.Applied != 0 {
		t.Errorf("applied = %d, want 0", result.Applied)
	}
}

func TestBuildPrompt_CarriesIssuesAndContracts(t *testing.T) {
	set, model, report := brokenProject(t)
	prompt := buildPrompt(set.Snapshot(), model, report, 16000)

	for _, want := range []string{"task:add", "preload.js", "Outstanding issues"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPrompt_RespectsTokenBudget(t *testing.T) {
	set, model, report := brokenProject(t)
	small := buildPrompt(set.Snapshot(), model, report, 150)
	large := buildPrompt(set.Snapshot(), model, report, 16000)
	if len(small) >= len(large) {
		t.Errorf("tight budget did not shrink the prompt: %d vs %d chars", len(small), len(large))
	}
}
