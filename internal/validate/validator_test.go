package validate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/concordlabs/concord/internal/contract"
	"github.com/concordlabs/concord/internal/extract"
)

func mention(endpoint, file string, role contract.FileRole, side extract.Side, shape *contract.ShapeDescriptor) extract.Mention {
	return extract.Mention{
		Endpoint:    endpoint,
		Literal:     endpoint,
		File:        file,
		Role:        role,
		Side:        side,
		Shape:       shape,
		Occurrences: []extract.Occurrence{{Line: 1}},
	}
}

func specEndpoint(name string, shape *contract.ShapeDescriptor) contract.ContractEndpoint {
	return contract.ContractEndpoint{
		Name:           name,
		Producers:      []contract.FileRef{{Path: "main.js", Role: contract.RolePrivileged}},
		Consumers:      []contract.FileRef{{Path: "renderer.js", Role: contract.RoleUIScript}},
		ParameterShape: shape,
		Origin:         contract.OriginSpec,
	}
}

func TestValidate_ConsistentProject(t *testing.T) {
	model := &contract.Model{Endpoints: []contract.ContractEndpoint{specEndpoint("task:add", nil)}}
	mentions := []extract.Mention{
		mention("task:add", "main.js", contract.RolePrivileged, extract.SideProducer, nil),
		mention("task:add", "preload.js", contract.RoleBridge, extract.SideConsumer, nil),
	}

	report := New(nil).Validate(model, mentions)
	if !report.IsValid {
		t.Fatalf("report invalid, issues: %+v", report.All())
	}
	if report.Summary.TotalIssues != 0 {
		t.Errorf("totalIssues = %d, want 0", report.Summary.TotalIssues)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	model := &contract.Model{Endpoints: []contract.ContractEndpoint{specEndpoint("task:add", nil)}}
	mentions := []extract.Mention{
		mention("addTask", "preload.js", contract.RoleBridge, extract.SideConsumer, nil),
	}

	v := New(nil)
	first := v.Validate(model, mentions)
	second := v.Validate(model, mentions)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated validation differs (-first +second):\n%s", diff)
	}
}

func TestValidate_MissingChannel(t *testing.T) {
	model := &contract.Model{Endpoints: []contract.ContractEndpoint{specEndpoint("task:remove", nil)}}
	report := New(nil).Validate(model, nil)
	if n := report.CountByKind(contract.IssueMissingChannel); n != 1 {
		t.Errorf("missingChannels = %d, want 1", n)
	}
}

func TestValidate_MissingProducerAndConsumer(t *testing.T) {
	model := &contract.Model{Endpoints: []contract.ContractEndpoint{
		specEndpoint("task:add", nil),
		specEndpoint("task:list", nil),
	}}
	mentions := []extract.Mention{
		// task:add is only invoked, task:list only handled.
		mention("task:add", "preload.js", contract.RoleBridge, extract.SideConsumer, nil),
		mention("task:list", "main.js", contract.RolePrivileged, extract.SideProducer, nil),
	}
	report := New(nil).Validate(model, mentions)
	if n := report.CountByKind(contract.IssueMissingProducer); n != 1 {
		t.Errorf("missingProducers = %d, want 1", n)
	}
	if n := report.CountByKind(contract.IssueMissingConsumer); n != 1 {
		t.Errorf("missingConsumers = %d, want 1", n)
	}
}

func TestValidate_CrossFileNameMismatchStillCorrelates(t *testing.T) {
	model := &contract.Model{Endpoints: []contract.ContractEndpoint{specEndpoint("task:add", nil)}}
	mentions := []extract.Mention{
		mention("task:add", "main.js", contract.RolePrivileged, extract.SideProducer, nil),
		{Endpoint: "add-task", Literal: "add-task", File: "preload.js", Role: contract.RoleBridge,
			Side: extract.SideConsumer, Occurrences: []extract.Occurrence{{Line: 2}}},
	}
	report := New(nil).Validate(model, mentions)

	// The two forms correlate to one endpoint, so neither side is missing.
	if n := report.CountByKind(contract.IssueMissingProducer); n != 0 {
		t.Errorf("missingProducers = %d, want 0", n)
	}
	if n := report.CountByKind(contract.IssueMissingConsumer); n != 0 {
		t.Errorf("missingConsumers = %d, want 0", n)
	}
	// But the divergent literal is a name mismatch, and two forms in use
	// is a style warning.
	if n := report.CountByKind(contract.IssueNameMismatch); n != 1 {
		t.Errorf("nameMismatches = %d, want 1", n)
	}
	if n := report.CountByKind(contract.IssueNamingStyleMismatch); n != 1 {
		t.Errorf("namingStyleMismatches = %d, want 1", n)
	}
}

func TestValidate_ParameterMismatch(t *testing.T) {
	destructured := &contract.ShapeDescriptor{Kind: contract.ShapeDestructured, Fields: []string{"title", "priority"}}
	positional := &contract.ShapeDescriptor{Kind: contract.ShapePositional, Arity: 2}

	tests := []struct {
		name      string
		spec      *contract.ShapeDescriptor
		producer  *contract.ShapeDescriptor
		consumer  *contract.ShapeDescriptor
		wantCount int
	}{
		{
			name:      "destructured producer vs positional consumer",
			producer:  destructured,
			consumer:  positional,
			wantCount: 1,
		},
		{
			name:      "spec shape overrides producer",
			spec:      positional,
			producer:  destructured,
			consumer:  positional,
			wantCount: 1,
		},
		{
			name:      "nil consumer shape is skipped",
			producer:  destructured,
			consumer:  nil,
			wantCount: 0,
		},
		{
			name:      "matching shapes",
			producer:  destructured,
			consumer:  &contract.ShapeDescriptor{Kind: contract.ShapeDestructured, Fields: []string{"priority", "title"}},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &contract.Model{Endpoints: []contract.ContractEndpoint{specEndpoint("task:add", tt.spec)}}
			mentions := []extract.Mention{
				mention("task:add", "main.js", contract.RolePrivileged, extract.SideProducer, tt.producer),
				mention("task:add", "preload.js", contract.RoleBridge, extract.SideConsumer, tt.consumer),
			}
			report := New(nil).Validate(model, mentions)
			if n := report.CountByKind(contract.IssueParameterMismatch); n != tt.wantCount {
				t.Errorf("parameterMismatches = %d, want %d", n, tt.wantCount)
			}
		})
	}
}

func TestValidate_AtMostOneParameterMismatchPerEndpoint(t *testing.T) {
	destructured := &contract.ShapeDescriptor{Kind: contract.ShapeDestructured, Fields: []string{"title"}}
	model := &contract.Model{Endpoints: []contract.ContractEndpoint{specEndpoint("task:add", destructured)}}
	mentions := []extract.Mention{
		mention("task:add", "main.js", contract.RolePrivileged, extract.SideProducer, &contract.ShapeDescriptor{Kind: contract.ShapePositional, Arity: 1}),
		mention("task:add", "preload.js", contract.RoleBridge, extract.SideConsumer, &contract.ShapeDescriptor{Kind: contract.ShapePositional, Arity: 3}),
		mention("task:add", "renderer.js", contract.RoleUIScript, extract.SideConsumer, &contract.ShapeDescriptor{Kind: contract.ShapeSingle}),
	}
	report := New(nil).Validate(model, mentions)
	if n := report.CountByKind(contract.IssueParameterMismatch); n != 1 {
		t.Errorf("parameterMismatches = %d, want exactly 1 per endpoint", n)
	}
}

func TestValidate_InferredEndpoints(t *testing.T) {
	// No spec at all: observed contracts must still be consistent with
	// each other.
	mentions := []extract.Mention{
		mention("notes:save", "main.js", contract.RolePrivileged, extract.SideProducer, nil),
		mention("notes:load", "preload.js", contract.RoleBridge, extract.SideConsumer, nil),
	}
	report := New(nil).Validate(&contract.Model{}, mentions)
	if n := report.CountByKind(contract.IssueMissingConsumer); n != 1 {
		t.Errorf("missingConsumers = %d, want 1 (notes:save handled but never invoked)", n)
	}
	if n := report.CountByKind(contract.IssueMissingProducer); n != 1 {
		t.Errorf("missingProducers = %d, want 1 (notes:load invoked but never handled)", n)
	}
}

func domElement(kind, name, snippet string) extract.Mention {
	return extract.Mention{
		Endpoint: name, Literal: name, File: "index.html", Role: contract.RoleMarkup,
		Side: extract.SideElement, SelectorKind: kind,
		Occurrences: []extract.Occurrence{{Line: 1, Snippet: snippet}},
	}
}

func domQuery(kind, name string) extract.Mention {
	return extract.Mention{
		Endpoint: name, Literal: name, File: "renderer.js", Role: contract.RoleUIScript,
		Side: extract.SideConsumer, SelectorKind: kind,
		Occurrences: []extract.Occurrence{{Line: 5}},
	}
}

func TestValidate_DomCaseSensitivity(t *testing.T) {
	mentions := []extract.Mention{
		domElement("id", "Select-Mode", `id="Select-Mode"`),
		domQuery("id", "select-mode"),
	}
	report := New(nil).Validate(&contract.Model{}, mentions)
	if n := report.CountByKind(contract.IssueDomSelectorMismatch); n != 1 {
		t.Fatalf("selectIssues = %d, want 1 (case differs)", n)
	}
	issue := report.Issues.SelectIssues[0]
	// Evidence carries the declaration too, so the fixer can pair query
	// and element.
	if len(issue.Evidence) != 2 {
		t.Errorf("evidence entries = %d, want 2 (query + declaration)", len(issue.Evidence))
	}
}

func TestValidate_DomExactMatchIsClean(t *testing.T) {
	mentions := []extract.Mention{
		domElement("id", "task-list", `id="task-list"`),
		domQuery("id", "task-list"),
	}
	report := New(nil).Validate(&contract.Model{}, mentions)
	if !report.IsValid {
		t.Errorf("report invalid, issues: %+v", report.All())
	}
}

func TestValidate_DomMissingElement(t *testing.T) {
	model := &contract.Model{Dom: []contract.DomContract{{Selector: "#status-bar", Purpose: "status display"}}}
	mentions := []extract.Mention{
		domQuery("id", "ghost"),
	}
	report := New(nil).Validate(model, mentions)
	// One for the unmatched query, one for the unmet spec contract.
	if n := report.CountByKind(contract.IssueDomSelectorMismatch); n != 2 {
		t.Errorf("selectIssues = %d, want 2", n)
	}
}

func TestValidate_ClassAndIDNamespacesAreSeparate(t *testing.T) {
	mentions := []extract.Mention{
		domElement("class", "hidden", `class="hidden"`),
		domQuery("id", "hidden"),
	}
	report := New(nil).Validate(&contract.Model{}, mentions)
	if n := report.CountByKind(contract.IssueDomSelectorMismatch); n != 1 {
		t.Errorf("selectIssues = %d, want 1 (a class does not satisfy an id query)", n)
	}
}
