package validate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyStyle(t *testing.T) {
	tests := []struct {
		literal string
		want    Style
	}{
		{"task:add", StyleColon},
		{"add-task", StyleKebab},
		{"add_task", StyleSnake},
		{"addTask", StyleCamel},
		{"task", StyleUnknown},
		{"task:add-all", StyleColon},
	}
	for _, tt := range tests {
		if got := ClassifyStyle(tt.literal); got != tt.want {
			t.Errorf("ClassifyStyle(%q) = %q, want %q", tt.literal, got, tt.want)
		}
	}
}

func TestTokens(t *testing.T) {
	tests := []struct {
		literal string
		want    []string
	}{
		{"task:add", []string{"task", "add"}},
		{"add-task", []string{"add", "task"}},
		{"addTask", []string{"add", "task"}},
		{"SAVE_NOTE", []string{"save", "note"}},
		{"save_note", []string{"save", "note"}},
		{"window:resize2x", []string{"window", "resize2x"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Tokens(tt.literal)); diff != "" {
			t.Errorf("Tokens(%q) mismatch (-want +got):\n%s", tt.literal, diff)
		}
	}
}

func TestKeyCorrelatesEquivalentForms(t *testing.T) {
	equivalent := []string{"task:add", "add-task", "addTask", "add_task", "taskAdd"}
	base := Key(equivalent[0])
	for _, form := range equivalent[1:] {
		if Key(form) != base {
			t.Errorf("Key(%q) = %q, want same as Key(%q) = %q", form, Key(form), equivalent[0], base)
		}
	}
	if Key("task:remove") == base {
		t.Error("distinct endpoints must not share a correlation key")
	}
}

func TestPreferSpec(t *testing.T) {
	observed := []ObservedForm{
		{Literal: "add-task", Count: 3},
		{Literal: "task:add", Count: 1},
	}
	if got := PreferSpec("task:add", observed); got != "task:add" {
		t.Errorf("PreferSpec with spec literal = %q, want task:add", got)
	}
	if got := PreferSpec("", observed); got != "add-task" {
		t.Errorf("PreferSpec without spec literal = %q, want majority add-task", got)
	}
}

func TestMajorityVote(t *testing.T) {
	tests := []struct {
		name     string
		observed []ObservedForm
		want     string
	}{
		{
			name: "majority wins",
			observed: []ObservedForm{
				{Literal: "addTask", Count: 1},
				{Literal: "task:add", Count: 4},
			},
			want: "task:add",
		},
		{
			name: "tie breaks toward kebab",
			observed: []ObservedForm{
				{Literal: "task:add", Count: 2},
				{Literal: "add-task", Count: 2},
			},
			want: "add-task",
		},
		{
			name: "tie among same style breaks lexicographically",
			observed: []ObservedForm{
				{Literal: "task:add", Count: 2},
				{Literal: "addTask", Count: 2},
			},
			want: "addTask",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MajorityVote("", tt.observed); got != tt.want {
				t.Errorf("MajorityVote() = %q, want %q", got, tt.want)
			}
		})
	}
}
