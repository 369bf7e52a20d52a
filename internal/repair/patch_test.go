package repair

import (
	"testing"
)

func TestParsePatchSet(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  bool
		patches  int
	}{
		{
			name:     "bare JSON",
			response: `{"patches": [{"file": "main.js", "search": "a", "replace": "b"}]}`,
			patches:  1,
		},
		{
			name:     "fenced json block",
			response: "```json\n{\"patches\": [{\"file\": \"main.js\", \"search\": \"a\", \"replace\": \"b\"}]}\n```",
			patches:  1,
		},
		{
			name:     "plain fence",
			response: "```\n{\"patches\": []}\n```",
			patches:  0,
		},
		{
			name: "surrounding prose",
			response: `Here are the fixes:
{"patches": [{"file": "preload.js", "search": "x", "replace": "y"}, {"file": "main.js", "search": "p", "replace": "q"}]}
Let me know if anything else is needed.`,
			patches: 2,
		},
		{
			name:     "no JSON at all",
			response: "I could not determine how to fix this.",
			wantErr:  true,
		},
		{
			name:     "malformed JSON",
			response: `{"patches": [{"file": "main.js" "search": "a"}]}`,
			wantErr:  true,
		},
		{
			name:     "empty response",
			response: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParsePatchSet(tt.response)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePatchSet() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(set.Patches) != tt.patches {
				t.Errorf("patches = %d, want %d", len(set.Patches), tt.patches)
			}
		})
	}
}

func TestPatchSetValidate(t *testing.T) {
	known := map[string]bool{"main.js": true, "preload.js": true}

	tests := []struct {
		name    string
		set     PatchSet
		wantErr bool
	}{
		{
			name: "valid",
			set:  PatchSet{Patches: []Patch{{File: "main.js", Search: "a", Replace: "b"}}},
		},
		{
			name:    "empty patch list",
			set:     PatchSet{},
			wantErr: true,
		},
		{
			name:    "unknown file",
			set:     PatchSet{Patches: []Patch{{File: "evil.js", Search: "a", Replace: "b"}}},
			wantErr: true,
		},
		{
			name:    "empty search",
			set:     PatchSet{Patches: []Patch{{File: "main.js", Search: "", Replace: "b"}}},
			wantErr: true,
		},
		{
			name:    "missing file field",
			set:     PatchSet{Patches: []Patch{{Search: "a", Replace: "b"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate(known)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
