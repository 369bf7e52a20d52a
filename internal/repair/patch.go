package repair

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Patch is one exact search/replace edit proposed by the model.
type Patch struct {
	File    string `json:"file"`
	Search  string `json:"search"`
	Replace string `json:"replace"`
}

// PatchSet is the structured patch set requested from the model. Full-file
// rewrites are never accepted; only search/replace edits.
type PatchSet struct {
	Patches []Patch `json:"patches"`
}

// ParsePatchSet parses the model's response tolerantly: a fenced code block
// or bare JSON, with surrounding prose ignored. The model is an untrusted
// oracle, so the result still goes through Validate before any file is
// touched.
func ParsePatchSet(response string) (*PatchSet, error) {
	response = strings.TrimSpace(response)

	// Handle markdown code blocks
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
		if idx := strings.LastIndex(response, "```"); idx != -1 {
			response = response[:idx]
		}
		response = strings.TrimSpace(response)
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		if idx := strings.LastIndex(response, "```"); idx != -1 {
			response = response[:idx]
		}
		response = strings.TrimSpace(response)
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	response = response[start : end+1]

	var set PatchSet
	if err := json.Unmarshal([]byte(response), &set); err != nil {
		return nil, fmt.Errorf("unmarshal patch set: %w", err)
	}
	return &set, nil
}

// Validate checks the patch set against the known file paths before any
// mutation: every patch needs a known file and a non-empty search string.
func (s *PatchSet) Validate(knownFiles map[string]bool) error {
	if len(s.Patches) == 0 {
		return fmt.Errorf("patch set contains no patches")
	}
	for i, p := range s.Patches {
		if p.File == "" {
			return fmt.Errorf("patch %d has no target file", i)
		}
		if !knownFiles[p.File] {
			return fmt.Errorf("patch %d targets unknown file %q", i, p.File)
		}
		if p.Search == "" {
			return fmt.Errorf("patch %d for %s has an empty search string", i, p.File)
		}
	}
	return nil
}
