package autofix

import (
	"fmt"

	"github.com/concordlabs/concord/internal/contract"
	"github.com/concordlabs/concord/internal/fileset"
)

// Entry is one applied or unresolved fix in the patch report.
type Entry struct {
	Type        string `json:"type"`
	File        string `json:"file"`
	Description string `json:"description"`
}

// Result is the patch report: what was fixed, what could not be, and the
// counts.
type Result struct {
	Fixed        []Entry `json:"fixed"`
	Unresolved   []Entry `json:"unresolved"`
	SuccessCount int     `json:"successCount"`
	FailCount    int     `json:"failCount"`
}

func (r *Result) record(action contract.FixAction, ok bool, note string) {
	entry := Entry{
		Type:        string(action.Type),
		File:        action.File,
		Description: note,
	}
	if ok {
		r.Fixed = append(r.Fixed, entry)
		r.SuccessCount++
	} else {
		r.Unresolved = append(r.Unresolved, entry)
		r.FailCount++
	}
}

// Apply runs every fix action against the set. Each fix is a single
// read-modify-write pass on its file, serialized by the file's lock.
// A search string absent from current content means the file diverged since
// validation: the fix is skipped and recorded as unresolved, never
// partially applied. Unknown target files are unresolved as well.
func Apply(set *fileset.Set, actions []contract.FixAction) *Result {
	result := &Result{}
	for _, action := range actions {
		file := set.Get(action.File)
		if file == nil {
			result.record(action, false, fmt.Sprintf("target file %s not in set", action.File))
			continue
		}
		switch action.Type {
		case contract.FixRename:
			n := file.ReplaceAllBounded(action.Search, action.Replace)
			if n == 0 {
				result.record(action, false, fmt.Sprintf("no bounded occurrence of %q remains", action.Search))
				continue
			}
			result.record(action, true, fmt.Sprintf("renamed %q to %q (%d occurrence(s))", action.Search, action.Replace, n))
		default:
			if action.Search == "" {
				file.Append(action.Replace)
				result.record(action, true, action.Rationale)
				continue
			}
			if !file.Replace(action.Search, action.Replace) {
				result.record(action, false, "search text diverged since validation")
				continue
			}
			result.record(action, true, action.Rationale)
		}
	}
	return result
}
