package extract

import (
	"regexp"
	"strings"

	"github.com/concordlabs/concord/internal/contract"
)

// uiScriptStrategy scans UI scripts for two mention classes: invocation
// calls on the bridge surface (window.api.saveNote(...)) and DOM selector
// queries (getElementById, querySelector, querySelectorAll).
type uiScriptStrategy struct{}

func (uiScriptStrategy) Role() contract.FileRole { return contract.RoleUIScript }

var (
	invocationRe = regexp.MustCompile(`window\s*\.\s*(?:api|electronAPI|electron|bridge|ipc|backend)\s*\.\s*(\w+)\s*\(`)
	byIDRe       = regexp.MustCompile(`document\s*\.\s*getElementById\s*\(\s*["'` + "`" + `]([\w-]+)["'` + "`" + `]\s*\)`)
	queryRe      = regexp.MustCompile(`\.\s*querySelector(?:All)?\s*\(\s*["'` + "`" + `]([#.]?[\w-]+)["'` + "`" + `]\s*\)`)
)

func (uiScriptStrategy) Extract(file contract.SourceFile) ([]Mention, error) {
	text := blankJSComments(file.Text)
	var mentions []Mention

	for _, idx := range invocationRe.FindAllStringSubmatchIndex(text, -1) {
		start := idx[0]
		method := text[idx[2]:idx[3]]
		snippet := text[start:idx[1]]
		var shape *contract.ShapeDescriptor
		open := idx[1] - 1
		if inner, end, ok := ScanBalanced(text, open); ok {
			snippet = file.Text[start:end]
			shape = shapeOf(inner, false)
		}
		mentions = append(mentions, Mention{
			Endpoint: method,
			Literal:  method,
			File:     file.Path,
			Role:     file.Role,
			Side:     SideConsumer,
			Shape:    shape,
			Occurrences: []Occurrence{{
				Line:    lineAt(text, start),
				Snippet: snippet,
			}},
		})
	}

	for _, idx := range byIDRe.FindAllStringSubmatchIndex(text, -1) {
		id := text[idx[2]:idx[3]]
		mentions = append(mentions, Mention{
			Endpoint:     id,
			Literal:      id,
			File:         file.Path,
			Role:         file.Role,
			Side:         SideConsumer,
			SelectorKind: "id",
			Occurrences: []Occurrence{{
				Line:    lineAt(text, idx[0]),
				Snippet: file.Text[idx[0]:idx[1]],
			}},
		})
	}

	for _, idx := range queryRe.FindAllStringSubmatchIndex(text, -1) {
		sel := text[idx[2]:idx[3]]
		kind := "id"
		if strings.HasPrefix(sel, ".") {
			kind = "class"
		}
		mentions = append(mentions, Mention{
			Endpoint:     contract.StripSelector(sel),
			Literal:      sel,
			File:         file.Path,
			Role:         file.Role,
			Side:         SideConsumer,
			SelectorKind: kind,
			Occurrences: []Occurrence{{
				Line:    lineAt(text, idx[0]),
				Snippet: file.Text[idx[0]:idx[1]],
			}},
		})
	}

	return mentions, nil
}
