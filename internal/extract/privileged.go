package extract

import (
	"regexp"
	"strings"

	"github.com/concordlabs/concord/internal/contract"
)

// privilegedStrategy scans privileged-process files for handler
// registrations of the form ipcMain.handle('channel', callback) or
// ipcMain.on('channel', callback).
type privilegedStrategy struct{}

func (privilegedStrategy) Role() contract.FileRole { return contract.RolePrivileged }

// registrationRe matches a handler registration up through the channel
// literal and the comma before the callback. Quote style is free.
var registrationRe = regexp.MustCompile(`ipcMain\s*\.\s*(handle|on)\s*\(\s*["'` + "`" + `]([\w:.-]+)["'` + "`" + `]\s*,`)

func (privilegedStrategy) Extract(file contract.SourceFile) ([]Mention, error) {
	text := blankJSComments(file.Text)
	var mentions []Mention
	for _, idx := range registrationRe.FindAllStringSubmatchIndex(text, -1) {
		start := idx[0]
		matched := text[start:idx[1]]
		channel := text[idx[4]:idx[5]]

		snippet := matched
		var shape *contract.ShapeDescriptor
		open := start + strings.Index(matched, "(")
		if inner, end, ok := ScanBalanced(text, open); ok {
			snippet = file.Text[start:end]
			if parts := SplitArgs(inner); len(parts) > 1 {
				shape = shapeOf(CallbackParams(parts[1]), true)
			}
		}

		mentions = append(mentions, Mention{
			Endpoint: channel,
			Literal:  channel,
			File:     file.Path,
			Role:     file.Role,
			Side:     SideProducer,
			Shape:    shape,
			Occurrences: []Occurrence{{
				Line:    lineAt(text, start),
				Snippet: snippet,
			}},
		})
	}
	return mentions, nil
}

// CallbackParams extracts the raw parameter list text of a callback
// expression: arrow functions with or without parentheses, async arrows,
// and classic function expressions.
func CallbackParams(cb string) string {
	cb = strings.TrimSpace(cb)
	cb = strings.TrimSpace(strings.TrimPrefix(cb, "async"))
	if strings.HasPrefix(cb, "function") {
		cb = cb[len("function"):]
		if i := strings.Index(cb, "("); i != -1 {
			cb = cb[i:]
		}
	}
	if strings.HasPrefix(cb, "(") {
		if inner, _, ok := ScanBalanced(cb, 0); ok {
			return inner
		}
		return ""
	}
	// Parenthesis-free single-parameter arrow: event => ...
	if i := strings.Index(cb, "=>"); i != -1 {
		return strings.TrimSpace(cb[:i])
	}
	return ""
}
