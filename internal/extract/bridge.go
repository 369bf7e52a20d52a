package extract

import (
	"regexp"
	"strings"

	"github.com/concordlabs/concord/internal/contract"
)

// bridgeStrategy scans bridge files for forwarding calls of the form
// ipcRenderer.invoke('channel', args) and ipcRenderer.send('channel', args).
type bridgeStrategy struct{}

func (bridgeStrategy) Role() contract.FileRole { return contract.RoleBridge }

var forwardRe = regexp.MustCompile(`ipcRenderer\s*\.\s*(invoke|send|on)\s*\(\s*["'` + "`" + `]([\w:.-]+)["'` + "`" + `]`)

func (bridgeStrategy) Extract(file contract.SourceFile) ([]Mention, error) {
	text := blankJSComments(file.Text)
	var mentions []Mention
	for _, idx := range forwardRe.FindAllStringSubmatchIndex(text, -1) {
		start := idx[0]
		matched := text[start:idx[1]]
		channel := text[idx[4]:idx[5]]

		snippet := matched
		var shape *contract.ShapeDescriptor
		open := start + strings.Index(matched, "(")
		if inner, end, ok := ScanBalanced(text, open); ok {
			snippet = file.Text[start:end]
			if parts := SplitArgs(inner); len(parts) > 1 {
				shape = shapeOf(strings.Join(parts[1:], ", "), false)
			}
		}

		mentions = append(mentions, Mention{
			Endpoint: channel,
			Literal:  channel,
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
	return mentions, nil
}
