package extract

import (
	"regexp"
	"strings"

	"github.com/concordlabs/concord/internal/contract"
)

// markupStrategy scans markup files for elements declaring ids and classes,
// the producer side of DOM contracts.
type markupStrategy struct{}

func (markupStrategy) Role() contract.FileRole { return contract.RoleMarkup }

var (
	tagRe  = regexp.MustCompile(`<([a-zA-Z][\w-]*)((?:[^>"']|"[^"]*"|'[^']*')*)>`)
	attrRe = regexp.MustCompile(`([\w-]+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

func (markupStrategy) Extract(file contract.SourceFile) ([]Mention, error) {
	text := blankHTMLComments(file.Text)
	var mentions []Mention
	for _, idx := range tagRe.FindAllStringSubmatchIndex(text, -1) {
		tag := text[idx[2]:idx[3]]
		attrText := text[idx[4]:idx[5]]
		attrBase := idx[4]

		attrs := make(map[string]string)
		type span struct{ start, end int }
		spans := make(map[string]span)
		for _, a := range attrRe.FindAllStringSubmatchIndex(attrText, -1) {
			name := strings.ToLower(attrText[a[2]:a[3]])
			value := ""
			if a[4] != -1 {
				value = attrText[a[4]:a[5]]
			} else if a[6] != -1 {
				value = attrText[a[6]:a[7]]
			}
			attrs[name] = value
			spans[name] = span{attrBase + a[0], attrBase + a[1]}
		}

		line := lineAt(text, idx[0])
		if id, ok := attrs["id"]; ok && id != "" {
			sp := spans["id"]
			mentions = append(mentions, Mention{
				Endpoint:     id,
				Literal:      id,
				File:         file.Path,
				Role:         file.Role,
				Side:         SideElement,
				SelectorKind: "id",
				Tag:          tag,
				Attributes:   attrs,
				Occurrences: []Occurrence{{
					Line:    line,
					Snippet: file.Text[sp.start:sp.end],
				}},
			})
		}
		if classes, ok := attrs["class"]; ok {
			sp := spans["class"]
			for _, cls := range strings.Fields(classes) {
				mentions = append(mentions, Mention{
					Endpoint:     cls,
					Literal:      cls,
					File:         file.Path,
					Role:         file.Role,
					Side:         SideElement,
					SelectorKind: "class",
					Tag:          tag,
					Attributes:   attrs,
					Occurrences: []Occurrence{{
						Line:    line,
						Snippet: file.Text[sp.start:sp.end],
					}},
				})
			}
		}
	}
	return mentions, nil
}
