// Package extract recovers the contracts actually present in a set of
// generated files. Each file role has a dedicated strategy that scans for
// role-appropriate syntactic mentions; all strategies return the same
// Mention record so the validator can diff them uniformly.
//
// Extraction is regex-driven structural pattern matching, not host-language
// parsing. It tolerates quote-style and whitespace variance and excludes
// comments on a best-effort basis.
package extract

import (
	"fmt"
	"strings"

	"github.com/concordlabs/concord/internal/contract"
)

// Side distinguishes which end of a contract a mention sits on.
type Side string

const (
	// SideProducer implements the handling side of an endpoint.
	SideProducer Side = "producer"
	// SideConsumer invokes an endpoint or queries a selector.
	SideConsumer Side = "consumer"
	// SideElement declares a markup element scripts may query.
	SideElement Side = "element"
)

// Occurrence records one concrete appearance of a mention in a file.
type Occurrence struct {
	// Line is the 1-indexed line of the occurrence.
	Line int
	// Snippet is the exact source text matched, usable as a search string.
	Snippet string
}

// Mention is one raw contract mention recovered from a file. Duplicate
// mentions of the same endpoint within one file are merged into a single
// entry carrying multiple occurrences; they only conflict if their shapes
// differ, in which case they stay separate entries.
type Mention struct {
	// Endpoint is the endpoint name or bare selector referenced.
	Endpoint string
	// Literal is the textual form as written in the file.
	Literal string
	// File is the path of the file containing the mention.
	File string
	// Role is the file's contract role.
	Role contract.FileRole
	// Side is the contract side this mention sits on.
	Side Side
	// Shape is the observed parameter shape, if the mention carries one.
	Shape *contract.ShapeDescriptor
	// SelectorKind is "id" or "class" for DOM mentions, empty otherwise.
	SelectorKind string
	// Tag is the element tag for markup mentions.
	Tag string
	// Attributes holds the declared attributes for markup mentions.
	Attributes map[string]string
	// Occurrences lists every appearance backing this mention.
	Occurrences []Occurrence
}

// IsDom reports whether the mention concerns a DOM contract rather than an
// endpoint contract.
func (m Mention) IsDom() bool {
	return m.SelectorKind != "" || m.Side == SideElement
}

// Evidence converts the mention's first occurrence into issue evidence.
func (m Mention) Evidence() contract.Evidence {
	line := 0
	if len(m.Occurrences) > 0 {
		line = m.Occurrences[0].Line
	}
	return contract.Evidence{
		File:       m.File,
		Role:       m.Role,
		Literal:    m.Literal,
		LineOffset: line,
		Shape:      m.Shape,
	}
}

// Strategy extracts mentions from files of one role.
type Strategy interface {
	// Role is the file role this strategy understands.
	Role() contract.FileRole
	// Extract scans one file and returns its raw mentions. A structurally
	// unparseable file degrades to zero mentions, never a hard failure.
	Extract(file contract.SourceFile) ([]Mention, error)
}

// ForRole returns the strategy for a file role.
func ForRole(role contract.FileRole) (Strategy, error) {
	switch role {
	case contract.RolePrivileged:
		return privilegedStrategy{}, nil
	case contract.RoleBridge:
		return bridgeStrategy{}, nil
	case contract.RoleUIScript:
		return uiScriptStrategy{}, nil
	case contract.RoleMarkup:
		return markupStrategy{}, nil
	}
	return nil, fmt.Errorf("no extraction strategy for role %q", role)
}

// File extracts and merges the mentions of a single file.
func File(f contract.SourceFile) ([]Mention, error) {
	strat, err := ForRole(f.Role)
	if err != nil {
		return nil, err
	}
	mentions, err := strat.Extract(f)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", f.Path, err)
	}
	return Merge(mentions), nil
}

// Files extracts mentions from every file, merging duplicates per file.
// Per-file extraction failures degrade to zero mentions for that file.
func Files(files []contract.SourceFile) []Mention {
	var all []Mention
	for _, f := range files {
		mentions, err := File(f)
		if err != nil {
			continue
		}
		all = append(all, mentions...)
	}
	return all
}

// Merge coalesces duplicate mentions of the same endpoint within one file.
// Mentions merge when file, side, literal, selector kind, and shape all
// agree; differing shapes stay separate so the validator can see the
// conflict.
func Merge(mentions []Mention) []Mention {
	var merged []Mention
	index := make(map[string]int)
	for _, m := range mentions {
		key := mergeKey(m)
		if i, ok := index[key]; ok {
			merged[i].Occurrences = append(merged[i].Occurrences, m.Occurrences...)
			continue
		}
		index[key] = len(merged)
		merged = append(merged, m)
	}
	return merged
}

func mergeKey(m Mention) string {
	var shape string
	if m.Shape != nil {
		shape = fmt.Sprintf("%s/%d/%s", m.Shape.Kind, m.Shape.Arity, strings.Join(m.Shape.Fields, ","))
	}
	return strings.Join([]string{m.File, string(m.Side), m.Literal, m.SelectorKind, shape}, "\x00")
}

// lineAt returns the 1-indexed line containing byte offset off.
func lineAt(text string, off int) int {
	if off > len(text) {
		off = len(text)
	}
	return 1 + strings.Count(text[:off], "\n")
}
