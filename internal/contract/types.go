// Package contract defines the contract model shared by the extraction,
// validation, auto-fix, and repair stages: endpoints crossing file or process
// boundaries, DOM contracts between markup and scripts, and the issues and
// fix actions that flow between pipeline stages.
package contract

import (
	"fmt"
	"sort"
	"strings"
)

// FileRole classifies a generated file by its position in the project.
type FileRole string

const (
	// RolePrivileged is the privileged-process file (handler registrations).
	RolePrivileged FileRole = "privileged-process"
	// RoleBridge is the narrow bridge file forwarding calls across the boundary.
	RoleBridge FileRole = "bridge"
	// RoleUIScript is a UI script invoking bridge methods and querying markup.
	RoleUIScript FileRole = "ui-script"
	// RoleMarkup is markup declaring the elements scripts query.
	RoleMarkup FileRole = "markup"
)

// SourceFile is one generated file under validation.
type SourceFile struct {
	// Path identifies the file within the project.
	Path string
	// Text is the current file content.
	Text string
	// Role is the file's contract role.
	Role FileRole
}

// ShapeKind describes how arguments cross an endpoint boundary.
type ShapeKind string

const (
	// ShapeSingle is a single opaque value.
	ShapeSingle ShapeKind = "single"
	// ShapePositional is an ordered argument list.
	ShapePositional ShapeKind = "positional"
	// ShapeDestructured is a single object with named fields.
	ShapeDestructured ShapeKind = "destructured"
)

// ShapeDescriptor is a structural description of how arguments are passed
// across an endpoint. Fields is set for destructured shapes, Arity for
// positional ones.
type ShapeDescriptor struct {
	Kind   ShapeKind `json:"kind" yaml:"kind"`
	Arity  int       `json:"arity,omitempty" yaml:"arity,omitempty"`
	Fields []string  `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Equal reports whether two shapes match structurally: same kind, and same
// arity or field set for the kinds that carry them. Field order is not
// significant.
func (s *ShapeDescriptor) Equal(other *ShapeDescriptor) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Kind != other.Kind {
		return false
	}
	switch s.Kind {
	case ShapePositional:
		return s.Arity == other.Arity
	case ShapeDestructured:
		if len(s.Fields) != len(other.Fields) {
			return false
		}
		a := append([]string(nil), s.Fields...)
		b := append([]string(nil), other.Fields...)
		sort.Strings(a)
		sort.Strings(b)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}
	return true
}

// String renders a shape for human-readable mismatch descriptions.
func (s *ShapeDescriptor) String() string {
	if s == nil {
		return "none"
	}
	switch s.Kind {
	case ShapeSingle:
		return "single value"
	case ShapePositional:
		return fmt.Sprintf("%d positional argument(s)", s.Arity)
	case ShapeDestructured:
		return fmt.Sprintf("destructured object {%s}", strings.Join(s.Fields, ", "))
	}
	return string(s.Kind)
}

// Valid reports whether the descriptor is internally consistent.
func (s *ShapeDescriptor) Valid() bool {
	if s == nil {
		return true
	}
	switch s.Kind {
	case ShapeSingle:
		return true
	case ShapePositional:
		return s.Arity >= 0 && len(s.Fields) == 0
	case ShapeDestructured:
		return len(s.Fields) > 0
	}
	return false
}

// Origin records where an endpoint record came from.
type Origin string

const (
	// OriginSpec marks endpoints declared by the authoritative specification.
	OriginSpec Origin = "spec"
	// OriginInferred marks endpoints recovered only from generated files.
	OriginInferred Origin = "inferred"
)

// FileRef identifies a file (or, for spec-origin records, a role-level
// expectation) participating in a contract.
type FileRef struct {
	Path string   `json:"path" yaml:"path"`
	Role FileRole `json:"role" yaml:"role"`
}

// ContractEndpoint is a named contract point crossing a file or process
// boundary. A valid endpoint has at least one producer and one consumer.
type ContractEndpoint struct {
	Name           string           `json:"name" yaml:"name"`
	Producers      []FileRef        `json:"producers" yaml:"producers"`
	Consumers      []FileRef        `json:"consumers" yaml:"consumers"`
	ParameterShape *ShapeDescriptor `json:"parameterShape,omitempty" yaml:"parameterShape,omitempty"`
	Origin         Origin           `json:"origin" yaml:"origin"`
}

// DomContract requires a markup element to exist, by selector, for scripts
// to query successfully.
type DomContract struct {
	Selector   string            `json:"selector" yaml:"selector"`
	Tag        string            `json:"tag,omitempty" yaml:"tag,omitempty"`
	Purpose    string            `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Consumers  []FileRef         `json:"consumers,omitempty" yaml:"consumers,omitempty"`
}

// BareSelector returns the selector with a leading '#' or '.' stripped.
func (d DomContract) BareSelector() string {
	return StripSelector(d.Selector)
}

// StripSelector removes a leading '#' or '.' from a selector literal.
func StripSelector(sel string) string {
	if len(sel) > 0 && (sel[0] == '#' || sel[0] == '.') {
		return sel[1:]
	}
	return sel
}

// IssueKind enumerates the mismatch classes the validator reports.
type IssueKind string

const (
	IssueMissingChannel      IssueKind = "missingChannel"
	IssueMissingProducer     IssueKind = "missingProducer"
	IssueMissingConsumer     IssueKind = "missingConsumer"
	IssueNameMismatch        IssueKind = "nameMismatch"
	IssueNamingStyleMismatch IssueKind = "namingStyleMismatch"
	IssueParameterMismatch   IssueKind = "parameterMismatch"
	IssueDomSelectorMismatch IssueKind = "domSelectorMismatch"
	IssueSchemaError         IssueKind = "schemaError"
)

// Severity grades an issue's impact on the generated application.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Evidence records one concrete mention backing an issue.
type Evidence struct {
	// File is the path of the file containing the mention.
	File string `json:"file"`
	// Role is the file's contract role.
	Role FileRole `json:"role"`
	// Literal is the textual form as written in the file.
	Literal string `json:"literal"`
	// LineOffset is the 1-indexed line of the first occurrence.
	LineOffset int `json:"lineOffset"`
	// Shape is the parameter shape observed at this mention, if any.
	Shape *ShapeDescriptor `json:"shape,omitempty"`
}

// Issue is one detected contract inconsistency.
type Issue struct {
	Kind IssueKind `json:"kind"`
	// Endpoint is the logical endpoint name or selector the issue concerns.
	Endpoint    string     `json:"endpoint"`
	Evidence    []Evidence `json:"evidence,omitempty"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
}

// FixActionType enumerates the mechanical repairs the auto-fixer performs.
type FixActionType string

const (
	FixRename           FixActionType = "rename"
	FixInsertProducer   FixActionType = "insert-producer-stub"
	FixInsertConsumer   FixActionType = "insert-consumer-stub"
	FixRewriteShape     FixActionType = "rewrite-shape"
	FixRewriteAttribute FixActionType = "rewrite-attribute"
)

// FixAction is one mechanical repair: an exact search/replace in a single
// file. Rename actions additionally require word-boundary-safe matching.
type FixAction struct {
	Type      FixActionType `json:"type"`
	File      string        `json:"file"`
	Search    string        `json:"search"`
	Replace   string        `json:"replace"`
	Rationale string        `json:"rationale"`
}
