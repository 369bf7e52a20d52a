package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model is the expected contract set parsed from the authoritative
// specification. SchemaIssues carries malformed-entry diagnostics the
// validator folds into its report.
type Model struct {
	Endpoints    []ContractEndpoint
	Dom          []DomContract
	SchemaIssues []Issue
}

// Endpoint returns the spec endpoint with the given name, or nil.
func (m *Model) Endpoint(name string) *ContractEndpoint {
	for i := range m.Endpoints {
		if m.Endpoints[i].Name == name {
			return &m.Endpoints[i]
		}
	}
	return nil
}

// specDocument mirrors the specification document's contract sections.
// Missing arrays default to empty, never an error.
type specDocument struct {
	API     []specEndpoint    `json:"api" yaml:"api"`
	Dom     []specDomContract `json:"dom" yaml:"dom"`
	Events  []specEndpoint    `json:"events" yaml:"events"`
	Storage []specEndpoint    `json:"storage" yaml:"storage"`
}

type specEndpoint struct {
	Endpoint        string           `json:"endpoint" yaml:"endpoint"`
	Producers       []string         `json:"producers" yaml:"producers"`
	Consumers       []string         `json:"consumers" yaml:"consumers"`
	ParameterSchema *ShapeDescriptor `json:"parameterSchema" yaml:"parameterSchema"`
}

type specDomContract struct {
	Selector   string            `json:"selector" yaml:"selector"`
	Tag        string            `json:"tag" yaml:"tag"`
	Purpose    string            `json:"purpose" yaml:"purpose"`
	Attributes map[string]string `json:"attributes" yaml:"attributes"`
	Consumers  []string          `json:"consumers" yaml:"consumers"`
}

// roleForName maps the role names a specification uses for producers and
// consumers onto file roles. Unknown names default to ui-script, the role
// with the loosest contract obligations.
func roleForName(name string) FileRole {
	switch strings.ToLower(strings.TrimSuffix(name, ".js")) {
	case "main", "privileged", "privileged-process", "backend":
		return RolePrivileged
	case "bridge", "preload":
		return RoleBridge
	case "markup", "html", "index":
		return RoleMarkup
	default:
		return RoleUIScript
	}
}

// LoadModel parses a specification document (JSON or YAML) into the expected
// contract model. A nil or empty document yields an empty model. A document
// that fails to parse in both codecs returns the empty model alongside the
// parse error; per the degradation policy the caller treats that as an
// all-empty expected set.
func LoadModel(data []byte) (*Model, error) {
	model := &Model{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return model, nil
	}

	var doc specDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		if yerr := yaml.Unmarshal(data, &doc); yerr != nil {
			return model, fmt.Errorf("parse spec document: %w", err)
		}
	}

	for _, section := range [][]specEndpoint{doc.API, doc.Events, doc.Storage} {
		for _, ep := range section {
			if issue, ok := checkEndpointSchema(ep); !ok {
				model.SchemaIssues = append(model.SchemaIssues, issue)
				continue
			}
			model.Endpoints = append(model.Endpoints, ContractEndpoint{
				Name:           ep.Endpoint,
				Producers:      refsForNames(ep.Producers),
				Consumers:      refsForNames(ep.Consumers),
				ParameterShape: ep.ParameterSchema,
				Origin:         OriginSpec,
			})
		}
	}

	for _, dc := range doc.Dom {
		if strings.TrimSpace(dc.Selector) == "" {
			model.SchemaIssues = append(model.SchemaIssues, Issue{
				Kind:        IssueSchemaError,
				Endpoint:    dc.Tag,
				Description: "dom contract is missing a selector",
				Severity:    SeverityError,
			})
			continue
		}
		model.Dom = append(model.Dom, DomContract{
			Selector:   dc.Selector,
			Tag:        dc.Tag,
			Purpose:    dc.Purpose,
			Attributes: dc.Attributes,
			Consumers:  refsForNames(dc.Consumers),
		})
	}

	return model, nil
}

func refsForNames(names []string) []FileRef {
	refs := make([]FileRef, 0, len(names))
	for _, n := range names {
		refs = append(refs, FileRef{Path: n, Role: roleForName(n)})
	}
	return refs
}

func checkEndpointSchema(ep specEndpoint) (Issue, bool) {
	if strings.TrimSpace(ep.Endpoint) == "" {
		return Issue{
			Kind:        IssueSchemaError,
			Description: "api entry is missing an endpoint name",
			Severity:    SeverityError,
		}, false
	}
	if ep.ParameterSchema != nil && !ep.ParameterSchema.Valid() {
		return Issue{
			Kind:     IssueSchemaError,
			Endpoint: ep.Endpoint,
			Description: fmt.Sprintf("endpoint %q has an invalid parameter schema: kind %q with arity %d and %d field(s)",
				ep.Endpoint, ep.ParameterSchema.Kind, ep.ParameterSchema.Arity, len(ep.ParameterSchema.Fields)),
			Severity: SeverityError,
		}, false
	}
	return Issue{}, true
}
