// Package validate is the diff engine: it compares the contracts actually
// extracted from generated files against the expected contract model and
// emits a structured issue report. Validation is a pure computation over
// in-memory data; it never mutates files.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/concordlabs/concord/internal/contract"
	"github.com/concordlabs/concord/internal/extract"
)

// Validator diffs actual contract mentions against an expected model.
type Validator struct {
	logger *zap.Logger
}

// New creates a Validator. A nil logger disables logging.
func New(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

// endpointGroup is everything observed about one logical endpoint.
type endpointGroup struct {
	producers []extract.Mention
	consumers []extract.Mention
}

func (g *endpointGroup) all() []extract.Mention {
	return append(append([]extract.Mention(nil), g.producers...), g.consumers...)
}

// forms returns the distinct textual forms in use, ordered by first
// appearance.
func (g *endpointGroup) forms() []ObservedForm {
	index := make(map[string]int)
	var forms []ObservedForm
	for _, m := range g.all() {
		i, ok := index[m.Literal]
		if !ok {
			index[m.Literal] = len(forms)
			forms = append(forms, ObservedForm{Literal: m.Literal})
			i = len(forms) - 1
		}
		forms[i].Count += len(m.Occurrences)
		if !containsString(forms[i].Files, m.File) {
			forms[i].Files = append(forms[i].Files, m.File)
		}
	}
	return forms
}

// Validate diffs the extracted mentions against the expected model and
// returns a grouped issue report. Running it twice over an unmodified file
// set yields identical reports.
func (v *Validator) Validate(model *contract.Model, mentions []extract.Mention) *Report {
	report := &Report{IsValid: true}

	for _, issue := range model.SchemaIssues {
		report.add(issue)
	}

	groups, orderedKeys := groupEndpoints(mentions)

	seen := make(map[string]bool)
	for _, ep := range model.Endpoints {
		key := Key(ep.Name)
		seen[key] = true
		v.checkEndpoint(report, ep, groups[key])
	}
	for _, key := range orderedKeys {
		if seen[key] {
			continue
		}
		v.checkInferred(report, groups[key])
	}

	v.checkDom(report, model, mentions)

	v.logger.Debug("validation complete",
		zap.Int("totalIssues", report.Summary.TotalIssues),
		zap.Bool("isValid", report.IsValid))
	return report
}

// groupEndpoints buckets endpoint mentions by correlation key, preserving
// first-appearance order for deterministic reports.
func groupEndpoints(mentions []extract.Mention) (map[string]*endpointGroup, []string) {
	groups := make(map[string]*endpointGroup)
	var order []string
	for _, m := range mentions {
		if m.IsDom() {
			continue
		}
		key := Key(m.Endpoint)
		g, ok := groups[key]
		if !ok {
			g = &endpointGroup{}
			groups[key] = g
			order = append(order, key)
		}
		if m.Side == extract.SideProducer {
			g.producers = append(g.producers, m)
		} else {
			g.consumers = append(g.consumers, m)
		}
	}
	return groups, order
}

// checkEndpoint validates one spec-declared endpoint against observations.
func (v *Validator) checkEndpoint(report *Report, ep contract.ContractEndpoint, g *endpointGroup) {
	if g == nil || (len(g.producers) == 0 && len(g.consumers) == 0) {
		report.add(contract.Issue{
			Kind:        contract.IssueMissingChannel,
			Endpoint:    ep.Name,
			Description: fmt.Sprintf("endpoint %q is declared by the specification but neither produced nor consumed by any file", ep.Name),
			Severity:    contract.SeverityError,
		})
		return
	}
	if len(g.producers) == 0 {
		report.add(contract.Issue{
			Kind:        contract.IssueMissingProducer,
			Endpoint:    ep.Name,
			Evidence:    evidenceOf(g.consumers),
			Description: fmt.Sprintf("endpoint %q is consumed but no %s file registers a handler for it", ep.Name, contract.RolePrivileged),
			Severity:    contract.SeverityError,
		})
	}
	if len(g.consumers) == 0 {
		report.add(contract.Issue{
			Kind:        contract.IssueMissingConsumer,
			Endpoint:    ep.Name,
			Evidence:    evidenceOf(g.producers),
			Description: fmt.Sprintf("endpoint %q is produced but never invoked through the %s file", ep.Name, contract.RoleBridge),
			Severity:    contract.SeverityError,
		})
	}

	v.checkShapes(report, ep.Name, ep.ParameterShape, g)
	v.checkNaming(report, ep.Name, g)
}

// checkInferred validates an endpoint recovered only from generated files.
// The endpoint invariant still holds: at least one producer and consumer.
func (v *Validator) checkInferred(report *Report, g *endpointGroup) {
	name := canonicalObservedName(g)
	if len(g.producers) == 0 {
		report.add(contract.Issue{
			Kind:        contract.IssueMissingProducer,
			Endpoint:    name,
			Evidence:    evidenceOf(g.consumers),
			Description: fmt.Sprintf("endpoint %q is invoked but no handler registration exists for it", name),
			Severity:    contract.SeverityError,
		})
	}
	if len(g.consumers) == 0 {
		report.add(contract.Issue{
			Kind:        contract.IssueMissingConsumer,
			Endpoint:    name,
			Evidence:    evidenceOf(g.producers),
			Description: fmt.Sprintf("endpoint %q registers a handler that nothing invokes", name),
			Severity:    contract.SeverityError,
		})
	}
	v.checkShapes(report, name, nil, g)
	v.checkNaming(report, "", g)
}

// checkShapes compares parameter shapes structurally. The authoritative
// shape is the specification's when present, else the first observed
// producer shape. Mentions without an observable shape are skipped. At most
// one parameterMismatch is reported per endpoint.
func (v *Validator) checkShapes(report *Report, name string, expected *contract.ShapeDescriptor, g *endpointGroup) {
	authoritative := expected
	if authoritative == nil {
		for _, m := range g.producers {
			if m.Shape != nil {
				authoritative = m.Shape
				break
			}
		}
	}
	if authoritative == nil {
		return
	}
	for _, m := range g.all() {
		if m.Shape == nil || m.Shape.Equal(authoritative) {
			continue
		}
		report.add(contract.Issue{
			Kind:     contract.IssueParameterMismatch,
			Endpoint: name,
			Evidence: evidenceOf(g.all()),
			Description: fmt.Sprintf("endpoint %q passes %s in %s but the authoritative shape is %s",
				name, m.Shape, m.File, authoritative),
			Severity: contract.SeverityError,
		})
		return
	}
}

// checkNaming classifies the textual forms in use for one endpoint.
// specLiteral is empty for inferred endpoints.
func (v *Validator) checkNaming(report *Report, specLiteral string, g *endpointGroup) {
	forms := g.forms()
	if len(forms) == 0 {
		return
	}

	if specLiteral != "" {
		for _, f := range forms {
			if f.Literal == specLiteral {
				continue
			}
			report.add(contract.Issue{
				Kind:     contract.IssueNameMismatch,
				Endpoint: specLiteral,
				Evidence: evidenceForLiteral(g, f.Literal),
				Description: fmt.Sprintf("endpoint %q is referenced as %q in %s; the specification's literal form is %q",
					specLiteral, f.Literal, strings.Join(f.Files, ", "), specLiteral),
				Severity: contract.SeverityError,
			})
		}
	}

	if len(forms) > 1 {
		literals := make([]string, len(forms))
		styles := make([]string, len(forms))
		for i, f := range forms {
			literals[i] = f.Literal
			styles[i] = string(ClassifyStyle(f.Literal))
		}
		name := specLiteral
		if name == "" {
			name = canonicalObservedName(g)
		}
		report.add(contract.Issue{
			Kind:     contract.IssueNamingStyleMismatch,
			Endpoint: name,
			Evidence: evidenceOf(g.all()),
			Description: fmt.Sprintf("endpoint %q is referenced in %d distinct forms (%s) across styles (%s)",
				name, len(forms), strings.Join(literals, ", "), strings.Join(styles, ", ")),
			Severity: contract.SeverityWarning,
		})
	}
}

// checkDom validates DOM contracts: every selector referenced by a consumer
// script must exist, case-sensitively, among the markup's declared
// elements. A case-insensitive match is still a mismatch, since selector
// lookup at generated-application runtime is case-sensitive.
func (v *Validator) checkDom(report *Report, model *contract.Model, mentions []extract.Mention) {
	type domKey struct{ kind, name string }
	elements := make(map[domKey]extract.Mention)
	lowered := make(map[domKey]extract.Mention)
	var queries []extract.Mention
	for _, m := range mentions {
		if !m.IsDom() {
			continue
		}
		if m.Side == extract.SideElement {
			k := domKey{m.SelectorKind, m.Endpoint}
			elements[k] = m
			lowered[domKey{m.SelectorKind, strings.ToLower(m.Endpoint)}] = m
		} else {
			queries = append(queries, m)
		}
	}

	for _, q := range queries {
		k := domKey{q.SelectorKind, q.Endpoint}
		if _, ok := elements[k]; ok {
			continue
		}
		if decl, ok := lowered[domKey{q.SelectorKind, strings.ToLower(q.Endpoint)}]; ok {
			report.add(contract.Issue{
				Kind:     contract.IssueDomSelectorMismatch,
				Endpoint: q.Endpoint,
				Evidence: append(evidenceOf([]extract.Mention{q}), decl.Evidence()),
				Description: fmt.Sprintf("script queries %s %q but markup declares %q; selector lookup is case-sensitive and would fail at runtime",
					q.SelectorKind, q.Endpoint, decl.Endpoint),
				Severity: contract.SeverityError,
			})
			continue
		}
		report.add(contract.Issue{
			Kind:        contract.IssueDomSelectorMismatch,
			Endpoint:    q.Endpoint,
			Evidence:    evidenceOf([]extract.Mention{q}),
			Description: fmt.Sprintf("script queries %s %q but no markup element declares it", q.SelectorKind, q.Endpoint),
			Severity:    contract.SeverityError,
		})
	}

	for _, dc := range model.Dom {
		kind := "id"
		if strings.HasPrefix(dc.Selector, ".") {
			kind = "class"
		}
		if _, ok := elements[domKey{kind, dc.BareSelector()}]; !ok {
			report.add(contract.Issue{
				Kind:        contract.IssueDomSelectorMismatch,
				Endpoint:    dc.BareSelector(),
				Description: fmt.Sprintf("specification requires %s %q (%s) but no markup element declares it", kind, dc.Selector, dc.Purpose),
				Severity:    contract.SeverityError,
			})
		}
	}
}

// canonicalObservedName picks a stable display name for an inferred
// endpoint: the majority-vote form.
func canonicalObservedName(g *endpointGroup) string {
	return MajorityVote("", g.forms())
}

func evidenceOf(mentions []extract.Mention) []contract.Evidence {
	ev := make([]contract.Evidence, 0, len(mentions))
	for _, m := range mentions {
		ev = append(ev, m.Evidence())
	}
	return ev
}

func evidenceForLiteral(g *endpointGroup, literal string) []contract.Evidence {
	var ev []contract.Evidence
	for _, m := range g.all() {
		if m.Literal == literal {
			ev = append(ev, m.Evidence())
		}
	}
	sort.SliceStable(ev, func(i, j int) bool { return ev[i].File < ev[j].File })
	return ev
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
