// Package autofix mechanically repairs the addressable issue classes:
// naming drift, missing producer/consumer stubs, parameter-shape
// normalization, and DOM selector case mismatches. Every repair is a
// single-file exact search/replace; a fix whose search text has diverged
// since validation is skipped and recorded as unresolved, never partially
// applied.
package autofix

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/concordlabs/concord/internal/contract"
	"github.com/concordlabs/concord/internal/extract"
	"github.com/concordlabs/concord/internal/fileset"
	"github.com/concordlabs/concord/internal/validate"
)

// DomAuthority says which side wins when a DOM id differs from a script's
// selector only in case. The observed system treats the script as
// authoritative, so that is the default, but it is a policy choice and
// stays configurable.
type DomAuthority string

const (
	// DomAuthorityScript rewrites the markup attribute to match the script.
	DomAuthorityScript DomAuthority = "script"
	// DomAuthorityMarkup rewrites the script selector to match the markup.
	DomAuthorityMarkup DomAuthority = "markup"
)

// Fixer plans and applies rule-based fixes.
type Fixer struct {
	logger       *zap.Logger
	policy       validate.StylePolicy
	domAuthority DomAuthority
}

// Option configures a Fixer.
type Option func(*Fixer)

// WithStylePolicy swaps the canonical-naming policy.
func WithStylePolicy(p validate.StylePolicy) Option {
	return func(f *Fixer) { f.policy = p }
}

// WithDomAuthority sets which side wins DOM case mismatches.
func WithDomAuthority(a DomAuthority) Option {
	return func(f *Fixer) { f.domAuthority = a }
}

// New creates a Fixer with the default policies: prefer the specification's
// literal form, script-authoritative DOM repair.
func New(logger *zap.Logger, opts ...Option) *Fixer {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fixer{
		logger:       logger,
		policy:       validate.PreferSpec,
		domAuthority: DomAuthorityScript,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fix plans fix actions for every fixable issue in the report and applies
// them. The caller re-runs validation afterwards; the fixer itself only
// mutates the set.
func (f *Fixer) Fix(set *fileset.Set, model *contract.Model, report *validate.Report, mentions []extract.Mention) *Result {
	actions := f.Plan(set, model, report, mentions)
	result := Apply(set, actions)
	f.logger.Info("auto-fix applied",
		zap.Int("planned", len(actions)),
		zap.Int("fixed", result.SuccessCount),
		zap.Int("unresolved", result.FailCount))
	return result
}

// Plan converts the report's fixable issues into fix actions without
// touching any file.
func (f *Fixer) Plan(set *fileset.Set, model *contract.Model, report *validate.Report, mentions []extract.Mention) []contract.FixAction {
	// Renames come last: they rewrite literals that the snippet-anchored
	// actions captured verbatim, and applying them first would make those
	// searches diverge.
	var actions []contract.FixAction
	actions = append(actions, f.planProducerStubs(set, model, report, mentions)...)
	actions = append(actions, f.planConsumerStubs(set, model, report, mentions)...)
	actions = append(actions, f.planShapeRewrites(model, report, mentions)...)
	actions = append(actions, f.planDomRewrites(report, mentions)...)
	actions = append(actions, f.planRenames(model, report, mentions)...)
	return actions
}

// planRenames handles nameMismatch and namingStyleMismatch: pick a
// canonical form, then rewrite every non-conforming literal occurrence in
// each affected file. Actions are deduplicated per (file, literal).
func (f *Fixer) planRenames(model *contract.Model, report *validate.Report, mentions []extract.Mention) []contract.FixAction {
	type renameKey struct{ file, literal string }
	planned := make(map[renameKey]bool)
	var actions []contract.FixAction

	issues := append(append([]contract.Issue(nil),
		report.Issues.NameMismatches...),
		report.Issues.NamingStyleMismatches...)

	for _, issue := range issues {
		specLiteral := ""
		if ep := model.Endpoint(issue.Endpoint); ep != nil && ep.Origin == contract.OriginSpec {
			specLiteral = ep.Name
		}
		group := mentionsForKey(mentions, validate.Key(issue.Endpoint))
		canonical := f.policy(specLiteral, observedForms(group))
		if canonical == "" {
			continue
		}
		for _, m := range group {
			if m.Literal == canonical {
				continue
			}
			key := renameKey{m.File, m.Literal}
			if planned[key] {
				continue
			}
			planned[key] = true
			actions = append(actions, contract.FixAction{
				Type:      contract.FixRename,
				File:      m.File,
				Search:    m.Literal,
				Replace:   canonical,
				Rationale: fmt.Sprintf("normalize endpoint reference %q to canonical form %q", m.Literal, canonical),
			})
		}
	}
	return actions
}

// planProducerStubs synthesizes a minimal handler registration for each
// missing producer, inserted immediately after the last sibling
// registration already present in the privileged file.
func (f *Fixer) planProducerStubs(set *fileset.Set, model *contract.Model, report *validate.Report, mentions []extract.Mention) []contract.FixAction {
	var actions []contract.FixAction
	for _, issue := range report.Issues.MissingProducers {
		target := firstFileOfRole(set, contract.RolePrivileged)
		if target == nil {
			continue
		}
		shape := expectedShape(model, issue.Endpoint, mentions)
		stub := producerStub(issue.Endpoint, shape, siblingQuote(mentions, target.Path()))

		if last := lastProducerSnippet(mentions, target.Path()); last != "" {
			actions = append(actions, contract.FixAction{
				Type:      contract.FixInsertProducer,
				File:      target.Path(),
				Search:    last,
				Replace:   last + "\n\n" + stub,
				Rationale: fmt.Sprintf("register missing handler for %q after the last sibling registration", issue.Endpoint),
			})
			continue
		}
		actions = append(actions, contract.FixAction{
			Type:      contract.FixInsertProducer,
			File:      target.Path(),
			Search:    "",
			Replace:   "\n" + stub + "\n",
			Rationale: fmt.Sprintf("register missing handler for %q (no sibling registrations present)", issue.Endpoint),
		})
	}
	return actions
}

// planConsumerStubs synthesizes a minimal forwarding method in the bridge
// file for each missing consumer, matching the expected parameter shape.
func (f *Fixer) planConsumerStubs(set *fileset.Set, model *contract.Model, report *validate.Report, mentions []extract.Mention) []contract.FixAction {
	var actions []contract.FixAction
	for _, issue := range report.Issues.MissingConsumers {
		target := firstFileOfRole(set, contract.RoleBridge)
		if target == nil {
			continue
		}
		shape := expectedShape(model, issue.Endpoint, mentions)
		method := forwardingMethod(issue.Endpoint, shape)

		if last := lastBridgeSnippet(mentions, target.Path()); last != "" {
			actions = append(actions, contract.FixAction{
				Type:      contract.FixInsertConsumer,
				File:      target.Path(),
				Search:    last,
				Replace:   last + ",\n  " + method,
				Rationale: fmt.Sprintf("forward %q through the bridge after the last sibling method", issue.Endpoint),
			})
			continue
		}
		if prefix, ok := exposePrefix(target.Text()); ok {
			actions = append(actions, contract.FixAction{
				Type:      contract.FixInsertConsumer,
				File:      target.Path(),
				Search:    prefix,
				Replace:   prefix + "\n  " + method + ",",
				Rationale: fmt.Sprintf("forward %q through the bridge surface", issue.Endpoint),
			})
		}
	}
	return actions
}

// planShapeRewrites normalizes parameter mismatches toward the
// authoritative shape: the specification's when declared, else the
// producer's. Only rewrites with an unambiguous mechanical mapping are
// planned; the rest fall through to the repair agent.
func (f *Fixer) planShapeRewrites(model *contract.Model, report *validate.Report, mentions []extract.Mention) []contract.FixAction {
	var actions []contract.FixAction
	for _, issue := range report.Issues.ParameterMismatches {
		group := mentionsForKey(mentions, validate.Key(issue.Endpoint))
		authoritative := authoritativeShape(model, issue.Endpoint, group)
		if authoritative == nil {
			continue
		}
		for _, m := range group {
			if m.Shape == nil || m.Shape.Equal(authoritative) {
				continue
			}
			for _, occ := range m.Occurrences {
				rewritten, ok := rewriteShape(m, occ.Snippet, authoritative)
				if !ok {
					continue
				}
				actions = append(actions, contract.FixAction{
					Type:      contract.FixRewriteShape,
					File:      m.File,
					Search:    occ.Snippet,
					Replace:   rewritten,
					Rationale: fmt.Sprintf("normalize %q arguments from %s to %s", issue.Endpoint, m.Shape, authoritative),
				})
			}
		}
	}
	return actions
}

// planDomRewrites repairs case-only selector mismatches according to the
// configured authority. Selectors with no counterpart at all cannot be
// repaired mechanically.
func (f *Fixer) planDomRewrites(report *validate.Report, mentions []extract.Mention) []contract.FixAction {
	var actions []contract.FixAction
	for _, issue := range report.Issues.SelectIssues {
		query, element := domPair(issue, mentions)
		if query == nil || element == nil {
			continue
		}
		if f.domAuthority == DomAuthorityMarkup {
			for _, occ := range query.Occurrences {
				actions = append(actions, contract.FixAction{
					Type:      contract.FixRewriteAttribute,
					File:      query.File,
					Search:    occ.Snippet,
					Replace:   strings.Replace(occ.Snippet, query.Endpoint, element.Endpoint, 1),
					Rationale: fmt.Sprintf("align script selector %q with markup %s %q", query.Endpoint, element.SelectorKind, element.Endpoint),
				})
			}
			continue
		}
		for _, occ := range element.Occurrences {
			actions = append(actions, contract.FixAction{
				Type:      contract.FixRewriteAttribute,
				File:      element.File,
				Search:    occ.Snippet,
				Replace:   strings.Replace(occ.Snippet, element.Endpoint, query.Endpoint, 1),
				Rationale: fmt.Sprintf("align markup %s %q with script selector %q", element.SelectorKind, element.Endpoint, query.Endpoint),
			})
		}
	}
	return actions
}

// domPair resolves the querying and declaring mentions behind a selector
// issue, when both exist (a case-only mismatch).
func domPair(issue contract.Issue, mentions []extract.Mention) (query, element *extract.Mention) {
	for i := range mentions {
		m := &mentions[i]
		if !m.IsDom() {
			continue
		}
		if !strings.EqualFold(m.Endpoint, issue.Endpoint) {
			continue
		}
		if m.Side == extract.SideElement && m.Endpoint != issue.Endpoint {
			element = m
		}
		if m.Side == extract.SideConsumer && m.Endpoint == issue.Endpoint {
			query = m
		}
	}
	if query != nil && element != nil && query.SelectorKind != element.SelectorKind {
		return nil, nil
	}
	return query, element
}

func mentionsForKey(mentions []extract.Mention, key string) []extract.Mention {
	var out []extract.Mention
	for _, m := range mentions {
		if m.IsDom() {
			continue
		}
		if validate.Key(m.Endpoint) == key {
			out = append(out, m)
		}
	}
	return out
}

func observedForms(group []extract.Mention) []validate.ObservedForm {
	index := make(map[string]int)
	var forms []validate.ObservedForm
	for _, m := range group {
		i, ok := index[m.Literal]
		if !ok {
			index[m.Literal] = len(forms)
			forms = append(forms, validate.ObservedForm{Literal: m.Literal})
			i = len(forms) - 1
		}
		forms[i].Count += len(m.Occurrences)
		forms[i].Files = append(forms[i].Files, m.File)
	}
	return forms
}

// expectedShape resolves the shape a stub should carry: the spec's declared
// schema first, else the first observed shape on the other side.
func expectedShape(model *contract.Model, endpoint string, mentions []extract.Mention) *contract.ShapeDescriptor {
	if ep := model.Endpoint(endpoint); ep != nil && ep.ParameterShape != nil {
		return ep.ParameterShape
	}
	for _, m := range mentionsForKey(mentions, validate.Key(endpoint)) {
		if m.Shape != nil {
			return m.Shape
		}
	}
	return nil
}

// authoritativeShape mirrors the validator's choice: spec schema, else the
// first producer shape.
func authoritativeShape(model *contract.Model, endpoint string, group []extract.Mention) *contract.ShapeDescriptor {
	if ep := model.Endpoint(endpoint); ep != nil && ep.ParameterShape != nil {
		return ep.ParameterShape
	}
	for _, m := range group {
		if m.Side == extract.SideProducer && m.Shape != nil {
			return m.Shape
		}
	}
	return nil
}

func firstFileOfRole(set *fileset.Set, role contract.FileRole) *fileset.File {
	files := set.ByRole(role)
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

// lastProducerSnippet returns the snippet of the last handler registration
// in the given privileged file, in source order.
func lastProducerSnippet(mentions []extract.Mention, path string) string {
	best := ""
	bestLine := -1
	for _, m := range mentions {
		if m.File != path || m.Side != extract.SideProducer || m.IsDom() {
			continue
		}
		for _, occ := range m.Occurrences {
			if occ.Line > bestLine {
				bestLine = occ.Line
				best = occ.Snippet
			}
		}
	}
	return best
}

// lastBridgeSnippet returns the snippet of the last forwarding call in the
// bridge file.
func lastBridgeSnippet(mentions []extract.Mention, path string) string {
	best := ""
	bestLine := -1
	for _, m := range mentions {
		if m.File != path || m.IsDom() || m.Side != extract.SideConsumer {
			continue
		}
		for _, occ := range m.Occurrences {
			if occ.Line > bestLine {
				bestLine = occ.Line
				best = occ.Snippet
			}
		}
	}
	return best
}

// siblingQuote returns the quote character sibling registrations use, so
// stubs follow the file's idiom. Defaults to a single quote.
func siblingQuote(mentions []extract.Mention, path string) byte {
	for _, m := range mentions {
		if m.File != path || m.Side != extract.SideProducer {
			continue
		}
		for _, occ := range m.Occurrences {
			for i := 0; i < len(occ.Snippet); i++ {
				switch occ.Snippet[i] {
				case '\'', '"', '`':
					return occ.Snippet[i]
				}
			}
		}
	}
	return '\''
}
