package validate

import "github.com/concordlabs/concord/internal/contract"

// Report is the validation result handed to collaborators: issues grouped
// by kind plus a summary. IsValid is true exactly when no issues exist.
type Report struct {
	IsValid bool        `json:"isValid"`
	Issues  IssueGroups `json:"issues"`
	Summary Summary     `json:"summary"`
}

// IssueGroups buckets issues by kind.
type IssueGroups struct {
	MissingChannels       []contract.Issue `json:"missingChannels"`
	NameMismatches        []contract.Issue `json:"nameMismatches"`
	NamingStyleMismatches []contract.Issue `json:"namingStyleMismatches"`
	MissingProducers      []contract.Issue `json:"missingProducers"`
	MissingConsumers      []contract.Issue `json:"missingConsumers"`
	ParameterMismatches   []contract.Issue `json:"parameterMismatches"`
	SchemaErrors          []contract.Issue `json:"schemaErrors"`
	SelectIssues          []contract.Issue `json:"selectIssues"`
}

// Summary carries aggregate counts.
type Summary struct {
	TotalIssues int `json:"totalIssues"`
}

func (r *Report) add(issue contract.Issue) {
	switch issue.Kind {
	case contract.IssueMissingChannel:
		r.Issues.MissingChannels = append(r.Issues.MissingChannels, issue)
	case contract.IssueNameMismatch:
		r.Issues.NameMismatches = append(r.Issues.NameMismatches, issue)
	case contract.IssueNamingStyleMismatch:
		r.Issues.NamingStyleMismatches = append(r.Issues.NamingStyleMismatches, issue)
	case contract.IssueMissingProducer:
		r.Issues.MissingProducers = append(r.Issues.MissingProducers, issue)
	case contract.IssueMissingConsumer:
		r.Issues.MissingConsumers = append(r.Issues.MissingConsumers, issue)
	case contract.IssueParameterMismatch:
		r.Issues.ParameterMismatches = append(r.Issues.ParameterMismatches, issue)
	case contract.IssueSchemaError:
		r.Issues.SchemaErrors = append(r.Issues.SchemaErrors, issue)
	case contract.IssueDomSelectorMismatch:
		r.Issues.SelectIssues = append(r.Issues.SelectIssues, issue)
	}
	r.Summary.TotalIssues++
	r.IsValid = false
}

// All returns every issue across groups, in report order.
func (r *Report) All() []contract.Issue {
	var all []contract.Issue
	for _, group := range [][]contract.Issue{
		r.Issues.MissingChannels,
		r.Issues.NameMismatches,
		r.Issues.NamingStyleMismatches,
		r.Issues.MissingProducers,
		r.Issues.MissingConsumers,
		r.Issues.ParameterMismatches,
		r.Issues.SchemaErrors,
		r.Issues.SelectIssues,
	} {
		all = append(all, group...)
	}
	return all
}

// CountByKind returns the number of issues of one kind.
func (r *Report) CountByKind(kind contract.IssueKind) int {
	n := 0
	for _, issue := range r.All() {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}
