package repair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/concordlabs/concord/internal/api"
	"github.com/concordlabs/concord/internal/contract"
	"github.com/concordlabs/concord/internal/validate"
)

const systemPrompt = `You repair contract inconsistencies in generated application files.
You receive outstanding issues, the expected contracts, and file excerpts.
Respond with a JSON object in this exact format, and nothing else:
{"patches": [{"file": "path", "search": "exact text from the file", "replace": "replacement text"}]}

IMPORTANT:
- Each search string must appear verbatim in the current file content
- Propose minimal search/replace edits, never full-file rewrites
- Only touch the files provided
- Ensure the JSON is valid and complete`

// contextLines is the excerpt window kept around each relevant line.
const contextLines = 3

// registrationLineRe marks lines worth anchoring excerpts on in script
// files: handler registrations and forwarding or invocation calls.
var registrationLineRe = regexp.MustCompile(`ipcMain\s*\.\s*(handle|on)|ipcRenderer\s*\.\s*(invoke|send)|window\s*\.\s*\w+\s*\.\s*\w+\s*\(`)

// idAttrRe collects declared element ids for the markup digest.
var idAttrRe = regexp.MustCompile(`id\s*=\s*["']([\w-]+)["']`)

// buildPrompt assembles the size-bounded user prompt: the outstanding
// issue list, the relevant expected-contract fragments, and per-file
// excerpts trimmed to the token budget. Large files are never inlined
// whole; script files shrink to registration blocks with a fixed context
// window and markup shrinks to a digest of element ids.
func buildPrompt(files []contract.SourceFile, model *contract.Model, report *validate.Report, tokenBudget int) string {
	var b strings.Builder

	b.WriteString("## Outstanding issues\n")
	for _, issue := range report.All() {
		fmt.Fprintf(&b, "- [%s] %s\n", issue.Kind, issue.Description)
	}

	b.WriteString("\n## Expected contracts\n")
	for _, ep := range relevantEndpoints(model, report) {
		data, err := json.Marshal(ep)
		if err != nil {
			continue
		}
		b.WriteString(string(data))
		b.WriteByte('\n')
	}

	b.WriteString("\n## Files\n")
	budget := tokenBudget - api.EstimateTokens(b.String()) - api.EstimateTokens(systemPrompt)
	for _, f := range relevantFiles(files, report) {
		excerpt := excerptFor(f)
		cost := api.EstimateTokens(excerpt) + 20
		if cost > budget {
			break
		}
		budget -= cost
		fmt.Fprintf(&b, "\n### %s (%s)\n```\n%s\n```\n", f.Path, f.Role, excerpt)
	}

	return b.String()
}

// relevantEndpoints returns the expected endpoints named by outstanding
// issues, so the prompt carries only the contract fragments that matter.
func relevantEndpoints(model *contract.Model, report *validate.Report) []contract.ContractEndpoint {
	wanted := make(map[string]bool)
	for _, issue := range report.All() {
		wanted[validate.Key(issue.Endpoint)] = true
	}
	var out []contract.ContractEndpoint
	for _, ep := range model.Endpoints {
		if wanted[validate.Key(ep.Name)] {
			out = append(out, ep)
		}
	}
	return out
}

// relevantFiles returns the files named in issue evidence first, then any
// remaining files, preserving deterministic order.
func relevantFiles(files []contract.SourceFile, report *validate.Report) []contract.SourceFile {
	named := make(map[string]bool)
	for _, issue := range report.All() {
		for _, ev := range issue.Evidence {
			named[ev.File] = true
		}
	}
	ordered := append([]contract.SourceFile(nil), files...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ni, nj := named[ordered[i].Path], named[ordered[j].Path]
		if ni != nj {
			return ni
		}
		return ordered[i].Path < ordered[j].Path
	})
	return ordered
}

// excerptFor trims one file to its minimal relevant excerpt.
func excerptFor(f contract.SourceFile) string {
	if f.Role == contract.RoleMarkup {
		return markupDigest(f.Text)
	}
	return scriptExcerpt(f.Text)
}

// scriptExcerpt keeps the lines around handler registrations and
// invocation calls, eliding the rest. Small files pass through whole.
func scriptExcerpt(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= 40 {
		return text
	}

	keep := make([]bool, len(lines))
	for i, line := range lines {
		if !registrationLineRe.MatchString(line) {
			continue
		}
		for j := i - contextLines; j <= i+contextLines; j++ {
			if j >= 0 && j < len(lines) {
				keep[j] = true
			}
		}
	}

	var b strings.Builder
	eliding := false
	for i, line := range lines {
		if keep[i] {
			b.WriteString(line)
			b.WriteByte('\n')
			eliding = false
		} else if !eliding {
			b.WriteString("…\n")
			eliding = true
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// markupDigest reduces markup to the ids it declares.
func markupDigest(text string) string {
	var ids []string
	for _, m := range idAttrRe.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	return "declared element ids: " + strings.Join(ids, ", ")
}
