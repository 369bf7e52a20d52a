package validate

import (
	"sort"
	"strings"
	"unicode"
)

// Style classifies the textual convention of an endpoint literal.
type Style string

const (
	StyleKebab   Style = "kebab-case"
	StyleCamel   Style = "camelCase"
	StyleSnake   Style = "snake_case"
	StyleColon   Style = "colon:separated"
	StyleUnknown Style = "unknown"
)

// ClassifyStyle returns the naming style of a literal. Mixed separators
// classify by the first separator found, matching how readers perceive the
// dominant convention.
func ClassifyStyle(literal string) Style {
	switch {
	case strings.Contains(literal, ":"):
		return StyleColon
	case strings.Contains(literal, "-"):
		return StyleKebab
	case strings.Contains(literal, "_"):
		return StyleSnake
	}
	hasLower := false
	for _, r := range literal {
		if unicode.IsLower(r) {
			hasLower = true
		}
		if unicode.IsUpper(r) && hasLower {
			return StyleCamel
		}
	}
	return StyleUnknown
}

// Tokens splits a literal into its lowercased word tokens, breaking on
// separators and camelCase humps: "task:add", "add-task" and "addTask" all
// yield the same token set.
func Tokens(literal string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	var prev rune
	for _, r := range literal {
		switch {
		case r == '-' || r == '_' || r == ':' || r == '.' || r == '/':
			flush()
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
		prev = r
	}
	flush()
	return tokens
}

// Key returns the order-insensitive correlation key for a literal: two
// textual forms refer to the same logical endpoint when their lowercased
// token multisets match, so "task:add" correlates with "add-task".
func Key(literal string) string {
	tokens := Tokens(literal)
	sort.Strings(tokens)
	return strings.Join(tokens, "\x00")
}

// ObservedForm is one distinct textual form of an endpoint in use, with the
// files using it.
type ObservedForm struct {
	// Literal is the form as written.
	Literal string
	// Files lists the files using this form.
	Files []string
	// Count is the total number of occurrences across files.
	Count int
}

// StylePolicy chooses the canonical literal for an endpoint given the
// specification's literal form (empty for inferred endpoints) and the forms
// observed across files. Policies are pure so they can be swapped without
// touching validation logic.
type StylePolicy func(specLiteral string, observed []ObservedForm) string

// PreferSpec is the default policy: the specification's literal form wins
// whenever the endpoint is spec-declared; otherwise fall back to majority
// vote.
func PreferSpec(specLiteral string, observed []ObservedForm) string {
	if specLiteral != "" {
		return specLiteral
	}
	return MajorityVote(specLiteral, observed)
}

// MajorityVote picks the most frequently observed form. Ties break toward
// kebab-case, then lexicographically, so the choice is deterministic.
func MajorityVote(_ string, observed []ObservedForm) string {
	best := ""
	bestCount := -1
	for _, f := range observed {
		switch {
		case f.Count > bestCount:
			best, bestCount = f.Literal, f.Count
		case f.Count == bestCount && tieRank(f.Literal) < tieRank(best):
			best = f.Literal
		case f.Count == bestCount && tieRank(f.Literal) == tieRank(best) && f.Literal < best:
			best = f.Literal
		}
	}
	return best
}

func tieRank(literal string) int {
	if ClassifyStyle(literal) == StyleKebab {
		return 0
	}
	return 1
}
