package extract

import (
	"strings"

	"github.com/concordlabs/concord/internal/contract"
)

// ScanBalanced returns the text between the opening delimiter at open and
// its balancing closer, plus the index one past the closer. Quote and
// bracket nesting is respected. Returns ok=false when the text ends before
// the delimiter balances.
func ScanBalanced(text string, open int) (inner string, end int, ok bool) {
	if open >= len(text) {
		return "", 0, false
	}
	var closer byte
	switch text[open] {
	case '(':
		closer = ')'
	case '{':
		closer = '}'
	case '[':
		closer = ']'
	default:
		return "", 0, false
	}
	depth := 0
	var quote byte
	for i := open; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
			if depth == 0 {
				if c != closer {
					return "", 0, false
				}
				return text[open+1 : i], i + 1, true
			}
		}
	}
	return "", 0, false
}

// SplitArgs splits an argument list on top-level commas, respecting quote
// and bracket nesting. Empty input yields nil.
func SplitArgs(args string) []string {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	var parts []string
	depth := 0
	var quote byte
	last := 0
	for i := 0; i < len(args); i++ {
		c := args[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(args[last:i]))
				last = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(args[last:]))
	return parts
}

// destructuredFields parses the field names of an object literal or object
// pattern body: "filename, content" or "filename: f, content" both yield
// [filename content].
func destructuredFields(body string) []string {
	var fields []string
	for _, part := range SplitArgs(body) {
		name := part
		if i := strings.IndexAny(part, ":="); i != -1 {
			name = part[:i]
		}
		name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "..."))
		if name != "" {
			fields = append(fields, name)
		}
	}
	return fields
}

// shapeOf derives a parameter shape from a raw argument list. dropFirst
// skips a leading event-object parameter (handler callbacks receive the
// event first). Zero remaining arguments yield a nil shape, as does a rest
// parameter (...args forwards whatever it received, which says nothing
// about the endpoint's shape).
func shapeOf(args string, dropFirst bool) *contract.ShapeDescriptor {
	parts := SplitArgs(args)
	if dropFirst && len(parts) > 0 {
		parts = parts[1:]
	}
	for _, p := range parts {
		if strings.HasPrefix(strings.TrimSpace(p), "...") {
			return nil
		}
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		arg := strings.TrimSpace(parts[0])
		if strings.HasPrefix(arg, "{") {
			body := strings.TrimSuffix(strings.TrimPrefix(arg, "{"), "}")
			return &contract.ShapeDescriptor{
				Kind:   contract.ShapeDestructured,
				Fields: destructuredFields(body),
			}
		}
		return &contract.ShapeDescriptor{Kind: contract.ShapeSingle}
	default:
		return &contract.ShapeDescriptor{
			Kind:  contract.ShapePositional,
			Arity: len(parts),
		}
	}
}
