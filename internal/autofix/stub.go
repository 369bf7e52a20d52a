package autofix

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/concordlabs/concord/internal/contract"
	"github.com/concordlabs/concord/internal/extract"
	"github.com/concordlabs/concord/internal/validate"
)

// producerStub renders a minimal handler registration returning a
// placeholder success value, following the idiom of sibling registrations
// (quote style included).
func producerStub(endpoint string, shape *contract.ShapeDescriptor, quote byte) string {
	q := string(quote)
	return fmt.Sprintf("ipcMain.handle(%s%s%s, async (%s) => {\n  return { success: true };\n});",
		q, endpoint, q, handlerParams(shape))
}

// handlerParams renders the callback parameter list for a stub handler:
// the event object first, then parameters matching the expected shape.
func handlerParams(shape *contract.ShapeDescriptor) string {
	if shape == nil {
		return "event"
	}
	switch shape.Kind {
	case contract.ShapeSingle:
		return "event, value"
	case contract.ShapeDestructured:
		return fmt.Sprintf("event, { %s }", strings.Join(shape.Fields, ", "))
	case contract.ShapePositional:
		return "event, " + strings.Join(positionalNames(shape.Arity), ", ")
	}
	return "event"
}

// forwardingMethod renders a bridge method forwarding to the endpoint with
// the expected shape. The method name is the camelCase form of the
// endpoint's tokens.
func forwardingMethod(endpoint string, shape *contract.ShapeDescriptor) string {
	name := camelName(endpoint)
	params := forwardParams(shape)
	return fmt.Sprintf("%s: (%s) => ipcRenderer.invoke('%s'%s)", name, params, endpoint, invokeArgs(params))
}

func forwardParams(shape *contract.ShapeDescriptor) string {
	if shape == nil {
		return ""
	}
	switch shape.Kind {
	case contract.ShapeSingle:
		return "value"
	case contract.ShapeDestructured:
		return fmt.Sprintf("{ %s }", strings.Join(shape.Fields, ", "))
	case contract.ShapePositional:
		return strings.Join(positionalNames(shape.Arity), ", ")
	}
	return ""
}

func invokeArgs(params string) string {
	if params == "" {
		return ""
	}
	return ", " + params
}

func positionalNames(arity int) []string {
	names := make([]string, arity)
	for i := range names {
		names[i] = fmt.Sprintf("arg%d", i+1)
	}
	return names
}

// camelName renders an endpoint's tokens as camelCase, preserving token
// order: "add-task" becomes "addTask".
func camelName(endpoint string) string {
	tokens := validate.Tokens(endpoint)
	if len(tokens) == 0 {
		return endpoint
	}
	var b strings.Builder
	b.WriteString(tokens[0])
	for _, t := range tokens[1:] {
		b.WriteString(strings.ToUpper(t[:1]))
		b.WriteString(t[1:])
	}
	return b.String()
}

var exposeRe = regexp.MustCompile(`exposeInMainWorld\s*\(\s*["'` + "`" + `]\w+["'` + "`" + `]\s*,\s*\{`)

// exposePrefix returns the exact text of the bridge surface's opening, used
// as an insertion anchor when the bridge has no forwarding methods yet.
func exposePrefix(text string) (string, bool) {
	loc := exposeRe.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return text[loc[0]:loc[1]], true
}

// rewriteShape rewrites a mention's snippet so its arguments match the
// authoritative shape. Only unambiguous mappings are attempted:
// positional arguments whose count matches the destructured field count
// (and the reverse). Anything else reports ok=false and is left to the
// repair agent.
func rewriteShape(m extract.Mention, snippet string, authoritative *contract.ShapeDescriptor) (string, bool) {
	if m.Side == extract.SideProducer {
		return rewriteProducerShape(snippet, authoritative)
	}
	return rewriteConsumerShape(m, snippet, authoritative)
}

// rewriteConsumerShape rewrites the argument list of an invocation snippet:
// ipcRenderer.invoke('save-note', filename, content) with a destructured
// authoritative shape becomes invoke('save-note', { filename, content }).
func rewriteConsumerShape(m extract.Mention, snippet string, authoritative *contract.ShapeDescriptor) (string, bool) {
	open := strings.Index(snippet, "(")
	if open == -1 {
		return "", false
	}
	inner, end, ok := extract.ScanBalanced(snippet, open)
	if !ok {
		return "", false
	}
	parts := extract.SplitArgs(inner)

	// Invocations through the bridge surface have no leading channel
	// literal; forwarder calls do.
	args := parts
	prefixParts := 0
	if len(parts) > 0 && isQuoted(parts[0]) {
		args = parts[1:]
		prefixParts = 1
	}

	rewritten, ok := mapArgs(args, authoritative)
	if !ok {
		return "", false
	}
	all := append(append([]string(nil), parts[:prefixParts]...), rewritten...)
	return snippet[:open+1] + strings.Join(all, ", ") + snippet[end-1:], true
}

// rewriteProducerShape rewrites a handler registration's callback parameter
// list to the authoritative shape, keeping the event parameter.
func rewriteProducerShape(snippet string, authoritative *contract.ShapeDescriptor) (string, bool) {
	open := strings.Index(snippet, "(")
	if open == -1 {
		return "", false
	}
	inner, _, ok := extract.ScanBalanced(snippet, open)
	if !ok {
		return "", false
	}
	parts := extract.SplitArgs(inner)
	if len(parts) < 2 {
		return "", false
	}
	oldParams := extract.CallbackParams(parts[1])
	if oldParams == "" {
		return "", false
	}

	parenOld := "(" + oldParams + ")"
	if !strings.Contains(snippet, parenOld) {
		return "", false
	}

	eventParam := "event"
	if first := extract.SplitArgs(oldParams); len(first) > 0 {
		eventParam = strings.TrimSpace(first[0])
	}
	oldArgs := extract.SplitArgs(oldParams)
	if len(oldArgs) > 0 {
		oldArgs = oldArgs[1:]
	}
	rewritten, ok := mapArgs(oldArgs, authoritative)
	if !ok {
		return "", false
	}
	newParams := "(" + strings.Join(append([]string{eventParam}, rewritten...), ", ") + ")"
	return strings.Replace(snippet, parenOld, newParams, 1), true
}

// mapArgs maps an argument list onto the authoritative shape. Positional
// args collapse into a destructured object (named by field when the names
// differ), and a destructured object expands into positional args in field
// order.
func mapArgs(args []string, authoritative *contract.ShapeDescriptor) ([]string, bool) {
	switch authoritative.Kind {
	case contract.ShapeDestructured:
		if len(args) != len(authoritative.Fields) {
			return nil, false
		}
		pairs := make([]string, len(args))
		for i, a := range args {
			a = strings.TrimSpace(a)
			if a == authoritative.Fields[i] {
				pairs[i] = a
			} else {
				pairs[i] = fmt.Sprintf("%s: %s", authoritative.Fields[i], a)
			}
		}
		return []string{"{ " + strings.Join(pairs, ", ") + " }"}, true
	case contract.ShapePositional:
		if len(args) != 1 {
			return nil, false
		}
		arg := strings.TrimSpace(args[0])
		if !strings.HasPrefix(arg, "{") || !strings.HasSuffix(arg, "}") {
			return nil, false
		}
		fields := extract.SplitArgs(strings.TrimSuffix(strings.TrimPrefix(arg, "{"), "}"))
		if len(fields) != authoritative.Arity {
			return nil, false
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return fields, true
	}
	return nil, false
}

func isQuoted(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 2 && (s[0] == '\'' || s[0] == '"' || s[0] == '`')
}
