package extract

import "strings"

// blankJSComments replaces // and /* */ comment bodies with spaces while
// preserving line structure, so byte offsets keep mapping to the original
// lines. Quote state is tracked so comment markers inside string literals
// (URLs, template text) survive. Best-effort: nested template-literal
// expressions are not interpreted.
func blankJSComments(text string) string {
	out := []byte(text)
	var quote byte
	i := 0
	for i < len(out) {
		c := out[i]
		if quote != 0 {
			if c == '\\' {
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
			i++
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
			i++
		case '/':
			if i+1 < len(out) && out[i+1] == '/' {
				for i < len(out) && out[i] != '\n' {
					out[i] = ' '
					i++
				}
			} else if i+1 < len(out) && out[i+1] == '*' {
				for i < len(out) {
					if out[i] == '*' && i+1 < len(out) && out[i+1] == '/' {
						out[i], out[i+1] = ' ', ' '
						i += 2
						break
					}
					if out[i] != '\n' {
						out[i] = ' '
					}
					i++
				}
			} else {
				i++
			}
		default:
			i++
		}
	}
	return string(out)
}

// blankHTMLComments replaces <!-- --> comment bodies with spaces, preserving
// line structure.
func blankHTMLComments(text string) string {
	out := []byte(text)
	for {
		start := strings.Index(string(out), "<!--")
		if start == -1 {
			break
		}
		end := strings.Index(string(out[start:]), "-->")
		if end == -1 {
			end = len(out) - start
		} else {
			end += 3
		}
		for i := start; i < start+end; i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}
	return string(out)
}
