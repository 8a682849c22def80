package extractor

import (
	"regexp"
	"strings"
)

var (
	// macroLineRe matches a line holding only a macro invocation such as
	// G_BEGIN_DECLS, GLIB_AVAILABLE_IN_ALL or GLIB_DEPRECATED_IN_2_26_FOR(g_x).
	macroLineRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*(\s*\([^()]*\))?$`)
	// callStartRe matches a line beginning with `name(`, which makes a bare
	// all-caps line above it a return type rather than a decorator.
	callStartRe = regexp.MustCompile(`^\**\s*[A-Za-z_]\w*\s*\(`)
	externCRe   = regexp.MustCompile(`^extern\s*"C(\+\+)?"$`)
)

// primitiveTypes are never symbol names; seeing one as a declarator means the
// grammar misread a macro.
var primitiveTypes = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"_Bool": true, "bool": true, "const": true, "volatile": true,
	"static": true, "extern": true, "inline": true, "struct": true,
	"union": true, "enum": true, "size_t": true,
}

// maskMacroLines blanks top-level lines that hold nothing but a macro
// invocation, so the C grammar sees plain declarations. Every byte offset is
// preserved. It returns the masked text and the start offsets of the masked
// lines.
func maskMacroLines(text string) ([]byte, map[int]bool) {
	out := []byte(text)
	masked := make(map[int]bool)

	var (
		braces  []bool // true for extern "C" blocks, which do not nest declarations
		depth   int
		last    byte // last significant byte outside comments, literals and directives
		stmt    strings.Builder
		inBlock bool
	)

	for lineStart := 0; lineStart < len(text); {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		line := text[lineStart:lineEnd]
		trimmed := strings.TrimSpace(line)

		switch {
		case !inBlock && depth == 0 && (last == 0 || last == ';' || last == '}') &&
			macroLineRe.MatchString(trimmed) && !callStartRe.MatchString(nextCodeLine(text, lineEnd)):
			for i := lineStart; i < lineEnd; i++ {
				if out[i] != '\r' {
					out[i] = ' '
				}
			}
			masked[lineStart] = true

		case !inBlock && strings.HasPrefix(trimmed, "#"):
			for strings.HasSuffix(strings.TrimRight(line, " \t\r"), "\\") && lineEnd < len(text) {
				lineStart = lineEnd + 1
				next := strings.IndexByte(text[lineStart:], '\n')
				if next < 0 {
					lineEnd = len(text)
				} else {
					lineEnd = lineStart + next
				}
				line = text[lineStart:lineEnd]
			}

		default:
			for i := 0; i < len(line); i++ {
				ch := line[i]
				if inBlock {
					if ch == '*' && i+1 < len(line) && line[i+1] == '/' {
						inBlock = false
						i++
					}
					continue
				}
				switch {
				case ch == '/' && i+1 < len(line) && line[i+1] == '*':
					inBlock = true
					i++
				case ch == '/' && i+1 < len(line) && line[i+1] == '/':
					i = len(line)
				case ch == '"' || ch == '\'':
					end := closingQuote(line, i)
					stmt.WriteString(line[i:end])
					i = end - 1
					last = ch
				case ch == '{':
					transparent := depth == 0 && externCRe.MatchString(strings.TrimSpace(stmt.String()))
					braces = append(braces, transparent)
					if transparent {
						last = ';'
					} else {
						depth++
						last = ch
					}
					stmt.Reset()
				case ch == '}':
					if n := len(braces); n > 0 {
						if !braces[n-1] {
							depth--
						}
						braces = braces[:n-1]
					}
					last = ch
					stmt.Reset()
				case ch == ';':
					last = ch
					stmt.Reset()
				case ch == ' ' || ch == '\t' || ch == '\r':
					stmt.WriteByte(' ')
				default:
					last = ch
					stmt.WriteByte(ch)
				}
			}
			stmt.WriteByte(' ')
		}
		lineStart = lineEnd + 1
	}
	return out, masked
}

// closingQuote returns the offset just past the literal opened at line[i].
func closingQuote(line string, i int) int {
	q := line[i]
	for j := i + 1; j < len(line); j++ {
		switch line[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return len(line)
}

// nextCodeLine returns the first non-blank line after offset lineEnd, trimmed.
func nextCodeLine(text string, lineEnd int) string {
	rest := text[min(lineEnd+1, len(text)):]
	for rest != "" {
		line := rest
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			rest = ""
		}
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
