package extractor

import (
	"strings"
)

// cleanDocComment turns the raw text of a comment block (one block comment,
// or several line comments) into documentation lines: comment markers and
// leading "*" continuations stripped, surrounding blank lines dropped, and
// common indentation removed. It returns nil when nothing is left.
func cleanDocComment(rawComments []string) []string {
	var lines []string
	for _, raw := range rawComments {
		raw = strings.TrimRight(raw, " \t\r\n")
		if strings.HasPrefix(raw, "/*") {
			lines = append(lines, blockCommentLines(raw)...)
			continue
		}
		l := strings.TrimPrefix(strings.TrimSpace(raw), "//")
		l = trimMarker(l)
		lines = append(lines, l)
	}

	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	lines = trimBlankEdges(lines)
	if len(lines) == 0 {
		return nil
	}
	return dedent(lines)
}

// trimMarker drops the doc marker of ///, //!, /** and /*! comments.
func trimMarker(s string) string {
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "!") {
		return s[1:]
	}
	return s
}

func blockCommentLines(raw string) []string {
	body := strings.TrimPrefix(raw, "/*")
	body = strings.TrimSuffix(body, "*/")
	if strings.HasPrefix(body, "*") || strings.HasPrefix(body, "!") {
		body = body[1:]
	}
	body = strings.TrimRight(body, "*")

	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	// Strip "*" continuations only when every continuation line uses them,
	// so a markdown list in an unstarred comment survives.
	starred := len(lines) > 1
	for _, l := range lines[1:] {
		t := strings.TrimSpace(l)
		if t != "" && !strings.HasPrefix(t, "*") {
			starred = false
			break
		}
	}

	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if starred && i > 0 {
			t := strings.TrimLeft(l, " \t")
			l = strings.TrimPrefix(t, "*")
		}
		if isDecoration(l) {
			l = ""
		}
		out = append(out, l)
	}
	return out
}

// isDecoration reports banner lines such as "*****" or "-----".
func isDecoration(l string) bool {
	t := strings.TrimSpace(l)
	if len(t) < 3 {
		return false
	}
	return strings.Trim(t, "*") == "" || strings.Trim(t, "=") == "" || strings.Trim(t, "-") == ""
}

func trimBlankEdges(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

// dedent removes the longest whitespace prefix shared by all non-blank lines.
func dedent(lines []string) []string {
	prefix := ""
	first := true
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		indent := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		if first {
			prefix, first = indent, false
			continue
		}
		prefix = commonPrefix(prefix, indent)
	}

	out := make([]string, len(lines))
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			out[i] = ""
			continue
		}
		out[i] = strings.TrimPrefix(l, prefix)
	}
	return out
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// isOuterDocComment reports Rust outer doc comments: /// (but not ////) and
// /** */ (but not /*** or /**/).
func isOuterDocComment(text string) bool {
	switch {
	case strings.HasPrefix(text, "///"):
		return !strings.HasPrefix(text, "////")
	case strings.HasPrefix(text, "/**"):
		return !strings.HasPrefix(text, "/***") && !strings.HasPrefix(text, "/**/")
	}
	return false
}
