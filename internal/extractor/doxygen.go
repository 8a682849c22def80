package extractor

import (
	"strings"
)

type docParam struct {
	name string
	text []string
}

// renderMarkdown rewrites common Doxygen commands into Markdown: @brief is
// dropped, @param entries become a "Parameters" list and @return becomes a
// "Returns" section. Lines without commands pass through unchanged.
func renderMarkdown(lines []string) []string {
	const (
		inBody = iota
		inParam
		inReturns
	)
	var (
		body    []string
		params  []docParam
		returns []string
		mode    = inBody
	)

	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		cmd, rest := splitCommand(trimmed)
		switch cmd {
		case "brief", "short":
			body = append(body, rest)
			mode = inBody
			continue
		case "param":
			name, text := splitParam(rest)
			p := docParam{name: name}
			if text != "" {
				p.text = append(p.text, text)
			}
			params = append(params, p)
			mode = inParam
			continue
		case "return", "returns", "result", "retval":
			if rest != "" {
				returns = append(returns, rest)
			}
			mode = inReturns
			continue
		}

		if trimmed == "" {
			mode = inBody
			body = append(body, "")
			continue
		}
		switch mode {
		case inParam:
			last := &params[len(params)-1]
			last.text = append(last.text, trimmed)
		case inReturns:
			returns = append(returns, trimmed)
		default:
			body = append(body, l)
		}
	}

	out := trimBlankEdges(body)
	if len(params) > 0 {
		if len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, "# Parameters", "")
		for _, p := range params {
			item := "* `" + p.name + "`"
			if len(p.text) > 0 {
				item += " " + strings.Join(p.text, " ")
			}
			out = append(out, item)
		}
	}
	if len(returns) > 0 {
		if len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, "# Returns", "", strings.Join(returns, " "))
	}
	return out
}

// splitCommand recognizes "@cmd rest" and "\cmd rest".
func splitCommand(line string) (string, string) {
	if len(line) < 2 || (line[0] != '@' && line[0] != '\\') {
		return "", ""
	}
	word, rest, _ := strings.Cut(line[1:], " ")
	word = strings.ToLower(word)
	// @param[in], @param[out]
	if i := strings.IndexByte(word, '['); i > 0 {
		word = word[:i]
	}
	return word, strings.TrimSpace(rest)
}

func splitParam(rest string) (string, string) {
	name, text, _ := strings.Cut(rest, " ")
	return name, strings.TrimSpace(text)
}
