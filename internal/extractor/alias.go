package extractor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// AliasSyntax names the attribute and key that carry C symbol aliases.
// The default recognizes #[doc(alias = "name")].
type AliasSyntax struct {
	Attribute string `yaml:"attribute" toml:"attribute" json:"attribute" validate:"required"`
	Key       string `yaml:"key" toml:"key" json:"key" validate:"required"`
}

// DefaultAliasSyntax returns the doc(alias) spelling.
func DefaultAliasSyntax() AliasSyntax {
	return AliasSyntax{Attribute: "doc", Key: "alias"}
}

// attrInfo is what one attribute contributes to its item.
type attrInfo struct {
	aliases   []string
	docText   bool     // #[doc = "..."]: the item already has documentation
	malformed []string // problems with alias lists that were present but unparsable
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokPunct
	tokOther
)

type token struct {
	kind tokenKind
	text string // unescaped value for strings
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

var errUnterminated = errors.New("unterminated string literal")

// analyzeAttribute inspects the text of one outer attribute (#[...]).
func analyzeAttribute(text string, syntax AliasSyntax) attrInfo {
	var info attrInfo
	body := strings.TrimSpace(text)
	body = strings.TrimPrefix(body, "#")
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "[") || !strings.HasSuffix(body, "]") {
		return info
	}
	body = body[1 : len(body)-1]

	toks, err := lexAttr(body)
	if err != nil {
		if mentionsAlias(body, syntax) {
			info.malformed = append(info.malformed, err.Error())
		}
		return info
	}
	analyzeMeta(toks, syntax, &info)
	return info
}

func mentionsAlias(body string, syntax AliasSyntax) bool {
	return strings.Contains(body, syntax.Attribute) && strings.Contains(body, syntax.Key)
}

// analyzeMeta handles one meta item: path, path = value or path(...).
func analyzeMeta(toks []token, syntax AliasSyntax, info *attrInfo) {
	path, rest := readPath(toks)
	switch {
	case path == "cfg_attr":
		inner, ok := parenthesized(rest)
		if !ok {
			return
		}
		items := splitTopLevel(inner)
		// The first item is the cfg predicate; the rest are attributes.
		for _, item := range items[min(1, len(items)):] {
			analyzeMeta(item, syntax, info)
		}
	case path == syntax.Attribute:
		if len(rest) > 0 && rest[0].is(tokPunct, "=") {
			info.docText = true
			return
		}
		inner, ok := parenthesized(rest)
		if !ok {
			return
		}
		for _, item := range splitTopLevel(inner) {
			analyzeAliasItem(item, syntax, info)
		}
	}
}

// analyzeAliasItem handles one entry inside doc(...): alias = "x" or alias("x", "y").
func analyzeAliasItem(item []token, syntax AliasSyntax, info *attrInfo) {
	key, rest := readPath(item)
	if key != syntax.Key {
		return
	}
	switch {
	case len(rest) == 2 && rest[0].is(tokPunct, "=") && rest[1].kind == tokString:
		info.aliases = append(info.aliases, rest[1].text)
	case len(rest) > 0 && rest[0].is(tokPunct, "("):
		inner, ok := parenthesized(rest)
		if !ok {
			info.malformed = append(info.malformed, fmt.Sprintf("unbalanced %s(...) list", syntax.Key))
			return
		}
		values := splitTopLevel(inner)
		if len(values) == 0 {
			info.malformed = append(info.malformed, fmt.Sprintf("empty %s(...) list", syntax.Key))
			return
		}
		for _, v := range values {
			if len(v) != 1 || v[0].kind != tokString {
				info.malformed = append(info.malformed, fmt.Sprintf("%s list entry %q is not a string literal", syntax.Key, joinTokens(v)))
				continue
			}
			info.aliases = append(info.aliases, v[0].text)
		}
	default:
		info.malformed = append(info.malformed, fmt.Sprintf("expected %s = \"name\", found %q", syntax.Key, joinTokens(item)))
	}
}

// readPath consumes an identifier path such as doc or a::b.
func readPath(toks []token) (string, []token) {
	var b strings.Builder
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.kind == tokIdent {
			b.WriteString(t.text)
			i++
			if i+1 < len(toks) && toks[i].is(tokPunct, ":") && toks[i+1].is(tokPunct, ":") {
				b.WriteString("::")
				i += 2
				continue
			}
		}
		break
	}
	return b.String(), toks[i:]
}

// parenthesized returns the tokens inside "( ... )" when rest is exactly one group.
func parenthesized(rest []token) ([]token, bool) {
	if len(rest) < 2 || !rest[0].is(tokPunct, "(") || !rest[len(rest)-1].is(tokPunct, ")") {
		return nil, false
	}
	depth := 0
	for i, t := range rest {
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth == 0 && i != len(rest)-1 {
				return nil, false
			}
		}
	}
	if depth != 0 {
		return nil, false
	}
	return rest[1 : len(rest)-1], true
}

// splitTopLevel splits on commas that are not nested in a group. Empty
// trailing entries are dropped.
func splitTopLevel(toks []token) [][]token {
	var items [][]token
	depth, start := 0, 0
	for i, t := range toks {
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ",":
			if depth == 0 {
				items = append(items, toks[start:i])
				start = i + 1
			}
		}
	}
	if start < len(toks) {
		items = append(items, toks[start:])
	}
	out := items[:0]
	for _, item := range items {
		if len(item) > 0 {
			out = append(out, item)
		}
	}
	return out
}

func joinTokens(toks []token) string {
	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		if t.kind == tokString {
			parts = append(parts, strconv.Quote(t.text))
			continue
		}
		parts = append(parts, t.text)
	}
	return strings.Join(parts, " ")
}

// lexAttr tokenizes the inside of an attribute.
func lexAttr(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '"':
			val, n, err := lexString(s[i:])
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: val})
			i += n
		case (r == 'r' || r == 'b' || r == 'c') && rawOrPrefixedString(s[i:]):
			val, n, err := lexPrefixedString(s[i:])
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: val})
			i += n
		case r == '_' || unicode.IsLetter(r):
			j := i
			for j < len(s) {
				r2, sz := utf8.DecodeRuneInString(s[j:])
				if r2 != '_' && !unicode.IsLetter(r2) && !unicode.IsDigit(r2) {
					break
				}
				j += sz
			}
			toks = append(toks, token{kind: tokIdent, text: s[i:j]})
			i = j
		case unicode.IsDigit(r):
			j := i
			for j < len(s) && (isAlnum(s[j]) || s[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokOther, text: s[i:j]})
			i = j
		case r == '\'':
			// char literal or lifetime; neither can hold an alias
			j := i + 1
			for j < len(s) && s[j] != '\'' && s[j] != ',' && s[j] != ')' {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(s) && s[j] == '\'' {
				j++
			}
			toks = append(toks, token{kind: tokOther, text: s[i:min(j, len(s))]})
			i = min(j, len(s))
		default:
			toks = append(toks, token{kind: tokPunct, text: string(r)})
			i += size
		}
	}
	return toks, nil
}

func isAlnum(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// rawOrPrefixedString reports whether s starts with r"", r#"", b"", br"" or c"".
func rawOrPrefixedString(s string) bool {
	i := 0
	if i < len(s) && (s[i] == 'b' || s[i] == 'c') {
		i++
	}
	if i < len(s) && s[i] == 'r' {
		i++
		for i < len(s) && s[i] == '#' {
			i++
		}
	}
	return i > 0 && i < len(s) && s[i] == '"'
}

func lexPrefixedString(s string) (string, int, error) {
	i := 0
	if s[i] == 'b' || s[i] == 'c' {
		i++
	}
	if s[i] != 'r' {
		val, n, err := lexString(s[i:])
		return val, i + n, err
	}
	i++
	hashes := 0
	for s[i] == '#' {
		hashes++
		i++
	}
	i++ // opening quote
	closing := "\"" + strings.Repeat("#", hashes)
	end := strings.Index(s[i:], closing)
	if end < 0 {
		return "", 0, errUnterminated
	}
	return s[i : i+end], i + end + len(closing), nil
}

// lexString reads a normal Rust string literal starting at s[0] == '"'.
func lexString(s string) (string, int, error) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		switch c {
		case '"':
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(s) {
				return "", 0, errUnterminated
			}
			n, err := unescape(s[i+1:], &b)
			if err != nil {
				return "", 0, err
			}
			i += 1 + n
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, errUnterminated
}

// unescape decodes the escape following a backslash and returns how many
// bytes it consumed.
func unescape(s string, b *strings.Builder) (int, error) {
	switch s[0] {
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case '0':
		b.WriteByte(0)
	case '\\', '"', '\'':
		b.WriteByte(s[0])
	case 'x':
		if len(s) < 3 {
			return 0, fmt.Errorf("invalid \\x escape")
		}
		v, err := strconv.ParseUint(s[1:3], 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid \\x escape: %w", err)
		}
		b.WriteByte(byte(v))
		return 3, nil
	case 'u':
		end := strings.IndexByte(s, '}')
		if len(s) < 3 || s[1] != '{' || end < 0 {
			return 0, fmt.Errorf("invalid \\u escape")
		}
		v, err := strconv.ParseUint(strings.ReplaceAll(s[2:end], "_", ""), 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid \\u escape: %w", err)
		}
		b.WriteRune(rune(v))
		return end + 1, nil
	case '\n', '\r':
		// line continuation: skip the newline and following indentation
		n := 0
		for n < len(s) && (s[n] == '\n' || s[n] == '\r' || s[n] == ' ' || s[n] == '\t') {
			n++
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unknown escape \\%c", s[0])
	}
	return 1, nil
}
