// Package rewriter inserts imported documentation into Rust source text.
// Insertion is strictly additive: every original byte is kept, in order.
package rewriter

import (
	"sort"
	"strings"

	"aliasdoc/internal/matcher"
	"aliasdoc/internal/source"
)

// Result is the outcome for one Rust file.
type Result struct {
	File       string `json:"file"`
	Changed    bool   `json:"changed"`
	Text       string `json:"-"`
	Original   string `json:"-"`
	Insertions int    `json:"insertions"`
	// AlreadyPresent counts matches skipped because their docs were imported
	// by an earlier run.
	AlreadyPresent int `json:"already_present"`
}

type insertion struct {
	at   int
	text string
}

// RenderBlock renders documentation lines as Rust doc comment lines at the
// given indentation.
func RenderBlock(indent string, doc []string) []string {
	lines := make([]string, len(doc))
	for i, l := range doc {
		if l == "" {
			lines[i] = indent + "///"
			continue
		}
		lines[i] = indent + "/// " + l
	}
	return lines
}

// Rewrite applies matches (all belonging to file, in scan order) to the
// file's text. With nothing to insert the result carries the input text
// unchanged.
func Rewrite(file source.File, matches []matcher.Result) Result {
	res := Result{File: file.ID, Text: file.Text, Original: file.Text}
	if len(matches) == 0 {
		return res
	}

	nl := source.Newline(file.Text)
	inserts := make([]insertion, 0, len(matches))
	for _, m := range matches {
		site := m.Site
		if !validAnchor(file.Text, site.Anchor) || len(m.Entry.Doc) == 0 {
			continue
		}
		block := RenderBlock(site.Indent, m.Entry.Doc)
		if alreadyImported(file.Text, site.Prelude, block) {
			res.AlreadyPresent++
			continue
		}
		inserts = append(inserts, insertion{
			at:   site.Anchor,
			text: strings.Join(block, nl) + nl,
		})
	}
	if len(inserts) == 0 {
		return res
	}

	// Offsets all refer to the original text; equal anchors keep scan order.
	sort.SliceStable(inserts, func(i, j int) bool {
		return inserts[i].at < inserts[j].at
	})

	var b strings.Builder
	b.Grow(len(file.Text) + 64*len(inserts))
	prev := 0
	for _, ins := range inserts {
		b.WriteString(file.Text[prev:ins.at])
		b.WriteString(ins.text)
		prev = ins.at
	}
	b.WriteString(file.Text[prev:])

	res.Text = b.String()
	res.Changed = true
	res.Insertions = len(inserts)
	return res
}

// RewriteAll rewrites every file, routing matches to their file. Files with
// no matches come back unchanged.
func RewriteAll(files []source.File, matches []matcher.Result) []Result {
	byFile := Partition(matches)
	results := make([]Result, len(files))
	for i, f := range files {
		results[i] = Rewrite(f, byFile[f.ID])
	}
	return results
}

// Partition groups matches by file, keeping their relative order.
func Partition(matches []matcher.Result) map[string][]matcher.Result {
	byFile := make(map[string][]matcher.Result)
	for _, m := range matches {
		byFile[m.Site.File] = append(byFile[m.Site.File], m)
	}
	return byFile
}

func validAnchor(text string, at int) bool {
	if at < 0 || at > len(text) {
		return false
	}
	return at == 0 || text[at-1] == '\n'
}

// alreadyImported reports whether block already occurs, line for line, in
// the prelude (the item's docs and attributes). Indentation is ignored so a
// reformatted file is still recognized.
func alreadyImported(text string, prelude source.Span, block []string) bool {
	if prelude.Start < 0 || prelude.End > len(text) || prelude.Start >= prelude.End {
		return false
	}
	have := normalizedLines(text[prelude.Start:prelude.End])
	want := normalizedLines(strings.Join(block, "\n"))
	if len(want) == 0 || len(want) > len(have) {
		return false
	}
	for i := 0; i+len(want) <= len(have); i++ {
		match := true
		for j := range want {
			if have[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func normalizedLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}
