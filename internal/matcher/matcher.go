// Package matcher joins Rust alias sites to documented C symbols by exact,
// case-sensitive name.
package matcher

import (
	"strings"

	"aliasdoc/internal/diag"
	"aliasdoc/internal/extractor"
	"aliasdoc/internal/symtab"
)

// Result pairs an alias site with the C entry whose docs it will receive.
type Result struct {
	Site  extractor.AliasSite    `json:"site"`
	Entry extractor.CSymbolEntry `json:"entry"`
	Alias string                 `json:"alias"` // the alias that matched
}

// Matcher looks aliases up in a symbol table.
type Matcher struct {
	table *symtab.Table
}

// New creates a matcher over a built table.
func New(table *symtab.Table) *Matcher {
	return &Matcher{table: table}
}

// Match resolves every site in order. The first alias that matches wins.
// A site is skipped with an ambiguous-match diagnostic when any of its
// aliases names a conflicted symbol, or when two aliases match symbols with
// different documentation.
func (m *Matcher) Match(sites []extractor.AliasSite) ([]Result, []diag.Diagnostic) {
	var (
		results []Result
		diags   []diag.Diagnostic
	)
	for _, site := range sites {
		res, d, ok := m.matchSite(site)
		if d != nil {
			diags = append(diags, *d)
		}
		if ok {
			results = append(results, res)
		}
	}
	return results, diags
}

func (m *Matcher) matchSite(site extractor.AliasSite) (Result, *diag.Diagnostic, bool) {
	var (
		first         *Result
		firstReported bool
		ambiguous     []string
		candidates    []string
	)
	for _, alias := range site.Aliases {
		entry, status := m.table.Lookup(alias)
		switch status {
		case symtab.Conflicted:
			ambiguous = append(ambiguous, alias)
			for _, c := range m.table.Candidates(alias) {
				candidates = append(candidates, extractor.BuildStableSymbolID(c))
			}
		case symtab.Found:
			if first == nil {
				first = &Result{Site: site, Entry: entry, Alias: alias}
				continue
			}
			if extractor.DocFingerprint(first.Entry.Doc) != extractor.DocFingerprint(entry.Doc) {
				if !firstReported {
					ambiguous = append(ambiguous, first.Alias)
					candidates = append(candidates, extractor.BuildStableSymbolID(first.Entry))
					firstReported = true
				}
				ambiguous = append(ambiguous, alias)
				candidates = append(candidates, extractor.BuildStableSymbolID(entry))
			}
		}
	}

	line := site.Span.StartLine
	if len(ambiguous) > 0 {
		d := diag.New(diag.KindAmbiguousMatch, site.File, line, ambiguous[0],
			"aliases %s resolve to conflicting C documentation; item left unchanged", quoteAll(ambiguous))
		d.Candidates = candidates
		return Result{}, &d, false
	}
	if first == nil {
		d := diag.New(diag.KindUnmatchedAlias, site.File, line, site.Aliases[0],
			"no documented C symbol for %s", quoteAll(site.Aliases))
		return Result{}, &d, false
	}
	return *first, nil, true
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = `"` + n + `"`
	}
	return strings.Join(quoted, ", ")
}
