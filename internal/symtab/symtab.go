// Package symtab merges per-file C symbol entries into the single read-only
// table the matcher consults.
package symtab

import (
	"sort"

	"aliasdoc/internal/diag"
	"aliasdoc/internal/extractor"
)

// Status is the outcome of a table lookup.
type Status int

const (
	Missing Status = iota
	Found
	Conflicted
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Conflicted:
		return "conflicted"
	}
	return "missing"
}

// Table maps symbol names to their documentation. It is immutable once
// built and safe for concurrent reads.
type Table struct {
	entries map[string]extractor.CSymbolEntry

	// Every distinct documentation candidate of a conflicted name, in the
	// order they were added.
	conflicts map[string][]extractor.CSymbolEntry
}

// Build merges entries in the given order. The first entry of a name wins;
// a later entry with different documentation marks the name as conflicted.
// Conflicts spanning several files are reported here; conflicts within one
// file were already reported by the indexer.
func Build(entries []extractor.CSymbolEntry) (*Table, []diag.Diagnostic) {
	t := &Table{
		entries:   make(map[string]extractor.CSymbolEntry, len(entries)),
		conflicts: make(map[string][]extractor.CSymbolEntry),
	}

	for _, e := range entries {
		if candidates, ok := t.conflicts[e.Name]; ok {
			if !containsDoc(candidates, e) {
				t.conflicts[e.Name] = append(candidates, e)
			}
			continue
		}
		existing, ok := t.entries[e.Name]
		if !ok {
			t.entries[e.Name] = e
			continue
		}
		if extractor.DocFingerprint(existing.Doc) == extractor.DocFingerprint(e.Doc) {
			continue
		}
		t.conflicts[e.Name] = []extractor.CSymbolEntry{existing, e}
	}

	var diags []diag.Diagnostic
	for _, name := range t.ConflictedNames() {
		candidates := t.conflicts[name]
		if !spansFiles(candidates) {
			continue
		}
		second := candidates[1]
		d := diag.New(diag.KindAmbiguousMatch, second.File, second.Span.StartLine, name,
			"%s is documented differently in %d places; no Rust item aliasing it will be rewritten", name, len(candidates))
		for _, c := range candidates {
			d.Candidates = append(d.Candidates, extractor.BuildStableSymbolID(c))
		}
		diags = append(diags, d)
	}
	return t, diags
}

func containsDoc(candidates []extractor.CSymbolEntry, e extractor.CSymbolEntry) bool {
	fp := extractor.DocFingerprint(e.Doc)
	for _, c := range candidates {
		if extractor.DocFingerprint(c.Doc) == fp {
			return true
		}
	}
	return false
}

func spansFiles(candidates []extractor.CSymbolEntry) bool {
	for _, c := range candidates[1:] {
		if c.File != candidates[0].File {
			return true
		}
	}
	return false
}

// Lookup finds the documentation of name. A conflicted name returns the zero
// entry; use Candidates to see what disagreed.
func (t *Table) Lookup(name string) (extractor.CSymbolEntry, Status) {
	if _, ok := t.conflicts[name]; ok {
		return extractor.CSymbolEntry{}, Conflicted
	}
	e, ok := t.entries[name]
	if !ok {
		return extractor.CSymbolEntry{}, Missing
	}
	return e, Found
}

// Candidates returns the disagreeing entries of a conflicted name.
func (t *Table) Candidates(name string) []extractor.CSymbolEntry {
	return t.conflicts[name]
}

// Len returns the number of distinct names in the table, conflicted or not.
func (t *Table) Len() int {
	return len(t.entries)
}

// ConflictedNames returns the conflicted names in sorted order.
func (t *Table) ConflictedNames() []string {
	names := make([]string, 0, len(t.conflicts))
	for name := range t.conflicts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
