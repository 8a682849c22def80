package extractor

import (
	"fmt"
	"strings"

	"aliasdoc/internal/source"
)

// AliasSite is a Rust item carrying one or more doc-alias annotations.
type AliasSite struct {
	File     string      `json:"file"`
	ItemKind string      `json:"item_kind"` // tree-sitter node type, e.g. "function_signature_item"
	Span     source.Span `json:"span"`     // the item's own syntax, without attributes or docs
	Aliases  []string    `json:"aliases"`  // declaration order, duplicates removed
	HasDocs  bool        `json:"has_docs"`

	// Anchor is the line start where imported docs go: above the item's
	// existing doc comments and attributes.
	Anchor int    `json:"anchor"`
	Indent string `json:"indent"`

	// Prelude covers Anchor up to the item's first byte.
	Prelude source.Span `json:"prelude"`
}

// SymbolKind is the class of C declaration a symbol entry comes from.
type SymbolKind string

const (
	KindFunction   SymbolKind = "function"
	KindType       SymbolKind = "type"
	KindEnumerator SymbolKind = "enumerator"
	KindMacro      SymbolKind = "macro"
	KindVariable   SymbolKind = "variable"
)

// AllSymbolKinds lists every kind the C indexer understands.
var AllSymbolKinds = []SymbolKind{KindFunction, KindType, KindEnumerator, KindMacro, KindVariable}

// ParseSymbolKind converts a configuration string to a SymbolKind.
func ParseSymbolKind(s string) (SymbolKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "func", "functions":
		s = string(KindFunction)
	case "types", "typedef", "struct", "enum":
		s = string(KindType)
	case "enumerators", "constant":
		s = string(KindEnumerator)
	case "macros", "define":
		s = string(KindMacro)
	case "var", "variables", "global":
		s = string(KindVariable)
	}
	for _, k := range AllSymbolKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown symbol kind %q", s)
}

// CSymbolEntry is a C declaration together with the comment bound to it.
type CSymbolEntry struct {
	Name string      `json:"name"`
	Kind SymbolKind  `json:"kind"`
	Doc  []string    `json:"doc"` // comment markers stripped, dedented
	File string      `json:"file"`
	Span source.Span `json:"span"`
}

// DocText joins the documentation lines.
func (e CSymbolEntry) DocText() string {
	return strings.Join(e.Doc, "\n")
}

// Location renders file:line of the declaration.
func (e CSymbolEntry) Location() string {
	return fmt.Sprintf("%s:%d", e.File, e.Span.StartLine)
}
