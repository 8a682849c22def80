package extractor

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"aliasdoc/internal/diag"
	"aliasdoc/internal/source"
)

// RustScanner finds alias-annotated items in Rust source.
type RustScanner struct {
	syntax AliasSyntax
}

// NewRustScanner creates a scanner recognizing the given alias spelling.
func NewRustScanner(syntax AliasSyntax) *RustScanner {
	if syntax.Attribute == "" || syntax.Key == "" {
		syntax = DefaultAliasSyntax()
	}
	return &RustScanner{syntax: syntax}
}

// Scan returns the alias sites of file in source order. Irregular input is
// reported through diagnostics; the error is only non-nil when parsing itself
// could not run (e.g. the context was cancelled).
func (s *RustScanner) Scan(ctx context.Context, file source.File) ([]AliasSite, []diag.Diagnostic, error) {
	sourceCode := []byte(file.Text)
	tree, err := parseTree(ctx, rust.GetLanguage(), sourceCode)
	if err != nil {
		return nil, nil, err
	}

	sc := &rustScan{
		syntax:     s.syntax,
		file:       file,
		sourceCode: sourceCode,
	}
	root := tree.RootNode()
	if root.HasError() {
		sc.diags = append(sc.diags, diag.New(diag.KindParseIrregularity, file.ID, 0, "",
			"file contains syntax errors; items inside them may be missed"))
	}
	sc.walk(root)
	return sc.sites, sc.diags, nil
}

type rustScan struct {
	syntax     AliasSyntax
	file       source.File
	sourceCode []byte
	sites      []AliasSite
	diags      []diag.Diagnostic
}

func isPreludeNode(n *sitter.Node) bool {
	switch n.Type() {
	case "attribute_item", "line_comment", "block_comment":
		return true
	}
	return false
}

func (sc *rustScan) walk(node *sitter.Node) {
	for _, child := range namedChildren(node) {
		if isPreludeNode(child) || child.Type() == "inner_attribute_item" {
			continue
		}
		sc.visitItem(child)
		sc.walk(child)
	}
}

// visitItem collects the attributes and comments directly preceding item
// and records an AliasSite when any of them is an alias annotation.
func (sc *rustScan) visitItem(item *sitter.Node) {
	var prelude []*sitter.Node
	for prev := item.PrevNamedSibling(); prev != nil && isPreludeNode(prev); prev = prev.PrevNamedSibling() {
		if prev.Type() != "attribute_item" {
			// a comment trailing earlier code on its line belongs to that code
			if _, ok := source.IndentBefore(sc.file.Text, int(prev.StartByte())); !ok {
				break
			}
		}
		prelude = append(prelude, prev)
	}
	if len(prelude) == 0 {
		return
	}

	var (
		aliases []string
		hasDocs bool
		anchor  *sitter.Node
	)
	for i := len(prelude) - 1; i >= 0; i-- {
		n := prelude[i]
		text := n.Content(sc.sourceCode)
		switch n.Type() {
		case "attribute_item":
			info := analyzeAttribute(text, sc.syntax)
			aliases = append(aliases, info.aliases...)
			hasDocs = hasDocs || info.docText
			for _, problem := range info.malformed {
				sc.diags = append(sc.diags, diag.New(diag.KindMalformedAlias, sc.file.ID,
					int(n.StartPoint().Row)+1, "", "malformed alias annotation %s: %s", text, problem))
			}
			if anchor == nil {
				anchor = n
			}
		default:
			if isOuterDocComment(text) {
				hasDocs = true
				if anchor == nil {
					anchor = n
				}
			}
		}
	}
	if len(aliases) == 0 {
		return
	}

	aliases = dedupeStrings(aliases)
	start := int(anchor.StartByte())
	indent, ok := source.IndentBefore(sc.file.Text, start)
	if !ok {
		sc.diags = append(sc.diags, diag.New(diag.KindUnanchorable, sc.file.ID,
			int(anchor.StartPoint().Row)+1, aliases[0],
			"%s item shares its first line with other code; not rewriting it", item.Type()))
		return
	}

	lineStart := source.LineStart(sc.file.Text, start)
	itemSpan := nodeSpan(item)
	sc.sites = append(sc.sites, AliasSite{
		File:     sc.file.ID,
		ItemKind: item.Type(),
		Span:     itemSpan,
		Aliases:  aliases,
		HasDocs:  hasDocs,
		Anchor:   lineStart,
		Indent:   indent,
		Prelude: source.Span{
			Start:     lineStart,
			End:       itemSpan.Start,
			StartLine: int(anchor.StartPoint().Row) + 1,
			EndLine:   itemSpan.StartLine,
		},
	})
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
