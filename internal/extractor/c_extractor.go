package extractor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"aliasdoc/internal/diag"
	"aliasdoc/internal/source"
)

// IndexOptions controls which C declarations are indexed and how comments
// bind to them.
type IndexOptions struct {
	// Kinds lists the documentable symbol kinds. Empty means functions only.
	Kinds []SymbolKind
	// MaxBlankLines is the largest number of blank lines allowed between a
	// comment block and the declaration it documents.
	MaxBlankLines int
	// Markdown renders Doxygen commands as Markdown sections.
	Markdown bool
}

// DefaultIndexOptions indexes documented functions whose comment sits at
// most one blank line above them.
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		Kinds:         []SymbolKind{KindFunction},
		MaxBlankLines: 1,
	}
}

func (o IndexOptions) enabled(k SymbolKind) bool {
	if len(o.Kinds) == 0 {
		return k == KindFunction
	}
	for _, kind := range o.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}

func (o IndexOptions) key() string {
	kinds := make([]string, 0, len(o.Kinds))
	for _, k := range o.Kinds {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	return fmt.Sprintf("kinds=%s;blank=%d;md=%t", strings.Join(kinds, ","), o.MaxBlankLines, o.Markdown)
}

// CIndexer maps documented C declarations to their comments.
type CIndexer struct {
	opts IndexOptions
}

// NewCIndexer creates an indexer with the given options.
func NewCIndexer(opts IndexOptions) *CIndexer {
	if opts.MaxBlankLines < 0 {
		opts.MaxBlankLines = 0
	}
	return &CIndexer{opts: opts}
}

// Options returns the options the indexer was created with.
func (x *CIndexer) Options() IndexOptions {
	return x.opts
}

// declCandidate is a named declaration together with the offset its
// documentation must directly precede.
type declCandidate struct {
	name   string
	kind   SymbolKind
	anchor int
	node   *sitter.Node
}

// Index returns one entry per documented declaration, in source order.
// Within a file the first documented occurrence of a name wins: later
// occurrences with identical docs are dropped, later occurrences with
// different docs are kept (so the symbol table sees the conflict) and
// reported as ambiguous.
func (x *CIndexer) Index(ctx context.Context, file source.File) ([]CSymbolEntry, []diag.Diagnostic, error) {
	sourceCode, masked := maskMacroLines(file.Text)
	tree, err := parseTree(ctx, c.GetLanguage(), sourceCode)
	if err != nil {
		return nil, nil, err
	}

	root := tree.RootNode()
	var diags []diag.Diagnostic
	if root.HasError() {
		diags = append(diags, diag.New(diag.KindParseIrregularity, file.ID, 0, "",
			"file contains constructs the C grammar could not parse (macros?); declarations inside them may be missed"))
	}

	sc := &cScan{opts: x.opts, text: file.Text, sourceCode: sourceCode, masked: masked}
	sc.collectComments(root)
	sc.collectDecls(root)

	var entries []CSymbolEntry
	for _, d := range sc.decls {
		if !x.opts.enabled(d.kind) || d.name == "" {
			continue
		}
		doc := sc.commentFor(d.anchor)
		if len(doc) == 0 {
			continue
		}
		if x.opts.Markdown {
			if doc = renderMarkdown(doc); len(doc) == 0 {
				continue
			}
		}
		entries = append(entries, CSymbolEntry{
			Name: d.name,
			Kind: d.kind,
			Doc:  doc,
			File: file.ID,
			Span: nodeSpan(d.node),
		})
	}

	entries = dropRepeatedDocs(entries)
	diags = append(diags, ConflictDiagnostics(entries)...)
	return entries, diags, nil
}

// dropRepeatedDocs removes later entries that repeat an earlier entry's name
// and documentation (e.g. a prototype and its definition sharing a comment).
func dropRepeatedDocs(entries []CSymbolEntry) []CSymbolEntry {
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		key := e.Name + "\x00" + DocFingerprint(e.Doc)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// ConflictDiagnostics reports every name that entries document in more than
// one way. Entries are expected to come from a single file.
func ConflictDiagnostics(entries []CSymbolEntry) []diag.Diagnostic {
	byName := make(map[string][]CSymbolEntry)
	var order []string
	for _, e := range entries {
		if _, ok := byName[e.Name]; !ok {
			order = append(order, e.Name)
		}
		byName[e.Name] = append(byName[e.Name], e)
	}

	var diags []diag.Diagnostic
	for _, name := range order {
		group := byName[name]
		if len(group) < 2 {
			continue
		}
		d := diag.New(diag.KindAmbiguousMatch, group[1].File, group[1].Span.StartLine, name,
			"%s is documented differently by %d declarations; no Rust item aliasing it will be rewritten", name, len(group))
		for _, e := range group {
			d.Candidates = append(d.Candidates, e.Location())
		}
		diags = append(diags, d)
	}
	return diags
}

type cComment struct {
	start, end int // end excludes trailing whitespace
	text       string
	block      bool
	ownLine    bool
}

type cScan struct {
	opts       IndexOptions
	text       string
	sourceCode []byte
	comments   []cComment
	decls      []declCandidate
	masked     map[int]bool // line starts of masked macro lines
}

func (sc *cScan) collectComments(node *sitter.Node) {
	for _, child := range namedChildren(node) {
		if child.Type() == "comment" {
			text := strings.TrimRight(child.Content(sc.sourceCode), " \t\r\n")
			start := int(child.StartByte())
			_, ownLine := source.IndentBefore(sc.text, start)
			sc.comments = append(sc.comments, cComment{
				start:   start,
				end:     start + len(text),
				text:    text,
				block:   strings.HasPrefix(text, "/*"),
				ownLine: ownLine,
			})
			continue
		}
		sc.collectComments(child)
	}
}

// commentFor returns the cleaned documentation of the comment block that
// directly precedes offset, following the binding rule:
//   - only whitespace separates the block from the declaration,
//   - with at most MaxBlankLines blank lines,
//   - the block's comments each start their own line,
//   - the block is a single /* */ comment or a run of // comments on
//     consecutive lines.
func (sc *cScan) commentFor(offset int) []string {
	i := sort.Search(len(sc.comments), func(i int) bool {
		return sc.comments[i].end > offset
	}) - 1
	if i < 0 {
		return nil
	}
	last := sc.comments[i]
	gap := sc.text[last.end:offset]
	if !source.IsBlank(gap) || source.CountNewlines(gap) > sc.opts.MaxBlankLines+1 || !last.ownLine {
		return nil
	}

	if last.block {
		return cleanDocComment([]string{last.text})
	}

	first := i
	for j := i - 1; j >= 0; j-- {
		prev, next := sc.comments[j], sc.comments[j+1]
		between := sc.text[prev.end:next.start]
		if prev.block || !prev.ownLine || !source.IsBlank(between) || source.CountNewlines(between) != 1 {
			break
		}
		first = j
	}

	raw := make([]string, 0, i-first+1)
	for j := first; j <= i; j++ {
		raw = append(raw, sc.comments[j].text)
	}
	return cleanDocComment(raw)
}

// collectDecls walks the containers that can hold top-level declarations.
// Function bodies are never entered.
func (sc *cScan) collectDecls(node *sitter.Node) {
	for _, child := range namedChildren(node) {
		switch child.Type() {
		case "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "preproc_elifdef",
			"linkage_specification", "declaration_list", "ERROR":
			sc.collectDecls(child)
		case "function_definition":
			if decl := child.ChildByFieldName("declarator"); decl != nil {
				sc.add(declaratorName(decl, sc.sourceCode), KindFunction, child, child)
			}
		case "declaration":
			sc.addTypeSpecifier(child.ChildByFieldName("type"), child)
			for _, decl := range declarators(child) {
				kind := KindVariable
				if isFunctionDeclarator(decl) {
					kind = KindFunction
				}
				sc.add(declaratorName(decl, sc.sourceCode), kind, child, child)
			}
		case "type_definition":
			sc.addTypeSpecifier(child.ChildByFieldName("type"), child)
			for _, decl := range declarators(child) {
				sc.add(declaratorName(decl, sc.sourceCode), KindType, child, child)
			}
		case "struct_specifier", "union_specifier", "enum_specifier":
			sc.addTypeSpecifier(child, child)
		case "preproc_def", "preproc_function_def":
			if name := child.ChildByFieldName("name"); name != nil {
				sc.add(name.Content(sc.sourceCode), KindMacro, child, child)
			}
		}
	}
}

// addTypeSpecifier records a named struct, union or enum with a body, plus
// its enumerators. owner is the declaration whose start anchors the comment.
func (sc *cScan) addTypeSpecifier(spec *sitter.Node, owner *sitter.Node) {
	if spec == nil {
		return
	}
	switch spec.Type() {
	case "struct_specifier", "union_specifier", "enum_specifier":
	default:
		return
	}
	body := spec.ChildByFieldName("body")
	if body == nil {
		return
	}
	if name := spec.ChildByFieldName("name"); name != nil {
		sc.add(name.Content(sc.sourceCode), KindType, owner, spec)
	}
	if spec.Type() != "enum_specifier" {
		return
	}
	for _, e := range namedChildren(body) {
		if e.Type() != "enumerator" {
			continue
		}
		if name := e.ChildByFieldName("name"); name != nil {
			sc.add(name.Content(sc.sourceCode), KindEnumerator, e, e)
		}
	}
}

func (sc *cScan) add(name string, kind SymbolKind, anchor *sitter.Node, node *sitter.Node) {
	if name == "" || primitiveTypes[name] {
		return
	}
	sc.decls = append(sc.decls, declCandidate{
		name:   name,
		kind:   kind,
		anchor: sc.anchorAbove(int(anchor.StartByte())),
		node:   node,
	})
}

// anchorAbove moves a declaration's anchor up over the masked macro lines
// directly above it, so a comment above GLIB_AVAILABLE_IN_ALL still binds.
func (sc *cScan) anchorAbove(off int) int {
	if _, ok := source.IndentBefore(sc.text, off); !ok {
		return off
	}
	start := source.LineStart(sc.text, off)
	top := start
	for top > 0 {
		prev := source.LineStart(sc.text, top-1)
		if !sc.masked[prev] {
			break
		}
		top = prev
	}
	if top == start {
		return off
	}
	return top
}

// declarators returns the declarator children of a declaration or typedef,
// skipping its type specifier and qualifiers.
func declarators(n *sitter.Node) []*sitter.Node {
	typeNode := n.ChildByFieldName("type")
	var out []*sitter.Node
	for _, child := range namedChildren(n) {
		if sameNode(child, typeNode) {
			continue
		}
		t := child.Type()
		if t == "identifier" || t == "type_identifier" || strings.HasSuffix(t, "_declarator") {
			out = append(out, child)
		}
	}
	return out
}

// declaratorName digs through pointer, array, function, init and
// parenthesized declarators down to the declared identifier.
func declaratorName(n *sitter.Node, sourceCode []byte) string {
	for n != nil {
		switch n.Type() {
		case "identifier", "type_identifier", "field_identifier":
			return n.Content(sourceCode)
		}
		if inner := n.ChildByFieldName("declarator"); inner != nil {
			n = inner
			continue
		}
		var next *sitter.Node
		for _, child := range namedChildren(n) {
			t := child.Type()
			if t == "identifier" || t == "type_identifier" || strings.HasSuffix(t, "_declarator") {
				next = child
				break
			}
		}
		n = next
	}
	return ""
}

// isFunctionDeclarator distinguishes `int f(void)` and `char *f(void)` from
// variables such as `int (*callback)(void)` or `int x = 1`.
func isFunctionDeclarator(n *sitter.Node) bool {
	for n != nil {
		switch n.Type() {
		case "function_declarator":
			inner := n.ChildByFieldName("declarator")
			for inner != nil && inner.Type() == "parenthesized_declarator" && inner.NamedChildCount() == 1 {
				inner = inner.NamedChild(0)
			}
			return inner != nil && inner.Type() == "identifier"
		case "pointer_declarator", "attributed_declarator":
			next := n.ChildByFieldName("declarator")
			if next == nil && n.NamedChildCount() > 0 {
				next = n.NamedChild(int(n.NamedChildCount()) - 1)
			}
			n = next
		default:
			return false
		}
	}
	return false
}
