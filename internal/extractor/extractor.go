package extractor

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"aliasdoc/internal/source"
)

// parseTree parses sourceCode with a fresh parser. Parsers are not safe for
// concurrent use, so every scan creates its own.
func parseTree(ctx context.Context, lang *sitter.Language, sourceCode []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	return tree, nil
}

func nodeSpan(n *sitter.Node) source.Span {
	return source.Span{
		Start:     int(n.StartByte()),
		End:       int(n.EndByte()),
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}
}

// namedChildren returns the named children of n in source order.
func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	children := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); c != nil {
			children = append(children, c)
		}
	}
	return children
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
