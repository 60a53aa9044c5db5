// Package pyast provides the Tree-sitter-backed Python parsing and AST
// walking shared by the static validator and the reference symbolic
// engine's branch/complexity analysis. Both consumers need the same
// node-level view of a function body; this package is where that view
// lives so the two never drift out of sync with each other.
package pyast

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

var parserPool = sync.Pool{
	New: func() any {
		p := sitter.NewParser()
		p.SetLanguage(python.GetLanguage())
		return p
	},
}

// Tree wraps a parsed Tree-sitter tree together with the source bytes
// its byte offsets index into, since nodes alone can't be rendered back
// to text.
type Tree struct {
	Root   *sitter.Node
	Source []byte

	raw *sitter.Tree
}

// Close releases the underlying Tree-sitter tree. Callers must defer
// this after a successful Parse.
func (t *Tree) Close() {
	if t.raw != nil {
		t.raw.Close()
	}
}

// Parse parses Python source using a pooled parser, returning an error
// wrapping any Tree-sitter failure. A tree with ERROR nodes is still
// returned (syntax errors are reported by inspecting it), not failed
// outright — Tree-sitter is error-tolerant by design.
func Parse(ctx context.Context, source []byte) (*Tree, error) {
	parserObj := parserPool.Get()
	parser, ok := parserObj.(*sitter.Parser)
	if !ok {
		return nil, fmt.Errorf("pyast: invalid parser type from pool")
	}
	defer parserPool.Put(parser)

	raw, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("pyast: tree-sitter parse: %w", err)
	}
	return &Tree{Root: raw.RootNode(), Source: source, raw: raw}, nil
}

// FirstError returns the position of the first ERROR node in the tree,
// in 1-based line numbers, or nil if the tree is clean.
func (t *Tree) FirstError() *int {
	var line *int
	Walk(t.Root, func(n *sitter.Node) bool {
		if line != nil {
			return false
		}
		if n.IsError() || n.Type() == "ERROR" {
			l := int(n.StartPoint().Row) + 1
			line = &l
			return false
		}
		return true
	})
	return line
}

// Text returns the source text a node spans.
func (t *Tree) Text(n *sitter.Node) string {
	return string(t.Source[n.StartByte():n.EndByte()])
}

// Line returns a node's 1-based starting line.
func Line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}
