package pyast

import sitter "github.com/smacker/go-tree-sitter"

// Walk performs a pre-order traversal of node and its descendants,
// calling visit on each. Returning false from visit skips that node's
// children but continues the traversal at its siblings.
func Walk(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(i), visit)
	}
}

// ChildByField is a nil-safe wrapper around Node.ChildByFieldName.
func ChildByField(n *sitter.Node, field string) *sitter.Node {
	if n == nil {
		return nil
	}
	return n.ChildByFieldName(field)
}
