package pyast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Branch is one decision point found in a function body: an if/elif
// condition or a while/for loop guard, used for branch-analysis
// reporting (spec.md §4.5). This walk is separate from the fact
// extraction (ExtractFacts) the validator's R7/R8 rules consume.
type Branch struct {
	Line          int
	ConditionText string
}

// decisionNodeTypes are the Tree-sitter node types that each add one to
// cyclomatic complexity, following the standard "1 + decision points"
// count: McCabe complexity treats each independent path-splitting
// construct as one decision, and each extra and/or operand as well.
var decisionNodeTypes = map[string]bool{
	"if_statement":         true,
	"elif_clause":          true,
	"for_statement":         true,
	"while_statement":       true,
	"boolean_operator":      true,
}

// CollectBranches walks a function body, returning one Branch per
// if/elif/while/for decision point along with the McCabe cyclomatic
// complexity: 1 plus the decision points plus one per boolean_operator
// node (each extra and/or operand), which is counted but not returned
// as a Branch.
func CollectBranches(tree *Tree, root *sitter.Node) (branches []Branch, complexity int) {
	complexity = 1
	Walk(root, func(n *sitter.Node) bool {
		if !decisionNodeTypes[n.Type()] {
			return true
		}
		complexity++
		if n.Type() == "boolean_operator" {
			return true
		}

		condText := conditionText(tree, n)
		branches = append(branches, Branch{Line: Line(n), ConditionText: condText})
		return true
	})
	return branches, complexity
}

func conditionText(tree *Tree, n *sitter.Node) string {
	switch n.Type() {
	case "if_statement", "elif_clause", "while_statement", "conditional_expression":
		if cond := ChildByField(n, "condition"); cond != nil {
			return tree.Text(cond)
		}
	case "boolean_operator":
		return tree.Text(n)
	case "for_statement":
		if left := ChildByField(n, "left"); left != nil {
			if right := ChildByField(n, "right"); right != nil {
				return tree.Text(left) + " in " + tree.Text(right)
			}
		}
	case "except_clause":
		return tree.Text(n)
	}
	return tree.Text(n)
}

// FindFunction locates the first function_definition named target in a
// preorder walk of root, at any nesting depth (methods and nested
// functions included), or nil if not found. Used by the engine to scope branch/complexity
// analysis and symbolic enumeration to a single target function rather
// than the whole module.
func FindFunction(root *sitter.Node, tree *Tree, target string) *sitter.Node {
	var found *sitter.Node
	Walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Type() == "function_definition" {
			nameNode := ChildByField(n, "name")
			if nameNode != nil && tree.Text(nameNode) == target {
				found = n
				return false
			}
		}
		return true
	})
	return found
}
