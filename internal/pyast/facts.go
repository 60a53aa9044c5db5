package pyast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"symbolicd/internal/mangle"
)

// Facts holds every Mangle-ready fact extracted from one parsed source
// file, grouped by predicate. ExtractFacts never classifies anything
// itself — it reports shapes, and the validator's schema decides which
// shapes are violations given the configured policy.
type Facts struct {
	Imports              []ImportFact
	Calls                []CallFact
	Attributes           []AttributeFact
	Subscripts           []SubscriptFact
	Globals              []GlobalFact
	GetattrCalls         []GetattrCallFact
	SubscriptLiteralRefs []SubscriptLiteralRefFact
	StringConcats        []int // lines where a binary "+" joins two string literals
	BooleanGuardCalls    []int // lines where a call's target is wrapped in a boolean/parenthesized expression
}

type ImportFact struct {
	Name     string // full dotted path, e.g. "os.path"
	TopLevel string // first segment, e.g. "os"
	Line     int
}

type CallFact struct {
	Name string // resolved identifier or attribute name, best-effort
	Line int
}

type AttributeFact struct {
	Object string
	Attr   string
	Line   int
}

type SubscriptFact struct {
	Object string
	Line   int
}

type GlobalFact struct {
	Name string
	Line int
}

// GetattrCallFact records a getattr(...) call's first positional
// argument, when that argument is a bare name, for R4.
type GetattrCallFact struct {
	Arg  string
	Line int
}

// SubscriptLiteralRefFact records a bare identifier written directly
// inside a list/tuple/dict literal that is itself subscripted, e.g.
// the "eval" in "[eval][0]" — the shape R7 names.
type SubscriptLiteralRefFact struct {
	Name string
	Line int
}

// ExtractFacts walks the tree once, collecting every fact shape needed
// by the R1-R8 policy rules in one pass.
func ExtractFacts(tree *Tree) *Facts {
	facts := &Facts{}

	Walk(tree.Root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			extractImportStatement(tree, n, facts)
		case "import_from_statement":
			extractImportFromStatement(tree, n, facts)
		case "call":
			extractCall(tree, n, facts)
		case "attribute":
			extractAttribute(tree, n, facts)
		case "subscript":
			extractSubscript(tree, n, facts)
		case "global_statement":
			extractGlobalStatement(tree, n, facts)
		case "binary_operator":
			extractStringConcat(tree, n, facts)
		}
		return true
	})

	return facts
}

func extractImportStatement(tree *Tree, n *sitter.Node, facts *Facts) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		var name string
		switch child.Type() {
		case "dotted_name":
			name = tree.Text(child)
		case "aliased_import":
			if dotted := ChildByField(child, "name"); dotted != nil {
				name = tree.Text(dotted)
			}
		default:
			continue
		}
		if name == "" {
			continue
		}
		facts.Imports = append(facts.Imports, ImportFact{
			Name:     name,
			TopLevel: topLevelSegment(name),
			Line:     Line(n),
		})
	}
}

func extractImportFromStatement(tree *Tree, n *sitter.Node, facts *Facts) {
	moduleNode := ChildByField(n, "module_name")
	if moduleNode == nil {
		return
	}
	name := tree.Text(moduleNode)
	facts.Imports = append(facts.Imports, ImportFact{
		Name:     name,
		TopLevel: topLevelSegment(name),
		Line:     Line(n),
	})
}

func topLevelSegment(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}

func extractCall(tree *Tree, n *sitter.Node, facts *Facts) {
	fnNode := ChildByField(n, "function")
	if fnNode == nil {
		return
	}

	name := calleeName(tree, fnNode)
	if name != "" {
		facts.Calls = append(facts.Calls, CallFact{Name: name, Line: Line(n)})
	}

	if guardsCallTarget(fnNode) {
		facts.BooleanGuardCalls = append(facts.BooleanGuardCalls, Line(n))
	}

	if name == "getattr" {
		if arg, ok := firstPositionalIdentifier(tree, n); ok {
			facts.GetattrCalls = append(facts.GetattrCalls, GetattrCallFact{Arg: arg, Line: Line(n)})
		}
	}
}

// firstPositionalIdentifier returns the call's first positional
// argument's name, when that argument is a bare identifier node (R4
// requires the argument be "a name node", not an arbitrary expression).
func firstPositionalIdentifier(tree *Tree, callNode *sitter.Node) (string, bool) {
	argsNode := ChildByField(callNode, "arguments")
	if argsNode == nil {
		return "", false
	}
	for i := 0; i < int(argsNode.ChildCount()); i++ {
		switch child := argsNode.Child(i); child.Type() {
		case "(", ")", ",":
			continue
		case "identifier":
			return tree.Text(child), true
		default:
			return "", false
		}
	}
	return "", false
}

// calleeName resolves the textual name of a call target, unwrapping a
// single layer of parentheses or boolean-operator hiding so a direct
// dangerous-builtin name is still visible to the policy rules even when
// a bypass shape wraps it (R8's target is the shape itself, this is a
// best-effort label for logging).
func calleeName(tree *Tree, fnNode *sitter.Node) string {
	switch fnNode.Type() {
	case "identifier":
		return tree.Text(fnNode)
	case "attribute":
		attr := ChildByField(fnNode, "attribute")
		if attr != nil {
			return tree.Text(attr)
		}
	case "parenthesized_expression":
		for i := 0; i < int(fnNode.ChildCount()); i++ {
			child := fnNode.Child(i)
			if child.Type() == "boolean_operator" {
				return calleeName(tree, child)
			}
		}
	case "boolean_operator":
		left := ChildByField(fnNode, "left")
		right := ChildByField(fnNode, "right")
		if right != nil && right.Type() == "identifier" {
			return tree.Text(right)
		}
		if left != nil && left.Type() == "identifier" {
			return tree.Text(left)
		}
	}
	return ""
}

// guardsCallTarget reports whether a call's function expression is a
// boolean-operator or parenthesized-boolean-operator shape, the "hide
// a builtin behind `True or X`" bypass pattern named in R8.
func guardsCallTarget(fnNode *sitter.Node) bool {
	switch fnNode.Type() {
	case "boolean_operator":
		return true
	case "parenthesized_expression":
		for i := 0; i < int(fnNode.ChildCount()); i++ {
			if fnNode.Child(i).Type() == "boolean_operator" {
				return true
			}
		}
	}
	return false
}

func extractAttribute(tree *Tree, n *sitter.Node, facts *Facts) {
	objNode := ChildByField(n, "object")
	attrNode := ChildByField(n, "attribute")
	if objNode == nil || attrNode == nil {
		return
	}
	facts.Attributes = append(facts.Attributes, AttributeFact{
		Object: tree.Text(objNode),
		Attr:   tree.Text(attrNode),
		Line:   Line(n),
	})
}

func extractSubscript(tree *Tree, n *sitter.Node, facts *Facts) {
	valueNode := ChildByField(n, "value")
	if valueNode == nil {
		return
	}
	facts.Subscripts = append(facts.Subscripts, SubscriptFact{
		Object: tree.Text(valueNode),
		Line:   Line(n),
	})

	line := Line(n)
	for _, name := range literalIdentifierRefs(tree, valueNode) {
		facts.SubscriptLiteralRefs = append(facts.SubscriptLiteralRefs, SubscriptLiteralRefFact{Name: name, Line: line})
	}
}

// literalIdentifierRefs collects every bare identifier written inside a
// list/tuple/set/dict literal, the value expression R7 targets, e.g.
// the "eval" in "[eval][0]" or "{0: eval}[0]".
func literalIdentifierRefs(tree *Tree, valueNode *sitter.Node) []string {
	switch valueNode.Type() {
	case "list", "tuple", "set", "dictionary":
	default:
		return nil
	}
	var refs []string
	Walk(valueNode, func(n *sitter.Node) bool {
		if n != valueNode && n.Type() == "identifier" {
			refs = append(refs, tree.Text(n))
		}
		return true
	})
	return refs
}

func extractGlobalStatement(tree *Tree, n *sitter.Node, facts *Facts) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "identifier" {
			facts.Globals = append(facts.Globals, GlobalFact{Name: tree.Text(child), Line: Line(n)})
		}
	}
}

// extractStringConcat flags a binary "+" joining two string literals, a
// "build a dangerous name out of literal pieces" bypass shape distinct
// from R7's data-structure-literal subscript (e.g. "ev" + "al").
func extractStringConcat(tree *Tree, n *sitter.Node, facts *Facts) {
	opNode := ChildByField(n, "operator")
	if opNode == nil || tree.Text(opNode) != "+" {
		return
	}
	left := ChildByField(n, "left")
	right := ChildByField(n, "right")
	if left == nil || right == nil {
		return
	}
	if isStringLiteral(left) && isStringLiteral(right) {
		facts.StringConcats = append(facts.StringConcats, Line(n))
	}
}

func isStringLiteral(n *sitter.Node) bool {
	return n.Type() == "string"
}

// ToMangleFacts lowers Facts into the predicate/arg tuples the policy
// schema's Decls expect.
func (f *Facts) ToMangleFacts() []mangle.Fact {
	var out []mangle.Fact
	for _, imp := range f.Imports {
		out = append(out, mangle.Fact{Predicate: "import_stmt", Args: []interface{}{imp.Name, imp.TopLevel, imp.Line}})
	}
	for _, c := range f.Calls {
		out = append(out, mangle.Fact{Predicate: "call_expr", Args: []interface{}{c.Name, c.Line}})
	}
	for _, a := range f.Attributes {
		out = append(out, mangle.Fact{Predicate: "attribute_expr", Args: []interface{}{a.Object, a.Attr, a.Line}})
	}
	for _, s := range f.Subscripts {
		out = append(out, mangle.Fact{Predicate: "subscript_expr", Args: []interface{}{s.Object, s.Line}})
	}
	for _, g := range f.Globals {
		out = append(out, mangle.Fact{Predicate: "global_stmt", Args: []interface{}{g.Name, g.Line}})
	}
	for _, line := range f.StringConcats {
		out = append(out, mangle.Fact{Predicate: "string_concat", Args: []interface{}{line}})
	}
	for _, line := range f.BooleanGuardCalls {
		out = append(out, mangle.Fact{Predicate: "boolean_guard_call", Args: []interface{}{line}})
	}
	for _, g := range f.GetattrCalls {
		out = append(out, mangle.Fact{Predicate: "getattr_call", Args: []interface{}{g.Arg, g.Line}})
	}
	for _, s := range f.SubscriptLiteralRefs {
		out = append(out, mangle.Fact{Predicate: "subscript_literal_ref", Args: []interface{}{s.Name, s.Line}})
	}
	return out
}
