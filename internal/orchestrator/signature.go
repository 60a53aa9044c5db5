package orchestrator

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"symbolicd/internal/pyast"
)

// extractParamNames reads target's parameter list in declared order by
// AST lookup, per spec.md §4.5.3/§4.5.8 ("recovered from the source
// signature... not via string parsing of the engine message alone").
func extractParamNames(source, functionName string) ([]string, error) {
	tree, err := pyast.Parse(context.Background(), []byte(source))
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	defer tree.Close()

	fn := pyast.FindFunction(tree.Root, tree, functionName)
	if fn == nil {
		return nil, fmt.Errorf("function %q not found", functionName)
	}

	params := pyast.ChildByField(fn, "parameters")
	if params == nil {
		return nil, nil
	}

	var names []string
	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(i)
		name := paramName(tree, child)
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func paramName(tree *pyast.Tree, n *sitter.Node) string {
	switch n.Type() {
	case "identifier":
		return tree.Text(n)
	case "typed_parameter", "default_parameter", "typed_default_parameter":
		if name := pyast.ChildByField(n, "name"); name != nil {
			return tree.Text(name)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(i).Type() == "identifier" {
				return tree.Text(n.Child(i))
			}
		}
	}
	return ""
}

// commonParams returns the parameter names shared by both functions in
// declared order, for the equivalence operation's synthesized wrapper
// (spec.md §4.5.5). An empty intersection is reported as an error by
// the caller, not here.
func commonParams(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, p := range b {
		inB[p] = struct{}{}
	}
	var common []string
	for _, p := range a {
		if _, ok := inB[p]; ok {
			common = append(common, p)
		}
	}
	return common
}
