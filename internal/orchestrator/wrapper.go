package orchestrator

import (
	"fmt"
	"strings"
)

// synthesizeEquivalenceWrapper appends a function asserting
// functionA(...)==functionB(...) over their common parameter set to
// source, per spec.md §4.5.5. The wrapper name is namespaced to avoid
// colliding with anything the source itself defines.
func synthesizeEquivalenceWrapper(source, functionA, functionB string, params []string) (wrapperSource, wrapperName string) {
	const name = "__symbolicd_equivalence_wrapper__"
	argList := strings.Join(params, ", ")

	var b strings.Builder
	b.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n\ndef %s(%s):\n    assert %s(%s) == %s(%s)\n", name, argList, functionA, argList, functionB, argList)

	return b.String(), name
}
