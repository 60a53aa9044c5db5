package config

// Policy holds the immutable, process-wide policy tables from spec.md
// §3.1. Compiled once at Load() time from the literals below into sets
// for O(1) membership tests; never mutated afterward.
type Policy struct {
	AllowedModules   map[string]struct{}
	BlockedModules   map[string]struct{}
	DangerousBuiltins map[string]struct{}
	BlockedGlobals   map[string]struct{}
}

var allowedModules = []string{
	"math", "itertools", "functools", "collections", "collections.abc",
	"operator", "re", "json", "datetime", "decimal", "fractions",
	"statistics", "abc", "typing", "enum", "dataclasses", "copy",
	"string", "heapq", "bisect", "array",
}

var blockedModules = []string{
	"os", "sys", "subprocess", "socket", "pickle", "marshal", "shelve",
	"threading", "multiprocessing", "ctypes", "importlib", "runpy",
	"code", "signal", "resource", "fcntl", "io", "shutil", "pathlib",
}

var dangerousBuiltins = []string{
	"eval", "exec", "compile", "__import__", "open", "globals",
	"locals", "vars", "dir",
}

var blockedGlobals = []string{
	"__builtins__",
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// CompilePolicy builds the policy tables once. The three module sets
// are disjoint in intent: any identifier matching BlockedModules, or
// any base module absent from AllowedModules, rejects the request.
func CompilePolicy() Policy {
	return Policy{
		AllowedModules:    toSet(allowedModules),
		BlockedModules:    toSet(blockedModules),
		DangerousBuiltins: toSet(dangerousBuiltins),
		BlockedGlobals:    toSet(blockedGlobals),
	}
}

// IsAllowedModule reports whether the top-level module segment may be
// imported: present in AllowedModules and absent from BlockedModules.
func (p Policy) IsAllowedModule(topLevel string) bool {
	if _, blocked := p.BlockedModules[topLevel]; blocked {
		return false
	}
	_, allowed := p.AllowedModules[topLevel]
	return allowed
}

func (p Policy) IsDangerousBuiltin(name string) bool {
	_, ok := p.DangerousBuiltins[name]
	return ok
}

func (p Policy) IsBlockedGlobal(name string) bool {
	_, ok := p.BlockedGlobals[name]
	return ok
}
