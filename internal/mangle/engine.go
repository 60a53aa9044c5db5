// Package mangle wraps github.com/google/mangle's Datalog engine with
// the fact/query surface the static validator and reference symbolic
// engine need: add typed facts extracted from source, declare the rule
// schema once, and query for variable bindings. Trimmed from a larger
// general-purpose wrapper down to what this service's two call sites
// (policy-violation queries and path-condition queries) actually use.
package mangle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"
	"github.com/google/mangle/unionfind"
)

// Config holds Mangle engine configuration.
type Config struct {
	FactLimit    int
	QueryTimeout int // seconds
	AutoEval     bool
}

// DefaultConfig returns conservative defaults sized for one request's
// worth of facts (a single source file's AST), not a long-lived corpus.
func DefaultConfig() Config {
	return Config{
		FactLimit:    20000,
		QueryTimeout: 5,
		AutoEval:     true,
	}
}

// Engine wraps one Mangle program instance. Not safe for reuse across
// requests — callers construct a fresh Engine per validation or
// analysis call, matching the request-scoped lifetime the core requires.
type Engine struct {
	config Config

	mu              sync.RWMutex
	store           factstore.ConcurrentFactStore
	programInfo     *analysis.ProgramInfo
	queryContext    *mengine.QueryContext
	predicateIndex  map[string]ast.PredicateSym
	schemaFragments []parse.SourceUnit
	factCount       int
}

// Fact is one predicate(args...) tuple extracted from the AST.
type Fact struct {
	Predicate string
	Args      []interface{}
}

// QueryResult holds the variable bindings produced by one query.
type QueryResult struct {
	Bindings []map[string]interface{}
	Duration time.Duration
}

// NewEngine creates an empty engine; call LoadSchemaString before
// AddFacts or Query.
func NewEngine(cfg Config) (*Engine, error) {
	baseStore := factstore.NewSimpleInMemoryStore()
	return &Engine{
		config:         cfg,
		store:          factstore.NewConcurrentFactStore(baseStore),
		predicateIndex: make(map[string]ast.PredicateSym),
	}, nil
}

// LoadSchemaString parses and compiles a Datalog schema/rule fragment,
// merging it with any previously loaded fragments.
func (e *Engine) LoadSchemaString(schema string) error {
	unit, err := parse.Unit(bytes.NewReader([]byte(schema)))
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.schemaFragments = append(e.schemaFragments, unit)
	return e.rebuildProgramLocked()
}

func (e *Engine) rebuildProgramLocked() error {
	if len(e.schemaFragments) == 0 {
		return fmt.Errorf("no schemas loaded")
	}

	var clauses []ast.Clause
	var decls []ast.Decl
	for _, fragment := range e.schemaFragments {
		clauses = append(clauses, fragment.Clauses...)
		decls = append(decls, fragment.Decls...)
	}

	unit := parse.SourceUnit{Clauses: clauses, Decls: decls}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return err
	}

	e.programInfo = programInfo
	e.predicateIndex = make(map[string]ast.PredicateSym, len(programInfo.Decls))

	predToDecl := make(map[ast.PredicateSym]*ast.Decl, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		e.predicateIndex[sym.Symbol] = sym
		predToDecl[sym] = decl
	}

	predToRules := make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range programInfo.Rules {
		predToRules[clause.Head.Predicate] = append(predToRules[clause.Head.Predicate], clause)
	}

	e.queryContext = &mengine.QueryContext{
		PredToRules: predToRules,
		PredToDecl:  predToDecl,
		Store:       e.store,
	}
	return nil
}

// AddFacts inserts a batch of facts and, if AutoEval is set, re-runs
// the fixpoint evaluation so derived predicates are queryable.
func (e *Engine) AddFacts(facts []Fact) error {
	if len(facts) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.programInfo == nil {
		return fmt.Errorf("no schemas loaded; call LoadSchemaString first")
	}

	for _, fact := range facts {
		if e.config.FactLimit > 0 && e.factCount >= e.config.FactLimit {
			return fmt.Errorf("fact limit exceeded: %d", e.config.FactLimit)
		}
		atom, err := e.factToAtomLocked(fact)
		if err != nil {
			return err
		}
		if e.store.Add(atom) {
			e.factCount++
		}
	}

	if e.config.AutoEval {
		_, err := mengine.EvalProgramWithStats(e.programInfo, e.store)
		return err
	}
	return nil
}

func (e *Engine) factToAtomLocked(fact Fact) (ast.Atom, error) {
	sym, ok := e.predicateIndex[fact.Predicate]
	if !ok {
		return ast.Atom{}, fmt.Errorf("predicate %s is not declared in schema", fact.Predicate)
	}
	if len(fact.Args) != sym.Arity {
		return ast.Atom{}, fmt.Errorf("predicate %s expects %d args, got %d", fact.Predicate, sym.Arity, len(fact.Args))
	}

	args := make([]ast.BaseTerm, len(fact.Args))
	for i, raw := range fact.Args {
		term, err := convertValueToTerm(raw)
		if err != nil {
			return ast.Atom{}, fmt.Errorf("predicate %s arg %d: %w", fact.Predicate, i, err)
		}
		args[i] = term
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

// convertValueToTerm converts a Go value to a Mangle BaseTerm. Strings
// that look like Mangle identifiers become Name constants (so they can
// be matched against /name literals in rule bodies); everything else
// keeps its literal type.
func convertValueToTerm(value interface{}) (ast.BaseTerm, error) {
	switch v := value.(type) {
	case ast.BaseTerm:
		return v, nil
	case string:
		if strings.HasPrefix(v, "/") {
			return ast.Name(v)
		}
		if isIdentifier(v) {
			if name, err := ast.Name("/" + v); err == nil {
				return name, nil
			}
		}
		return ast.String(v), nil
	case int:
		return ast.Number(int64(v)), nil
	case int64:
		return ast.Number(v), nil
	case float64:
		return ast.Float64(v), nil
	case bool:
		if v {
			return ast.TrueConstant, nil
		}
		return ast.FalseConstant, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("unsupported fact argument type %T", v)
		}
		return ast.String(string(encoded)), nil
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if !((c >= 'a' && c <= 'z') || c == '_') {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return true
}

// Query evaluates a "?predicate(Var1, lit, Var2)" style query and
// returns one binding map per matching row.
func (e *Engine) Query(ctx context.Context, query string) (*QueryResult, error) {
	shape, err := parseQueryShape(query)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	queryContext := e.queryContext
	if queryContext == nil {
		e.mu.RUnlock()
		return nil, fmt.Errorf("no schemas loaded; cannot execute query")
	}
	decl, ok := queryContext.PredToDecl[shape.atom.Predicate]
	if !ok {
		e.mu.RUnlock()
		return nil, fmt.Errorf("predicate %s is not declared", shape.atom.Predicate.Symbol)
	}
	if len(decl.Modes()) == 0 {
		e.mu.RUnlock()
		return nil, fmt.Errorf("predicate %s has no modes declared", shape.atom.Predicate.Symbol)
	}
	mode := decl.Modes()[0]
	e.mu.RUnlock()

	timeout := time.Duration(e.config.QueryTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resultCh := make(chan []map[string]interface{}, 1)
	errCh := make(chan error, 1)

	go func() {
		var results []map[string]interface{}
		err := queryContext.EvalQuery(shape.atom, mode, unionfind.New(), func(fact ast.Atom) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			row := make(map[string]interface{}, len(shape.variables))
			for _, v := range shape.variables {
				if v.Index >= len(fact.Args) {
					continue
				}
				row[v.Name] = convertTermToValue(fact.Args[v.Index])
			}
			results = append(results, row)
			return nil
		})
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- results
	}()

	select {
	case results := <-resultCh:
		return &QueryResult{Bindings: results, Duration: time.Since(start)}, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("query timed out after %v: %w", time.Since(start), ctx.Err())
	}
}

type queryVariable struct {
	Name  string
	Index int
}

type queryShape struct {
	atom      ast.Atom
	variables []queryVariable
}

func parseQueryShape(query string) (*queryShape, error) {
	clean := strings.TrimSpace(query)
	if clean == "" {
		return nil, fmt.Errorf("empty query")
	}
	clean = strings.TrimPrefix(clean, "?")
	clean = strings.TrimSpace(clean)
	clean = strings.TrimSuffix(clean, ".")

	atom, err := parse.Atom(clean)
	if err != nil {
		return nil, fmt.Errorf("parse query %q: %w", query, err)
	}

	var variables []queryVariable
	for idx, arg := range atom.Args {
		if v, ok := arg.(ast.Variable); ok {
			variables = append(variables, queryVariable{Name: v.Symbol, Index: idx})
		}
	}
	return &queryShape{atom: atom, variables: variables}, nil
}

func convertTermToValue(term ast.BaseTerm) interface{} {
	switch v := term.(type) {
	case ast.Constant:
		return constantToValue(v)
	case ast.Variable:
		return v.Symbol
	default:
		return fmt.Sprintf("%v", term)
	}
}

func constantToValue(constant ast.Constant) interface{} {
	switch constant.Type {
	case ast.StringType, ast.BytesType:
		return constant.Symbol
	case ast.NameType:
		return strings.TrimPrefix(constant.Symbol, "/")
	case ast.NumberType:
		return constant.NumValue
	case ast.Float64Type:
		return math.Float64frombits(uint64(constant.NumValue))
	default:
		return constant.String()
	}
}

// Close releases engine resources. The in-memory store needs no
// explicit teardown; this exists for symmetry with callers that defer
// Close unconditionally.
func (e *Engine) Close() error {
	return nil
}
