package validator

// policySchema declares the fact predicates pyast.ExtractFacts feeds
// and derives the violation predicates the R1-R8 rules from spec.md
// §3.1 check. allowed_module/blocked_module/dangerous_builtin/
// blocked_global_name are loaded per-request from the compiled policy
// (internal/config), not baked into this literal schema, so the schema
// never needs editing to change policy.
const policySchema = `

Decl import_stmt(Name, TopLevel, Line)
  descr [mode("+", "+", "+")].

Decl call_expr(Name, Line)
  descr [mode("+", "+")].

Decl attribute_expr(Object, Attr, Line)
  descr [mode("+", "+", "+")].

Decl subscript_expr(Object, Line)
  descr [mode("+", "+")].

Decl global_stmt(Name, Line)
  descr [mode("+", "+")].

Decl getattr_call(Arg, Line)
  descr [mode("+", "+")].

Decl subscript_literal_ref(Name, Line)
  descr [mode("+", "+")].

Decl string_concat(Line)
  descr [mode("+")].

Decl boolean_guard_call(Line)
  descr [mode("+")].

Decl allowed_module(Name)
  descr [mode("+")].

Decl blocked_module(Name)
  descr [mode("+")].

Decl dangerous_builtin(Name)
  descr [mode("+")].

Decl blocked_global_name(Name)
  descr [mode("+")].

Decl blocked_attribute(Name)
  descr [mode("+")].

Decl violation_import(TopLevel, Line)
  descr [mode("+", "+")].

Decl violation_dangerous_call(Name, Line)
  descr [mode("+", "+")].

Decl violation_blocked_global(Name, Line)
  descr [mode("+", "+")].

Decl violation_dunder_access(Object, Attr, Line)
  descr [mode("+", "+", "+")].

Decl violation_dynamic_getattr(Arg, Line)
  descr [mode("+", "+")].

Decl violation_dynamic_attr(Object, Attr, Line)
  descr [mode("+", "+", "+")].

Decl violation_dynamic_subscript(Object, Line)
  descr [mode("+", "+")].

Decl violation_literal_hiding(Name, Line)
  descr [mode("+", "+")].

Decl violation_string_concat_hiding(Line)
  descr [mode("+")].

Decl violation_short_circuit(Line)
  descr [mode("+")].

Decl violation(Kind, Detail, Line)
  descr [mode("+", "+", "+")].

% R1/R2: import of anything not on the allow-list, or explicitly blocked.
violation_import(TopLevel, Line) :-
  import_stmt(_, TopLevel, Line),
  blocked_module(TopLevel).

violation_import(TopLevel, Line) :-
  import_stmt(_, TopLevel, Line),
  :not(allowed_module(TopLevel)),
  :not(blocked_module(TopLevel)).

% R3: direct call to a dangerous builtin (eval, exec, open, ...).
violation_dangerous_call(Name, Line) :-
  call_expr(Name, Line),
  dangerous_builtin(Name).

% Reference to a blocked dunder global via Python's "global" statement.
violation_blocked_global(Name, Line) :-
  global_stmt(Name, Line),
  blocked_global_name(Name).

% Generic dunder-attribute backstop: x.__class__/__bases__/... chains
% regardless of what x is. Not spec rule-numbered on its own; it is
% defense in depth alongside R5 below.
violation_dunder_access(Object, Attr, Line) :-
  attribute_expr(Object, Attr, Line),
  blocked_attribute(Attr).

% R4: call to getattr(X, ...) where X is a name bound to a blocked
% global, e.g. getattr(__builtins__, "eval").
violation_dynamic_getattr(Arg, Line) :-
  getattr_call(Arg, Line),
  blocked_global_name(Arg).

% R5: attribute access x.attr where x is a name referring to a blocked
% global, e.g. __builtins__.eval.
violation_dynamic_attr(Object, Attr, Line) :-
  attribute_expr(Object, Attr, Line),
  blocked_global_name(Object).

% R6: subscript x[...] where x is a name referring to a blocked global,
% e.g. __builtins__['eval'].
violation_dynamic_subscript(Object, Line) :-
  subscript_expr(Object, Line),
  blocked_global_name(Object).

% R7: subscript whose value expression is a list/tuple/dict literal
% that contains a reference to a dangerous builtin, e.g. [eval][0].
violation_literal_hiding(Name, Line) :-
  subscript_literal_ref(Name, Line),
  dangerous_builtin(Name).

% Defense in depth, not itself an R1-R8 rule: a dangerous identifier
% assembled from string literal concatenation (e.g. "ev" + "al").
violation_string_concat_hiding(Line) :-
  string_concat(Line).

% R8: short-circuit-hiding bypass — a call target wrapped in a
% boolean-operator shape (e.g. "(True or __import__)(...)").
violation_short_circuit(Line) :-
  boolean_guard_call(Line).

violation("blocked_import", TopLevel, Line) :- violation_import(TopLevel, Line).
violation("dangerous_call", Name, Line) :- violation_dangerous_call(Name, Line).
violation("blocked_global", Name, Line) :- violation_blocked_global(Name, Line).
violation("dunder_access", Attr, Line) :- violation_dunder_access(_, Attr, Line).
violation("dynamic_builtins_access", Arg, Line) :- violation_dynamic_getattr(Arg, Line).
violation("dynamic_builtins_access", Attr, Line) :- violation_dynamic_attr(_, Attr, Line).
violation("dynamic_builtins_access", Object, Line) :- violation_dynamic_subscript(Object, Line).
violation("literal_hiding", Name, Line) :- violation_literal_hiding(Name, Line).
violation("string_concat_hiding", "", Line) :- violation_string_concat_hiding(Line).
violation("short_circuit", "", Line) :- violation_short_circuit(Line).
`

var blockedAttributes = []string{
	"__class__", "__bases__", "__subclasses__", "__globals__",
	"__builtins__", "__dict__", "__mro__", "__code__", "__closure__",
}
