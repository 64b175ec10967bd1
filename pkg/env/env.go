// Package env is the checking environment: the program, the universe of
// generic variables in scope, local variable bindings, assumptions and the
// existential (inference) variable store.
//
// An Env is a value. Every operation that extends it returns a new Env and
// never writes to storage shared with the receiver, so branches of the proof
// search can hold different environments derived from a common parent.
package env

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

// TempPrefix starts the names of compiler temporaries. The notation reader
// accepts it so that types mentioning temporaries can be written in tests.
const TempPrefix = "@temp"

// Binding is a local variable and its declared type.
type Binding struct {
	Name string
	Ty   grammar.Ty
	// Hidden bindings went out of scope; they remain so that types naming
	// them can still be resolved.
	Hidden bool
}

// IsTemp reports whether the binding was introduced by the checker.
func (b Binding) IsTemp() bool {
	return strings.HasPrefix(b.Name, TempPrefix)
}

// Env is the environment for checking one declaration.
type Env struct {
	program      *grammar.Program
	universe     int
	universals   []grammar.Variable
	locals       []Binding
	existentials []Existential
	assumptions  []grammar.Predicate
	temps        int
}

// New creates an empty environment for prog.
func New(prog *grammar.Program) Env {
	return Env{program: prog}
}

// Program returns the program being checked.
func (e Env) Program() *grammar.Program {
	return e.program
}

// Universe is the number of universal variables in scope.
func (e Env) Universe() int {
	return e.universe
}

// OpenBinder introduces a fresh universal variable for every binder
// parameter and returns the substitution from the bound names to them.
func (e Env) OpenBinder(binder []grammar.BinderVar) (Env, Subs) {
	subs := NewSubs()
	universals := slices.Clip(e.universals)
	for _, b := range binder {
		u := grammar.Variable{Kind: b.Kind, Flavor: grammar.UniversalVar, Name: b.Name, Index: e.universe}
		e.universe++
		universals = append(universals, u)
		subs.AddVar(b.Bound(), param(u))
	}
	e.universals = universals
	return e, subs
}

func param(v grammar.Variable) grammar.Parameter {
	if v.Kind == grammar.PermKind {
		return grammar.VarPerm{Var: v}
	}
	return grammar.VarTy{Var: v}
}

// InScope reports whether v may be mentioned here.
func (e Env) InScope(v grammar.Variable) bool {
	switch v.Flavor {
	case grammar.UniversalVar:
		return v.Index < e.universe
	case grammar.ExistentialVar:
		_, ok := e.Existential(v)
		return ok
	default:
		return false
	}
}

// PushLocal binds name to ty, shadowing earlier bindings of the same name.
func (e Env) PushLocal(name string, ty grammar.Ty) Env {
	e.locals = append(slices.Clip(e.locals), Binding{Name: name, Ty: ty})
	return e
}

// Local returns the type of the in-scope binding of name. This is the
// lookup for names written in the program.
func (e Env) Local(name string) (grammar.Ty, bool) {
	for i := len(e.locals) - 1; i >= 0; i-- {
		if b := e.locals[i]; b.Name == name && !b.Hidden {
			return b.Ty, true
		}
	}
	return nil, false
}

// Resolve returns the type of the binding of name even after it went out of
// scope. Places named inside types use it: a value may outlive the block
// that declared what it borrows from.
func (e Env) Resolve(name string) (grammar.Ty, bool) {
	for i := len(e.locals) - 1; i >= 0; i-- {
		if b := e.locals[i]; b.Name == name {
			return b.Ty, true
		}
	}
	return nil, false
}

// Visible returns the in-scope bindings, one per name, in declaration order.
func (e Env) Visible() []Binding {
	var out []Binding
	seen := map[string]bool{}
	for i := len(e.locals) - 1; i >= 0; i-- {
		b := e.locals[i]
		if b.Hidden || seen[b.Name] {
			continue
		}
		seen[b.Name] = true
		out = append(out, b)
	}
	slices.Reverse(out)
	return out
}

// Mark records the current scope depth for a later PopTo.
func (e Env) Mark() int {
	return len(e.locals)
}

// PopTo takes every user binding pushed since mark out of scope.
// Temporaries stay, since result types may still name them.
func (e Env) PopTo(mark int) Env {
	if mark >= len(e.locals) {
		return e
	}
	locals := slices.Clone(e.locals)
	for i := mark; i < len(locals); i++ {
		if !locals[i].IsTemp() {
			locals[i].Hidden = true
		}
	}
	e.locals = locals
	return e
}

// FreshTemp binds a new temporary of type ty and returns its place.
func (e Env) FreshTemp(ty grammar.Ty) (Env, grammar.Place) {
	name := fmt.Sprintf("%s%d", TempPrefix, e.temps)
	e.temps++
	return e.PushLocal(name, ty), grammar.Place{Var: name}
}

// Assume adds where-clauses that hold for the rest of the declaration.
func (e Env) Assume(preds ...grammar.Predicate) Env {
	e.assumptions = append(slices.Clip(e.assumptions), preds...)
	return e
}

// Assumed reports whether kind(v) was assumed.
func (e Env) Assumed(kind grammar.PredicateKind, v grammar.Variable) bool {
	for _, a := range e.assumptions {
		if a.Kind == kind && isVarParam(a.Param, v) {
			return true
		}
	}
	return false
}

func isVarParam(p grammar.Parameter, v grammar.Variable) bool {
	switch p := p.(type) {
	case grammar.VarTy:
		return p.Var == v
	case grammar.VarPerm:
		return p.Var == v
	}
	return false
}

// Key identifies the environment for deduplicating outcomes.
func (e Env) Key() string {
	var sb strings.Builder
	for _, b := range e.locals {
		if b.Hidden {
			sb.WriteString("~")
		}
		fmt.Fprintf(&sb, "%s:%s;", b.Name, b.Ty)
	}
	sb.WriteString("|")
	for _, x := range e.existentials {
		sb.WriteString(x.String())
		sb.WriteString(";")
	}
	return sb.String()
}

func (e Env) String() string {
	var parts []string
	for _, b := range e.Visible() {
		parts = append(parts, fmt.Sprintf("%s: %s", b.Name, b.Ty))
	}
	for _, x := range e.existentials {
		parts = append(parts, x.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
