package env

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

// Existential is an inference variable. It is created at some universe and
// may only be related to universals from that universe or earlier.
type Existential struct {
	Var      grammar.Variable
	Universe int
	// Lower bounds are subtypes of the variable, Upper bounds supertypes.
	Lower []grammar.Parameter
	Upper []grammar.Parameter
	// Predicates the variable has been required to satisfy; every later
	// bound must satisfy them too.
	Predicates []grammar.PredicateKind
}

func (x Existential) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s@%d", x.Var, x.Universe)
	for _, l := range x.Lower {
		fmt.Fprintf(&sb, " :> %s", l)
	}
	for _, u := range x.Upper {
		fmt.Fprintf(&sb, " <: %s", u)
	}
	for _, p := range x.Predicates {
		fmt.Fprintf(&sb, " %s", p)
	}
	return sb.String()
}

// Param returns the variable as a parameter of its kind.
func (x Existential) Param() grammar.Parameter {
	return param(x.Var)
}

// FreshExistential creates an unconstrained inference variable.
func (e Env) FreshExistential(kind grammar.Kind, name string) (Env, grammar.Variable) {
	v := grammar.Variable{Kind: kind, Flavor: grammar.ExistentialVar, Name: name, Index: len(e.existentials)}
	e.existentials = append(slices.Clip(e.existentials), Existential{Var: v, Universe: e.universe})
	return e, v
}

// FreshParam is FreshExistential returning the variable as a parameter.
func (e Env) FreshParam(kind grammar.Kind, name string) (Env, grammar.Parameter) {
	e, v := e.FreshExistential(kind, name)
	return e, param(v)
}

// Existential looks up the record of an inference variable.
func (e Env) Existential(v grammar.Variable) (Existential, bool) {
	if v.Flavor != grammar.ExistentialVar || v.Index < 0 || v.Index >= len(e.existentials) {
		return Existential{}, false
	}
	return e.existentials[v.Index], true
}

// Escapes reports whether p mentions a universal that was not in scope when
// x was created.
func (x Existential) Escapes(p grammar.Parameter) bool {
	for v := range FreeVars(p).Items() {
		if v.Flavor == grammar.UniversalVar && v.Index >= x.Universe {
			return true
		}
	}
	return false
}

func (e Env) update(v grammar.Variable, f func(*Existential)) Env {
	if _, ok := e.Existential(v); !ok {
		panic(fmt.Sprintf("bug: unknown existential %s", v))
	}
	xs := slices.Clone(e.existentials)
	x := xs[v.Index]
	x.Lower = slices.Clip(x.Lower)
	x.Upper = slices.Clip(x.Upper)
	x.Predicates = slices.Clip(x.Predicates)
	f(&x)
	xs[v.Index] = x
	e.existentials = xs
	return e
}

// WithLowerBound records lower <: v.
func (e Env) WithLowerBound(v grammar.Variable, lower grammar.Parameter) Env {
	return e.update(v, func(x *Existential) {
		if !containsParam(x.Lower, lower) {
			x.Lower = append(x.Lower, lower)
		}
	})
}

// WithUpperBound records v <: upper.
func (e Env) WithUpperBound(v grammar.Variable, upper grammar.Parameter) Env {
	return e.update(v, func(x *Existential) {
		if !containsParam(x.Upper, upper) {
			x.Upper = append(x.Upper, upper)
		}
	})
}

// WithPredicate records that v must satisfy kind.
func (e Env) WithPredicate(v grammar.Variable, kind grammar.PredicateKind) Env {
	return e.update(v, func(x *Existential) {
		if !slices.Contains(x.Predicates, kind) {
			x.Predicates = append(x.Predicates, kind)
		}
	})
}

func containsParam(ps []grammar.Parameter, p grammar.Parameter) bool {
	s := p.String()
	return slices.ContainsFunc(ps, func(q grammar.Parameter) bool { return q.String() == s })
}
