package check

import (
	"slices"

	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

// Sub decides a <: b.
func (p *prover) Sub(a, b grammar.Ty) bool {
	if !p.step("sub") {
		return false
	}
	if a.String() == b.String() {
		return true
	}
	if v, ok := existentialVar(a); ok {
		return p.boundAbove(v, b)
	}
	if v, ok := existentialVar(b); ok {
		return p.boundBelow(v, a)
	}
	permA, baseA := grammar.Split(a)
	permB, baseB := grammar.Split(b)
	if !p.subBase(baseA, baseB, b) {
		return false
	}
	return p.SubPerm(permA, permB, baseA, baseB)
}

// SubParam relates two parameters of the same kind.
func (p *prover) SubParam(a, b grammar.Parameter) bool {
	switch a := a.(type) {
	case grammar.Ty:
		if b, ok := grammar.AsTy(b); ok {
			return p.Sub(a, b)
		}
	case grammar.Perm:
		if b, ok := grammar.AsPerm(b); ok {
			return p.SubPerm(a, b, nil, nil)
		}
	}
	return false
}

func (p *prover) subBase(a, b grammar.Ty, target grammar.Ty) bool {
	if _, ok := existentialVar(a); ok {
		return p.Sub(a, b)
	}
	if _, ok := existentialVar(b); ok {
		return p.Sub(a, b)
	}
	switch a := a.(type) {
	case grammar.VarTy:
		vb, ok := b.(grammar.VarTy)
		return ok && a.Var == vb.Var
	case grammar.NamedTy:
		nb, ok := b.(grammar.NamedTy)
		if !ok || a.Name != nb.Name || len(a.Params) != len(nb.Params) {
			return false
		}
		return p.subParams(a, nb, target)
	}
	return false
}

// subParams applies the variance of each class parameter. A parameter that
// occurs in an atomic field is invariant. Otherwise it is covariant when the
// target is copy or owned, since then no alias can observe the widening.
func (p *prover) subParams(a, b grammar.NamedTy, target grammar.Ty) bool {
	if len(a.Params) == 0 {
		return true
	}
	invariant := p.invariantParams(a.Name)
	covariant := p.try(func() bool { return p.Ty(grammar.Copy, target) }) ||
		p.try(func() bool { return p.Ty(grammar.Owned, target) })
	for i := range a.Params {
		pa, pb := a.Params[i], b.Params[i]
		if covariant && !invariant[i] {
			if !p.SubParam(pa, pb) {
				return false
			}
			continue
		}
		if !p.SubParam(pa, pb) || !p.SubParam(pb, pa) {
			return false
		}
	}
	return true
}

func (p *prover) invariantParams(class string) []bool {
	decl, ok := p.env.Program().Class(class)
	if !ok {
		return nil
	}
	out := make([]bool, len(decl.Binder))
	for i, b := range decl.Binder {
		bound := b.Bound()
		out[i] = slices.ContainsFunc(decl.Fields, func(f grammar.FieldDecl) bool {
			return f.Atomic && env.FreeVars(f.Ty).Contains(bound)
		})
	}
	return out
}

// boundAbove records v <: upper after checking it against everything already
// known about v.
func (p *prover) boundAbove(v grammar.Variable, upper grammar.Parameter) bool {
	x, ok := p.env.Existential(v)
	if !ok || x.Escapes(upper) {
		return false
	}
	if slices.ContainsFunc(x.Upper, func(u grammar.Parameter) bool { return u.String() == upper.String() }) {
		return true
	}
	p.env = p.env.WithUpperBound(v, upper)
	for _, k := range x.Predicates {
		if !p.Param(k, upper) {
			return false
		}
	}
	for _, l := range x.Lower {
		if !p.SubParam(l, upper) {
			return false
		}
	}
	return true
}

// boundBelow records lower <: v.
func (p *prover) boundBelow(v grammar.Variable, lower grammar.Parameter) bool {
	x, ok := p.env.Existential(v)
	if !ok || x.Escapes(lower) {
		return false
	}
	if slices.ContainsFunc(x.Lower, func(l grammar.Parameter) bool { return l.String() == lower.String() }) {
		return true
	}
	p.env = p.env.WithLowerBound(v, lower)
	for _, k := range x.Predicates {
		if !p.Param(k, lower) {
			return false
		}
	}
	for _, u := range x.Upper {
		if !p.SubParam(lower, u) {
			return false
		}
	}
	return true
}
