package check

import (
	"slices"

	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// prover answers predicate and subtyping queries. It commits to the first
// way it finds of proving a query; alternatives are tried in order and the
// environment is rolled back to a snapshot when one fails. Proving a
// predicate of an existential records it, so env may grow along the way.
type prover struct {
	c    *checker
	env  env.Env
	live LivePlaces
	// err is the first fatal failure. Once set, every query fails.
	err error
}

func (c *checker) prover(en env.Env, live LivePlaces) *prover {
	return &prover{c: c, env: en, live: live}
}

func (p *prover) fatal(err error) {
	if p.err == nil {
		p.err = err
	}
}

// try runs f and undoes its effect on the environment if it fails.
func (p *prover) try(f func() bool) bool {
	if p.err != nil {
		return false
	}
	snapshot := p.env
	if f() && p.err == nil {
		return true
	}
	p.env = snapshot
	return false
}

func (p *prover) step(what string) bool {
	if p.err != nil {
		return false
	}
	if err := p.c.s.Step(what); err != nil {
		p.fatal(err)
		return false
	}
	return true
}

// implied lists, for each predicate, the assumptions that entail it.
var implied = map[grammar.PredicateKind][]grammar.PredicateKind{
	grammar.Copy:       {grammar.SharedPred},
	grammar.Moved:      {grammar.Unique, grammar.Mine, grammar.LeasedPred},
	grammar.Owned:      {grammar.Mine},
	grammar.Lent:       {grammar.LeasedPred},
	grammar.Unique:     {grammar.Mine, grammar.LeasedPred},
	grammar.Mutable:    {grammar.Mine, grammar.LeasedPred},
	grammar.Mine:       {},
	grammar.SharedPred: {},
	grammar.LeasedPred: {},
}

// Param proves kind for a type or permission.
func (p *prover) Param(kind grammar.PredicateKind, param grammar.Parameter) bool {
	switch param := param.(type) {
	case grammar.Ty:
		perm, base := grammar.Split(param)
		return p.holds(kind, perm, base)
	case grammar.Perm:
		return p.holds(kind, param, nil)
	}
	return false
}

// Ty proves kind for a type.
func (p *prover) Ty(kind grammar.PredicateKind, ty grammar.Ty) bool {
	return p.Param(kind, ty)
}

// holds proves kind for perm applied to base. A nil perm is given; a nil
// base means the query is about the permission alone.
func (p *prover) holds(kind grammar.PredicateKind, perm grammar.Perm, base grammar.Ty) bool {
	if !p.step("prove " + kind.String()) {
		return false
	}
	if perm == nil {
		if v, ok := existentialVar(base); ok {
			return p.existentialHolds(kind, v)
		}
	}
	if base == nil {
		if vp, ok := perm.(grammar.VarPerm); ok && vp.Var.Flavor == grammar.ExistentialVar {
			return p.existentialHolds(kind, vp.Var)
		}
	}
	switch kind {
	case grammar.Moved:
		return !p.try(func() bool { return p.holds(grammar.Copy, perm, base) }) && p.err == nil
	case grammar.Mine:
		return p.holds(grammar.Owned, perm, base) && p.holds(grammar.Unique, perm, base)
	case grammar.LeasedPred:
		return p.holds(grammar.Unique, perm, base) && p.holds(grammar.Lent, perm, base)
	case grammar.Mutable:
		return p.try(func() bool { return p.holds(grammar.Mine, perm, base) }) ||
			p.try(func() bool { return p.holds(grammar.LeasedPred, perm, base) })
	}
	// Every alternative of a union must have a reduction that satisfies
	// the predicate.
	for _, raw := range RawChains(perm, p.live) {
		found := false
		for _, c := range p.expand(raw) {
			if p.try(func() bool { return p.chainHolds(kind, c, base) }) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return p.err == nil
}

func existentialVar(ty grammar.Ty) (grammar.Variable, bool) {
	if vt, ok := ty.(grammar.VarTy); ok && vt.Var.Flavor == grammar.ExistentialVar {
		return vt.Var, true
	}
	return grammar.Variable{}, false
}

// chainHolds decides a primitive predicate for one reduced chain.
func (p *prover) chainHolds(kind grammar.PredicateKind, c Chain, base grammar.Ty) bool {
	switch kind {
	case grammar.Copy:
		return p.chainCopy(c) || (p.chainOwned(c) && p.baseHolds(grammar.Copy, base))
	case grammar.SharedPred:
		return p.chainShared(c) || (p.chainOwned(c) && p.baseHolds(grammar.SharedPred, base))
	case grammar.Owned:
		return p.chainOwned(c) && p.baseHolds(grammar.Owned, base)
	case grammar.Lent:
		return p.chainLent(c) || p.baseHolds(grammar.Lent, base)
	case grammar.Unique:
		return p.chainUnique(c) && p.baseHolds(grammar.Unique, base)
	}
	return p.holds(kind, chainPerm(c), base)
}

// chainPerm turns a reduced chain back into a permission.
func chainPerm(c Chain) grammar.Perm {
	var perm grammar.Perm
	for i := len(c) - 1; i >= 0; i-- {
		var atom grammar.Perm
		l := c[i]
		switch l.Kind {
		case SharedLink:
			atom = grammar.Shared{}
		case RefLink:
			atom = grammar.Shared{Places: []grammar.Place{l.Place}}
		case MutLink:
			atom = grammar.Leased{Places: []grammar.Place{l.Place}}
		case MvLink:
			atom = grammar.Given{Places: []grammar.Place{l.Place}}
		case VarLink:
			atom = grammar.VarPerm{Var: l.Var}
		}
		perm = grammar.Compose(atom, perm)
	}
	return perm
}

func (p *prover) chainCopy(c Chain) bool {
	if len(c) > 0 && c[0].IsCopy() {
		return true
	}
	return slices.ContainsFunc(c, func(l Link) bool {
		return l.Kind == VarLink && p.varHolds(grammar.Copy, l.Var)
	})
}

func (p *prover) chainShared(c Chain) bool {
	if len(c) > 0 && c[0].IsCopy() {
		return true
	}
	return slices.ContainsFunc(c, func(l Link) bool {
		return l.Kind == VarLink && p.varHolds(grammar.SharedPred, l.Var)
	})
}

func (p *prover) chainOwned(c Chain) bool {
	for _, l := range c {
		if l.IsLent() {
			return false
		}
		if l.Kind == VarLink && !p.varHolds(grammar.Owned, l.Var) {
			return false
		}
	}
	return true
}

func (p *prover) chainLent(c Chain) bool {
	return slices.ContainsFunc(c, func(l Link) bool {
		return l.IsLent() || (l.Kind == VarLink && p.varHolds(grammar.Lent, l.Var))
	})
}

func (p *prover) chainUnique(c Chain) bool {
	for _, l := range c {
		if l.IsCopy() {
			return false
		}
		if l.Kind == VarLink && !p.varHolds(grammar.Unique, l.Var) {
			return false
		}
	}
	return true
}

// baseHolds is the contribution of the type beneath the permission.
func (p *prover) baseHolds(kind grammar.PredicateKind, base grammar.Ty) bool {
	switch b := base.(type) {
	case nil, grammar.NamedTy:
		switch kind {
		case grammar.Owned, grammar.Unique:
			return true
		case grammar.Copy:
			return base != nil && p.valueCopy(b.(grammar.NamedTy))
		default:
			return false
		}
	case grammar.VarTy:
		return p.varHolds(kind, b.Var)
	case grammar.PermTy:
		return p.Ty(kind, b)
	}
	return false
}

// valueCopy reports whether owned instances of the named type are copied
// rather than moved.
func (p *prover) valueCopy(ty grammar.NamedTy) bool {
	if ty.IsBuiltin() {
		return true
	}
	class, ok := p.env.Program().Class(ty.Name)
	if !ok || !class.Value || len(class.Binder) != len(ty.Params) {
		return false
	}
	for i, b := range class.Binder {
		if b.Kind != grammar.TypeKind {
			continue
		}
		if !p.Param(grammar.Copy, ty.Params[i]) {
			return false
		}
	}
	return true
}

// varHolds decides a predicate for a variable: universals by assumption,
// existentials by their bounds.
func (p *prover) varHolds(kind grammar.PredicateKind, v grammar.Variable) bool {
	switch v.Flavor {
	case grammar.UniversalVar:
		return p.assumed(kind, v)
	case grammar.ExistentialVar:
		return p.try(func() bool { return p.existentialHolds(kind, v) })
	}
	return false
}

func (p *prover) assumed(kind grammar.PredicateKind, v grammar.Variable) bool {
	if p.env.Assumed(kind, v) {
		return true
	}
	for _, k := range implied[kind] {
		if p.env.Assumed(k, v) {
			return true
		}
	}
	switch kind {
	case grammar.Mine:
		return p.assumed(grammar.Owned, v) && p.assumed(grammar.Unique, v)
	case grammar.LeasedPred:
		return p.assumed(grammar.Unique, v) && p.assumed(grammar.Lent, v)
	case grammar.Mutable:
		return p.assumed(grammar.Mine, v) || p.assumed(grammar.LeasedPred, v)
	}
	return false
}

// existentialHolds proves kind for every current bound of v and records it
// so that bounds added later must satisfy it too.
func (p *prover) existentialHolds(kind grammar.PredicateKind, v grammar.Variable) bool {
	x, ok := p.env.Existential(v)
	if !ok {
		p.fatal(judge.Leaf(judge.Malformed, "unknown inference variable %s", v))
		return false
	}
	if slices.Contains(x.Predicates, kind) {
		return true
	}
	p.env = p.env.WithPredicate(v, kind)
	for _, b := range slices.Concat(x.Lower, x.Upper) {
		if !p.Param(kind, b) {
			return false
		}
	}
	return true
}
