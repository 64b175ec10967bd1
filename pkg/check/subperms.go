package check

import (
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

// SubPerm decides whether permission a applied to baseA may be used where b
// applied to baseB is expected. The bases only matter for copy-ness and may
// be nil when comparing permission parameters.
func (p *prover) SubPerm(a, b grammar.Perm, baseA, baseB grammar.Ty) bool {
	if !p.step("sub-perm") {
		return false
	}
	if a == nil {
		a = grammar.Given{}
	}
	if b == nil {
		b = grammar.Given{}
	}
	if a.String() == b.String() {
		return true
	}
	// An inference variable is first solved by a new bound; if that
	// contradicts what is known about it, it is compared as an opaque link.
	if vp, ok := a.(grammar.VarPerm); ok && vp.Var.Flavor == grammar.ExistentialVar {
		if p.try(func() bool { return p.boundAbove(vp.Var, b) }) {
			return true
		}
	}
	if vp, ok := b.(grammar.VarPerm); ok && vp.Var.Flavor == grammar.ExistentialVar {
		if p.try(func() bool { return p.boundBelow(vp.Var, a) }) {
			return true
		}
	}
	targets := p.Reduce(b)
	if p.err != nil {
		return false
	}
	for _, raw := range RawChains(a, p.live) {
		if !p.covered(raw, targets, baseA, baseB) {
			return false
		}
	}
	return true
}

// covered holds if some reduction of a is covered by some target chain.
func (p *prover) covered(a Chain, targets []Chain, baseA, baseB grammar.Ty) bool {
	for _, ea := range p.expand(a) {
		for _, b := range targets {
			if p.try(func() bool { return p.coveredBy(ea, b, baseA, baseB) }) {
				return true
			}
		}
	}
	return false
}

func (p *prover) coveredBy(a, b Chain, baseA, baseB grammar.Ty) bool {
	if !p.step("cover") {
		return false
	}
	if a.Equal(b) {
		return true
	}
	if len(a) > 0 && len(b) > 0 && p.frontMatches(a[0], b[0]) {
		if p.try(func() bool { return p.coveredBy(a[1:], b[1:], baseA, baseB) }) {
			return true
		}
	}
	if len(a) > 0 && !b.mentions(a[0].Place) &&
		p.try(func() bool { return p.coveredByPopped(a, b, baseA, baseB) }) {
		return true
	}
	// Owned values widen to shared ones only when copying them is allowed
	// on both sides.
	if p.chainOwned(a) &&
		p.try(func() bool { return p.chainHolds(grammar.Copy, a, baseA) }) &&
		p.try(func() bool { return p.chainHolds(grammar.Copy, b, baseB) }) {
		return true
	}
	// Copying a value type out of an alias yields an independent value.
	if p.chainOwned(b) && p.baseHolds(grammar.Copy, baseA) &&
		p.try(func() bool { return p.chainHolds(grammar.Copy, a, baseA) }) &&
		p.try(func() bool { return p.chainHolds(grammar.Copy, b, baseB) }) {
		return true
	}
	if a.endsInVar() || b.endsInVar() {
		mine := func(c Chain, base grammar.Ty) bool {
			return p.chainHolds(grammar.Owned, c, base) && p.chainHolds(grammar.Unique, c, base)
		}
		our := func(c Chain, base grammar.Ty) bool {
			return p.chainHolds(grammar.Owned, c, base) && p.chainHolds(grammar.SharedPred, c, base)
		}
		return p.try(func() bool { return mine(a, baseA) && mine(b, baseB) }) ||
			p.try(func() bool { return our(a, baseA) && our(b, baseB) })
	}
	return false
}

// coveredByPopped pops a dead alias of a field reached through another
// alias: with q: leased{p}, the lease of q.a is a lease of p.a. The owner's
// chains must begin with a link of the same kind for the field to be rebased
// onto its place.
func (p *prover) coveredByPopped(a, b Chain, baseA, baseB grammar.Ty) bool {
	head := a[0]
	if head.Live || (head.Kind != RefLink && head.Kind != MutLink) {
		return false
	}
	owner, ok := head.Place.Owner()
	if !ok {
		return false
	}
	field, _ := head.Place.LastField()
	tails, ok := p.placeChains(owner)
	if !ok {
		return false
	}
	for _, t := range tails {
		if len(t) == 0 || t[0].Kind != head.Kind {
			continue
		}
		rebased := Link{Kind: head.Kind, Place: t[0].Place.Project(field), Live: t[0].Live}
		popped := concat(Chain{rebased}, a[1:])
		if p.try(func() bool { return p.coveredBy(popped, b, baseA, baseB) }) {
			return true
		}
	}
	return false
}

// frontMatches compares the leading links. An alias of a place is covered
// by an alias of the same kind to any prefix of it.
func (p *prover) frontMatches(a, b Link) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case RefLink, MutLink:
		return b.Place.IsPrefixOf(a.Place)
	case MvLink:
		return a.Place.Equal(b.Place)
	case VarLink:
		return a.Var == b.Var
	}
	return true
}
