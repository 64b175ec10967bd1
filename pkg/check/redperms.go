package check

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// LinkKind is the kind of one element of a reduced permission chain.
type LinkKind int

const (
	// SharedLink is the owned-shared ("our") permission.
	SharedLink LinkKind = iota
	// RefLink is a shared alias of a place.
	RefLink
	// MutLink is a leased alias of a place.
	MutLink
	// MvLink stands for the permission of a place that was moved from.
	MvLink
	// VarLink is a permission variable.
	VarLink
)

// Link is one primitive permission in a chain.
type Link struct {
	Kind  LinkKind
	Place grammar.Place
	// Live records whether Place is live at the point of reduction.
	Live bool
	Var  grammar.Variable
}

func (l Link) String() string {
	dead := ""
	if !l.Live {
		dead = "†"
	}
	switch l.Kind {
	case SharedLink:
		return "shared"
	case RefLink:
		return fmt.Sprintf("ref[%s]%s", l.Place, dead)
	case MutLink:
		return fmt.Sprintf("mut[%s]%s", l.Place, dead)
	case MvLink:
		return fmt.Sprintf("mv[%s]", l.Place)
	default:
		return l.Var.String()
	}
}

// IsCopy reports whether the link can be duplicated freely.
func (l Link) IsCopy() bool {
	return l.Kind == SharedLink || l.Kind == RefLink
}

// IsLent reports whether the link borrows from or came from a place.
func (l Link) IsLent() bool {
	return l.Kind == RefLink || l.Kind == MutLink || l.Kind == MvLink
}

// same compares links ignoring liveness.
func (l Link) same(o Link) bool {
	if l.Kind != o.Kind {
		return false
	}
	switch l.Kind {
	case RefLink, MutLink, MvLink:
		return l.Place.Equal(o.Place)
	case VarLink:
		return l.Var == o.Var
	}
	return true
}

// Chain is a permission flattened into links, outermost first. A copy link
// only ever appears at the head: applying anything atop a shared permission
// is still that shared permission.
type Chain []Link

func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, l := range c {
		parts[i] = l.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Equal compares chains ignoring liveness.
func (c Chain) Equal(o Chain) bool {
	return slices.EqualFunc(c, o, Link.same)
}

func (c Chain) endsInVar() bool {
	return len(c) > 0 && c[len(c)-1].Kind == VarLink
}

// mentions reports whether a Ref, Mut or Mv link names place.
func (c Chain) mentions(place grammar.Place) bool {
	return slices.ContainsFunc(c, func(l Link) bool {
		return l.IsLent() && l.Place.Equal(place)
	})
}

// concat applies a atop b.
func concat(a, b Chain) Chain {
	if len(b) > 0 && b[0].IsCopy() {
		return b
	}
	out := make(Chain, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// RawChains flattens perm without looking through any place. Permissions
// naming several places are unions and yield one chain per place. A nil
// permission is given.
func RawChains(perm grammar.Perm, live LivePlaces) []Chain {
	switch p := perm.(type) {
	case nil:
		return []Chain{{}}
	case grammar.Given:
		if len(p.Places) == 0 {
			return []Chain{{}}
		}
		return placeLinks(MvLink, p.Places, live)
	case grammar.Shared:
		if len(p.Places) == 0 {
			return []Chain{{{Kind: SharedLink}}}
		}
		return placeLinks(RefLink, p.Places, live)
	case grammar.Leased:
		return placeLinks(MutLink, p.Places, live)
	case grammar.VarPerm:
		return []Chain{{{Kind: VarLink, Var: p.Var}}}
	case grammar.ApplyPerm:
		var out []Chain
		for _, l := range RawChains(p.Left, live) {
			for _, r := range RawChains(p.Right, live) {
				out = addChain(out, concat(l, r))
			}
		}
		return out
	}
	panic(fmt.Sprintf("bug: unexpected permission %T", perm))
}

func placeLinks(kind LinkKind, places []grammar.Place, live LivePlaces) []Chain {
	out := make([]Chain, 0, len(places))
	for _, p := range places {
		out = addChain(out, Chain{{Kind: kind, Place: p, Live: live.IsLive(p)}})
	}
	return out
}

func addChain(cs []Chain, c Chain) []Chain {
	key := c.String()
	if slices.ContainsFunc(cs, func(o Chain) bool { return o.String() == key }) {
		return cs
	}
	return append(cs, c)
}

// expand enumerates the reductions of a raw chain. Each Ref or Mut link is
// either kept or followed into the permission of its place; Mv links are
// always followed. Following a dead link may collapse it: a dead Ref to a
// shareable place whose own permission is lent becomes shared, and a dead
// Mut with a lent tail disappears.
func (p *prover) expand(c Chain) []Chain {
	results := []Chain{{}}
	for _, l := range c {
		alts := p.linkExpansions(l)
		var next []Chain
		for _, r := range results {
			for _, a := range alts {
				next = addChain(next, concat(r, a))
			}
		}
		if len(next) > p.c.s.MaxOutcomes() {
			p.fatal(judge.Leaf(judge.SearchExhausted, "too many reductions of %s", c))
			return results
		}
		results = next
	}
	return results
}

// Reduce is the set of reduced chains of perm.
func (p *prover) Reduce(perm grammar.Perm) []Chain {
	var out []Chain
	for _, raw := range RawChains(perm, p.live) {
		for _, c := range p.expand(raw) {
			out = addChain(out, c)
		}
	}
	return out
}

func (p *prover) linkExpansions(l Link) []Chain {
	if l.Kind == SharedLink || l.Kind == VarLink {
		return []Chain{{l}}
	}
	tails, ok := p.placeChains(l.Place)
	if !ok {
		return []Chain{{l}}
	}
	switch l.Kind {
	case MvLink:
		return tails
	case RefLink:
		out := []Chain{{l}}
		for _, t := range tails {
			out = addChain(out, concat(Chain{l}, t))
			if !l.Live && p.shareable(l.Place) && p.chainLent(t) {
				out = addChain(out, concat(Chain{{Kind: SharedLink}}, t))
			}
		}
		return out
	default:
		out := []Chain{{l}}
		for _, t := range tails {
			out = addChain(out, concat(Chain{l}, t))
			if !l.Live && p.chainLent(t) {
				out = addChain(out, t)
			}
		}
		return out
	}
}

// placeChains reduces the permission of the type stored in place.
func (p *prover) placeChains(place grammar.Place) ([]Chain, bool) {
	if p.err != nil {
		return nil, false
	}
	leave, err := p.c.s.Nest("reduce " + place.String())
	defer leave()
	if err != nil {
		p.fatal(err)
		return nil, false
	}
	ty, err := typePlaceIn(p.env, place)
	if err != nil {
		if judge.AsFailure(err).IsFatal() {
			p.fatal(err)
		}
		return nil, false
	}
	perm, _ := grammar.Split(ty)
	return p.Reduce(perm), p.err == nil
}

// shareable places have no atomic state reachable through a shared alias.
func (p *prover) shareable(place grammar.Place) bool {
	ty, err := typePlaceIn(p.env, place)
	if err != nil {
		return false
	}
	_, base := grammar.Split(ty)
	named, ok := base.(grammar.NamedTy)
	if !ok {
		return false
	}
	if named.IsBuiltin() {
		return true
	}
	class, ok := p.env.Program().Class(named.Name)
	if !ok {
		return false
	}
	return !slices.ContainsFunc(class.Fields, func(f grammar.FieldDecl) bool { return f.Atomic })
}
