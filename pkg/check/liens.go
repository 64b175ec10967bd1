package check

import (
	"fmt"

	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

// LienKind distinguishes read from write restrictions.
type LienKind int

const (
	SharedLien LienKind = iota
	LeasedLien
)

// Lien is a restriction a value places on a place it aliases.
type Lien struct {
	Kind  LienKind
	Place grammar.Place
	// Nested liens were found through the field types of an aliased
	// object rather than in the type itself.
	Nested bool
}

func (l Lien) String() string {
	kind := "shared"
	if l.Kind == LeasedLien {
		kind = "leased"
	}
	if l.Nested {
		return fmt.Sprintf("%s{%s} (nested)", kind, l.Place)
	}
	return fmt.Sprintf("%s{%s}", kind, l.Place)
}

// Liens collects the liens of a value of type ty, following the types of
// the places it refers to and the bounds of inference variables.
func Liens(en env.Env, ty grammar.Ty) []Lien {
	lc := &lienCollector{env: en, seen: map[string]bool{}}
	lc.ty(ty, false)
	return lc.liens
}

type lienCollector struct {
	env   env.Env
	seen  map[string]bool
	liens []Lien
}

func (lc *lienCollector) add(l Lien) {
	key := l.String()
	if lc.seen["lien "+key] {
		return
	}
	lc.seen["lien "+key] = true
	lc.liens = append(lc.liens, l)
}

func (lc *lienCollector) ty(ty grammar.Ty, nested bool) {
	perm, base := grammar.Split(ty)
	if perm != nil {
		lc.perm(perm, base, nested)
	}
	switch b := base.(type) {
	case grammar.NamedTy:
		for _, p := range b.Params {
			lc.param(p, nested)
		}
	case grammar.VarTy:
		lc.existential(b.Var, nested)
	}
}

func (lc *lienCollector) param(p grammar.Parameter, nested bool) {
	switch p := p.(type) {
	case grammar.Ty:
		lc.ty(p, nested)
	case grammar.Perm:
		lc.perm(p, nil, nested)
	}
}

func (lc *lienCollector) perm(perm grammar.Perm, base grammar.Ty, nested bool) {
	switch p := perm.(type) {
	case grammar.Given:
		for _, pl := range p.Places {
			lc.place(pl, nested)
		}
	case grammar.Shared:
		for _, pl := range p.Places {
			lc.add(Lien{Kind: SharedLien, Place: pl, Nested: nested})
			lc.place(pl, nested)
			lc.fields(base, pl)
		}
	case grammar.Leased:
		for _, pl := range p.Places {
			lc.add(Lien{Kind: LeasedLien, Place: pl, Nested: nested})
			lc.place(pl, nested)
			lc.fields(base, pl)
		}
	case grammar.VarPerm:
		lc.existential(p.Var, nested)
	case grammar.ApplyPerm:
		lc.perm(p.Left, base, nested)
		lc.perm(p.Right, base, nested)
	}
}

// place follows the type stored in an aliased place.
func (lc *lienCollector) place(pl grammar.Place, nested bool) {
	key := "place " + pl.String()
	if lc.seen[key] {
		return
	}
	lc.seen[key] = true
	ty, err := typePlaceIn(lc.env, pl)
	if err != nil {
		return
	}
	lc.ty(ty, nested)
}

// fields collects the liens that the field types of an object aliased at pl
// hold on other parts of the same object.
func (lc *lienCollector) fields(base grammar.Ty, pl grammar.Place) {
	named, ok := base.(grammar.NamedTy)
	if !ok || named.IsBuiltin() {
		return
	}
	class, ok := lc.env.Program().Class(named.Name)
	if !ok || len(class.Binder) != len(named.Params) {
		return
	}
	for _, f := range class.Fields {
		if !mentionsSelf(f.Ty) {
			continue
		}
		subs := env.NewSubs().Bind(class.Binder, named.Params).AddLocal(grammar.SelfVar, pl)
		lc.ty(subs.Ty(f.Ty), true)
	}
}

func mentionsSelf(ty grammar.Ty) bool {
	for _, p := range env.PlacesIn(ty) {
		if p.Var == grammar.SelfVar {
			return true
		}
	}
	return false
}

func (lc *lienCollector) existential(v grammar.Variable, nested bool) {
	x, ok := lc.env.Existential(v)
	if !ok {
		return
	}
	key := "var " + v.String()
	if lc.seen[key] {
		return
	}
	lc.seen[key] = true
	for _, l := range x.Lower {
		lc.param(l, nested)
	}
}
