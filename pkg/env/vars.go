package env

import (
	set "github.com/hashicorp/go-set/v3"

	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

// FreeVars collects every variable mentioned by p.
func FreeVars(p grammar.Parameter) *set.Set[grammar.Variable] {
	vars := set.New[grammar.Variable](0)
	walkParam(p, func(v grammar.Variable) { vars.Insert(v) }, func(grammar.Place) {})
	return vars
}

// PlacesIn collects every place mentioned by a permission inside p, in
// order of appearance.
func PlacesIn(p grammar.Parameter) []grammar.Place {
	var out []grammar.Place
	walkParam(p, func(grammar.Variable) {}, func(pl grammar.Place) { out = append(out, pl) })
	return out
}

func walkParam(p grammar.Parameter, onVar func(grammar.Variable), onPlace func(grammar.Place)) {
	switch p := p.(type) {
	case grammar.NamedTy:
		for _, q := range p.Params {
			walkParam(q, onVar, onPlace)
		}
	case grammar.VarTy:
		onVar(p.Var)
	case grammar.PermTy:
		walkParam(p.Perm, onVar, onPlace)
		walkParam(p.Ty, onVar, onPlace)
	case grammar.Given:
		for _, pl := range p.Places {
			onPlace(pl)
		}
	case grammar.Shared:
		for _, pl := range p.Places {
			onPlace(pl)
		}
	case grammar.Leased:
		for _, pl := range p.Places {
			onPlace(pl)
		}
	case grammar.VarPerm:
		onVar(p.Var)
	case grammar.ApplyPerm:
		walkParam(p.Left, onVar, onPlace)
		walkParam(p.Right, onVar, onPlace)
	}
}
