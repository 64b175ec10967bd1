package check

import (
	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// wfTy checks that ty only names declared classes with the right number and
// kinds of parameters, generics that are in scope, and places that exist.
func wfTy(en env.Env, ty grammar.Ty) error {
	switch t := ty.(type) {
	case grammar.NamedTy:
		if t.IsBuiltin() {
			if len(t.Params) > 0 {
				return judge.Leaf(judge.Malformed, "%s takes no parameters", t.Name)
			}
			return nil
		}
		class, ok := en.Program().Class(t.Name)
		if !ok {
			return judge.Leaf(judge.UnknownName, "no class named %s", t.Name)
		}
		if len(class.Binder) != len(t.Params) {
			return judge.Leaf(judge.Malformed, "%s expects %d parameters, got %d", t.Name, len(class.Binder), len(t.Params))
		}
		for i, p := range t.Params {
			if p.Kind() != class.Binder[i].Kind {
				return judge.Leaf(judge.Malformed, "parameter %s of %s should be a %s", p, t.Name, class.Binder[i].Kind)
			}
			if err := wfParam(en, p); err != nil {
				return err
			}
		}
		return nil
	case grammar.VarTy:
		return wfVar(en, t.Var)
	case grammar.PermTy:
		if err := wfPerm(en, t.Perm); err != nil {
			return err
		}
		return wfTy(en, t.Ty)
	}
	return judge.Leaf(judge.Malformed, "unexpected type %T", ty)
}

func wfPerm(en env.Env, perm grammar.Perm) error {
	switch p := perm.(type) {
	case grammar.Given:
		return wfPlaces(en, p.Places)
	case grammar.Shared:
		return wfPlaces(en, p.Places)
	case grammar.Leased:
		if len(p.Places) == 0 {
			return judge.Leaf(judge.Malformed, "leased needs at least one place")
		}
		return wfPlaces(en, p.Places)
	case grammar.VarPerm:
		return wfVar(en, p.Var)
	case grammar.ApplyPerm:
		if err := wfPerm(en, p.Left); err != nil {
			return err
		}
		return wfPerm(en, p.Right)
	}
	return judge.Leaf(judge.Malformed, "unexpected permission %T", perm)
}

func wfParam(en env.Env, p grammar.Parameter) error {
	switch p := p.(type) {
	case grammar.Ty:
		return wfTy(en, p)
	case grammar.Perm:
		return wfPerm(en, p)
	}
	return judge.Leaf(judge.Malformed, "unexpected parameter %T", p)
}

func wfPlaces(en env.Env, places []grammar.Place) error {
	for _, pl := range places {
		if _, ok := en.Resolve(pl.Var); !ok {
			return judge.Leaf(judge.Malformed, "type mentions unknown place %s", pl)
		}
		if _, err := typePlaceIn(en, pl); err != nil {
			return err
		}
	}
	return nil
}

func wfVar(en env.Env, v grammar.Variable) error {
	if v.Flavor == grammar.BoundVar || !en.InScope(v) {
		return judge.Leaf(judge.Malformed, "%s is not in scope", v)
	}
	return nil
}

func wfPredicates(en env.Env, preds []grammar.Predicate) error {
	for _, p := range preds {
		if err := wfParam(en, p.Param); err != nil {
			return judge.Because("where "+p.String(), err)
		}
	}
	return nil
}
