package check

import (
	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// placeType is the type of the value stored in place: the declared type of
// the root local, then each field type with the owner's permission applied
// atop it. Only bindings in scope are visible; use typePlaceIn for places
// named inside types.
func placeType(en env.Env, place grammar.Place) (grammar.Ty, error) {
	ty, ok := en.Local(place.Var)
	if !ok {
		return nil, judge.Leaf(judge.UnknownName, "no variable named %s", place.Var)
	}
	return projectPlace(en, place, ty)
}

// typePlaceIn is placeType for a place that a type mentions, which may name
// a local whose block has already closed.
func typePlaceIn(en env.Env, place grammar.Place) (grammar.Ty, error) {
	ty, ok := en.Resolve(place.Var)
	if !ok {
		return nil, judge.Leaf(judge.UnknownName, "no variable named %s", place.Var)
	}
	return projectPlace(en, place, ty)
}

func projectPlace(en env.Env, place grammar.Place, ty grammar.Ty) (grammar.Ty, error) {
	owner := grammar.Place{Var: place.Var}
	for _, field := range place.Fields {
		fty, err := fieldType(en, owner, ty, field)
		if err != nil {
			return nil, err
		}
		ty = fty
		owner = owner.Project(field)
	}
	return ty, nil
}

// fieldType is the type of owner.field when owner has type ownerTy.
func fieldType(en env.Env, owner grammar.Place, ownerTy grammar.Ty, field string) (grammar.Ty, error) {
	perm, base := grammar.Split(ownerTy)
	named, ok := base.(grammar.NamedTy)
	if !ok {
		if _, ok := existentialVar(base); ok {
			return nil, judge.Mismatch("type of %s is not yet known", owner)
		}
		return nil, judge.Leaf(judge.UnknownName, "%s has no field %s (type %s)", owner, field, ownerTy)
	}
	class, decl, err := classField(en, named, field)
	if err != nil {
		return nil, err
	}
	subs := env.NewSubs().
		Bind(class.Binder, named.Params).
		AddLocal(grammar.SelfVar, owner)
	return grammar.Apply(perm, subs.Ty(decl.Ty)), nil
}

func classField(en env.Env, ty grammar.NamedTy, field string) (*grammar.ClassDecl, grammar.FieldDecl, error) {
	if ty.IsBuiltin() {
		return nil, grammar.FieldDecl{}, judge.Leaf(judge.UnknownName, "%s has no field %s", ty, field)
	}
	class, ok := en.Program().Class(ty.Name)
	if !ok {
		return nil, grammar.FieldDecl{}, judge.Leaf(judge.UnknownName, "no class named %s", ty.Name)
	}
	if len(class.Binder) != len(ty.Params) {
		return nil, grammar.FieldDecl{}, judge.Leaf(judge.Malformed, "%s expects %d parameters, got %d", class.Name, len(class.Binder), len(ty.Params))
	}
	decl, ok := class.Field(field)
	if !ok {
		return nil, grammar.FieldDecl{}, judge.Leaf(judge.UnknownName, "class %s has no field %s", class.Name, field)
	}
	return class, decl, nil
}

// typePlace checks an access to a place.
func (c *checker) typePlace(st state, live LivePlaces, e grammar.PlaceExpr) ([]typed, error) {
	ty, err := placeType(st.env, e.Place)
	if err != nil {
		return nil, err
	}
	if moved := st.flow.Overlapping(e.Place); len(moved) > 0 {
		return nil, judge.Leaf(judge.AccessViolation, "%s is used after %s was moved", e.Place, moved[0])
	}
	switch e.Access {
	case grammar.Give:
		return c.givePlace(st, live, e.Place, ty)
	case grammar.Share:
		if err := c.accessPermitted(st.env, live, grammar.Share, e.Place); err != nil {
			return nil, err
		}
		_, base := grammar.Split(ty)
		return judge.One(typed{state: st, ty: grammar.Apply(grammar.Shared{Places: []grammar.Place{e.Place}}, base)})
	case grammar.Lease:
		if err := c.accessPermitted(st.env, live, grammar.Lease, e.Place); err != nil {
			return nil, err
		}
		_, base := grammar.Split(ty)
		return judge.One(typed{state: st, ty: grammar.Apply(grammar.Leased{Places: []grammar.Place{e.Place}}, base)})
	default:
		return c.dropPlace(st, live, e.Place, ty)
	}
}

func (c *checker) givePlace(st state, live LivePlaces, place grammar.Place, ty grammar.Ty) ([]typed, error) {
	return judge.Either(c.s, "give", place.String(),
		judge.Rule[typed]{Name: "give-copy", Run: func() ([]typed, error) {
			en, err := c.proveTy(st.env, live, grammar.Copy, ty)
			if err != nil {
				return nil, err
			}
			if err := c.accessPermitted(en, live, grammar.Share, place); err != nil {
				return nil, err
			}
			return judge.One(typed{state: state{env: en, flow: st.flow}, ty: ty})
		}},
		judge.Rule[typed]{Name: "give-dead", Run: func() ([]typed, error) {
			if live.IsLive(place) {
				return nil, judge.Mismatch("%s is live afterwards", place)
			}
			if err := c.accessPermitted(st.env, live, grammar.Give, place); err != nil {
				return nil, err
			}
			return judge.One(typed{state: st, ty: ty})
		}},
		judge.Rule[typed]{Name: "give-move", Run: func() ([]typed, error) {
			if !live.IsLive(place) {
				return nil, judge.Mismatch("%s is dead afterwards", place)
			}
			en, err := c.proveTy(st.env, live, grammar.Moved, ty)
			if err != nil {
				return nil, err
			}
			if err := c.accessPermitted(en, live, grammar.Give, place); err != nil {
				return nil, err
			}
			return judge.One(typed{state: state{env: en, flow: st.flow.Move(place)}, ty: ty})
		}},
	)
}

func (c *checker) dropPlace(st state, live LivePlaces, place grammar.Place, ty grammar.Ty) ([]typed, error) {
	if err := c.accessPermitted(st.env, live, grammar.Drop, place); err != nil {
		return nil, err
	}
	flow := st.flow
	if live.IsLive(place) && !c.isCopy(st.env, live, ty) {
		flow = flow.Move(place)
	}
	return judge.One(typed{state: state{env: st.env, flow: flow}, ty: grammar.Unit()})
}
