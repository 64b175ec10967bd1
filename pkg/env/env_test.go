package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

func TestLocalsShadowAndPop(t *testing.T) {
	e := env.New(&grammar.Program{})
	e = e.PushLocal("x", grammar.Int())
	mark := e.Mark()
	inner := e.PushLocal("x", grammar.Unit())

	ty, ok := inner.Local("x")
	require.True(t, ok)
	assert.Equal(t, "()", ty.String())

	popped := inner.PopTo(mark)
	ty, ok = popped.Local("x")
	require.True(t, ok)
	assert.Equal(t, "Int", ty.String(), "visible binding wins over hidden one")
	assert.Len(t, popped.Visible(), 1)

	// the parent is untouched
	ty, _ = e.Local("x")
	assert.Equal(t, "Int", ty.String())
}

func TestHiddenLocalsStillResolve(t *testing.T) {
	e := env.New(&grammar.Program{})
	mark := e.Mark()
	e = e.PushLocal("y", grammar.Int())
	e = e.PopTo(mark)

	_, ok := e.Local("y")
	assert.False(t, ok, "out of scope for the program")
	ty, ok := e.Resolve("y")
	require.True(t, ok, "still resolvable from types")
	assert.Equal(t, "Int", ty.String())
	assert.Empty(t, e.Visible())
}

func TestTempsSurvivePop(t *testing.T) {
	e := env.New(&grammar.Program{})
	mark := e.Mark()
	e, p := e.FreshTemp(grammar.Int())
	e, q := e.FreshTemp(grammar.Int())
	assert.NotEqual(t, p.String(), q.String())

	e = e.PopTo(mark)
	names := []string{}
	for _, b := range e.Visible() {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{p.Var, q.Var}, names)
}

func TestOpenBinder(t *testing.T) {
	binder := []grammar.BinderVar{{Kind: grammar.TypeKind, Name: "T"}, {Kind: grammar.PermKind, Name: "P"}}
	e, subs := env.New(&grammar.Program{}).OpenBinder(binder)
	assert.Equal(t, 2, e.Universe())

	ty := subs.Ty(grammar.PermTy{
		Perm: grammar.VarPerm{Var: binder[1].Bound()},
		Ty:   grammar.VarTy{Var: binder[0].Bound()},
	})
	assert.Equal(t, "P/1 T/0", ty.String())

	inner, subs2 := e.OpenBinder(binder[:1])
	assert.Equal(t, "T/2", subs2.Ty(grammar.VarTy{Var: binder[0].Bound()}).String())
	assert.True(t, inner.InScope(grammar.Variable{Kind: grammar.TypeKind, Flavor: grammar.UniversalVar, Name: "T", Index: 2}))
	assert.False(t, e.InScope(grammar.Variable{Kind: grammar.TypeKind, Flavor: grammar.UniversalVar, Name: "T", Index: 2}))
}

func TestAssumed(t *testing.T) {
	binder := []grammar.BinderVar{{Kind: grammar.TypeKind, Name: "T"}}
	e, subs := env.New(&grammar.Program{}).OpenBinder(binder)
	e = e.Assume(subs.Predicate(grammar.Predicate{Kind: grammar.Copy, Param: grammar.VarTy{Var: binder[0].Bound()}}))

	u := grammar.Variable{Kind: grammar.TypeKind, Flavor: grammar.UniversalVar, Name: "T", Index: 0}
	assert.True(t, e.Assumed(grammar.Copy, u))
	assert.False(t, e.Assumed(grammar.Owned, u))
}

func TestExistentialBoundsAreCopyOnWrite(t *testing.T) {
	e, v := env.New(&grammar.Program{}).FreshExistential(grammar.TypeKind, "T")
	a := e.WithLowerBound(v, grammar.Int())
	b := e.WithLowerBound(v, grammar.Unit())
	a = a.WithLowerBound(v, grammar.Int())

	xa, ok := a.Existential(v)
	require.True(t, ok)
	xb, _ := b.Existential(v)
	x, _ := e.Existential(v)

	assert.Len(t, xa.Lower, 1, "duplicate bounds are ignored")
	assert.Equal(t, "()", xb.Lower[0].String())
	assert.Empty(t, x.Lower)

	a = a.WithPredicate(v, grammar.Copy)
	xa, _ = a.Existential(v)
	assert.Equal(t, []grammar.PredicateKind{grammar.Copy}, xa.Predicates)
	assert.NotEqual(t, a.Key(), e.Key())
}

func TestExistentialEscape(t *testing.T) {
	e, v := env.New(&grammar.Program{}).FreshExistential(grammar.TypeKind, "T")
	e, subs := e.OpenBinder([]grammar.BinderVar{{Kind: grammar.TypeKind, Name: "U"}})
	x, _ := e.Existential(v)

	later := subs.Ty(grammar.VarTy{Var: grammar.Variable{Kind: grammar.TypeKind, Name: "U"}})
	assert.True(t, x.Escapes(later))
	assert.False(t, x.Escapes(grammar.Int()))
}

func TestSubsPlaces(t *testing.T) {
	subs := env.NewSubs().
		AddLocal("self", grammar.PlaceOf("@temp0")).
		AddPlace(grammar.PlaceOf("self", "a"), grammar.PlaceOf("@temp3"))

	perm := subs.Perm(grammar.Shared{Places: []grammar.Place{
		grammar.PlaceOf("self", "a", "b"),
		grammar.PlaceOf("self", "c"),
		grammar.PlaceOf("other"),
	}})
	assert.Equal(t, "shared{@temp3.b, @temp0.c, other}", perm.String())
}

func TestFreeVarsAndPlaces(t *testing.T) {
	scope := grammar.Scope{"T": grammar.TypeKind, "P": grammar.PermKind}
	ty := grammar.MustTy("P shared{a.b} Vec[leased{c} T]", scope)

	vars := env.FreeVars(ty)
	assert.Equal(t, 2, vars.Size())
	assert.True(t, vars.Contains(grammar.Variable{Kind: grammar.PermKind, Name: "P"}))

	var places []string
	for _, p := range env.PlacesIn(ty) {
		places = append(places, p.String())
	}
	assert.Equal(t, []string{"a.b", "c"}, places)
}
