package check

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

var proverProgram = grammar.MustLoadProgram(`
classes:
  - name: Data
  - name: Foo
    fields:
      - {name: i, type: Data}
  - name: Pair
    fields:
      - {name: a, type: Data}
      - {name: b, type: "shared{self.a} Data"}
  - name: Point
    value: true
    fields:
      - {name: x, type: Int}
  - name: Box
    value: true
    generics: [type T]
    fields:
      - {name: v, type: T}
  - name: Cell
    generics: [type T]
    fields:
      - {name: v, type: T, atomic: true}
`)

// testProver returns a prover over locals written as "name: type", none of
// them live.
func testProver(t *testing.T, locals ...string) *prover {
	t.Helper()
	en := env.New(proverProgram)
	for _, l := range locals {
		name, ty, ok := strings.Cut(l, ":")
		require.True(t, ok, l)
		en = en.PushLocal(strings.TrimSpace(name), grammar.MustTy(strings.TrimSpace(ty), nil))
	}
	c := &checker{s: judge.NewSearch(context.Background(), judge.Budget{}), subs: env.NewSubs()}
	return c.prover(en, NoneLive())
}

func chainStrings(cs []Chain) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

func TestRawChains(t *testing.T) {
	for src, want := range map[string][]string{
		"given":                  {"[]"},
		"shared":                 {"[shared]"},
		"shared{a, b}":           {"[ref[a]†]", "[ref[b]†]"},
		"leased{x} shared{y}":    {"[ref[y]†]"},
		"leased{x} leased{y}":    {"[mut[x]† mut[y]†]"},
		"shared{x} leased{y}":    {"[ref[x]† mut[y]†]"},
		"given{x}":               {"[mv[x]]"},
		"leased{x} given":        {"[mut[x]†]"},
		"shared leased{a, b}":    {"[shared mut[a]†]", "[shared mut[b]†]"},
		"leased{a, b} leased{c}": {"[mut[a]† mut[c]†]", "[mut[b]† mut[c]†]"},
	} {
		perm := grammar.MustPerm(src, nil)
		assert.Equal(t, want, chainStrings(RawChains(perm, NoneLive())), src)
	}
}

func TestRawChainsLiveness(t *testing.T) {
	perm := grammar.MustPerm("leased{x.f} shared{y}", nil)
	assert.Equal(t, []string{"[ref[y]]"}, chainStrings(RawChains(perm, LiveOf(grammar.MustPlace("y")))))

	perm = grammar.MustPerm("leased{x.f}", nil)
	assert.Equal(t, []string{"[mut[x.f]]"}, chainStrings(RawChains(perm, LiveOf(grammar.MustPlace("x")))))
}

func TestReduce(t *testing.T) {
	t.Run("a shared alias of a shared alias", func(t *testing.T) {
		p := testProver(t, "foo: Foo", "r: shared{foo} Foo")
		chains := chainStrings(p.Reduce(grammar.MustPerm("shared{r}", nil)))
		require.NoError(t, p.err)
		assert.ElementsMatch(t, []string{"[ref[r]†]", "[ref[foo]†]"}, chains)
	})

	t.Run("a dead lease of a lease", func(t *testing.T) {
		p := testProver(t, "foo: Foo", "r: leased{foo} Foo")
		chains := chainStrings(p.Reduce(grammar.MustPerm("leased{r}", nil)))
		require.NoError(t, p.err)
		assert.ElementsMatch(t, []string{"[mut[r]†]", "[mut[r]† mut[foo]†]", "[mut[foo]†]"}, chains)
	})

	t.Run("a live lease of a lease", func(t *testing.T) {
		p := testProver(t, "foo: Foo", "r: leased{foo} Foo")
		p.live = LiveOf(grammar.MustPlace("r"))
		chains := chainStrings(p.Reduce(grammar.MustPerm("leased{r}", nil)))
		require.NoError(t, p.err)
		assert.ElementsMatch(t, []string{"[mut[r]]", "[mut[r] mut[foo]†]"}, chains)
	})

	t.Run("moves are always followed", func(t *testing.T) {
		p := testProver(t, "foo: Foo", "r: shared{foo} Foo")
		chains := chainStrings(p.Reduce(grammar.MustPerm("given{r}", nil)))
		require.NoError(t, p.err)
		assert.Equal(t, []string{"[ref[foo]†]"}, chains)
	})

	t.Run("unknown places are fatal", func(t *testing.T) {
		p := testProver(t)
		p.Reduce(grammar.MustPerm("shared{nope}", nil))
		require.Error(t, p.err)
		assert.True(t, judge.AsFailure(p.err).Has(judge.UnknownName))
	})
}

func TestPredicates(t *testing.T) {
	type example struct {
		kind grammar.PredicateKind
		ty   string
		want bool
	}
	for _, ex := range []example{
		{grammar.Copy, "Int", true},
		{grammar.Copy, "()", true},
		{grammar.Copy, "Data", false},
		{grammar.Copy, "Point", true},
		{grammar.Copy, "Box[Int]", true},
		{grammar.Copy, "Box[Data]", false},
		{grammar.Copy, "Box[shared Data]", true},
		{grammar.Copy, "Cell[Int]", false},
		{grammar.Copy, "shared Data", true},
		{grammar.Copy, "shared{d} Data", true},
		{grammar.Copy, "leased{d} Data", false},
		{grammar.Copy, "leased{d} shared{d} Data", true},
		{grammar.Copy, "given{r} Data", true},
		{grammar.Moved, "Data", true},
		{grammar.Moved, "Int", false},
		{grammar.Moved, "leased{d} Data", true},
		{grammar.Owned, "Data", true},
		{grammar.Owned, "shared Data", true},
		{grammar.Owned, "shared{d} Data", false},
		{grammar.Lent, "shared{d} Data", true},
		{grammar.Lent, "leased{d} Data", true},
		{grammar.Lent, "Data", false},
		{grammar.Mine, "Data", true},
		{grammar.Mine, "shared Data", false},
		{grammar.SharedPred, "shared Data", true},
		{grammar.SharedPred, "shared{d} Data", true},
		{grammar.SharedPred, "leased{d} Data", false},
		{grammar.SharedPred, "Data", false},
		{grammar.Unique, "leased{d} Data", true},
		{grammar.Unique, "shared{d} Data", false},
		{grammar.LeasedPred, "leased{d} Data", true},
		{grammar.LeasedPred, "Data", false},
		{grammar.Mutable, "Data", true},
		{grammar.Mutable, "leased{d} Data", true},
		{grammar.Mutable, "shared{d} Data", false},
	} {
		p := testProver(t, "d: Data", "r: shared{d} Data")
		got := p.Ty(ex.kind, grammar.MustTy(ex.ty, nil))
		require.NoError(t, p.err)
		assert.Equal(t, ex.want, got, "%s(%s)", ex.kind, ex.ty)
	}
}

func TestPredicatesFromAssumptions(t *testing.T) {
	binder := []grammar.BinderVar{
		{Kind: grammar.PermKind, Name: "P"},
		{Kind: grammar.TypeKind, Name: "T"},
	}
	scope := grammar.ScopeOf(binder)
	en, subs := env.New(proverProgram).OpenBinder(binder)
	en = en.Assume(
		subs.Predicate(grammar.Predicate{Kind: grammar.Mine, Param: grammar.MustPerm("P", scope)}),
		subs.Predicate(grammar.Predicate{Kind: grammar.SharedPred, Param: grammar.MustTy("T", scope)}),
	)
	c := &checker{s: judge.NewSearch(context.Background(), judge.Budget{}), subs: subs}
	p := c.prover(en, NoneLive())

	perm := subs.Perm(grammar.MustPerm("P", scope))
	ty := subs.Ty(grammar.MustTy("T", scope))

	assert.True(t, p.Param(grammar.Mine, perm))
	assert.True(t, p.Param(grammar.Owned, perm))
	assert.True(t, p.Param(grammar.Unique, perm))
	assert.True(t, p.Param(grammar.Mutable, perm))
	assert.True(t, p.Param(grammar.Moved, perm))
	assert.False(t, p.Param(grammar.Copy, perm))
	assert.False(t, p.Param(grammar.Lent, perm))

	assert.True(t, p.Param(grammar.SharedPred, ty))
	assert.True(t, p.Param(grammar.Copy, ty))
	assert.False(t, p.Param(grammar.Moved, ty))
	assert.False(t, p.Param(grammar.Owned, ty))

	// A value class is copy when its type argument is.
	assert.True(t, p.Ty(grammar.Copy, grammar.NamedTy{Name: "Box", Params: []grammar.Parameter{ty}}))
	require.NoError(t, p.err)
}

func TestExistentialPredicates(t *testing.T) {
	p := testProver(t)
	en, v := p.env.FreshExistential(grammar.TypeKind, "T")
	p.env = en.WithLowerBound(v, grammar.Int())
	tv := grammar.VarTy{Var: v}

	require.True(t, p.Ty(grammar.Copy, tv))
	x, ok := p.env.Existential(v)
	require.True(t, ok)
	assert.Contains(t, x.Predicates, grammar.Copy)

	// Data cannot join Int below ?T now that ?T must be copy.
	assert.False(t, p.try(func() bool { return p.Sub(grammar.MustTy("Data", nil), tv) }))
	assert.True(t, p.Sub(grammar.Int(), tv))
	require.NoError(t, p.err)
}

func TestSubtypes(t *testing.T) {
	type example struct {
		a, b string
		want bool
	}
	for _, ex := range []example{
		{"Int", "Int", true},
		{"Data", "Int", false},
		{"given Int", "shared Int", true},
		{"Data", "shared Data", false},
		{"shared Data", "shared{d} Data", true},
		{"shared{d} Data", "shared Data", false},
		{"shared{d} Data", "shared{d} Data", true},
		{"shared{p.a} Data", "shared{p} Data", true},
		{"shared{p} Data", "shared{p.a} Data", false},
		{"leased{p.a} Data", "leased{p} Data", true},
		{"leased{d} Data", "shared{d} Data", false},
		{"shared{d} Data", "leased{d} Data", false},
		{"shared{r} Data", "shared{d} Data", true},
		{"shared{d} Int", "Int", true},
		{"leased{d} Int", "Int", false},
		{"Box[shared Data]", "Box[shared{d} Data]", true},
		{"Box[shared{d} Data]", "Box[shared Data]", false},
		{"Cell[shared Data]", "Cell[shared{d} Data]", false},
		{"Cell[shared Data]", "Cell[shared Data]", true},
		{"Box[Data]", "Foo", false},
		{"leased{q.a} Data", "leased{p.a} Data", true},
		{"shared{s.a} Data", "shared{p.a} Data", true},
		{"leased{q.a} Data", "leased{p.b} Data", false},
		{"leased{q.a} Data", "leased{q.a} Data", true},
		{"leased{p.a} Data", "leased{q.a} Data", false},
	} {
		p := testProver(t, "d: Data", "p: Pair", "r: shared{d} Data", "q: leased{p} Pair", "s: shared{p} Pair")
		got := p.Sub(grammar.MustTy(ex.a, nil), grammar.MustTy(ex.b, nil))
		require.NoError(t, p.err)
		assert.Equal(t, ex.want, got, "%s <: %s", ex.a, ex.b)
	}
}

func TestSubtypeKeepsLiveFieldAliases(t *testing.T) {
	p := testProver(t, "p: Pair", "q: leased{p} Pair")
	p.live = LiveOf(grammar.PlaceOf("q"))

	// q is still in use, so the lease of q.a cannot stand in for one of p.a
	assert.False(t, p.Sub(grammar.MustTy("leased{q.a} Data", nil), grammar.MustTy("leased{p.a} Data", nil)))
	require.NoError(t, p.err)
}

func TestSubtypeExistentials(t *testing.T) {
	p := testProver(t, "d: Data")
	en, v := p.env.FreshExistential(grammar.TypeKind, "T")
	p.env = en
	tv := grammar.VarTy{Var: v}

	require.True(t, p.Sub(grammar.Int(), tv))
	require.True(t, p.Sub(tv, grammar.Int()))
	assert.False(t, p.try(func() bool { return p.Sub(tv, grammar.MustTy("Data", nil)) }))

	x, _ := p.env.Existential(v)
	assert.Equal(t, []grammar.Parameter{grammar.Int()}, x.Lower)
	assert.Equal(t, []grammar.Parameter{grammar.Int()}, x.Upper)
}

func TestSubtypeEscape(t *testing.T) {
	p := testProver(t)
	en, v := p.env.FreshExistential(grammar.TypeKind, "T")
	binder := []grammar.BinderVar{{Kind: grammar.TypeKind, Name: "U"}}
	en, subs := en.OpenBinder(binder)
	p.env = en
	u := subs.Ty(grammar.MustTy("U", grammar.ScopeOf(binder)))

	// ?T was created before U came into scope and cannot name it.
	assert.False(t, p.Sub(u, grammar.VarTy{Var: v}))
}
