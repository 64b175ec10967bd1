package check_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/dagger/testctx"
	"github.com/dagger/testctx/oteltest"
	"github.com/stretchr/testify/require"

	"github.com/dada-lang/dada-model-sub000/pkg/check"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

func TestMain(m *testing.M) {
	os.Exit(oteltest.Main(m))
}

type CheckSuite struct{}

func TestCheck(tT *testing.T) {
	testctx.New(tT,
		oteltest.WithTracing[*testing.T](),
		oteltest.WithLogging[*testing.T](),
	).RunTests(CheckSuite{})
}

// classes shared by most programs below.
const prelude = `
classes:
  - name: Data
  - name: Foo
    fields:
      - {name: i, type: Data}
`

func program(body string) *grammar.Program {
	return grammar.MustLoadProgram(prelude + body)
}

// mainBody wraps statements into Main.main.
func mainBody(output, stmts string) *grammar.Program {
	src := `
  - name: Main
    methods:
      - name: main
`
	if output != "" {
		src += "        output: " + output + "\n"
	}
	src += "        body:\n" + stmts
	return program(src)
}

func diagnostics(t require.TestingT, err error) *check.Diagnostics {
	require.Error(t, err)
	var diags *check.Diagnostics
	require.True(t, errors.As(err, &diags), "expected diagnostics, got %v", err)
	return diags
}

func (CheckSuite) TestIntegerReturn(ctx context.Context, t *testctx.T) {
	prog := mainBody("Int", `
          - 22
`)
	require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
}

func (CheckSuite) TestGiveFieldTwice(ctx context.Context, t *testctx.T) {
	prog := mainBody("", `
          - let: foo
            value: {new: Foo, args: [{new: Data}]}
          - give: foo.i
          - give: foo.i
`)
	diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
	require.True(t, diags.Has(judge.AccessViolation))
	require.Len(t, diags.Decls, 1)
	require.Equal(t, "Main", diags.Decls[0].Input)

	var messages []string
	for _, l := range diags.Leaves() {
		messages = append(messages, l.Message)
	}
	require.Contains(t, messages, "foo.i is used after foo.i was moved")
}

func (CheckSuite) TestGiveFieldOnceThenReturn(ctx context.Context, t *testctx.T) {
	prog := mainBody("Data", `
          - let: foo
            value: {new: Foo, args: [{new: Data}]}
          - give: foo.i
`)
	require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
}

func (CheckSuite) TestSharedAliasIsCopy(ctx context.Context, t *testctx.T) {
	prog := mainBody("", `
          - let: foo
            value: {new: Foo, args: [{new: Data}]}
          - let: bar
            value: {ref: foo}
          - give: bar
          - give: bar
`)
	require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
}

func (CheckSuite) TestLeasedAliasMoves(ctx context.Context, t *testctx.T) {
	prog := mainBody("", `
          - let: foo
            value: {new: Foo, args: [{new: Data}]}
          - let: bar
            value: {mut: foo}
          - give: bar
          - give: bar
`)
	diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
	require.True(t, diags.Has(judge.AccessViolation))
}

func (CheckSuite) TestIdempotent(ctx context.Context, t *testctx.T) {
	for _, prog := range []*grammar.Program{
		mainBody("Int", "          - 22\n"),
		mainBody("", `
          - let: foo
            value: {new: Foo, args: [{new: Data}]}
          - give: foo.i
          - give: foo.i
`),
	} {
		first := check.CheckProgram(ctx, prog, check.Options{})
		second := check.CheckProgram(ctx, prog, check.Options{Workers: 1})
		if first == nil {
			require.NoError(t, second)
			continue
		}
		require.Error(t, second)
		require.Equal(t, first.Error(), second.Error())
	}
}

func (CheckSuite) TestCopyValuesGiveTwice(ctx context.Context, t *testctx.T) {
	prog := mainBody("Int", `
          - let: x
            value: 1
          - give: x
          - add: [{give: x}, {give: x}]
`)
	require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
}

func (CheckSuite) TestDeadGiveDoesNotMove(ctx context.Context, t *testctx.T) {
	prog := mainBody("Data", `
          - let: foo
            value: {new: Foo, args: [{new: Data}]}
          - let: bar
            value: {ref: foo}
          - give: foo.i
`)
	// bar is dead by the time foo.i is given, so its lien is ignored.
	require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
}

func (CheckSuite) TestLiveShareBlocks(ctx context.Context, t *testctx.T) {
	for name, access := range map[string]string{
		"lease":         "{mut: foo}",
		"drop":          "{drop: foo}",
		"give a field":  "{give: foo.i}",
		"lease a field": "{mut: foo.i}",
	} {
		t.Run(name, func(ctx context.Context, t *testctx.T) {
			prog := mainBody("", `
          - let: foo
            value: {new: Foo, args: [{new: Data}]}
          - let: bar
            value: {ref: foo}
          - `+access+`
          - give: bar
`)
			diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
			require.True(t, diags.Has(judge.AccessViolation))
		})
	}
}

func (CheckSuite) TestShareAlongsideShare(ctx context.Context, t *testctx.T) {
	prog := mainBody("", `
          - let: foo
            value: {new: Foo, args: [{new: Data}]}
          - let: bar
            value: {ref: foo}
          - let: baz
            value: {ref: foo.i}
          - give: bar
          - give: baz
`)
	require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
}

func (CheckSuite) TestLiveLeaseBlocksShare(ctx context.Context, t *testctx.T) {
	prog := mainBody("", `
          - let: foo
            value: {new: Foo, args: [{new: Data}]}
          - let: bar
            value: {mut: foo}
          - ref: foo.i
          - give: bar
`)
	diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
	require.True(t, diags.Has(judge.AccessViolation))
}

func (CheckSuite) TestMoveInBranchPoisonsLaterUse(ctx context.Context, t *testctx.T) {
	prog := mainBody("", `
          - let: x
            value: {new: Data}
          - if: 1
            then: [{give: x}]
          - give: x
`)
	diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
	require.True(t, diags.Has(judge.AccessViolation))
}

func (CheckSuite) TestReassignAfterMove(ctx context.Context, t *testctx.T) {
	prog := mainBody("Data", `
          - let: x
            value: {new: Data}
          - let: y
            value: {give: x}
          - assign: x
            value: {new: Data}
          - drop: y
          - give: x
`)
	require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
}

func (CheckSuite) TestReassignReborrows(ctx context.Context, t *testctx.T) {
	prog := mainBody("", `
          - let: d
            value: {new: Data}
          - let: p
            type: "leased{d} Data"
            value: {mut: d}
          - assign: p
            value: {mut: d}
          - give: p
`)
	require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
}

func (CheckSuite) TestMoveInsideLoop(ctx context.Context, t *testctx.T) {
	t.Run("every iteration", func(ctx context.Context, t *testctx.T) {
		prog := mainBody("", `
          - let: x
            value: {new: Data}
          - loop:
              - give: x
`)
		diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
		require.True(t, diags.Has(judge.AccessViolation))
	})
	t.Run("then break", func(ctx context.Context, t *testctx.T) {
		prog := mainBody("", `
          - let: x
            value: {new: Data}
          - loop:
              - give: x
              - break
`)
		require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
	})
}

func (CheckSuite) TestReturnTypeMismatch(ctx context.Context, t *testctx.T) {
	prog := mainBody("Int", `
          - new: Data
`)
	diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
	require.True(t, diags.Has(judge.SubtypeFailure))
}

func (CheckSuite) TestUnknownNames(ctx context.Context, t *testctx.T) {
	for name, stmt := range map[string]string{
		"variable": "{give: nope}",
		"field":    "{give: self.nope}",
		"class":    "{new: Nope}",
		"function": "{fn: nope}",
		"method":   "{call: nope, on: {give: self}}",
	} {
		t.Run(name, func(ctx context.Context, t *testctx.T) {
			prog := mainBody("", "          - "+stmt+"\n")
			diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
			require.True(t, diags.Has(judge.UnknownName))
		})
	}
}

func (CheckSuite) TestLocalsEndWithTheirBlock(ctx context.Context, t *testctx.T) {
	for name, stmts := range map[string]string{
		"after the block": `
          - block:
              - let: y
                value: {new: Data}
              - 0
          - give: y
`,
		"else branch": `
          - if: 1
            then:
              - let: y
                value: {new: Data}
              - 0
            else:
              - give: y
              - 0
`,
	} {
		t.Run(name, func(ctx context.Context, t *testctx.T) {
			diags := diagnostics(t, check.CheckProgram(ctx, mainBody("", stmts), check.Options{}))
			require.True(t, diags.Has(judge.UnknownName))
			var messages []string
			for _, l := range diags.Leaves() {
				messages = append(messages, l.Message)
			}
			require.Contains(t, messages, "no variable named y")
		})
	}
}

func (CheckSuite) TestShadowedLocalsKeepTheirOwnPlace(ctx context.Context, t *testctx.T) {
	t.Run("lien on the shadowed local", func(ctx context.Context, t *testctx.T) {
		prog := mainBody("", `
          - let: x
            value: {new: Data}
          - let: y
            value: {ref: x}
          - let: x
            value: {new: Data}
          - mut: x
          - give: y
`)
		require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
	})
	t.Run("same local", func(ctx context.Context, t *testctx.T) {
		prog := mainBody("", `
          - let: x
            value: {new: Data}
          - let: y
            value: {ref: x}
          - mut: x
          - give: y
`)
		diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
		require.True(t, diags.Has(judge.AccessViolation))
	})
	t.Run("move in an inner block", func(ctx context.Context, t *testctx.T) {
		prog := mainBody("", `
          - let: x
            value: {new: Data}
          - block:
              - let: x
                value: {new: Data}
              - give: x
          - give: x
`)
		require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
	})
}

func (CheckSuite) TestMalformed(ctx context.Context, t *testctx.T) {
	for name, stmt := range map[string]string{
		"generic arity":  `{new: "Data[Int]"}`,
		"field count":    `{new: Foo}`,
		"builtin params": `{let: x, type: "Int[Data]", value: 1}`,
	} {
		t.Run(name, func(ctx context.Context, t *testctx.T) {
			prog := mainBody("", "          - "+stmt+"\n")
			diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
			require.True(t, diags.Has(judge.Malformed))
		})
	}
}

func (CheckSuite) TestSearchExhausted(ctx context.Context, t *testctx.T) {
	prog := mainBody("", `
          - let: foo
            value: {new: Foo, args: [{new: Data}]}
          - give: foo.i
`)
	err := check.CheckProgram(ctx, prog, check.Options{Budget: judge.Budget{Fuel: 3}})
	diags := diagnostics(t, err)
	require.True(t, diags.Has(judge.SearchExhausted))
}

func (CheckSuite) TestCanceled(ctx context.Context, t *testctx.T) {
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	prog := mainBody("Int", "          - 22\n")
	diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
	require.True(t, diags.Has(judge.SearchExhausted))
}

func (CheckSuite) TestMethodOnSharedReceiver(ctx context.Context, t *testctx.T) {
	prog := grammar.MustLoadProgram(`
classes:
  - name: Counter
    fields:
      - {name: n, type: Int}
    methods:
      - name: get
        generics: [perm P]
        self: P
        where: [shared(P)]
        output: P Int
        body:
          - give: self.n
  - name: Main
    methods:
      - name: main
        output: Int
        body:
          - let: c
            value: {new: Counter, args: [1]}
          - call: get
            on: {ref: c}
`)
	require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
}

func (CheckSuite) TestMethodWhereClauseUnmet(ctx context.Context, t *testctx.T) {
	prog := grammar.MustLoadProgram(prelude + `
  - name: Box
    fields:
      - {name: d, type: Data}
    methods:
      - name: peek
        generics: [perm P]
        self: P
        where: [shared(P)]
  - name: Main
    methods:
      - name: main
        body:
          - let: b
            value: {new: Box, args: [{new: Data}]}
          - call: peek
            on: {mut: b}
`)
	diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
	require.True(t, diags.Has(judge.PredicateFailure))
}

func (CheckSuite) TestFieldWrites(ctx context.Context, t *testctx.T) {
	prog := grammar.MustLoadProgram(`
classes:
  - name: Cell
    fields:
      - {name: plain, type: Int}
      - {name: count, type: Int, atomic: true}
    methods:
      - name: bump
        generics: [perm P]
        self: P
        where: [shared(P)]
        body:
          - assign: self.count
            value: 1
      - name: poke
        generics: [perm P]
        self: P
        where: [shared(P)]
        body:
          - assign: self.plain
            value: 1
`)
	diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
	require.True(t, diags.Has(judge.PredicateFailure))

	// Only poke fails: writing an atomic field through a shared self is
	// allowed.
	require.Len(t, diags.Decls, 1)
	var rules []string
	for _, c := range diags.Decls[0].Causes {
		rules = append(rules, c.Rule)
	}
	require.Equal(t, []string{"method poke"}, rules)
}

func (CheckSuite) TestGenericFunctionInference(ctx context.Context, t *testctx.T) {
	prog := grammar.MustLoadProgram(prelude + `
fns:
  - name: id
    generics: [type T]
    inputs:
      - {name: x, type: T}
    output: T
    body:
      - give: x
  - name: main
    output: Int
    body:
      - fn: id
        args: [1]
  - name: wrap
    output: Foo
    body:
      - new: Foo
        args: [{fn: id, args: [{new: Data}]}]
`)
	require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
}

func (CheckSuite) TestExplicitGenerics(ctx context.Context, t *testctx.T) {
	prog := grammar.MustLoadProgram(prelude + `
  - name: Pair
    generics: [type A, type B]
    fields:
      - {name: a, type: A}
      - {name: b, type: B}
fns:
  - name: main
    output: "Pair[Int, Data]"
    body:
      - new: "Pair[Int, Data]"
        args: [1, {new: Data}]
  - name: wrong
    body:
      - new: "Pair[Data, Int]"
        args: [1, {new: Data}]
`)
	diags := diagnostics(t, check.CheckProgram(ctx, prog, check.Options{}))
	require.Len(t, diags.Decls, 1)
	require.Equal(t, "wrong", diags.Decls[0].Input)
	require.True(t, diags.Has(judge.SubtypeFailure))
}

func (CheckSuite) TestTrustedBodies(ctx context.Context, t *testctx.T) {
	prog := grammar.MustLoadProgram(prelude + `
fns:
  - name: conjure
    output: Data
    body: trusted
  - name: main
    output: Data
    body:
      - fn: conjure
`)
	require.NoError(t, check.CheckProgram(ctx, prog, check.Options{}))
}

func (CheckSuite) TestIsCopy(ctx context.Context, t *testctx.T) {
	prog := grammar.MustLoadProgram(prelude + `
  - name: Point
    value: true
    fields:
      - {name: x, type: Int}
`)
	for src, want := range map[string]bool{
		"Int":         true,
		"()":          true,
		"Data":        false,
		"Point":       true,
		"shared Data": true,
		"shared Foo":  true,
	} {
		require.Equal(t, want, check.IsCopy(prog, grammar.MustTy(src, nil)), src)
	}
}
