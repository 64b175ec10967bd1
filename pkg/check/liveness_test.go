package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

// body decodes the statements of a one-function program.
func body(t *testing.T, stmts string) []grammar.Stmt {
	t.Helper()
	prog, err := grammar.LoadProgram([]byte("fns:\n  - name: f\n    body:\n" + stmts))
	require.NoError(t, err)
	fn, ok := prog.Fn("f")
	require.True(t, ok)
	return fn.Body.Stmts
}

func placeStrings(ps []grammar.Place) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

func TestLivePlaces(t *testing.T) {
	live := LiveOf(grammar.MustPlace("foo.i"), grammar.MustPlace("bar"))
	assert.True(t, live.IsLive(grammar.MustPlace("foo")))
	assert.True(t, live.IsLive(grammar.MustPlace("foo.i.x")))
	assert.False(t, live.IsLive(grammar.MustPlace("foo.j")))
	assert.True(t, live.IsVarLive("foo"))
	assert.False(t, live.IsVarLive("baz"))

	assert.Equal(t, []string{"bar"}, placeStrings(live.WithoutVar("foo").Places()))
	assert.Equal(t, []string{"bar", "foo.i"}, placeStrings(live.Without(grammar.MustPlace("foo")).With(grammar.MustPlace("foo.i")).Places()))
	assert.Empty(t, NoneLive().Places())
}

func TestLivenessStatements(t *testing.T) {
	for name, ex := range map[string]struct {
		stmts string
		after []string
		want  []string
	}{
		"let kills its name": {
			stmts: `
      - let: x
        value: 1
      - give: x
`,
			want: []string{},
		},
		"uses before a rebinding": {
			stmts: `
      - give: a
      - let: a
        value: {give: b}
      - give: a
`,
			want: []string{"a", "b"},
		},
		"reassigning a variable kills it": {
			stmts: `
      - assign: x
        value: 1
      - give: x
`,
			want: []string{},
		},
		"reassigning a field does not": {
			stmts: `
      - assign: x.f
        value: 1
      - give: x
`,
			want: []string{"x"},
		},
		"both branches of an if": {
			stmts: `
      - if: {give: c}
        then: [{give: a}]
        else: [{give: b}]
`,
			want: []string{"a", "b", "c"},
		},
		"a loop keeps what its body reads": {
			stmts: `
      - loop:
          - give: a
          - break
`,
			after: []string{"b"},
			want:  []string{"a", "b"},
		},
		"a break skips the rest of the body": {
			stmts: `
      - loop:
          - break
          - give: a
`,
			want: []string{},
		},
		"call arguments after the receiver": {
			stmts: `
      - call: m
        on: {give: r}
        args: [{give: x}]
`,
			want: []string{"r", "x"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			var after []grammar.Place
			for _, p := range ex.after {
				after = append(after, grammar.MustPlace(p))
			}
			before := liveness{}.Stmts(body(t, ex.stmts), LiveOf(after...))
			assert.Equal(t, ex.want, placeStrings(before.Places()))
		})
	}
}
