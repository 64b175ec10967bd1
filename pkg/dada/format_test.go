package dada

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"

	"github.com/dada-lang/dada-model-sub000/pkg/check"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// sampleDiagnostics has one declaration with a branching derivation and one
// that stopped at an unknown name.
func sampleDiagnostics() *check.Diagnostics {
	return &check.Diagnostics{Decls: []*judge.Failure{
		{
			Judgment: "check-class",
			Input:    "Main",
			Causes: []*judge.Failure{
				judge.Because("method main", &judge.Failure{
					Judgment: "give-place",
					Input:    "foo.i",
					Causes: []*judge.Failure{
						judge.Because("copy", judge.Leaf(judge.PredicateFailure, "copy(Data) does not hold")),
						judge.Because("move", &judge.Failure{Causes: []*judge.Failure{
							judge.Leaf(judge.AccessViolation, "foo.i is used after foo.i was moved"),
						}}),
						judge.Because("move again", judge.Leaf(judge.AccessViolation, "foo.i is used after foo.i was moved")),
						judge.Because("other", judge.Mismatch("not a field")),
					},
				}),
			},
		},
		{
			Judgment: "check-fn",
			Input:    "helper",
			Causes: []*judge.Failure{
				judge.Because("let", judge.Mismatch("expected a value")),
				judge.Leaf(judge.UnknownName, "no class named Nope"),
			},
		},
	}}
}

func render(t *testing.T, r Renderer, diags *check.Diagnostics) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "program.yaml", diags))
	return buf.String()
}

func TestRenderTree(t *testing.T) {
	golden.Assert(t, render(t, Renderer{}, sampleDiagnostics()), "tree.golden")
}

func TestRenderDedupe(t *testing.T) {
	golden.Assert(t, render(t, Renderer{Dedupe: true}, sampleDiagnostics()), "dedupe.golden")
}

func TestRenderOnlyMismatches(t *testing.T) {
	diags := &check.Diagnostics{Decls: []*judge.Failure{{
		Judgment: "check-fn",
		Input:    "f",
		Causes: []*judge.Failure{
			judge.Mismatch("no rule applies"),
			judge.Mismatch("no rule applies"),
		},
	}}}
	assert.Equal(t, `program.yaml: 1 declaration failed to check

f:
  no match: no rule applies
`, render(t, Renderer{Dedupe: true}, diags))
}

func TestRenderColor(t *testing.T) {
	for _, dedupe := range []bool{false, true} {
		plain := render(t, Renderer{Dedupe: dedupe}, sampleDiagnostics())
		colored := render(t, Renderer{Dedupe: dedupe, Color: true}, sampleDiagnostics())
		assert.Equal(t, plain, ansi.Strip(colored))
	}
}

func TestRenderWidth(t *testing.T) {
	out := render(t, Renderer{Width: 24}, sampleDiagnostics())
	for _, line := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(line), 24, line)
	}
	assert.Contains(t, out, "…")
}
