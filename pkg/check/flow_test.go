package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

func TestFlow(t *testing.T) {
	foo := grammar.MustPlace("foo")
	fooI := grammar.MustPlace("foo.i")
	bar := grammar.MustPlace("bar")

	f := NewFlow().Move(fooI)
	assert.True(t, f.IsMoved(fooI))
	assert.False(t, f.IsMoved(foo))
	assert.Equal(t, []string{"foo.i"}, placeStrings(f.Overlapping(foo)))
	assert.Empty(t, f.Overlapping(bar))
	assert.Equal(t, "moved{foo.i}", f.String())

	// values: the original flow is untouched
	g := f.Move(bar)
	assert.Equal(t, "{foo.i}", f.Key())
	assert.Equal(t, "{bar, foo.i}", g.Key())

	assert.Equal(t, "{bar}", g.Reassign(foo).Key())
	assert.Equal(t, "{bar, foo.i}", g.Reassign(grammar.MustPlace("foo.j")).Key())

	merged := NewFlow().Move(bar).Merge(NewFlow().Move(fooI))
	assert.Equal(t, "{bar, foo.i}", merged.Key())
}

func TestFlowDoubleMove(t *testing.T) {
	f := NewFlow().Move(grammar.MustPlace("x"))
	require.Panics(t, func() {
		f.Move(grammar.MustPlace("x"))
	})
}

func TestFlowZeroValue(t *testing.T) {
	var f Flow
	assert.False(t, f.IsMoved(grammar.MustPlace("x")))
	assert.Empty(t, f.Places())
	assert.Equal(t, "{x}", f.Move(grammar.MustPlace("x")).Key())
}
