package judge

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type num int

func (n num) Key() string { return strconv.Itoa(int(n)) }

func search() *Search {
	return NewSearch(context.Background(), Budget{})
}

func TestEitherUnionsAndDeduplicates(t *testing.T) {
	s := search()
	out, err := Either(s, "pick", "x",
		Rule[num]{Name: "a", Run: func() ([]num, error) { return []num{1, 2}, nil }},
		Rule[num]{Name: "b", Run: func() ([]num, error) { return nil, Mismatch("nope") }},
		Rule[num]{Name: "c", Run: func() ([]num, error) { return []num{2, 3}, nil }},
	)
	require.NoError(t, err)
	assert.Equal(t, []num{1, 2, 3}, out)
}

func TestEitherReportsEveryRule(t *testing.T) {
	s := search()
	_, err := Either(s, "pick", "x",
		Rule[num]{Name: "a", Run: func() ([]num, error) { return nil, Leaf(PredicateFailure, "copy(Data) does not hold") }},
		Rule[num]{Name: "b", Run: func() ([]num, error) { return nil, Leaf(AccessViolation, "x was moved") }},
	)
	require.Error(t, err)
	f := AsFailure(err)
	assert.Equal(t, "pick", f.Judgment)
	assert.Len(t, f.Causes, 2)
	assert.Equal(t, "a", f.Causes[0].Rule)
	assert.Equal(t, []Kind{PredicateFailure, AccessViolation}, f.Kinds())
	assert.False(t, f.IsFatal())
	assert.Equal(t, `pick(x) failed (2 reasons)
  predicate failure: copy(Data) does not hold
  access violation: x was moved`, f.Error())
}

func TestEitherStopsAtFatal(t *testing.T) {
	s := search()
	ran := false
	_, err := Either(s, "pick", "x",
		Rule[num]{Name: "a", Run: func() ([]num, error) { return nil, Leaf(UnknownName, "no class named Nope") }},
		Rule[num]{Name: "b", Run: func() ([]num, error) { ran = true; return []num{1}, nil }},
	)
	require.Error(t, err)
	assert.False(t, ran)
	assert.True(t, AsFailure(err).IsFatal())
	assert.True(t, AsFailure(err).Has(UnknownName))
}

func TestFlatMap(t *testing.T) {
	s := search()
	out, err := FlatMap(s, []int{1, 2, 3}, func(i int) ([]num, error) {
		if i == 2 {
			return nil, Mismatch("even")
		}
		return []num{num(i), num(i * 10)}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []num{1, 10, 3, 30}, out)

	_, err = FlatMap(s, []int{1}, func(int) ([]num, error) {
		return nil, Leaf(SubtypeFailure, "Data is not a subtype of Int")
	})
	require.Error(t, err)
	assert.Equal(t, "subtype failure: Data is not a subtype of Int", err.Error())

	_, err = FlatMap(s, nil, func(int) ([]num, error) { return One(num(1)) })
	require.Error(t, err)
	assert.True(t, AsFailure(err).Has(ShapeMismatch))
}

func TestFuel(t *testing.T) {
	s := NewSearch(context.Background(), Budget{Fuel: 2})
	var loop func(n int) ([]num, error)
	loop = func(n int) ([]num, error) {
		return Single(s, "loop", strconv.Itoa(n), func() ([]num, error) { return loop(n + 1) })
	}
	_, err := loop(0)
	require.Error(t, err)
	f := AsFailure(err)
	assert.True(t, f.Has(SearchExhausted))
	assert.True(t, f.IsFatal())
	assert.Equal(t, 3, s.Steps)
}

func TestMaxDepth(t *testing.T) {
	s := NewSearch(context.Background(), Budget{MaxDepth: 5})
	var loop func(n int) ([]num, error)
	loop = func(n int) ([]num, error) {
		return Single(s, "loop", strconv.Itoa(n), func() ([]num, error) { return loop(n + 1) })
	}
	_, err := loop(0)
	require.Error(t, err)
	var messages []string
	for _, l := range AsFailure(err).Leaves() {
		messages = append(messages, l.Message)
	}
	assert.Equal(t, []string{"exceeded max depth"}, messages)
}

func TestMaxOutcomes(t *testing.T) {
	s := NewSearch(context.Background(), Budget{MaxOutcomes: 2})
	_, err := Single(s, "many", "", func() ([]num, error) { return []num{1, 2, 3}, nil })
	require.Error(t, err)
	assert.True(t, AsFailure(err).Has(SearchExhausted))
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSearch(ctx, Budget{})
	_, err := Single(s, "anything", "", func() ([]num, error) { return One(num(1)) })
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.ErrorIs(t, s.Err(), context.Canceled)
}

func TestNest(t *testing.T) {
	s := NewSearch(context.Background(), Budget{MaxDepth: 1})
	leave, err := s.Nest("outer")
	require.NoError(t, err)
	_, err = s.Nest("inner")
	require.Error(t, err)
	leave()
	leave, err = s.Nest("again")
	require.NoError(t, err)
	leave()
}

func TestAsFailure(t *testing.T) {
	assert.Nil(t, AsFailure(nil))
	f := AsFailure(errors.New("boom"))
	assert.Equal(t, SearchExhausted, f.Kind)
	assert.True(t, f.IsFatal())

	wrapped := Because("rule", Leaf(Malformed, "bad"))
	assert.Equal(t, `rule "rule"`, wrapped.Describe())
	assert.Equal(t, "malformed: bad", wrapped.Error())
	assert.True(t, wrapped.Has(Malformed))
}
