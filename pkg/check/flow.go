package check

import (
	"fmt"
	"slices"
	"strings"

	set "github.com/hashicorp/go-set/v3"

	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

// Flow is the set of places that have been moved out and not yet
// reassigned. Like Env it is a value: Move, Reassign and Merge return a new
// Flow.
type Flow struct {
	moved *set.HashSet[grammar.Place, string]
}

// NewFlow returns a flow with nothing moved.
func NewFlow() Flow {
	return Flow{moved: set.NewHashSet[grammar.Place, string](0)}
}

func (f Flow) set() *set.HashSet[grammar.Place, string] {
	if f.moved == nil {
		return set.NewHashSet[grammar.Place, string](0)
	}
	return f.moved
}

// IsMoved reports whether exactly p was moved.
func (f Flow) IsMoved(p grammar.Place) bool {
	return f.moved != nil && f.moved.Contains(p)
}

// Overlapping returns the moved places that overlap p, sorted.
func (f Flow) Overlapping(p grammar.Place) []grammar.Place {
	var out []grammar.Place
	for _, m := range f.Places() {
		if m.Overlaps(p) {
			out = append(out, m)
		}
	}
	return out
}

// Move records that p was moved out. Moving a place twice without a
// reassignment in between is a bug in the checker: the caller must have
// rejected the second access already.
func (f Flow) Move(p grammar.Place) Flow {
	if f.IsMoved(p) {
		panic(fmt.Sprintf("bug: %s moved twice", p))
	}
	moved := f.set().Copy()
	moved.Insert(p)
	return Flow{moved: moved}
}

// Reassign reinitializes p and every place beneath it.
func (f Flow) Reassign(p grammar.Place) Flow {
	moved := set.NewHashSet[grammar.Place, string](f.set().Size())
	for _, m := range f.Places() {
		if !p.IsPrefixOf(m) {
			moved.Insert(m)
		}
	}
	return Flow{moved: moved}
}

// Merge joins the flows of two branches: a place moved in either one is
// moved afterwards.
func (f Flow) Merge(o Flow) Flow {
	moved := f.set().Copy()
	for _, m := range o.Places() {
		moved.Insert(m)
	}
	return Flow{moved: moved}
}

// Places returns the moved places in a stable order.
func (f Flow) Places() []grammar.Place {
	if f.moved == nil {
		return nil
	}
	ps := f.moved.Slice()
	slices.SortFunc(ps, func(a, b grammar.Place) int {
		return strings.Compare(a.String(), b.String())
	})
	return ps
}

// Key identifies the flow for deduplicating outcomes.
func (f Flow) Key() string {
	ps := f.Places()
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (f Flow) String() string {
	return "moved" + f.Key()
}
