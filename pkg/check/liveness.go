package check

import (
	"slices"
	"strings"

	set "github.com/hashicorp/go-set/v3"

	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

// LivePlaces is the set of places that may be read after a program point.
// A place is live if any live place overlaps it: reading foo reads foo.i,
// and reading foo.i requires foo to be initialized.
type LivePlaces struct {
	places *set.HashSet[grammar.Place, string]
}

// NoneLive is the liveness at the end of a body.
func NoneLive() LivePlaces {
	return LivePlaces{places: set.NewHashSet[grammar.Place, string](0)}
}

// LiveOf builds a liveness set from places.
func LiveOf(ps ...grammar.Place) LivePlaces {
	return NoneLive().With(ps...)
}

func (l LivePlaces) set() *set.HashSet[grammar.Place, string] {
	if l.places == nil {
		return set.NewHashSet[grammar.Place, string](0)
	}
	return l.places
}

// IsLive reports whether p may be read later.
func (l LivePlaces) IsLive(p grammar.Place) bool {
	for _, q := range l.set().Slice() {
		if q.Overlaps(p) {
			return true
		}
	}
	return false
}

// IsVarLive reports whether any place rooted at name may be read later.
func (l LivePlaces) IsVarLive(name string) bool {
	for _, q := range l.set().Slice() {
		if q.Var == name {
			return true
		}
	}
	return false
}

// With adds places.
func (l LivePlaces) With(ps ...grammar.Place) LivePlaces {
	out := l.set().Copy()
	for _, p := range ps {
		out.Insert(p)
	}
	return LivePlaces{places: out}
}

// Without removes exactly p.
func (l LivePlaces) Without(p grammar.Place) LivePlaces {
	out := l.set().Copy()
	out.Remove(p)
	return LivePlaces{places: out}
}

// WithoutVar removes every place rooted at name.
func (l LivePlaces) WithoutVar(name string) LivePlaces {
	out := set.NewHashSet[grammar.Place, string](l.set().Size())
	for _, q := range l.set().Slice() {
		if q.Var != name {
			out.Insert(q)
		}
	}
	return LivePlaces{places: out}
}

// Union joins the liveness of two branches.
func (l LivePlaces) Union(o LivePlaces) LivePlaces {
	return l.With(o.set().Slice()...)
}

// Places returns the live places in a stable order.
func (l LivePlaces) Places() []grammar.Place {
	ps := l.set().Slice()
	slices.SortFunc(ps, func(a, b grammar.Place) int {
		return strings.Compare(a.String(), b.String())
	})
	return ps
}

func (l LivePlaces) String() string {
	ps := l.Places()
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return "live{" + strings.Join(parts, ", ") + "}"
}

// liveness computes live-before sets by a backward walk of the syntax.
// brk is the live-after set of the innermost enclosing loop.
type liveness struct {
	brk LivePlaces
}

// Before returns the places live before e given those live after it.
func (lv liveness) Before(e grammar.Expr, after LivePlaces) LivePlaces {
	switch e := e.(type) {
	case grammar.IntegerExpr:
		return after
	case grammar.AddExpr:
		return lv.Exprs([]grammar.Expr{e.Left, e.Right}, after)
	case grammar.PlaceExpr:
		return after.With(e.Place)
	case grammar.NewExpr:
		return lv.Exprs(e.Args, after)
	case grammar.CallExpr:
		return lv.Exprs(append([]grammar.Expr{e.Receiver}, e.Args...), after)
	case grammar.FnCallExpr:
		return lv.Exprs(e.Args, after)
	case grammar.IfExpr:
		then := lv.Before(e.Then, after)
		els := lv.Before(e.Else, after)
		return lv.Before(e.Cond, then.Union(els))
	case grammar.BlockExpr:
		return lv.Block(e.Block, after)
	}
	return after
}

// Exprs is the live-before set of expressions evaluated left to right.
func (lv liveness) Exprs(es []grammar.Expr, after LivePlaces) LivePlaces {
	for i := len(es) - 1; i >= 0; i-- {
		after = lv.Before(es[i], after)
	}
	return after
}

// Block is the live-before set of a block.
func (lv liveness) Block(b *grammar.Block, after LivePlaces) LivePlaces {
	if b == nil {
		return after
	}
	return lv.Stmts(b.Stmts, after)
}

// Stmts is the live-before set of a statement sequence.
func (lv liveness) Stmts(stmts []grammar.Stmt, after LivePlaces) LivePlaces {
	for i := len(stmts) - 1; i >= 0; i-- {
		after = lv.Stmt(stmts[i], after)
	}
	return after
}

// Stmt is the live-before set of one statement.
func (lv liveness) Stmt(s grammar.Stmt, after LivePlaces) LivePlaces {
	switch s := s.(type) {
	case grammar.ExprStmt:
		return lv.Before(s.Expr, after)
	case grammar.PrintStmt:
		return lv.Before(s.Expr, after)
	case grammar.LetStmt:
		return lv.Before(s.Init, after.WithoutVar(s.Name))
	case grammar.ReassignStmt:
		return lv.Before(s.Expr, overwritten(s.Place, after))
	case grammar.LoopStmt:
		return lv.loopHead(s, after)
	case grammar.BreakStmt:
		return lv.brk
	}
	return after
}

// loopHead is the live set at the top of a loop body. The back edge makes
// whatever is live at the head live at the end of the body, so a second
// pass over the body starts from the union of both.
func (lv liveness) loopHead(s grammar.LoopStmt, after LivePlaces) LivePlaces {
	inner := liveness{brk: after}
	first := inner.Block(s.Body, after)
	return inner.Block(s.Body, after.Union(first))
}

// overwritten is what is live while the value for `place = ...` is computed.
// Assigning a whole local ends its old value; assigning a field does not.
func overwritten(place grammar.Place, after LivePlaces) LivePlaces {
	if len(place.Fields) == 0 {
		return after.Without(place)
	}
	return after
}
