package check

import (
	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// typeStmts checks statements in order. The type of the outcome is that of
// the last statement: an expression statement has the type of its
// expression, every other statement has type ().
func (c *checker) typeStmts(st state, live LivePlaces, lv liveness, stmts []grammar.Stmt) ([]typed, error) {
	outs := []typed{{state: st, ty: grammar.Unit()}}
	for i, s := range stmts {
		after := lv.Stmts(stmts[i+1:], live)
		var err error
		outs, err = judge.FlatMap(c.s, outs, func(o typed) ([]typed, error) {
			return c.typeStmt(o.state, after, lv, s)
		})
		if err != nil {
			return nil, err
		}
	}
	return outs, nil
}

func (c *checker) typeStmt(st state, live LivePlaces, lv liveness, s grammar.Stmt) ([]typed, error) {
	var rule judge.Rule[typed]
	switch s := s.(type) {
	case grammar.ExprStmt:
		rule = judge.Rule[typed]{Name: "expr", Run: func() ([]typed, error) {
			return c.typeExpr(st, live, lv, s.Expr)
		}}
	case grammar.PrintStmt:
		rule = judge.Rule[typed]{Name: "print", Run: func() ([]typed, error) {
			return c.unit(c.typeExpr(st, live, lv, s.Expr))
		}}
	case grammar.LetStmt:
		rule = judge.Rule[typed]{Name: "let", Run: func() ([]typed, error) {
			return c.typeLet(st, live, lv, s)
		}}
	case grammar.ReassignStmt:
		rule = judge.Rule[typed]{Name: "reassign", Run: func() ([]typed, error) {
			return c.typeReassign(st, live, lv, s)
		}}
	case grammar.LoopStmt:
		rule = judge.Rule[typed]{Name: "loop", Run: func() ([]typed, error) {
			return c.typeLoop(st, live, lv, s)
		}}
	case grammar.BreakStmt:
		// The statements after a break are checked as if it fell through;
		// their moves only make the loop's outgoing flow larger.
		rule = judge.Rule[typed]{Name: "break", Run: func() ([]typed, error) {
			return judge.One(typed{state: st, ty: grammar.Unit()})
		}}
	default:
		return nil, judge.Leaf(judge.Malformed, "unsupported statement %T", s)
	}
	return judge.Either(c.s, "type-stmt", s.String(), rule)
}

func (c *checker) unit(outs []typed, err error) ([]typed, error) {
	if err != nil {
		return nil, err
	}
	return judge.FlatMap(c.s, outs, func(o typed) ([]typed, error) {
		return judge.One(typed{state: o.state, ty: grammar.Unit()})
	})
}

func (c *checker) typeLet(st state, live LivePlaces, lv liveness, s grammar.LetStmt) ([]typed, error) {
	initLive := live.WithoutVar(s.Name)
	vals, err := c.typeExpr(st, initLive, lv, s.Init)
	if err != nil {
		return nil, err
	}
	return judge.FlatMap(c.s, vals, func(v typed) ([]typed, error) {
		en, ty := v.env, v.ty
		if s.Ty != nil {
			ty = c.subs.Ty(s.Ty)
			if err := wfTy(en, ty); err != nil {
				return nil, err
			}
			var err error
			en, err = c.sub(en, initLive, v.ty, ty)
			if err != nil {
				return nil, err
			}
		}
		name := grammar.Place{Var: s.Name}
		return judge.One(typed{
			state: state{env: en.PushLocal(s.Name, ty), flow: v.flow.Reassign(name)},
			ty:    grammar.Unit(),
		})
	})
}

// typeReassign checks `place = expr`. The new value must fit the declared
// type of the place, nothing live may alias the place, and writing a field
// needs a mutable owner unless the field is atomic.
func (c *checker) typeReassign(st state, live LivePlaces, lv liveness, s grammar.ReassignStmt) ([]typed, error) {
	valueLive := overwritten(s.Place, live)
	vals, err := c.typeExpr(st, valueLive, lv, s.Expr)
	if err != nil {
		return nil, err
	}
	return judge.FlatMap(c.s, vals, func(v typed) ([]typed, error) {
		placeTy, err := placeType(v.env, s.Place)
		if err != nil {
			return nil, err
		}
		en, err := c.sub(v.env, valueLive, v.ty, placeTy)
		if err != nil {
			return nil, err
		}
		if owner, ok := s.Place.Owner(); ok {
			for _, m := range v.flow.Places() {
				if m.IsPrefixOf(owner) {
					return nil, judge.Leaf(judge.AccessViolation, "cannot assign to %s: %s was moved", s.Place, m)
				}
			}
			atomic, err := isAtomicField(en, s.Place)
			if err != nil {
				return nil, err
			}
			if !atomic {
				ownerTy, err := placeType(en, owner)
				if err != nil {
					return nil, err
				}
				en, err = c.proveTy(en, live, grammar.Mutable, ownerTy)
				if err != nil {
					return nil, judge.Because("mutable-owner", err)
				}
			}
		}
		if err := c.accessPermitted(en, live, grammar.Lease, s.Place); err != nil {
			return nil, err
		}
		return judge.One(typed{state: state{env: en, flow: v.flow.Reassign(s.Place)}, ty: grammar.Unit()})
	})
}

func isAtomicField(en env.Env, place grammar.Place) (bool, error) {
	owner, _ := place.Owner()
	field, _ := place.LastField()
	ownerTy, err := placeType(en, owner)
	if err != nil {
		return false, err
	}
	_, base := grammar.Split(ownerTy)
	named, ok := base.(grammar.NamedTy)
	if !ok {
		return false, nil
	}
	_, decl, err := classField(en, named, field)
	if err != nil {
		return false, err
	}
	return decl.Atomic, nil
}

// typeLoop checks the body twice: the second pass starts with the moves of
// the first, as the back edge would.
func (c *checker) typeLoop(st state, live LivePlaces, lv liveness, s grammar.LoopStmt) ([]typed, error) {
	head := lv.Stmt(s, live)
	inner := liveness{brk: live}
	bodyLive := live.Union(head)
	first, err := c.typeBlock(st, bodyLive, inner, s.Body)
	if err != nil {
		return nil, err
	}
	return judge.FlatMap(c.s, first, func(o1 typed) ([]typed, error) {
		second, err := c.typeBlock(state{env: o1.env, flow: st.flow.Merge(o1.flow)}, bodyLive, inner, s.Body)
		if err != nil {
			return nil, err
		}
		return judge.FlatMap(c.s, second, func(o2 typed) ([]typed, error) {
			return judge.One(typed{state: state{env: o2.env, flow: o2.flow.Merge(o1.flow)}, ty: grammar.Unit()})
		})
	})
}
