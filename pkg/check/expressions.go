package check

import (
	"slices"
	"strings"

	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// typeExpr types e. live is the set of places live after e; lv computes the
// liveness of subexpressions.
func (c *checker) typeExpr(st state, live LivePlaces, lv liveness, e grammar.Expr) ([]typed, error) {
	var rule judge.Rule[typed]
	switch e := e.(type) {
	case grammar.IntegerExpr:
		rule = judge.Rule[typed]{Name: "integer", Run: func() ([]typed, error) {
			return judge.One(typed{state: st, ty: grammar.Int()})
		}}
	case grammar.AddExpr:
		rule = judge.Rule[typed]{Name: "add", Run: func() ([]typed, error) {
			return c.typeAdd(st, live, lv, e)
		}}
	case grammar.PlaceExpr:
		rule = judge.Rule[typed]{Name: "place", Run: func() ([]typed, error) {
			return c.typePlace(st, live, e)
		}}
	case grammar.NewExpr:
		rule = judge.Rule[typed]{Name: "new", Run: func() ([]typed, error) {
			return c.typeNew(st, live, lv, e)
		}}
	case grammar.CallExpr:
		rule = judge.Rule[typed]{Name: "call", Run: func() ([]typed, error) {
			return c.typeCall(st, live, lv, e)
		}}
	case grammar.FnCallExpr:
		rule = judge.Rule[typed]{Name: "fn-call", Run: func() ([]typed, error) {
			return c.typeFnCall(st, live, lv, e)
		}}
	case grammar.IfExpr:
		rule = judge.Rule[typed]{Name: "if", Run: func() ([]typed, error) {
			return c.typeIf(st, live, lv, e)
		}}
	case grammar.BlockExpr:
		rule = judge.Rule[typed]{Name: "block", Run: func() ([]typed, error) {
			return c.typeBlock(st, live, lv, e.Block)
		}}
	default:
		return nil, judge.Leaf(judge.Malformed, "unsupported expression %T", e)
	}
	return judge.Either(c.s, "type-expr", e.String(), rule)
}

func (c *checker) typeAdd(st state, live LivePlaces, lv liveness, e grammar.AddExpr) ([]typed, error) {
	outs, err := c.typeArgs(st, live, lv, nil, []grammar.Expr{e.Left, e.Right}, func(int, []grammar.Place) grammar.Ty {
		return grammar.Int()
	})
	if err != nil {
		return nil, err
	}
	return judge.FlatMap(c.s, outs, func(o argsOut) ([]typed, error) {
		return judge.One(typed{state: o.state, ty: grammar.Int()})
	})
}

// argsOut is the state after evaluating arguments into temporaries.
type argsOut struct {
	state
	temps []grammar.Place
}

func (a argsOut) Key() string {
	names := make([]string, len(a.temps))
	for i, t := range a.temps {
		names[i] = t.String()
	}
	return a.state.Key() + "(" + strings.Join(names, ",") + ")"
}

// typeArgs evaluates args left to right, binding each value to a fresh
// temporary. Earlier temporaries, and the places in hold, stay live while
// later arguments are evaluated, so a later argument cannot invalidate an
// earlier one. expect gives the type the i-th argument must have, given the
// temporaries bound so far; it may return nil to skip the check.
func (c *checker) typeArgs(
	st state,
	live LivePlaces,
	lv liveness,
	hold []grammar.Place,
	args []grammar.Expr,
	expect func(i int, temps []grammar.Place) grammar.Ty,
) ([]argsOut, error) {
	outs := []argsOut{{state: st}}
	for i, arg := range args {
		rest := lv.Exprs(args[i+1:], live)
		var err error
		outs, err = judge.FlatMap(c.s, outs, func(o argsOut) ([]argsOut, error) {
			argLive := rest.With(hold...).With(o.temps...)
			vals, err := c.typeExpr(o.state, argLive, lv, arg)
			if err != nil {
				return nil, err
			}
			return judge.FlatMap(c.s, vals, func(v typed) ([]argsOut, error) {
				en := v.env
				if want := expect(i, o.temps); want != nil {
					var err error
					en, err = c.sub(en, argLive, v.ty, want)
					if err != nil {
						return nil, err
					}
				}
				en, temp := en.FreshTemp(v.ty)
				return judge.One(argsOut{
					state: state{env: en, flow: v.flow},
					temps: append(slices.Clip(o.temps), temp),
				})
			})
		})
		if err != nil {
			return nil, err
		}
	}
	return outs, nil
}

// genericArgs resolves the generic arguments of a construction or call.
// Omitted arguments become inference variables.
func (c *checker) genericArgs(en env.Env, what string, binder []grammar.BinderVar, explicit []grammar.Parameter) (env.Env, []grammar.Parameter, error) {
	if explicit == nil {
		params := make([]grammar.Parameter, len(binder))
		for i, b := range binder {
			en, params[i] = en.FreshParam(b.Kind, b.Name)
		}
		return en, params, nil
	}
	if len(explicit) != len(binder) {
		return en, nil, judge.Leaf(judge.Malformed, "%s expects %d generic arguments, got %d", what, len(binder), len(explicit))
	}
	params := c.subs.Params(explicit)
	for i, b := range binder {
		if params[i].Kind() != b.Kind {
			return en, nil, judge.Leaf(judge.Malformed, "%s: generic argument %s should be a %s", what, params[i], b.Kind)
		}
		if err := wfParam(en, params[i]); err != nil {
			return en, nil, err
		}
	}
	return en, params, nil
}

func boundParams(binder []grammar.BinderVar) []grammar.Parameter {
	out := make([]grammar.Parameter, len(binder))
	for i, b := range binder {
		if b.Kind == grammar.PermKind {
			out[i] = grammar.VarPerm{Var: b.Bound()}
		} else {
			out[i] = grammar.VarTy{Var: b.Bound()}
		}
	}
	return out
}

func (c *checker) typeNew(st state, live LivePlaces, lv liveness, e grammar.NewExpr) ([]typed, error) {
	class, ok := st.env.Program().Class(e.Class)
	if !ok {
		return nil, judge.Leaf(judge.UnknownName, "no class named %s", e.Class)
	}
	if len(e.Args) != len(class.Fields) {
		return nil, judge.Leaf(judge.Malformed, "%s has %d fields, got %d arguments", class.Name, len(class.Fields), len(e.Args))
	}
	en, params, err := c.genericArgs(st.env, class.Name, class.Binder, e.Params)
	if err != nil {
		return nil, err
	}
	subs := env.NewSubs().Bind(class.Binder, params)
	outs, err := c.typeArgs(state{env: en, flow: st.flow}, live, lv, nil, e.Args, func(i int, temps []grammar.Place) grammar.Ty {
		s := subs.Clone()
		for j, t := range temps {
			s.AddPlace(grammar.PlaceOf(grammar.SelfVar, class.Fields[j].Name), t)
		}
		return s.Ty(class.Fields[i].Ty)
	})
	if err != nil {
		return nil, err
	}
	result := grammar.NamedTy{Name: class.Name, Params: params}
	return judge.FlatMap(c.s, outs, func(o argsOut) ([]typed, error) {
		en, err := c.proveAll(o.env, live, subs.Predicates(class.Where))
		if err != nil {
			return nil, err
		}
		return judge.One(typed{state: state{env: en, flow: o.flow}, ty: result})
	})
}

func (c *checker) typeCall(st state, live LivePlaces, lv liveness, e grammar.CallExpr) ([]typed, error) {
	recvs, err := c.typeExpr(st, lv.Exprs(e.Args, live), lv, e.Receiver)
	if err != nil {
		return nil, err
	}
	return judge.FlatMap(c.s, recvs, func(r typed) ([]typed, error) {
		_, base := grammar.Split(r.ty)
		named, ok := base.(grammar.NamedTy)
		if !ok {
			if _, ok := existentialVar(base); ok {
				return nil, judge.Mismatch("type of receiver %s is not yet known", e.Receiver)
			}
			return nil, judge.Leaf(judge.UnknownName, "%s has no method %s", r.ty, e.Method)
		}
		class, ok := r.env.Program().Class(named.Name)
		if !ok {
			return nil, judge.Leaf(judge.UnknownName, "%s has no method %s", r.ty, e.Method)
		}
		m, ok := class.Method(e.Method)
		if !ok {
			return nil, judge.Leaf(judge.UnknownName, "class %s has no method %s", class.Name, e.Method)
		}
		if len(class.Binder) != len(named.Params) {
			return nil, judge.Leaf(judge.Malformed, "%s expects %d parameters, got %d", class.Name, len(class.Binder), len(named.Params))
		}
		if len(e.Args) != len(m.Inputs) {
			return nil, judge.Leaf(judge.Malformed, "%s.%s takes %d arguments, got %d", class.Name, m.Name, len(m.Inputs), len(e.Args))
		}

		en, recv := r.env.FreshTemp(r.ty)
		en, params, err := c.genericArgs(en, class.Name+"."+m.Name, m.Binder, e.Params)
		if err != nil {
			return nil, err
		}
		subs := env.NewSubs().
			Bind(class.Binder, named.Params).
			Bind(m.Binder, params).
			AddLocal(grammar.SelfVar, recv)

		selfTy := subs.Ty(grammar.Apply(m.SelfPerm, grammar.NamedTy{Name: class.Name, Params: boundParams(class.Binder)}))
		en, err = c.sub(en, lv.Exprs(e.Args, live).With(recv), r.ty, selfTy)
		if err != nil {
			return nil, err
		}
		return c.finishCall(state{env: en, flow: r.flow}, live, lv, []grammar.Place{recv}, subs, e.Args, m.Inputs, m.Where, m.Output)
	})
}

func (c *checker) typeFnCall(st state, live LivePlaces, lv liveness, e grammar.FnCallExpr) ([]typed, error) {
	fn, ok := st.env.Program().Fn(e.Fn)
	if !ok {
		return nil, judge.Leaf(judge.UnknownName, "no function named %s", e.Fn)
	}
	if len(e.Args) != len(fn.Inputs) {
		return nil, judge.Leaf(judge.Malformed, "%s takes %d arguments, got %d", fn.Name, len(fn.Inputs), len(e.Args))
	}
	en, params, err := c.genericArgs(st.env, fn.Name, fn.Binder, e.Params)
	if err != nil {
		return nil, err
	}
	subs := env.NewSubs().Bind(fn.Binder, params)
	return c.finishCall(state{env: en, flow: st.flow}, live, lv, nil, subs, e.Args, fn.Inputs, fn.Where, fn.Output)
}

// finishCall evaluates the arguments of a call against the declared inputs,
// proves the callee's where-clauses and computes its result type. Inputs
// and output may mention earlier inputs by name; those become the
// temporaries holding the arguments.
func (c *checker) finishCall(
	st state,
	live LivePlaces,
	lv liveness,
	hold []grammar.Place,
	subs env.Subs,
	args []grammar.Expr,
	inputs []grammar.LocalDecl,
	where []grammar.Predicate,
	output grammar.Ty,
) ([]typed, error) {
	bind := func(temps []grammar.Place) env.Subs {
		s := subs.Clone()
		for j, t := range temps {
			s.AddLocal(inputs[j].Name, t)
		}
		return s
	}
	outs, err := c.typeArgs(st, live, lv, hold, args, func(i int, temps []grammar.Place) grammar.Ty {
		return bind(temps).Ty(inputs[i].Ty)
	})
	if err != nil {
		return nil, err
	}
	return judge.FlatMap(c.s, outs, func(o argsOut) ([]typed, error) {
		s := bind(o.temps)
		en, err := c.proveAll(o.env, live.With(hold...).With(o.temps...), s.Predicates(where))
		if err != nil {
			return nil, err
		}
		result := grammar.Unit()
		if output != nil {
			result = s.Ty(output)
		}
		return judge.One(typed{state: state{env: en, flow: o.flow}, ty: result})
	})
}

// typeIf checks both branches from the same flow and joins them. The else
// branch continues from the environment of the then branch so that
// inference variables created in either stay visible.
func (c *checker) typeIf(st state, live LivePlaces, lv liveness, e grammar.IfExpr) ([]typed, error) {
	branchLive := lv.Before(e.Then, live).Union(lv.Before(e.Else, live))
	conds, err := c.typeExpr(st, branchLive, lv, e.Cond)
	if err != nil {
		return nil, err
	}
	return judge.FlatMap(c.s, conds, func(cond typed) ([]typed, error) {
		en, err := c.sub(cond.env, branchLive, cond.ty, grammar.Int())
		if err != nil {
			return nil, err
		}
		thens, err := c.typeExpr(state{env: en, flow: cond.flow}, live, lv, e.Then)
		if err != nil {
			return nil, err
		}
		return judge.FlatMap(c.s, thens, func(t typed) ([]typed, error) {
			elses, err := c.typeExpr(state{env: t.env, flow: cond.flow}, live, lv, e.Else)
			if err != nil {
				return nil, err
			}
			return judge.FlatMap(c.s, elses, func(el typed) ([]typed, error) {
				en, ty, err := c.join(el.env, live, t.ty, el.ty)
				if err != nil {
					return nil, err
				}
				return judge.One(typed{state: state{env: en, flow: t.flow.Merge(el.flow)}, ty: ty})
			})
		})
	})
}

// join finds a common supertype of a and b: one of them if the other is a
// subtype of it, otherwise a fresh inference variable bounded below by both.
func (c *checker) join(en env.Env, live LivePlaces, a, b grammar.Ty) (env.Env, grammar.Ty, error) {
	if out, err := c.sub(en, live, b, a); err == nil {
		return out, a, nil
	} else if judge.AsFailure(err).IsFatal() {
		return en, nil, err
	}
	if out, err := c.sub(en, live, a, b); err == nil {
		return out, b, nil
	} else if judge.AsFailure(err).IsFatal() {
		return en, nil, err
	}
	en, v := en.FreshExistential(grammar.TypeKind, "T")
	en = en.WithLowerBound(v, a).WithLowerBound(v, b)
	return en, grammar.VarTy{Var: v}, nil
}

// typeBlock types a block; its locals go out of scope at the end.
func (c *checker) typeBlock(st state, live LivePlaces, lv liveness, b *grammar.Block) ([]typed, error) {
	mark := st.env.Mark()
	var stmts []grammar.Stmt
	if b != nil {
		stmts = b.Stmts
	}
	outs, err := c.typeStmts(st, live, lv, stmts)
	if err != nil {
		return nil, err
	}
	return judge.FlatMap(c.s, outs, func(o typed) ([]typed, error) {
		return judge.One(typed{state: state{env: o.env.PopTo(mark), flow: o.flow}, ty: o.ty})
	})
}
