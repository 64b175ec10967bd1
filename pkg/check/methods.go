package check

import (
	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// checkMethod checks one method inside the environment of its class.
func checkMethod(s *judge.Search, classEnv env.Env, classSubs env.Subs, class *grammar.ClassDecl, m *grammar.MethodDecl) error {
	en, msubs := classEnv.OpenBinder(m.Binder)
	subs := classSubs.Merge(msubs)

	where := subs.Predicates(m.Where)
	if err := wfPredicates(en, where); err != nil {
		return err
	}
	en = en.Assume(where...)

	selfTy := subs.Ty(grammar.Apply(m.SelfPerm, grammar.NamedTy{Name: class.Name, Params: boundParams(class.Binder)}))
	if err := wfTy(en, selfTy); err != nil {
		return judge.Because("self", err)
	}
	en = en.PushLocal(grammar.SelfVar, selfTy)

	return checkSignatureAndBody(s, en, subs, m.Inputs, m.Output, m.Body)
}

// checkFn checks a top-level function.
func checkFn(s *judge.Search, prog *grammar.Program, fn *grammar.FnDecl) error {
	en, subs := env.New(prog).OpenBinder(fn.Binder)
	where := subs.Predicates(fn.Where)
	if err := wfPredicates(en, where); err != nil {
		return &judge.Failure{Judgment: "check-fn", Input: fn.Name, Causes: []*judge.Failure{judge.AsFailure(err)}}
	}
	en = en.Assume(where...)
	if err := checkSignatureAndBody(s, en, subs, fn.Inputs, fn.Output, fn.Body); err != nil {
		return &judge.Failure{Judgment: "check-fn", Input: fn.Name, Causes: []*judge.Failure{judge.AsFailure(err)}}
	}
	return nil
}

// checkSignatureAndBody binds the inputs, checks the declared types and,
// unless the body is trusted, checks the body against the output type.
// Input types may mention self and the inputs before them.
func checkSignatureAndBody(s *judge.Search, en env.Env, subs env.Subs, inputs []grammar.LocalDecl, output grammar.Ty, body *grammar.Block) error {
	for _, in := range inputs {
		ty := subs.Ty(in.Ty)
		if err := wfTy(en, ty); err != nil {
			return judge.Because("input "+in.Name, err)
		}
		en = en.PushLocal(in.Name, ty)
	}
	var out grammar.Ty
	if output != nil {
		out = subs.Ty(output)
		if err := wfTy(en, out); err != nil {
			return judge.Because("output", err)
		}
	}
	if body == nil {
		return nil
	}
	var bound []string
	for _, b := range en.Visible() {
		bound = append(bound, b.Name)
	}
	body = renameShadowed(bound, body)
	c := &checker{s: s, subs: subs}
	_, err := judge.Single(s, "check-body", signature(inputs, out), func() ([]typed, error) {
		outs, err := c.typeBlock(state{env: en, flow: NewFlow()}, NoneLive(), liveness{brk: NoneLive()}, body)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return outs, nil
		}
		return judge.FlatMap(s, outs, func(o typed) ([]typed, error) {
			en, err := c.sub(o.env, NoneLive(), o.ty, out)
			if err != nil {
				return nil, judge.Because("return-type", err)
			}
			return judge.One(typed{state: state{env: en, flow: o.flow}, ty: out})
		})
	})
	return err
}

func signature(inputs []grammar.LocalDecl, out grammar.Ty) string {
	sig := "("
	for i, in := range inputs {
		if i > 0 {
			sig += ", "
		}
		sig += in.Name + ": " + in.Ty.String()
	}
	sig += ")"
	if out != nil {
		sig += " -> " + out.String()
	}
	return sig
}
