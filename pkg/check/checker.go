package check

import (
	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// checker checks one body. It holds the search budget of the enclosing
// declaration and the substitution that maps the generic names written in
// the body to the universals opened for it.
type checker struct {
	s    *judge.Search
	subs env.Subs
}

// state is what every judgment threads: the environment and the moved
// places.
type state struct {
	env  env.Env
	flow Flow
}

func (st state) Key() string {
	return st.env.Key() + "#" + st.flow.Key()
}

// typed is the outcome of typing an expression.
type typed struct {
	state
	ty grammar.Ty
}

func (t typed) Key() string {
	return t.state.Key() + "::" + t.ty.String()
}

func (c *checker) proveTy(en env.Env, live LivePlaces, kind grammar.PredicateKind, ty grammar.Ty) (env.Env, error) {
	return c.prove(en, live, grammar.Predicate{Kind: kind, Param: ty})
}

// prove establishes a predicate, returning the environment with whatever
// it recorded on inference variables.
func (c *checker) prove(en env.Env, live LivePlaces, pred grammar.Predicate) (env.Env, error) {
	p := c.prover(en, live)
	ok := p.Param(pred.Kind, pred.Param)
	if p.err != nil {
		return en, p.err
	}
	if !ok {
		return en, judge.Leaf(judge.PredicateFailure, "%s does not hold", pred)
	}
	return p.env, nil
}

func (c *checker) proveAll(en env.Env, live LivePlaces, preds []grammar.Predicate) (env.Env, error) {
	for _, pred := range preds {
		var err error
		en, err = c.prove(en, live, pred)
		if err != nil {
			return en, err
		}
	}
	return en, nil
}

func (c *checker) isCopy(en env.Env, live LivePlaces, ty grammar.Ty) bool {
	_, err := c.proveTy(en, live, grammar.Copy, ty)
	return err == nil
}

// sub establishes a <: b.
func (c *checker) sub(en env.Env, live LivePlaces, a, b grammar.Ty) (env.Env, error) {
	p := c.prover(en, live)
	ok := p.Sub(a, b)
	if p.err != nil {
		return en, p.err
	}
	if !ok {
		return en, judge.Leaf(judge.SubtypeFailure, "%s is not a subtype of %s", a, b)
	}
	return p.env, nil
}
