package check

import (
	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// checkClass checks the field types and every method of a class. Methods
// are all checked even after one fails so that the report covers each.
func checkClass(s *judge.Search, prog *grammar.Program, class *grammar.ClassDecl) error {
	en, subs := env.New(prog).OpenBinder(class.Binder)
	var causes []*judge.Failure
	fail := func(rule string, err error) {
		causes = append(causes, judge.Because(rule, err))
	}

	where := subs.Predicates(class.Where)
	if err := wfPredicates(en, where); err != nil {
		fail("where", err)
	}
	en = en.Assume(where...)

	selfTy := grammar.NamedTy{Name: class.Name, Params: subs.Params(boundParams(class.Binder))}
	fieldEnv := en.PushLocal(grammar.SelfVar, selfTy)
	seen := map[string]bool{}
	for _, f := range class.Fields {
		if seen[f.Name] {
			fail("field "+f.Name, judge.Leaf(judge.Malformed, "duplicate field %s", f.Name))
			continue
		}
		seen[f.Name] = true
		if err := wfTy(fieldEnv, subs.Ty(f.Ty)); err != nil {
			fail("field "+f.Name, err)
		}
	}

	for _, m := range class.Methods {
		if err := checkMethod(s, en, subs, class, m); err != nil {
			fail("method "+m.Name, err)
		}
		if s.Err() != nil {
			break
		}
	}

	if len(causes) > 0 {
		return &judge.Failure{Judgment: "check-class", Input: class.Name, Causes: causes}
	}
	return nil
}
