// Package judge is the proof-search core of the checker.
//
// A judgment is a function from inputs to an ordered, deduplicated set of
// outcomes. It is defined by named rules; its result is the union of the
// outcomes of every rule, and it fails only when that union is empty.
// Sequencing two judgments is a flat-map over the outcomes of the first.
//
// Failures are values, never panics: each judgment that produces nothing
// returns a *Failure describing every rule it tried, so the final report can
// show the deepest reason of every path that was explored.
package judge

// Keyed outcomes can be deduplicated.
type Keyed interface {
	Key() string
}

// Set is an ordered collection of outcomes without duplicates.
type Set[T Keyed] struct {
	items []T
	seen  map[string]struct{}
}

// Add inserts x unless an outcome with the same key is present.
func (s *Set[T]) Add(xs ...T) {
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	for _, x := range xs {
		k := x.Key()
		if _, dup := s.seen[k]; dup {
			continue
		}
		s.seen[k] = struct{}{}
		s.items = append(s.items, x)
	}
}

// Len returns the number of outcomes.
func (s *Set[T]) Len() int { return len(s.items) }

// Items returns the outcomes in insertion order.
func (s *Set[T]) Items() []T { return s.items }

// Rule is one alternative of a judgment.
type Rule[T any] struct {
	Name string
	Run  func() ([]T, error)
}

// Either runs every rule and unions their outcomes. Rules that fail
// contribute their failure to the report. A fatal failure stops the
// judgment immediately without trying the remaining rules.
func Either[T Keyed](s *Search, judgment, input string, rules ...Rule[T]) ([]T, error) {
	if err := s.enter(judgment, input); err != nil {
		return nil, err
	}
	defer s.exit()

	var out Set[T]
	var causes []*Failure
	for _, rule := range rules {
		res, err := rule.Run()
		if err != nil {
			cause := Because(rule.Name, err)
			if cause.IsFatal() {
				return nil, &Failure{Judgment: judgment, Input: input, Causes: []*Failure{cause}}
			}
			causes = append(causes, cause)
			continue
		}
		out.Add(res...)
		if err := s.checkOutcomes(judgment, out.Len()); err != nil {
			return nil, err
		}
	}
	if out.Len() == 0 {
		if len(causes) == 0 {
			causes = append(causes, Mismatch("no rule applied"))
		}
		return nil, &Failure{Judgment: judgment, Input: input, Causes: causes}
	}
	return out.Items(), nil
}

// Single is a judgment with exactly one rule.
func Single[T Keyed](s *Search, judgment, input string, run func() ([]T, error)) ([]T, error) {
	return Either(s, judgment, input, Rule[T]{Name: judgment, Run: run})
}

// FlatMap feeds every input into f and unions the results. It fails when no
// input produced an outcome, reporting the failure of each one.
func FlatMap[A any, B Keyed](s *Search, in []A, f func(A) ([]B, error)) ([]B, error) {
	var out Set[B]
	var causes []*Failure
	for _, a := range in {
		res, err := f(a)
		if err != nil {
			fail := AsFailure(err)
			if fail.IsFatal() {
				return nil, fail
			}
			causes = append(causes, fail)
			continue
		}
		out.Add(res...)
		if err := s.checkOutcomes("flat-map", out.Len()); err != nil {
			return nil, err
		}
	}
	if out.Len() == 0 {
		switch len(causes) {
		case 0:
			return nil, Mismatch("no inputs")
		case 1:
			return nil, causes[0]
		default:
			return nil, &Failure{Causes: causes}
		}
	}
	return out.Items(), nil
}

// One lifts a single outcome into a result set.
func One[T any](x T) ([]T, error) {
	return []T{x}, nil
}
