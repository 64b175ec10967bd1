package judge

import (
	"context"
)

const (
	DefaultFuel        = 200_000
	DefaultMaxDepth    = 400
	DefaultMaxOutcomes = 256
)

// Budget bounds one search. Zero fields take the defaults.
type Budget struct {
	// Fuel is the total number of judgment steps.
	Fuel int
	// MaxDepth bounds the nesting of judgments.
	MaxDepth int
	// MaxOutcomes bounds the size of any single outcome set.
	MaxOutcomes int
}

func (b Budget) withDefaults() Budget {
	if b.Fuel <= 0 {
		b.Fuel = DefaultFuel
	}
	if b.MaxDepth <= 0 {
		b.MaxDepth = DefaultMaxDepth
	}
	if b.MaxOutcomes <= 0 {
		b.MaxOutcomes = DefaultMaxOutcomes
	}
	return b
}

// Search tracks the budget of one derivation. It is not safe for concurrent
// use; every declaration is checked with its own Search.
type Search struct {
	ctx    context.Context
	budget Budget
	fuel   int
	depth  int
	// Steps counts judgments entered so far.
	Steps int
}

// NewSearch starts a search bounded by budget and canceled with ctx.
func NewSearch(ctx context.Context, budget Budget) *Search {
	if ctx == nil {
		ctx = context.Background()
	}
	budget = budget.withDefaults()
	return &Search{ctx: ctx, budget: budget, fuel: budget.Fuel}
}

// MaxOutcomes exposes the per-set limit to callers that enumerate
// alternatives outside of Either.
func (s *Search) MaxOutcomes() int {
	return s.budget.MaxOutcomes
}

// Step consumes one unit of fuel without entering a judgment.
func (s *Search) Step(what string) error {
	s.fuel--
	s.Steps++
	if s.fuel < 0 {
		return &Failure{Judgment: what, Kind: SearchExhausted, Message: "ran out of fuel"}
	}
	return nil
}

func (s *Search) enter(judgment, input string) error {
	if err := s.ctx.Err(); err != nil {
		return &Failure{Judgment: judgment, Kind: SearchExhausted, Message: "canceled", Err: err}
	}
	if err := s.Step(judgment); err != nil {
		return err
	}
	s.depth++
	if s.depth > s.budget.MaxDepth {
		s.depth--
		return &Failure{Judgment: judgment, Input: input, Kind: SearchExhausted, Message: "exceeded max depth"}
	}
	return nil
}

func (s *Search) exit() {
	s.depth--
}

func (s *Search) checkOutcomes(judgment string, n int) error {
	if n > s.budget.MaxOutcomes {
		return &Failure{Judgment: judgment, Kind: SearchExhausted, Message: "too many outcomes"}
	}
	return nil
}

// Nest enters a nested computation that does not go through Either, such
// as a recursive permission expansion. The returned function leaves it.
func (s *Search) Nest(what string) (func(), error) {
	if err := s.enter(what, ""); err != nil {
		return func() {}, err
	}
	return s.exit, nil
}

// Err reports whether the search was canceled.
func (s *Search) Err() error {
	return s.ctx.Err()
}
