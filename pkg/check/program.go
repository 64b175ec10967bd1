// Package check decides whether a program respects the ownership and
// aliasing discipline of its permissions.
//
// Every declaration is checked on its own by a proof search over the rules
// for expressions, statements, permissions and subtyping. A declaration is
// accepted when at least one derivation succeeds; otherwise the report is
// the tree of every rule that was attempted.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// Options configures CheckProgram.
type Options struct {
	// Budget bounds the search for each declaration.
	Budget judge.Budget
	// Workers is the number of declarations checked at once; zero means
	// GOMAXPROCS.
	Workers int
}

// Diagnostics is the report of a program that failed to check, one failure
// tree per rejected declaration.
type Diagnostics struct {
	Decls []*judge.Failure
}

func (d *Diagnostics) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d declaration(s) failed to check", len(d.Decls))
	for _, f := range d.Decls {
		sb.WriteString("\n")
		sb.WriteString(f.Error())
	}
	return sb.String()
}

func (d *Diagnostics) Unwrap() []error {
	errs := make([]error, len(d.Decls))
	for i, f := range d.Decls {
		errs[i] = f
	}
	return errs
}

// Leaves returns the distinct leaf reasons of every declaration.
func (d *Diagnostics) Leaves() []*judge.Failure {
	var leaves []*judge.Failure
	seen := map[string]bool{}
	for _, f := range d.Decls {
		for _, l := range f.Leaves() {
			key := l.Describe()
			if seen[key] {
				continue
			}
			seen[key] = true
			leaves = append(leaves, l)
		}
	}
	return leaves
}

// Has reports whether any leaf has the given kind.
func (d *Diagnostics) Has(kind judge.Kind) bool {
	for _, f := range d.Decls {
		if f.Has(kind) {
			return true
		}
	}
	return false
}

// CheckProgram checks every declaration of prog. It returns nil when all of
// them are accepted and a *Diagnostics otherwise.
func CheckProgram(ctx context.Context, prog *grammar.Program, opts Options) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	failures := make([]*judge.Failure, len(prog.Decls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, decl := range prog.Decls {
		g.Go(func() error {
			s := judge.NewSearch(ctx, opts.Budget)
			slog.Debug("checking declaration", "decl", decl.DeclName())
			err := checkDecl(s, prog, decl)
			slog.Debug("checked declaration", "decl", decl.DeclName(), "steps", s.Steps, "ok", err == nil)
			if err != nil {
				failures[i] = judge.AsFailure(err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	diags := &Diagnostics{}
	for _, f := range failures {
		if f != nil {
			diags.Decls = append(diags.Decls, f)
		}
	}
	if len(diags.Decls) == 0 {
		return nil
	}
	return diags
}

func checkDecl(s *judge.Search, prog *grammar.Program, decl grammar.Decl) error {
	switch d := decl.(type) {
	case *grammar.ClassDecl:
		return checkClass(s, prog, d)
	case *grammar.FnDecl:
		return checkFn(s, prog, d)
	}
	return judge.Leaf(judge.Malformed, "unexpected declaration %T", decl)
}

// IsCopy reports whether giving a value of type ty copies it rather than
// moving it. ty must be closed: it may not mention generics or places.
func IsCopy(prog *grammar.Program, ty grammar.Ty) bool {
	c := &checker{s: judge.NewSearch(context.Background(), judge.Budget{}), subs: env.NewSubs()}
	return c.isCopy(env.New(prog), NoneLive(), ty)
}
