package check

import (
	"fmt"

	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

// renamer gives every local of a body its own name. A let that reuses a
// name bound earlier in the body, in scope or not, is renamed to name@N and
// the places in its scope are rewritten to match. Afterwards a place names
// exactly one binding, so a lien on a shadowed x never constrains the x
// that replaced it, and a move of one is never mistaken for the other.
type renamer struct {
	bound map[string]bool
	fresh int
}

// renameShadowed returns body with shadowing lets renamed. bound lists the
// names already in scope when the body starts.
func renameShadowed(bound []string, body *grammar.Block) *grammar.Block {
	r := &renamer{bound: map[string]bool{}}
	for _, name := range bound {
		r.bound[name] = true
	}
	return r.block(body, env.NewSubs())
}

func (r *renamer) block(b *grammar.Block, outer env.Subs) *grammar.Block {
	if b == nil {
		return nil
	}
	subs := outer.Clone()
	stmts := make([]grammar.Stmt, len(b.Stmts))
	for i, s := range b.Stmts {
		stmts[i] = r.stmt(s, subs)
	}
	return &grammar.Block{Stmts: stmts}
}

// stmt rewrites s; a let extends subs for the rest of the block.
func (r *renamer) stmt(s grammar.Stmt, subs env.Subs) grammar.Stmt {
	switch s := s.(type) {
	case grammar.ExprStmt:
		return grammar.ExprStmt{Expr: r.expr(s.Expr, subs)}
	case grammar.PrintStmt:
		return grammar.PrintStmt{Expr: r.expr(s.Expr, subs)}
	case grammar.LetStmt:
		s.Init = r.expr(s.Init, subs)
		s.Ty = subs.Ty(s.Ty)
		if r.bound[s.Name] {
			name := r.freshName(s.Name)
			subs.AddLocal(s.Name, grammar.Place{Var: name})
			s.Name = name
		}
		r.bound[s.Name] = true
		return s
	case grammar.ReassignStmt:
		return grammar.ReassignStmt{Place: subs.Place(s.Place), Expr: r.expr(s.Expr, subs)}
	case grammar.LoopStmt:
		return grammar.LoopStmt{Body: r.block(s.Body, subs)}
	}
	return s
}

func (r *renamer) freshName(name string) string {
	for {
		r.fresh++
		fresh := fmt.Sprintf("%s@%d", name, r.fresh)
		if !r.bound[fresh] {
			return fresh
		}
	}
}

func (r *renamer) expr(e grammar.Expr, subs env.Subs) grammar.Expr {
	switch e := e.(type) {
	case grammar.PlaceExpr:
		return grammar.PlaceExpr{Place: subs.Place(e.Place), Access: e.Access}
	case grammar.AddExpr:
		return grammar.AddExpr{Left: r.expr(e.Left, subs), Right: r.expr(e.Right, subs)}
	case grammar.NewExpr:
		return grammar.NewExpr{Class: e.Class, Params: subs.Params(e.Params), Args: r.exprs(e.Args, subs)}
	case grammar.CallExpr:
		return grammar.CallExpr{
			Receiver: r.expr(e.Receiver, subs),
			Method:   e.Method,
			Params:   subs.Params(e.Params),
			Args:     r.exprs(e.Args, subs),
		}
	case grammar.FnCallExpr:
		return grammar.FnCallExpr{Fn: e.Fn, Params: subs.Params(e.Params), Args: r.exprs(e.Args, subs)}
	case grammar.IfExpr:
		return grammar.IfExpr{Cond: r.expr(e.Cond, subs), Then: r.expr(e.Then, subs), Else: r.expr(e.Else, subs)}
	case grammar.BlockExpr:
		return grammar.BlockExpr{Block: r.block(e.Block, subs)}
	}
	return e
}

func (r *renamer) exprs(es []grammar.Expr, subs env.Subs) []grammar.Expr {
	if es == nil {
		return nil
	}
	out := make([]grammar.Expr, len(es))
	for i, e := range es {
		out[i] = r.expr(e, subs)
	}
	return out
}
