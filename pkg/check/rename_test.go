package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

func give(place string) grammar.Stmt {
	return grammar.ExprStmt{Expr: grammar.PlaceExpr{Place: grammar.MustPlace(place), Access: grammar.Give}}
}

func TestRenameShadowed(t *testing.T) {
	body := &grammar.Block{Stmts: []grammar.Stmt{
		grammar.LetStmt{Name: "x", Init: grammar.IntegerExpr{Value: 1}},
		grammar.LetStmt{Name: "x", Init: grammar.PlaceExpr{Place: grammar.MustPlace("x"), Access: grammar.Give}},
		grammar.ExprStmt{Expr: grammar.BlockExpr{Block: &grammar.Block{Stmts: []grammar.Stmt{
			grammar.LetStmt{Name: "self", Init: grammar.IntegerExpr{Value: 2}},
			give("self.f"),
		}}}},
		give("x"),
		give("self.f"),
	}}

	out := renameShadowed([]string{"self"}, body)
	require.Len(t, out.Stmts, 5)

	second := out.Stmts[1].(grammar.LetStmt)
	assert.Equal(t, "x@1", second.Name)
	assert.Equal(t, "x", second.Init.(grammar.PlaceExpr).Place.String(), "initializer sees the earlier x")

	inner := out.Stmts[2].(grammar.ExprStmt).Expr.(grammar.BlockExpr).Block
	assert.Equal(t, "self@2", inner.Stmts[0].(grammar.LetStmt).Name)
	assert.Equal(t, "self@2.f", inner.Stmts[1].(grammar.ExprStmt).Expr.(grammar.PlaceExpr).Place.String())

	assert.Equal(t, "x@1", out.Stmts[3].(grammar.ExprStmt).Expr.(grammar.PlaceExpr).Place.String())
	assert.Equal(t, "self.f", out.Stmts[4].(grammar.ExprStmt).Expr.(grammar.PlaceExpr).Place.String(), "the block's binding ends with it")

	// the input is untouched
	assert.Equal(t, "x", body.Stmts[1].(grammar.LetStmt).Name)
}

func TestRenameLeavesUniqueNames(t *testing.T) {
	body := &grammar.Block{Stmts: []grammar.Stmt{
		grammar.LetStmt{Name: "a", Init: grammar.IntegerExpr{Value: 1}},
		grammar.LetStmt{Name: "b", Init: grammar.IntegerExpr{Value: 1}},
		give("a"),
	}}
	assert.Equal(t, body.String(), renameShadowed(nil, body).String())
}
