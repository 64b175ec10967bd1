package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

// Access is the mode in which a place is used.
type Access int

const (
	Give Access = iota
	Share
	Lease
	Drop
)

func (a Access) String() string {
	switch a {
	case Share:
		return "ref"
	case Lease:
		return "mut"
	case Drop:
		return "drop"
	default:
		return "give"
	}
}

// Expr is an expression.
type Expr interface {
	fmt.Stringer
	isExpr()
}

// IntegerExpr is an integer literal.
type IntegerExpr struct {
	Value int64
}

// AddExpr adds two integers.
type AddExpr struct {
	Left, Right Expr
}

// PlaceExpr accesses a place, e.g. `foo.i.give` or `foo.ref`.
type PlaceExpr struct {
	Place  Place
	Access Access
}

// NewExpr constructs an object. Nil Params asks the checker to infer them.
type NewExpr struct {
	Class  string
	Params []Parameter
	Args   []Expr
}

// CallExpr calls a method on the value of Receiver.
type CallExpr struct {
	Receiver Expr
	Method   string
	Params   []Parameter
	Args     []Expr
}

// FnCallExpr calls a top-level function.
type FnCallExpr struct {
	Fn     string
	Params []Parameter
	Args   []Expr
}

// IfExpr branches on an integer condition.
type IfExpr struct {
	Cond, Then, Else Expr
}

// BlockExpr is a nested block; its locals go out of scope at the end.
type BlockExpr struct {
	Block *Block
}

func (IntegerExpr) isExpr() {}
func (AddExpr) isExpr()     {}
func (PlaceExpr) isExpr()   {}
func (NewExpr) isExpr()     {}
func (CallExpr) isExpr()    {}
func (FnCallExpr) isExpr()  {}
func (IfExpr) isExpr()      {}
func (BlockExpr) isExpr()   {}

func (e IntegerExpr) String() string { return strconv.FormatInt(e.Value, 10) }

func (e AddExpr) String() string { return fmt.Sprintf("%s + %s", e.Left, e.Right) }

func (e PlaceExpr) String() string { return fmt.Sprintf("%s.%s", e.Place, e.Access) }

func (e NewExpr) String() string {
	return fmt.Sprintf("new %s%s(%s)", e.Class, genericArgs(e.Params), exprsString(e.Args))
}

func (e CallExpr) String() string {
	return fmt.Sprintf("%s.%s%s(%s)", e.Receiver, e.Method, genericArgs(e.Params), exprsString(e.Args))
}

func (e FnCallExpr) String() string {
	return fmt.Sprintf("%s%s(%s)", e.Fn, genericArgs(e.Params), exprsString(e.Args))
}

func (e IfExpr) String() string {
	return fmt.Sprintf("if %s %s else %s", e.Cond, braced(e.Then), braced(e.Else))
}

func (e BlockExpr) String() string { return e.Block.String() }

func braced(e Expr) string {
	if b, ok := e.(BlockExpr); ok {
		return b.String()
	}
	return "{ " + e.String() + " }"
}

func genericArgs(ps []Parameter) string {
	if len(ps) == 0 {
		return ""
	}
	return "[" + paramsString(ps) + "]"
}

func exprsString(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Stmt is a statement.
type Stmt interface {
	fmt.Stringer
	isStmt()
}

// ExprStmt evaluates an expression; the last one in a block gives the block
// its type.
type ExprStmt struct {
	Expr Expr
}

// LetStmt binds a new local, optionally with a declared type.
type LetStmt struct {
	Name string
	Ty   Ty
	Init Expr
}

// ReassignStmt stores a value into an existing place.
type ReassignStmt struct {
	Place Place
	Expr  Expr
}

// LoopStmt repeats its body until a break.
type LoopStmt struct {
	Body *Block
}

// BreakStmt leaves the innermost loop.
type BreakStmt struct{}

// PrintStmt prints the value of an expression.
type PrintStmt struct {
	Expr Expr
}

func (ExprStmt) isStmt()     {}
func (LetStmt) isStmt()      {}
func (ReassignStmt) isStmt() {}
func (LoopStmt) isStmt()     {}
func (BreakStmt) isStmt()    {}
func (PrintStmt) isStmt()    {}

func (s ExprStmt) String() string { return s.Expr.String() + ";" }

func (s LetStmt) String() string {
	if s.Ty != nil {
		return fmt.Sprintf("let %s: %s = %s;", s.Name, s.Ty, s.Init)
	}
	return fmt.Sprintf("let %s = %s;", s.Name, s.Init)
}

func (s ReassignStmt) String() string { return fmt.Sprintf("%s = %s;", s.Place, s.Expr) }

func (s LoopStmt) String() string { return "loop " + s.Body.String() }

func (BreakStmt) String() string { return "break;" }

func (s PrintStmt) String() string { return fmt.Sprintf("print(%s);", s.Expr) }

// Block is a sequence of statements.
type Block struct {
	Stmts []Stmt
}

func (b *Block) String() string {
	if b == nil || len(b.Stmts) == 0 {
		return "{ }"
	}
	parts := make([]string, len(b.Stmts))
	for i, s := range b.Stmts {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}
