// Package grammar holds the immutable program representation consumed by the
// permission checker: declarations, types, permissions, places, expressions
// and statements.
//
// Nothing in this package knows how to check a program. Values are built once
// (by the YAML interchange loader or by hand in tests) and never mutated.
package grammar

import (
	"fmt"
	"strings"
)

// Program is an ordered list of declarations. Lookups are by name and the
// first match wins.
type Program struct {
	Decls []Decl
}

// Decl is a top-level declaration: a class or a function.
type Decl interface {
	DeclName() string
	isDecl()
}

// Class returns the first class declaration with the given name.
func (p *Program) Class(name string) (*ClassDecl, bool) {
	for _, d := range p.Decls {
		if c, ok := d.(*ClassDecl); ok && c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Fn returns the first function declaration with the given name.
func (p *Program) Fn(name string) (*FnDecl, bool) {
	for _, d := range p.Decls {
		if f, ok := d.(*FnDecl); ok && f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// BinderVar is one kind-tagged generic parameter, e.g. `type T` or `perm P`.
type BinderVar struct {
	Kind Kind
	Name string
}

func (b BinderVar) String() string {
	return fmt.Sprintf("%s %s", b.Kind, b.Name)
}

// Bound returns the variable that refers to this parameter before the binder
// is opened.
func (b BinderVar) Bound() Variable {
	return Variable{Kind: b.Kind, Flavor: BoundVar, Name: b.Name}
}

// ClassDecl declares a class.
type ClassDecl struct {
	Name string
	// Value classes are copied rather than moved when every type argument is
	// copy.
	Value   bool
	Binder  []BinderVar
	Where   []Predicate
	Fields  []FieldDecl
	Methods []*MethodDecl
}

func (*ClassDecl) isDecl() {}

func (c *ClassDecl) DeclName() string { return c.Name }

// Field returns the declared field with the given name.
func (c *ClassDecl) Field(name string) (FieldDecl, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDecl{}, false
}

// Method returns the first method with the given name.
func (c *ClassDecl) Method(name string) (*MethodDecl, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// FieldDecl is a class field. Atomic fields may be written through shared
// permissions and make every generic they mention invariant.
type FieldDecl struct {
	Name   string
	Ty     Ty
	Atomic bool
}

func (f FieldDecl) String() string {
	if f.Atomic {
		return fmt.Sprintf("atomic %s: %s", f.Name, f.Ty)
	}
	return fmt.Sprintf("%s: %s", f.Name, f.Ty)
}

// LocalDecl names a method or function input.
type LocalDecl struct {
	Name string
	Ty   Ty
}

// MethodDecl is a method of a class.
type MethodDecl struct {
	Name     string
	Binder   []BinderVar
	SelfPerm Perm
	Inputs   []LocalDecl
	// Output is nil when the method does not declare a return type; the
	// value of the body is then discarded.
	Output Ty
	Where  []Predicate
	// Body is nil for trusted methods.
	Body *Block
}

func (m *MethodDecl) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fn %s%s(%s self", m.Name, binderString(m.Binder), m.SelfPerm)
	for _, in := range m.Inputs {
		fmt.Fprintf(&sb, ", %s: %s", in.Name, in.Ty)
	}
	sb.WriteString(")")
	if m.Output != nil {
		fmt.Fprintf(&sb, " -> %s", m.Output)
	}
	return sb.String()
}

// FnDecl is a top-level function. It is checked like a method without self.
type FnDecl struct {
	Name   string
	Binder []BinderVar
	Inputs []LocalDecl
	Output Ty
	Where  []Predicate
	Body   *Block
}

func (*FnDecl) isDecl() {}

func (f *FnDecl) DeclName() string { return f.Name }

func (f *FnDecl) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fn %s%s(", f.Name, binderString(f.Binder))
	for i, in := range f.Inputs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", in.Name, in.Ty)
	}
	sb.WriteString(")")
	if f.Output != nil {
		fmt.Fprintf(&sb, " -> %s", f.Output)
	}
	return sb.String()
}

func binderString(b []BinderVar) string {
	if len(b) == 0 {
		return ""
	}
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
