package grammar

import (
	"fmt"
	"strings"
)

// Kind distinguishes type parameters from permission parameters.
type Kind int

const (
	TypeKind Kind = iota
	PermKind
)

func (k Kind) String() string {
	if k == PermKind {
		return "perm"
	}
	return "type"
}

// VarFlavor says where a variable came from.
type VarFlavor int

const (
	// BoundVar refers to a binder parameter by name, before the binder is
	// opened.
	BoundVar VarFlavor = iota
	// UniversalVar is a skolem introduced by opening a binder.
	UniversalVar
	// ExistentialVar is an inference variable accumulating bounds.
	ExistentialVar
)

// Variable is a type or permission variable.
type Variable struct {
	Kind   Kind
	Flavor VarFlavor
	Name   string
	Index  int
}

func (v Variable) String() string {
	switch v.Flavor {
	case UniversalVar:
		return fmt.Sprintf("%s/%d", v.Name, v.Index)
	case ExistentialVar:
		return fmt.Sprintf("?%s%d", v.Name, v.Index)
	default:
		return v.Name
	}
}

// Parameter is either a Ty or a Perm. It is the argument of a named type, the
// subject of a predicate and a bound of an existential variable.
type Parameter interface {
	fmt.Stringer
	Kind() Kind
	isParameter()
}

// AsTy narrows a parameter to a type.
func AsTy(p Parameter) (Ty, bool) {
	t, ok := p.(Ty)
	return t, ok
}

// AsPerm narrows a parameter to a permission.
func AsPerm(p Parameter) (Perm, bool) {
	t, ok := p.(Perm)
	return t, ok
}

// Ty is a type.
type Ty interface {
	Parameter
	isTy()
}

// Built-in type names.
const (
	IntName  = "Int"
	UnitName = "()"
)

// NamedTy is a class (or built-in) applied to parameters.
type NamedTy struct {
	Name   string
	Params []Parameter
}

// VarTy is a type variable.
type VarTy struct {
	Var Variable
}

// PermTy applies a permission to a type.
type PermTy struct {
	Perm Perm
	Ty   Ty
}

// Int is the built-in integer type.
func Int() Ty { return NamedTy{Name: IntName} }

// Unit is the empty tuple type.
func Unit() Ty { return NamedTy{Name: UnitName} }

func (NamedTy) isParameter() {}
func (NamedTy) isTy()        {}
func (NamedTy) Kind() Kind   { return TypeKind }

func (t NamedTy) String() string {
	if len(t.Params) == 0 {
		return t.Name
	}
	return t.Name + "[" + paramsString(t.Params) + "]"
}

// IsBuiltin reports whether the type is Int or ().
func (t NamedTy) IsBuiltin() bool {
	return t.Name == IntName || t.Name == UnitName
}

func (VarTy) isParameter() {}
func (VarTy) isTy()        {}
func (VarTy) Kind() Kind   { return TypeKind }

func (t VarTy) String() string { return t.Var.String() }

func (PermTy) isParameter() {}
func (PermTy) isTy()        {}
func (PermTy) Kind() Kind   { return TypeKind }

func (t PermTy) String() string {
	return t.Perm.String() + " " + t.Ty.String()
}

// Perm is a permission.
type Perm interface {
	Parameter
	isPerm()
}

// Given is unique ownership. With places, it records that the value was
// moved out of those places.
type Given struct {
	Places []Place
}

// Shared is a read alias of the given places. With no places it is the
// owned-shared ("our") permission.
type Shared struct {
	Places []Place
}

// Leased is a mutable alias of the given places.
type Leased struct {
	Places []Place
}

// VarPerm is a permission variable.
type VarPerm struct {
	Var Variable
}

// ApplyPerm is Left applied atop Right.
type ApplyPerm struct {
	Left, Right Perm
}

func (Given) isParameter()     {}
func (Given) isPerm()          {}
func (Given) Kind() Kind       { return PermKind }
func (p Given) String() string { return "given" + placesString(p.Places) }

func (Shared) isParameter()     {}
func (Shared) isPerm()          {}
func (Shared) Kind() Kind       { return PermKind }
func (p Shared) String() string { return "shared" + placesString(p.Places) }

func (Leased) isParameter()     {}
func (Leased) isPerm()          {}
func (Leased) Kind() Kind       { return PermKind }
func (p Leased) String() string { return "leased" + placesString(p.Places) }

func (VarPerm) isParameter()     {}
func (VarPerm) isPerm()          {}
func (VarPerm) Kind() Kind       { return PermKind }
func (p VarPerm) String() string { return p.Var.String() }

func (ApplyPerm) isParameter()     {}
func (ApplyPerm) isPerm()          {}
func (ApplyPerm) Kind() Kind       { return PermKind }
func (p ApplyPerm) String() string { return p.Left.String() + " " + p.Right.String() }

// Apply wraps ty in perm, leaving ty untouched when perm is nil.
func Apply(perm Perm, ty Ty) Ty {
	if perm == nil {
		return ty
	}
	return PermTy{Perm: perm, Ty: ty}
}

// Compose applies outer atop inner; either may be nil.
func Compose(outer, inner Perm) Perm {
	switch {
	case outer == nil:
		return inner
	case inner == nil:
		return outer
	default:
		return ApplyPerm{Left: outer, Right: inner}
	}
}

// Split peels every permission layer off ty, returning the composed
// permission (nil when there is none) and the underlying named or variable
// type.
func Split(ty Ty) (Perm, Ty) {
	pt, ok := ty.(PermTy)
	if !ok {
		return nil, ty
	}
	inner, base := Split(pt.Ty)
	return Compose(pt.Perm, inner), base
}

func paramsString(ps []Parameter) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func placesString(ps []Place) string {
	if len(ps) == 0 {
		return ""
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// PredicateKind names a provable property of a permission or type.
type PredicateKind int

const (
	Copy PredicateKind = iota
	Moved
	Owned
	Lent
	Mine
	SharedPred
	Unique
	LeasedPred
	Mutable
)

var predicateNames = map[PredicateKind]string{
	Copy:       "copy",
	Moved:      "moved",
	Owned:      "owned",
	Lent:       "lent",
	Mine:       "mine",
	SharedPred: "shared",
	Unique:     "unique",
	LeasedPred: "leased",
	Mutable:    "mutable",
}

func (k PredicateKind) String() string {
	if name, ok := predicateNames[k]; ok {
		return name
	}
	return fmt.Sprintf("predicate(%d)", int(k))
}

// PredicateKindNamed looks up a predicate by its surface name.
func PredicateKindNamed(name string) (PredicateKind, bool) {
	for k, n := range predicateNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Predicate is a where-clause such as `copy(T)`.
type Predicate struct {
	Kind  PredicateKind
	Param Parameter
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s(%s)", p.Kind, p.Param)
}
