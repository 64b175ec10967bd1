package grammar

import (
	"fmt"
)

//go:generate go tool pigeon -o notation.peg.go notation.peg

// Scope maps generic names visible at a point of the program to their kind.
// Identifiers found in a Scope read as variables; all others name classes.
type Scope map[string]Kind

// ScopeOf builds a scope from binders, later binders shadowing earlier ones.
func ScopeOf(binders ...[]BinderVar) Scope {
	s := Scope{}
	for _, b := range binders {
		for _, v := range b {
			s[v.Name] = v.Kind
		}
	}
	return s
}

// parseNotation runs the generated parser from the given rule. The scope
// travels in the parser's global store so the actions can tell variables
// from class names.
func parseNotation(rule, src string, scope Scope) (any, error) {
	if scope == nil {
		scope = Scope{}
	}
	val, err := Parse("", []byte(src), Entrypoint(rule), GlobalStore("scope", scope))
	if err != nil {
		if el, ok := err.(errList); ok && len(el) > 0 {
			if pe, ok := el[0].(*parserError); ok {
				return nil, fmt.Errorf("%q: %s at %d", src, pe.Inner, pe.pos.offset)
			}
		}
		return nil, fmt.Errorf("%q: %w", src, err)
	}
	return val, nil
}

// ParseTy reads a type in the compact notation, e.g. `shared{foo} Vec[Int]`.
func ParseTy(src string, scope Scope) (Ty, error) {
	val, err := parseNotation("Type", src, scope)
	if err != nil {
		return nil, err
	}
	return val.(Ty), nil
}

// ParsePerm reads a permission, e.g. `leased{x} shared{y}`.
func ParsePerm(src string, scope Scope) (Perm, error) {
	val, err := parseNotation("Permission", src, scope)
	if err != nil {
		return nil, err
	}
	return val.(Perm), nil
}

// ParseParam reads a type or permission.
func ParseParam(src string, scope Scope) (Parameter, error) {
	val, err := parseNotation("Parameter", src, scope)
	if err != nil {
		return nil, err
	}
	return val.(Parameter), nil
}

// ParsePlace reads a place such as `self.a.b`.
func ParsePlace(src string) (Place, error) {
	val, err := parseNotation("PlaceOnly", src, nil)
	if err != nil {
		return Place{}, err
	}
	return val.(Place), nil
}

// ParsePredicate reads a where-clause such as `copy(T)`.
func ParsePredicate(src string, scope Scope) (Predicate, error) {
	val, err := parseNotation("Where", src, scope)
	if err != nil {
		return Predicate{}, err
	}
	return val.(Predicate), nil
}

// MustTy is ParseTy for literals known to be valid.
func MustTy(src string, scope Scope) Ty {
	ty, err := ParseTy(src, scope)
	if err != nil {
		panic(err)
	}
	return ty
}

// MustPerm is ParsePerm for literals known to be valid.
func MustPerm(src string, scope Scope) Perm {
	p, err := ParsePerm(src, scope)
	if err != nil {
		panic(err)
	}
	return p
}

// MustPlace is ParsePlace for literals known to be valid.
func MustPlace(src string) Place {
	p, err := ParsePlace(src)
	if err != nil {
		panic(err)
	}
	return p
}
