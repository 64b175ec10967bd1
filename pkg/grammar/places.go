package grammar

import (
	"slices"
	"strings"
)

// SelfVar is the name of the receiver inside methods and field types.
const SelfVar = "self"

// Place is a storage location: a root variable and a path of field
// projections.
type Place struct {
	Var    string
	Fields []string
}

// PlaceOf builds a place from a root variable and fields.
func PlaceOf(root string, fields ...string) Place {
	return Place{Var: root, Fields: fields}
}

func (p Place) String() string {
	if len(p.Fields) == 0 {
		return p.Var
	}
	return p.Var + "." + strings.Join(p.Fields, ".")
}

// Hash keys places in hash sets.
func (p Place) Hash() string {
	return p.String()
}

// Equal reports whether both places name the same location.
func (p Place) Equal(o Place) bool {
	return p.Var == o.Var && slices.Equal(p.Fields, o.Fields)
}

// Project extends the place by one field.
func (p Place) Project(field string) Place {
	fields := make([]string, len(p.Fields), len(p.Fields)+1)
	copy(fields, p.Fields)
	return Place{Var: p.Var, Fields: append(fields, field)}
}

// Owner drops the last projection. It returns false for a bare variable.
func (p Place) Owner() (Place, bool) {
	if len(p.Fields) == 0 {
		return p, false
	}
	return Place{Var: p.Var, Fields: slices.Clip(p.Fields[:len(p.Fields)-1])}, true
}

// LastField returns the final projection, if any.
func (p Place) LastField() (string, bool) {
	if len(p.Fields) == 0 {
		return "", false
	}
	return p.Fields[len(p.Fields)-1], true
}

// IsPrefixOf reports whether o extends (or equals) p.
func (p Place) IsPrefixOf(o Place) bool {
	if p.Var != o.Var || len(p.Fields) > len(o.Fields) {
		return false
	}
	return slices.Equal(p.Fields, o.Fields[:len(p.Fields)])
}

// IsDisjoint reports whether neither place is a prefix of the other.
func (p Place) IsDisjoint(o Place) bool {
	return !p.IsPrefixOf(o) && !o.IsPrefixOf(p)
}

// Overlaps is the negation of IsDisjoint.
func (p Place) Overlaps(o Place) bool {
	return !p.IsDisjoint(o)
}

// Rebase replaces the root variable of p with the place root.
func (p Place) Rebase(root Place) Place {
	fields := make([]string, 0, len(root.Fields)+len(p.Fields))
	fields = append(fields, root.Fields...)
	fields = append(fields, p.Fields...)
	return Place{Var: root.Var, Fields: fields}
}
