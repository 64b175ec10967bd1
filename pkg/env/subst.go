package env

import (
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
)

// Subs maps variables to parameters and places to places. Place
// substitution rewrites the longest mapped prefix, so that mapping self to
// @temp0 turns `shared{self.f}` into `shared{@temp0.f}`.
type Subs struct {
	vars   map[grammar.Variable]grammar.Parameter
	places map[string]grammar.Place
}

// NewSubs creates an empty substitution.
func NewSubs() Subs {
	return Subs{
		vars:   map[grammar.Variable]grammar.Parameter{},
		places: map[string]grammar.Place{},
	}
}

// AddVar maps v to p and returns the updated substitution.
func (s Subs) AddVar(v grammar.Variable, p grammar.Parameter) Subs {
	s.vars[v] = p
	return s
}

// AddPlace maps from, and every place it is a prefix of, onto to.
func (s Subs) AddPlace(from, to grammar.Place) Subs {
	s.places[from.String()] = to
	return s
}

// AddLocal maps the local variable name onto to.
func (s Subs) AddLocal(name string, to grammar.Place) Subs {
	return s.AddPlace(grammar.Place{Var: name}, to)
}

// Bind maps the bound variables of binder to params, in order.
func (s Subs) Bind(binder []grammar.BinderVar, params []grammar.Parameter) Subs {
	for i, b := range binder {
		if i < len(params) {
			s.AddVar(b.Bound(), params[i])
		}
	}
	return s
}

// Clone copies the substitution.
func (s Subs) Clone() Subs {
	out := NewSubs()
	for v, p := range s.vars {
		out.vars[v] = p
	}
	for n, p := range s.places {
		out.places[n] = p
	}
	return out
}

// Merge returns a copy of s extended with every mapping of other. Mappings
// of other win.
func (s Subs) Merge(other Subs) Subs {
	out := s.Clone()
	for v, p := range other.vars {
		out.vars[v] = p
	}
	for n, p := range other.places {
		out.places[n] = p
	}
	return out
}

// IsEmpty reports whether the substitution changes nothing.
func (s Subs) IsEmpty() bool {
	return len(s.vars) == 0 && len(s.places) == 0
}

// Ty applies the substitution to a type.
func (s Subs) Ty(t grammar.Ty) grammar.Ty {
	if s.IsEmpty() || t == nil {
		return t
	}
	switch t := t.(type) {
	case grammar.NamedTy:
		return grammar.NamedTy{Name: t.Name, Params: s.Params(t.Params)}
	case grammar.VarTy:
		if p, ok := s.vars[t.Var]; ok {
			if ty, ok := grammar.AsTy(p); ok {
				return ty
			}
		}
		return t
	case grammar.PermTy:
		return grammar.PermTy{Perm: s.Perm(t.Perm), Ty: s.Ty(t.Ty)}
	}
	return t
}

// Perm applies the substitution to a permission.
func (s Subs) Perm(p grammar.Perm) grammar.Perm {
	if s.IsEmpty() || p == nil {
		return p
	}
	switch p := p.(type) {
	case grammar.Given:
		return grammar.Given{Places: s.Places(p.Places)}
	case grammar.Shared:
		return grammar.Shared{Places: s.Places(p.Places)}
	case grammar.Leased:
		return grammar.Leased{Places: s.Places(p.Places)}
	case grammar.VarPerm:
		if q, ok := s.vars[p.Var]; ok {
			if perm, ok := grammar.AsPerm(q); ok {
				return perm
			}
		}
		return p
	case grammar.ApplyPerm:
		return grammar.ApplyPerm{Left: s.Perm(p.Left), Right: s.Perm(p.Right)}
	}
	return p
}

// Param applies the substitution to a parameter of either kind.
func (s Subs) Param(p grammar.Parameter) grammar.Parameter {
	switch p := p.(type) {
	case grammar.Ty:
		return s.Ty(p)
	case grammar.Perm:
		return s.Perm(p)
	}
	return p
}

// Params applies the substitution to each parameter.
func (s Subs) Params(ps []grammar.Parameter) []grammar.Parameter {
	if ps == nil {
		return nil
	}
	out := make([]grammar.Parameter, len(ps))
	for i, p := range ps {
		out[i] = s.Param(p)
	}
	return out
}

// Place rewrites the longest mapped prefix of p.
func (s Subs) Place(p grammar.Place) grammar.Place {
	if len(s.places) == 0 {
		return p
	}
	for i := len(p.Fields); i >= 0; i-- {
		prefix := grammar.Place{Var: p.Var, Fields: p.Fields[:i]}
		if to, ok := s.places[prefix.String()]; ok {
			return grammar.Place{Var: p.Var, Fields: p.Fields[i:]}.Rebase(to)
		}
	}
	return p
}

// Places applies Place to each element.
func (s Subs) Places(ps []grammar.Place) []grammar.Place {
	if ps == nil {
		return nil
	}
	out := make([]grammar.Place, len(ps))
	for i, p := range ps {
		out[i] = s.Place(p)
	}
	return out
}

// Predicate applies the substitution to the subject of a predicate.
func (s Subs) Predicate(p grammar.Predicate) grammar.Predicate {
	return grammar.Predicate{Kind: p.Kind, Param: s.Param(p.Param)}
}

// Predicates applies Predicate to each element.
func (s Subs) Predicates(ps []grammar.Predicate) []grammar.Predicate {
	out := make([]grammar.Predicate, len(ps))
	for i, p := range ps {
		out[i] = s.Predicate(p)
	}
	return out
}
