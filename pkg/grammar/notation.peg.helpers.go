package grammar

import (
	"fmt"
	"strings"
)

func (e errList) Unwrap() []error {
	return e
}

func (c *current) scope() Scope {
	s, _ := c.globalStore["scope"].(Scope)
	return s
}

// word is the matched text without the whitespace that follows it.
func (c *current) word() string {
	return strings.TrimRight(string(c.text), " \t\r\n")
}

func (c *current) isPermVar(name any) bool {
	kind, ok := c.scope()[name.(string)]
	return ok && kind == PermKind
}

func (c *current) onPermVar(name any) (any, error) {
	return VarPerm{Var: Variable{Kind: PermKind, Flavor: BoundVar, Name: name.(string)}}, nil
}

func (c *current) onPermKeyword(kw, places any) (any, error) {
	ps, _ := places.([]Place)
	switch kw.(string) {
	case "given":
		return Given{Places: ps}, nil
	case "shared":
		return Shared{Places: ps}, nil
	}
	if len(ps) == 0 {
		return Leased{Places: ps}, fmt.Errorf("leased needs at least one place")
	}
	return Leased{Places: ps}, nil
}

func (c *current) onBase(name, params any) (any, error) {
	n := name.(string)
	if kind, ok := c.scope()[n]; ok {
		if kind != TypeKind {
			return Unit(), fmt.Errorf("%s is a permission, expected a type", n)
		}
		if params != nil {
			return Unit(), fmt.Errorf("type variable %s takes no parameters", n)
		}
		return VarTy{Var: Variable{Kind: TypeKind, Flavor: BoundVar, Name: n}}, nil
	}
	ps, _ := params.([]Parameter)
	return NamedTy{Name: n, Params: ps}, nil
}

func (c *current) onTy(atoms, base any) (any, error) {
	list := atoms.([]any)
	if len(list) == 0 {
		return base, nil
	}
	return PermTy{Perm: foldPerms(list), Ty: base.(Ty)}, nil
}

func (c *current) onParam(atoms, base any) (any, error) {
	perm := foldPerms(atoms.([]any))
	if base == nil {
		return perm, nil
	}
	return PermTy{Perm: perm, Ty: base.(Ty)}, nil
}

func (c *current) onWhere(name, p any) (any, error) {
	n := name.(string)
	kind, ok := PredicateKindNamed(n)
	if !ok {
		return Predicate{Param: p.(Parameter)}, fmt.Errorf("unknown predicate %q", n)
	}
	return Predicate{Kind: kind, Param: p.(Parameter)}, nil
}

// foldPerms nests a run of permissions to the right: `a b c` is a(b(c)).
func foldPerms(atoms any) Perm {
	list := atoms.([]any)
	perm := list[len(list)-1].(Perm)
	for i := len(list) - 2; i >= 0; i-- {
		perm = ApplyPerm{Left: list[i].(Perm), Right: perm}
	}
	return perm
}

func consPlaces(first, rest any) []Place {
	places := []Place{first.(Place)}
	for _, p := range rest.([]any) {
		places = append(places, p.(Place))
	}
	return places
}

func consParams(first, rest any) []Parameter {
	params := []Parameter{first.(Parameter)}
	for _, p := range rest.([]any) {
		params = append(params, p.(Parameter))
	}
	return params
}

func onPlace(root, fields any) Place {
	p := Place{Var: root.(string)}
	for _, f := range fields.([]any) {
		p = p.Project(f.(string))
	}
	return p
}
