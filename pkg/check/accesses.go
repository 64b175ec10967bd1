package check

import (
	"github.com/dada-lang/dada-model-sub000/pkg/env"
	"github.com/dada-lang/dada-model-sub000/pkg/grammar"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// accessPermitted checks an access to place against the liens held by
// every other live variable. Dead variables restrict nothing.
func (c *checker) accessPermitted(en env.Env, live LivePlaces, access grammar.Access, place grammar.Place) error {
	if err := c.s.Step("access"); err != nil {
		return err
	}
	for _, b := range en.Visible() {
		if b.Name == place.Var || !live.IsVarLive(b.Name) {
			continue
		}
		for _, lien := range Liens(en, b.Ty) {
			if !lienPermits(lien, access, place) {
				return judge.Leaf(judge.AccessViolation, "%s of %s conflicts with %s held by %s", accessVerb(access), place, lien, b.Name)
			}
		}
	}
	return nil
}

func lienPermits(lien Lien, access grammar.Access, place grammar.Place) bool {
	if lien.Nested && access == grammar.Give {
		// the alias cannot follow the value to its new home
		access = grammar.Drop
	}
	disjoint := place.IsDisjoint(lien.Place)
	switch access {
	case grammar.Share:
		return lien.Kind == SharedLien || disjoint
	case grammar.Give:
		return disjoint || place.IsPrefixOf(lien.Place)
	default:
		return disjoint
	}
}

func accessVerb(a grammar.Access) string {
	switch a {
	case grammar.Share:
		return "sharing"
	case grammar.Lease:
		return "leasing"
	case grammar.Drop:
		return "dropping"
	default:
		return "giving"
	}
}
