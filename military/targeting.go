package military

import (
	"github.com/0ad/0ad-sub001/model"
)

// TargetFinder lists candidate targets owned by enemy. An empty result means
// the plan has nothing to attack.
type TargetFinder func(v EntityView, enemy model.PlayerID) []model.Entity

// baseTiers is the structure preference of the default finder, best first.
var baseTiers = []model.Tag{model.CivCentre, model.Town, model.Village}

// BaseTargets prefers the enemy's primary base structures, then town-tier,
// then village-tier, then any conquest-critical entity. It stops at the first
// tier that has candidates.
func BaseTargets(v EntityView, enemy model.PlayerID) []model.Entity {
	for _, tier := range baseTiers {
		found := v.Query(func(e model.Entity) bool {
			return e.Owner == enemy && e.Tags.Has(model.Structure) && e.Tags.Has(tier)
		})
		if len(found) > 0 {
			return found
		}
	}
	return v.Query(func(e model.Entity) bool {
		return e.Owner == enemy && e.Tags.Has(model.ConquestCritical)
	})
}

// DropsiteTargets goes after the enemy economy first.
func DropsiteTargets(v EntityView, enemy model.PlayerID) []model.Entity {
	found := v.Query(func(e model.Entity) bool {
		return e.Owner == enemy && e.Tags.HasAll(model.Tags(model.Structure, model.Dropsite))
	})
	if len(found) > 0 {
		return found
	}
	return BaseTargets(v, enemy)
}

// FinderFor returns the default finder of a target policy.
func FinderFor(p TargetPolicy) TargetFinder {
	if p == TargetDropsite {
		return DropsiteTargets
	}
	return BaseTargets
}

// Nearest returns the candidate closest to pos by squared distance. Ties go
// to the lower ID, which Query order already gives.
func Nearest(cands []model.Entity, pos model.Vec2) (model.Entity, bool) {
	if len(cands) == 0 {
		return model.Entity{}, false
	}
	best := cands[0]
	bestD := best.Pos.DistSq(pos)
	for _, c := range cands[1:] {
		if d := c.Pos.DistSq(pos); d < bestD {
			best, bestD = c, d
		}
	}
	return best, true
}

// unitClass is the targeting class of a roster unit.
type unitClass int

const (
	classSiege unitClass = iota
	classCavalry
	classRanged
	classMelee
	classSupport
	classOther
)

func classOf(tags model.TagSet) unitClass {
	switch {
	case tags.Has(model.Siege):
		return classSiege
	case tags.Has(model.Cavalry):
		return classCavalry
	case tags.Has(model.Ranged):
		return classRanged
	case tags.Has(model.Melee):
		return classMelee
	case tags.Has(model.Support):
		return classSupport
	default:
		return classOther
	}
}

// prefersStructures reports the targeting asymmetry: siege goes for
// buildings, everything that fights goes for units first.
func (c unitClass) prefersStructures() bool {
	switch c {
	case classSiege:
		return true
	case classCavalry, classRanged, classMelee, classSupport, classOther:
		return false
	default:
		panic("military: unhandled unit class")
	}
}

// fights reports whether the class takes attack orders at all.
func (c unitClass) fights() bool {
	switch c {
	case classSiege, classCavalry, classRanged, classMelee, classOther:
		return true
	case classSupport:
		return false
	default:
		panic("military: unhandled unit class")
	}
}

// counters reports whether class c has a bonus against enemy tags.
func (c unitClass) counters(enemy model.TagSet) bool {
	switch c {
	case classCavalry:
		return enemy.Has(model.Ranged) || enemy.Has(model.Support) || enemy.Has(model.Worker)
	case classRanged:
		return enemy.Has(model.Melee) && enemy.Has(model.Infantry)
	case classMelee:
		return enemy.Has(model.Cavalry)
	case classSiege, classSupport, classOther:
		return false
	default:
		panic("military: unhandled unit class")
	}
}

// bestStructureTarget scores enemy structures for siege: gates first, then
// conquest-critical structures, nearer breaking ties.
func bestStructureTarget(from model.Vec2, cands []model.Entity, radius float64) (model.Entity, bool) {
	var best model.Entity
	bestScore, found := 0.0, false
	for _, e := range cands {
		if !e.Tags.Has(model.Structure) {
			continue
		}
		score := 0.0
		if e.Tags.Has(model.Gate) {
			score += 2
		}
		if e.Tags.Has(model.ConquestCritical) {
			score++
		}
		score -= e.Pos.Dist(from) / radius
		if !found || score > bestScore {
			best, bestScore, found = e, score, true
		}
	}
	return best, found
}

// bestUnitTarget scores enemy units for a fighting class: damaged units and
// units the class counters score higher, nearer breaking ties.
func bestUnitTarget(c unitClass, from model.Vec2, cands []model.Entity, radius float64) (model.Entity, bool) {
	var best model.Entity
	bestScore, found := 0.0, false
	for _, e := range cands {
		if e.Tags.Has(model.Structure) {
			continue
		}
		score := 1 - e.HealthFraction()
		if c.counters(e.Tags) {
			score++
		}
		score -= e.Pos.Dist(from) / radius
		if !found || score > bestScore {
			best, bestScore, found = e, score, true
		}
	}
	return best, found
}
