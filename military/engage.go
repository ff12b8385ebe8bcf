package military

import (
	"log/slog"
	"time"

	"github.com/0ad/0ad-sub001/model"
)

// updateEngaging services one round-robin slice of the roster.
func (p *Plan) updateEngaging(env *Env) Outcome {
	w := env.World
	members := p.Roster(w)
	if len(members) == 0 {
		p.complete(env, ReasonNone)
		return Finished
	}
	if !p.refreshTarget(w) && !p.retarget(w) {
		p.complete(env, ReasonNoTarget)
		return Finished
	}

	now := w.Now()
	enemies := w.Query(func(e model.Entity) bool { return w.IsEnemy(e.Owner) })
	n := min(p.profile.EngageBatch, len(members))
	start := p.cursor % len(members)
	for i := 0; i < n; i++ {
		p.engageUnit(w, members[(start+i)%len(members)], enemies, now)
	}
	p.cursor = (start + n) % len(members)
	p.pruneOrders(members)
	return Running
}

func (p *Plan) engageUnit(w World, u model.Entity, enemies []model.Entity, now time.Duration) {
	if last, ok := p.lastOrder[u.ID]; ok && now-last < p.profile.ReorderCooldown {
		return
	}
	class := classOf(u.Tags)
	if w.Territory().OwnerAt(u.Pos) == w.Player() || !class.fights() {
		if class.fights() || u.Idle() {
			w.Move([]model.EntityID{u.ID}, p.targetPos)
			p.lastOrder[u.ID] = now
		}
		return
	}

	radiusSq := p.profile.EngageRadius * p.profile.EngageRadius
	var nearby []model.Entity
	unitsNearby := false
	for _, e := range enemies {
		if e.Pos.DistSq(u.Pos) > radiusSq {
			continue
		}
		nearby = append(nearby, e)
		unitsNearby = unitsNearby || !e.Tags.Has(model.Structure)
	}

	current, ordered := model.Entity{}, false
	if u.Order.Kind == model.OrderAttack {
		current, ordered = w.Entity(u.Order.Target)
	}
	reorder := u.Idle() || (u.Order.Kind == model.OrderAttack && !ordered)
	if !reorder && ordered {
		if class.prefersStructures() {
			reorder = !current.Tags.Has(model.ConquestCritical)
		} else {
			reorder = current.Tags.Has(model.Structure) && unitsNearby
		}
	}
	if !reorder {
		return
	}

	t, ok := p.pickTarget(w, class, u.Pos, nearby)
	if !ok || (ordered && t.ID == current.ID) {
		return
	}
	w.Attack(u.ID, t.ID, class != classSiege && t.Tags.Has(model.Structure))
	p.lastOrder[u.ID] = now
}

// pickTarget applies the targeting asymmetry: siege picks structures, the
// rest pick units and fall back to structures, then to the plan target.
func (p *Plan) pickTarget(w EntityView, class unitClass, from model.Vec2, nearby []model.Entity) (model.Entity, bool) {
	if class.prefersStructures() {
		if t, ok := bestStructureTarget(from, nearby, p.profile.EngageRadius); ok {
			return t, true
		}
	} else {
		if t, ok := bestUnitTarget(class, from, nearby, p.profile.EngageRadius); ok {
			return t, true
		}
		if t, ok := bestStructureTarget(from, nearby, p.profile.EngageRadius); ok {
			return t, true
		}
	}
	if t, ok := w.Entity(p.target); ok {
		return t, true
	}
	return model.Entity{}, false
}

func (p *Plan) pruneOrders(members []model.Entity) {
	if len(p.lastOrder) <= len(members) {
		return
	}
	alive := make(map[model.EntityID]bool, len(members))
	for _, m := range members {
		alive[m.ID] = true
	}
	for id := range p.lastOrder {
		if !alive[id] {
			delete(p.lastOrder, id)
		}
	}
	slog.Debug("engage order history pruned", "plan", p.id, "kept", len(p.lastOrder))
}
