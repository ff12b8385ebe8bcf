package sandbox

import (
	"log/slog"
	"math"
	"slices"

	"github.com/0ad/0ad-sub001/model"
)

// Engagement ranges in map units.
const (
	meleeReach     = 6
	rangedReach    = 28
	structureReach = 35
	// structureSize is added to reach when the target is a building.
	structureSize = 8

	aggressiveAcquire = 30
	defensiveAcquire  = 15

	// structureDamage scales non-siege damage against buildings.
	structureDamage = 0.25

	arrived = 1.0
)

// ring spreads n positions evenly on a circle around c.
func ring(c model.Vec2, radius float64, i, n int) model.Vec2 {
	a := 2 * math.Pi * float64(i) / float64(max(1, n))
	return model.Vec2{X: c.X + radius*math.Cos(a), Y: c.Y + radius*math.Sin(a)}
}

func (m *Match) alive(id model.EntityID) (*unit, bool) {
	u, ok := m.units[id]
	return u, ok && u.HP > 0
}

// apply turns one player's recorded commands into unit orders.
func (m *Match) apply(s *side, cmds []model.Command) {
	for _, c := range cmds {
		if c.Kind == model.CmdProduce {
			// Training is driven by the queues directly.
			continue
		}
		for _, id := range c.Units {
			u, ok := m.alive(id)
			if !ok || u.Owner != s.setup.ID || u.aboard != 0 || u.Tags.Has(model.Structure) {
				continue
			}
			switch c.Kind {
			case model.CmdMove:
				u.Order = model.Order{Kind: model.OrderMove, Pos: c.Pos}
			case model.CmdAttackMove:
				u.Order = model.Order{Kind: model.OrderAttackMove, Pos: c.Pos}
			case model.CmdAttack:
				u.Order = model.Order{Kind: model.OrderAttack, Target: c.Target}
				u.capture = c.AllowCapture
			case model.CmdGarrison:
				u.Order = model.Order{Kind: model.OrderGarrison, Target: c.Target}
			case model.CmdStance:
				u.stance = c.Stance
			case model.CmdGather:
				u.Order = model.Order{Kind: model.OrderGather, Resource: c.Resource}
			}
		}
		slog.Debug("command applied", "player", s.setup.ID, "kind", c.Kind, "units", len(c.Units))
	}
}

func (m *Match) hostile(a, b *unit) bool {
	return a.Owner != b.Owner && a.Owner != 0 && b.Owner != 0
}

func reach(attacker, target *unit) float64 {
	r := float64(meleeReach)
	switch {
	case attacker.Tags.Has(model.Structure):
		r = structureReach
	case attacker.Tags.Has(model.Ranged):
		r = rangedReach
	}
	if target.Tags.Has(model.Structure) {
		r += structureSize
	}
	return r
}

// acquire finds the nearest hostile within radius, units before buildings.
func (m *Match) acquire(u *unit, radius float64, structures bool) (*unit, bool) {
	var best *unit
	bestD := radius * radius
	bestIsUnit := false
	for _, id := range m.ids {
		o := m.units[id]
		if o.HP <= 0 || o.aboard != 0 || !m.hostile(u, o) {
			continue
		}
		isUnit := !o.Tags.Has(model.Structure)
		if !isUnit && !structures {
			continue
		}
		d := u.Pos.DistSq(o.Pos)
		if d > radius*radius {
			continue
		}
		if best == nil || (isUnit && !bestIsUnit) || (isUnit == bestIsUnit && d < bestD) {
			best, bestD, bestIsUnit = o, d, isUnit
		}
	}
	return best, best != nil
}

// combatTarget decides what u fights this step.
func (m *Match) combatTarget(u *unit) (*unit, bool) {
	if u.Strength <= 0 || u.aboard != 0 {
		return nil, false
	}
	if u.Tags.Has(model.Structure) {
		return m.acquire(u, structureReach, false)
	}
	acquireRange := 0.0
	switch u.stance {
	case model.StanceAggressive, "":
		acquireRange = aggressiveAcquire
	case model.StanceDefensive:
		acquireRange = defensiveAcquire
	}
	switch u.Order.Kind {
	case model.OrderAttack:
		t, ok := m.alive(u.Order.Target)
		if !ok || t.aboard != 0 {
			u.Order = model.Order{}
			return nil, false
		}
		return t, true
	case model.OrderAttackMove:
		return m.acquire(u, max(acquireRange, defensiveAcquire), true)
	case model.OrderIdle:
		if acquireRange == 0 || u.Tags.Has(model.Worker) {
			return nil, false
		}
		return m.acquire(u, acquireRange, false)
	}
	return nil, false
}

// passable reports whether u may step onto p. Land units never walk into
// water; units already afloat (dropped mid-crossing) may walk out.
func (m *Match) passable(u *unit, p model.Vec2) bool {
	switch m.grid.AtPos(p) {
	case model.Cliff:
		return false
	case model.Water:
		return u.Tags.Has(model.Ship) || m.grid.AtPos(u.Pos) == model.Water
	}
	return true
}

func (m *Match) step(u *unit, dest model.Vec2, dt float64) {
	next := u.Pos.Toward(dest, u.Speed*dt)
	if m.passable(u, next) {
		u.Pos = next
	}
}

// move advances every mobile unit and settles who fights whom.
func (m *Match) move(dt float64) {
	for _, id := range m.ids {
		u := m.units[id]
		u.engaged = 0
		if u.HP <= 0 || u.aboard != 0 {
			continue
		}
		if t, ok := m.combatTarget(u); ok {
			if u.Pos.Dist(t.Pos) <= reach(u, t) {
				u.engaged = t.ID
				continue
			}
			if !u.Tags.Has(model.Structure) {
				m.step(u, t.Pos, dt)
			}
			continue
		}
		switch u.Order.Kind {
		case model.OrderMove, model.OrderAttackMove:
			m.step(u, u.Order.Pos, dt)
			if u.Pos.Dist(u.Order.Pos) <= arrived {
				u.Order = model.Order{}
			}
		case model.OrderGarrison:
			t, ok := m.alive(u.Order.Target)
			if !ok {
				u.Order = model.Order{}
				continue
			}
			m.step(u, t.Pos, dt)
			if u.Pos.Dist(t.Pos) <= structureSize {
				t.Garrisons++
				u.Order = model.Order{}
			}
		}
	}
}

// fight applies one step of damage and records attack events for the
// victims' owners.
func (m *Match) fight(dt float64) {
	clear(m.events)
	for _, id := range m.ids {
		u := m.units[id]
		if u.engaged == 0 || u.HP <= 0 {
			continue
		}
		t, ok := m.alive(u.engaged)
		if !ok {
			continue
		}
		dmg := u.Strength * dt
		if t.Tags.Has(model.Structure) && !u.Tags.Has(model.Siege) {
			dmg *= structureDamage
		}
		t.HP -= dmg
		m.events[t.Owner] = append(m.events[t.Owner], model.AttackEvent{Target: t.ID, Attacker: u.ID, Pos: t.Pos})
		if t.HP <= 0 && u.capture && t.Tags.Has(model.Structure) {
			slog.Info("structure captured", "id", t.ID, "from", t.Owner, "to", u.Owner)
			t.Owner, t.HP = u.Owner, t.MaxHP/4
		}
	}
}

// gatherRate is what one worker brings in per second.
func (m *Match) gatherRate(u *unit, r model.ResourceType) float64 {
	if t, ok := m.templates[u.Template]; ok && t.Gather.Get(r) > 0 {
		return t.Gather.Get(r)
	}
	return 0.5
}

func (m *Match) gather(dt float64) {
	for _, s := range m.sides {
		for r, rate := range s.base.GatherRates() {
			s.stock.Set(r, s.stock.Get(r)+rate*dt)
		}
	}
}

// train spawns every batch whose build time has elapsed at a structure able
// to produce it. Batches without one wait.
func (m *Match) train() {
	for _, s := range m.sides {
		var waiting []*batch
		for _, b := range s.training {
			if b.ready > m.now {
				waiting = append(waiting, b)
				continue
			}
			site, ok := m.producer(s.setup.ID, b.tmpl)
			if !ok {
				waiting = append(waiting, b)
				continue
			}
			for i := 0; i < b.req.Count; i++ {
				u := m.spawnUnit(s.setup.ID, b.tmpl, ring(site, 14, i, b.req.Count))
				if b.req.Assign != nil {
					s.reg.Upsert(u.Entity)
					s.reg.Assign(u.ID, *b.req.Assign)
				}
			}
			slog.Debug("batch trained", "player", s.setup.ID, "template", b.tmpl.Name, "count", b.req.Count)
		}
		s.training = waiting
	}
}

func (m *Match) producer(p model.PlayerID, t model.Template) (model.Vec2, bool) {
	for _, id := range m.ids {
		u := m.units[id]
		if u.Owner != p || u.HP <= 0 || !u.Tags.Has(model.Structure) {
			continue
		}
		if (t.Requires.Empty() && u.Tags.Has(model.CivCentre)) || t.Requires.HasAny(u.Tags) {
			return u.Pos, true
		}
	}
	return model.Vec2{}, false
}

// deliver lands every ferry trip whose crossing time has elapsed.
func (m *Match) deliver() {
	for _, s := range m.sides {
		s.ferry.land(m.now)
	}
}

// bury removes the dead.
func (m *Match) bury() {
	m.ids = slices.DeleteFunc(m.ids, func(id model.EntityID) bool {
		u := m.units[id]
		if u.HP > 0 {
			return false
		}
		delete(m.units, id)
		slog.Debug("entity destroyed", "id", id, "owner", u.Owner, "template", u.Template)
		return true
	})
}

// claimTerritory recomputes the owner grid from the surviving civic centres.
func (m *Match) claimTerritory() {
	clear(m.grid.Owner)
	for _, id := range m.ids {
		u := m.units[id]
		if u.Tags.Has(model.CivCentre) {
			m.grid.Claim(u.Pos, m.cfg.TerritoryRadius, u.Owner)
		}
	}
}
