// Package world holds the AI's view of the live entity set: entity snapshots
// from the host, the AI-side roster tags layered on top of them, and the
// commands recorded during a turn.
package world

import (
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/0ad/0ad-sub001/model"
)

type rosterKey struct {
	plan     int
	category int
}

type rosterEntry struct {
	gen uint64
	ids []model.EntityID
}

// Registry is the entity registry shared by every subroutine of one player's AI.
// Roster membership is never stored as a list: it is derived from assignment
// tags and cached until the next tag change or entity removal.
type Registry struct {
	player  model.PlayerID
	enemies map[model.PlayerID]bool
	now     time.Duration

	entities map[model.EntityID]*model.Entity
	ids      []model.EntityID // ascending, for deterministic scans

	assignments map[model.EntityID]model.Assignment
	gen         uint64
	rosters     map[rosterKey]rosterEntry

	territory *model.TerrainGrid
	pop       int
	popMax    int
	templates []model.Template
	events    []model.AttackEvent
	commands  []model.Command
}

func NewRegistry(player model.PlayerID, territory *model.TerrainGrid) *Registry {
	if territory == nil {
		territory = model.NewTerrainGrid(1, 1, 1, 1)
	}
	return &Registry{
		player:      player,
		enemies:     make(map[model.PlayerID]bool),
		entities:    make(map[model.EntityID]*model.Entity),
		assignments: make(map[model.EntityID]model.Assignment),
		rosters:     make(map[rosterKey]rosterEntry),
		territory:   territory,
	}
}

// BeginTurn advances the clock and drops last turn's attack events.
func (r *Registry) BeginTurn(now time.Duration) {
	r.now = now
	r.events = r.events[:0]
}

func (r *Registry) Now() time.Duration            { return r.now }
func (r *Registry) Player() model.PlayerID        { return r.player }
func (r *Registry) Territory() *model.TerrainGrid { return r.territory }

func (r *Registry) SetTerritory(g *model.TerrainGrid) {
	if g != nil {
		r.territory = g
	}
}

// SetEnemy records diplomacy toward p.
func (r *Registry) SetEnemy(p model.PlayerID, enemy bool) {
	if enemy {
		r.enemies[p] = true
		return
	}
	delete(r.enemies, p)
}

func (r *Registry) IsEnemy(p model.PlayerID) bool { return r.enemies[p] }

// Enemies returns enemy players in ascending order.
func (r *Registry) Enemies() []model.PlayerID {
	out := make([]model.PlayerID, 0, len(r.enemies))
	for p := range r.enemies {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) SetPopulation(pop, popMax int) {
	r.pop, r.popMax = pop, popMax
}

func (r *Registry) Population() (pop, popMax int) { return r.pop, r.popMax }

func (r *Registry) SetTemplates(ts []model.Template) {
	r.templates = append([]model.Template(nil), ts...)
}

// Upsert adds or refreshes an entity snapshot. Assignment tags survive refreshes.
func (r *Registry) Upsert(e model.Entity) {
	if cur, ok := r.entities[e.ID]; ok {
		*cur = e
		return
	}
	ent := e
	r.entities[e.ID] = &ent
	i := sort.Search(len(r.ids), func(i int) bool { return r.ids[i] >= e.ID })
	r.ids = slices.Insert(r.ids, i, e.ID)
}

// Remove forgets a dead entity along with its roster tag.
func (r *Registry) Remove(id model.EntityID) {
	if _, ok := r.entities[id]; !ok {
		return
	}
	delete(r.entities, id)
	if i, found := slices.BinarySearch(r.ids, id); found {
		r.ids = slices.Delete(r.ids, i, i+1)
	}
	if _, tagged := r.assignments[id]; tagged {
		delete(r.assignments, id)
		r.gen++
	}
}

// Sync replaces the entity set with a full snapshot, removing anything absent.
func (r *Registry) Sync(entities []model.Entity) {
	alive := make(map[model.EntityID]bool, len(entities))
	for _, e := range entities {
		alive[e.ID] = true
		r.Upsert(e)
	}
	for _, id := range slices.Clone(r.ids) {
		if !alive[id] {
			r.Remove(id)
		}
	}
}

// Mutate applies fn to a live entity in place; hosts use it to move units,
// change health and set orders.
func (r *Registry) Mutate(id model.EntityID, fn func(e *model.Entity)) bool {
	e, ok := r.entities[id]
	if !ok {
		return false
	}
	fn(e)
	return true
}

func (r *Registry) Entity(id model.EntityID) (model.Entity, bool) {
	e, ok := r.entities[id]
	if !ok {
		return model.Entity{}, false
	}
	return *e, true
}

// Query returns live entities accepted by keep, in ascending ID order.
func (r *Registry) Query(keep func(model.Entity) bool) []model.Entity {
	var out []model.Entity
	for _, id := range r.ids {
		e := *r.entities[id]
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) Len() int { return len(r.ids) }

// Assign tags an entity into a roster. Reassigning replaces the old tag.
func (r *Registry) Assign(id model.EntityID, a model.Assignment) {
	if _, ok := r.entities[id]; !ok {
		return
	}
	if cur, ok := r.assignments[id]; ok && cur == a {
		return
	}
	r.assignments[id] = a
	r.gen++
}

func (r *Registry) Unassign(id model.EntityID) {
	if _, ok := r.assignments[id]; !ok {
		return
	}
	delete(r.assignments, id)
	r.gen++
}

func (r *Registry) AssignmentOf(id model.EntityID) (model.Assignment, bool) {
	a, ok := r.assignments[id]
	return a, ok
}

// Members is the derived roster of one category of one plan.
func (r *Registry) Members(plan, category int) []model.Entity {
	key := rosterKey{plan, category}
	entry, ok := r.rosters[key]
	if !ok || entry.gen != r.gen {
		entry = rosterEntry{gen: r.gen}
		for _, id := range r.ids {
			if a, tagged := r.assignments[id]; tagged && a.Plan == plan && a.Category == category {
				entry.ids = append(entry.ids, id)
			}
		}
		r.rosters[key] = entry
	}
	out := make([]model.Entity, 0, len(entry.ids))
	for _, id := range entry.ids {
		out = append(out, *r.entities[id])
	}
	return out
}

// ForgetPlan drops the cached rosters of a retired plan.
func (r *Registry) ForgetPlan(plan int) {
	for key := range r.rosters {
		if key.plan == plan {
			delete(r.rosters, key)
		}
	}
}

// CachedRosters is the number of cached roster views.
func (r *Registry) CachedRosters() int { return len(r.rosters) }

// PlanMembers is the derived roster of every category of one plan.
func (r *Registry) PlanMembers(plan int) []model.Entity {
	var out []model.Entity
	for _, id := range r.ids {
		if a, tagged := r.assignments[id]; tagged && a.Plan == plan {
			out = append(out, *r.entities[id])
		}
	}
	return out
}

// Producible lists templates carrying all of tags whose required structure
// the player owns.
func (r *Registry) Producible(tags model.TagSet) []model.Template {
	var owned model.TagSet
	for _, id := range r.ids {
		e := r.entities[id]
		if e.Owner == r.player && e.Tags.Has(model.Structure) {
			owned |= e.Tags
		}
	}
	var out []model.Template
	for _, t := range r.templates {
		if !t.Tags.HasAll(tags) {
			continue
		}
		if !t.Requires.Empty() && !owned.HasAny(t.Requires) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Template looks up a template by name.
func (r *Registry) Template(name string) (model.Template, bool) {
	for _, t := range r.templates {
		if t.Name == name {
			return t, true
		}
	}
	return model.Template{}, false
}

func (r *Registry) PushEvent(ev model.AttackEvent) {
	r.events = append(r.events, ev)
}

func (r *Registry) AttackEvents() []model.AttackEvent { return r.events }

func (r *Registry) record(c model.Command) {
	r.commands = append(r.commands, c)
	slog.Debug("command recorded", "kind", c.Kind, "units", len(c.Units), "target", c.Target)
}

func (r *Registry) Move(ids []model.EntityID, to model.Vec2) {
	if len(ids) == 0 {
		return
	}
	r.record(model.Command{Kind: model.CmdMove, Units: slices.Clone(ids), Pos: to})
}

func (r *Registry) AttackMove(ids []model.EntityID, to model.Vec2) {
	if len(ids) == 0 {
		return
	}
	r.record(model.Command{Kind: model.CmdAttackMove, Units: slices.Clone(ids), Pos: to})
}

func (r *Registry) Attack(id, target model.EntityID, allowCapture bool) {
	r.record(model.Command{Kind: model.CmdAttack, Units: []model.EntityID{id}, Target: target, AllowCapture: allowCapture})
}

func (r *Registry) Garrison(id, target model.EntityID) {
	r.record(model.Command{Kind: model.CmdGarrison, Units: []model.EntityID{id}, Target: target})
}

func (r *Registry) SetStance(ids []model.EntityID, s model.Stance) {
	if len(ids) == 0 {
		return
	}
	r.record(model.Command{Kind: model.CmdStance, Units: slices.Clone(ids), Stance: s})
}

func (r *Registry) Gather(id model.EntityID, res model.ResourceType) {
	r.record(model.Command{Kind: model.CmdGather, Units: []model.EntityID{id}, Resource: res})
}

func (r *Registry) Produce(template string, count int, label string) {
	r.record(model.Command{Kind: model.CmdProduce, Template: template, Count: count, Label: label})
}

// DrainCommands hands this turn's commands to the host and clears the buffer.
func (r *Registry) DrainCommands() []model.Command {
	out := r.commands
	r.commands = nil
	return out
}
