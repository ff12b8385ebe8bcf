package agent

import (
	"fmt"

	"github.com/0ad/0ad-sub001/model"
)

// EventKind identifies a notable change between two consecutive snapshots.
type EventKind string

const (
	EventCriticalStructureLost EventKind = "critical_structure_lost"
	EventArmyDevastated        EventKind = "army_devastated"
	EventFirstContact          EventKind = "first_contact"
)

// Event is logged by the sidecar so a match log explains campaign decisions.
type Event struct {
	Kind   EventKind
	Tick   int
	Detail string
}

// attackerRadius bounds how far from a damaged unit an enemy is blamed for it.
const attackerRadius = 80.0

// stateSnapshot captures the diffable fields of one game state.
type stateSnapshot struct {
	tick        int
	hp          map[model.EntityID]float64 // our entities' health
	critical    map[model.EntityID]string  // our conquest-critical structures
	combatCount int
	enemiesSeen bool
}

func isCombatUnit(e model.Entity) bool {
	return !e.Tags.HasAny(model.Tags(model.Structure, model.Worker, model.Trader))
}

// takeSnapshot records our side of gs. isEnemy classifies other owners.
func takeSnapshot(gs model.GameState, isEnemy func(model.PlayerID) bool) stateSnapshot {
	snap := stateSnapshot{
		tick:     gs.Tick,
		hp:       make(map[model.EntityID]float64),
		critical: make(map[model.EntityID]string),
	}
	for _, e := range gs.Entities {
		if e.Owner != gs.Player.ID {
			if isEnemy(e.Owner) {
				snap.enemiesSeen = true
			}
			continue
		}
		snap.hp[e.ID] = e.HP
		if e.Tags.HasAll(model.Tags(model.Structure, model.ConquestCritical)) {
			snap.critical[e.ID] = e.Template
		}
		if isCombatUnit(e) {
			snap.combatCount++
		}
	}
	return snap
}

// detectAttacks turns health drops of our entities into attack events. The
// attacker is the nearest visible enemy unit within attackerRadius, or zero.
func detectAttacks(gs model.GameState, prev *stateSnapshot, isEnemy func(model.PlayerID) bool) []model.AttackEvent {
	if prev == nil {
		return nil
	}
	var hostiles []model.Entity
	for _, e := range gs.Entities {
		if e.Owner != gs.Player.ID && isEnemy(e.Owner) && !e.Tags.Has(model.Structure) {
			hostiles = append(hostiles, e)
		}
	}
	var events []model.AttackEvent
	for _, e := range gs.Entities {
		if e.Owner != gs.Player.ID {
			continue
		}
		was, ok := prev.hp[e.ID]
		if !ok || e.HP >= was {
			continue
		}
		events = append(events, model.AttackEvent{
			Target:   e.ID,
			Attacker: nearestHostile(hostiles, e.Pos),
			Pos:      e.Pos,
		})
	}
	return events
}

func nearestHostile(hostiles []model.Entity, at model.Vec2) model.EntityID {
	var best model.EntityID
	bestD := attackerRadius * attackerRadius
	for _, h := range hostiles {
		if d := h.Pos.DistSq(at); d <= bestD {
			best, bestD = h.ID, d
		}
	}
	return best
}

// detectEvents compares cur against the previous snapshot. Returns nil if
// prev is nil (first tick).
func detectEvents(cur, prev *stateSnapshot) []Event {
	if prev == nil {
		return nil
	}
	var events []Event

	for id, name := range prev.critical {
		if _, ok := cur.critical[id]; !ok {
			events = append(events, Event{
				Kind:   EventCriticalStructureLost,
				Tick:   cur.tick,
				Detail: fmt.Sprintf("lost %s (id %d)", name, id),
			})
			break
		}
	}

	// more than half the army gone in one step, with a floor of 6 to avoid early noise
	if prev.combatCount >= 6 {
		lost := prev.combatCount - cur.combatCount
		if lost > 0 && float64(lost)/float64(prev.combatCount) > 0.5 {
			events = append(events, Event{
				Kind:   EventArmyDevastated,
				Tick:   cur.tick,
				Detail: fmt.Sprintf("combat units %d -> %d", prev.combatCount, cur.combatCount),
			})
		}
	}

	if !prev.enemiesSeen && cur.enemiesSeen {
		events = append(events, Event{Kind: EventFirstContact, Tick: cur.tick, Detail: "enemy units visible"})
	}
	return events
}
