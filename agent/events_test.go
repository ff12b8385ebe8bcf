package agent

import (
	"testing"

	"github.com/0ad/0ad-sub001/model"
)

func hostile(p model.PlayerID) bool { return p == enemy }

// baseGameState returns a minimal game state for testing.
func baseGameState(tick int) model.GameState {
	gs := model.GameState{
		Tick:   tick,
		Player: model.Player{ID: us, Pop: 10, PopMax: 50},
		Entities: []model.Entity{
			{ID: 1, Owner: us, Template: "civil_centre", Tags: model.Tags(model.Structure, model.CivCentre, model.ConquestCritical), HP: 3000, MaxHP: 3000},
			{ID: 2, Owner: us, Template: "house", Tags: model.Tags(model.Structure, model.House), HP: 800, MaxHP: 800},
			{ID: 3, Owner: us, Template: "female", Tags: model.Tags(model.Infantry, model.Worker), HP: 50, MaxHP: 50},
		},
	}
	for i := model.EntityID(10); i < 18; i++ {
		gs.Entities = append(gs.Entities, model.Entity{
			ID: i, Owner: us, Template: "spearman", Pos: model.Vec2{X: 100, Y: 100},
			Tags: model.Tags(model.Infantry, model.Melee), HP: 100, MaxHP: 100,
		})
	}
	return gs
}

func hasEvent(events []Event, kind EventKind) bool {
	for _, e := range events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func without(gs model.GameState, ids ...model.EntityID) model.GameState {
	drop := make(map[model.EntityID]bool)
	for _, id := range ids {
		drop[id] = true
	}
	var kept []model.Entity
	for _, e := range gs.Entities {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	gs.Entities = kept
	return gs
}

func TestDetectEvents_NilPrev(t *testing.T) {
	cur := takeSnapshot(baseGameState(100), hostile)
	if events := detectEvents(&cur, nil); events != nil {
		t.Errorf("expected nil events for nil prev, got %+v", events)
	}
}

func TestDetectEvents(t *testing.T) {
	tests := []struct {
		name string
		next func(gs model.GameState) model.GameState
		want []EventKind
	}{
		{
			name: "no change",
			next: func(gs model.GameState) model.GameState { return gs },
		},
		{
			name: "critical structure lost",
			next: func(gs model.GameState) model.GameState { return without(gs, 1) },
			want: []EventKind{EventCriticalStructureLost},
		},
		{
			name: "house lost is not critical",
			next: func(gs model.GameState) model.GameState { return without(gs, 2) },
		},
		{
			name: "army devastated",
			next: func(gs model.GameState) model.GameState { return without(gs, 10, 11, 12, 13, 14) },
			want: []EventKind{EventArmyDevastated},
		},
		{
			name: "half the army is not devastated",
			next: func(gs model.GameState) model.GameState { return without(gs, 10, 11, 12, 13) },
		},
		{
			name: "first contact",
			next: func(gs model.GameState) model.GameState {
				gs.Entities = append(gs.Entities, model.Entity{ID: 90, Owner: enemy, Tags: model.Tags(model.Cavalry)})
				return gs
			},
			want: []EventKind{EventFirstContact},
		},
		{
			name: "gaia is not contact",
			next: func(gs model.GameState) model.GameState {
				gs.Entities = append(gs.Entities, model.Entity{ID: 90, Owner: 0, Tags: model.Tags(model.Structure)})
				return gs
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := baseGameState(100)
			prev := takeSnapshot(gs, hostile)
			next := tt.next(gs)
			next.Tick = 101
			cur := takeSnapshot(next, hostile)
			events := detectEvents(&cur, &prev)
			if len(events) != len(tt.want) {
				t.Fatalf("events = %+v, want kinds %v", events, tt.want)
			}
			for _, k := range tt.want {
				if !hasEvent(events, k) {
					t.Errorf("missing %s in %+v", k, events)
				}
			}
		})
	}
}

func TestDetectEvents_ArmyDevastated_BelowFloor(t *testing.T) {
	gs := without(baseGameState(100), 10, 11, 12, 13)
	prev := takeSnapshot(gs, hostile)
	cur := takeSnapshot(without(gs, 14, 15, 16), hostile)
	if hasEvent(detectEvents(&cur, &prev), EventArmyDevastated) {
		t.Error("did not expect army_devastated below floor")
	}
}

func TestDetectAttacks(t *testing.T) {
	gs := baseGameState(100)
	prev := takeSnapshot(gs, hostile)
	if got := detectAttacks(gs, nil, hostile); got != nil {
		t.Fatalf("attacks without a previous snapshot: %+v", got)
	}

	gs.Tick = 101
	gs.Entities[3].HP = 60 // spearman 10
	gs.Entities[4].HP = 20 // spearman 11
	gs.Entities[5].HP = 120
	gs.Entities = append(gs.Entities,
		model.Entity{ID: 90, Owner: enemy, Pos: model.Vec2{X: 130, Y: 100}, Tags: model.Tags(model.Cavalry)},
		model.Entity{ID: 91, Owner: enemy, Pos: model.Vec2{X: 110, Y: 100}, Tags: model.Tags(model.Infantry)},
		model.Entity{ID: 92, Owner: enemy, Pos: model.Vec2{X: 101, Y: 100}, Tags: model.Tags(model.Structure, model.Tower)},
	)
	got := detectAttacks(gs, &prev, hostile)
	if len(got) != 2 {
		t.Fatalf("attacks = %+v, want 2", got)
	}
	for _, ev := range got {
		if ev.Attacker != 91 {
			t.Errorf("attack on %d blamed on %d, want nearest unit 91", ev.Target, ev.Attacker)
		}
	}
	if got[0].Target != 10 || got[1].Target != 11 {
		t.Errorf("targets = %d, %d", got[0].Target, got[1].Target)
	}
}

func TestDetectAttacks_NoHostileInRange(t *testing.T) {
	gs := baseGameState(100)
	prev := takeSnapshot(gs, hostile)
	gs.Entities[3].HP = 10
	gs.Entities = append(gs.Entities, model.Entity{ID: 90, Owner: enemy, Pos: model.Vec2{X: 900, Y: 900}})
	got := detectAttacks(gs, &prev, hostile)
	if len(got) != 1 || got[0].Attacker != 0 {
		t.Errorf("attacks = %+v, want one with unknown attacker", got)
	}
}
