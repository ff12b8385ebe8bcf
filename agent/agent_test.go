package agent

import (
	"errors"
	"testing"

	"github.com/0ad/0ad-sub001/economy"
	"github.com/0ad/0ad-sub001/ipc"
	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/model"
	"github.com/0ad/0ad-sub001/rules"
)

func envelope(t *testing.T, typ string, v any) ipc.Envelope {
	t.Helper()
	env, err := ipc.NewEnvelope(typ, v)
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func helloAgent(t *testing.T) *Agent {
	t.Helper()
	engine, err := rules.NewEngine([]*rules.Trigger{{Name: "never", Campaign: military.Standard, ConditionSrc: `false`}})
	if err != nil {
		t.Fatal(err)
	}
	a := New(nil, engine, Options{})
	hello := ipc.HelloMessage{
		Player:  us,
		Name:    "athenians",
		Enemies: []model.PlayerID{enemy},
		Terrain: &ipc.TerrainData{Cols: 4, Rows: 4, CellW: 50, CellH: 50, Grid: make([]int, 16)},
		Templates: []ipc.TemplateData{
			{Name: "spearman", Tags: model.Tags(model.Infantry, model.Melee), Cost: model.NewResourceVector(50, 50, 0, 0)},
		},
	}
	reply, err := a.HandleHello(envelope(t, ipc.TypeHello, hello))
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Type != ipc.TypeAck {
		t.Fatalf("hello reply = %+v", reply)
	}
	return a
}

func snapshot(tick int, workerHP float64) model.GameState {
	return model.GameState{
		Tick:   tick,
		TimeMs: int64(tick) * 200,
		Player: model.Player{ID: us, Pop: 5, PopMax: 50, Stock: model.NewResourceVector(100, 100, 0, 0)},
		Entities: []model.Entity{
			{ID: 1, Owner: us, Pos: model.Vec2{X: 20, Y: 20}, Tags: model.Tags(model.Structure, model.CivCentre)},
			{ID: 3, Owner: us, Pos: model.Vec2{X: 30, Y: 20}, Tags: model.Tags(model.Infantry, model.Worker), HP: workerHP, MaxHP: 50},
		},
		Bases:     []model.BaseState{{ID: 1, Dropsites: []model.ResourceType{model.Food}, Workers: []model.EntityID{3}}},
		Territory: make([]model.PlayerID, 16),
	}
}

func TestGameStateBeforeHello(t *testing.T) {
	a := New(nil, nil, Options{})
	_, err := a.HandleGameState(envelope(t, ipc.TypeGameState, snapshot(1, 50)))
	if !errors.Is(err, ErrNoHello) {
		t.Errorf("err = %v, want ErrNoHello", err)
	}
}

func TestGameStateRepliesWithCommands(t *testing.T) {
	a := helloAgent(t)
	a.Headquarters().Env().Queues.Ensure("economy", 1).AddItem(&economy.Request{
		Template: "house", Count: 1, Cost: model.NewResourceVector(0, 80, 0, 0),
	})

	reply, err := a.HandleGameState(envelope(t, ipc.TypeGameState, snapshot(1, 50)))
	if err != nil {
		t.Fatal(err)
	}
	if reply.Type != ipc.TypeCommands {
		t.Fatalf("reply type = %s", reply.Type)
	}
	var msg ipc.CommandsMessage
	if err := reply.Decode(&msg); err != nil {
		t.Fatal(err)
	}
	var gather, produce bool
	for _, c := range msg.Commands {
		switch c.Type {
		case ipc.TypeGather:
			gather = len(c.ActorIDs) == 1 && c.ActorIDs[0] == 3 && c.Resource == string(model.Food)
		case ipc.TypeProduce:
			produce = c.Item == "house" && c.Count == 1
		}
	}
	if !gather || !produce {
		t.Errorf("commands = %+v, want gather and produce", msg.Commands)
	}
	if msg.Tick != 1 {
		t.Errorf("tick = %d", msg.Tick)
	}
}

func TestGameStateDiffsHealthIntoAttacks(t *testing.T) {
	a := helloAgent(t)
	if _, err := a.HandleGameState(envelope(t, ipc.TypeGameState, snapshot(1, 50))); err != nil {
		t.Fatal(err)
	}
	if _, err := a.HandleGameState(envelope(t, ipc.TypeGameState, snapshot(2, 30))); err != nil {
		t.Fatal(err)
	}
	events := a.reg.AttackEvents()
	if len(events) != 1 || events[0].Target != 3 {
		t.Errorf("attack events = %+v", events)
	}
}

func TestProduceSkipsSetAsideResources(t *testing.T) {
	a := helloAgent(t)
	q := a.Headquarters().Env().Queues.Ensure("economy", 1)
	q.AddItem(&economy.Request{Template: "barracks", Count: 1, Cost: model.NewResourceVector(0, 300, 0, 0)})

	// two turns on the same 100 wood must not pay 200 towards the barracks
	a.HandleGameState(envelope(t, ipc.TypeGameState, snapshot(1, 50)))
	a.HandleGameState(envelope(t, ipc.TypeGameState, snapshot(2, 50)))
	if got := q.Pending()[0].Accumulated.Get(model.Wood); got != 100 {
		t.Errorf("accumulated wood = %v, want 100", got)
	}
}

func TestTrainedUnitsJoinTheirCategory(t *testing.T) {
	a := helloAgent(t)
	q := a.Headquarters().Env().Queues.Ensure("plan-1", 1)
	q.AddItem(&economy.Request{
		Template: "spearman", Count: 1, Cost: model.NewResourceVector(50, 50, 0, 0),
		Label: "plan-1/cat-0", Assign: &model.Assignment{Plan: 1, Category: 0},
	})

	reply, err := a.HandleGameState(envelope(t, ipc.TypeGameState, snapshot(1, 50)))
	if err != nil {
		t.Fatal(err)
	}
	var msg ipc.CommandsMessage
	if err := reply.Decode(&msg); err != nil {
		t.Fatal(err)
	}
	var label string
	for _, c := range msg.Commands {
		if c.Type == ipc.TypeProduce && c.Item == "spearman" {
			label = c.Label
		}
	}
	if label != "plan-1/cat-0" {
		t.Fatalf("produce label = %q, commands = %+v", label, msg.Commands)
	}
	if got := q.CountQueuedUnitsWithTag("plan-1/cat-0"); got != 1 {
		t.Errorf("queued while training = %d, want 1", got)
	}

	gs := snapshot(2, 50)
	gs.Entities = append(gs.Entities, model.Entity{
		ID: 9, Owner: us, Template: "spearman", Pos: model.Vec2{X: 25, Y: 25},
		Tags: model.Tags(model.Infantry, model.Melee), HP: 100, MaxHP: 100,
	})
	if _, err := a.HandleGameState(envelope(t, ipc.TypeGameState, gs)); err != nil {
		t.Fatal(err)
	}
	if got, ok := a.reg.AssignmentOf(9); !ok || got != (model.Assignment{Plan: 1, Category: 0}) {
		t.Errorf("assignment = %+v, %v", got, ok)
	}
	if got := q.CountQueuedUnitsWithTag("plan-1/cat-0"); got != 0 {
		t.Errorf("queued after spawn = %d, want 0", got)
	}
}

func TestHubForwardsProfiles(t *testing.T) {
	hub := NewHub()
	a := helloAgent(t)
	hub.Add(a)
	prof := military.DefaultProfile(military.Raid)
	prof.MaxRetargets = 1
	hub.SetProfiles(map[military.CampaignType]military.Profile{military.Raid: prof})
	if got := a.Headquarters().profile(military.Raid).MaxRetargets; got != 1 {
		t.Errorf("forwarded profile MaxRetargets = %d", got)
	}
	hub.Remove(a)
	if hub.Len() != 0 {
		t.Errorf("hub len = %d after remove", hub.Len())
	}
}

func TestHubSwapsTriggers(t *testing.T) {
	hub := NewHub()
	a := helloAgent(t)
	hub.Add(a)
	if err := hub.SwapTriggers([]*rules.Trigger{{Name: "always", Campaign: military.Raid, ConditionSrc: `true`}}); err != nil {
		t.Fatal(err)
	}
	if ts := a.Engine.Triggers(); len(ts) != 1 || ts[0].Name != "always" {
		t.Errorf("triggers after swap = %+v", ts)
	}
	if err := hub.SwapTriggers([]*rules.Trigger{{Name: "broken", ConditionSrc: `Minutes( >`}}); err == nil {
		t.Error("broken trigger set accepted")
	}
	if ts := a.Engine.Triggers(); ts[0].Name != "always" {
		t.Errorf("failed swap replaced triggers: %+v", ts)
	}
}
