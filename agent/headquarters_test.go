package agent

import (
	"testing"
	"time"

	"github.com/0ad/0ad-sub001/economy"
	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/model"
	"github.com/0ad/0ad-sub001/pathing"
	"github.com/0ad/0ad-sub001/rules"
	"github.com/0ad/0ad-sub001/world"
)

const (
	us    model.PlayerID = 1
	enemy model.PlayerID = 2
)

// newMatch is a 200x200 open map with one base per player.
func newMatch() (*world.Registry, *model.TerrainGrid) {
	grid := model.NewTerrainGrid(20, 20, 10, 10)
	reg := world.NewRegistry(us, grid)
	reg.SetEnemy(enemy, true)
	reg.SetPopulation(20, 100)
	reg.Upsert(model.Entity{ID: 1, Owner: us, Pos: model.Vec2{X: 20, Y: 20}, Tags: model.Tags(model.Structure, model.CivCentre)})
	reg.Upsert(model.Entity{ID: 2, Owner: enemy, Pos: model.Vec2{X: 175, Y: 175},
		Tags: model.Tags(model.Structure, model.CivCentre, model.ConquestCritical), HP: 3000, MaxHP: 3000})
	reg.SetTemplates([]model.Template{
		{Name: "spearman", Tags: model.Tags(model.Infantry, model.Melee), Strength: 5, Cost: model.NewResourceVector(50, 50, 0, 0)},
	})
	return reg, grid
}

func rushProfile() military.Profile {
	p := military.DefaultProfile(military.Rush)
	p.PrepBase, p.PrepJitter, p.PrepFloor = 100*time.Second, 0, 10*time.Second
	p.CorridorWidths = []float64{8, 2}
	p.Categories = []military.CategorySpec{{
		Name: "melee", Tags: model.Tags(model.Infantry, model.Melee), Priority: 1, MinSize: 2, TargetSize: 2, BatchSize: 2,
		Weights: []military.Weight{{Criterion: military.CritStrength, Weight: 1}},
	}}
	return p
}

func newHQ(t *testing.T, reg *world.Registry, grid *model.TerrainGrid, cond string, bases ...economy.BaseManager) *Headquarters {
	t.Helper()
	engine, err := rules.NewEngine([]*rules.Trigger{{Name: "rush", Campaign: military.Rush, Priority: 1, ConditionSrc: cond}})
	if err != nil {
		t.Fatal(err)
	}
	return NewHeadquarters(reg, engine, Options{
		NewPathFinder: func() military.PathFinder { return pathing.New(grid) },
		Seed:          1,
		Bases:         bases,
		Profiles:      map[military.CampaignType]military.Profile{military.Rush: rushProfile()},
	})
}

func turn(reg *world.Registry, hq *Headquarters, n int) {
	reg.BeginTurn(time.Duration(n) * time.Second)
	hq.Update(model.NewResourceVector(500, 500, 0, 0))
}

func TestHeadquartersLaunchesCampaign(t *testing.T) {
	reg, grid := newMatch()
	reg.Upsert(model.Entity{ID: 10, Owner: us, Pos: model.Vec2{X: 30, Y: 30}, Tags: model.Tags(model.Infantry, model.Melee), HP: 100, MaxHP: 100})
	reg.Upsert(model.Entity{ID: 11, Owner: us, Pos: model.Vec2{X: 32, Y: 30}, Tags: model.Tags(model.Infantry, model.Melee), HP: 100, MaxHP: 100})
	hq := newHQ(t, reg, grid, `Launched("Rush") == 0`)

	turn(reg, hq, 1)
	if got := len(hq.Upcoming()); got != 1 {
		t.Fatalf("upcoming after first turn = %d, want 1", got)
	}
	turn(reg, hq, 2)
	if len(hq.Upcoming()) != 0 || len(hq.Started()) != 1 {
		t.Fatalf("upcoming=%d started=%d, want 0/1", len(hq.Upcoming()), len(hq.Started()))
	}
	p := hq.Started()[0]
	if p.State() != military.Walking {
		t.Errorf("started plan state = %v, want Walking", p.State())
	}
	if got := len(p.Roster(reg)); got != 2 {
		t.Errorf("roster = %d, want 2", got)
	}

	stats := hq.Stats()
	if stats.Launched[military.Rush] != 1 || stats.ByState[military.Walking] != 1 {
		t.Errorf("stats = %+v", stats)
	}
	turn(reg, hq, 3)
	if got := len(hq.Upcoming()); got != 0 {
		t.Errorf("trigger refired after launch: %d upcoming", got)
	}
}

func TestHeadquartersOnePlanPerType(t *testing.T) {
	reg, grid := newMatch()
	hq := newHQ(t, reg, grid, `true`)
	for i := 1; i <= 4; i++ {
		turn(reg, hq, i)
	}
	if got := len(hq.Upcoming()); got != 1 {
		t.Fatalf("upcoming = %d, want 1", got)
	}
	if _, ok := hq.Env().Queues.Get("plan-1"); !ok {
		t.Error("plan queue not created")
	}

	hq.PauseAll()
	p := hq.Upcoming()[0]
	if !p.Paused() {
		t.Fatal("PauseAll did not pause")
	}
	turn(reg, hq, 5)
	if p.State() != military.Preparing || !p.Paused() {
		t.Errorf("paused plan changed: %v paused=%v", p.State(), p.Paused())
	}
	hq.UnpauseAll()
	if p.Paused() {
		t.Error("UnpauseAll did not unpause")
	}
}

func TestHeadquartersBlocksUnreachablePlayer(t *testing.T) {
	reg, grid := newMatch()
	// wall the enemy corner off
	for i := 15; i < 20; i++ {
		grid.Set(i, 15, model.Cliff)
		grid.Set(15, i, model.Cliff)
	}
	hq := newHQ(t, reg, grid, `true`)
	for i := 1; i <= 6 && !hq.Blocked(enemy); i++ {
		turn(reg, hq, i)
	}
	if !hq.Blocked(enemy) {
		t.Fatal("enemy not blocked after unreachable abort")
	}
	stats := hq.Stats()
	if len(stats.Finished) != 1 || stats.Finished[0].Reason != military.ReasonNoPath || stats.Finished[0].State != military.Aborted {
		t.Fatalf("finished = %+v", stats.Finished)
	}
	if _, ok := hq.Env().Queues.Get("plan-1"); ok {
		t.Error("aborted plan kept its queue")
	}

	for i := 7; i <= 10; i++ {
		turn(reg, hq, i)
	}
	if n := len(hq.Upcoming()) + len(hq.Started()); n != 0 {
		t.Errorf("campaign started against a blocked player: %d plans", n)
	}
}

func TestHeadquartersBacksOffWithoutTarget(t *testing.T) {
	reg, grid := newMatch()
	reg.Remove(2)
	reg.Upsert(model.Entity{ID: 20, Owner: enemy, Pos: model.Vec2{X: 175, Y: 175}, Tags: model.Tags(model.Infantry, model.Melee), HP: 100, MaxHP: 100})
	hq := newHQ(t, reg, grid, `true`)

	for i := 1; i <= 100; i++ {
		turn(reg, hq, i)
	}
	stats := hq.Stats()
	if len(stats.Finished) != 2 {
		t.Fatalf("finished = %d plans in 100s, want 2 with a one minute backoff", len(stats.Finished))
	}
	for _, f := range stats.Finished {
		if f.Reason != military.ReasonNoTarget {
			t.Errorf("plan %d reason = %v", f.ID, f.Reason)
		}
	}
	if hq.Blocked(enemy) {
		t.Error("missing target blocked the player for good")
	}
	if n := reg.CachedRosters(); n != 0 {
		t.Errorf("retired plans left %d cached rosters", n)
	}

	reg.Upsert(model.Entity{ID: 2, Owner: enemy, Pos: model.Vec2{X: 175, Y: 175},
		Tags: model.Tags(model.Structure, model.CivCentre, model.ConquestCritical), HP: 3000, MaxHP: 3000})
	turn(reg, hq, 101)
	if got := len(hq.Upcoming()); got != 1 {
		t.Errorf("upcoming = %d after a target appeared, want backoff lifted", got)
	}
}

func TestHeadquartersCapsHistory(t *testing.T) {
	reg, grid := newMatch()
	reg.Remove(2)
	engine, err := rules.NewEngine([]*rules.Trigger{{Name: "rush", Campaign: military.Rush, Priority: 1, ConditionSrc: `true`}})
	if err != nil {
		t.Fatal(err)
	}
	hq := NewHeadquarters(reg, engine, Options{
		NewPathFinder:   func() military.PathFinder { return pathing.New(grid) },
		Profiles:        map[military.CampaignType]military.Profile{military.Rush: rushProfile()},
		NoTargetBackoff: time.Millisecond,
	})
	for i := 1; i <= 100; i++ {
		turn(reg, hq, i)
	}
	finished := hq.Stats().Finished
	if len(finished) != maxFinished {
		t.Fatalf("history = %d, want %d", len(finished), maxFinished)
	}
	if last := finished[len(finished)-1].ID; last != 100 {
		t.Errorf("newest retired plan = %d, want 100", last)
	}
}

func TestHeadquartersRoutesAttackEvents(t *testing.T) {
	reg, grid := newMatch()
	reg.Upsert(model.Entity{ID: 10, Owner: us, Pos: model.Vec2{X: 30, Y: 30}, Tags: model.Tags(model.Infantry, model.Melee), HP: 100, MaxHP: 100})
	reg.Upsert(model.Entity{ID: 11, Owner: us, Pos: model.Vec2{X: 32, Y: 30}, Tags: model.Tags(model.Infantry, model.Melee), HP: 100, MaxHP: 100})
	hq := newHQ(t, reg, grid, `Launched("Rush") == 0`)
	turn(reg, hq, 1)
	turn(reg, hq, 2)
	reg.DrainCommands()

	reg.BeginTurn(3 * time.Second)
	reg.PushEvent(model.AttackEvent{Target: 10, Attacker: 50, Pos: model.Vec2{X: 30, Y: 30}})
	hq.Update(model.ResourceVector{})

	found := false
	for _, c := range reg.DrainCommands() {
		if c.Kind == model.CmdAttack && c.Target == 50 && len(c.Units) == 1 && c.Units[0] == 10 {
			found = true
		}
	}
	if !found {
		t.Error("attacked idle soldier did not retaliate")
	}
}

type fakeBase struct {
	id        int
	idle      []model.EntityID
	dropsites map[model.ResourceType]bool
	assigned  []model.EntityID
}

func (b *fakeBase) ID() int                               { return b.id }
func (b *fakeBase) GatherRates() model.ResourceVector     { return model.ResourceVector{} }
func (b *fakeBase) IdleWorkers() []model.EntityID         { return b.idle }
func (b *fakeBase) HasDropsite(r model.ResourceType) bool { return b.dropsites[r] }

func (b *fakeBase) Assign(w model.EntityID, r model.ResourceType) bool {
	b.assigned = append(b.assigned, w)
	return true
}

func TestHeadquartersRebalancesOneBasePerTurn(t *testing.T) {
	reg, grid := newMatch()
	food := map[model.ResourceType]bool{model.Food: true}
	a := &fakeBase{id: 1, idle: []model.EntityID{100, 101, 102}, dropsites: food}
	b := &fakeBase{id: 2, idle: []model.EntityID{200}, dropsites: food}
	hq := newHQ(t, reg, grid, `false`, a, b)

	turn(reg, hq, 1)
	if len(a.assigned) != 2 || len(b.assigned) != 0 {
		t.Fatalf("turn 1: a=%v b=%v", a.assigned, b.assigned)
	}
	turn(reg, hq, 2)
	if len(b.assigned) != 1 {
		t.Fatalf("turn 2: b=%v", b.assigned)
	}
	turn(reg, hq, 3)
	if len(a.assigned) != 4 {
		t.Errorf("turn 3 did not wrap to the first base: a=%v", a.assigned)
	}
}

func TestExpansionNeed(t *testing.T) {
	reg, grid := newMatch()
	base := &fakeBase{id: 1, dropsites: map[model.ResourceType]bool{model.Food: true, model.Wood: true}}
	hq := newHQ(t, reg, grid, `false`, base)
	hq.Env().Queues.Ensure("economy", 1).AddItem(&economy.Request{Template: "tower", Count: 1, Cost: model.NewResourceVector(0, 0, 500, 0)})

	turn(reg, hq, 1)
	r, ok := hq.ExpansionNeed()
	if !ok || r != model.Stone {
		t.Errorf("ExpansionNeed = %v, %v; want stone", r, ok)
	}

	base.dropsites[model.Stone] = true
	if r, ok := hq.ExpansionNeed(); ok {
		t.Errorf("ExpansionNeed = %v with every need covered", r)
	}
}
