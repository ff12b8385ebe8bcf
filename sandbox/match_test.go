package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/0ad/0ad-sub001/economy"
	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/model"
	"github.com/0ad/0ad-sub001/rules"
)

const (
	p1 model.PlayerID = 1
	p2 model.PlayerID = 2
)

func rushTrigger(cond string) []*rules.Trigger {
	return []*rules.Trigger{{Name: "rush", Campaign: military.Rush, Priority: 1, ConditionSrc: cond}}
}

func rushProfile() map[military.CampaignType]military.Profile {
	p := military.DefaultProfile(military.Rush)
	p.PrepBase, p.PrepJitter, p.PrepFloor = 100*time.Second, 0, 10*time.Second
	p.Categories = []military.CategorySpec{{
		Name: "melee", Tags: model.Tags(model.Infantry, model.Melee), Priority: 1, MinSize: 2, TargetSize: 2, BatchSize: 2,
		Weights: []military.Weight{{Criterion: military.CritStrength, Weight: 1}},
	}}
	return map[military.CampaignType]military.Profile{military.Rush: p}
}

// newMatch is an open 400x400 map with an AI in one corner and a passive
// opponent in the other.
func newMatch(t *testing.T, cond string, mutate func(*Config)) *Match {
	t.Helper()
	cfg := Config{
		Seed: 1,
		Players: []PlayerSetup{
			{ID: p1, Name: "athenians", Home: model.Vec2{X: 50, Y: 50}, Stock: model.NewResourceVector(300, 300, 0, 0), Workers: 2, Soldiers: 2},
			{ID: p2, Name: "persians", Home: model.Vec2{X: 350, Y: 350}, Passive: true},
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := New(cfg, rushTrigger(cond), rushProfile())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func (m *Match) find(keep func(*unit) bool) *unit {
	for _, id := range m.ids {
		if u := m.units[id]; keep(u) {
			return u
		}
	}
	return nil
}

func TestNewNeedsTwoPlayers(t *testing.T) {
	_, err := New(Config{Players: []PlayerSetup{{ID: p1}}}, nil, nil)
	if !errors.Is(err, ErrNoPlayers) {
		t.Errorf("err = %v, want ErrNoPlayers", err)
	}
}

func TestNewRejectsUnknownStructure(t *testing.T) {
	_, err := New(Config{Players: []PlayerSetup{
		{ID: p1, Structures: []string{"Wonder"}},
		{ID: p2},
	}}, rushTrigger(`false`), nil)
	if err == nil {
		t.Fatal("unknown structure accepted")
	}
}

func TestLayoutClaimsTerritory(t *testing.T) {
	m := newMatch(t, `false`, nil)
	if got := m.Grid().OwnerAt(model.Vec2{X: 50, Y: 50}); got != p1 {
		t.Errorf("owner at p1 home = %d", got)
	}
	if got := m.Grid().OwnerAt(model.Vec2{X: 200, Y: 200}); got != 0 {
		t.Errorf("owner at map centre = %d, want gaia", got)
	}
	res := m.Result()
	if res.Players[0].Units != 4 || res.Players[0].Structures != 1 {
		t.Errorf("p1 start = %d units %d structures", res.Players[0].Units, res.Players[0].Structures)
	}
	if res.Players[1].Stats != nil {
		t.Error("passive player has headquarters stats")
	}
}

func TestWorkersAreAssignedAndGather(t *testing.T) {
	m := newMatch(t, `false`, nil)
	before := m.Stock(p1).Total()
	for i := 0; i < 5; i++ {
		m.Step()
	}
	if got := m.Stock(p1).Total(); got <= before {
		t.Errorf("stock %v did not grow from %v", got, before)
	}
	for _, e := range m.Entities() {
		if e.Owner == p1 && e.Tags.Has(model.Worker) && e.Order.Kind != model.OrderGather {
			t.Errorf("worker %d order = %v", e.ID, e.Order.Kind)
		}
	}
}

func TestCombatRecordsAttackEvents(t *testing.T) {
	m := newMatch(t, `false`, nil)
	spear := m.templates["spearman"]
	a := m.spawnUnit(p1, spear, model.Vec2{X: 200, Y: 200})
	b := m.spawnUnit(p2, spear, model.Vec2{X: 203, Y: 200})

	m.Step()
	if a.HP >= a.MaxHP || b.HP >= b.MaxHP {
		t.Fatalf("hp after a step = %v / %v", a.HP, b.HP)
	}
	m.Step()
	var seen bool
	for _, ev := range m.Registry(p1).AttackEvents() {
		if ev.Target == a.ID && ev.Attacker == b.ID {
			seen = true
		}
	}
	if !seen {
		t.Errorf("p1 attack events = %+v", m.Registry(p1).AttackEvents())
	}
}

func TestDeadUnitsAreRemoved(t *testing.T) {
	m := newMatch(t, `false`, nil)
	spear := m.templates["spearman"]
	victim := m.spawnUnit(p2, spear, model.Vec2{X: 200, Y: 200})
	victim.HP = 1
	m.spawnUnit(p1, spear, model.Vec2{X: 203, Y: 200})
	m.Step()
	if _, ok := m.units[victim.ID]; ok {
		t.Error("dead unit still in the match")
	}
	m.Step()
	if _, ok := m.Registry(p1).Entity(victim.ID); ok {
		t.Error("dead unit still in the registry")
	}
}

func TestTrainingTagsRoster(t *testing.T) {
	m := newMatch(t, `false`, nil)
	s := m.side(p1)
	a := model.Assignment{Plan: 7, Category: 0}
	req := &economy.Request{Template: "spearman", Count: 2, Assign: &a}
	if !m.enqueue(s, req) {
		t.Fatal("request refused")
	}
	for i := 0; i < 20; i++ {
		m.Step()
	}
	if got := len(m.Registry(p1).Members(7, 0)); got != 2 {
		t.Errorf("roster after training = %d, want 2", got)
	}
}

func TestPopulationCapHoldsRequest(t *testing.T) {
	m := newMatch(t, `false`, func(c *Config) { c.Players[0].PopMax = 5 })
	s := m.side(p1)
	if m.enqueue(s, &economy.Request{Template: "spearman", Count: 2}) {
		t.Error("request over the population cap accepted")
	}
	if !m.enqueue(s, &economy.Request{Template: "spearman", Count: 1}) {
		t.Error("request within the cap refused")
	}
}

func TestLosingConquestCriticalEndsMatch(t *testing.T) {
	m := newMatch(t, `false`, nil)
	cc := m.find(func(u *unit) bool { return u.Owner == p2 && u.Tags.Has(model.ConquestCritical) })
	cc.HP = 0
	m.Step()
	if !m.Over() {
		t.Fatal("match not over")
	}
	res, err := m.Run(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Winner != p1 || !res.Players[1].Lost || res.Turns != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m := newMatch(t, `false`, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Run(ctx, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRushReachesTheEnemy(t *testing.T) {
	m := newMatch(t, `Launched("Rush") == 0`, nil)
	hq := m.Headquarters(p1)
	cc := m.find(func(u *unit) bool { return u.Owner == p2 && u.Tags.Has(model.CivCentre) })

	started := false
	for i := 0; i < 400 && !m.Over(); i++ {
		m.Step()
		if len(hq.Started()) > 0 {
			started = true
		}
		if cc.HP < cc.MaxHP {
			break
		}
	}
	if !started {
		t.Fatalf("rush never started: %+v", hq.Stats())
	}
	if cc.HP >= cc.MaxHP && len(hq.Stats().Finished) == 0 {
		t.Errorf("rush neither hit the civic centre nor finished: %+v", hq.Stats())
	}
	if got := hq.Stats().Launched[military.Rush]; got != 1 {
		t.Errorf("rushes launched = %d, want 1", got)
	}
}

func TestNewRejectsBadTrigger(t *testing.T) {
	_, err := New(Config{Players: []PlayerSetup{{ID: p1}, {ID: p2, Passive: true}}}, rushTrigger(`Minutes( >`), nil)
	if err == nil {
		t.Fatal("uncompilable trigger accepted")
	}
}
