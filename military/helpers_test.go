package military

import (
	"math/rand"
	"testing"
	"time"

	"github.com/0ad/0ad-sub001/economy"
	"github.com/0ad/0ad-sub001/model"
	"github.com/0ad/0ad-sub001/world"
)

const (
	us    model.PlayerID = 1
	enemy model.PlayerID = 2
)

// scriptedPath replays results in order, repeating the last one.
type scriptedPath struct {
	results   []PathResult
	calls     int
	widths    []float64
	continued int
}

func (s *scriptedPath) next() PathResult {
	i := min(s.calls, len(s.results)-1)
	s.calls++
	return s.results[i]
}

func (s *scriptedPath) GetPath(from, to model.Vec2, sampling, width float64, maxIterations int) PathResult {
	s.widths = append(s.widths, width)
	return s.next()
}

func (s *scriptedPath) ContinuePath() PathResult {
	s.continued++
	return s.next()
}

func readyPath(wps ...Waypoint) *scriptedPath {
	return &scriptedPath{results: []PathResult{{Status: PathReady, Waypoints: wps}}}
}

type fakeTransport struct {
	requests int
	done     bool
	fail     error
}

func (f *fakeTransport) Request(units []model.EntityID, from, to model.Vec2) (TransportTicket, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	f.requests++
	return TransportTicket(f.requests), nil
}

func (f *fakeTransport) Done(TransportTicket) bool { return f.done }

func newEnv(reg *world.Registry, pf PathFinder) *Env {
	reg.SetEnemy(enemy, true)
	return &Env{
		World:         reg,
		Queues:        economy.NewQueueSet(),
		NewPathFinder: func() PathFinder { return pf },
		Rand:          rand.New(rand.NewSource(1)),
	}
}

// testProfile has a small melee category and an optional siege category.
func testProfile() Profile {
	p := DefaultProfile(Standard)
	p.PrepBase, p.PrepJitter, p.PrepFloor = 100*time.Second, 0, 10*time.Second
	p.CorridorWidths = []float64{8, 4, 2}
	p.RegroupEvery = time.Hour
	p.Categories = []CategorySpec{
		{Name: "melee", Tags: model.Tags(model.Infantry, model.Melee), Priority: 1, MinSize: 2, TargetSize: 4, BatchSize: 2,
			Weights: []Weight{{Criterion: CritStrength, Weight: 1}}},
		{Name: "siege", Tags: model.Tags(model.Siege), Queue: QueueSiege, Priority: 1, MinSize: 0, TargetSize: 1, BatchSize: 1,
			Weights: []Weight{{Criterion: CritStrength, Weight: 1}}},
	}
	return p
}

func soldier(id model.EntityID, pos model.Vec2) model.Entity {
	return model.Entity{ID: id, Owner: us, Template: "spearman", Pos: pos, Tags: model.Tags(model.Infantry, model.Melee), HP: 100, MaxHP: 100}
}

func ram(id model.EntityID, pos model.Vec2) model.Entity {
	return model.Entity{ID: id, Owner: us, Template: "ram", Pos: pos, Tags: model.Tags(model.Siege, model.Melee), HP: 300, MaxHP: 300}
}

func civCentre(id model.EntityID, pos model.Vec2) model.Entity {
	return model.Entity{ID: id, Owner: enemy, Template: "civil_centre", Pos: pos,
		Tags: model.Tags(model.Structure, model.CivCentre, model.ConquestCritical), HP: 3000, MaxHP: 3000}
}

// preparedPlan returns a plan with a full roster and a resolved path that
// is ready to launch.
func preparedPlan(t *testing.T, reg *world.Registry, env *Env, prof Profile) *Plan {
	t.Helper()
	p := NewPlan(1, Standard, enemy, model.Vec2{}, prof)
	if !p.Start(env) {
		t.Fatal("Start refused")
	}
	for p.State() == Preparing {
		sig := p.UpdatePreparation(env)
		if sig == PrepStart {
			break
		}
		if sig != PrepContinue {
			t.Fatalf("preparation signalled %v (%v)", sig, p.FailureReason())
		}
		reg.BeginTurn(reg.Now() + time.Second)
	}
	if !p.Launch(env) {
		t.Fatal("Launch refused")
	}
	return p
}

// fillRoster adds four idle soldiers and one ram near the rally point.
func fillRoster(reg *world.Registry) {
	for i := model.EntityID(10); i < 14; i++ {
		reg.Upsert(soldier(i, model.Vec2{X: float64(i - 10)}))
	}
	reg.Upsert(ram(20, model.Vec2{Y: 1}))
}

// trainable gives the registry one template per test category.
func trainable(reg *world.Registry) {
	reg.SetTemplates([]model.Template{
		{Name: "spearman", Tags: model.Tags(model.Infantry, model.Melee), Strength: 5, Cost: model.NewResourceVector(50, 50, 0, 0)},
		{Name: "ram", Tags: model.Tags(model.Siege, model.Melee), Strength: 20, Cost: model.NewResourceVector(0, 300, 0, 200)},
	})
}
