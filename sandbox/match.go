package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/0ad/0ad-sub001/agent"
	"github.com/0ad/0ad-sub001/economy"
	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/model"
	"github.com/0ad/0ad-sub001/pathing"
	"github.com/0ad/0ad-sub001/rules"
	"github.com/0ad/0ad-sub001/world"
)

var ErrNoPlayers = errors.New("match needs at least two players")

// unit is the host-side record behind one entity.
type unit struct {
	model.Entity
	stance  model.Stance
	capture bool
	// aboard is the ferry ticket carrying the unit, zero on land.
	aboard military.TransportTicket
	// engaged is the enemy this unit fights this step.
	engaged model.EntityID
}

// side is one player's host state.
type side struct {
	setup    PlayerSetup
	stock    model.ResourceVector
	reg      *world.Registry
	hq       *agent.Headquarters
	base     *Base
	ferry    *Ferry
	training []*batch
	lost     bool
	lostAt   int
}

// batch is a paid request waiting out its build time.
type batch struct {
	req   *economy.Request
	tmpl  model.Template
	ready time.Duration
}

// Match is one headless game. It is not safe for concurrent use.
type Match struct {
	cfg       Config
	grid      *model.TerrainGrid
	templates map[string]model.Template

	now    time.Duration
	turn   int
	nextID model.EntityID
	units  map[model.EntityID]*unit
	ids    []model.EntityID // ascending

	sides  []*side
	events map[model.PlayerID][]model.AttackEvent
}

// New lays out the map and the starting entities and gives every
// non-passive player a Headquarters with its own trigger engine.
func New(cfg Config, triggers []*rules.Trigger, profiles map[military.CampaignType]military.Profile) (*Match, error) {
	if len(cfg.Players) < 2 {
		return nil, ErrNoPlayers
	}
	cfg = withDefaults(cfg)
	grid, err := ParseTerrain(cfg.Terrain, cfg.CellSize, 40, 40)
	if err != nil {
		return nil, fmt.Errorf("parse terrain: %w", err)
	}
	m := &Match{
		cfg:       cfg,
		grid:      grid,
		templates: make(map[string]model.Template, len(cfg.Templates)),
		units:     make(map[model.EntityID]*unit),
		events:    make(map[model.PlayerID][]model.AttackEvent),
		nextID:    1,
	}
	for _, t := range cfg.Templates {
		m.templates[t.Name] = t
	}

	for _, ps := range cfg.Players {
		s := &side{setup: ps, stock: model.NewResourceVector(0, 0, 0, 0)}
		s.stock.Add(ps.Stock)
		m.sides = append(m.sides, s)
		if err := m.layout(s); err != nil {
			return nil, fmt.Errorf("player %d: %w", ps.ID, err)
		}
	}
	m.claimTerritory()

	for _, s := range m.sides {
		s.reg = world.NewRegistry(s.setup.ID, grid)
		for _, o := range m.sides {
			if o.setup.ID != s.setup.ID {
				s.reg.SetEnemy(o.setup.ID, true)
			}
		}
		s.reg.SetTemplates(cfg.Templates)
		s.base = &Base{m: m, player: s.setup.ID, id: int(s.setup.ID), pos: s.setup.Home}
		s.ferry = newFerry(m, s.setup.ID)
		if s.setup.Passive {
			continue
		}
		engine, err := rules.NewEngine(triggers)
		if err != nil {
			return nil, fmt.Errorf("player %d triggers: %w", s.setup.ID, err)
		}
		s.hq = agent.NewHeadquarters(s.reg, engine, agent.Options{
			NewPathFinder: func() military.PathFinder { return pathing.New(grid) },
			Transport:     s.ferry,
			Seed:          cfg.Seed + int64(s.setup.ID),
			Bases:         []economy.BaseManager{s.base},
			Profiles:      profiles,
		})
	}
	slog.Info("match created", "players", len(m.sides), "cols", grid.Cols, "rows", grid.Rows,
		"entities", len(m.ids), "turnLength", cfg.TurnLength)
	return m, nil
}

func withDefaults(cfg Config) Config {
	if cfg.TurnLength <= 0 {
		cfg.TurnLength = time.Second
	}
	if cfg.CellSize <= 0 {
		cfg.CellSize = 10
	}
	if len(cfg.Templates) == 0 {
		cfg.Templates = DefaultTemplates()
	}
	if cfg.WorkerTemplate == "" {
		cfg.WorkerTemplate = "female_citizen"
	}
	if cfg.SoldierTemplate == "" {
		cfg.SoldierTemplate = "spearman"
	}
	if cfg.TerritoryRadius <= 0 {
		cfg.TerritoryRadius = 70
	}
	if cfg.FerrySpeed <= 0 {
		cfg.FerrySpeed = 12
	}
	return cfg
}

// layout raises the civic centre, the extra structures and the starting units.
func (m *Match) layout(s *side) error {
	ps := s.setup
	if ps.PopMax <= 0 {
		s.setup.PopMax = 100
	}
	m.spawn(model.Entity{
		Owner:    ps.ID,
		Template: "civil_centre",
		Pos:      ps.Home,
		Tags:     tags(model.Structure, model.CivCentre, model.Town, model.Dropsite, model.ConquestCritical),
		HP:       2500,
		MaxHP:    2500,
		Strength: 8,
	})
	for i, name := range ps.Structures {
		kind, ok := structureKinds[name]
		if !ok {
			return fmt.Errorf("unknown structure %q", name)
		}
		m.spawn(model.Entity{
			Owner:    ps.ID,
			Template: "structure_" + name,
			Pos:      ring(ps.Home, 25, i, len(ps.Structures)),
			Tags:     kind,
			HP:       1200,
			MaxHP:    1200,
		})
	}
	for _, start := range []struct {
		template string
		count    int
	}{{m.cfg.WorkerTemplate, ps.Workers}, {m.cfg.SoldierTemplate, ps.Soldiers}} {
		if start.count == 0 {
			continue
		}
		t, ok := m.templates[start.template]
		if !ok {
			return fmt.Errorf("unknown template %q", start.template)
		}
		for i := 0; i < start.count; i++ {
			m.spawnUnit(ps.ID, t, ring(ps.Home, 12, i, start.count))
		}
	}
	return nil
}

func (m *Match) spawn(e model.Entity) *unit {
	e.ID = m.nextID
	m.nextID++
	u := &unit{Entity: e, stance: model.StanceAggressive}
	m.units[e.ID] = u
	m.ids = append(m.ids, e.ID)
	return u
}

func (m *Match) spawnUnit(owner model.PlayerID, t model.Template, pos model.Vec2) *unit {
	speed := t.Speed
	if speed <= 0 {
		speed = 9
	}
	hp := t.HP
	if hp <= 0 {
		hp = 100
	}
	return m.spawn(model.Entity{
		Owner:    owner,
		Template: t.Name,
		Pos:      pos,
		Tags:     t.Tags,
		HP:       hp,
		MaxHP:    hp,
		Strength: t.Strength,
		Speed:    speed,
	})
}

// Grid is the shared terrain and territory map.
func (m *Match) Grid() *model.TerrainGrid { return m.grid }

func (m *Match) Now() time.Duration { return m.now }
func (m *Match) Turn() int          { return m.turn }

// Headquarters returns the AI of player p, nil for passive players.
func (m *Match) Headquarters(p model.PlayerID) *agent.Headquarters {
	if s := m.side(p); s != nil {
		return s.hq
	}
	return nil
}

// Registry returns player p's view of the match.
func (m *Match) Registry(p model.PlayerID) *world.Registry {
	if s := m.side(p); s != nil {
		return s.reg
	}
	return nil
}

// Stock returns a copy of player p's resources.
func (m *Match) Stock(p model.PlayerID) model.ResourceVector {
	if s := m.side(p); s != nil {
		return s.stock.Clone()
	}
	return nil
}

func (m *Match) side(p model.PlayerID) *side {
	for _, s := range m.sides {
		if s.setup.ID == p {
			return s
		}
	}
	return nil
}

// Entities is the authoritative entity list in id order.
func (m *Match) Entities() []model.Entity {
	out := make([]model.Entity, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, m.units[id].Entity)
	}
	return out
}

// Step plays one turn: every AI thinks on the same snapshot, then the
// simulation advances by one turn length.
func (m *Match) Step() {
	m.turn++
	m.now += m.cfg.TurnLength

	snapshot := m.Entities()
	for _, s := range m.sides {
		if !s.lost {
			m.think(s, snapshot)
		}
	}

	dt := m.cfg.TurnLength.Seconds()
	m.move(dt)
	m.fight(dt)
	m.gather(dt)
	m.train()
	m.deliver()
	m.bury()
	m.claimTerritory()
	m.checkDefeat()
}

func (m *Match) think(s *side, snapshot []model.Entity) {
	reg := s.reg
	reg.BeginTurn(m.now)
	reg.Sync(snapshot)
	for _, ev := range m.events[s.setup.ID] {
		reg.PushEvent(ev)
	}
	reg.SetPopulation(m.population(s), s.setup.PopMax)
	if s.hq == nil {
		return
	}
	s.hq.Update(s.stock)
	s.hq.Env().Queues.Drain(s.stock, func(queue string, r *economy.Request) bool {
		return m.enqueue(s, r)
	})
	m.apply(s, reg.DrainCommands())
}

// population counts living units and batches in training.
func (m *Match) population(s *side) int {
	pop := 0
	for _, id := range m.ids {
		u := m.units[id]
		if u.Owner != s.setup.ID || u.Tags.Has(model.Structure) {
			continue
		}
		if t, ok := m.templates[u.Template]; ok && t.Pop > 0 {
			pop += t.Pop
		} else {
			pop++
		}
	}
	for _, b := range s.training {
		pop += b.req.Count * max(1, b.tmpl.Pop)
	}
	return pop
}

// enqueue accepts a paid request for training. It refuses while the
// population cap would be exceeded, leaving the request at the queue front.
func (m *Match) enqueue(s *side, r *economy.Request) bool {
	t, ok := m.templates[r.Template]
	if !ok {
		slog.Warn("dropping request for unknown template", "player", s.setup.ID, "template", r.Template)
		return true
	}
	if m.population(s)+r.Count*max(1, t.Pop) > s.setup.PopMax {
		return false
	}
	s.training = append(s.training, &batch{req: r, tmpl: t, ready: m.now + t.BuildTime*time.Duration(max(1, r.Count))})
	slog.Debug("training started", "player", s.setup.ID, "template", r.Template, "count", r.Count, "label", r.Label)
	return true
}

// Result is the outcome of Run.
type Result struct {
	Turns   int
	Elapsed time.Duration
	// Winner is zero when the match ran out of turns with several players standing.
	Winner  model.PlayerID
	Players []PlayerResult
}

type PlayerResult struct {
	ID         model.PlayerID
	Name       string
	Lost       bool
	LostOnTurn int
	Units      int
	Structures int
	Stock      model.ResourceVector
	// Stats is nil for passive players.
	Stats *agent.Stats
}

// Run steps the match until one player is left standing, turns run out or
// ctx is cancelled.
func (m *Match) Run(ctx context.Context, turns int) (Result, error) {
	for i := 0; i < turns && !m.Over(); i++ {
		if err := ctx.Err(); err != nil {
			return m.Result(), fmt.Errorf("match interrupted at turn %d: %w", m.turn, err)
		}
		m.Step()
		if m.turn%100 == 0 {
			slog.Info("match progress", "turn", m.turn, "minutes", m.now.Minutes(), "entities", len(m.ids))
		}
	}
	res := m.Result()
	slog.Info("match finished", "turns", res.Turns, "winner", res.Winner)
	return res, nil
}

// Over reports whether at most one player still stands.
func (m *Match) Over() bool {
	standing := 0
	for _, s := range m.sides {
		if !s.lost {
			standing++
		}
	}
	return standing <= 1
}

func (m *Match) Result() Result {
	res := Result{Turns: m.turn, Elapsed: m.now}
	var standing []model.PlayerID
	for _, s := range m.sides {
		pr := PlayerResult{
			ID:         s.setup.ID,
			Name:       s.setup.Name,
			Lost:       s.lost,
			LostOnTurn: s.lostAt,
			Stock:      s.stock.Clone(),
		}
		for _, id := range m.ids {
			u := m.units[id]
			if u.Owner != s.setup.ID {
				continue
			}
			if u.Tags.Has(model.Structure) {
				pr.Structures++
			} else {
				pr.Units++
			}
		}
		if s.hq != nil {
			st := s.hq.Stats()
			pr.Stats = &st
		}
		if !s.lost {
			standing = append(standing, s.setup.ID)
		}
		res.Players = append(res.Players, pr)
	}
	if len(standing) == 1 {
		res.Winner = standing[0]
	}
	return res
}

// checkDefeat marks players with no conquest-critical entity left.
func (m *Match) checkDefeat() {
	for _, s := range m.sides {
		if s.lost {
			continue
		}
		alive := slices.ContainsFunc(m.ids, func(id model.EntityID) bool {
			u := m.units[id]
			return u.Owner == s.setup.ID && u.Tags.Has(model.ConquestCritical)
		})
		if !alive {
			s.lost, s.lostAt = true, m.turn
			slog.Info("player defeated", "player", s.setup.ID, "name", s.setup.Name, "turn", m.turn)
		}
	}
}
