package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/0ad/0ad-sub001/economy"
	"github.com/0ad/0ad-sub001/ipc"
	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/model"
	"github.com/0ad/0ad-sub001/pathing"
	"github.com/0ad/0ad-sub001/rules"
	"github.com/0ad/0ad-sub001/world"
)

var ErrNoHello = errors.New("game_state before hello")

// spawnTimeout bounds how long a dispatched batch waits for its units.
const spawnTimeout = 2 * time.Minute

// Agent owns the decision-making for a single player session. It mirrors
// the host's snapshots into a registry and answers each one with the
// commands the Headquarters recorded.
type Agent struct {
	Conn   *ipc.Connection
	Player model.PlayerID
	Engine *rules.Engine

	mu   sync.Mutex
	opts Options
	reg  *world.Registry
	hq   *Headquarters
	prev *stateSnapshot
}

func New(conn *ipc.Connection, engine *rules.Engine, opts Options) *Agent {
	return &Agent{Conn: conn, Engine: engine, opts: opts}
}

// Headquarters is nil until the hello handshake.
func (a *Agent) Headquarters() *Headquarters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hq
}

// SetProfiles forwards a profile reload, or keeps it for the handshake.
func (a *Agent) SetProfiles(p map[military.CampaignType]military.Profile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opts.Profiles = p
	if a.hq != nil {
		a.hq.SetProfiles(p)
	}
}

// HandleHello builds the player's world and Headquarters, then acks so the
// host knows the sidecar is ready.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := env.Decode(&hello); err != nil {
		return nil, err
	}

	grid := hello.Terrain.TerrainGrid()
	reg := world.NewRegistry(hello.Player, grid)
	for _, p := range hello.Enemies {
		reg.SetEnemy(p, true)
	}
	templates := make([]model.Template, len(hello.Templates))
	for i, t := range hello.Templates {
		templates[i] = t.Template()
	}
	reg.SetTemplates(templates)

	a.mu.Lock()
	opts := a.opts
	if opts.NewPathFinder == nil {
		territory := reg.Territory()
		opts.NewPathFinder = func() military.PathFinder { return pathing.New(territory) }
	}
	a.Player = hello.Player
	a.reg = reg
	a.hq = NewHeadquarters(reg, a.Engine, opts)
	a.prev = nil
	a.mu.Unlock()

	if a.Conn != nil {
		a.Conn.Player = hello.Name
	}
	slog.Info("player identified", "player", hello.Player, "name", hello.Name,
		"enemies", hello.Enemies, "templates", len(templates), "terrain", grid != nil)

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: ipc.StatusOK})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// HandleGameState runs one AI turn on the snapshot and replies with the
// turn's commands.
func (a *Agent) HandleGameState(env ipc.Envelope) (*ipc.Envelope, error) {
	var gs model.GameState
	if err := env.Decode(&gs); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hq == nil {
		return nil, ErrNoHello
	}
	cmds := a.turn(gs)

	reply, err := ipc.NewEnvelope(ipc.TypeCommands, ipc.CommandsMessage{Tick: gs.Tick, Commands: ipc.EncodeCommands(cmds)})
	if err != nil {
		return nil, fmt.Errorf("encode commands: %w", err)
	}
	return &reply, nil
}

func (a *Agent) turn(gs model.GameState) []model.Command {
	reg := a.reg
	reg.BeginTurn(time.Duration(gs.TimeMs) * time.Millisecond)
	reg.SetPopulation(gs.Player.Pop, gs.Player.PopMax)
	if grid := reg.Territory(); len(gs.Territory) == len(grid.Owner) {
		copy(grid.Owner, gs.Territory)
	}

	cur := takeSnapshot(gs, reg.IsEnemy)
	for _, ev := range detectAttacks(gs, a.prev, reg.IsEnemy) {
		reg.PushEvent(ev)
	}
	for _, ev := range detectEvents(&cur, a.prev) {
		slog.Info("match event", "kind", ev.Kind, "tick", ev.Tick, "detail", ev.Detail)
	}
	a.prev = &cur
	var spawned []model.Entity
	for _, e := range gs.Entities {
		if _, known := reg.Entity(e.ID); !known && e.Owner == reg.Player() && !e.Tags.Has(model.Structure) {
			spawned = append(spawned, e)
		}
	}
	reg.Sync(gs.Entities)
	a.claimSpawned(spawned)

	bases := make([]economy.BaseManager, len(gs.Bases))
	for i, b := range gs.Bases {
		bases[i] = &snapshotBase{state: b, reg: reg}
	}
	a.hq.SetBases(bases)
	a.hq.Update(gs.Player.Stock)
	a.produce(gs.Player.Stock)

	cmds := reg.DrainCommands()
	slog.Debug("turn complete", "tick", gs.Tick, "entities", reg.Len(), "commands", len(cmds))
	return cmds
}

// produce turns fully paid queue fronts into produce commands. Resources the
// queues already set aside are still in the host's stock until it trains
// the batch, so they are taken out of what this turn can spend.
func (a *Agent) produce(stock model.ResourceVector) {
	queues := a.hq.Env().Queues
	available := stock.Clone()
	for _, q := range queues.Queues() {
		for _, r := range q.Pending() {
			available.Sub(r.Accumulated)
		}
	}
	queues.DrainHeld(available, a.reg.Now(), func(queue string, r *economy.Request) bool {
		a.reg.Produce(r.Template, r.Count, r.Label)
		slog.Debug("production started", "queue", queue, "template", r.Template, "count", r.Count)
		return true
	})
}

// claimSpawned hands new units to the batches that paid for them, then gives
// up on batches the host never delivered.
func (a *Agent) claimSpawned(spawned []model.Entity) {
	queues := a.hq.Env().Queues
	for _, e := range spawned {
		if _, tagged := a.reg.AssignmentOf(e.ID); tagged {
			continue
		}
		r, ok := queues.Claim(e.Template)
		if !ok || r.Assign == nil {
			continue
		}
		a.reg.Assign(e.ID, *r.Assign)
		slog.Debug("trained unit claimed", "entity", e.ID, "template", e.Template, "label", r.Label)
	}
	queues.Expire(a.reg.Now(), spawnTimeout)
}

// snapshotBase is a BaseManager over one turn's base telemetry. Assignments
// become gather commands.
type snapshotBase struct {
	state model.BaseState
	reg   *world.Registry
}

func (b *snapshotBase) ID() int                           { return b.state.ID }
func (b *snapshotBase) GatherRates() model.ResourceVector { return b.state.GatherRates }

func (b *snapshotBase) IdleWorkers() []model.EntityID {
	var out []model.EntityID
	for _, id := range b.state.Workers {
		if e, ok := b.reg.Entity(id); ok && e.Idle() {
			out = append(out, id)
		}
	}
	return out
}

func (b *snapshotBase) HasDropsite(r model.ResourceType) bool {
	for _, d := range b.state.Dropsites {
		if d == r {
			return true
		}
	}
	return false
}

func (b *snapshotBase) Assign(worker model.EntityID, r model.ResourceType) bool {
	ok := b.reg.Mutate(worker, func(e *model.Entity) {
		e.Order = model.Order{Kind: model.OrderGather, Resource: r}
	})
	if ok {
		b.reg.Gather(worker, r)
	}
	return ok
}

// Hub tracks live agents so a config reload reaches every session.
type Hub struct {
	mu     sync.Mutex
	agents map[*Agent]struct{}
}

func NewHub() *Hub { return &Hub{agents: make(map[*Agent]struct{})} }

func (h *Hub) Add(a *Agent) {
	h.mu.Lock()
	h.agents[a] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(a *Agent) {
	h.mu.Lock()
	delete(h.agents, a)
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.agents)
}

func (h *Hub) SetProfiles(p map[military.CampaignType]military.Profile) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for a := range h.agents {
		a.SetProfiles(p)
	}
}

// SwapTriggers recompiles every session's launch triggers. Sessions whose
// engine rejects the set keep their old triggers.
func (h *Hub) SwapTriggers(triggers []*rules.Trigger) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var errs []error
	for a := range h.agents {
		if a.Engine == nil {
			continue
		}
		if err := a.Engine.Swap(triggers); err != nil {
			a.mu.Lock()
			player := a.Player
			a.mu.Unlock()
			errs = append(errs, fmt.Errorf("player %d: %w", player, err))
		}
	}
	return errors.Join(errs...)
}
