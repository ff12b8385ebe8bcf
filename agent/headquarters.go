package agent

import (
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/0ad/0ad-sub001/economy"
	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/model"
	"github.com/0ad/0ad-sub001/rules"
)

// World is the entity layer a Headquarters runs against.
type World interface {
	military.World
	Enemies() []model.PlayerID
	// ForgetPlan drops any cached state of a retired plan.
	ForgetPlan(plan int)
}

// maxFinished bounds the retired-plan history kept for reports.
const maxFinished = 64

// Options configures a Headquarters at match start.
type Options struct {
	Queues        *economy.QueueSet
	NewPathFinder func() military.PathFinder
	Transport     military.Transporter
	Seed          int64
	Bases         []economy.BaseManager
	// Profiles overrides military.DefaultProfile per campaign type.
	Profiles map[military.CampaignType]military.Profile
	// RebalanceLimit bounds worker reassignments per base per turn.
	RebalanceLimit int
	// RallyOffset is how far from the home structure toward the enemy plans rally.
	RallyOffset float64
	// NoTargetBackoff is how long a campaign type stays off against a player
	// after a plan found nothing to attack there. New targets lift it early.
	NoTargetBackoff time.Duration
}

type backoffKey struct {
	target model.PlayerID
	kind   military.CampaignType
}

// PlanReport summarizes one plan for the CLI report.
type PlanReport struct {
	ID     int
	Kind   military.CampaignType
	Target model.PlayerID
	State  military.State
	Reason military.FailureReason
	Roster int
}

// Stats is a point-in-time snapshot of the Headquarters.
type Stats struct {
	Turn     int
	Upcoming int
	Started  int
	ByState  map[military.State]int
	Launched map[military.CampaignType]int
	Blocked  []model.PlayerID
	Ranking  []economy.Need
	Plans    []PlanReport
	Finished []PlanReport
}

// Headquarters is one AI player's per-turn orchestration: it owns the
// arbiter, the base list and every attack plan. Create it once per match.
type Headquarters struct {
	mu sync.Mutex

	world   World
	env     *military.Env
	arbiter *economy.Arbiter
	engine  *rules.Engine

	bases      []economy.BaseManager
	baseCursor int
	rebalance  int
	rallyOff   float64

	profiles map[military.CampaignType]military.Profile

	upcoming []*military.Plan
	started  []*military.Plan
	finished []PlanReport
	blocked  map[model.PlayerID]bool
	launched map[military.CampaignType]int

	backoff      map[backoffKey]time.Duration
	backoffAfter time.Duration

	nextID int
	turn   int
}

func NewHeadquarters(w World, engine *rules.Engine, opts Options) *Headquarters {
	queues := opts.Queues
	if queues == nil {
		queues = economy.NewQueueSet()
	}
	if opts.RebalanceLimit <= 0 {
		opts.RebalanceLimit = 2
	}
	if opts.RallyOffset <= 0 {
		opts.RallyOffset = 30
	}
	if opts.NoTargetBackoff <= 0 {
		opts.NoTargetBackoff = time.Minute
	}
	return &Headquarters{
		world: w,
		env: &military.Env{
			World:         w,
			Queues:        queues,
			NewPathFinder: opts.NewPathFinder,
			Transport:     opts.Transport,
			Rand:          rand.New(rand.NewSource(opts.Seed)),
		},
		arbiter:   economy.NewArbiter(),
		engine:    engine,
		bases:     opts.Bases,
		rebalance: opts.RebalanceLimit,
		rallyOff:  opts.RallyOffset,
		profiles:  opts.Profiles,
		blocked:   make(map[model.PlayerID]bool),
		launched:  make(map[military.CampaignType]int),
		nextID:    1,

		backoff:      make(map[backoffKey]time.Duration),
		backoffAfter: opts.NoTargetBackoff,
	}
}

func (h *Headquarters) Env() *military.Env        { return h.env }
func (h *Headquarters) Arbiter() *economy.Arbiter { return h.arbiter }

// SetBases replaces the base list; the rebalance cursor wraps onto it.
func (h *Headquarters) SetBases(bases []economy.BaseManager) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bases = bases
}

// SetProfiles swaps campaign profiles for plans created from now on.
func (h *Headquarters) SetProfiles(p map[military.CampaignType]military.Profile) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.profiles = p
	slog.Info("campaign profiles swapped", "count", len(p))
}

func (h *Headquarters) profile(kind military.CampaignType) military.Profile {
	if p, ok := h.profiles[kind]; ok {
		return p
	}
	return military.DefaultProfile(kind)
}

// Update runs one turn. stock is the player's current resource stockpile.
func (h *Headquarters) Update(stock model.ResourceVector) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turn++

	h.arbiter.Refresh(h.env.Queues.Queues(), h.bases)
	h.rebalanceOne()
	h.launchTriggered(stock)
	h.updateUpcoming()
	h.updateStarted()
	h.routeAttacks()
}

func (h *Headquarters) rebalanceOne() {
	if len(h.bases) == 0 {
		return
	}
	h.baseCursor %= len(h.bases)
	b := h.bases[h.baseCursor]
	h.baseCursor++
	if n := economy.Rebalance(b, h.arbiter.Order(), h.rebalance); n > 0 {
		slog.Debug("base rebalanced", "base", b.ID(), "workers", n)
	}
}

func (h *Headquarters) launchTriggered(stock model.ResourceVector) {
	if h.engine == nil {
		return
	}
	target, ok := h.pickTarget()
	if !ok {
		return
	}
	env := rules.TriggerEnv{
		View:      h.world,
		Target:    target,
		Stock:     stock,
		Campaigns: h.campaignCounts(),
	}
	h.engine.LogDiagnostics(h.turn, env)
	for _, kind := range h.engine.Evaluate(env) {
		if h.hasUpcoming(kind) || h.backedOff(kind, target) {
			continue
		}
		h.createPlan(kind, target)
	}
}

// backedOff reports whether kind is still held back against target after a
// plan found nothing to attack.
func (h *Headquarters) backedOff(kind military.CampaignType, target model.PlayerID) bool {
	key := backoffKey{target, kind}
	until, ok := h.backoff[key]
	if !ok {
		return false
	}
	lifted := h.world.Now() >= until
	if !lifted {
		finder := military.FinderFor(h.profile(kind).Targets)
		lifted = len(finder(h.world, target)) > 0
	}
	if lifted {
		delete(h.backoff, key)
		slog.Debug("campaign backoff lifted", "type", kind, "target", target)
		return false
	}
	return true
}

func (h *Headquarters) createPlan(kind military.CampaignType, target model.PlayerID) {
	p := military.NewPlan(h.nextID, kind, target, h.rallyPoint(target), h.profile(kind))
	h.nextID++
	if !p.Start(h.env) {
		return
	}
	h.upcoming = append(h.upcoming, p)
	slog.Info("plan created", "plan", p.ID(), "type", kind, "target", target)
}

// pickTarget is the first enemy not blocked by terrain, preferring one that
// still owns structures.
func (h *Headquarters) pickTarget() (model.PlayerID, bool) {
	var fallback model.PlayerID
	found := false
	for _, p := range h.world.Enemies() {
		if h.blocked[p] {
			continue
		}
		owned := h.world.Query(func(e model.Entity) bool {
			return e.Owner == p && e.Tags.Has(model.Structure)
		})
		if len(owned) > 0 {
			return p, true
		}
		if !found {
			fallback, found = p, true
		}
	}
	return fallback, found
}

// rallyPoint sits the home structure nearest to the enemy, stepped toward
// the enemy's structures.
func (h *Headquarters) rallyPoint(target model.PlayerID) model.Vec2 {
	self := h.world.Player()
	home := h.world.Query(func(e model.Entity) bool {
		return e.Owner == self && e.Tags.Has(model.CivCentre)
	})
	if len(home) == 0 {
		home = h.world.Query(func(e model.Entity) bool {
			return e.Owner == self && e.Tags.Has(model.Structure)
		})
	}
	if len(home) == 0 {
		return model.Vec2{}
	}
	var enemy []model.Vec2
	for _, e := range h.world.Query(func(e model.Entity) bool {
		return e.Owner == target && e.Tags.Has(model.Structure)
	}) {
		enemy = append(enemy, e.Pos)
	}
	c, ok := model.Centroid(enemy)
	if !ok {
		return home[0].Pos
	}
	best := home[0]
	for _, e := range home[1:] {
		if e.Pos.DistSq(c) < best.Pos.DistSq(c) {
			best = e
		}
	}
	return best.Pos.Toward(c, h.rallyOff)
}

func (h *Headquarters) hasUpcoming(kind military.CampaignType) bool {
	return slices.ContainsFunc(h.upcoming, func(p *military.Plan) bool { return p.Kind() == kind })
}

func (h *Headquarters) campaignCounts() map[military.CampaignType]rules.CampaignCounts {
	out := make(map[military.CampaignType]rules.CampaignCounts)
	for _, p := range h.upcoming {
		c := out[p.Kind()]
		c.Upcoming++
		out[p.Kind()] = c
	}
	for _, p := range h.started {
		c := out[p.Kind()]
		c.Started++
		out[p.Kind()] = c
	}
	for kind, n := range h.launched {
		c := out[kind]
		c.Launched = n
		out[kind] = c
	}
	return out
}

// updateUpcoming advances preparing plans in ascending order. A plan that
// starts is appended to the started list and serviced there this same turn.
func (h *Headquarters) updateUpcoming() {
	keep := h.upcoming[:0]
	for _, p := range h.upcoming {
		switch sig := p.UpdatePreparation(h.env); sig {
		case military.PrepStart:
			if p.Launch(h.env) {
				h.started = append(h.started, p)
				h.launched[p.Kind()]++
				continue
			}
			keep = append(keep, p)
		case military.PrepAbortUnreachable:
			if p.FailureReason().TerrainDriven() && !h.blocked[p.TargetPlayer()] {
				h.blocked[p.TargetPlayer()] = true
				slog.Warn("target player unreachable, campaigns disabled", "target", p.TargetPlayer(), "plan", p.ID())
			}
			if p.FailureReason() == military.ReasonNoTarget {
				until := h.world.Now() + h.backoffAfter
				h.backoff[backoffKey{p.TargetPlayer(), p.Kind()}] = until
				slog.Info("no target, campaign backing off", "type", p.Kind(), "target", p.TargetPlayer(), "until", until)
			}
			h.retire(p)
		case military.PrepAbortUnviable:
			h.retire(p)
		default:
			keep = append(keep, p)
		}
	}
	clear(h.upcoming[len(keep):])
	h.upcoming = keep
}

func (h *Headquarters) updateStarted() {
	keep := h.started[:0]
	for _, p := range h.started {
		switch p.Update(h.env) {
		case military.Failed, military.Finished:
			h.retire(p)
		default:
			keep = append(keep, p)
		}
	}
	clear(h.started[len(keep):])
	h.started = keep
}

// retire aborts p if it is still live and records it in the history.
func (h *Headquarters) retire(p *military.Plan) {
	roster := len(p.Roster(h.world))
	p.Abort(h.env)
	h.world.ForgetPlan(p.ID())
	h.finished = append(h.finished, h.report(p, roster))
	if n := len(h.finished) - maxFinished; n > 0 {
		h.finished = slices.Delete(h.finished, 0, n)
	}
}

func (h *Headquarters) routeAttacks() {
	for _, ev := range h.world.AttackEvents() {
		a, ok := h.world.AssignmentOf(ev.Target)
		if !ok {
			continue
		}
		if p := h.plan(a.Plan); p != nil {
			p.OnAttacked(h.env, ev)
		}
	}
}

func (h *Headquarters) plan(id int) *military.Plan {
	for _, list := range [][]*military.Plan{h.started, h.upcoming} {
		for _, p := range list {
			if p.ID() == id {
				return p
			}
		}
	}
	return nil
}

// PauseAll freezes every live plan; roster tags are untouched.
func (h *Headquarters) PauseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.world.Now()
	for _, p := range h.plans() {
		p.Pause(now)
	}
}

func (h *Headquarters) UnpauseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.world.Now()
	for _, p := range h.plans() {
		p.Unpause(now)
	}
}

func (h *Headquarters) plans() []*military.Plan {
	return append(slices.Clone(h.upcoming), h.started...)
}

// Upcoming and Started return the live plans in service order.
func (h *Headquarters) Upcoming() []*military.Plan { return slices.Clone(h.upcoming) }
func (h *Headquarters) Started() []*military.Plan  { return slices.Clone(h.started) }

// Blocked reports whether campaigns against p were disabled by terrain.
func (h *Headquarters) Blocked(p model.PlayerID) bool { return h.blocked[p] }

// ExpansionNeed is the most needed resource no base can drop off, which is
// where a new base should go.
func (h *Headquarters) ExpansionNeed() (model.ResourceType, bool) {
	for _, r := range h.arbiter.Order() {
		if h.arbiter.Wanted().Get(r) <= 0 {
			break
		}
		covered := slices.ContainsFunc(h.bases, func(b economy.BaseManager) bool { return b.HasDropsite(r) })
		if !covered {
			return r, true
		}
	}
	return "", false
}

// Stats snapshots the Headquarters for reporting.
func (h *Headquarters) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Stats{
		Turn:     h.turn,
		Upcoming: len(h.upcoming),
		Started:  len(h.started),
		ByState:  make(map[military.State]int),
		Launched: make(map[military.CampaignType]int, len(h.launched)),
		Ranking:  slices.Clone(h.arbiter.Ranking()),
		Finished: slices.Clone(h.finished),
	}
	for kind, n := range h.launched {
		s.Launched[kind] = n
	}
	for p := range h.blocked {
		s.Blocked = append(s.Blocked, p)
	}
	slices.Sort(s.Blocked)
	for _, p := range h.plans() {
		s.ByState[p.State()]++
		s.Plans = append(s.Plans, h.report(p, len(p.Roster(h.world))))
	}
	return s
}

func (h *Headquarters) report(p *military.Plan, roster int) PlanReport {
	return PlanReport{
		ID:     p.ID(),
		Kind:   p.Kind(),
		Target: p.TargetPlayer(),
		State:  p.State(),
		Reason: p.FailureReason(),
		Roster: roster,
	}
}
