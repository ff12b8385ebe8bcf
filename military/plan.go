package military

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/0ad/0ad-sub001/economy"
	"github.com/0ad/0ad-sub001/model"
)

// Plan drives one campaign from preparation to engagement. A plan is
// updated by its owner once per turn and never concurrently.
type Plan struct {
	id           int
	kind         CampaignType
	targetPlayer model.PlayerID
	profile      Profile
	finder       TargetFinder

	state  State
	reason FailureReason

	rally     model.Vec2
	target    model.EntityID
	targetPos model.Vec2
	hasTarget bool

	categories []*UnitCategory
	scheduler  *Scheduler
	queueNames []string

	// path search
	pf          PathFinder
	widthIdx    int
	searching   bool
	path        []Waypoint
	pathReady   bool
	waypointIdx int

	// timing
	prepStart   time.Duration
	budget      time.Duration
	paused      bool
	pausedAt    time.Duration
	pausedTotal time.Duration
	lastRegroup time.Duration
	launchedAt  time.Duration

	// walking
	lastCentroid model.Vec2
	stuckTurns   int
	burst        []time.Duration
	ticket       TransportTicket

	// engaging
	cursor    int
	lastOrder map[model.EntityID]time.Duration
	retargets int
}

// NewPlan creates an unexecuted plan against targetPlayer, rallying at rally.
func NewPlan(id int, kind CampaignType, targetPlayer model.PlayerID, rally model.Vec2, prof Profile) *Plan {
	prof.Validate()
	return &Plan{
		id:           id,
		kind:         kind,
		targetPlayer: targetPlayer,
		profile:      prof,
		finder:       FinderFor(prof.Targets),
		rally:        rally,
		categories:   newCategories(id, prof.Categories),
		lastOrder:    make(map[model.EntityID]time.Duration),
	}
}

// SetFinder replaces the target finder. Must be called before Start.
func (p *Plan) SetFinder(f TargetFinder) {
	if f != nil {
		p.finder = f
	}
}

func (p *Plan) ID() int                      { return p.id }
func (p *Plan) Kind() CampaignType           { return p.kind }
func (p *Plan) TargetPlayer() model.PlayerID { return p.targetPlayer }
func (p *Plan) State() State                 { return p.state }
func (p *Plan) FailureReason() FailureReason { return p.reason }
func (p *Plan) RallyPoint() model.Vec2       { return p.rally }
func (p *Plan) Paused() bool                 { return p.paused }
func (p *Plan) Categories() []*UnitCategory  { return p.categories }
func (p *Plan) Profile() Profile             { return p.profile }

// Target returns the committed target, if one has been chosen.
func (p *Plan) Target() (model.EntityID, model.Vec2, bool) {
	return p.target, p.targetPos, p.hasTarget
}

// Path returns the resolved waypoints, or false while the search is pending.
func (p *Plan) Path() ([]Waypoint, bool) { return p.path, p.pathReady }

// Roster is the plan's derived membership over every category.
func (p *Plan) Roster(r Roster) []model.Entity { return r.PlanMembers(p.id) }

// Deadline is the absolute time preparation expires at, paused time included.
func (p *Plan) Deadline() time.Duration {
	return p.prepStart + p.pausedTotal + p.budget
}

func (p *Plan) String() string {
	return fmt.Sprintf("plan %d (%s vs %d, %s)", p.id, p.kind, p.targetPlayer, p.state)
}

func (p *Plan) queueName(kind string) string {
	if kind == QueueUnits {
		return fmt.Sprintf("plan-%d", p.id)
	}
	return fmt.Sprintf("plan-%d-%s", p.id, kind)
}

func (p *Plan) setState(to State) bool {
	if !CanTransition(p.state, to) {
		slog.Warn("invalid plan transition", "plan", p.id, "from", p.state, "to", to)
		return false
	}
	slog.Debug("plan transition", "plan", p.id, "from", p.state, "to", to)
	p.state = to
	return true
}

// Start moves the plan into preparation: it creates the plan's queues,
// draws the preparation budget and binds a path search.
func (p *Plan) Start(env *Env) bool {
	if !p.setState(Preparing) {
		return false
	}
	now := env.World.Now()
	queues := make(map[string]economy.ProductionQueue, 3)
	for _, kind := range []string{QueueUnits, QueueChampion, QueueSiege} {
		name := p.queueName(kind)
		queues[kind] = env.Queues.Ensure(name, p.profile.QueuePriority)
		p.queueNames = append(p.queueNames, name)
	}
	p.scheduler = NewScheduler(p.id, p.categories, queues, p.profile, now)

	jitter := 0.0
	if env.Rand != nil {
		jitter = env.Rand.Float64()
	}
	p.prepStart = now
	p.lastRegroup = now
	p.budget = max(p.profile.PrepFloor, p.profile.PrepBase+time.Duration(jitter*float64(p.profile.PrepJitter)))
	if env.NewPathFinder != nil {
		p.pf = env.NewPathFinder()
	}
	slog.Info("plan preparing", "plan", p.id, "type", p.kind, "target", p.targetPlayer, "budget", p.budget)
	return true
}

// Launch ends preparation and sends the roster down the path.
func (p *Plan) Launch(env *Env) bool {
	if !p.pathReady || !p.setState(Walking) {
		return false
	}
	w := env.World
	p.launchedAt = w.Now()
	p.waypointIdx = 0
	p.stuckTurns = 0
	p.releaseQueues(env)

	ids := entityIDs(p.Roster(w))
	if c, ok := model.Centroid(positions(p.Roster(w))); ok {
		p.lastCentroid = c
	}
	w.SetStance(ids, model.StanceAggressive)
	p.moveToWaypoint(env, ids)
	slog.Info("plan launched", "plan", p.id, "type", p.kind, "roster", len(ids), "waypoints", len(p.path))
	return true
}

// Abort untags the roster, releases the plan's queues and ends the plan.
// Calling it on a finished plan does nothing.
func (p *Plan) Abort(env *Env) {
	if p.state.Terminal() {
		return
	}
	p.release(env)
	p.setState(Aborted)
	slog.Info("plan aborted", "plan", p.id, "type", p.kind, "reason", p.reason)
}

func (p *Plan) complete(env *Env, reason FailureReason) {
	if p.state.Terminal() {
		return
	}
	p.reason = reason
	p.release(env)
	p.setState(Completed)
	slog.Info("plan completed", "plan", p.id, "type", p.kind, "reason", p.reason)
}

func (p *Plan) release(env *Env) {
	for _, e := range p.Roster(env.World) {
		env.World.Unassign(e.ID)
	}
	p.releaseQueues(env)
}

func (p *Plan) releaseQueues(env *Env) {
	for _, name := range p.queueNames {
		if q, ok := env.Queues.Get(name); ok {
			q.Empty()
		}
		env.Queues.Release(name)
	}
	p.queueNames = nil
}

// Pause freezes per-turn updates. Roster tags are left alone.
func (p *Plan) Pause(now time.Duration) {
	if p.paused {
		return
	}
	p.paused = true
	p.pausedAt = now
}

func (p *Plan) Unpause(now time.Duration) {
	if !p.paused {
		return
	}
	p.paused = false
	if now > p.pausedAt {
		p.pausedTotal += now - p.pausedAt
	}
}

// OnAttacked reacts to one of the plan's units taking damage.
func (p *Plan) OnAttacked(env *Env, ev model.AttackEvent) {
	if p.paused || p.state.Terminal() {
		return
	}
	w := env.World
	victim, ok := w.Entity(ev.Target)
	if !ok {
		return
	}
	if victim.Idle() && ev.Attacker != 0 && classOf(victim.Tags).fights() {
		w.Attack(victim.ID, ev.Attacker, false)
		p.lastOrder[victim.ID] = w.Now()
	}
	if p.state != Walking {
		return
	}
	owner := w.Territory().OwnerAt(ev.Pos)
	if owner == 0 || !w.IsEnemy(owner) {
		return
	}
	now := w.Now()
	p.burst = append(p.burst, now)
	cut := 0
	for cut < len(p.burst) && now-p.burst[cut] > p.profile.AttackBurstWindow {
		cut++
	}
	p.burst = p.burst[cut:]
	if len(p.burst) >= p.profile.AttackBurst {
		slog.Info("plan ambushed, engaging early", "plan", p.id, "events", len(p.burst))
		p.burst = nil
		p.arrive(env)
	}
}

// refreshTarget follows a mobile target and reports whether it still exists.
func (p *Plan) refreshTarget(w EntityView) bool {
	if !p.hasTarget {
		return false
	}
	e, ok := w.Entity(p.target)
	if !ok || e.Owner != p.targetPlayer {
		p.hasTarget = false
		return false
	}
	p.targetPos = e.Pos
	return true
}

// acquireTarget asks the finder for candidates and commits to the one
// nearest the rally point.
func (p *Plan) acquireTarget(w EntityView) bool {
	t, ok := Nearest(p.finder(w, p.targetPlayer), p.rally)
	if !ok {
		return false
	}
	p.target, p.targetPos, p.hasTarget = t.ID, t.Pos, true
	slog.Debug("plan target chosen", "plan", p.id, "target", t.ID, "template", t.Template)
	return true
}

func entityIDs(es []model.Entity) []model.EntityID {
	out := make([]model.EntityID, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func positions(es []model.Entity) []model.Vec2 {
	out := make([]model.Vec2, len(es))
	for i, e := range es {
		out[i] = e.Pos
	}
	return out
}
