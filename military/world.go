package military

import (
	"math/rand"
	"time"

	"github.com/0ad/0ad-sub001/economy"
	"github.com/0ad/0ad-sub001/model"
)

// EntityView is the read side of the simulation's entity layer.
type EntityView interface {
	Now() time.Duration
	Player() model.PlayerID
	IsEnemy(p model.PlayerID) bool
	Entity(id model.EntityID) (model.Entity, bool)
	Query(keep func(model.Entity) bool) []model.Entity
	Territory() *model.TerrainGrid
	Population() (pop, popMax int)
	Producible(tags model.TagSet) []model.Template
	AttackEvents() []model.AttackEvent
}

// Roster is the tagging side: membership is a derived view over assignment tags.
type Roster interface {
	Members(plan, category int) []model.Entity
	PlanMembers(plan int) []model.Entity
	AssignmentOf(id model.EntityID) (model.Assignment, bool)
	Assign(id model.EntityID, a model.Assignment)
	Unassign(id model.EntityID)
}

// Commander issues orders. Orders take effect on the next turn.
type Commander interface {
	Move(ids []model.EntityID, to model.Vec2)
	AttackMove(ids []model.EntityID, to model.Vec2)
	Attack(id, target model.EntityID, allowCapture bool)
	Garrison(id, target model.EntityID)
	SetStance(ids []model.EntityID, s model.Stance)
}

// World is everything a plan needs from the simulation.
type World interface {
	EntityView
	Roster
	Commander
}

// PathStatus is the outcome of one path search step.
type PathStatus int

const (
	PathReady PathStatus = iota
	// PathContinue means the search hit its iteration bound; call ContinuePath.
	PathContinue
	// PathNone means no path exists at the requested corridor width.
	PathNone
)

// Waypoint is one step of a resolved path.
type Waypoint struct {
	Pos           model.Vec2
	WaterCrossing bool
}

type PathResult struct {
	Status    PathStatus
	Waypoints []Waypoint
}

// PathFinder is a resumable, width-aware path search. One instance serves one
// search at a time.
type PathFinder interface {
	GetPath(from, to model.Vec2, sampling, width float64, maxIterations int) PathResult
	ContinuePath() PathResult
}

// TransportTicket identifies one ferry request.
type TransportTicket int

// Transporter moves a roster across water.
type Transporter interface {
	Request(units []model.EntityID, from, to model.Vec2) (TransportTicket, error)
	Done(t TransportTicket) bool
}

// Env is the per-player context handed to every plan update.
type Env struct {
	World  World
	Queues *economy.QueueSet
	// NewPathFinder returns a fresh search for one plan.
	NewPathFinder func() PathFinder
	// Transport may be nil when the player has no navy.
	Transport Transporter
	Rand      *rand.Rand
}
