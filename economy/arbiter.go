package economy

import (
	"log/slog"
	"sort"

	"github.com/0ad/0ad-sub001/model"
)

// BaseManager is one economic foothold: gather telemetry plus a pool of
// assignable workers.
type BaseManager interface {
	ID() int
	GatherRates() model.ResourceVector
	IdleWorkers() []model.EntityID
	HasDropsite(r model.ResourceType) bool
	// Assign (re)assigns a worker to gather r. It reports false when the base
	// refuses (no such worker, nothing to gather).
	Assign(worker model.EntityID, r model.ResourceType) bool
}

// Need is one resource type's standing in the arbitration.
type Need struct {
	Type    model.ResourceType
	Wanted  float64
	Current float64
	// Score is the damped relative shortfall max(0, w-c)/(c+1).
	Score float64
	// Ratio is the damped raw ratio w/(c+1), the tie-break.
	Ratio float64
}

// Rank orders every resource type by relative shortfall, most needed first.
// The +1 damping keeps zero income finite and means the ranking is not
// invariant when wanted and current are scaled together.
func Rank(wanted, current model.ResourceVector) []Need {
	types := model.AllResourceTypes()
	needs := make([]Need, 0, len(types))
	for _, r := range types {
		w, c := wanted.Get(r), current.Get(r)
		needs = append(needs, Need{
			Type:    r,
			Wanted:  w,
			Current: c,
			Score:   max(0, w-c) / (c + 1),
			Ratio:   w / (c + 1),
		})
	}
	// Stable sort keeps the enumeration order as the final tie-break.
	sort.SliceStable(needs, func(i, j int) bool {
		if needs[i].Score != needs[j].Score {
			return needs[i].Score > needs[j].Score
		}
		return needs[i].Ratio > needs[j].Ratio
	})
	return needs
}

// WantedRates sums the residual need of every pending request.
func WantedRates(queues []ProductionQueue) model.ResourceVector {
	wanted := model.ResourceVector{}
	for _, q := range queues {
		for _, r := range q.Pending() {
			wanted.Add(r.Residual())
		}
	}
	return wanted
}

// CurrentRates sums the live gather rate of every base.
func CurrentRates(bases []BaseManager) model.ResourceVector {
	current := model.ResourceVector{}
	for _, b := range bases {
		current.Add(b.GatherRates())
	}
	return current
}

// Arbiter caches the per-turn resource arbitration.
type Arbiter struct {
	wanted  model.ResourceVector
	current model.ResourceVector
	ranking []Need
}

func NewArbiter() *Arbiter {
	return &Arbiter{wanted: model.ResourceVector{}, current: model.ResourceVector{}}
}

// Refresh recomputes wanted and current rates and the ranking.
func (a *Arbiter) Refresh(queues []ProductionQueue, bases []BaseManager) {
	a.wanted = WantedRates(queues)
	a.current = CurrentRates(bases)
	a.ranking = Rank(a.wanted, a.current)
}

// Ranking returns the cached ranking; Refresh must have run at least once.
func (a *Arbiter) Ranking() []Need { return a.ranking }

// Order returns only the resource types of the cached ranking.
func (a *Arbiter) Order() []model.ResourceType {
	out := make([]model.ResourceType, len(a.ranking))
	for i, n := range a.ranking {
		out[i] = n.Type
	}
	return out
}

// MostNeeded is the top of the ranking, used to bias new-base placement.
func (a *Arbiter) MostNeeded() (model.ResourceType, bool) {
	if len(a.ranking) == 0 {
		return "", false
	}
	return a.ranking[0].Type, true
}

func (a *Arbiter) Wanted() model.ResourceVector  { return a.wanted.Clone() }
func (a *Arbiter) Current() model.ResourceVector { return a.current.Clone() }

// Rebalance hands up to limit idle workers of one base to the most needed
// resource the base can drop off, walking down the ranking otherwise. It
// returns how many workers were assigned.
func Rebalance(b BaseManager, order []model.ResourceType, limit int) int {
	assigned := 0
	for _, w := range b.IdleWorkers() {
		if assigned >= limit {
			break
		}
		for _, r := range order {
			if !b.HasDropsite(r) {
				continue
			}
			if b.Assign(w, r) {
				assigned++
				slog.Debug("worker reassigned", "base", b.ID(), "worker", w, "resource", r)
				break
			}
		}
	}
	return assigned
}
