package military

import (
	"log/slog"
	"sort"
	"time"

	"github.com/0ad/0ad-sub001/economy"
	"github.com/0ad/0ad-sub001/model"
)

// Scheduler reinforces one plan: each step it picks the worst-served
// category and queues at most one batch for it.
type Scheduler struct {
	plan       int
	categories []*UnitCategory
	queues     map[string]economy.ProductionQueue
	maxBacklog int
	longAfter  time.Duration
	since      time.Duration
}

// NewScheduler builds a scheduler over cats. queues maps a category's queue
// kind (QueueUnits, QueueChampion, QueueSiege) to the plan's queue.
func NewScheduler(plan int, cats []*UnitCategory, queues map[string]economy.ProductionQueue, prof Profile, since time.Duration) *Scheduler {
	return &Scheduler{
		plan:       plan,
		categories: cats,
		queues:     queues,
		maxBacklog: prof.MaxBacklog,
		longAfter:  prof.LongCampaignAfter,
		since:      since,
	}
}

func (s *Scheduler) queueFor(c *UnitCategory) economy.ProductionQueue {
	if q, ok := s.queues[c.Spec.Queue]; ok {
		return q
	}
	return s.queues[QueueUnits]
}

// Statuses snapshots every category against the live roster and the queues.
func (s *Scheduler) Statuses(r Roster) []CategoryStatus {
	out := make([]CategoryStatus, len(s.categories))
	for i, c := range s.categories {
		queued := 0
		for _, q := range s.queues {
			queued += q.CountQueuedUnitsWithTag(c.Label())
		}
		out[i] = CategoryStatus{
			Index:    c.Index,
			Priority: c.Spec.Priority,
			Live:     len(c.Roster(r)),
			Queued:   queued,
			Target:   c.Spec.TargetSize,
			Min:      c.Spec.MinSize,
			Dropped:  c.Dropped,
		}
	}
	return out
}

// PickCategory returns the index of the category to reinforce. Only
// categories below target are candidates; the lowest f - priority wins,
// ties going to the lower index.
func PickCategory(statuses []CategoryStatus) (int, bool) {
	type cand struct {
		index int
		k     float64
	}
	var cands []cand
	for _, st := range statuses {
		if st.Dropped {
			continue
		}
		f := st.Fulfillment()
		if f >= 1 {
			continue
		}
		cands = append(cands, cand{index: st.Index, k: f - st.Priority})
	}
	if len(cands) == 0 {
		return 0, false
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].k != cands[j].k {
			return cands[i].k < cands[j].k
		}
		return cands[i].index < cands[j].index
	})
	return cands[0].index, true
}

// Adopt tags idle, unassigned military units into categories still short of
// their target. Returns the number adopted.
func (s *Scheduler) Adopt(w World) int {
	player := w.Player()
	spare := w.Query(func(e model.Entity) bool {
		if e.Owner != player || !e.Idle() || e.Tags.HasAny(model.Tags(model.Structure, model.Worker, model.Trader)) {
			return false
		}
		_, tagged := w.AssignmentOf(e.ID)
		return !tagged
	})
	adopted := 0
	for _, c := range s.categories {
		if c.Dropped {
			continue
		}
		need := c.Spec.TargetSize - len(c.Roster(w))
		for i := 0; i < len(spare) && need > 0; i++ {
			e := spare[i]
			if !c.Accepts(e) {
				continue
			}
			w.Assign(e.ID, c.Assignment())
			spare = append(spare[:i], spare[i+1:]...)
			i--
			need--
			adopted++
		}
	}
	if adopted > 0 {
		slog.Debug("units adopted", "plan", s.plan, "count", adopted)
	}
	return adopted
}

// Step queues at most one batch. It returns the request queued, if any.
func (s *Scheduler) Step(w World) (*economy.Request, bool) {
	idx, ok := PickCategory(s.Statuses(w))
	if !ok {
		return nil, false
	}
	c := s.categories[idx]
	q := s.queueFor(c)
	if q == nil || s.backlog(q, c) >= s.maxBacklog {
		return nil, false
	}

	templates := w.Producible(c.Spec.Tags)
	if len(templates) == 0 {
		c.Dropped = true
		slog.Info("category dropped, nothing producible", "plan", s.plan, "category", c.Spec.Name, "tags", c.Spec.Tags)
		return nil, false
	}
	best := bestTemplate(templates, c.Spec.Weights)

	count := c.Spec.BatchSize
	if s.longAfter > 0 && w.Now()-s.since > s.longAfter {
		count *= 2
	}
	a := c.Assignment()
	req := &economy.Request{
		Template: best.Name,
		Tags:     best.Tags,
		Count:    count,
		Cost:     best.Cost.Scaled(float64(count)),
		Label:    c.Label(),
		Assign:   &a,
	}
	q.AddItem(req)
	slog.Debug("batch queued", "plan", s.plan, "category", c.Spec.Name, "template", best.Name, "count", count)
	return req, true
}

func (s *Scheduler) backlog(q economy.ProductionQueue, c *UnitCategory) int {
	n := 0
	for _, r := range q.Pending() {
		if r.Label == c.Label() {
			n++
		}
	}
	return n
}

// Categories exposes the plan's categories in index order.
func (s *Scheduler) Categories() []*UnitCategory { return s.categories }

// ScoreTemplate is the weighted sum of weights' criteria for t.
func ScoreTemplate(t model.Template, weights []Weight) float64 {
	score := 0.0
	for _, w := range weights {
		var v float64
		switch w.Criterion {
		case CritStrength:
			v = t.Strength
		case CritSpeed:
			v = t.Speed
		case CritCost:
			v = t.Cost.Total()
		case CritCostOf:
			v = t.Cost.Get(w.Resource)
		case CritCanGather:
			v = t.Gather.Get(w.Resource)
		}
		score += w.Weight * v
	}
	return score
}

func bestTemplate(ts []model.Template, weights []Weight) model.Template {
	best := ts[0]
	bestScore := ScoreTemplate(best, weights)
	for _, t := range ts[1:] {
		sc := ScoreTemplate(t, weights)
		if sc > bestScore || (sc == bestScore && t.Name < best.Name) {
			best, bestScore = t, sc
		}
	}
	return best
}
