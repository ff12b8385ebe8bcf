package economy

import (
	"log/slog"
	"sort"
	"time"

	"github.com/0ad/0ad-sub001/model"
)

// Request is one production item: a batch of a unit template (or a building).
type Request struct {
	Template string
	Tags     model.TagSet
	Count    int
	// Cost is the cost of the whole batch.
	Cost model.ResourceVector
	// Accumulated is what the queue accounting has already set aside for it.
	Accumulated model.ResourceVector
	// Label groups requests for CountQueuedUnitsWithTag, e.g. "plan-3/cat-1".
	Label string
	// Assign tags the produced units into a roster when set.
	Assign *model.Assignment
	// DispatchedAt is when the host was told to train the batch. Set only
	// on held requests.
	DispatchedAt time.Duration
}

// Residual is the cost not yet covered, per resource.
func (r *Request) Residual() model.ResourceVector {
	out := r.Cost.Clone()
	out.Sub(r.Accumulated)
	return out
}

// ProductionQueue is an ordered list of production requests. The AI adds,
// removes and re-prioritizes items; draining belongs to the host.
type ProductionQueue interface {
	AddItem(r *Request)
	// Empty drops every item.
	Empty()
	CountQueuedUnitsWithTag(label string) int
	Len() int
	Pending() []*Request
	RemoveWhere(match func(*Request) bool) int
}

// Queue is the in-process ProductionQueue.
type Queue struct {
	name  string
	items []*Request
	// dispatched are paid requests the host is training. They still count
	// as queued until their units are claimed.
	dispatched []*Request
}

func NewQueue(name string) *Queue {
	return &Queue{name: name}
}

func (q *Queue) Name() string { return q.name }

func (q *Queue) AddItem(r *Request) {
	if r.Accumulated == nil {
		r.Accumulated = model.ResourceVector{}
	}
	q.items = append(q.items, r)
}

func (q *Queue) Empty() {
	q.items = nil
	q.dispatched = nil
}

// CountQueuedUnitsWithTag sums the unit counts of requests carrying label,
// dispatched ones included.
func (q *Queue) CountQueuedUnitsWithTag(label string) int {
	n := 0
	for _, list := range [][]*Request{q.items, q.dispatched} {
		for _, r := range list {
			if r.Label == label {
				n += r.Count
			}
		}
	}
	return n
}

// Dispatched lists the requests in training, oldest first.
func (q *Queue) Dispatched() []*Request { return q.dispatched }

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) Pending() []*Request { return q.items }

func (q *Queue) RemoveWhere(match func(*Request) bool) int {
	kept := q.items[:0]
	removed := 0
	for _, r := range q.items {
		if match(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	// Clear the tail so dropped requests can be collected.
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = kept
	return removed
}

func (q *Queue) front() *Request {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

func (q *Queue) pop() {
	q.items[0] = nil
	q.items = q.items[1:]
}

// QueueSet holds the named queues of one player with their priority weights.
type QueueSet struct {
	order    []string
	queues   map[string]*Queue
	priority map[string]float64
}

func NewQueueSet() *QueueSet {
	return &QueueSet{
		queues:   make(map[string]*Queue),
		priority: make(map[string]float64),
	}
}

// Ensure returns the named queue, creating it with priority p if missing.
func (s *QueueSet) Ensure(name string, p float64) *Queue {
	if q, ok := s.queues[name]; ok {
		return q
	}
	q := NewQueue(name)
	s.queues[name] = q
	s.priority[name] = p
	s.order = append(s.order, name)
	return q
}

func (s *QueueSet) Get(name string) (*Queue, bool) {
	q, ok := s.queues[name]
	return q, ok
}

// Release drops a queue and everything still in it.
func (s *QueueSet) Release(name string) {
	if _, ok := s.queues[name]; !ok {
		return
	}
	delete(s.queues, name)
	delete(s.priority, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	slog.Debug("production queue released", "queue", name)
}

func (s *QueueSet) SetPriority(name string, p float64) {
	if _, ok := s.queues[name]; ok {
		s.priority[name] = p
	}
}

func (s *QueueSet) Priority(name string) float64 { return s.priority[name] }

// Names returns queue names in creation order.
func (s *QueueSet) Names() []string {
	return append([]string(nil), s.order...)
}

// Queues returns every queue as ProductionQueue, in creation order.
func (s *QueueSet) Queues() []ProductionQueue {
	out := make([]ProductionQueue, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.queues[n])
	}
	return out
}

// Drain advances queue accounting for one turn: the front item of each queue,
// highest priority first, draws from stock until its cost is covered, at which
// point produce is called and the item leaves the queue. produce returning
// false keeps the item (e.g. no free production building). stock is debited.
func (s *QueueSet) Drain(stock model.ResourceVector, produce func(queue string, r *Request) bool) int {
	return s.drain(stock, produce, nil)
}

// DrainHeld is Drain for hosts that train asynchronously: a produced request
// is held as dispatched, still counted as queued, until Claim hands its units
// out or Expire gives up on it.
func (s *QueueSet) DrainHeld(stock model.ResourceVector, now time.Duration, produce func(queue string, r *Request) bool) int {
	return s.drain(stock, produce, func(q *Queue, r *Request) {
		r.DispatchedAt = now
		q.dispatched = append(q.dispatched, r)
	})
}

// Claim takes one unit of the oldest dispatched batch of template and
// returns its request. A batch leaves the queue once every unit is claimed.
func (s *QueueSet) Claim(template string) (*Request, bool) {
	for _, name := range s.order {
		q := s.queues[name]
		for i, r := range q.dispatched {
			if r.Template != template || r.Count <= 0 {
				continue
			}
			r.Count--
			if r.Count == 0 {
				q.dispatched = append(q.dispatched[:i], q.dispatched[i+1:]...)
			}
			return r, true
		}
	}
	return nil, false
}

// Expire drops dispatched batches older than maxAge, e.g. when the
// producing building died. It returns the number dropped.
func (s *QueueSet) Expire(now, maxAge time.Duration) int {
	dropped := 0
	for _, name := range s.order {
		q := s.queues[name]
		kept := q.dispatched[:0]
		for _, r := range q.dispatched {
			if now-r.DispatchedAt >= maxAge {
				dropped++
				slog.Info("dispatched batch expired", "queue", name, "template", r.Template, "missing", r.Count)
				continue
			}
			kept = append(kept, r)
		}
		clear(q.dispatched[len(kept):])
		q.dispatched = kept
	}
	return dropped
}

func (s *QueueSet) drain(stock model.ResourceVector, produce func(queue string, r *Request) bool, hold func(q *Queue, r *Request)) int {
	names := s.Names()
	sort.SliceStable(names, func(i, j int) bool {
		return s.priority[names[i]] > s.priority[names[j]]
	})

	started := 0
	for _, name := range names {
		q := s.queues[name]
		r := q.front()
		if r == nil {
			continue
		}
		need := r.Residual()
		for _, res := range model.AllResourceTypes() {
			take := min(need.Get(res), stock.Get(res))
			if take <= 0 {
				continue
			}
			r.Accumulated.Set(res, r.Accumulated.Get(res)+take)
			stock.Set(res, stock.Get(res)-take)
		}
		if r.Residual().Total() > 0 {
			continue
		}
		if produce(name, r) {
			q.pop()
			if hold != nil {
				hold(q, r)
			}
			started++
		}
	}
	return started
}
