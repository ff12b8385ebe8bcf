package economy

import (
	"testing"
	"time"

	"github.com/0ad/0ad-sub001/model"
)

func TestQueueCountAndRemove(t *testing.T) {
	q := NewQueue("plan-1")
	q.AddItem(&Request{Template: "a", Count: 5, Label: "plan-1/cat-0"})
	q.AddItem(&Request{Template: "b", Count: 2, Label: "plan-1/cat-1"})
	q.AddItem(&Request{Template: "a", Count: 3, Label: "plan-1/cat-0"})

	if got := q.CountQueuedUnitsWithTag("plan-1/cat-0"); got != 8 {
		t.Errorf("CountQueuedUnitsWithTag = %d, want 8", got)
	}
	if q.Len() != 3 {
		t.Errorf("Len = %d, want 3", q.Len())
	}

	removed := q.RemoveWhere(func(r *Request) bool { return r.Label == "plan-1/cat-0" })
	if removed != 2 || q.Len() != 1 {
		t.Errorf("RemoveWhere removed %d, left %d", removed, q.Len())
	}

	q.Empty()
	if q.Len() != 0 {
		t.Errorf("Empty left %d items", q.Len())
	}
}

func TestQueueSetRelease(t *testing.T) {
	s := NewQueueSet()
	s.Ensure("economy", 5)
	s.Ensure("plan-1", 2).AddItem(&Request{Template: "x", Count: 1})
	s.Ensure("plan-1", 99) // existing queue keeps its priority

	if s.Priority("plan-1") != 2 {
		t.Errorf("Ensure overwrote priority: %v", s.Priority("plan-1"))
	}

	s.Release("plan-1")
	s.Release("plan-1") // idempotent
	if _, ok := s.Get("plan-1"); ok {
		t.Error("released queue still present")
	}
	if names := s.Names(); len(names) != 1 || names[0] != "economy" {
		t.Errorf("Names = %v", names)
	}
}

func TestQueueSetDrainByPriority(t *testing.T) {
	s := NewQueueSet()
	low := s.Ensure("low", 1)
	high := s.Ensure("high", 10)
	low.AddItem(&Request{Template: "house", Count: 1, Cost: model.NewResourceVector(0, 100, 0, 0)})
	high.AddItem(&Request{Template: "spearman", Count: 2, Cost: model.NewResourceVector(100, 100, 0, 0)})

	stock := model.NewResourceVector(100, 150, 0, 0)
	var produced []string
	n := s.Drain(stock, func(queue string, r *Request) bool {
		produced = append(produced, r.Template)
		return true
	})

	if n != 1 || len(produced) != 1 || produced[0] != "spearman" {
		t.Fatalf("produced %v, want [spearman]", produced)
	}
	// The low priority house took what was left.
	if got := low.Pending()[0].Accumulated.Get(model.Wood); got != 50 {
		t.Errorf("house accumulated %v wood, want 50", got)
	}
	if stock.Total() != 0 {
		t.Errorf("stock not debited: %v", stock)
	}

	// A refusing producer keeps the paid item in place.
	stock = model.NewResourceVector(0, 50, 0, 0)
	n = s.Drain(stock, func(string, *Request) bool { return false })
	if n != 0 || low.Len() != 1 {
		t.Errorf("refused item should stay queued, n=%d len=%d", n, low.Len())
	}
}

func TestDrainHeldCountsUntilClaimed(t *testing.T) {
	s := NewQueueSet()
	q := s.Ensure("plan-1", 1)
	q.AddItem(&Request{Template: "spearman", Count: 2, Label: "plan-1/cat-0", Cost: model.NewResourceVector(50, 0, 0, 0)})

	n := s.DrainHeld(model.NewResourceVector(50, 0, 0, 0), 10*time.Second, func(string, *Request) bool { return true })
	if n != 1 || q.Len() != 0 {
		t.Fatalf("started %d, %d pending; want 1 and 0", n, q.Len())
	}
	if got := q.CountQueuedUnitsWithTag("plan-1/cat-0"); got != 2 {
		t.Errorf("queued after dispatch = %d, want 2", got)
	}

	tests := []struct {
		template string
		ok       bool
		queued   int
	}{
		{"archer", false, 2},
		{"spearman", true, 1},
		{"spearman", true, 0},
		{"spearman", false, 0},
	}
	for i, tt := range tests {
		r, ok := s.Claim(tt.template)
		if ok != tt.ok {
			t.Fatalf("claim %d (%s) ok = %v, want %v", i, tt.template, ok, tt.ok)
		}
		if ok && r.Label != "plan-1/cat-0" {
			t.Errorf("claim %d label = %q", i, r.Label)
		}
		if got := q.CountQueuedUnitsWithTag("plan-1/cat-0"); got != tt.queued {
			t.Errorf("claim %d queued = %d, want %d", i, got, tt.queued)
		}
	}
	if len(q.Dispatched()) != 0 {
		t.Errorf("claimed batch still dispatched: %+v", q.Dispatched())
	}
}

func TestExpireDropsStaleBatches(t *testing.T) {
	s := NewQueueSet()
	q := s.Ensure("plan-1", 1)
	q.AddItem(&Request{Template: "spearman", Count: 1, Label: "a"})
	s.DrainHeld(model.ResourceVector{}, 0, func(string, *Request) bool { return true })
	q.AddItem(&Request{Template: "archer", Count: 1, Label: "b"})
	s.DrainHeld(model.ResourceVector{}, time.Minute, func(string, *Request) bool { return true })

	if n := s.Expire(90*time.Second, time.Minute); n != 1 {
		t.Fatalf("expired %d, want 1", n)
	}
	if q.CountQueuedUnitsWithTag("a") != 0 || q.CountQueuedUnitsWithTag("b") != 1 {
		t.Errorf("dispatched after expiry = %+v", q.Dispatched())
	}
	q.Empty()
	if len(q.Dispatched()) != 0 {
		t.Error("Empty kept dispatched batches")
	}
}
