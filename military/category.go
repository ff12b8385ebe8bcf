package military

import (
	"fmt"

	"github.com/0ad/0ad-sub001/model"
)

// UnitCategory is one slot of a plan's composition. Its roster is never
// stored here: it is whatever the registry has tagged with (plan, Index).
type UnitCategory struct {
	Index int
	Spec  CategorySpec
	// Dropped is set once no template can be produced for the category.
	Dropped bool

	plan int
}

func newCategories(plan int, specs []CategorySpec) []*UnitCategory {
	out := make([]*UnitCategory, len(specs))
	for i, s := range specs {
		out[i] = &UnitCategory{Index: i, Spec: s, plan: plan}
	}
	return out
}

// Label tags queued requests so CountQueuedUnitsWithTag can find them.
func (c *UnitCategory) Label() string {
	return fmt.Sprintf("plan-%d/cat-%d", c.plan, c.Index)
}

func (c *UnitCategory) Assignment() model.Assignment {
	return model.Assignment{Plan: c.plan, Category: c.Index}
}

func (c *UnitCategory) Roster(r Roster) []model.Entity {
	return r.Members(c.plan, c.Index)
}

// Accepts reports whether e could serve in this category.
func (c *UnitCategory) Accepts(e model.Entity) bool {
	return e.Tags.HasAll(c.Spec.Tags)
}

// CategoryStatus is one category's fulfillment snapshot for a turn.
type CategoryStatus struct {
	Index    int
	Priority float64
	Live     int
	Queued   int
	Target   int
	Min      int
	Dropped  bool
}

// Fulfillment is (live + queued) / target. A zero target is always saturated.
func (s CategoryStatus) Fulfillment() float64 {
	if s.Target <= 0 {
		return 1
	}
	return float64(s.Live+s.Queued) / float64(s.Target)
}

func (s CategoryStatus) AtTarget() bool { return s.Live >= s.Target }
func (s CategoryStatus) AtMin() bool    { return s.Live >= s.Min }
