package rules

import (
	"strings"

	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/model"
)

// CampaignCounts tallies one campaign type's plans.
type CampaignCounts struct {
	Upcoming int
	Started  int
	Launched int // every plan ever created, finished ones included
}

// TriggerEnv is what a launch condition sees. Its methods are callable from
// expr expressions.
type TriggerEnv struct {
	View      military.EntityView
	Target    model.PlayerID
	Stock     model.ResourceVector
	Campaigns map[military.CampaignType]CampaignCounts
}

// Minutes is the elapsed match time.
func (e TriggerEnv) Minutes() float64 {
	return e.View.Now().Minutes()
}

func (e TriggerEnv) owned(keep func(model.Entity) bool) int {
	player := e.View.Player()
	return len(e.View.Query(func(x model.Entity) bool { return x.Owner == player && keep(x) }))
}

func parseTags(s string) (model.TagSet, bool) {
	var ts model.TagSet
	if err := ts.UnmarshalText([]byte(s)); err != nil {
		return 0, false
	}
	return ts, true
}

// Count is the number of owned units carrying every tag in tags ("Infantry+Ranged").
func (e TriggerEnv) Count(tags string) int {
	ts, ok := parseTags(tags)
	if !ok {
		return 0
	}
	return e.owned(func(x model.Entity) bool { return !x.Tags.Has(model.Structure) && x.Tags.HasAll(ts) })
}

// Structures is the number of owned structures carrying every tag in tags.
func (e TriggerEnv) Structures(tags string) int {
	ts, ok := parseTags(tags)
	if !ok {
		return 0
	}
	return e.owned(func(x model.Entity) bool { return x.Tags.Has(model.Structure) && x.Tags.HasAll(ts) })
}

// Military counts owned units that fight.
func (e TriggerEnv) Military() int {
	civilian := model.Tags(model.Structure, model.Worker, model.Trader, model.Support, model.Ship)
	return e.owned(func(x model.Entity) bool { return !x.Tags.HasAny(civilian) })
}

func (e TriggerEnv) Pop() int {
	pop, _ := e.View.Population()
	return pop
}

func (e TriggerEnv) PopMax() int {
	_, popMax := e.View.Population()
	return popMax
}

func (e TriggerEnv) PopFree() int {
	pop, popMax := e.View.Population()
	return popMax - pop
}

// Resource returns the stockpile of one resource ("food", "wood", ...).
func (e TriggerEnv) Resource(name string) float64 {
	return e.Stock.Get(model.ResourceType(strings.ToLower(name)))
}

// EnemyStructures counts the target player's known structures.
func (e TriggerEnv) EnemyStructures() int {
	return len(e.View.Query(func(x model.Entity) bool {
		return x.Owner == e.Target && x.Tags.Has(model.Structure)
	}))
}

// CanTrain reports whether some template carrying tags is producible now.
func (e TriggerEnv) CanTrain(tags string) bool {
	ts, ok := parseTags(tags)
	return ok && len(e.View.Producible(ts)) > 0
}

// HasWater reports whether the map has any water zone.
func (e TriggerEnv) HasWater() bool {
	t := e.View.Territory()
	return t != nil && t.HasWater()
}

func (e TriggerEnv) counts(kind string) CampaignCounts {
	t, err := military.ParseCampaignType(kind)
	if err != nil {
		return CampaignCounts{}
	}
	return e.Campaigns[t]
}

// Plans is the number of live plans (upcoming or started) of a campaign type.
func (e TriggerEnv) Plans(kind string) int {
	c := e.counts(kind)
	return c.Upcoming + c.Started
}

// Launched is the number of plans of a campaign type created this match.
func (e TriggerEnv) Launched(kind string) int {
	return e.counts(kind).Launched
}

// Active is the number of live plans of every type.
func (e TriggerEnv) Active() int {
	n := 0
	for _, c := range e.Campaigns {
		n += c.Upcoming + c.Started
	}
	return n
}
