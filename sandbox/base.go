package sandbox

import "github.com/0ad/0ad-sub001/model"

// baseRadius is how far from the base centre dropsites count.
const baseRadius = 80

// Base is one player's economic foothold around the home civic centre.
// Workers gather remotely; a resource only flows while a dropsite stands.
type Base struct {
	m      *Match
	player model.PlayerID
	id     int
	pos    model.Vec2
}

func (b *Base) ID() int { return b.id }

func (b *Base) workers(keep func(u *unit) bool) []*unit {
	var out []*unit
	for _, id := range b.m.ids {
		u := b.m.units[id]
		if u.Owner == b.player && u.HP > 0 && u.aboard == 0 && u.Tags.Has(model.Worker) && keep(u) {
			out = append(out, u)
		}
	}
	return out
}

// GatherRates sums the per-second yield of every worker on a resource the
// base can drop.
func (b *Base) GatherRates() model.ResourceVector {
	rates := model.NewResourceVector(0, 0, 0, 0)
	for _, u := range b.workers(func(u *unit) bool { return u.Order.Kind == model.OrderGather }) {
		r := u.Order.Resource
		if b.HasDropsite(r) {
			rates.Set(r, rates.Get(r)+b.m.gatherRate(u, r))
		}
	}
	return rates
}

func (b *Base) IdleWorkers() []model.EntityID {
	var out []model.EntityID
	for _, u := range b.workers(func(u *unit) bool { return u.Idle() }) {
		out = append(out, u.ID)
	}
	return out
}

func (b *Base) HasDropsite(model.ResourceType) bool {
	for _, id := range b.m.ids {
		u := b.m.units[id]
		if u.Owner == b.player && u.HP > 0 && u.Tags.Has(model.Dropsite) && u.Pos.Dist(b.pos) <= baseRadius {
			return true
		}
	}
	return false
}

// Assign puts a worker on r immediately; the host owns its own orders.
func (b *Base) Assign(worker model.EntityID, r model.ResourceType) bool {
	u, ok := b.m.alive(worker)
	if !ok || u.Owner != b.player || !u.Tags.Has(model.Worker) {
		return false
	}
	u.Order = model.Order{Kind: model.OrderGather, Resource: r}
	return true
}
