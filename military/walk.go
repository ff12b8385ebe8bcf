package military

import (
	"log/slog"

	"github.com/0ad/0ad-sub001/model"
)

// Update advances a started plan by one turn.
func (p *Plan) Update(env *Env) Outcome {
	if p.paused {
		return Running
	}
	switch p.state {
	case Walking:
		return p.updateWalking(env)
	case Transporting:
		return p.updateTransporting(env)
	case Arrived:
		return p.updateArrived(env)
	case Engaging:
		return p.updateEngaging(env)
	case Completed:
		return Finished
	case Aborted:
		return Failed
	default:
		return Running
	}
}

func (p *Plan) updateWalking(env *Env) Outcome {
	w := env.World
	members := p.Roster(w)
	if len(members) == 0 {
		p.reason = ReasonRosterLost
		return Failed
	}
	if !p.refreshTarget(w) && !p.retarget(w) {
		// Nothing left to attack: the campaign is over.
		p.arrive(env)
		p.setState(Engaging)
		p.complete(env, ReasonNoTarget)
		return Finished
	}

	centroid, _ := model.Centroid(positions(members))
	if centroid.DistSq(p.lastCentroid) < p.profile.StuckEpsilonSq {
		p.stuckTurns++
	} else {
		p.stuckTurns = 0
	}
	p.lastCentroid = centroid
	if p.stuckTurns >= p.profile.StuckTurns {
		p.stuckTurns = 0
		p.unstick(env, members, centroid)
	}

	if centroid.Dist(p.targetPos) <= p.profile.ArriveRadius {
		p.arrive(env)
		return Running
	}
	if p.waypointIdx < len(p.path) && centroid.Dist(p.path[p.waypointIdx].Pos) <= p.profile.WaypointRadius {
		p.waypointIdx++
		if p.waypointIdx >= len(p.path) {
			p.arrive(env)
			return Running
		}
		next := p.path[p.waypointIdx]
		if next.WaterCrossing {
			return p.embark(env, members, centroid, next)
		}
		p.moveToWaypoint(env, entityIDs(members))
	}
	return Running
}

// unstick sacrifices the non-core unit farthest from the centroid: siege
// first, then support. Without one the move order is reissued.
func (p *Plan) unstick(env *Env, members []model.Entity, centroid model.Vec2) {
	w := env.World
	for _, tag := range []model.Tag{model.Siege, model.Support} {
		var victim model.Entity
		far := -1.0
		for _, e := range members {
			if !e.Tags.Has(tag) {
				continue
			}
			if d := e.Pos.DistSq(centroid); d > far {
				victim, far = e, d
			}
		}
		if far < 0 {
			continue
		}
		w.Unassign(victim.ID)
		w.Move([]model.EntityID{victim.ID}, p.rally)
		slog.Info("roster stuck, unit left behind", "plan", p.id, "unit", victim.ID, "template", victim.Template)
		return
	}
	slog.Debug("roster stuck, reissuing move", "plan", p.id)
	p.moveToWaypoint(env, entityIDs(members))
}

func (p *Plan) moveToWaypoint(env *Env, ids []model.EntityID) {
	dest := p.targetPos
	if p.waypointIdx < len(p.path) {
		dest = p.path[p.waypointIdx].Pos
	}
	env.World.Move(ids, dest)
}

func (p *Plan) embark(env *Env, members []model.Entity, from model.Vec2, leg Waypoint) Outcome {
	t, err := env.Transport.Request(entityIDs(members), from, leg.Pos)
	if err != nil {
		slog.Warn("transport request failed", "plan", p.id, "error", err)
		p.reason = ReasonTransport
		return Failed
	}
	p.ticket = t
	p.setState(Transporting)
	slog.Debug("plan embarked", "plan", p.id, "ticket", t)
	return Running
}

func (p *Plan) updateTransporting(env *Env) Outcome {
	w := env.World
	if len(p.Roster(w)) == 0 {
		p.reason = ReasonRosterLost
		return Failed
	}
	p.refreshTarget(w)
	if !env.Transport.Done(p.ticket) {
		return Running
	}
	p.setState(Walking)
	// The water leg is behind us.
	p.waypointIdx++
	members := p.Roster(w)
	if c, ok := model.Centroid(positions(members)); ok {
		p.lastCentroid = c
	}
	p.stuckTurns = 0
	if p.waypointIdx >= len(p.path) {
		p.arrive(env)
		return Running
	}
	p.moveToWaypoint(env, entityIDs(members))
	return Running
}

func (p *Plan) arrive(env *Env) {
	if p.setState(Arrived) {
		slog.Info("plan arrived", "plan", p.id, "type", p.kind, "roster", len(p.Roster(env.World)))
	}
}

// updateArrived applies the campaign's one-shot arrival reaction.
func (p *Plan) updateArrived(env *Env) Outcome {
	w := env.World
	members := p.Roster(w)
	if len(members) == 0 {
		p.reason = ReasonRosterLost
		return Failed
	}
	p.refreshTarget(w)
	if p.profile.Arrival == ArrivalRetarget {
		soft := w.Query(func(e model.Entity) bool {
			return w.IsEnemy(e.Owner) &&
				e.Tags.HasAny(model.Tags(model.Worker, model.Trader, model.Support)) &&
				e.Pos.Dist(p.targetPos) <= p.profile.RetargetRadius
		})
		if t, ok := Nearest(soft, p.targetPos); ok {
			p.target, p.targetPos, p.hasTarget = t.ID, t.Pos, true
			p.targetPlayer = t.Owner
			slog.Debug("plan retargeted on arrival", "plan", p.id, "target", t.ID)
		}
	}
	ids := entityIDs(members)
	w.SetStance(ids, model.StanceAggressive)
	w.AttackMove(ids, p.targetPos)
	p.setState(Engaging)
	return Running
}

// retarget re-acquires after the committed target is gone, within the
// retarget allowance.
func (p *Plan) retarget(w EntityView) bool {
	if p.retargets >= p.profile.MaxRetargets {
		return false
	}
	p.retargets++
	if !p.acquireTarget(w) {
		return false
	}
	slog.Debug("plan retargeted", "plan", p.id, "target", p.target, "attempt", p.retargets)
	return true
}
