package military

import (
	"log/slog"

	"github.com/0ad/0ad-sub001/model"
)

// UpdatePreparation runs one preparation step: choose a target, resolve a
// path, decide whether preparation is over, and otherwise reinforce.
func (p *Plan) UpdatePreparation(env *Env) PrepSignal {
	if p.state != Preparing || p.paused {
		return PrepContinue
	}
	w := env.World

	if p.hasTarget && !p.refreshTarget(w) {
		slog.Debug("plan target lost during preparation", "plan", p.id)
		p.resetPath()
	}
	if !p.hasTarget && !p.acquireTarget(w) {
		p.reason = ReasonNoTarget
		return PrepAbortUnreachable
	}
	if p.stepPath(env) == pathUnreachable {
		return PrepAbortUnreachable
	}

	statuses := p.scheduler.Statuses(w)
	live := 0
	allTarget, minMet := true, true
	for _, st := range statuses {
		if st.Dropped {
			continue
		}
		live++
		allTarget = allTarget && st.AtTarget()
		minMet = minMet && st.AtMin()
	}
	if live == 0 {
		p.reason = ReasonUnviable
		return PrepAbortUnviable
	}

	pop, popMax := w.Population()
	critical := popMax-pop < p.profile.PopHeadroomCritical
	expired := p.expired(w)
	if p.pathReady {
		switch {
		case allTarget, critical && minMet, expired && minMet:
			slog.Debug("preparation over", "plan", p.id, "atTarget", allTarget, "popCritical", critical, "expired", expired)
			return PrepStart
		}
	}
	if expired && !minMet {
		slog.Info("preparation expired below minimum", "plan", p.id, "type", p.kind)
		p.reason = ReasonUnviable
		return PrepAbortUnviable
	}

	p.scheduler.Adopt(w)
	p.scheduler.Step(w)
	if now := w.Now(); now-p.lastRegroup >= p.profile.RegroupEvery {
		p.lastRegroup = now
		w.Move(entityIDs(p.Roster(w)), p.rally)
	}
	return PrepContinue
}

func (p *Plan) expired(w EntityView) bool {
	return w.Now()-p.prepStart-p.pausedTotal >= p.budget
}

// Statuses exposes the scheduler's fulfillment snapshot.
func (p *Plan) Statuses(r Roster) []CategoryStatus {
	if p.scheduler == nil {
		return nil
	}
	return p.scheduler.Statuses(r)
}

// CategoryFor returns the first live category that accepts e.
func (p *Plan) CategoryFor(e model.Entity) (*UnitCategory, bool) {
	for _, c := range p.categories {
		if !c.Dropped && c.Accepts(e) {
			return c, true
		}
	}
	return nil, false
}
