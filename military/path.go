package military

import (
	"log/slog"
)

type pathStep int

const (
	pathPending pathStep = iota
	pathResolved
	pathUnreachable
)

// stepPath advances the path search by one bounded call. Corridor widths are
// tried wide to narrow; a search that runs out of iterations resumes next turn.
func (p *Plan) stepPath(env *Env) pathStep {
	if p.pathReady {
		return pathResolved
	}
	if p.pf == nil {
		slog.Warn("plan has no path finder", "plan", p.id)
		p.reason = ReasonNoPath
		return pathUnreachable
	}
	widths := p.profile.CorridorWidths
	if p.widthIdx >= len(widths) {
		p.reason = ReasonNoPath
		return pathUnreachable
	}

	var res PathResult
	if p.searching {
		res = p.pf.ContinuePath()
	} else {
		res = p.pf.GetPath(p.rally, p.targetPos, p.profile.PathSampling, widths[p.widthIdx], p.profile.PathMaxIterations)
	}

	switch res.Status {
	case PathContinue:
		p.searching = true
		return pathPending
	case PathNone:
		p.searching = false
		p.widthIdx++
		if p.widthIdx >= len(widths) {
			slog.Info("no path at any corridor width", "plan", p.id, "target", p.target)
			p.reason = ReasonNoPath
			return pathUnreachable
		}
		slog.Debug("path narrowed", "plan", p.id, "width", widths[p.widthIdx])
		return pathPending
	case PathReady:
		p.searching = false
		if crossesWater(res.Waypoints) && env.Transport == nil {
			slog.Info("path needs transport but none is available", "plan", p.id)
			p.reason = ReasonNoPath
			return pathUnreachable
		}
		p.path = res.Waypoints
		if len(p.path) == 0 {
			p.path = []Waypoint{{Pos: p.targetPos}}
		}
		p.pathReady = true
		slog.Debug("path resolved", "plan", p.id, "waypoints", len(p.path), "width", widths[p.widthIdx])
		return pathResolved
	default:
		p.reason = ReasonNoPath
		return pathUnreachable
	}
}

// resetPath forgets the resolved path so the next step searches again.
func (p *Plan) resetPath() {
	p.path = nil
	p.pathReady = false
	p.searching = false
	p.widthIdx = 0
}

func crossesWater(wps []Waypoint) bool {
	for _, wp := range wps {
		if wp.WaterCrossing {
			return true
		}
	}
	return false
}
