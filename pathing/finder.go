// Package pathing is a grid A* over the coarse terrain grid. Searches are
// bounded per call and resumable, and report the legs that cross water.
package pathing

import (
	"container/heap"
	"log/slog"
	"math"

	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/model"
)

// waterCost multiplies the cost of stepping into a water zone, so a land
// route is preferred whenever one exists.
const waterCost = 4

// node is one open-set entry. Stale entries are skipped on pop.
type node struct {
	cell int
	f    float64
}

type openSet []node

func (h openSet) Len() int           { return len(h) }
func (h openSet) Less(i, j int) bool { return h[i].f < h[j].f }
func (h openSet) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *openSet) Push(x any)        { *h = append(*h, x.(node)) }
func (h *openSet) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

// Finder implements military.PathFinder over one terrain grid. One search
// is in flight at a time; GetPath discards any previous one.
type Finder struct {
	grid      *model.TerrainGrid
	clearance map[int][]bool

	// search state, kept between calls
	active   bool
	to       model.Vec2
	start    int
	goal     int
	sampling float64
	maxIter  int
	pass     []bool
	g        []float64
	parent   []int
	closed   []bool
	open     openSet
}

func New(grid *model.TerrainGrid) *Finder {
	return &Finder{grid: grid, clearance: make(map[int][]bool)}
}

// GetPath starts a new search. width is the corridor clearance in world
// units; sampling is the waypoint density, roughly one waypoint every
// 4/sampling zones.
func (f *Finder) GetPath(from, to model.Vec2, sampling, width float64, maxIterations int) military.PathResult {
	g := f.grid
	sc, sr := g.Zone(from)
	gc, gr := g.Zone(to)
	if !f.inGrid(sc, sr) || !f.inGrid(gc, gr) || g.At(sc, sr) == model.Cliff || g.At(gc, gr) == model.Cliff {
		f.active = false
		return military.PathResult{Status: military.PathNone}
	}

	n := g.Cols * g.Rows
	f.active = true
	f.to = to
	f.start, f.goal = sr*g.Cols+sc, gr*g.Cols+gc
	f.sampling = sampling
	f.maxIter = max(1, maxIterations)
	f.pass = f.passable(width)
	f.g = make([]float64, n)
	f.parent = make([]int, n)
	f.closed = make([]bool, n)
	for i := range f.g {
		f.g[i] = math.Inf(1)
		f.parent[i] = -1
	}
	f.g[f.start] = 0
	f.open = f.open[:0]
	heap.Push(&f.open, node{cell: f.start, f: f.heuristic(f.start)})
	return f.run()
}

// ContinuePath resumes the search GetPath left at PathContinue.
func (f *Finder) ContinuePath() military.PathResult {
	if !f.active {
		return military.PathResult{Status: military.PathNone}
	}
	return f.run()
}

func (f *Finder) run() military.PathResult {
	cols := f.grid.Cols
	for iter := 0; iter < f.maxIter; iter++ {
		if f.open.Len() == 0 {
			f.active = false
			return military.PathResult{Status: military.PathNone}
		}
		cur := heap.Pop(&f.open).(node)
		if f.closed[cur.cell] {
			continue
		}
		if cur.cell == f.goal {
			f.active = false
			return military.PathResult{Status: military.PathReady, Waypoints: f.waypoints()}
		}
		f.closed[cur.cell] = true

		col, row := cur.cell%cols, cur.cell/cols
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if dc == 0 && dr == 0 {
					continue
				}
				nc, nr := col+dc, row+dr
				if !f.inGrid(nc, nr) {
					continue
				}
				next := nr*cols + nc
				if f.closed[next] || !f.enterable(next) {
					continue
				}
				// No corner cutting past blocked zones.
				if dc != 0 && dr != 0 && (!f.enterable(row*cols+nc) || !f.enterable(nr*cols+col)) {
					continue
				}
				step := f.grid.ZoneCenter(col, row).Dist(f.grid.ZoneCenter(nc, nr))
				if f.grid.At(nc, nr) == model.Water {
					step *= waterCost
				}
				if cost := f.g[cur.cell] + step; cost < f.g[next] {
					f.g[next] = cost
					f.parent[next] = cur.cell
					heap.Push(&f.open, node{cell: next, f: cost + f.heuristic(next)})
				}
			}
		}
	}
	slog.Debug("path search paused", "open", f.open.Len())
	return military.PathResult{Status: military.PathContinue}
}

// enterable reports whether the search may enter cell. The endpoints only need
// to be walkable; everything else must clear the corridor.
func (f *Finder) enterable(cell int) bool {
	if cell == f.start || cell == f.goal {
		t := f.grid.Grid[cell]
		return t != model.Cliff
	}
	return f.pass[cell]
}

func (f *Finder) heuristic(cell int) float64 {
	cols := f.grid.Cols
	goal := f.grid.ZoneCenter(f.goal%cols, f.goal/cols)
	return f.grid.ZoneCenter(cell%cols, cell/cols).Dist(goal)
}

func (f *Finder) inGrid(col, row int) bool {
	return col >= 0 && row >= 0 && col < f.grid.Cols && row < f.grid.Rows
}

// passable marks zones whose whole corridor neighborhood is free of cliffs
// and map edges. Cached per clearance radius.
func (f *Finder) passable(width float64) []bool {
	g := f.grid
	k := clearanceCells(width, math.Min(g.CellW, g.CellH))
	if p, ok := f.clearance[k]; ok {
		return p
	}
	slog.Debug("corridor clearance", "width", width, "cells", k)
	p := make([]bool, g.Cols*g.Rows)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			p[row*g.Cols+col] = f.clear(col, row, k)
		}
	}
	f.clearance[k] = p
	return p
}

// clearanceCells is the neighborhood radius, in zones, a corridor of the
// given width needs on each side of its center zone.
func clearanceCells(width, cell float64) int {
	if cell <= 0 || width <= 0 {
		return 0
	}
	return int(width / (2 * cell))
}

func (f *Finder) clear(col, row, k int) bool {
	for dr := -k; dr <= k; dr++ {
		for dc := -k; dc <= k; dc++ {
			c, r := col+dc, row+dr
			if !f.inGrid(c, r) || f.grid.At(c, r) == model.Cliff {
				return false
			}
		}
	}
	return true
}

// waypoints walks the parent chain and samples it. A water leg produces an
// embark waypoint on the near shore and a landing waypoint flagged as a
// water crossing on the far one.
func (f *Finder) waypoints() []military.Waypoint {
	var cells []int
	for c := f.goal; c != -1; c = f.parent[c] {
		cells = append(cells, c)
	}
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}

	stride := 1
	if f.sampling > 0 {
		stride = max(1, int(math.Round(4/f.sampling)))
	}
	cols := f.grid.Cols
	center := func(c int) model.Vec2 { return f.grid.ZoneCenter(c%cols, c/cols) }

	var out []military.Waypoint
	inWater, since := false, 0
	for i := 1; i < len(cells); i++ {
		c := cells[i]
		last := i == len(cells)-1
		if f.grid.Grid[c] == model.Water {
			if !inWater {
				inWater = true
				prev := center(cells[i-1])
				if len(out) == 0 || out[len(out)-1].Pos != prev {
					out = append(out, military.Waypoint{Pos: prev})
				}
			}
			if !last {
				continue
			}
		}
		since++
		if inWater || since >= stride || last {
			out = append(out, military.Waypoint{Pos: center(c), WaterCrossing: inWater})
			inWater, since = false, 0
		}
	}
	if len(out) == 0 {
		out = append(out, military.Waypoint{})
	}
	out[len(out)-1].Pos = f.to
	return out
}

var _ military.PathFinder = (*Finder)(nil)
