package model

import "math"

// TerrainType classifies a coarse grid zone.
type TerrainType byte

const (
	Land   TerrainType = 0 // passable ground
	Water  TerrainType = 1 // naval only; land rosters need a ferry
	Cliff  TerrainType = 2 // impassable (rock, forest, wall)
	Bridge TerrainType = 3 // land corridor over water (chokepoint)
)

// TerrainGrid is a coarse map of CellW x CellH zones. Each zone stores a single
// TerrainType and the player whose territory covers it.
type TerrainGrid struct {
	Cols  int           // grid columns
	Rows  int           // grid rows
	CellW float64       // map units per grid column
	CellH float64       // map units per grid row
	Grid  []TerrainType // row-major: Grid[row*Cols + col]
	Owner []PlayerID    // row-major territory owner; nil means all gaia
}

// NewTerrainGrid builds an all-land, unowned grid.
func NewTerrainGrid(cols, rows int, cellW, cellH float64) *TerrainGrid {
	return &TerrainGrid{
		Cols:  cols,
		Rows:  rows,
		CellW: cellW,
		CellH: cellH,
		Grid:  make([]TerrainType, cols*rows),
		Owner: make([]PlayerID, cols*rows),
	}
}

func (g *TerrainGrid) inBounds(col, row int) bool {
	return col >= 0 && col < g.Cols && row >= 0 && row < g.Rows
}

// At returns the terrain type at grid coordinates (col, row).
// Returns Cliff for out-of-bounds coordinates so searches never leave the map.
func (g *TerrainGrid) At(col, row int) TerrainType {
	if !g.inBounds(col, row) {
		return Cliff
	}
	return g.Grid[row*g.Cols+col]
}

// Set stores t at (col, row); out-of-bounds writes are ignored.
func (g *TerrainGrid) Set(col, row int, t TerrainType) {
	if g.inBounds(col, row) {
		g.Grid[row*g.Cols+col] = t
	}
}

// Zone converts a map position to grid coordinates.
func (g *TerrainGrid) Zone(p Vec2) (col, row int) {
	if g.CellW <= 0 || g.CellH <= 0 {
		return 0, 0
	}
	return int(math.Floor(p.X / g.CellW)), int(math.Floor(p.Y / g.CellH))
}

// AtPos returns the terrain type under a map position.
func (g *TerrainGrid) AtPos(p Vec2) TerrainType {
	col, row := g.Zone(p)
	return g.At(col, row)
}

// ZoneCenter returns the map position of the center of zone (col, row).
func (g *TerrainGrid) ZoneCenter(col, row int) Vec2 {
	return Vec2{
		X: float64(col)*g.CellW + g.CellW/2,
		Y: float64(row)*g.CellH + g.CellH/2,
	}
}

// OwnerAt returns the territory owner under a map position, gaia when unknown.
func (g *TerrainGrid) OwnerAt(p Vec2) PlayerID {
	col, row := g.Zone(p)
	if !g.inBounds(col, row) || len(g.Owner) != len(g.Grid) {
		return 0
	}
	return g.Owner[row*g.Cols+col]
}

// Claim marks every zone within radius of center as owned by p.
func (g *TerrainGrid) Claim(center Vec2, radius float64, p PlayerID) {
	if len(g.Owner) != len(g.Grid) {
		g.Owner = make([]PlayerID, len(g.Grid))
	}
	r2 := radius * radius
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			if g.ZoneCenter(col, row).DistSq(center) <= r2 {
				g.Owner[row*g.Cols+col] = p
			}
		}
	}
}

// HasWater returns true if any zone in the grid is classified as Water.
func (g *TerrainGrid) HasWater() bool {
	for _, t := range g.Grid {
		if t == Water {
			return true
		}
	}
	return false
}
