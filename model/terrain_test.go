package model

import "testing"

func testGrid() *TerrainGrid {
	return &TerrainGrid{
		Cols:  4,
		Rows:  4,
		CellW: 8,
		CellH: 8,
		Grid: []TerrainType{
			Land, Land, Water, Water,
			Land, Land, Water, Water,
			Cliff, Bridge, Land, Land,
			Cliff, Land, Land, Land,
		},
	}
}

func TestTerrainGridAt(t *testing.T) {
	grid := testGrid()

	tests := []struct {
		col, row int
		want     TerrainType
	}{
		{0, 0, Land},
		{2, 0, Water},
		{0, 2, Cliff},
		{1, 2, Bridge},
		{3, 3, Land},
	}
	for _, tc := range tests {
		got := grid.At(tc.col, tc.row)
		if got != tc.want {
			t.Errorf("At(%d, %d) = %d, want %d", tc.col, tc.row, got, tc.want)
		}
	}
}

func TestTerrainGridAtOutOfBounds(t *testing.T) {
	grid := &TerrainGrid{
		Cols:  2,
		Rows:  2,
		CellW: 4,
		CellH: 4,
		Grid:  []TerrainType{Land, Land, Land, Land},
	}

	// Out-of-bounds is impassable so path searches stay on the map.
	for _, c := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		if got := grid.At(c[0], c[1]); got != Cliff {
			t.Errorf("At(%d, %d) = %d, want Cliff", c[0], c[1], got)
		}
	}
}

func TestTerrainGridAtPos(t *testing.T) {
	grid := testGrid()

	tests := []struct {
		pos  Vec2
		want TerrainType
	}{
		{Vec2{0, 0}, Land},
		{Vec2{4, 0}, Land},
		{Vec2{16, 0}, Water},
		{Vec2{24, 16}, Land},
		{Vec2{0, 16}, Cliff},
		{Vec2{8.5, 16.5}, Bridge},
	}
	for _, tc := range tests {
		got := grid.AtPos(tc.pos)
		if got != tc.want {
			t.Errorf("AtPos(%v) = %d, want %d", tc.pos, got, tc.want)
		}
	}
}

func TestTerrainGridZeroCells(t *testing.T) {
	grid := &TerrainGrid{Cols: 2, Rows: 2, Grid: []TerrainType{Water, Land, Land, Land}}
	if col, row := grid.Zone(Vec2{5, 5}); col != 0 || row != 0 {
		t.Errorf("Zone with zero cells = (%d,%d), want (0,0)", col, row)
	}
}

func TestTerrainGridZoneCenter(t *testing.T) {
	grid := testGrid()

	if c := grid.ZoneCenter(0, 0); c != (Vec2{4, 4}) {
		t.Errorf("ZoneCenter(0,0) = %v, want (4,4)", c)
	}
	if c := grid.ZoneCenter(1, 2); c != (Vec2{12, 20}) {
		t.Errorf("ZoneCenter(1,2) = %v, want (12,20)", c)
	}
}

func TestTerrainGridClaimAndOwner(t *testing.T) {
	grid := NewTerrainGrid(4, 4, 8, 8)
	grid.Claim(Vec2{4, 4}, 9, 2)

	if got := grid.OwnerAt(Vec2{1, 1}); got != 2 {
		t.Errorf("OwnerAt inside claim = %d, want 2", got)
	}
	if got := grid.OwnerAt(Vec2{30, 30}); got != 0 {
		t.Errorf("OwnerAt outside claim = %d, want gaia", got)
	}
	if got := grid.OwnerAt(Vec2{-5, 3}); got != 0 {
		t.Errorf("OwnerAt off map = %d, want gaia", got)
	}
}

func TestTerrainGridHasWater(t *testing.T) {
	noWater := &TerrainGrid{
		Cols: 2, Rows: 2, CellW: 4, CellH: 4,
		Grid: []TerrainType{Land, Land, Cliff, Land},
	}
	if noWater.HasWater() {
		t.Error("HasWater() should be false for land-only grid")
	}

	withWater := &TerrainGrid{
		Cols: 2, Rows: 2, CellW: 4, CellH: 4,
		Grid: []TerrainType{Land, Water, Cliff, Land},
	}
	if !withWater.HasWater() {
		t.Error("HasWater() should be true for grid with water")
	}
}
