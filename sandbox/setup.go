// Package sandbox is a headless match host. It plays the role the game
// engine plays for the sidecar: it owns the authoritative entity set, feeds
// every AI player a registry snapshot each turn, applies the commands they
// record and steps a coarse simulation of movement, combat, gathering,
// training and naval transport.
package sandbox

import (
	"fmt"
	"time"

	"github.com/0ad/0ad-sub001/model"
)

// Config describes one match.
type Config struct {
	Seed       int64         `mapstructure:"seed"`
	TurnLength time.Duration `mapstructure:"turn_length"`
	// CellSize is the side of one terrain zone in map units.
	CellSize float64 `mapstructure:"cell_size"`
	// Terrain rows, top to bottom: '.' land, '~' water, '#' cliff, '=' bridge.
	Terrain   []string         `mapstructure:"terrain"`
	Templates []model.Template `mapstructure:"templates"`
	Players   []PlayerSetup    `mapstructure:"players"`

	WorkerTemplate  string `mapstructure:"worker_template"`
	SoldierTemplate string `mapstructure:"soldier_template"`

	TerritoryRadius float64 `mapstructure:"territory_radius"`
	FerrySpeed      float64 `mapstructure:"ferry_speed"`
}

// PlayerSetup is one player's starting position.
type PlayerSetup struct {
	ID       model.PlayerID       `mapstructure:"id"`
	Name     string               `mapstructure:"name"`
	Home     model.Vec2           `mapstructure:"home"`
	Stock    model.ResourceVector `mapstructure:"stock"`
	PopMax   int                  `mapstructure:"pop_max"`
	Workers  int                  `mapstructure:"workers"`
	Soldiers int                  `mapstructure:"soldiers"`
	// Structures lists extra buildings raised next to the civic centre,
	// e.g. "Barracks" or "Dock".
	Structures []string `mapstructure:"structures"`
	// Passive players run no Headquarters; their units only defend.
	Passive bool `mapstructure:"passive"`
}

var terrainCodes = map[rune]model.TerrainType{
	'.': model.Land,
	'~': model.Water,
	'#': model.Cliff,
	'=': model.Bridge,
}

// ParseTerrain builds a grid from text rows. An empty layout is an open
// map of cols x rows land zones.
func ParseTerrain(layout []string, cellSize float64, cols, rows int) (*model.TerrainGrid, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("cell size %v must be positive", cellSize)
	}
	if len(layout) == 0 {
		if cols <= 0 || rows <= 0 {
			return nil, fmt.Errorf("empty terrain needs a size, got %dx%d", cols, rows)
		}
		return model.NewTerrainGrid(cols, rows, cellSize, cellSize), nil
	}
	width := len([]rune(layout[0]))
	g := model.NewTerrainGrid(width, len(layout), cellSize, cellSize)
	for row, line := range layout {
		runes := []rune(line)
		if len(runes) != width {
			return nil, fmt.Errorf("terrain row %d has %d zones, want %d", row, len(runes), width)
		}
		for col, c := range runes {
			t, ok := terrainCodes[c]
			if !ok {
				return nil, fmt.Errorf("terrain row %d col %d: unknown code %q", row, col, c)
			}
			g.Set(col, row, t)
		}
	}
	return g, nil
}

func tags(ts ...model.Tag) model.TagSet { return model.Tags(ts...) }

// DefaultTemplates is a small civilisation roster: citizens, basic
// infantry and cavalry, champions and a ram.
func DefaultTemplates() []model.Template {
	barracks := tags(model.Barracks, model.CivCentre)
	return []model.Template{
		{
			Name: "female_citizen", Tags: tags(model.Worker), Cost: model.NewResourceVector(50, 0, 0, 0),
			Strength: 1, Speed: 9, HP: 50, Pop: 1, BuildTime: 8 * time.Second,
			Gather: model.NewResourceVector(0.8, 0.6, 0.4, 0.4),
		},
		{
			Name: "spearman", Tags: tags(model.Infantry, model.Melee), Cost: model.NewResourceVector(50, 50, 0, 0),
			Strength: 6, Speed: 9, HP: 100, Pop: 1, Requires: barracks, BuildTime: 10 * time.Second,
			Gather: model.NewResourceVector(0.3, 0.5, 0.4, 0.4),
		},
		{
			Name: "archer", Tags: tags(model.Infantry, model.Ranged), Cost: model.NewResourceVector(50, 40, 0, 0),
			Strength: 4.5, Speed: 9, HP: 75, Pop: 1, Requires: barracks, BuildTime: 10 * time.Second,
		},
		{
			Name: "horseman", Tags: tags(model.Cavalry, model.Melee), Cost: model.NewResourceVector(100, 40, 0, 0),
			Strength: 7, Speed: 16, HP: 150, Pop: 1, Requires: tags(model.Stable, model.CivCentre), BuildTime: 12 * time.Second,
		},
		{
			Name: "champion_swordsman", Tags: tags(model.Infantry, model.Melee, model.Champion), Cost: model.NewResourceVector(80, 0, 0, 100),
			Strength: 12, Speed: 9, HP: 250, Pop: 1, Requires: tags(model.Fortress), BuildTime: 16 * time.Second,
		},
		{
			Name: "ram", Tags: tags(model.Siege, model.Melee), Cost: model.NewResourceVector(0, 300, 0, 100),
			Strength: 40, Speed: 7, HP: 400, Pop: 3, Requires: tags(model.Workshop, model.Fortress), BuildTime: 20 * time.Second,
		},
	}
}

// structureKinds are the buildings PlayerSetup.Structures may name.
var structureKinds = map[string]model.TagSet{
	"Barracks": tags(model.Structure, model.Barracks),
	"Stable":   tags(model.Structure, model.Stable),
	"Workshop": tags(model.Structure, model.Workshop),
	"Fortress": tags(model.Structure, model.Fortress),
	"Dock":     tags(model.Structure, model.Dock, model.Dropsite),
	"House":    tags(model.Structure, model.House),
	"Tower":    tags(model.Structure, model.Tower),
}
