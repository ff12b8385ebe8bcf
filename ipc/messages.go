package ipc

import (
	"time"

	"github.com/0ad/0ad-sub001/model"
)

// These constants must stay in sync with the host's message type table.
const (
	TypeHello     = "hello"
	TypeAck       = "ack"
	TypeGameState = "game_state"
	TypeCommands  = "commands"
)

type HelloMessage struct {
	Player    model.PlayerID   `json:"player"`
	Name      string           `json:"name"`
	Enemies   []model.PlayerID `json:"enemies"`
	Terrain   *TerrainData     `json:"terrain,omitempty"`
	Templates []TemplateData   `json:"templates,omitempty"`
}

// TerrainData carries the coarse terrain grid from the host.
// Optional; if absent the sidecar plans on an all-land single zone.
type TerrainData struct {
	Cols  int     `json:"cols"`
	Rows  int     `json:"rows"`
	CellW float64 `json:"cellW"`
	CellH float64 `json:"cellH"`
	Grid  []int   `json:"grid"`
}

// TerrainGrid converts the payload. Unknown terrain codes read as Cliff.
func (t *TerrainData) TerrainGrid() *model.TerrainGrid {
	if t == nil || t.Cols <= 0 || t.Rows <= 0 {
		return nil
	}
	g := model.NewTerrainGrid(t.Cols, t.Rows, t.CellW, t.CellH)
	for i, v := range t.Grid {
		if i >= len(g.Grid) {
			break
		}
		tt := model.TerrainType(v)
		if tt > model.Bridge {
			tt = model.Cliff
		}
		g.Grid[i] = tt
	}
	return g
}

// TemplateData is one producible template as the host describes it.
type TemplateData struct {
	Name        string               `json:"name"`
	Tags        model.TagSet         `json:"tags"`
	Cost        model.ResourceVector `json:"cost"`
	Strength    float64              `json:"strength"`
	Speed       float64              `json:"speed"`
	HP          float64              `json:"hp"`
	Gather      model.ResourceVector `json:"gather,omitempty"`
	Pop         int                  `json:"pop"`
	Requires    model.TagSet         `json:"requires,omitempty"`
	BuildTimeMs int64                `json:"buildTimeMs,omitempty"`
}

func (t TemplateData) Template() model.Template {
	return model.Template{
		Name:      t.Name,
		Tags:      t.Tags,
		Cost:      t.Cost,
		Strength:  t.Strength,
		Speed:     t.Speed,
		HP:        t.HP,
		Gather:    t.Gather,
		Pop:       t.Pop,
		Requires:  t.Requires,
		BuildTime: time.Duration(t.BuildTimeMs) * time.Millisecond,
	}
}

// Ack statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

type AckMessage struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
