package model

// GameState is the per-turn snapshot a host sends to the sidecar.
type GameState struct {
	Tick     int         `json:"tick"`
	TimeMs   int64       `json:"timeMs"`
	Player   Player      `json:"player"`
	Entities []Entity    `json:"entities"`
	Bases    []BaseState `json:"bases"`
	// Territory is the row-major zone owner grid; nil keeps the last one.
	Territory []PlayerID `json:"territory,omitempty"`
}

type Player struct {
	ID     PlayerID       `json:"id"`
	Name   string         `json:"name"`
	Pop    int            `json:"pop"`
	PopMax int            `json:"popMax"`
	Stock  ResourceVector `json:"stock"`
}

// BaseState is the host's telemetry for one economic foothold.
type BaseState struct {
	ID          int            `json:"id"`
	Pos         Vec2           `json:"pos"`
	Dropsites   []ResourceType `json:"dropsites"`
	GatherRates ResourceVector `json:"gatherRates"`
	Workers     []EntityID     `json:"workers"`
}
