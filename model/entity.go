package model

import "time"

// EntityID identifies a live entity for the lifetime of a match.
type EntityID int

// PlayerID identifies a player slot. Zero is gaia (unowned).
type PlayerID int

// OrderKind is what an entity is currently doing.
type OrderKind uint8

const (
	OrderIdle OrderKind = iota
	OrderMove
	OrderAttack
	OrderAttackMove
	OrderGather
	OrderGarrison
)

func (k OrderKind) String() string {
	switch k {
	case OrderIdle:
		return "idle"
	case OrderMove:
		return "move"
	case OrderAttack:
		return "attack"
	case OrderAttackMove:
		return "attack_move"
	case OrderGather:
		return "gather"
	case OrderGarrison:
		return "garrison"
	default:
		return "unknown"
	}
}

// Order is an entity's current order as seen by the AI.
type Order struct {
	Kind     OrderKind    `json:"kind"`
	Target   EntityID     `json:"target,omitempty"`
	Pos      Vec2         `json:"pos"`
	Resource ResourceType `json:"resource,omitempty"`
}

// Entity is a read-only view of a simulation entity.
type Entity struct {
	ID        EntityID `json:"id"`
	Owner     PlayerID `json:"owner"`
	Template  string   `json:"template"`
	Pos       Vec2     `json:"pos"`
	Tags      TagSet   `json:"tags"`
	HP        float64  `json:"hp"`
	MaxHP     float64  `json:"maxHp"`
	Strength  float64  `json:"strength"`
	Speed     float64  `json:"speed"`
	Order     Order    `json:"order"`
	Garrisons int      `json:"garrisons,omitempty"`
}

func (e Entity) Idle() bool { return e.Order.Kind == OrderIdle }

// HealthFraction is HP/MaxHP, 1 when MaxHP is unknown.
func (e Entity) HealthFraction() float64 {
	if e.MaxHP <= 0 {
		return 1
	}
	return e.HP / e.MaxHP
}

// Assignment places an entity in one category of one attack plan.
type Assignment struct {
	Plan     int
	Category int
}

// Template describes something the player can produce.
type Template struct {
	Name     string         `mapstructure:"name"`
	Tags     TagSet         `mapstructure:"tags"`
	Cost     ResourceVector `mapstructure:"cost"`
	Strength float64        `mapstructure:"strength"`
	Speed    float64        `mapstructure:"speed"`
	HP       float64        `mapstructure:"hp"`
	Gather   ResourceVector `mapstructure:"gather"`
	Pop      int            `mapstructure:"pop"`
	// Requires lists structure tags; one owned structure carrying any of them
	// must exist for the template to be trainable. Empty means no requirement.
	Requires TagSet `mapstructure:"requires"`
	// BuildTime is how long one unit takes once paid for.
	BuildTime time.Duration `mapstructure:"build_time"`
}

// AttackEvent reports that one of our entities took damage this turn.
type AttackEvent struct {
	Target   EntityID `json:"target"`
	Attacker EntityID `json:"attacker"`
	Pos      Vec2     `json:"pos"`
}

// Stance is the engagement behavior set on units.
type Stance string

const (
	StanceAggressive Stance = "aggressive"
	StanceDefensive  Stance = "defensive"
	StancePassive    Stance = "passive"
)

// CommandKind enumerates the commands the AI may issue.
type CommandKind string

const (
	CmdMove       CommandKind = "move"
	CmdAttack     CommandKind = "attack"
	CmdAttackMove CommandKind = "attack_move"
	CmdGarrison   CommandKind = "garrison"
	CmdStance     CommandKind = "stance"
	CmdGather     CommandKind = "gather"
	CmdProduce    CommandKind = "produce"
)

// Command is an order recorded during a turn and applied by the host on the next one.
type Command struct {
	Kind     CommandKind  `json:"kind"`
	Units    []EntityID   `json:"units,omitempty"`
	Target   EntityID     `json:"target,omitempty"`
	Pos      Vec2         `json:"pos"`
	Stance   Stance       `json:"stance,omitempty"`
	Resource ResourceType `json:"resource,omitempty"`
	Template string       `json:"template,omitempty"`
	Count    int          `json:"count,omitempty"`
	// Label names the queue request a produce order trains for.
	Label string `json:"label,omitempty"`
	// AllowCapture lets an attack order capture instead of destroy.
	AllowCapture bool `json:"allowCapture,omitempty"`
}
