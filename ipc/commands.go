package ipc

import (
	"math"

	"github.com/0ad/0ad-sub001/model"
)

// Command type constants; must stay in sync with the host's command executor.
const (
	TypeMove       = "move"
	TypeAttack     = "attack"
	TypeAttackMove = "attack_move"
	TypeGarrison   = "garrison"
	TypeStance     = "stance"
	TypeGather     = "gather"
	TypeProduce    = "produce"
)

// CommandsMessage is the sidecar's reply to a game_state: every order the
// AI recorded during that turn, to be applied on the next one.
type CommandsMessage struct {
	Tick     int       `json:"tick"`
	Commands []Command `json:"commands"`
}

// Command is one wire order. Only the fields of its Type are set.
type Command struct {
	Type         string   `json:"type"`
	ActorIDs     []uint32 `json:"actor_ids,omitempty"`
	TargetID     uint32   `json:"target_id,omitempty"`
	X            int      `json:"x,omitempty"`
	Y            int      `json:"y,omitempty"`
	Stance       string   `json:"stance,omitempty"`
	Resource     string   `json:"resource,omitempty"`
	Item         string   `json:"item,omitempty"`
	Count        int      `json:"count,omitempty"`
	Label        string   `json:"label,omitempty"`
	AllowCapture bool     `json:"allow_capture,omitempty"`
}

var commandTypes = map[model.CommandKind]string{
	model.CmdMove:       TypeMove,
	model.CmdAttack:     TypeAttack,
	model.CmdAttackMove: TypeAttackMove,
	model.CmdGarrison:   TypeGarrison,
	model.CmdStance:     TypeStance,
	model.CmdGather:     TypeGather,
	model.CmdProduce:    TypeProduce,
}

// EncodeCommands converts recorded commands into wire orders. Kinds the
// host does not know are skipped.
func EncodeCommands(cmds []model.Command) []Command {
	out := make([]Command, 0, len(cmds))
	for _, c := range cmds {
		typ, ok := commandTypes[c.Kind]
		if !ok {
			continue
		}
		wc := Command{
			Type:         typ,
			TargetID:     uint32(c.Target),
			Stance:       string(c.Stance),
			Resource:     string(c.Resource),
			Item:         c.Template,
			Count:        c.Count,
			Label:        c.Label,
			AllowCapture: c.AllowCapture,
		}
		if len(c.Units) > 0 {
			wc.ActorIDs = make([]uint32, len(c.Units))
			for i, id := range c.Units {
				wc.ActorIDs[i] = uint32(id)
			}
		}
		switch c.Kind {
		case model.CmdMove, model.CmdAttackMove:
			wc.X, wc.Y = int(math.Round(c.Pos.X)), int(math.Round(c.Pos.Y))
		}
		out = append(out, wc)
	}
	return out
}
