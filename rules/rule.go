package rules

import (
	"github.com/expr-lang/expr/vm"

	"github.com/0ad/0ad-sub001/military"
)

// Trigger launches a campaign of one type when its condition holds.
// Triggers are evaluated by priority; the first true trigger of each
// campaign type fires.
type Trigger struct {
	Name         string                `mapstructure:"name"`
	Campaign     military.CampaignType `mapstructure:"campaign"`
	Priority     int                   `mapstructure:"priority"` // higher = evaluated first
	ConditionSrc string                `mapstructure:"condition"`
	program      *vm.Program
}
