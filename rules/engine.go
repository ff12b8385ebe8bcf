package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/0ad/0ad-sub001/military"
)

// Engine runs compiled launch triggers against one player's state each turn.
// Triggers fire in priority order; only the first true trigger of a campaign
// type counts, so one turn never asks for two plans of the same type.
type Engine struct {
	mu       sync.RWMutex
	triggers []*Trigger
	lastDiag int
}

// NewEngine compiles all trigger conditions into expr bytecode and sorts by priority.
func NewEngine(triggers []*Trigger) (*Engine, error) {
	compiled, err := compileTriggers(triggers)
	if err != nil {
		return nil, err
	}
	return &Engine{triggers: compiled}, nil
}

// Evaluate returns the campaign types whose triggers hold, highest priority first.
func (e *Engine) Evaluate(env TriggerEnv) []military.CampaignType {
	e.mu.RLock()
	triggers := e.triggers
	e.mu.RUnlock()

	fired := make(map[military.CampaignType]bool)
	var out []military.CampaignType
	for _, t := range triggers {
		if fired[t.Campaign] {
			continue
		}
		result, err := vm.Run(t.program, env)
		if err != nil {
			slog.Warn("trigger condition error", "trigger", t.Name, "error", err)
			continue
		}
		match, ok := result.(bool)
		if !ok || !match {
			continue
		}
		fired[t.Campaign] = true
		out = append(out, t.Campaign)
		slog.Debug("trigger fired", "trigger", t.Name, "priority", t.Priority, "campaign", t.Campaign)
	}
	return out
}

// Swap atomically replaces the trigger set (called on config reload).
// Compiles first; if compilation fails the old triggers remain active.
func (e *Engine) Swap(triggers []*Trigger) error {
	compiled, err := compileTriggers(triggers)
	if err != nil {
		return err
	}
	names := make([]string, len(compiled))
	for i, t := range compiled {
		names[i] = t.Name
	}
	e.mu.Lock()
	e.triggers = compiled
	e.mu.Unlock()
	slog.Info("trigger set swapped", "count", len(compiled), "triggers", names)
	return nil
}

// Triggers returns the active trigger set in evaluation order.
func (e *Engine) Triggers() []*Trigger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*Trigger(nil), e.triggers...)
}

// LogDiagnostics helps debug "why doesn't the AI attack?". Throttled to
// once every 100 turns.
func (e *Engine) LogDiagnostics(turn int, env TriggerEnv) {
	if turn-e.lastDiag < 100 {
		return
	}
	e.lastDiag = turn
	slog.Info("campaign diagnostics",
		"minutes", env.Minutes(),
		"military", env.Military(),
		"barracks", env.Structures("Barracks"),
		"popFree", env.PopFree(),
		"active", env.Active(),
		"enemyStructures", env.EnemyStructures(),
	)
}

func compileTriggers(triggers []*Trigger) ([]*Trigger, error) {
	out := make([]*Trigger, 0, len(triggers))
	for _, t := range triggers {
		prog, err := expr.Compile(t.ConditionSrc, expr.Env(TriggerEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile trigger %q: %w", t.Name, err)
		}
		c := *t
		c.program = prog
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out, nil
}
