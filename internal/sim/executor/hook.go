package executor

import (
	"github.com/clstatham/antikythera/internal/sim/action"
	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/state"
)

// Hook observes encounter lifecycle events. Hooks are read-only observers:
// they must not mutate the state they are handed. All callbacks run on the
// executor's goroutine in log order.
type Hook interface {
	OnCombatStart(st *state.State)
	OnRoundStart(st *state.State, round int)
	OnTurnStart(st *state.State, id actor.ID)
	OnActionExecuted(st *state.State, taken action.Taken)
	OnTurnEnd(st *state.State, id actor.ID)
	OnCombatEnd(st *state.State)
}

// BaseHook implements Hook with no-ops so observers can override only the
// callbacks they care about.
type BaseHook struct{}

func (BaseHook) OnCombatStart(*state.State)                 {}
func (BaseHook) OnRoundStart(*state.State, int)             {}
func (BaseHook) OnTurnStart(*state.State, actor.ID)         {}
func (BaseHook) OnActionExecuted(*state.State, action.Taken) {}
func (BaseHook) OnTurnEnd(*state.State, actor.ID)           {}
func (BaseHook) OnCombatEnd(*state.State)                   {}

// Metrics is a Hook that tallies encounter-level counters. It is cheap
// enough to attach to every trial.
type Metrics struct {
	BaseHook

	Rounds  int
	Turns   int
	Actions int
}

func (m *Metrics) OnRoundStart(_ *state.State, _ int)            { m.Rounds++ }
func (m *Metrics) OnTurnStart(_ *state.State, _ actor.ID)        { m.Turns++ }
func (m *Metrics) OnActionExecuted(_ *state.State, _ action.Taken) { m.Actions++ }
