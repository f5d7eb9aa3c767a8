// Package policy defines the decision capability: given a state and an
// available economy slot, choose the action to attempt. Policies read state
// but never mutate it; they are the open extension point the executor
// invokes once per available slot.
package policy

import (
	"github.com/clstatham/antikythera/internal/sim/action"
	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/state"
)

// Policy chooses an action for one economy slot of one turn.
//
// Implementations must be safe for concurrent use across trial workers and
// must not retain or mutate st. Returning an action the actor cannot
// legally take is a programming error surfaced by the executor, never
// silently dropped.
type Policy interface {
	Decide(st *state.State, id actor.ID, slot actor.Slot, src dice.Source) (action.Taken, error)
}

// Func adapts a plain function to the Policy interface.
type Func func(st *state.State, id actor.ID, slot actor.Slot, src dice.Source) (action.Taken, error)

// Decide calls f.
func (f Func) Decide(st *state.State, id actor.ID, slot actor.Slot, src dice.Source) (action.Taken, error) {
	return f(st, id, slot, src)
}

// wait is the universal fallback: forfeit the slot.
func wait(id actor.ID, slot actor.Slot) action.Taken {
	return action.Taken{Actor: id, Slot: slot, Action: action.Action{Type: action.Wait}}
}
