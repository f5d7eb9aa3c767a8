// Package action defines the actions a policy can choose and the resolver
// that turns a chosen action into an ordered sequence of transitions. The
// resolver never mutates state; the executor applies what it returns.
package action

import (
	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/item"
)

// Type identifies what an actor intends to do with an economy slot.
type Type int

const (
	// Wait forfeits the slot without consuming it.
	Wait Type = iota
	// UnarmedStrike attacks a target without a weapon.
	UnarmedStrike
	// Attack attacks a target with a weapon from the actor's inventory.
	Attack
)

// String returns the action name.
func (t Type) String() string {
	switch t {
	case Wait:
		return "wait"
	case UnarmedStrike:
		return "unarmed strike"
	case Attack:
		return "attack"
	default:
		return "unknown"
	}
}

// Action is one chosen action: the type plus its parameters.
type Action struct {
	Type Type
	// Target is the defending actor for attack-shaped actions.
	Target actor.ID
	// Weapon is the weapon used for Attack.
	Weapon item.ID
	// Advantage carries the to-hit advantage mode from status effects.
	Advantage dice.Advantage
}

// Taken binds an action to the actor taking it and the economy slot it
// spends.
type Taken struct {
	Actor  actor.ID
	Slot   actor.Slot
	Action Action
}
