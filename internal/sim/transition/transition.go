// Package transition defines the closed set of authoritative state changes
// and the append-only encounter log. A Transition is a single atomic
// operation on the encounter state; applying transitions in log order is
// the only sanctioned mutation path, which makes every recorded encounter
// replayable.
package transition

import (
	"fmt"

	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/state"
)

// Kind tags the transition variant. The set is closed: Apply matches it
// exhaustively, and the outcome graph keys edges by it.
type Kind int

const (
	KindBeginCombat Kind = iota
	KindEndCombat
	KindInitiativeRoll
	KindBeginRound
	KindAdvanceInitiative
	KindBeginTurn
	KindEndTurn
	KindEconomyUsed
	KindHealthModification
	KindActorDied
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBeginCombat:
		return "begin_combat"
	case KindEndCombat:
		return "end_combat"
	case KindInitiativeRoll:
		return "initiative_roll"
	case KindBeginRound:
		return "begin_round"
	case KindAdvanceInitiative:
		return "advance_initiative"
	case KindBeginTurn:
		return "begin_turn"
	case KindEndTurn:
		return "end_turn"
	case KindEconomyUsed:
		return "economy_used"
	case KindHealthModification:
		return "health_modification"
	case KindActorDied:
		return "actor_died"
	default:
		return "unknown"
	}
}

// Transition is one tagged, atomic state change. Transitions are
// deterministic and free of side effects: all randomness is resolved before
// a transition is constructed, so replaying a log reproduces the exact same
// states.
type Transition struct {
	Kind Kind
	// Actor is the acting or targeted actor for actor-scoped kinds.
	Actor actor.ID
	// Roll carries the initiative total for KindInitiativeRoll.
	Roll int
	// Round carries the new round number for KindBeginRound.
	Round int
	// Slot carries the consumed allotment for KindEconomyUsed.
	Slot actor.Slot
	// Delta carries the vitality change for KindHealthModification;
	// negative for damage, positive for healing.
	Delta int
}

// BeginCombat marks the start of an encounter.
func BeginCombat() Transition { return Transition{Kind: KindBeginCombat} }

// EndCombat marks the resolution of an encounter.
func EndCombat() Transition { return Transition{Kind: KindEndCombat} }

// InitiativeRoll assigns a rolled initiative total to an actor.
func InitiativeRoll(id actor.ID, roll int) Transition {
	return Transition{Kind: KindInitiativeRoll, Actor: id, Roll: roll}
}

// BeginRound crosses into the given round and resets every living actor's
// per-round economy. Economy resets happen here and nowhere else.
func BeginRound(round int) Transition {
	return Transition{Kind: KindBeginRound, Round: round}
}

// AdvanceInitiative moves the turn index to the next position in the
// initiative order.
func AdvanceInitiative() Transition { return Transition{Kind: KindAdvanceInitiative} }

// BeginTurn marks the start of an actor's turn.
func BeginTurn(id actor.ID) Transition {
	return Transition{Kind: KindBeginTurn, Actor: id}
}

// EndTurn marks the end of an actor's turn.
func EndTurn(id actor.ID) Transition {
	return Transition{Kind: KindEndTurn, Actor: id}
}

// EconomyUsed consumes an action-economy slot.
func EconomyUsed(id actor.ID, slot actor.Slot) Transition {
	return Transition{Kind: KindEconomyUsed, Actor: id, Slot: slot}
}

// HealthModification applies a vitality delta to the target. Health is not
// clamped at zero: overkill damage leaves the target far negative.
func HealthModification(target actor.ID, delta int) Transition {
	return Transition{Kind: KindHealthModification, Actor: target, Delta: delta}
}

// ActorDied marks the target dead. Death is a status change: the actor
// stays in the encounter.
func ActorDied(id actor.ID) Transition {
	return Transition{Kind: KindActorDied, Actor: id}
}

// Apply performs the transition's single atomic change on st.
//
// Postcondition: on error st is unchanged; transitions never partially
// apply.
func (t Transition) Apply(st *state.State) error {
	switch t.Kind {
	case KindBeginCombat:
		st.Round = 0
		st.TurnIndex = -1
		st.Over = false

	case KindEndCombat:
		st.Over = true
		st.TurnIndex = -1

	case KindInitiativeRoll:
		a, ok := st.Actor(t.Actor)
		if !ok {
			return fmt.Errorf("transition: initiative roll for unknown actor %d", t.Actor)
		}
		a.Initiative = t.Roll
		a.InitiativeSet = true
		st.RecomputeInitiativeOrder()

	case KindBeginRound:
		st.Round = t.Round
		st.TurnIndex = -1
		for _, id := range st.ActorIDs() {
			if a, _ := st.Actor(id); a.IsAlive() {
				a.Economy.Reset()
			}
		}

	case KindAdvanceInitiative:
		if len(st.InitiativeOrder) == 0 {
			return fmt.Errorf("transition: advance initiative with empty initiative order")
		}
		if st.TurnIndex+1 >= len(st.InitiativeOrder) {
			return fmt.Errorf("transition: advance initiative past end of round")
		}
		st.TurnIndex++

	case KindBeginTurn, KindEndTurn:
		if _, ok := st.Actor(t.Actor); !ok {
			return fmt.Errorf("transition: %s for unknown actor %d", t.Kind, t.Actor)
		}

	case KindEconomyUsed:
		a, ok := st.Actor(t.Actor)
		if !ok {
			return fmt.Errorf("transition: economy used by unknown actor %d", t.Actor)
		}
		if err := a.Economy.Use(t.Slot); err != nil {
			return fmt.Errorf("transition: actor %d: %w", t.Actor, err)
		}

	case KindHealthModification:
		a, ok := st.Actor(t.Actor)
		if !ok {
			return fmt.Errorf("transition: health modification for unknown actor %d", t.Actor)
		}
		a.Health += t.Delta

	case KindActorDied:
		a, ok := st.Actor(t.Actor)
		if !ok {
			return fmt.Errorf("transition: death of unknown actor %d", t.Actor)
		}
		a.Dead = true

	default:
		return fmt.Errorf("transition: unknown kind %d", t.Kind)
	}
	return nil
}

// Quiet reports whether the transition is bookkeeping noise that should be
// omitted from narrative log output. Quiet transitions are still recorded
// and replay-significant.
func (t Transition) Quiet() bool {
	switch t.Kind {
	case KindEconomyUsed, KindAdvanceInitiative:
		return true
	}
	return false
}

// Describe renders a human-readable description using actor names from st.
func (t Transition) Describe(st *state.State) string {
	name := func(id actor.ID) string {
		if a, ok := st.Actor(id); ok {
			return a.Name
		}
		return fmt.Sprintf("<actor %d>", id)
	}
	switch t.Kind {
	case KindBeginCombat:
		return "combat begins"
	case KindEndCombat:
		return "combat ends"
	case KindInitiativeRoll:
		return fmt.Sprintf("%s rolls initiative: %d", name(t.Actor), t.Roll)
	case KindBeginRound:
		return fmt.Sprintf("round %d begins", t.Round)
	case KindAdvanceInitiative:
		return "initiative advances"
	case KindBeginTurn:
		return fmt.Sprintf("%s begins their turn", name(t.Actor))
	case KindEndTurn:
		return fmt.Sprintf("%s ends their turn", name(t.Actor))
	case KindEconomyUsed:
		return fmt.Sprintf("%s uses their %s", name(t.Actor), t.Slot)
	case KindHealthModification:
		if t.Delta >= 0 {
			return fmt.Sprintf("%s regains %d health", name(t.Actor), t.Delta)
		}
		return fmt.Sprintf("%s takes %d damage", name(t.Actor), -t.Delta)
	case KindActorDied:
		return fmt.Sprintf("%s dies", name(t.Actor))
	default:
		return "unknown transition"
	}
}
