package transition

import (
	"fmt"

	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/item"
	"github.com/clstatham/antikythera/internal/sim/state"
)

// ExtraKind tags diagnostic log annotations.
type ExtraKind int

const (
	// ExtraRoll records a dice roll audit trail.
	ExtraRoll ExtraKind = iota
	// ExtraActionTaken records which action a policy chose.
	ExtraActionTaken
	// ExtraAttackHit records a successful to-hit roll.
	ExtraAttackHit
	// ExtraAttackMiss records a failed to-hit roll.
	ExtraAttackMiss
	// ExtraActorKilled narrates a death already recorded by a KindActorDied
	// transition.
	ExtraActorKilled
)

// Extra is a diagnostic, replay-insignificant log annotation. Replaying a
// log ignores extras entirely; they exist for humans and analytics.
type Extra struct {
	Kind ExtraKind
	// Actor is the acting actor, when relevant.
	Actor actor.ID
	// Target is the targeted actor, when relevant.
	Target actor.ID
	// Weapon is the item used, when relevant; 0 for unarmed.
	Weapon item.ID
	// Roll carries the audit trail for ExtraRoll.
	Roll dice.Result
	// Action names the chosen action for ExtraActionTaken.
	Action string
}

// Describe renders a human-readable annotation using names from st.
func (e Extra) Describe(st *state.State) string {
	name := func(id actor.ID) string {
		if a, ok := st.Actor(id); ok {
			return a.Name
		}
		return fmt.Sprintf("<actor %d>", id)
	}
	weapon := func(id item.ID) string {
		if it, ok := st.Item(id); ok {
			return it.Name
		}
		return "unarmed strike"
	}
	switch e.Kind {
	case ExtraRoll:
		return e.Roll.String()
	case ExtraActionTaken:
		return fmt.Sprintf("%s chooses %s", name(e.Actor), e.Action)
	case ExtraAttackHit:
		return fmt.Sprintf("%s hits %s with %s", name(e.Actor), name(e.Target), weapon(e.Weapon))
	case ExtraAttackMiss:
		return fmt.Sprintf("%s misses %s with %s", name(e.Actor), name(e.Target), weapon(e.Weapon))
	case ExtraActorKilled:
		return fmt.Sprintf("%s is slain", name(e.Actor))
	default:
		return "unknown annotation"
	}
}

// Quiet reports whether the annotation should be omitted from narrative
// output.
func (e Extra) Quiet() bool {
	return e.Kind == ExtraActionTaken && e.Action == "wait"
}

// Entry is one ordered log record: either an authoritative Transition or a
// diagnostic Extra. Exactly one of the two pointers is non-nil.
type Entry struct {
	Transition *Transition
	Extra      *Extra
}

// TransitionEntry wraps t as a log entry.
func TransitionEntry(t Transition) Entry {
	return Entry{Transition: &t}
}

// ExtraEntry wraps e as a log entry.
func ExtraEntry(e Extra) Entry {
	return Entry{Extra: &e}
}

// IsTransition reports whether the entry is authoritative.
func (e Entry) IsTransition() bool { return e.Transition != nil }

// Quiet reports whether the entry is omitted from narrative output.
func (e Entry) Quiet() bool {
	if e.Transition != nil {
		return e.Transition.Quiet()
	}
	if e.Extra != nil {
		return e.Extra.Quiet()
	}
	return true
}

// Describe renders the entry using names from st.
func (e Entry) Describe(st *state.State) string {
	if e.Transition != nil {
		return e.Transition.Describe(st)
	}
	if e.Extra != nil {
		return e.Extra.Describe(st)
	}
	return "empty entry"
}
