package actor

import "fmt"

// Slot identifies a per-round action-economy allotment.
type Slot int

const (
	// SlotAction is the primary action slot.
	SlotAction Slot = iota
	// SlotBonusAction is the secondary action slot.
	SlotBonusAction
	// SlotReaction is the reaction slot.
	SlotReaction
	// SlotMovement is the movement allotment.
	SlotMovement
)

// String returns the slot name.
func (s Slot) String() string {
	switch s {
	case SlotAction:
		return "action"
	case SlotBonusAction:
		return "bonus action"
	case SlotReaction:
		return "reaction"
	case SlotMovement:
		return "movement"
	default:
		return "unknown"
	}
}

// Economy tracks which per-round allotments an actor has spent.
// It is reset exactly once per round, at the round boundary, never per turn.
type Economy struct {
	ActionUsed      bool
	BonusActionUsed bool
	ReactionUsed    bool
	// MovementUsed is the distance spent this round, gated by the actor's
	// movement speed.
	MovementUsed int
}

// Reset clears every allotment for a new round.
//
// Postcondition: CanUse returns true for all slots.
func (e *Economy) Reset() {
	e.ActionUsed = false
	e.BonusActionUsed = false
	e.ReactionUsed = false
	e.MovementUsed = 0
}

// CanUse reports whether the given slot is still available this round.
// Movement is treated as available until Use has been called for it; callers
// that track distance compare MovementUsed against the actor's speed.
func (e *Economy) CanUse(slot Slot) bool {
	switch slot {
	case SlotAction:
		return !e.ActionUsed
	case SlotBonusAction:
		return !e.BonusActionUsed
	case SlotReaction:
		return !e.ReactionUsed
	case SlotMovement:
		return true
	default:
		return false
	}
}

// Use consumes the given slot.
//
// Postcondition: on success CanUse(slot) is false for boolean slots; on
// error the economy is unchanged.
func (e *Economy) Use(slot Slot) error {
	if !e.CanUse(slot) {
		return fmt.Errorf("%s already used this round", slot)
	}
	switch slot {
	case SlotAction:
		e.ActionUsed = true
	case SlotBonusAction:
		e.BonusActionUsed = true
	case SlotReaction:
		e.ReactionUsed = true
	case SlotMovement:
		e.MovementUsed++
	default:
		return fmt.Errorf("unknown economy slot %d", slot)
	}
	return nil
}
