package action

import (
	"errors"
	"fmt"

	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/item"
	"github.com/clstatham/antikythera/internal/sim/state"
	"github.com/clstatham/antikythera/internal/sim/transition"
)

// ErrSlotUnavailable is returned when an action requires an economy slot
// the actor has already spent this round. The check happens before any
// dice are rolled, so a rejected action consumes no randomness.
var ErrSlotUnavailable = errors.New("action: economy slot unavailable")

// ErrInvalidTarget is returned when an action names a nonexistent or dead
// target.
var ErrInvalidTarget = errors.New("action: invalid target")

// Resolve turns taken into the ordered transitions and annotations that
// fully describe its effect. Resolve reads st but never mutates it; the
// caller applies the returned entries atomically, in order.
//
// For an attack-shaped action: economy check, to-hit roll against the
// target's armor class, on a hit a damage roll (using the critical damage
// specification when the to-hit was a critical success), a damage
// transition, and a death transition when vitality crosses zero.
//
// Precondition: st and roller must be non-nil.
// Postcondition: on error no entries are returned and no dice were rolled
// for economy violations; on success entries applied in order reproduce
// the action's full effect.
func Resolve(st *state.State, taken Taken, roller *dice.Roller) ([]transition.Entry, error) {
	a, ok := st.Actor(taken.Actor)
	if !ok {
		return nil, fmt.Errorf("action: unknown actor %d", taken.Actor)
	}
	if !a.Economy.CanUse(taken.Slot) {
		return nil, fmt.Errorf("%w: %s has no %s left this round",
			ErrSlotUnavailable, a.Name, taken.Slot)
	}

	switch taken.Action.Type {
	case Wait:
		// Waiting forfeits the slot without consuming it.
		return []transition.Entry{
			transition.ExtraEntry(transition.Extra{
				Kind:   transition.ExtraActionTaken,
				Actor:  taken.Actor,
				Action: "wait",
			}),
		}, nil

	case UnarmedStrike:
		target, err := livingTarget(st, taken.Action.Target)
		if err != nil {
			return nil, err
		}
		attackPlan := a.UnarmedStrikePlan(taken.Action.Advantage)
		return resolveAttack(st, a, target, taken, attackPlan, 0, roller,
			func(critical bool) dice.Plan {
				if critical {
					return a.UnarmedStrikeCritDamagePlan()
				}
				return a.UnarmedStrikeDamagePlan()
			})

	case Attack:
		target, err := livingTarget(st, taken.Action.Target)
		if err != nil {
			return nil, err
		}
		it, ok := st.Item(taken.Action.Weapon)
		if !ok || !it.IsWeapon() {
			return nil, fmt.Errorf("action: actor %s attacking with invalid weapon %d",
				a.Name, taken.Action.Weapon)
		}
		if !carries(a, taken.Action.Weapon) {
			return nil, fmt.Errorf("action: actor %s does not carry weapon %q", a.Name, it.Name)
		}
		attackPlan := a.AttackPlan(it.Weapon, taken.Action.Advantage)
		return resolveAttack(st, a, target, taken, attackPlan, it.ID, roller,
			it.Weapon.DamagePlan)

	default:
		return nil, fmt.Errorf("action: unknown action type %d", taken.Action.Type)
	}
}

// livingTarget returns the target actor, rejecting nonexistent and dead
// targets before any roll occurs.
func livingTarget(st *state.State, id actor.ID) (*actor.Actor, error) {
	target, ok := st.Actor(id)
	if !ok {
		return nil, fmt.Errorf("%w: unknown actor %d", ErrInvalidTarget, id)
	}
	if !target.IsAlive() {
		return nil, fmt.Errorf("%w: %s is not a legal target", ErrInvalidTarget, target.Name)
	}
	return target, nil
}

func carries(a *actor.Actor, id item.ID) bool {
	for _, carried := range a.Inventory {
		if carried == id {
			return true
		}
	}
	return false
}

// resolveAttack rolls to hit, then damage on a success, and emits the
// economy, damage, and death transitions in order.
func resolveAttack(
	st *state.State,
	a, target *actor.Actor,
	taken Taken,
	attackPlan dice.Plan,
	weapon item.ID,
	roller *dice.Roller,
	damageFor func(critical bool) dice.Plan,
) ([]transition.Entry, error) {
	entries := []transition.Entry{
		transition.TransitionEntry(transition.EconomyUsed(taken.Actor, taken.Slot)),
		transition.ExtraEntry(transition.Extra{
			Kind:   transition.ExtraActionTaken,
			Actor:  taken.Actor,
			Target: target.ID,
			Weapon: weapon,
			Action: taken.Action.Type.String(),
		}),
	}

	attack, err := roller.Roll(attackPlan)
	if err != nil {
		return nil, fmt.Errorf("action: attack roll: %w", err)
	}
	entries = append(entries, transition.ExtraEntry(transition.Extra{
		Kind:  transition.ExtraRoll,
		Actor: taken.Actor,
		Roll:  attack,
	}))

	if !attack.MeetsDC(target.ArmorClass) {
		entries = append(entries, transition.ExtraEntry(transition.Extra{
			Kind:   transition.ExtraAttackMiss,
			Actor:  taken.Actor,
			Target: target.ID,
			Weapon: weapon,
		}))
		return entries, nil
	}

	entries = append(entries, transition.ExtraEntry(transition.Extra{
		Kind:   transition.ExtraAttackHit,
		Actor:  taken.Actor,
		Target: target.ID,
		Weapon: weapon,
	}))

	damage, err := roller.Roll(damageFor(attack.IsCriticalSuccess()))
	if err != nil {
		return nil, fmt.Errorf("action: damage roll: %w", err)
	}
	// A heavily penalized damage roll can go negative; damage never heals.
	dmg := damage.Total
	if dmg < 0 {
		dmg = 0
	}
	entries = append(entries,
		transition.ExtraEntry(transition.Extra{
			Kind:  transition.ExtraRoll,
			Actor: taken.Actor,
			Roll:  damage,
		}),
		transition.TransitionEntry(transition.HealthModification(target.ID, -dmg)),
	)

	// The damage transition has not been applied yet, so the death check
	// projects the target's vitality after it.
	if target.Health-dmg <= 0 && !target.Dead {
		entries = append(entries,
			transition.TransitionEntry(transition.ActorDied(target.ID)),
			transition.ExtraEntry(transition.Extra{
				Kind:  transition.ExtraActorKilled,
				Actor: target.ID,
			}),
		)
	}

	return entries, nil
}
