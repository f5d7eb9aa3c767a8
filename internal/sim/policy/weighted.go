package policy

import (
	"fmt"

	"github.com/clstatham/antikythera/internal/sim/action"
	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/item"
	"github.com/clstatham/antikythera/internal/sim/state"
)

// Weighted chooses actions and targets by weighted random sampling. Targets
// default to weight 1 when no override is configured, so every living enemy
// is eligible. Action types with no weight entry are never chosen.
//
// Weighted is immutable after Build and therefore safe for concurrent use
// across trial workers.
type Weighted struct {
	actionWeights []weightedEntry[action.Type]
	targetWeights map[actor.ID]int
}

type weightedEntry[T any] struct {
	value  T
	weight int
}

// WeightedBuilder accumulates weights for a Weighted policy.
type WeightedBuilder struct {
	policy Weighted
	err    error
}

// NewWeightedBuilder creates a builder with no weights. A policy with no
// action weights always waits.
func NewWeightedBuilder() *WeightedBuilder {
	return &WeightedBuilder{policy: Weighted{targetWeights: make(map[actor.ID]int)}}
}

// ActionWeight sets the sampling weight for an action type, replacing any
// previous weight for it.
//
// Precondition: weight > 0.
func (b *WeightedBuilder) ActionWeight(t action.Type, weight int) *WeightedBuilder {
	if weight <= 0 {
		b.err = fmt.Errorf("policy: action weight for %s must be > 0, got %d", t, weight)
		return b
	}
	for i := range b.policy.actionWeights {
		if b.policy.actionWeights[i].value == t {
			b.policy.actionWeights[i].weight = weight
			return b
		}
	}
	b.policy.actionWeights = append(b.policy.actionWeights, weightedEntry[action.Type]{t, weight})
	return b
}

// TargetWeight overrides the sampling weight for a specific target.
//
// Precondition: weight > 0.
func (b *WeightedBuilder) TargetWeight(id actor.ID, weight int) *WeightedBuilder {
	if weight <= 0 {
		b.err = fmt.Errorf("policy: target weight for actor %d must be > 0, got %d", id, weight)
		return b
	}
	b.policy.targetWeights[id] = weight
	return b
}

// Build returns the finished policy or the first configuration error.
func (b *WeightedBuilder) Build() (*Weighted, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &b.policy, nil
}

// Decide picks a living enemy target and an action type by weighted
// sampling. Only the primary action slot acts; every other slot waits,
// matching the baseline rules content.
func (w *Weighted) Decide(st *state.State, id actor.ID, slot actor.Slot, src dice.Source) (action.Taken, error) {
	if slot != actor.SlotAction {
		return wait(id, slot), nil
	}

	self, ok := st.Actor(id)
	if !ok {
		return action.Taken{}, fmt.Errorf("policy: unknown actor %d", id)
	}

	enemies := st.EnemiesOf(id)
	if len(enemies) == 0 {
		return wait(id, slot), nil
	}

	targets := make([]weightedEntry[actor.ID], 0, len(enemies))
	for _, enemy := range enemies {
		weight := 1
		if override, ok := w.targetWeights[enemy]; ok {
			weight = override
		}
		targets = append(targets, weightedEntry[actor.ID]{enemy, weight})
	}
	target := sample(targets, src)

	// Attack requires a carried weapon; unarmed strike is always possible.
	weapon, hasWeapon := firstWeapon(st, self)
	eligible := make([]weightedEntry[action.Type], 0, len(w.actionWeights))
	for _, entry := range w.actionWeights {
		switch entry.value {
		case action.Attack:
			if hasWeapon {
				eligible = append(eligible, entry)
			}
		case action.UnarmedStrike, action.Wait:
			eligible = append(eligible, entry)
		}
	}
	if len(eligible) == 0 {
		return wait(id, slot), nil
	}

	chosen := sample(eligible, src)
	taken := action.Taken{Actor: id, Slot: slot, Action: action.Action{Type: chosen, Target: target}}
	if chosen == action.Attack {
		taken.Action.Weapon = weapon
	}
	if chosen == action.Wait {
		taken.Action.Target = 0
	}
	return taken, nil
}

// firstWeapon returns the first weapon in the actor's inventory, in carry
// order.
func firstWeapon(st *state.State, a *actor.Actor) (itemID item.ID, ok bool) {
	for _, id := range a.Inventory {
		if it, found := st.Item(id); found && it.IsWeapon() {
			return id, true
		}
	}
	return 0, false
}

// sample draws one entry proportionally to its weight.
//
// Precondition: entries is non-empty and every weight is > 0.
func sample[T any](entries []weightedEntry[T], src dice.Source) T {
	total := 0
	for _, e := range entries {
		total += e.weight
	}
	pick := src.Intn(total)
	for _, e := range entries {
		pick -= e.weight
		if pick < 0 {
			return e.value
		}
	}
	return entries[len(entries)-1].value
}
