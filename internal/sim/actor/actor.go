// Package actor defines the combat participant: ability scores, vitality,
// per-round action economy, group membership, and inventory references.
// Actors are built before an encounter starts and mutated only through
// transitions once it is running.
package actor

import (
	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/item"
)

// ID identifies an actor within one encounter. IDs are assigned by the
// encounter state in creation order but iterated in natural (ascending)
// order, which keeps iteration reproducible regardless of construction
// sequence.
type ID int

// Actor is one combat participant. Vitality is never clamped at zero:
// falling far negative carries rules significance (instant overkill is
// distinguishable in outcome statistics).
type Actor struct {
	ID    ID
	Name  string
	Level int
	// Group partitions actors into opposing sides. Combat is over when the
	// living actors span at most one group.
	Group int

	ArmorClass int
	MaxHealth  int
	// Health may go negative; no floor is applied.
	Health int

	Stats         Stats
	MovementSpeed int

	// Initiative is the rolled initiative total; InitiativeSet reports
	// whether it has been assigned this encounter.
	Initiative    int
	InitiativeSet bool

	// Dead is a status set by a death transition when vitality crosses the
	// death threshold. Death is a status, not removal: dead actors remain
	// in the encounter.
	Dead bool

	Economy Economy

	// Inventory references items owned by the encounter's registry.
	// Items are never duplicated into actors.
	Inventory []item.ID
}

// IsAlive reports whether the actor is conscious and able to act.
func (a *Actor) IsAlive() bool {
	return !a.Dead && a.Health > 0
}

// IsDead reports whether the actor has been killed.
func (a *Actor) IsDead() bool {
	return a.Dead
}

// ProficiencyBonus returns the level-derived proficiency bonus:
// 2 + (level-1)/4, minimum 2.
func (a *Actor) ProficiencyBonus() int {
	if a.Level < 1 {
		return 2
	}
	return 2 + (a.Level-1)/4
}

// StatModifier returns the derived modifier for stat.
func (a *Actor) StatModifier(stat Stat) int {
	return a.Stats.Modifier(stat)
}

// InitiativePlan returns the d20 initiative roll: d20 + DEX modifier.
func (a *Actor) InitiativePlan() dice.Plan {
	return dice.Plan{Count: 1, Sides: 20, Modifier: a.StatModifier(Dexterity)}
}

// AttackPlan returns the to-hit roll for weapon: d20 + weapon attack bonus
// + proficiency bonus, with the given advantage mode.
func (a *Actor) AttackPlan(weapon *item.Weapon, adv dice.Advantage) dice.Plan {
	return dice.Plan{
		Count:     1,
		Sides:     20,
		Modifier:  weapon.AttackBonus + a.ProficiencyBonus(),
		Advantage: adv,
	}
}

// UnarmedStrikePlan returns the unarmed to-hit roll: d20 + STR modifier.
func (a *Actor) UnarmedStrikePlan(adv dice.Advantage) dice.Plan {
	return dice.Plan{
		Count:     1,
		Sides:     20,
		Modifier:  a.StatModifier(Strength),
		Advantage: adv,
	}
}

// UnarmedStrikeDamagePlan returns 1d4 + STR modifier.
func (a *Actor) UnarmedStrikeDamagePlan() dice.Plan {
	return dice.Plan{Count: 1, Sides: 4, Modifier: a.StatModifier(Strength)}
}

// UnarmedStrikeCritDamagePlan returns the doubled-dice critical variant:
// 2d4 + STR modifier.
func (a *Actor) UnarmedStrikeCritDamagePlan() dice.Plan {
	return dice.Plan{Count: 2, Sides: 4, Modifier: a.StatModifier(Strength)}
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	cp := *a
	cp.Inventory = make([]item.ID, len(a.Inventory))
	copy(cp.Inventory, a.Inventory)
	return &cp
}

// Builder constructs an Actor before an encounter starts.
type Builder struct {
	actor Actor
}

// NewBuilder creates a Builder for an actor with the given name and the
// baseline: level 1, AC 10, 10 max health, all abilities 10, speed 30.
func NewBuilder(name string) *Builder {
	return &Builder{actor: Actor{
		Name:          name,
		Level:         1,
		ArmorClass:    10,
		MaxHealth:     10,
		Health:        10,
		Stats:         DefaultStats(),
		MovementSpeed: 30,
	}}
}

// Level sets the actor level.
func (b *Builder) Level(level int) *Builder {
	b.actor.Level = level
	return b
}

// Group sets the actor's side.
func (b *Builder) Group(group int) *Builder {
	b.actor.Group = group
	return b
}

// ArmorClass sets the actor's armor class.
func (b *Builder) ArmorClass(ac int) *Builder {
	b.actor.ArmorClass = ac
	return b
}

// MaxHealth sets maximum health and starts the actor at full health.
func (b *Builder) MaxHealth(hp int) *Builder {
	b.actor.MaxHealth = hp
	b.actor.Health = hp
	return b
}

// Stats replaces the whole ability block.
func (b *Builder) Stats(stats Stats) *Builder {
	b.actor.Stats = stats
	return b
}

// Stat sets a single ability score.
func (b *Builder) Stat(stat Stat, value int) *Builder {
	b.actor.Stats.Set(stat, value)
	return b
}

// MovementSpeed sets the per-round movement allotment.
func (b *Builder) MovementSpeed(speed int) *Builder {
	b.actor.MovementSpeed = speed
	return b
}

// Carry adds an item reference to the actor's inventory.
func (b *Builder) Carry(id item.ID) *Builder {
	b.actor.Inventory = append(b.actor.Inventory, id)
	return b
}

// Build returns the constructed Actor. The ID is zero until the actor is
// added to an encounter state.
func (b *Builder) Build() Actor {
	return b.actor
}
