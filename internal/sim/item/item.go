// Package item defines encounter items. Items are owned by the encounter's
// registry and referenced by ID from actor inventories; they are immutable
// once an encounter references them.
package item

import "github.com/clstatham/antikythera/internal/sim/dice"

// ID identifies an item within one encounter.
type ID int

// Weapon holds the attack and damage specifications for a weapon item.
type Weapon struct {
	// AttackBonus is added to the d20 to-hit roll.
	AttackBonus int
	// Damage is the normal damage roll.
	Damage dice.Plan
	// CritDamage, when non-nil, replaces Damage on a critical hit.
	// When nil the critical deals normal damage.
	CritDamage *dice.Plan
}

// DamagePlan returns the damage plan for a hit, selecting the critical
// variant when critical is true and one is defined.
func (w *Weapon) DamagePlan(critical bool) dice.Plan {
	if critical && w.CritDamage != nil {
		return *w.CritDamage
	}
	return w.Damage
}

// Item is one registry entry. Only weapons participate in combat; other
// item kinds are carried but inert.
type Item struct {
	ID   ID
	Name string
	// Weapon is nil for non-weapon items.
	Weapon *Weapon
}

// IsWeapon reports whether the item can be used for an attack.
func (i *Item) IsWeapon() bool { return i.Weapon != nil }
