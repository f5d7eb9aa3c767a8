package actor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/item"
)

func TestStats_Modifier(t *testing.T) {
	cases := []struct {
		score int
		want  int
	}{
		{1, -5}, {8, -1}, {9, -1}, {10, 0}, {11, 0}, {12, 1}, {16, 3}, {20, 5},
	}
	for _, c := range cases {
		s := actor.Stats{Strength: c.score}
		assert.Equal(t, c.want, s.Modifier(actor.Strength), "score %d", c.score)
	}
}

func TestStats_GetSet(t *testing.T) {
	var s actor.Stats
	for i, stat := range actor.AllStats() {
		s.Set(stat, 10+i)
	}
	for i, stat := range actor.AllStats() {
		assert.Equal(t, 10+i, s.Get(stat))
	}
}

func TestProficiencyBonus(t *testing.T) {
	cases := []struct {
		level int
		want  int
	}{
		{1, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4}, {13, 5}, {17, 6}, {20, 6},
	}
	for _, c := range cases {
		a := actor.Actor{Level: c.level}
		assert.Equal(t, c.want, a.ProficiencyBonus(), "level %d", c.level)
	}
}

func TestBuilder_Defaults(t *testing.T) {
	a := actor.NewBuilder("Aldric").Build()
	assert.Equal(t, "Aldric", a.Name)
	assert.Equal(t, 1, a.Level)
	assert.Equal(t, 10, a.ArmorClass)
	assert.Equal(t, 10, a.MaxHealth)
	assert.Equal(t, 10, a.Health)
	assert.Equal(t, 30, a.MovementSpeed)
	assert.Equal(t, actor.DefaultStats(), a.Stats)
	assert.True(t, a.IsAlive())
}

func TestBuilder_MaxHealthStartsFull(t *testing.T) {
	a := actor.NewBuilder("Goblin").MaxHealth(7).Build()
	assert.Equal(t, 7, a.MaxHealth)
	assert.Equal(t, 7, a.Health)
}

func TestIsAlive(t *testing.T) {
	a := actor.NewBuilder("Goblin").MaxHealth(5).Build()
	assert.True(t, a.IsAlive())

	a.Health = 0
	assert.False(t, a.IsAlive(), "zero health is down")

	a.Health = -3
	assert.False(t, a.IsAlive(), "health is never clamped and stays negative")

	a.Health = 5
	a.Dead = true
	assert.False(t, a.IsAlive(), "dead is a status independent of health")
}

func TestInitiativePlan_UsesDexterity(t *testing.T) {
	a := actor.NewBuilder("Scout").Stat(actor.Dexterity, 16).Build()
	assert.Equal(t, dice.Plan{Count: 1, Sides: 20, Modifier: 3}, a.InitiativePlan())
}

func TestAttackPlan(t *testing.T) {
	a := actor.NewBuilder("Fighter").Level(5).Build()
	w := &item.Weapon{AttackBonus: 1, Damage: dice.MustParse("1d8")}
	plan := a.AttackPlan(w, dice.WithAdvantage)
	assert.Equal(t, 4, plan.Modifier, "weapon bonus + proficiency")
	assert.Equal(t, dice.WithAdvantage, plan.Advantage)
	assert.True(t, plan.D20())
}

func TestUnarmedStrikePlans(t *testing.T) {
	a := actor.NewBuilder("Brawler").Stat(actor.Strength, 14).Build()
	assert.Equal(t, 2, a.UnarmedStrikePlan(dice.Normal).Modifier)
	assert.Equal(t, dice.Plan{Count: 1, Sides: 4, Modifier: 2}, a.UnarmedStrikeDamagePlan())
	assert.Equal(t, dice.Plan{Count: 2, Sides: 4, Modifier: 2}, a.UnarmedStrikeCritDamagePlan())
}

func TestClone_Independent(t *testing.T) {
	a := actor.NewBuilder("Orig").Carry(item.ID(1)).Build()
	cp := a.Clone()
	cp.Health = -10
	cp.Inventory[0] = item.ID(9)
	assert.Equal(t, 10, a.Health)
	assert.Equal(t, item.ID(1), a.Inventory[0])
}

func TestEconomy_UseAndReset(t *testing.T) {
	var e actor.Economy
	assert.True(t, e.CanUse(actor.SlotAction))

	assert.NoError(t, e.Use(actor.SlotAction))
	assert.False(t, e.CanUse(actor.SlotAction))
	assert.Error(t, e.Use(actor.SlotAction), "double spend must be rejected")

	assert.True(t, e.CanUse(actor.SlotBonusAction), "slots are independent")

	e.Reset()
	assert.True(t, e.CanUse(actor.SlotAction))
	assert.NoError(t, e.Use(actor.SlotAction))
}

// Property: Reset always restores every boolean slot regardless of prior
// spend pattern.
func TestEconomy_Property_ResetRestores(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var e actor.Economy
		slots := []actor.Slot{actor.SlotAction, actor.SlotBonusAction, actor.SlotReaction}
		for _, s := range slots {
			if rapid.Bool().Draw(rt, "spend") {
				_ = e.Use(s)
			}
		}
		e.Reset()
		for _, s := range slots {
			if !e.CanUse(s) {
				rt.Fatalf("slot %s unavailable after reset", s)
			}
		}
	})
}
