// Package scenario loads encounter definitions from YAML: the combatants,
// their weapons, and the decision weights for the built-in weighted policy.
// A loaded scenario produces the initial simulation state that every trial
// clones.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clstatham/antikythera/internal/sim/action"
	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/item"
	"github.com/clstatham/antikythera/internal/sim/policy"
	"github.com/clstatham/antikythera/internal/sim/state"
)

// yamlScenarioFile is the top-level YAML structure for scenario files.
type yamlScenarioFile struct {
	Scenario yamlScenario `yaml:"scenario"`
}

type yamlScenario struct {
	Name    string       `yaml:"name"`
	Weapons []yamlWeapon `yaml:"weapons"`
	Actors  []yamlActor  `yaml:"actors"`
	Policy  yamlPolicy   `yaml:"policy"`
}

type yamlWeapon struct {
	Name        string `yaml:"name"`
	AttackBonus int    `yaml:"attack_bonus"`
	Damage      string `yaml:"damage"`
	CritDamage  string `yaml:"crit_damage"`
}

type yamlActor struct {
	Name          string         `yaml:"name"`
	Group         int            `yaml:"group"`
	Level         int            `yaml:"level"`
	ArmorClass    int            `yaml:"armor_class"`
	MaxHealth     int            `yaml:"max_health"`
	MovementSpeed int            `yaml:"movement_speed"`
	Stats         map[string]int `yaml:"stats"`
	Carry         []string       `yaml:"carry"`
}

type yamlPolicy struct {
	Actions []yamlActionWeight `yaml:"actions"`
	Targets []yamlTargetWeight `yaml:"targets"`
}

type yamlActionWeight struct {
	Type   string `yaml:"type"`
	Weight int    `yaml:"weight"`
}

type yamlTargetWeight struct {
	Actor  string `yaml:"actor"`
	Weight int    `yaml:"weight"`
}

// Scenario is a loaded, validated encounter definition.
type Scenario struct {
	Name    string
	Initial *state.State
	Policy  *policy.Weighted
}

// LoadFromFile reads and validates a single scenario YAML file.
//
// Precondition: path must point to a valid YAML scenario file.
// Postcondition: Returns a validated Scenario or a non-nil error.
func LoadFromFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %s: %w", path, err)
	}
	sc, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading scenario from %s: %w", path, err)
	}
	return sc, nil
}

// LoadFromBytes parses and validates a scenario from YAML bytes.
func LoadFromBytes(data []byte) (*Scenario, error) {
	var file yamlScenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	return convert(file.Scenario)
}

func convert(ys yamlScenario) (*Scenario, error) {
	if ys.Name == "" {
		return nil, fmt.Errorf("scenario: name is required")
	}
	if len(ys.Actors) < 2 {
		return nil, fmt.Errorf("scenario %q: needs at least two actors, got %d", ys.Name, len(ys.Actors))
	}

	st := state.New()

	weaponIDs := make(map[string]item.ID, len(ys.Weapons))
	for _, yw := range ys.Weapons {
		w, err := convertWeapon(yw)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: weapon %q: %w", ys.Name, yw.Name, err)
		}
		if _, dup := weaponIDs[yw.Name]; dup {
			return nil, fmt.Errorf("scenario %q: duplicate weapon name %q", ys.Name, yw.Name)
		}
		weaponIDs[yw.Name] = st.AddItem(yw.Name, w)
	}

	actorIDs := make(map[string]actor.ID, len(ys.Actors))
	groups := make(map[int]bool)
	for _, ya := range ys.Actors {
		a, err := convertActor(ya, weaponIDs)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: actor %q: %w", ys.Name, ya.Name, err)
		}
		if _, dup := actorIDs[ya.Name]; dup {
			return nil, fmt.Errorf("scenario %q: duplicate actor name %q", ys.Name, ya.Name)
		}
		actorIDs[ya.Name] = st.AddActor(a)
		groups[ya.Group] = true
	}
	if len(groups) < 2 {
		return nil, fmt.Errorf("scenario %q: all actors share one group, encounter would already be over", ys.Name)
	}

	pol, err := convertPolicy(ys.Policy, actorIDs)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", ys.Name, err)
	}

	return &Scenario{Name: ys.Name, Initial: st, Policy: pol}, nil
}

func convertWeapon(yw yamlWeapon) (*item.Weapon, error) {
	if yw.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if yw.Damage == "" {
		return nil, fmt.Errorf("damage is required")
	}
	damage, err := dice.Parse(yw.Damage)
	if err != nil {
		return nil, fmt.Errorf("damage: %w", err)
	}
	w := &item.Weapon{AttackBonus: yw.AttackBonus, Damage: damage}
	if yw.CritDamage != "" {
		crit, err := dice.Parse(yw.CritDamage)
		if err != nil {
			return nil, fmt.Errorf("crit_damage: %w", err)
		}
		w.CritDamage = &crit
	}
	return w, nil
}

// statNames maps YAML stat keys to stat enums. Unknown keys are an error
// rather than silently ignored.
var statNames = map[string]actor.Stat{
	"strength":     actor.Strength,
	"dexterity":    actor.Dexterity,
	"constitution": actor.Constitution,
	"intelligence": actor.Intelligence,
	"wisdom":       actor.Wisdom,
	"charisma":     actor.Charisma,
}

func convertActor(ya yamlActor, weapons map[string]item.ID) (actor.Actor, error) {
	if ya.Name == "" {
		return actor.Actor{}, fmt.Errorf("name is required")
	}
	if ya.MaxHealth < 1 {
		return actor.Actor{}, fmt.Errorf("max_health must be positive, got %d", ya.MaxHealth)
	}

	b := actor.NewBuilder(ya.Name).
		Group(ya.Group).
		MaxHealth(ya.MaxHealth)
	if ya.Level > 0 {
		b = b.Level(ya.Level)
	}
	if ya.ArmorClass > 0 {
		b = b.ArmorClass(ya.ArmorClass)
	}
	if ya.MovementSpeed > 0 {
		b = b.MovementSpeed(ya.MovementSpeed)
	}
	for name, value := range ya.Stats {
		stat, ok := statNames[name]
		if !ok {
			return actor.Actor{}, fmt.Errorf("unknown stat %q", name)
		}
		b = b.Stat(stat, value)
	}
	for _, weapon := range ya.Carry {
		id, ok := weapons[weapon]
		if !ok {
			return actor.Actor{}, fmt.Errorf("carries undefined weapon %q", weapon)
		}
		b = b.Carry(id)
	}
	return b.Build(), nil
}

// actionTypes maps YAML action keys to action enums.
var actionTypes = map[string]action.Type{
	"wait":           action.Wait,
	"unarmed_strike": action.UnarmedStrike,
	"attack":         action.Attack,
}

func convertPolicy(yp yamlPolicy, actors map[string]actor.ID) (*policy.Weighted, error) {
	b := policy.NewWeightedBuilder()
	if len(yp.Actions) == 0 {
		// Default mix: mostly attack, occasionally hold.
		b = b.ActionWeight(action.Attack, 4).
			ActionWeight(action.UnarmedStrike, 1).
			ActionWeight(action.Wait, 1)
	}
	for _, aw := range yp.Actions {
		t, ok := actionTypes[aw.Type]
		if !ok {
			return nil, fmt.Errorf("policy: unknown action type %q", aw.Type)
		}
		b = b.ActionWeight(t, aw.Weight)
	}
	for _, tw := range yp.Targets {
		id, ok := actors[tw.Actor]
		if !ok {
			return nil, fmt.Errorf("policy: target weight for undefined actor %q", tw.Actor)
		}
		b = b.TargetWeight(id, tw.Weight)
	}
	pol, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return pol, nil
}
