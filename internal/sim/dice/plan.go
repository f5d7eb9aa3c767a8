package dice

import "fmt"

// Advantage selects how many raw dice are generated per die slot and which
// one is kept.
type Advantage int

const (
	// Normal keeps the single raw die rolled for each slot.
	Normal Advantage = iota
	// WithAdvantage rolls two raw dice per slot and keeps the higher.
	WithAdvantage
	// WithDisadvantage rolls two raw dice per slot and keeps the lower.
	WithDisadvantage
)

// String returns the notation suffix for the advantage mode.
func (a Advantage) String() string {
	switch a {
	case WithAdvantage:
		return "adv"
	case WithDisadvantage:
		return "dis"
	default:
		return ""
	}
}

// Plan is a pure-value dice specification ready to be rolled.
//
// Invariant after a successful Validate: Count >= 0, and Sides >= 2 whenever
// Count > 0. A zero-count plan is legal and resolves to the flat modifier.
type Plan struct {
	// Count is the number of dice. Zero is legal: the roll total is Modifier.
	Count int
	// Sides is the number of faces per die. Must be >= 2 when Count > 0.
	Sides int
	// Modifier is the flat modifier applied once to the summed dice.
	Modifier int
	// Advantage selects the per-slot keep-higher/keep-lower behavior.
	Advantage Advantage
	// MinDie clamps each die after rerolls; 0 means no minimum.
	MinDie int
	// MaxDie clamps each die after rerolls; 0 means no maximum.
	MaxDie int
	// RerollBelow rerolls a raw die once when it is below this value;
	// 0 means no reroll. The reroll is applied once, never recursively.
	RerollBelow int
}

// Validate checks the plan invariants.
//
// Postcondition: Returns nil iff the plan can be rolled.
func (p Plan) Validate() error {
	if p.Count < 0 {
		return fmt.Errorf("dice: die count must be >= 0, got %d", p.Count)
	}
	if p.Count > 0 && p.Sides < 2 {
		return fmt.Errorf("dice: die size must be >= 2, got %d", p.Sides)
	}
	if p.MinDie < 0 || p.MaxDie < 0 || p.RerollBelow < 0 {
		return fmt.Errorf("dice: clamp and reroll thresholds must be >= 0")
	}
	if p.MinDie > 0 && p.MaxDie > 0 && p.MinDie > p.MaxDie {
		return fmt.Errorf("dice: minimum die value %d exceeds maximum %d", p.MinDie, p.MaxDie)
	}
	return nil
}

// Notation returns the "<count>d<sides>[+|-<modifier>]" form of the plan,
// with an " adv"/" dis" suffix when advantage is in play.
func (p Plan) Notation() string {
	s := fmt.Sprintf("%dd%d", p.Count, p.Sides)
	if p.Modifier != 0 {
		s += fmt.Sprintf("%+d", p.Modifier)
	}
	if suffix := p.Advantage.String(); suffix != "" {
		s += " " + suffix
	}
	return s
}

// D20 reports whether the plan targets twenty-sided dice, the only die size
// that can produce criticals.
func (p Plan) D20() bool {
	return p.Sides == 20
}
