// Package dice provides the seedable randomness source and the roll engine
// for the antikythera combat simulator. Rolls resolve a Plan (count, sides,
// modifier, advantage, clamps, reroll threshold) into a Result with a full
// per-die audit trail and d20 critical detection.
package dice

import "fmt"

// Critical classifies a roll's critical outcome.
type Critical int

const (
	// CriticalNone means no unmodified d20 die showed the maximum or
	// minimum face, or the plan does not target d20s at all.
	CriticalNone Critical = iota
	// CriticalSuccess means at least one unmodified raw d20 die showed 20.
	CriticalSuccess
	// CriticalFailure means at least one unmodified raw d20 die showed 1.
	CriticalFailure
)

// String returns a human-readable critical label.
func (c Critical) String() string {
	switch c {
	case CriticalSuccess:
		return "critical success"
	case CriticalFailure:
		return "critical failure"
	default:
		return "none"
	}
}

// Source is the randomness provider for dice rolls.
//
// A Source is owned by a single goroutine; concurrent workers each fork
// their own child with Fork.
type Source interface {
	// Intn returns a random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int

	// Fork returns an independently seeded child Source. Forking from the
	// same Source state always yields the same child sequence, so a run's
	// per-trial streams are reproducible from the root seed.
	Fork() Source
}

// Result holds the full audit trail for one evaluated Plan.
//
// Postcondition: Total == sum(Dice) + Modifier.
type Result struct {
	// Plan is the specification that produced this result.
	Plan Plan
	// Raw holds the kept unmodified die values: after advantage selection
	// and rerolls, before clamps. Critical detection reads only these.
	Raw []int
	// Dice holds the final per-die values after clamps.
	Dice []int
	// Modifier is the flat modifier applied to the sum.
	Modifier int
	// Total is sum(Dice) + Modifier.
	Total int
	// Critical is the d20 critical classification; always CriticalNone for
	// non-d20 plans and zero-dice plans.
	Critical Critical
}

// IsCriticalSuccess reports whether the roll was a critical success.
func (r Result) IsCriticalSuccess() bool { return r.Critical == CriticalSuccess }

// IsCriticalFailure reports whether the roll was a critical failure.
func (r Result) IsCriticalFailure() bool { return r.Critical == CriticalFailure }

// MeetsDC reports whether the roll beats the given difficulty class.
// A critical success always meets the DC and a critical failure never does,
// regardless of the modified total.
func (r Result) MeetsDC(dc int) bool {
	switch r.Critical {
	case CriticalSuccess:
		return true
	case CriticalFailure:
		return false
	default:
		return r.Total >= dc
	}
}

// String returns a human-readable audit string in the format:
//
//	"2d6+3 → [4 5] +3 = 12"
func (r Result) String() string {
	s := fmt.Sprintf("%s → %v %+d = %d", r.Plan.Notation(), r.Dice, r.Modifier, r.Total)
	if r.Critical != CriticalNone {
		s += " (" + r.Critical.String() + ")"
	}
	return s
}
