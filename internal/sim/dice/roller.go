package dice

import "go.uber.org/zap"

// Roll evaluates plan using src and returns a Result.
//
// Each die slot is generated independently. Advantage and disadvantage
// generate two raw dice for the slot and keep the higher or lower raw value
// before any reroll or clamp logic runs. A raw die below RerollBelow is
// replaced with one freshly generated value, applied once and never
// recursively. Min/max clamps are applied last, per die, before summation.
// Criticals are detected on the kept unmodified raw values only, and only
// for twenty-sided dice.
//
// Precondition: src must be non-nil.
// Postcondition: len(result.Dice) == plan.Count and
// result.Total == sum(result.Dice) + plan.Modifier, or a validation error.
func Roll(plan Plan, src Source) (Result, error) {
	if err := plan.Validate(); err != nil {
		return Result{}, err
	}

	if plan.Count == 0 {
		// A zero-dice plan resolves deterministically to the modifier and
		// can never be critical.
		return Result{
			Plan:     plan,
			Modifier: plan.Modifier,
			Total:    plan.Modifier,
			Critical: CriticalNone,
		}, nil
	}

	raw := make([]int, 0, plan.Count)
	final := make([]int, 0, plan.Count)
	total := 0
	critSuccesses := 0
	critFailures := 0

	for i := 0; i < plan.Count; i++ {
		die := src.Intn(plan.Sides) + 1

		switch plan.Advantage {
		case WithAdvantage:
			if second := src.Intn(plan.Sides) + 1; second > die {
				die = second
			}
		case WithDisadvantage:
			if second := src.Intn(plan.Sides) + 1; second < die {
				die = second
			}
		}

		if plan.RerollBelow > 0 && die < plan.RerollBelow {
			die = src.Intn(plan.Sides) + 1
		}

		raw = append(raw, die)
		if plan.D20() {
			switch die {
			case 20:
				critSuccesses++
			case 1:
				critFailures++
			}
		}

		clamped := die
		if plan.MinDie > 0 && clamped < plan.MinDie {
			clamped = plan.MinDie
		}
		if plan.MaxDie > 0 && clamped > plan.MaxDie {
			clamped = plan.MaxDie
		}
		final = append(final, clamped)
		total += clamped
	}

	critical := CriticalNone
	if critSuccesses > critFailures {
		critical = CriticalSuccess
	} else if critFailures > critSuccesses {
		critical = CriticalFailure
	}

	return Result{
		Plan:     plan,
		Raw:      raw,
		Dice:     final,
		Modifier: plan.Modifier,
		Total:    total + plan.Modifier,
		Critical: critical,
	}, nil
}

// RollNotation parses notation and rolls it using src in a single call.
func RollNotation(notation string, src Source) (Result, error) {
	plan, err := Parse(notation)
	if err != nil {
		return Result{}, err
	}
	return Roll(plan, src)
}

// MustParse parses notation and panics on error. Useful for fixed rules
// constants such as the unarmed strike damage die.
func MustParse(notation string) Plan {
	plan, err := Parse(notation)
	if err != nil {
		panic("dice: MustParse failed for " + notation + ": " + err.Error())
	}
	return plan
}

// Roller wraps a Source and a logger so every roll is recorded at debug
// level with its plan, raw dice, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller that rolls with src and logs each roll.
//
// Precondition: src and logger must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying randomness source, for policies that sample
// weighted tables directly.
func (r *Roller) Source() Source { return r.src }

// Roll evaluates plan and logs the result at debug level.
func (r *Roller) Roll(plan Plan) (Result, error) {
	result, err := Roll(plan, r.src)
	if err != nil {
		return Result{}, err
	}
	r.logger.Debug("dice roll",
		zap.String("plan", plan.Notation()),
		zap.Ints("raw", result.Raw),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total),
		zap.String("critical", result.Critical.String()),
	)
	return result, nil
}

// RollNotation parses notation and rolls it, logging the result.
func (r *Roller) RollNotation(notation string) (Result, error) {
	plan, err := Parse(notation)
	if err != nil {
		return Result{}, err
	}
	return r.Roll(plan)
}
