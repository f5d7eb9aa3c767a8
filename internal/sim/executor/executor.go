// Package executor orchestrates one full encounter: initiative, the
// round/turn loop, policy invocation, action resolution, and the
// termination check. Given the same initial state and randomness stream it
// produces a byte-identical log, which is the foundation the trial
// aggregator and outcome graph build on.
package executor

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/clstatham/antikythera/internal/sim/action"
	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/policy"
	"github.com/clstatham/antikythera/internal/sim/state"
	"github.com/clstatham/antikythera/internal/sim/transition"
)

// Phase is the executor's position in the encounter state machine.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseInitiativeRolled
	PhaseTurnActive
	PhaseTurnComplete
	PhaseRoundComplete
	PhaseResolved
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseInitiativeRolled:
		return "initiative_rolled"
	case PhaseTurnActive:
		return "turn_active"
	case PhaseTurnComplete:
		return "turn_complete"
	case PhaseRoundComplete:
		return "round_complete"
	case PhaseResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// DefaultMaxRounds bounds runaway encounters (e.g. two pacifist policies).
const DefaultMaxRounds = 1000

// ErrMaxRounds is returned when an encounter exceeds its round budget
// without resolving.
var ErrMaxRounds = errors.New("executor: encounter exceeded maximum rounds")

// IllegalActionError reports a policy returning an action the actor cannot
// legally take. This is a programming error in the policy; the executor
// surfaces it and aborts the trial rather than corrupting statistics by
// skipping.
type IllegalActionError struct {
	Actor actor.ID
	Taken action.Taken
	Err   error
}

func (e *IllegalActionError) Error() string {
	return fmt.Sprintf("executor: policy returned illegal action %s for actor %d: %v",
		e.Taken.Action.Type, e.Actor, e.Err)
}

func (e *IllegalActionError) Unwrap() error { return e.Err }

// slotOrder is the economy slots the policy is consulted for, in order.
// Reactions and movement are spent inside action resolution, not offered
// as decision points.
var slotOrder = []actor.Slot{actor.SlotAction, actor.SlotBonusAction}

// Executor runs a single encounter to resolution.
type Executor struct {
	st        *state.State
	roller    *dice.Roller
	policy    policy.Policy
	log       *transition.Log
	hooks     []Hook
	maxRounds int
	phase     Phase
	logger    *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxRounds overrides the round budget.
func WithMaxRounds(n int) Option {
	return func(e *Executor) { e.maxRounds = n }
}

// WithHook registers an observer for encounter lifecycle callbacks.
func WithHook(h Hook) Option {
	return func(e *Executor) { e.hooks = append(e.hooks, h) }
}

// New creates an Executor that will run the encounter described by st.
// The executor owns st for the duration of the run; callers that need the
// initial state afterwards must pass a clone.
//
// Precondition: st, src, pol, and logger must be non-nil.
func New(st *state.State, src dice.Source, pol policy.Policy, logger *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		st:        st,
		roller:    dice.NewRoller(src, logger),
		policy:    pol,
		log:       transition.NewLog(logger),
		maxRounds: DefaultMaxRounds,
		phase:     PhaseNotStarted,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Phase returns the executor's current state-machine phase.
func (e *Executor) Phase() Phase { return e.phase }

// State returns the encounter state. Read-only for callers; mutations
// happen only through transitions applied by the executor.
func (e *Executor) State() *state.State { return e.st }

// Log returns the encounter log accumulated so far.
func (e *Executor) Log() *transition.Log { return e.log }

// apply performs one transition on the state and records it.
func (e *Executor) apply(t transition.Transition) error {
	if err := t.Apply(e.st); err != nil {
		return err
	}
	e.log.Append(transition.TransitionEntry(t), e.st)
	return nil
}

// applyAll applies resolver output atomically in order: transitions mutate
// state, extras are recorded as-is. Resolver entries are pre-validated, so
// a mid-sequence failure is an engine invariant violation, not recoverable.
func (e *Executor) applyAll(entries []transition.Entry) error {
	for _, entry := range entries {
		if entry.Transition != nil {
			if err := e.apply(*entry.Transition); err != nil {
				return fmt.Errorf("executor: applying %s: %w", entry.Transition.Kind, err)
			}
			continue
		}
		e.log.Append(entry, e.st)
	}
	return nil
}

// Run executes the encounter to resolution and returns its log.
//
// Phases: NotStarted → InitiativeRolled → (TurnActive ↔ TurnComplete) →
// RoundComplete → (next round | Resolved). Per-round economy is reset only
// at round boundaries.
//
// Postcondition: on success the state's Over flag is set and the log ends
// with the end-of-combat transition; on error the log holds everything up
// to the failed transition.
func (e *Executor) Run() (*transition.Log, error) {
	if e.phase != PhaseNotStarted {
		return nil, fmt.Errorf("executor: Run called twice")
	}

	if err := e.apply(transition.BeginCombat()); err != nil {
		return nil, err
	}
	for _, h := range e.hooks {
		h.OnCombatStart(e.st)
	}

	if err := e.rollInitiative(); err != nil {
		return nil, err
	}
	e.phase = PhaseInitiativeRolled

	for !e.st.IsCombatOver() {
		if e.st.Round >= e.maxRounds {
			return nil, fmt.Errorf("%w (%d)", ErrMaxRounds, e.maxRounds)
		}
		if err := e.runRound(); err != nil {
			return nil, err
		}
		e.phase = PhaseRoundComplete
	}

	if err := e.apply(transition.EndCombat()); err != nil {
		return nil, err
	}
	for _, h := range e.hooks {
		h.OnCombatEnd(e.st)
	}
	e.phase = PhaseResolved

	e.logger.Debug("encounter resolved",
		zap.Int("rounds", e.st.Round),
		zap.Int("log_entries", e.log.Len()),
	)
	return e.log, nil
}

// rollInitiative rolls d20 + DEX for every actor in ID order and emits the
// initiative transitions. The order recomputation inside each transition is
// deterministic: descending roll, ties broken by ascending ID.
func (e *Executor) rollInitiative() error {
	for _, id := range e.st.ActorIDs() {
		a, _ := e.st.Actor(id)
		result, err := e.roller.Roll(a.InitiativePlan())
		if err != nil {
			return fmt.Errorf("executor: initiative roll for %s: %w", a.Name, err)
		}
		if err := e.apply(transition.InitiativeRoll(id, result.Total)); err != nil {
			return err
		}
	}
	return nil
}

// runRound crosses one round boundary and runs every turn in it, stopping
// early once the termination invariant holds.
func (e *Executor) runRound() error {
	if err := e.apply(transition.BeginRound(e.st.Round + 1)); err != nil {
		return err
	}
	for _, h := range e.hooks {
		h.OnRoundStart(e.st, e.st.Round)
	}

	for range e.st.InitiativeOrder {
		if e.st.IsCombatOver() {
			return nil
		}
		if err := e.apply(transition.AdvanceInitiative()); err != nil {
			return err
		}
		active, ok := e.st.ActiveActor()
		if !ok {
			return fmt.Errorf("executor: no active actor at turn index %d", e.st.TurnIndex)
		}
		if !active.IsAlive() {
			// Downed and dead actors skip their turns entirely.
			continue
		}
		if err := e.runTurn(active.ID); err != nil {
			return err
		}
		e.phase = PhaseTurnComplete
	}
	return nil
}

// runTurn invokes the policy once per available economy slot and resolves
// each chosen action.
func (e *Executor) runTurn(id actor.ID) error {
	e.phase = PhaseTurnActive
	if err := e.apply(transition.BeginTurn(id)); err != nil {
		return err
	}
	for _, h := range e.hooks {
		h.OnTurnStart(e.st, id)
	}

	for _, slot := range slotOrder {
		a, _ := e.st.Actor(id)
		if !a.IsAlive() {
			// A reaction or rules effect could fell the actor mid-turn.
			break
		}
		if !a.Economy.CanUse(slot) {
			continue
		}

		taken, err := e.policy.Decide(e.st, id, slot, e.roller.Source())
		if err != nil {
			return fmt.Errorf("executor: policy decision for actor %d: %w", id, err)
		}
		if taken.Actor != id || taken.Slot != slot {
			return &IllegalActionError{Actor: id, Taken: taken,
				Err: fmt.Errorf("decision is for actor %d slot %s, expected actor %d slot %s",
					taken.Actor, taken.Slot, id, slot)}
		}

		entries, err := action.Resolve(e.st, taken, e.roller)
		if err != nil {
			return &IllegalActionError{Actor: id, Taken: taken, Err: err}
		}
		if err := e.applyAll(entries); err != nil {
			return err
		}
		for _, h := range e.hooks {
			h.OnActionExecuted(e.st, taken)
		}
	}

	if err := e.apply(transition.EndTurn(id)); err != nil {
		return err
	}
	for _, h := range e.hooks {
		h.OnTurnEnd(e.st, id)
	}
	return nil
}
