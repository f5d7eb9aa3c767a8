package transition

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/clstatham/antikythera/internal/sim/state"
)

// Log is the append-only, ordered record of one encounter. Given the same
// initial state and randomness stream, an executor produces a byte-identical
// entry sequence, which makes logs the canonical replayable artifact.
type Log struct {
	entries []Entry
	logger  *zap.Logger
}

// NewLog creates an empty log. Non-quiet entries are echoed to logger at
// debug level as they are appended.
//
// Precondition: logger must be non-nil (use zap.NewNop() to silence).
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

// Append records entry, describing it against st for the debug echo.
func (l *Log) Append(entry Entry, st *state.State) {
	if !entry.Quiet() && l.logger.Core().Enabled(zap.DebugLevel) {
		l.logger.Debug("encounter log",
			zap.Bool("authoritative", entry.IsTransition()),
			zap.String("entry", entry.Describe(st)),
		)
	}
	l.entries = append(l.entries, entry)
}

// Entries returns the ordered entry sequence. The returned slice is the
// log's backing storage; callers must not modify it.
func (l *Log) Entries() []Entry {
	return l.entries
}

// Transitions returns only the authoritative transitions, in order.
func (l *Log) Transitions() []Transition {
	var out []Transition
	for _, e := range l.entries {
		if e.Transition != nil {
			out = append(out, *e.Transition)
		}
	}
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int { return len(l.entries) }

// Replay applies every authoritative transition, in order, to a clone of
// initial and returns the resulting state.
//
// Postcondition: initial is unmodified.
func (l *Log) Replay(initial *state.State) (*state.State, error) {
	st := initial.Clone()
	for i, e := range l.entries {
		if e.Transition == nil {
			continue
		}
		if err := e.Transition.Apply(st); err != nil {
			return nil, &ReplayError{Index: i, Transition: *e.Transition, Err: err}
		}
	}
	return st, nil
}

// ReplayError reports which transition failed during a replay.
type ReplayError struct {
	Index      int
	Transition Transition
	Err        error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replaying entry %d (%s): %v", e.Index, e.Transition.Kind, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }
