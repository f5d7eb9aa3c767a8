// Package query defines the analysis surface over an outcome graph.
// Queries are read-only: they derive numbers from the graph's counters and
// never mutate it.
package query

import (
	"errors"
	"fmt"

	"github.com/clstatham/antikythera/internal/sim/state"
	"github.com/clstatham/antikythera/internal/stats/graph"
)

// Metric is one labeled value in a report.
type Metric struct {
	Label string
	Value float64
}

// Report is the ordered output of a query.
type Report []Metric

// Get returns the value for a label, if present.
func (r Report) Get(label string) (float64, bool) {
	for _, m := range r {
		if m.Label == label {
			return m.Value, true
		}
	}
	return 0, false
}

// Query computes a report from an outcome graph.
type Query interface {
	// Name identifies the query in reports and logs.
	Name() string
	// Run derives the report. Implementations must not mutate g.
	Run(g *graph.Graph) (Report, error)
}

// Predicate classifies a simulation state.
type Predicate func(st *state.State) bool

// OutcomeProbability reports the empirical probability that an encounter
// ends (or, with TerminalOnly unset, passes through) a state satisfying
// the predicate. Probability is weighted by node hit counts.
type OutcomeProbability struct {
	Label        string
	Predicate    Predicate
	TerminalOnly bool
}

func (q OutcomeProbability) Name() string { return q.Label }

func (q OutcomeProbability) Run(g *graph.Graph) (Report, error) {
	if q.Predicate == nil {
		return nil, errors.New("query: outcome probability requires a predicate")
	}
	if q.TerminalOnly {
		return Report{{Label: q.Label, Value: g.TerminalProbability(q.Predicate)}}, nil
	}

	var total, matched uint64
	g.VisitStates(false, func(n graph.Node, st *state.State) bool {
		total += n.Hits
		if q.Predicate(st) {
			matched += n.Hits
		}
		return true
	})
	if total == 0 {
		return Report{{Label: q.Label, Value: 0}}, nil
	}
	return Report{{Label: q.Label, Value: float64(matched) / float64(total)}}, nil
}

// GroupVictory builds an OutcomeProbability for "only the given group has
// survivors" over terminal states.
func GroupVictory(group int) OutcomeProbability {
	return OutcomeProbability{
		Label:        fmt.Sprintf("group_%d_victory", group),
		TerminalOnly: true,
		Predicate: func(st *state.State) bool {
			living := st.LivingActors()
			for _, id := range living {
				a, ok := st.Actor(id)
				if !ok || a.Group != group {
					return false
				}
			}
			return len(living) > 0
		},
	}
}

// Summary reports the structural shape of the graph itself.
type Summary struct{}

func (Summary) Name() string { return "summary" }

func (Summary) Run(g *graph.Graph) (Report, error) {
	var terminal uint64
	g.VisitStates(true, func(n graph.Node, _ *state.State) bool {
		terminal += n.Hits
		return true
	})
	return Report{
		{Label: "nodes", Value: float64(g.NodeCount())},
		{Label: "edges", Value: float64(g.EdgeCount())},
		{Label: "branching_factor", Value: g.BranchingFactor()},
		{Label: "max_depth", Value: float64(g.MaxDepth())},
		{Label: "terminal_hits", Value: float64(terminal)},
	}, nil
}
