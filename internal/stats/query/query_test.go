package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/state"
	"github.com/clstatham/antikythera/internal/sim/transition"
	"github.com/clstatham/antikythera/internal/stats/graph"
	"github.com/clstatham/antikythera/internal/stats/query"
)

// arena builds a graph from three merged encounters: the hero wins twice,
// the goblin once.
func arena(t *testing.T) *graph.Graph {
	t.Helper()
	st := state.New()
	hero := st.AddActor(actor.NewBuilder("Hero").Group(1).MaxHealth(20).Build())
	goblin := st.AddActor(actor.NewBuilder("Goblin").Group(2).MaxHealth(7).Build())

	g := graph.New(zap.NewNop())
	heroWins := transition.NewLog(zap.NewNop())
	for _, tr := range []transition.Transition{
		transition.HealthModification(goblin, -7),
		transition.ActorDied(goblin),
		transition.EndCombat(),
	} {
		heroWins.Append(transition.TransitionEntry(tr), st)
	}
	goblinWins := transition.NewLog(zap.NewNop())
	for _, tr := range []transition.Transition{
		transition.HealthModification(hero, -20),
		transition.ActorDied(hero),
		transition.EndCombat(),
	} {
		goblinWins.Append(transition.TransitionEntry(tr), st)
	}

	require.NoError(t, g.Merge(st, heroWins))
	require.NoError(t, g.Merge(st, heroWins))
	require.NoError(t, g.Merge(st, goblinWins))
	return g
}

func TestReport_Get(t *testing.T) {
	r := query.Report{{Label: "a", Value: 1}, {Label: "b", Value: 2}}
	v, ok := r.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestGroupVictory(t *testing.T) {
	g := arena(t)

	report, err := query.GroupVictory(1).Run(g)
	require.NoError(t, err)
	v, ok := report.Get("group_1_victory")
	require.True(t, ok)
	assert.InDelta(t, 2.0/3.0, v, 1e-9)

	report, err = query.GroupVictory(2).Run(g)
	require.NoError(t, err)
	v, ok = report.Get("group_2_victory")
	require.True(t, ok)
	assert.InDelta(t, 1.0/3.0, v, 1e-9)

	// Nobody from a group that was never in the fight survives.
	report, err = query.GroupVictory(3).Run(g)
	require.NoError(t, err)
	v, _ = report.Get("group_3_victory")
	assert.Zero(t, v)
}

func TestOutcomeProbability(t *testing.T) {
	g := arena(t)

	q := query.OutcomeProbability{
		Label:        "goblin_dead",
		TerminalOnly: true,
		Predicate: func(st *state.State) bool {
			for _, id := range st.ActorIDs() {
				a, _ := st.Actor(id)
				if a.Name == "Goblin" {
					return !a.IsAlive()
				}
			}
			return false
		},
	}
	report, err := q.Run(g)
	require.NoError(t, err)
	v, ok := report.Get("goblin_dead")
	require.True(t, ok)
	assert.InDelta(t, 2.0/3.0, v, 1e-9)

	_, err = query.OutcomeProbability{Label: "bad"}.Run(g)
	assert.Error(t, err, "a predicate is required")

	// Non-terminal visitation weights every state, not just endings.
	all := query.OutcomeProbability{
		Label:     "any",
		Predicate: func(*state.State) bool { return true },
	}
	report, err = all.Run(g)
	require.NoError(t, err)
	v, _ = report.Get("any")
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestSummary(t *testing.T) {
	g := arena(t)

	report, err := query.Summary{}.Run(g)
	require.NoError(t, err)

	for _, label := range []string{"nodes", "edges", "branching_factor", "max_depth", "terminal_hits"} {
		_, ok := report.Get(label)
		assert.True(t, ok, label)
	}

	nodes, _ := report.Get("nodes")
	assert.Equal(t, 7.0, nodes, "root plus three distinct states per path")
	depth, _ := report.Get("max_depth")
	assert.Equal(t, 3.0, depth)
	terminal, _ := report.Get("terminal_hits")
	assert.Equal(t, 3.0, terminal)
}
