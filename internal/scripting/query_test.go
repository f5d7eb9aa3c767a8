package scripting_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clstatham/antikythera/internal/scripting"
	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/state"
	"github.com/clstatham/antikythera/internal/sim/transition"
	"github.com/clstatham/antikythera/internal/stats/graph"
)

// duelGraph merges two outcomes: the goblin dies twice, the hero once.
// Actor IDs are assigned sequentially, so the hero is 1 and the goblin 2.
func duelGraph(t *testing.T) *graph.Graph {
	t.Helper()
	st := state.New()
	hero := st.AddActor(actor.NewBuilder("Hero").Group(1).MaxHealth(20).Build())
	goblin := st.AddActor(actor.NewBuilder("Goblin").Group(2).MaxHealth(7).Build())

	g := graph.New(zap.NewNop())
	merge := func(times int, ts ...transition.Transition) {
		log := transition.NewLog(zap.NewNop())
		for _, tr := range ts {
			log.Append(transition.TransitionEntry(tr), st)
		}
		for i := 0; i < times; i++ {
			require.NoError(t, g.Merge(st, log))
		}
	}
	merge(2,
		transition.HealthModification(goblin, -7),
		transition.ActorDied(goblin),
		transition.EndCombat(),
	)
	merge(1,
		transition.HealthModification(hero, -20),
		transition.ActorDied(hero),
		transition.EndCombat(),
	)
	return g
}

func TestNewQueryScript_Validation(t *testing.T) {
	_, err := scripting.NewQueryScript("bad", `this is not lua`, 0, zap.NewNop())
	assert.Error(t, err)

	_, err = scripting.NewQueryScript("nofunc", `x = 1`, 0, zap.NewNop())
	assert.ErrorContains(t, err, "does not define")

	_, err = scripting.NewQueryScript("notafunc", `query = 42`, 0, zap.NewNop())
	assert.Error(t, err)

	q, err := scripting.NewQueryScript("ok", `function query(state) return true end`, 0, zap.NewNop())
	require.NoError(t, err)
	defer q.Close()
	assert.Equal(t, "ok", q.Name())
}

func TestQueryScript_Run(t *testing.T) {
	g := duelGraph(t)

	q, err := scripting.NewQueryScript("goblin_dead", `
		function query(state)
			return not state.actors[2].alive
		end
	`, 0, zap.NewNop())
	require.NoError(t, err)
	defer q.Close()

	report, err := q.Run(g)
	require.NoError(t, err)
	v, ok := report.Get("goblin_dead")
	require.True(t, ok)
	assert.InDelta(t, 2.0/3.0, v, 1e-9)
}

func TestQueryScript_StateFields(t *testing.T) {
	g := duelGraph(t)

	// Exercises every exposed field so a renamed key fails loudly.
	q, err := scripting.NewQueryScript("fields", `
		function query(state)
			local hero = state.actors[1]
			return state.over
				and hero.id == 1
				and hero.name == "Hero"
				and hero.group == 1
				and hero.max_health == 20
				and hero.armor_class >= 0
				and hero.health <= hero.max_health
		end
	`, 0, zap.NewNop())
	require.NoError(t, err)
	defer q.Close()

	report, err := q.Run(g)
	require.NoError(t, err)
	v, _ := report.Get("fields")
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestQueryScript_RuntimeErrorSurfaces(t *testing.T) {
	g := duelGraph(t)

	q, err := scripting.NewQueryScript("boom", `
		function query(state)
			error("deliberate")
		end
	`, 0, zap.NewNop())
	require.NoError(t, err)
	defer q.Close()

	_, err = q.Run(g)
	assert.ErrorContains(t, err, "deliberate")
}

func TestQueryScript_BudgetIsPerInvocation(t *testing.T) {
	// Thirty distinct terminal states, each evaluation burning a few
	// thousand opcodes. A budget shared across invocations would exhaust
	// after the first handful of states.
	st := state.New()
	st.AddActor(actor.NewBuilder("Hero").Group(1).MaxHealth(100).Build())
	goblin := st.AddActor(actor.NewBuilder("Goblin").Group(2).MaxHealth(100).Build())

	g := graph.New(zap.NewNop())
	for i := 1; i <= 30; i++ {
		log := transition.NewLog(zap.NewNop())
		log.Append(transition.TransitionEntry(transition.HealthModification(goblin, -i)), st)
		log.Append(transition.TransitionEntry(transition.EndCombat()), st)
		require.NoError(t, g.Merge(st, log))
	}

	q, err := scripting.NewQueryScript("busy", `
		function query(state)
			local x = 0
			for i = 1, 1000 do
				x = x + 1
			end
			return x == 1000
		end
	`, 20_000, zap.NewNop())
	require.NoError(t, err)
	defer q.Close()

	report, err := q.Run(g)
	require.NoError(t, err)
	v, _ := report.Get("busy")
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestQueryScript_InstructionLimitEnforced(t *testing.T) {
	g := duelGraph(t)

	q, err := scripting.NewQueryScript("spin", fmt.Sprintf(`
		function query(state)
			local x = 0
			for i = 1, %d do
				x = x + 1
			end
			return true
		end
	`, 10_000_000), 1_000, zap.NewNop())
	require.NoError(t, err)
	defer q.Close()

	_, err = q.Run(g)
	assert.Error(t, err, "runaway queries must be cut off")
}

func TestQueryScript_EmptyGraph(t *testing.T) {
	q, err := scripting.NewQueryScript("empty", `function query(state) return true end`, 0, zap.NewNop())
	require.NoError(t, err)
	defer q.Close()

	report, err := q.Run(graph.New(zap.NewNop()))
	require.NoError(t, err)
	v, _ := report.Get("empty")
	assert.Zero(t, v)
}
