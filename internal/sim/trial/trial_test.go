package trial_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clstatham/antikythera/internal/sim/action"
	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/executor"
	"github.com/clstatham/antikythera/internal/sim/item"
	"github.com/clstatham/antikythera/internal/sim/policy"
	"github.com/clstatham/antikythera/internal/sim/state"
	"github.com/clstatham/antikythera/internal/sim/trial"
)

func duelState(t *testing.T) (*state.State, policy.Policy) {
	t.Helper()
	st := state.New()
	sword := st.AddItem("sword", &item.Weapon{AttackBonus: 5, Damage: dice.MustParse("1d8+2")})
	hero := st.AddActor(actor.NewBuilder("Hero").Group(1).MaxHealth(20).ArmorClass(16).Carry(sword).Build())
	st.AddActor(actor.NewBuilder("Goblin").Group(2).MaxHealth(7).ArmorClass(12).Build())

	pol := policy.Func(func(st *state.State, id actor.ID, slot actor.Slot, _ dice.Source) (action.Taken, error) {
		taken := action.Taken{Actor: id, Slot: slot, Action: action.Action{Type: action.Wait}}
		if slot != actor.SlotAction {
			return taken, nil
		}
		enemies := st.EnemiesOf(id)
		if len(enemies) == 0 {
			return taken, nil
		}
		if id == hero {
			taken.Action = action.Action{Type: action.Attack, Target: enemies[0], Weapon: sword}
		} else {
			taken.Action = action.Action{Type: action.UnarmedStrike, Target: enemies[0]}
		}
		return taken, nil
	})
	return st, pol
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, trial.Config{Trials: 0}.Validate())
	assert.Error(t, trial.Config{Trials: 1, Workers: -1}.Validate())
	assert.Error(t, trial.Config{Trials: 1, MaxRounds: -1}.Validate())
	assert.NoError(t, trial.Config{Trials: 1}.Validate())
}

func TestRun_AllTrialsComplete(t *testing.T) {
	st, pol := duelState(t)
	agg, err := trial.NewAggregator(trial.Config{Trials: 50, Workers: 4, Seed: 1}, zap.NewNop())
	require.NoError(t, err)

	results, err := agg.Run(context.Background(), st, pol)
	require.NoError(t, err)

	assert.Len(t, results.Trials, 50)
	assert.Equal(t, 50, results.Completed)
	assert.Equal(t, 0, results.Failed)
	assert.NotEqual(t, uuid.Nil, results.RunID)
	assert.Equal(t, 50, agg.Progress())
	assert.Greater(t, results.TrialsPerSecond(), 0.0)

	for i, tr := range results.Trials {
		assert.Equal(t, i, tr.Index)
		assert.NotEqual(t, uuid.Nil, tr.ID)
		require.NotNil(t, tr.Log, "trial %d", i)
		assert.True(t, tr.Final.Over)
	}
}

func TestRun_InitialStateUntouched(t *testing.T) {
	st, pol := duelState(t)
	before := st.Fingerprint()

	agg, err := trial.NewAggregator(trial.Config{Trials: 10, Seed: 2}, zap.NewNop())
	require.NoError(t, err)
	_, err = agg.Run(context.Background(), st, pol)
	require.NoError(t, err)

	assert.Equal(t, before, st.Fingerprint(), "trials run on clones")
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	st, pol := duelState(t)

	final := func(workers int) []state.Fingerprint {
		agg, err := trial.NewAggregator(trial.Config{Trials: 20, Workers: workers, Seed: 7}, zap.NewNop())
		require.NoError(t, err)
		results, err := agg.Run(context.Background(), st, pol)
		require.NoError(t, err)
		out := make([]state.Fingerprint, len(results.Trials))
		for i, tr := range results.Trials {
			require.NotNil(t, tr.Final)
			out[i] = tr.Final.Fingerprint()
		}
		return out
	}

	assert.Equal(t, final(1), final(8),
		"trial outcomes depend only on the seed and index, never on scheduling")
}

func TestRun_FailuresIsolated(t *testing.T) {
	st, _ := duelState(t)

	// Every trial fails with an illegal target. The point is that none of
	// them aborts the batch.
	illegal := policy.Func(func(_ *state.State, id actor.ID, slot actor.Slot, _ dice.Source) (action.Taken, error) {
		return action.Taken{
			Actor:  id,
			Slot:   slot,
			Action: action.Action{Type: action.UnarmedStrike, Target: actor.ID(99)},
		}, nil
	})

	agg, err := trial.NewAggregator(trial.Config{Trials: 10, Workers: 2, Seed: 3}, zap.NewNop())
	require.NoError(t, err)
	results, err := agg.Run(context.Background(), st, illegal)
	require.NoError(t, err, "trial failures never fail the batch")

	assert.Equal(t, 0, results.Completed)
	assert.Equal(t, 10, results.Failed)
	for _, tr := range results.Trials {
		assert.True(t, tr.Failed())
		var illegalErr *executor.IllegalActionError
		assert.ErrorAs(t, tr.Err, &illegalErr)
		assert.Nil(t, tr.Log, "failed trials carry no log")
	}
}

func TestRun_MaxRoundsFailsTrial(t *testing.T) {
	st := state.New()
	st.AddActor(actor.NewBuilder("A").Group(1).Build())
	st.AddActor(actor.NewBuilder("B").Group(2).Build())
	pacifist := policy.Func(func(_ *state.State, id actor.ID, slot actor.Slot, _ dice.Source) (action.Taken, error) {
		return action.Taken{Actor: id, Slot: slot, Action: action.Action{Type: action.Wait}}, nil
	})

	agg, err := trial.NewAggregator(trial.Config{Trials: 3, Seed: 1, MaxRounds: 4}, zap.NewNop())
	require.NoError(t, err)
	results, err := agg.Run(context.Background(), st, pacifist)
	require.NoError(t, err)

	assert.Equal(t, 3, results.Failed)
	for _, tr := range results.Trials {
		assert.ErrorIs(t, tr.Err, executor.ErrMaxRounds)
	}
}

func TestRun_Cancellation(t *testing.T) {
	st, pol := duelState(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg, err := trial.NewAggregator(trial.Config{Trials: 100, Workers: 2, Seed: 5}, zap.NewNop())
	require.NoError(t, err)

	results, err := agg.Run(ctx, st, pol)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, results, "partial results are still returned")
	assert.Equal(t, 100, len(results.Trials))
	assert.Greater(t, results.Failed, 0, "undispatched trials are marked failed")
}

func TestRun_NilArguments(t *testing.T) {
	st, pol := duelState(t)
	agg, err := trial.NewAggregator(trial.Config{Trials: 1}, zap.NewNop())
	require.NoError(t, err)

	_, err = agg.Run(context.Background(), nil, pol)
	assert.Error(t, err)
	_, err = agg.Run(context.Background(), st, nil)
	assert.Error(t, err)
}

func TestResults_TrialsPerSecond(t *testing.T) {
	r := trial.Results{Trials: make([]trial.Result, 10), Elapsed: 2 * time.Second}
	assert.InDelta(t, 5.0, r.TrialsPerSecond(), 0.001)
	assert.Zero(t, trial.Results{}.TrialsPerSecond())
}
