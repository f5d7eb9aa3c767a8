// Package trial runs many independent encounters and aggregates their
// outcomes. Per-trial randomness is pre-forked from a single seed in trial
// index order, so a run's results are reproducible regardless of worker
// count or scheduling.
package trial

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/executor"
	"github.com/clstatham/antikythera/internal/sim/policy"
	"github.com/clstatham/antikythera/internal/sim/state"
	"github.com/clstatham/antikythera/internal/sim/transition"
)

// Config controls a batch run.
type Config struct {
	// Trials is the number of encounters to simulate.
	Trials int
	// Workers is the number of concurrent trial goroutines. Zero means
	// GOMAXPROCS.
	Workers int
	// Seed seeds the batch; each trial's source is forked from it
	// deterministically.
	Seed uint64
	// MaxRounds bounds each encounter. Zero means the executor default.
	MaxRounds int
}

// Validate checks the config for values the aggregator cannot run with.
func (c Config) Validate() error {
	if c.Trials < 1 {
		return fmt.Errorf("trial: trials must be positive, got %d", c.Trials)
	}
	if c.Workers < 0 {
		return fmt.Errorf("trial: workers must be non-negative, got %d", c.Workers)
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("trial: max rounds must be non-negative, got %d", c.MaxRounds)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Result is the outcome of a single trial. Exactly one of Log and Err is
// meaningful: a failed trial carries no log.
type Result struct {
	ID    uuid.UUID
	Index int
	Log   *transition.Log
	Final *state.State
	Err   error
}

// Failed reports whether the trial aborted before resolution.
func (r Result) Failed() bool { return r.Err != nil }

// Results aggregates one batch run.
type Results struct {
	RunID     uuid.UUID
	Trials    []Result
	Completed int
	Failed    int
	Elapsed   time.Duration
}

// TrialsPerSecond is the batch throughput including failed trials.
func (r Results) TrialsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(len(r.Trials)) / r.Elapsed.Seconds()
}

// Aggregator runs batches of encounter trials.
type Aggregator struct {
	cfg    Config
	logger *zap.Logger

	progress atomic.Int64
}

// NewAggregator creates an Aggregator.
//
// Precondition: cfg must be valid per Validate; logger must be non-nil.
func NewAggregator(cfg Config, logger *zap.Logger) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{cfg: cfg, logger: logger}, nil
}

// Progress returns the number of trials finished so far in the current run.
func (a *Aggregator) Progress() int { return int(a.progress.Load()) }

// Run executes the configured number of trials against clones of initial
// using pol and returns the aggregated results in trial index order.
//
// Cancellation is honored at trial boundaries: an in-flight encounter runs
// to completion, pending trials are marked failed with ctx.Err. Trial
// failures (illegal actions, round budget) are isolated; they never stop
// the batch.
//
// Invariant: trial i always consumes the i-th fork of the batch source, so
// results are independent of Workers.
func (a *Aggregator) Run(ctx context.Context, initial *state.State, pol policy.Policy) (*Results, error) {
	if initial == nil {
		return nil, errors.New("trial: initial state is nil")
	}
	if pol == nil {
		return nil, errors.New("trial: policy is nil")
	}

	start := time.Now()
	runID := uuid.New()
	a.progress.Store(0)

	// Fork every trial source up front, in index order, from one root.
	// This is the determinism anchor: workers receive a fixed stream
	// each, never a shared one.
	root := dice.NewSeededSource(a.cfg.Seed)
	sources := make([]dice.Source, a.cfg.Trials)
	for i := range sources {
		sources[i] = root.Fork()
	}

	a.logger.Info("starting trial run",
		zap.String("run_id", runID.String()),
		zap.Int("trials", a.cfg.Trials),
		zap.Int("workers", a.cfg.workers()),
		zap.Uint64("seed", a.cfg.Seed),
	)

	indexes := make(chan int)
	results := make([]Result, a.cfg.Trials)

	var wg sync.WaitGroup
	for w := 0; w < a.cfg.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = a.runTrial(i, initial, pol, sources[i])
				a.progress.Add(1)
			}
		}()
	}

	var cancelled error
dispatch:
	for i := 0; i < a.cfg.Trials; i++ {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			for j := i; j < a.cfg.Trials; j++ {
				results[j] = Result{ID: uuid.New(), Index: j, Err: fmt.Errorf("trial: cancelled: %w", cancelled)}
			}
			break dispatch
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	res := &Results{
		RunID:   runID,
		Trials:  results,
		Elapsed: time.Since(start),
	}
	for _, r := range results {
		if r.Failed() {
			res.Failed++
		} else {
			res.Completed++
		}
	}

	a.logger.Info("trial run finished",
		zap.String("run_id", runID.String()),
		zap.Int("completed", res.Completed),
		zap.Int("failed", res.Failed),
		zap.Duration("elapsed", res.Elapsed),
		zap.Float64("trials_per_second", res.TrialsPerSecond()),
	)

	if cancelled != nil {
		return res, cancelled
	}
	return res, nil
}

// runTrial executes one encounter against a clone of initial.
func (a *Aggregator) runTrial(index int, initial *state.State, pol policy.Policy, src dice.Source) Result {
	id := uuid.New()
	st := initial.Clone()

	opts := []executor.Option{}
	if a.cfg.MaxRounds > 0 {
		opts = append(opts, executor.WithMaxRounds(a.cfg.MaxRounds))
	}

	// Per-trial logs stay quiet unless the batch logger is at debug.
	exec := executor.New(st, src, pol, a.logger.Named(fmt.Sprintf("trial-%d", index)), opts...)
	log, err := exec.Run()
	if err != nil {
		a.logger.Warn("trial failed",
			zap.Int("index", index),
			zap.String("trial_id", id.String()),
			zap.Error(err),
		)
		return Result{ID: id, Index: index, Err: err}
	}
	return Result{ID: id, Index: index, Log: log, Final: st}
}
