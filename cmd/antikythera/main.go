// Package main provides the antikythera simulation runner. It wires
// together configuration, a scenario, the trial aggregator, the outcome
// graph, and the analysis queries, then prints (and optionally persists)
// the resulting reports.
package main

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clstatham/antikythera/internal/config"
	"github.com/clstatham/antikythera/internal/observability"
	"github.com/clstatham/antikythera/internal/scenario"
	"github.com/clstatham/antikythera/internal/scripting"
	"github.com/clstatham/antikythera/internal/sim/trial"
	"github.com/clstatham/antikythera/internal/stats/graph"
	"github.com/clstatham/antikythera/internal/stats/query"
	"github.com/clstatham/antikythera/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	scenarioPath := flag.String("scenario", "", "path to scenario YAML file (required)")
	queryDir := flag.String("queries", "", "optional directory of Lua query scripts")
	policyPath := flag.String("policy", "", "optional Lua policy script overriding the scenario policy")
	flag.Parse()

	if *scenarioPath == "" {
		log.Fatal("missing required -scenario flag")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Initialize logger
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *scenarioPath, *queryDir, *policyPath, start); err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger, scenarioPath, queryDir, policyPath string, start time.Time) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := scenario.LoadFromFile(scenarioPath)
	if err != nil {
		return fmt.Errorf("loading scenario: %w", err)
	}
	logger.Info("scenario loaded",
		zap.String("scenario", sc.Name),
		zap.Int("actors", len(sc.Initial.ActorIDs())),
	)

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = randomSeed()
		logger.Info("using random seed", zap.Uint64("seed", seed))
	}

	agg, err := trial.NewAggregator(trial.Config{
		Trials:    cfg.Simulation.Trials,
		Workers:   cfg.Simulation.Workers,
		Seed:      seed,
		MaxRounds: cfg.Simulation.MaxRounds,
	}, logger)
	if err != nil {
		return fmt.Errorf("building aggregator: %w", err)
	}

	pol := sc.Policy
	if policyPath != "" {
		source, err := os.ReadFile(policyPath)
		if err != nil {
			return fmt.Errorf("reading policy script: %w", err)
		}
		scripted, err := scripting.NewPolicyScript(
			strings.TrimSuffix(filepath.Base(policyPath), ".lua"),
			string(source), cfg.Scripting.InstructionLimit, logger)
		if err != nil {
			return err
		}
		defer scripted.Close()
		logger.Info("using scripted policy", zap.String("policy", scripted.Name()))
		results, err := agg.Run(ctx, sc.Initial, scripted)
		if err != nil {
			return err
		}
		return report(ctx, cfg, logger, sc, seed, results, queryDir, start)
	}

	results, err := agg.Run(ctx, sc.Initial, pol)
	if err != nil {
		return err
	}
	return report(ctx, cfg, logger, sc, seed, results, queryDir, start)
}

// report merges trial logs into the outcome graph, runs all queries, prints
// their reports, and persists the run when the database is enabled.
func report(ctx context.Context, cfg config.Config, logger *zap.Logger, sc *scenario.Scenario,
	seed uint64, results *trial.Results, queryDir string, start time.Time) error {

	g := graph.New(logger)
	for _, tr := range results.Trials {
		if tr.Failed() {
			continue
		}
		if err := g.Merge(sc.Initial, tr.Log); err != nil {
			return fmt.Errorf("merging trial %d: %w", tr.Index, err)
		}
	}
	logger.Info("outcome graph built",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
	)

	queries := []query.Query{query.Summary{}}
	for _, group := range groupsOf(sc) {
		queries = append(queries, query.GroupVictory(group))
	}
	scripted, err := loadQueryScripts(queryDir, cfg.Scripting.InstructionLimit, logger)
	if err != nil {
		return err
	}
	queries = append(queries, scripted...)

	var reports []postgres.ReportRow
	for _, q := range queries {
		rep, err := q.Run(g)
		if err != nil {
			return fmt.Errorf("running query %q: %w", q.Name(), err)
		}
		for _, m := range rep {
			fmt.Printf("%-24s %-24s %g\n", q.Name(), m.Label, m.Value)
			reports = append(reports, postgres.ReportRow{Query: q.Name(), Label: m.Label, Value: m.Value})
		}
	}

	if cfg.Database.Enabled {
		if err := persist(ctx, cfg, logger, sc.Name, seed, results, reports); err != nil {
			return err
		}
	}

	logger.Info("done",
		zap.Int("completed", results.Completed),
		zap.Int("failed", results.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func persist(ctx context.Context, cfg config.Config, logger *zap.Logger, scenarioName string,
	seed uint64, results *trial.Results, reports []postgres.ReportRow) error {

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	repo := postgres.NewRunRepository(pool.DB())
	run, err := repo.SaveRun(ctx, postgres.Run{
		ID:        results.RunID,
		Scenario:  scenarioName,
		Seed:      int64(seed),
		Trials:    len(results.Trials),
		Completed: results.Completed,
		Failed:    results.Failed,
		Elapsed:   results.Elapsed,
	})
	if err != nil {
		return err
	}
	if err := repo.SaveReport(ctx, run.ID, reports); err != nil {
		return err
	}
	logger.Info("run persisted", zap.String("run_id", run.ID.String()))
	return nil
}

// loadQueryScripts compiles every *.lua file in dir as a query script.
func loadQueryScripts(dir string, instLimit int, logger *zap.Logger) ([]query.Query, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading query dir %q: %w", dir, err)
	}
	var out []query.Query
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		source, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading query script %q: %w", e.Name(), err)
		}
		q, err := scripting.NewQueryScript(
			strings.TrimSuffix(e.Name(), ".lua"), string(source), instLimit, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// groupsOf returns the sorted actor groups in the scenario's initial state.
func groupsOf(sc *scenario.Scenario) []int {
	seen := make(map[int]bool)
	var groups []int
	for _, id := range sc.Initial.ActorIDs() {
		a, _ := sc.Initial.Actor(id)
		if !seen[a.Group] {
			seen[a.Group] = true
			groups = append(groups, a.Group)
		}
	}
	sort.Ints(groups)
	return groups
}

// randomSeed draws a non-zero seed from the OS entropy source.
func randomSeed() uint64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// Fall back to time; only reached when the entropy source is broken.
		return uint64(time.Now().UnixNano()) | 1
	}
	seed := binary.LittleEndian.Uint64(buf[:])
	if seed == 0 {
		seed = 1
	}
	return seed
}
