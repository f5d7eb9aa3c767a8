// Package graph accumulates encounter logs into a deduplicated outcome
// graph. Nodes are canonical state fingerprints, edges are the transitions
// observed between them; both carry hit counters, from which outcome
// probabilities are derived.
package graph

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/clstatham/antikythera/internal/sim/state"
	"github.com/clstatham/antikythera/internal/sim/transition"
)

// NodeID indexes a node within one Graph. IDs are assigned in first-seen
// order and are not stable across graphs.
type NodeID int

// Node is one deduplicated state in the outcome graph.
type Node struct {
	ID          NodeID
	Fingerprint state.Fingerprint
	// Hits is the number of times any trial visited this state. Saturates
	// at math.MaxUint64 instead of wrapping.
	Hits uint64
	// Terminal marks states whose encounter was over when observed.
	Terminal bool
}

// EdgeKey identifies an edge by its endpoints and the transition kind that
// caused it.
type EdgeKey struct {
	From NodeID
	To   NodeID
	Kind transition.Kind
}

// Edge is one deduplicated transition between two states.
type Edge struct {
	Key EdgeKey
	// Transition is a representative of the transitions folded into this
	// edge (first observed).
	Transition transition.Transition
	// Hits saturates like Node.Hits.
	Hits uint64
}

// Graph is the outcome graph for one batch of trials. All methods are safe
// for concurrent use; Merge serializes internally.
type Graph struct {
	mu sync.RWMutex

	nodes     []*Node
	states    []*state.State
	index     map[state.Fingerprint]NodeID
	edges     map[EdgeKey]*Edge
	neighbors map[NodeID][]EdgeKey

	logger *zap.Logger
}

// New creates an empty Graph.
func New(logger *zap.Logger) *Graph {
	return &Graph{
		index:     make(map[state.Fingerprint]NodeID),
		edges:     make(map[EdgeKey]*Edge),
		neighbors: make(map[NodeID][]EdgeKey),
		logger:    logger,
	}
}

// saturatingInc bumps a hit counter without wrapping.
func saturatingInc(n *uint64) {
	if *n < math.MaxUint64 {
		*n++
	}
}

// visit interns the state's fingerprint and bumps its hit counter. The
// first time a fingerprint is seen the state is snapshotted so queries can
// inspect it later. Caller holds mu.
func (g *Graph) visit(st *state.State) NodeID {
	fp := st.Fingerprint()
	if id, ok := g.index[fp]; ok {
		node := g.nodes[id]
		saturatingInc(&node.Hits)
		if st.Over {
			node.Terminal = true
		}
		return id
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{
		ID:          id,
		Fingerprint: fp,
		Hits:        1,
		Terminal:    st.Over,
	})
	g.states = append(g.states, st.Clone())
	g.index[fp] = id
	return id
}

// record adds or bumps the edge from → to. Caller holds mu.
func (g *Graph) record(from, to NodeID, t transition.Transition) {
	key := EdgeKey{From: from, To: to, Kind: t.Kind}
	if e, ok := g.edges[key]; ok {
		saturatingInc(&e.Hits)
		return
	}
	g.edges[key] = &Edge{Key: key, Transition: t, Hits: 1}
	g.neighbors[from] = append(g.neighbors[from], key)
}

// Merge folds one trial's log into the graph by replaying its transitions
// against a clone of the trial's initial state. The whole replay happens
// under the write lock so a trial's path enters the graph atomically.
//
// Precondition: initial must be the exact state the log was produced from.
func (g *Graph) Merge(initial *state.State, log *transition.Log) error {
	st := initial.Clone()

	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.visit(st)
	for i, t := range log.Transitions() {
		if err := t.Apply(st); err != nil {
			return fmt.Errorf("graph: replaying transition %d (%s): %w", i, t.Kind, err)
		}
		cur := g.visit(st)
		g.record(prev, cur, t)
		prev = cur
	}
	return nil
}

// NodeCount returns the number of distinct states observed.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of distinct (from, to, kind) edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Node returns the node for a fingerprint, if present.
func (g *Graph) Node(fp state.Fingerprint) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.index[fp]
	if !ok {
		return Node{}, false
	}
	return *g.nodes[id], true
}

// EdgeProbability returns the empirical probability of taking the given
// edge out of its source node: edge hits over the sum of all hits leaving
// the source. Returns 0 for unknown edges.
func (g *Graph) EdgeProbability(key EdgeKey) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.edges[key]
	if !ok {
		return 0
	}
	var out uint64
	for _, k := range g.neighbors[key.From] {
		out += g.edges[k].Hits
	}
	if out == 0 {
		return 0
	}
	return float64(e.Hits) / float64(out)
}

// BranchingFactor is the mean number of outgoing edges per node.
func (g *Graph) BranchingFactor() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.nodes) == 0 {
		return 0
	}
	return float64(len(g.edges)) / float64(len(g.nodes))
}

// MaxDepth is the length in edges of the longest acyclic path in the
// graph. Cycles are broken by never revisiting a node already on the
// current path.
func (g *Graph) MaxDepth() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	onPath := make(map[NodeID]bool, len(g.nodes))
	var dfs func(id NodeID) int
	dfs = func(id NodeID) int {
		onPath[id] = true
		best := 0
		for _, key := range g.neighbors[id] {
			if onPath[key.To] {
				continue
			}
			if d := 1 + dfs(key.To); d > best {
				best = d
			}
		}
		onPath[id] = false
		return best
	}

	max := 0
	for _, n := range g.nodes {
		if d := dfs(n.ID); d > max {
			max = d
		}
	}
	return max
}

// VisitStates calls fn with each node and its snapshotted state, or only
// terminal nodes when terminalOnly is set. Iteration is in first-seen
// order; returning false stops early. The state handed to fn is shared:
// fn must not mutate it or call back into the graph.
func (g *Graph) VisitStates(terminalOnly bool, fn func(Node, *state.State) bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, n := range g.nodes {
		if terminalOnly && !n.Terminal {
			continue
		}
		if !fn(*n, g.states[n.ID]) {
			return
		}
	}
}

// TerminalProbability returns the fraction of terminal-state hits whose
// state satisfies pred. It is the building block for outcome queries.
func (g *Graph) TerminalProbability(pred func(*state.State) bool) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var total, matched uint64
	for _, n := range g.nodes {
		if !n.Terminal {
			continue
		}
		total += n.Hits
		if pred(g.states[n.ID]) {
			matched += n.Hits
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}
