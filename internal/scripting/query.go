package scripting

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/clstatham/antikythera/internal/sim/state"
	"github.com/clstatham/antikythera/internal/stats/graph"
	"github.com/clstatham/antikythera/internal/stats/query"
)

// QueryScript is a Lua-scripted outcome query. The script must define a
// global function
//
//	function query(state) -> bool
//
// which is evaluated against each terminal state in the graph; the
// reported value is the hit-weighted fraction of terminal states for
// which it returns true.
//
// A QueryScript owns one LState and serializes calls with a mutex, so it
// is safe to share across goroutines.
type QueryScript struct {
	mu     sync.Mutex
	name   string
	L      *lua.LState
	cancel func()
	limit  int
	logger *zap.Logger
}

// ensure QueryScript keeps satisfying the analysis interface.
var _ query.Query = (*QueryScript)(nil)

// NewQueryScript compiles source in a fresh sandboxed VM and checks that
// it defines a query function.
//
// Precondition: logger must be non-nil; instLimit semantics follow
// NewSandboxedState.
func NewQueryScript(name, source string, instLimit int, logger *zap.Logger) (*QueryScript, error) {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	L, cancel := NewSandboxedState(instLimit)
	if err := L.DoString(source); err != nil {
		cancel()
		L.Close()
		return nil, fmt.Errorf("scripting: loading query %q: %w", name, err)
	}
	if L.GetGlobal("query").Type() != lua.LTFunction {
		cancel()
		L.Close()
		return nil, fmt.Errorf("scripting: query %q does not define function query(state)", name)
	}
	return &QueryScript{name: name, L: L, cancel: cancel, limit: instLimit, logger: logger}, nil
}

// Name returns the query's configured name.
func (q *QueryScript) Name() string { return q.name }

// Close releases the underlying VM.
func (q *QueryScript) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancel()
	q.L.Close()
}

// Run evaluates query(state) over every terminal state in the graph and
// reports the hit-weighted probability of a true result.
func (q *QueryScript) Run(g *graph.Graph) (query.Report, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var total, matched uint64
	var evalErr error
	g.VisitStates(true, func(n graph.Node, st *state.State) bool {
		ok, err := q.eval(st)
		if err != nil {
			evalErr = err
			return false
		}
		total += n.Hits
		if ok {
			matched += n.Hits
		}
		return true
	})
	if evalErr != nil {
		return nil, fmt.Errorf("scripting: query %q: %w", q.name, evalErr)
	}
	value := 0.0
	if total > 0 {
		value = float64(matched) / float64(total)
	}
	return query.Report{{Label: q.name, Value: value}}, nil
}

// eval calls query(state) with a fresh opcode budget. Caller holds mu.
func (q *QueryScript) eval(st *state.State) (bool, error) {
	// Each invocation gets its own counting context so a long run of
	// states cannot exhaust one shared budget.
	q.cancel()
	ctx, cancel := newCountingContext(q.limit)
	q.L.SetContext(ctx)
	q.cancel = cancel

	if err := q.L.CallByParam(lua.P{
		Fn:      q.L.GetGlobal("query"),
		NRet:    1,
		Protect: true,
	}, stateToLua(q.L, st)); err != nil {
		return false, err
	}
	ret := q.L.Get(-1)
	q.L.Pop(1)
	return lua.LVAsBool(ret), nil
}
