package scripting

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/clstatham/antikythera/internal/sim/action"
	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/dice"
	"github.com/clstatham/antikythera/internal/sim/item"
	"github.com/clstatham/antikythera/internal/sim/policy"
	"github.com/clstatham/antikythera/internal/sim/state"
)

// PolicyScript is a Lua-scripted combat policy. The script must define a
// global function
//
//	function decide(slot, actor_id, state) -> table
//
// returning a decision table:
//
//	{ type = "wait" }
//	{ type = "unarmed_strike", target = <actor id> }
//	{ type = "attack", target = <actor id>, weapon = <item id> }
//
// slot is one of "action", "bonus_action", "reaction", "movement".
//
// A single VM backs all decisions; a mutex serializes them, so one
// PolicyScript can be shared across trial workers at the cost of policy
// decisions running one at a time.
type PolicyScript struct {
	mu     sync.Mutex
	name   string
	L      *lua.LState
	cancel func()
	limit  int
	logger *zap.Logger
}

var _ policy.Policy = (*PolicyScript)(nil)

// NewPolicyScript compiles source in a fresh sandboxed VM and checks that
// it defines a decide function.
func NewPolicyScript(name, source string, instLimit int, logger *zap.Logger) (*PolicyScript, error) {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	L, cancel := NewSandboxedState(instLimit)
	if err := L.DoString(source); err != nil {
		cancel()
		L.Close()
		return nil, fmt.Errorf("scripting: loading policy %q: %w", name, err)
	}
	if L.GetGlobal("decide").Type() != lua.LTFunction {
		cancel()
		L.Close()
		return nil, fmt.Errorf("scripting: policy %q does not define function decide(slot, actor_id, state)", name)
	}
	return &PolicyScript{name: name, L: L, cancel: cancel, limit: instLimit, logger: logger}, nil
}

// Name returns the policy's configured name.
func (p *PolicyScript) Name() string { return p.name }

// Close releases the underlying VM.
func (p *PolicyScript) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel()
	p.L.Close()
}

// Decide invokes the script's decide function. Script errors and malformed
// decision tables are returned as errors, which the executor turns into
// trial failures.
func (p *PolicyScript) Decide(st *state.State, id actor.ID, slot actor.Slot, _ dice.Source) (action.Taken, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Fresh opcode budget per decision.
	p.cancel()
	ctx, cancel := newCountingContext(p.limit)
	p.L.SetContext(ctx)
	p.cancel = cancel

	if err := p.L.CallByParam(lua.P{
		Fn:      p.L.GetGlobal("decide"),
		NRet:    1,
		Protect: true,
	}, lua.LString(slotName(slot)), lua.LNumber(id), stateToLua(p.L, st)); err != nil {
		return action.Taken{}, fmt.Errorf("scripting: policy %q: %w", p.name, err)
	}
	ret := p.L.Get(-1)
	p.L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return action.Taken{}, fmt.Errorf("scripting: policy %q: decide returned %s, want table", p.name, ret.Type())
	}
	act, err := p.decodeDecision(tbl)
	if err != nil {
		return action.Taken{}, fmt.Errorf("scripting: policy %q: %w", p.name, err)
	}
	return action.Taken{Actor: id, Slot: slot, Action: act}, nil
}

func (p *PolicyScript) decodeDecision(tbl *lua.LTable) (action.Action, error) {
	kind, ok := tbl.RawGetString("type").(lua.LString)
	if !ok {
		return action.Action{}, fmt.Errorf("decision table missing string field %q", "type")
	}
	switch string(kind) {
	case "wait":
		return action.Action{Type: action.Wait}, nil
	case "unarmed_strike":
		target, err := intField(tbl, "target")
		if err != nil {
			return action.Action{}, err
		}
		return action.Action{Type: action.UnarmedStrike, Target: actor.ID(target)}, nil
	case "attack":
		target, err := intField(tbl, "target")
		if err != nil {
			return action.Action{}, err
		}
		weapon, err := intField(tbl, "weapon")
		if err != nil {
			return action.Action{}, err
		}
		return action.Action{Type: action.Attack, Target: actor.ID(target), Weapon: item.ID(weapon)}, nil
	default:
		return action.Action{}, fmt.Errorf("unknown decision type %q", string(kind))
	}
}

func intField(tbl *lua.LTable, field string) (int, error) {
	n, ok := tbl.RawGetString(field).(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("decision table missing numeric field %q", field)
	}
	return int(n), nil
}

func slotName(slot actor.Slot) string {
	switch slot {
	case actor.SlotAction:
		return "action"
	case actor.SlotBonusAction:
		return "bonus_action"
	case actor.SlotReaction:
		return "reaction"
	case actor.SlotMovement:
		return "movement"
	default:
		return "unknown"
	}
}
