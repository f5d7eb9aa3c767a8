package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/clstatham/antikythera/internal/sim/state"
)

// stateToLua builds a read-only snapshot table of a simulation state:
//
//	{
//	  round = int, turn_index = int, over = bool,
//	  actors = { [id] = { id, name, group, health, max_health,
//	                      armor_class, alive, initiative } },
//	}
//
// Actor keys are their integer IDs, so scripts index actors[2] directly.
func stateToLua(L *lua.LState, st *state.State) *lua.LTable {
	tbl := L.NewTable()
	L.SetField(tbl, "round", lua.LNumber(st.Round))
	L.SetField(tbl, "turn_index", lua.LNumber(st.TurnIndex))
	L.SetField(tbl, "over", lua.LBool(st.Over))

	actors := L.NewTable()
	for _, id := range st.ActorIDs() {
		a, _ := st.Actor(id)
		at := L.NewTable()
		L.SetField(at, "id", lua.LNumber(a.ID))
		L.SetField(at, "name", lua.LString(a.Name))
		L.SetField(at, "group", lua.LNumber(a.Group))
		L.SetField(at, "health", lua.LNumber(a.Health))
		L.SetField(at, "max_health", lua.LNumber(a.MaxHealth))
		L.SetField(at, "armor_class", lua.LNumber(a.ArmorClass))
		L.SetField(at, "alive", lua.LBool(a.IsAlive()))
		L.SetField(at, "initiative", lua.LNumber(a.Initiative))
		actors.RawSetInt(int(a.ID), at)
	}
	L.SetField(tbl, "actors", actors)
	return tbl
}
