// Package state holds the mutable snapshot of one encounter: participants,
// item registry, initiative order, round and turn counters, and the
// termination flag. Once an encounter is running, the only sanctioned way
// to mutate a State is applying transitions; every other mutation path is a
// correctness bug, not merely discouraged.
package state

import (
	"sort"

	"github.com/clstatham/antikythera/internal/sim/actor"
	"github.com/clstatham/antikythera/internal/sim/item"
)

// State is the authoritative encounter snapshot.
//
// Iteration over actors always follows ascending ID order, independent of
// construction sequence, so replays and fingerprints are reproducible.
type State struct {
	// Round is the current round number; 0 before combat begins.
	Round int
	// TurnIndex is the position in InitiativeOrder of the active actor;
	// -1 when no turn is active.
	TurnIndex int
	// Over is true once the encounter has been resolved.
	Over bool

	// Actors maps actor IDs to participants. Use ActorIDs for ordered
	// iteration.
	Actors map[actor.ID]*actor.Actor
	// Items is the encounter's item registry. Entries are immutable once
	// referenced by an inventory.
	Items map[item.ID]*item.Item

	// InitiativeOrder lists actor IDs by descending initiative roll, ties
	// broken by ascending ID.
	InitiativeOrder []actor.ID

	nextActorID actor.ID
	nextItemID  item.ID
}

// New creates an empty encounter state.
func New() *State {
	return &State{
		TurnIndex: -1,
		Actors:    make(map[actor.ID]*actor.Actor),
		Items:     make(map[item.ID]*item.Item),
	}
}

// AddActor assigns the next actor ID and registers a. Builder-phase only:
// actors are never added once an encounter is running.
//
// Postcondition: a.ID is set and Actor(a.ID) returns the stored actor.
func (s *State) AddActor(a actor.Actor) actor.ID {
	s.nextActorID++
	a.ID = s.nextActorID
	stored := a
	s.Actors[stored.ID] = &stored
	return stored.ID
}

// AddItem assigns the next item ID and registers it. Builder-phase only.
func (s *State) AddItem(name string, weapon *item.Weapon) item.ID {
	s.nextItemID++
	s.Items[s.nextItemID] = &item.Item{ID: s.nextItemID, Name: name, Weapon: weapon}
	return s.nextItemID
}

// Actor returns the actor with the given ID.
func (s *State) Actor(id actor.ID) (*actor.Actor, bool) {
	a, ok := s.Actors[id]
	return a, ok
}

// Item returns the item with the given ID.
func (s *State) Item(id item.ID) (*item.Item, bool) {
	it, ok := s.Items[id]
	return it, ok
}

// ActorIDs returns every actor ID in ascending order.
func (s *State) ActorIDs() []actor.ID {
	ids := make([]actor.ID, 0, len(s.Actors))
	for id := range s.Actors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ItemIDs returns every item ID in ascending order.
func (s *State) ItemIDs() []item.ID {
	ids := make([]item.ID, 0, len(s.Items))
	for id := range s.Items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ActiveActor returns the actor whose turn it currently is, or false when
// no turn is active.
func (s *State) ActiveActor() (*actor.Actor, bool) {
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.InitiativeOrder) {
		return nil, false
	}
	return s.Actors[s.InitiativeOrder[s.TurnIndex]], true
}

// AlliesOf returns the IDs of living actors sharing id's group, excluding
// id itself, in ascending order.
func (s *State) AlliesOf(id actor.ID) []actor.ID {
	self, ok := s.Actors[id]
	if !ok {
		return nil
	}
	var allies []actor.ID
	for _, other := range s.ActorIDs() {
		a := s.Actors[other]
		if other != id && a.Group == self.Group && a.IsAlive() {
			allies = append(allies, other)
		}
	}
	return allies
}

// EnemiesOf returns the IDs of living actors outside id's group, in
// ascending order. These are the legal attack targets for id.
func (s *State) EnemiesOf(id actor.ID) []actor.ID {
	self, ok := s.Actors[id]
	if !ok {
		return nil
	}
	var enemies []actor.ID
	for _, other := range s.ActorIDs() {
		a := s.Actors[other]
		if other != id && a.Group != self.Group && a.IsAlive() {
			enemies = append(enemies, other)
		}
	}
	return enemies
}

// LivingActors returns the IDs of living actors in ascending order.
func (s *State) LivingActors() []actor.ID {
	var living []actor.ID
	for _, id := range s.ActorIDs() {
		if s.Actors[id].IsAlive() {
			living = append(living, id)
		}
	}
	return living
}

// IsCombatOver reports whether the living actors span at most one group.
// The check is recomputed from current vitality and status on every call;
// it is never cached.
func (s *State) IsCombatOver() bool {
	seen := make(map[int]bool)
	for _, a := range s.Actors {
		if a.IsAlive() {
			seen[a.Group] = true
		}
	}
	return len(seen) <= 1
}

// RecomputeInitiativeOrder rebuilds InitiativeOrder from every actor's
// assigned initiative: descending roll, ties broken by ascending ID.
// Actors without an assigned initiative sort as roll 0.
func (s *State) RecomputeInitiativeOrder() {
	order := s.ActorIDs()
	sort.SliceStable(order, func(i, j int) bool {
		a, b := s.Actors[order[i]], s.Actors[order[j]]
		ra, rb := 0, 0
		if a.InitiativeSet {
			ra = a.Initiative
		}
		if b.InitiativeSet {
			rb = b.Initiative
		}
		if ra != rb {
			return ra > rb
		}
		return order[i] < order[j]
	})
	s.InitiativeOrder = order
}

// Clone returns a deep copy of the state. Items are shared (they are
// immutable once referenced); actors and all ordering slices are copied.
func (s *State) Clone() *State {
	cp := &State{
		Round:       s.Round,
		TurnIndex:   s.TurnIndex,
		Over:        s.Over,
		Actors:      make(map[actor.ID]*actor.Actor, len(s.Actors)),
		Items:       make(map[item.ID]*item.Item, len(s.Items)),
		nextActorID: s.nextActorID,
		nextItemID:  s.nextItemID,
	}
	for id, a := range s.Actors {
		cp.Actors[id] = a.Clone()
	}
	for id, it := range s.Items {
		cp.Items[id] = it
	}
	cp.InitiativeOrder = make([]actor.ID, len(s.InitiativeOrder))
	copy(cp.InitiativeOrder, s.InitiativeOrder)
	return cp
}
