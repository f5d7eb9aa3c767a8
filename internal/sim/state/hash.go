package state

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/clstatham/antikythera/internal/sim/actor"
)

// Fingerprint is a 64-bit digest of a State, used to deduplicate observed
// states across trials.
type Fingerprint uint64

// Fingerprint computes a canonical digest of the state. Actors are encoded
// in ascending ID order so the digest is independent of map iteration and
// construction sequence. Two states with equal fingerprints are treated as
// the same outcome-graph node.
func (s *State) Fingerprint() Fingerprint {
	d := xxhash.New()
	var buf [8]byte

	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		d.Write(buf[:])
	}
	writeBool := func(v bool) {
		if v {
			writeInt(1)
		} else {
			writeInt(0)
		}
	}

	writeInt(s.Round)
	writeInt(s.TurnIndex)
	writeBool(s.Over)

	for _, id := range s.ActorIDs() {
		a := s.Actors[id]
		writeInt(int(id))
		writeInt(a.Group)
		writeInt(a.Health)
		writeInt(a.MaxHealth)
		writeInt(a.ArmorClass)
		writeInt(a.Level)
		writeBool(a.Dead)
		writeBool(a.InitiativeSet)
		if a.InitiativeSet {
			writeInt(a.Initiative)
		}
		writeBool(a.Economy.ActionUsed)
		writeBool(a.Economy.BonusActionUsed)
		writeBool(a.Economy.ReactionUsed)
		writeInt(a.Economy.MovementUsed)
		for _, stat := range actor.AllStats() {
			writeInt(a.Stats.Get(stat))
		}
		for _, itemID := range a.Inventory {
			writeInt(int(itemID))
		}
	}

	for _, id := range s.InitiativeOrder {
		writeInt(int(id))
	}

	return Fingerprint(d.Sum64())
}
