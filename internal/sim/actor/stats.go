package actor

// Stat identifies one of the six ability scores.
type Stat int

const (
	Strength Stat = iota
	Dexterity
	Constitution
	Intelligence
	Wisdom
	Charisma
)

// AllStats returns the six ability identifiers in canonical order.
func AllStats() []Stat {
	return []Stat{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}
}

// String returns the ability name.
func (s Stat) String() string {
	switch s {
	case Strength:
		return "strength"
	case Dexterity:
		return "dexterity"
	case Constitution:
		return "constitution"
	case Intelligence:
		return "intelligence"
	case Wisdom:
		return "wisdom"
	case Charisma:
		return "charisma"
	default:
		return "unknown"
	}
}

// Stats is a six-ability score block. The zero value is not useful; use
// DefaultStats for the all-10 baseline.
type Stats struct {
	Strength     int
	Dexterity    int
	Constitution int
	Intelligence int
	Wisdom       int
	Charisma     int
}

// DefaultStats returns a score block with every ability at 10 (modifier 0).
func DefaultStats() Stats {
	return Stats{
		Strength:     10,
		Dexterity:    10,
		Constitution: 10,
		Intelligence: 10,
		Wisdom:       10,
		Charisma:     10,
	}
}

// Get returns the score for stat.
func (s Stats) Get(stat Stat) int {
	switch stat {
	case Strength:
		return s.Strength
	case Dexterity:
		return s.Dexterity
	case Constitution:
		return s.Constitution
	case Intelligence:
		return s.Intelligence
	case Wisdom:
		return s.Wisdom
	case Charisma:
		return s.Charisma
	default:
		return 0
	}
}

// Set assigns the score for stat.
//
// Precondition: value >= 0.
func (s *Stats) Set(stat Stat, value int) {
	switch stat {
	case Strength:
		s.Strength = value
	case Dexterity:
		s.Dexterity = value
	case Constitution:
		s.Constitution = value
	case Intelligence:
		s.Intelligence = value
	case Wisdom:
		s.Wisdom = value
	case Charisma:
		s.Charisma = value
	}
}

// Modifier returns the derived ability modifier: floor((score - 10) / 2).
//
// Postcondition: score 10 yields 0, score 16 yields +3, score 8 yields -1.
func (s Stats) Modifier(stat Stat) int {
	return s.Get(stat)/2 - 5
}
