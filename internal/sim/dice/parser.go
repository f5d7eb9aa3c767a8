package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a dice notation string into a Plan.
// Supported forms: "d20", "2d6", "2d6+3", "4d8-2".
//
// Precondition: notation must be a non-empty string.
// Postcondition: Returns a validated Plan or a descriptive error; invalid
// notation is never silently coerced.
func Parse(notation string) (Plan, error) {
	if notation == "" {
		return Plan{}, fmt.Errorf("dice: empty notation")
	}

	raw := notation
	s := strings.ToLower(strings.TrimSpace(notation))

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		return Plan{}, fmt.Errorf("dice: missing 'd' in notation %q", raw)
	}

	// Count before 'd'; defaults to 1 when omitted.
	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Plan{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count < 1 {
			return Plan{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", raw)
		}
	}

	rest := s[dIdx+1:]

	// Split sides from an optional signed modifier. Skip position 0 so a
	// leading sign is not mistaken for a modifier separator.
	modOffset := -1
	for i := 1; i < len(rest); i++ {
		if rest[i] == '+' || rest[i] == '-' {
			modOffset = i
			break
		}
	}

	sidesStr := rest
	modStr := ""
	if modOffset >= 0 {
		sidesStr = rest[:modOffset]
		modStr = rest[modOffset:]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Plan{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 {
		return Plan{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", raw)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Plan{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}

	return Plan{Count: count, Sides: sides, Modifier: modifier}, nil
}
