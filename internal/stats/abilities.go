package stats

import "strings"

// Ability identifies one of the six D&D-style abilities a saving throw uses.
type Ability int

const (
	Strength Ability = iota
	Dexterity
	Constitution
	Intelligence
	Wisdom
	Charisma
)

// Abilities lists every ability in table order.
var Abilities = []Ability{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

// AbilityNames in table order
var AbilityNames = []string{"Strength", "Dexterity", "Constitution", "Intelligence", "Wisdom", "Charisma"}

var abilityCodes = []string{"STR", "DEX", "CON", "INT", "WIS", "CHA"}

// String returns the three-letter code, e.g. "DEX".
func (a Ability) String() string {
	if a < Strength || a > Charisma {
		return "DEX"
	}
	return abilityCodes[a]
}

// ParseAbility accepts a three-letter code or the full name, in any case.
func ParseAbility(s string) (Ability, bool) {
	s = strings.TrimSpace(s)
	for i, code := range abilityCodes {
		if strings.EqualFold(s, code) || strings.EqualFold(s, AbilityNames[i]) {
			return Ability(i), true
		}
	}
	return Dexterity, false
}

// MarshalText implements encoding.TextMarshaler.
func (a Ability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown abilities fall
// back to Dexterity, the most common saving throw.
func (a *Ability) UnmarshalText(text []byte) error {
	*a, _ = ParseAbility(string(text))
	return nil
}

// SaveBonuses holds a creature's saving throw bonuses indexed by Ability.
type SaveBonuses [6]int

// Get returns the bonus for an ability.
func (s SaveBonuses) Get(a Ability) int {
	if a < Strength || a > Charisma {
		return 0
	}
	return s[a]
}
