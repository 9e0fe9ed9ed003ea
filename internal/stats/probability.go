package stats

import "strings"

// RollMode selects how the d20 of an attack roll is read.
type RollMode int

const (
	RollNormal RollMode = iota
	RollAdvantage
	RollDisadvantage
)

// ParseRollMode maps "adv"/"advantage" and "dis"/"disadvantage" to their
// modes; anything else is a normal roll.
func ParseRollMode(s string) RollMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "adv", "advantage":
		return RollAdvantage
	case "dis", "disadvantage":
		return RollDisadvantage
	default:
		return RollNormal
	}
}

func (m RollMode) String() string {
	switch m {
	case RollAdvantage:
		return "adv"
	case RollDisadvantage:
		return "dis"
	default:
		return "normal"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m RollMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown text decodes
// as a normal roll.
func (m *RollMode) UnmarshalText(text []byte) error {
	*m = ParseRollMode(string(text))
	return nil
}

// Pick returns the face that counts when two d20s were rolled.
func (m RollMode) Pick(a, b int) int {
	switch m {
	case RollAdvantage:
		return max(a, b)
	case RollDisadvantage:
		return min(a, b)
	default:
		return a
	}
}

// RollD20 rolls the d20 for this mode and returns the face that counts.
func (m RollMode) RollD20(src Source) int {
	a := D20(src)
	if m == RollNormal {
		return a
	}
	return m.Pick(a, D20(src))
}

// HitChances holds the probabilities of the two ways an attack roll can hit.
type HitChances struct {
	NonCrit float64
	Crit    float64
}

// Any returns the probability of any hit.
func (h HitChances) Any() float64 {
	return h.NonCrit + h.Crit
}

// ClassifyAttack resolves a single d20 face against armor class.
// A natural 1 always misses; a natural 20 always hits and is a critical.
func ClassifyAttack(face, ac, attackBonus int) (hit, crit bool) {
	switch face {
	case 1:
		return false, false
	case 20:
		return true, true
	default:
		return face+attackBonus >= ac, false
	}
}

// HitProbabilities enumerates the d20 (or both d20s under advantage or
// disadvantage) and classifies the face that counts.
func HitProbabilities(ac, attackBonus int, mode RollMode) HitChances {
	var nonCrit, crit, outcomes int
	count := func(face int) {
		outcomes++
		hit, isCrit := ClassifyAttack(face, ac, attackBonus)
		switch {
		case isCrit:
			crit++
		case hit:
			nonCrit++
		}
	}

	if mode == RollNormal {
		for face := 1; face <= 20; face++ {
			count(face)
		}
	} else {
		for a := 1; a <= 20; a++ {
			for b := 1; b <= 20; b++ {
				count(mode.Pick(a, b))
			}
		}
	}

	return HitChances{
		NonCrit: float64(nonCrit) / float64(outcomes),
		Crit:    float64(crit) / float64(outcomes),
	}
}

// RollAttack rolls one attack and classifies it.
func RollAttack(src Source, ac, attackBonus int, mode RollMode) (hit, crit bool) {
	return ClassifyAttack(mode.RollD20(src), ac, attackBonus)
}

// SaveFailProbability returns the chance a target fails a saving throw.
// A natural 1 always fails and a natural 20 always succeeds.
func SaveFailProbability(dc, saveBonus int) float64 {
	target := dc - saveBonus
	switch {
	case target <= 1:
		return 1.0 / 20
	case target > 20:
		return 19.0 / 20
	default:
		return float64(target-1) / 20
	}
}

// RollSave rolls one saving throw and reports whether it succeeded, using
// the same natural 1/20 rule as SaveFailProbability.
func RollSave(src Source, dc, saveBonus int) bool {
	face := D20(src)
	switch face {
	case 1:
		return false
	case 20:
		return true
	default:
		return face+saveBonus >= dc
	}
}

// ExpectedAttackDamage is the expected damage of one attack roll.
func ExpectedAttackDamage(ac, attackBonus int, dmg DamageExpression, mode RollMode) float64 {
	p := HitProbabilities(ac, attackBonus, mode)
	return p.NonCrit*dmg.Average() + p.Crit*dmg.AverageCrit()
}

// ExpectedSaveDamage is the expected damage of a save-for-half effect.
func ExpectedSaveDamage(dc, saveBonus int, dmg DamageExpression) float64 {
	return (0.5 + 0.5*SaveFailProbability(dc, saveBonus)) * dmg.Average()
}
