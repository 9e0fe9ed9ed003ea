package stats

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DiceTerm is one "NdS" group of a damage expression. A negative Count
// subtracts the group's roll from the total.
type DiceTerm struct {
	Count int
	Sides int
}

// DamageExpression is a parsed damage string such as "2d6+3" or "-1d4+2d8-1".
// Values are immutable once parsed; every evaluation clamps its result at 0.
type DamageExpression struct {
	Sign     int // +1 or -1, from a leading sign on the whole expression
	Dice     []DiceTerm
	Modifier int
}

// diceTermRegex matches dice groups like "2d6", "-1d4", "+d8"
var diceTermRegex = regexp.MustCompile(`([+-]?\d*)d(\d+)`)

// flatTermRegex matches the signed integers left after dice groups are removed
var flatTermRegex = regexp.MustCompile(`[+-]?\d+`)

// ParseDamage parses a damage string. It never fails: garbled numbers count
// as 0, terms with no sides are dropped and an empty string yields an
// expression that always evaluates to 0.
func ParseDamage(text string) DamageExpression {
	s := strings.ToLower(strings.Join(strings.Fields(text), ""))
	expr := DamageExpression{Sign: 1}
	if s == "" {
		return expr
	}

	switch s[0] {
	case '-':
		expr.Sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}

	for _, m := range diceTermRegex.FindAllStringSubmatch(s, -1) {
		count := 1
		switch m[1] {
		case "", "+":
		case "-":
			count = -1
		default:
			count = atoiOr(m[1], 1)
		}
		sides := atoiOr(m[2], 0)
		if sides <= 0 {
			continue
		}
		expr.Dice = append(expr.Dice, DiceTerm{Count: count, Sides: sides})
	}

	rest := diceTermRegex.ReplaceAllString(s, "")
	for _, tok := range flatTermRegex.FindAllString(rest, -1) {
		expr.Modifier += atoiOr(tok, 0)
	}

	return expr
}

// Average returns the expected value of a normal (non-critical) roll.
func (e DamageExpression) Average() float64 {
	total := float64(e.Modifier)
	for _, d := range e.Dice {
		total += float64(d.Count) * float64(d.Sides+1) / 2
	}
	return clampDamage(float64(e.sign()) * total)
}

// AverageCrit returns the expected value of a crunchy critical hit: every
// die group counts once at its maximum plus once rolled, modifier once.
func (e DamageExpression) AverageCrit() float64 {
	total := float64(e.Modifier)
	for _, d := range e.Dice {
		total += float64(d.Count) * (float64(d.Sides) + float64(d.Sides+1)/2)
	}
	return clampDamage(float64(e.sign()) * total)
}

// DiceCount returns how many dice one normal roll of the expression throws.
func (e DamageExpression) DiceCount() int {
	n := 0
	for _, d := range e.Dice {
		n += absInt(d.Count)
	}
	return n
}

// Sample rolls the expression once.
func (e DamageExpression) Sample(src Source) float64 {
	total := e.Modifier
	for _, d := range e.Dice {
		if d.Count == 0 {
			continue
		}
		rolled := Roll(src, absInt(d.Count), d.Sides)
		if d.Count < 0 {
			rolled = -rolled
		}
		total += rolled
	}
	return clampDamage(float64(e.sign() * total))
}

// SampleN rolls the expression n independent times.
func (e DamageExpression) SampleN(src Source, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = e.Sample(src)
	}
	return out
}

// SampleCrit rolls a crunchy critical hit once.
func (e DamageExpression) SampleCrit(src Source) float64 {
	total := e.Modifier
	for _, d := range e.Dice {
		if d.Count == 0 {
			continue
		}
		n := absInt(d.Count)
		part := n*d.Sides + Roll(src, n, d.Sides)
		if d.Count < 0 {
			part = -part
		}
		total += part
	}
	return clampDamage(float64(e.sign() * total))
}

func (e DamageExpression) sign() int {
	if e.Sign < 0 {
		return -1
	}
	return 1
}

func clampDamage(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
