package stats

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// minCV keeps gamma draws finite when a zero or negative variation is configured.
const minCV = 1e-6

// Source is the randomness provider for every simulation draw.
// *rand.Rand satisfies it, and through Uint64 it also feeds the gonum
// distributions. A Source is owned by one goroutine at a time.
type Source interface {
	// Uint64 returns a uniformly distributed 64-bit value.
	Uint64() uint64
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
	// Float64 returns a random float in [0.0, 1.0).
	Float64() float64
}

// NewSource returns a seeded generator.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// D20 rolls a 20-sided die (1-20)
func D20(src Source) int {
	return src.Intn(20) + 1
}

// Roll rolls n dice with the specified number of sides and returns the total
func Roll(src Source, n, sides int) int {
	if sides <= 0 {
		return 0
	}
	total := 0
	for i := 0; i < n; i++ {
		total += src.Intn(sides) + 1
	}
	return total
}

// Binomial returns the number of successes in n independent trials that
// each succeed with probability p.
func Binomial(src Source, n int, p float64) int {
	if n <= 0 || !(p > 0) {
		return 0
	}
	if p >= 1 {
		return n
	}
	b := distuv.Binomial{N: float64(n), P: p, Src: src}
	return int(b.Rand())
}

// Gamma draws from a gamma distribution with the given mean and coefficient
// of variation (shape 1/cv², scale mean/shape). A non-positive mean yields 0.
func Gamma(src Source, mean, cv float64) float64 {
	if !(mean > 0) || math.IsInf(mean, 1) {
		return 0
	}
	if !(cv > minCV) {
		cv = minCV
	}
	shape := 1 / (cv * cv)
	g := distuv.Gamma{Alpha: shape, Beta: shape / mean, Src: src}
	return g.Rand()
}
