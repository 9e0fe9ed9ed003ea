package stats

import (
	"math"
	"testing"
)

func TestNewSourceDeterministic(t *testing.T) {
	a, b := NewSource(42), NewSource(42)
	for i := 0; i < 50; i++ {
		if x, y := a.Intn(1000), b.Intn(1000); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestBinomial(t *testing.T) {
	src := NewSource(8)

	if got := Binomial(src, 0, 0.5); got != 0 {
		t.Errorf("Binomial(0, 0.5) = %d, expected 0", got)
	}
	if got := Binomial(src, 10, 0); got != 0 {
		t.Errorf("Binomial(10, 0) = %d, expected 0", got)
	}
	if got := Binomial(src, 10, 1); got != 10 {
		t.Errorf("Binomial(10, 1) = %d, expected 10", got)
	}
	if got := Binomial(src, 10, math.NaN()); got != 0 {
		t.Errorf("Binomial(10, NaN) = %d, expected 0", got)
	}

	const trials = 20000
	total := 0
	for i := 0; i < trials; i++ {
		k := Binomial(src, 4, 0.25)
		if k < 0 || k > 4 {
			t.Fatalf("Binomial(4, 0.25) = %d, out of range", k)
		}
		total += k
	}
	if mean := float64(total) / trials; math.Abs(mean-1.0) > 0.03 {
		t.Errorf("Binomial(4, 0.25) mean = %v, want about 1.0", mean)
	}
}

func TestGammaMoments(t *testing.T) {
	src := NewSource(9)
	const n = 50000
	const mean, cv = 10.0, 0.6

	var sum, sumSq float64
	for i := 0; i < n; i++ {
		x := Gamma(src, mean, cv)
		if x < 0 {
			t.Fatalf("Gamma returned negative draw %v", x)
		}
		sum += x
		sumSq += x * x
	}
	m := sum / n
	sd := math.Sqrt(sumSq/n - m*m)

	if math.Abs(m-mean) > 0.15 {
		t.Errorf("sample mean = %v, want about %v", m, mean)
	}
	if got := sd / m; math.Abs(got-cv) > 0.03 {
		t.Errorf("sample cv = %v, want about %v", got, cv)
	}
}

func TestGammaSmallShape(t *testing.T) {
	// cv > 1 gives shape < 1 and exercises the boost path
	src := NewSource(10)
	const n = 50000
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += Gamma(src, 5, 1.5)
	}
	if m := sum / n; math.Abs(m-5) > 0.2 {
		t.Errorf("sample mean = %v, want about 5", m)
	}
}

func TestGammaDegenerate(t *testing.T) {
	src := NewSource(11)

	for _, mean := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		if got := Gamma(src, mean, 0.3); got != 0 {
			t.Errorf("Gamma(%v) = %v, expected 0", mean, got)
		}
	}

	// Zero variation collapses to the mean
	for _, cv := range []float64{0, -1} {
		if got := Gamma(src, 12, cv); math.Abs(got-12) > 1e-3 {
			t.Errorf("Gamma(12, cv=%v) = %v, expected about 12", cv, got)
		}
	}
}

func TestGammaRepeatsForSeed(t *testing.T) {
	a, b := NewSource(77), NewSource(77)
	for i := 0; i < 100; i++ {
		x, y := Gamma(a, 8, 0.4), Gamma(b, 8, 0.4)
		if x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
	for i := 0; i < 100; i++ {
		if x, y := Binomial(a, 6, 0.3), Binomial(b, 6, 0.3); x != y {
			t.Fatalf("binomial draw %d differs: %d vs %d", i, x, y)
		}
	}
}
