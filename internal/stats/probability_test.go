package stats

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestParseRollMode(t *testing.T) {
	tests := map[string]RollMode{
		"normal":       RollNormal,
		"adv":          RollAdvantage,
		"Advantage":    RollAdvantage,
		" dis ":        RollDisadvantage,
		"disadvantage": RollDisadvantage,
		"":             RollNormal,
		"sideways":     RollNormal,
	}
	for in, want := range tests {
		if got := ParseRollMode(in); got != want {
			t.Errorf("ParseRollMode(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRollModeText(t *testing.T) {
	var m RollMode
	if err := m.UnmarshalText([]byte("adv")); err != nil {
		t.Fatal(err)
	}
	if m != RollAdvantage {
		t.Errorf("expected adv, got %v", m)
	}
	text, _ := RollDisadvantage.MarshalText()
	if string(text) != "dis" {
		t.Errorf("expected 'dis', got %q", text)
	}
}

func TestHitProbabilitiesNormal(t *testing.T) {
	p := HitProbabilities(15, 5, RollNormal)
	if math.Abs(p.Crit-0.05) > eps {
		t.Errorf("crit = %v, want 0.05", p.Crit)
	}
	if math.Abs(p.NonCrit-0.5) > eps {
		t.Errorf("non-crit = %v, want 0.5", p.NonCrit)
	}
	if math.Abs(p.Any()-0.55) > eps {
		t.Errorf("any = %v, want 0.55", p.Any())
	}
}

func TestHitProbabilitiesExtremes(t *testing.T) {
	// Unreachable AC: only natural 20s land
	p := HitProbabilities(40, 0, RollNormal)
	if p.NonCrit != 0 || math.Abs(p.Crit-0.05) > eps {
		t.Errorf("AC 40: got %+v", p)
	}

	// Trivial AC: everything but a natural 1 lands
	p = HitProbabilities(-5, 10, RollNormal)
	if math.Abs(p.Any()-0.95) > eps {
		t.Errorf("AC -5: any = %v, want 0.95", p.Any())
	}
}

func TestHitProbabilitiesAdvantage(t *testing.T) {
	adv := HitProbabilities(15, 5, RollAdvantage)
	// max of two d20 is 20 in 39 of 400 pairs
	if math.Abs(adv.Crit-39.0/400) > eps {
		t.Errorf("adv crit = %v, want %v", adv.Crit, 39.0/400)
	}

	dis := HitProbabilities(15, 5, RollDisadvantage)
	if math.Abs(dis.Crit-1.0/400) > eps {
		t.Errorf("dis crit = %v, want %v", dis.Crit, 1.0/400)
	}

	normal := HitProbabilities(15, 5, RollNormal)
	if !(adv.Any() > normal.Any() && normal.Any() > dis.Any()) {
		t.Errorf("expected adv > normal > dis, got %v %v %v", adv.Any(), normal.Any(), dis.Any())
	}
	for _, p := range []HitChances{adv, dis, normal} {
		if p.Any() < 0 || p.Any() > 1 {
			t.Errorf("probability out of range: %+v", p)
		}
	}
}

func TestSaveFailProbability(t *testing.T) {
	tests := []struct {
		dc, bonus int
		want      float64
	}{
		{15, 5, 0.45},
		{30, 0, 19.0 / 20},
		{5, 10, 1.0 / 20},
		{21, 0, 19.0 / 20}, // only a natural 20 saves
		{2, 0, 1.0 / 20},
	}

	for _, tt := range tests {
		if got := SaveFailProbability(tt.dc, tt.bonus); math.Abs(got-tt.want) > eps {
			t.Errorf("SaveFailProbability(%d, %d) = %v, want %v", tt.dc, tt.bonus, got, tt.want)
		}
	}
}

func TestRollSaveMatchesClosedForm(t *testing.T) {
	src := NewSource(11)
	const n = 40000
	fails := 0
	for i := 0; i < n; i++ {
		if !RollSave(src, 15, 5) {
			fails++
		}
	}
	if got := float64(fails) / n; math.Abs(got-0.45) > 0.015 {
		t.Errorf("rolled fail rate %v, want about 0.45", got)
	}
}

func TestRollAttackMatchesClosedForm(t *testing.T) {
	src := NewSource(12)
	const n = 40000
	var hits, crits int
	for i := 0; i < n; i++ {
		hit, crit := RollAttack(src, 15, 5, RollAdvantage)
		if hit {
			hits++
		}
		if crit {
			crits++
		}
	}
	want := HitProbabilities(15, 5, RollAdvantage)
	if got := float64(hits) / n; math.Abs(got-want.Any()) > 0.015 {
		t.Errorf("rolled hit rate %v, want about %v", got, want.Any())
	}
	if got := float64(crits) / n; math.Abs(got-want.Crit) > 0.01 {
		t.Errorf("rolled crit rate %v, want about %v", got, want.Crit)
	}
}

func TestExpectedAttackDamage(t *testing.T) {
	// 0.5 * 10 + 0.05 * 22
	got := ExpectedAttackDamage(15, 5, ParseDamage("2d6+3"), RollNormal)
	if math.Abs(got-6.1) > eps {
		t.Errorf("ExpectedAttackDamage = %v, want 6.1", got)
	}
}

func TestExpectedSaveDamage(t *testing.T) {
	// (0.5 + 0.5*0.45) * 28
	got := ExpectedSaveDamage(15, 5, ParseDamage("8d6"))
	if math.Abs(got-20.3) > eps {
		t.Errorf("ExpectedSaveDamage = %v, want 20.3", got)
	}
}
