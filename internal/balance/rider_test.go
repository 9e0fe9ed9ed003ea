package balance

import (
	"testing"

	"github.com/lawnchairsociety/bossbalance/internal/stats"
)

func TestParseRiderKind(t *testing.T) {
	tests := map[string]RiderKind{
		"none":                                RiderNone,
		"ac_penalty":                          RiderACPenalty,
		"-2 AC next round":                    RiderACPenalty,
		"advantage":                           RiderAdvantage,
		"grant advantage on melee next round": RiderAdvantage,
		"bleed":                               RiderNone,
	}
	for in, want := range tests {
		if got := ParseRiderKind(in); got != want {
			t.Errorf("ParseRiderKind(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRiderApply(t *testing.T) {
	base := RollContext{AC: 15, Mode: stats.RollNormal}

	if got := RiderNone.Apply(base); got != base {
		t.Errorf("none changed context: %+v", got)
	}
	if got := RiderACPenalty.Apply(base); got.AC != 13 || got.Mode != stats.RollNormal {
		t.Errorf("ac penalty: got %+v", got)
	}
	if got := RiderACPenalty.Apply(RollContext{AC: 2}); got.AC != 1 {
		t.Errorf("AC should floor at 1, got %d", got.AC)
	}
	if got := RiderAdvantage.Apply(base); got.Mode != stats.RollAdvantage || got.AC != 15 {
		t.Errorf("advantage: got %+v", got)
	}
}

func TestRiderContext(t *testing.T) {
	r := RiderConfig{Kind: RiderACPenalty, Duration: 2}
	base := RollContext{AC: 15}
	if got := r.Context(base, 0); got.AC != 15 {
		t.Errorf("inactive rider changed AC to %d", got.AC)
	}
	if got := r.Context(base, 1); got.AC != 13 {
		t.Errorf("active rider AC = %d, want 13", got.AC)
	}
}

func TestRiderTriggersAndAdvance(t *testing.T) {
	melee := Attack{Melee: true}
	ranged := Attack{}

	r := RiderConfig{Kind: RiderAdvantage, Duration: 2, MeleeOnly: true}
	if !r.Triggers(melee) || r.Triggers(ranged) {
		t.Error("melee-only rider should trigger on melee hits only")
	}
	r.MeleeOnly = false
	if !r.Triggers(ranged) {
		t.Error("rider without melee filter should trigger on ranged hits")
	}
	if (RiderConfig{Kind: RiderNone}).Triggers(melee) {
		t.Error("no rider should never trigger")
	}

	if got := r.Advance(0, true); got != 2 {
		t.Errorf("Advance(struck) = %d, want 2", got)
	}
	if got := r.Advance(2, false); got != 1 {
		t.Errorf("Advance(2) = %d, want 1", got)
	}
	if got := r.Advance(0, false); got != 0 {
		t.Errorf("Advance(0) = %d, want 0", got)
	}
}
