package report

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/lawnchairsociety/bossbalance/internal/balance"
	"github.com/lawnchairsociety/bossbalance/internal/stats"
	"github.com/lawnchairsociety/bossbalance/internal/tuner"
)

// steadyEncounter is a boss that only lands a flat 1 damage and a party
// dealing a fixed 10 DPR, so every trial ends in round 4 at 40 HP.
func steadyEncounter() balance.Encounter {
	return balance.Encounter{
		Config: balance.Config{
			SpreadTargets: 1,
			BossHP:        40,
			ResistFactor:  1,
			Trials:        200,
			MaxRounds:     10,
			DPRCV:         0,
		},
		Party: []balance.PartyMember{{Name: "Tank", AC: 10, HP: 500}},
		Attacks: []balance.Attack{{
			Name: "Poke", Kind: balance.AttackRoll, AttackBonus: 30,
			Damage: stats.ParseDamage("1"), UsesPerRound: 1, Melee: true, Enabled: true,
		}},
		DPR: []balance.DPREntry{{Member: "Tank", DPR: 10}},
	}
}

func TestFinite(t *testing.T) {
	if Finite(math.Inf(1)) != nil || Finite(math.NaN()) != nil {
		t.Error("expected nil for non-finite values")
	}
	if v := Finite(2.5); v == nil || *v != 2.5 {
		t.Errorf("expected 2.5, got %v", v)
	}
}

func TestSummarizeEncounter(t *testing.T) {
	m := &balance.Metrics{
		TTK:            []float64{2, 3, 4, 5, math.Inf(1)},
		Wiped:          []bool{false, false, false, false, true},
		TPKProb:        0.2,
		DownsAtVictory: []int{0, 1, 1, 2},
		Times:          []int{0, 1, 2},
		Survival:       []float64{1, 1, 0.8},
	}
	s := SummarizeEncounter(balance.Config{BossHP: 80, MaxRounds: 2}, m)

	if s.Trials != 5 || s.BossHP != 80 || s.MaxRounds != 2 {
		t.Errorf("unexpected header fields: %+v", s)
	}
	if s.MedianTTK == nil || *s.MedianTTK != 3.5 {
		t.Errorf("median = %v, want 3.5", s.MedianTTK)
	}
	// numpy-style linear interpolation over [2 3 4 5]
	if s.P10TTK == nil || math.Abs(*s.P10TTK-2.3) > 1e-9 {
		t.Errorf("p10 = %v, want 2.3", s.P10TTK)
	}
	if s.P90TTK == nil || math.Abs(*s.P90TTK-4.7) > 1e-9 {
		t.Errorf("p90 = %v, want 4.7", s.P90TTK)
	}
	if s.DefeatRate != 0.8 || s.TPKProb != 0.2 {
		t.Errorf("unexpected rates: defeat %v tpk %v", s.DefeatRate, s.TPKProb)
	}
	if s.MeanDowns != 1 || math.Abs(s.P90Downs-1.7) > 1e-9 {
		t.Errorf("downs mean %v p90 %v, want 1 and 1.7", s.MeanDowns, s.P90Downs)
	}
}

func TestSummarizeEncounterNeverFalls(t *testing.T) {
	m := &balance.Metrics{
		TTK:   []float64{math.Inf(1), math.Inf(1)},
		Wiped: []bool{true, false},
	}
	s := SummarizeEncounter(balance.Config{}, m)
	if s.MedianTTK != nil || s.P10TTK != nil || s.P90TTK != nil {
		t.Errorf("expected null TTK percentiles, got %+v", s)
	}
	if s.DefeatRate != 0 || s.MeanDowns != 0 {
		t.Errorf("expected zero defeat stats, got %+v", s)
	}
}

func TestSummarizeSingle(t *testing.T) {
	totals := make([]float64, 101)
	for i := range totals {
		totals[i] = float64(i)
	}
	s := SummarizeSingle("Rogue", 3, totals)
	if s.Member != "Rogue" || s.Rounds != 3 || s.Trials != 101 {
		t.Errorf("unexpected header fields: %+v", s)
	}
	if s.Mean != 50 || s.P95 != 95 || s.P99 != 99 {
		t.Errorf("mean %v p95 %v p99 %v, want 50 95 99", s.Mean, s.P95, s.P99)
	}

	empty := SummarizeSingle("Rogue", 3, nil)
	if empty.Mean != 0 || empty.P95 != 0 {
		t.Errorf("expected zero summary, got %+v", empty)
	}
}

func TestBuildThreat(t *testing.T) {
	enc := steadyEncounter()
	enc.Party = append(enc.Party, balance.PartyMember{Name: "Ghost", AC: 10, HP: 30})
	enc.Config.TempHP = stats.ParseDamage("5")

	th := BuildThreat(enc)
	if len(th.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(th.Rows))
	}
	// 1 damage per round minus 5 temp HP leaves nothing
	if th.Rows[1].NetDPR != 0 || th.Rows[1].RoundsExact != nil {
		t.Errorf("expected unkillable member with null rounds, got %+v", th.Rows[1])
	}
	if th.TTD.RoundsExact == nil || *th.TTD.RoundsExact != 4 {
		t.Errorf("TTD rounds = %v, want 4", th.TTD.RoundsExact)
	}
	if th.TTD.Nova || th.TTD.Rows[0].Factor != nil {
		t.Errorf("manual mode should not report hit factors: %+v", th.TTD)
	}
}

func TestBuildTimeToDieNova(t *testing.T) {
	enc := steadyEncounter()
	enc.Config.UseNova = true
	enc.Nova = []balance.NovaEntry{{Member: "Tank", NovaDPR: 20, AttackBonus: 5, TargetAC: 15, CritRatio: 1.5, Uptime: 1}}

	ttd := BuildTimeToDie(enc)
	if !ttd.Nova || len(ttd.Rows) != 1 {
		t.Fatalf("unexpected TTD: %+v", ttd)
	}
	row := ttd.Rows[0]
	if row.PAny == nil || math.Abs(*row.PAny-0.55) > 1e-9 {
		t.Errorf("p any = %v, want 0.55", row.PAny)
	}
	// (0.5 + 1.5*0.05) * 1
	if row.Factor == nil || math.Abs(*row.Factor-0.575) > 1e-9 {
		t.Errorf("factor = %v, want 0.575", row.Factor)
	}
}

func TestSummarizeTuning(t *testing.T) {
	enc := steadyEncounter()
	opts := tuner.Options{TargetMedian: 4, TPKCap: 0.05, QuickTrials: 200, Seed: 1}

	res, err := tuner.Tune(context.Background(), enc, opts)
	s, err := SummarizeTuning(enc, opts, res, err)
	if err != nil {
		t.Fatalf("SummarizeTuning failed: %v", err)
	}
	if !s.Feasible || !s.CapMet || s.Infeasible != nil {
		t.Errorf("expected feasible capped result, got %+v", s)
	}
	if s.Median == nil || *s.Median != 4 {
		t.Errorf("median = %v, want 4", s.Median)
	}
	if s.Encounter == nil || s.Encounter.BossHP != float64(s.HP) {
		t.Errorf("encounter summary should be at the tuned HP, got %+v", s.Encounter)
	}
	if len(s.Steps) == 0 || s.Steps[len(s.Steps)-1].Phase != tuner.PhaseFinal {
		t.Errorf("expected steps ending in the final phase, got %+v", s.Steps)
	}
}

func TestSummarizeTuningInfeasible(t *testing.T) {
	steps := []tuner.Step{
		{Phase: tuner.PhaseBracket, HP: 150, Trials: 50, Median: math.Inf(1)},
		{Phase: tuner.PhaseBracket, HP: 1, Trials: 50, Median: 1},
	}
	err := &tuner.InfeasibleError{Target: 0.5, LowHP: 1, LowMedian: 1, HighHP: 150, HighMedian: math.Inf(1), Steps: steps}
	s, got := SummarizeTuning(steadyEncounter(), tuner.Options{TargetMedian: 0.5}, nil, err)
	if got != nil {
		t.Fatalf("infeasible should not be an error, got %v", got)
	}
	if s.Feasible || s.Infeasible == nil || s.Infeasible.HighMedian != nil || *s.Infeasible.LowMedian != 1 {
		t.Errorf("unexpected infeasible summary: %+v", s)
	}
	if len(s.Steps) != 2 || s.Steps[1].HP != 1 {
		t.Errorf("steps not carried into the summary: %+v", s.Steps)
	}
}

func TestSummarizeTuningError(t *testing.T) {
	want := errors.New("boom")
	if _, err := SummarizeTuning(steadyEncounter(), tuner.Options{}, nil, want); !errors.Is(err, want) {
		t.Errorf("expected error passed through, got %v", err)
	}
}

func TestRecords(t *testing.T) {
	med := 4.0
	enc := EncounterRecord("x", 3, EncounterSummary{Trials: 10, BossHP: 50, MedianTTK: &med, DefeatRate: 1})
	if enc.Label != "x" || enc.Seed != 3 || enc.Trials != 10 || *enc.MedianTTK != 4 || enc.DefeatRate != 1 {
		t.Errorf("unexpected encounter record: %+v", enc)
	}

	tun := TuningRecord("y", 4, TuningSummary{Feasible: true, HP: 39, Median: &med, CapMet: true,
		Steps: []tuner.Step{{Phase: tuner.PhaseFinal, HP: 39}}})
	if !tun.Feasible || tun.HP != 39 || !tun.CapMet || len(tun.Steps) != 1 {
		t.Errorf("unexpected tuning record: %+v", tun)
	}
}
