package balance

import (
	"math"
	"testing"

	"github.com/lawnchairsociety/bossbalance/internal/stats"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func TestRunSingleTargetShape(t *testing.T) {
	enc := testEncounter()
	totals := RunSingleTarget(enc.Party[1], enc.Attacks, enc.Config, stats.NewSource(1))

	if len(totals) != enc.Config.SingleTrials {
		t.Fatalf("got %d totals, want %d", len(totals), enc.Config.SingleTrials)
	}
	for i, v := range totals {
		if v < 0 || math.IsNaN(v) {
			t.Fatalf("totals[%d] = %v, expected >= 0", i, v)
		}
	}
}

func TestRunSingleTargetZeroTrials(t *testing.T) {
	enc := testEncounter()
	enc.Config.SingleTrials = 0
	if got := RunSingleTarget(enc.Party[0], enc.Attacks, enc.Config, stats.NewSource(1)); len(got) != 0 {
		t.Errorf("expected no totals, got %d", len(got))
	}
}

func TestRunSingleTargetMatchesClosedForm(t *testing.T) {
	enc := testEncounter()
	cfg := enc.Config
	cfg.TempHP = stats.DamageExpression{}
	cfg.SingleRounds = 1
	cfg.SingleTrials = 20000

	for _, m := range enc.Party {
		want := expectedDPR(m, enc.Attacks, cfg.RollMode)
		got := mean(RunSingleTarget(m, enc.Attacks, cfg, stats.NewSource(2)))
		if math.Abs(got-want) > 0.03*want {
			t.Errorf("%s: simulated mean %v, closed form %v", m.Name, got, want)
		}
	}
}

func TestRunSingleTargetMoreRoundsMoreDamage(t *testing.T) {
	enc := testEncounter()
	cfg := enc.Config
	cfg.SingleTrials = 5000

	prev := 0.0
	for rounds := 1; rounds <= 4; rounds++ {
		cfg.SingleRounds = rounds
		got := mean(RunSingleTarget(enc.Party[3], enc.Attacks, cfg, stats.NewSource(3)))
		if got < prev {
			t.Errorf("mean dropped from %v to %v at %d rounds", prev, got, rounds)
		}
		prev = got
	}
}

func TestRunSingleTargetSpread(t *testing.T) {
	enc := testEncounter()
	cfg := enc.Config
	cfg.TempHP = stats.DamageExpression{}
	cfg.SingleRounds = 1
	cfg.SingleTrials = 20000

	whole := mean(RunSingleTarget(enc.Party[0], enc.Attacks, cfg, stats.NewSource(4)))
	cfg.SpreadTargets = 2
	half := mean(RunSingleTarget(enc.Party[0], enc.Attacks, cfg, stats.NewSource(4)))

	if math.Abs(half-whole/2) > 0.05*whole {
		t.Errorf("spread over 2 targets: mean %v, want about %v", half, whole/2)
	}
}

func TestRunSingleTargetIgnoresDisabledAttacks(t *testing.T) {
	enc := testEncounter()
	for i := range enc.Attacks {
		enc.Attacks[i].Enabled = false
	}
	for _, v := range RunSingleTarget(enc.Party[0], enc.Attacks, enc.Config, stats.NewSource(5)) {
		if v != 0 {
			t.Fatalf("disabled attacks dealt %v damage", v)
		}
	}
}

func TestRunSingleTargetACPenaltyRider(t *testing.T) {
	enc := testEncounter()
	cfg := enc.Config
	cfg.TempHP = stats.DamageExpression{}
	cfg.SingleRounds = 4
	cfg.SingleTrials = 20000
	attacks := enc.Attacks[:2]

	plain := mean(RunSingleTarget(enc.Party[2], attacks, cfg, stats.NewSource(6)))
	cfg.Rider = RiderConfig{Kind: RiderACPenalty, Duration: 1, MeleeOnly: true}
	ridden := mean(RunSingleTarget(enc.Party[2], attacks, cfg, stats.NewSource(6)))

	if ridden <= plain {
		t.Errorf("AC penalty rider should raise damage: plain %v, with rider %v", plain, ridden)
	}
}

func TestRunSingleTargetAdvantageRider(t *testing.T) {
	member := PartyMember{Name: "Wall", AC: 20, HP: 100}
	attacks := []Attack{{
		Name: "Slam", Kind: AttackRoll, Damage: stats.ParseDamage("10"),
		UsesPerRound: 1, Melee: true, Enabled: true,
	}}
	cfg := Config{SpreadTargets: 1, SingleRounds: 20, SingleTrials: 5000}

	plain := mean(RunSingleTarget(member, attacks, cfg, stats.NewSource(9)))
	cfg.Rider = RiderConfig{Kind: RiderAdvantage, Duration: 20}
	ridden := mean(RunSingleTarget(member, attacks, cfg, stats.NewSource(9)))

	if ridden <= plain {
		t.Errorf("advantage rider should raise damage: plain %v, with rider %v", plain, ridden)
	}
}
