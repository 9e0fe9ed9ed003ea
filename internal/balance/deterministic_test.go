package balance

import (
	"math"
	"testing"

	"github.com/lawnchairsociety/bossbalance/internal/stats"
)

func threatEncounter() Encounter {
	return Encounter{
		Config: Config{SpreadTargets: 1, ResistFactor: 1},
		Party: []PartyMember{
			{Name: "Target", AC: 15, HP: 66, Saves: stats.SaveBonuses{0, 5, 0, 0, 0, 0}},
		},
		Attacks: []Attack{
			{Name: "Slam", AttackBonus: 5, Damage: stats.ParseDamage("2d6+3"), UsesPerRound: 1, Melee: true, Enabled: true},
			{Name: "Blast", Kind: SavingThrow, DC: 15, SaveStat: stats.Dexterity, Damage: stats.ParseDamage("8d6"), UsesPerRound: 1, Enabled: true},
			{Name: "Disabled", AttackBonus: 5, Damage: stats.ParseDamage("10d10"), UsesPerRound: 3, Enabled: false},
		},
	}
}

func TestThreatTable(t *testing.T) {
	rows := ThreatTable(threatEncounter())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]

	// 6.1 from the slam, 20.3 from the blast
	if math.Abs(r.AttackDPR-26.4) > 1e-9 {
		t.Errorf("AttackDPR = %v, want 26.4", r.AttackDPR)
	}
	if math.Abs(r.NetDPR-26.4) > 1e-9 {
		t.Errorf("NetDPR = %v, want 26.4", r.NetDPR)
	}
	if math.Abs(r.RoundsExact-2.5) > 1e-9 || r.RoundsCeil != 3 {
		t.Errorf("rounds = %v / %v, want 2.5 / 3", r.RoundsExact, r.RoundsCeil)
	}
}

func TestThreatTableSpreadAndTempHP(t *testing.T) {
	enc := threatEncounter()
	enc.Config.SpreadTargets = 2
	enc.Config.TempHP = stats.ParseDamage("1d6+4")
	enc.Config.Lair = LairAction{Enabled: true, AvgDamage: 6, Targets: 2, EveryN: 2}

	r := ThreatTable(enc)[0]
	if math.Abs(r.AttackDPR-13.2) > 1e-9 {
		t.Errorf("AttackDPR = %v, want 13.2", r.AttackDPR)
	}
	// lair: 6 * min(1, 2/1) / 2 = 3
	if math.Abs(r.TotalDPR-16.2) > 1e-9 {
		t.Errorf("TotalDPR = %v, want 16.2", r.TotalDPR)
	}
	if math.Abs(r.NetDPR-8.7) > 1e-9 {
		t.Errorf("NetDPR = %v, want 8.7", r.NetDPR)
	}
}

func TestThreatTableNoDamage(t *testing.T) {
	enc := threatEncounter()
	enc.Attacks = nil
	r := ThreatTable(enc)[0]
	if !math.IsInf(r.RoundsExact, 1) || !math.IsInf(r.RoundsCeil, 1) {
		t.Errorf("expected infinite rounds, got %v / %v", r.RoundsExact, r.RoundsCeil)
	}
}

func TestBossTimeToDieManual(t *testing.T) {
	enc := testEncounter()
	ttd := BossTimeToDie(enc)
	if math.Abs(ttd.TotalDPR-50) > 1e-9 {
		t.Errorf("TotalDPR = %v, want 50", ttd.TotalDPR)
	}
	if math.Abs(ttd.RoundsExact-3) > 1e-9 || ttd.RoundsCeil != 3 {
		t.Errorf("rounds = %v / %v, want 3 / 3", ttd.RoundsExact, ttd.RoundsCeil)
	}

	enc.Config.ResistFactor = 2
	enc.Config.Regen = 5
	ttd = BossTimeToDie(enc)
	if math.Abs(ttd.IncomingDPR-20) > 1e-9 {
		t.Errorf("IncomingDPR = %v, want 20", ttd.IncomingDPR)
	}
	if math.Abs(ttd.RoundsExact-7.5) > 1e-9 || ttd.RoundsCeil != 8 {
		t.Errorf("rounds = %v / %v, want 7.5 / 8", ttd.RoundsExact, ttd.RoundsCeil)
	}

	enc.Config.Regen = 100
	if ttd = BossTimeToDie(enc); !math.IsInf(ttd.RoundsExact, 1) {
		t.Errorf("regen above damage should never kill, got %v", ttd.RoundsExact)
	}
}

func TestBossTimeToDieNova(t *testing.T) {
	enc := testEncounter()
	enc.Config.UseNova = true
	ttd := BossTimeToDie(enc)

	if len(ttd.Rows) != 1 {
		t.Fatalf("expected 1 nova row, got %d", len(ttd.Rows))
	}
	row := ttd.Rows[0]
	// AC 17, +8: faces 9..19 hit, 20 crits
	if math.Abs(row.PAny-0.6) > 1e-9 || math.Abs(row.PCrit-0.05) > 1e-9 {
		t.Errorf("P(any) %v, P(crit) %v", row.PAny, row.PCrit)
	}
	// (0.55 + 1.5*0.05) * 0.9
	if math.Abs(row.Factor-0.5625) > 1e-9 {
		t.Errorf("factor = %v, want 0.5625", row.Factor)
	}
	if math.Abs(row.DPR-14.0625) > 1e-9 {
		t.Errorf("effective DPR = %v, want 14.0625", row.DPR)
	}
}
