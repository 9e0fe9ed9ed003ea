package balance

import (
	"github.com/lawnchairsociety/bossbalance/internal/stats"
)

// testEncounter builds a four-member party against a bite/claw/breath boss.
func testEncounter() Encounter {
	return Encounter{
		Config: Config{
			RollMode:      stats.RollNormal,
			SpreadTargets: 1,
			TempHP:        stats.ParseDamage("1d6+4"),
			Lair:          LairAction{AvgDamage: 6, Targets: 2, EveryN: 2},
			Recharge:      RechargeAction{Recharge: "5-6", AvgDamage: 22, Targets: 1},
			Rider:         RiderConfig{Kind: RiderNone, Duration: 1, MeleeOnly: true},
			BossHP:        150,
			ResistFactor:  1,
			SingleRounds:  3,
			SingleTrials:  2000,
			Trials:        2000,
			MaxRounds:     12,
			DPRCV:         0.6,
			Initiative:    InitiativeRandom,
		},
		Party: []PartyMember{
			{Name: "Fighter", AC: 18, HP: 40, Saves: stats.SaveBonuses{4, 2, 3, 0, 1, 0}},
			{Name: "Rogue", AC: 16, HP: 35, Saves: stats.SaveBonuses{0, 5, 2, 1, 2, 1}},
			{Name: "Cleric", AC: 19, HP: 38, Saves: stats.SaveBonuses{3, 0, 3, 1, 4, 2}},
			{Name: "Wizard", AC: 13, HP: 30, Saves: stats.SaveBonuses{0, 3, 2, 5, 2, 1}},
		},
		Attacks: []Attack{
			{Name: "Bite", AttackBonus: 7, SaveStat: stats.Dexterity, Damage: stats.ParseDamage("2d10+5"), UsesPerRound: 1, Melee: true, Enabled: true},
			{Name: "Claw", AttackBonus: 7, SaveStat: stats.Dexterity, Damage: stats.ParseDamage("2d6+5"), UsesPerRound: 2, Melee: true, Enabled: true},
			{Name: "Fire Breath", Kind: SavingThrow, DC: 15, SaveStat: stats.Dexterity, Damage: stats.ParseDamage("8d6"), UsesPerRound: 1, Enabled: true},
		},
		DPR: []DPREntry{
			{Member: "Fighter", DPR: 15},
			{Member: "Rogue", DPR: 14},
			{Member: "Cleric", DPR: 9},
			{Member: "Wizard", DPR: 12},
		},
		Nova: []NovaEntry{
			{Member: "Fighter", NovaDPR: 25, AttackBonus: 8, TargetAC: 17, CritRatio: 1.5, Uptime: 0.9},
		},
	}
}
