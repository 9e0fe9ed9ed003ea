package balance

import "github.com/lawnchairsociety/bossbalance/internal/stats"

// resolveUse rolls one use of an attack against a target. hit is true only
// for attack rolls that landed; save effects never start a rider.
func resolveUse(src stats.Source, a Attack, ctx RollContext, saves stats.SaveBonuses) (damage float64, hit bool) {
	if a.Kind == SavingThrow {
		damage = a.Damage.Sample(src)
		if stats.RollSave(src, a.DC, saves.Get(a.SaveStat)) {
			damage *= 0.5
		}
		return damage, false
	}

	hit, crit := stats.RollAttack(src, ctx.AC, a.AttackBonus, ctx.Mode)
	switch {
	case crit:
		return a.Damage.SampleCrit(src), true
	case hit:
		return a.Damage.Sample(src), true
	default:
		return 0, false
	}
}

// expectedDPR is the closed-form damage per round of the attacks against one
// member, before spreading across targets.
func expectedDPR(m PartyMember, attacks []Attack, mode stats.RollMode) float64 {
	total := 0.0
	for _, a := range attacks {
		if a.UsesPerRound <= 0 {
			continue
		}
		var dpr float64
		if a.Kind == SavingThrow {
			dpr = stats.ExpectedSaveDamage(a.DC, m.Saves.Get(a.SaveStat), a.Damage)
		} else {
			dpr = stats.ExpectedAttackDamage(m.AC, a.AttackBonus, a.Damage, mode)
		}
		total += dpr * float64(a.UsesPerRound)
	}
	return total
}
