package balance

import "github.com/lawnchairsociety/bossbalance/internal/stats"

// RunSingleTarget simulates cfg.SingleTrials independent fights of the boss
// against one member for cfg.SingleRounds rounds and returns the total damage
// each trial dealt. Each use of an attack lands on this member with
// probability 1/SpreadTargets. The member never drops, so totals measure raw
// incoming damage.
func RunSingleTarget(member PartyMember, attacks []Attack, cfg Config, src stats.Source) []float64 {
	trials := max(0, cfg.SingleTrials)
	totals := make([]float64, trials)

	attacks = EnabledAttacks(attacks)
	pLand := 1 / float64(cfg.spread())
	thp := cfg.tempHPAverage()
	base := RollContext{AC: member.AC, Mode: cfg.RollMode}

	for t := range totals {
		rider := 0
		for r := 0; r < cfg.SingleRounds; r++ {
			ctx := cfg.Rider.Context(base, rider)
			roundDamage := 0.0
			struck := false

			for _, a := range attacks {
				if a.UsesPerRound <= 0 {
					continue
				}
				landed := stats.Binomial(src, a.UsesPerRound, pLand)
				for i := 0; i < landed; i++ {
					dmg, hit := resolveUse(src, a, ctx, member.Saves)
					roundDamage += dmg
					if hit && cfg.Rider.Triggers(a) {
						struck = true
					}
				}
			}

			totals[t] += max(0, roundDamage-thp)
			rider = cfg.Rider.Advance(rider, struck)
		}
	}
	return totals
}
