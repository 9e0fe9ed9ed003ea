package balance

import (
	"strconv"
	"strings"
)

// RechargeProbability converts recharge text to a per-round chance.
// "k" means a d6 roll of k or higher, "lo-hi" is an inclusive face range.
// Anything unparseable never recharges.
func RechargeProbability(text string) float64 {
	t := strings.TrimSpace(text)
	t = strings.NewReplacer("–", "-", "—", "-").Replace(t)
	if t == "" {
		return 0
	}

	if loText, hiText, ok := strings.Cut(t, "-"); ok {
		lo, err := strconv.Atoi(strings.TrimSpace(loText))
		if err != nil {
			return 0
		}
		hi, err := strconv.Atoi(strings.TrimSpace(hiText))
		if err != nil {
			return 0
		}
		lo, hi = min(lo, hi), max(lo, hi)
		lo = clampInt(lo, 1, 6)
		hi = clampInt(hi, 1, 6)
		return float64(hi-lo+1) / 6
	}

	k, err := strconv.Atoi(t)
	if err != nil {
		return 0
	}
	k = clampInt(k, 2, 6)
	return float64(7-k) / 6
}

// LairPerTargetDPR amortizes lair damage over the cadence and the party.
func LairPerTargetDPR(cfg Config, partySize int) float64 {
	if !cfg.Lair.Enabled || partySize <= 0 {
		return 0
	}
	pHit := min(1, float64(cfg.Lair.Targets)/float64(partySize))
	cadence := max(1, cfg.Lair.EveryN)
	return cfg.Lair.AvgDamage * pHit / float64(cadence)
}

// RechargePerTargetDPR is the expected recharge damage per member per round.
func RechargePerTargetDPR(cfg Config, partySize int) float64 {
	if !cfg.Recharge.Enabled || partySize <= 0 {
		return 0
	}
	pHit := min(1, float64(cfg.Recharge.Targets)/float64(partySize))
	return RechargeProbability(cfg.Recharge.Recharge) * cfg.Recharge.AvgDamage * pHit
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
