package balance

import (
	"math"

	"github.com/lawnchairsociety/bossbalance/internal/stats"
)

// EffectiveDPR is one party member's sustained damage per round. The hit
// fields are only set for rows converted from a nova table.
type EffectiveDPR struct {
	Member string
	DPR    float64
	PAny   float64
	PCrit  float64
	Factor float64
}

// NovaFactor converts burst damage to sustained damage.
func NovaFactor(n NovaEntry) (stats.HitChances, float64) {
	p := stats.HitProbabilities(n.TargetAC, n.AttackBonus, n.RollMode)
	return p, (p.NonCrit + n.CritRatio*p.Crit) * n.Uptime
}

// EffectiveDPR returns the party's DPR rows from the manual table, or from
// the nova table when UseNova is set.
func (e Encounter) EffectiveDPR() []EffectiveDPR {
	if e.Config.UseNova {
		rows := make([]EffectiveDPR, 0, len(e.Nova))
		for _, n := range e.Nova {
			p, factor := NovaFactor(n)
			rows = append(rows, EffectiveDPR{
				Member: n.Member,
				DPR:    n.NovaDPR * factor,
				PAny:   p.Any(),
				PCrit:  p.Crit,
				Factor: factor,
			})
		}
		return rows
	}

	rows := make([]EffectiveDPR, 0, len(e.DPR))
	for _, d := range e.DPR {
		rows = append(rows, EffectiveDPR{Member: d.Member, DPR: d.DPR})
	}
	return rows
}

// ThreatRow is the closed-form boss threat against one party member.
type ThreatRow struct {
	Name        string
	AC          int
	HP          int
	AttackDPR   float64 // attacks only, after spreading
	TotalDPR    float64 // attacks plus lair and recharge
	NetDPR      float64 // after temporary HP
	RoundsExact float64 // +Inf when NetDPR is 0
	RoundsCeil  float64
}

// ThreatTable computes the expected damage each member takes per round and
// how many rounds it takes to drop them.
func ThreatTable(e Encounter) []ThreatRow {
	cfg := e.Config
	attacks := EnabledAttacks(e.Attacks)
	size := max(1, len(e.Party))
	additive := LairPerTargetDPR(cfg, size) + RechargePerTargetDPR(cfg, size)
	thp := cfg.tempHPAverage()
	spread := float64(cfg.spread())

	rows := make([]ThreatRow, 0, len(e.Party))
	for _, m := range e.Party {
		attackDPR := expectedDPR(m, attacks, cfg.RollMode) / spread
		total := attackDPR + additive
		net := max(0, total-thp)
		exact := roundsToZero(float64(m.HP), net)
		rows = append(rows, ThreatRow{
			Name:        m.Name,
			AC:          m.AC,
			HP:          m.HP,
			AttackDPR:   attackDPR,
			TotalDPR:    total,
			NetDPR:      net,
			RoundsExact: exact,
			RoundsCeil:  math.Ceil(exact),
		})
	}
	return rows
}

// TimeToDie is the closed-form time for the party to drop the boss.
type TimeToDie struct {
	Rows        []EffectiveDPR
	TotalDPR    float64
	IncomingDPR float64 // after resistance and regeneration
	RoundsExact float64
	RoundsCeil  float64
}

// BossTimeToDie sums the party's effective DPR and divides the boss HP by it.
func BossTimeToDie(e Encounter) TimeToDie {
	rows := e.EffectiveDPR()
	total := 0.0
	for _, r := range rows {
		total += r.DPR
	}
	incoming := max(0, total/e.Config.resist()-e.Config.Regen)
	exact := roundsToZero(e.Config.BossHP, incoming)
	return TimeToDie{
		Rows:        rows,
		TotalDPR:    total,
		IncomingDPR: incoming,
		RoundsExact: exact,
		RoundsCeil:  math.Ceil(exact),
	}
}

func roundsToZero(hp, dpr float64) float64 {
	if !(dpr > 0) {
		return math.Inf(1)
	}
	return hp / dpr
}
