// Package report turns simulation output into summaries for the CLI, the
// HTTP API, the run history and spreadsheet export.
package report

import (
	"errors"
	"math"

	"github.com/lawnchairsociety/bossbalance/internal/balance"
	"github.com/lawnchairsociety/bossbalance/internal/stats"
	"github.com/lawnchairsociety/bossbalance/internal/tuner"
)

// Finite returns nil for an infinite or NaN value so it encodes as JSON null.
func Finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// EncounterSummary is the caller-side view of an encounter run.
type EncounterSummary struct {
	Trials     int       `json:"trials"`
	MaxRounds  int       `json:"max_rounds"`
	BossHP     float64   `json:"boss_hp"`
	MedianTTK  *float64  `json:"median_ttk"`
	P10TTK     *float64  `json:"p10_ttk"`
	P90TTK     *float64  `json:"p90_ttk"`
	TPKProb    float64   `json:"tpk_prob"`
	DefeatRate float64   `json:"defeat_rate"`
	MeanDowns  float64   `json:"mean_downs"`
	P90Downs   float64   `json:"p90_downs"`
	Times      []int     `json:"times"`
	Survival   []float64 `json:"survival"`
}

// SummarizeEncounter computes the TTK percentiles over the trials the boss
// fell in and the downed-member statistics at victory.
func SummarizeEncounter(cfg balance.Config, m *balance.Metrics) EncounterSummary {
	s := EncounterSummary{
		Trials:     len(m.TTK),
		MaxRounds:  cfg.MaxRounds,
		BossHP:     cfg.BossHP,
		TPKProb:    m.TPKProb,
		DefeatRate: m.DefeatRate(),
		Times:      m.Times,
		Survival:   m.Survival,
	}

	if finite := m.FiniteTTK(); len(finite) > 0 {
		pct := stats.Percentiles(finite, 10, 50, 90)
		s.P10TTK, s.MedianTTK, s.P90TTK = Finite(pct[0]), Finite(pct[1]), Finite(pct[2])
	}

	if len(m.DownsAtVictory) > 0 {
		downs := make([]float64, len(m.DownsAtVictory))
		for i, d := range m.DownsAtVictory {
			downs[i] = float64(d)
		}
		s.MeanDowns = stats.Mean(downs)
		s.P90Downs = stats.Percentile(downs, 90)
	}
	return s
}

// SingleSummary describes the single-target damage totals of one member.
type SingleSummary struct {
	Member string  `json:"member"`
	Rounds int     `json:"rounds"`
	Trials int     `json:"trials"`
	Mean   float64 `json:"mean"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}

// SummarizeSingle reports the mean and upper percentiles of the totals.
func SummarizeSingle(member string, rounds int, totals []float64) SingleSummary {
	s := SingleSummary{Member: member, Rounds: rounds, Trials: len(totals)}
	if len(totals) == 0 {
		return s
	}
	s.Mean = stats.Mean(totals)
	pct := stats.Percentiles(totals, 95, 99)
	s.P95, s.P99 = pct[0], pct[1]
	return s
}

// ThreatRow is a balance.ThreatRow with infinite rounds encoded as null.
type ThreatRow struct {
	Name        string   `json:"name"`
	AC          int      `json:"ac"`
	HP          int      `json:"hp"`
	AttackDPR   float64  `json:"attack_dpr"`
	TotalDPR    float64  `json:"total_dpr"`
	NetDPR      float64  `json:"net_dpr"`
	RoundsExact *float64 `json:"rounds_exact"`
	RoundsCeil  *float64 `json:"rounds_ceil"`
}

// DPRRow is one effective party DPR row.
type DPRRow struct {
	Member string   `json:"member"`
	DPR    float64  `json:"dpr"`
	PAny   *float64 `json:"p_any,omitempty"`
	PCrit  *float64 `json:"p_crit,omitempty"`
	Factor *float64 `json:"factor,omitempty"`
}

// TimeToDie is the closed-form boss time-to-die.
type TimeToDie struct {
	Rows        []DPRRow `json:"rows"`
	Nova        bool     `json:"nova"`
	TotalDPR    float64  `json:"total_dpr"`
	IncomingDPR float64  `json:"incoming_dpr"`
	RoundsExact *float64 `json:"rounds_exact"`
	RoundsCeil  *float64 `json:"rounds_ceil"`
}

// Threat bundles the deterministic tables of an encounter.
type Threat struct {
	Rows []ThreatRow `json:"rows"`
	TTD  TimeToDie   `json:"ttd"`
}

// BuildThreat computes the threat table and boss time-to-die.
func BuildThreat(e balance.Encounter) Threat {
	var t Threat
	for _, r := range balance.ThreatTable(e) {
		t.Rows = append(t.Rows, ThreatRow{
			Name:        r.Name,
			AC:          r.AC,
			HP:          r.HP,
			AttackDPR:   r.AttackDPR,
			TotalDPR:    r.TotalDPR,
			NetDPR:      r.NetDPR,
			RoundsExact: Finite(r.RoundsExact),
			RoundsCeil:  Finite(r.RoundsCeil),
		})
	}
	t.TTD = BuildTimeToDie(e)
	return t
}

// BuildTimeToDie converts balance.BossTimeToDie for output.
func BuildTimeToDie(e balance.Encounter) TimeToDie {
	ttd := balance.BossTimeToDie(e)
	out := TimeToDie{
		Nova:        e.Config.UseNova,
		TotalDPR:    ttd.TotalDPR,
		IncomingDPR: ttd.IncomingDPR,
		RoundsExact: Finite(ttd.RoundsExact),
		RoundsCeil:  Finite(ttd.RoundsCeil),
	}
	for _, r := range ttd.Rows {
		row := DPRRow{Member: r.Member, DPR: r.DPR}
		if e.Config.UseNova {
			row.PAny, row.PCrit, row.Factor = Finite(r.PAny), Finite(r.PCrit), Finite(r.Factor)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Infeasible describes a tuning search that could not bracket its target.
type Infeasible struct {
	Target     float64  `json:"target"`
	LowHP      int      `json:"low_hp"`
	LowMedian  *float64 `json:"low_median"`
	HighHP     int      `json:"high_hp"`
	HighMedian *float64 `json:"high_median"`
}

// TuningSummary is the outcome of a tuning run.
type TuningSummary struct {
	Feasible     bool              `json:"feasible"`
	TargetMedian float64           `json:"target_median"`
	TPKCap       float64           `json:"tpk_cap"`
	HP           int               `json:"hp,omitempty"`
	Median       *float64          `json:"median"`
	TPKProb      float64           `json:"tpk_prob"`
	CapMet       bool              `json:"cap_met"`
	Encounter    *EncounterSummary `json:"encounter,omitempty"`
	Infeasible   *Infeasible       `json:"infeasible,omitempty"`
	Steps        []tuner.Step      `json:"steps"`
}

// SummarizeTuning builds a summary from the result of tuner.Tune. An
// infeasible search is a summary with Feasible false; any other error is
// returned unchanged.
func SummarizeTuning(enc balance.Encounter, opts tuner.Options, res *tuner.Result, err error) (TuningSummary, error) {
	s := TuningSummary{TargetMedian: opts.TargetMedian, TPKCap: opts.TPKCap}

	var inf *tuner.InfeasibleError
	if errors.As(err, &inf) {
		s.Infeasible = &Infeasible{
			Target:     inf.Target,
			LowHP:      inf.LowHP,
			LowMedian:  Finite(inf.LowMedian),
			HighHP:     inf.HighHP,
			HighMedian: Finite(inf.HighMedian),
		}
		s.Steps = inf.Steps
		return s, nil
	}
	if err != nil {
		return s, err
	}

	cfg := enc.Config
	cfg.BossHP = float64(res.HP)
	es := SummarizeEncounter(cfg, res.Metrics)

	s.Feasible = true
	s.HP = res.HP
	s.Median = Finite(res.Median)
	s.TPKProb = res.TPKProb
	s.CapMet = res.CapMet
	s.Encounter = &es
	s.Steps = res.Steps
	return s, nil
}
