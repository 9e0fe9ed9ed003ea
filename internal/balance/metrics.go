package balance

import "math"

// Metrics is the outcome of an encounter run.
type Metrics struct {
	// TTK is the round the boss fell in each trial, +Inf if it survived the cap.
	TTK []float64
	// Wiped marks trials where the whole party dropped before the boss.
	Wiped []bool
	// TPKProb is the fraction of wiped trials.
	TPKProb float64
	// DownsAtVictory counts downed members in each trial the boss lost, in trial order.
	DownsAtVictory []int
	// Times runs 0..MaxRounds; Survival[i] is P(boss still alive after Times[i] rounds).
	Times    []int
	Survival []float64
}

func newMetrics(ttk []float64, wiped []bool, downs []int, maxRounds int) *Metrics {
	m := &Metrics{
		TTK:            ttk,
		Wiped:          wiped,
		DownsAtVictory: make([]int, 0, len(ttk)),
	}

	tpk := 0
	for i, t := range ttk {
		if wiped[i] {
			tpk++
		}
		if !math.IsInf(t, 1) {
			m.DownsAtVictory = append(m.DownsAtVictory, downs[i])
		}
	}
	if n := len(ttk); n > 0 {
		m.TPKProb = float64(tpk) / float64(n)
	}

	maxRounds = max(0, maxRounds)
	m.Times = make([]int, maxRounds+1)
	m.Survival = make([]float64, maxRounds+1)
	for i := range m.Times {
		m.Times[i] = i
		alive := 0
		for _, t := range ttk {
			if t > float64(i) {
				alive++
			}
		}
		if len(ttk) > 0 {
			m.Survival[i] = float64(alive) / float64(len(ttk))
		}
	}
	return m
}

// FiniteTTK returns the TTK of every trial in which the boss fell.
func (m *Metrics) FiniteTTK() []float64 {
	out := make([]float64, 0, len(m.TTK))
	for _, t := range m.TTK {
		if !math.IsInf(t, 1) {
			out = append(out, t)
		}
	}
	return out
}

// DefeatRate is the fraction of trials in which the boss fell.
func (m *Metrics) DefeatRate() float64 {
	if len(m.TTK) == 0 {
		return 0
	}
	return float64(len(m.DownsAtVictory)) / float64(len(m.TTK))
}
