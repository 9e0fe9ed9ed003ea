// Package tuner searches for the boss hit points that give a target median
// time-to-kill.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/lawnchairsociety/bossbalance/internal/balance"
	"github.com/lawnchairsociety/bossbalance/internal/logger"
	"github.com/lawnchairsociety/bossbalance/internal/stats"
)

const (
	maxDoublings    = 12
	maxBisections   = 16
	medianTolerance = 0.05
	minQuickTrials  = 3000
	quickFraction   = 0.4
	capEpsilon      = 1e-9
)

// ErrInfeasible is returned when no HP range brackets the target median.
var ErrInfeasible = errors.New("target median cannot be bracketed by boss HP")

// InfeasibleError reports the bracket the search ended with.
type InfeasibleError struct {
	Target     float64
	LowHP      int
	LowMedian  float64
	HighHP     int
	HighMedian float64
	// Steps is every evaluation made before the search gave up.
	Steps []Step
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%v: median %.2f at HP %d, %.2f at HP %d, target %.2f",
		ErrInfeasible, e.LowMedian, e.LowHP, e.HighMedian, e.HighHP, e.Target)
}

func (e *InfeasibleError) Unwrap() error {
	return ErrInfeasible
}

// Phase names the part of the search a step belongs to.
type Phase string

const (
	PhaseBracket Phase = "bracket"
	PhaseBisect  Phase = "bisect"
	PhaseFinal   Phase = "final"
)

// Step is one simulation the tuner ran.
type Step struct {
	Phase   Phase   `json:"phase"`
	HP      int     `json:"hp"`
	Trials  int     `json:"trials"`
	Median  float64 `json:"median"` // +Inf if the boss never fell; null in JSON
	TPKProb float64 `json:"tpk_prob"`
}

// Options configures a tuning run.
type Options struct {
	TargetMedian float64
	TPKCap       float64
	// QuickTrials is the trial count of bracket and bisection runs. Zero
	// means max(3000, 40% of the encounter's trials).
	QuickTrials int
	Seed        int64
	Workers     int
	// OnStep, if set, is called after every simulation.
	OnStep func(Step)
}

// Result is a converged HP with the full-trial metrics measured at it.
type Result struct {
	HP      int
	Median  float64
	TPKProb float64
	// CapMet is false when pacing was reached but the wipe probability
	// exceeds the cap. HP is never adjusted for the cap.
	CapMet  bool
	Metrics *balance.Metrics
	Steps   []Step
}

type tuner struct {
	enc   balance.Encounter
	opts  Options
	steps []Step
}

// Tune runs the bracket-and-bisect search. The encounter is taken by value;
// its HP and trial count are never modified for the caller. Configuration
// errors from the encounter are returned as is.
func Tune(ctx context.Context, enc balance.Encounter, opts Options) (*Result, error) {
	if err := enc.Validate(); err != nil {
		return nil, err
	}
	t := &tuner{enc: enc, opts: opts}
	target := opts.TargetMedian
	quick := opts.QuickTrials
	if quick <= 0 {
		quick = max(minQuickTrials, int(float64(enc.Config.Trials)*quickFraction))
	}

	low, high := 1.0, max(10, enc.Config.BossHP)
	medLow, _, err := t.evaluate(ctx, PhaseBracket, low, quick)
	if err != nil {
		return nil, err
	}
	medHigh, _, err := t.evaluate(ctx, PhaseBracket, high, quick)
	if err != nil {
		return nil, err
	}

	for i := 0; medHigh < target && i < maxDoublings; i++ {
		high *= 2
		if medHigh, _, err = t.evaluate(ctx, PhaseBracket, high, quick); err != nil {
			return nil, err
		}
	}

	if medLow > target {
		low = 1
		if medLow, _, err = t.evaluate(ctx, PhaseBracket, low, quick); err != nil {
			return nil, err
		}
	}

	if !(medLow <= target && target <= medHigh) {
		logger.Warning("tuning infeasible", "target", target, "low_median", medLow, "high_median", medHigh)
		return nil, &InfeasibleError{
			Target:     target,
			LowHP:      hitPoints(low),
			LowMedian:  medLow,
			HighHP:     hitPoints(high),
			HighMedian: medHigh,
			Steps:      t.steps,
		}
	}

	for i := 0; i < maxBisections; i++ {
		mid := 0.5 * (low + high)
		med, _, err := t.evaluate(ctx, PhaseBisect, mid, quick)
		if err != nil {
			return nil, err
		}
		if med >= target {
			high = mid
		} else {
			low = mid
		}
		if math.Abs(med-target) < medianTolerance {
			break
		}
	}

	hp := hitPoints(high)
	med, metrics, err := t.evaluate(ctx, PhaseFinal, high, enc.Config.Trials)
	if err != nil {
		return nil, err
	}

	res := &Result{
		HP:      hp,
		Median:  med,
		TPKProb: metrics.TPKProb,
		CapMet:  metrics.TPKProb <= opts.TPKCap+capEpsilon,
		Metrics: metrics,
		Steps:   t.steps,
	}
	if !res.CapMet {
		logger.Warning("tuned HP exceeds wipe cap", "hp", hp, "tpk_prob", res.TPKProb, "cap", opts.TPKCap)
	}
	return res, nil
}

// evaluate simulates the encounter at the given HP and returns the median
// finite TTK, +Inf when the boss never fell.
func (t *tuner) evaluate(ctx context.Context, phase Phase, hp float64, trials int) (float64, *balance.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	enc := t.enc
	enc.Config.BossHP = float64(hitPoints(hp))
	enc.Config.Trials = trials

	metrics, err := balance.RunEncounter(ctx, enc, balance.RunOptions{Seed: t.opts.Seed, Workers: t.opts.Workers})
	if err != nil {
		return 0, nil, err
	}

	med := math.Inf(1)
	if finite := metrics.FiniteTTK(); len(finite) > 0 {
		med = stats.Median(finite)
	}

	step := Step{Phase: phase, HP: hitPoints(hp), Trials: trials, Median: med, TPKProb: metrics.TPKProb}
	t.steps = append(t.steps, step)
	logger.Debug("tuning step", "phase", step.Phase, "hp", step.HP, "median", step.Median, "tpk_prob", step.TPKProb)
	if t.opts.OnStep != nil {
		t.opts.OnStep(step)
	}
	return med, metrics, nil
}

// hitPoints rounds a search position up to a whole, positive HP value.
func hitPoints(hp float64) int {
	return max(1, int(math.Ceil(hp)))
}
