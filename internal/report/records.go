package report

import (
	"github.com/lawnchairsociety/bossbalance/internal/database"
)

// EncounterRecord converts a summary to a run history row.
func EncounterRecord(label string, seed int64, s EncounterSummary) *database.EncounterRun {
	return &database.EncounterRun{
		Label:      label,
		Seed:       seed,
		Trials:     s.Trials,
		MaxRounds:  s.MaxRounds,
		BossHP:     s.BossHP,
		MedianTTK:  s.MedianTTK,
		P10TTK:     s.P10TTK,
		P90TTK:     s.P90TTK,
		TPKProb:    s.TPKProb,
		DefeatRate: s.DefeatRate,
		MeanDowns:  s.MeanDowns,
	}
}

// TuningRecord converts a tuning summary to a run history row.
func TuningRecord(label string, seed int64, s TuningSummary) *database.TuningRun {
	return &database.TuningRun{
		Label:        label,
		Seed:         seed,
		TargetMedian: s.TargetMedian,
		TPKCap:       s.TPKCap,
		Feasible:     s.Feasible,
		HP:           s.HP,
		Median:       s.Median,
		TPKProb:      s.TPKProb,
		CapMet:       s.CapMet,
		Steps:        s.Steps,
	}
}
