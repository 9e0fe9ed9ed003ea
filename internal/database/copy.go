package database

import "fmt"

// copyBatch bounds how many rows are read per table; history tables are
// small enough to load at once.
const copyBatch = 1 << 20

// CopyStats counts the rows copied per table.
type CopyStats struct {
	EncounterRuns int64
	TuningRuns    int64
}

// Total is the number of rows copied.
func (s CopyStats) Total() int64 {
	return s.EncounterRuns + s.TuningRuns
}

// CopyRuns copies every stored run from src into dst, oldest first, keeping
// labels, seeds and timestamps. IDs are assigned by dst. With dryRun set
// nothing is written and the counts report what would be copied.
func CopyRuns(src, dst *Database, dryRun bool) (CopyStats, error) {
	var stats CopyStats

	encounters, err := src.ListEncounterRuns(copyBatch)
	if err != nil {
		return stats, fmt.Errorf("read encounter runs: %w", err)
	}
	for i := len(encounters) - 1; i >= 0; i-- {
		run := encounters[i]
		if !dryRun {
			if err := dst.SaveEncounterRun(&run); err != nil {
				return stats, fmt.Errorf("copy encounter run %d: %w", encounters[i].ID, err)
			}
		}
		stats.EncounterRuns++
	}

	tunings, err := src.ListTuningRuns(copyBatch)
	if err != nil {
		return stats, fmt.Errorf("read tuning runs: %w", err)
	}
	for i := len(tunings) - 1; i >= 0; i-- {
		run := tunings[i]
		if !dryRun {
			if err := dst.SaveTuningRun(&run); err != nil {
				return stats, fmt.Errorf("copy tuning run %d: %w", tunings[i].ID, err)
			}
		}
		stats.TuningRuns++
	}

	return stats, nil
}
