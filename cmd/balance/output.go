package main

import (
	"fmt"

	"github.com/lawnchairsociety/bossbalance/internal/report"
)

func formatRounds(v *float64) string {
	if v == nil {
		return "     ∞"
	}
	return fmt.Sprintf("%6.2f", *v)
}

func printThreat(rows []report.ThreatRow) {
	fmt.Println("Member          |  AC |  HP | Attack DPR | Total DPR | Net DPR | Rounds | Ceil")
	fmt.Println("----------------+-----+-----+------------+-----------+---------+--------+------")
	for _, r := range rows {
		fmt.Printf("%-15s | %3d | %3d | %10.2f | %9.2f | %7.2f | %s | %s\n",
			r.Name, r.AC, r.HP, r.AttackDPR, r.TotalDPR, r.NetDPR, formatRounds(r.RoundsExact), formatRounds(r.RoundsCeil))
	}
}

func printTimeToDie(t report.TimeToDie) {
	if t.Nova {
		fmt.Println("Member          |    DPR | P(hit) | P(crit) | Factor")
		fmt.Println("----------------+--------+--------+---------+-------")
		for _, r := range t.Rows {
			fmt.Printf("%-15s | %6.2f | %s | %s | %s\n",
				r.Member, r.DPR, formatRounds(r.PAny), formatRounds(r.PCrit), formatRounds(r.Factor))
		}
	} else {
		fmt.Println("Member          |    DPR")
		fmt.Println("----------------+-------")
		for _, r := range t.Rows {
			fmt.Printf("%-15s | %6.2f\n", r.Member, r.DPR)
		}
	}
	fmt.Println()
	fmt.Printf("Party DPR:    %.2f\n", t.TotalDPR)
	fmt.Printf("Incoming DPR: %.2f (after resistance and regeneration)\n", t.IncomingDPR)
	fmt.Printf("Rounds:       %s (ceil %s)\n", formatRounds(t.RoundsExact), formatRounds(t.RoundsCeil))
}

func printSingle(rows []report.SingleSummary) {
	fmt.Println("Member          |    Mean |     P95 |     P99")
	fmt.Println("----------------+---------+---------+--------")
	for _, r := range rows {
		fmt.Printf("%-15s | %7.2f | %7.2f | %7.2f\n", r.Member, r.Mean, r.P95, r.P99)
	}
}

func printEncounter(s report.EncounterSummary) {
	fmt.Printf("Boss HP: %.0f, Trials: %d, Max rounds: %d\n", s.BossHP, s.Trials, s.MaxRounds)
	fmt.Println()
	fmt.Printf("Time to kill:   median %s  p10 %s  p90 %s\n",
		formatRounds(s.MedianTTK), formatRounds(s.P10TTK), formatRounds(s.P90TTK))
	fmt.Printf("Boss defeated:  %5.1f%%\n", s.DefeatRate*100)
	fmt.Printf("Party wiped:    %5.1f%%\n", s.TPKProb*100)
	fmt.Printf("Downs at win:   mean %.2f  p90 %.0f\n", s.MeanDowns, s.P90Downs)
	if len(s.Times) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Round | Boss alive")
	fmt.Println("------+-----------")
	for i, t := range s.Times {
		fmt.Printf("%5d | %8.1f%%\n", t, s.Survival[i]*100)
	}
}

func printTuning(s report.TuningSummary) {
	fmt.Printf("Target median: %.2f rounds, wipe cap: %.1f%%\n", s.TargetMedian, s.TPKCap*100)
	fmt.Println()
	if !s.Feasible {
		inf := s.Infeasible
		fmt.Println("No boss HP reaches the target.")
		if inf != nil {
			fmt.Printf("  HP %d -> median %s\n", inf.LowHP, formatRounds(inf.LowMedian))
			fmt.Printf("  HP %d -> median %s\n", inf.HighHP, formatRounds(inf.HighMedian))
		}
		return
	}
	fmt.Printf("Boss HP:       %d\n", s.HP)
	fmt.Printf("Median TTK:    %s\n", formatRounds(s.Median))
	fmt.Printf("Wipe chance:   %.1f%%\n", s.TPKProb*100)
	if !s.CapMet {
		fmt.Println("WARNING: the wipe chance at this HP exceeds the cap")
	}
	fmt.Printf("Search steps:  %d\n", len(s.Steps))
	if s.Encounter != nil {
		fmt.Println()
		printEncounter(*s.Encounter)
	}
}
