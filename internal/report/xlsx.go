package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Workbook selects the tables written by WriteXLSX. Nil sections are skipped.
type Workbook struct {
	Threat    *Threat
	Single    []SingleSummary
	Encounter *EncounterSummary
	Tuning    *TuningSummary
}

const percentFormat = 10 // 0.00%

// WriteXLSX exports the workbook to path, creating its directory.
func WriteXLSX(path string, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	x := &sheetWriter{f: f}
	if wb.Threat != nil {
		x.threat(*wb.Threat)
	}
	if len(wb.Single) > 0 {
		x.single(wb.Single)
	}
	if wb.Encounter != nil {
		x.encounter("Encounter", *wb.Encounter)
	}
	if wb.Tuning != nil {
		x.tuning(*wb.Tuning)
	}
	if x.err != nil {
		return x.err
	}
	if len(x.sheets) == 0 {
		return fmt.Errorf("nothing to export")
	}

	// the first sheet we wrote replaces the default one
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	if idx, err := f.GetSheetIndex(x.sheets[0]); err == nil {
		f.SetActiveSheet(idx)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// sheetWriter keeps the first error so table code can stay linear.
type sheetWriter struct {
	f      *excelize.File
	sheets []string
	err    error
}

func (x *sheetWriter) sheet(name string, headers ...string) {
	if x.err != nil {
		return
	}
	if _, x.err = x.f.NewSheet(name); x.err != nil {
		return
	}
	x.sheets = append(x.sheets, name)
	x.row(name, 1, toAny(headers)...)

	style, err := x.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		x.err = err
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	x.err = x.f.SetCellStyle(name, "A1", last, style)
}

func (x *sheetWriter) row(sheet string, n int, values ...any) {
	if x.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		x.err = err
		return
	}
	x.err = x.f.SetSheetRow(sheet, cell, &values)
}

func (x *sheetWriter) percent(sheet string, col, fromRow, toRow int) {
	if x.err != nil || toRow < fromRow {
		return
	}
	style, err := x.f.NewStyle(&excelize.Style{NumFmt: percentFormat})
	if err != nil {
		x.err = err
		return
	}
	from, _ := excelize.CoordinatesToCellName(col, fromRow)
	to, _ := excelize.CoordinatesToCellName(col, toRow)
	x.err = x.f.SetCellStyle(sheet, from, to, style)
}

func (x *sheetWriter) threat(t Threat) {
	const name = "Threat"
	x.sheet(name, "Name", "AC", "HP", "DPR (attacks)", "DPR (total)", "Net DPR (after THP)",
		"Rounds to 0 (exact)", "Rounds to 0 (ceil)")
	for i, r := range t.Rows {
		x.row(name, i+2, r.Name, r.AC, r.HP, r.AttackDPR, r.TotalDPR, r.NetDPR,
			cellValue(r.RoundsExact), cellValue(r.RoundsCeil))
	}

	const ttd = "Time to die"
	headers := []string{"Member", "Effective DPR"}
	if t.TTD.Nova {
		headers = append(headers, "P(any hit)", "P(crit)", "Factor")
	}
	x.sheet(ttd, headers...)
	n := 2
	for _, r := range t.TTD.Rows {
		values := []any{r.Member, r.DPR}
		if t.TTD.Nova {
			values = append(values, cellValue(r.PAny), cellValue(r.PCrit), cellValue(r.Factor))
		}
		x.row(ttd, n, values...)
		n++
	}
	if t.TTD.Nova {
		x.percent(ttd, 3, 2, n-1)
		x.percent(ttd, 4, 2, n-1)
	}
	n++
	x.row(ttd, n, "Total DPR", t.TTD.TotalDPR)
	x.row(ttd, n+1, "Incoming DPR", t.TTD.IncomingDPR)
	x.row(ttd, n+2, "Rounds (exact)", cellValue(t.TTD.RoundsExact))
	x.row(ttd, n+3, "Rounds (ceil)", cellValue(t.TTD.RoundsCeil))
}

func (x *sheetWriter) single(rows []SingleSummary) {
	const name = "Single target"
	x.sheet(name, "Member", "Rounds", "Trials", "Mean", "p95", "p99")
	for i, s := range rows {
		x.row(name, i+2, s.Member, s.Rounds, s.Trials, s.Mean, s.P95, s.P99)
	}
}

func (x *sheetWriter) encounter(name string, s EncounterSummary) {
	x.sheet(name, "Metric", "Value")
	metrics := [][]any{
		{"Boss HP", s.BossHP},
		{"Trials", s.Trials},
		{"Max rounds", s.MaxRounds},
		{"Median TTK", cellValue(s.MedianTTK)},
		{"p10 TTK", cellValue(s.P10TTK)},
		{"p90 TTK", cellValue(s.P90TTK)},
		{"TPK probability", s.TPKProb},
		{"Boss defeat rate", s.DefeatRate},
		{"Mean PCs down at victory", s.MeanDowns},
		{"p90 PCs down at victory", s.P90Downs},
	}
	for i, m := range metrics {
		x.row(name, i+2, m...)
	}
	x.percent(name, 2, 8, 9)

	survival := name + " survival"
	x.sheet(survival, "Round", "P(boss alive)")
	for i, t := range s.Times {
		x.row(survival, i+2, t, s.Survival[i])
	}
	x.percent(survival, 2, 2, len(s.Times)+1)
}

func (x *sheetWriter) tuning(s TuningSummary) {
	const name = "Tuning"
	x.sheet(name, "Metric", "Value")
	x.row(name, 2, "Target median", s.TargetMedian)
	x.row(name, 3, "TPK cap", s.TPKCap)
	x.row(name, 4, "Feasible", s.Feasible)
	if s.Infeasible != nil {
		x.row(name, 5, "Low HP", s.Infeasible.LowHP)
		x.row(name, 6, "Low median", cellValue(s.Infeasible.LowMedian))
		x.row(name, 7, "High HP", s.Infeasible.HighHP)
		x.row(name, 8, "High median", cellValue(s.Infeasible.HighMedian))
	} else {
		x.row(name, 5, "Tuned HP", s.HP)
		x.row(name, 6, "Median TTK", cellValue(s.Median))
		x.row(name, 7, "TPK probability", s.TPKProb)
		x.row(name, 8, "Cap met", s.CapMet)
		x.percent(name, 2, 7, 7)
	}

	const steps = "Tuning steps"
	x.sheet(steps, "Phase", "HP", "Trials", "Median TTK", "TPK probability")
	for i, st := range s.Steps {
		x.row(steps, i+2, string(st.Phase), st.HP, st.Trials, cellValue(Finite(st.Median)), st.TPKProb)
	}
	x.percent(steps, 5, 2, len(s.Steps)+1)

	if s.Encounter != nil {
		x.encounter("Tuned encounter", *s.Encounter)
	}
}

// cellValue writes a missing value as the infinity sign.
func cellValue(v *float64) any {
	if v == nil {
		return "∞"
	}
	return *v
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
