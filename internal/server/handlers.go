package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/lawnchairsociety/bossbalance/internal/balance"
	"github.com/lawnchairsociety/bossbalance/internal/config"
	"github.com/lawnchairsociety/bossbalance/internal/database"
	"github.com/lawnchairsociety/bossbalance/internal/logger"
	"github.com/lawnchairsociety/bossbalance/internal/report"
	"github.com/lawnchairsociety/bossbalance/internal/stats"
	"github.com/lawnchairsociety/bossbalance/internal/tuner"
)

// errBadRequest marks request errors that are answered with 400.
var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeRunError maps simulation and request errors to status codes.
func writeRunError(w http.ResponseWriter, err error) {
	var cfgErr *balance.ConfigError
	switch {
	case errors.As(err, &cfgErr), errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Simulation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "simulation failed")
	}
}

// readProfile decodes the request body as a profile. An empty body is the
// default profile.
func readProfile(w http.ResponseWriter, r *http.Request) (*config.Profile, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return config.DefaultProfile(), nil
	}
	p, err := config.ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return p, nil
}

// checkLimits rejects profiles that ask for more work than the server allows.
func (s *Server) checkLimits(p *config.Profile) error {
	limits := s.cfg.Limits
	switch {
	case limits.MaxTrials > 0 && p.EncTrials > limits.MaxTrials:
		return fmt.Errorf("%w: enc_trials %d exceeds the limit of %d", errBadRequest, p.EncTrials, limits.MaxTrials)
	case limits.MaxRounds > 0 && p.EncMaxRounds > limits.MaxRounds:
		return fmt.Errorf("%w: enc_max_rounds %d exceeds the limit of %d", errBadRequest, p.EncMaxRounds, limits.MaxRounds)
	case limits.MaxSingleTrials > 0 && p.MCTrials > limits.MaxSingleTrials:
		return fmt.Errorf("%w: mc_trials %d exceeds the limit of %d", errBadRequest, p.MCTrials, limits.MaxSingleTrials)
	case limits.MaxRounds > 0 && p.MCRounds > limits.MaxRounds:
		return fmt.Errorf("%w: mc_rounds %d exceeds the limit of %d", errBadRequest, p.MCRounds, limits.MaxRounds)
	}

	if limits.MaxTargets > 0 {
		for name, n := range map[string]int{
			"spread_targets": p.SpreadTargets,
			"lair_targets":   p.LairTargets,
			"rech_targets":   p.RechTargets,
		} {
			if n > limits.MaxTargets {
				return fmt.Errorf("%w: %s %d exceeds the limit of %d", errBadRequest, name, n, limits.MaxTargets)
			}
		}
	}

	if limits.MaxTableRows > 0 {
		for name, n := range map[string]int{
			"party_table":      len(p.Party),
			"attacks_table":    len(p.Attacks),
			"party_dpr_table":  len(p.DPR),
			"party_nova_table": len(p.Nova),
		} {
			if n > limits.MaxTableRows {
				return fmt.Errorf("%w: %s has %d rows, the limit is %d", errBadRequest, name, n, limits.MaxTableRows)
			}
		}
	}

	if limits.MaxDice > 0 {
		if n := stats.ParseDamage(p.TempHP).DiceCount(); n > limits.MaxDice {
			return fmt.Errorf("%w: thp_expr rolls %d dice, the limit is %d", errBadRequest, n, limits.MaxDice)
		}
	}

	uses := 0
	for _, row := range p.Attacks {
		if limits.MaxDice > 0 {
			if n := stats.ParseDamage(row.Damage).DiceCount(); n > limits.MaxDice {
				return fmt.Errorf("%w: attack %q rolls %d dice, the limit is %d", errBadRequest, row.Name, n, limits.MaxDice)
			}
		}
		n := 1
		if row.Uses != nil {
			n = max(0, *row.Uses)
		}
		if limits.MaxUsesPerRound > 0 && n > limits.MaxUsesPerRound-uses {
			return fmt.Errorf("%w: uses_per_round across the attack table exceeds the limit of %d", errBadRequest, limits.MaxUsesPerRound)
		}
		uses += n
	}
	return nil
}

// seedParam reads ?seed=, falling back to a fresh seed.
func (s *Server) seedParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("seed")
	if raw == "" {
		return s.seeds(), nil
	}
	seed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid seed %q", errBadRequest, raw)
	}
	return seed, nil
}

// simulationRequest is the common prologue of the simulation endpoints. It
// reserves trials(p) from the shared trial budget; the caller must call
// release when the run ends.
func (s *Server) simulationRequest(w http.ResponseWriter, r *http.Request, trials func(*config.Profile) int) (p *config.Profile, seed int64, release func(), ok bool) {
	p, err := readProfile(w, r)
	if err == nil {
		err = s.checkLimits(p)
	}
	if err != nil {
		writeRunError(w, err)
		return nil, 0, nil, false
	}
	seed, err = s.seedParam(r)
	if err != nil {
		writeRunError(w, err)
		return nil, 0, nil, false
	}

	n := trials(p)
	if !s.limiter.ReserveTrials(n) {
		clientIP := getRealIP(r)
		logger.Warning("Run rejected - trial budget exhausted",
			"client_ip", clientIP,
			"trials", n,
			"active_trials", s.limiter.ActiveTrials(),
			"ip_runs", s.limiter.IPCount(clientIP))
		writeError(w, http.StatusTooManyRequests, "the server is busy with other simulations, try again later")
		return nil, 0, nil, false
	}
	return p, seed, func() { s.limiter.ReleaseTrials(n) }, true
}

func singleTrials(p *config.Profile) int { return p.MCTrials * len(p.Party) }

func encounterTrials(p *config.Profile) int { return p.EncTrials }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	runs, ips := s.limiter.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"active_runs":   runs,
		"active_ips":    ips,
		"active_trials": s.limiter.ActiveTrials(),
		"store":         s.db != nil,
	})
}

func (s *Server) handleDefaultProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.DefaultProfile())
}

func (s *Server) handleThreat(w http.ResponseWriter, r *http.Request) {
	p, err := readProfile(w, r)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.BuildThreat(p.Encounter()))
}

type singleResponse struct {
	Seed    int64                  `json:"seed"`
	Members []report.SingleSummary `json:"members"`
}

func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	p, seed, release, ok := s.simulationRequest(w, r, singleTrials)
	if !ok {
		return
	}
	defer release()
	enc := p.Encounter()
	name := strings.TrimSpace(r.URL.Query().Get("member"))

	resp := singleResponse{Seed: seed}
	src := stats.NewSource(seed)
	for _, m := range enc.Party {
		if name != "" && !strings.EqualFold(m.Name, name) {
			continue
		}
		totals := balance.RunSingleTarget(m, enc.Attacks, enc.Config, src)
		resp.Members = append(resp.Members, report.SummarizeSingle(m.Name, enc.Config.SingleRounds, totals))
	}
	if name != "" && len(resp.Members) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no party member named %q", name))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type encounterResponse struct {
	ID   int64 `json:"id,omitempty"`
	Seed int64 `json:"seed"`
	report.EncounterSummary
}

func (s *Server) handleEncounter(w http.ResponseWriter, r *http.Request) {
	p, seed, release, ok := s.simulationRequest(w, r, encounterTrials)
	if !ok {
		return
	}
	defer release()
	enc := p.Encounter()

	metrics, err := balance.RunEncounter(r.Context(), enc, balance.RunOptions{Seed: seed, Workers: s.cfg.Limits.Workers})
	if err != nil {
		writeRunError(w, err)
		return
	}

	summary := report.SummarizeEncounter(enc.Config, metrics)
	resp := encounterResponse{Seed: seed, EncounterSummary: summary}
	if s.db != nil {
		run := report.EncounterRecord(p.Label, seed, summary)
		if err := s.db.SaveEncounterRun(run); err != nil {
			logger.Error("Failed to record encounter run", "error", err)
		} else {
			resp.ID = run.ID
		}
	}
	logger.Info("Encounter run", "seed", seed, "trials", summary.Trials, "boss_hp", summary.BossHP, "tpk_prob", summary.TPKProb)
	writeJSON(w, http.StatusOK, resp)
}

type tuneResponse struct {
	ID   int64 `json:"id,omitempty"`
	Seed int64 `json:"seed"`
	report.TuningSummary
}

// runTune tunes the profile and records the result. onStep may be nil.
func (s *Server) runTune(ctx context.Context, p *config.Profile, seed int64, onStep func(tuner.Step)) (tuneResponse, error) {
	enc := p.Encounter()
	opts := p.TuneOptions(seed, s.cfg.Limits.Workers)
	opts.OnStep = onStep

	logger.Always("Tuning started", "seed", seed, "target", opts.TargetMedian, "tpk_cap", opts.TPKCap, "trials", enc.Config.Trials)
	res, err := tuner.Tune(ctx, enc, opts)
	summary, err := report.SummarizeTuning(enc, opts, res, err)
	if err != nil {
		return tuneResponse{}, err
	}

	resp := tuneResponse{Seed: seed, TuningSummary: summary}
	if s.db != nil {
		run := report.TuningRecord(p.Label, seed, summary)
		if err := s.db.SaveTuningRun(run); err != nil {
			logger.Error("Failed to record tuning run", "error", err)
		} else {
			resp.ID = run.ID
		}
	}
	logger.Always("Tuning finished", "seed", seed, "feasible", summary.Feasible, "hp", summary.HP, "cap_met", summary.CapMet, "steps", len(summary.Steps))
	return resp, nil
}

func (s *Server) handleTune(w http.ResponseWriter, r *http.Request) {
	p, seed, release, ok := s.simulationRequest(w, r, encounterTrials)
	if !ok {
		return
	}
	defer release()
	resp, err := s.runTune(r.Context(), p, seed, nil)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) historyLimit(r *http.Request) int {
	limit := s.cfg.Limits.HistoryLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	return limit
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is not configured")
		return false
	}
	return true
}

type encounterRunJSON struct {
	ID         int64    `json:"id"`
	Label      string   `json:"label"`
	Seed       int64    `json:"seed"`
	Trials     int      `json:"trials"`
	MaxRounds  int      `json:"max_rounds"`
	BossHP     float64  `json:"boss_hp"`
	MedianTTK  *float64 `json:"median_ttk"`
	P10TTK     *float64 `json:"p10_ttk"`
	P90TTK     *float64 `json:"p90_ttk"`
	TPKProb    float64  `json:"tpk_prob"`
	DefeatRate float64  `json:"defeat_rate"`
	MeanDowns  float64  `json:"mean_downs"`
	CreatedAt  string   `json:"created_at"`
}

type tuningRunJSON struct {
	ID           int64        `json:"id"`
	Label        string       `json:"label"`
	Seed         int64        `json:"seed"`
	TargetMedian float64      `json:"target_median"`
	TPKCap       float64      `json:"tpk_cap"`
	Feasible     bool         `json:"feasible"`
	HP           int          `json:"hp"`
	Median       *float64     `json:"median"`
	TPKProb      float64      `json:"tpk_prob"`
	CapMet       bool         `json:"cap_met"`
	Steps        []tuner.Step `json:"steps,omitempty"`
	CreatedAt    string       `json:"created_at"`
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func (s *Server) handleEncounterRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	runs, err := s.db.ListEncounterRuns(s.historyLimit(r))
	if err != nil {
		logger.Error("Failed to list encounter runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	out := make([]encounterRunJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, encounterRunJSON{
			ID: run.ID, Label: run.Label, Seed: run.Seed, Trials: run.Trials, MaxRounds: run.MaxRounds,
			BossHP: run.BossHP, MedianTTK: run.MedianTTK, P10TTK: run.P10TTK, P90TTK: run.P90TTK,
			TPKProb: run.TPKProb, DefeatRate: run.DefeatRate, MeanDowns: run.MeanDowns,
			CreatedAt: run.CreatedAt.Format(timeFormat),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTuningRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	runs, err := s.db.ListTuningRuns(s.historyLimit(r))
	if err != nil {
		logger.Error("Failed to list tuning runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	out := make([]tuningRunJSON, 0, len(runs))
	for _, run := range runs {
		row := tuningRunJSONFrom(run)
		row.Steps = nil // only the detail endpoint carries steps
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTuningRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	run, err := s.db.GetTuningRun(id)
	if err != nil {
		logger.Error("Failed to load tuning run", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, tuningRunJSONFrom(*run))
}

func tuningRunJSONFrom(run database.TuningRun) tuningRunJSON {
	return tuningRunJSON{
		ID: run.ID, Label: run.Label, Seed: run.Seed,
		TargetMedian: run.TargetMedian, TPKCap: run.TPKCap, Feasible: run.Feasible,
		HP: run.HP, Median: run.Median, TPKProb: run.TPKProb, CapMet: run.CapMet,
		Steps: run.Steps, CreatedAt: run.CreatedAt.Format(timeFormat),
	}
}
