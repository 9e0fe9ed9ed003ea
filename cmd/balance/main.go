// balance is a Monte Carlo simulator for tuning boss encounters.
//
// Usage:
//
//	balance [command] [options]
//
// Commands:
//
//	threat     - Expected damage taken per party member
//	ttd        - Closed-form boss time to die
//	single     - Single-target damage totals per member
//	encounter  - Full party-vs-boss simulation
//	tune       - Search for the boss HP that meets a target median TTK
//	profile    - Write the default profile to a file
//	serve      - Run the HTTP and websocket API
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lawnchairsociety/bossbalance/internal/balance"
	"github.com/lawnchairsociety/bossbalance/internal/config"
	"github.com/lawnchairsociety/bossbalance/internal/database"
	"github.com/lawnchairsociety/bossbalance/internal/logger"
	"github.com/lawnchairsociety/bossbalance/internal/report"
	"github.com/lawnchairsociety/bossbalance/internal/server"
	"github.com/lawnchairsociety/bossbalance/internal/stats"
	"github.com/lawnchairsociety/bossbalance/internal/tuner"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "threat":
		err = runThreat(os.Args[2:])
	case "ttd":
		err = runTimeToDie(os.Args[2:])
	case "single":
		err = runSingle(os.Args[2:])
	case "encounter":
		err = runEncounter(os.Args[2:])
	case "tune":
		err = runTune(os.Args[2:])
	case "profile":
		err = runProfile(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Boss Balance Simulator

A Monte Carlo simulator for tuning boss encounters against a party.

Usage: balance <command> [options]

Commands:
  threat     Expected damage taken per round by each party member
  ttd        Closed-form rounds for the party to drop the boss
  single     Single-target damage totals per member (Monte Carlo)
  encounter  Full party-vs-boss simulation
  tune       Find the boss HP whose median time to kill meets a target
  profile    Write the default profile to a file
  serve      Run the HTTP API and the tuning websocket

Examples:
  balance profile -out=data/profile.yaml
  balance threat -profile=data/profile.yaml
  balance encounter -profile=data/profile.yaml -seed=42 -xlsx=out/encounter.xlsx
  balance tune -profile=data/profile.yaml -db=data/balance.db
  balance serve -config=data/server.yaml

Use "balance <command> -h" for more information about a command.`)
}

// commonFlags are shared by the simulation commands.
type commonFlags struct {
	profile *string
	logging *string
	jsonOut *bool
	xlsx    *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		profile: fs.String("profile", "", "Path to a YAML or JSON profile (default: built-in profile)"),
		logging: fs.String("logging", "", "Path to logging config YAML file"),
		jsonOut: fs.Bool("json", false, "Print the result as JSON"),
		xlsx:    fs.String("xlsx", "", "Also export the result to this .xlsx file"),
	}
}

// setup initializes logging and loads the profile.
func (c commonFlags) setup() (*config.Profile, error) {
	logConfig, err := logger.LoadConfig(*c.logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		return nil, err
	}
	return config.LoadProfile(*c.profile)
}

func (c commonFlags) export(wb report.Workbook) error {
	if *c.xlsx == "" {
		return nil
	}
	if err := report.WriteXLSX(*c.xlsx, wb); err != nil {
		return err
	}
	fmt.Printf("\nExported to %s\n", *c.xlsx)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// seedFlag returns the seed, picking one from the clock when unset.
func seedFlag(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// openStore opens the run history when a path was given.
func openStore(path string) (*database.Database, error) {
	if path == "" {
		return nil, nil
	}
	return database.Open(path)
}

func runThreat(args []string) error {
	fs := flag.NewFlagSet("threat", flag.ExitOnError)
	common := addCommonFlags(fs)
	fs.Parse(args)

	p, err := common.setup()
	if err != nil {
		return err
	}
	threat := report.BuildThreat(p.Encounter())
	if *common.jsonOut {
		return printJSON(threat)
	}

	fmt.Println("=== Threat ===")
	fmt.Println()
	printThreat(threat.Rows)
	fmt.Println()
	printTimeToDie(threat.TTD)
	return common.export(report.Workbook{Threat: &threat})
}

func runTimeToDie(args []string) error {
	fs := flag.NewFlagSet("ttd", flag.ExitOnError)
	common := addCommonFlags(fs)
	nova := fs.Bool("nova", false, "Use the nova DPR table instead of the manual one")
	fs.Parse(args)

	p, err := common.setup()
	if err != nil {
		return err
	}
	if *nova {
		p.EncUseNova = true
	}
	ttd := report.BuildTimeToDie(p.Encounter())
	if *common.jsonOut {
		return printJSON(ttd)
	}
	fmt.Println("=== Boss Time to Die ===")
	fmt.Println()
	printTimeToDie(ttd)
	return nil
}

func runSingle(args []string) error {
	fs := flag.NewFlagSet("single", flag.ExitOnError)
	common := addCommonFlags(fs)
	member := fs.String("member", "", "Only simulate this party member")
	seed := fs.Int64("seed", 0, "Random seed (default: random based on current time)")
	fs.Parse(args)

	p, err := common.setup()
	if err != nil {
		return err
	}
	enc := p.Encounter()
	src := stats.NewSource(seedFlag(*seed))

	var rows []report.SingleSummary
	for _, m := range enc.Party {
		if *member != "" && !strings.EqualFold(m.Name, *member) {
			continue
		}
		totals := balance.RunSingleTarget(m, enc.Attacks, enc.Config, src)
		rows = append(rows, report.SummarizeSingle(m.Name, enc.Config.SingleRounds, totals))
	}
	if len(rows) == 0 {
		return fmt.Errorf("no party member named %q", *member)
	}
	if *common.jsonOut {
		return printJSON(rows)
	}

	fmt.Println("=== Single-Target Damage ===")
	fmt.Println()
	fmt.Printf("Rounds: %d, Trials: %d\n\n", enc.Config.SingleRounds, rows[0].Trials)
	printSingle(rows)
	return common.export(report.Workbook{Single: rows})
}

func runEncounter(args []string) error {
	fs := flag.NewFlagSet("encounter", flag.ExitOnError)
	common := addCommonFlags(fs)
	seed := fs.Int64("seed", 0, "Random seed (default: random based on current time)")
	workers := fs.Int("workers", 0, "Parallel workers (default: number of CPUs)")
	dbFile := fs.String("db", "", "Record the run in this SQLite database")
	fs.Parse(args)

	p, err := common.setup()
	if err != nil {
		return err
	}
	enc := p.Encounter()
	runSeed := seedFlag(*seed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := balance.RunEncounter(ctx, enc, balance.RunOptions{Seed: runSeed, Workers: *workers})
	if err != nil {
		return describeError(err)
	}
	summary := report.SummarizeEncounter(enc.Config, metrics)

	if err := record(*dbFile, func(db *database.Database) error {
		return db.SaveEncounterRun(report.EncounterRecord(p.Label, runSeed, summary))
	}); err != nil {
		return err
	}

	if *common.jsonOut {
		return printJSON(summary)
	}
	fmt.Println("=== Encounter Simulation ===")
	fmt.Println()
	fmt.Printf("Seed: %d\n", runSeed)
	printEncounter(summary)
	return common.export(report.Workbook{Encounter: &summary})
}

func runTune(args []string) error {
	fs := flag.NewFlagSet("tune", flag.ExitOnError)
	common := addCommonFlags(fs)
	seed := fs.Int64("seed", 0, "Random seed (default: random based on current time)")
	workers := fs.Int("workers", 0, "Parallel workers (default: number of CPUs)")
	target := fs.Float64("target", 0, "Target median rounds to kill (default: profile value)")
	tpkCap := fs.Float64("tpk-cap", -1, "Maximum wipe probability (default: profile value)")
	quick := fs.Int("quick-trials", 0, "Trials per search step (default: max(3000, 40% of enc_trials))")
	verbose := fs.Bool("v", false, "Print every search step")
	dbFile := fs.String("db", "", "Record the run in this SQLite database")
	fs.Parse(args)

	p, err := common.setup()
	if err != nil {
		return err
	}
	if *target > 0 {
		p.TuneTarget = *target
	}
	if *tpkCap >= 0 {
		p.TuneTPKCap = *tpkCap
	}
	enc := p.Encounter()
	runSeed := seedFlag(*seed)

	opts := p.TuneOptions(runSeed, *workers)
	opts.QuickTrials = *quick
	if *verbose && !*common.jsonOut {
		opts.OnStep = func(s tuner.Step) {
			fmt.Printf("  %-8s HP %6d  trials %6d  median %s  TPK %5.1f%%\n",
				s.Phase, s.HP, s.Trials, formatRounds(report.Finite(s.Median)), s.TPKProb*100)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := tuner.Tune(ctx, enc, opts)
	summary, err := report.SummarizeTuning(enc, opts, res, err)
	if err != nil {
		return describeError(err)
	}

	if err := record(*dbFile, func(db *database.Database) error {
		return db.SaveTuningRun(report.TuningRecord(p.Label, runSeed, summary))
	}); err != nil {
		return err
	}

	if *common.jsonOut {
		return printJSON(summary)
	}
	fmt.Println()
	fmt.Println("=== Boss HP Tuning ===")
	fmt.Println()
	fmt.Printf("Seed: %d\n", runSeed)
	printTuning(summary)
	return common.export(report.Workbook{Tuning: &summary})
}

func runProfile(args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	out := fs.String("out", "data/profile.yaml", "Where to write the default profile")
	fs.Parse(args)

	if err := config.DefaultProfile().SaveProfile(*out); err != nil {
		return err
	}
	fmt.Printf("Wrote default profile to %s\n", *out)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "data/server.yaml", "Path to server config YAML file")
	loggingConfig := fs.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	addr := fs.String("addr", "", "Listen address (overrides the config file)")
	noStore := fs.Bool("no-store", false, "Do not record runs")
	fs.Parse(args)

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	if err := logger.Initialize(logConfig); err != nil {
		return err
	}
	logger.Info("Starting boss balance server")

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load server config, using defaults", "path", *configFile, "error", err)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	var db *database.Database
	if !*noStore {
		db, err = database.OpenWithConfig(cfg.Database)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer db.Close()
		logger.Info("Run history opened", "driver", db.Dialect().DriverName())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, db).ListenAndServe(ctx)
}

// record saves a run when a database path was given.
func record(path string, save func(*database.Database) error) error {
	db, err := openStore(path)
	if err != nil || db == nil {
		return err
	}
	defer db.Close()
	if err := save(db); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// describeError turns a configuration error into its user-facing reason.
func describeError(err error) error {
	var cfgErr *balance.ConfigError
	if errors.As(err, &cfgErr) {
		return fmt.Errorf("invalid encounter: %s", cfgErr.Reason)
	}
	return err
}
