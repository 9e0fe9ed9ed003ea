// migrate-to-postgres copies the run history from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/balance.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user balance \
//	    -pg-password balance \
//	    -pg-database balance
package main

import (
	"flag"
	"log"

	"github.com/lawnchairsociety/bossbalance/internal/database"
)

func main() {
	defaults := database.DefaultPostgresConfig()

	// Parse command-line flags
	sqlitePath := flag.String("sqlite", "data/balance.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", defaults.Host, "PostgreSQL host")
	pgPort := flag.Int("pg-port", defaults.Port, "PostgreSQL port")
	pgUser := flag.String("pg-user", "balance", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "balance", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "balance", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", defaults.SSLMode, "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Migration Tool")
	log.Println("====================================")

	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := database.Open(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	pg := defaults
	pg.Host = *pgHost
	pg.Port = *pgPort
	pg.User = *pgUser
	pg.Password = *pgPassword
	pg.Database = *pgDatabase
	pg.SSLMode = *pgSSLMode

	// Opening runs the schema migrations on PostgreSQL
	log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", pg.User, pg.Host, pg.Port, pg.Database)
	dst, err := database.OpenWithConfig(database.Config{Driver: "postgres", Postgres: pg})
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer dst.Close()

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	}

	stats, err := database.CopyRuns(src, dst, *dryRun)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("  encounter_runs: %d rows", stats.EncounterRuns)
	log.Printf("  tuning_runs:    %d rows", stats.TuningRuns)

	log.Println("====================================")
	log.Printf("Migration complete! Total rows migrated: %d", stats.Total())
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}
