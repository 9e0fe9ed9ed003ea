// Package database persists encounter and tuning run history in SQLite or PostgreSQL.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Database wraps the SQL connection and provides persistence operations.
type Database struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Database, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig opens the database selected by cfg.Driver and runs migrations.
func OpenWithConfig(cfg Config) (*Database, error) {
	var dialect Dialect
	var dsn string

	switch strings.ToLower(cfg.Driver) {
	case "", string(DialectSQLite):
		dialect = NewDialect(DialectSQLite)
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is empty")
		}
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = cfg.SQLitePath
	case string(DialectPostgres):
		dialect = NewDialect(DialectPostgres)
		dsn = cfg.Postgres.DSN()
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect.DriverName() == "postgres" {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init statement failed: %w\nSQL: %s", err, stmt)
		}
	}

	d := &Database{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// migrate creates the database schema if it doesn't exist.
func (d *Database) migrate() error {
	pk := d.dialect.SerialPrimaryKey()
	num := d.dialect.FloatType()

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS encounter_runs (
			id ` + pk + `,
			label TEXT NOT NULL DEFAULT '',
			seed BIGINT NOT NULL,
			trials INTEGER NOT NULL,
			max_rounds INTEGER NOT NULL,
			boss_hp ` + num + ` NOT NULL,
			median_ttk ` + num + `,
			p10_ttk ` + num + `,
			p90_ttk ` + num + `,
			tpk_prob ` + num + ` NOT NULL,
			defeat_rate ` + num + ` NOT NULL,
			mean_downs ` + num + ` NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS tuning_runs (
			id ` + pk + `,
			label TEXT NOT NULL DEFAULT '',
			seed BIGINT NOT NULL,
			target_median ` + num + ` NOT NULL,
			tpk_cap ` + num + ` NOT NULL,
			feasible INTEGER NOT NULL DEFAULT 1,
			hp ` + num + ` NOT NULL,
			median_ttk ` + num + `,
			tpk_prob ` + num + ` NOT NULL,
			cap_met INTEGER NOT NULL DEFAULT 0,
			steps TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_encounter_runs_created_at ON encounter_runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tuning_runs_created_at ON tuning_runs(created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	return nil
}

// insert runs an INSERT and returns the new row id, through LastInsertId or
// a RETURNING clause depending on the dialect.
func (d *Database) insert(query string, args ...any) (int64, error) {
	if d.dialect.SupportsLastInsertID() {
		res, err := d.db.Exec(d.qb.Build(query), args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}

	var id int64
	if err := d.db.QueryRow(d.qb.BuildWithReturning(query, "id"), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// DB returns the underlying sql.DB for advanced operations.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Dialect returns the SQL dialect in use.
func (d *Database) Dialect() Dialect {
	return d.dialect
}
