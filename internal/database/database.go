package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Repository defines the storage operations the planner needs at startup and shutdown
type Repository interface {
	AirportRepository() AirportRepository
	RecentRouteRepository(maxEntries int) RecentRouteRepository
	Close() error
}

// DB implements the Repository interface using SQLite
type DB struct {
	db *sql.DB
}

// New creates and initializes a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := optimizeSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to optimize database: %w", err)
	}

	database := &DB{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// optimizeSQLite applies pragmas suited to a read-mostly reference database
func optimizeSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// AirportRepository returns the repository for the airport directory tables
func (d *DB) AirportRepository() AirportRepository {
	return NewAirportRepository(d.db)
}

// RecentRouteRepository returns the recent routes store, capped at maxEntries
func (d *DB) RecentRouteRepository(maxEntries int) RecentRouteRepository {
	return NewRecentRouteRepository(d.db, maxEntries)
}

// initSchema creates the database schema if it doesn't exist
func (d *DB) initSchema() error {
	tables := []struct {
		name   string
		schema string
	}{
		{"airports", `CREATE TABLE IF NOT EXISTS airports (
			ident TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			elevation INTEGER NOT NULL DEFAULT 0
		);`},
		{"airport_aliases", `CREATE TABLE IF NOT EXISTS airport_aliases (
			ident TEXT NOT NULL,
			simulator TEXT NOT NULL,
			position INTEGER NOT NULL,
			alias TEXT NOT NULL,
			PRIMARY KEY(ident, simulator, position)
		);`},
		{"recent_routes", `CREATE TABLE IF NOT EXISTS recent_routes (
			id TEXT PRIMARY KEY,
			route TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL
		);`},
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_airport_aliases_simulator_alias ON airport_aliases(simulator, alias)`,
		`CREATE INDEX IF NOT EXISTS idx_recent_routes_created_at ON recent_routes(created_at)`,
	}

	for _, table := range tables {
		if _, err := d.db.Exec(table.schema); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for _, idx := range indexes {
		if _, err := d.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
