package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"route2lnm/internal/models"

	"github.com/klauspost/compress/zstd"
)

type AirportRepository interface {
	InsertBatch(airports []*models.Airport) error
	IsTablePopulated() (bool, error)
	LoadFromFiles(paths []string, batchSize int) error
	All() ([]models.Airport, error)
}

type airportRepository struct {
	db *sql.DB
}

func NewAirportRepository(db *sql.DB) AirportRepository {
	return &airportRepository{db: db}
}

// InsertBatch inserts or replaces airports and their alias lists in a single transaction
func (r *airportRepository) InsertBatch(airports []*models.Airport) error {
	if len(airports) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	airportStmt, err := tx.Prepare(`INSERT OR REPLACE INTO airports (
		ident, name, latitude, longitude, elevation
	) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer airportStmt.Close()

	clearStmt, err := tx.Prepare(`DELETE FROM airport_aliases WHERE ident = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer clearStmt.Close()

	aliasStmt, err := tx.Prepare(`INSERT INTO airport_aliases (
		ident, simulator, position, alias
	) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer aliasStmt.Close()

	for _, ap := range airports {
		if _, err := airportStmt.Exec(ap.Ident, ap.Name, ap.Latitude, ap.Longitude, ap.Elevation); err != nil {
			return fmt.Errorf("failed to insert airport %s: %w", ap.Ident, err)
		}
		if _, err := clearStmt.Exec(ap.Ident); err != nil {
			return fmt.Errorf("failed to clear aliases of %s: %w", ap.Ident, err)
		}
		for sim, aliases := range ap.Aliases {
			for pos, alias := range aliases {
				if _, err := aliasStmt.Exec(ap.Ident, string(sim), pos, alias); err != nil {
					return fmt.Errorf("failed to insert alias %s of %s: %w", alias, ap.Ident, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *airportRepository) IsTablePopulated() (bool, error) {
	var ignored int
	err := r.db.QueryRow("SELECT 1 FROM airports LIMIT 1").Scan(&ignored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check airports table: %w", err)
	}
	return true, nil
}

// All returns every airport with its alias lists, ordered by identifier
func (r *airportRepository) All() ([]models.Airport, error) {
	rows, err := r.db.Query(`SELECT ident, name, latitude, longitude, elevation FROM airports ORDER BY ident`)
	if err != nil {
		return nil, fmt.Errorf("failed to query airports: %w", err)
	}
	defer rows.Close()

	var airports []models.Airport
	index := make(map[string]int)
	for rows.Next() {
		var ap models.Airport
		if err := rows.Scan(&ap.Ident, &ap.Name, &ap.Latitude, &ap.Longitude, &ap.Elevation); err != nil {
			return nil, fmt.Errorf("failed to scan airport: %w", err)
		}
		ap.Aliases = make(map[models.Simulator][]string)
		index[ap.Ident] = len(airports)
		airports = append(airports, ap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read airports: %w", err)
	}

	aliasRows, err := r.db.Query(`SELECT ident, simulator, alias FROM airport_aliases ORDER BY ident, simulator, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer aliasRows.Close()

	for aliasRows.Next() {
		var ident, sim, alias string
		if err := aliasRows.Scan(&ident, &sim, &alias); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		i, ok := index[ident]
		if !ok {
			continue
		}
		simulator := models.Simulator(sim)
		airports[i].Aliases[simulator] = append(airports[i].Aliases[simulator], alias)
	}
	if err := aliasRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read aliases: %w", err)
	}

	return airports, nil
}

// datasetRecord is one value of the airports.json dataset, keyed by canonical identifier
type datasetRecord struct {
	Name      string   `json:"name"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Elevation float64  `json:"elevation"`
	FSX       []string `json:"fsx"`
	MSFS      []string `json:"msfs"`
	XPlane11  []string `json:"xplane11"`
}

func (rec datasetRecord) toAirport(ident string) *models.Airport {
	return &models.Airport{
		Ident:     ident,
		Name:      rec.Name,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		Elevation: int(math.Round(rec.Elevation)),
		Aliases: map[models.Simulator][]string{
			models.SimulatorFSX:      cleanAliases(rec.FSX),
			models.SimulatorMSFS:     cleanAliases(rec.MSFS),
			models.SimulatorXPlane11: cleanAliases(rec.XPlane11),
		},
	}
}

func cleanAliases(aliases []string) []string {
	cleaned := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		if alias = strings.ToUpper(strings.TrimSpace(alias)); alias != "" {
			cleaned = append(cleaned, alias)
		}
	}
	return cleaned
}

// LoadFromFiles streams one or more airports.json datasets into the database in batches.
// Files ending in .zst are decompressed transparently; later files override earlier ones.
func (r *airportRepository) LoadFromFiles(paths []string, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	batch := make([]*models.Airport, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		// Deterministic insertion order makes reloads reproducible
		sort.Slice(batch, func(i, j int) bool { return batch[i].Ident < batch[j].Ident })
		if err := r.InsertBatch(batch); err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for _, path := range paths {
		err := readDataset(path, func(ap *models.Airport) error {
			batch = append(batch, ap)
			if len(batch) >= batchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := flush(); err != nil {
		return fmt.Errorf("failed to insert final batch: %w", err)
	}
	return nil
}

// readDataset decodes the top-level object of a dataset file one airport at a time
func readDataset(path string, fn func(*models.Airport) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if filepath.Ext(path) == ".zst" {
		zr, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to open zstd stream %s: %w", path, err)
		}
		defer zr.Close()
		reader = zr
	}

	dec := json.NewDecoder(reader)
	if tok, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read dataset %s: %w", path, err)
	} else if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("dataset %s: expected a JSON object keyed by identifier", path)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read identifier from %s: %w", path, err)
		}
		ident, ok := tok.(string)
		if !ok {
			return fmt.Errorf("dataset %s: unexpected token %v", path, tok)
		}

		var rec datasetRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("failed to decode %s in %s: %w", ident, path, err)
		}

		// Skip records without an identifier (invalid data)
		ident = strings.ToUpper(strings.TrimSpace(ident))
		if ident == "" {
			continue
		}

		if err := fn(rec.toAirport(ident)); err != nil {
			return err
		}
	}

	return nil
}
