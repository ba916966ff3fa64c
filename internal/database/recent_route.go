package database

import (
	"database/sql"
	"fmt"
	"strings"

	"route2lnm/internal/models"
)

// DefaultRecentRoutes is the history size used when none is configured
const DefaultRecentRoutes = 10

type RecentRouteRepository interface {
	InsertBatch(entries []*models.RecentRoute) error
	Remove(ids []string) (int64, error)
	List() ([]models.RecentRoute, error)
}

type recentRouteRepository struct {
	db         *sql.DB
	maxEntries int
}

func NewRecentRouteRepository(db *sql.DB, maxEntries int) RecentRouteRepository {
	if maxEntries <= 0 {
		maxEntries = DefaultRecentRoutes
	}
	return &recentRouteRepository{db: db, maxEntries: maxEntries}
}

// InsertBatch records completed routes in a single transaction.
// An entry replaces any existing entry with the same route text, and only the
// newest maxEntries entries are kept afterwards.
func (r *recentRouteRepository) InsertBatch(entries []*models.RecentRoute) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	dedupStmt, err := tx.Prepare(`DELETE FROM recent_routes WHERE route = ? OR id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer dedupStmt.Close()

	insertStmt, err := tx.Prepare(`INSERT INTO recent_routes (id, route, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer insertStmt.Close()

	for _, entry := range entries {
		if entry.Route == "" {
			continue
		}
		if _, err := dedupStmt.Exec(entry.Route, entry.ID); err != nil {
			return fmt.Errorf("failed to replace recent route: %w", err)
		}
		if _, err := insertStmt.Exec(entry.ID, entry.Route, entry.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert recent route: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM recent_routes WHERE id NOT IN (
		SELECT id FROM recent_routes ORDER BY created_at DESC, rowid DESC LIMIT ?
	)`, r.maxEntries); err != nil {
		return fmt.Errorf("failed to evict old recent routes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Remove deletes the entries with the given ids and returns how many were removed
func (r *recentRouteRepository) Remove(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := r.db.Exec(`DELETE FROM recent_routes WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to remove recent routes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed recent routes: %w", err)
	}
	return n, nil
}

// List returns the history, newest first
func (r *recentRouteRepository) List() ([]models.RecentRoute, error) {
	rows, err := r.db.Query(`SELECT id, route, created_at FROM recent_routes ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent routes: %w", err)
	}
	defer rows.Close()

	routes := make([]models.RecentRoute, 0, r.maxEntries)
	for rows.Next() {
		var entry models.RecentRoute
		if err := rows.Scan(&entry.ID, &entry.Route, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent route: %w", err)
		}
		routes = append(routes, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recent routes: %w", err)
	}
	return routes, nil
}
