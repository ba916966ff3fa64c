package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OutputCleanup removes generated archives older than the retention period
type OutputCleanup struct {
	dir       string
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewOutputCleanup creates a cleanup task for dir
func NewOutputCleanup(dir string, retention, interval time.Duration) *OutputCleanup {
	return &OutputCleanup{
		dir:       dir,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

func (c *OutputCleanup) Name() string {
	return "output_cleanup"
}

func (c *OutputCleanup) Interval() time.Duration {
	return c.interval
}

// Run deletes expired archives and leftover temp files from interrupted exports
func (c *OutputCleanup) Run(ctx context.Context) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	cutoff := c.now().Add(-c.retention)
	removed := 0

	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() || !isGenerated(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			slog.Warn("Error reading output file", "file", entry.Name(), "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			slog.Error("Error removing expired output file", "file", entry.Name(), "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("Removed expired output files", "dir", c.dir, "count", removed)
	}
	return nil
}

func isGenerated(name string) bool {
	if strings.HasPrefix(name, "Route ") && strings.HasSuffix(name, ".zip") {
		return true
	}
	return strings.HasPrefix(name, ".route2lnm-") && strings.HasSuffix(name, ".tmp")
}
