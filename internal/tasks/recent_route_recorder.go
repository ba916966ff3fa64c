package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"route2lnm/internal/database"
	"route2lnm/internal/models"
)

// RecentRouteRecorder collects completed routes and commits them to the database in batches.
// It is the only writer of the recent routes history.
type RecentRouteRecorder struct {
	repo          database.RecentRouteRepository
	routeChan     chan *models.RecentRoute
	batchSize     int           // maximum number of routes in a batch before committing to database
	flushInterval time.Duration // time to flush batch even if not full

	mu     sync.RWMutex
	closed bool
}

// Default queue holds 16 routes, batch size is 10 routes and flush interval is 1 second
func NewRecentRouteRecorder(repo database.RecentRouteRepository) *RecentRouteRecorder {
	return NewRecentRouteRecorderWithConfig(repo, 16, 10, 1*time.Second)
}

// NewRecentRouteRecorderWithConfig creates a new recorder with custom queue and batch settings
func NewRecentRouteRecorderWithConfig(repo database.RecentRouteRepository, queueSize, batchSize int, flushInterval time.Duration) *RecentRouteRecorder {
	return &RecentRouteRecorder{
		repo:          repo,
		routeChan:     make(chan *models.RecentRoute, queueSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// RouteCompleted queues a completed route. It never blocks the caller;
// routes arriving while the queue is full or after Close are dropped.
func (c *RecentRouteRecorder) RouteCompleted(entry models.RecentRoute) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		slog.Warn("Recent route recorder is closed, dropping route", "route", entry.Route)
		return
	}

	select {
	case c.routeChan <- &entry:
	default:
		slog.Warn("Recent route queue is full, dropping route", "route", entry.Route)
	}
}

// Close stops accepting routes. Start flushes what is queued and returns.
func (c *RecentRouteRecorder) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.routeChan)
	}
}

// Start begins collecting routes and writing them to the database in batches
// This method blocks until the context is cancelled or Close is called
// Batches are flushed when they reach batchSize or flushInterval has passed
func (c *RecentRouteRecorder) Start(ctx context.Context) error {
	batch := make([]*models.RecentRoute, 0, c.batchSize)

	flushBatch := func() {
		if len(batch) > 0 {
			if err := c.repo.InsertBatch(batch); err != nil {
				slog.Error("Error inserting batch of recent routes", "batch_size", len(batch), "error", err)
			} else {
				slog.Info("Recorded recent routes", "batch_size", len(batch))
			}
			batch = batch[:0] // Reset slice but keep capacity
		}
	}

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Flush any remaining routes before exiting
			c.drain(&batch)
			flushBatch()
			return ctx.Err()

		case <-ticker.C:
			flushBatch()

		case entry, ok := <-c.routeChan:
			if !ok {
				// Channel closed, flush any remaining routes
				flushBatch()
				return nil
			}

			if entry == nil {
				continue
			}

			batch = append(batch, entry)

			slog.Debug("Added recent route to batch",
				"id", entry.ID,
				"route", entry.Route,
				"current_batch_size", len(batch),
				"max_batch_size", c.batchSize,
			)

			if len(batch) >= c.batchSize {
				flushBatch()
			}
		}
	}
}

// drain moves routes already queued into the batch without blocking
func (c *RecentRouteRecorder) drain(batch *[]*models.RecentRoute) {
	for {
		select {
		case entry, ok := <-c.routeChan:
			if !ok {
				return
			}
			if entry != nil {
				*batch = append(*batch, entry)
			}
		default:
			return
		}
	}
}
