package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"route2lnm/internal/scheduler"
	"route2lnm/internal/tasks"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Daemon serves the HTTP API and runs the background tasks
type Daemon struct {
	addr      string
	handler   http.Handler
	recorder  *tasks.RecentRouteRecorder
	scheduler *scheduler.Scheduler
	tasks     []scheduler.Task
	ready     chan struct{}
	listener  net.Listener
}

// Config holds daemon configuration
type Config struct {
	Addr     string                     // HTTP listen address (e.g., "localhost:8080")
	Handler  http.Handler               // HTTP API
	Recorder *tasks.RecentRouteRecorder // Optional; started and stopped with the daemon
	Tasks    []scheduler.Task           // Periodic maintenance tasks
}

// New creates a new daemon instance
func New(cfg Config) (*Daemon, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("addr is required")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	return &Daemon{
		addr:     cfg.Addr,
		handler:  cfg.Handler,
		recorder: cfg.Recorder,
		tasks:    cfg.Tasks,
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once the HTTP listener is bound
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Addr returns the bound listen address. Only valid after Ready is closed.
func (d *Daemon) Addr() string {
	return d.listener.Addr().String()
}

// Run serves until ctx is cancelled or a component fails, then shuts everything down
func (d *Daemon) Run(ctx context.Context) error {
	slog.Info("Starting daemon")

	ln, err := net.Listen("tcp", d.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.addr, err)
	}
	d.listener = ln
	close(d.ready)

	g, gctx := errgroup.WithContext(ctx)

	d.scheduler = scheduler.New(gctx)
	for _, task := range d.tasks {
		d.scheduler.AddTask(task)
	}
	d.scheduler.Start()

	if d.recorder != nil {
		g.Go(func() error {
			if err := d.recorder.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("recent route recorder stopped: %w", err)
			}
			return nil
		})
	}

	srv := &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		slog.Info("HTTP API listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Stopping daemon")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error shutting down HTTP server", "error", err)
		}

		d.scheduler.Stop()
		return nil
	})

	slog.Info("Daemon started successfully", "addr", ln.Addr().String())

	err = g.Wait()
	slog.Info("Daemon stopped")
	return err
}
