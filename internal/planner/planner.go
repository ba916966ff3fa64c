// Package planner runs the route to flight plan pipeline for one request at a time.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"route2lnm/internal/archive"
	"route2lnm/internal/lnmpln"
	"route2lnm/internal/models"
	"route2lnm/internal/resolver"
	"route2lnm/internal/route"

	"github.com/google/uuid"
)

// State is the pipeline stage a Planner is in
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateResolving
	StateComputing
	StateRendering
	StateArchiving
	StateExporting
)

var stateNames = [...]string{"idle", "validating", "resolving", "computing", "rendering", "archiving", "exporting"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ErrBusy is returned when a generation is requested while another is in flight
var ErrBusy = errors.New("a flight plan is already being generated")

// ValidationError reports a request that cannot produce a flight plan
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// CompletionListener is notified after a route has been fully exported
type CompletionListener interface {
	RouteCompleted(entry models.RecentRoute)
}

// ListenerFunc adapts a function to CompletionListener
type ListenerFunc func(entry models.RecentRoute)

func (f ListenerFunc) RouteCompleted(entry models.RecentRoute) {
	f(entry)
}

// Request is one generation request
type Request struct {
	Text     string // Free text with airport identifiers
	Settings models.PlanSettings
}

// Result describes a successful generation
type Result struct {
	Identifiers []string // Canonical identifiers in route order
	Settings    models.PlanSettings
	Summary     models.RouteSummary
	Documents   []models.Document
	ArchiveName string
	Archive     []byte
	Recent      models.RecentRoute
}

// Config holds the collaborators of a Planner
type Config struct {
	Resolver  *resolver.Resolver
	Routes    *route.Computer
	Generator *lnmpln.Generator
	Sink      archive.Sink
	Listener  CompletionListener // Optional
}

// Planner sequences resolution, route computation, rendering, archiving and export
type Planner struct {
	resolver   *resolver.Resolver
	routes     *route.Computer
	generator  *lnmpln.Generator
	sink       archive.Sink
	listener   CompletionListener
	generating atomic.Bool
	state      atomic.Int32
}

// New creates a new Planner
func New(cfg Config) (*Planner, error) {
	if cfg.Resolver == nil || cfg.Routes == nil || cfg.Generator == nil {
		return nil, fmt.Errorf("resolver, route computer and generator are required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	return &Planner{
		resolver:  cfg.Resolver,
		routes:    cfg.Routes,
		generator: cfg.Generator,
		sink:      cfg.Sink,
		listener:  cfg.Listener,
	}, nil
}

// Generating reports whether a request is in flight
func (p *Planner) Generating() bool {
	return p.generating.Load()
}

// State returns the current pipeline stage
func (p *Planner) State() State {
	return State(p.state.Load())
}

func (p *Planner) setState(s State) {
	p.state.Store(int32(s))
	slog.Debug("Planner state changed", "state", s.String())
}

// Generate turns the request into one archive of per-leg flight plans and hands it to the sink.
// Only one request runs at a time; concurrent callers get ErrBusy.
func (p *Planner) Generate(ctx context.Context, req Request) (*Result, error) {
	if !p.generating.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer func() {
		p.setState(StateIdle)
		p.generating.Store(false)
	}()

	p.setState(StateValidating)
	settings := req.Settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, &ValidationError{Field: "settings", Err: err}
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, &ValidationError{Field: "route", Err: errors.New("no airport identifiers given")}
	}

	p.setState(StateResolving)
	idents, err := p.resolver.Resolve(req.Text, settings.Simulator)
	if err != nil {
		slog.Info("Route could not be resolved", "simulator", settings.Simulator, "error", err)
		return nil, err
	}
	if len(idents) < 2 {
		return nil, &ValidationError{
			Field: "route",
			Err:   fmt.Errorf("at least 2 different airports are needed, got %d", len(idents)),
		}
	}

	p.setState(StateComputing)
	summary, err := p.routes.Compute(idents, settings.Simulator)
	if err != nil {
		slog.Error("Error computing route", "route", idents, "error", err)
		return nil, fmt.Errorf("failed to compute route: %w", err)
	}

	p.setState(StateRendering)
	first, last := idents[0], idents[len(idents)-1]
	created := p.generator.Now()
	comment := summary.Comment()

	docs := make([]models.Document, 0, len(summary.Legs))
	for _, leg := range summary.Legs {
		content, err := p.generator.Render(leg, settings, comment, created)
		if err != nil {
			slog.Error("Error rendering flight plan", "leg", leg.Index, "error", err)
			return nil, fmt.Errorf("failed to render leg %d: %w", leg.Index, err)
		}
		docs = append(docs, models.Document{
			Name:        archive.DocumentName(first, last, leg.Index, len(summary.Legs), leg.From.DisplayIdent, leg.To.DisplayIdent),
			Modified:    created,
			ContentType: lnmpln.ContentType,
			Content:     content,
		})
	}

	p.setState(StateArchiving)
	data, err := archive.Build(docs)
	if err != nil {
		slog.Error("Error building archive", "documents", len(docs), "error", err)
		return nil, err
	}

	p.setState(StateExporting)
	name := archive.ArchiveName(first, last)
	if err := p.sink.Persist(ctx, name, data); err != nil {
		slog.Error("Error exporting archive", "name", name, "error", err)
		var exportErr *archive.ExportError
		if errors.As(err, &exportErr) {
			return nil, err
		}
		return nil, &archive.ExportError{Name: name, Err: err}
	}

	recent := models.RecentRoute{
		ID:        uuid.NewString(),
		Route:     resolver.NormalizedText(req.Text),
		CreatedAt: created,
	}
	if p.listener != nil {
		p.listener.RouteCompleted(recent)
	}

	slog.Info("Generated flight plans",
		"archive", name,
		"legs", len(docs),
		"total_nm", summary.TotalNM,
		"simulator", settings.Simulator,
	)

	return &Result{
		Identifiers: idents,
		Settings:    settings,
		Summary:     summary,
		Documents:   docs,
		ArchiveName: name,
		Archive:     data,
		Recent:      recent,
	}, nil
}
