// Package server exposes the planner over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"route2lnm/internal/archive"
	"route2lnm/internal/database"
	"route2lnm/internal/directory"
	"route2lnm/internal/models"
	"route2lnm/internal/planner"
	"route2lnm/internal/resolver"

	"github.com/gorilla/mux"
)

// Planner generates flight plan archives
type Planner interface {
	Generate(ctx context.Context, req planner.Request) (*planner.Result, error)
}

// Server holds the dependencies of the HTTP handlers
type Server struct {
	planner  Planner
	dir      directory.Lookup
	recent   database.RecentRouteRepository
	defaults models.PlanSettings
}

// New creates a Server. defaults fill in plan settings a request leaves out.
func New(p Planner, dir directory.Lookup, recent database.RecentRouteRepository, defaults models.PlanSettings) *Server {
	return &Server{
		planner:  p,
		dir:      dir,
		recent:   recent,
		defaults: defaults,
	}
}

// NewRouter creates and configures a new router with all API endpoints
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(logRequests)

	// Flight plan generation
	api.HandleFunc("/plans", s.CreatePlans).Methods("POST")

	// Airport directory
	api.HandleFunc("/airports/{ident}", s.GetAirport).Methods("GET")

	// Recent routes history
	api.HandleFunc("/recent", s.ListRecent).Methods("GET")
	api.HandleFunc("/recent", s.DeleteRecent).Methods("DELETE")

	return r
}

// PlanRequest is the body of POST /api/plans. Empty settings use the server defaults.
type PlanRequest struct {
	Route     string `json:"route"`
	Simulator string `json:"simulator,omitempty"`
	Rules     string `json:"rules,omitempty"`
	Altitude  int    `json:"altitude,omitempty"`
	Aircraft  string `json:"aircraft,omitempty"`
}

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error      string   `json:"error"`
	Unresolved []string `json:"unresolved,omitempty"`
}

type airportResponse struct {
	Ident     string              `json:"ident"`
	Name      string              `json:"name"`
	Latitude  float64             `json:"latitude"`
	Longitude float64             `json:"longitude"`
	Elevation int                 `json:"elevation"`
	Aliases   map[string][]string `json:"aliases"`
}

type recentResponse struct {
	ID        string `json:"id"`
	Route     string `json:"route"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) settings(req PlanRequest) models.PlanSettings {
	settings := s.defaults
	if req.Simulator != "" {
		settings.Simulator = models.Simulator(req.Simulator)
	}
	if req.Rules != "" {
		settings.Rule = models.FlightRule(req.Rules)
	}
	if req.Altitude != 0 {
		settings.Altitude = req.Altitude
	}
	if req.Aircraft != "" {
		settings.AircraftType = req.Aircraft
	}
	return settings
}

// CreatePlans generates the flight plans for a route and returns the archive as an attachment
func (s *Server) CreatePlans(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := s.planner.Generate(r.Context(), planner.Request{Text: req.Route, Settings: s.settings(req)})
	if err != nil {
		var resErr *resolver.ResolutionError
		var valErr *planner.ValidationError
		switch {
		case errors.As(err, &resErr):
			writeError(w, http.StatusUnprocessableEntity, ErrorResponse{Error: resErr.Error(), Unresolved: resErr.Unresolved})
		case errors.As(err, &valErr):
			writeError(w, http.StatusBadRequest, ErrorResponse{Error: valErr.Error()})
		case errors.Is(err, planner.ErrBusy):
			writeError(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
		default:
			slog.Error("Error generating flight plans", "error", err)
			writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to generate flight plans"})
		}
		return
	}

	w.Header().Set("Content-Type", archive.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.ArchiveName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Archive)))
	if _, err := w.Write(result.Archive); err != nil {
		slog.Warn("Error writing archive response", "error", err)
	}
}

// GetAirport returns a directory entry. With ?simulator=, simulator aliases are accepted too.
func (s *Server) GetAirport(w http.ResponseWriter, r *http.Request) {
	ident := strings.ToUpper(mux.Vars(r)["ident"])

	ap, ok := s.dir.Lookup(ident)
	if !ok {
		if simParam := r.URL.Query().Get("simulator"); simParam != "" {
			sim, err := models.ParseSimulator(simParam)
			if err != nil {
				writeError(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
				return
			}
			if canonical, found := s.dir.FindByAlias(sim, ident); found {
				ap, ok = s.dir.Lookup(canonical)
			}
		}
	}
	if !ok {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "airport not found: " + ident})
		return
	}

	resp := airportResponse{
		Ident:     ap.Ident,
		Name:      ap.Name,
		Latitude:  ap.Latitude,
		Longitude: ap.Longitude,
		Elevation: ap.Elevation,
		Aliases:   make(map[string][]string, len(models.Simulators)),
	}
	for _, sim := range models.Simulators {
		aliases := ap.Aliases[sim]
		if aliases == nil {
			aliases = []string{}
		}
		resp.Aliases[string(sim)] = aliases
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRecent returns the recent routes, newest first
func (s *Server) ListRecent(w http.ResponseWriter, r *http.Request) {
	routes, err := s.recent.List()
	if err != nil {
		slog.Error("Error listing recent routes", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to list recent routes"})
		return
	}

	resp := make([]recentResponse, 0, len(routes))
	for _, route := range routes {
		resp = append(resp, recentResponse{
			ID:        route.ID,
			Route:     route.Route,
			CreatedAt: route.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteRecent removes the recent routes listed in ?ids=a,b
func (s *Server) DeleteRecent(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "ids is required"})
		return
	}

	removed, err := s.recent.Remove(ids)
	if err != nil {
		slog.Error("Error removing recent routes", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to remove recent routes"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Error writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	writeJSON(w, status, resp)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
