package models

import (
	"fmt"
	"strings"
	"time"
)

// WaypointKind is the Little Navmap waypoint type
type WaypointKind string

const (
	KindAirport   WaypointKind = "AIRPORT"
	KindUserpoint WaypointKind = "USERPOINT" // Point the selected simulator does not know as an airport
)

// Waypoint is one resolved identifier of a route, ready to be written into a plan
type Waypoint struct {
	Index        int    // Position in the resolved route, 0-based
	Ident        string // Canonical identifier
	DisplayIdent string // Simulator alias, or Ident when the simulator has none
	Kind         WaypointKind
	Name         string
	Latitude     float64
	Longitude    float64
	Elevation    int
	Comment      string // Alias substitution or missing-in-simulator annotation
}

// Leg is one directed segment between two consecutive waypoints
type Leg struct {
	Index       int // 1-based
	From        Waypoint
	To          Waypoint
	DistanceNM  int
	Description string
}

// RouteSummary collects the legs of a route and their total distance
type RouteSummary struct {
	Legs    []Leg
	TotalNM int
}

// Distances returns the per-leg distances in order
func (s RouteSummary) Distances() []int {
	distances := make([]int, len(s.Legs))
	for i, leg := range s.Legs {
		distances[i] = leg.DistanceNM
	}
	return distances
}

// Comment renders the plan-wide header comment: one line per leg followed by the total
func (s RouteSummary) Comment() string {
	var b strings.Builder
	for _, leg := range s.Legs {
		b.WriteString(leg.Description)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total: %dNM", s.TotalNM)
	return b.String()
}

// Document is one generated flight plan file
type Document struct {
	Name        string
	Modified    time.Time
	ContentType string
	Content     []byte
}

// RecentRoute is an entry of the recent routes history
type RecentRoute struct {
	ID        string
	Route     string // Normalized identifier text, the deduplication key
	CreatedAt time.Time
}
