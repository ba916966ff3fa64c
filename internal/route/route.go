package route

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"route2lnm/internal/directory"
	"route2lnm/internal/models"

	"github.com/skypies/geo"
)

// DefaultLabel prefixes the canonical identifier in alias substitution comments
const DefaultLabel = "FSE"

// Computer builds waypoints and legs for a resolved route
type Computer struct {
	dir   directory.Lookup
	label string
}

// New creates a Computer. label names the canonical dataset in waypoint comments.
func New(dir directory.Lookup, label string) *Computer {
	if label == "" {
		label = DefaultLabel
	}
	return &Computer{dir: dir, label: label}
}

// Waypoints builds one waypoint per canonical identifier, as the simulator sees it
func (c *Computer) Waypoints(idents []string, sim models.Simulator) ([]models.Waypoint, error) {
	if len(idents) == 0 {
		return nil, fmt.Errorf("route has no identifiers")
	}

	waypoints := make([]models.Waypoint, 0, len(idents))
	for i, ident := range idents {
		ap, ok := c.dir.Lookup(ident)
		if !ok {
			return nil, fmt.Errorf("identifier %s is not in the airport directory", ident)
		}
		waypoints = append(waypoints, c.waypoint(i, ap, sim))
	}
	return waypoints, nil
}

func (c *Computer) waypoint(index int, ap models.Airport, sim models.Simulator) models.Waypoint {
	wp := models.Waypoint{
		Index:        index,
		Ident:        ap.Ident,
		DisplayIdent: ap.Ident,
		Kind:         models.KindUserpoint,
		Name:         CleanName(ap.Name),
		Latitude:     ap.Latitude,
		Longitude:    ap.Longitude,
		Elevation:    ap.Elevation,
	}

	alias, ok := ap.Alias(sim)
	switch {
	case !ok:
		wp.Comment = "Missing in " + sim.Upper()
	case alias != ap.Ident:
		wp.Kind = models.KindAirport
		wp.DisplayIdent = alias
		wp.Comment = c.label + ": " + ap.Ident
	default:
		wp.Kind = models.KindAirport
	}
	return wp
}

// Compute returns the legs between consecutive identifiers and their total distance
func (c *Computer) Compute(idents []string, sim models.Simulator) (models.RouteSummary, error) {
	waypoints, err := c.Waypoints(idents, sim)
	if err != nil {
		return models.RouteSummary{}, err
	}

	var summary models.RouteSummary
	for i := 0; i+1 < len(waypoints); i++ {
		from, to := waypoints[i], waypoints[i+1]
		leg := models.Leg{
			Index:      i + 1,
			From:       from,
			To:         to,
			DistanceNM: DistanceNM(from.Latitude, from.Longitude, to.Latitude, to.Longitude),
		}
		leg.Description = fmt.Sprintf("Leg %d: %s -> %s [%dNM]",
			leg.Index, describe(from, sim), describe(to, sim), leg.DistanceNM)

		summary.Legs = append(summary.Legs, leg)
		summary.TotalNM += leg.DistanceNM
	}

	return summary, nil
}

func describe(wp models.Waypoint, sim models.Simulator) string {
	switch {
	case wp.Kind == models.KindUserpoint:
		return fmt.Sprintf("%s (missing in %s)", wp.Ident, sim.Upper())
	case wp.DisplayIdent != wp.Ident:
		return fmt.Sprintf("%s (%s)", wp.DisplayIdent, wp.Ident)
	default:
		return wp.Ident
	}
}

// DistanceNM returns the great-circle distance between two positions in nautical miles,
// rounded to the nearest whole number. The endpoints are put in a fixed order first so
// the result does not depend on the direction of travel.
func DistanceNM(lat1, lon1, lat2, lon2 float64) int {
	a := geo.Latlong{Lat: lat1, Long: lon1}
	b := geo.Latlong{Lat: lat2, Long: lon2}
	if b.Lat < a.Lat || (b.Lat == a.Lat && b.Long < a.Long) {
		a, b = b, a
	}
	return int(math.Round(a.DistNM(b)))
}

// CleanName replaces every character that is not a letter with a space
func CleanName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return ' '
	}, name)
}
