package models

// Airport represents one entry of the airport reference dataset
// Aliases holds, per simulator, the identifiers that simulator's scenery uses for the airport
type Airport struct {
	Ident     string                 // Canonical identifier (e.g., KJFK)
	Name      string                 // Display name
	Latitude  float64                // Decimal degrees, WGS84
	Longitude float64                // Decimal degrees, WGS84
	Elevation int                    // Feet
	Aliases   map[Simulator][]string // Empty or missing list means not present in that simulator
}

// Alias returns the identifier the simulator uses for this airport.
// The second return value is false when the airport is not part of the simulator's dataset.
func (a Airport) Alias(sim Simulator) (string, bool) {
	for _, alias := range a.Aliases[sim] {
		if alias != "" {
			return alias, true
		}
	}
	return "", false
}

// HasAlias reports whether alias is listed for the airport under sim
func (a Airport) HasAlias(sim Simulator, alias string) bool {
	for _, candidate := range a.Aliases[sim] {
		if candidate == alias {
			return true
		}
	}
	return false
}
