// Package directorytest provides a small airport directory for tests.
package directorytest

import (
	"route2lnm/internal/directory"
	"route2lnm/internal/models"
)

func all(ident string) map[models.Simulator][]string {
	return map[models.Simulator][]string{
		models.SimulatorFSX:      {ident},
		models.SimulatorMSFS:     {ident},
		models.SimulatorXPlane11: {ident},
	}
}

// Airports returns the fixture records
//
// PAUK is known to MSFS as UAK1 (or AUK) and is absent from X-Plane 11.
func Airports() []models.Airport {
	return []models.Airport{
		{Ident: "KJFK", Name: "John F Kennedy Intl", Latitude: 40.639801, Longitude: -73.7789, Elevation: 13, Aliases: all("KJFK")},
		{Ident: "KBOS", Name: "General Edward Lawrence Logan Intl", Latitude: 42.3643, Longitude: -71.005203, Elevation: 20, Aliases: all("KBOS")},
		{Ident: "KPVD", Name: "Theodore Francis Green State", Latitude: 41.725038, Longitude: -71.425668, Elevation: 55, Aliases: all("KPVD")},
		{Ident: "EGLL", Name: "London Heathrow", Latitude: 51.4706, Longitude: -0.461941, Elevation: 83, Aliases: all("EGLL")},
		{
			Ident: "PAUK", Name: "Alakanuk", Latitude: 62.68, Longitude: -164.66, Elevation: 10,
			Aliases: map[models.Simulator][]string{
				models.SimulatorFSX:      {"PAUK"},
				models.SimulatorMSFS:     {"UAK1", "AUK"},
				models.SimulatorXPlane11: {},
			},
		},
	}
}

// New returns a Directory over the fixture airports
func New() *directory.Directory {
	return directory.New(Airports())
}
