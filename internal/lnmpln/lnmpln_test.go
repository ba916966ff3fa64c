package lnmpln

import (
	"strings"
	"testing"
	"time"

	"route2lnm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLeg() models.Leg {
	return models.Leg{
		Index: 1,
		From: models.Waypoint{
			Index: 0, Ident: "KJFK", DisplayIdent: "KJFK", Kind: models.KindAirport,
			Name: "John F Kennedy Intl", Latitude: 40.639801, Longitude: -73.7789, Elevation: 13,
		},
		To: models.Waypoint{
			Index: 1, Ident: "PAUK", DisplayIdent: "UAK1", Kind: models.KindAirport,
			Name: "Alakanuk", Latitude: 62.68, Longitude: -164.66, Elevation: 10, Comment: "FSE: PAUK",
		},
		DistanceNM:  2588,
		Description: "Leg 1: KJFK -> UAK1 (PAUK) [2588NM]",
	}
}

func testSettings() models.PlanSettings {
	return models.PlanSettings{
		Simulator:    models.SimulatorMSFS,
		Rule:         models.RuleVFR,
		Altitude:     5000,
		AircraftType: "C172",
	}
}

func TestRender(t *testing.T) {
	g := NewGenerator("route2lnm", "1.0.0", "https://example.org/docs")
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	data, err := g.Render(testLeg(), testSettings(), "Leg 1: KJFK -> UAK1 (PAUK) [2588NM]\nTotal: 2588NM", created)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(data), `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, string(data), `xsi:noNamespaceSchemaLocation="`+SchemaLocation+`"`)
	assert.Contains(t, string(data), `xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`)

	plan, err := Parse(data)
	require.NoError(t, err)

	h := plan.Flightplan.Header
	assert.Equal(t, "VFR", h.FlightplanType)
	assert.Equal(t, 5000, h.CruisingAlt)
	assert.Equal(t, "5000.0", h.CruisingAltF)
	assert.Equal(t, "2024-05-01T12:00:00.000Z", h.CreationDate)
	assert.Equal(t, "1.0", h.FileVersion)
	assert.Equal(t, "route2lnm", h.ProgramName)
	assert.Equal(t, "1.0.0", h.ProgramVersion)
	assert.Equal(t, "Leg 1: KJFK -> UAK1 (PAUK) [2588NM]\nTotal: 2588NM", h.Comment)

	assert.Equal(t, "C172", plan.Flightplan.AircraftPerformance.Type)
	assert.Equal(t, "C172 Performance Normal Operation", plan.Flightplan.AircraftPerformance.Name)

	require.Len(t, plan.Flightplan.Waypoints, 2)
	from, to := plan.Flightplan.Waypoints[0], plan.Flightplan.Waypoints[1]

	assert.Equal(t, "KJFK", from.Ident)
	assert.Equal(t, "AIRPORT", from.Type)
	assert.Equal(t, Position{Lon: "-73.7789", Lat: "40.639801", Alt: "13.00"}, from.Pos)
	assert.Empty(t, from.Comment)

	assert.Equal(t, "UAK1", to.Ident)
	assert.Equal(t, "Alakanuk", to.Name)
	assert.Equal(t, Position{Lon: "-164.66", Lat: "62.68", Alt: "10.00"}, to.Pos)
	assert.Equal(t, "FSE: PAUK", to.Comment)
}

func TestRender_NonUTCCreationDate(t *testing.T) {
	g := NewGenerator("route2lnm", "1.0.0", "")
	created := time.Date(2024, 5, 1, 14, 30, 15, 250_000_000, time.FixedZone("CEST", 2*3600))

	data, err := g.Render(testLeg(), testSettings(), "", created)
	require.NoError(t, err)

	plan, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T12:30:15.250Z", plan.Flightplan.Header.CreationDate)
}

func TestRender_Deterministic(t *testing.T) {
	g := NewGenerator("route2lnm", "1.0.0", "")
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := g.Render(testLeg(), testSettings(), "Total: 2588NM", created)
	require.NoError(t, err)
	second, err := g.Render(testLeg(), testSettings(), "Total: 2588NM", created)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	later, err := g.Render(testLeg(), testSettings(), "Total: 2588NM", created.Add(time.Hour))
	require.NoError(t, err)
	assert.NotEqual(t, first, later)

	stripped := strings.Replace(string(later), "2024-05-01T13:00:00.000Z", "2024-05-01T12:00:00.000Z", 1)
	assert.Equal(t, string(first), stripped)
}

func TestRender_EscapesOnce(t *testing.T) {
	g := NewGenerator("route2lnm", "1.0.0", "")
	leg := testLeg()
	leg.From.Name = "Tom & Jerry"
	leg.To.Comment = "$1 <note>"

	data, err := g.Render(leg, testSettings(), "A & B", time.Now())
	require.NoError(t, err)

	assert.Contains(t, string(data), "Tom &amp; Jerry")
	assert.NotContains(t, string(data), "&amp;amp;")
	assert.Contains(t, string(data), "$1 &lt;note&gt;")

	plan, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry", plan.Flightplan.Waypoints[0].Name)
	assert.Equal(t, "$1 <note>", plan.Flightplan.Waypoints[1].Comment)
	assert.Equal(t, "A & B", plan.Flightplan.Header.Comment)
}

func TestRender_Userpoint(t *testing.T) {
	g := NewGenerator("route2lnm", "1.0.0", "")
	leg := testLeg()
	leg.To.DisplayIdent = "PAUK"
	leg.To.Kind = models.KindUserpoint
	leg.To.Comment = "Missing in XPLANE11"

	data, err := g.Render(leg, testSettings(), "", time.Now())
	require.NoError(t, err)

	plan, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "USERPOINT", plan.Flightplan.Waypoints[1].Type)
	assert.Equal(t, "PAUK", plan.Flightplan.Waypoints[1].Ident)
	assert.Equal(t, "Missing in XPLANE11", plan.Flightplan.Waypoints[1].Comment)
}

func TestValidate(t *testing.T) {
	g := NewGenerator("route2lnm", "1.0.0", "")
	created := time.Now()

	tests := []struct {
		name   string
		mutate func(p *Plan)
	}{
		{name: "bad rule", mutate: func(p *Plan) { p.Flightplan.Header.FlightplanType = "SVFR" }},
		{name: "zero altitude", mutate: func(p *Plan) { p.Flightplan.Header.CruisingAlt = 0 }},
		{name: "no aircraft", mutate: func(p *Plan) { p.Flightplan.AircraftPerformance.Type = "" }},
		{name: "one waypoint", mutate: func(p *Plan) { p.Flightplan.Waypoints = p.Flightplan.Waypoints[:1] }},
		{name: "empty ident", mutate: func(p *Plan) { p.Flightplan.Waypoints[0].Ident = "" }},
		{name: "unknown type", mutate: func(p *Plan) { p.Flightplan.Waypoints[1].Type = "VOR" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := g.Build(testLeg(), testSettings(), "", created)
			require.NoError(t, plan.Validate())

			tt.mutate(&plan)
			assert.Error(t, plan.Validate())
		})
	}
}

func TestRender_InvalidSettings(t *testing.T) {
	g := NewGenerator("route2lnm", "1.0.0", "")
	settings := testSettings()
	settings.Altitude = -10

	_, err := g.Render(testLeg(), settings, "", time.Now())
	assert.Error(t, err)
}

func TestGenerator_Clock(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	g := NewGenerator("route2lnm", "1.0.0", "").WithClock(func() time.Time { return fixed })
	assert.Equal(t, fixed, g.Now())
}
