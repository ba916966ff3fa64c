package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimulator(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Simulator
		wantErr  bool
	}{
		{name: "msfs", input: "msfs", expected: SimulatorMSFS},
		{name: "upper case", input: "FSX", expected: SimulatorFSX},
		{name: "padded", input: " xplane11 ", expected: SimulatorXPlane11},
		{name: "unknown", input: "xplane12", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, err := ParseSimulator(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sim)
		})
	}
}

func TestSimulator_Labels(t *testing.T) {
	assert.Equal(t, "XP11", SimulatorXPlane11.Label())
	assert.Equal(t, "XPLANE11", SimulatorXPlane11.Upper())
	assert.Equal(t, "MSFS", SimulatorMSFS.Label())
}

func TestParseFlightRule(t *testing.T) {
	rule, err := ParseFlightRule("ifr")
	require.NoError(t, err)
	assert.Equal(t, RuleIFR, rule)

	_, err = ParseFlightRule("SVFR")
	assert.Error(t, err)
}

func TestPlanSettings_NormalizeAndValidate(t *testing.T) {
	settings := PlanSettings{
		Simulator:    "MSFS",
		Rule:         "vfr",
		Altitude:     5000,
		AircraftType: " c172 ",
	}.Normalize()

	assert.Equal(t, SimulatorMSFS, settings.Simulator)
	assert.Equal(t, RuleVFR, settings.Rule)
	assert.Equal(t, "C172", settings.AircraftType)
	assert.NoError(t, settings.Validate())

	blank := PlanSettings{Simulator: SimulatorFSX, Rule: RuleIFR, Altitude: 1000}.Normalize()
	assert.Equal(t, DefaultAircraftType, blank.AircraftType)

	bad := settings
	bad.Altitude = 0
	assert.Error(t, bad.Validate())

	bad = settings
	bad.Simulator = "p3d"
	assert.Error(t, bad.Validate())
}

func TestAirport_Alias(t *testing.T) {
	airport := Airport{
		Ident: "PAUK",
		Aliases: map[Simulator][]string{
			SimulatorMSFS:     {"UAK1"},
			SimulatorFSX:      {"PAUK"},
			SimulatorXPlane11: {},
		},
	}

	alias, ok := airport.Alias(SimulatorMSFS)
	assert.True(t, ok)
	assert.Equal(t, "UAK1", alias)

	_, ok = airport.Alias(SimulatorXPlane11)
	assert.False(t, ok)

	assert.True(t, airport.HasAlias(SimulatorMSFS, "UAK1"))
	assert.False(t, airport.HasAlias(SimulatorFSX, "UAK1"))
}

func TestRouteSummary_Comment(t *testing.T) {
	summary := RouteSummary{
		Legs: []Leg{
			{Index: 1, DistanceNM: 162, Description: "Leg 1: KJFK -> KBOS [162NM]"},
			{Index: 2, DistanceNM: 40, Description: "Leg 2: KBOS -> KPVD [40NM]"},
		},
		TotalNM: 202,
	}

	assert.Equal(t, "Leg 1: KJFK -> KBOS [162NM]\nLeg 2: KBOS -> KPVD [40NM]\nTotal: 202NM", summary.Comment())
	assert.Equal(t, []int{162, 40}, summary.Distances())
}
