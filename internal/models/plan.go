package models

import (
	"fmt"
	"strings"
)

// Simulator identifies which simulator's alias column is consulted
type Simulator string

const (
	SimulatorFSX      Simulator = "fsx"
	SimulatorMSFS     Simulator = "msfs"
	SimulatorXPlane11 Simulator = "xplane11"
)

// Simulators lists the supported simulators in display order
var Simulators = []Simulator{SimulatorFSX, SimulatorMSFS, SimulatorXPlane11}

var simulatorLabels = map[Simulator]string{
	SimulatorFSX:      "FSX",
	SimulatorMSFS:     "MSFS",
	SimulatorXPlane11: "XP11",
}

// ParseSimulator parses a simulator key, case-insensitively
func ParseSimulator(s string) (Simulator, error) {
	sim := Simulator(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := simulatorLabels[sim]; !ok {
		return "", fmt.Errorf("unknown simulator: %q (must be fsx, msfs, or xplane11)", s)
	}
	return sim, nil
}

// Label returns the short display label (e.g., XP11)
func (s Simulator) Label() string {
	if label, ok := simulatorLabels[s]; ok {
		return label
	}
	return strings.ToUpper(string(s))
}

// Upper returns the simulator key in upper case, as used in "Missing in" annotations
func (s Simulator) Upper() string {
	return strings.ToUpper(string(s))
}

// FlightRule is the flight plan type written to the plan header
type FlightRule string

const (
	RuleVFR FlightRule = "VFR"
	RuleIFR FlightRule = "IFR"
)

// ParseFlightRule parses VFR or IFR, case-insensitively
func ParseFlightRule(s string) (FlightRule, error) {
	switch rule := FlightRule(strings.ToUpper(strings.TrimSpace(s))); rule {
	case RuleVFR, RuleIFR:
		return rule, nil
	default:
		return "", fmt.Errorf("unknown flight rule: %q (must be VFR or IFR)", s)
	}
}

// DefaultAircraftType is used when no aircraft type is given
const DefaultAircraftType = "C172"

// PlanSettings holds the plan-wide values of one generation request
type PlanSettings struct {
	Simulator    Simulator
	Rule         FlightRule
	Altitude     int    // Cruising altitude in feet
	AircraftType string // ICAO type designator, upper case
}

// Normalize returns a copy with the enum keys and the aircraft type canonicalized
func (p PlanSettings) Normalize() PlanSettings {
	p.Simulator = Simulator(strings.ToLower(strings.TrimSpace(string(p.Simulator))))
	p.Rule = FlightRule(strings.ToUpper(strings.TrimSpace(string(p.Rule))))
	p.AircraftType = strings.ToUpper(strings.TrimSpace(p.AircraftType))
	if p.AircraftType == "" {
		p.AircraftType = DefaultAircraftType
	}
	return p
}

// Validate checks the settings are usable for rendering
func (p PlanSettings) Validate() error {
	if _, err := ParseSimulator(string(p.Simulator)); err != nil {
		return err
	}
	if _, err := ParseFlightRule(string(p.Rule)); err != nil {
		return err
	}
	if p.Altitude <= 0 {
		return fmt.Errorf("cruising altitude must be greater than 0, got %d", p.Altitude)
	}
	if p.AircraftType == "" {
		return fmt.Errorf("aircraft type is required")
	}
	return nil
}
