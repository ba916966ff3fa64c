// Package lnmpln builds Little Navmap flight plan documents.
package lnmpln

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"route2lnm/internal/models"
)

const (
	Extension      = ".lnmpln"
	ContentType    = "text/xml"
	SchemaLocation = "https://www.littlenavmap.org/schema/lnmpln.xsd"
	xsiNamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	fileVersion    = "1.0"

	// creationDateLayout matches ISO-8601 with milliseconds in UTC
	creationDateLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Plan is the root element of an .lnmpln file
type Plan struct {
	XMLName        xml.Name   `xml:"LittleNavmap"`
	XSI            string     `xml:"xmlns:xsi,attr"`
	SchemaLocation string     `xml:"xsi:noNamespaceSchemaLocation,attr"`
	Flightplan     Flightplan `xml:"Flightplan"`
}

type Flightplan struct {
	Header              Header              `xml:"Header"`
	AircraftPerformance AircraftPerformance `xml:"AircraftPerformance"`
	Waypoints           []Waypoint          `xml:"Waypoints>Waypoint"`
}

type Header struct {
	FlightplanType string `xml:"FlightplanType"`
	CruisingAlt    int    `xml:"CruisingAlt"`
	CruisingAltF   string `xml:"CruisingAltF"`
	CreationDate   string `xml:"CreationDate"`
	FileVersion    string `xml:"FileVersion"`
	ProgramName    string `xml:"ProgramName"`
	ProgramVersion string `xml:"ProgramVersion"`
	Documentation  string `xml:"Documentation"`
	Comment        string `xml:"Comment"`
}

type AircraftPerformance struct {
	Type string `xml:"Type"`
	Name string `xml:"Name"`
}

type Waypoint struct {
	Name    string   `xml:"Name"`
	Ident   string   `xml:"Ident"`
	Type    string   `xml:"Type"`
	Pos     Position `xml:"Pos"`
	Comment string   `xml:"Comment"`
}

type Position struct {
	Lon string `xml:"Lon,attr"`
	Lat string `xml:"Lat,attr"`
	Alt string `xml:"Alt,attr"`
}

// Generator renders one plan per leg. The zero value is not usable; use NewGenerator.
type Generator struct {
	programName    string
	programVersion string
	documentation  string
	now            func() time.Time
}

// NewGenerator creates a Generator that stamps documents with the given program identity
func NewGenerator(programName, programVersion, documentation string) *Generator {
	return &Generator{
		programName:    programName,
		programVersion: programVersion,
		documentation:  documentation,
		now:            time.Now,
	}
}

// WithClock replaces the clock used for creation dates
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Now returns the current time of the generator's clock
func (g *Generator) Now() time.Time {
	return g.now()
}

// Build assembles the plan for one leg without serializing it
func (g *Generator) Build(leg models.Leg, settings models.PlanSettings, comment string, created time.Time) Plan {
	return Plan{
		XSI:            xsiNamespace,
		SchemaLocation: SchemaLocation,
		Flightplan: Flightplan{
			Header: Header{
				FlightplanType: string(settings.Rule),
				CruisingAlt:    settings.Altitude,
				CruisingAltF:   strconv.FormatFloat(float64(settings.Altitude), 'f', 1, 64),
				CreationDate:   created.UTC().Format(creationDateLayout),
				FileVersion:    fileVersion,
				ProgramName:    g.programName,
				ProgramVersion: g.programVersion,
				Documentation:  g.documentation,
				Comment:        comment,
			},
			AircraftPerformance: AircraftPerformance{
				Type: settings.AircraftType,
				Name: settings.AircraftType + " Performance Normal Operation",
			},
			Waypoints: []Waypoint{toWaypoint(leg.From), toWaypoint(leg.To)},
		},
	}
}

func toWaypoint(wp models.Waypoint) Waypoint {
	return Waypoint{
		Name:  wp.Name,
		Ident: wp.DisplayIdent,
		Type:  string(wp.Kind),
		Pos: Position{
			Lon: strconv.FormatFloat(wp.Longitude, 'f', -1, 64),
			Lat: strconv.FormatFloat(wp.Latitude, 'f', -1, 64),
			Alt: strconv.Itoa(wp.Elevation) + ".00",
		},
		Comment: wp.Comment,
	}
}

// Render builds and serializes the plan for one leg
func (g *Generator) Render(leg models.Leg, settings models.PlanSettings, comment string, created time.Time) ([]byte, error) {
	plan := g.Build(leg, settings, comment, created)
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan for leg %d: %w", leg.Index, err)
	}
	return plan.Marshal()
}

// Validate checks the fields Little Navmap needs to open the plan
func (p Plan) Validate() error {
	h := p.Flightplan.Header
	if _, err := models.ParseFlightRule(h.FlightplanType); err != nil {
		return err
	}
	if h.CruisingAlt <= 0 {
		return fmt.Errorf("cruising altitude must be greater than 0")
	}
	if p.Flightplan.AircraftPerformance.Type == "" {
		return fmt.Errorf("aircraft type is required")
	}
	if n := len(p.Flightplan.Waypoints); n != 2 {
		return fmt.Errorf("a leg plan needs exactly 2 waypoints, got %d", n)
	}
	for i, wp := range p.Flightplan.Waypoints {
		if wp.Ident == "" {
			return fmt.Errorf("waypoint %d has no identifier", i)
		}
		if wp.Type != string(models.KindAirport) && wp.Type != string(models.KindUserpoint) {
			return fmt.Errorf("waypoint %s has unknown type %q", wp.Ident, wp.Type)
		}
	}
	return nil
}

// Marshal serializes the plan with an XML declaration and two-space indentation
func (p Plan) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Parse decodes an .lnmpln document
func Parse(data []byte) (*Plan, error) {
	var plan Plan
	if err := xml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &plan, nil
}
