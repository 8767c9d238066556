// Package chart composes county series into chart specifications and renders them.
package chart

import (
	"fmt"

	"github.com/i474232898/covid-county-charts/internal/common"
	"github.com/i474232898/covid-county-charts/internal/covid"
)

// MinYCeiling is the smallest upper bound of a single-series y axis, so a
// handful of daily deaths is not stretched across the whole chart.
const MinYCeiling = 10

const (
	PrimaryAxis   = 0
	SecondaryAxis = 1
)

// Point is one x/y value of a trace.
type Point struct {
	X string
	Y int64
}

// Trace is a named line bound to one of the spec's y axes.
type Trace struct {
	Name   string
	Axis   int
	Points []Point
}

// Axis describes a y axis. Nil Min/Max leave the range to the renderer.
type Axis struct {
	Title string
	Min   *float64
	Max   *float64
}

// Spec is a renderer independent chart description.
type Spec struct {
	Title      string
	Subtitle   string
	XAxisTitle string
	Axes       []Axis
	Traces     []Trace
}

// BuildCountyChart overlays deaths (primary axis) and cases (secondary axis).
// Each trace keeps its own dates; no alignment is attempted.
func BuildCountyChart(deaths, cases covid.Series, county string) (Spec, error) {
	deathPoints, err := tracePoints(deaths)
	if err != nil {
		return Spec{}, err
	}
	casePoints, err := tracePoints(cases)
	if err != nil {
		return Spec{}, err
	}

	return Spec{
		Title:      fmt.Sprintf("%s County Death/Cases Data", common.TitleCounty(county)),
		XAxisTitle: "Date",
		Axes: []Axis{
			{Title: "Daily Deaths"},
			{Title: "Daily Cases"},
		},
		Traces: []Trace{
			{Name: covid.Deaths.Label(), Axis: PrimaryAxis, Points: deathPoints},
			{Name: covid.Cases.Label(), Axis: SecondaryAxis, Points: casePoints},
		},
	}, nil
}

// BuildSingleSeries charts one series with its y range clamped to at least [0, MinYCeiling].
func BuildSingleSeries(series covid.Series, county string) (Spec, error) {
	points, err := tracePoints(series)
	if err != nil {
		return Spec{}, err
	}

	var maxY int64
	for _, p := range points {
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	lo, hi := YRange(maxY)

	label := series.Kind.Label()
	return Spec{
		Title:      fmt.Sprintf("%s County %s Data", common.TitleCounty(county), singular(label)),
		XAxisTitle: "Date",
		Axes: []Axis{
			{Title: "Daily " + label, Min: &lo, Max: &hi},
		},
		Traces: []Trace{
			{Name: label, Axis: PrimaryAxis, Points: points},
		},
	}, nil
}

// YRange returns the single-series y range for an observed maximum.
func YRange(maxY int64) (float64, float64) {
	if maxY < MinYCeiling {
		return 0, MinYCeiling
	}
	return 0, float64(maxY)
}

func tracePoints(s covid.Series) ([]Point, error) {
	pts, err := s.Points()
	if err != nil {
		return nil, err
	}
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: p.Date, Y: p.Value}
	}
	return out, nil
}

func singular(label string) string {
	switch label {
	case "Deaths":
		return "Death"
	case "Cases":
		return "Case"
	}
	return label
}
