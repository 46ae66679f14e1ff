// Package nexafs computes fly-scan parameters for NEXAFS edges: one segment
// per region, each run at its own speed.
package nexafs

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"rsoxsplan/internal/energy"
	"rsoxsplan/internal/preset"
)

// Segment is one constant-speed part of a fly scan.
type Segment struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Speed float64 `json:"speed" yaml:"speed"` // eV/s
}

// Seconds is the time to fly the segment.
func (s Segment) Seconds() float64 {
	return math.Abs(s.End-s.Start) / s.Speed
}

// Params resolves edges against the NEXAFS edge table and returns the
// segments plus the total flight time in seconds. speed is a preset name
// or a number in eV/s; an empty ratio spec uses the catalog default.
func Params(cat *preset.Catalog, edges energy.EdgeSpec, speed string, ratios energy.RatioSpec) ([]Segment, float64, error) {
	if cat == nil {
		cat = preset.Default()
	}

	var name string
	var thresholds []float64
	switch edges.Kind() {
	case energy.EdgeNamed:
		canonical, t, ok := cat.NexafsEdge(edges.Name())
		if !ok {
			return nil, 0, &energy.UnknownPresetError{Kind: "edge", Name: edges.Name()}
		}
		name, thresholds = canonical, t
	case energy.EdgeList:
		thresholds = edges.Values()
	default:
		return nil, 0, &energy.InvalidEdgesError{Reason: "a fly scan needs at least two thresholds"}
	}
	if len(thresholds) < 2 {
		return nil, 0, &energy.InvalidEdgesError{Reason: "a fly scan needs at least two thresholds"}
	}

	base, err := resolveSpeed(cat, speed)
	if err != nil {
		return nil, 0, err
	}

	r, err := resolveRatios(cat, name, len(thresholds), ratios)
	if err != nil {
		return nil, 0, err
	}

	segs := make([]Segment, len(r))
	var seconds float64
	for i, ratio := range r {
		segs[i] = Segment{Start: thresholds[i], End: thresholds[i+1], Speed: ratio * base}
		seconds += segs[i].Seconds()
	}
	return segs, seconds, nil
}

func resolveSpeed(cat *preset.Catalog, speed string) (float64, error) {
	if v, ok := cat.Speed(speed); ok {
		return v, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(speed), 64)
	if err != nil {
		return 0, &energy.UnknownPresetError{Kind: "speed", Name: speed}
	}
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &energy.InvalidEdgesError{Reason: fmt.Sprintf("speed %g eV/s must be positive", v)}
	}
	return v, nil
}

func resolveRatios(cat *preset.Catalog, edge string, n int, spec energy.RatioSpec) ([]float64, error) {
	var r []float64
	switch {
	case spec.Name != "":
		t, ok := cat.RatioTable(spec.Name)
		if !ok {
			return nil, &energy.UnknownPresetError{Kind: "ratios", Name: spec.Name}
		}
		r = t
	case len(spec.Values) > 0:
		r = slices.Clone(spec.Values)
	default:
		r = cat.NexafsRatios(edge, n)
		if len(r) == 0 {
			r = make([]float64, n-1)
			for i := range r {
				r[i] = 1
			}
		}
	}
	if len(r) != n-1 {
		return nil, &energy.FrameCountMismatchError{What: "ratios", Got: len(r), Want: n - 1}
	}
	for _, v := range r {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &energy.InvalidEdgesError{Reason: fmt.Sprintf("speed ratio %g must be positive", v)}
		}
	}
	return r, nil
}
