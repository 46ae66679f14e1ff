// Package exposure assigns exposure times to an energy sequence from an
// ordered list of energy rules.
package exposure

import "math"

// LongStepSeconds is the estimate above which a scan step deserves a warning.
const LongStepSeconds = 1800

// Band is a contiguous run of energies covered by the same rule.
type Band struct {
	Rule     int     `json:"rule" yaml:"rule"`
	Start    int     `json:"start" yaml:"start"`
	Count    int     `json:"count" yaml:"count"`
	Exposure float64 `json:"exposure" yaml:"exposure"`
}

// Assignment holds one exposure per energy and the bands they form.
type Assignment struct {
	Times []float64
	Bands []Band
}

// Assign maps policy over energies and multiplies every time by scale.
// Nothing is returned on error.
func Assign(energies []float64, policy Policy, scale float64) (Assignment, error) {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return Assignment{}, invalid("scale %g must be positive", scale)
	}
	if err := policy.Validate(); err != nil {
		return Assignment{}, err
	}

	times := make([]float64, len(energies))
	var bands []Band
	for i, e := range energies {
		idx := policy.Match(e)
		if idx < 0 {
			return Assignment{}, &NoMatchingRuleError{Index: i, Energy: e}
		}
		t := policy[idx].Value * scale
		times[i] = t
		if n := len(bands); n > 0 && bands[n-1].Rule == idx {
			bands[n-1].Count++
			continue
		}
		bands = append(bands, Band{Rule: idx, Start: i, Count: 1, Exposure: t})
	}
	return Assignment{Times: times, Bands: bands}, nil
}

// Estimate returns the seconds a step scan over times takes with each
// exposure taken repeats times: one second between repeats and four
// seconds of overhead per energy.
func Estimate(times []float64, repeats int) (float64, error) {
	if repeats < 1 || repeats > 100 {
		return 0, invalid("repeats %d must be between 1 and 100", repeats)
	}
	var total float64
	for _, t := range times {
		total += t*float64(repeats) + float64(repeats-1)
	}
	return total + 4*float64(len(times)), nil
}
