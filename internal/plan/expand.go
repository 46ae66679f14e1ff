package plan

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"rsoxsplan/internal/energy"
	"rsoxsplan/internal/exposure"
	"rsoxsplan/internal/nexafs"
)

// Beamline limits checked during a dry run.
const (
	minEnergy       = 70.0
	maxEnergy       = 2200.0
	maxExposure     = 10.0
	minPolarization = -1.0
	maxPolarization = 180.0
	minAngle        = -155.0
	maxAngle        = 195.0
	minTemperature  = 20.0
	maxTemperature  = 300.0

	changeSeconds     = 30 // per polarization or angle change
	spiralStepSeconds = 5

	defaultDiameter   = 1.8
	defaultSpiralStep = 0.3
	defaultRampSpeed  = 10
	defaultGrating    = "rsoxs"
)

// expansion is what one acquisition contributes to the queue.
type expansion struct {
	steps   []Step
	seconds float64
}

func (e *expansion) add(action, desc string, kwargs map[string]any) {
	e.steps = append(e.steps, Step{Action: action, Description: desc, Kwargs: kwargs})
}

func (e *expansion) fail(format string, args ...any) {
	e.add(ActionError, fmt.Sprintf(format, args...), nil)
}

// detector picks the main RSoXS detector for a configuration.
func detector(configuration string) (string, bool) {
	switch {
	case strings.HasPrefix(configuration, "WAXS"):
		return "waxs_det", true
	case strings.HasPrefix(configuration, "SAXS"):
		return "saxs_det", true
	}
	return "", false
}

func (p *Planner) expand(s *Sample, a *Acquisition) expansion {
	var x expansion
	x.add(ActionLoadConfiguration, "load configuration "+a.Configuration,
		map[string]any{"configuration": a.Configuration})
	x.add(ActionLoadSample, "load sample "+sampleLabel(s),
		map[string]any{"sample_id": s.ID, "sample_name": s.Name, "bar_spot": s.BarSpot})

	det, ok := detector(a.Configuration)
	if !ok {
		x.fail("configuration %q is not valid", a.Configuration)
	}

	switch strings.ToLower(strings.TrimSpace(a.Type)) {
	case "rsoxs":
		p.expandRSoXS(&x, a, det)
	case "nexafs":
		p.expandNEXAFS(&x, a)
	case "spiral":
		p.expandSpiral(&x, a, det)
	case "wait", "sleep", "pause":
		expandSleep(&x, a)
	case "":
		x.fail("no acquisition type specified")
	default:
		x.fail("acquisition type %q is not valid", a.Type)
	}
	return x
}

func sampleLabel(s *Sample) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

func orDefault(xs []float64, def float64) []float64 {
	if len(xs) == 0 {
		return []float64{def}
	}
	return xs
}

// outerLoops applies the polarization, angle and temperature multipliers to
// the seconds one inner scan takes.
func outerLoops(scan float64, pols, angles, temps int) float64 {
	total := scan*float64(pols) + changeSeconds*float64(pols)
	if angles > 0 {
		total = total*float64(angles) + changeSeconds*float64(angles)
	}
	if temps > 0 {
		total *= float64(temps)
	}
	return total
}

func (x *expansion) setup(a *Acquisition) {
	if len(a.Temperatures) > 0 {
		ramp := a.TempRampSpeed
		if ramp == 0 {
			ramp = defaultRampSpeed
		}
		x.add(ActionMove, fmt.Sprintf("set the temperature ramp rate to %g", ramp),
			map[string]any{"motor": "temp_ramp_rate", "position": ramp})
	}
	switch strings.ToLower(a.DiodeRange) {
	case "high", "":
		x.add(ActionDiodeHigh, "set diode range to high", nil)
	case "low":
		x.add(ActionDiodeLow, "set diode range to low", nil)
	}
}

func gratingOf(a *Acquisition) string {
	if a.Grating == "" {
		return defaultGrating
	}
	return a.Grating
}

// checkGrating reports problems running energies lo..hi on grating.
// maxLow is the ceiling of the 250 l/mm grating for this scan type.
func checkGrating(grating string, lo, hi, maxLow float64) []string {
	switch strings.ToLower(grating) {
	case "1200":
		if lo < 150 {
			return []string{fmt.Sprintf("energy %g eV is too low for the 1200 l/mm grating", lo)}
		}
	case "250", "rsoxs":
		if hi > maxLow {
			return []string{fmt.Sprintf("energy %g eV is too high for the 250 l/mm grating", hi)}
		}
	default:
		return []string{fmt.Sprintf("grating %q is not valid", grating)}
	}
	return nil
}

func checkRange(what string, values []float64, lo, hi float64) []string {
	var out []string
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out = append(out, fmt.Sprintf("%s %g is not a finite number", what, v))
			continue
		}
		if v < lo || v > hi {
			out = append(out, fmt.Sprintf("%s %g is outside %g..%g", what, v, lo, hi))
		}
	}
	return out
}

func (p *Planner) expandRSoXS(x *expansion, a *Acquisition, det string) {
	energies, err := p.builder.BuildRatios(a.Edge, a.Frames, a.Ratios)
	if err != nil {
		x.fail("energies for edge %s: %v", a.Edge, err)
		return
	}
	policy := a.Exposure
	if len(policy) == 0 {
		policy = exposure.Constant(1)
	}
	asg, err := exposure.Assign(energies, policy, 1)
	if err != nil {
		x.fail("exposure times: %v", err)
		return
	}
	repeats := a.Repeats
	if repeats == 0 {
		repeats = 1
	}
	scan, err := exposure.Estimate(asg.Times, repeats)
	if err != nil {
		x.fail("%v", err)
		return
	}
	pols := orDefault(a.Polarizations, 0)
	x.seconds = outerLoops(scan, len(pols), len(a.Angles), len(a.Temperatures))

	x.setup(a)

	lo, hi := slices.Min(energies), slices.Max(energies)
	grating := gratingOf(a)
	var problems []string
	if det == "" {
		problems = append(problems, "no detector for this configuration")
	}
	if repeats < 1 || repeats > 99 {
		problems = append(problems, fmt.Sprintf("repeats %d must be between 1 and 99", repeats))
	}
	if lo < minEnergy || hi > maxEnergy {
		problems = append(problems, fmt.Sprintf("energies %g..%g eV are out of range for the beamline", lo, hi))
	}
	problems = append(problems, checkGrating(grating, lo, hi, 1000)...)
	if slices.Max(asg.Times) > maxExposure {
		problems = append(problems, fmt.Sprintf("exposure times above %g s are not valid", maxExposure))
	}
	problems = append(problems, checkRange("polarization", pols, minPolarization, maxPolarization)...)
	problems = append(problems, checkRange("angle", a.Angles, minAngle, maxAngle)...)
	problems = append(problems, checkRange("temperature", a.Temperatures, minTemperature, maxTemperature)...)
	if len(problems) > 0 {
		x.fail("%s", strings.Join(problems, "; "))
		return
	}

	kwargs := map[string]any{
		"energies":      energies,
		"times":         asg.Times,
		"polarizations": pols,
		"grating":       grating,
		"dets":          []string{det},
		"enscan_type":   "rsoxs_" + a.Edge.String(),
	}
	if repeats > 1 {
		kwargs["repeats"] = repeats
	}
	if len(a.Angles) > 0 {
		kwargs["angles"] = a.Angles
	}
	if len(a.Temperatures) > 0 {
		kwargs["temperatures"] = a.Temperatures
	}
	x.add(ActionRSoXS, fmt.Sprintf("RSoXS scan %s: %d energies from %g to %g eV, exposures %g to %g s, %d polarization(s)",
		det, len(energies), lo, hi, slices.Min(asg.Times), slices.Max(asg.Times), len(pols)), kwargs)
}

func (p *Planner) expandNEXAFS(x *expansion, a *Acquisition) {
	segs, scan, err := nexafs.Params(p.builder.Catalog(), a.Edge, a.Speed, a.Ratios)
	if err != nil {
		x.fail("scan parameters for edge %s: %v", a.Edge, err)
		return
	}
	if a.Cycles > 0 {
		scan *= 2 * float64(a.Cycles)
	}
	pols := orDefault(a.Polarizations, 0)
	x.seconds = outerLoops(scan, len(pols), len(a.Angles), len(a.Temperatures))

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range segs {
		lo = min(lo, s.Start, s.End)
		hi = max(hi, s.Start, s.End)
	}
	grating := gratingOf(a)
	var problems []string
	if lo < minEnergy || hi > maxEnergy {
		problems = append(problems, fmt.Sprintf("energies %g..%g eV are out of range for the beamline", lo, hi))
	}
	if a.Cycles < 0 || a.Cycles > 100 {
		problems = append(problems, fmt.Sprintf("cycles %d must be between 0 and 100", a.Cycles))
	}
	problems = append(problems, checkGrating(grating, lo, hi, 1000)...)
	problems = append(problems, checkRange("polarization", pols, minPolarization, maxPolarization)...)
	problems = append(problems, checkRange("angle", a.Angles, minAngle, maxAngle)...)
	problems = append(problems, checkRange("temperature", a.Temperatures, minTemperature, maxTemperature)...)
	if len(problems) > 0 {
		x.fail("%s", strings.Join(problems, "; "))
		return
	}

	x.setup(a)

	sampleFrame := a.PolMode == "" || strings.EqualFold(a.PolMode, "sample")
	temps := a.Temperatures
	if len(temps) == 0 {
		temps = []float64{math.NaN()}
	}
	angles := a.Angles
	if len(angles) == 0 {
		angles = []float64{math.NaN()}
	}
	for _, temp := range temps {
		if !math.IsNaN(temp) {
			x.add(ActionTemp, fmt.Sprintf("set the temperature stage to %g degrees and wait", temp),
				map[string]any{"temp": temp, "wait": true})
		}
		for _, angle := range angles {
			for _, pol := range pols {
				labPol := pol
				if sampleFrame && !math.IsNaN(angle) {
					if pol < angle {
						x.add(ActionWarning, fmt.Sprintf("sample-frame polarization %g is below the grazing angle %g, skipping this scan", pol, angle), nil)
						continue
					}
					labPol = labFramePolarization(pol, angle)
					x.add(ActionMessage, fmt.Sprintf("lab-frame polarization %.4g from sample-frame %g at sample angle %g", labPol, pol, angle), nil)
				}
				kwargs := map[string]any{
					"scan_params": segs,
					"cycles":      a.Cycles,
					"pol":         labPol,
					"grating":     grating,
				}
				if !math.IsNaN(angle) {
					kwargs["angle"] = angle
				}
				x.add(ActionNEXAFS, fmt.Sprintf("fly NEXAFS %g to %g eV at polarization %.4g", lo, hi, labPol), kwargs)
			}
		}
	}
}

// labFramePolarization converts a polarization measured in the sample frame
// to the undulator angle for a sample tilted to grazing degrees.
func labFramePolarization(pol, grazing float64) float64 {
	c := math.Cos(pol*math.Pi/180) / math.Cos(grazing*math.Pi/180)
	c = max(-1, min(1, c))
	return math.Acos(c) * 180 / math.Pi
}

func (p *Planner) expandSpiral(x *expansion, a *Acquisition, det string) {
	var en float64
	switch a.Edge.Kind() {
	case energy.EdgeSingle:
		en = a.Edge.Values()[0]
	case energy.EdgeList:
		en = a.Edge.Values()[0]
		x.add(ActionMessage, fmt.Sprintf("only the first energy %g is used for the spiral search", en), nil)
	default:
		x.fail("a spiral needs a single energy in edge, got %q", a.Edge.String())
		return
	}

	exp := 1.0
	switch {
	case len(a.Exposure) == 0:
	case len(a.Exposure) == 1 && a.Exposure[0].Unconditional():
		exp = a.Exposure[0].Value
	default:
		x.fail("a spiral takes a single exposure time, got %s", a.Exposure)
		return
	}
	diameter, step := a.Diameter, a.SpiralStep
	if diameter == 0 {
		diameter = defaultDiameter
	}
	if step == 0 {
		step = defaultSpiralStep
	}
	if step < 0 || diameter < 0 {
		x.fail("spiral diameter %g and step %g must be positive", diameter, step)
		return
	}

	billed := exp
	if billed <= 0 {
		billed = 1
	}
	side := math.Round(diameter/step) + 1
	scan := (billed + spiralStepSeconds) * side * side
	pols := orDefault(a.Polarizations, 0)
	x.seconds = outerLoops(scan, len(pols), len(a.Angles), 0)

	grating := gratingOf(a)
	var problems []string
	if det == "" {
		problems = append(problems, "no detector for this configuration")
	}
	problems = append(problems, checkGrating(grating, en, en, 1200)...)
	problems = append(problems, checkRange("angle", a.Angles, minAngle, maxAngle)...)
	if len(problems) > 0 {
		x.fail("%s", strings.Join(problems, "; "))
		return
	}

	x.setup(a)
	angles := a.Angles
	if len(angles) == 0 {
		angles = []float64{math.NaN()}
	}
	for _, angle := range angles {
		for _, pol := range pols {
			kwargs := map[string]any{
				"dets":        []string{det},
				"energy":      en,
				"diameter":    diameter,
				"stepsize":    step,
				"grating":     grating,
				"pol":         pol,
				"exposure":    exp,
				"enscan_type": fmt.Sprintf("spiral_%g", en),
			}
			if !math.IsNaN(angle) {
				kwargs["angle"] = angle
			}
			x.add(ActionSpiral, fmt.Sprintf("spiral %s at %g eV, diameter %g mm, step %g mm", det, en, diameter, step), kwargs)
		}
	}
}

func expandSleep(x *expansion, a *Acquisition) {
	if a.Edge.Kind() != energy.EdgeSingle {
		x.fail("sleep needs a number of seconds in edge, got %q", a.Edge.String())
		return
	}
	secs := a.Edge.Values()[0]
	if secs < 0 {
		x.fail("sleep of %g seconds is negative", secs)
		return
	}
	x.seconds = secs
	x.add(ActionSleep, fmt.Sprintf("sleep for %g seconds", secs), map[string]any{"sleep_time": secs})
}
