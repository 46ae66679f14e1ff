// Package energy builds the ordered energy lists sampled by RSoXS step scans.
//
// An edge gives region boundaries (thresholds) and a frame policy gives the
// number of frames per region. Every threshold is always sampled, even in a
// region with zero frames. Adjacent repeated thresholds are a deliberate
// dwell and are kept.
package energy

import (
	"fmt"
	"math"
	"slices"

	"rsoxsplan/internal/preset"
)

// Builder resolves edges and frame policies against a catalog and samples
// the resulting regions. A Builder has no mutable state.
type Builder struct {
	cat        *preset.Catalog
	resolution float64
}

// Option configures a Builder.
type Option func(*Builder)

// WithResolution rounds interior points to multiples of step eV.
// Thresholds are never rounded. Zero disables rounding.
func WithResolution(step float64) Option {
	return func(b *Builder) { b.resolution = step }
}

// NewBuilder returns a builder over cat, or over the built-in catalog if cat is nil.
func NewBuilder(cat *preset.Catalog, opts ...Option) *Builder {
	if cat == nil {
		cat = preset.Default()
	}
	b := &Builder{cat: cat}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Catalog returns the catalog the builder resolves names against.
func (b *Builder) Catalog() *preset.Catalog { return b.cat }

// Region is one interval of a resolved scan.
type Region struct {
	Start  float64
	End    float64
	Frames int
}

// Resolved is an edge and frame policy reduced to numbers.
type Resolved struct {
	Edge       string    // canonical edge name, "" for literal thresholds
	Thresholds []float64 // never empty
	Frames     []int     // one per region; a single entry for a one-point edge

	// Weighted marks counts taken from a preset or a frame target. Such
	// counts are steps, so the last region gains its endpoint as an extra
	// point.
	Weighted bool
}

// Regions lists the intervals between consecutive thresholds.
func (r Resolved) Regions() []Region {
	if len(r.Thresholds) < 2 {
		return nil
	}
	out := make([]Region, len(r.Thresholds)-1)
	for i := range out {
		out[i] = Region{Start: r.Thresholds[i], End: r.Thresholds[i+1], Frames: r.Frames[i]}
	}
	return out
}

// Build returns the energies for edges sampled with frames.
func (b *Builder) Build(edges EdgeSpec, frames FramePolicy) ([]float64, error) {
	r, err := b.Resolve(edges, frames)
	if err != nil {
		return nil, err
	}
	return b.Sample(r)
}

// BuildRatios is Build with a step-ratio table. A non-empty table turns a
// uniform count or preset into a weighted frame target.
func (b *Builder) BuildRatios(edges EdgeSpec, frames FramePolicy, ratios RatioSpec) ([]float64, error) {
	frames, err := b.applyRatios(frames, ratios)
	if err != nil {
		return nil, err
	}
	return b.Build(edges, frames)
}

func (b *Builder) applyRatios(frames FramePolicy, ratios RatioSpec) (FramePolicy, error) {
	if ratios.IsZero() {
		return frames, nil
	}
	switch frames.kind {
	case FramesUniform:
		return ratios.Apply(frames.n), nil
	case FramesPreset, FramesUnset:
		name := frames.name
		total, ok := b.cat.Frames(name)
		if !ok {
			return FramePolicy{}, &UnknownPresetError{Kind: "frames", Name: name}
		}
		return ratios.Apply(total), nil
	case FramesWeighted:
		return ratios.Apply(frames.n), nil
	default:
		return FramePolicy{}, &InvalidEdgesError{Reason: "step ratios cannot be combined with per-region frame counts"}
	}
}

// Resolve looks up names and expands the frame policy to one count per region.
func (b *Builder) Resolve(edges EdgeSpec, frames FramePolicy) (Resolved, error) {
	var r Resolved
	switch edges.kind {
	case EdgeNamed:
		canonical, t, ok := b.cat.Edge(edges.name)
		if !ok {
			return Resolved{}, &UnknownPresetError{Kind: "edge", Name: edges.name}
		}
		r.Edge, r.Thresholds = canonical, t
	case EdgeList, EdgeSingle:
		r.Thresholds = slices.Clone(edges.values)
	default:
		return Resolved{}, &InvalidEdgesError{Reason: "no edge given"}
	}
	if len(r.Thresholds) == 0 {
		return Resolved{}, &InvalidEdgesError{Reason: "empty threshold list"}
	}
	for _, v := range r.Thresholds {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Resolved{}, &InvalidEdgesError{Reason: fmt.Sprintf("threshold %g is not finite", v)}
		}
	}

	counts, weighted, err := b.resolveFrames(r, edges.kind == EdgeNamed, frames)
	if err != nil {
		return Resolved{}, err
	}
	r.Frames, r.Weighted = counts, weighted
	return r, nil
}

func (b *Builder) resolveFrames(r Resolved, named bool, frames FramePolicy) ([]int, bool, error) {
	regions := len(r.Thresholds) - 1
	if regions == 0 {
		counts, err := b.singlePoint(named, frames)
		return counts, false, err
	}

	if frames.kind == FramesUnset {
		if named {
			frames = Preset("full")
		} else {
			total, _ := b.cat.Frames("")
			frames = Weighted(max(total, 1))
		}
	}

	switch frames.kind {
	case FramesUniform:
		if frames.n < 0 {
			return nil, false, &InvalidEdgesError{Reason: fmt.Sprintf("frame count %d is negative", frames.n)}
		}
		counts := make([]int, regions)
		for i := range counts {
			counts[i] = frames.n
		}
		return counts, false, nil

	case FramesPerRegion:
		if len(frames.counts) != regions {
			return nil, false, &FrameCountMismatchError{What: "frames", Got: len(frames.counts), Want: regions}
		}
		for _, n := range frames.counts {
			if n < 0 {
				return nil, false, &InvalidEdgesError{Reason: fmt.Sprintf("frame count %d is negative", n)}
			}
		}
		return slices.Clone(frames.counts), false, nil

	case FramesPreset:
		total, ok := b.cat.Frames(frames.name)
		if !ok {
			return nil, false, &UnknownPresetError{Kind: "frames", Name: frames.name}
		}
		if !named {
			return nil, false, &UnresolvedPresetError{Frames: frames.name}
		}
		if counts, ok := b.cat.RegionFrames(r.Edge, frames.name); ok {
			return counts, true, nil
		}
		counts, err := Distribute(r.Thresholds, total, b.defaultRatios(r))
		return counts, err == nil, err

	case FramesWeighted:
		ratios := frames.ratios
		if frames.ratioName != "" {
			table, ok := b.cat.RatioTable(frames.ratioName)
			if !ok {
				return nil, false, &UnknownPresetError{Kind: "ratios", Name: frames.ratioName}
			}
			ratios = table
		}
		if len(ratios) == 0 {
			ratios = b.defaultRatios(r)
		}
		counts, err := Distribute(r.Thresholds, frames.n, ratios)
		return counts, err == nil, err
	}
	return nil, false, &InvalidEdgesError{Reason: "unknown frame policy"}
}

// singlePoint turns the frame policy into a repeat count for a one-point edge.
// An unset policy samples the point once.
func (b *Builder) singlePoint(named bool, frames FramePolicy) ([]int, error) {
	n := 1
	switch frames.kind {
	case FramesUniform:
		if frames.n < 0 {
			return nil, &InvalidEdgesError{Reason: fmt.Sprintf("frame count %d is negative", frames.n)}
		}
		n = frames.n
	case FramesPerRegion:
		if len(frames.counts) != 0 {
			return nil, &FrameCountMismatchError{What: "frames", Got: len(frames.counts), Want: 0}
		}
	case FramesPreset:
		total, ok := b.cat.Frames(frames.name)
		if !ok {
			return nil, &UnknownPresetError{Kind: "frames", Name: frames.name}
		}
		if !named {
			return nil, &UnresolvedPresetError{Frames: frames.name}
		}
		n = total
	case FramesWeighted:
		n = frames.n
	}
	return []int{max(n, 1)}, nil
}

func (b *Builder) defaultRatios(r Resolved) []float64 {
	if ratios := b.cat.Ratios(r.Edge, len(r.Thresholds)); len(ratios) > 0 {
		return ratios
	}
	ones := make([]float64, len(r.Thresholds)-1)
	for i := range ones {
		ones[i] = 1
	}
	return ones
}

// Distribute splits a frame target across the regions of thresholds so that
// region steps keep the proportions given by ratios. Every region gets at
// least one frame, so the total is approximate and usually a little above
// the target.
func Distribute(thresholds []float64, total int, ratios []float64) ([]int, error) {
	regions := len(thresholds) - 1
	if len(ratios) != regions {
		return nil, &FrameCountMismatchError{What: "ratios", Got: len(ratios), Want: regions}
	}
	if total < 1 {
		return nil, &InvalidEdgesError{Reason: fmt.Sprintf("frame target %d must be positive", total)}
	}
	for _, r := range ratios {
		if r < 0.01 || math.IsNaN(r) {
			return nil, &InvalidEdgesError{Reason: fmt.Sprintf("step ratio %g is below 0.01", r)}
		}
	}

	var steps float64
	for i, r := range ratios {
		steps += math.RoundToEven(math.Abs(thresholds[i+1]-thresholds[i]) / r)
	}
	counts := make([]int, regions)
	if steps == 0 {
		for i := range counts {
			counts[i] = 1
		}
		return counts, nil
	}
	multiple := steps / float64(total)
	if multiple < 0.01 {
		return nil, &InvalidEdgesError{Reason: fmt.Sprintf("frame target %d is too dense for these edges", total)}
	}
	for i, r := range ratios {
		width := math.Abs(thresholds[i+1] - thresholds[i])
		n := int(math.RoundToEven(width / math.Max(0.01, r*multiple)))
		counts[i] = max(1, n)
	}
	return counts, nil
}

type point struct {
	energy    float64
	threshold bool
}

// Sample lays out the frames of a resolved scan.
//
// Region i < last covers [t_i, t_i+1) with max(n_i,1) evenly spaced points.
// The last region covers [t_n-1, t_n] with max(n,2) points, so the final
// threshold is always present. Weighted counts give the last region n+1
// points instead.
func (b *Builder) Sample(r Resolved) ([]float64, error) {
	t := r.Thresholds
	if len(t) == 0 {
		return nil, &InvalidEdgesError{Reason: "empty threshold list"}
	}
	want := max(len(t)-1, 1)
	if len(r.Frames) != want {
		return nil, &FrameCountMismatchError{What: "frames", Got: len(r.Frames), Want: want}
	}
	if len(t) == 1 {
		out := make([]float64, max(r.Frames[0], 0))
		for i := range out {
			out[i] = t[0]
		}
		return out, nil
	}

	var pts []point
	last := len(t) - 2
	for i := 0; i <= last; i++ {
		lo, hi := t[i], t[i+1]
		if i < last {
			n := max(r.Frames[i], 1)
			step := (hi - lo) / float64(n)
			for k := 0; k < n; k++ {
				pts = append(pts, b.point(lo+float64(k)*step, k == 0))
			}
			continue
		}
		n := r.Frames[i]
		if r.Weighted {
			n++
		}
		n = max(n, 2)
		step := (hi - lo) / float64(n-1)
		for k := 0; k < n-1; k++ {
			pts = append(pts, b.point(lo+float64(k)*step, k == 0))
		}
		pts = append(pts, point{energy: hi, threshold: true})
	}
	return collapse(pts), nil
}

func (b *Builder) point(v float64, threshold bool) point {
	if !threshold && b.resolution > 0 {
		v = math.Round(v/b.resolution) * b.resolution
	}
	return point{energy: v, threshold: threshold}
}

// collapse drops consecutive equal energies unless both are thresholds.
// When a threshold meets an equal interior point, the threshold wins.
func collapse(pts []point) []float64 {
	kept := make([]point, 0, len(pts))
	for _, p := range pts {
		if n := len(kept); n > 0 && kept[n-1].energy == p.energy {
			prev := kept[n-1]
			switch {
			case prev.threshold && p.threshold:
				kept = append(kept, p)
			case p.threshold:
				kept[n-1] = p
			}
			continue
		}
		kept = append(kept, p)
	}
	out := make([]float64, len(kept))
	for i, p := range kept {
		out[i] = p.energy
	}
	return out
}
