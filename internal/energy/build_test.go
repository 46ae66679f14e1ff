package energy_test

import (
	"errors"
	"math"
	"slices"
	"testing"

	"rsoxsplan/internal/energy"
	"rsoxsplan/internal/preset"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

func TestBuild_OneFrameReturnsThresholds(t *testing.T) {
	b := energy.NewBuilder(nil)
	cases := [][]float64{
		{1850, 1930},
		{250, 270, 282, 287, 292, 305, 350},
		{700, 690, 680},
		{100, 200, 300, 400, 500},
	}
	for _, thresholds := range cases {
		got, err := b.Build(energy.Thresholds(thresholds...), energy.Uniform(1))
		if err != nil {
			t.Fatalf("Build(%v): %v", thresholds, err)
		}
		if diff := cmp.Diff(thresholds, got); diff != "" {
			t.Errorf("Build(%v, 1) mismatch (-want +got):\n%s", thresholds, diff)
		}
	}
}

func TestBuild_HundredPointsInclusive(t *testing.T) {
	b := energy.NewBuilder(nil)
	got, err := b.Build(energy.Thresholds(1850, 1930), energy.Uniform(100))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("len = %d, want 100", len(got))
	}
	if got[0] != 1850 || got[99] != 1930 {
		t.Errorf("endpoints = %g, %g", got[0], got[99])
	}
	if diff := cmp.Diff(linspace(1850, 1930, 100), got, approx); diff != "" {
		t.Errorf("not evenly spaced (-want +got):\n%s", diff)
	}
}

func TestBuild_DwellThresholdsSurvive(t *testing.T) {
	b := energy.NewBuilder(nil)
	thresholds := []float64{250, 250, 250, 340, 340, 341, 280, 281.45, 500, 500}
	got, err := b.Build(energy.Thresholds(thresholds...), energy.Uniform(1))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff(thresholds, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_DwellWithInteriorFrames(t *testing.T) {
	b := energy.NewBuilder(nil)
	got, err := b.Build(energy.Thresholds(250, 250, 300), energy.Uniform(5))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []float64{250, 250, 262.5, 275, 287.5, 300}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_UniformSpacing(t *testing.T) {
	b := energy.NewBuilder(nil)
	got, err := b.Build(energy.Thresholds(0, 10, 20), energy.Uniform(4))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []float64{0, 2.5, 5, 7.5, 10, 10 + 10.0/3, 10 + 20.0/3, 20}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ZeroFramesKeepThresholds(t *testing.T) {
	b := energy.NewBuilder(nil)

	got, err := b.Build(energy.Thresholds(250, 270, 282), energy.Uniform(0))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]float64{250, 270, 282}, got); diff != "" {
		t.Errorf("uniform 0 mismatch (-want +got):\n%s", diff)
	}

	policies := []energy.FramePolicy{
		energy.PerRegion(0, 0, 5, 0, 3, 0),
		energy.PerRegion(0, 0, 0, 0, 0, 0),
		energy.PerRegion(10, 0, 10, 0, 10, 0),
		energy.Uniform(0),
		energy.Uniform(7),
		energy.Preset("very short"),
	}
	_, carbon, _ := preset.Default().Edge("carbon")
	for _, p := range policies {
		got, err := b.Build(energy.Named("carbon"), p)
		if err != nil {
			t.Fatalf("Build(carbon, %s): %v", p, err)
		}
		for _, th := range carbon {
			if !slices.Contains(got, th) {
				t.Errorf("Build(carbon, %s) dropped threshold %g", p, th)
			}
		}
		if !slices.IsSorted(got) {
			t.Errorf("Build(carbon, %s) is not non-decreasing: %v", p, got)
		}
	}
}

func TestBuild_SinglePoint(t *testing.T) {
	b := energy.NewBuilder(nil)
	tests := []struct {
		name   string
		frames energy.FramePolicy
		want   []float64
	}{
		{"unset", energy.FramePolicy{}, []float64{1850}},
		{"one", energy.Uniform(1), []float64{1850}},
		{"zero", energy.Uniform(0), []float64{1850}},
		{"three", energy.Uniform(3), []float64{1850, 1850, 1850}},
		{"empty list", energy.PerRegion(), []float64{1850}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Build(energy.Single(1850), tt.frames)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuild_AliasesFollowCatalog(t *testing.T) {
	b := energy.NewBuilder(nil)
	cat := b.Catalog()

	build := func(name string) []float64 {
		t.Helper()
		got, err := b.Build(energy.Named(name), energy.Preset("short"))
		if err != nil {
			t.Fatalf("Build(%q): %v", name, err)
		}
		return got
	}

	for alias, target := range cat.Aliases() {
		if _, _, ok := cat.Edge(target); !ok {
			continue // NEXAFS-only edge
		}
		if diff := cmp.Diff(build(target), build(alias)); diff != "" {
			t.Errorf("alias %q differs from %q:\n%s", alias, target, diff)
		}
	}
	if cat.Canonical("c") != cat.Canonical("Nitrogen") && cmp.Equal(build("c"), build("Nitrogen")) {
		t.Error("c and Nitrogen are not declared aliases but built the same scan")
	}
}

func TestResolve_CarbonFullPreset(t *testing.T) {
	b := energy.NewBuilder(nil)
	r, err := b.Resolve(energy.Named("C"), energy.Preset("full"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Edge != "carbon" {
		t.Errorf("Edge = %q", r.Edge)
	}
	if diff := cmp.Diff([]int{4, 12, 50, 25, 13, 9}, r.Frames); diff != "" {
		t.Errorf("region frames mismatch (-want +got):\n%s", diff)
	}
	if !r.Weighted {
		t.Error("preset counts should be weighted")
	}
	got, err := b.Sample(r)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(got) != 114 {
		t.Fatalf("len = %d, want 114", len(got))
	}
	if diff := cmp.Diff(linspace(305, 350, 10), got[len(got)-10:], approx); diff != "" {
		t.Errorf("last region mismatch (-want +got):\n%s", diff)
	}
	if got[len(got)-11] != 304 {
		t.Errorf("point before the last region = %g, want 304", got[len(got)-11])
	}

	rounded, err := energy.NewBuilder(nil, energy.WithResolution(0.05)).Build(energy.Named("carbon"), energy.Preset("full"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff(got, rounded, approx); diff != "" {
		t.Errorf("rounding moved the carbon scan (-unrounded +rounded):\n%s", diff)
	}
	regions := r.Regions()
	if len(regions) != 6 || regions[2].Start != 282 || regions[2].End != 287 || regions[2].Frames != 50 {
		t.Errorf("regions = %+v", regions)
	}
}

func TestResolve_UnsetFramesDefaultsToFull(t *testing.T) {
	b := energy.NewBuilder(nil)
	unset, err := b.Resolve(energy.Named("carbon"), energy.FramePolicy{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	full, _ := b.Resolve(energy.Named("carbon"), energy.Preset("full"))
	if diff := cmp.Diff(full.Frames, unset.Frames); diff != "" {
		t.Errorf("unset frames differ from full:\n%s", diff)
	}

	literal, err := b.Resolve(energy.Thresholds(0, 10, 20), energy.FramePolicy{})
	if err != nil {
		t.Fatalf("Resolve literal: %v", err)
	}
	if diff := cmp.Diff([]int{10, 102}, literal.Frames); diff != "" {
		t.Errorf("literal unset frames mismatch:\n%s", diff)
	}
}

func TestResolve_ExplicitRegionTable(t *testing.T) {
	cat, err := preset.Merge([]byte("region_frames:\n  carbon:\n    full: [1, 1, 1, 1, 1, 1]\n"))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	b := energy.NewBuilder(cat)
	got, err := b.Build(energy.Named("ck"), energy.Preset("FULL"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, want, _ := cat.Edge("carbon")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_Weighted(t *testing.T) {
	b := energy.NewBuilder(nil)

	r, err := b.Resolve(energy.Thresholds(0, 10, 20), energy.Weighted(20, 1, 1))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]int{10, 10}, r.Frames); diff != "" {
		t.Errorf("frames mismatch:\n%s", diff)
	}

	r, err = b.Resolve(energy.Thresholds(0, 10, 20), energy.Weighted(20, 1, 4))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Frames[0] <= r.Frames[1] {
		t.Errorf("finer steps should get more frames: %v", r.Frames)
	}

	if _, err := b.Resolve(energy.Named("carbon"), energy.WeightedTable(56, "carbon nonaromatic")); err != nil {
		t.Errorf("WeightedTable: %v", err)
	}
}

func TestBuildRatios(t *testing.T) {
	b := energy.NewBuilder(nil)

	got, err := b.BuildRatios(energy.Named("carbon"), energy.Preset("short"), energy.RatioSpec{Name: "carbon nonaromatic"})
	if err != nil {
		t.Fatalf("BuildRatios: %v", err)
	}
	plain, _ := b.Build(energy.Named("carbon"), energy.Preset("short"))
	if cmp.Equal(plain, got) {
		t.Error("nonaromatic ratios should change the scan")
	}

	same, err := b.BuildRatios(energy.Named("carbon"), energy.Preset("short"), energy.RatioSpec{})
	if err != nil {
		t.Fatalf("BuildRatios without ratios: %v", err)
	}
	if diff := cmp.Diff(plain, same); diff != "" {
		t.Errorf("empty ratios should not change the scan:\n%s", diff)
	}

	_, err = b.BuildRatios(energy.Thresholds(0, 1, 2), energy.PerRegion(1, 1), energy.RatioSpec{Values: []float64{1, 1}})
	var invalid *energy.InvalidEdgesError
	if !errors.As(err, &invalid) {
		t.Errorf("per-region frames with ratios: got %v", err)
	}
}

func TestBuild_Resolution(t *testing.T) {
	b := energy.NewBuilder(nil, energy.WithResolution(0.05))

	got, err := b.Build(energy.Thresholds(0, 1), energy.Uniform(4))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]float64{0, 0.35, 0.65, 1}, got, approx); diff != "" {
		t.Errorf("rounded mismatch (-want +got):\n%s", diff)
	}

	got, err = b.Build(energy.Thresholds(0, 0.1), energy.Uniform(5))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]float64{0, 0.05, 0.1}, got, approx); diff != "" {
		t.Errorf("collapsed mismatch (-want +got):\n%s", diff)
	}

	got, err = b.Build(energy.Thresholds(281.45, 282), energy.Uniform(1))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got[0] != 281.45 {
		t.Errorf("thresholds must not be rounded: %v", got)
	}
}

func TestBuild_Errors(t *testing.T) {
	b := energy.NewBuilder(nil)

	var unknown *energy.UnknownPresetError
	var invalid *energy.InvalidEdgesError
	var mismatch *energy.FrameCountMismatchError
	var unresolved *energy.UnresolvedPresetError

	tests := []struct {
		name   string
		edges  energy.EdgeSpec
		frames energy.FramePolicy
		target any
	}{
		{"unknown edge", energy.Named("unobtainium"), energy.Uniform(1), &unknown},
		{"unknown frames", energy.Named("carbon"), energy.Preset("medium"), &unknown},
		{"unknown ratio table", energy.Named("carbon"), energy.WeightedTable(10, "nope"), &unknown},
		{"empty list", energy.Thresholds(), energy.Uniform(1), &invalid},
		{"unset edge", energy.EdgeSpec{}, energy.Uniform(1), &invalid},
		{"nan", energy.Thresholds(1, math.NaN()), energy.Uniform(1), &invalid},
		{"negative uniform", energy.Thresholds(1, 2), energy.Uniform(-1), &invalid},
		{"negative region", energy.Thresholds(1, 2, 3), energy.PerRegion(1, -2), &invalid},
		{"tiny ratio", energy.Thresholds(1, 2), energy.Weighted(10, 0.001), &invalid},
		{"zero target", energy.Thresholds(1, 2), energy.Weighted(0, 1), &invalid},
		{"region mismatch", energy.Thresholds(1, 2, 3), energy.PerRegion(1, 2, 3), &mismatch},
		{"ratio mismatch", energy.Thresholds(1, 2, 3), energy.Weighted(10, 1), &mismatch},
		{"single point list", energy.Single(5), energy.PerRegion(3), &mismatch},
		{"preset on literal", energy.Thresholds(1, 2, 3), energy.Preset("full"), &unresolved},
		{"preset on single", energy.Single(5), energy.Preset("full"), &unresolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Build(tt.edges, tt.frames)
			if err == nil {
				t.Fatalf("expected error, got %v", got)
			}
			if got != nil {
				t.Errorf("partial result returned with error: %v", got)
			}
			if !errors.As(err, tt.target) {
				t.Errorf("error %T (%v) is not %T", err, err, tt.target)
			}
		})
	}
}

func TestUnknownPresetError_Kind(t *testing.T) {
	b := energy.NewBuilder(nil)
	_, err := b.Build(energy.Named("carbon"), energy.Preset("medium"))
	var unknown *energy.UnknownPresetError
	if !errors.As(err, &unknown) {
		t.Fatalf("got %v", err)
	}
	if unknown.Kind != "frames" || unknown.Name != "medium" {
		t.Errorf("got %+v", unknown)
	}
}

func TestSample_RejectsMismatchedFrames(t *testing.T) {
	b := energy.NewBuilder(nil)
	tests := []struct {
		name string
		r    energy.Resolved
	}{
		{"no frames", energy.Resolved{Thresholds: []float64{1, 2}}},
		{"too many frames", energy.Resolved{Thresholds: []float64{1, 2}, Frames: []int{3, 3}}},
		{"single point without frames", energy.Resolved{Thresholds: []float64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Sample(tt.r)
			var mismatch *energy.FrameCountMismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("got %v, %v; want FrameCountMismatchError", got, err)
			}
		})
	}

	var invalid *energy.InvalidEdgesError
	if _, err := b.Sample(energy.Resolved{}); !errors.As(err, &invalid) {
		t.Errorf("empty thresholds: got %v", err)
	}

	got, err := b.Sample(energy.Resolved{Thresholds: []float64{0, 10}, Frames: []int{5}, Weighted: true})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if diff := cmp.Diff(linspace(0, 10, 6), got, approx); diff != "" {
		t.Errorf("weighted last region mismatch (-want +got):\n%s", diff)
	}
}
