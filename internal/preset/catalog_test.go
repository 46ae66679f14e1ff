package preset_test

import (
	"os"
	"path/filepath"
	"testing"

	"rsoxsplan/internal/preset"

	"github.com/google/go-cmp/cmp"
)

func TestDefault_EdgeLookup(t *testing.T) {
	cat := preset.Default()

	tests := []struct {
		name      string
		canonical string
		want      []float64
	}{
		{"carbon", "carbon", []float64{250, 270, 282, 287, 292, 305, 350}},
		{"C", "carbon", []float64{250, 270, 282, 287, 292, 305, 350}},
		{"CarbonK", "carbon", []float64{250, 270, 282, 287, 292, 305, 350}},
		{"Nitrogen", "nitrogen", []float64{380, 397, 407, 440}},
		{"nk", "nitrogen", []float64{380, 397, 407, 440}},
		{"aluminum", "aluminium", []float64{1540, 1560, 1580, 1600}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canonical, got, ok := cat.Edge(tt.name)
			if !ok {
				t.Fatalf("Edge(%q) not found", tt.name)
			}
			if canonical != tt.canonical {
				t.Errorf("canonical = %q, want %q", canonical, tt.canonical)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("thresholds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefault_AliasesAreExplicit(t *testing.T) {
	cat := preset.Default()
	aliases := cat.Aliases()

	if aliases["c"] != "carbon" {
		t.Errorf("alias c = %q, want carbon", aliases["c"])
	}
	if _, ok := aliases["nitrogen"]; ok {
		t.Error("nitrogen is an edge name, not an alias")
	}
	if cat.Canonical("c") == cat.Canonical("Nitrogen") {
		t.Error("c and Nitrogen must resolve to different edges")
	}
	want := []string{"c", "carbonk", "ck"}
	if diff := cmp.Diff(want, cat.AliasesOf("carbon")); diff != "" {
		t.Errorf("AliasesOf(carbon) mismatch (-want +got):\n%s", diff)
	}
}

func TestDefault_Unknown(t *testing.T) {
	cat := preset.Default()
	if _, _, ok := cat.Edge("unobtainium"); ok {
		t.Error("expected unknown edge")
	}
	if _, ok := cat.Frames("medium"); ok {
		t.Error("expected unknown frame preset")
	}
}

func TestDefault_Ratios(t *testing.T) {
	cat := preset.Default()

	if diff := cmp.Diff([]float64{5, 1, 0.1, 0.2, 1, 5}, cat.Ratios("c", 7)); diff != "" {
		t.Errorf("carbon ratios mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]float64{2, 0.2, 2}, cat.Ratios("nitrogen", 4)); diff != "" {
		t.Errorf("nitrogen falls back to default 4:\n%s", diff)
	}
	if got := cat.Ratios("", 9); got != nil {
		t.Errorf("no default 9 table, got %v", got)
	}
	if diff := cmp.Diff([]float64{5, 1, 5}, cat.NexafsRatios("carbon", 4)); diff != "" {
		t.Errorf("nexafs ratios mismatch:\n%s", diff)
	}
	r, ok := cat.RatioTable("Carbon Nonaromatic")
	if !ok || len(r) != 6 {
		t.Errorf("RatioTable(carbon nonaromatic) = %v, %v", r, ok)
	}
}

func TestDefault_FramesAndSpeeds(t *testing.T) {
	cat := preset.Default()

	for name, want := range map[string]int{"full": 112, "": 112, "short": 56, "Very Short": 40} {
		got, ok := cat.Frames(name)
		if !ok || got != want {
			t.Errorf("Frames(%q) = %d, %v; want %d", name, got, ok, want)
		}
	}
	if diff := cmp.Diff([]string{"full", "short", "very short"}, cat.FrameNames()); diff != "" {
		t.Errorf("FrameNames mismatch:\n%s", diff)
	}
	if v, ok := cat.Speed("normal"); !ok || v != 0.2 {
		t.Errorf("Speed(normal) = %g, %v", v, ok)
	}
}

func TestDefault_ReturnsCopies(t *testing.T) {
	cat := preset.Default()
	_, a, _ := cat.Edge("carbon")
	a[0] = -1
	_, b, _ := cat.Edge("carbon")
	if b[0] != 250 {
		t.Errorf("catalog was mutated through a returned slice: %v", b)
	}
}

func TestDefault_Configurations(t *testing.T) {
	cat := preset.Default()
	if !cat.ValidConfiguration("WAXS") {
		t.Error("WAXS should be valid")
	}
	if cat.ValidConfiguration("waxs") {
		t.Error("configuration names are case-sensitive")
	}
}

func TestMerge_Overlay(t *testing.T) {
	data := []byte(`
aliases:
  si: siliconk
rsoxs_edges:
  carbon: [270, 280, 290]
frames:
  quick look: 12
region_frames:
  carbon:
    full: [40, 60]
`)
	cat, err := preset.Merge(data)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	_, edges, _ := cat.Edge("c")
	if diff := cmp.Diff([]float64{270, 280, 290}, edges); diff != "" {
		t.Errorf("carbon not overridden:\n%s", diff)
	}
	if _, _, ok := cat.Edge("oxygen"); !ok {
		t.Error("built-in oxygen should survive the merge")
	}
	if n, ok := cat.Frames("quick look"); !ok || n != 12 {
		t.Errorf("Frames(quick look) = %d, %v", n, ok)
	}
	counts, ok := cat.RegionFrames("C", "Full")
	if !ok {
		t.Fatal("expected region table for carbon/full")
	}
	if diff := cmp.Diff([]int{40, 60}, counts); diff != "" {
		t.Errorf("region table mismatch:\n%s", diff)
	}
	if _, _, ok := cat.Edge("si"); !ok {
		t.Error("new alias si should resolve")
	}
}

func TestMerge_RejectsBadTables(t *testing.T) {
	tests := map[string]string{
		"dangling alias":     "aliases:\n  x: nowhere\n",
		"region mismatch":    "region_frames:\n  carbon:\n    full: [1, 2]\n",
		"region unknown":     "region_frames:\n  mystery:\n    full: [1]\n",
		"nonpositive frames": "frames:\n  none: 0\n",
		"empty edge":         "rsoxs_edges:\n  void: []\n",
		"bad yaml":           "frames: [\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := preset.Merge([]byte(data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("speeds:\n  crawl: 0.01\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := preset.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if v, ok := cat.Speed("crawl"); !ok || v != 0.01 {
		t.Errorf("Speed(crawl) = %g, %v", v, ok)
	}
	if _, err := preset.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
