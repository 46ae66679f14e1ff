package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEnergies_Table(t *testing.T) {
	out, err := execute(t, "energies", "--edge", "270,280", "--frames", "1")
	if err != nil {
		t.Fatalf("energies: %v", err)
	}
	for _, want := range []string{"270", "280", "2 energies"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestEnergies_JSONWithExposure(t *testing.T) {
	out, err := execute(t, "energies", "--edge", "1850,1930", "--frames", "100",
		"--exposure", "2;between:1870:1900=4;greater_than:1920=1", "--json")
	if err != nil {
		t.Fatalf("energies: %v", err)
	}
	var res energiesResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(res.Energies) != 100 || len(res.Times) != 100 {
		t.Fatalf("got %d energies, %d times", len(res.Energies), len(res.Times))
	}
	if len(res.Bands) != 4 || res.Seconds != 661 {
		t.Errorf("bands = %+v, seconds = %v", res.Bands, res.Seconds)
	}
}

func TestEnergies_FrameCount(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		// carbon has 7 thresholds, so a bare count applies to each of 6 regions
		{"per region", []string{"--frames", "40"}, 240},
		{"total with ratios", []string{"--frames", "40", "--ratios", "5,1,0.1,0.2,1,5"}, 41},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"energies", "--edge", "carbon", "--json"}, tt.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("energies: %v", err)
			}
			var res energiesResult
			if err := json.Unmarshal([]byte(out), &res); err != nil {
				t.Fatalf("decode: %v\n%s", err, out)
			}
			if len(res.Energies) != tt.want {
				t.Errorf("got %d energies, want %d", len(res.Energies), tt.want)
			}
		})
	}
}

func TestEnergies_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing edge", []string{"energies"}, "edge"},
		{"unknown edge", []string{"energies", "--edge", "unobtanium"}, "unobtanium"},
		{"bad exposure", []string{"energies", "--edge", "carbon", "--exposure", "1;2"}, "unconditional"},
		{"markdown and json", []string{"energies", "--edge", "carbon", "--markdown", "--json"}, "markdown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestNexafs(t *testing.T) {
	out, err := execute(t, "nexafs", "--edge", "carbon")
	if err != nil {
		t.Fatalf("nexafs: %v", err)
	}
	if !strings.Contains(out, "0:02:40") {
		t.Errorf("expected total 0:02:40 in output:\n%s", out)
	}
}

func TestPresets(t *testing.T) {
	out, err := execute(t, "presets")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	for _, want := range []string{"Carbon K", "very short", "WAXSNEXAFS"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	out, err = execute(t, "presets", "--edge", "c", "--markdown")
	if err != nil {
		t.Fatalf("presets --edge: %v", err)
	}
	for _, want := range []string{"Carbon K (carbon)", "| NEXAFS | 250, 282, 297, 350"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	if _, err := execute(t, "presets", "--edge", "kryptonite"); err == nil {
		t.Error("want error for unknown edge")
	}
}

func TestCatalogFromEnv(t *testing.T) {
	path := writeFile(t, "catalog.yaml", "configurations: [BEAMLINE_X]\n")
	t.Setenv(catalogEnv, path)
	out, err := execute(t, "presets")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	if !strings.Contains(out, "Configurations: BEAMLINE_X") {
		t.Errorf("catalog overlay not applied:\n%s", out)
	}
}

func TestRootFlagErrors(t *testing.T) {
	if _, err := execute(t, "presets", "--catalog", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("want error for missing catalog")
	}
	if _, err := execute(t, "presets", "--log-format", "xml"); err == nil {
		t.Error("want error for unknown log format")
	}
	if _, err := execute(t, "presets", "--log-level", "loud"); err == nil {
		t.Error("want error for unknown log level")
	}
}

const sleepManifest = `samples:
  - sample_id: m1
    sample_name: blank
    acquisitions:
      - configuration: WAXS
        type: sleep
        edge: 60
      - configuration: SAXS
        type: sleep
        edge: 30
        group: night
`

func TestDryRun(t *testing.T) {
	path := writeFile(t, "bar1.yaml", sleepManifest)
	saveDir := filepath.Join(t.TempDir(), "saved")

	out, err := execute(t, "dryrun", "-f", path, "--steps", "--save-dir", saveDir)
	if err != nil {
		t.Fatalf("dryrun: %v", err)
	}
	for _, want := range []string{"2 acquisitions, 6 steps, total 0:05:30", "Sleep", "Saved manifest: "} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	saved, err := filepath.Glob(filepath.Join(saveDir, "bar1_*.yaml"))
	if err != nil || len(saved) != 1 {
		t.Fatalf("saved manifests = %v (err %v)", saved, err)
	}
	data, err := os.ReadFile(saved[0])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "uid:") != 2 {
		t.Errorf("saved manifest should carry uids:\n%s", data)
	}
}

func TestDryRun_JSONGroup(t *testing.T) {
	path := writeFile(t, "bar1.yaml", sleepManifest)
	out, err := execute(t, "dryrun", "-f", path, "--group", "night", "--json")
	if err != nil {
		t.Fatalf("dryrun: %v", err)
	}
	var q struct {
		TotalSeconds float64 `json:"total_seconds"`
		Acquisitions []struct {
			Configuration string `json:"configuration"`
		} `json:"acquisitions"`
	}
	if err := json.Unmarshal([]byte(out), &q); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if q.TotalSeconds != 150 || len(q.Acquisitions) != 1 || q.Acquisitions[0].Configuration != "SAXS" {
		t.Errorf("got %+v", q)
	}
}

func TestDryRun_Errors(t *testing.T) {
	path := writeFile(t, "bar1.yaml", sleepManifest)
	if _, err := execute(t, "dryrun", "-f", path, "--sort", "colour"); err == nil || !strings.Contains(err.Error(), "colour") {
		t.Errorf("err = %v, want unknown sort key", err)
	}
	if _, err := execute(t, "dryrun", "-f", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("want error for missing manifest")
	}
}
