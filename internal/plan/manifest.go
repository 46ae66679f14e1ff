package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rsoxsplan/internal/energy"
	"rsoxsplan/internal/exposure"
)

// DefaultPriority is given to acquisitions that do not set one.
const DefaultPriority = 50

// Manifest is an acquisition request: the samples on a bar and what to
// measure on each.
type Manifest struct {
	Samples []Sample `json:"samples" yaml:"samples"`
}

// Sample is one sample on the bar with its acquisitions.
type Sample struct {
	ID           string        `json:"sample_id" yaml:"sample_id"`
	Name         string        `json:"sample_name,omitempty" yaml:"sample_name,omitempty"`
	Project      string        `json:"project_name,omitempty" yaml:"project_name,omitempty"`
	ProposalID   string        `json:"proposal_id,omitempty" yaml:"proposal_id,omitempty"`
	Priority     int           `json:"sample_priority,omitempty" yaml:"sample_priority,omitempty"`
	BarSpot      string        `json:"bar_spot,omitempty" yaml:"bar_spot,omitempty"`
	Front        bool          `json:"front,omitempty" yaml:"front,omitempty"`
	Grazing      bool          `json:"grazing,omitempty" yaml:"grazing,omitempty"`
	Notes        string        `json:"notes,omitempty" yaml:"notes,omitempty"`
	Acquisitions []Acquisition `json:"acquisitions" yaml:"acquisitions"`
}

// Acquisition is one requested measurement. Which fields matter depends on
// Type: rsoxs uses Frames/Ratios/Exposure/Repeats, nexafs uses Speed/Ratios/
// Cycles/PolMode, spiral uses Diameter/SpiralStep and a single-energy Edge,
// and sleep reads its seconds from Edge.
type Acquisition struct {
	UID           string             `json:"uid,omitempty" yaml:"uid,omitempty"`
	Configuration string             `json:"configuration" yaml:"configuration"`
	Type          string             `json:"type" yaml:"type"`
	Priority      int                `json:"priority,omitempty" yaml:"priority,omitempty"`
	Group         string             `json:"group,omitempty" yaml:"group,omitempty"`
	Edge          energy.EdgeSpec    `json:"edge" yaml:"edge,omitempty"`
	Frames        energy.FramePolicy `json:"frames,omitempty" yaml:"frames,omitempty"`
	Ratios        energy.RatioSpec   `json:"ratios,omitempty" yaml:"ratios,omitempty"`
	Exposure      exposure.Policy    `json:"exposure_time,omitempty" yaml:"exposure_time,omitempty"`
	Repeats       int                `json:"repeats,omitempty" yaml:"repeats,omitempty"`
	Speed         string             `json:"speed,omitempty" yaml:"speed,omitempty"`
	Cycles        int                `json:"cycles,omitempty" yaml:"cycles,omitempty"`
	PolMode       string             `json:"pol_mode,omitempty" yaml:"pol_mode,omitempty"`
	Diameter      float64            `json:"diameter,omitempty" yaml:"diameter,omitempty"`
	SpiralStep    float64            `json:"spiral_step,omitempty" yaml:"spiral_step,omitempty"`
	Polarizations []float64          `json:"polarizations,omitempty" yaml:"polarizations,omitempty"`
	Angles        []float64          `json:"angles,omitempty" yaml:"angles,omitempty"`
	Temperatures  []float64          `json:"temperatures,omitempty" yaml:"temperatures,omitempty"`
	TempRampSpeed float64            `json:"temp_ramp_speed,omitempty" yaml:"temp_ramp_speed,omitempty"`
	Grating       string             `json:"grating,omitempty" yaml:"grating,omitempty"`
	DiodeRange    string             `json:"diode_range,omitempty" yaml:"diode_range,omitempty"`
	Notes         string             `json:"acquisition_notes,omitempty" yaml:"acquisition_notes,omitempty"`
}

// EffectivePriority is Priority, or DefaultPriority when unset.
func (a Acquisition) EffectivePriority() int {
	if a.Priority == 0 {
		return DefaultPriority
	}
	return a.Priority
}

// LoadManifest reads a manifest file. YAML and JSON are both accepted; the
// format is picked by extension (.yaml/.yml, .json) or by content.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data, filepath.Ext(path))
}

// ParseManifest parses manifest bytes. ext is a format hint; empty means
// detect from the first non-blank character. JSON goes through the YAML
// decoder too, so the edge, frame and exposure codecs apply to both.
func ParseManifest(data []byte, ext string) (*Manifest, error) {
	format := "yaml"
	switch strings.ToLower(ext) {
	case ".json":
		format = "json"
	case ".yaml", ".yml":
	default:
		if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
			format = "json"
		}
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse manifest %s: empty document", format)
		}
		return nil, fmt.Errorf("parse manifest %s: %w", format, err)
	}
	return &m, nil
}

// SaveManifest writes m as YAML to dir/<name>_<YYYYMMDD-HHMMSS>.yaml and
// returns the path.
func SaveManifest(m *Manifest, dir, name string, now time.Time) (string, error) {
	if name == "" {
		name = "manifest"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("save manifest: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.yaml", name, now.Format("20060102-150405")))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("save manifest: %w", err)
	}
	return path, nil
}
