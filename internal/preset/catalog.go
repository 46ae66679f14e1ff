// Package preset holds the named scan tables: edge thresholds and their
// aliases, region step ratios, frame targets and NEXAFS speeds.
//
// A Catalog is immutable once built. Lookups are case-insensitive and every
// slice handed out is a copy, so a single catalog can be shared by any number
// of concurrent builders.
package preset

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// file is the YAML shape of a catalog.
type file struct {
	Aliases        map[string]string            `yaml:"aliases"`
	RSoXSEdges     map[string][]float64         `yaml:"rsoxs_edges"`
	Ratios         map[string][]float64         `yaml:"ratios"`
	Frames         map[string]int               `yaml:"frames"`
	RegionFrames   map[string]map[string][]int  `yaml:"region_frames"`
	NexafsEdges    map[string][]float64         `yaml:"nexafs_edges"`
	NexafsRatios   map[string][]float64         `yaml:"nexafs_ratios"`
	Speeds         map[string]float64           `yaml:"speeds"`
	Configurations []string                     `yaml:"configurations"`
}

// Catalog is a resolved, read-only set of scan presets.
type Catalog struct {
	aliases        map[string]string
	rsoxsEdges     map[string][]float64
	ratios         map[string][]float64
	frames         map[string]int
	regionFrames   map[string][]int // key: edge + "\x00" + frames preset
	nexafsEdges    map[string][]float64
	nexafsRatios   map[string][]float64
	speeds         map[string]float64
	configurations []string
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the catalog built from the embedded tables.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultCatalog)
		if err != nil {
			panic(fmt.Sprintf("preset: embedded catalog: %v", err))
		}
		defaultCat = c
	})
	return defaultCat
}

// Parse builds a catalog from YAML data alone, without the built-in tables.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	return build(f)
}

// LoadFile reads a catalog file and merges it over the built-in tables.
// Entries in the file replace built-in entries of the same name.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Merge(data)
}

// Merge overlays YAML data on the built-in tables.
func Merge(data []byte) (*Catalog, error) {
	var base, overlay file
	if err := yaml.Unmarshal(defaultCatalog, &base); err != nil {
		return nil, fmt.Errorf("parse embedded catalog: %w", err)
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	base.Aliases = mergeMap(base.Aliases, overlay.Aliases)
	base.RSoXSEdges = mergeMap(base.RSoXSEdges, overlay.RSoXSEdges)
	base.Ratios = mergeMap(base.Ratios, overlay.Ratios)
	base.Frames = mergeMap(base.Frames, overlay.Frames)
	base.RegionFrames = mergeMap(base.RegionFrames, overlay.RegionFrames)
	base.NexafsEdges = mergeMap(base.NexafsEdges, overlay.NexafsEdges)
	base.NexafsRatios = mergeMap(base.NexafsRatios, overlay.NexafsRatios)
	base.Speeds = mergeMap(base.Speeds, overlay.Speeds)
	if len(overlay.Configurations) > 0 {
		base.Configurations = overlay.Configurations
	}
	return build(base)
}

func mergeMap[V any](base, overlay map[string]V) map[string]V {
	if base == nil {
		base = make(map[string]V, len(overlay))
	}
	for k, v := range overlay {
		base[k] = v
	}
	return base
}

func build(f file) (*Catalog, error) {
	c := &Catalog{
		aliases:      make(map[string]string, len(f.Aliases)),
		rsoxsEdges:   lowerKeys(f.RSoXSEdges),
		ratios:       lowerKeys(f.Ratios),
		frames:       lowerKeys(f.Frames),
		regionFrames: make(map[string][]int),
		nexafsEdges:  lowerKeys(f.NexafsEdges),
		nexafsRatios: lowerKeys(f.NexafsRatios),
		speeds:       lowerKeys(f.Speeds),
	}
	for alias, target := range f.Aliases {
		c.aliases[key(alias)] = key(target)
	}
	for alias, target := range c.aliases {
		_, rsoxs := c.rsoxsEdges[target]
		_, nexafs := c.nexafsEdges[target]
		if !rsoxs && !nexafs {
			return nil, fmt.Errorf("alias %q points at unknown edge %q", alias, target)
		}
	}
	for name, edges := range c.rsoxsEdges {
		if len(edges) == 0 {
			return nil, fmt.Errorf("edge %q has no thresholds", name)
		}
	}
	for name, n := range c.frames {
		if n < 1 {
			return nil, fmt.Errorf("frame preset %q must be positive, got %d", name, n)
		}
	}
	for name, v := range c.speeds {
		if v <= 0 {
			return nil, fmt.Errorf("speed preset %q must be positive, got %g", name, v)
		}
	}
	for edge, byPreset := range f.RegionFrames {
		canonical := c.Canonical(edge)
		thresholds, ok := c.rsoxsEdges[canonical]
		if !ok {
			return nil, fmt.Errorf("region_frames: unknown edge %q", edge)
		}
		for frames, counts := range byPreset {
			if len(counts) != len(thresholds)-1 {
				return nil, fmt.Errorf("region_frames[%s][%s]: got %d regions, edge has %d",
					edge, frames, len(counts), len(thresholds)-1)
			}
			c.regionFrames[regionKey(canonical, frames)] = slices.Clone(counts)
		}
	}
	c.configurations = slices.Clone(f.Configurations)
	return c, nil
}

func lowerKeys[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[key(k)] = v
	}
	return out
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func regionKey(edge, frames string) string {
	return edge + "\x00" + key(frames)
}

// Canonical resolves an alias to its edge name. Names without an alias are
// returned lower-cased.
func (c *Catalog) Canonical(name string) string {
	k := key(name)
	if target, ok := c.aliases[k]; ok {
		return target
	}
	return k
}

// Edge returns the RSoXS thresholds for a name or alias.
func (c *Catalog) Edge(name string) (canonical string, thresholds []float64, ok bool) {
	canonical = c.Canonical(name)
	t, ok := c.rsoxsEdges[canonical]
	if !ok {
		return canonical, nil, false
	}
	return canonical, slices.Clone(t), true
}

// NexafsEdge returns the NEXAFS thresholds for a name or alias.
func (c *Catalog) NexafsEdge(name string) (canonical string, thresholds []float64, ok bool) {
	canonical = c.Canonical(name)
	t, ok := c.nexafsEdges[canonical]
	if !ok {
		return canonical, nil, false
	}
	return canonical, slices.Clone(t), true
}

// RatioTable returns a ratio table by its own name, e.g. "carbon nonaromatic".
func (c *Catalog) RatioTable(name string) ([]float64, bool) {
	r, ok := c.ratios[key(name)]
	return slices.Clone(r), ok
}

// Ratios picks the default step ratios for an edge with n thresholds: the
// edge's own table if there is one, else "default n". It returns nil when
// neither exists, and callers fall back to equal steps.
func (c *Catalog) Ratios(edge string, n int) []float64 {
	return pickRatios(c.ratios, c.Canonical(edge), n)
}

// NexafsRatios is Ratios for NEXAFS speed ratios.
func (c *Catalog) NexafsRatios(edge string, n int) []float64 {
	return pickRatios(c.nexafsRatios, c.Canonical(edge), n)
}

func pickRatios(table map[string][]float64, edge string, n int) []float64 {
	if edge != "" {
		if r, ok := table[edge]; ok {
			return slices.Clone(r)
		}
	}
	if r, ok := table[fmt.Sprintf("default %d", n)]; ok {
		return slices.Clone(r)
	}
	return nil
}

// Frames returns the frame target of a named preset such as "full".
func (c *Catalog) Frames(name string) (int, bool) {
	n, ok := c.frames[key(name)]
	return n, ok
}

// RegionFrames returns an explicit per-region table for an edge and frame
// preset, if the catalog declares one.
func (c *Catalog) RegionFrames(edge, frames string) ([]int, bool) {
	counts, ok := c.regionFrames[regionKey(c.Canonical(edge), frames)]
	return slices.Clone(counts), ok
}

// Speed returns a NEXAFS base speed in eV/s.
func (c *Catalog) Speed(name string) (float64, bool) {
	v, ok := c.speeds[key(name)]
	return v, ok
}

// ValidConfiguration reports whether name is a known endstation configuration.
// Configuration names are matched exactly.
func (c *Catalog) ValidConfiguration(name string) bool {
	return slices.Contains(c.configurations, name)
}

// Configurations lists the known endstation configurations.
func (c *Catalog) Configurations() []string {
	return slices.Clone(c.configurations)
}

// EdgeNames lists the RSoXS edge names, sorted.
func (c *Catalog) EdgeNames() []string {
	return sortedKeys(c.rsoxsEdges)
}

// FrameNames lists the frame presets, sorted. The empty preset is omitted.
func (c *Catalog) FrameNames() []string {
	names := sortedKeys(c.frames)
	return slices.DeleteFunc(names, func(s string) bool { return s == "" })
}

// SpeedNames lists the NEXAFS speed presets, sorted. The empty preset is omitted.
func (c *Catalog) SpeedNames() []string {
	names := sortedKeys(c.speeds)
	return slices.DeleteFunc(names, func(s string) bool { return s == "" })
}

// Aliases returns a copy of the alias table.
func (c *Catalog) Aliases() map[string]string {
	out := make(map[string]string, len(c.aliases))
	for k, v := range c.aliases {
		out[k] = v
	}
	return out
}

// AliasesOf lists the aliases that resolve to edge, sorted.
func (c *Catalog) AliasesOf(edge string) []string {
	canonical := c.Canonical(edge)
	var out []string
	for alias, target := range c.aliases {
		if target == canonical {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
