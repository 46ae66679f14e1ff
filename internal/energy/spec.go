package energy

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EdgeKind tags the variant held by an EdgeSpec.
type EdgeKind int

const (
	EdgeUnset  EdgeKind = iota
	EdgeNamed           // catalog edge or alias, e.g. "carbon", "c"
	EdgeList            // explicit thresholds
	EdgeSingle          // one energy
)

// EdgeSpec selects the thresholds of a scan.
type EdgeSpec struct {
	kind   EdgeKind
	name   string
	values []float64
}

// Named refers to a catalog edge or alias.
func Named(name string) EdgeSpec {
	return EdgeSpec{kind: EdgeNamed, name: strings.TrimSpace(name)}
}

// Thresholds uses explicit region boundaries. Repeated values are kept.
func Thresholds(values ...float64) EdgeSpec {
	return EdgeSpec{kind: EdgeList, values: slices.Clone(values)}
}

// Single is a one-point edge.
func Single(energy float64) EdgeSpec {
	return EdgeSpec{kind: EdgeSingle, values: []float64{energy}}
}

func (e EdgeSpec) Kind() EdgeKind { return e.kind }

// Name is the preset name for EdgeNamed, "" otherwise.
func (e EdgeSpec) Name() string { return e.name }

// Values returns the literal thresholds for EdgeList and EdgeSingle.
func (e EdgeSpec) Values() []float64 { return slices.Clone(e.values) }

func (e EdgeSpec) IsZero() bool { return e.kind == EdgeUnset }

func (e EdgeSpec) String() string {
	switch e.kind {
	case EdgeNamed:
		return e.name
	case EdgeSingle:
		return formatFloat(e.values[0])
	case EdgeList:
		return "(" + joinFloats(e.values) + ")"
	default:
		return ""
	}
}

// ParseEdgeSpec reads an edge from text: "carbon", "1850" or "250,270,282".
// Surrounding brackets or parentheses are ignored.
func ParseEdgeSpec(s string) (EdgeSpec, error) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "()[]"))
	if s == "" {
		return EdgeSpec{}, &InvalidEdgesError{Reason: "empty edge"}
	}
	if strings.Contains(s, ",") {
		vals, err := parseFloats(s)
		if err != nil {
			return EdgeSpec{}, &InvalidEdgesError{Reason: err.Error()}
		}
		return Thresholds(vals...), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return Single(v), nil
	}
	return Named(s), nil
}

// UnmarshalYAML accepts a name, a number or a list of numbers.
func (e *EdgeSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*e = EdgeSpec{}
			return nil
		}
		spec, err := ParseEdgeSpec(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*e = spec
		return nil
	case yaml.SequenceNode:
		var vals []float64
		if err := node.Decode(&vals); err != nil {
			return fmt.Errorf("line %d: edge thresholds: %w", node.Line, err)
		}
		*e = Thresholds(vals...)
		return nil
	default:
		return fmt.Errorf("line %d: edge must be a name, a number or a list", node.Line)
	}
}

func (e EdgeSpec) MarshalYAML() (any, error) {
	switch e.kind {
	case EdgeNamed:
		return e.name, nil
	case EdgeSingle:
		return e.values[0], nil
	case EdgeList:
		return e.values, nil
	default:
		return nil, nil
	}
}

// FrameKind tags the variant held by a FramePolicy.
type FrameKind int

const (
	FramesUnset     FrameKind = iota
	FramesUniform             // same count in every region
	FramesPerRegion           // one count per region
	FramesPreset              // catalog preset such as "full"
	FramesWeighted            // total target spread by step ratios
)

// FramePolicy says how many frames each region gets.
type FramePolicy struct {
	kind      FrameKind
	n         int
	counts    []int
	name      string
	ratios    []float64
	ratioName string
}

// Uniform gives every region n frames.
func Uniform(n int) FramePolicy {
	return FramePolicy{kind: FramesUniform, n: n}
}

// PerRegion gives region i counts[i] frames.
func PerRegion(counts ...int) FramePolicy {
	return FramePolicy{kind: FramesPerRegion, counts: slices.Clone(counts)}
}

// Preset names a catalog frame preset.
func Preset(name string) FramePolicy {
	return FramePolicy{kind: FramesPreset, name: strings.TrimSpace(name)}
}

// Weighted aims for total frames, shared between regions so that region i
// steps in proportion to ratios[i]. With no ratios the catalog default for
// the edge is used.
func Weighted(total int, ratios ...float64) FramePolicy {
	return FramePolicy{kind: FramesWeighted, n: total, ratios: slices.Clone(ratios)}
}

// WeightedTable is Weighted with a named catalog ratio table.
func WeightedTable(total int, table string) FramePolicy {
	return FramePolicy{kind: FramesWeighted, n: total, ratioName: strings.TrimSpace(table)}
}

func (f FramePolicy) Kind() FrameKind { return f.kind }

func (f FramePolicy) IsZero() bool { return f.kind == FramesUnset }

// Count is the uniform count or weighted total.
func (f FramePolicy) Count() int { return f.n }

// Counts returns the per-region list.
func (f FramePolicy) Counts() []int { return slices.Clone(f.counts) }

// Name is the preset name.
func (f FramePolicy) Name() string { return f.name }

func (f FramePolicy) String() string {
	switch f.kind {
	case FramesUniform:
		return strconv.Itoa(f.n)
	case FramesPerRegion:
		parts := make([]string, len(f.counts))
		for i, c := range f.counts {
			parts[i] = strconv.Itoa(c)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case FramesPreset:
		return f.name
	case FramesWeighted:
		switch {
		case f.ratioName != "":
			return fmt.Sprintf("%d @ %s", f.n, f.ratioName)
		case len(f.ratios) > 0:
			return fmt.Sprintf("%d @ (%s)", f.n, joinFloats(f.ratios))
		default:
			return fmt.Sprintf("%d weighted", f.n)
		}
	default:
		return ""
	}
}

// ParseFramePolicy reads frames from text: "full", "40" or "10,5,20".
// Empty text yields the unset policy.
func ParseFramePolicy(s string) (FramePolicy, error) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "()[]"))
	if s == "" {
		return FramePolicy{}, nil
	}
	if strings.Contains(s, ",") {
		var counts []int
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return FramePolicy{}, &InvalidEdgesError{Reason: fmt.Sprintf("frame count %q is not an integer", part)}
			}
			counts = append(counts, n)
		}
		return PerRegion(counts...), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Uniform(n), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return FramePolicy{}, &InvalidEdgesError{Reason: fmt.Sprintf("frame count %g is not an integer", v)}
	}
	return Preset(s), nil
}

type weightedYAML struct {
	Total  int       `yaml:"total"`
	Ratios yaml.Node `yaml:"ratios"`
}

// UnmarshalYAML accepts a preset name, an integer, a list of integers, or a
// mapping {total: N, ratios: [..] | name}.
func (f *FramePolicy) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*f = FramePolicy{}
			return nil
		}
		p, err := ParseFramePolicy(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*f = p
		return nil
	case yaml.SequenceNode:
		var counts []int
		if err := node.Decode(&counts); err != nil {
			return fmt.Errorf("line %d: frame counts: %w", node.Line, err)
		}
		*f = PerRegion(counts...)
		return nil
	case yaml.MappingNode:
		var w weightedYAML
		if err := node.Decode(&w); err != nil {
			return fmt.Errorf("line %d: weighted frames: %w", node.Line, err)
		}
		var r RatioSpec
		if err := r.UnmarshalYAML(&w.Ratios); err != nil {
			return err
		}
		*f = r.Apply(w.Total)
		return nil
	default:
		return fmt.Errorf("line %d: frames must be a name, an integer or a list", node.Line)
	}
}

func (f FramePolicy) MarshalYAML() (any, error) {
	switch f.kind {
	case FramesUniform:
		return f.n, nil
	case FramesPerRegion:
		return f.counts, nil
	case FramesPreset:
		return f.name, nil
	case FramesWeighted:
		out := map[string]any{"total": f.n}
		if f.ratioName != "" {
			out["ratios"] = f.ratioName
		} else if len(f.ratios) > 0 {
			out["ratios"] = f.ratios
		}
		return out, nil
	default:
		return nil, nil
	}
}

// RatioSpec is a step-ratio table given either by catalog name or inline.
type RatioSpec struct {
	Name   string
	Values []float64
}

func (r RatioSpec) IsZero() bool { return r.Name == "" && len(r.Values) == 0 }

// Apply makes a weighted policy with this ratio table.
func (r RatioSpec) Apply(total int) FramePolicy {
	if r.Name != "" {
		return WeightedTable(total, r.Name)
	}
	return Weighted(total, r.Values...)
}

// ParseRatioSpec reads "5,1,0.1" or a table name.
func ParseRatioSpec(s string) (RatioSpec, error) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "()[]"))
	if s == "" {
		return RatioSpec{}, nil
	}
	if strings.Contains(s, ",") {
		vals, err := parseFloats(s)
		if err != nil {
			return RatioSpec{}, &InvalidEdgesError{Reason: err.Error()}
		}
		return RatioSpec{Values: vals}, nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return RatioSpec{Values: []float64{v}}, nil
	}
	return RatioSpec{Name: s}, nil
}

func (r *RatioSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case 0:
		*r = RatioSpec{}
		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*r = RatioSpec{}
			return nil
		}
		spec, err := ParseRatioSpec(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*r = spec
		return nil
	case yaml.SequenceNode:
		var vals []float64
		if err := node.Decode(&vals); err != nil {
			return fmt.Errorf("line %d: ratios: %w", node.Line, err)
		}
		*r = RatioSpec{Values: vals}
		return nil
	default:
		return fmt.Errorf("line %d: ratios must be a name or a list", node.Line)
	}
}

func (r RatioSpec) MarshalYAML() (any, error) {
	if r.Name != "" {
		return r.Name, nil
	}
	if len(r.Values) > 0 {
		return r.Values, nil
	}
	return nil, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ",")
}
