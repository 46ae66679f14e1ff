package energy

import "fmt"

// UnknownPresetError reports a name that is not in the catalog.
type UnknownPresetError struct {
	Kind string // "edge", "frames", "ratios", "speed"
	Name string
}

func (e *UnknownPresetError) Error() string {
	return fmt.Sprintf("unknown %s preset %q", e.Kind, e.Name)
}

// InvalidEdgesError reports unusable thresholds or frame values.
type InvalidEdgesError struct {
	Reason string
}

func (e *InvalidEdgesError) Error() string {
	return "invalid edges: " + e.Reason
}

// FrameCountMismatchError reports a per-region list whose length does not
// match the number of regions.
type FrameCountMismatchError struct {
	What string // "frames" or "ratios"
	Got  int
	Want int
}

func (e *FrameCountMismatchError) Error() string {
	return fmt.Sprintf("got %d %s, edges define %d regions", e.Got, e.What, e.Want)
}

// UnresolvedPresetError reports a named frame preset used with edges that do
// not carry a named region structure.
type UnresolvedPresetError struct {
	Frames string
}

func (e *UnresolvedPresetError) Error() string {
	return fmt.Sprintf("frame preset %q needs a named edge", e.Frames)
}
