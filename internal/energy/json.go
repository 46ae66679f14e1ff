package energy

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// The JSON forms mirror the YAML ones. JSON is valid YAML, so decoding goes
// through the same node handlers.

func (e EdgeSpec) MarshalJSON() ([]byte, error) { return marshalJSON(e.MarshalYAML) }

func (e *EdgeSpec) UnmarshalJSON(data []byte) error { return unmarshalJSON(data, e.UnmarshalYAML) }

func (f FramePolicy) MarshalJSON() ([]byte, error) { return marshalJSON(f.MarshalYAML) }

func (f *FramePolicy) UnmarshalJSON(data []byte) error { return unmarshalJSON(data, f.UnmarshalYAML) }

func (r RatioSpec) MarshalJSON() ([]byte, error) { return marshalJSON(r.MarshalYAML) }

func (r *RatioSpec) UnmarshalJSON(data []byte) error { return unmarshalJSON(data, r.UnmarshalYAML) }

func marshalJSON(value func() (any, error)) ([]byte, error) {
	v, err := value()
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, decode func(*yaml.Node) error) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 {
		return decode(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"})
	}
	return decode(doc.Content[0])
}
