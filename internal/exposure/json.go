package exposure

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// MarshalJSON uses the YAML form: a number or a list of numbers and tests.
func (p Policy) MarshalJSON() ([]byte, error) {
	v, err := p.MarshalYAML()
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func (p *Policy) UnmarshalJSON(data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 {
		*p = nil
		return nil
	}
	return p.UnmarshalYAML(doc.Content[0])
}
