package exposure

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts a number, the command-line string form, or a list
// mixing numbers and tests. A test is written [tag, bound...] or
// {tag: bound} / {tag: [low, high]}:
//
//	exposure: [2, [between, 1870, 1900], 4, {greater_than: 1920}, 1]
func (p *Policy) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*p = nil
			return nil
		}
		if v, err := strconv.ParseFloat(node.Value, 64); err == nil {
			*p = Constant(v)
			return nil
		}
		parsed, err := ParsePolicyString(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*p = parsed
		return nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, n := range node.Content {
			it, err := decodeItem(n)
			if err != nil {
				return fmt.Errorf("line %d: %w", n.Line, err)
			}
			items = append(items, it)
		}
		parsed, err := ParsePolicy(items...)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*p = parsed
		return nil
	default:
		return fmt.Errorf("line %d: exposure must be a number, a string or a list", node.Line)
	}
}

func decodeItem(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := n.Decode(&v); err != nil {
			return nil, invalid("%q is not a number", n.Value)
		}
		return v, nil
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return nil, invalid("empty test")
		}
		tag, err := ParseTag(n.Content[0].Value)
		if err != nil {
			return nil, err
		}
		var bounds []float64
		if err := decodeBounds(n.Content[1:], &bounds); err != nil {
			return nil, err
		}
		return Test{Tag: tag, Bounds: bounds}, nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, invalid("a test mapping needs exactly one key")
		}
		tag, err := ParseTag(n.Content[0].Value)
		if err != nil {
			return nil, err
		}
		val := n.Content[1]
		var bounds []float64
		if val.Kind == yaml.SequenceNode {
			err = decodeBounds(val.Content, &bounds)
		} else {
			err = decodeBounds([]*yaml.Node{val}, &bounds)
		}
		if err != nil {
			return nil, err
		}
		return Test{Tag: tag, Bounds: bounds}, nil
	}
	return nil, invalid("unsupported exposure item")
}

func decodeBounds(nodes []*yaml.Node, out *[]float64) error {
	for _, b := range nodes {
		var v float64
		if err := b.Decode(&v); err != nil {
			return invalid("bound %q is not a number", b.Value)
		}
		*out = append(*out, v)
	}
	return nil
}

// MarshalYAML writes a constant policy as a number and anything else as a
// list of numbers and [tag, bound...] tests.
func (p Policy) MarshalYAML() (any, error) {
	if len(p) == 0 {
		return nil, nil
	}
	if len(p) == 1 && p[0].Unconditional() {
		return p[0].Value, nil
	}
	out := make([]any, 0, 2*len(p))
	for _, r := range p {
		if r.Test != nil {
			t := []any{string(r.Test.Tag)}
			for _, b := range r.Test.Bounds {
				t = append(t, b)
			}
			out = append(out, t)
		}
		out = append(out, r.Value)
	}
	return out, nil
}
