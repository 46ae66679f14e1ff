package exposure

import (
	"math"
	"strconv"
	"strings"
)

// Tag names an energy predicate.
type Tag string

const (
	TagBetween     Tag = "between"      // low <= e <= high
	TagGreaterThan Tag = "greater_than" // e > bound
	TagLessThan    Tag = "less_than"    // e < bound
	TagEquals      Tag = "equals"       // e == bound
)

// ParseTag normalizes a predicate tag. "greater than" and "less than" are
// accepted for the underscored forms.
func ParseTag(s string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "between":
		return TagBetween, nil
	case "greater_than", "greater than":
		return TagGreaterThan, nil
	case "less_than", "less than":
		return TagLessThan, nil
	case "equals":
		return TagEquals, nil
	}
	return "", invalid("unknown test %q, want between, greater_than, less_than or equals", s)
}

func (t Tag) arity() int {
	if t == TagBetween {
		return 2
	}
	return 1
}

// Test is an energy predicate.
type Test struct {
	Tag    Tag
	Bounds []float64
}

func Between(low, high float64) Test { return Test{Tag: TagBetween, Bounds: []float64{low, high}} }
func GreaterThan(bound float64) Test { return Test{Tag: TagGreaterThan, Bounds: []float64{bound}} }
func LessThan(bound float64) Test    { return Test{Tag: TagLessThan, Bounds: []float64{bound}} }
func Equals(bound float64) Test      { return Test{Tag: TagEquals, Bounds: []float64{bound}} }

// Match reports whether energy satisfies the test.
func (t Test) Match(energy float64) bool {
	tag, err := ParseTag(string(t.Tag))
	if err != nil || len(t.Bounds) < tag.arity() {
		return false
	}
	switch tag {
	case TagBetween:
		return t.Bounds[0] <= energy && energy <= t.Bounds[1]
	case TagGreaterThan:
		return energy > t.Bounds[0]
	case TagLessThan:
		return energy < t.Bounds[0]
	case TagEquals:
		return energy == t.Bounds[0]
	}
	return false
}

func (t Test) validate() error {
	tag, err := ParseTag(string(t.Tag))
	if err != nil {
		return err
	}
	if len(t.Bounds) != tag.arity() {
		return invalid("%s takes %d bound(s), got %d", tag, tag.arity(), len(t.Bounds))
	}
	for _, b := range t.Bounds {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return invalid("%s bound %g is not finite", tag, b)
		}
	}
	if tag == TagBetween && t.Bounds[0] > t.Bounds[1] {
		return invalid("between bounds %g > %g", t.Bounds[0], t.Bounds[1])
	}
	return nil
}

func (t Test) String() string {
	tag := t.Tag
	if c, err := ParseTag(string(tag)); err == nil {
		tag = c
	}
	parts := []string{string(tag)}
	for _, b := range t.Bounds {
		parts = append(parts, strconv.FormatFloat(b, 'g', -1, 64))
	}
	return strings.Join(parts, ":")
}

// Rule maps energies matching Test to Value seconds. A rule without a test
// is unconditional.
type Rule struct {
	Test  *Test
	Value float64
}

// Scalar is an unconditional rule.
func Scalar(value float64) Rule { return Rule{Value: value} }

// When is a conditional rule.
func When(t Test, value float64) Rule { return Rule{Test: &t, Value: value} }

func (r Rule) Unconditional() bool { return r.Test == nil }

func (r Rule) String() string {
	v := strconv.FormatFloat(r.Value, 'g', -1, 64)
	if r.Test == nil {
		return v
	}
	return r.Test.String() + "=" + v
}

// Policy is an ordered rule list. Conditional rules are tried in order and
// the first match wins; the unconditional rule, if any, covers the rest.
type Policy []Rule

// Constant gives every energy the same exposure.
func Constant(seconds float64) Policy { return Policy{Scalar(seconds)} }

// ParsePolicy builds a policy from mixed items: numbers and Test values.
// A Test must be followed by the number it assigns. A number that follows no
// Test is the unconditional exposure. It may sit anywhere in the list and
// still only covers energies no conditional rule matches, so a policy holds
// at most one; a second gives an InvalidPolicyError.
func ParsePolicy(items ...any) (Policy, error) {
	var p Policy
	for i := 0; i < len(items); i++ {
		var t Test
		switch it := items[i].(type) {
		case Test:
			t = it
		case *Test:
			if it == nil {
				return nil, invalid("item %d is a nil test", i)
			}
			t = *it
		default:
			v, ok := number(it)
			if !ok {
				return nil, invalid("item %d (%v) is neither a number nor a test", i, it)
			}
			p = append(p, Scalar(v))
			continue
		}
		if i+1 >= len(items) {
			return nil, invalid("test %s has no exposure value", t)
		}
		v, ok := number(items[i+1])
		if !ok {
			return nil, invalid("test %s must be followed by a number, got %v", t, items[i+1])
		}
		p = append(p, When(t, v))
		i++
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// ParsePolicyString reads the command-line form
// "2;between:1870:1900=4;greater_than:1920=1". The rules for the lone
// number are those of ParsePolicy.
func ParsePolicyString(s string) (Policy, error) {
	var p Policy
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lhs, rhs, cond := strings.Cut(part, "=")
		if !cond {
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, invalid("%q is not a number", part)
			}
			p = append(p, Scalar(v))
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rhs), 64)
		if err != nil {
			return nil, invalid("exposure %q is not a number", rhs)
		}
		fields := strings.Split(lhs, ":")
		tag, err := ParseTag(fields[0])
		if err != nil {
			return nil, err
		}
		t := Test{Tag: tag}
		for _, f := range fields[1:] {
			b, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, invalid("bound %q is not a number", f)
			}
			t.Bounds = append(t.Bounds, b)
		}
		p = append(p, When(t, v))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks tests and values, and that at most one rule is unconditional.
func (p Policy) Validate() error {
	if len(p) == 0 {
		return invalid("no rules")
	}
	defaults := 0
	for i, r := range p {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) || r.Value < 0 {
			return invalid("rule %d exposure %g must be a non-negative number", i, r.Value)
		}
		if r.Test == nil {
			defaults++
			continue
		}
		if err := r.Test.validate(); err != nil {
			return err
		}
	}
	if defaults > 1 {
		return invalid("%d unconditional exposures, at most one is allowed", defaults)
	}
	return nil
}

// Default returns the unconditional rule index, or -1.
func (p Policy) Default() int {
	for i, r := range p {
		if r.Unconditional() {
			return i
		}
	}
	return -1
}

func (p Policy) String() string {
	parts := make([]string, len(p))
	for i, r := range p {
		parts[i] = r.String()
	}
	return strings.Join(parts, ";")
}

// Match returns the index of the rule that covers energy, or -1.
func (p Policy) Match(energy float64) int {
	for i, r := range p {
		if r.Test != nil && r.Test.Match(energy) {
			return i
		}
	}
	return p.Default()
}
