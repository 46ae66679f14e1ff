package exposure

import "fmt"

// NoMatchingRuleError reports an energy that no rule covers and a policy
// with no unconditional rule to fall back on.
type NoMatchingRuleError struct {
	Index  int
	Energy float64
}

func (e *NoMatchingRuleError) Error() string {
	return fmt.Sprintf("no exposure rule matches energy %g (index %d)", e.Energy, e.Index)
}

// InvalidPolicyError reports a malformed policy, scale or repeat count.
type InvalidPolicyError struct {
	Reason string
}

func (e *InvalidPolicyError) Error() string {
	return "invalid exposure policy: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &InvalidPolicyError{Reason: fmt.Sprintf(format, args...)}
}
