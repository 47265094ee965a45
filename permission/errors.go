package permission

import "fmt"

// ApprovalRequiredError is returned by [Checker.Check] when the decision is
// ask, no callback is configured, and the fallback policy is FallbackError.
// Callers can recover by re-invoking with a callback or treating it as a
// denial.
type ApprovalRequiredError struct {
	Op     Operation
	Target string
	Reason string
}

func (e *ApprovalRequiredError) Error() string {
	msg := fmt.Sprintf("permission required for %s on %q", e.Op, e.Target)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// DeniedError is returned by [Checker.Check] when the decision resolves to
// deny: a matched deny rule, a deny default, a callback rejection, or the
// FallbackDeny policy. Rule is the matched rule when one was responsible,
// nil when the denial came from a default or a rejected ask.
type DeniedError struct {
	Op     Operation
	Target string
	Rule   *Rule
}

func (e *DeniedError) Error() string {
	msg := fmt.Sprintf("permission denied for %s on %q", e.Op, e.Target)
	if e.Rule != nil && e.Rule.Description != "" {
		msg += ": " + e.Rule.Description
	}
	return msg
}
