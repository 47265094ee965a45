package permission

import "context"

// AskFunc is a user-provided approval callback. It receives the operation,
// the target string, and a human-readable reason, and returns true to allow.
// It is invoked only from [Checker.Check] when the decision is ask; the pure
// decision paths never call it. The engine applies no timeout around the
// callback — cancel via ctx if one is needed.
type AskFunc func(ctx context.Context, op Operation, target, reason string) (bool, error)

// AskFallback controls what Check does with an ask decision when no
// callback is configured.
type AskFallback string

const (
	FallbackDeny  AskFallback = "deny"  // resolve ask as a denial
	FallbackError AskFallback = "error" // return ApprovalRequiredError
)

// Checker evaluates operations against a permission ruleset.
//
// Rules are checked in order and the first matching rule's action is used.
// If no rule matches, the operation's default applies. If the operation has
// no configuration at all, the ruleset's global default applies on its own.
//
// A Checker is immutable after construction and safe for concurrent use,
// provided the callback tolerates concurrent invocation.
type Checker struct {
	ruleset  *Ruleset
	ask      AskFunc
	fallback AskFallback
}

// NewChecker creates a checker for the given ruleset. ask may be nil;
// fallback defaults to FallbackError when empty.
func NewChecker(ruleset *Ruleset, ask AskFunc, fallback AskFallback) *Checker {
	if fallback == "" {
		fallback = FallbackError
	}
	return &Checker{ruleset: ruleset, ask: ask, fallback: fallback}
}

// Ruleset returns the ruleset being evaluated.
func (c *Checker) Ruleset() *Ruleset {
	return c.ruleset
}

// Decide returns the action for op on target without invoking callbacks.
// It is pure and non-blocking, safe to call in tight loops.
func (c *Checker) Decide(op Operation, target string) Action {
	perms := c.ruleset.PermissionsFor(op)

	for _, rule := range perms.Rules {
		if MatchPattern(target, rule.Pattern) {
			return rule.Action
		}
	}

	return perms.DefaultAction()
}

// FindMatchingRule returns the first rule matching target for op, or nil.
// Useful for attributing a decision in error messages and audit logs.
func (c *Checker) FindMatchingRule(op Operation, target string) *Rule {
	perms := c.ruleset.PermissionsFor(op)

	for i := range perms.Rules {
		if MatchPattern(target, perms.Rules[i].Pattern) {
			return &perms.Rules[i]
		}
	}

	return nil
}

// IsAllowed reports whether op on target would be allowed outright.
// An ask decision is neither allowed nor denied.
func (c *Checker) IsAllowed(op Operation, target string) bool {
	return c.Decide(op, target) == ActionAllow
}

// IsDenied reports whether op on target would be denied outright.
func (c *Checker) IsDenied(op Operation, target string) bool {
	return c.Decide(op, target) == ActionDeny
}

// RequiresApproval reports whether op on target would need approval.
func (c *Checker) RequiresApproval(op Operation, target string) bool {
	return c.Decide(op, target) == ActionAsk
}

// Check resolves a permission decision fully, suspending on the approval
// callback when needed. It returns nil when the operation is allowed.
//
// Deny decisions return a [*DeniedError] carrying the matched rule if one
// was responsible. Ask decisions invoke the callback when present: a true
// result allows, a false result returns a *DeniedError without a rule, and
// a callback error propagates unchanged. Without a callback the configured
// [AskFallback] applies.
func (c *Checker) Check(ctx context.Context, op Operation, target, reason string) error {
	switch c.Decide(op, target) {
	case ActionAllow:
		return nil

	case ActionDeny:
		return &DeniedError{Op: op, Target: target, Rule: c.FindMatchingRule(op, target)}
	}

	// ask
	if c.ask != nil {
		allowed, err := c.ask(ctx, op, target, reason)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
		return &DeniedError{Op: op, Target: target}
	}

	if c.fallback == FallbackDeny {
		return &DeniedError{Op: op, Target: target}
	}
	return &ApprovalRequiredError{Op: op, Target: target, Reason: reason}
}
