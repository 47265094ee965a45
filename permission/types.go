package permission

import "fmt"

// Action is the outcome of a permission decision.
type Action string

const (
	ActionAllow Action = "allow" // Operation proceeds without confirmation
	ActionDeny  Action = "deny"  // Operation is blocked
	ActionAsk   Action = "ask"   // Operation needs external approval
)

// Operation is one of the controlled operation kinds. The vocabulary is
// closed; there is no runtime registration of new operations.
type Operation string

const (
	OpRead    Operation = "read"
	OpWrite   Operation = "write"
	OpEdit    Operation = "edit"
	OpExecute Operation = "execute"
	OpGlob    Operation = "glob"
	OpGrep    Operation = "grep"
	OpLs      Operation = "ls"
)

// Operations lists every controlled operation kind.
var Operations = []Operation{OpRead, OpWrite, OpEdit, OpExecute, OpGlob, OpGrep, OpLs}

// Rule matches targets and specifies an action. Rules are evaluated in
// order; the first matching rule wins.
//
// Patterns use a restricted glob dialect:
//   - `*` matches any characters except `/`
//   - `**` matches any characters including `/`
//   - `?` matches any single character except `/`
//   - `[seq]` matches any character in seq (see [CompilePattern] for the
//     negation caveat)
type Rule struct {
	// Pattern is the glob pattern matched against paths or commands.
	Pattern string `json:"pattern" yaml:"pattern"`

	// Action taken when the pattern matches.
	Action Action `json:"action" yaml:"action"`

	// Description is a human-readable reason for the rule. It is surfaced
	// in denial messages.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// OperationPermissions configures a single operation: a default action plus
// rules that override it for specific patterns.
type OperationPermissions struct {
	// Default applies when no rule matches. The zero value means allow.
	Default Action `json:"default,omitempty" yaml:"default,omitempty"`

	// Rules are evaluated in order; first match wins.
	Rules []Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// DefaultAction returns the configured default, or ActionAllow when unset.
func (p OperationPermissions) DefaultAction() Action {
	if p.Default == "" {
		return ActionAllow
	}
	return p.Default
}

// Ruleset is the complete policy document: a global default plus optional
// per-operation configuration. Rulesets are value objects, built once and
// treated as immutable for the lifetime of a checker; concurrent evaluation
// needs no locking.
type Ruleset struct {
	// Default is the global action for operations with no configuration.
	// The zero value means ask.
	Default Action `json:"default,omitempty" yaml:"default,omitempty"`

	Read    *OperationPermissions `json:"read,omitempty" yaml:"read,omitempty"`
	Write   *OperationPermissions `json:"write,omitempty" yaml:"write,omitempty"`
	Edit    *OperationPermissions `json:"edit,omitempty" yaml:"edit,omitempty"`
	Execute *OperationPermissions `json:"execute,omitempty" yaml:"execute,omitempty"`
	Glob    *OperationPermissions `json:"glob,omitempty" yaml:"glob,omitempty"`
	Grep    *OperationPermissions `json:"grep,omitempty" yaml:"grep,omitempty"`
	Ls      *OperationPermissions `json:"ls,omitempty" yaml:"ls,omitempty"`
}

// DefaultAction returns the global default, or ActionAsk when unset.
func (rs *Ruleset) DefaultAction() Action {
	if rs.Default == "" {
		return ActionAsk
	}
	return rs.Default
}

// operation returns the configured permissions pointer for op, or nil when
// op is unconfigured or unknown.
func (rs *Ruleset) operation(op Operation) *OperationPermissions {
	switch op {
	case OpRead:
		return rs.Read
	case OpWrite:
		return rs.Write
	case OpEdit:
		return rs.Edit
	case OpExecute:
		return rs.Execute
	case OpGlob:
		return rs.Glob
	case OpGrep:
		return rs.Grep
	case OpLs:
		return rs.Ls
	default:
		return nil
	}
}

// PermissionsFor returns the permissions governing op. A configured
// operation is returned verbatim; an unconfigured (or unknown) operation
// yields a degenerate config carrying only the ruleset's global default.
// The global default never combines with an operation's own rule list.
func (rs *Ruleset) PermissionsFor(op Operation) OperationPermissions {
	if p := rs.operation(op); p != nil {
		return *p
	}
	return OperationPermissions{Default: rs.DefaultAction()}
}

// Validate checks that every action in the ruleset is one of allow, deny,
// or ask. Empty actions are valid (they mean the documented defaults).
func (rs *Ruleset) Validate() error {
	if err := validAction(rs.Default); err != nil {
		return fmt.Errorf("ruleset default: %w", err)
	}
	for _, op := range Operations {
		p := rs.operation(op)
		if p == nil {
			continue
		}
		if err := validAction(p.Default); err != nil {
			return fmt.Errorf("%s default: %w", op, err)
		}
		for i, r := range p.Rules {
			if r.Pattern == "" {
				return fmt.Errorf("%s rule %d: empty pattern", op, i)
			}
			if r.Action == "" {
				return fmt.Errorf("%s rule %d: missing action", op, i)
			}
			if err := validAction(r.Action); err != nil {
				return fmt.Errorf("%s rule %d: %w", op, i, err)
			}
		}
	}
	return nil
}

func validAction(a Action) error {
	switch a {
	case "", ActionAllow, ActionDeny, ActionAsk:
		return nil
	default:
		return fmt.Errorf("invalid action %q", a)
	}
}
