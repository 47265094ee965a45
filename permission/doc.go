// Package permission implements the policy engine that classifies backend
// operations into allow, deny, or ask decisions.
//
// Policy is declared as a [Ruleset]: a global default action plus an
// optional [OperationPermissions] per operation, each holding its own
// default and an ordered rule list. Rules match targets (paths or command
// strings) with a restricted glob dialect; evaluation is first match wins.
//
// A [Checker] evaluates a ruleset two ways. The pure path ([Checker.Decide]
// and its predicate wrappers) never blocks and never invokes callbacks. The
// suspending path ([Checker.Check]) resolves ask decisions through a
// user-supplied callback, with a configurable fallback when no callback is
// available.
package permission
