package permission_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmtasker/agent-backends-go/permission"
)

// rulesetWith builds a ruleset configuring only the write operation.
func rulesetWith(def permission.Action, rules ...permission.Rule) *permission.Ruleset {
	return &permission.Ruleset{
		Default: permission.ActionDeny,
		Write:   &permission.OperationPermissions{Default: def, Rules: rules},
	}
}

func TestDecideAllowDenyAsk(t *testing.T) {
	for _, action := range []permission.Action{
		permission.ActionAllow, permission.ActionDeny, permission.ActionAsk,
	} {
		c := permission.NewChecker(rulesetWith(action), nil, "")
		assert.Equal(t, action, c.Decide(permission.OpWrite, "/a.txt"))
	}
}

func TestDecideFirstMatchWins(t *testing.T) {
	c := permission.NewChecker(rulesetWith(permission.ActionAsk,
		permission.Rule{Pattern: "**/*.txt", Action: permission.ActionAllow},
		permission.Rule{Pattern: "**/a.txt", Action: permission.ActionDeny},
	), nil, "")

	// Both patterns match; the first, less specific rule still wins.
	assert.Equal(t, permission.ActionAllow, c.Decide(permission.OpWrite, "dir/a.txt"))
}

func TestDecideFallsBackToOperationDefault(t *testing.T) {
	c := permission.NewChecker(rulesetWith(permission.ActionAsk,
		permission.Rule{Pattern: "**/*.go", Action: permission.ActionDeny},
	), nil, "")

	assert.Equal(t, permission.ActionDeny, c.Decide(permission.OpWrite, "main.go"))
	assert.Equal(t, permission.ActionAsk, c.Decide(permission.OpWrite, "main.py"))
}

func TestDecideUnconfiguredOperationUsesGlobalDefault(t *testing.T) {
	c := permission.NewChecker(rulesetWith(permission.ActionAllow), nil, "")

	// read is unconfigured; the ruleset default (deny) applies alone.
	assert.Equal(t, permission.ActionDeny, c.Decide(permission.OpRead, "/a.txt"))
}

func TestDecideIdempotent(t *testing.T) {
	c := permission.NewChecker(permission.DefaultRuleset(), nil, "")
	first := c.Decide(permission.OpExecute, "rm -rf /")
	for range 10 {
		assert.Equal(t, first, c.Decide(permission.OpExecute, "rm -rf /"))
	}
}

func TestPredicates(t *testing.T) {
	c := permission.NewChecker(rulesetWith(permission.ActionAsk,
		permission.Rule{Pattern: "**/allowed/**", Action: permission.ActionAllow},
		permission.Rule{Pattern: "**/blocked/**", Action: permission.ActionDeny},
	), nil, "")

	assert.True(t, c.IsAllowed(permission.OpWrite, "/x/allowed/f.txt"))
	assert.False(t, c.IsDenied(permission.OpWrite, "/x/allowed/f.txt"))

	assert.True(t, c.IsDenied(permission.OpWrite, "/x/blocked/f.txt"))
	assert.False(t, c.IsAllowed(permission.OpWrite, "/x/blocked/f.txt"))

	// ask is neither allowed nor denied
	assert.True(t, c.RequiresApproval(permission.OpWrite, "/x/other.txt"))
	assert.False(t, c.IsAllowed(permission.OpWrite, "/x/other.txt"))
	assert.False(t, c.IsDenied(permission.OpWrite, "/x/other.txt"))
}

func TestFindMatchingRule(t *testing.T) {
	deny := permission.Rule{Pattern: "**/.env", Action: permission.ActionDeny, Description: "env files"}
	c := permission.NewChecker(rulesetWith(permission.ActionAllow, deny), nil, "")

	rule := c.FindMatchingRule(permission.OpWrite, "project/.env")
	require.NotNil(t, rule)
	assert.Equal(t, deny, *rule)

	assert.Nil(t, c.FindMatchingRule(permission.OpWrite, "project/readme.md"))
}

func TestCheckAllow(t *testing.T) {
	c := permission.NewChecker(rulesetWith(permission.ActionAllow), nil, permission.FallbackError)
	require.NoError(t, c.Check(context.Background(), permission.OpWrite, "/a.txt", ""))
}

func TestCheckDeny(t *testing.T) {
	c := permission.NewChecker(rulesetWith(permission.ActionDeny), nil, "")
	err := c.Check(context.Background(), permission.OpWrite, "/a.txt", "")

	var denied *permission.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, permission.OpWrite, denied.Op)
	assert.Equal(t, "/a.txt", denied.Target)
	assert.Nil(t, denied.Rule, "default denial carries no rule")
}

func TestCheckDenyCarriesMatchedRule(t *testing.T) {
	c := permission.NewChecker(rulesetWith(permission.ActionAllow,
		permission.Rule{Pattern: "**/.env", Action: permission.ActionDeny, Description: "Protect env files"},
	), nil, "")

	err := c.Check(context.Background(), permission.OpWrite, "app/.env", "")

	var denied *permission.DeniedError
	require.ErrorAs(t, err, &denied)
	require.NotNil(t, denied.Rule)
	assert.Equal(t, "Protect env files", denied.Rule.Description)
	assert.Contains(t, err.Error(), "app/.env")
	assert.Contains(t, err.Error(), "Protect env files")
}

func TestCheckAskCallbackApproves(t *testing.T) {
	var gotReason string
	ask := func(_ context.Context, op permission.Operation, target, reason string) (bool, error) {
		gotReason = reason
		return true, nil
	}

	c := permission.NewChecker(rulesetWith(permission.ActionAsk), ask, "")
	require.NoError(t, c.Check(context.Background(), permission.OpWrite, "/a.txt", "write config"))
	assert.Equal(t, "write config", gotReason)
}

func TestCheckAskCallbackRejects(t *testing.T) {
	ask := func(_ context.Context, _ permission.Operation, _, _ string) (bool, error) {
		return false, nil
	}

	c := permission.NewChecker(rulesetWith(permission.ActionAsk), ask, "")
	err := c.Check(context.Background(), permission.OpWrite, "/a.txt", "")

	var denied *permission.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Nil(t, denied.Rule, "callback rejection is not a matched rule")
}

func TestCheckAskCallbackError(t *testing.T) {
	boom := errors.New("prompt unavailable")
	ask := func(_ context.Context, _ permission.Operation, _, _ string) (bool, error) {
		return false, boom
	}

	c := permission.NewChecker(rulesetWith(permission.ActionAsk), ask, "")
	err := c.Check(context.Background(), permission.OpWrite, "/a.txt", "")
	assert.ErrorIs(t, err, boom)
}

func TestCheckAskNoCallbackDenyFallback(t *testing.T) {
	c := permission.NewChecker(rulesetWith(permission.ActionAsk), nil, permission.FallbackDeny)
	err := c.Check(context.Background(), permission.OpWrite, "/a.txt", "")

	var denied *permission.DeniedError
	require.ErrorAs(t, err, &denied)
}

func TestCheckAskNoCallbackErrorFallback(t *testing.T) {
	c := permission.NewChecker(rulesetWith(permission.ActionAsk), nil, permission.FallbackError)
	err := c.Check(context.Background(), permission.OpWrite, "/a.txt", "saving changes")

	var approval *permission.ApprovalRequiredError
	require.ErrorAs(t, err, &approval)
	assert.Equal(t, permission.OpWrite, approval.Op)
	assert.Equal(t, "/a.txt", approval.Target)
	assert.Equal(t, "saving changes", approval.Reason)
	assert.Contains(t, err.Error(), "saving changes")
}

// Pure decision paths never invoke the callback, even for ask decisions.
func TestDecideNeverInvokesCallback(t *testing.T) {
	ask := func(_ context.Context, _ permission.Operation, _, _ string) (bool, error) {
		t.Fatal("callback invoked from pure path")
		return false, nil
	}

	c := permission.NewChecker(rulesetWith(permission.ActionAsk), ask, "")
	assert.Equal(t, permission.ActionAsk, c.Decide(permission.OpWrite, "/a.txt"))
	assert.True(t, c.RequiresApproval(permission.OpWrite, "/a.txt"))
	assert.False(t, c.IsAllowed(permission.OpWrite, "/a.txt"))
	assert.False(t, c.IsDenied(permission.OpWrite, "/a.txt"))
}

func TestErrorMessages(t *testing.T) {
	approval := &permission.ApprovalRequiredError{Op: permission.OpExecute, Target: "ls -la", Reason: "list files"}
	assert.Equal(t, `permission required for execute on "ls -la": list files`, approval.Error())

	noReason := &permission.ApprovalRequiredError{Op: permission.OpRead, Target: "/x"}
	assert.Equal(t, `permission required for read on "/x"`, noReason.Error())

	denied := &permission.DeniedError{Op: permission.OpWrite, Target: "/x"}
	assert.Equal(t, `permission denied for write on "/x"`, denied.Error())

	deniedRule := &permission.DeniedError{
		Op:     permission.OpWrite,
		Target: "/x/.env",
		Rule:   &permission.Rule{Pattern: "**/.env", Action: permission.ActionDeny, Description: "Protect sensitive files"},
	}
	assert.Equal(t, `permission denied for write on "/x/.env": Protect sensitive files`, deniedRule.Error())
}
