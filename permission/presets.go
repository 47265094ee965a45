package permission

// SecretsPatterns match files that commonly hold credentials and keys.
var SecretsPatterns = []string{
	"**/.env",
	"**/.env.*",
	"**/*.pem",
	"**/*.key",
	"**/*.crt",
	"**/credentials*",
	"**/secrets*",
	"**/*secret*",
	"**/*password*",
	"**/.aws/**",
	"**/.ssh/**",
	"**/.gnupg/**",
}

// SystemPatterns match system paths that should not be written to.
var SystemPatterns = []string{
	"/etc/**",
	"/var/**",
	"/usr/**",
	"/bin/**",
	"/sbin/**",
	"/boot/**",
	"/sys/**",
	"/proc/**",
}

// DangerousCommands match shell commands that are catastrophic to run.
var DangerousCommands = []string{
	"rm -rf /*",
	"rm -rf /",
	":(){:|:&};:", // fork bomb
	"dd if=*of=/dev/*",
	"mkfs*",
	"> /dev/sda",
	"chmod -R 777 /",
}

// denyRules builds a deny rule per pattern with a shared description.
func denyRules(patterns []string, description string) []Rule {
	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, Rule{Pattern: p, Action: ActionDeny, Description: description})
	}
	return rules
}

const (
	descSecrets       = "Protect sensitive files"
	descSecretsSystem = "Protect sensitive and system files"
	descDangerous     = "Block dangerous commands"
)

// DefaultRuleset returns the safe default policy: reads allowed except
// secrets, writes/edits/executes ask (with deny lists taking precedence),
// glob/grep/ls allowed.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Default: ActionAsk,
		Read: &OperationPermissions{
			Default: ActionAllow,
			Rules:   denyRules(SecretsPatterns, descSecrets),
		},
		Write: &OperationPermissions{
			Default: ActionAsk,
			Rules:   denyRules(SecretsPatterns, descSecrets),
		},
		Edit: &OperationPermissions{
			Default: ActionAsk,
			Rules:   denyRules(SecretsPatterns, descSecrets),
		},
		Execute: &OperationPermissions{
			Default: ActionAsk,
			Rules:   denyRules(DangerousCommands, descDangerous),
		},
		Glob: &OperationPermissions{Default: ActionAllow},
		Grep: &OperationPermissions{Default: ActionAllow},
		Ls:   &OperationPermissions{Default: ActionAllow},
	}
}

// PermissiveRuleset returns a mostly-allow policy that still denies secret
// and system file mutation and catastrophic commands.
func PermissiveRuleset() *Ruleset {
	protectAll := append(append([]string{}, SecretsPatterns...), SystemPatterns...)
	return &Ruleset{
		Default: ActionAllow,
		Read: &OperationPermissions{
			Default: ActionAllow,
			Rules:   denyRules(SecretsPatterns, descSecrets),
		},
		Write: &OperationPermissions{
			Default: ActionAllow,
			Rules:   denyRules(protectAll, descSecretsSystem),
		},
		Edit: &OperationPermissions{
			Default: ActionAllow,
			Rules:   denyRules(protectAll, descSecretsSystem),
		},
		Execute: &OperationPermissions{
			Default: ActionAllow,
			Rules:   denyRules(DangerousCommands, descDangerous),
		},
		Glob: &OperationPermissions{Default: ActionAllow},
		Grep: &OperationPermissions{Default: ActionAllow},
		Ls:   &OperationPermissions{Default: ActionAllow},
	}
}

// ReadonlyRuleset returns a policy that allows reads and listing but denies
// every mutating or executing operation outright.
func ReadonlyRuleset() *Ruleset {
	return &Ruleset{
		Default: ActionDeny,
		Read: &OperationPermissions{
			Default: ActionAllow,
			Rules:   denyRules(SecretsPatterns, descSecrets),
		},
		Write:   &OperationPermissions{Default: ActionDeny},
		Edit:    &OperationPermissions{Default: ActionDeny},
		Execute: &OperationPermissions{Default: ActionDeny},
		Glob:    &OperationPermissions{Default: ActionAllow},
		Grep:    &OperationPermissions{Default: ActionAllow},
		Ls:      &OperationPermissions{Default: ActionAllow},
	}
}

// StrictRuleset returns a policy where everything requires approval,
// including glob/grep/ls. Secret patterns stay hard-denied: deny is
// stronger than ask and is never downgraded.
func StrictRuleset() *Ruleset {
	return &Ruleset{
		Default: ActionAsk,
		Read: &OperationPermissions{
			Default: ActionAsk,
			Rules:   denyRules(SecretsPatterns, descSecrets),
		},
		Write: &OperationPermissions{
			Default: ActionAsk,
			Rules:   denyRules(SecretsPatterns, descSecrets),
		},
		Edit: &OperationPermissions{
			Default: ActionAsk,
			Rules:   denyRules(SecretsPatterns, descSecrets),
		},
		Execute: &OperationPermissions{
			Default: ActionAsk,
			Rules:   denyRules(DangerousCommands, descDangerous),
		},
		Glob: &OperationPermissions{Default: ActionAsk},
		Grep: &OperationPermissions{Default: ActionAsk},
		Ls:   &OperationPermissions{Default: ActionAsk},
	}
}

// rulesetConfig holds the factory's boolean flags.
type rulesetConfig struct {
	defaultAction Action
	allowRead     bool
	allowWrite    bool
	allowEdit     bool
	allowExecute  bool
	allowGlob     bool
	allowGrep     bool
	allowLs       bool
	denySecrets   bool
}

// RulesetOption configures [NewRuleset].
type RulesetOption func(*rulesetConfig)

// WithDefault sets the global default action.
func WithDefault(a Action) RulesetOption {
	return func(c *rulesetConfig) { c.defaultAction = a }
}

// WithAllowRead sets whether reads are allowed without approval.
func WithAllowRead(allow bool) RulesetOption {
	return func(c *rulesetConfig) { c.allowRead = allow }
}

// WithAllowWrite sets whether writes are allowed without approval.
func WithAllowWrite(allow bool) RulesetOption {
	return func(c *rulesetConfig) { c.allowWrite = allow }
}

// WithAllowEdit sets whether edits are allowed without approval.
func WithAllowEdit(allow bool) RulesetOption {
	return func(c *rulesetConfig) { c.allowEdit = allow }
}

// WithAllowExecute sets whether shell commands are allowed without approval.
func WithAllowExecute(allow bool) RulesetOption {
	return func(c *rulesetConfig) { c.allowExecute = allow }
}

// WithAllowGlob sets whether glob operations are allowed without approval.
func WithAllowGlob(allow bool) RulesetOption {
	return func(c *rulesetConfig) { c.allowGlob = allow }
}

// WithAllowGrep sets whether grep operations are allowed without approval.
func WithAllowGrep(allow bool) RulesetOption {
	return func(c *rulesetConfig) { c.allowGrep = allow }
}

// WithAllowLs sets whether ls operations are allowed without approval.
func WithAllowLs(allow bool) RulesetOption {
	return func(c *rulesetConfig) { c.allowLs = allow }
}

// WithDenySecrets sets whether read/write/edit carry the secrets deny list.
func WithDenySecrets(deny bool) RulesetOption {
	return func(c *rulesetConfig) { c.denySecrets = deny }
}

// NewRuleset builds a custom ruleset from per-operation allow flags.
// Defaults: read/glob/grep/ls allowed, write/edit/execute ask, secrets
// denied, global default ask. A false flag maps to ask, never to deny —
// callers wanting hard denial must construct an explicit ruleset.
func NewRuleset(opts ...RulesetOption) *Ruleset {
	cfg := rulesetConfig{
		defaultAction: ActionAsk,
		allowRead:     true,
		allowGlob:     true,
		allowGrep:     true,
		allowLs:       true,
		denySecrets:   true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	action := func(allowed bool) Action {
		if allowed {
			return ActionAllow
		}
		return ActionAsk
	}

	var secretRules []Rule
	if cfg.denySecrets {
		secretRules = denyRules(SecretsPatterns, descSecrets)
	}

	return &Ruleset{
		Default: cfg.defaultAction,
		Read:    &OperationPermissions{Default: action(cfg.allowRead), Rules: secretRules},
		Write:   &OperationPermissions{Default: action(cfg.allowWrite), Rules: secretRules},
		Edit:    &OperationPermissions{Default: action(cfg.allowEdit), Rules: secretRules},
		Execute: &OperationPermissions{Default: action(cfg.allowExecute)},
		Glob:    &OperationPermissions{Default: action(cfg.allowGlob)},
		Grep:    &OperationPermissions{Default: action(cfg.allowGrep)},
		Ls:      &OperationPermissions{Default: action(cfg.allowLs)},
	}
}
