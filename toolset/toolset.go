package toolset

import (
	"context"

	"github.com/rs/zerolog"

	backends "github.com/jmtasker/agent-backends-go"
	"github.com/jmtasker/agent-backends-go/internal/logging"
	"github.com/jmtasker/agent-backends-go/permission"
)

// SystemPrompt describes the console tools to the model.
const SystemPrompt = `## Console Tools

You have access to console tools for file operations and command execution:

### File Operations
- Ls: list files in a directory
- Read: read file content with line numbers
- Write: create or overwrite a file
- Edit: replace strings in a file
- Glob: find files matching a pattern
- Grep: search for patterns in files

### Shell Execution
- Bash: run shell commands (if enabled)

### Best Practices
- Always read a file before editing it
- Use Edit for small changes, Write for complete rewrites
- Use Glob to find files before operating on them
- Be careful with destructive shell commands
`

// Toolset binds a backend's operations to agent tools.
type Toolset struct {
	backend backends.Backend
	checker *permission.Checker
	reg     *Registry
	log     zerolog.Logger
}

type toolsetConfig struct {
	checker     *permission.Checker
	withExecute bool
	log         *zerolog.Logger
}

// Option configures [New].
type Option func(*toolsetConfig)

// WithChecker gates every tool call through the checker. The checker's
// ask callback receives a description of the pending call.
func WithChecker(c *permission.Checker) Option {
	return func(cfg *toolsetConfig) { cfg.checker = c }
}

// WithoutExecute leaves the Bash tool unregistered.
func WithoutExecute() Option {
	return func(cfg *toolsetConfig) { cfg.withExecute = false }
}

// WithToolsetLogger sets the toolset logger.
func WithToolsetLogger(log zerolog.Logger) Option {
	return func(cfg *toolsetConfig) { cfg.log = &log }
}

// New builds a toolset over the backend with all console tools registered.
func New(b backends.Backend, opts ...Option) *Toolset {
	cfg := toolsetConfig{withExecute: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	ts := &Toolset{
		backend: b,
		checker: cfg.checker,
		reg:     NewRegistry(),
		log:     logging.Nop(),
	}
	if cfg.log != nil {
		ts.log = *cfg.log
	}

	Register(ts.reg, &readTool{ts})
	Register(ts.reg, &writeTool{ts})
	Register(ts.reg, &editTool{ts})
	Register(ts.reg, &globTool{ts})
	Register(ts.reg, &grepTool{ts})
	Register(ts.reg, &lsTool{ts})
	if cfg.withExecute {
		Register(ts.reg, &bashTool{ts})
	}
	return ts
}

// Registry exposes the underlying tool registry.
func (ts *Toolset) Registry() *Registry { return ts.reg }

// check consults the toolset checker before a tool touches the backend.
// The reason is shown to an interactive approver.
func (ts *Toolset) check(ctx context.Context, op permission.Operation, target, reason string) error {
	if ts.checker == nil {
		return nil
	}
	err := ts.checker.Check(ctx, op, target, reason)
	if err != nil {
		ts.log.Warn().Str("op", string(op)).Str("target", target).Err(err).Msg("tool call blocked")
	}
	return err
}
