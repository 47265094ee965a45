package toolset

import (
	"context"
	"errors"
	"fmt"
	"time"

	backends "github.com/jmtasker/agent-backends-go"
	"github.com/jmtasker/agent-backends-go/permission"
)

// BashInput is the input for the Bash tool.
type BashInput struct {
	Command string `json:"command" jsonschema:"required,description=The shell command to execute"`
	Timeout *int   `json:"timeout,omitempty" jsonschema:"description=Maximum execution time in seconds (default 120)"`
}

type bashTool struct {
	ts *Toolset
}

var _ Tool[BashInput] = (*bashTool)(nil)

func (t *bashTool) Name() string { return "Bash" }
func (t *bashTool) Description() string {
	return "Execute a shell command and return combined output with its exit code"
}

func (t *bashTool) Run(ctx context.Context, input BashInput) (*ToolResult, error) {
	if input.Command == "" {
		return ErrorResult("command is required"), nil
	}

	reason := fmt.Sprintf("Run: %s", input.Command)
	if err := t.ts.check(ctx, permission.OpExecute, input.Command, reason); err != nil {
		return ErrorResult(err.Error()), nil
	}

	var timeout time.Duration
	if input.Timeout != nil && *input.Timeout > 0 {
		timeout = time.Duration(*input.Timeout) * time.Second
	}

	resp, err := t.ts.backend.Execute(ctx, input.Command, timeout)
	if err != nil {
		if errors.Is(err, backends.ErrExecuteDisabled) {
			return ErrorResult("Error: Shell execution is disabled for this backend"), nil
		}
		return ErrorResult("Error: " + err.Error()), nil
	}

	output := resp.Output
	if resp.Truncated {
		output += "\n\n... (output truncated)"
	}
	if resp.ExitCode != 0 {
		return ErrorResult(fmt.Sprintf("Command failed (exit code %d):\n%s", resp.ExitCode, output)), nil
	}
	return TextResult(output), nil
}
