package toolset

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmtasker/agent-backends-go/permission"
)

const maxGlobResults = 100

// GlobInput is the input for the Glob tool.
type GlobInput struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Glob pattern to match (e.g. **/*.go)"`
	Path    string `json:"path,omitempty" jsonschema:"description=Base directory to search from"`
}

type globTool struct {
	ts *Toolset
}

var _ Tool[GlobInput] = (*globTool)(nil)

func (t *globTool) Name() string { return "Glob" }
func (t *globTool) Description() string {
	return "Find files matching a glob pattern"
}

func (t *globTool) Run(ctx context.Context, input GlobInput) (*ToolResult, error) {
	if input.Pattern == "" {
		return ErrorResult("pattern is required"), nil
	}

	reason := fmt.Sprintf("Glob %s", input.Pattern)
	if err := t.ts.check(ctx, permission.OpGlob, input.Pattern, reason); err != nil {
		return ErrorResult(err.Error()), nil
	}

	files := t.ts.backend.Glob(input.Pattern, input.Path)
	if len(files) == 0 {
		return TextResult(fmt.Sprintf("No files matching %q", input.Pattern)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d file(s) matching %q:", len(files), input.Pattern)
	for i, f := range files {
		if i == maxGlobResults {
			fmt.Fprintf(&b, "\n  ... and %d more", len(files)-maxGlobResults)
			break
		}
		fmt.Fprintf(&b, "\n  %s", f.Path)
	}
	return TextResult(b.String()), nil
}
