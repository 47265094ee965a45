package toolset

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmtasker/agent-backends-go/permission"
)

// LsInput is the input for the Ls tool.
type LsInput struct {
	Path string `json:"path,omitempty" jsonschema:"description=Directory path to list (defaults to the backend root)"`
}

type lsTool struct {
	ts *Toolset
}

var _ Tool[LsInput] = (*lsTool)(nil)

func (t *lsTool) Name() string { return "Ls" }
func (t *lsTool) Description() string {
	return "List files and directories at a path"
}

func (t *lsTool) Run(ctx context.Context, input LsInput) (*ToolResult, error) {
	path := input.Path
	if path == "" {
		path = "."
	}

	reason := fmt.Sprintf("List %s", path)
	if err := t.ts.check(ctx, permission.OpLs, path, reason); err != nil {
		return ErrorResult(err.Error()), nil
	}

	entries := t.ts.backend.Ls(path)
	if len(entries) == 0 {
		return TextResult(fmt.Sprintf("Directory %q is empty or does not exist", path)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Contents of %s:", path)
	for _, e := range entries {
		if e.IsDir {
			fmt.Fprintf(&b, "\n  %s/", e.Name)
		} else {
			fmt.Fprintf(&b, "\n  %s (%d bytes)", e.Name, e.Size)
		}
	}
	return TextResult(b.String()), nil
}
