package toolset

import (
	"context"
	"fmt"

	"github.com/jmtasker/agent-backends-go/permission"
)

// ReadInput is the input for the Read tool.
type ReadInput struct {
	FilePath string `json:"file_path" jsonschema:"required,description=Path of the file to read"`
	Offset   *int   `json:"offset,omitempty" jsonschema:"description=Line number to start reading from (0-based)"`
	Limit    *int   `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to read"`
}

type readTool struct {
	ts *Toolset
}

var _ Tool[ReadInput] = (*readTool)(nil)

func (t *readTool) Name() string { return "Read" }
func (t *readTool) Description() string {
	return "Read file content with line numbers"
}

func (t *readTool) Run(ctx context.Context, input ReadInput) (*ToolResult, error) {
	if input.FilePath == "" {
		return ErrorResult("file_path is required"), nil
	}

	reason := fmt.Sprintf("Read %s", input.FilePath)
	if err := t.ts.check(ctx, permission.OpRead, input.FilePath, reason); err != nil {
		return ErrorResult(err.Error()), nil
	}

	offset, limit := 0, 0
	if input.Offset != nil {
		offset = *input.Offset
	}
	if input.Limit != nil {
		limit = *input.Limit
	}

	out := t.ts.backend.Read(input.FilePath, offset, limit)
	if len(out) >= 6 && out[:6] == "Error:" {
		return ErrorResult(out), nil
	}
	return TextResult(out), nil
}
