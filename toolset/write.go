package toolset

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmtasker/agent-backends-go/permission"
)

// WriteInput is the input for the Write tool.
type WriteInput struct {
	FilePath string `json:"file_path" jsonschema:"required,description=Path of the file to write"`
	Content  string `json:"content" jsonschema:"required,description=Content to write to the file"`
}

type writeTool struct {
	ts *Toolset
}

var _ Tool[WriteInput] = (*writeTool)(nil)

func (t *writeTool) Name() string { return "Write" }
func (t *writeTool) Description() string {
	return "Create or overwrite a file, creating parent directories as needed"
}

func (t *writeTool) Run(ctx context.Context, input WriteInput) (*ToolResult, error) {
	if input.FilePath == "" {
		return ErrorResult("file_path is required"), nil
	}

	reason := fmt.Sprintf("Write %d bytes to %s", len(input.Content), input.FilePath)
	if err := t.ts.check(ctx, permission.OpWrite, input.FilePath, reason); err != nil {
		return ErrorResult(err.Error()), nil
	}

	res := t.ts.backend.Write(input.FilePath, input.Content)
	if res.Error != "" {
		return ErrorResult("Error: " + res.Error), nil
	}

	lines := strings.Count(input.Content, "\n") + 1
	return TextResult(fmt.Sprintf("Wrote %d lines to %s", lines, res.Path)), nil
}
