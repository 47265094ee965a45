package toolset

import (
	"context"
	"fmt"

	"github.com/jmtasker/agent-backends-go/permission"
)

// EditInput is the input for the Edit tool.
type EditInput struct {
	FilePath   string `json:"file_path" jsonschema:"required,description=Path of the file to edit"`
	OldString  string `json:"old_string" jsonschema:"required,description=Exact text to find and replace"`
	NewString  string `json:"new_string" jsonschema:"required,description=Replacement text"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"description=Replace every occurrence instead of requiring a unique match"`
}

type editTool struct {
	ts *Toolset
}

var _ Tool[EditInput] = (*editTool)(nil)

func (t *editTool) Name() string { return "Edit" }
func (t *editTool) Description() string {
	return "Edit a file by replacing a string; the old string must be unique unless replace_all is set"
}

func (t *editTool) Run(ctx context.Context, input EditInput) (*ToolResult, error) {
	if input.FilePath == "" {
		return ErrorResult("file_path is required"), nil
	}

	reason := fmt.Sprintf("Edit %s", input.FilePath)
	if err := t.ts.check(ctx, permission.OpEdit, input.FilePath, reason); err != nil {
		return ErrorResult(err.Error()), nil
	}

	res := t.ts.backend.Edit(input.FilePath, input.OldString, input.NewString, input.ReplaceAll)
	if res.Error != "" {
		return ErrorResult("Error: " + res.Error), nil
	}
	return TextResult(fmt.Sprintf("Edited %s: replaced %d occurrence(s)", res.Path, res.Occurrences)), nil
}
