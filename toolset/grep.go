package toolset

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jmtasker/agent-backends-go/permission"
)

const (
	maxGrepResults    = 50
	maxGrepLineLength = 100
)

// truncateLine caps a matched line at max bytes without splitting a rune.
func truncateLine(line string, max int) string {
	if len(line) <= max {
		return line
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut]
}

// GrepInput is the input for the Grep tool.
type GrepInput struct {
	Pattern    string `json:"pattern" jsonschema:"required,description=Regular expression to search for"`
	Path       string `json:"path,omitempty" jsonschema:"description=File or directory to search"`
	Include    string `json:"include,omitempty" jsonschema:"description=Glob pattern to filter files (e.g. *.go)"`
	OutputMode string `json:"output_mode,omitempty" jsonschema:"description=Output format,enum=content,enum=files_with_matches,enum=count"`
}

type grepTool struct {
	ts *Toolset
}

var _ Tool[GrepInput] = (*grepTool)(nil)

func (t *grepTool) Name() string { return "Grep" }
func (t *grepTool) Description() string {
	return "Search file contents for a regular expression"
}

func (t *grepTool) Run(ctx context.Context, input GrepInput) (*ToolResult, error) {
	if input.Pattern == "" {
		return ErrorResult("pattern is required"), nil
	}

	reason := fmt.Sprintf("Grep %s", input.Pattern)
	if err := t.ts.check(ctx, permission.OpGrep, input.Pattern, reason); err != nil {
		return ErrorResult(err.Error()), nil
	}

	matches, err := t.ts.backend.Grep(input.Pattern, input.Path, input.Include)
	if err != nil {
		return ErrorResult("Error: " + err.Error()), nil
	}
	if len(matches) == 0 {
		return TextResult(fmt.Sprintf("No matches for %q", input.Pattern)), nil
	}

	switch input.OutputMode {
	case "count":
		return TextResult(fmt.Sprintf("Found %d match(es) for %q", len(matches), input.Pattern)), nil

	case "content":
		var b strings.Builder
		fmt.Fprintf(&b, "Matches for %q:", input.Pattern)
		for i, m := range matches {
			if i == maxGrepResults {
				fmt.Fprintf(&b, "\n  ... and %d more matches", len(matches)-maxGrepResults)
				break
			}
			line := truncateLine(m.Line, maxGrepLineLength)
			fmt.Fprintf(&b, "\n  %s:%d: %s", m.Path, m.LineNumber, line)
		}
		return TextResult(b.String()), nil

	default: // files_with_matches
		seen := make(map[string]bool)
		var files []string
		for _, m := range matches {
			if !seen[m.Path] {
				seen[m.Path] = true
				files = append(files, m.Path)
			}
		}
		sort.Strings(files)

		var b strings.Builder
		fmt.Fprintf(&b, "Files containing %q:", input.Pattern)
		for i, f := range files {
			if i == maxGrepResults {
				fmt.Fprintf(&b, "\n  ... and %d more files", len(files)-maxGrepResults)
				break
			}
			fmt.Fprintf(&b, "\n  %s", f)
		}
		return TextResult(b.String()), nil
	}
}
