package backend

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	backends "github.com/jmtasker/agent-backends-go"
	"github.com/jmtasker/agent-backends-go/permission"
)

const (
	defaultReadLimit      = 2000
	defaultExecuteTimeout = 120 * time.Second
	maxExecuteOutput      = 100_000
	timeoutExitCode       = 124
)

// gate runs the synchronous permission path for op on target.
// A nil checker means no policy enforcement. With no callback configured,
// an ask decision resolves through the backend's fallback, so this never
// blocks.
func gate(checker *permission.Checker, op permission.Operation, target string) error {
	if checker == nil {
		return nil
	}
	return checker.Check(context.Background(), op, target, "approval required but backend is synchronous")
}

// formatNumberedLines renders content with cat -n style line numbers,
// starting at line offset (0-based), emitting at most limit lines.
func formatNumberedLines(content string, offset, limit int) string {
	if limit <= 0 {
		limit = defaultReadLimit
	}
	if offset < 0 {
		offset = 0
	}

	lines := strings.Split(content, "\n")
	// A trailing newline produces a phantom empty element.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	total := len(lines)
	if offset >= total && total > 0 {
		return fmt.Sprintf("Error: Offset %d exceeds file length (%d lines)", offset, total)
	}

	end := offset + limit
	if end > total {
		end = total
	}

	var b strings.Builder
	for i := offset; i < end; i++ {
		fmt.Fprintf(&b, "%6d\t%s", i+1, strings.TrimRight(lines[i], "\r"))
		if i < end-1 {
			b.WriteByte('\n')
		}
	}

	if end < total {
		fmt.Fprintf(&b, "\n\n... (%d more lines)", total-end)
	}

	return b.String()
}

// applyEdit performs the occurrence-counted string replacement shared by
// all backends.
func applyEdit(content, oldString, newString string, replaceAll bool) (string, int, string) {
	occurrences := strings.Count(content, oldString)

	if occurrences == 0 {
		return "", 0, fmt.Sprintf("String %q not found in file", oldString)
	}
	if occurrences > 1 && !replaceAll {
		return "", 0, fmt.Sprintf(
			"String %q found %d times. Use replaceAll to replace all, or provide more context.",
			oldString, occurrences)
	}

	if replaceAll {
		return strings.ReplaceAll(content, oldString, newString), occurrences, ""
	}
	return strings.Replace(content, oldString, newString, 1), 1, ""
}

// sortEntries orders listings directories first, then by name.
func sortEntries(entries []backends.FileInfo) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
}

// truncateOutput caps command output at maxExecuteOutput bytes.
func truncateOutput(output string) (string, bool) {
	if len(output) > maxExecuteOutput {
		return output[:maxExecuteOutput], true
	}
	return output, false
}

// compileGrepPattern compiles a content-search regex with a friendlier error.
func compileGrepPattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	return re, nil
}
