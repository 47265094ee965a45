package backends

import (
	"context"
	"time"
)

// FileInfo describes a single file or directory entry.
type FileInfo struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// WriteResult is the outcome of a write operation.
// Error is empty on success.
type WriteResult struct {
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

// EditResult is the outcome of an edit operation.
// Occurrences counts the replacements performed. Error is empty on success.
type EditResult struct {
	Path        string `json:"path,omitempty"`
	Occurrences int    `json:"occurrences,omitempty"`
	Error       string `json:"error,omitempty"`
}

// GrepMatch is a single line matched by a grep operation.
type GrepMatch struct {
	Path       string `json:"path"`
	LineNumber int    `json:"line_number"`
	Line       string `json:"line"`
}

// ExecuteResponse is the outcome of a shell command execution.
type ExecuteResponse struct {
	Output    string `json:"output"`
	ExitCode  int    `json:"exit_code"`
	Truncated bool   `json:"truncated"`
}

// Backend is the storage and execution surface consumed by agent tool
// bindings. Implementations report operation failures inside their result
// types rather than returning errors, so a denied or failed operation is
// always representable as tool output.
type Backend interface {
	// ID returns a unique identifier for this backend instance.
	ID() string

	// Read returns file content with cat -n style line numbers, starting
	// at line offset (0-based) and returning at most limit lines.
	// Errors are reported as a string beginning with "Error: ".
	Read(path string, offset, limit int) string

	// Write stores content at path, creating parent directories.
	Write(path, content string) WriteResult

	// Edit replaces oldString with newString in the file at path.
	// A non-unique oldString is an error unless replaceAll is set.
	Edit(path, oldString, newString string, replaceAll bool) EditResult

	// Glob returns files under path matching the doublestar pattern.
	Glob(pattern, path string) []FileInfo

	// Grep searches file contents for a regular expression. include
	// optionally restricts the files searched by glob pattern.
	Grep(pattern, path, include string) ([]GrepMatch, error)

	// Ls lists the entries at path, directories first.
	Ls(path string) []FileInfo

	// Execute runs a shell command. A zero timeout applies the backend
	// default. The error is non-nil only for backend misuse
	// (ErrExecuteDisabled, ErrBackendClosed); command failures and
	// permission denials are reported inside the response.
	Execute(ctx context.Context, command string, timeout time.Duration) (ExecuteResponse, error)

	// Close releases any resources held by the backend.
	Close() error
}
