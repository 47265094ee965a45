package backend

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	backends "github.com/jmtasker/agent-backends-go"
	"github.com/jmtasker/agent-backends-go/internal/logging"
	"github.com/jmtasker/agent-backends-go/permission"
)

// Memory is an in-memory filesystem backend. It has no shell, so Execute
// always fails with ErrExecuteDisabled. Useful for tests and for agents
// that must not touch the host.
type Memory struct {
	id      string
	fs      afero.Fs
	checker *permission.Checker
	log     zerolog.Logger
}

var _ backends.Backend = (*Memory)(nil)

type memoryConfig struct {
	ruleset  *permission.Ruleset
	fallback permission.AskFallback
	log      *zerolog.Logger
}

// MemoryOption configures [NewMemory].
type MemoryOption func(*memoryConfig)

// WithMemoryPermissions gates operations with the given ruleset.
func WithMemoryPermissions(rs *permission.Ruleset) MemoryOption {
	return func(c *memoryConfig) { c.ruleset = rs }
}

// WithMemoryAskFallback sets how an ask decision resolves synchronously.
func WithMemoryAskFallback(fb permission.AskFallback) MemoryOption {
	return func(c *memoryConfig) { c.fallback = fb }
}

// WithMemoryLogger sets the backend logger.
func WithMemoryLogger(log zerolog.Logger) MemoryOption {
	return func(c *memoryConfig) { c.log = &log }
}

// NewMemory creates an empty in-memory backend.
func NewMemory(opts ...MemoryOption) *Memory {
	var cfg memoryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Memory{
		id:  backends.NewID(backends.PrefixMemory),
		fs:  afero.NewMemMapFs(),
		log: logging.Nop(),
	}
	if cfg.log != nil {
		b.log = *cfg.log
	}
	if cfg.ruleset != nil {
		b.checker = permission.NewChecker(cfg.ruleset, nil, cfg.fallback)
	}
	return b
}

// ID returns the backend's unique identifier.
func (b *Memory) ID() string { return b.id }

// Checker returns the permission checker, or nil when no ruleset is set.
func (b *Memory) Checker() *permission.Checker { return b.checker }

// Close releases resources. Memory backends hold none.
func (b *Memory) Close() error { return nil }

// normalize roots every path at "/" so relative and absolute spellings
// address the same file.
func normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Read returns file content with line numbers, or an "Error: " string.
func (b *Memory) Read(p string, offset, limit int) string {
	full := normalize(p)

	if err := gate(b.checker, permission.OpRead, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("read blocked")
		return "Error: " + err.Error()
	}

	info, statErr := b.fs.Stat(full)
	if statErr != nil {
		return fmt.Sprintf("Error: File %q not found", p)
	}
	if info.IsDir() {
		return fmt.Sprintf("Error: %q is a directory", p)
	}

	data, err := afero.ReadFile(b.fs, full)
	if err != nil {
		return "Error: " + err.Error()
	}
	return formatNumberedLines(string(data), offset, limit)
}

// Write stores content at path, creating parent directories.
func (b *Memory) Write(p, content string) backends.WriteResult {
	full := normalize(p)

	if err := gate(b.checker, permission.OpWrite, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("write blocked")
		return backends.WriteResult{Error: err.Error()}
	}

	if err := b.fs.MkdirAll(path.Dir(full), 0o755); err != nil {
		return backends.WriteResult{Error: err.Error()}
	}
	if err := afero.WriteFile(b.fs, full, []byte(content), 0o644); err != nil {
		return backends.WriteResult{Error: err.Error()}
	}
	return backends.WriteResult{Path: full}
}

// Edit replaces oldString with newString in the file at path.
func (b *Memory) Edit(p, oldString, newString string, replaceAll bool) backends.EditResult {
	full := normalize(p)

	if err := gate(b.checker, permission.OpEdit, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("edit blocked")
		return backends.EditResult{Error: err.Error()}
	}

	data, readErr := afero.ReadFile(b.fs, full)
	if readErr != nil {
		return backends.EditResult{Error: fmt.Sprintf("File %q not found", p)}
	}

	updated, occurrences, editErr := applyEdit(string(data), oldString, newString, replaceAll)
	if editErr != "" {
		return backends.EditResult{Error: editErr}
	}

	if err := afero.WriteFile(b.fs, full, []byte(updated), 0o644); err != nil {
		return backends.EditResult{Error: err.Error()}
	}
	return backends.EditResult{Path: full, Occurrences: occurrences}
}

// Glob returns files matching the doublestar pattern under path.
func (b *Memory) Glob(pattern, p string) []backends.FileInfo {
	base := normalize(p)

	if err := gate(b.checker, permission.OpGlob, pattern); err != nil {
		b.log.Warn().Str("pattern", pattern).Err(err).Msg("glob blocked")
		return nil
	}

	var results []backends.FileInfo
	afero.Walk(b.fs, base, func(walkPath string, info fs.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(walkPath, base)
		rel = strings.TrimPrefix(rel, "/")
		if ok, _ := doublestar.Match(pattern, rel); !ok {
			return nil
		}
		results = append(results, backends.FileInfo{
			Name: path.Base(walkPath),
			Path: walkPath,
			Size: info.Size(),
		})
		return nil
	})

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results
}

// Grep searches file contents for a regular expression.
func (b *Memory) Grep(pattern, p, include string) ([]backends.GrepMatch, error) {
	base := normalize(p)

	if err := gate(b.checker, permission.OpGrep, pattern); err != nil {
		b.log.Warn().Str("pattern", pattern).Err(err).Msg("grep blocked")
		return nil, err
	}

	re, err := compileGrepPattern(pattern)
	if err != nil {
		return nil, err
	}

	var matches []backends.GrepMatch
	afero.Walk(b.fs, base, func(walkPath string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil || info.IsDir() {
			return nil
		}
		if include != "" {
			if ok, _ := doublestar.Match(include, path.Base(walkPath)); !ok {
				return nil
			}
		}
		data, readErr := afero.ReadFile(b.fs, walkPath)
		if readErr != nil {
			return nil
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				matches = append(matches, backends.GrepMatch{
					Path:       walkPath,
					LineNumber: i + 1,
					Line:       strings.TrimRight(line, "\r"),
				})
			}
		}
		return nil
	})
	return matches, nil
}

// Ls lists entries at path, directories first.
func (b *Memory) Ls(p string) []backends.FileInfo {
	full := normalize(p)

	if err := gate(b.checker, permission.OpLs, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("ls blocked")
		return nil
	}

	info, statErr := b.fs.Stat(full)
	if statErr != nil {
		return nil
	}
	if !info.IsDir() {
		return []backends.FileInfo{{Name: info.Name(), Path: full, Size: info.Size()}}
	}

	entries, err := afero.ReadDir(b.fs, full)
	if err != nil {
		return nil
	}

	var results []backends.FileInfo
	for _, entry := range entries {
		fi := backends.FileInfo{
			Name:  entry.Name(),
			Path:  path.Join(full, entry.Name()),
			IsDir: entry.IsDir(),
		}
		if !entry.IsDir() {
			fi.Size = entry.Size()
		}
		results = append(results, fi)
	}

	sortEntries(results)
	return results
}

// Execute is unsupported: the in-memory backend has no shell.
func (b *Memory) Execute(_ context.Context, _ string, _ time.Duration) (backends.ExecuteResponse, error) {
	return backends.ExecuteResponse{}, backends.ErrExecuteDisabled
}
