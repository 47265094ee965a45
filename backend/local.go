package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/creack/pty"
	"github.com/rs/zerolog"

	backends "github.com/jmtasker/agent-backends-go"
	"github.com/jmtasker/agent-backends-go/internal/logging"
	"github.com/jmtasker/agent-backends-go/permission"
)

// Local is a filesystem backend with optional shell execution. File
// operations are confined to a set of allowed directories; a permission
// ruleset can additionally gate every operation.
type Local struct {
	id          string
	root        string
	allowed     []string
	execEnabled bool
	checker     *permission.Checker
	log         zerolog.Logger
}

var _ backends.Backend = (*Local)(nil)

type localConfig struct {
	root        string
	allowed     []string
	execEnabled bool
	ruleset     *permission.Ruleset
	ask         permission.AskFunc
	fallback    permission.AskFallback
	log         *zerolog.Logger
}

// LocalOption configures [NewLocal].
type LocalOption func(*localConfig)

// WithRootDir sets the base directory for relative paths. Defaults to the
// first allowed directory, or the current working directory.
func WithRootDir(dir string) LocalOption {
	return func(c *localConfig) { c.root = dir }
}

// WithAllowedDirs restricts file operations to the given directories.
// When unset, only the root directory is accessible.
func WithAllowedDirs(dirs ...string) LocalOption {
	return func(c *localConfig) { c.allowed = dirs }
}

// WithExecuteDisabled turns off shell execution for this backend.
func WithExecuteDisabled() LocalOption {
	return func(c *localConfig) { c.execEnabled = false }
}

// WithPermissions gates operations with the given ruleset.
func WithPermissions(rs *permission.Ruleset) LocalOption {
	return func(c *localConfig) { c.ruleset = rs }
}

// WithAskFallback sets how a synchronous operation resolves an ask
// decision. Defaults to permission.FallbackError.
func WithAskFallback(fb permission.AskFallback) LocalOption {
	return func(c *localConfig) { c.fallback = fb }
}

// WithLogger sets the backend logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) LocalOption {
	return func(c *localConfig) { c.log = &log }
}

// NewLocal creates a local filesystem backend. Allowed directories and the
// root are created if missing and resolved to absolute paths.
func NewLocal(opts ...LocalOption) (*Local, error) {
	cfg := localConfig{execEnabled: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Local{
		id:          backends.NewID(backends.PrefixLocal),
		execEnabled: cfg.execEnabled,
		log:         logging.Nop(),
	}
	if cfg.log != nil {
		b.log = *cfg.log
	}
	if cfg.ruleset != nil {
		b.checker = permission.NewChecker(cfg.ruleset, cfg.ask, cfg.fallback)
	}

	for _, d := range cfg.allowed {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("resolve allowed dir %q: %w", d, err)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("create allowed dir %q: %w", abs, err)
		}
		b.allowed = append(b.allowed, abs)
	}

	switch {
	case cfg.root != "":
		abs, err := filepath.Abs(cfg.root)
		if err != nil {
			return nil, fmt.Errorf("resolve root dir %q: %w", cfg.root, err)
		}
		b.root = abs
	case len(b.allowed) > 0:
		b.root = b.allowed[0]
	default:
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		b.root = wd
	}

	if err := os.MkdirAll(b.root, 0o755); err != nil {
		return nil, fmt.Errorf("create root dir %q: %w", b.root, err)
	}

	// With no explicit allowed directories, confine to the root.
	if b.allowed == nil {
		b.allowed = []string{b.root}
	}

	return b, nil
}

// ID returns the backend's unique identifier.
func (b *Local) ID() string { return b.id }

// RootDir returns the backend's root directory.
func (b *Local) RootDir() string { return b.root }

// ExecuteEnabled reports whether shell execution is enabled.
func (b *Local) ExecuteEnabled() bool { return b.execEnabled }

// Checker returns the permission checker, or nil when no ruleset is set.
func (b *Local) Checker() *permission.Checker { return b.checker }

// Close releases resources. Local backends hold none.
func (b *Local) Close() error { return nil }

// resolvePath resolves path within the allowed directories. Relative paths
// are resolved against the root.
func (b *Local) resolvePath(path string) (string, error) {
	var resolved string
	if filepath.IsAbs(path) {
		resolved = filepath.Clean(path)
	} else {
		resolved = filepath.Join(b.root, path)
	}

	for _, allowed := range b.allowed {
		if resolved == allowed || strings.HasPrefix(resolved, allowed+string(filepath.Separator)) {
			return resolved, nil
		}
	}

	return "", fmt.Errorf("access denied: %q is outside allowed directories (%s)",
		path, strings.Join(b.allowed, ", "))
}

// Read returns file content with line numbers, or an "Error: " string.
func (b *Local) Read(path string, offset, limit int) string {
	full, err := b.resolvePath(path)
	if err != nil {
		return "Error: " + err.Error()
	}

	if err := gate(b.checker, permission.OpRead, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("read blocked")
		return "Error: " + err.Error()
	}

	info, statErr := os.Stat(full)
	if statErr != nil {
		return fmt.Sprintf("Error: File %q not found", path)
	}
	if info.IsDir() {
		return fmt.Sprintf("Error: %q is a directory", path)
	}

	data, readErr := os.ReadFile(full)
	if readErr != nil {
		return "Error: " + readErr.Error()
	}

	b.log.Debug().Str("path", full).Msg("read")
	return formatNumberedLines(string(data), offset, limit)
}

// Write stores content at path, creating parent directories.
func (b *Local) Write(path, content string) backends.WriteResult {
	full, err := b.resolvePath(path)
	if err != nil {
		return backends.WriteResult{Error: err.Error()}
	}

	if err := gate(b.checker, permission.OpWrite, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("write blocked")
		return backends.WriteResult{Error: err.Error()}
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return backends.WriteResult{Error: err.Error()}
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return backends.WriteResult{Error: err.Error()}
	}

	b.log.Debug().Str("path", full).Int("bytes", len(content)).Msg("write")
	return backends.WriteResult{Path: full}
}

// Edit replaces oldString with newString in the file at path.
func (b *Local) Edit(path, oldString, newString string, replaceAll bool) backends.EditResult {
	full, err := b.resolvePath(path)
	if err != nil {
		return backends.EditResult{Error: err.Error()}
	}

	if err := gate(b.checker, permission.OpEdit, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("edit blocked")
		return backends.EditResult{Error: err.Error()}
	}

	data, readErr := os.ReadFile(full)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return backends.EditResult{Error: fmt.Sprintf("File %q not found", path)}
		}
		return backends.EditResult{Error: readErr.Error()}
	}

	updated, occurrences, editErr := applyEdit(string(data), oldString, newString, replaceAll)
	if editErr != "" {
		return backends.EditResult{Error: editErr}
	}

	if err := os.WriteFile(full, []byte(updated), 0o644); err != nil {
		return backends.EditResult{Error: err.Error()}
	}

	b.log.Debug().Str("path", full).Int("occurrences", occurrences).Msg("edit")
	return backends.EditResult{Path: full, Occurrences: occurrences}
}

// Glob returns files under path matching the doublestar pattern, sorted by
// path.
func (b *Local) Glob(pattern, path string) []backends.FileInfo {
	if path == "" {
		path = "."
	}
	base, err := b.resolvePath(path)
	if err != nil {
		return nil
	}

	if err := gate(b.checker, permission.OpGlob, pattern); err != nil {
		b.log.Warn().Str("pattern", pattern).Err(err).Msg("glob blocked")
		return nil
	}

	matches, err := doublestar.Glob(os.DirFS(base), pattern)
	if err != nil {
		return nil
	}

	var results []backends.FileInfo
	for _, m := range matches {
		full := filepath.Join(base, m)
		if _, err := b.resolvePath(full); err != nil {
			continue
		}
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		results = append(results, backends.FileInfo{
			Name: info.Name(),
			Path: full,
			Size: info.Size(),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results
}

// Grep searches file contents for a regular expression. It shells out to
// ripgrep when available and falls back to a pure-Go walk.
func (b *Local) Grep(pattern, path, include string) ([]backends.GrepMatch, error) {
	searchPath := path
	if searchPath == "" {
		searchPath = b.root
	}
	base, err := b.resolvePath(searchPath)
	if err != nil {
		return nil, err
	}

	if err := gate(b.checker, permission.OpGrep, pattern); err != nil {
		b.log.Warn().Str("pattern", pattern).Err(err).Msg("grep blocked")
		return nil, err
	}

	info, statErr := os.Stat(base)
	if statErr != nil {
		return nil, fmt.Errorf("path %q not found", searchPath)
	}

	if _, lookErr := exec.LookPath("rg"); lookErr == nil && info.IsDir() {
		return b.grepRipgrep(pattern, base, include)
	}
	return b.grepWalk(pattern, base, include)
}

func (b *Local) grepRipgrep(pattern, base, include string) ([]backends.GrepMatch, error) {
	args := []string{"--line-number", "--no-heading", pattern}
	if include != "" {
		args = append(args, "--glob", include)
	}
	args = append(args, ".")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "rg", args...)
	cmd.Dir = base
	out, err := cmd.Output()
	if err != nil {
		// rg exits 1 on no matches
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("search timed out")
		}
		return nil, fmt.Errorf("ripgrep: %w", err)
	}

	var matches []backends.GrepMatch
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}
		lineNum, convErr := strconv.Atoi(parts[1])
		if convErr != nil {
			continue
		}
		full := filepath.Join(base, parts[0])
		if _, err := b.resolvePath(full); err != nil {
			continue
		}
		matches = append(matches, backends.GrepMatch{
			Path:       full,
			LineNumber: lineNum,
			Line:       parts[2],
		})
	}
	return matches, nil
}

func (b *Local) grepWalk(pattern, base, include string) ([]backends.GrepMatch, error) {
	re, err := compileGrepPattern(pattern)
	if err != nil {
		return nil, err
	}

	var files []string
	info, _ := os.Stat(base)
	if info != nil && !info.IsDir() {
		files = []string{base}
	} else {
		filepath.WalkDir(base, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() {
				return nil
			}
			// Hidden files and directories are skipped.
			rel, relErr := filepath.Rel(base, p)
			if relErr != nil {
				return nil
			}
			for _, part := range strings.Split(rel, string(filepath.Separator)) {
				if strings.HasPrefix(part, ".") {
					return nil
				}
			}
			if include != "" {
				if ok, _ := doublestar.Match(include, filepath.Base(p)); !ok {
					return nil
				}
			}
			files = append(files, p)
			return nil
		})
	}

	var matches []backends.GrepMatch
	for _, f := range files {
		if _, err := b.resolvePath(f); err != nil {
			continue
		}
		data, readErr := os.ReadFile(f)
		if readErr != nil {
			continue
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				matches = append(matches, backends.GrepMatch{
					Path:       f,
					LineNumber: i + 1,
					Line:       strings.TrimRight(line, "\r"),
				})
			}
		}
	}
	return matches, nil
}

// Ls lists entries at path, directories first.
func (b *Local) Ls(path string) []backends.FileInfo {
	full, err := b.resolvePath(path)
	if err != nil {
		return nil
	}

	if err := gate(b.checker, permission.OpLs, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("ls blocked")
		return nil
	}

	info, statErr := os.Stat(full)
	if statErr != nil {
		return nil
	}
	if !info.IsDir() {
		return []backends.FileInfo{{Name: info.Name(), Path: full, Size: info.Size()}}
	}

	entries, readErr := os.ReadDir(full)
	if readErr != nil {
		return nil
	}

	var results []backends.FileInfo
	for _, entry := range entries {
		p := filepath.Join(full, entry.Name())
		if _, err := b.resolvePath(p); err != nil {
			continue
		}
		fi := backends.FileInfo{Name: entry.Name(), Path: p, IsDir: entry.IsDir()}
		if !entry.IsDir() {
			if einfo, err := entry.Info(); err == nil {
				fi.Size = einfo.Size()
			}
		}
		results = append(results, fi)
	}

	sortEntries(results)
	return results
}

// Execute runs a shell command under a PTY, falling back to plain
// execution when no PTY is available. Timeouts map to exit code 124.
func (b *Local) Execute(ctx context.Context, command string, timeout time.Duration) (backends.ExecuteResponse, error) {
	if !b.execEnabled {
		return backends.ExecuteResponse{}, backends.ErrExecuteDisabled
	}

	if err := gate(b.checker, permission.OpExecute, command); err != nil {
		b.log.Warn().Str("command", command).Err(err).Msg("execute blocked")
		return backends.ExecuteResponse{Output: "Error: " + err.Error(), ExitCode: 1}, nil
	}

	if timeout <= 0 {
		timeout = defaultExecuteTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "sh", "-c", command)
	cmd.Dir = b.root

	output, exitCode, runErr := runWithPTY(cmd)
	if cmdCtx.Err() == context.DeadlineExceeded {
		return backends.ExecuteResponse{Output: "Error: Command timed out", ExitCode: timeoutExitCode}, nil
	}
	if runErr != nil {
		return backends.ExecuteResponse{Output: "Error: " + runErr.Error(), ExitCode: 1}, nil
	}

	out, truncated := truncateOutput(output)
	b.log.Debug().Str("command", command).Int("exit_code", exitCode).Msg("execute")
	return backends.ExecuteResponse{Output: out, ExitCode: exitCode, Truncated: truncated}, nil
}

// runWithPTY starts cmd under a pseudo-terminal for realistic output
// capture, falling back to CombinedOutput when PTY allocation fails.
func runWithPTY(cmd *exec.Cmd) (string, int, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		out, runErr := cmd.CombinedOutput()
		return string(out), exitCodeOf(runErr), nonExitErr(runErr)
	}
	defer ptmx.Close()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, ptmx) // PTY read returns EIO on process exit

	waitErr := cmd.Wait()
	return buf.String(), exitCodeOf(waitErr), nonExitErr(waitErr)
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// nonExitErr surfaces only non-exit errors (spawn failures); ordinary
// non-zero exits are reported through the exit code.
func nonExitErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return nil
	}
	return err
}
