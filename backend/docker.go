package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	backends "github.com/jmtasker/agent-backends-go"
	"github.com/jmtasker/agent-backends-go/internal/logging"
	"github.com/jmtasker/agent-backends-go/permission"
)

const (
	defaultDockerImage   = "alpine:3.20"
	defaultDockerWorkdir = "/workspace"
	dockerCLITimeout     = 30 * time.Second
)

// Docker is a backend that runs every operation inside a container. The
// container starts lazily on first use and is removed on Close. File
// operations go through the container's shell, so the image only needs
// standard POSIX tools.
type Docker struct {
	id      string
	image   string
	workdir string
	checker *permission.Checker
	log     zerolog.Logger

	mu          sync.Mutex
	containerID string
	closed      bool
}

var _ backends.Backend = (*Docker)(nil)

type dockerConfig struct {
	image    string
	workdir  string
	ruleset  *permission.Ruleset
	fallback permission.AskFallback
	log      *zerolog.Logger
}

// DockerOption configures [NewDocker].
type DockerOption func(*dockerConfig)

// WithImage sets the container image. Defaults to alpine:3.20.
func WithImage(image string) DockerOption {
	return func(c *dockerConfig) { c.image = image }
}

// WithWorkdir sets the working directory inside the container.
func WithWorkdir(dir string) DockerOption {
	return func(c *dockerConfig) { c.workdir = dir }
}

// WithDockerPermissions gates operations with the given ruleset.
func WithDockerPermissions(rs *permission.Ruleset) DockerOption {
	return func(c *dockerConfig) { c.ruleset = rs }
}

// WithDockerAskFallback sets how an ask decision resolves synchronously.
func WithDockerAskFallback(fb permission.AskFallback) DockerOption {
	return func(c *dockerConfig) { c.fallback = fb }
}

// WithDockerLogger sets the backend logger.
func WithDockerLogger(log zerolog.Logger) DockerOption {
	return func(c *dockerConfig) { c.log = &log }
}

// NewDocker creates a container backend. The container is not started
// until the first operation needs it.
func NewDocker(opts ...DockerOption) *Docker {
	cfg := dockerConfig{
		image:   defaultDockerImage,
		workdir: defaultDockerWorkdir,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Docker{
		id:      backends.NewID(backends.PrefixContainer),
		image:   cfg.image,
		workdir: cfg.workdir,
		log:     logging.Nop(),
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
func (b *Docker) ID() string { return b.id }

// Image returns the container image name.
func (b *Docker) Image() string { return b.image }

// Checker returns the permission checker, or nil when no ruleset is set.
func (b *Docker) Checker() *permission.Checker { return b.checker }

// ContainerID returns the running container's ID, or "" before first use.
func (b *Docker) ContainerID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.containerID
}

// ensureStarted launches the container on first use.
func (b *Docker) ensureStarted(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", backends.ErrBackendClosed
	}
	if b.containerID != "" {
		return b.containerID, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, dockerCLITimeout)
	defer cancel()
	out, err := exec.CommandContext(runCtx, "docker", "run", "-d",
		"--rm", b.image, "sleep", "infinity").Output()
	if err != nil {
		return "", fmt.Errorf("start container from %q: %w", b.image, err)
	}
	id := strings.TrimSpace(string(out))

	mkCtx, cancel2 := context.WithTimeout(ctx, dockerCLITimeout)
	defer cancel2()
	if err := exec.CommandContext(mkCtx, "docker", "exec", id,
		"mkdir", "-p", b.workdir).Run(); err != nil {
		exec.Command("docker", "rm", "-f", id).Run()
		return "", fmt.Errorf("create workdir %q: %w", b.workdir, err)
	}

	b.containerID = id
	b.log.Debug().Str("container", id).Str("image", b.image).Msg("container started")
	return id, nil
}

// execShell runs a shell script inside the container and returns combined
// output with the exit code. stdin may be nil.
func (b *Docker) execShell(ctx context.Context, script string, stdin *strings.Reader, timeout time.Duration) (string, int, error) {
	id, err := b.ensureStarted(ctx)
	if err != nil {
		return "", 0, err
	}

	if timeout <= 0 {
		timeout = dockerCLITimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"exec", "-w", b.workdir}
	if stdin != nil {
		args = append(args, "-i")
	}
	args = append(args, id, "sh", "-c", script)

	cmd := exec.CommandContext(cmdCtx, "docker", args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	runErr := cmd.Run()

	if cmdCtx.Err() == context.DeadlineExceeded {
		return buf.String(), timeoutExitCode, nil
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return buf.String(), exitErr.ExitCode(), nil
		}
		return buf.String(), 0, runErr
	}
	return buf.String(), 0, nil
}

// resolve anchors relative paths at the container workdir.
func (b *Docker) resolve(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(b.workdir, p)
}

// readRaw fetches file content without formatting.
func (b *Docker) readRaw(ctx context.Context, full string) (string, error) {
	out, code, err := b.execShell(ctx, "cat -- "+shellQuote(full), nil, 0)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("file %q not found", full)
	}
	return out, nil
}

// writeRaw stores content at full, creating parent directories.
func (b *Docker) writeRaw(ctx context.Context, full, content string) error {
	script := "mkdir -p -- " + shellQuote(path.Dir(full)) +
		" && cat > " + shellQuote(full)
	out, code, err := b.execShell(ctx, script, strings.NewReader(content), 0)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("write %q: %s", full, strings.TrimSpace(out))
	}
	return nil
}

// Read returns file content with line numbers, or an "Error: " string.
func (b *Docker) Read(p string, offset, limit int) string {
	full := b.resolve(p)

	if err := gate(b.checker, permission.OpRead, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("read blocked")
		return "Error: " + err.Error()
	}

	content, err := b.readRaw(context.Background(), full)
	if err != nil {
		return fmt.Sprintf("Error: File %q not found", p)
	}
	return formatNumberedLines(content, offset, limit)
}

// Write stores content at path inside the container.
func (b *Docker) Write(p, content string) backends.WriteResult {
	full := b.resolve(p)

	if err := gate(b.checker, permission.OpWrite, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("write blocked")
		return backends.WriteResult{Error: err.Error()}
	}

	if err := b.writeRaw(context.Background(), full, content); err != nil {
		return backends.WriteResult{Error: err.Error()}
	}
	return backends.WriteResult{Path: full}
}

// Edit replaces oldString with newString in the file at path. The file is
// pulled out of the container, edited, and written back.
func (b *Docker) Edit(p, oldString, newString string, replaceAll bool) backends.EditResult {
	full := b.resolve(p)

	if err := gate(b.checker, permission.OpEdit, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("edit blocked")
		return backends.EditResult{Error: err.Error()}
	}

	ctx := context.Background()
	content, err := b.readRaw(ctx, full)
	if err != nil {
		return backends.EditResult{Error: fmt.Sprintf("File %q not found", p)}
	}

	updated, occurrences, editErr := applyEdit(content, oldString, newString, replaceAll)
	if editErr != "" {
		return backends.EditResult{Error: editErr}
	}

	if err := b.writeRaw(ctx, full, updated); err != nil {
		return backends.EditResult{Error: err.Error()}
	}
	return backends.EditResult{Path: full, Occurrences: occurrences}
}

// Glob returns files matching the doublestar pattern under path.
func (b *Docker) Glob(pattern, p string) []backends.FileInfo {
	base := b.resolve(p)

	if err := gate(b.checker, permission.OpGlob, pattern); err != nil {
		b.log.Warn().Str("pattern", pattern).Err(err).Msg("glob blocked")
		return nil
	}

	// wc -c gives "size path" per file and is portable to busybox.
	script := "find " + shellQuote(base) + " -type f -exec wc -c {} +"
	out, code, err := b.execShell(context.Background(), script, nil, 0)
	if err != nil || code != 0 {
		return nil
	}

	var results []backends.FileInfo
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 || fields[1] == "total" {
			continue
		}
		size, sizeErr := strconv.ParseInt(fields[0], 10, 64)
		if sizeErr != nil {
			continue
		}
		full := fields[1]
		rel := strings.TrimPrefix(strings.TrimPrefix(full, base), "/")
		if ok, _ := doublestar.Match(pattern, rel); !ok {
			continue
		}
		results = append(results, backends.FileInfo{
			Name: path.Base(full),
			Path: full,
			Size: size,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results
}

// Grep searches file contents inside the container with grep -rn.
func (b *Docker) Grep(pattern, p, include string) ([]backends.GrepMatch, error) {
	base := b.resolve(p)

	if err := gate(b.checker, permission.OpGrep, pattern); err != nil {
		b.log.Warn().Str("pattern", pattern).Err(err).Msg("grep blocked")
		return nil, err
	}

	script := "grep -rn -E -e " + shellQuote(pattern) + " " + shellQuote(base)
	out, code, err := b.execShell(context.Background(), script, nil, 0)
	if err != nil {
		return nil, err
	}
	if code == 1 {
		return nil, nil
	}
	if code != 0 {
		return nil, fmt.Errorf("grep failed: %s", strings.TrimSpace(out))
	}

	var matches []backends.GrepMatch
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		if include != "" {
			if ok, _ := doublestar.Match(include, path.Base(parts[0])); !ok {
				continue
			}
		}
		lineNum, numErr := strconv.Atoi(parts[1])
		if numErr != nil {
			continue
		}
		matches = append(matches, backends.GrepMatch{
			Path:       parts[0],
			LineNumber: lineNum,
			Line:       parts[2],
		})
	}
	return matches, nil
}

// Ls lists entries at path, directories first. Entry sizes are not
// reported for container listings.
func (b *Docker) Ls(p string) []backends.FileInfo {
	full := b.resolve(p)

	if err := gate(b.checker, permission.OpLs, full); err != nil {
		b.log.Warn().Str("path", full).Err(err).Msg("ls blocked")
		return nil
	}

	out, code, err := b.execShell(context.Background(), "ls -1Ap -- "+shellQuote(full), nil, 0)
	if err != nil || code != 0 {
		return nil
	}

	var results []backends.FileInfo
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		isDir := strings.HasSuffix(line, "/")
		name := strings.TrimSuffix(line, "/")
		results = append(results, backends.FileInfo{
			Name:  name,
			Path:  path.Join(full, name),
			IsDir: isDir,
		})
	}

	sortEntries(results)
	return results
}

// Execute runs a shell command inside the container.
func (b *Docker) Execute(ctx context.Context, command string, timeout time.Duration) (backends.ExecuteResponse, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return backends.ExecuteResponse{}, backends.ErrBackendClosed
	}

	if err := gate(b.checker, permission.OpExecute, command); err != nil {
		b.log.Warn().Str("command", command).Err(err).Msg("execute blocked")
		return backends.ExecuteResponse{Output: "Error: " + err.Error(), ExitCode: 1}, nil
	}

	if timeout <= 0 {
		timeout = defaultExecuteTimeout
	}
	out, code, err := b.execShell(ctx, command, nil, timeout)
	if err != nil {
		return backends.ExecuteResponse{}, err
	}
	if code == timeoutExitCode {
		return backends.ExecuteResponse{
			Output:   fmt.Sprintf("Error: Command timed out after %s", timeout),
			ExitCode: timeoutExitCode,
		}, nil
	}

	output, truncated := truncateOutput(out)
	b.log.Debug().Str("command", command).Int("exit_code", code).Msg("command executed")
	return backends.ExecuteResponse{Output: output, ExitCode: code, Truncated: truncated}, nil
}

// Close removes the container. Safe to call more than once.
func (b *Docker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.containerID == "" {
		return nil
	}

	err := exec.Command("docker", "rm", "-f", b.containerID).Run()
	b.log.Debug().Str("container", b.containerID).Msg("container removed")
	b.containerID = ""
	if err != nil {
		return fmt.Errorf("remove container: %w", err)
	}
	return nil
}

// shellQuote wraps s in single quotes for safe interpolation into sh -c.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
