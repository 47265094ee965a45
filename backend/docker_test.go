package backend

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backends "github.com/jmtasker/agent-backends-go"
	"github.com/jmtasker/agent-backends-go/permission"
)

// requireDocker skips tests when no usable docker daemon is available.
func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker binary not found")
	}
	if err := exec.Command("docker", "info").Run(); err != nil {
		t.Skip("docker daemon not reachable")
	}
}

func TestDockerResolve(t *testing.T) {
	b := NewDocker(WithWorkdir("/workspace"))

	assert.Equal(t, "/workspace/a.txt", b.resolve("a.txt"))
	assert.Equal(t, "/workspace/sub/b.txt", b.resolve("sub/b.txt"))
	assert.Equal(t, "/etc/hosts", b.resolve("/etc/hosts"))
	assert.Equal(t, "/etc/hosts", b.resolve("/etc/../etc/hosts"))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "'plain'", shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, "'a b; rm'", shellQuote("a b; rm"))
}

func TestDockerDefaults(t *testing.T) {
	b := NewDocker()
	assert.Equal(t, defaultDockerImage, b.Image())
	assert.Regexp(t, `^ctr_`, b.ID())
	assert.Empty(t, b.ContainerID())
	assert.NoError(t, b.Close())
}

func TestDockerClosed(t *testing.T) {
	b := NewDocker()
	require.NoError(t, b.Close())

	_, err := b.Execute(context.Background(), "echo hi", 0)
	assert.ErrorIs(t, err, backends.ErrBackendClosed)

	out := b.Read("f.txt", 0, 0)
	assert.Contains(t, out, "Error:")
}

func TestDockerPermissionGating(t *testing.T) {
	rs := &permission.Ruleset{
		Execute: &permission.OperationPermissions{Default: permission.ActionDeny},
	}
	b := NewDocker(WithDockerPermissions(rs))
	defer b.Close()

	// Denied before the container would ever start.
	resp, err := b.Execute(context.Background(), "echo hi", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ExitCode)
	assert.Contains(t, resp.Output, "permission denied")
	assert.Empty(t, b.ContainerID())
}

func TestDockerFileOperations(t *testing.T) {
	requireDocker(t)

	b := NewDocker()
	defer b.Close()

	res := b.Write("notes/hello.txt", "one\ntwo\n")
	require.Empty(t, res.Error)
	assert.Equal(t, "/workspace/notes/hello.txt", res.Path)

	out := b.Read("notes/hello.txt", 0, 0)
	assert.Equal(t, "     1\tone\n     2\ttwo", out)

	edit := b.Edit("notes/hello.txt", "two", "2", false)
	require.Empty(t, edit.Error)
	assert.Equal(t, 1, edit.Occurrences)

	files := b.Glob("**/*.txt", "")
	require.Len(t, files, 1)
	assert.Equal(t, "/workspace/notes/hello.txt", files[0].Path)

	matches, err := b.Grep("one", "", "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].LineNumber)

	entries := b.Ls("")
	require.Len(t, entries, 1)
	assert.Equal(t, "notes", entries[0].Name)
	assert.True(t, entries[0].IsDir)
}

func TestDockerExecute(t *testing.T) {
	requireDocker(t)

	b := NewDocker()
	defer b.Close()

	resp, err := b.Execute(context.Background(), "echo container", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.ExitCode)
	assert.Contains(t, resp.Output, "container")

	resp, err = b.Execute(context.Background(), "exit 7", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, resp.ExitCode)

	resp, err = b.Execute(context.Background(), "sleep 10", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 124, resp.ExitCode)
}

func TestPoolParking(t *testing.T) {
	p := NewPool(WithMaxIdle(1))
	defer p.Close()

	a := NewDocker()
	b := NewDocker()

	require.NoError(t, p.Release(a))
	assert.Equal(t, 1, p.IdleCount())

	// Second release exceeds max idle and closes the backend.
	require.NoError(t, p.Release(b))
	assert.Equal(t, 1, p.IdleCount())

	got, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, 0, p.IdleCount())
	require.NoError(t, got.Close())
}

func TestPoolClosed(t *testing.T) {
	p := NewPool()
	require.NoError(t, p.Close())

	_, err := p.Acquire(context.Background())
	assert.ErrorIs(t, err, backends.ErrBackendClosed)

	// Releasing into a closed pool just closes the backend.
	require.NoError(t, p.Release(NewDocker()))
	assert.Equal(t, 0, p.IdleCount())
}

func TestPoolAcquireStartsContainer(t *testing.T) {
	requireDocker(t)

	p := NewPool()
	defer p.Close()

	b, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, b.ContainerID())
	require.NoError(t, p.Release(b))
	assert.Equal(t, 1, p.IdleCount())
}
