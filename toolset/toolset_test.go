package toolset

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmtasker/agent-backends-go/backend"
	"github.com/jmtasker/agent-backends-go/permission"
)

func newTestToolset(t *testing.T, opts ...Option) *Toolset {
	t.Helper()
	b := backend.NewMemory()
	t.Cleanup(func() { b.Close() })
	return New(b, opts...)
}

func call(t *testing.T, ts *Toolset, name, input string) *ToolResult {
	t.Helper()
	res, err := ts.Registry().Call(context.Background(), name, json.RawMessage(input))
	require.NoError(t, err)
	return res
}

func TestToolRegistration(t *testing.T) {
	t.Run("all console tools", func(t *testing.T) {
		ts := newTestToolset(t)
		assert.Equal(t,
			[]string{"Read", "Write", "Edit", "Glob", "Grep", "Ls", "Bash"},
			ts.Registry().Names())
	})

	t.Run("without execute", func(t *testing.T) {
		ts := newTestToolset(t, WithoutExecute())
		assert.NotContains(t, ts.Registry().Names(), "Bash")
	})

	t.Run("api listing carries schemas", func(t *testing.T) {
		ts := newTestToolset(t)
		listed := ts.Registry().ListForAPI()
		require.Len(t, listed, 7)
		assert.Equal(t, "Read", listed[0].OfTool.Name)
		assert.NotNil(t, listed[0].OfTool.InputSchema.Properties)
	})

	t.Run("unknown tool", func(t *testing.T) {
		ts := newTestToolset(t)
		_, err := ts.Registry().Call(context.Background(), "Nope", json.RawMessage(`{}`))
		assert.ErrorContains(t, err, "tool not found")
	})

	t.Run("malformed input", func(t *testing.T) {
		ts := newTestToolset(t)
		res := call(t, ts, "Read", `{"file_path": 42}`)
		assert.True(t, res.IsError)
		assert.Contains(t, res.Text(), "invalid input")
	})
}

func TestWriteAndReadTools(t *testing.T) {
	ts := newTestToolset(t)

	res := call(t, ts, "Write", `{"file_path": "/notes.txt", "content": "alpha\nbeta\n"}`)
	require.False(t, res.IsError, res.Text())
	assert.Equal(t, "Wrote 3 lines to /notes.txt", res.Text())

	res = call(t, ts, "Read", `{"file_path": "/notes.txt"}`)
	require.False(t, res.IsError)
	assert.Equal(t, "     1\talpha\n     2\tbeta", res.Text())

	res = call(t, ts, "Read", `{"file_path": "/missing.txt"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text(), "not found")

	res = call(t, ts, "Read", `{}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text(), "file_path is required")
}

func TestEditTool(t *testing.T) {
	ts := newTestToolset(t)
	call(t, ts, "Write", `{"file_path": "/f.txt", "content": "aa bb aa"}`)

	res := call(t, ts, "Edit", `{"file_path": "/f.txt", "old_string": "bb", "new_string": "xx"}`)
	require.False(t, res.IsError)
	assert.Equal(t, "Edited /f.txt: replaced 1 occurrence(s)", res.Text())

	res = call(t, ts, "Edit", `{"file_path": "/f.txt", "old_string": "aa", "new_string": "yy"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text(), "found 2 times")

	res = call(t, ts, "Edit", `{"file_path": "/f.txt", "old_string": "aa", "new_string": "yy", "replace_all": true}`)
	require.False(t, res.IsError)
	assert.Contains(t, res.Text(), "replaced 2 occurrence(s)")
}

func TestGlobTool(t *testing.T) {
	ts := newTestToolset(t)
	call(t, ts, "Write", `{"file_path": "/src/a.go", "content": "x"}`)
	call(t, ts, "Write", `{"file_path": "/src/b.txt", "content": "x"}`)

	res := call(t, ts, "Glob", `{"pattern": "**/*.go", "path": "/src"}`)
	require.False(t, res.IsError)
	assert.Contains(t, res.Text(), "Found 1 file(s)")
	assert.Contains(t, res.Text(), "/src/a.go")

	res = call(t, ts, "Glob", `{"pattern": "*.rs", "path": "/src"}`)
	assert.Contains(t, res.Text(), "No files matching")
}

func TestGrepTool(t *testing.T) {
	ts := newTestToolset(t)
	call(t, ts, "Write", `{"file_path": "/a.go", "content": "package main\n"}`)
	call(t, ts, "Write", `{"file_path": "/b.go", "content": "package other\n"}`)

	t.Run("files mode is default", func(t *testing.T) {
		res := call(t, ts, "Grep", `{"pattern": "package", "path": "/"}`)
		require.False(t, res.IsError)
		assert.Contains(t, res.Text(), `Files containing "package"`)
		assert.Contains(t, res.Text(), "/a.go")
		assert.Contains(t, res.Text(), "/b.go")
	})

	t.Run("content mode", func(t *testing.T) {
		res := call(t, ts, "Grep", `{"pattern": "main", "path": "/", "output_mode": "content"}`)
		assert.Contains(t, res.Text(), "/a.go:1: package main")
	})

	t.Run("count mode", func(t *testing.T) {
		res := call(t, ts, "Grep", `{"pattern": "package", "path": "/", "output_mode": "count"}`)
		assert.Contains(t, res.Text(), "Found 2 match(es)")
	})

	t.Run("no matches", func(t *testing.T) {
		res := call(t, ts, "Grep", `{"pattern": "absent", "path": "/"}`)
		assert.Contains(t, res.Text(), "No matches")
	})

	t.Run("content mode truncates on rune boundaries", func(t *testing.T) {
		long := strings.Repeat("é", 60) // 120 bytes of 2-byte runes
		call(t, ts, "Write", `{"file_path": "/wide.txt", "content": `+mustJSON(t, long+"\n")+`}`)

		res := call(t, ts, "Grep", `{"pattern": "é", "path": "/wide.txt", "output_mode": "content"}`)
		require.False(t, res.IsError, res.Text())
		assert.True(t, utf8.ValidString(res.Text()))
		assert.Contains(t, res.Text(), strings.Repeat("é", 50))
		assert.NotContains(t, res.Text(), strings.Repeat("é", 51))
	})
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func TestLsTool(t *testing.T) {
	ts := newTestToolset(t)
	call(t, ts, "Write", `{"file_path": "/dir/file.txt", "content": "abc"}`)

	res := call(t, ts, "Ls", `{"path": "/dir"}`)
	require.False(t, res.IsError)
	assert.Contains(t, res.Text(), "Contents of /dir:")
	assert.Contains(t, res.Text(), "file.txt (3 bytes)")

	res = call(t, ts, "Ls", `{"path": "/nowhere"}`)
	assert.Contains(t, res.Text(), "empty or does not exist")

	// Empty path defaults to the backend root in both the permission
	// target and the listing.
	res = call(t, ts, "Ls", `{}`)
	require.False(t, res.IsError)
	assert.Contains(t, res.Text(), "Contents of .:")
	assert.Contains(t, res.Text(), "dir/")
}

func TestBashToolDisabledBackend(t *testing.T) {
	ts := newTestToolset(t)

	res := call(t, ts, "Bash", `{"command": "echo hi"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text(), "execution is disabled")
}

func TestBashToolLocal(t *testing.T) {
	b, err := backend.NewLocal(backend.WithRootDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	ts := New(b)

	res := call(t, ts, "Bash", `{"command": "echo tool"}`)
	require.False(t, res.IsError, res.Text())
	assert.Contains(t, res.Text(), "tool")

	res = call(t, ts, "Bash", `{"command": "exit 4"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text(), "failed (exit code 4)")
}

func TestToolsetChecker(t *testing.T) {
	rs := permission.DefaultRuleset()

	t.Run("approval granted", func(t *testing.T) {
		var gotReason string
		approve := func(_ context.Context, _ permission.Operation, _ string, reason string) (bool, error) {
			gotReason = reason
			return true, nil
		}
		ts := newTestToolset(t, WithChecker(permission.NewChecker(rs, approve, "")))

		res := call(t, ts, "Write", `{"file_path": "/ok.txt", "content": "hello"}`)
		require.False(t, res.IsError, res.Text())
		assert.Equal(t, "Write 5 bytes to /ok.txt", gotReason)
	})

	t.Run("approval declined", func(t *testing.T) {
		decline := func(context.Context, permission.Operation, string, string) (bool, error) {
			return false, nil
		}
		ts := newTestToolset(t, WithChecker(permission.NewChecker(rs, decline, "")))

		res := call(t, ts, "Write", `{"file_path": "/no.txt", "content": "x"}`)
		assert.True(t, res.IsError)
		assert.Contains(t, res.Text(), "permission denied")
	})

	t.Run("deny rule blocks before backend", func(t *testing.T) {
		ts := newTestToolset(t, WithChecker(permission.NewChecker(rs, nil, permission.FallbackDeny)))

		res := call(t, ts, "Read", `{"file_path": "/app/.env"}`)
		assert.True(t, res.IsError)
		assert.Contains(t, res.Text(), "permission denied")
	})
}

func TestConsoleAsk(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"yes word", "yes\n", true},
		{"uppercase", "Y\n", true},
		{"no", "n\n", false},
		{"empty line", "\n", false},
		{"garbage", "maybe\n", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out strings.Builder
			ask := ConsoleAskRW(strings.NewReader(tc.input), &out)

			ok, err := ask(ctx, permission.OpWrite, "/f.txt", "Write 3 bytes to /f.txt")
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
			assert.Contains(t, out.String(), "Write 3 bytes to /f.txt")
			assert.Contains(t, out.String(), "Allow? [y/N]")
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		blocked, w := io.Pipe()
		defer w.Close()
		ask := ConsoleAskRW(blocked, &strings.Builder{})
		_, err := ask(cancelled, permission.OpRead, "/f", "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
