package builtin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/gemini-agent/pkg/workspace"
)

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	return ws
}

func writeFixture(t *testing.T, ws *workspace.Workspace, rel, content string) {
	t.Helper()
	path := filepath.Join(ws.Root(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaults(t *testing.T) {
	tools := Defaults(Options{})
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name())
	}
	assert.ElementsMatch(t, []string{"read_file", "list_files", "write_file", "run_script"}, names)
}

func TestPathEscapesRejected(t *testing.T) {
	ws := newWorkspace(t)
	outside := filepath.Join(filepath.Dir(ws.Root()), "secret.txt")
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() (string, error)
	}{
		{"read_file", func() (string, error) {
			return NewReadFile(0).Execute(ctx, ws, map[string]interface{}{"file_path": "../secret.txt"})
		}},
		{"list_files", func() (string, error) {
			return NewListFiles().Execute(ctx, ws, map[string]interface{}{"directory": ".."})
		}},
		{"write_file", func() (string, error) {
			return NewWriteFile().Execute(ctx, ws, map[string]interface{}{"file_path": "../secret.txt", "content": "x"})
		}},
		{"run_script", func() (string, error) {
			return NewRunScript("", "", 0).Execute(ctx, ws, map[string]interface{}{"file_path": "../secret.py"})
		}},
		{"absolute path", func() (string, error) {
			return NewReadFile(0).Execute(ctx, ws, map[string]interface{}{"file_path": "/etc/hostname"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.run()
			require.Error(t, err)
			assert.True(t, errors.Is(err, workspace.ErrOutsideWorkspace))
		})
	}

	_, err := os.Stat(outside)
	assert.True(t, os.IsNotExist(err), "write_file must not create files outside the root")
}

func TestReadFile(t *testing.T) {
	ws := newWorkspace(t)
	ctx := context.Background()
	writeFixture(t, ws, "small.txt", "hello world")
	writeFixture(t, ws, "big.txt", strings.Repeat("a", 25))
	writeFixture(t, ws, "exact.txt", strings.Repeat("b", 20))
	writeFixture(t, ws, "utf8.txt", strings.Repeat("é", 30))
	require.NoError(t, os.Mkdir(filepath.Join(ws.Root(), "dir"), 0o755))

	tool := NewReadFile(20)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr string
	}{
		{name: "small file", path: "small.txt", want: "hello world"},
		{name: "exact threshold", path: "exact.txt", want: strings.Repeat("b", 20)},
		{name: "truncated", path: "big.txt", want: strings.Repeat("a", 20) + `[...File "big.txt" truncated at 20 characters]`},
		{name: "truncated multibyte", path: "utf8.txt", want: strings.Repeat("é", 20) + `[...File "utf8.txt" truncated at 20 characters]`},
		{name: "directory", path: "dir", wantErr: "is a directory"},
		{name: "missing", path: "nope.txt", wantErr: "file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": tt.path})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("missing argument", func(t *testing.T) {
		_, err := tool.Execute(ctx, ws, map[string]interface{}{})
		assert.ErrorContains(t, err, "file_path")
	})
}

func TestListFiles(t *testing.T) {
	ws := newWorkspace(t)
	ctx := context.Background()
	writeFixture(t, ws, "a.txt", "12345")
	writeFixture(t, ws, "pkg/b.go", "package b")
	require.NoError(t, os.Mkdir(filepath.Join(ws.Root(), "empty"), 0o755))

	tool := NewListFiles()

	t.Run("root by default", func(t *testing.T) {
		got, err := tool.Execute(ctx, ws, map[string]interface{}{})
		require.NoError(t, err)
		lines := strings.Split(got, "\n")
		assert.Len(t, lines, 3)
		assert.Contains(t, lines, "- a.txt: file_size=5 bytes, is_dir=false")
		assert.Contains(t, got, "- pkg: file_size=")
		assert.Contains(t, got, "is_dir=true")
	})

	t.Run("subdirectory", func(t *testing.T) {
		got, err := tool.Execute(ctx, ws, map[string]interface{}{"directory": "pkg"})
		require.NoError(t, err)
		assert.Equal(t, "- b.go: file_size=9 bytes, is_dir=false", got)
	})

	t.Run("empty directory", func(t *testing.T) {
		got, err := tool.Execute(ctx, ws, map[string]interface{}{"directory": "empty"})
		require.NoError(t, err)
		assert.Contains(t, got, "is empty")
	})

	t.Run("not a directory", func(t *testing.T) {
		_, err := tool.Execute(ctx, ws, map[string]interface{}{"directory": "a.txt"})
		assert.ErrorContains(t, err, "is not a directory")
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := tool.Execute(ctx, ws, map[string]interface{}{"directory": "ghost"})
		assert.ErrorContains(t, err, "not found")
	})
}

func TestWriteFile(t *testing.T) {
	ctx := context.Background()
	tool := NewWriteFile()

	t.Run("no overwrite keeps first content", func(t *testing.T) {
		ws := newWorkspace(t)
		got, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": "a.txt", "content": "hi"})
		require.NoError(t, err)
		assert.Equal(t, `Successfully wrote to "a.txt" (2 characters written)`, got)

		_, err = tool.Execute(ctx, ws, map[string]interface{}{"file_path": "a.txt", "content": "bye", "overwrite": false})
		assert.ErrorContains(t, err, "already exists")

		data, err := os.ReadFile(filepath.Join(ws.Root(), "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "hi", string(data))
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		ws := newWorkspace(t)
		writeFixture(t, ws, "a.txt", "a much longer first version")
		_, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": "a.txt", "content": "new", "overwrite": "true"})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(ws.Root(), "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("creates parent directories", func(t *testing.T) {
		ws := newWorkspace(t)
		_, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": "x/y/z.txt", "content": "deep"})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(ws.Root(), "x", "y", "z.txt"))
		require.NoError(t, err)
		assert.Equal(t, "deep", string(data))
	})

	t.Run("directory target", func(t *testing.T) {
		ws := newWorkspace(t)
		require.NoError(t, os.Mkdir(filepath.Join(ws.Root(), "dir"), 0o755))
		_, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": "dir", "content": "x", "overwrite": true})
		assert.ErrorContains(t, err, "is a directory")
	})

	t.Run("invalid overwrite flag", func(t *testing.T) {
		ws := newWorkspace(t)
		_, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": "a.txt", "content": "x", "overwrite": "maybe"})
		assert.ErrorContains(t, err, "boolean")
	})

	t.Run("round trip", func(t *testing.T) {
		ws := newWorkspace(t)
		_, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": "a.txt", "content": "hi"})
		require.NoError(t, err)

		got, err := NewReadFile(0).Execute(ctx, ws, map[string]interface{}{"file_path": "a.txt"})
		require.NoError(t, err)
		assert.Equal(t, "hi", got)
	})
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
}

func TestRunScript(t *testing.T) {
	requireShell(t)
	ctx := context.Background()
	tool := NewRunScript("/bin/sh", ".sh", 5*time.Second)

	t.Run("captures stdout and args", func(t *testing.T) {
		ws := newWorkspace(t)
		writeFixture(t, ws, "hello.sh", "echo \"hello $1 $2\"\n")
		got, err := tool.Execute(ctx, ws, map[string]interface{}{
			"file_path": "hello.sh",
			"args":      []interface{}{"big", "world"},
		})
		require.NoError(t, err)
		assert.Equal(t, "STDOUT:\nhello big world", got)
	})

	t.Run("runs in the working directory", func(t *testing.T) {
		ws := newWorkspace(t)
		writeFixture(t, ws, "data.txt", "payload")
		writeFixture(t, ws, "scripts/cat.sh", "cat data.txt\n")
		got, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": "scripts/cat.sh"})
		require.NoError(t, err)
		assert.Equal(t, "STDOUT:\npayload", got)
	})

	t.Run("non-zero exit is a result", func(t *testing.T) {
		ws := newWorkspace(t)
		writeFixture(t, ws, "fail.sh", "echo partial\necho boom 1>&2\nexit 3\n")
		got, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": "fail.sh"})
		require.NoError(t, err)
		assert.Contains(t, got, "STDOUT:\npartial")
		assert.Contains(t, got, "STDERR:\nboom")
		assert.Contains(t, got, "Process exited with code 3")
	})

	t.Run("no output", func(t *testing.T) {
		ws := newWorkspace(t)
		writeFixture(t, ws, "quiet.sh", "true\n")
		got, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": "quiet.sh"})
		require.NoError(t, err)
		assert.Equal(t, "No output produced.", got)
	})

	t.Run("timeout", func(t *testing.T) {
		ws := newWorkspace(t)
		writeFixture(t, ws, "slow.sh", "sleep 5\n")
		slow := NewRunScript("/bin/sh", ".sh", 200*time.Millisecond)
		start := time.Now()
		_, err := slow.Execute(ctx, ws, map[string]interface{}{"file_path": "slow.sh"})
		assert.ErrorContains(t, err, "timed out")
		assert.Less(t, time.Since(start), 4*time.Second)
	})

	t.Run("wrong extension", func(t *testing.T) {
		ws := newWorkspace(t)
		writeFixture(t, ws, "notes.txt", "echo hi\n")
		_, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": "notes.txt"})
		assert.ErrorContains(t, err, "is not a .sh file")
	})

	t.Run("missing script", func(t *testing.T) {
		ws := newWorkspace(t)
		_, err := tool.Execute(ctx, ws, map[string]interface{}{"file_path": "ghost.sh"})
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("interpreter cannot start", func(t *testing.T) {
		ws := newWorkspace(t)
		writeFixture(t, ws, "ok.sh", "echo hi\n")
		broken := NewRunScript(filepath.Join(ws.Root(), "no-such-interpreter"), ".sh", time.Second)
		_, err := broken.Execute(ctx, ws, map[string]interface{}{"file_path": "ok.sh"})
		assert.ErrorContains(t, err, "failed to execute")
	})
}

func TestFormatScriptOutput(t *testing.T) {
	tests := []struct {
		name     string
		stdout   string
		stderr   string
		exitCode int
		want     string
	}{
		{"empty", "", "", 0, "No output produced."},
		{"exit code only", "", "", 2, "Process exited with code 2"},
		{"stderr only", "", "warn\n", 0, "STDERR:\nwarn"},
		{"all", "out\n", "err\n", 1, "STDOUT:\nout\nSTDERR:\nerr\nProcess exited with code 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatScriptOutput(tt.stdout, tt.stderr, tt.exitCode))
		})
	}
}
