package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tagus/gemini-agent/pkg/interfaces"
	"github.com/tagus/gemini-agent/pkg/tools"
)

// RunScript executes a script file from the working directory with an
// external interpreter. A non-zero exit status is reported in the result,
// not as an error; only failing to run the script at all is an error.
type RunScript struct {
	interpreter string
	extension   string
	timeout     time.Duration
}

// NewRunScript creates the run_script tool
func NewRunScript(interpreter, extension string, timeout time.Duration) *RunScript {
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	if extension == "" {
		extension = DefaultScriptExtension
	}
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}
	return &RunScript{
		interpreter: interpreter,
		extension:   extension,
		timeout:     timeout,
	}
}

// Name implements interfaces.Tool.Name
func (r *RunScript) Name() string {
	return "run_script"
}

// Description implements interfaces.Tool.Description
func (r *RunScript) Description() string {
	return fmt.Sprintf("Executes a %s script in the working directory with optional arguments and returns its output and exit code. Runs are limited to %s.", r.extension, r.timeout)
}

// Parameters implements interfaces.Tool.Parameters
func (r *RunScript) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"file_path": {
			Type:        "string",
			Description: fmt.Sprintf("Path of the %s file to execute, relative to the working directory.", r.extension),
			Required:    true,
		},
		"args": {
			Type:        "array",
			Description: "Optional command-line arguments passed to the script.",
			Items:       &interfaces.ParameterSpec{Type: "string"},
		},
	}
}

// Execute implements interfaces.Tool.Execute
func (r *RunScript) Execute(ctx context.Context, ws interfaces.Workspace, args map[string]interface{}) (string, error) {
	a := tools.Args(args)
	path, err := a.String("file_path")
	if err != nil {
		return "", err
	}
	scriptArgs, err := a.StringSlice("args")
	if err != nil {
		return "", err
	}

	target, err := ws.Resolve(path)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(target), r.extension) {
		return "", fmt.Errorf("%q is not a %s file", path, r.extension)
	}
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file %q not found", path)
		}
		return "", fmt.Errorf("cannot stat %q: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%q is a directory, not a file", path)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.interpreter, append([]string{target}, scriptArgs...)...)
	cmd.Dir = ws.Root()
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctxErr := runCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("script %q timed out after %s", path, r.timeout)
		}
		return "", fmt.Errorf("script %q cancelled: %w", path, ctx.Err())
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("failed to execute %q: %w", path, err)
		}
		exitCode = exitErr.ExitCode()
	}

	return formatScriptOutput(stdout.String(), stderr.String(), exitCode), nil
}

func formatScriptOutput(stdout, stderr string, exitCode int) string {
	var sections []string
	if stdout != "" {
		sections = append(sections, "STDOUT:\n"+strings.TrimRight(stdout, "\n"))
	}
	if stderr != "" {
		sections = append(sections, "STDERR:\n"+strings.TrimRight(stderr, "\n"))
	}
	if exitCode != 0 {
		sections = append(sections, fmt.Sprintf("Process exited with code %d", exitCode))
	}
	if len(sections) == 0 {
		return "No output produced."
	}
	return strings.Join(sections, "\n")
}
